package step

// Step is one configuration-sourced unit of work before it becomes an
// executable request. Steps are created once per workflow run and never
// mutated.
type Step struct {
	Type         string   `json:"type"`
	Cmd          []string `json:"cmd"`
	Cwd          string   `json:"cwd,omitempty"`
	AllowFailure bool     `json:"allow_failure,omitempty"`
	ShowOutput   bool     `json:"show_output,omitempty"`
}

package result

import "strings"

// OperationResult is the outcome of executing one request against a driver.
// Execution faults are carried here rather than through errors so a workflow
// with partial success can still be reported coherently.
type OperationResult struct {
	Name         string
	Success      bool
	ExitCode     int
	Stdout       string
	Stderr       string
	ErrorMessage string
	AllowFailure bool
	DurationMs   int64
}

// Ok builds a successful result.
func Ok(name, stdout string) *OperationResult {
	return &OperationResult{Name: name, Success: true, Stdout: stdout}
}

// Fail builds a failed result with the given message.
func Fail(name, message string) *OperationResult {
	return &OperationResult{Name: name, Success: false, ExitCode: 1, ErrorMessage: message}
}

// ErrorOutput returns the most informative failure text available.
func (r *OperationResult) ErrorOutput() string {
	if r == nil {
		return ""
	}
	if r.ErrorMessage != "" {
		return r.ErrorMessage
	}
	return strings.TrimSpace(r.Stderr)
}

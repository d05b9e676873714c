// Package factory translates step descriptors into executable requests.
// Factories construct requests only; nothing is executed at factory time.
package factory

import (
	"fmt"
	"strings"

	"github.com/google/shlex"

	"cpenv/internal/envres"
	"cpenv/internal/workflow/request"
	"cpenv/internal/workflow/step"
	appErr "cpenv/pkg/errors"
)

// Controller supplies template formatting and the active handlers to the
// factories. The execution context satisfies the formatting half; the env
// resource controller supplies the handler pair for the active environment.
type Controller interface {
	FormatString(s string) string
	Files() envres.FileHandler
	Runner() envres.RunHandler
}

// Factory maps one step descriptor to exactly one request.
type Factory interface {
	StepType() string
	CreateRequest(s step.Step) (request.Request, error)
}

func checkType(want string, s step.Step) error {
	if s.Type != want {
		return appErr.TypeMismatchError(want, s.Type)
	}
	return nil
}

func checkArity(s step.Step, want int) error {
	if len(s.Cmd) != want {
		return appErr.ArityError(s.Type, want, len(s.Cmd))
	}
	return nil
}

func checkMinArity(s step.Step, min int) error {
	if len(s.Cmd) < min {
		return appErr.Newf(appErr.StepArityInvalid,
			"%s step requires at least %d cmd entries, got %d", s.Type, min, len(s.Cmd))
	}
	return nil
}

// CopyFactory builds copy requests from two-element cmd arrays (src, dst).
type CopyFactory struct{ ctrl Controller }

func NewCopyFactory(ctrl Controller) *CopyFactory { return &CopyFactory{ctrl: ctrl} }

func (f *CopyFactory) StepType() string { return "copy" }

func (f *CopyFactory) CreateRequest(s step.Step) (request.Request, error) {
	if err := checkType(f.StepType(), s); err != nil {
		return nil, err
	}
	if err := checkArity(s, 2); err != nil {
		return nil, err
	}
	return f.ctrl.Files().Copy(f.ctrl.FormatString(s.Cmd[0]), f.ctrl.FormatString(s.Cmd[1]))
}

// MoveFactory builds move requests from (src, dst).
type MoveFactory struct{ ctrl Controller }

func NewMoveFactory(ctrl Controller) *MoveFactory { return &MoveFactory{ctrl: ctrl} }

func (f *MoveFactory) StepType() string { return "move" }

func (f *MoveFactory) CreateRequest(s step.Step) (request.Request, error) {
	if err := checkType(f.StepType(), s); err != nil {
		return nil, err
	}
	if err := checkArity(s, 2); err != nil {
		return nil, err
	}
	return f.ctrl.Files().Move(f.ctrl.FormatString(s.Cmd[0]), f.ctrl.FormatString(s.Cmd[1]))
}

// MkdirFactory builds mkdir requests from a single path.
type MkdirFactory struct{ ctrl Controller }

func NewMkdirFactory(ctrl Controller) *MkdirFactory { return &MkdirFactory{ctrl: ctrl} }

func (f *MkdirFactory) StepType() string { return "mkdir" }

func (f *MkdirFactory) CreateRequest(s step.Step) (request.Request, error) {
	if err := checkType(f.StepType(), s); err != nil {
		return nil, err
	}
	if err := checkArity(s, 1); err != nil {
		return nil, err
	}
	return f.ctrl.Files().Mkdir(f.ctrl.FormatString(s.Cmd[0]))
}

// TouchFactory builds touch requests from a single path.
type TouchFactory struct{ ctrl Controller }

func NewTouchFactory(ctrl Controller) *TouchFactory { return &TouchFactory{ctrl: ctrl} }

func (f *TouchFactory) StepType() string { return "touch" }

func (f *TouchFactory) CreateRequest(s step.Step) (request.Request, error) {
	if err := checkType(f.StepType(), s); err != nil {
		return nil, err
	}
	if err := checkArity(s, 1); err != nil {
		return nil, err
	}
	return f.ctrl.Files().Touch(f.ctrl.FormatString(s.Cmd[0]))
}

// RemoveFactory builds remove requests from a single path.
type RemoveFactory struct{ ctrl Controller }

func NewRemoveFactory(ctrl Controller) *RemoveFactory { return &RemoveFactory{ctrl: ctrl} }

func (f *RemoveFactory) StepType() string { return "remove" }

func (f *RemoveFactory) CreateRequest(s step.Step) (request.Request, error) {
	if err := checkType(f.StepType(), s); err != nil {
		return nil, err
	}
	if err := checkArity(s, 1); err != nil {
		return nil, err
	}
	return f.ctrl.Files().Remove(f.ctrl.FormatString(s.Cmd[0]))
}

// RmtreeFactory builds recursive directory removal requests.
type RmtreeFactory struct{ ctrl Controller }

func NewRmtreeFactory(ctrl Controller) *RmtreeFactory { return &RmtreeFactory{ctrl: ctrl} }

func (f *RmtreeFactory) StepType() string { return "rmtree" }

func (f *RmtreeFactory) CreateRequest(s step.Step) (request.Request, error) {
	if err := checkType(f.StepType(), s); err != nil {
		return nil, err
	}
	if err := checkArity(s, 1); err != nil {
		return nil, err
	}
	return f.ctrl.Files().RmTree(f.ctrl.FormatString(s.Cmd[0]))
}

// ShellFactory builds run requests from command arrays. A single entry
// containing whitespace is split shell-style so config authors can write
// either form.
type ShellFactory struct{ ctrl Controller }

func NewShellFactory(ctrl Controller) *ShellFactory { return &ShellFactory{ctrl: ctrl} }

func (f *ShellFactory) StepType() string { return "shell" }

func (f *ShellFactory) CreateRequest(s step.Step) (request.Request, error) {
	if err := checkType(f.StepType(), s); err != nil {
		return nil, err
	}
	if err := checkMinArity(s, 1); err != nil {
		return nil, err
	}
	cmd := make([]string, 0, len(s.Cmd))
	for _, arg := range s.Cmd {
		cmd = append(cmd, f.ctrl.FormatString(arg))
	}
	if len(cmd) == 1 && strings.ContainsAny(cmd[0], " \t") {
		split, err := shlex.Split(cmd[0])
		if err != nil {
			return nil, appErr.Wrapf(err, appErr.InvalidFormat, "split shell step %q failed", cmd[0])
		}
		cmd = split
	}
	return f.ctrl.Runner().Run(cmd, f.ctrl.FormatString(s.Cwd))
}

// OjFactory builds online-judge tool invocations; the cmd array is the oj
// subcommand and its arguments.
type OjFactory struct{ ctrl Controller }

func NewOjFactory(ctrl Controller) *OjFactory { return &OjFactory{ctrl: ctrl} }

func (f *OjFactory) StepType() string { return "oj" }

func (f *OjFactory) CreateRequest(s step.Step) (request.Request, error) {
	if err := checkType(f.StepType(), s); err != nil {
		return nil, err
	}
	if err := checkMinArity(s, 1); err != nil {
		return nil, err
	}
	cmd := make([]string, 0, len(s.Cmd)+1)
	cmd = append(cmd, "oj")
	for _, arg := range s.Cmd {
		cmd = append(cmd, f.ctrl.FormatString(arg))
	}
	return f.ctrl.Runner().Run(cmd, f.ctrl.FormatString(s.Cwd))
}

// DockerFactory builds docker requests; cmd[0] names the docker operation.
type DockerFactory struct{ ctrl Controller }

func NewDockerFactory(ctrl Controller) *DockerFactory { return &DockerFactory{ctrl: ctrl} }

func (f *DockerFactory) StepType() string { return "docker" }

func (f *DockerFactory) CreateRequest(s step.Step) (request.Request, error) {
	if err := checkType(f.StepType(), s); err != nil {
		return nil, err
	}
	if err := checkMinArity(s, 1); err != nil {
		return nil, err
	}
	args := make([]string, 0, len(s.Cmd)-1)
	for _, arg := range s.Cmd[1:] {
		args = append(args, f.ctrl.FormatString(arg))
	}

	switch s.Cmd[0] {
	case "run":
		image, container := parseRunArgs(args)
		return request.NewDockerRequest(request.DockerRun, image, container, nil), nil
	case "stop":
		if len(args) != 1 {
			return nil, appErr.ArityError("docker stop", 1, len(args))
		}
		return request.NewDockerRequest(request.DockerStop, "", args[0], nil), nil
	case "rm":
		if len(args) != 1 {
			return nil, appErr.ArityError("docker rm", 1, len(args))
		}
		return request.NewDockerRequest(request.DockerRemove, "", args[0], nil), nil
	case "build":
		image, _ := parseTagArg(args)
		return request.NewDockerRequest(request.DockerBuild, image, "", nil), nil
	case "exec":
		if len(args) < 2 {
			return nil, appErr.Newf(appErr.StepArityInvalid,
				"docker exec step requires a container and a command, got %d entries", len(args))
		}
		return request.NewDockerRequest(request.DockerExec, "", args[0], args[1:]), nil
	case "logs":
		if len(args) != 1 {
			return nil, appErr.ArityError("docker logs", 1, len(args))
		}
		return request.NewDockerRequest(request.DockerLogs, "", args[0], nil), nil
	case "ps":
		return request.NewDockerRequest(request.DockerPs, "", "", nil), nil
	default:
		return nil, appErr.Newf(appErr.StepTypeUnknown, "unknown docker operation %q", s.Cmd[0])
	}
}

// parseRunArgs extracts the image (last argument) and an optional --name
// value from docker run arguments.
func parseRunArgs(args []string) (image, container string) {
	for i, arg := range args {
		if arg == "--name" && i+1 < len(args) {
			container = args[i+1]
		}
	}
	if len(args) > 0 {
		image = args[len(args)-1]
	}
	return image, container
}

// parseTagArg extracts a -t tag value from docker build arguments.
func parseTagArg(args []string) (tag string, ok bool) {
	for i, arg := range args {
		if arg == "-t" && i+1 < len(args) {
			return args[i+1], true
		}
	}
	return "", false
}

// Registry resolves factories by step type.
type Registry struct {
	factories map[string]Factory
}

// NewRegistry builds a registry over the default factory set.
func NewRegistry(ctrl Controller) *Registry {
	r := &Registry{factories: make(map[string]Factory)}
	for _, f := range []Factory{
		NewCopyFactory(ctrl),
		NewMoveFactory(ctrl),
		NewMkdirFactory(ctrl),
		NewTouchFactory(ctrl),
		NewRemoveFactory(ctrl),
		NewRmtreeFactory(ctrl),
		NewShellFactory(ctrl),
		NewOjFactory(ctrl),
		NewDockerFactory(ctrl),
	} {
		r.factories[f.StepType()] = f
	}
	return r
}

// CreateRequest dispatches one step to its factory and applies the
// step-level flags to the produced request.
func (r *Registry) CreateRequest(index int, s step.Step) (request.Request, error) {
	f, ok := r.factories[s.Type]
	if !ok {
		return nil, appErr.Newf(appErr.StepTypeUnknown, "no factory for step type %q", s.Type)
	}
	req, err := f.CreateRequest(s)
	if err != nil {
		return nil, err
	}
	req.SetName(fmt.Sprintf("step_%d_%s", index, s.Type))
	req.SetAllowFailure(s.AllowFailure)
	return req, nil
}

// CreateRequests converts an ordered step list, failing on the first bad
// descriptor before anything executes.
func (r *Registry) CreateRequests(steps []step.Step) ([]request.Request, error) {
	requests := make([]request.Request, 0, len(steps))
	for i, s := range steps {
		req, err := r.CreateRequest(i, s)
		if err != nil {
			return nil, err
		}
		requests = append(requests, req)
	}
	return requests, nil
}

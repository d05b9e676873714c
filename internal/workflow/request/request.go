package request

import (
	"context"
	"sync/atomic"
	"time"

	"cpenv/internal/workflow/result"
	appErr "cpenv/pkg/errors"
)

// FileOp enumerates filesystem operations a FileRequest can carry.
type FileOp int

const (
	FileRead FileOp = iota
	FileWrite
	FileCopy
	FileMove
	FileRemove
	FileMkdir
	FileTouch
	FileCopyTree
	FileRmTree
	FileExists
)

// String returns the lowercase operation name.
func (op FileOp) String() string {
	switch op {
	case FileRead:
		return "read"
	case FileWrite:
		return "write"
	case FileCopy:
		return "copy"
	case FileMove:
		return "move"
	case FileRemove:
		return "remove"
	case FileMkdir:
		return "mkdir"
	case FileTouch:
		return "touch"
	case FileCopyTree:
		return "copytree"
	case FileRmTree:
		return "rmtree"
	case FileExists:
		return "exists"
	}
	return "unknown"
}

// DockerOp enumerates Docker operations a DockerRequest can carry.
type DockerOp int

const (
	DockerRun DockerOp = iota
	DockerStop
	DockerRemove
	DockerBuild
	DockerExec
	DockerPs
	DockerLogs
	DockerInspect
)

// String returns the lowercase operation name.
func (op DockerOp) String() string {
	switch op {
	case DockerRun:
		return "run"
	case DockerStop:
		return "stop"
	case DockerRemove:
		return "rm"
	case DockerBuild:
		return "build"
	case DockerExec:
		return "exec"
	case DockerPs:
		return "ps"
	case DockerLogs:
		return "logs"
	case DockerInspect:
		return "inspect"
	}
	return "unknown"
}

// Driver executes one request. The concrete implementation dispatches on the
// request variant with an exhaustive type switch; an unknown variant is a
// wiring bug, not a runtime condition.
type Driver interface {
	Execute(ctx context.Context, req Request) (*result.OperationResult, error)
}

// Request is the closed set of executable work units. A request executes at
// most once; a second Run returns a RequestDoubleExec error.
type Request interface {
	Name() string
	SetName(name string)
	AllowFailure() bool
	SetAllowFailure(allow bool)
	Run(ctx context.Context, drv Driver) (*result.OperationResult, error)

	isRequest()
}

// base carries the state shared by every request variant.
type base struct {
	name         string
	allowFailure bool
	executed     atomic.Bool
}

func (b *base) Name() string               { return b.name }
func (b *base) SetName(name string)        { b.name = name }
func (b *base) AllowFailure() bool         { return b.allowFailure }
func (b *base) SetAllowFailure(allow bool) { b.allowFailure = allow }

// begin flips the executed flag, returning false on a repeat call.
func (b *base) begin() bool {
	return b.executed.CompareAndSwap(false, true)
}

func run(ctx context.Context, drv Driver, req Request, b *base) (*result.OperationResult, error) {
	if !b.begin() {
		return nil, appErr.Newf(appErr.RequestDoubleExec, "request %q has already been executed", b.name)
	}
	res, err := drv.Execute(ctx, req)
	if res != nil {
		if res.Name == "" {
			res.Name = b.name
		}
		res.AllowFailure = b.allowFailure
	}
	return res, err
}

// FileRequest is a single filesystem operation.
type FileRequest struct {
	base
	Op      FileOp
	Path    string
	DstPath string
	Content string
}

// NewFileRequest creates a file request.
func NewFileRequest(op FileOp, path, dstPath string) *FileRequest {
	r := &FileRequest{Op: op, Path: path, DstPath: dstPath}
	r.name = "file_" + op.String()
	return r
}

func (r *FileRequest) Run(ctx context.Context, drv Driver) (*result.OperationResult, error) {
	return run(ctx, drv, r, &r.base)
}

func (r *FileRequest) isRequest() {}

// ShellRequest is a local subprocess invocation.
type ShellRequest struct {
	base
	Cmd     []string
	Cwd     string
	Env     map[string]string
	Timeout time.Duration
}

// NewShellRequest creates a shell request.
func NewShellRequest(cmd []string, cwd string) *ShellRequest {
	r := &ShellRequest{Cmd: cmd, Cwd: cwd}
	r.name = "shell"
	if len(cmd) > 0 {
		r.name = "shell_" + cmd[0]
	}
	return r
}

func (r *ShellRequest) Run(ctx context.Context, drv Driver) (*result.OperationResult, error) {
	return run(ctx, drv, r, &r.base)
}

func (r *ShellRequest) isRequest() {}

// DockerOptions holds the optional knobs of a Docker operation.
type DockerOptions struct {
	Volumes        []string
	Workdir        string
	Detach         bool
	Force          bool
	All            bool
	ContextDir     string
	DockerfileText string
	Timeout        time.Duration
}

// DockerRequest is one Docker CLI operation.
type DockerRequest struct {
	base
	Op        DockerOp
	Image     string
	Container string
	Cmd       []string
	Options   DockerOptions
}

// NewDockerRequest creates a docker request.
func NewDockerRequest(op DockerOp, image, container string, cmd []string) *DockerRequest {
	r := &DockerRequest{Op: op, Image: image, Container: container, Cmd: cmd}
	r.name = "docker_" + op.String()
	return r
}

func (r *DockerRequest) Run(ctx context.Context, drv Driver) (*result.OperationResult, error) {
	return run(ctx, drv, r, &r.base)
}

func (r *DockerRequest) isRequest() {}

// DockerFileRequest is a host<->container file copy. ToContainer records the
// direction: true when the destination lives inside the container.
type DockerFileRequest struct {
	base
	SrcPath     string
	DstPath     string
	Container   string
	ToContainer bool
}

// NewDockerFileRequest creates a docker cp request.
func NewDockerFileRequest(src, dst, container string, toContainer bool) *DockerFileRequest {
	r := &DockerFileRequest{SrcPath: src, DstPath: dst, Container: container, ToContainer: toContainer}
	r.name = "docker_cp"
	return r
}

func (r *DockerFileRequest) Run(ctx context.Context, drv Driver) (*result.OperationResult, error) {
	return run(ctx, drv, r, &r.base)
}

func (r *DockerFileRequest) isRequest() {}

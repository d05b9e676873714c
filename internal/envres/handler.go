// Package envres holds the polymorphic boundary between logical file/run
// operations and the environment that satisfies them. The local variant emits
// plain requests; the Docker variant decides per path pair whether an
// operation must cross the host<->container boundary.
package envres

import (
	"os"

	"cpenv/internal/workflow/request"
	appErr "cpenv/pkg/errors"
)

// FileHandler constructs file operation requests. Handlers never execute
// anything; they are pure request constructors.
type FileHandler interface {
	Copy(src, dst string) (request.Request, error)
	Move(src, dst string) (request.Request, error)
	CopyTree(src, dst string) (request.Request, error)
	Remove(path string) (request.Request, error)
	RmTree(dir string) (request.Request, error)
	Mkdir(path string) (request.Request, error)
	Touch(path string) (request.Request, error)
}

// RunHandler constructs command execution requests.
type RunHandler interface {
	Run(cmd []string, cwd string) (request.Request, error)
}

// isDirFunc lets tests classify paths without touching the filesystem.
type isDirFunc func(path string) bool

func osIsDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

func requirePath(name, value string) error {
	if value == "" {
		return appErr.ValidationError(name, "required")
	}
	return nil
}

// LocalFileHandler emits plain file requests; it never classifies paths.
type LocalFileHandler struct{}

// NewLocalFileHandler creates the local variant.
func NewLocalFileHandler() *LocalFileHandler { return &LocalFileHandler{} }

func (h *LocalFileHandler) Copy(src, dst string) (request.Request, error) {
	if err := requirePath("src", src); err != nil {
		return nil, err
	}
	if err := requirePath("dst", dst); err != nil {
		return nil, err
	}
	if osIsDir(src) {
		return h.CopyTree(src, dst)
	}
	return request.NewFileRequest(request.FileCopy, src, dst), nil
}

func (h *LocalFileHandler) Move(src, dst string) (request.Request, error) {
	if err := requirePath("src", src); err != nil {
		return nil, err
	}
	if err := requirePath("dst", dst); err != nil {
		return nil, err
	}
	return request.NewFileRequest(request.FileMove, src, dst), nil
}

func (h *LocalFileHandler) CopyTree(src, dst string) (request.Request, error) {
	return request.NewFileRequest(request.FileCopyTree, src, dst), nil
}

func (h *LocalFileHandler) Remove(path string) (request.Request, error) {
	if err := requirePath("path", path); err != nil {
		return nil, err
	}
	return request.NewFileRequest(request.FileRemove, path, ""), nil
}

func (h *LocalFileHandler) RmTree(dir string) (request.Request, error) {
	if err := requirePath("dir", dir); err != nil {
		return nil, err
	}
	return request.NewFileRequest(request.FileRmTree, dir, ""), nil
}

func (h *LocalFileHandler) Mkdir(path string) (request.Request, error) {
	if err := requirePath("path", path); err != nil {
		return nil, err
	}
	return request.NewFileRequest(request.FileMkdir, path, ""), nil
}

func (h *LocalFileHandler) Touch(path string) (request.Request, error) {
	if err := requirePath("path", path); err != nil {
		return nil, err
	}
	return request.NewFileRequest(request.FileTouch, path, ""), nil
}

// DockerFileHandler classifies each path pair against the workspace root.
// When source and destination classify the same way the operation stays a
// plain file request executed on the mapped filesystem; when they differ it
// becomes a docker cp crossing the boundary.
type DockerFileHandler struct {
	checker       *PathChecker
	containerName string
	isDir         isDirFunc
}

// NewDockerFileHandler creates the Docker variant. The container name comes
// from the deterministic naming function over (language, Dockerfile content).
func NewDockerFileHandler(checker *PathChecker, containerName string) (*DockerFileHandler, error) {
	if checker == nil {
		return nil, appErr.New(appErr.InvalidParams).WithMessage("path checker is required")
	}
	if containerName == "" {
		return nil, appErr.ValidationError("container_name", "required")
	}
	return &DockerFileHandler{checker: checker, containerName: containerName, isDir: osIsDir}, nil
}

func (h *DockerFileHandler) transfer(src, dst string, op request.FileOp) (request.Request, error) {
	if err := requirePath("src", src); err != nil {
		return nil, err
	}
	if err := requirePath("dst", dst); err != nil {
		return nil, err
	}
	srcInside := h.checker.Inside(src)
	dstInside := h.checker.Inside(dst)
	if srcInside == dstInside {
		return request.NewFileRequest(op, src, dst), nil
	}
	toContainer := dstInside && !srcInside
	return request.NewDockerFileRequest(src, dst, h.containerName, toContainer), nil
}

func (h *DockerFileHandler) Copy(src, dst string) (request.Request, error) {
	if err := requirePath("src", src); err != nil {
		return nil, err
	}
	// Directory and file copies are different primitives and must not be
	// conflated.
	if h.isDir(src) {
		return h.CopyTree(src, dst)
	}
	return h.transfer(src, dst, request.FileCopy)
}

func (h *DockerFileHandler) Move(src, dst string) (request.Request, error) {
	return h.transfer(src, dst, request.FileMove)
}

func (h *DockerFileHandler) CopyTree(src, dst string) (request.Request, error) {
	return h.transfer(src, dst, request.FileCopyTree)
}

func (h *DockerFileHandler) Remove(path string) (request.Request, error) {
	if err := requirePath("path", path); err != nil {
		return nil, err
	}
	return request.NewFileRequest(request.FileRemove, path, ""), nil
}

func (h *DockerFileHandler) RmTree(dir string) (request.Request, error) {
	if err := requirePath("dir", dir); err != nil {
		return nil, err
	}
	return request.NewFileRequest(request.FileRmTree, dir, ""), nil
}

func (h *DockerFileHandler) Mkdir(path string) (request.Request, error) {
	if err := requirePath("path", path); err != nil {
		return nil, err
	}
	return request.NewFileRequest(request.FileMkdir, path, ""), nil
}

func (h *DockerFileHandler) Touch(path string) (request.Request, error) {
	if err := requirePath("path", path); err != nil {
		return nil, err
	}
	return request.NewFileRequest(request.FileTouch, path, ""), nil
}

// LocalRunHandler wraps command arrays in shell requests.
type LocalRunHandler struct{}

// NewLocalRunHandler creates the local run variant.
func NewLocalRunHandler() *LocalRunHandler { return &LocalRunHandler{} }

func (h *LocalRunHandler) Run(cmd []string, cwd string) (request.Request, error) {
	if len(cmd) == 0 {
		return nil, appErr.ValidationError("cmd", "required")
	}
	return request.NewShellRequest(cmd, cwd), nil
}

// DockerRunHandler wraps command arrays in docker exec requests addressed at
// the deterministically named container.
type DockerRunHandler struct {
	containerName string
}

// NewDockerRunHandler creates the Docker run variant.
func NewDockerRunHandler(containerName string) (*DockerRunHandler, error) {
	if containerName == "" {
		return nil, appErr.ValidationError("container_name", "required")
	}
	return &DockerRunHandler{containerName: containerName}, nil
}

func (h *DockerRunHandler) Run(cmd []string, cwd string) (request.Request, error) {
	if len(cmd) == 0 {
		return nil, appErr.ValidationError("cmd", "required")
	}
	req := request.NewDockerRequest(request.DockerExec, "", h.containerName, cmd)
	req.Options.Workdir = cwd
	return req, nil
}

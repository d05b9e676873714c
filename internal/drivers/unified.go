package drivers

import (
	"context"
	"fmt"

	"cpenv/internal/docker"
	"cpenv/internal/workflow/request"
	"cpenv/internal/workflow/result"
	appErr "cpenv/pkg/errors"
)

// UnifiedDriver dispatches each request variant to its backend with an
// exhaustive type switch. An unhandled variant is a wiring bug surfaced as an
// error, never a silent miss.
type UnifiedDriver struct {
	files  *FileDriver
	shell  *ShellDriver
	docker docker.Driver
}

// NewUnifiedDriver wires the backends. The docker driver may be nil for
// local-only execution; a docker request then fails with a wiring error.
func NewUnifiedDriver(files *FileDriver, shell *ShellDriver, dockerDriver docker.Driver) *UnifiedDriver {
	return &UnifiedDriver{files: files, shell: shell, docker: dockerDriver}
}

// Execute satisfies request.Driver.
func (d *UnifiedDriver) Execute(ctx context.Context, req request.Request) (*result.OperationResult, error) {
	switch r := req.(type) {
	case *request.FileRequest:
		return d.files.ExecuteFile(ctx, r), nil
	case *request.ShellRequest:
		return d.shell.ExecuteShell(ctx, r), nil
	case *request.DockerRequest:
		if d.docker == nil {
			return nil, appErr.MissingDriverError("docker_driver")
		}
		return d.executeDocker(ctx, r), nil
	case *request.DockerFileRequest:
		if d.docker == nil {
			return nil, appErr.MissingDriverError("docker_driver")
		}
		return d.docker.Cp(ctx, r.SrcPath, r.DstPath, r.Container, r.ToContainer), nil
	default:
		return nil, appErr.Newf(appErr.RequestInvalid, "unhandled request variant %T", req)
	}
}

func (d *UnifiedDriver) executeDocker(ctx context.Context, r *request.DockerRequest) *result.OperationResult {
	switch r.Op {
	case request.DockerRun:
		return d.docker.RunContainer(ctx, r.Image, r.Container, r.Options)
	case request.DockerStop:
		return d.docker.StopContainer(ctx, r.Container)
	case request.DockerRemove:
		return d.docker.RemoveContainer(ctx, r.Container, r.Options.Force)
	case request.DockerBuild:
		return d.docker.BuildImage(ctx, r.Image, r.Options)
	case request.DockerExec:
		return d.docker.ExecInContainer(ctx, r.Container, r.Cmd, r.Options.Workdir)
	case request.DockerPs:
		return d.docker.Ps(ctx, r.Options.All)
	case request.DockerLogs:
		return d.docker.Logs(ctx, r.Container)
	case request.DockerInspect:
		return d.docker.Inspect(ctx, r.Container)
	default:
		return result.Fail(r.Name(), fmt.Sprintf("unhandled docker operation %v", r.Op))
	}
}

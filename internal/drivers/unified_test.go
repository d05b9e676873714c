package drivers

import (
	"context"
	"testing"

	"cpenv/internal/docker"
	"cpenv/internal/workflow/request"
	"cpenv/internal/workflow/result"
	appErr "cpenv/pkg/errors"
)

// callRecordingDriver records which docker method ran.
type callRecordingDriver struct {
	calls []string
}

func (d *callRecordingDriver) note(call string) *result.OperationResult {
	d.calls = append(d.calls, call)
	return result.Ok(call, "")
}

func (d *callRecordingDriver) RunContainer(ctx context.Context, image, name string, opts request.DockerOptions) *result.OperationResult {
	return d.note("run")
}

func (d *callRecordingDriver) StopContainer(ctx context.Context, name string) *result.OperationResult {
	return d.note("stop")
}

func (d *callRecordingDriver) RemoveContainer(ctx context.Context, name string, force bool) *result.OperationResult {
	return d.note("rm")
}

func (d *callRecordingDriver) ExecInContainer(ctx context.Context, name string, cmd []string, workdir string) *result.OperationResult {
	return d.note("exec")
}

func (d *callRecordingDriver) BuildImage(ctx context.Context, tag string, opts request.DockerOptions) *result.OperationResult {
	return d.note("build")
}

func (d *callRecordingDriver) ImageRm(ctx context.Context, image string) *result.OperationResult {
	return d.note("rmi")
}

func (d *callRecordingDriver) Ps(ctx context.Context, all bool) *result.OperationResult {
	return d.note("ps")
}

func (d *callRecordingDriver) Logs(ctx context.Context, name string) *result.OperationResult {
	return d.note("logs")
}

func (d *callRecordingDriver) Inspect(ctx context.Context, target string) *result.OperationResult {
	return d.note("inspect")
}

func (d *callRecordingDriver) Cp(ctx context.Context, src, dst, container string, toContainer bool) *result.OperationResult {
	return d.note("cp")
}

var _ docker.Driver = (*callRecordingDriver)(nil)

func newUnified(dockerDrv docker.Driver) *UnifiedDriver {
	return NewUnifiedDriver(NewFileDriver(), NewShellDriver(0), dockerDrv)
}

func TestUnifiedDriver_DispatchesShell(t *testing.T) {
	d := newUnified(nil)
	res, err := d.Execute(context.Background(), request.NewShellRequest([]string{"echo", "ok"}, ""))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if !res.Success {
		t.Fatalf("shell failed: %s", res.ErrorOutput())
	}
}

func TestUnifiedDriver_DispatchesDockerOps(t *testing.T) {
	tests := []struct {
		op   request.DockerOp
		want string
	}{
		{request.DockerRun, "run"},
		{request.DockerStop, "stop"},
		{request.DockerRemove, "rm"},
		{request.DockerBuild, "build"},
		{request.DockerExec, "exec"},
		{request.DockerPs, "ps"},
		{request.DockerLogs, "logs"},
		{request.DockerInspect, "inspect"},
	}
	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			rec := &callRecordingDriver{}
			d := newUnified(rec)
			_, err := d.Execute(context.Background(),
				request.NewDockerRequest(tt.op, "img", "box", []string{"true"}))
			if err != nil {
				t.Fatalf("Execute: %v", err)
			}
			if len(rec.calls) != 1 || rec.calls[0] != tt.want {
				t.Fatalf("calls = %v, want [%s]", rec.calls, tt.want)
			}
		})
	}
}

func TestUnifiedDriver_DispatchesDockerCp(t *testing.T) {
	rec := &callRecordingDriver{}
	d := newUnified(rec)
	_, err := d.Execute(context.Background(),
		request.NewDockerFileRequest("/host/x", "/ws/x", "box", true))
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if len(rec.calls) != 1 || rec.calls[0] != "cp" {
		t.Fatalf("calls = %v, want [cp]", rec.calls)
	}
}

func TestUnifiedDriver_DockerWithoutBackend(t *testing.T) {
	d := newUnified(nil)
	_, err := d.Execute(context.Background(),
		request.NewDockerRequest(request.DockerPs, "", "", nil))
	if !appErr.Is(err, appErr.DriverNotRegistered) {
		t.Fatalf("expected DriverNotRegistered, got %v", err)
	}

	_, err = d.Execute(context.Background(),
		request.NewDockerFileRequest("/a", "/b", "box", false))
	if !appErr.Is(err, appErr.DriverNotRegistered) {
		t.Fatalf("expected DriverNotRegistered for cp, got %v", err)
	}
}

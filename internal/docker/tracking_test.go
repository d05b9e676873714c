package docker

import (
	"context"
	"errors"
	"strings"
	"testing"

	"cpenv/internal/repository"
	"cpenv/internal/workflow/request"
	"cpenv/internal/workflow/result"
)

// scriptedDriver returns canned results per operation.
type scriptedDriver struct {
	run     *result.OperationResult
	stop    *result.OperationResult
	remove  *result.OperationResult
	build   *result.OperationResult
	imageRm *result.OperationResult
}

func (d *scriptedDriver) RunContainer(ctx context.Context, image, name string, opts request.DockerOptions) *result.OperationResult {
	return d.run
}

func (d *scriptedDriver) StopContainer(ctx context.Context, name string) *result.OperationResult {
	return d.stop
}

func (d *scriptedDriver) RemoveContainer(ctx context.Context, name string, force bool) *result.OperationResult {
	return d.remove
}

func (d *scriptedDriver) ExecInContainer(ctx context.Context, name string, cmd []string, workdir string) *result.OperationResult {
	return result.Ok("exec", "")
}

func (d *scriptedDriver) BuildImage(ctx context.Context, tag string, opts request.DockerOptions) *result.OperationResult {
	return d.build
}

func (d *scriptedDriver) ImageRm(ctx context.Context, image string) *result.OperationResult {
	return d.imageRm
}

func (d *scriptedDriver) Ps(ctx context.Context, all bool) *result.OperationResult {
	return result.Ok("ps", "")
}

func (d *scriptedDriver) Logs(ctx context.Context, name string) *result.OperationResult {
	return result.Ok("logs", "")
}

func (d *scriptedDriver) Inspect(ctx context.Context, target string) *result.OperationResult {
	return result.Ok("inspect", "[]")
}

func (d *scriptedDriver) Cp(ctx context.Context, src, dst, container string, toContainer bool) *result.OperationResult {
	return result.Ok("cp", "")
}

// failingContainerRepo errors on every call, proving tracking failures are
// swallowed.
type failingContainerRepo struct{}

func (failingContainerRepo) UpdateContainerStatus(ctx context.Context, name, status, timestampField string) error {
	return errors.New("db down")
}

func (failingContainerRepo) AddLifecycleEvent(ctx context.Context, name, event string, details map[string]interface{}) error {
	return errors.New("db down")
}

func (failingContainerRepo) UpdateContainerID(ctx context.Context, name, containerID string) error {
	return errors.New("db down")
}

func (failingContainerRepo) MarkContainerRemoved(ctx context.Context, name string) error {
	return errors.New("db down")
}

func TestTrackedDriver_RunRecordsLifecycle(t *testing.T) {
	containerID := strings.Repeat("a", 64)
	delegate := &scriptedDriver{run: result.Ok("run", containerID+"\n")}
	containers := repository.NewMemoryContainerRepository()
	tracked := NewTrackedDriver(delegate, containers, repository.NewMemoryImageRepository())

	res := tracked.RunContainer(context.Background(), "cpenv-cpp", "cpenv-cpp-abc", request.DockerOptions{})
	if !res.Success {
		t.Fatal("delegated result must pass through")
	}

	rec, ok := containers.Container("cpenv-cpp-abc")
	if !ok {
		t.Fatal("container record missing")
	}
	if rec.Status != "running" {
		t.Errorf("status = %q, want running", rec.Status)
	}
	if rec.ContainerID != containerID {
		t.Errorf("container ID = %q", rec.ContainerID)
	}
	events := containers.Events()
	if len(events) != 1 || events[0].Event != "started" {
		t.Fatalf("events = %+v, want one started event", events)
	}
}

func TestTrackedDriver_ShortOutputSkipsContainerID(t *testing.T) {
	delegate := &scriptedDriver{run: result.Ok("run", "not-an-id\n")}
	containers := repository.NewMemoryContainerRepository()
	tracked := NewTrackedDriver(delegate, containers, nil)

	tracked.RunContainer(context.Background(), "cpenv-cpp", "cpenv-cpp-abc", request.DockerOptions{})
	rec, _ := containers.Container("cpenv-cpp-abc")
	if rec.ContainerID != "" {
		t.Fatalf("container ID = %q, want empty for non-ID output", rec.ContainerID)
	}
}

func TestTrackedDriver_FailedOperationNotTracked(t *testing.T) {
	delegate := &scriptedDriver{stop: result.Fail("stop", "no such container")}
	containers := repository.NewMemoryContainerRepository()
	tracked := NewTrackedDriver(delegate, containers, nil)

	res := tracked.StopContainer(context.Background(), "cpenv-cpp-abc")
	if res.Success {
		t.Fatal("failure must pass through")
	}
	if len(containers.Events()) != 0 {
		t.Fatal("failed operations must not be tracked")
	}
}

func TestTrackedDriver_RepositoryErrorsSwallowed(t *testing.T) {
	delegate := &scriptedDriver{
		run:    result.Ok("run", ""),
		stop:   result.Ok("stop", ""),
		remove: result.Ok("rm", ""),
	}
	tracked := NewTrackedDriver(delegate, failingContainerRepo{}, nil)
	ctx := context.Background()

	if res := tracked.RunContainer(ctx, "img", "box", request.DockerOptions{}); !res.Success {
		t.Error("run result changed by tracking failure")
	}
	if res := tracked.StopContainer(ctx, "box"); !res.Success {
		t.Error("stop result changed by tracking failure")
	}
	if res := tracked.RemoveContainer(ctx, "box", true); !res.Success {
		t.Error("remove result changed by tracking failure")
	}
}

func TestTrackedDriver_BuildRecordsResult(t *testing.T) {
	delegate := &scriptedDriver{
		build: result.Ok("build", "Step 1/3 : FROM gcc:13\nSuccessfully built f00dcafe1234\n"),
	}
	images := repository.NewMemoryImageRepository()
	tracked := NewTrackedDriver(delegate, nil, images)

	opts := request.DockerOptions{DockerfileText: "FROM gcc:13\n"}
	res := tracked.BuildImage(context.Background(), "cpenv-cpp", opts)
	if !res.Success {
		t.Fatal("build result must pass through")
	}

	img, ok := images.Image("cpenv-cpp", "latest")
	if !ok {
		t.Fatal("image record missing")
	}
	if img.BuildStatus != "success" {
		t.Errorf("status = %q, want success", img.BuildStatus)
	}
	if img.ImageID != "f00dcafe1234" {
		t.Errorf("image ID = %q", img.ImageID)
	}
	if img.DockerfileHash != HashContent("FROM gcc:13\n") {
		t.Errorf("hash = %q", img.DockerfileHash)
	}
}

func TestTrackedDriver_FailedBuildRecorded(t *testing.T) {
	delegate := &scriptedDriver{build: result.Fail("build", "syntax error")}
	images := repository.NewMemoryImageRepository()
	tracked := NewTrackedDriver(delegate, nil, images)

	tracked.BuildImage(context.Background(), "cpenv-cpp", request.DockerOptions{})
	img, ok := images.Image("cpenv-cpp", "latest")
	if !ok {
		t.Fatal("image record missing")
	}
	if img.BuildStatus != "failed" {
		t.Errorf("status = %q, want failed", img.BuildStatus)
	}
	if img.ImageID != "" {
		t.Errorf("image ID = %q, want empty", img.ImageID)
	}
}

func TestTrackedDriver_ImageRmSplitsRef(t *testing.T) {
	delegate := &scriptedDriver{imageRm: result.Ok("rmi", "")}
	images := repository.NewMemoryImageRepository()
	if err := images.CreateOrUpdateImage(context.Background(), "cpenv-cpp", "v2", "", "", "success"); err != nil {
		t.Fatalf("seed image: %v", err)
	}
	tracked := NewTrackedDriver(delegate, nil, images)

	tracked.ImageRm(context.Background(), "cpenv-cpp:v2")
	if _, ok := images.Image("cpenv-cpp", "v2"); ok {
		t.Fatal("image record should be deleted")
	}
}

func TestParseBuiltImageID(t *testing.T) {
	tests := []struct {
		output string
		want   string
	}{
		{"Successfully built abc123def456\n", "abc123def456"},
		{"Step 1/2\nSuccessfully built abc123def456\nSuccessfully tagged x\n", "abc123def456"},
		{"no marker here\n", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := parseBuiltImageID(tt.output); got != tt.want {
			t.Errorf("parseBuiltImageID(%q) = %q, want %q", tt.output, got, tt.want)
		}
	}
}

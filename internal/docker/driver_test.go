package docker

import (
	"context"
	"strings"
	"testing"
	"time"

	"cpenv/internal/workflow/request"
	"cpenv/internal/workflow/result"
)

type capturingRunner struct {
	argv    []string
	timeout time.Duration
}

func (r *capturingRunner) RunCommand(ctx context.Context, argv []string, cwd string, env map[string]string, timeout time.Duration) *result.OperationResult {
	r.argv = argv
	r.timeout = timeout
	return result.Ok("shell", "")
}

func TestCLIDriver_RunContainerArgs(t *testing.T) {
	runner := &capturingRunner{}
	drv := NewCLIDriver(runner, time.Minute, 0)

	drv.RunContainer(context.Background(), "cpenv-cpp", "cpenv-cpp-abc", request.DockerOptions{
		Detach:  true,
		Volumes: []string{"/ws:/ws"},
		Workdir: "/ws",
	})

	got := strings.Join(runner.argv, " ")
	want := "docker run -d --name cpenv-cpp-abc -v /ws:/ws -w /ws cpenv-cpp"
	if got != want {
		t.Fatalf("argv = %q, want %q", got, want)
	}
	if runner.timeout != time.Minute {
		t.Fatalf("timeout = %v, want 1m", runner.timeout)
	}
}

func TestCLIDriver_RemoveContainerForce(t *testing.T) {
	runner := &capturingRunner{}
	drv := NewCLIDriver(runner, 0, 0)

	drv.RemoveContainer(context.Background(), "box", true)
	if got := strings.Join(runner.argv, " "); got != "docker rm -f box" {
		t.Fatalf("argv = %q", got)
	}

	drv.RemoveContainer(context.Background(), "box", false)
	if got := strings.Join(runner.argv, " "); got != "docker rm box" {
		t.Fatalf("argv = %q", got)
	}
}

func TestCLIDriver_ExecWorkdir(t *testing.T) {
	runner := &capturingRunner{}
	drv := NewCLIDriver(runner, 0, 0)

	drv.ExecInContainer(context.Background(), "box", []string{"g++", "main.cpp"}, "/ws/a")
	if got := strings.Join(runner.argv, " "); got != "docker exec -w /ws/a box g++ main.cpp" {
		t.Fatalf("argv = %q", got)
	}
}

func TestCLIDriver_BuildUsesBuildTimeout(t *testing.T) {
	runner := &capturingRunner{}
	drv := NewCLIDriver(runner, time.Minute, 7*time.Minute)

	drv.BuildImage(context.Background(), "cpenv-cpp", request.DockerOptions{ContextDir: "/ctx"})
	if got := strings.Join(runner.argv, " "); got != "docker build -t cpenv-cpp /ctx" {
		t.Fatalf("argv = %q", got)
	}
	if runner.timeout != 7*time.Minute {
		t.Fatalf("timeout = %v, want build timeout", runner.timeout)
	}
}

func TestCLIDriver_BuildFromDockerfileText(t *testing.T) {
	runner := &capturingRunner{}
	drv := NewCLIDriver(runner, 0, 0)

	res := drv.BuildImage(context.Background(), "cpenv-cpp", request.DockerOptions{
		DockerfileText: "FROM gcc:13\n",
	})
	if !res.Success {
		t.Fatalf("build failed: %s", res.ErrorOutput())
	}
	joined := strings.Join(runner.argv, " ")
	if !strings.Contains(joined, "-f ") {
		t.Fatalf("argv %q missing -f for temp dockerfile", joined)
	}
	if !strings.HasSuffix(joined, " .") {
		t.Fatalf("argv %q should default context dir to .", joined)
	}
}

func TestCLIDriver_Cp(t *testing.T) {
	runner := &capturingRunner{}
	drv := NewCLIDriver(runner, 0, 0)

	drv.Cp(context.Background(), "/host/x", "/ws/x", "box", true)
	if got := strings.Join(runner.argv, " "); got != "docker cp /host/x box:/ws/x" {
		t.Fatalf("to-container argv = %q", got)
	}

	drv.Cp(context.Background(), "/ws/x", "/host/x", "box", false)
	if got := strings.Join(runner.argv, " "); got != "docker cp box:/ws/x /host/x" {
		t.Fatalf("from-container argv = %q", got)
	}
}

func TestCLIDriver_PsAll(t *testing.T) {
	runner := &capturingRunner{}
	drv := NewCLIDriver(runner, 0, 0)

	drv.Ps(context.Background(), true)
	if got := strings.Join(runner.argv, " "); got != "docker ps --format {{.Names}} -a" {
		t.Fatalf("argv = %q", got)
	}
}

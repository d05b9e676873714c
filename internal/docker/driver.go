package docker

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"cpenv/internal/workflow/request"
	"cpenv/internal/workflow/result"
)

const (
	defaultCommandTimeout = 5 * time.Minute
	defaultBuildTimeout   = 10 * time.Minute
)

// CommandRunner runs an argv; the local shell driver satisfies it.
type CommandRunner interface {
	RunCommand(ctx context.Context, argv []string, cwd string, env map[string]string, timeout time.Duration) *result.OperationResult
}

// Driver is the Docker operation surface. The CLI driver implements it; the
// tracking decorator wraps it.
type Driver interface {
	RunContainer(ctx context.Context, image, name string, opts request.DockerOptions) *result.OperationResult
	StopContainer(ctx context.Context, name string) *result.OperationResult
	RemoveContainer(ctx context.Context, name string, force bool) *result.OperationResult
	ExecInContainer(ctx context.Context, name string, cmd []string, workdir string) *result.OperationResult
	BuildImage(ctx context.Context, tag string, opts request.DockerOptions) *result.OperationResult
	ImageRm(ctx context.Context, image string) *result.OperationResult
	Ps(ctx context.Context, all bool) *result.OperationResult
	Logs(ctx context.Context, name string) *result.OperationResult
	Inspect(ctx context.Context, target string) *result.OperationResult
	Cp(ctx context.Context, src, dst, container string, toContainer bool) *result.OperationResult
}

// CLIDriver drives Docker through its command-line client.
type CLIDriver struct {
	runner         CommandRunner
	commandTimeout time.Duration
	buildTimeout   time.Duration
}

// NewCLIDriver creates a CLI driver over a command runner.
func NewCLIDriver(runner CommandRunner, commandTimeout, buildTimeout time.Duration) *CLIDriver {
	if commandTimeout <= 0 {
		commandTimeout = defaultCommandTimeout
	}
	if buildTimeout <= 0 {
		buildTimeout = defaultBuildTimeout
	}
	return &CLIDriver{runner: runner, commandTimeout: commandTimeout, buildTimeout: buildTimeout}
}

func (d *CLIDriver) run(ctx context.Context, timeout time.Duration, argv ...string) *result.OperationResult {
	return d.runner.RunCommand(ctx, argv, "", nil, timeout)
}

func (d *CLIDriver) RunContainer(ctx context.Context, image, name string, opts request.DockerOptions) *result.OperationResult {
	argv := []string{"docker", "run"}
	if opts.Detach {
		argv = append(argv, "-d")
	}
	if name != "" {
		argv = append(argv, "--name", name)
	}
	for _, vol := range opts.Volumes {
		argv = append(argv, "-v", vol)
	}
	if opts.Workdir != "" {
		argv = append(argv, "-w", opts.Workdir)
	}
	argv = append(argv, image)
	return d.run(ctx, d.commandTimeout, argv...)
}

func (d *CLIDriver) StopContainer(ctx context.Context, name string) *result.OperationResult {
	return d.run(ctx, d.commandTimeout, "docker", "stop", name)
}

func (d *CLIDriver) RemoveContainer(ctx context.Context, name string, force bool) *result.OperationResult {
	argv := []string{"docker", "rm"}
	if force {
		argv = append(argv, "-f")
	}
	argv = append(argv, name)
	return d.run(ctx, d.commandTimeout, argv...)
}

func (d *CLIDriver) ExecInContainer(ctx context.Context, name string, cmd []string, workdir string) *result.OperationResult {
	argv := []string{"docker", "exec"}
	if workdir != "" {
		argv = append(argv, "-w", workdir)
	}
	argv = append(argv, name)
	argv = append(argv, cmd...)
	return d.run(ctx, d.commandTimeout, argv...)
}

// BuildImage builds an image. When DockerfileText is set, the text is written
// to a temp file and built from there; otherwise ContextDir must hold a
// Dockerfile.
func (d *CLIDriver) BuildImage(ctx context.Context, tag string, opts request.DockerOptions) *result.OperationResult {
	contextDir := opts.ContextDir
	if contextDir == "" {
		contextDir = "."
	}
	argv := []string{"docker", "build"}
	if tag != "" {
		argv = append(argv, "-t", tag)
	}
	if opts.DockerfileText != "" {
		tmpDir, err := os.MkdirTemp("", "cpenv-build-")
		if err != nil {
			return result.Fail("docker_build", "create temp build dir failed: "+err.Error())
		}
		defer os.RemoveAll(tmpDir)
		dockerfilePath := filepath.Join(tmpDir, "Dockerfile")
		if err := os.WriteFile(dockerfilePath, []byte(opts.DockerfileText), 0o644); err != nil {
			return result.Fail("docker_build", "write temp dockerfile failed: "+err.Error())
		}
		argv = append(argv, "-f", dockerfilePath)
	}
	argv = append(argv, contextDir)
	return d.run(ctx, d.buildTimeout, argv...)
}

func (d *CLIDriver) ImageRm(ctx context.Context, image string) *result.OperationResult {
	return d.run(ctx, d.commandTimeout, "docker", "rmi", image)
}

func (d *CLIDriver) Ps(ctx context.Context, all bool) *result.OperationResult {
	argv := []string{"docker", "ps", "--format", "{{.Names}}"}
	if all {
		argv = append(argv, "-a")
	}
	return d.run(ctx, d.commandTimeout, argv...)
}

func (d *CLIDriver) Logs(ctx context.Context, name string) *result.OperationResult {
	return d.run(ctx, d.commandTimeout, "docker", "logs", name)
}

func (d *CLIDriver) Inspect(ctx context.Context, target string) *result.OperationResult {
	return d.run(ctx, d.commandTimeout, "docker", "inspect", target)
}

func (d *CLIDriver) Cp(ctx context.Context, src, dst, container string, toContainer bool) *result.OperationResult {
	if toContainer {
		return d.run(ctx, d.commandTimeout, "docker", "cp", src, container+":"+dst)
	}
	return d.run(ctx, d.commandTimeout, "docker", "cp", container+":"+src, dst)
}

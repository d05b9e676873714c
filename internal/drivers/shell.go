package drivers

import (
	"bytes"
	"context"
	"errors"
	"os"
	"os/exec"
	"time"

	"cpenv/internal/workflow/request"
	"cpenv/internal/workflow/result"
)

// ShellDriver runs local subprocesses with a timeout.
type ShellDriver struct {
	defaultTimeout time.Duration
}

// NewShellDriver creates a shell driver with the given default timeout.
func NewShellDriver(defaultTimeout time.Duration) *ShellDriver {
	if defaultTimeout <= 0 {
		defaultTimeout = 5 * time.Minute
	}
	return &ShellDriver{defaultTimeout: defaultTimeout}
}

// ExecuteShell runs one shell request and captures its outcome.
func (d *ShellDriver) ExecuteShell(ctx context.Context, req *request.ShellRequest) *result.OperationResult {
	timeout := req.Timeout
	if timeout <= 0 {
		timeout = d.defaultTimeout
	}
	res := d.RunCommand(ctx, req.Cmd, req.Cwd, req.Env, timeout)
	res.Name = req.Name()
	return res
}

// RunCommand runs an argv with cwd, extra env, and timeout; it backs both
// shell requests and the docker CLI driver.
func (d *ShellDriver) RunCommand(ctx context.Context, argv []string, cwd string, env map[string]string, timeout time.Duration) *result.OperationResult {
	if len(argv) == 0 {
		return result.Fail("shell", "empty command")
	}
	if timeout <= 0 {
		timeout = d.defaultTimeout
	}

	runCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(runCtx, argv[0], argv[1:]...)
	cmd.Dir = cwd
	if len(env) > 0 {
		cmd.Env = os.Environ()
		for k, v := range env {
			cmd.Env = append(cmd.Env, k+"="+v)
		}
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()
	res := &result.OperationResult{
		Name:       "shell_" + argv[0],
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		DurationMs: time.Since(start).Milliseconds(),
	}

	if err == nil {
		res.Success = true
		return res
	}

	if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		res.ErrorMessage = "command timed out after " + timeout.String()
		res.ExitCode = -1
		return res
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		res.ExitCode = exitErr.ExitCode()
	} else {
		res.ExitCode = -1
	}
	res.ErrorMessage = err.Error()
	return res
}

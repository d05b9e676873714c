package request_test

import (
	"context"
	"testing"

	"cpenv/internal/workflow/request"
	"cpenv/internal/workflow/result"
	appErr "cpenv/pkg/errors"
)

type recordingDriver struct {
	executed []request.Request
}

func (d *recordingDriver) Execute(ctx context.Context, req request.Request) (*result.OperationResult, error) {
	d.executed = append(d.executed, req)
	return &result.OperationResult{Success: true}, nil
}

func TestRequestNames(t *testing.T) {
	tests := []struct {
		name string
		req  request.Request
		want string
	}{
		{"file", request.NewFileRequest(request.FileCopy, "/a", "/b"), "file_copy"},
		{"shell", request.NewShellRequest([]string{"make", "all"}, "/src"), "shell_make"},
		{"shell empty", request.NewShellRequest(nil, ""), "shell"},
		{"docker", request.NewDockerRequest(request.DockerBuild, "img", "", nil), "docker_build"},
		{"docker cp", request.NewDockerFileRequest("/a", "/b", "box", true), "docker_cp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.req.Name(); got != tt.want {
				t.Errorf("Name() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestRun_ExecutesOnce(t *testing.T) {
	drv := &recordingDriver{}
	req := request.NewShellRequest([]string{"true"}, "")

	if _, err := req.Run(context.Background(), drv); err != nil {
		t.Fatalf("first Run: %v", err)
	}

	_, err := req.Run(context.Background(), drv)
	if err == nil {
		t.Fatal("second Run should fail")
	}
	if !appErr.Is(err, appErr.RequestDoubleExec) {
		t.Fatalf("expected RequestDoubleExec, got %v", err)
	}
	if len(drv.executed) != 1 {
		t.Fatalf("driver invoked %d times, want 1", len(drv.executed))
	}
}

func TestRun_FillsResultMetadata(t *testing.T) {
	drv := &recordingDriver{}
	req := request.NewFileRequest(request.FileMkdir, "/tmp/x", "")
	req.SetName("custom_mkdir")
	req.SetAllowFailure(true)

	res, err := req.Run(context.Background(), drv)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Name != "custom_mkdir" {
		t.Errorf("result name = %q, want %q", res.Name, "custom_mkdir")
	}
	if !res.AllowFailure {
		t.Error("AllowFailure not propagated to result")
	}
}

func TestOpStrings(t *testing.T) {
	if got := request.FileCopyTree.String(); got != "copytree" {
		t.Errorf("FileCopyTree.String() = %q", got)
	}
	if got := request.DockerInspect.String(); got != "inspect" {
		t.Errorf("DockerInspect.String() = %q", got)
	}
	if got := request.FileOp(99).String(); got != "unknown" {
		t.Errorf("FileOp(99).String() = %q", got)
	}
}

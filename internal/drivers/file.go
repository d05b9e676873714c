package drivers

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"cpenv/internal/workflow/request"
	"cpenv/internal/workflow/result"
)

// FileDriver performs local filesystem operations.
type FileDriver struct{}

// NewFileDriver creates a file driver.
func NewFileDriver() *FileDriver { return &FileDriver{} }

// ExecuteFile runs one file request. Failures are captured in the result,
// not returned as errors.
func (d *FileDriver) ExecuteFile(_ context.Context, req *request.FileRequest) *result.OperationResult {
	start := time.Now()
	res := &result.OperationResult{Name: req.Name(), Success: true}

	var err error
	switch req.Op {
	case request.FileRead:
		var data []byte
		data, err = os.ReadFile(req.Path)
		res.Stdout = string(data)
	case request.FileWrite:
		err = os.WriteFile(req.Path, []byte(req.Content), 0o644)
	case request.FileCopy:
		err = copyFile(req.Path, req.DstPath)
	case request.FileMove:
		err = os.Rename(req.Path, req.DstPath)
	case request.FileRemove:
		err = os.Remove(req.Path)
	case request.FileMkdir:
		err = os.MkdirAll(req.Path, 0o755)
	case request.FileTouch:
		err = touchFile(req.Path)
	case request.FileCopyTree:
		err = copyTree(req.Path, req.DstPath)
	case request.FileRmTree:
		err = os.RemoveAll(req.Path)
	case request.FileExists:
		if _, statErr := os.Stat(req.Path); statErr != nil {
			res.Stdout = "false"
		} else {
			res.Stdout = "true"
		}
	default:
		err = fmt.Errorf("unhandled file operation %v", req.Op)
	}

	res.DurationMs = time.Since(start).Milliseconds()
	if err != nil {
		res.Success = false
		res.ExitCode = 1
		res.ErrorMessage = err.Error()
	}
	return res
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open %s failed: %w", src, err)
	}
	defer in.Close()

	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return fmt.Errorf("create destination dir failed: %w", err)
	}
	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("create %s failed: %w", dst, err)
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return fmt.Errorf("copy %s to %s failed: %w", src, dst, err)
	}
	return out.Sync()
}

func copyTree(src, dst string) error {
	return filepath.WalkDir(src, func(path string, entry os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		target := filepath.Join(dst, rel)
		if entry.IsDir() {
			return os.MkdirAll(target, 0o755)
		}
		return copyFile(path, target)
	})
}

func touchFile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	return f.Close()
}

package envres

import (
	"path/filepath"
	"strings"

	appErr "cpenv/pkg/errors"
)

// PathChecker classifies paths as inside or outside the container-mapped
// workspace.
type PathChecker struct {
	workspaceRoot string
}

// NewPathChecker creates a checker keyed on the workspace root.
func NewPathChecker(workspaceRoot string) (*PathChecker, error) {
	if workspaceRoot == "" {
		return nil, appErr.New(appErr.WorkspaceUnresolved).WithMessage("workspace root is empty")
	}
	return &PathChecker{workspaceRoot: filepath.Clean(workspaceRoot)}, nil
}

// Inside reports whether the path lives under the workspace root.
func (p *PathChecker) Inside(path string) bool {
	cleaned := filepath.Clean(path)
	if cleaned == p.workspaceRoot {
		return true
	}
	return strings.HasPrefix(cleaned, p.workspaceRoot+string(filepath.Separator))
}

package contest

import (
	"path/filepath"
	"strings"

	"cpenv/internal/docker"
)

// EnvTypeLocal selects direct host execution; every other env type selects
// the Docker driver.
const EnvTypeLocal = "local"

// DockerNames groups the derived image and container names for a context.
type DockerNames struct {
	ImageName       string
	OJImageName     string
	ContainerName   string
	OJContainerName string
}

// ExecutionContext is the resolved user input for one workflow invocation.
type ExecutionContext struct {
	Language    string
	EnvType     string
	ContestName string
	ProblemName string
	CommandType string

	WorkspaceRoot string
	RunID         string

	Resolver *docker.DockerfileResolver
}

// IsLocal reports whether the context targets direct host execution.
func (c *ExecutionContext) IsLocal() bool {
	return c.EnvType == EnvTypeLocal
}

// ProblemDir returns the working directory of the active problem.
func (c *ExecutionContext) ProblemDir() string {
	return filepath.Join(c.WorkspaceRoot, c.ContestName, c.ProblemName)
}

// FormatString substitutes the context placeholders in a templated string.
// Unresolved placeholders stay verbatim so partial information remains
// visible for debugging.
func (c *ExecutionContext) FormatString(s string) string {
	if !strings.Contains(s, "{") {
		return s
	}
	names := c.DockerNames()
	replacer := strings.NewReplacer(
		"{language}", c.Language,
		"{env_type}", c.EnvType,
		"{contest_name}", c.ContestName,
		"{problem_name}", c.ProblemName,
		"{command_type}", c.CommandType,
		"{workspace_root}", c.WorkspaceRoot,
		"{problem_dir}", c.ProblemDir(),
		"{image_name}", names.ImageName,
		"{container_name}", names.ContainerName,
		"{oj_image_name}", names.OJImageName,
		"{oj_container_name}", names.OJContainerName,
	)
	return replacer.Replace(s)
}

// FormatStrings formats every entry of a command array.
func (c *ExecutionContext) FormatStrings(args []string) []string {
	out := make([]string, len(args))
	for i, arg := range args {
		out[i] = c.FormatString(arg)
	}
	return out
}

// DockerNames derives the image and container names for both roles from the
// language and the live Dockerfile content hashes.
func (c *ExecutionContext) DockerNames() DockerNames {
	var hash, ojHash string
	if c.Resolver != nil {
		hash = docker.HashContent(c.Resolver.Dockerfile())
		ojHash = docker.HashContent(c.Resolver.OJDockerfile())
	}
	return DockerNames{
		ImageName:       docker.ImageName(docker.RoleMain, c.Language),
		OJImageName:     docker.ImageName(docker.RoleOJ, c.Language),
		ContainerName:   docker.ContainerName(docker.RoleMain, c.Language, hash),
		OJContainerName: docker.ContainerName(docker.RoleOJ, c.Language, ojHash),
	}
}

package docker

import "sync"

// LoaderFunc reads Dockerfile content from a path.
type LoaderFunc func(path string) (string, error)

type cellState int

const (
	cellUnloaded cellState = iota
	cellLoaded
	cellFailed
)

// cacheCell distinguishes "not yet attempted" from "loaded but empty" and
// from "load failed".
type cacheCell struct {
	state   cellState
	content string
}

// DockerfileResolver lazily loads and caches Dockerfile content so hashes can
// be computed without eager I/O. The loader runs at most once per path until
// InvalidateCache; a loader failure is remembered and treated as no content.
type DockerfileResolver struct {
	dockerfilePath   string
	ojDockerfilePath string
	loader           LoaderFunc

	mu   sync.Mutex
	main cacheCell
	oj   cacheCell
}

// NewDockerfileResolver creates a resolver over the two Dockerfile paths.
// Either path may be empty, meaning that role has no Dockerfile.
func NewDockerfileResolver(dockerfilePath, ojDockerfilePath string, loader LoaderFunc) *DockerfileResolver {
	return &DockerfileResolver{
		dockerfilePath:   dockerfilePath,
		ojDockerfilePath: ojDockerfilePath,
		loader:           loader,
	}
}

// Dockerfile returns the main Dockerfile content, or "" when no path is
// configured, no loader is set, or loading failed.
func (r *DockerfileResolver) Dockerfile() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(&r.main, r.dockerfilePath)
}

// OJDockerfile returns the online-judge tools Dockerfile content.
func (r *DockerfileResolver) OJDockerfile() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.load(&r.oj, r.ojDockerfilePath)
}

// ContentFor returns the Dockerfile content for a role.
func (r *DockerfileResolver) ContentFor(role Role) string {
	if role == RoleOJ {
		return r.OJDockerfile()
	}
	return r.Dockerfile()
}

func (r *DockerfileResolver) load(cell *cacheCell, path string) string {
	if cell.state != cellUnloaded {
		return cell.content
	}
	if path == "" || r.loader == nil {
		cell.state = cellLoaded
		return ""
	}
	content, err := r.loader(path)
	if err != nil {
		// Missing or unreadable Dockerfiles are "no content", not a hard
		// failure; the failed state keeps the loader from being retried.
		cell.state = cellFailed
		return ""
	}
	cell.state = cellLoaded
	cell.content = content
	return content
}

// InvalidateCache drops cached content so the next access reloads.
func (r *DockerfileResolver) InvalidateCache() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.main = cacheCell{}
	r.oj = cacheCell{}
}

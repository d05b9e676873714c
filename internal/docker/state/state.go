package state

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"cpenv/internal/contest"
	"cpenv/internal/docker"
	"cpenv/pkg/utils/logger"
)

// DockerStateInfo is the persisted fingerprint of one (language, env_type)
// environment: the Dockerfile content hashes and the derived names that were
// current the last time the environment was confirmed built.
type DockerStateInfo struct {
	Language         string `json:"language"`
	EnvType          string `json:"env_type"`
	DockerfileHash   string `json:"dockerfile_hash,omitempty"`
	OJDockerfileHash string `json:"oj_dockerfile_hash,omitempty"`
	ImageName        string `json:"image_name"`
	OJImageName      string `json:"oj_image_name"`
	ContainerName    string `json:"container_name"`
	OJContainerName  string `json:"oj_container_name"`
	LastUpdated      string `json:"last_updated"`
}

// StateKey returns the store key for a language and env type.
func StateKey(language, envType string) string {
	return fmt.Sprintf("%s_%s", language, envType)
}

// RebuildDecision carries the four independent rebuild/recreate flags for the
// main and oj artifact pairs.
type RebuildDecision struct {
	ImageRebuild        bool
	OJImageRebuild      bool
	ContainerRecreate   bool
	OJContainerRecreate bool
}

// Any reports whether any rebuild or recreation is required.
func (d RebuildDecision) Any() bool {
	return d.ImageRebuild || d.OJImageRebuild || d.ContainerRecreate || d.OJContainerRecreate
}

// DockerStateManager decides whether images and containers must be rebuilt by
// comparing the current environment fingerprint against a JSON file on disk.
// The file is loaded lazily and cached; a corrupt or unreadable file is an
// empty store. State tracking is an optimization, so persistence failures
// never block execution.
type DockerStateManager struct {
	path string

	mu     sync.Mutex
	loaded bool
	store  map[string]DockerStateInfo
}

// NewDockerStateManager creates a manager persisting to the given file path.
func NewDockerStateManager(path string) *DockerStateManager {
	return &DockerStateManager{path: path}
}

// CurrentState computes the live fingerprint for a context, hashing Dockerfile
// content through the context's resolver. Hashes are empty when no Dockerfile
// exists.
func CurrentState(c *contest.ExecutionContext) DockerStateInfo {
	var hash, ojHash string
	if c.Resolver != nil {
		hash = docker.HashContent(c.Resolver.Dockerfile())
		ojHash = docker.HashContent(c.Resolver.OJDockerfile())
	}
	names := c.DockerNames()
	return DockerStateInfo{
		Language:         c.Language,
		EnvType:          c.EnvType,
		DockerfileHash:   hash,
		OJDockerfileHash: ojHash,
		ImageName:        names.ImageName,
		OJImageName:      names.OJImageName,
		ContainerName:    names.ContainerName,
		OJContainerName:  names.OJContainerName,
	}
}

// CheckRebuildNeeded compares the live fingerprint against the stored record.
// With no stored record every flag is true. Container recreation is derived
// from image rebuild or naming drift, never computed independently, so a
// rebuilt image always forces a fresh container.
func (m *DockerStateManager) CheckRebuildNeeded(c *contest.ExecutionContext) RebuildDecision {
	current := CurrentState(c)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.load()

	stored, ok := m.store[StateKey(c.Language, c.EnvType)]
	if !ok {
		return RebuildDecision{
			ImageRebuild:        true,
			OJImageRebuild:      true,
			ContainerRecreate:   true,
			OJContainerRecreate: true,
		}
	}

	var d RebuildDecision
	d.ImageRebuild = stored.DockerfileHash != current.DockerfileHash
	d.ContainerRecreate = d.ImageRebuild ||
		stored.ImageName != current.ImageName ||
		stored.ContainerName != current.ContainerName
	d.OJImageRebuild = stored.OJDockerfileHash != current.OJDockerfileHash
	d.OJContainerRecreate = d.OJImageRebuild ||
		stored.OJImageName != current.OJImageName ||
		stored.OJContainerName != current.OJContainerName
	return d
}

// UpdateState overwrites the stored record for the context's fingerprint key
// with the freshly computed state and a fresh timestamp. Callers invoke this
// only after the image and container actually reflect the new state.
func (m *DockerStateManager) UpdateState(c *contest.ExecutionContext) error {
	info := CurrentState(c)
	info.LastUpdated = time.Now().UTC().Format(time.RFC3339)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.load()
	m.store[StateKey(c.Language, c.EnvType)] = info
	return m.save()
}

// ClearState removes the record for one fingerprint key. Missing keys are not
// an error.
func (m *DockerStateManager) ClearState(language, envType string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.load()
	delete(m.store, StateKey(language, envType))
	return m.save()
}

// ClearAll removes every stored record.
func (m *DockerStateManager) ClearAll() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.loaded = true
	m.store = make(map[string]DockerStateInfo)
	return m.save()
}

// load reads the state file into the in-memory cache on first access. A
// missing, unreadable or corrupt file is treated as an empty store.
func (m *DockerStateManager) load() {
	if m.loaded {
		return
	}
	m.loaded = true
	m.store = make(map[string]DockerStateInfo)

	data, err := os.ReadFile(m.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Debugf(context.Background(), "state file read failed, starting empty: %v", err)
		}
		return
	}
	if err := json.Unmarshal(data, &m.store); err != nil {
		logger.Debugf(context.Background(), "state file corrupt, starting empty: %v", err)
		m.store = make(map[string]DockerStateInfo)
	}
}

func (m *DockerStateManager) save() error {
	data, err := json.MarshalIndent(m.store, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal state failed: %w", err)
	}
	if dir := filepath.Dir(m.path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create state dir failed: %w", err)
		}
	}
	if err := os.WriteFile(m.path, data, 0o644); err != nil {
		return fmt.Errorf("write state file failed: %w", err)
	}
	return nil
}

// InspectContainerCompatibility confirms against the live daemon that a
// container, if it exists, was created from the expected image. Any failure
// along the way degrades to false, which callers treat as "rebuild needed".
func InspectContainerCompatibility(ctx context.Context, drv docker.Driver, containerName, expectedImage string) bool {
	ps := drv.Ps(ctx, true)
	if ps == nil || !ps.Success {
		return false
	}
	if !containerListed(ps.Stdout, containerName) {
		return false
	}

	inspect := drv.Inspect(ctx, containerName)
	if inspect == nil || !inspect.Success {
		return false
	}
	image, ok := parseInspectImage(inspect.Stdout)
	if !ok {
		return false
	}
	return image == expectedImage || strings.HasPrefix(image, expectedImage+":")
}

func containerListed(psOutput, name string) bool {
	for _, line := range strings.Split(psOutput, "\n") {
		for _, field := range strings.Fields(line) {
			if field == name {
				return true
			}
		}
	}
	return false
}

// parseInspectImage pulls the configured image reference out of docker
// inspect JSON output.
func parseInspectImage(raw string) (string, bool) {
	var entries []struct {
		Image  string `json:"Image"`
		Config struct {
			Image string `json:"Image"`
		} `json:"Config"`
	}
	if err := json.Unmarshal([]byte(raw), &entries); err != nil || len(entries) == 0 {
		return "", false
	}
	if entries[0].Config.Image != "" {
		return entries[0].Config.Image, true
	}
	if entries[0].Image != "" {
		return entries[0].Image, true
	}
	return "", false
}

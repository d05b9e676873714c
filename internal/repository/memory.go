package repository

import (
	"context"
	"sync"
	"time"
)

// ContainerRecord is the in-memory view of one tracked container.
type ContainerRecord struct {
	Name        string
	ContainerID string
	Status      string
	Timestamps  map[string]time.Time
}

// LifecycleEvent is one recorded container event.
type LifecycleEvent struct {
	ContainerName string
	Event         string
	Details       map[string]interface{}
	At            time.Time
}

// ImageRecord is the in-memory view of one tracked image.
type ImageRecord struct {
	Name           string
	Tag            string
	ImageID        string
	DockerfileHash string
	BuildCommand   string
	BuildStatus    string
	BuildTimeMs    int64
	SizeBytes      *int64
}

// MemoryContainerRepository keeps container records in memory. It is the
// default when no tracking database is configured and the fake used in tests.
type MemoryContainerRepository struct {
	mu         sync.Mutex
	containers map[string]*ContainerRecord
	events     []LifecycleEvent
}

// NewMemoryContainerRepository creates an empty in-memory repository.
func NewMemoryContainerRepository() *MemoryContainerRepository {
	return &MemoryContainerRepository{containers: make(map[string]*ContainerRecord)}
}

func (r *MemoryContainerRepository) record(name string) *ContainerRecord {
	rec, ok := r.containers[name]
	if !ok {
		rec = &ContainerRecord{Name: name, Timestamps: make(map[string]time.Time)}
		r.containers[name] = rec
	}
	return rec
}

func (r *MemoryContainerRepository) UpdateContainerStatus(ctx context.Context, name, status, timestampField string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.record(name)
	rec.Status = status
	if timestampField != "" {
		rec.Timestamps[timestampField] = time.Now()
	}
	return nil
}

func (r *MemoryContainerRepository) AddLifecycleEvent(ctx context.Context, name, event string, details map[string]interface{}) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, LifecycleEvent{
		ContainerName: name,
		Event:         event,
		Details:       details,
		At:            time.Now(),
	})
	return nil
}

func (r *MemoryContainerRepository) UpdateContainerID(ctx context.Context, name, containerID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.record(name).ContainerID = containerID
	return nil
}

func (r *MemoryContainerRepository) MarkContainerRemoved(ctx context.Context, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec := r.record(name)
	rec.Status = "removed"
	rec.Timestamps["removed_at"] = time.Now()
	return nil
}

// Container returns a copy of the record for a name, if present.
func (r *MemoryContainerRepository) Container(name string) (ContainerRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.containers[name]
	if !ok {
		return ContainerRecord{}, false
	}
	return *rec, true
}

// Events returns a copy of the recorded lifecycle events.
func (r *MemoryContainerRepository) Events() []LifecycleEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]LifecycleEvent, len(r.events))
	copy(out, r.events)
	return out
}

// MemoryImageRepository keeps image records in memory.
type MemoryImageRepository struct {
	mu     sync.Mutex
	images map[string]*ImageRecord
}

// NewMemoryImageRepository creates an empty in-memory repository.
func NewMemoryImageRepository() *MemoryImageRepository {
	return &MemoryImageRepository{images: make(map[string]*ImageRecord)}
}

func imageKey(name, tag string) string {
	if tag == "" {
		tag = "latest"
	}
	return name + ":" + tag
}

func (r *MemoryImageRepository) CreateOrUpdateImage(ctx context.Context, name, tag, dockerfileHash, buildCommand, buildStatus string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tag == "" {
		tag = "latest"
	}
	key := imageKey(name, tag)
	rec, ok := r.images[key]
	if !ok {
		rec = &ImageRecord{Name: name, Tag: tag}
		r.images[key] = rec
	}
	rec.DockerfileHash = dockerfileHash
	rec.BuildCommand = buildCommand
	rec.BuildStatus = buildStatus
	return nil
}

func (r *MemoryImageRepository) UpdateImageBuildResult(ctx context.Context, name, tag, imageID, buildStatus string, buildTimeMs int64, sizeBytes *int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.images[imageKey(name, tag)]
	if !ok {
		return nil
	}
	rec.ImageID = imageID
	rec.BuildStatus = buildStatus
	rec.BuildTimeMs = buildTimeMs
	rec.SizeBytes = sizeBytes
	return nil
}

func (r *MemoryImageRepository) DeleteImage(ctx context.Context, name, tag string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.images, imageKey(name, tag))
	return nil
}

// Image returns a copy of the record for a name and tag, if present.
func (r *MemoryImageRepository) Image(name, tag string) (ImageRecord, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.images[imageKey(name, tag)]
	if !ok {
		return ImageRecord{}, false
	}
	return *rec, true
}

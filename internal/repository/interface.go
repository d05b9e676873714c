// Package repository persists container and image lifecycle records. Callers
// on the tracking path treat every method as fire-and-forget: failures are
// reported but must never affect the operation being tracked.
package repository

import "context"

// ContainerRepository records container lifecycle state.
type ContainerRepository interface {
	UpdateContainerStatus(ctx context.Context, name, status, timestampField string) error
	AddLifecycleEvent(ctx context.Context, name, event string, details map[string]interface{}) error
	UpdateContainerID(ctx context.Context, name, containerID string) error
	MarkContainerRemoved(ctx context.Context, name string) error
}

// ImageRepository records image build state.
type ImageRepository interface {
	CreateOrUpdateImage(ctx context.Context, name, tag, dockerfileHash, buildCommand, buildStatus string) error
	UpdateImageBuildResult(ctx context.Context, name, tag, imageID, buildStatus string, buildTimeMs int64, sizeBytes *int64) error
	DeleteImage(ctx context.Context, name, tag string) error
}

package docker

import (
	"context"
	"fmt"
	"strings"
	"time"

	"cpenv/internal/repository"
	"cpenv/internal/workflow/request"
	"cpenv/internal/workflow/result"
	"cpenv/pkg/utils/logger"
)

const dockerContainerIDLength = 64

// TrackedDriver decorates a Docker driver with best-effort lifecycle
// recording. Tracking runs only after the delegated call succeeds, and a
// tracking failure never changes the returned result.
type TrackedDriver struct {
	Driver
	containers repository.ContainerRepository
	images     repository.ImageRepository
}

// NewTrackedDriver wraps a driver with the tracking repositories.
func NewTrackedDriver(delegate Driver, containers repository.ContainerRepository, images repository.ImageRepository) *TrackedDriver {
	return &TrackedDriver{Driver: delegate, containers: containers, images: images}
}

// track runs one tracking attempt, discarding its error. The failure is
// visible at debug level only; observability must never become a reliability
// hazard.
func track(ctx context.Context, what string, fn func() error) {
	if err := fn(); err != nil {
		logger.Debugf(ctx, "tracking %s failed: %v", what, err)
	}
}

func (d *TrackedDriver) RunContainer(ctx context.Context, image, name string, opts request.DockerOptions) *result.OperationResult {
	res := d.Driver.RunContainer(ctx, image, name, opts)
	if res.Success && name != "" && d.containers != nil {
		track(ctx, "container start", func() error {
			if err := d.containers.UpdateContainerStatus(ctx, name, "running", "started_at"); err != nil {
				return err
			}
			if err := d.containers.AddLifecycleEvent(ctx, name, "started", map[string]interface{}{"image": image}); err != nil {
				return err
			}
			if id := strings.TrimSpace(res.Stdout); len(id) == dockerContainerIDLength {
				return d.containers.UpdateContainerID(ctx, name, id)
			}
			return nil
		})
	}
	return res
}

func (d *TrackedDriver) StopContainer(ctx context.Context, name string) *result.OperationResult {
	res := d.Driver.StopContainer(ctx, name)
	if res.Success && d.containers != nil {
		track(ctx, "container stop", func() error {
			if err := d.containers.UpdateContainerStatus(ctx, name, "stopped", "stopped_at"); err != nil {
				return err
			}
			return d.containers.AddLifecycleEvent(ctx, name, "stopped", nil)
		})
	}
	return res
}

func (d *TrackedDriver) RemoveContainer(ctx context.Context, name string, force bool) *result.OperationResult {
	res := d.Driver.RemoveContainer(ctx, name, force)
	if res.Success && d.containers != nil {
		track(ctx, "container remove", func() error {
			if err := d.containers.MarkContainerRemoved(ctx, name); err != nil {
				return err
			}
			return d.containers.AddLifecycleEvent(ctx, name, "removed", map[string]interface{}{"force": force})
		})
	}
	return res
}

// BuildImage records a "building" row before the build, measures wall-clock
// build time, and on success scans the output for the legacy builder's
// "Successfully built <id>" line. A missing line is not an error; the image
// ID simply stays empty.
func (d *TrackedDriver) BuildImage(ctx context.Context, tag string, opts request.DockerOptions) *result.OperationResult {
	dockerfileHash := HashContent(opts.DockerfileText)

	if tag != "" && d.images != nil {
		track(ctx, "image build start", func() error {
			return d.images.CreateOrUpdateImage(ctx, tag, "latest", dockerfileHash,
				fmt.Sprintf("docker build -t %s", tag), "building")
		})
	}

	start := time.Now()
	res := d.Driver.BuildImage(ctx, tag, opts)
	buildTimeMs := time.Since(start).Milliseconds()

	if tag != "" && d.images != nil {
		track(ctx, "image build result", func() error {
			if res.Success {
				return d.images.UpdateImageBuildResult(ctx, tag, "latest",
					parseBuiltImageID(res.Stdout), "success", buildTimeMs, nil)
			}
			return d.images.UpdateImageBuildResult(ctx, tag, "latest", "", "failed", buildTimeMs, nil)
		})
	}
	return res
}

func (d *TrackedDriver) ImageRm(ctx context.Context, image string) *result.OperationResult {
	res := d.Driver.ImageRm(ctx, image)
	if res.Success && d.images != nil {
		name, tag := splitImageRef(image)
		track(ctx, "image delete", func() error {
			return d.images.DeleteImage(ctx, name, tag)
		})
	}
	return res
}

// parseBuiltImageID extracts the image ID from legacy builder output.
func parseBuiltImageID(output string) string {
	for _, line := range strings.Split(output, "\n") {
		if !strings.Contains(line, "Successfully built") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) > 2 {
			return fields[len(fields)-1]
		}
	}
	return ""
}

// splitImageRef splits name[:tag], defaulting the tag to latest.
func splitImageRef(image string) (name, tag string) {
	if idx := strings.Index(image, ":"); idx >= 0 {
		return image[:idx], image[idx+1:]
	}
	return image, "latest"
}

// Package di provides the service registry used to wire drivers and
// repositories at process start. Services are registered once by main and
// resolved by key; a missing key is a wiring fault and never falls back to a
// null object.
package di

import (
	"fmt"
	"sync"

	appErr "cpenv/pkg/errors"
)

// Key identifies a registered service.
type Key string

// The closed set of service keys.
const (
	FileDriver          Key = "file_driver"
	ShellDriver         Key = "shell_driver"
	DockerDriver        Key = "docker_driver"
	ContainerRepository Key = "docker_container_repository"
	ImageRepository     Key = "docker_image_repository"
	StateManager        Key = "docker_state_manager"
)

// Container is a minimal typed service registry.
type Container struct {
	mu       sync.RWMutex
	services map[Key]interface{}
}

// New creates an empty container.
func New() *Container {
	return &Container{services: make(map[Key]interface{})}
}

// Register stores a service under a key, replacing any previous registration.
func (c *Container) Register(key Key, service interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[key] = service
}

// Resolve returns the service registered under the key, or an error naming
// the missing key.
func (c *Container) Resolve(key Key) (interface{}, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	service, ok := c.services[key]
	if !ok {
		return nil, appErr.Newf(appErr.ServiceNotRegistered, "service %q is not registered", key)
	}
	return service, nil
}

// MustResolve resolves or panics; for wiring paths where a missing service is
// unrecoverable.
func (c *Container) MustResolve(key Key) interface{} {
	service, err := c.Resolve(key)
	if err != nil {
		panic(fmt.Sprintf("di: %v", err))
	}
	return service
}

// Has reports whether a key is registered.
func (c *Container) Has(key Key) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	_, ok := c.services[key]
	return ok
}

// Package di wires the escrowd node from its configuration.
package di

import (
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"
)

// ErrServiceNotFound is returned for names with neither an instance nor a
// builder.
var ErrServiceNotFound = errors.New("service not found")

// Container is the dependency injection container.
// Services are built lazily, once, and closed in reverse build order.
type Container struct {
	mu       sync.Mutex
	services map[string]interface{}
	builders map[string]Builder
	building map[string]bool
	closers  []namedCloser
}

type namedCloser struct {
	name   string
	closer io.Closer
}

// Builder creates a service instance. It may resolve other services from c.
type Builder func(c *Container) (interface{}, error)

// New creates an empty container.
func New() *Container {
	return &Container{
		services: make(map[string]interface{}),
		builders: make(map[string]Builder),
		building: make(map[string]bool),
	}
}

// Register registers a ready service instance. The container does not
// close registered instances.
func (c *Container) Register(name string, service interface{}) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.services[name] = service
}

// RegisterBuilder registers a builder function for lazy instantiation.
func (c *Container) RegisterBuilder(name string, builder Builder) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.builders[name] = builder
}

// Get retrieves a service by name, building it on first use. Built
// services implementing io.Closer are closed by Close.
func (c *Container) Get(name string) (interface{}, error) {
	c.mu.Lock()
	if service, ok := c.services[name]; ok {
		c.mu.Unlock()
		return service, nil
	}
	builder, ok := c.builders[name]
	if !ok {
		c.mu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrServiceNotFound, name)
	}
	if c.building[name] {
		c.mu.Unlock()
		return nil, fmt.Errorf("dependency cycle while building %s", name)
	}
	c.building[name] = true
	c.mu.Unlock()

	// Builders run unlocked so they can resolve their own dependencies.
	service, err := builder(c)

	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.building, name)
	if err != nil {
		return nil, fmt.Errorf("build %s: %w", name, err)
	}
	c.services[name] = service
	if closer, ok := service.(io.Closer); ok {
		c.closers = append(c.closers, namedCloser{name: name, closer: closer})
	}
	return service, nil
}

// MustGet retrieves a service or panics if it cannot be built.
func (c *Container) MustGet(name string) interface{} {
	service, err := c.Get(name)
	if err != nil {
		panic(err)
	}
	return service
}

// Has checks if a service is registered.
func (c *Container) Has(name string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.services[name]; ok {
		return true
	}
	_, ok := c.builders[name]
	return ok
}

// ServiceNames returns all registered service names, sorted.
func (c *Container) ServiceNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	names := make(map[string]bool)
	for name := range c.services {
		names[name] = true
	}
	for name := range c.builders {
		names[name] = true
	}

	result := make([]string, 0, len(names))
	for name := range names {
		result = append(result, name)
	}
	sort.Strings(result)
	return result
}

// Close closes every built service in reverse build order and forgets
// them. All closers run; their errors are joined.
func (c *Container) Close() error {
	c.mu.Lock()
	closers := c.closers
	c.closers = nil
	for _, nc := range closers {
		delete(c.services, nc.name)
	}
	c.mu.Unlock()

	var errs []error
	for i := len(closers) - 1; i >= 0; i-- {
		if err := closers[i].closer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", closers[i].name, err))
		}
	}
	return errors.Join(errs...)
}

// Service names.
const (
	ServiceConfig   = "config"
	ServiceKVStore  = "kvstore"
	ServiceLedger   = "ledger"
	ServiceJournal  = "journal"
	ServiceMetrics  = "metrics"
	ServiceStream   = "stream"
	ServiceTxEngine = "tx.engine"
	ServiceServer   = "server"
)

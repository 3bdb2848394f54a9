// Package shutdown coordinates graceful shutdown of the dashboard: the HTTP
// server stops accepting requests first, then running operator actions are
// given the rest of the deadline to finish.
package shutdown

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"
)

// DefaultTimeout is the default graceful shutdown timeout.
const DefaultTimeout = 30 * time.Second

// Component is something that must be stopped before the process exits.
type Component interface {
	Name() string
	// Shutdown should return by the context deadline.
	Shutdown(ctx context.Context) error
}

// Func adapts a function to Component.
type Func struct {
	name string
	fn   func(ctx context.Context) error
}

// NewFunc creates a named component from fn.
func NewFunc(name string, fn func(ctx context.Context) error) *Func {
	return &Func{name: name, fn: fn}
}

// Name implements Component.
func (f *Func) Name() string { return f.name }

// Shutdown implements Component.
func (f *Func) Shutdown(ctx context.Context) error { return f.fn(ctx) }

// Coordinator stops registered components in reverse registration order
// under a single shared deadline.
type Coordinator struct {
	components []Component
	timeout    time.Duration
	logger     *slog.Logger
	mu         sync.Mutex

	// signalCh replaces OS signal delivery in tests.
	signalCh chan os.Signal

	once     sync.Once
	done     chan struct{}
	err      error
	exitCode int
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithTimeout sets the shutdown deadline.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Coordinator) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Coordinator) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithSignalChannel sets a custom signal channel.
func WithSignalChannel(ch chan os.Signal) Option {
	return func(c *Coordinator) {
		c.signalCh = ch
	}
}

// NewCoordinator creates a new shutdown coordinator.
func NewCoordinator(opts ...Option) *Coordinator {
	c := &Coordinator{
		timeout: DefaultTimeout,
		logger:  slog.Default(),
		done:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Register adds a component. The last registered is stopped first.
func (c *Coordinator) Register(component Component) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.components = append(c.components, component)
	c.logger.Debug("registered shutdown component", "name", component.Name())
}

// Run blocks until SIGINT, SIGTERM or ctx ends, then shuts everything down
// and returns the combined shutdown error.
func (c *Coordinator) Run(ctx context.Context) error {
	sigCh := c.signalCh
	if sigCh == nil {
		sigCh = make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(sigCh)
	}

	select {
	case sig := <-sigCh:
		c.logger.Info("received shutdown signal", "signal", sig)
	case <-ctx.Done():
		c.logger.Info("shutdown requested", "reason", context.Cause(ctx))
	}

	return c.Shutdown()
}

// Shutdown stops every component once. Later calls wait for the first to
// finish and return its result.
func (c *Coordinator) Shutdown() error {
	c.once.Do(func() {
		defer close(c.done)

		c.logger.Info("initiating graceful shutdown", "timeout", c.timeout)
		ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
		defer cancel()

		c.mu.Lock()
		components := make([]Component, len(c.components))
		copy(components, c.components)
		c.mu.Unlock()

		var errs []error
		for i := len(components) - 1; i >= 0; i-- {
			comp := components[i]
			if err := comp.Shutdown(ctx); err != nil {
				c.logger.Error("component shutdown error", "name", comp.Name(), "error", err)
				errs = append(errs, fmt.Errorf("%s: %w", comp.Name(), err))
				continue
			}
			c.logger.Info("component stopped", "name", comp.Name())
		}

		c.err = errors.Join(errs...)
		if c.err != nil || ctx.Err() != nil {
			c.logger.Warn("shutdown incomplete, forcing termination")
			c.exitCode = 1
			return
		}
		c.logger.Info("all components stopped")
	})

	<-c.done
	return c.err
}

// Wait blocks until shutdown is complete.
func (c *Coordinator) Wait() {
	<-c.done
}

// ExitCode is 0 after a clean shutdown and 1 when a component failed or the
// deadline passed.
func (c *Coordinator) ExitCode() int {
	<-c.done
	return c.exitCode
}

// Package lifecycle coordinates startup and shutdown of the backend's
// subsystems.
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

var (
	// ErrShutdownTimeout is returned when shutdown hooks outlive the deadline.
	ErrShutdownTimeout = errors.New("shutdown timeout")
	// ErrDependency marks a startup hook skipped because a hook it runs
	// after failed or was never registered.
	ErrDependency = errors.New("startup dependency failed")
)

// Hook is a named startup or shutdown step.
type Hook func(ctx context.Context) error

// ReadinessChecker reports whether a subsystem is ready to serve traffic.
type ReadinessChecker interface {
	Ready() bool
}

// Coordinator runs startup hooks concurrently as they are registered and
// holds shutdown hooks until Shutdown.
type Coordinator struct {
	ctx    context.Context
	cancel context.CancelFunc

	startup  sync.WaitGroup
	ready    atomic.Bool
	mu       sync.Mutex
	failures []error
	started  map[string]*step
	shutdown map[string]Hook
	checks   map[string]ReadinessChecker
}

func New() *Coordinator {
	ctx, cancel := context.WithCancel(context.Background())
	return &Coordinator{
		ctx:      ctx,
		cancel:   cancel,
		started:  make(map[string]*step),
		shutdown: make(map[string]Hook),
		checks:   make(map[string]ReadinessChecker),
	}
}

type step struct {
	done chan struct{}
	err  error
}

// Context is cancelled when Shutdown begins.
func (c *Coordinator) Context() context.Context {
	return c.ctx
}

// OnStartup starts fn right away, or once every hook named in after has
// succeeded. Hooks in after must already be registered. Errors are reported
// by WaitForStartup under name.
func (c *Coordinator) OnStartup(name string, fn Hook, after ...string) {
	s := &step{done: make(chan struct{})}

	c.mu.Lock()
	deps := make([]*step, len(after))
	for i, dep := range after {
		deps[i] = c.started[dep]
	}
	c.started[name] = s
	c.mu.Unlock()

	c.startup.Go(func() {
		defer close(s.done)

		s.err = c.await(after, deps)
		if s.err == nil {
			s.err = fn(c.ctx)
		}
		if s.err != nil {
			c.mu.Lock()
			c.failures = append(c.failures, fmt.Errorf("%s: %w", name, s.err))
			c.mu.Unlock()
		}
	})
}

func (c *Coordinator) await(names []string, deps []*step) error {
	for i, dep := range deps {
		if dep == nil {
			return fmt.Errorf("%w: %s not registered", ErrDependency, names[i])
		}
		select {
		case <-dep.done:
		case <-c.ctx.Done():
			return c.ctx.Err()
		}
		if dep.err != nil {
			return fmt.Errorf("%w: %s", ErrDependency, names[i])
		}
	}
	return nil
}

// OnShutdown registers fn to run during Shutdown. Registering the same
// name twice replaces the earlier hook.
func (c *Coordinator) OnShutdown(name string, fn Hook) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.shutdown[name] = fn
}

func (c *Coordinator) Ready() bool {
	return c.ready.Load()
}

// Track registers a named subsystem whose readiness is reported by Status.
func (c *Coordinator) Track(name string, rc ReadinessChecker) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[name] = rc
}

// Status reports the readiness of each tracked subsystem.
func (c *Coordinator) Status() map[string]bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	status := make(map[string]bool, len(c.checks))
	for name, rc := range c.checks {
		status[name] = rc.Ready()
	}
	return status
}

// WaitForStartup blocks until every startup hook has returned, then marks
// the coordinator ready. Hook failures do not block readiness; they are
// joined into the returned error so the caller can log them.
func (c *Coordinator) WaitForStartup() error {
	c.startup.Wait()
	c.ready.Store(true)

	c.mu.Lock()
	defer c.mu.Unlock()
	return errors.Join(c.failures...)
}

// Shutdown cancels Context, then runs every shutdown hook concurrently with
// a context bounded by timeout.
func (c *Coordinator) Shutdown(timeout time.Duration) error {
	c.ready.Store(false)
	c.cancel()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	c.mu.Lock()
	hooks := make(map[string]Hook, len(c.shutdown))
	for name, fn := range c.shutdown {
		hooks[name] = fn
	}
	c.mu.Unlock()

	errs := make(chan error, len(hooks))
	var wg sync.WaitGroup
	for name, fn := range hooks {
		wg.Go(func() {
			if err := fn(ctx); err != nil {
				errs <- fmt.Errorf("%s: %w", name, err)
			}
		})
	}

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return fmt.Errorf("%w after %v", ErrShutdownTimeout, timeout)
	}

	close(errs)
	var failures []error
	for err := range errs {
		failures = append(failures, err)
	}
	return errors.Join(failures...)
}

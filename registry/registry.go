// Package registry stores one form instance per concrete type and runs each
// instance's initialization hook lazily, once, in the background. It is an
// explicit container rather than process-global state so tests can build and
// tear down their own.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"reflect"
	"sync"

	"github.com/tbxark/formstate"
)

// ErrNotFound is returned by Get for a type that was never injected. This
// is a programmer error (wrong injection order), not a condition to retry.
var ErrNotFound = errors.New("registry: instance not found")

// CacheClearer is the optional capability Dispose looks for instead of the
// dynamic dispatch the pattern is usually built on. Forms embedding
// *formstate.Form get it for free.
type CacheClearer interface {
	ClearValidationCache()
}

// initSlot tracks one type's in-flight or completed initialization.
type initSlot struct {
	done        chan struct{}
	err         error
	initialized bool
}

// Registry maps concrete types to singleton instances.
type Registry struct {
	mu        sync.Mutex
	logger    *slog.Logger
	instances map[reflect.Type]any
	inits     map[reflect.Type]*initSlot
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger used for initialization failures.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) { r.logger = logger }
}

// New creates an empty container.
func New(opts ...Option) *Registry {
	r := &Registry{
		logger:    slog.Default(),
		instances: make(map[reflect.Type]any),
		inits:     make(map[reflect.Type]*initSlot),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Inject stores each instance keyed by its concrete type. The last write
// for a type wins; there is no duplicate detection.
func (r *Registry) Inject(instances ...any) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, inst := range instances {
		r.instances[reflect.TypeOf(inst)] = inst
	}
}

// Reset removes every instance and initialization record. Test teardown.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	clear(r.instances)
	clear(r.inits)
}

// Get returns the instance injected for T. The first access triggers the
// instance's Init hook (when it implements formstate.Initializer) exactly
// once in the background; Get returns immediately either way, so fields may
// not be populated yet. A failed Init is logged and its slot cleared,
// letting a later Get retry; the instance stays usable but possibly
// partially initialized. This is best-effort readiness, not a guarantee —
// use WaitReady to block on it.
func Get[T any](r *Registry) (T, error) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	r.mu.Lock()
	inst, ok := r.instances[t]
	if !ok {
		r.mu.Unlock()
		var zero T
		return zero, fmt.Errorf("%w: %s", ErrNotFound, t)
	}
	r.maybeInitLocked(t, inst)
	r.mu.Unlock()
	return inst.(T), nil
}

// maybeInitLocked launches the background init unless one is in flight or
// already completed. Caller holds r.mu.
func (r *Registry) maybeInitLocked(t reflect.Type, inst any) {
	init, ok := inst.(formstate.Initializer)
	if !ok {
		return
	}
	if slot := r.inits[t]; slot != nil {
		return
	}
	slot := &initSlot{done: make(chan struct{})}
	r.inits[t] = slot
	go func() {
		err := init.Init(context.Background())
		r.mu.Lock()
		if err != nil {
			r.logger.Error("form initialization failed", "type", t.String(), "error", err)
			slot.err = err
			// Open the retry slot: the next Get starts over.
			if r.inits[t] == slot {
				delete(r.inits, t)
			}
		} else {
			slot.initialized = true
		}
		r.mu.Unlock()
		close(slot.done)
	}()
}

// WaitReady blocks until T's initialization completes or ctx expires,
// returning the init error if it failed. Get must have been called (or is
// called here) to start the initialization.
func WaitReady[T any](ctx context.Context, r *Registry) error {
	t := reflect.TypeOf((*T)(nil)).Elem()
	r.mu.Lock()
	inst, ok := r.instances[t]
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrNotFound, t)
	}
	r.maybeInitLocked(t, inst)
	slot := r.inits[t]
	r.mu.Unlock()
	if slot == nil {
		// No Initializer capability, or a failed init already cleared
		// the slot.
		return nil
	}
	select {
	case <-slot.done:
		return slot.err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Dispose clears T's initialization state so the next Get re-triggers the
// Init hook, and asks the instance to drop its validation cache when it can.
// The instance itself stays registered.
func Dispose[T any](r *Registry) {
	t := reflect.TypeOf((*T)(nil)).Elem()
	r.mu.Lock()
	inst, ok := r.instances[t]
	delete(r.inits, t)
	r.mu.Unlock()
	if !ok {
		return
	}
	if cc, ok := inst.(CacheClearer); ok {
		cc.ClearValidationCache()
	}
}

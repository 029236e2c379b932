package control

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Logger defines the logging interface used by the Registry.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Registry provides control management with caching and thread safety.
// It wraps a Repository and adds an in-memory cache for fast lookups;
// every incoming panel frame resolves a control, so reads must not hit
// the database.
//
// The cache is populated on startup via RefreshCache() and kept in sync
// by the mutating operations.
//
// All public methods are thread-safe.
type Registry struct {
	repo    Repository
	cache   map[int]*Control
	cacheMu sync.RWMutex
	logger  Logger
}

// NewRegistry creates a new control registry.
// The repository is used for persistence; the registry adds caching.
func NewRegistry(repo Repository) *Registry {
	return &Registry{
		repo:   repo,
		cache:  make(map[int]*Control),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the registry.
func (r *Registry) SetLogger(logger Logger) {
	r.logger = logger
}

// RefreshCache reloads all controls from the repository into the cache.
// This should be called on application startup.
func (r *Registry) RefreshCache(ctx context.Context) error {
	controls, err := r.repo.List(ctx)
	if err != nil {
		return fmt.Errorf("loading controls: %w", err)
	}

	r.cacheMu.Lock()
	defer r.cacheMu.Unlock()

	r.cache = make(map[int]*Control, len(controls))
	for i := range controls {
		c := controls[i]
		r.cache[c.ID] = c.Clone()
	}

	r.logger.Info("control cache refreshed", "count", len(controls))
	return nil
}

// Get retrieves a control by ID.
// Returns ErrControlNotFound if the control does not exist.
// The returned control is a copy; callers can safely modify it.
func (r *Registry) Get(ctx context.Context, id int) (*Control, error) {
	r.cacheMu.RLock()
	cached, ok := r.cache[id]
	r.cacheMu.RUnlock()

	if ok {
		return cached.Clone(), nil
	}

	// Fall back to the repository; a control created by another writer
	// may not be cached yet.
	c, err := r.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	r.cacheMu.Lock()
	r.cache[id] = c.Clone()
	r.cacheMu.Unlock()

	return c, nil
}

// List retrieves all controls ordered by ID.
// The returned controls are copies; callers can safely modify them.
func (r *Registry) List(ctx context.Context) ([]Control, error) {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()

	if len(r.cache) > 0 {
		controls := make([]Control, 0, len(r.cache))
		for _, c := range r.cache {
			controls = append(controls, *c.Clone())
		}
		sort.Slice(controls, func(i, j int) bool { return controls[i].ID < controls[j].ID })
		return controls, nil
	}

	return r.repo.List(ctx)
}

// Count returns the number of cached controls.
func (r *Registry) Count() int {
	r.cacheMu.RLock()
	defer r.cacheMu.RUnlock()
	return len(r.cache)
}

// Create validates, normalizes and persists a new control.
// The assigned ID is written back to the struct.
func (r *Registry) Create(ctx context.Context, c *Control) error {
	if err := Validate(c); err != nil {
		return err
	}
	Normalize(c)

	if err := r.repo.Create(ctx, c); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[c.ID] = c.Clone()
	r.cacheMu.Unlock()

	r.logger.Info("control created", "id", c.ID, "type", c.Type, "label", c.Label)
	return nil
}

// Update validates and persists changes to an existing control.
func (r *Registry) Update(ctx context.Context, c *Control) error {
	if err := Validate(c); err != nil {
		return err
	}
	Normalize(c)

	if err := r.repo.Update(ctx, c); err != nil {
		return err
	}

	r.cacheMu.Lock()
	r.cache[c.ID] = c.Clone()
	r.cacheMu.Unlock()

	r.logger.Info("control updated", "id", c.ID)
	return nil
}

// Delete removes a control.
func (r *Registry) Delete(ctx context.Context, id int) error {
	if err := r.repo.Delete(ctx, id); err != nil {
		return err
	}

	r.cacheMu.Lock()
	delete(r.cache, id)
	r.cacheMu.Unlock()

	r.logger.Info("control deleted", "id", id)
	return nil
}

// SetValue clamps and persists a new value for a control.
//
// Returns:
//   - *Control: The control after the change, as a copy
//   - bool: Whether the stored value actually changed
//   - error: ErrControlNotFound if the ID is unknown, or a repository error
func (r *Registry) SetValue(ctx context.Context, id int, value float64) (*Control, bool, error) {
	current, err := r.Get(ctx, id)
	if err != nil {
		return nil, false, err
	}

	clamped := ClampValue(current, value)
	if clamped == current.Value {
		return current, false, nil
	}

	if err := r.repo.UpdateValue(ctx, id, clamped); err != nil {
		return nil, false, err
	}

	current.Value = clamped

	r.cacheMu.Lock()
	if cached, ok := r.cache[id]; ok {
		cached.Value = clamped
	} else {
		r.cache[id] = current.Clone()
	}
	r.cacheMu.Unlock()

	r.logger.Debug("control value changed", "id", id, "value", clamped)
	return current, true, nil
}

// Package session holds the editing session: the current chart, its dirty
// flag and the load/save lifecycle against a persistence gateway.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/orgboard/internal/apperr"
	"github.com/starford/orgboard/internal/chart"
	"github.com/starford/orgboard/internal/metrics"
	"github.com/starford/orgboard/internal/models"
	"github.com/starford/orgboard/internal/storage"
)

// Event kinds passed to the Notifier.
const (
	EventDepartmentAdded = "department.added"
	EventLevelAdded      = "level.added"
	EventRoleAdded       = "role.added"
	EventRoleMoved       = "role.moved"
	EventChartSaved      = "chart.saved"
	EventChartReloaded   = "chart.reloaded"

	// EventSnapshotChanged is not sent by the Store. The file watcher
	// publishes it when another process rewrites the snapshot.
	EventSnapshotChanged = "snapshot.changed"
)

// MaxNameLength bounds role and department names, in runes.
const MaxNameLength = 120

// ErrNotReady is returned by operations attempted before the first
// successful load.
var ErrNotReady = fmt.Errorf("session: chart not loaded: %w", apperr.ErrUnavailable)

// State is the lifecycle state of the session.
type State int

const (
	StateLoading State = iota
	StateReady
)

func (s State) String() string {
	if s == StateReady {
		return "ready"
	}
	return "loading"
}

// Notifier receives a notification after each successful store operation.
type Notifier interface {
	Notify(kind string, payload any)
}

// Status summarises the session for the controller.
type Status struct {
	State       string `json:"state"`
	Dirty       bool   `json:"dirty"`
	Departments int    `json:"departments"`
	Roles       int    `json:"roles"`
}

// Store owns the current chart. All methods are safe for concurrent use;
// operations are serialised, including gateway calls.
type Store struct {
	mu       sync.Mutex
	gateway  storage.Gateway
	logger   *slog.Logger
	newID    chart.IDGenerator
	notifier Notifier
	metrics  *metrics.Metrics

	state   State
	dirty   bool
	current models.Chart
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// WithIDGenerator replaces the UUID generator for department and level ids.
func WithIDGenerator(g chart.IDGenerator) Option {
	return func(s *Store) { s.newID = g }
}

// WithNotifier sets the change notifier.
func WithNotifier(n Notifier) Option {
	return func(s *Store) { s.notifier = n }
}

// WithMetrics enables Prometheus instrumentation.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Store) { s.metrics = m }
}

// New creates a Store in the loading state. Call Load before use.
func New(gw storage.Gateway, opts ...Option) (*Store, error) {
	if gw == nil {
		return nil, errors.New("session: gateway is required")
	}
	s := &Store{
		gateway: gw,
		logger:  slog.Default(),
		newID:   chart.NewID,
		state:   StateLoading,
	}
	for _, o := range opts {
		o(s)
	}
	return s, nil
}

// Load fetches the snapshot and enters the ready, clean state. On failure the
// previous state is kept.
func (s *Store) Load(ctx context.Context) error {
	return s.load(ctx, "load")
}

// Reload discards local edits and loads the stored snapshot again.
func (s *Store) Reload(ctx context.Context) error {
	if err := s.load(ctx, "reload"); err != nil {
		return err
	}
	s.notify(EventChartReloaded, nil)
	return nil
}

func (s *Store) load(ctx context.Context, op string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	prev := s.state
	s.state = StateLoading
	c, err := s.gateway.Load(ctx)
	if err != nil {
		s.state = prev
		s.logger.Error("session: "+op+" failed", slog.String("error", err.Error()))
		return &chart.PersistError{Op: "load", Err: err}
	}
	s.current = c.Clone()
	s.state = StateReady
	s.setDirty(false)
	s.logger.Info("session: chart loaded",
		slog.String("op", op),
		slog.Int("departments", len(c.Departments)),
		slog.Int("roles", c.RoleCount()))
	return nil
}

// AddDepartment appends a department with one empty level and returns its id.
// Department names may repeat.
func (s *Store) AddDepartment(name string) (string, error) {
	name = strings.TrimSpace(name)
	id, err := s.addDepartment(name)
	s.metrics.ObserveMutation("add_department", err)
	if err != nil {
		return "", err
	}
	s.notify(EventDepartmentAdded, map[string]string{"id": id, "name": name})
	return id, nil
}

func (s *Store) addDepartment(name string) (string, error) {
	if err := validateName("department", name); err != nil {
		return "", err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return "", ErrNotReady
	}
	id, levelID := s.newID(), s.newID()
	s.current = chart.AddDepartment(s.current, id, levelID, name)
	s.setDirty(true)
	s.logger.Debug("session: department added", slog.String("id", id), slog.String("name", name))
	return id, nil
}

// AddLevel appends an empty level to the department and returns its id.
func (s *Store) AddLevel(departmentID string) (string, error) {
	id, err := s.addLevel(departmentID)
	s.metrics.ObserveMutation("add_level", err)
	if err != nil {
		return "", err
	}
	s.notify(EventLevelAdded, map[string]string{"department_id": departmentID, "id": id})
	return id, nil
}

func (s *Store) addLevel(departmentID string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return "", ErrNotReady
	}
	id := s.newID()
	next, err := chart.AddLevel(s.current, departmentID, id)
	if err != nil {
		return "", err
	}
	s.current = next
	s.setDirty(true)
	s.logger.Debug("session: level added", slog.String("department_id", departmentID), slog.String("id", id))
	return id, nil
}

// AddRole registers a new role in Available Roles and immediately saves the
// whole chart. If the save fails the role stays in the session, the session
// stays dirty and a *chart.PersistError is returned.
func (s *Store) AddRole(ctx context.Context, name string) error {
	name = strings.TrimSpace(name)
	saved, err := s.addRole(ctx, name)
	if saved != nil {
		s.notify(EventRoleAdded, map[string]any{"name": name, "persisted": *saved})
	}
	return err
}

// addRole returns a non-nil saved flag once the role is in the chart.
func (s *Store) addRole(ctx context.Context, name string) (*bool, error) {
	if err := validateName("role", name); err != nil {
		s.metrics.ObserveMutation("add_role", err)
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		s.metrics.ObserveMutation("add_role", ErrNotReady)
		return nil, ErrNotReady
	}
	next, err := chart.Register(s.current, name)
	s.metrics.ObserveMutation("add_role", err)
	if err != nil {
		return nil, err
	}
	s.current = next
	s.setDirty(true)
	s.logger.Debug("session: role added", slog.String("name", name))

	saved := false
	if err := s.saveLocked(ctx); err != nil {
		return &saved, err
	}
	saved = true
	return &saved, nil
}

// MoveRole moves role between slots and returns the resulting chart. A stale
// or rejected move leaves the session unchanged. Any accepted move, including
// one back onto the same slot, marks the session dirty.
func (s *Store) MoveRole(role string, from, to models.Location) (models.Chart, error) {
	out, err := s.moveRole(role, from, to)
	s.metrics.ObserveMutation("move_role", err)
	if err != nil {
		return models.Chart{}, err
	}
	s.notify(EventRoleMoved, map[string]any{"role": role, "from": from, "to": to})
	return out, nil
}

func (s *Store) moveRole(role string, from, to models.Location) (models.Chart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return models.Chart{}, ErrNotReady
	}
	next, err := chart.Move(s.current, role, from, to)
	if err != nil {
		s.logger.Debug("session: move rejected", slog.String("role", role), slog.String("error", err.Error()))
		return models.Chart{}, err
	}
	s.current = next
	s.setDirty(true)
	s.logger.Debug("session: role moved",
		slog.String("role", role),
		slog.String("from", from.Key()),
		slog.String("to", to.Key()),
		slog.Int("index", to.Index))
	return next.Clone(), nil
}

// Save persists the current chart. Success makes it the clean baseline;
// failure leaves the session dirty and returns a *chart.PersistError.
func (s *Store) Save(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateReady {
		s.mu.Unlock()
		return ErrNotReady
	}
	err := s.saveLocked(ctx)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	s.notify(EventChartSaved, nil)
	return nil
}

func (s *Store) saveLocked(ctx context.Context) error {
	start := time.Now()
	err := s.gateway.Save(ctx, s.current.Clone())
	s.metrics.ObserveSave(start, err)
	if err != nil {
		s.logger.Warn("session: save failed", slog.String("error", err.Error()))
		return &chart.PersistError{Op: "save", Err: err}
	}
	s.setDirty(false)
	s.logger.Info("session: chart saved", slog.Int("roles", s.current.RoleCount()))
	return nil
}

// Snapshot returns a deep copy of the current chart.
func (s *Store) Snapshot() (models.Chart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return models.Chart{}, ErrNotReady
	}
	return s.current.Clone(), nil
}

// Lookup finds where a role currently sits, ignoring case.
func (s *Store) Lookup(name string) (models.Placement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return models.Placement{}, ErrNotReady
	}
	loc, stored, ok := chart.Lookup(s.current, strings.TrimSpace(name))
	if !ok {
		return models.Placement{}, fmt.Errorf("session: role %q: %w", name, apperr.ErrNotFound)
	}
	d := s.current.Departments[s.current.DepartmentIndex(loc.DepartmentID)]
	return models.Placement{
		Role:           stored,
		DepartmentID:   d.ID,
		DepartmentName: d.Name,
		LevelID:        loc.LevelID,
		LevelNumber:    d.LevelIndex(loc.LevelID),
		Index:          loc.Index,
	}, nil
}

// Search lists roles whose name contains query, ignoring case.
func (s *Store) Search(query string, limit int) ([]models.Placement, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateReady {
		return nil, ErrNotReady
	}
	return chart.Search(s.current, query, limit), nil
}

// State returns the lifecycle state.
func (s *Store) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Dirty reports whether the chart has unsaved edits.
func (s *Store) Dirty() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dirty
}

// Status returns the session summary.
func (s *Store) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		State:       s.state.String(),
		Dirty:       s.dirty,
		Departments: len(s.current.Departments),
		Roles:       s.current.RoleCount(),
	}
}

func (s *Store) setDirty(d bool) {
	s.dirty = d
	s.metrics.SetDirty(d)
}

func (s *Store) notify(kind string, payload any) {
	if s.notifier != nil {
		s.notifier.Notify(kind, payload)
	}
}

func validateName(kind, name string) error {
	err := validation.Validate(name,
		validation.Required,
		validation.RuneLength(1, MaxNameLength),
	)
	if err != nil {
		return fmt.Errorf("%w: %s name %v", apperr.ErrInvalid, kind, err)
	}
	return nil
}

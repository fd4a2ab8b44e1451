package session

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"github.com/starford/orgboard/internal/apperr"
	"github.com/starford/orgboard/internal/chart"
	"github.com/starford/orgboard/internal/metrics"
	"github.com/starford/orgboard/internal/models"
	"github.com/starford/orgboard/internal/storage"
	"github.com/starford/orgboard/internal/storage/mocks"
)

type recordedEvent struct {
	kind    string
	payload any
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (r *recordingNotifier) Notify(kind string, payload any) {
	r.mu.Lock()
	r.events = append(r.events, recordedEvent{kind: kind, payload: payload})
	r.mu.Unlock()
}

func (r *recordingNotifier) kinds() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.events))
	for i, e := range r.events {
		out[i] = e.kind
	}
	return out
}

func sequentialIDs() chart.IDGenerator {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%d", n)
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// =============================================================================
// Store Test Suite
// =============================================================================
// The store is exercised against the in-memory gateway for lifecycle and
// editing flows, and against a gomock gateway for persistence failures.

type StoreSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	mockGW   *mocks.MockGateway
	memGW    *storage.MemoryGateway
	notifier *recordingNotifier
	metrics  *metrics.Metrics
	store    *Store
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.mockGW = mocks.NewMockGateway(s.ctrl)
	s.memGW = storage.NewMemoryGateway()
	s.notifier = &recordingNotifier{}
	s.metrics = metrics.New()
	s.store = s.newStore(s.memGW)
	s.Require().NoError(s.store.Load(context.Background()))
}

func (s *StoreSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *StoreSuite) newStore(gw storage.Gateway) *Store {
	st, err := New(gw,
		WithLogger(discardLogger()),
		WithIDGenerator(sequentialIDs()),
		WithNotifier(s.notifier),
		WithMetrics(s.metrics),
	)
	s.Require().NoError(err)
	return st
}

func (s *StoreSuite) snapshot() models.Chart {
	c, err := s.store.Snapshot()
	s.Require().NoError(err)
	return c
}

func (s *StoreSuite) rolesAt(c models.Chart, dept, level string) []string {
	di := c.DepartmentIndex(dept)
	s.Require().GreaterOrEqual(di, 0, "department %s", dept)
	li := c.Departments[di].LevelIndex(level)
	s.Require().GreaterOrEqual(li, 0, "level %s", level)
	return c.Departments[di].Levels[li].Roles
}

func at(dept, level string, i int) models.Location {
	return models.Location{DepartmentID: dept, LevelID: level, Index: i}
}

var available = at(models.AvailableRolesID, models.AvailableRolesLevelID, 0)

// =============================================================================
// Constructor and lifecycle
// =============================================================================

func (s *StoreSuite) TestNew() {
	s.Run("nil gateway returns error", func() {
		_, err := New(nil)
		s.Error(err)
		s.Contains(err.Error(), "gateway is required")
	})

	s.Run("new store is loading and rejects edits", func() {
		st := s.newStore(storage.NewMemoryGateway())
		s.Equal(StateLoading, st.State())
		s.Equal("loading", st.State().String())

		_, err := st.AddDepartment("Engineering")
		s.ErrorIs(err, ErrNotReady)
		s.ErrorIs(err, apperr.ErrUnavailable)
		s.ErrorIs(st.AddRole(context.Background(), "Engineer"), ErrNotReady)
		_, err = st.Snapshot()
		s.ErrorIs(err, ErrNotReady)
		s.ErrorIs(st.Save(context.Background()), ErrNotReady)
	})
}

func (s *StoreSuite) TestFreshChart() {
	c := s.snapshot()
	s.Equal(StateReady, s.store.State())
	s.False(s.store.Dirty())
	s.Require().Len(c.Departments, 1)
	s.Equal(models.AvailableRolesName, c.Departments[0].Name)
	s.Require().Len(c.Departments[0].Levels, 1)
	s.Empty(c.Departments[0].Levels[0].Roles)
}

func (s *StoreSuite) TestLoadFailureKeepsLoadingState() {
	st := s.newStore(s.mockGW)
	s.mockGW.EXPECT().Load(gomock.Any()).Return(models.Chart{}, errors.New("connection refused"))

	err := st.Load(context.Background())
	var perr *chart.PersistError
	s.Require().ErrorAs(err, &perr)
	s.Equal("load", perr.Op)
	s.ErrorIs(err, apperr.ErrUnavailable)
	s.Equal(StateLoading, st.State())
}

// =============================================================================
// Editing
// =============================================================================

func (s *StoreSuite) TestAddDepartmentAndLevel() {
	deptID, err := s.store.AddDepartment("  Engineering ")
	s.Require().NoError(err)
	s.Equal("id-1", deptID)
	s.True(s.store.Dirty())

	levelID, err := s.store.AddLevel(deptID)
	s.Require().NoError(err)
	s.Equal("id-3", levelID)

	c := s.snapshot()
	s.Require().Len(c.Departments, 2)
	eng := c.Departments[1]
	s.Equal("Engineering", eng.Name)
	s.Require().Len(eng.Levels, 2)
	s.Equal("id-2", eng.Levels[0].ID)
	s.Equal("id-3", eng.Levels[1].ID)

	s.Equal([]string{EventDepartmentAdded, EventLevelAdded}, s.notifier.kinds())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Mutations.WithLabelValues("add_department", "ok")))
}

func (s *StoreSuite) TestAddDepartment_DuplicateNamesAllowed() {
	a, err := s.store.AddDepartment("Sales")
	s.Require().NoError(err)
	b, err := s.store.AddDepartment("Sales")
	s.Require().NoError(err)
	s.NotEqual(a, b)
	s.Len(s.snapshot().Departments, 3)
}

func (s *StoreSuite) TestAddDepartment_InvalidName() {
	for _, name := range []string{"", "   "} {
		_, err := s.store.AddDepartment(name)
		s.ErrorIs(err, apperr.ErrInvalid, "name %q", name)
	}
	long := make([]rune, MaxNameLength+1)
	for i := range long {
		long[i] = 'x'
	}
	_, err := s.store.AddDepartment(string(long))
	s.ErrorIs(err, apperr.ErrInvalid)
	s.False(s.store.Dirty())
}

func (s *StoreSuite) TestAddLevel_UnknownDepartment() {
	before := s.snapshot()
	_, err := s.store.AddLevel("nope")
	var unknown *chart.UnknownDepartmentError
	s.Require().ErrorAs(err, &unknown)
	s.ErrorIs(err, apperr.ErrNotFound)
	s.True(before.Equal(s.snapshot()))
	s.False(s.store.Dirty())
}

func (s *StoreSuite) TestAddRole_AutoPersists() {
	s.Require().NoError(s.store.AddRole(context.Background(), "Engineer"))

	s.False(s.store.Dirty())
	s.Equal(1, s.memGW.Saves())
	stored, err := s.memGW.Load(context.Background())
	s.Require().NoError(err)
	s.Equal([]string{"Engineer"}, s.rolesAt(stored, models.AvailableRolesID, models.AvailableRolesLevelID))
	s.Equal([]string{EventRoleAdded}, s.notifier.kinds())
}

func (s *StoreSuite) TestAddRole_PersistsPendingEditsToo() {
	deptID, err := s.store.AddDepartment("Design")
	s.Require().NoError(err)
	s.True(s.store.Dirty())

	s.Require().NoError(s.store.AddRole(context.Background(), "Illustrator"))
	s.False(s.store.Dirty())

	stored, err := s.memGW.Load(context.Background())
	s.Require().NoError(err)
	s.GreaterOrEqual(stored.DepartmentIndex(deptID), 0)
}

func (s *StoreSuite) TestAddRole_DuplicateRejected() {
	ctx := context.Background()
	s.Require().NoError(s.store.AddRole(ctx, "Engineer"))

	err := s.store.AddRole(ctx, "engineer")
	var dup *chart.DuplicateRoleError
	s.Require().ErrorAs(err, &dup)
	s.ErrorIs(err, apperr.ErrAlreadyExists)
	s.Equal(1, s.snapshot().RoleCount())
	s.Equal(1, s.memGW.Saves())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Mutations.WithLabelValues("add_role", "error")))
}

func (s *StoreSuite) TestAddRole_SaveFailureKeepsRoleAndDirty() {
	st := s.newStore(s.mockGW)
	ctx := context.Background()
	s.mockGW.EXPECT().Load(gomock.Any()).Return(models.DefaultChart(), nil)
	s.Require().NoError(st.Load(ctx))

	s.mockGW.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("timeout"))
	err := st.AddRole(ctx, "Engineer")

	var perr *chart.PersistError
	s.Require().ErrorAs(err, &perr)
	s.Equal("save", perr.Op)
	s.True(st.Dirty())
	c, _ := st.Snapshot()
	s.Equal(1, c.RoleCount())
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Dirty))

	s.mockGW.EXPECT().Save(gomock.Any(), gomock.Any()).Return(nil)
	s.Require().NoError(st.Save(ctx))
	s.False(st.Dirty())
	s.Equal(0.0, testutil.ToFloat64(s.metrics.Dirty))
}

func (s *StoreSuite) seedRoles(names ...string) {
	for _, n := range names {
		s.Require().NoError(s.store.AddRole(context.Background(), n))
	}
}

func (s *StoreSuite) TestMoveRole_CrossDepartment() {
	s.seedRoles("Backend")
	deptID, err := s.store.AddDepartment("Engineering")
	s.Require().NoError(err)
	levelID := s.snapshot().Departments[1].Levels[0].ID

	out, err := s.store.MoveRole("Backend", available, at(deptID, levelID, 0))
	s.Require().NoError(err)
	s.Empty(s.rolesAt(out, models.AvailableRolesID, models.AvailableRolesLevelID))
	s.Equal([]string{"Backend"}, s.rolesAt(out, deptID, levelID))
	s.True(s.store.Dirty())
	s.True(out.Equal(s.snapshot()))
}

func (s *StoreSuite) TestMoveRole_SameLevelReorder() {
	s.seedRoles("A", "B", "C")

	out, err := s.store.MoveRole("A", available, at(models.AvailableRolesID, models.AvailableRolesLevelID, 2))
	s.Require().NoError(err)
	s.Equal([]string{"B", "C", "A"}, s.rolesAt(out, models.AvailableRolesID, models.AvailableRolesLevelID))

	out, err = s.store.MoveRole("A", at(models.AvailableRolesID, models.AvailableRolesLevelID, 2), available)
	s.Require().NoError(err)
	s.Equal([]string{"A", "B", "C"}, s.rolesAt(out, models.AvailableRolesID, models.AvailableRolesLevelID))
}

func (s *StoreSuite) TestMoveRole_StaleLeavesChartUnchanged() {
	s.seedRoles("A", "B")
	before := s.snapshot()

	_, err := s.store.MoveRole("A", at(models.AvailableRolesID, models.AvailableRolesLevelID, 1), available)
	var stale *chart.StaleMoveError
	s.Require().ErrorAs(err, &stale)
	s.ErrorIs(err, apperr.ErrConflict)
	s.True(before.Equal(s.snapshot()))
	s.False(s.store.Dirty())
}

func (s *StoreSuite) TestMoveRole_UnknownTarget() {
	s.seedRoles("A")
	_, err := s.store.MoveRole("A", available, at("missing", "level", 0))
	var unknown *chart.UnknownTargetError
	s.Require().ErrorAs(err, &unknown)
	s.False(s.store.Dirty())
}

func (s *StoreSuite) TestMoveRole_SameSlotMarksDirty() {
	s.seedRoles("A")
	before := s.snapshot()
	out, err := s.store.MoveRole("A", available, available)
	s.Require().NoError(err)
	s.True(before.Equal(out))
	s.True(s.store.Dirty())
}

// =============================================================================
// Save and reload
// =============================================================================

func (s *StoreSuite) TestSave_CleanBaseline() {
	_, err := s.store.AddDepartment("Ops")
	s.Require().NoError(err)
	s.Require().NoError(s.store.Save(context.Background()))
	s.False(s.store.Dirty())
	s.Contains(s.notifier.kinds(), EventChartSaved)
	s.Equal(1.0, testutil.ToFloat64(s.metrics.Saves.WithLabelValues("ok")))
}

func (s *StoreSuite) TestSave_FailureStaysDirty() {
	st := s.newStore(s.mockGW)
	ctx := context.Background()
	s.mockGW.EXPECT().Load(gomock.Any()).Return(models.DefaultChart(), nil)
	s.Require().NoError(st.Load(ctx))
	_, err := st.AddDepartment("Ops")
	s.Require().NoError(err)

	s.mockGW.EXPECT().Save(gomock.Any(), gomock.Any()).Return(errors.New("disk full"))
	err = st.Save(ctx)
	s.ErrorIs(err, apperr.ErrUnavailable)
	s.True(st.Dirty())
	c, _ := st.Snapshot()
	s.Len(c.Departments, 2)
	s.NotContains(s.notifier.kinds(), EventChartSaved)
}

func (s *StoreSuite) TestSave_SendsFullSnapshot() {
	st := s.newStore(s.mockGW)
	ctx := context.Background()
	s.mockGW.EXPECT().Load(gomock.Any()).Return(models.DefaultChart(), nil)
	s.Require().NoError(st.Load(ctx))
	deptID, err := st.AddDepartment("Ops")
	s.Require().NoError(err)

	s.mockGW.EXPECT().Save(gomock.Any(), gomock.Any()).DoAndReturn(func(_ context.Context, c models.Chart) error {
		s.Len(c.Departments, 2)
		s.Equal(deptID, c.Departments[1].ID)
		return nil
	})
	s.Require().NoError(st.Save(ctx))
}

func (s *StoreSuite) TestReload_DiscardsEdits() {
	s.seedRoles("Engineer")
	_, err := s.store.AddDepartment("Unsaved")
	s.Require().NoError(err)
	s.True(s.store.Dirty())

	s.Require().NoError(s.store.Reload(context.Background()))
	c := s.snapshot()
	s.Len(c.Departments, 1)
	s.Equal(1, c.RoleCount())
	s.False(s.store.Dirty())
	s.Contains(s.notifier.kinds(), EventChartReloaded)
}

func (s *StoreSuite) TestReload_FailureKeepsEdits() {
	st := s.newStore(s.mockGW)
	ctx := context.Background()
	s.mockGW.EXPECT().Load(gomock.Any()).Return(models.DefaultChart(), nil)
	s.Require().NoError(st.Load(ctx))
	_, err := st.AddDepartment("Unsaved")
	s.Require().NoError(err)

	s.mockGW.EXPECT().Load(gomock.Any()).Return(models.Chart{}, errors.New("unreachable"))
	s.Error(st.Reload(ctx))
	s.Equal(StateReady, st.State())
	s.True(st.Dirty())
	c, _ := st.Snapshot()
	s.Len(c.Departments, 2)
}

// =============================================================================
// Queries
// =============================================================================

func (s *StoreSuite) TestLookup() {
	s.seedRoles("iOS Developer")
	p, err := s.store.Lookup("ios developer")
	s.Require().NoError(err)
	s.Equal("iOS Developer", p.Role)
	s.Equal(models.AvailableRolesName, p.DepartmentName)
	s.Equal(0, p.Index)

	_, err = s.store.Lookup("ghost")
	s.ErrorIs(err, apperr.ErrNotFound)
}

func (s *StoreSuite) TestSearchAndStatus() {
	s.seedRoles("Backend Engineer", "Designer")
	hits, err := s.store.Search("engineer", 0)
	s.Require().NoError(err)
	s.Require().Len(hits, 1)
	s.Equal("Backend Engineer", hits[0].Role)

	st := s.store.Status()
	s.Equal(Status{State: "ready", Dirty: false, Departments: 1, Roles: 2}, st)
}

func (s *StoreSuite) TestInvariantsAcrossOperations() {
	ctx := context.Background()
	s.seedRoles("A", "B", "C")
	deptID, _ := s.store.AddDepartment("Eng")
	levelID, _ := s.store.AddLevel(deptID)
	_, err := s.store.MoveRole("B", at(models.AvailableRolesID, models.AvailableRolesLevelID, 1), at(deptID, levelID, 5))
	s.Require().NoError(err)
	s.Error(s.store.AddRole(ctx, "b"))

	c := s.snapshot()
	s.NoError(chart.Validate(c))
	s.Equal(3, c.RoleCount())
	s.Equal([]string{"B"}, s.rolesAt(c, deptID, levelID))
}

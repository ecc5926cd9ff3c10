package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/solution-builder/internal/categories"
	"github.com/terra-clan/solution-builder/internal/models"
	"github.com/terra-clan/solution-builder/internal/parameters"
	"github.com/terra-clan/solution-builder/internal/reconciler"
	"github.com/terra-clan/solution-builder/internal/wizard"
)

type fakeCatalog struct {
	err error
}

func (f *fakeCatalog) FetchIndustries(ctx context.Context) ([]models.Industry, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []models.Industry{{ID: "I1", Name: "Data Centers"}}, nil
}

func (f *fakeCatalog) FetchTechnologies(ctx context.Context) ([]models.Technology, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []models.Technology{{ID: "T1", Name: "Liquid Cooling"}}, nil
}

func (f *fakeCatalog) FetchSolutionTypes(ctx context.Context, industryID, technologyID string) ([]models.SolutionType, error) {
	return []models.SolutionType{{ID: "S1", Name: "Direct to chip", Description: "Cold plates"}}, nil
}

func (f *fakeCatalog) FetchSolutionVariants(ctx context.Context, solutionID string) ([]models.SolutionVariant, error) {
	return []models.SolutionVariant{{ID: "V1", SolutionID: solutionID, Name: "Standard"}}, nil
}

type fakeStore struct {
	mu        sync.Mutex
	solutions map[string][]models.ClientSolution
	created   []*models.ClientSolution
	updates   map[string]*models.ClientSolutionPatch
	createErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		solutions: make(map[string][]models.ClientSolution),
		updates:   make(map[string]*models.ClientSolutionPatch),
	}
}

func (f *fakeStore) FetchExistingClientSolutions(ctx context.Context, clientID string) ([]models.ClientSolution, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.solutions[clientID], nil
}

func (f *fakeStore) CreateSolution(ctx context.Context, req *models.NewSolutionRequest) (string, error) {
	return "sol-new", nil
}

func (f *fakeStore) CreateSolutionVariant(ctx context.Context, req *models.NewSolutionVariantRequest) (string, error) {
	return "var-new", nil
}

func (f *fakeStore) CreateClientSolution(ctx context.Context, cs *models.ClientSolution) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, cs)
	return fmt.Sprintf("cs-%d", len(f.created)), nil
}

func (f *fakeStore) UpdateClientSolution(ctx context.Context, id string, patch *models.ClientSolutionPatch) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.updates[id] = patch
	return nil
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestManager(t *testing.T, catalog wizard.Catalog, store *fakeStore) (*MemoryManager, *clock) {
	t.Helper()
	c := &clock{now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)}
	rec := reconciler.New(store, nil, []models.Parameter{{
		ID:            "g-price",
		Name:          "Electricity Price",
		Value:         "0.12",
		Unit:          "USD/kWh",
		Category:      models.CategoryRef{Name: models.GlobalCategory, Color: models.ColorBlue},
		UserInterface: models.UserInterface{Type: models.InterfaceNotViewable},
	}})
	m := NewManager(catalog, rec, Options{TTL: time.Hour, Now: c.Now})
	return m, c
}

func selectExisting(t *testing.T, s *Session, variantID string) Snapshot {
	t.Helper()
	ctx := context.Background()

	_, err := s.Apply(ctx, wizard.Event{Type: wizard.EventSelectIndustry, ID: "I1"})
	require.NoError(t, err)
	_, err = s.Apply(ctx, wizard.Event{Type: wizard.EventSelectTechnology, ID: "T1"})
	require.NoError(t, err)
	_, err = s.Apply(ctx, wizard.Event{Type: wizard.EventSelectSolutionType, ID: "S1"})
	require.NoError(t, err)
	snap, err := s.Apply(ctx, wizard.Event{Type: wizard.EventSelectSolutionVariant, ID: variantID})
	if err != nil {
		require.ErrorIs(t, err, reconciler.ErrNotFoundWarning)
	}
	return snap
}

func TestCreate(t *testing.T) {
	m, _ := newTestManager(t, &fakeCatalog{}, newFakeStore())

	_, err := m.Create(context.Background(), "", "u1")
	assert.ErrorIs(t, err, ErrClientRequired)

	s, err := m.Create(context.Background(), "C1", "u1")
	require.NoError(t, err)
	assert.NotEmpty(t, s.ID)
	assert.Equal(t, 1, m.Count())

	snap := s.Snapshot()
	assert.Equal(t, "C1", snap.ClientID)
	assert.Len(t, snap.State.Industries, 1)
	assert.Len(t, snap.State.Technologies, 1)
	assert.Equal(t, wizard.StepSelect, snap.State.Step)
	assert.False(t, snap.CanAdvance)
	assert.Equal(t, categories.AllTab, snap.ActiveParameterTab)
}

func TestCreateWithCatalogFailure(t *testing.T) {
	m, _ := newTestManager(t, &fakeCatalog{err: errors.New("db down")}, newFakeStore())

	s, err := m.Create(context.Background(), "C1", "u1")
	require.NoError(t, err)
	assert.Empty(t, s.Snapshot().State.Industries)
}

func TestGet(t *testing.T) {
	m, c := newTestManager(t, &fakeCatalog{}, newFakeStore())
	ctx := context.Background()

	s, err := m.Create(ctx, "C1", "u1")
	require.NoError(t, err)

	got, err := m.Get(ctx, s.ID, "C1")
	require.NoError(t, err)
	assert.Same(t, s, got)

	_, err = m.Get(ctx, "missing", "C1")
	assert.ErrorIs(t, err, ErrSessionNotFound)

	_, err = m.Get(ctx, s.ID, "C2")
	assert.ErrorIs(t, err, ErrClientMismatch)

	c.Advance(2 * time.Hour)
	_, err = m.Get(ctx, s.ID, "C1")
	assert.ErrorIs(t, err, ErrSessionExpired)

	expired, err := m.GetExpired(ctx)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, s.ID, expired[0].ID)
}

func TestActivityExtendsSession(t *testing.T) {
	m, c := newTestManager(t, &fakeCatalog{}, newFakeStore())
	ctx := context.Background()

	s, err := m.Create(ctx, "C1", "u1")
	require.NoError(t, err)

	c.Advance(50 * time.Minute)
	s.SetParameterFilter("", "temp")

	c.Advance(50 * time.Minute)
	_, err = m.Get(ctx, s.ID, "C1")
	assert.NoError(t, err)
}

func TestList(t *testing.T) {
	m, c := newTestManager(t, &fakeCatalog{}, newFakeStore())
	ctx := context.Background()

	first, err := m.Create(ctx, "C1", "u1")
	require.NoError(t, err)
	c.Advance(time.Minute)
	second, err := m.Create(ctx, "C1", "u1")
	require.NoError(t, err)
	_, err = m.Create(ctx, "C2", "u1")
	require.NoError(t, err)

	sessions, err := m.List(ctx, "C1")
	require.NoError(t, err)
	require.Len(t, sessions, 2)
	assert.Equal(t, second.ID, sessions[0].ID)
	assert.Equal(t, first.ID, sessions[1].ID)
}

func TestExistingSolutionLoadAndSave(t *testing.T) {
	store := newFakeStore()
	store.solutions["C1"] = []models.ClientSolution{{
		ID:       "V1",
		ClientID: "C1",
		Parameters: []models.Parameter{
			{ID: "p1", Name: "Inlet", Unit: "C", IsModifiable: true, Category: models.CategoryRef{Name: "Cooling"}},
			{ID: "p2", Name: "Outlet", Unit: "C", IsModifiable: true, Category: models.CategoryRef{Name: "Cooling"}},
			{ID: "p3", Name: "Flow", Unit: "l/min", IsModifiable: true, Category: models.CategoryRef{Name: "Hydraulics"}},
		},
	}}
	m, _ := newTestManager(t, &fakeCatalog{}, store)
	ctx := context.Background()

	s, err := m.Create(ctx, "C1", "u1")
	require.NoError(t, err)

	snap := selectExisting(t, s, "V1")
	assert.True(t, snap.State.IsExistingSolutionLoaded)
	assert.Equal(t, "V1", snap.State.ExistingSolutionID)
	assert.Equal(t, 3, snap.ParameterCount)
	assert.Equal(t, []string{"all", "Cooling", "Hydraulics"}, snap.ParameterTabs)
	assert.True(t, snap.CanAdvance)

	res, err := m.Save(ctx, s.ID, "C1", models.SaveDraft)
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.Contains(t, store.updates, "V1")
	assert.Empty(t, store.created)

	_, err = m.Get(ctx, s.ID, "C1")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestNewVariantSave(t *testing.T) {
	store := newFakeStore()
	m, _ := newTestManager(t, &fakeCatalog{}, store)
	ctx := context.Background()

	s, err := m.Create(ctx, "C1", "u1")
	require.NoError(t, err)
	selectExisting(t, s, "V1")

	snap, err := s.Apply(ctx, wizard.Event{Type: wizard.EventCreateNewVariant})
	require.NoError(t, err)
	assert.True(t, snap.State.IsCreatingNewVariant)
	assert.True(t, wizard.IsPlaceholderID(snap.State.SelectedSolutionVariantID))
	assert.Equal(t, 0, snap.ParameterCount)

	_, err = s.Apply(ctx, wizard.Event{Type: wizard.EventUpdateNewVariant, Draft: wizard.Draft{Name: "Compact", Description: "Half rack"}})
	require.NoError(t, err)

	res, err := m.Save(ctx, s.ID, "C1", models.SaveSubmitForReview)
	require.NoError(t, err)
	assert.False(t, res.Updated)
	assert.Equal(t, "var-new", res.SolutionVariantID)
	require.Len(t, store.created, 1)
	assert.Equal(t, models.StatusPending, store.created[0].Status)
}

func TestFailedSaveKeepsSession(t *testing.T) {
	store := newFakeStore()
	store.createErr = errors.New("insert failed")
	m, _ := newTestManager(t, &fakeCatalog{}, store)
	ctx := context.Background()

	s, err := m.Create(ctx, "C1", "u1")
	require.NoError(t, err)
	selectExisting(t, s, "V9")

	_, err = m.Save(ctx, s.ID, "C1", models.SaveDraft)
	require.Error(t, err)
	assert.ErrorIs(t, err, reconciler.ErrPersistFailed)

	_, err = m.Get(ctx, s.ID, "C1")
	assert.NoError(t, err)
}

func TestNotFoundSeedsGlobals(t *testing.T) {
	m, _ := newTestManager(t, &fakeCatalog{}, newFakeStore())

	s, err := m.Create(context.Background(), "C1", "u1")
	require.NoError(t, err)

	snap := selectExisting(t, s, "V1")
	assert.False(t, snap.State.IsExistingSolutionLoaded)
	assert.Equal(t, 1, snap.ParameterCount)

	view := s.Parameters()
	require.Len(t, view.Parameters, 1)
	assert.Equal(t, "Electricity Price", view.Parameters[0].Name)
	assert.Equal(t, models.InterfaceNotViewable, view.Parameters[0].UserInterface.Type)
	assert.False(t, view.Parameters[0].IsModifiable)
}

func TestParameterEditing(t *testing.T) {
	m, _ := newTestManager(t, &fakeCatalog{}, newFakeStore())

	s, err := m.Create(context.Background(), "C1", "u1")
	require.NoError(t, err)

	tab, err := s.AddParameterCategory("Cooling", models.ColorTeal)
	require.NoError(t, err)
	assert.Equal(t, "Cooling", tab)

	_, err = s.AddParameterCategory("Cooling", models.ColorRed)
	assert.ErrorIs(t, err, parameters.ErrDuplicateCategory)

	added, err := s.AddParameter(models.Parameter{
		Name:     "Inlet temperature",
		Unit:     "C",
		Category: models.CategoryRef{Name: "Cooling"},
	})
	require.NoError(t, err)
	assert.Equal(t, models.ColorTeal, added.Category.Color)
	assert.True(t, added.IsModifiable)

	_, err = s.AddParameter(models.Parameter{Name: "inlet temperature", Unit: "C"})
	assert.ErrorIs(t, err, parameters.ErrDuplicateParameter)

	_, err = s.AddParameter(models.Parameter{
		Name:          "Rack count",
		Unit:          "racks",
		UserInterface: models.UserInterface{Type: models.InterfaceStatic},
		DisplayType:   models.DisplaySimple,
	})
	assert.ErrorIs(t, err, parameters.ErrMissingRequiredValue)
	assert.Empty(t, s.Snapshot().ActiveEditID)

	added.Value = "18"
	updated, err := s.UpdateParameter(added)
	require.NoError(t, err)
	assert.Equal(t, "18", updated.Value)

	view := s.Parameters()
	assert.Equal(t, "Cooling", view.ActiveTab)
	require.Len(t, view.Parameters, 1)

	s.SetParameterFilter(categories.AllTab, "nothing matches")
	assert.Empty(t, s.Parameters().Parameters)
	assert.True(t, s.HandleParameterKey("Escape"))
	assert.Len(t, s.Parameters().Parameters, 1)

	removed, err := s.RemoveParameterCategory("Cooling")
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 0, s.Parameters().Total)

	_, err = s.RemoveParameterCategory(models.GlobalCategory)
	assert.ErrorIs(t, err, categories.ErrReservedCategory)
}

func TestParameterEditProtocol(t *testing.T) {
	m, _ := newTestManager(t, &fakeCatalog{}, newFakeStore())

	s, err := m.Create(context.Background(), "C1", "u1")
	require.NoError(t, err)
	selectExisting(t, s, "V1")

	added, err := s.AddParameter(models.Parameter{Name: "Inlet temperature", Unit: "C"})
	require.NoError(t, err)

	view := s.Parameters()
	require.Len(t, view.Parameters, 2)
	assert.True(t, view.CanAdd)
	assert.False(t, view.Parameters[0].CanEdit, "global copies are read-only")
	assert.True(t, view.Parameters[1].CanEdit)

	draft, err := s.BeginParameterEdit(added.ID)
	require.NoError(t, err)
	assert.Equal(t, added.ID, s.Snapshot().ActiveEditID)

	_, err = s.BeginParameterEdit(added.ID)
	assert.ErrorIs(t, err, parameters.ErrEditInProgress)
	_, err = s.BeginParameterAdd()
	assert.ErrorIs(t, err, parameters.ErrEditInProgress)
	_, err = s.AddParameter(models.Parameter{Name: "Outlet temperature", Unit: "C"})
	assert.ErrorIs(t, err, parameters.ErrEditInProgress)
	assert.ErrorIs(t, s.RemoveParameter(added.ID), parameters.ErrEditInProgress)

	view = s.Parameters()
	assert.False(t, view.CanAdd)
	assert.Equal(t, added.ID, view.ActiveEditID)
	require.NotNil(t, view.Draft)
	for _, item := range view.Parameters {
		assert.False(t, item.CanEdit, item.Name)
	}

	draft.Value = "21"
	_, err = s.UpdateParameterDraft("param-other", draft)
	assert.ErrorIs(t, err, parameters.ErrNotActiveEdit)

	updated, err := s.UpdateParameterDraft(added.ID, draft)
	require.NoError(t, err)
	assert.Equal(t, "21", updated.Value)
	assert.Empty(t, s.Parameters().Parameters[1].Value, "draft is not committed before save")

	saved, err := s.SaveParameterDraft(added.ID)
	require.NoError(t, err)
	assert.Equal(t, "21", saved.Value)
	assert.Empty(t, s.Snapshot().ActiveEditID)

	// a rejected draft stays open until cancelled
	fresh, err := s.BeginParameterAdd()
	require.NoError(t, err)
	_, err = s.UpdateParameterDraft(fresh.ID, models.Parameter{Name: "inlet temperature", Unit: "C"})
	require.NoError(t, err)
	_, err = s.SaveParameterDraft(fresh.ID)
	assert.ErrorIs(t, err, parameters.ErrDuplicateParameter)
	assert.Equal(t, fresh.ID, s.Snapshot().ActiveEditID)

	require.NoError(t, s.CancelParameterEdit(fresh.ID))
	assert.Empty(t, s.Snapshot().ActiveEditID)
	assert.Equal(t, 2, s.Parameters().Total)

	_, err = s.BeginParameterEdit(s.Parameters().Parameters[0].ID)
	assert.ErrorIs(t, err, parameters.ErrParameterLocked)
}

func TestReviewListsExportableOnly(t *testing.T) {
	m, _ := newTestManager(t, &fakeCatalog{}, newFakeStore())

	s, err := m.Create(context.Background(), "C1", "u1")
	require.NoError(t, err)
	selectExisting(t, s, "V1")

	_, err = s.AddParameter(models.Parameter{Name: "Rack density", Unit: "kW", Output: true})
	require.NoError(t, err)
	_, err = s.AddParameter(models.Parameter{Name: "Internal margin", Unit: "%"})
	require.NoError(t, err)
	_, err = s.AddCalculation(models.Calculation{Name: "Energy cost", Output: true})
	require.NoError(t, err)
	_, err = s.AddCalculation(models.Calculation{Name: "Scratch"})
	require.NoError(t, err)

	review := s.Review()
	require.Len(t, review.Parameters, 1)
	assert.Equal(t, "Rack density", review.Parameters[0].Name)
	require.Len(t, review.Calculations, 1)
	assert.Equal(t, "Energy cost", review.Calculations[0].Name)
	assert.Equal(t, "V1", review.State.SelectedSolutionVariantID)
}

func TestEndDropsSaveProgress(t *testing.T) {
	store := newFakeStore()
	store.createErr = errors.New("insert failed")
	progress := reconciler.NewMemoryProgressStore()
	m := NewManager(&fakeCatalog{}, reconciler.New(store, progress, nil), Options{TTL: time.Hour})
	ctx := context.Background()

	s, err := m.Create(ctx, "C1", "u1")
	require.NoError(t, err)
	selectExisting(t, s, "V1")
	_, err = s.Apply(ctx, wizard.Event{Type: wizard.EventCreateNewVariant})
	require.NoError(t, err)

	_, err = m.Save(ctx, s.ID, "C1", models.SaveDraft)
	require.ErrorIs(t, err, reconciler.ErrPersistFailed)

	p, err := progress.Get(ctx, s.ID)
	require.NoError(t, err)
	require.NotNil(t, p)
	assert.Equal(t, "var-new", p.SolutionVariantID)

	require.NoError(t, m.End(ctx, s.ID))

	p, err = progress.Get(ctx, s.ID)
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestRemoveActiveCategoryResetsTab(t *testing.T) {
	m, _ := newTestManager(t, &fakeCatalog{}, newFakeStore())

	s, err := m.Create(context.Background(), "C1", "u1")
	require.NoError(t, err)

	_, err = s.AddParameterCategory("Power", models.ColorYellow)
	require.NoError(t, err)
	assert.Equal(t, "Power", s.Snapshot().ActiveParameterTab)

	_, err = s.RemoveParameterCategory("Power")
	require.NoError(t, err)
	assert.Equal(t, categories.AllTab, s.Snapshot().ActiveParameterTab)
}

func TestCalculations(t *testing.T) {
	m, _ := newTestManager(t, &fakeCatalog{}, newFakeStore())
	m.calcDefaults = []models.CategoryRef{{Name: "capex", Color: models.ColorGreen}, {Name: "opex", Color: models.ColorBlue}}

	s, err := m.Create(context.Background(), "C1", "u1")
	require.NoError(t, err)

	_, err = s.AddCalculation(models.Calculation{Name: "  "})
	assert.ErrorIs(t, err, ErrCalculationNameRequired)

	calc, err := s.AddCalculation(models.Calculation{Name: "Energy cost", Formula: "{power} * {price}", Category: models.CategoryRef{Name: "opex"}})
	require.NoError(t, err)
	assert.NotEmpty(t, calc.ID)
	assert.Equal(t, models.ColorBlue, calc.Category.Color)
	assert.Equal(t, models.CalculationPending, calc.Status)

	_, err = s.AddCalculationCategory("savings", models.ColorGreen)
	require.NoError(t, err)

	view := s.Calculations()
	assert.Equal(t, "savings", view.ActiveTab)
	assert.Equal(t, []string{"all", "capex", "opex", "savings"}, view.Tabs)
	assert.Empty(t, view.Calculations)

	s.SetCalculationFilter("OPEX", "energy")
	assert.Len(t, s.Calculations().Calculations, 1)

	_, err = s.RemoveCalculationCategory("capex")
	assert.ErrorIs(t, err, categories.ErrReservedCategory)
}

func TestSubscribe(t *testing.T) {
	m, _ := newTestManager(t, &fakeCatalog{}, newFakeStore())
	ctx := context.Background()

	s, err := m.Create(ctx, "C1", "u1")
	require.NoError(t, err)

	updates, cancel := s.Subscribe()
	defer cancel()

	_, err = s.Apply(ctx, wizard.Event{Type: wizard.EventSelectIndustry, ID: "I1"})
	require.NoError(t, err)

	select {
	case snap := <-updates:
		assert.Equal(t, "I1", snap.State.SelectedIndustry)
	case <-time.After(time.Second):
		t.Fatal("expected a snapshot")
	}

	require.NoError(t, m.End(ctx, s.ID))
	_, open := <-updates
	assert.False(t, open)

	assert.ErrorIs(t, m.End(ctx, s.ID), ErrSessionNotFound)
	assert.NotPanics(t, cancel)
}

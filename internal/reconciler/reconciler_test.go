package reconciler

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/solution-builder/internal/models"
	"github.com/terra-clan/solution-builder/internal/parameters"
	"github.com/terra-clan/solution-builder/internal/wizard"
)

type fakeStore struct {
	solutions map[string][]models.ClientSolution
	fetchErr  error

	createSolutionErr error
	createVariantErr  error
	createClientErr   error
	updateErr         error

	createdSolutions []*models.NewSolutionRequest
	createdVariants  []*models.NewSolutionVariantRequest
	createdClients   []*models.ClientSolution
	updates          map[string]*models.ClientSolutionPatch
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		solutions: make(map[string][]models.ClientSolution),
		updates:   make(map[string]*models.ClientSolutionPatch),
	}
}

func (f *fakeStore) FetchExistingClientSolutions(ctx context.Context, clientID string) ([]models.ClientSolution, error) {
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.solutions[clientID], nil
}

func (f *fakeStore) CreateSolution(ctx context.Context, req *models.NewSolutionRequest) (string, error) {
	if f.createSolutionErr != nil {
		return "", f.createSolutionErr
	}
	f.createdSolutions = append(f.createdSolutions, req)
	return fmt.Sprintf("sol-%d", len(f.createdSolutions)), nil
}

func (f *fakeStore) CreateSolutionVariant(ctx context.Context, req *models.NewSolutionVariantRequest) (string, error) {
	if f.createVariantErr != nil {
		return "", f.createVariantErr
	}
	f.createdVariants = append(f.createdVariants, req)
	return fmt.Sprintf("var-%d", len(f.createdVariants)), nil
}

func (f *fakeStore) CreateClientSolution(ctx context.Context, cs *models.ClientSolution) (string, error) {
	if f.createClientErr != nil {
		return "", f.createClientErr
	}
	f.createdClients = append(f.createdClients, cs)
	return fmt.Sprintf("cs-%d", len(f.createdClients)), nil
}

func (f *fakeStore) UpdateClientSolution(ctx context.Context, id string, patch *models.ClientSolutionPatch) error {
	if f.updateErr != nil {
		return f.updateErr
	}
	f.updates[id] = patch
	return nil
}

func userParam(id, name string) models.Parameter {
	return models.Parameter{
		ID:            id,
		Name:          name,
		Unit:          "kW",
		Category:      models.CategoryRef{Name: "Cooling", Color: models.ColorTeal},
		UserInterface: models.UserInterface{Type: models.InterfaceInput},
		DisplayType:   models.DisplaySimple,
		IsModifiable:  true,
	}
}

func globalParams() []models.Parameter {
	return []models.Parameter{
		{
			ID:            "g-years",
			Name:          "Planned years of operation",
			Value:         "10",
			Unit:          "years",
			Category:      models.CategoryRef{Name: models.GlobalCategory, Color: models.ColorBlue},
			UserInterface: models.UserInterface{Type: models.InterfaceInput},
			DisplayType:   models.DisplayRange,
			RangeMin:      "1",
			RangeMax:      "10",
			IsModifiable:  true,
		},
	}
}

func selectedState(variantID string) wizard.SelectionState {
	s := wizard.NewState()
	s = wizard.Transition(s, wizard.Event{Type: wizard.EventSelectIndustry, ID: "I1"})
	s = wizard.Transition(s, wizard.Event{Type: wizard.EventSelectTechnology, ID: "T1"})
	s = wizard.Transition(s, wizard.Event{Type: wizard.EventSolutionTypesLoaded, SolutionTypes: []models.SolutionType{
		{ID: "S1", Name: "Direct to chip", Description: "Cold plates", Icon: models.IconCpu},
	}})
	s = wizard.Transition(s, wizard.Event{Type: wizard.EventSelectSolutionType, ID: "S1"})
	s = wizard.Transition(s, wizard.Event{Type: wizard.EventSolutionVariantsLoaded, SolutionVariants: []models.SolutionVariant{
		{ID: "V1", SolutionID: "S1", Name: "Standard", ProductBadge: true},
	}})
	return wizard.Transition(s, wizard.Event{Type: wizard.EventSelectSolutionVariant, ID: variantID})
}

func TestLoadAndSave_ExistingVariantUpdates(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.solutions["C1"] = []models.ClientSolution{{
		ID:       "V1",
		ClientID: "C1",
		Parameters: []models.Parameter{
			userParam("p1", "Inlet temperature"),
			userParam("p2", "Outlet temperature"),
			userParam("p3", "Flow rate"),
		},
		Calculations: []models.Calculation{{ID: "c1", Name: "PUE"}},
	}}

	r := New(store, NewMemoryProgressStore(), globalParams())
	form := NewForm(nil)

	existingID, err := r.LoadExistingSolutionData(ctx, "C1", form, "V1")
	require.NoError(t, err)
	assert.Equal(t, "V1", existingID)
	assert.Equal(t, 3, form.Parameters.Len())
	assert.Len(t, form.Calculations, 1)

	state := wizard.Transition(selectedState("V1"), wizard.Event{Type: wizard.EventExistingSolutionLoaded, ID: existingID})
	require.True(t, state.IsExistingSolutionLoaded)

	res, err := r.Save(ctx, SaveRequest{Key: "sess-1", ClientID: "C1", State: state, Form: form, Mode: models.SaveDraft})
	require.NoError(t, err)
	assert.True(t, res.Updated)
	assert.Equal(t, "V1", res.ClientSolutionID)

	require.Contains(t, store.updates, "V1")
	assert.Equal(t, models.StatusDraft, store.updates["V1"].Status)
	assert.Len(t, store.updates["V1"].Parameters, 3)
	assert.Empty(t, store.createdClients)
	assert.Empty(t, store.createdSolutions)
	assert.Empty(t, store.createdVariants)
}

func TestLoadAndSave_PlaceholderVariantCreates(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	r := New(store, NewMemoryProgressStore(), globalParams())

	form := NewForm(nil)
	form.Parameters.Replace([]models.Parameter{userParam("p1", "Rack count")})

	placeholder := "new-variant-1730000000000"
	existingID, err := r.LoadExistingSolutionData(ctx, "C1", form, placeholder)
	require.NoError(t, err)
	assert.Empty(t, existingID)
	assert.Equal(t, 1, form.Parameters.Len())

	state := selectedState(placeholder)
	state = wizard.Transition(state, wizard.Event{Type: wizard.EventUpdateNewVariant, Draft: wizard.Draft{Name: "Compact", Description: "Half rack"}})
	assert.False(t, state.IsExistingSolutionLoaded)

	res, err := r.Save(ctx, SaveRequest{Key: "sess-2", ClientID: "C1", CreatedBy: "u1", State: state, Form: form, Mode: models.SaveSubmitForReview})
	require.NoError(t, err)
	assert.False(t, res.Updated)

	assert.Empty(t, store.createdSolutions)
	require.Len(t, store.createdVariants, 1)
	assert.Equal(t, "S1", store.createdVariants[0].SolutionID)
	assert.Equal(t, "Compact", store.createdVariants[0].Name)

	require.Len(t, store.createdClients, 1)
	cs := store.createdClients[0]
	assert.Equal(t, "var-1", cs.SolutionVariantID)
	assert.Equal(t, "S1", cs.SolutionID)
	assert.Equal(t, "Direct to chip", cs.SolutionName)
	assert.Equal(t, "Cold plates", cs.SolutionDescription)
	assert.Equal(t, "Compact", cs.SolutionVariantName)
	assert.Equal(t, models.StatusPending, cs.Status)
	assert.Empty(t, store.updates)
}

func TestLoad_NotFoundSeedsGlobals(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	store.solutions["C1"] = []models.ClientSolution{{ID: "other"}}
	r := New(store, nil, globalParams())

	form := NewForm(nil)
	id, err := r.LoadExistingSolutionData(ctx, "C1", form, "V404")
	assert.ErrorIs(t, err, ErrNotFoundWarning)
	assert.Empty(t, id)

	require.Equal(t, 1, form.Parameters.Len())
	seeded := form.Parameters.Parameters()[0]
	assert.Equal(t, "Planned years of operation", seeded.Name)
	assert.False(t, seeded.IsModifiable)
	assert.Equal(t, models.InterfaceNotViewable, seeded.UserInterface.Type)
	assert.Equal(t, models.GlobalCategory, seeded.UserInterface.Category)
	assert.NotEqual(t, "g-years", seeded.ID)

	// a form that already holds data keeps it
	form.Parameters.Replace([]models.Parameter{userParam("p1", "Rack count")})
	_, err = r.LoadExistingSolutionData(ctx, "C1", form, "V404")
	assert.ErrorIs(t, err, ErrNotFoundWarning)
	require.Equal(t, 1, form.Parameters.Len())
	assert.Equal(t, "p1", form.Parameters.Parameters()[0].ID)
}

func TestLoad_FetchError(t *testing.T) {
	store := newFakeStore()
	store.fetchErr = errors.New("timeout")
	r := New(store, nil, nil)

	_, err := r.LoadExistingSolutionData(context.Background(), "C1", NewForm(nil), "V1")
	assert.ErrorIs(t, err, wizard.ErrFetchFailed)

	_, err = r.LoadExistingSolutionData(context.Background(), "", NewForm(nil), "V1")
	assert.ErrorIs(t, err, ErrClientRequired)
}

func TestSave_RetryReusesCreatedSolution(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	r := New(store, NewMemoryProgressStore(), nil)
	form := NewForm(nil)

	s := wizard.NewState()
	s = wizard.Transition(s, wizard.Event{Type: wizard.EventSelectIndustry, ID: "I1"})
	s = wizard.Transition(s, wizard.Event{Type: wizard.EventSelectTechnology, ID: "T1"})
	s = wizard.Transition(s, wizard.Event{Type: wizard.EventCreateNewSolution})
	s = wizard.Transition(s, wizard.Event{Type: wizard.EventUpdateNewSolution, Draft: wizard.Draft{Name: "Immersion", Description: "Tanks", Icon: models.IconDroplet}})
	s = wizard.Transition(s, wizard.Event{Type: wizard.EventCreateNewVariant, ID: wizard.NewVariantPlaceholderID()})

	req := SaveRequest{Key: "sess-3", ClientID: "C1", State: s, Form: form, Mode: models.SaveDraft}

	store.createVariantErr = errors.New("variant service down")
	_, err := r.Save(ctx, req)
	assert.ErrorIs(t, err, ErrPersistFailed)
	require.Len(t, store.createdSolutions, 1)
	assert.Empty(t, store.createdClients)

	store.createVariantErr = nil
	res, err := r.Save(ctx, req)
	require.NoError(t, err)

	assert.Len(t, store.createdSolutions, 1)
	assert.Len(t, store.createdVariants, 1)
	assert.Equal(t, "sol-1", res.SolutionID)
	assert.Equal(t, "var-1", res.SolutionVariantID)
	assert.Equal(t, "Immersion", res.SolutionName)
	assert.Equal(t, "sol-1", store.createdVariants[0].SolutionID)

	cs := store.createdClients[0]
	assert.Equal(t, "Immersion", cs.SolutionName)
	assert.Equal(t, models.IconDroplet, cs.SolutionIcon)

	p, err := r.progress.Get(ctx, "sess-3")
	require.NoError(t, err)
	assert.Nil(t, p)
}

func TestSave_ChangedSelectionIgnoresProgress(t *testing.T) {
	ctx := context.Background()
	store := newFakeStore()
	progress := NewMemoryProgressStore()
	require.NoError(t, progress.Put(ctx, "sess-4", &Progress{Fingerprint: "stale", SolutionVariantID: "var-old"}))

	r := New(store, progress, nil)
	state := selectedState(wizard.NewVariantPlaceholderID())

	res, err := r.Save(ctx, SaveRequest{Key: "sess-4", ClientID: "C1", State: state, Form: NewForm(nil), Mode: models.SaveDraft})
	require.NoError(t, err)
	assert.Equal(t, "var-1", res.SolutionVariantID)
}

func TestSave_ValidationBlocksPersistence(t *testing.T) {
	store := newFakeStore()
	r := New(store, nil, nil)

	form := NewForm(nil)
	bad := userParam("p1", "Rack count")
	bad.UserInterface.Type = models.InterfaceStatic
	bad.Value = "many"
	locked := userParam("g1", "Grid price")
	locked.IsModifiable = false
	locked.Unit = ""
	form.Parameters.Replace([]models.Parameter{locked, bad})

	_, err := r.Save(context.Background(), SaveRequest{ClientID: "C1", State: selectedState("V1"), Form: form, Mode: models.SaveDraft})
	require.Error(t, err)
	assert.ErrorIs(t, err, parameters.ErrMissingRequiredValue)

	var verrs parameters.ValidationErrors
	require.True(t, errors.As(err, &verrs))
	assert.Len(t, verrs, 1)

	assert.Empty(t, store.createdClients)
	assert.Empty(t, store.updates)
}

func TestSave_IncompleteSelectionCreatesNothing(t *testing.T) {
	store := newFakeStore()
	r := New(store, nil, nil)
	ctx := context.Background()

	s := wizard.NewState()
	s = wizard.Transition(s, wizard.Event{Type: wizard.EventSelectIndustry, ID: "I1"})
	s = wizard.Transition(s, wizard.Event{Type: wizard.EventSelectTechnology, ID: "T1"})
	s = wizard.Transition(s, wizard.Event{Type: wizard.EventCreateNewSolution})
	require.False(t, wizard.CanAdvance(s))

	_, err := r.Save(ctx, SaveRequest{Key: "sess-5", ClientID: "C1", State: s, Form: NewForm(nil), Mode: models.SaveDraft})
	assert.ErrorIs(t, err, wizard.ErrSelectionIncomplete)

	// named and described, but still no variant
	s = wizard.Transition(s, wizard.Event{Type: wizard.EventUpdateNewSolution, Draft: wizard.Draft{Name: "Immersion", Description: "Tanks"}})
	_, err = r.Save(ctx, SaveRequest{Key: "sess-5", ClientID: "C1", State: s, Form: NewForm(nil), Mode: models.SaveSubmitForReview})
	assert.ErrorIs(t, err, wizard.ErrSelectionIncomplete)

	assert.Empty(t, store.createdSolutions)
	assert.Empty(t, store.createdVariants)
	assert.Empty(t, store.createdClients)
}

func TestSave_ExistingSelectionFallbackName(t *testing.T) {
	store := newFakeStore()
	r := New(store, nil, nil)

	s := selectedState("V1")
	s.SolutionTypes = nil
	s.SolutionVariants = nil

	res, err := r.Save(context.Background(), SaveRequest{ClientID: "C1", State: s, Form: NewForm(nil), Mode: models.SaveDraft})
	require.NoError(t, err)
	assert.Equal(t, UnknownSolutionName, res.SolutionName)

	cs := store.createdClients[0]
	assert.Equal(t, "V1", cs.SolutionVariantID)
	assert.Empty(t, store.createdVariants)
}

func TestSave_Errors(t *testing.T) {
	store := newFakeStore()
	r := New(store, nil, nil)
	ctx := context.Background()

	_, err := r.Save(ctx, SaveRequest{ClientID: "C1", State: selectedState("V1"), Form: NewForm(nil), Mode: "publish"})
	assert.ErrorIs(t, err, ErrInvalidSaveMode)

	_, err = r.Save(ctx, SaveRequest{State: selectedState("V1"), Form: NewForm(nil), Mode: models.SaveDraft})
	assert.ErrorIs(t, err, ErrClientRequired)

	_, err = r.Save(ctx, SaveRequest{ClientID: "C1", State: wizard.NewState(), Form: NewForm(nil), Mode: models.SaveDraft})
	assert.ErrorIs(t, err, wizard.ErrSelectionIncomplete)

	store.updateErr = errors.New("conflict")
	loaded := wizard.Transition(selectedState("V1"), wizard.Event{Type: wizard.EventExistingSolutionLoaded, ID: "V1"})
	_, err = r.Save(ctx, SaveRequest{ClientID: "C1", State: loaded, Form: NewForm(nil), Mode: models.SaveDraft})
	assert.ErrorIs(t, err, ErrPersistFailed)
	assert.Empty(t, store.createdClients)
}

func TestFormLoader(t *testing.T) {
	store := newFakeStore()
	store.solutions["C1"] = []models.ClientSolution{{ID: "V1", Parameters: []models.Parameter{userParam("p1", "Flow")}}}
	r := New(store, nil, nil)
	form := NewForm(nil)

	var loader wizard.Form = r.Bind(form, "C1")
	id, err := loader.LoadExistingSolutionData(context.Background(), "V1")
	require.NoError(t, err)
	assert.Equal(t, "V1", id)
	assert.Equal(t, 1, form.Parameters.Len())

	loader.Clear()
	assert.Zero(t, form.Parameters.Len())
	assert.Empty(t, form.Calculations)
}

func TestForm_RemoveCalculationCategory(t *testing.T) {
	form := NewForm([]models.CategoryRef{{Name: "capex", Color: models.ColorGreen}, {Name: "opex", Color: models.ColorBlue}})
	_, err := form.CalculationCategories.AddCustom("Savings", models.ColorGreen, nil)
	require.NoError(t, err)
	form.Calculations = models.CalculationList{
		{ID: "c1", Category: models.CategoryRef{Name: "Savings"}},
		{ID: "c2", Category: models.CategoryRef{Name: "capex"}},
	}

	assert.Equal(t, []string{"Savings", "capex", "opex"}, form.VisibleCalculationCategories())

	tab, removed, err := form.RemoveCalculationCategory("Savings", "Savings")
	require.NoError(t, err)
	assert.Equal(t, "all", tab)
	assert.Equal(t, 1, removed)
	assert.Equal(t, []string{"capex", "opex"}, form.VisibleCalculationCategories())
}

package wizard

import (
	"context"
	"errors"
	"fmt"

	"github.com/terra-clan/solution-builder/internal/models"
)

var (
	ErrFetchFailed         = errors.New("fetch failed")
	ErrIndustryRequired    = errors.New("industry must be selected first")
	ErrTechnologyRequired  = errors.New("technology must be selected first")
	ErrSolutionRequired    = errors.New("solution type must be selected or created first")
	ErrSelectionIncomplete = errors.New("selection is incomplete")
	ErrUnknownEvent        = errors.New("unknown event")
)

// Catalog provides the candidate lists for each selection
type Catalog interface {
	FetchIndustries(ctx context.Context) ([]models.Industry, error)
	FetchTechnologies(ctx context.Context) ([]models.Technology, error)
	FetchSolutionTypes(ctx context.Context, industryID, technologyID string) ([]models.SolutionType, error)
	FetchSolutionVariants(ctx context.Context, solutionID string) ([]models.SolutionVariant, error)
}

// Form is the configuration form kept in step with the selection
type Form interface {
	// LoadExistingSolutionData merges the saved configuration of variantID into
	// the form and returns the id of the loaded record, or "" if nothing was loaded.
	LoadExistingSolutionData(ctx context.Context, variantID string) (string, error)
	// Clear empties the parameters and calculations of the form
	Clear()
}

// Wizard drives a SelectionState through its collaborators.
// A Wizard is not safe for concurrent use; callers serialize access per session.
type Wizard struct {
	catalog Catalog
	form    Form
	state   SelectionState
}

// New creates a wizard in the empty state
func New(catalog Catalog, form Form) *Wizard {
	return &Wizard{
		catalog: catalog,
		form:    form,
		state:   NewState(),
	}
}

// State returns the current selection state
func (w *Wizard) State() SelectionState {
	return w.state
}

// Start fetches the industry and technology candidates
func (w *Wizard) Start(ctx context.Context) error {
	industries, err := w.catalog.FetchIndustries(ctx)
	if err != nil {
		w.dispatch(Event{Type: EventCatalogLoaded})
		return fmt.Errorf("%w: industries: %w", ErrFetchFailed, err)
	}

	technologies, err := w.catalog.FetchTechnologies(ctx)
	if err != nil {
		w.dispatch(Event{Type: EventCatalogLoaded})
		return fmt.Errorf("%w: technologies: %w", ErrFetchFailed, err)
	}

	w.dispatch(Event{Type: EventCatalogLoaded, Industries: industries, Technologies: technologies})
	return nil
}

// SelectIndustry selects an industry and clears everything downstream
func (w *Wizard) SelectIndustry(id string) {
	w.dispatch(Event{Type: EventSelectIndustry, ID: id})
}

// SelectTechnology selects a technology and fetches the matching solution types
func (w *Wizard) SelectTechnology(ctx context.Context, id string) error {
	if w.state.SelectedIndustry == "" {
		return ErrIndustryRequired
	}

	w.dispatch(Event{Type: EventSelectTechnology, ID: id})

	types, err := w.catalog.FetchSolutionTypes(ctx, w.state.SelectedIndustry, id)
	if err != nil {
		return fmt.Errorf("%w: solution types: %w", ErrFetchFailed, err)
	}

	w.dispatch(Event{Type: EventSolutionTypesLoaded, SolutionTypes: types})
	return nil
}

// SelectSolutionType selects an existing solution type and fetches its variants
func (w *Wizard) SelectSolutionType(ctx context.Context, id string) error {
	if w.state.SelectedTechnology == "" {
		return ErrTechnologyRequired
	}

	w.dispatch(Event{Type: EventSelectSolutionType, ID: id})

	variants, err := w.catalog.FetchSolutionVariants(ctx, id)
	if err != nil {
		return fmt.Errorf("%w: solution variants: %w", ErrFetchFailed, err)
	}

	w.dispatch(Event{Type: EventSolutionVariantsLoaded, SolutionVariants: variants})
	return nil
}

// SelectSolutionVariant selects a variant. Placeholder ids are taken as-is;
// other ids load the saved configuration into the form.
func (w *Wizard) SelectSolutionVariant(ctx context.Context, id string) error {
	if !solutionChosen(w.state) {
		return ErrSolutionRequired
	}

	w.dispatch(Event{Type: EventSelectSolutionVariant, ID: id})

	if IsPlaceholderID(id) || w.form == nil {
		return nil
	}

	existingID, err := w.form.LoadExistingSolutionData(ctx, id)
	if existingID != "" {
		w.dispatch(Event{Type: EventExistingSolutionLoaded, ID: existingID})
	}
	return err
}

// CreateNewSolution switches to creating a new solution type
func (w *Wizard) CreateNewSolution() error {
	if w.state.SelectedTechnology == "" {
		return ErrTechnologyRequired
	}
	w.dispatch(Event{Type: EventCreateNewSolution})
	return nil
}

// UpdateNewSolution sets the name, description and icon of the solution being created
func (w *Wizard) UpdateNewSolution(d Draft) {
	w.dispatch(Event{Type: EventUpdateNewSolution, Draft: d})
}

// CreateNewVariant switches to creating a new variant under a placeholder id
// and empties the form.
func (w *Wizard) CreateNewVariant() (string, error) {
	if !solutionChosen(w.state) {
		return "", ErrSolutionRequired
	}

	id := NewVariantPlaceholderID()
	w.dispatch(Event{Type: EventCreateNewVariant, ID: id})
	if w.form != nil {
		w.form.Clear()
	}
	return id, nil
}

// UpdateNewVariant sets the name, description and icon of the variant being created
func (w *Wizard) UpdateNewVariant(d Draft) {
	w.dispatch(Event{Type: EventUpdateNewVariant, Draft: d})
}

// NoVariant clears the variant selection
func (w *Wizard) NoVariant() {
	w.dispatch(Event{Type: EventNoVariant})
}

// CanAdvance reports whether the "next" action is enabled
func (w *Wizard) CanAdvance() bool {
	return CanAdvance(w.state)
}

// Next moves to the following step
func (w *Wizard) Next() error {
	if !CanAdvance(w.state) {
		return ErrSelectionIncomplete
	}
	w.dispatch(Event{Type: EventNextStep})
	return nil
}

// Previous moves to the preceding step
func (w *Wizard) Previous() {
	w.dispatch(Event{Type: EventPreviousStep})
}

// Reset returns the wizard to the empty state
func (w *Wizard) Reset() {
	w.dispatch(Event{Type: EventReset})
}

// Apply routes a user event to the matching action
func (w *Wizard) Apply(ctx context.Context, e Event) error {
	switch e.Type {
	case EventSelectIndustry:
		w.SelectIndustry(e.ID)
		return nil
	case EventSelectTechnology:
		return w.SelectTechnology(ctx, e.ID)
	case EventSelectSolutionType:
		return w.SelectSolutionType(ctx, e.ID)
	case EventSelectSolutionVariant:
		return w.SelectSolutionVariant(ctx, e.ID)
	case EventCreateNewSolution:
		return w.CreateNewSolution()
	case EventCreateNewVariant:
		_, err := w.CreateNewVariant()
		return err
	case EventNoVariant:
		w.NoVariant()
		return nil
	case EventUpdateNewSolution:
		w.UpdateNewSolution(e.Draft)
		return nil
	case EventUpdateNewVariant:
		w.UpdateNewVariant(e.Draft)
		return nil
	case EventNextStep:
		return w.Next()
	case EventPreviousStep:
		w.Previous()
		return nil
	case EventReset:
		w.Reset()
		return nil
	default:
		return fmt.Errorf("%w: %q", ErrUnknownEvent, e.Type)
	}
}

func (w *Wizard) dispatch(e Event) {
	w.state = Transition(w.state, e)
}

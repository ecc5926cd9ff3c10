// Package reconciler decides whether a save updates an already-loaded client
// solution or creates new records, and merges saved configuration into the form.
package reconciler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/terra-clan/solution-builder/internal/models"
	"github.com/terra-clan/solution-builder/internal/parameters"
	"github.com/terra-clan/solution-builder/internal/wizard"
)

// UnknownSolutionName is used when no display name can be resolved
const UnknownSolutionName = "Unknown Solution"

var (
	ErrNotFoundWarning  = errors.New("existing solution not found, continuing with global parameters")
	ErrPersistFailed    = errors.New("persist failed")
	ErrClientRequired   = errors.New("client is required")
	ErrInvalidSaveMode  = errors.New("invalid save mode")
)

// Store is the persistence collaborator used by the reconciler
type Store interface {
	FetchExistingClientSolutions(ctx context.Context, clientID string) ([]models.ClientSolution, error)
	CreateSolution(ctx context.Context, req *models.NewSolutionRequest) (string, error)
	CreateSolutionVariant(ctx context.Context, req *models.NewSolutionVariantRequest) (string, error)
	CreateClientSolution(ctx context.Context, cs *models.ClientSolution) (string, error)
	UpdateClientSolution(ctx context.Context, id string, patch *models.ClientSolutionPatch) error
}

// Reconciler loads and saves client solutions
type Reconciler struct {
	store    Store
	progress ProgressStore
	globals  []models.Parameter
	now      func() time.Time
}

// New creates a Reconciler. globals are seeded into empty forms when no saved
// solution is found.
func New(store Store, progress ProgressStore, globals []models.Parameter) *Reconciler {
	if progress == nil {
		progress = NewMemoryProgressStore()
	}
	return &Reconciler{
		store:    store,
		progress: progress,
		globals:  models.CloneParameters(globals),
		now:      time.Now,
	}
}

// LoadExistingSolutionData merges the client's saved solution with id variantID
// into form and returns its id. Placeholder ids leave the form untouched.
// A miss is reported as ErrNotFoundWarning, which callers treat as non-fatal.
func (r *Reconciler) LoadExistingSolutionData(ctx context.Context, clientID string, form *Form, variantID string) (string, error) {
	if variantID == "" || wizard.IsPlaceholderID(variantID) {
		return "", nil
	}
	if clientID == "" {
		return "", ErrClientRequired
	}

	solutions, err := r.store.FetchExistingClientSolutions(ctx, clientID)
	if err != nil {
		return "", fmt.Errorf("%w: client solutions: %w", wizard.ErrFetchFailed, err)
	}

	for i := range solutions {
		found := &solutions[i]
		if found.ID != variantID {
			continue
		}

		if found.Parameters != nil {
			form.Parameters.Replace(models.CloneParameters(found.Parameters))
		}
		if found.Calculations != nil {
			form.Calculations = models.CloneCalculations(found.Calculations)
		}
		if found.Categories != nil {
			form.ParameterCategories.Restore(found.Categories)
		}

		slog.Info("existing solution loaded",
			"client_id", clientID,
			"variant_id", variantID,
			"parameters", len(found.Parameters),
			"calculations", len(found.Calculations),
		)
		return found.ID, nil
	}

	slog.Warn("existing solution not found", "client_id", clientID, "variant_id", variantID)

	if form.Parameters.Len() == 0 && len(r.globals) > 0 {
		form.Parameters.Replace(GlobalParameterCopies(r.globals, nil))
	}
	return "", ErrNotFoundWarning
}

// Bind returns the wizard form adapter for one client's session
func (r *Reconciler) Bind(form *Form, clientID string) *FormLoader {
	return &FormLoader{reconciler: r, form: form, clientID: clientID}
}

// FormLoader connects a Form to the selection wizard
type FormLoader struct {
	reconciler *Reconciler
	form       *Form
	clientID   string
}

// LoadExistingSolutionData loads a saved solution into the bound form
func (l *FormLoader) LoadExistingSolutionData(ctx context.Context, variantID string) (string, error) {
	return l.reconciler.LoadExistingSolutionData(ctx, l.clientID, l.form, variantID)
}

// Clear empties the bound form
func (l *FormLoader) Clear() {
	l.form.Clear()
}

// SaveRequest holds everything a save needs
type SaveRequest struct {
	// Key identifies the save across retries, normally the session id
	Key       string
	ClientID  string
	CreatedBy string
	State     wizard.SelectionState
	Form      *Form
	Mode      models.SaveMode
}

// SaveResult describes what a save did
type SaveResult struct {
	Updated           bool   `json:"updated"`
	ClientSolutionID  string `json:"client_solution_id"`
	SolutionID        string `json:"solution_id"`
	SolutionVariantID string `json:"solution_variant_id,omitempty"`
	SolutionName      string `json:"solution_name"`
}

// Save persists the form. Only a complete selection can be saved. A loaded solution is updated in place; otherwise the
// new solution and variant are created as needed, followed by a new client
// solution. Sub-records created before a failure are remembered under req.Key
// and reused by the next attempt instead of being created again.
func (r *Reconciler) Save(ctx context.Context, req SaveRequest) (*SaveResult, error) {
	if !req.Mode.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSaveMode, req.Mode)
	}
	if req.ClientID == "" {
		return nil, ErrClientRequired
	}
	if !wizard.SelectionComplete(req.State) {
		return nil, wizard.ErrSelectionIncomplete
	}

	params := req.Form.Parameters.Parameters()
	if err := parameters.ValidateAll(params); err != nil {
		return nil, err
	}
	calcs := models.CloneCalculations(req.Form.Calculations)
	status := req.Mode.Status()
	state := req.State

	if state.IsExistingSolutionLoaded && state.ExistingSolutionID != "" {
		patch := &models.ClientSolutionPatch{
			Parameters:   params,
			Calculations: calcs,
			Status:       status,
			UpdatedAt:    r.now(),
		}
		if err := r.store.UpdateClientSolution(ctx, state.ExistingSolutionID, patch); err != nil {
			return nil, fmt.Errorf("%w: failed to update client solution: %w", ErrPersistFailed, err)
		}

		slog.Info("client solution updated",
			"client_id", req.ClientID,
			"id", state.ExistingSolutionID,
			"status", status,
		)
		return &SaveResult{
			Updated:           true,
			ClientSolutionID:  state.ExistingSolutionID,
			SolutionID:        state.SelectedSolutionTypeID,
			SolutionVariantID: state.SelectedSolutionVariantID,
			SolutionName:      resolveSolutionDisplay(state).Name,
		}, nil
	}

	progress := r.loadProgress(ctx, req.Key, fingerprint(req.ClientID, state))

	solutionID := state.SelectedSolutionTypeID
	if state.IsCreatingNewSolution {
		solutionID = progress.SolutionID
		if solutionID == "" {
			id, err := r.store.CreateSolution(ctx, &models.NewSolutionRequest{
				Name:         state.NewSolution.Name,
				Description:  state.NewSolution.Description,
				Icon:         state.NewSolution.Icon,
				IndustryID:   state.SelectedIndustry,
				TechnologyID: state.SelectedTechnology,
				Parameters:   params,
				Calculations: calcs,
				Status:       status,
				CreatedBy:    req.CreatedBy,
				ClientID:     req.ClientID,
			})
			if err != nil {
				return nil, fmt.Errorf("%w: failed to create solution: %w", ErrPersistFailed, err)
			}
			solutionID = id
			progress.SolutionID = id
			r.saveProgress(ctx, req.Key, progress)
		}
	}
	variantID := state.SelectedSolutionVariantID
	if state.IsCreatingNewVariant {
		variantID = progress.SolutionVariantID
		if variantID == "" {
			id, err := r.store.CreateSolutionVariant(ctx, &models.NewSolutionVariantRequest{
				SolutionID:  solutionID,
				Name:        state.NewVariant.Name,
				Description: state.NewVariant.Description,
				Icon:        state.NewVariant.Icon,
				CreatedBy:   req.CreatedBy,
			})
			if err != nil {
				return nil, fmt.Errorf("%w: failed to create solution variant: %w", ErrPersistFailed, err)
			}
			variantID = id
			progress.SolutionVariantID = id
			r.saveProgress(ctx, req.Key, progress)
		}
	}

	solution := resolveSolutionDisplay(state)
	variant := resolveVariantDisplay(state)
	now := r.now()

	clientSolutionID, err := r.store.CreateClientSolution(ctx, &models.ClientSolution{
		ClientID:                   req.ClientID,
		SolutionName:               solution.Name,
		SolutionDescription:        solution.Description,
		SolutionIcon:               solution.Icon,
		IndustryID:                 state.SelectedIndustry,
		TechnologyID:               state.SelectedTechnology,
		SolutionID:                 solutionID,
		SolutionVariantID:          variantID,
		SolutionVariantName:        variant.Name,
		SolutionVariantDescription: variant.Description,
		SolutionVariantIcon:        variant.Icon,
		ProductBadge:               variant.ProductBadge,
		Parameters:                 params,
		Calculations:               calcs,
		Categories:                 req.Form.ParameterCategories.Custom(),
		Status:                     status,
		CreatedBy:                  req.CreatedBy,
		CreatedAt:                  now,
		UpdatedAt:                  now,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create client solution: %w", ErrPersistFailed, err)
	}

	if req.Key != "" {
		if err := r.progress.Delete(ctx, req.Key); err != nil {
			slog.Warn("failed to clear save progress", "error", err, "key", req.Key)
		}
	}

	slog.Info("client solution created",
		"client_id", req.ClientID,
		"id", clientSolutionID,
		"solution", solutionID,
		"variant", variantID,
		"status", status,
	)

	return &SaveResult{
		ClientSolutionID:  clientSolutionID,
		SolutionID:        solutionID,
		SolutionVariantID: variantID,
		SolutionName:      solution.Name,
	}, nil
}

// Forget drops the save progress recorded under key, e.g. when its session is abandoned
func (r *Reconciler) Forget(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	if err := r.progress.Delete(ctx, key); err != nil {
		return fmt.Errorf("failed to delete save progress: %w", err)
	}
	return nil
}

func (r *Reconciler) loadProgress(ctx context.Context, key, fp string) *Progress {
	fresh := &Progress{Fingerprint: fp}
	if key == "" {
		return fresh
	}

	p, err := r.progress.Get(ctx, key)
	if err != nil {
		slog.Warn("failed to read save progress", "error", err, "key", key)
		return fresh
	}
	if p == nil || p.Fingerprint != fp {
		return fresh
	}
	return p
}

func (r *Reconciler) saveProgress(ctx context.Context, key string, p *Progress) {
	if key == "" {
		return
	}
	if err := r.progress.Put(ctx, key, p); err != nil {
		slog.Warn("failed to record save progress", "error", err, "key", key)
	}
}

// fingerprint identifies the selection a progress entry belongs to, so a retry
// after the selection changed does not reuse records made for another one.
func fingerprint(clientID string, s wizard.SelectionState) string {
	return strings.Join([]string{
		clientID,
		s.SelectedIndustry,
		s.SelectedTechnology,
		s.SelectedSolutionTypeID,
		fmt.Sprint(s.IsCreatingNewSolution),
		s.NewSolution.Name,
		fmt.Sprint(s.IsCreatingNewVariant),
		s.SelectedSolutionVariantID,
	}, "|")
}

type display struct {
	Name         string
	Description  string
	Icon         models.IconToken
	ProductBadge bool
}

func resolveSolutionDisplay(s wizard.SelectionState) display {
	if s.IsCreatingNewSolution {
		return display{
			Name:        s.NewSolution.Name,
			Description: s.NewSolution.Description,
			Icon:        s.NewSolution.Icon,
		}
	}
	if t, ok := s.SelectedSolutionType(); ok {
		name := t.Name
		if name == "" {
			name = UnknownSolutionName
		}
		return display{Name: name, Description: t.Description, Icon: t.Icon}
	}
	return display{Name: UnknownSolutionName}
}

func resolveVariantDisplay(s wizard.SelectionState) display {
	if s.IsCreatingNewVariant {
		return display{
			Name:        s.NewVariant.Name,
			Description: s.NewVariant.Description,
			Icon:        s.NewVariant.Icon,
		}
	}
	if v, ok := s.SelectedSolutionVariant(); ok {
		return display{
			Name:         v.Name,
			Description:  v.Description,
			Icon:         v.Icon,
			ProductBadge: v.ProductBadge,
		}
	}
	return display{}
}

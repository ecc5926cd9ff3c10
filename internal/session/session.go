package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/terra-clan/solution-builder/internal/categories"
	"github.com/terra-clan/solution-builder/internal/filter"
	"github.com/terra-clan/solution-builder/internal/models"
	"github.com/terra-clan/solution-builder/internal/parameters"
	"github.com/terra-clan/solution-builder/internal/reconciler"
	"github.com/terra-clan/solution-builder/internal/wizard"
)

// ErrCalculationNameRequired is returned when adding a calculation without a name
var ErrCalculationNameRequired = errors.New("calculation name is required")

// subscriberBuffer is the number of snapshots queued per subscriber before drops
const subscriberBuffer = 8

// Session is one operator's wizard run for a client.
// All methods are safe for concurrent use.
type Session struct {
	ID        string
	ClientID  string
	CreatedBy string
	CreatedAt time.Time

	mu          sync.Mutex
	lastActive  time.Time
	now         func() time.Time
	wizard      *wizard.Wizard
	form        *reconciler.Form
	reconciler  *reconciler.Reconciler
	paramTab    string
	paramQuery  filter.Query
	calcTab     string
	calcQuery   filter.Query
	subscribers map[chan Snapshot]struct{}
}

// Snapshot is the externally visible state of a session
type Snapshot struct {
	ID                    string                `json:"id"`
	ClientID              string                `json:"client_id"`
	State                 wizard.SelectionState `json:"state"`
	StepTitle             string                `json:"step_title"`
	CanAdvance            bool                  `json:"can_advance"`
	ParameterTabs         []string              `json:"parameter_tabs"`
	ParameterCategories   []string              `json:"parameter_categories"`
	ActiveParameterTab    string                `json:"active_parameter_tab"`
	ParameterQuery        string                `json:"parameter_query"`
	ParameterCount        int                   `json:"parameter_count"`
	ActiveEditID          string                `json:"active_edit_id,omitempty"`
	CalculationTabs       []string              `json:"calculation_tabs"`
	CalculationCategories []string              `json:"calculation_categories"`
	ActiveCalculationTab  string                `json:"active_calculation_tab"`
	CalculationQuery      string                `json:"calculation_query"`
	CalculationCount      int                   `json:"calculation_count"`
	LastActive            time.Time             `json:"last_active"`
}

// ParameterItem is a parameter as listed to the operator
type ParameterItem struct {
	models.Parameter
	// CanEdit is false for read-only parameters and while another edit is open
	CanEdit bool `json:"can_edit"`
}

// ParameterView is a filtered page of the session's parameters
type ParameterView struct {
	Parameters   []ParameterItem   `json:"parameters"`
	Tabs         []string          `json:"tabs"`
	ActiveTab    string            `json:"active_tab"`
	Query        string            `json:"query"`
	Total        int               `json:"total"`
	CanAdd       bool              `json:"can_add"`
	ActiveEditID string            `json:"active_edit_id,omitempty"`
	Draft        *models.Parameter `json:"draft,omitempty"`
}

// Review is the end-user facing summary of a session's configuration.
// Only exportable parameters appear.
type Review struct {
	State        wizard.SelectionState `json:"state"`
	Parameters   []models.Parameter    `json:"parameters"`
	Calculations []models.Calculation  `json:"calculations"`
}

// CalculationView is a filtered page of the session's calculations
type CalculationView struct {
	Calculations []models.Calculation `json:"calculations"`
	Tabs         []string             `json:"tabs"`
	ActiveTab    string               `json:"active_tab"`
	Query        string               `json:"query"`
	Total        int                  `json:"total"`
}

func newSession(clientID, createdBy string, catalog wizard.Catalog, rec *reconciler.Reconciler, calcDefaults []models.CategoryRef, now func() time.Time) *Session {
	form := reconciler.NewForm(calcDefaults)
	created := now()

	return &Session{
		ID:          uuid.New().String(),
		ClientID:    clientID,
		CreatedBy:   createdBy,
		CreatedAt:   created,
		lastActive:  created,
		now:         now,
		wizard:      wizard.New(catalog, rec.Bind(form, clientID)),
		form:        form,
		reconciler:  rec,
		paramTab:    categories.AllTab,
		calcTab:     categories.AllTab,
		subscribers: make(map[chan Snapshot]struct{}),
	}
}

// LastActive returns the time of the last interaction
func (s *Session) LastActive() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastActive
}

// Snapshot returns the current state of the session
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// Start fetches the first candidate lists
func (s *Session) Start(ctx context.Context) error {
	return s.mutate(func() error {
		return s.wizard.Start(ctx)
	})
}

// Apply routes a wizard event and returns the resulting snapshot.
// The snapshot is returned even when the event fails.
func (s *Session) Apply(ctx context.Context, e wizard.Event) (Snapshot, error) {
	err := s.mutate(func() error {
		err := s.wizard.Apply(ctx, e)
		if e.Type == wizard.EventCreateNewVariant || e.Type == wizard.EventSelectSolutionVariant {
			s.paramTab = categories.AllTab
			s.calcTab = categories.AllTab
		}
		return err
	})
	return s.Snapshot(), err
}

// SetParameterFilter changes the active parameter tab and search text
func (s *Session) SetParameterFilter(tab, query string) {
	s.mutate(func() error { //nolint:errcheck
		if tab != "" {
			s.paramTab = tab
		}
		s.paramQuery.Set(query)
		return nil
	})
}

// HandleParameterKey forwards a key press to the parameter search box
func (s *Session) HandleParameterKey(key string) bool {
	var handled bool
	s.mutate(func() error { //nolint:errcheck
		handled = s.paramQuery.HandleKey(key)
		return nil
	})
	return handled
}

// Parameters returns the parameters matching the active tab and search text
func (s *Session) Parameters() ParameterView {
	s.mu.Lock()
	defer s.mu.Unlock()

	list := s.form.Parameters
	all := list.Parameters()
	matched := filter.Parameters(all, s.paramTab, s.paramQuery.Text())

	items := make([]ParameterItem, 0, len(matched))
	for _, p := range matched {
		items = append(items, ParameterItem{Parameter: p, CanEdit: list.CanEdit(p.ID)})
	}

	view := ParameterView{
		Parameters: items,
		Tabs:       s.form.ParameterCategories.Tabs(parameterCategoryNames(all)),
		ActiveTab:  s.paramTab,
		Query:      s.paramQuery.Text(),
		Total:      len(all),
		CanAdd:     list.CanAdd(),
	}
	if draft, ok := list.Draft(); ok {
		view.ActiveEditID = draft.ID
		view.Draft = &draft
	}
	return view
}

// Review returns the selection with the parameters and calculations an end user gets to see
func (s *Session) Review() Review {
	s.mu.Lock()
	defer s.mu.Unlock()

	calcs := make([]models.Calculation, 0, len(s.form.Calculations))
	for _, c := range s.form.Calculations {
		if c.Output {
			calcs = append(calcs, c)
		}
	}

	return Review{
		State:        s.wizard.State(),
		Parameters:   parameters.Exportable(s.form.Parameters.Parameters()),
		Calculations: models.CloneCalculations(calcs),
	}
}

// AddParameter runs an add session for p and commits it
func (s *Session) AddParameter(p models.Parameter) (models.Parameter, error) {
	var saved models.Parameter
	err := s.mutate(func() error {
		draft, err := s.form.Parameters.BeginAdd()
		if err != nil {
			return err
		}

		if err := s.form.Parameters.UpdateDraft(draft.ID, s.fillDraft(p, draft)); err != nil {
			s.form.Parameters.Cancel(draft.ID) //nolint:errcheck
			return err
		}

		saved, err = s.form.Parameters.Save(draft.ID)
		if err != nil {
			s.form.Parameters.Cancel(draft.ID) //nolint:errcheck
			return err
		}
		return nil
	})
	return saved, err
}

// UpdateParameter replaces an existing modifiable parameter
func (s *Session) UpdateParameter(p models.Parameter) (models.Parameter, error) {
	var saved models.Parameter
	err := s.mutate(func() error {
		p.Category.Color = s.resolveParameterColor(p.Category)

		var err error
		saved, err = s.form.Parameters.Apply(p)
		return err
	})
	return saved, err
}

// BeginParameterEdit puts an existing parameter into edit mode and returns its working copy.
// Only one parameter can be in edit mode at a time.
func (s *Session) BeginParameterEdit(id string) (models.Parameter, error) {
	var draft models.Parameter
	err := s.mutate(func() error {
		var err error
		draft, err = s.form.Parameters.BeginEdit(id)
		return err
	})
	return draft, err
}

// BeginParameterAdd opens an edit for a new parameter and returns its blank draft
func (s *Session) BeginParameterAdd() (models.Parameter, error) {
	var draft models.Parameter
	err := s.mutate(func() error {
		var err error
		draft, err = s.form.Parameters.BeginAdd()
		return err
	})
	return draft, err
}

// UpdateParameterDraft replaces the working copy of the open edit
func (s *Session) UpdateParameterDraft(id string, p models.Parameter) (models.Parameter, error) {
	var updated models.Parameter
	err := s.mutate(func() error {
		draft, ok := s.form.Parameters.Draft()
		if !ok || draft.ID != id {
			return parameters.ErrNotActiveEdit
		}
		if err := s.form.Parameters.UpdateDraft(id, s.fillDraft(p, draft)); err != nil {
			return err
		}
		updated, _ = s.form.Parameters.Draft()
		return nil
	})
	return updated, err
}

// SaveParameterDraft validates and commits the open edit. A rejected draft stays open.
func (s *Session) SaveParameterDraft(id string) (models.Parameter, error) {
	var saved models.Parameter
	err := s.mutate(func() error {
		var err error
		saved, err = s.form.Parameters.Save(id)
		return err
	})
	return saved, err
}

// CancelParameterEdit closes the open edit without committing
func (s *Session) CancelParameterEdit(id string) error {
	return s.mutate(func() error {
		return s.form.Parameters.Cancel(id)
	})
}

// RemoveParameter deletes a modifiable parameter
func (s *Session) RemoveParameter(id string) error {
	return s.mutate(func() error {
		return s.form.Parameters.Remove(id)
	})
}

// AddParameterCategory creates a custom parameter category and makes it the active tab
func (s *Session) AddParameterCategory(name string, color models.ColorToken) (string, error) {
	var tab string
	err := s.mutate(func() error {
		names := parameterCategoryNames(s.form.Parameters.Parameters())
		var err error
		tab, err = s.form.ParameterCategories.AddCustom(name, color, names)
		if err != nil {
			return err
		}
		s.paramTab = tab
		return nil
	})
	return tab, err
}

// RemoveParameterCategory deletes a parameter category and every parameter in it
func (s *Session) RemoveParameterCategory(name string) (int, error) {
	var removed int
	err := s.mutate(func() error {
		tab, n, err := s.form.RemoveParameterCategory(name, s.paramTab)
		if err != nil {
			return err
		}
		s.paramTab = tab
		removed = n
		return nil
	})
	return removed, err
}

// SetCalculationFilter changes the active calculation tab and search text
func (s *Session) SetCalculationFilter(tab, query string) {
	s.mutate(func() error { //nolint:errcheck
		if tab != "" {
			s.calcTab = tab
		}
		s.calcQuery.Set(query)
		return nil
	})
}

// Calculations returns the calculations matching the active tab and search text
func (s *Session) Calculations() CalculationView {
	s.mu.Lock()
	defer s.mu.Unlock()

	all := models.CloneCalculations(s.form.Calculations)
	return CalculationView{
		Calculations: filter.Calculations(all, s.calcTab, s.calcQuery.Text()),
		Tabs:         append([]string{categories.AllTab}, s.form.VisibleCalculationCategories()...),
		ActiveTab:    s.calcTab,
		Query:        s.calcQuery.Text(),
		Total:        len(all),
	}
}

// AddCalculation appends a calculation to the form
func (s *Session) AddCalculation(c models.Calculation) (models.Calculation, error) {
	err := s.mutate(func() error {
		c.Name = strings.TrimSpace(c.Name)
		if c.Name == "" {
			return ErrCalculationNameRequired
		}
		if c.ID == "" {
			c.ID = "calc-" + uuid.New().String()
		}
		if c.Status == "" {
			c.Status = models.CalculationPending
		}
		if c.Level == 0 {
			c.Level = 1
		}
		if color, ok := s.form.CalculationCategories.Resolve(c.Category.Name, s.form.Calculations.Categories()); ok {
			c.Category.Color = color
		}

		s.form.Calculations = append(s.form.Calculations, c)
		return nil
	})
	return c, err
}

// AddCalculationCategory creates a custom calculation category and makes it the active tab
func (s *Session) AddCalculationCategory(name string, color models.ColorToken) (string, error) {
	var tab string
	err := s.mutate(func() error {
		var err error
		tab, err = s.form.CalculationCategories.AddCustom(name, color, s.form.Calculations.CategoryNames())
		if err != nil {
			return err
		}
		s.calcTab = tab
		return nil
	})
	return tab, err
}

// RemoveCalculationCategory deletes a calculation category and every calculation in it
func (s *Session) RemoveCalculationCategory(name string) (int, error) {
	var removed int
	err := s.mutate(func() error {
		tab, n, err := s.form.RemoveCalculationCategory(name, s.calcTab)
		if err != nil {
			return err
		}
		s.calcTab = tab
		removed = n
		return nil
	})
	return removed, err
}

// Save persists the session's configuration. The session id is the idempotency key.
func (s *Session) Save(ctx context.Context, mode models.SaveMode) (*reconciler.SaveResult, error) {
	var result *reconciler.SaveResult
	err := s.mutate(func() error {
		var err error
		result, err = s.reconciler.Save(ctx, reconciler.SaveRequest{
			Key:       s.ID,
			ClientID:  s.ClientID,
			CreatedBy: s.CreatedBy,
			State:     s.wizard.State(),
			Form:      s.form,
			Mode:      mode,
		})
		if err != nil {
			return fmt.Errorf("failed to save session %s: %w", s.ID, err)
		}
		return nil
	})
	return result, err
}

// Subscribe returns a channel receiving a snapshot after every change, and
// a function to stop the subscription. Slow subscribers miss snapshots.
func (s *Session) Subscribe() (<-chan Snapshot, func()) {
	ch := make(chan Snapshot, subscriberBuffer)

	s.mu.Lock()
	s.subscribers[ch] = struct{}{}
	s.mu.Unlock()

	var once sync.Once
	cancel := func() {
		once.Do(func() {
			s.mu.Lock()
			if _, ok := s.subscribers[ch]; ok {
				delete(s.subscribers, ch)
				close(ch)
			}
			s.mu.Unlock()
		})
	}
	return ch, cancel
}

// close ends every subscription
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for ch := range s.subscribers {
		delete(s.subscribers, ch)
		close(ch)
	}
}

// mutate runs fn under the session lock, refreshes the activity time and
// notifies subscribers
func (s *Session) mutate(fn func() error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	err := fn()
	s.lastActive = s.now()
	s.publish(s.snapshot())
	return err
}

func (s *Session) publish(snap Snapshot) {
	for ch := range s.subscribers {
		select {
		case ch <- snap:
		default:
		}
	}
}

func (s *Session) snapshot() Snapshot {
	state := s.wizard.State()
	params := s.form.Parameters.Parameters()
	names := parameterCategoryNames(params)
	activeEdit, _ := s.form.Parameters.ActiveEditID()

	return Snapshot{
		ID:                    s.ID,
		ClientID:              s.ClientID,
		State:                 state,
		StepTitle:             state.Step.Title(),
		CanAdvance:            wizard.CanAdvance(state),
		ParameterTabs:         s.form.ParameterCategories.Tabs(names),
		ParameterCategories:   s.form.VisibleParameterCategories(),
		ActiveParameterTab:    s.paramTab,
		ParameterQuery:        s.paramQuery.Text(),
		ParameterCount:        len(params),
		ActiveEditID:          activeEdit,
		CalculationTabs:       append([]string{categories.AllTab}, s.form.VisibleCalculationCategories()...),
		CalculationCategories: s.form.VisibleCalculationCategories(),
		ActiveCalculationTab:  s.calcTab,
		CalculationQuery:      s.calcQuery.Text(),
		CalculationCount:      len(s.form.Calculations),
		LastActive:            s.lastActive,
	}
}

// fillDraft completes p with the id of the open draft and defaults for the
// fields left empty
func (s *Session) fillDraft(p, draft models.Parameter) models.Parameter {
	p.ID = draft.ID
	if p.Category.Name == "" {
		p.Category = draft.Category
	}
	if p.UserInterface.Type == "" {
		p.UserInterface.Type = draft.UserInterface.Type
	}
	if p.UserInterface.Category == "" {
		p.UserInterface.Category = p.Category.Name
	}
	if p.DisplayType == "" {
		p.DisplayType = draft.DisplayType
	}
	p.Category.Color = s.resolveParameterColor(p.Category)
	return p
}

func (s *Session) resolveParameterColor(ref models.CategoryRef) models.ColorToken {
	implied := make([]models.CategoryRef, 0, s.form.Parameters.Len())
	for _, p := range s.form.Parameters.Parameters() {
		implied = append(implied, p.Category)
	}
	if color, ok := s.form.ParameterCategories.Resolve(ref.Name, implied); ok {
		return color
	}
	return models.ParseColorToken(string(ref.Color))
}

func parameterCategoryNames(params []models.Parameter) []string {
	names := make([]string, 0, len(params))
	for _, p := range params {
		names = append(names, p.Category.Name)
	}
	return names
}

package parameters

import (
	"strings"

	"github.com/google/uuid"

	"github.com/terra-clan/solution-builder/internal/models"
)

// List owns an ordered parameter collection and the single active edit.
// At most one parameter (existing or being added) is in edit mode at a time;
// while it is, every other edit, add and remove action is refused.
type List struct {
	params []models.Parameter

	// activeID is empty when nothing is being edited
	activeID string
	adding   bool
	draft    models.Parameter
}

// NewList creates a list over a copy of params
func NewList(params []models.Parameter) *List {
	return &List{params: models.CloneParameters(params)}
}

// NewParameterID generates an id for a user-created parameter
func NewParameterID() string {
	return "param-" + uuid.NewString()
}

// DefaultDraft returns the blank parameter offered when adding a new one
func DefaultDraft() models.Parameter {
	return models.Parameter{
		ID:       NewParameterID(),
		Category: models.CategoryRef{Name: models.GlobalCategory, Color: models.ColorBlue},
		UserInterface: models.UserInterface{
			Type:     models.InterfaceInput,
			Category: models.GlobalCategory,
		},
		DisplayType:  models.DisplaySimple,
		IsModifiable: true,
		Level:        "1",
	}
}

// Parameters returns a copy of the collection in its current order
func (l *List) Parameters() []models.Parameter {
	return models.CloneParameters(l.params)
}

// Len returns the number of committed parameters
func (l *List) Len() int {
	return len(l.params)
}

// Get returns a committed parameter by id
func (l *List) Get(id string) (models.Parameter, bool) {
	if i := l.index(id); i >= 0 {
		return l.params[i].Clone(), true
	}
	return models.Parameter{}, false
}

// Replace swaps the whole collection, discarding any open edit
func (l *List) Replace(params []models.Parameter) {
	l.params = models.CloneParameters(params)
	l.clearEdit()
}

// ActiveEditID returns the id currently in edit mode
func (l *List) ActiveEditID() (string, bool) {
	return l.activeID, l.activeID != ""
}

// Adding reports whether the active edit is a new parameter
func (l *List) Adding() bool {
	return l.activeID != "" && l.adding
}

// CanEdit reports whether the edit affordance is available for a parameter
func (l *List) CanEdit(id string) bool {
	if l.activeID != "" {
		return false
	}
	i := l.index(id)
	return i >= 0 && !l.params[i].IsLocked()
}

// CanAdd reports whether the add affordance is available
func (l *List) CanAdd() bool {
	return l.activeID == ""
}

// BeginEdit puts an existing parameter into edit mode
func (l *List) BeginEdit(id string) (models.Parameter, error) {
	if l.activeID != "" {
		return models.Parameter{}, ErrEditInProgress
	}
	i := l.index(id)
	if i < 0 {
		return models.Parameter{}, ErrParameterNotFound
	}
	if l.params[i].IsLocked() {
		return models.Parameter{}, NewValidationError(CodeParameterLocked, "is_modifiable",
			"parameter "+l.params[i].Name+" is read-only")
	}

	l.activeID = id
	l.adding = false
	l.draft = l.params[i].Clone()
	return l.draft.Clone(), nil
}

// BeginAdd opens an edit session for a new parameter
func (l *List) BeginAdd() (models.Parameter, error) {
	if l.activeID != "" {
		return models.Parameter{}, ErrEditInProgress
	}

	l.draft = DefaultDraft()
	l.activeID = l.draft.ID
	l.adding = true
	return l.draft.Clone(), nil
}

// Draft returns the parameter under edit
func (l *List) Draft() (models.Parameter, bool) {
	if l.activeID == "" {
		return models.Parameter{}, false
	}
	return l.draft.Clone(), true
}

// UpdateDraft replaces the working copy of the active edit.
// The id and modifiable flag of the draft cannot be changed.
func (l *List) UpdateDraft(id string, p models.Parameter) error {
	if l.activeID == "" || l.activeID != id {
		return ErrNotActiveEdit
	}
	p.ID = l.activeID
	p.IsModifiable = true
	l.draft = p.Clone()
	return nil
}

// Save validates and commits the active edit.
// On failure the edit stays open and nothing is committed.
func (l *List) Save(id string) (models.Parameter, error) {
	if l.activeID == "" || l.activeID != id {
		return models.Parameter{}, ErrNotActiveEdit
	}

	draft := l.draft.Clone()
	draft.Name = strings.TrimSpace(draft.Name)
	if draft.Level == "" {
		draft.Level = "1"
	}

	if err := Validate(draft); err != nil {
		return models.Parameter{}, err
	}
	if err := CheckDuplicateName(draft.Name, draft.ID, l.params); err != nil {
		return models.Parameter{}, err
	}

	if l.adding {
		l.params = append(l.params, draft)
	} else {
		i := l.index(id)
		if i < 0 {
			l.clearEdit()
			return models.Parameter{}, ErrParameterNotFound
		}
		l.params[i] = draft
	}

	l.clearEdit()
	return draft.Clone(), nil
}

// Apply runs a whole edit session for p in one step: begin, update, save.
// Locked parameters are rejected before anything changes.
func (l *List) Apply(p models.Parameter) (models.Parameter, error) {
	if i := l.index(p.ID); i >= 0 && l.params[i].IsLocked() {
		return models.Parameter{}, NewValidationError(CodeParameterLocked, "is_modifiable",
			"parameter "+l.params[i].Name+" is read-only")
	}
	if _, err := l.BeginEdit(p.ID); err != nil {
		return models.Parameter{}, err
	}
	if err := l.UpdateDraft(p.ID, p); err != nil {
		return models.Parameter{}, err
	}

	saved, err := l.Save(p.ID)
	if err != nil {
		l.clearEdit()
		return models.Parameter{}, err
	}
	return saved, nil
}

// Cancel closes the active edit without committing
func (l *List) Cancel(id string) error {
	if l.activeID == "" || l.activeID != id {
		return ErrNotActiveEdit
	}
	l.clearEdit()
	return nil
}

// Remove deletes a modifiable parameter
func (l *List) Remove(id string) error {
	if l.activeID != "" {
		return ErrEditInProgress
	}
	i := l.index(id)
	if i < 0 {
		return ErrParameterNotFound
	}
	if l.params[i].IsLocked() {
		return NewValidationError(CodeParameterLocked, "is_modifiable",
			"parameter "+l.params[i].Name+" is read-only")
	}

	l.params = append(l.params[:i], l.params[i+1:]...)
	return nil
}

// RemoveCategory deletes every parameter in a category and returns how many were removed
func (l *List) RemoveCategory(name string) int {
	kept := l.params[:0]
	removed := 0
	for _, p := range l.params {
		if p.Category.Name == name {
			removed++
			continue
		}
		kept = append(kept, p)
	}
	l.params = kept

	if l.activeID != "" && l.draft.Category.Name == name {
		l.clearEdit()
	}
	return removed
}

func (l *List) index(id string) int {
	for i := range l.params {
		if l.params[i].ID == id {
			return i
		}
	}
	return -1
}

func (l *List) clearEdit() {
	l.activeID = ""
	l.adding = false
	l.draft = models.Parameter{}
}

// Package wizard implements the industry, technology, solution type and
// solution variant selection flow.
//
// All state changes go through Transition, which returns a new SelectionState.
// Upstream changes rebuild the state from the fields they keep, so downstream
// fields are cleared together and never partially.
package wizard

import (
	"fmt"
	"strings"
	"time"

	"github.com/terra-clan/solution-builder/internal/models"
)

// placeholderPrefix marks variant ids generated locally and not yet persisted
const placeholderPrefix = "new-variant-"

// Draft holds the fields typed in for a solution or variant being created
type Draft struct {
	Name        string           `json:"name"`
	Description string           `json:"description"`
	Icon        models.IconToken `json:"icon,omitempty"`
}

// Complete returns true if both name and description are filled in
func (d Draft) Complete() bool {
	return strings.TrimSpace(d.Name) != "" && strings.TrimSpace(d.Description) != ""
}

// SelectionState is the full state of the selection flow
type SelectionState struct {
	SelectedIndustry          string `json:"selected_industry"`
	SelectedTechnology        string `json:"selected_technology"`
	SelectedSolutionTypeID    string `json:"selected_solution_type_id"`
	SelectedSolutionVariantID string `json:"selected_solution_variant_id"`
	IsCreatingNewSolution     bool   `json:"is_creating_new_solution"`
	IsCreatingNewVariant      bool   `json:"is_creating_new_variant"`
	ExistingSolutionID        string `json:"existing_solution_id,omitempty"`
	IsExistingSolutionLoaded  bool   `json:"is_existing_solution_loaded"`

	NewSolution Draft `json:"new_solution"`
	NewVariant  Draft `json:"new_variant"`

	Industries       []models.Industry        `json:"industries"`
	Technologies     []models.Technology      `json:"technologies"`
	SolutionTypes    []models.SolutionType    `json:"solution_types"`
	SolutionVariants []models.SolutionVariant `json:"solution_variants"`

	Step Step `json:"step"`
}

// EventType names a wizard event
type EventType string

const (
	EventSelectIndustry        EventType = "select_industry"
	EventSelectTechnology      EventType = "select_technology"
	EventSelectSolutionType    EventType = "select_solution_type"
	EventSelectSolutionVariant EventType = "select_solution_variant"
	EventCreateNewSolution     EventType = "create_new_solution"
	EventCreateNewVariant      EventType = "create_new_variant"
	EventNoVariant             EventType = "no_variant"
	EventUpdateNewSolution     EventType = "update_new_solution"
	EventUpdateNewVariant      EventType = "update_new_variant"
	EventNextStep              EventType = "next_step"
	EventPreviousStep          EventType = "previous_step"
	EventReset                 EventType = "reset"

	// Emitted by the wizard itself when collaborators answer
	EventCatalogLoaded          EventType = "catalog_loaded"
	EventSolutionTypesLoaded    EventType = "solution_types_loaded"
	EventSolutionVariantsLoaded EventType = "solution_variants_loaded"
	EventExistingSolutionLoaded EventType = "existing_solution_loaded"
)

// Event is an input to Transition
type Event struct {
	Type  EventType `json:"type"`
	ID    string    `json:"id,omitempty"`
	Draft Draft     `json:"draft,omitempty"`

	Industries       []models.Industry        `json:"-"`
	Technologies     []models.Technology      `json:"-"`
	SolutionTypes    []models.SolutionType    `json:"-"`
	SolutionVariants []models.SolutionVariant `json:"-"`
}

// NewState returns the empty state a wizard session starts in
func NewState() SelectionState {
	return SelectionState{Step: StepSelect}
}

// NewVariantPlaceholderID generates the local id of a variant that is not yet persisted
func NewVariantPlaceholderID() string {
	return fmt.Sprintf("%s%d", placeholderPrefix, time.Now().UnixMilli())
}

// IsPlaceholderID returns true if id was generated locally by NewVariantPlaceholderID
func IsPlaceholderID(id string) bool {
	return strings.HasPrefix(id, placeholderPrefix)
}

// Transition applies e to s and returns the resulting state.
// Events whose preconditions do not hold return s unchanged.
func Transition(s SelectionState, e Event) SelectionState {
	switch e.Type {
	case EventSelectIndustry:
		return SelectionState{
			SelectedIndustry: e.ID,
			NewSolution:      s.NewSolution,
			Industries:       s.Industries,
			Technologies:     s.Technologies,
			Step:             StepSelect,
		}

	case EventSelectTechnology:
		if s.SelectedIndustry == "" {
			return s
		}
		return SelectionState{
			SelectedIndustry:   s.SelectedIndustry,
			SelectedTechnology: e.ID,
			NewSolution:        s.NewSolution,
			Industries:         s.Industries,
			Technologies:       s.Technologies,
			Step:               StepSelect,
		}

	case EventSelectSolutionType:
		if s.SelectedTechnology == "" {
			return s
		}
		return SelectionState{
			SelectedIndustry:       s.SelectedIndustry,
			SelectedTechnology:     s.SelectedTechnology,
			SelectedSolutionTypeID: e.ID,
			NewSolution:            s.NewSolution,
			Industries:             s.Industries,
			Technologies:           s.Technologies,
			SolutionTypes:          s.SolutionTypes,
			Step:                   StepSelect,
		}

	case EventCreateNewSolution:
		if s.SelectedTechnology == "" {
			return s
		}
		return SelectionState{
			SelectedIndustry:      s.SelectedIndustry,
			SelectedTechnology:    s.SelectedTechnology,
			IsCreatingNewSolution: true,
			NewSolution:           s.NewSolution,
			Industries:            s.Industries,
			Technologies:          s.Technologies,
			SolutionTypes:         s.SolutionTypes,
			Step:                  StepSelect,
		}

	case EventSelectSolutionVariant:
		if !solutionChosen(s) {
			return s
		}
		next := withoutVariant(s)
		next.SelectedSolutionVariantID = e.ID
		next.IsCreatingNewVariant = IsPlaceholderID(e.ID)
		return next

	case EventCreateNewVariant:
		if !solutionChosen(s) {
			return s
		}
		next := withoutVariant(s)
		next.IsCreatingNewVariant = true
		if IsPlaceholderID(e.ID) {
			next.SelectedSolutionVariantID = e.ID
		}
		return next

	case EventNoVariant:
		s = withoutVariant(s)
		s.NewVariant = Draft{}
		return s

	case EventUpdateNewSolution:
		s.NewSolution = e.Draft
		return s

	case EventUpdateNewVariant:
		s.NewVariant = e.Draft
		return s

	case EventCatalogLoaded:
		s.Industries = e.Industries
		s.Technologies = e.Technologies
		return s

	case EventSolutionTypesLoaded:
		if s.SelectedTechnology == "" {
			return s
		}
		s.SolutionTypes = e.SolutionTypes
		return s

	case EventSolutionVariantsLoaded:
		if s.SelectedSolutionTypeID == "" {
			return s
		}
		s.SolutionVariants = e.SolutionVariants
		return s

	case EventExistingSolutionLoaded:
		if e.ID == "" || e.ID != s.SelectedSolutionVariantID || IsPlaceholderID(e.ID) {
			return s
		}
		s.IsExistingSolutionLoaded = true
		s.ExistingSolutionID = e.ID
		return s

	case EventNextStep:
		if !CanAdvance(s) {
			return s
		}
		s.Step = s.Step.Next()
		return s

	case EventPreviousStep:
		s.Step = s.Step.Previous()
		return s

	case EventReset:
		return NewState()
	}

	return s
}

// SelectionComplete returns true if the selection step holds enough to move on:
// industry and technology set, a solution chosen or a new one named and
// described, and a variant chosen or a new one being created.
func SelectionComplete(s SelectionState) bool {
	if s.SelectedIndustry == "" || s.SelectedTechnology == "" {
		return false
	}

	if s.IsCreatingNewSolution {
		if !s.NewSolution.Complete() {
			return false
		}
	} else if s.SelectedSolutionTypeID == "" {
		return false
	}

	return s.SelectedSolutionVariantID != "" || s.IsCreatingNewVariant
}

// CanAdvance returns true if the "next" action is enabled in the current step
func CanAdvance(s SelectionState) bool {
	if s.Step == StepSelect {
		return SelectionComplete(s)
	}
	return s.Step < StepReview
}

// SelectedSolutionType returns the chosen existing solution type, if it is among the candidates
func (s SelectionState) SelectedSolutionType() (models.SolutionType, bool) {
	for _, t := range s.SolutionTypes {
		if t.ID == s.SelectedSolutionTypeID {
			return t, true
		}
	}
	return models.SolutionType{}, false
}

// SelectedSolutionVariant returns the chosen existing variant, if it is among the candidates
func (s SelectionState) SelectedSolutionVariant() (models.SolutionVariant, bool) {
	for _, v := range s.SolutionVariants {
		if v.ID == s.SelectedSolutionVariantID {
			return v, true
		}
	}
	return models.SolutionVariant{}, false
}

func solutionChosen(s SelectionState) bool {
	return s.SelectedSolutionTypeID != "" || s.IsCreatingNewSolution
}

func withoutVariant(s SelectionState) SelectionState {
	s.SelectedSolutionVariantID = ""
	s.IsCreatingNewVariant = false
	s.IsExistingSolutionLoaded = false
	s.ExistingSolutionID = ""
	return s
}

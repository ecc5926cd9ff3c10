package wizard

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/solution-builder/internal/models"
)

func fullySelected() SelectionState {
	s := NewState()
	s = Transition(s, Event{Type: EventSelectIndustry, ID: "I1"})
	s = Transition(s, Event{Type: EventSelectTechnology, ID: "T1"})
	s = Transition(s, Event{Type: EventSolutionTypesLoaded, SolutionTypes: []models.SolutionType{{ID: "S1"}}})
	s = Transition(s, Event{Type: EventSelectSolutionType, ID: "S1"})
	s = Transition(s, Event{Type: EventSolutionVariantsLoaded, SolutionVariants: []models.SolutionVariant{{ID: "V1"}}})
	s = Transition(s, Event{Type: EventSelectSolutionVariant, ID: "V1"})
	s = Transition(s, Event{Type: EventExistingSolutionLoaded, ID: "V1"})
	return s
}

func TestTransition_IndustryClearsDownstream(t *testing.T) {
	s := fullySelected()
	assert.True(t, s.IsExistingSolutionLoaded)

	next := Transition(s, Event{Type: EventSelectIndustry, ID: "I2"})

	assert.Equal(t, "I2", next.SelectedIndustry)
	assert.Empty(t, next.SelectedTechnology)
	assert.Empty(t, next.SelectedSolutionTypeID)
	assert.Empty(t, next.SelectedSolutionVariantID)
	assert.Empty(t, next.SolutionTypes)
	assert.Empty(t, next.SolutionVariants)
	assert.Empty(t, next.ExistingSolutionID)
	assert.False(t, next.IsExistingSolutionLoaded)
	assert.False(t, next.IsCreatingNewSolution)
	assert.False(t, next.IsCreatingNewVariant)

	// the previous state is left untouched
	assert.Equal(t, "T1", s.SelectedTechnology)
	assert.True(t, s.IsExistingSolutionLoaded)
}

func TestTransition_TechnologyRequiresIndustry(t *testing.T) {
	s := NewState()
	next := Transition(s, Event{Type: EventSelectTechnology, ID: "T1"})
	assert.Equal(t, s, next)
}

func TestTransition_TechnologyClearsSolution(t *testing.T) {
	next := Transition(fullySelected(), Event{Type: EventSelectTechnology, ID: "T2"})

	assert.Equal(t, "I1", next.SelectedIndustry)
	assert.Equal(t, "T2", next.SelectedTechnology)
	assert.Empty(t, next.SelectedSolutionTypeID)
	assert.Empty(t, next.SelectedSolutionVariantID)
	assert.Empty(t, next.SolutionTypes)
	assert.Empty(t, next.SolutionVariants)
	assert.False(t, next.IsExistingSolutionLoaded)
}

func TestTransition_SolutionTypeClearsVariant(t *testing.T) {
	s := fullySelected()
	s = Transition(s, Event{Type: EventCreateNewSolution})
	assert.True(t, s.IsCreatingNewSolution)

	s = Transition(s, Event{Type: EventSelectSolutionType, ID: "S2"})
	assert.Equal(t, "S2", s.SelectedSolutionTypeID)
	assert.False(t, s.IsCreatingNewSolution)
	assert.Empty(t, s.SelectedSolutionVariantID)
	assert.Empty(t, s.SolutionVariants)
	assert.NotEmpty(t, s.SolutionTypes)
}

func TestTransition_SolutionTypeRequiresTechnology(t *testing.T) {
	s := Transition(NewState(), Event{Type: EventSelectIndustry, ID: "I1"})
	next := Transition(s, Event{Type: EventSelectSolutionType, ID: "S1"})
	assert.Equal(t, s, next)
}

func TestTransition_CreateNewSolution(t *testing.T) {
	next := Transition(fullySelected(), Event{Type: EventCreateNewSolution})

	assert.True(t, next.IsCreatingNewSolution)
	assert.Empty(t, next.SelectedSolutionTypeID)
	assert.Empty(t, next.SelectedSolutionVariantID)
	assert.Empty(t, next.SolutionVariants)
	assert.False(t, next.IsExistingSolutionLoaded)
	assert.Empty(t, next.ExistingSolutionID)
}

func TestTransition_CreateNewVariant(t *testing.T) {
	id := NewVariantPlaceholderID()
	next := Transition(fullySelected(), Event{Type: EventCreateNewVariant, ID: id})

	assert.True(t, next.IsCreatingNewVariant)
	assert.Equal(t, id, next.SelectedSolutionVariantID)
	assert.False(t, next.IsExistingSolutionLoaded)
	assert.Empty(t, next.ExistingSolutionID)
	assert.Equal(t, "S1", next.SelectedSolutionTypeID)
}

func TestTransition_NoVariantClearsNewVariantDraft(t *testing.T) {
	s := fullySelected()
	s = Transition(s, Event{Type: EventCreateNewVariant, ID: NewVariantPlaceholderID()})
	s = Transition(s, Event{Type: EventUpdateNewVariant, Draft: Draft{Name: "Dual loop", Description: "Two pumps"}})
	require.Equal(t, "Dual loop", s.NewVariant.Name)

	s = Transition(s, Event{Type: EventNoVariant})

	assert.Equal(t, Draft{}, s.NewVariant)
	assert.False(t, s.IsCreatingNewVariant)
	assert.Empty(t, s.SelectedSolutionVariantID)
	assert.Equal(t, "S1", s.SelectedSolutionTypeID)
}

func TestTransition_SelectPlaceholderVariant(t *testing.T) {
	next := Transition(fullySelected(), Event{Type: EventSelectSolutionVariant, ID: "new-variant-1730000000000"})

	assert.Equal(t, "new-variant-1730000000000", next.SelectedSolutionVariantID)
	assert.True(t, next.IsCreatingNewVariant)
	assert.False(t, next.IsExistingSolutionLoaded)

	loaded := Transition(next, Event{Type: EventExistingSolutionLoaded, ID: "new-variant-1730000000000"})
	assert.False(t, loaded.IsExistingSolutionLoaded)
}

func TestTransition_ExistingLoadedMustMatchVariant(t *testing.T) {
	s := fullySelected()
	s = Transition(s, Event{Type: EventNoVariant})
	assert.False(t, s.IsExistingSolutionLoaded)
	assert.Empty(t, s.SelectedSolutionVariantID)

	next := Transition(s, Event{Type: EventExistingSolutionLoaded, ID: "V1"})
	assert.False(t, next.IsExistingSolutionLoaded)
}

func TestTransition_StaleListsIgnored(t *testing.T) {
	s := Transition(NewState(), Event{Type: EventSelectIndustry, ID: "I1"})
	next := Transition(s, Event{Type: EventSolutionTypesLoaded, SolutionTypes: []models.SolutionType{{ID: "S1"}}})
	assert.Empty(t, next.SolutionTypes)
}

func TestSelectionComplete(t *testing.T) {
	base := Transition(NewState(), Event{Type: EventSelectIndustry, ID: "I1"})
	base = Transition(base, Event{Type: EventSelectTechnology, ID: "T1"})

	tests := []struct {
		name   string
		events []Event
		want   bool
	}{
		{"no solution", nil, false},
		{"solution without variant", []Event{{Type: EventSelectSolutionType, ID: "S1"}}, false},
		{"solution and variant", []Event{
			{Type: EventSelectSolutionType, ID: "S1"},
			{Type: EventSelectSolutionVariant, ID: "V1"},
		}, true},
		{"solution and new variant", []Event{
			{Type: EventSelectSolutionType, ID: "S1"},
			{Type: EventCreateNewVariant},
		}, true},
		{"new solution without name", []Event{
			{Type: EventCreateNewSolution},
			{Type: EventCreateNewVariant},
		}, false},
		{"new solution named and described", []Event{
			{Type: EventUpdateNewSolution, Draft: Draft{Name: "Immersion", Description: "Tank cooling"}},
			{Type: EventCreateNewSolution},
			{Type: EventCreateNewVariant},
		}, true},
		{"new solution missing description", []Event{
			{Type: EventCreateNewSolution},
			{Type: EventUpdateNewSolution, Draft: Draft{Name: "Immersion", Description: " "}},
			{Type: EventCreateNewVariant},
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := base
			for _, e := range tt.events {
				s = Transition(s, e)
			}
			assert.Equal(t, tt.want, SelectionComplete(s))
			assert.Equal(t, tt.want, CanAdvance(s))
		})
	}

	assert.False(t, SelectionComplete(NewState()))
}

func TestTransition_Steps(t *testing.T) {
	s := NewState()
	s = Transition(s, Event{Type: EventNextStep})
	assert.Equal(t, StepSelect, s.Step)

	s = fullySelected()
	for i := 0; i < 10; i++ {
		s = Transition(s, Event{Type: EventNextStep})
	}
	assert.Equal(t, StepReview, s.Step)
	assert.False(t, CanAdvance(s))

	s = Transition(s, Event{Type: EventPreviousStep})
	assert.Equal(t, StepValue, s.Step)

	s = Transition(s, Event{Type: EventSelectIndustry, ID: "I9"})
	assert.Equal(t, StepSelect, s.Step)
}

func TestSteps_Titles(t *testing.T) {
	steps := Steps()
	assert.Len(t, steps, 5)
	assert.Equal(t, "Select Industry, Technology & Solution", steps[0].Title())
	assert.Equal(t, "Review and Submit", steps[4].Title())
	assert.Equal(t, StepSelect, StepSelect.Previous())
}

func TestIsPlaceholderID(t *testing.T) {
	assert.True(t, IsPlaceholderID(NewVariantPlaceholderID()))
	assert.False(t, IsPlaceholderID("V1"))
	assert.False(t, IsPlaceholderID(""))
}

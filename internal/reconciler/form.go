package reconciler

import (
	"github.com/terra-clan/solution-builder/internal/categories"
	"github.com/terra-clan/solution-builder/internal/models"
	"github.com/terra-clan/solution-builder/internal/parameters"
)

// Form is the parameter and calculation data being configured in a session
type Form struct {
	Parameters            *parameters.List
	Calculations          models.CalculationList
	ParameterCategories   *categories.Registry
	CalculationCategories *categories.Registry
}

// NewForm creates an empty form. calcDefaults seed the calculation category registry.
func NewForm(calcDefaults []models.CategoryRef) *Form {
	return &Form{
		Parameters:            parameters.NewList(nil),
		ParameterCategories:   categories.NewParameterRegistry(),
		CalculationCategories: categories.NewCalculationRegistry(calcDefaults),
	}
}

// Clear empties the parameters and calculations
func (f *Form) Clear() {
	f.Parameters.Replace(nil)
	f.Calculations = nil
}

// VisibleParameterCategories returns the parameter categories shown as tabs
func (f *Form) VisibleParameterCategories() []string {
	return f.ParameterCategories.VisibleForParameters(f.Parameters.Parameters())
}

// VisibleCalculationCategories returns the calculation categories shown as tabs
func (f *Form) VisibleCalculationCategories() []string {
	return f.CalculationCategories.Visible(f.Calculations.CategoryNames())
}

// RemoveParameterCategory removes a parameter category and every parameter in it
func (f *Form) RemoveParameterCategory(name, activeTab string) (string, int, error) {
	return f.ParameterCategories.Remove(name, f.Parameters, activeTab)
}

// RemoveCalculationCategory removes a calculation category and every calculation in it
func (f *Form) RemoveCalculationCategory(name, activeTab string) (string, int, error) {
	return f.CalculationCategories.Remove(name, &f.Calculations, activeTab)
}

// GlobalParameterCopies returns read-only copies of the global parameters whose
// names are not already taken by existing.
func GlobalParameterCopies(globals, existing []models.Parameter) []models.Parameter {
	taken := make(map[string]bool, len(existing))
	for _, p := range existing {
		taken[p.Name] = true
	}

	out := make([]models.Parameter, 0, len(globals))
	for _, g := range globals {
		if taken[g.Name] {
			continue
		}

		c := g.Clone()
		c.ID = parameters.NewParameterID()
		c.IsModifiable = false
		uiCategory := c.Category.Name
		if uiCategory == "" {
			uiCategory = models.GlobalCategory
		}
		c.UserInterface = models.UserInterface{
			Type:     models.InterfaceNotViewable,
			Category: uiCategory,
		}
		out = append(out, c)
	}
	return out
}

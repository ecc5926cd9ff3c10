// Package filter selects the visible subset of parameters and calculations
// for an active category tab and a free-text query.
package filter

import (
	"strings"

	"github.com/terra-clan/solution-builder/internal/categories"
	"github.com/terra-clan/solution-builder/internal/models"
)

// globalSynonyms are the category names shown under the Global tab
var globalSynonyms = map[string]bool{
	models.GlobalCategory: true,
	"Industry":            true,
	"Technology":          true,
	"Technologies":        true,
}

// Parameters returns the parameters matching both tab and query, in their original order
func Parameters(params []models.Parameter, tab, query string) []models.Parameter {
	needle := strings.ToLower(query)
	if strings.TrimSpace(query) == "" {
		needle = ""
	}

	out := make([]models.Parameter, 0, len(params))
	for _, p := range params {
		if !matchParameterTab(p, tab) {
			continue
		}
		if needle != "" && !matchParameterText(p, needle) {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Calculations returns the calculations matching both tab and query, in their original order.
// Unlike parameters, calculation tabs compare case-insensitively.
func Calculations(calcs []models.Calculation, tab, query string) []models.Calculation {
	needle := strings.ToLower(query)
	if strings.TrimSpace(query) == "" {
		needle = ""
	}

	out := make([]models.Calculation, 0, len(calcs))
	for _, c := range calcs {
		if tab != "" && tab != categories.AllTab && !strings.EqualFold(c.Category.Name, tab) {
			continue
		}
		if needle != "" && !containsAny(needle,
			c.Name, c.Description, c.Formula, c.Units, string(c.Status), c.Category.Name) {
			continue
		}
		out = append(out, c)
	}
	return out
}

func matchParameterTab(p models.Parameter, tab string) bool {
	switch tab {
	case "", categories.AllTab:
		return true
	case models.GlobalCategory:
		return globalSynonyms[p.Category.Name]
	default:
		return p.Category.Name == tab
	}
}

func matchParameterText(p models.Parameter, needle string) bool {
	return containsAny(needle,
		p.Name,
		p.Category.Name,
		p.Description,
		p.Value,
		p.TestValue,
		p.Unit,
		string(p.UserInterface.Type),
	)
}

func containsAny(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}

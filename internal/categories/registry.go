// Package categories manages the named, colored groupings that parameters
// and calculations are filed under.
package categories

import (
	"errors"
	"sort"
	"strings"

	"github.com/terra-clan/solution-builder/internal/models"
	"github.com/terra-clan/solution-builder/internal/parameters"
)

// AllTab is the pseudo-category that shows every item
const AllTab = "all"

// Kind tells which collection a registry serves
type Kind string

const (
	KindParameters   Kind = "parameters"
	KindCalculations Kind = "calculations"
)

var (
	ErrEmptyCategoryName = errors.New("category name is required")
	ErrReservedCategory  = errors.New("category name is reserved")
)

var reservedNames = map[Kind][]string{
	KindParameters:   {"global", "industry", "technology", "technologies"},
	KindCalculations: {"capex", "opex"},
}

var hiddenNames = map[Kind][]string{
	KindParameters: {
		"industry",
		"technology",
		"technologies",
		"high level configuration",
		"low level configuration",
		"advanced configuration",
	},
}

// Cascader removes every item filed under a category
type Cascader interface {
	RemoveCategory(name string) int
}

// Registry holds the custom categories of one collection.
// Parameter and calculation registries are separate instances and never share entries.
type Registry struct {
	kind     Kind
	defaults []models.CategoryRef
	custom   []models.CategoryRef
}

// NewParameterRegistry creates the registry for parameter categories
func NewParameterRegistry() *Registry {
	return &Registry{kind: KindParameters}
}

// NewCalculationRegistry creates the registry for calculation categories.
// defaults are always visible (capex and opex in the shipped catalog).
func NewCalculationRegistry(defaults []models.CategoryRef) *Registry {
	return &Registry{
		kind:     KindCalculations,
		defaults: append([]models.CategoryRef(nil), defaults...),
	}
}

// Kind returns the collection the registry serves
func (r *Registry) Kind() Kind {
	return r.kind
}

// Custom returns the explicitly created categories in creation order
func (r *Registry) Custom() []models.CategoryRef {
	return append([]models.CategoryRef(nil), r.custom...)
}

// Restore replaces the custom set, e.g. when a saved solution is loaded
func (r *Registry) Restore(custom []models.CategoryRef) {
	r.custom = append([]models.CategoryRef(nil), custom...)
}

// ListVisibleCategories returns the union of categories implied by the
// parameters and the custom categories, deduplicated, with Global first and
// the rest sorted lexicographically.
func ListVisibleCategories(params []models.Parameter, custom []models.CategoryRef) []string {
	inferred := make([]string, 0, len(params))
	for _, p := range params {
		inferred = append(inferred, p.Category.Name)
	}
	return sortedUnion(inferred, namesOf(custom))
}

// Visible returns the visible category names given the names implied by existing items
func (r *Registry) Visible(inferred []string) []string {
	return sortedUnion(namesOf(r.defaults), inferred, namesOf(r.custom))
}

// VisibleForParameters is Visible over the categories of params
func (r *Registry) VisibleForParameters(params []models.Parameter) []string {
	return sortedUnion(namesOf(r.defaults), ListVisibleCategories(params, r.custom))
}

// Tabs returns the filter tabs: "all" followed by the visible categories
// that are not folded into the Global bucket.
func (r *Registry) Tabs(inferred []string) []string {
	tabs := []string{AllTab}
	for _, name := range r.Visible(inferred) {
		if r.IsHidden(name) {
			continue
		}
		tabs = append(tabs, name)
	}
	return tabs
}

// IsReserved reports whether name may not be used for a custom category
func (r *Registry) IsReserved(name string) bool {
	return containsFold(reservedNames[r.kind], strings.TrimSpace(name))
}

// IsHidden reports whether name is shown under the Global tab instead of its own
func (r *Registry) IsHidden(name string) bool {
	return containsFold(hiddenNames[r.kind], name)
}

// AddCustom creates a custom category and returns its name as the new active tab.
// Names are compared case-sensitively against both inferred and custom categories.
func (r *Registry) AddCustom(name string, color models.ColorToken, inferred []string) (string, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return "", ErrEmptyCategoryName
	}
	if r.IsReserved(name) {
		return "", ErrReservedCategory
	}

	for _, existing := range r.Visible(inferred) {
		if existing == name {
			return "", parameters.NewValidationError(parameters.CodeDuplicateCategory, "name",
				"a category named \""+name+"\" already exists")
		}
	}

	if !color.Valid() {
		color = models.ColorBlue
	}

	r.custom = append(r.custom, models.CategoryRef{Name: name, Color: color})
	return name, nil
}

// Remove deletes every item of the category through target, then drops the
// category from the custom set. It returns the active tab to use afterwards:
// "all" when the removed category was active. The operation is destructive;
// confirmation belongs to the caller. Removing an absent category is a no-op.
func (r *Registry) Remove(name string, target Cascader, activeTab string) (string, int, error) {
	if name == models.GlobalCategory || r.IsReserved(name) {
		return activeTab, 0, ErrReservedCategory
	}

	removed := 0
	if target != nil {
		removed = target.RemoveCategory(name)
	}

	kept := r.custom[:0]
	for _, c := range r.custom {
		if c.Name != name {
			kept = append(kept, c)
		}
	}
	r.custom = kept

	if activeTab == name {
		activeTab = AllTab
	}
	return activeTab, removed, nil
}

// Resolve returns the color of a category.
// Global always resolves; otherwise custom, default and then item-implied colors are consulted.
func (r *Registry) Resolve(name string, implied []models.CategoryRef) (models.ColorToken, bool) {
	if name == models.GlobalCategory && r.kind == KindParameters {
		return models.ColorBlue, true
	}
	for _, c := range r.custom {
		if c.Name == name {
			return c.Color, true
		}
	}
	for _, c := range r.defaults {
		if c.Name == name {
			return c.Color, true
		}
	}
	for _, c := range implied {
		if c.Name == name {
			return models.ParseColorToken(string(c.Color)), true
		}
	}
	return "", false
}

func namesOf(refs []models.CategoryRef) []string {
	names := make([]string, 0, len(refs))
	for _, c := range refs {
		names = append(names, c.Name)
	}
	return names
}

func sortedUnion(sets ...[]string) []string {
	seen := make(map[string]bool)
	var names []string
	hasGlobal := false

	for _, set := range sets {
		for _, name := range set {
			if name == "" || seen[name] {
				continue
			}
			seen[name] = true
			if name == models.GlobalCategory {
				hasGlobal = true
				continue
			}
			names = append(names, name)
		}
	}

	sort.Strings(names)
	if hasGlobal {
		names = append([]string{models.GlobalCategory}, names...)
	}
	if names == nil {
		names = []string{}
	}
	return names
}

func containsFold(list []string, name string) bool {
	for _, s := range list {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

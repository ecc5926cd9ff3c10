package categories

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/terra-clan/solution-builder/internal/models"
	"github.com/terra-clan/solution-builder/internal/parameters"
)

func param(id, category string) models.Parameter {
	return models.Parameter{
		ID:           id,
		Name:         "param " + id,
		Unit:         "u",
		Category:     models.CategoryRef{Name: category, Color: models.ColorGreen},
		DisplayType:  models.DisplaySimple,
		IsModifiable: true,
	}
}

func TestListVisibleCategories_GlobalFirstThenSorted(t *testing.T) {
	params := []models.Parameter{
		param("1", "Zeta"),
		param("2", "Global"),
		param("3", "alpha"),
		param("4", "Zeta"),
	}
	custom := []models.CategoryRef{{Name: "Beta", Color: models.ColorRed}, {Name: "alpha"}}

	got := ListVisibleCategories(params, custom)
	assert.Equal(t, []string{"Global", "Beta", "Zeta", "alpha"}, got)
}

func TestListVisibleCategories_Empty(t *testing.T) {
	assert.Equal(t, []string{}, ListVisibleCategories(nil, nil))
}

func TestVisibleForParameters_IncludesCustom(t *testing.T) {
	r := NewParameterRegistry()
	_, err := r.AddCustom("Power", models.ColorOrange, nil)
	require.NoError(t, err)

	got := r.VisibleForParameters([]models.Parameter{param("1", "Cooling"), param("2", "Global")})
	assert.Equal(t, []string{"Global", "Cooling", "Power"}, got)
}

func TestAddCustom(t *testing.T) {
	r := NewParameterRegistry()
	inferred := []string{"Global", "Cooling"}

	tab, err := r.AddCustom("  Power ", models.ColorOrange, inferred)
	require.NoError(t, err)
	assert.Equal(t, "Power", tab)

	_, err = r.AddCustom("Power", models.ColorRed, inferred)
	assert.ErrorIs(t, err, parameters.ErrDuplicateCategory)

	_, err = r.AddCustom("Cooling", models.ColorRed, inferred)
	assert.ErrorIs(t, err, parameters.ErrDuplicateCategory)

	// case-sensitive: a different case is a different category
	_, err = r.AddCustom("cooling", models.ColorRed, inferred)
	assert.NoError(t, err)

	_, err = r.AddCustom("   ", models.ColorRed, inferred)
	assert.ErrorIs(t, err, ErrEmptyCategoryName)

	_, err = r.AddCustom("global", models.ColorRed, inferred)
	assert.ErrorIs(t, err, ErrReservedCategory)

	custom := r.Custom()
	require.Len(t, custom, 2)
	assert.Equal(t, models.ColorOrange, custom[0].Color)
}

func TestAddCustom_UnknownColorFallsBack(t *testing.T) {
	r := NewParameterRegistry()
	_, err := r.AddCustom("Water", models.ColorToken("chartreuse"), nil)
	require.NoError(t, err)
	assert.Equal(t, models.ColorBlue, r.Custom()[0].Color)
}

func TestRemove_Cascades(t *testing.T) {
	r := NewParameterRegistry()
	list := parameters.NewList([]models.Parameter{
		param("1", "Global"),
		param("2", "Power"),
		param("3", "Cooling"),
		param("4", "Power"),
	})
	_, err := r.AddCustom("Power", models.ColorOrange, nil)
	require.NoError(t, err)

	tab, removed, err := r.Remove("Power", list, "Power")
	require.NoError(t, err)
	assert.Equal(t, AllTab, tab)
	assert.Equal(t, 2, removed)
	assert.Empty(t, r.Custom())

	visible := ListVisibleCategories(list.Parameters(), r.Custom())
	assert.NotContains(t, visible, "Power")
	assert.Equal(t, []string{"Global", "Cooling"}, visible)

	// idempotent in effect
	tab, removed, err = r.Remove("Power", list, "Cooling")
	require.NoError(t, err)
	assert.Equal(t, "Cooling", tab)
	assert.Zero(t, removed)
	assert.Equal(t, 2, list.Len())
}

func TestRemove_GlobalIsProtected(t *testing.T) {
	r := NewParameterRegistry()
	list := parameters.NewList([]models.Parameter{param("1", "Global")})

	_, _, err := r.Remove("Global", list, AllTab)
	assert.ErrorIs(t, err, ErrReservedCategory)
	assert.Equal(t, 1, list.Len())
}

func TestCalculationRegistry_IsIndependent(t *testing.T) {
	params := NewParameterRegistry()
	calcs := NewCalculationRegistry([]models.CategoryRef{
		{Name: "capex", Color: models.ColorGreen},
		{Name: "opex", Color: models.ColorBlue},
	})

	_, err := params.AddCustom("Maintenance", models.ColorRed, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"capex", "opex"}, calcs.Visible(nil))

	_, err = calcs.AddCustom("capex", models.ColorRed, nil)
	assert.ErrorIs(t, err, ErrReservedCategory)

	_, err = calcs.AddCustom("Maintenance", models.ColorRed, nil)
	assert.NoError(t, err)

	list := models.CalculationList{
		{ID: "c1", Category: models.CategoryRef{Name: "Maintenance"}},
		{ID: "c2", Category: models.CategoryRef{Name: "capex"}},
	}
	_, removed, err := calcs.Remove("Maintenance", &list, AllTab)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Len(t, list, 1)

	assert.Len(t, params.Custom(), 1)
}

func TestResolve(t *testing.T) {
	r := NewParameterRegistry()
	_, err := r.AddCustom("Power", models.ColorOrange, nil)
	require.NoError(t, err)

	color, ok := r.Resolve("Global", nil)
	assert.True(t, ok)
	assert.Equal(t, models.ColorBlue, color)

	color, ok = r.Resolve("Power", nil)
	assert.True(t, ok)
	assert.Equal(t, models.ColorOrange, color)

	color, ok = r.Resolve("Cooling", []models.CategoryRef{{Name: "Cooling", Color: models.ColorTeal}})
	assert.True(t, ok)
	assert.Equal(t, models.ColorTeal, color)

	_, ok = r.Resolve("Missing", nil)
	assert.False(t, ok)
}

func TestTabs_FoldsHiddenCategories(t *testing.T) {
	r := NewParameterRegistry()
	tabs := r.Tabs([]string{"Global", "Industry", "Technologies", "Cooling"})
	assert.Equal(t, []string{AllTab, "Global", "Cooling"}, tabs)
}

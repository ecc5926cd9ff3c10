// Package catalog loads the seed data shipped with the service: industries,
// technologies, the global parameters copied into new solutions and the
// default calculation categories.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"

	"github.com/terra-clan/solution-builder/internal/models"
	"github.com/terra-clan/solution-builder/internal/parameters"
)

// Seed file names looked up in the catalog directory
const (
	IndustriesFile            = "industries.yaml"
	TechnologiesFile          = "technologies.yaml"
	GlobalParametersFile      = "global_parameters.yaml"
	CalculationCategoriesFile = "calculation_categories.yaml"
)

// DefaultCalculationCategories are used when no calculation categories are configured
var DefaultCalculationCategories = []models.CategoryRef{
	{Name: "capex", Color: models.ColorGreen},
	{Name: "opex", Color: models.ColorBlue},
}

// Seeder persists catalog entries
type Seeder interface {
	UpsertIndustry(ctx context.Context, ind *models.Industry) error
	UpsertTechnology(ctx context.Context, tech *models.Technology) error
}

// Loader manages loading and caching of the seed catalog
type Loader struct {
	mu           sync.RWMutex
	industries   map[string]*models.Industry
	technologies map[string]*models.Technology
	globals      []models.Parameter
	calcDefaults []models.CategoryRef
}

// NewLoader creates a new catalog loader
func NewLoader() *Loader {
	return &Loader{
		industries:   make(map[string]*models.Industry),
		technologies: make(map[string]*models.Technology),
	}
}

// LoadFromDir loads every known seed file in dir. Missing files are skipped.
func (l *Loader) LoadFromDir(dir string) error {
	slog.Info("loading catalog from directory", "dir", dir)

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("failed to stat catalog directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("catalog path %s is not a directory", dir)
	}

	steps := []struct {
		file string
		load func(path string) error
	}{
		{IndustriesFile, l.loadIndustries},
		{TechnologiesFile, l.loadTechnologies},
		{GlobalParametersFile, l.loadGlobalParameters},
		{CalculationCategoriesFile, l.loadCalculationCategories},
	}

	for _, step := range steps {
		path := filepath.Join(dir, step.file)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			slog.Debug("catalog file not found, skipping", "file", path)
			continue
		}

		if err := step.load(path); err != nil {
			return fmt.Errorf("failed to load %s: %w", step.file, err)
		}
	}

	l.mu.RLock()
	slog.Info("catalog loaded",
		"industries", len(l.industries),
		"technologies", len(l.technologies),
		"global_parameters", len(l.globals),
		"calculation_categories", len(l.calcDefaults),
	)
	l.mu.RUnlock()

	return nil
}

func (l *Loader) loadIndustries(path string) error {
	var f industriesFile
	if err := readYAML(path, &f); err != nil {
		return err
	}

	for i, e := range f.Industries {
		if e.ID == "" || e.Name == "" {
			return fmt.Errorf("industry %d: id and name are required", i)
		}

		l.mu.Lock()
		l.industries[e.ID] = &models.Industry{
			ID:          e.ID,
			Name:        e.Name,
			Description: e.Description,
			Icon:        models.ParseIconToken(e.Icon),
		}
		l.mu.Unlock()
	}

	return nil
}

func (l *Loader) loadTechnologies(path string) error {
	var f technologiesFile
	if err := readYAML(path, &f); err != nil {
		return err
	}

	for i, e := range f.Technologies {
		if e.ID == "" || e.Name == "" {
			return fmt.Errorf("technology %d: id and name are required", i)
		}

		l.mu.Lock()
		l.technologies[e.ID] = &models.Technology{
			ID:          e.ID,
			Name:        e.Name,
			Description: e.Description,
			Icon:        models.ParseIconToken(e.Icon),
		}
		l.mu.Unlock()
	}

	return nil
}

func (l *Loader) loadGlobalParameters(path string) error {
	params, err := LoadParametersFile(path)
	if err != nil {
		return err
	}

	seen := make(map[string]bool, len(params))
	for i, p := range params {
		key := strings.ToLower(strings.TrimSpace(p.Name))
		if key == "" {
			return fmt.Errorf("global parameter %d: name is required", i)
		}
		if seen[key] {
			return fmt.Errorf("global parameter %q is defined twice", p.Name)
		}
		seen[key] = true

		if p.Category.Name == "" {
			params[i].Category = models.CategoryRef{Name: models.GlobalCategory, Color: models.ColorBlue}
		}
		params[i].Category.Color = models.ParseColorToken(string(params[i].Category.Color))
	}

	l.mu.Lock()
	l.globals = params
	l.mu.Unlock()

	return nil
}

func (l *Loader) loadCalculationCategories(path string) error {
	var f categoriesFile
	if err := readYAML(path, &f); err != nil {
		return err
	}

	refs := make([]models.CategoryRef, 0, len(f.Categories))
	for i, c := range f.Categories {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("calculation category %d: name is required", i)
		}
		refs = append(refs, models.CategoryRef{Name: c.Name, Color: models.ParseColorToken(string(c.Color))})
	}

	l.mu.Lock()
	l.calcDefaults = refs
	l.mu.Unlock()

	return nil
}

// Industries returns all loaded industries ordered by name
func (l *Loader) Industries() []models.Industry {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]models.Industry, 0, len(l.industries))
	for _, ind := range l.industries {
		result = append(result, *ind)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// Technologies returns all loaded technologies ordered by name
func (l *Loader) Technologies() []models.Technology {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]models.Technology, 0, len(l.technologies))
	for _, tech := range l.technologies {
		result = append(result, *tech)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })
	return result
}

// GetIndustry returns an industry by ID
func (l *Loader) GetIndustry(id string) *models.Industry {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.industries[id]
}

// GlobalParameters returns a copy of the global parameters
func (l *Loader) GlobalParameters() []models.Parameter {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return models.CloneParameters(l.globals)
}

// CalculationCategories returns the default calculation categories
func (l *Loader) CalculationCategories() []models.CategoryRef {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if len(l.calcDefaults) == 0 {
		return append([]models.CategoryRef(nil), DefaultCalculationCategories...)
	}
	return append([]models.CategoryRef(nil), l.calcDefaults...)
}

// Seed upserts the loaded industries and technologies
func (l *Loader) Seed(ctx context.Context, s Seeder) error {
	for _, ind := range l.Industries() {
		ind := ind
		if err := s.UpsertIndustry(ctx, &ind); err != nil {
			return fmt.Errorf("failed to seed industry %s: %w", ind.ID, err)
		}
	}

	for _, tech := range l.Technologies() {
		tech := tech
		if err := s.UpsertTechnology(ctx, &tech); err != nil {
			return fmt.Errorf("failed to seed technology %s: %w", tech.ID, err)
		}
	}

	return nil
}

// LoadParametersFile parses a YAML file holding a `parameters:` list
func LoadParametersFile(path string) ([]models.Parameter, error) {
	var f parametersFile
	if err := readYAML(path, &f); err != nil {
		return nil, err
	}
	return f.Parameters, nil
}

// ValidateParametersFile parses a parameters file and validates every
// modifiable parameter in it, including duplicate names
func ValidateParametersFile(path string) ([]models.Parameter, error) {
	params, err := LoadParametersFile(path)
	if err != nil {
		return nil, err
	}

	var errs parameters.ValidationErrors
	for i, p := range params {
		if err := parameters.CheckDuplicateName(p.Name, p.ID, params[:i]); err != nil {
			errs = append(errs, parameters.ParameterError{ParameterID: p.ID, Name: p.Name, Err: err})
		}
	}

	if err := parameters.ValidateAll(params); err != nil {
		var verrs parameters.ValidationErrors
		if errors.As(err, &verrs) {
			errs = append(errs, verrs...)
		} else {
			return params, err
		}
	}

	if len(errs) > 0 {
		return params, errs
	}
	return params, nil
}

func readYAML(path string, out interface{}) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}

	return nil
}

// --- YAML file structs ---

type entryFile struct {
	ID          string `yaml:"id"`
	Name        string `yaml:"name"`
	Description string `yaml:"description"`
	Icon        string `yaml:"icon"`
}

// industriesFile represents the YAML structure of industries.yaml
type industriesFile struct {
	Industries []entryFile `yaml:"industries"`
}

// technologiesFile represents the YAML structure of technologies.yaml
type technologiesFile struct {
	Technologies []entryFile `yaml:"technologies"`
}

// parametersFile represents the YAML structure of a parameters file
type parametersFile struct {
	Parameters []models.Parameter `yaml:"parameters"`
}

// categoriesFile represents the YAML structure of calculation_categories.yaml
type categoriesFile struct {
	Categories []models.CategoryRef `yaml:"categories"`
}

package models

// GlobalCategory is the reserved category that always exists and sorts first
const GlobalCategory = "Global"

// InterfaceType describes how a parameter is surfaced to the end user
type InterfaceType string

const (
	InterfaceInput       InterfaceType = "input"
	InterfaceStatic      InterfaceType = "static"
	InterfaceNotViewable InterfaceType = "not_viewable"
)

// DisplayType describes how a static parameter value is captured and shown
type DisplayType string

const (
	DisplaySimple      DisplayType = "simple"
	DisplayDropdown    DisplayType = "dropdown"
	DisplayRange       DisplayType = "range"
	DisplayFilter      DisplayType = "filter"
	DisplayConditional DisplayType = "conditional"
)

// ProvidedByCompany marks legacy simple parameters whose value is supplied by the company
const ProvidedByCompany = "company"

// CategoryRef is the denormalized category stored on parameters and calculations.
// Name is the join key into the category registry.
type CategoryRef struct {
	Name  string     `json:"name" yaml:"name"`
	Color ColorToken `json:"color" yaml:"color"`
}

// UserInterface holds the interface settings of a parameter
type UserInterface struct {
	Type       InterfaceType `json:"type" yaml:"type"`
	Category   string        `json:"category" yaml:"category"`
	IsAdvanced bool          `json:"is_advanced" yaml:"is_advanced"`
}

// DropdownOption is a single key/value choice
type DropdownOption struct {
	Key   string `json:"key" yaml:"key"`
	Value string `json:"value" yaml:"value"`
}

// ConditionalRule maps a condition to a value
type ConditionalRule struct {
	Condition string `json:"condition" yaml:"condition"`
	Value     string `json:"value" yaml:"value"`
}

// Parameter is a named, typed configuration value attached to a solution
type Parameter struct {
	ID               string            `json:"id" yaml:"id"`
	Name             string            `json:"name" yaml:"name"`
	Value            string            `json:"value" yaml:"value"`
	TestValue        string            `json:"test_value" yaml:"test_value"`
	Unit             string            `json:"unit" yaml:"unit"`
	Description      string            `json:"description" yaml:"description"`
	Information      string            `json:"information,omitempty" yaml:"information"`
	Category         CategoryRef       `json:"category" yaml:"category"`
	UserInterface    UserInterface     `json:"user_interface" yaml:"user_interface"`
	Output           bool              `json:"output" yaml:"output"`
	DisplayType      DisplayType       `json:"display_type" yaml:"display_type"`
	DropdownOptions  []DropdownOption  `json:"dropdown_options,omitempty" yaml:"dropdown_options"`
	RangeMin         string            `json:"range_min,omitempty" yaml:"range_min"`
	RangeMax         string            `json:"range_max,omitempty" yaml:"range_max"`
	ConditionalRules []ConditionalRule `json:"conditional_rules,omitempty" yaml:"conditional_rules"`
	IsModifiable     bool              `json:"is_modifiable" yaml:"is_modifiable"`
	Level            string            `json:"level" yaml:"level"`
	ProvidedBy       string            `json:"provided_by,omitempty" yaml:"provided_by"`
}

// IsLocked returns true for system-seeded parameters that cannot be mutated
func (p Parameter) IsLocked() bool {
	return !p.IsModifiable
}

// IsExportable returns true if the parameter may appear in end-user facing exports
func (p Parameter) IsExportable() bool {
	return p.Output && p.UserInterface.Type != InterfaceNotViewable
}

// Clone returns a deep copy of the parameter
func (p Parameter) Clone() Parameter {
	out := p
	if p.DropdownOptions != nil {
		out.DropdownOptions = append([]DropdownOption(nil), p.DropdownOptions...)
	}
	if p.ConditionalRules != nil {
		out.ConditionalRules = append([]ConditionalRule(nil), p.ConditionalRules...)
	}
	return out
}

// CloneParameters deep-copies a parameter slice
func CloneParameters(params []Parameter) []Parameter {
	if params == nil {
		return nil
	}
	out := make([]Parameter, len(params))
	for i, p := range params {
		out[i] = p.Clone()
	}
	return out
}

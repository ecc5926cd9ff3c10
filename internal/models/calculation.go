package models

// CalculationStatus is the evaluation state of a calculation formula
type CalculationStatus string

const (
	CalculationValid   CalculationStatus = "valid"
	CalculationError   CalculationStatus = "error"
	CalculationPending CalculationStatus = "pending"
)

// Calculation is a formula attached to a solution.
// Its categories live in their own registry, separate from parameter categories.
type Calculation struct {
	ID            string            `json:"id" yaml:"id"`
	Name          string            `json:"name" yaml:"name"`
	Formula       string            `json:"formula" yaml:"formula"`
	Result        string            `json:"result" yaml:"result"`
	Units         string            `json:"units" yaml:"units"`
	Description   string            `json:"description" yaml:"description"`
	Category      CategoryRef       `json:"category" yaml:"category"`
	Status        CalculationStatus `json:"status" yaml:"status"`
	Output        bool              `json:"output" yaml:"output"`
	DisplayResult bool              `json:"display_result" yaml:"display_result"`
	Level         int               `json:"level" yaml:"level"`
}

// CloneCalculations copies a calculation slice
func CloneCalculations(calcs []Calculation) []Calculation {
	if calcs == nil {
		return nil
	}
	return append([]Calculation(nil), calcs...)
}

package models

// Industry represents a top-level market a solution applies to (e.g., data centers)
type Industry struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        IconToken `json:"icon"`
}

// Technology represents a technology family (e.g., liquid cooling)
type Technology struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	Icon        IconToken `json:"icon"`
}

// SolutionType groups variants for an industry/technology pair
type SolutionType struct {
	ID                     string        `json:"id"`
	Name                   string        `json:"name"`
	Description            string        `json:"description"`
	Icon                   IconToken     `json:"icon"`
	ApplicableIndustries   []string      `json:"applicable_industries"`
	ApplicableTechnologies []string      `json:"applicable_technologies"`
	Parameters             []Parameter   `json:"parameters,omitempty"`
	Calculations           []Calculation `json:"calculations,omitempty"`
	Status                 Status        `json:"status"`
	CreatedBy              string        `json:"created_by,omitempty"`
}

// SolutionVariant is a concrete variant under a solution type
type SolutionVariant struct {
	ID           string    `json:"id"`
	SolutionID   string    `json:"solution_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Icon         IconToken `json:"icon"`
	ProductBadge bool      `json:"product_badge"`
	CreatedBy    string    `json:"created_by,omitempty"`
}

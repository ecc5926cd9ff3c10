package models

import (
	"time"
)

// Status represents the persistence status of a solution record
type Status string

const (
	StatusDraft    Status = "draft"
	StatusPending  Status = "pending"
	StatusVerified Status = "verified"
)

// Valid returns true if the status is known
func (s Status) Valid() bool {
	return s == StatusDraft || s == StatusPending || s == StatusVerified
}

// SaveMode selects the status a client solution is saved under
type SaveMode string

const (
	SaveDraft           SaveMode = "draft"
	SaveSubmitForReview SaveMode = "submit"
)

// Status maps the save mode to the stored status.
// Submitted solutions wait in "pending" until reviewed.
func (m SaveMode) Status() Status {
	if m == SaveSubmitForReview {
		return StatusPending
	}
	return StatusDraft
}

// Valid returns true if the mode is known
func (m SaveMode) Valid() bool {
	return m == SaveDraft || m == SaveSubmitForReview
}

// ClientSolution is a client-specific configuration of a chosen variant
type ClientSolution struct {
	ID                         string        `json:"id"`
	ClientID                   string        `json:"client_id"`
	SolutionName               string        `json:"solution_name"`
	SolutionDescription        string        `json:"solution_description"`
	SolutionIcon               IconToken     `json:"solution_icon"`
	IndustryID                 string        `json:"industry"`
	TechnologyID               string        `json:"technology"`
	SolutionID                 string        `json:"solution"`
	SolutionVariantID          string        `json:"solution_variant"`
	SolutionVariantName        string        `json:"solution_variant_name"`
	SolutionVariantDescription string        `json:"solution_variant_description"`
	SolutionVariantIcon        IconToken     `json:"solution_variant_icon"`
	ProductBadge               bool          `json:"solution_variant_product_badge"`
	Parameters                 []Parameter   `json:"parameters,omitempty"`
	Calculations               []Calculation `json:"calculations,omitempty"`
	Categories                 []CategoryRef `json:"categories,omitempty"`
	Status                     Status        `json:"status"`
	CreatedBy                  string        `json:"created_by,omitempty"`
	CreatedAt                  time.Time     `json:"created_at"`
	UpdatedAt                  time.Time     `json:"updated_at"`
}

// ClientSolutionPatch is applied when updating an already-loaded client solution
type ClientSolutionPatch struct {
	Parameters   []Parameter   `json:"parameters"`
	Calculations []Calculation `json:"calculations"`
	Status       Status        `json:"status"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

// NewSolutionRequest is the payload for creating a solution type
type NewSolutionRequest struct {
	Name         string        `json:"solution_name"`
	Description  string        `json:"solution_description"`
	Icon         IconToken     `json:"solution_icon"`
	IndustryID   string        `json:"applicable_industries"`
	TechnologyID string        `json:"applicable_technologies"`
	Parameters   []Parameter   `json:"parameters"`
	Calculations []Calculation `json:"calculations"`
	Status       Status        `json:"status"`
	CreatedBy    string        `json:"created_by"`
	ClientID     string        `json:"client_id"`
}

// NewSolutionVariantRequest is the payload for creating a solution variant
type NewSolutionVariantRequest struct {
	SolutionID   string    `json:"solution_id"`
	Name         string    `json:"name"`
	Description  string    `json:"description"`
	Icon         IconToken `json:"icon"`
	ProductBadge bool      `json:"product_badge"`
	CreatedBy    string    `json:"created_by"`
}

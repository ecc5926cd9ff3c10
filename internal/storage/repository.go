package storage

import (
	"context"
	"errors"

	"github.com/terra-clan/solution-builder/internal/models"
)

// ErrNotFound is returned when an update targets a record that does not exist
var ErrNotFound = errors.New("record not found")

// Repository defines the interface for solution persistence
type Repository interface {
	// Catalog
	FetchIndustries(ctx context.Context) ([]models.Industry, error)
	FetchTechnologies(ctx context.Context) ([]models.Technology, error)
	FetchSolutionTypes(ctx context.Context, industryID, technologyID string) ([]models.SolutionType, error)
	FetchSolutionVariants(ctx context.Context, solutionID string) ([]models.SolutionVariant, error)
	UpsertIndustry(ctx context.Context, ind *models.Industry) error
	UpsertTechnology(ctx context.Context, tech *models.Technology) error

	// Solutions
	CreateSolution(ctx context.Context, req *models.NewSolutionRequest) (string, error)
	CreateSolutionVariant(ctx context.Context, req *models.NewSolutionVariantRequest) (string, error)

	// Client solutions
	FetchExistingClientSolutions(ctx context.Context, clientID string) ([]models.ClientSolution, error)
	CreateClientSolution(ctx context.Context, cs *models.ClientSolution) (string, error)
	UpdateClientSolution(ctx context.Context, id string, patch *models.ClientSolutionPatch) error

	// Clients
	GetClient(ctx context.Context, id string) (*models.Client, error)

	// Health
	Ping(ctx context.Context) error
	Close() error
}

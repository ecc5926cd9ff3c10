package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/terra-clan/solution-builder/internal/models"
)

// PostgresRepository implements Repository using PostgreSQL
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	DSN          string
	MaxOpenConns int32
	MaxIdleConns int32
	MaxLifetime  time.Duration
}

// NewPostgresRepository creates a new PostgreSQL repository
func NewPostgresRepository(ctx context.Context, cfg PostgresConfig) (*PostgresRepository, error) {
	poolConfig, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to parse DSN: %w", err)
	}

	// Set pool configuration
	if cfg.MaxOpenConns > 0 {
		poolConfig.MaxConns = cfg.MaxOpenConns
	} else {
		poolConfig.MaxConns = 25 // default
	}

	if cfg.MaxIdleConns > 0 {
		poolConfig.MinConns = cfg.MaxIdleConns
	} else {
		poolConfig.MinConns = 2
	}

	if cfg.MaxLifetime > 0 {
		poolConfig.MaxConnLifetime = cfg.MaxLifetime
	} else {
		poolConfig.MaxConnLifetime = 30 * time.Minute
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	// Test connection
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresRepository{pool: pool}, nil
}

// Pool exposes the connection pool for migrations
func (r *PostgresRepository) Pool() *pgxpool.Pool {
	return r.pool
}

// Ping checks database connectivity
func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Close closes the database connection pool
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// --- Catalog ---

// FetchIndustries returns all industries ordered by name
func (r *PostgresRepository) FetchIndustries(ctx context.Context) ([]models.Industry, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, icon FROM industries ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch industries: %w", err)
	}
	defer rows.Close()

	industries := make([]models.Industry, 0)
	for rows.Next() {
		var ind models.Industry
		var icon string
		if err := rows.Scan(&ind.ID, &ind.Name, &ind.Description, &icon); err != nil {
			return nil, fmt.Errorf("failed to scan industry: %w", err)
		}
		ind.Icon = models.ParseIconToken(icon)
		industries = append(industries, ind)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating industries: %w", err)
	}

	return industries, nil
}

// FetchTechnologies returns all technologies ordered by name
func (r *PostgresRepository) FetchTechnologies(ctx context.Context) ([]models.Technology, error) {
	rows, err := r.pool.Query(ctx, `SELECT id, name, description, icon FROM technologies ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch technologies: %w", err)
	}
	defer rows.Close()

	technologies := make([]models.Technology, 0)
	for rows.Next() {
		var tech models.Technology
		var icon string
		if err := rows.Scan(&tech.ID, &tech.Name, &tech.Description, &icon); err != nil {
			return nil, fmt.Errorf("failed to scan technology: %w", err)
		}
		tech.Icon = models.ParseIconToken(icon)
		technologies = append(technologies, tech)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating technologies: %w", err)
	}

	return technologies, nil
}

// UpsertIndustry inserts or updates an industry
func (r *PostgresRepository) UpsertIndustry(ctx context.Context, ind *models.Industry) error {
	query := `
		INSERT INTO industries (id, name, description, icon)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, description = EXCLUDED.description, icon = EXCLUDED.icon
	`

	if _, err := r.pool.Exec(ctx, query, ind.ID, ind.Name, ind.Description, string(ind.Icon)); err != nil {
		return fmt.Errorf("failed to upsert industry: %w", err)
	}

	return nil
}

// UpsertTechnology inserts or updates a technology
func (r *PostgresRepository) UpsertTechnology(ctx context.Context, tech *models.Technology) error {
	query := `
		INSERT INTO technologies (id, name, description, icon)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE
		SET name = EXCLUDED.name, description = EXCLUDED.description, icon = EXCLUDED.icon
	`

	if _, err := r.pool.Exec(ctx, query, tech.ID, tech.Name, tech.Description, string(tech.Icon)); err != nil {
		return fmt.Errorf("failed to upsert technology: %w", err)
	}

	return nil
}

// FetchSolutionTypes returns the solutions applicable to an industry and technology.
// Empty ids do not filter.
func (r *PostgresRepository) FetchSolutionTypes(ctx context.Context, industryID, technologyID string) ([]models.SolutionType, error) {
	query := `
		SELECT id, solution_name, solution_description, solution_icon, applicable_industries,
		       applicable_technologies, parameters, calculations, status, created_by
		FROM solutions
		WHERE 1=1
	`
	args := make([]interface{}, 0)
	argNum := 1

	if industryID != "" {
		query += fmt.Sprintf(" AND applicable_industries @> jsonb_build_array($%d::text)", argNum)
		args = append(args, industryID)
		argNum++
	}

	if technologyID != "" {
		query += fmt.Sprintf(" AND applicable_technologies @> jsonb_build_array($%d::text)", argNum)
		args = append(args, technologyID)
	}

	query += " ORDER BY solution_name"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch solution types: %w", err)
	}
	defer rows.Close()

	types := make([]models.SolutionType, 0)
	for rows.Next() {
		var st models.SolutionType
		var icon, status string
		var createdBy sql.NullString
		var industriesJSON, technologiesJSON, paramsJSON, calcsJSON []byte

		err := rows.Scan(
			&st.ID,
			&st.Name,
			&st.Description,
			&icon,
			&industriesJSON,
			&technologiesJSON,
			&paramsJSON,
			&calcsJSON,
			&status,
			&createdBy,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan solution type: %w", err)
		}

		st.Icon = models.ParseIconToken(icon)
		st.Status = models.Status(status)
		st.CreatedBy = createdBy.String

		if err := unmarshalAll(
			field{"applicable_industries", industriesJSON, &st.ApplicableIndustries},
			field{"applicable_technologies", technologiesJSON, &st.ApplicableTechnologies},
			field{"parameters", paramsJSON, &st.Parameters},
			field{"calculations", calcsJSON, &st.Calculations},
		); err != nil {
			return nil, err
		}

		types = append(types, st)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating solution types: %w", err)
	}

	return types, nil
}

// FetchSolutionVariants returns the variants of a solution
func (r *PostgresRepository) FetchSolutionVariants(ctx context.Context, solutionID string) ([]models.SolutionVariant, error) {
	query := `
		SELECT id, solution_id, name, description, icon, product_badge, created_by
		FROM solution_variants
		WHERE solution_id = $1
		ORDER BY created_at ASC
	`

	rows, err := r.pool.Query(ctx, query, solutionID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch solution variants: %w", err)
	}
	defer rows.Close()

	variants := make([]models.SolutionVariant, 0)
	for rows.Next() {
		var v models.SolutionVariant
		var icon string
		var createdBy sql.NullString

		if err := rows.Scan(&v.ID, &v.SolutionID, &v.Name, &v.Description, &icon, &v.ProductBadge, &createdBy); err != nil {
			return nil, fmt.Errorf("failed to scan solution variant: %w", err)
		}

		v.Icon = models.ParseIconToken(icon)
		v.CreatedBy = createdBy.String
		variants = append(variants, v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating solution variants: %w", err)
	}

	return variants, nil
}

// --- Solutions ---

// CreateSolution creates a new solution type and returns its id
func (r *PostgresRepository) CreateSolution(ctx context.Context, req *models.NewSolutionRequest) (string, error) {
	industriesJSON, err := json.Marshal(nonEmpty(req.IndustryID))
	if err != nil {
		return "", fmt.Errorf("failed to marshal industries: %w", err)
	}

	technologiesJSON, err := json.Marshal(nonEmpty(req.TechnologyID))
	if err != nil {
		return "", fmt.Errorf("failed to marshal technologies: %w", err)
	}

	paramsJSON, calcsJSON, err := marshalConfiguration(req.Parameters, req.Calculations)
	if err != nil {
		return "", err
	}

	query := `
		INSERT INTO solutions (id, solution_name, solution_description, solution_icon, applicable_industries,
		                       applicable_technologies, parameters, calculations, status, created_by, client_id, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	id := uuid.New().String()
	_, err = r.pool.Exec(ctx, query,
		id,
		req.Name,
		req.Description,
		string(req.Icon),
		industriesJSON,
		technologiesJSON,
		paramsJSON,
		calcsJSON,
		string(req.Status),
		nullString(req.CreatedBy),
		nullString(req.ClientID),
		time.Now(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create solution: %w", err)
	}

	return id, nil
}

// CreateSolutionVariant creates a new variant and returns its id
func (r *PostgresRepository) CreateSolutionVariant(ctx context.Context, req *models.NewSolutionVariantRequest) (string, error) {
	query := `
		INSERT INTO solution_variants (id, solution_id, name, description, icon, product_badge, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	id := uuid.New().String()
	_, err := r.pool.Exec(ctx, query,
		id,
		req.SolutionID,
		req.Name,
		req.Description,
		string(req.Icon),
		req.ProductBadge,
		nullString(req.CreatedBy),
		time.Now(),
	)
	if err != nil {
		return "", fmt.Errorf("failed to create solution variant: %w", err)
	}

	return id, nil
}

// --- Client solutions ---

const clientSolutionColumns = `
	id, client_id, solution_name, solution_description, solution_icon, industry, technology,
	solution, solution_variant, solution_variant_name, solution_variant_description,
	solution_variant_icon, solution_variant_product_badge, parameters, calculations,
	categories, status, created_by, created_at, updated_at
`

// FetchExistingClientSolutions returns every solution saved for a client, newest first
func (r *PostgresRepository) FetchExistingClientSolutions(ctx context.Context, clientID string) ([]models.ClientSolution, error) {
	query := `SELECT ` + clientSolutionColumns + ` FROM client_solutions WHERE client_id = $1 ORDER BY updated_at DESC`

	rows, err := r.pool.Query(ctx, query, clientID)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch client solutions: %w", err)
	}
	defer rows.Close()

	solutions := make([]models.ClientSolution, 0)
	for rows.Next() {
		cs, err := scanClientSolution(rows)
		if err != nil {
			return nil, err
		}
		solutions = append(solutions, *cs)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating client solutions: %w", err)
	}

	return solutions, nil
}

// CreateClientSolution creates a new client solution and returns its id
func (r *PostgresRepository) CreateClientSolution(ctx context.Context, cs *models.ClientSolution) (string, error) {
	paramsJSON, calcsJSON, err := marshalConfiguration(cs.Parameters, cs.Calculations)
	if err != nil {
		return "", err
	}

	categoriesJSON, err := json.Marshal(orEmpty(cs.Categories))
	if err != nil {
		return "", fmt.Errorf("failed to marshal categories: %w", err)
	}

	if cs.ID == "" {
		cs.ID = uuid.New().String()
	}
	if cs.CreatedAt.IsZero() {
		cs.CreatedAt = time.Now()
	}
	if cs.UpdatedAt.IsZero() {
		cs.UpdatedAt = cs.CreatedAt
	}

	query := `INSERT INTO client_solutions (` + clientSolutionColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)`

	_, err = r.pool.Exec(ctx, query,
		cs.ID,
		cs.ClientID,
		cs.SolutionName,
		cs.SolutionDescription,
		string(cs.SolutionIcon),
		cs.IndustryID,
		cs.TechnologyID,
		cs.SolutionID,
		cs.SolutionVariantID,
		cs.SolutionVariantName,
		cs.SolutionVariantDescription,
		string(cs.SolutionVariantIcon),
		cs.ProductBadge,
		paramsJSON,
		calcsJSON,
		categoriesJSON,
		string(cs.Status),
		nullString(cs.CreatedBy),
		cs.CreatedAt,
		cs.UpdatedAt,
	)
	if err != nil {
		return "", fmt.Errorf("failed to create client solution: %w", err)
	}

	return cs.ID, nil
}

// UpdateClientSolution replaces the configuration and status of a client solution
func (r *PostgresRepository) UpdateClientSolution(ctx context.Context, id string, patch *models.ClientSolutionPatch) error {
	paramsJSON, calcsJSON, err := marshalConfiguration(patch.Parameters, patch.Calculations)
	if err != nil {
		return err
	}

	updatedAt := patch.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now()
	}

	query := `
		UPDATE client_solutions
		SET parameters = $2, calculations = $3, status = $4, updated_at = $5
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, paramsJSON, calcsJSON, string(patch.Status), updatedAt)
	if err != nil {
		return fmt.Errorf("failed to update client solution: %w", err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("%w: client solution %s", ErrNotFound, id)
	}

	return nil
}

// --- Clients ---

// GetClient retrieves a client by ID
func (r *PostgresRepository) GetClient(ctx context.Context, id string) (*models.Client, error) {
	query := `
		SELECT id, name, company_name, is_active, created_at, industries, metadata
		FROM clients
		WHERE id = $1
	`

	var client models.Client
	var industriesJSON, metadataJSON []byte

	err := r.pool.QueryRow(ctx, query, id).Scan(
		&client.ID,
		&client.Name,
		&client.CompanyName,
		&client.IsActive,
		&client.CreatedAt,
		&industriesJSON,
		&metadataJSON,
	)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, fmt.Errorf("failed to get client: %w", err)
	}

	if err := unmarshalAll(
		field{"industries", industriesJSON, &client.Industries},
		field{"metadata", metadataJSON, &client.Metadata},
	); err != nil {
		return nil, err
	}

	return &client, nil
}

func scanClientSolution(row pgx.Row) (*models.ClientSolution, error) {
	var cs models.ClientSolution
	var solutionIcon, variantIcon, status string
	var createdBy sql.NullString
	var paramsJSON, calcsJSON, categoriesJSON []byte

	err := row.Scan(
		&cs.ID,
		&cs.ClientID,
		&cs.SolutionName,
		&cs.SolutionDescription,
		&solutionIcon,
		&cs.IndustryID,
		&cs.TechnologyID,
		&cs.SolutionID,
		&cs.SolutionVariantID,
		&cs.SolutionVariantName,
		&cs.SolutionVariantDescription,
		&variantIcon,
		&cs.ProductBadge,
		&paramsJSON,
		&calcsJSON,
		&categoriesJSON,
		&status,
		&createdBy,
		&cs.CreatedAt,
		&cs.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to scan client solution: %w", err)
	}

	cs.SolutionIcon = models.ParseIconToken(solutionIcon)
	cs.SolutionVariantIcon = models.ParseIconToken(variantIcon)
	cs.Status = models.Status(status)
	cs.CreatedBy = createdBy.String

	if err := unmarshalAll(
		field{"parameters", paramsJSON, &cs.Parameters},
		field{"calculations", calcsJSON, &cs.Calculations},
		field{"categories", categoriesJSON, &cs.Categories},
	); err != nil {
		return nil, err
	}

	return &cs, nil
}

// Helper functions for JSONB columns

type field struct {
	name string
	data []byte
	dest interface{}
}

func unmarshalAll(fields ...field) error {
	for _, f := range fields {
		if f.data == nil {
			continue
		}
		if err := json.Unmarshal(f.data, f.dest); err != nil {
			return fmt.Errorf("failed to unmarshal %s: %w", f.name, err)
		}
	}
	return nil
}

func marshalConfiguration(params []models.Parameter, calcs []models.Calculation) ([]byte, []byte, error) {
	paramsJSON, err := json.Marshal(orEmpty(params))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal parameters: %w", err)
	}

	calcsJSON, err := json.Marshal(orEmpty(calcs))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to marshal calculations: %w", err)
	}

	return paramsJSON, calcsJSON, nil
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func nonEmpty(ids ...string) []string {
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if id != "" {
			out = append(out, id)
		}
	}
	return out
}

// Helper functions for nullable values

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

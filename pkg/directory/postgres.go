package directory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	cserrors "github.com/ridgelineco/coachsync/pkg/errors"
	"github.com/ridgelineco/coachsync/pkg/logging"
)

// Repository implements Lookup against Postgres.
type Repository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewRepository creates a directory repository.
func NewRepository(pool *pgxpool.Pool, logger logging.Logger) *Repository {
	return &Repository{
		pool:   pool,
		logger: logger.With(logging.F("component", "directory_repository")),
	}
}

// CoachByEmail finds a coach by exact, case-insensitive email match.
func (r *Repository) CoachByEmail(ctx context.Context, email string) (*Coach, error) {
	const query = `
		SELECT id, name, email
		FROM coaches
		WHERE lower(email) = lower($1)
	`

	var c Coach
	err := r.pool.QueryRow(ctx, query, email).Scan(&c.ID, &c.Name, &c.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("coach by email %q: %w", email, cserrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query coach by email: %w", err)
	}
	return &c, nil
}

// CoachByID finds a coach by id.
func (r *Repository) CoachByID(ctx context.Context, id string) (*Coach, error) {
	const query = `
		SELECT id, name, email
		FROM coaches
		WHERE id = $1
	`

	var c Coach
	err := r.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.Email)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("coach by id %q: %w", id, cserrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query coach by id: %w", err)
	}
	return &c, nil
}

// ClientByEmail finds a client by exact, case-insensitive email match.
func (r *Repository) ClientByEmail(ctx context.Context, email string) (*Client, error) {
	const query = `
		SELECT id, name, email,
		       COALESCE(organization_id::text, ''),
		       COALESCE(primary_coach_id::text, '')
		FROM clients
		WHERE lower(email) = lower($1)
	`

	var c Client
	err := r.pool.QueryRow(ctx, query, email).Scan(&c.ID, &c.Name, &c.Email, &c.OrganizationID, &c.PrimaryCoachID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("client by email %q: %w", email, cserrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query client by email: %w", err)
	}
	return &c, nil
}

// ClientByID finds a client by id.
func (r *Repository) ClientByID(ctx context.Context, id string) (*Client, error) {
	const query = `
		SELECT id, name, email,
		       COALESCE(organization_id::text, ''),
		       COALESCE(primary_coach_id::text, '')
		FROM clients
		WHERE id = $1
	`

	var c Client
	err := r.pool.QueryRow(ctx, query, id).Scan(&c.ID, &c.Name, &c.Email, &c.OrganizationID, &c.PrimaryCoachID)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("client by id %q: %w", id, cserrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query client by id: %w", err)
	}
	return &c, nil
}

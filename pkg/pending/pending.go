// Package pending holds transcripts whose coach could not be identified.
// Entries wait in the queue until an operator assigns a coach, at which point
// the transcript re-enters the persistence path with an explicit override.
package pending

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	cserrors "github.com/ridgelineco/coachsync/pkg/errors"
	"github.com/ridgelineco/coachsync/pkg/logging"
)

// Status of a queue entry.
type Status string

const (
	StatusPending   Status = "pending_coach_assignment"
	StatusProcessed Status = "processed"
)

// Entry is one queued transcript awaiting coach assignment. It carries
// enough detail for an operator to recognize the session from a listing.
type Entry struct {
	ID               string
	ExternalID       string
	Title            string
	SessionDate      time.Time
	OrganizerEmail   string
	ParticipantNames []string
	UnmatchedEmails  []string
	CredentialID     string
	// Payload is the formatted transcript as JSON, kept so assignment can
	// re-enter the persistence path without re-fetching from the provider.
	Payload          []byte
	Status           Status
	AssignedCoachID  string
	AssignedClientID string
	DataItemID       string
	CreatedAt        time.Time
	ProcessedAt      *time.Time
}

// Queue is the pending-assignment surface the pipeline and CLI depend on.
type Queue interface {
	Enqueue(ctx context.Context, entry *Entry) error
	Get(ctx context.Context, id string) (*Entry, error)
	List(ctx context.Context, includeProcessed bool) ([]Entry, error)
	MarkProcessed(ctx context.Context, id, coachID, clientID, dataItemID string) error
}

// Repository implements Queue against Postgres.
type Repository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewRepository creates a pending-queue repository.
func NewRepository(pool *pgxpool.Pool, logger logging.Logger) *Repository {
	return &Repository{
		pool:   pool,
		logger: logger.With(logging.F("component", "pending_queue")),
	}
}

// Enqueue inserts a pending entry.
func (r *Repository) Enqueue(ctx context.Context, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Status == "" {
		entry.Status = StatusPending
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO pending_transcripts
			(id, external_id, title, session_date, organizer_email,
			 participant_names, unmatched_emails, credential_id, payload,
			 status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), $9, $10, $11)
	`

	_, err := r.pool.Exec(ctx, query,
		entry.ID, entry.ExternalID, entry.Title, entry.SessionDate,
		entry.OrganizerEmail, entry.ParticipantNames, entry.UnmatchedEmails,
		entry.CredentialID, entry.Payload, string(entry.Status), entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("enqueue pending transcript: %w", err)
	}

	r.logger.Info("transcript queued for coach assignment",
		logging.F("external_id", entry.ExternalID),
		logging.F("title", entry.Title))
	return nil
}

const entryColumns = `
	id, external_id, title, session_date, organizer_email,
	COALESCE(participant_names, '{}'), COALESCE(unmatched_emails, '{}'),
	COALESCE(credential_id, ''), payload, status,
	COALESCE(assigned_coach_id, ''), COALESCE(assigned_client_id, ''),
	COALESCE(data_item_id, ''), created_at, processed_at
`

func scanEntry(row pgx.Row) (*Entry, error) {
	var e Entry
	var status string
	err := row.Scan(
		&e.ID, &e.ExternalID, &e.Title, &e.SessionDate, &e.OrganizerEmail,
		&e.ParticipantNames, &e.UnmatchedEmails, &e.CredentialID, &e.Payload, &status,
		&e.AssignedCoachID, &e.AssignedClientID, &e.DataItemID,
		&e.CreatedAt, &e.ProcessedAt,
	)
	if err != nil {
		return nil, err
	}
	e.Status = Status(status)
	return &e, nil
}

// Get fetches one entry by id.
func (r *Repository) Get(ctx context.Context, id string) (*Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM pending_transcripts WHERE id = $1`

	e, err := scanEntry(r.pool.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("pending entry %q: %w", id, cserrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get pending entry: %w", err)
	}
	return e, nil
}

// List returns entries newest-first. Processed entries are excluded unless
// includeProcessed is set.
func (r *Repository) List(ctx context.Context, includeProcessed bool) ([]Entry, error) {
	query := `SELECT ` + entryColumns + ` FROM pending_transcripts`
	if !includeProcessed {
		query += ` WHERE status = '` + string(StatusPending) + `'`
	}
	query += ` ORDER BY created_at DESC LIMIT 500`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list pending entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan pending entry: %w", err)
		}
		entries = append(entries, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate pending entries: %w", err)
	}
	return entries, nil
}

// MarkProcessed stamps the assignment audit fields and flips the status. It
// fails with ErrInvalidState if the entry is already processed.
func (r *Repository) MarkProcessed(ctx context.Context, id, coachID, clientID, dataItemID string) error {
	const query = `
		UPDATE pending_transcripts
		SET status = $2,
		    assigned_coach_id = $3,
		    assigned_client_id = NULLIF($4, ''),
		    data_item_id = NULLIF($5, ''),
		    processed_at = $6
		WHERE id = $1 AND status = $7
	`

	tag, err := r.pool.Exec(ctx, query,
		id, string(StatusProcessed), coachID, clientID, dataItemID,
		time.Now().UTC(), string(StatusPending),
	)
	if err != nil {
		return fmt.Errorf("mark pending entry processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("pending entry %q not pending: %w", id, cserrors.ErrInvalidState)
	}

	r.logger.Info("pending entry assigned",
		logging.F("entry_id", id),
		logging.F("coach_id", coachID))
	return nil
}

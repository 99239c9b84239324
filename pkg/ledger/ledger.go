// Package ledger maintains the durable per-transcript sync record. The ledger
// is the dedup authority across webhook deliveries, manual imports, and
// scheduled runs: a synced or skipped entry is terminal, a failed entry may
// be retried. Entries are append-only except for one promotion: an existing
// entry gains its DataItem reference when the transcript finally persists.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	cserrors "github.com/ridgelineco/coachsync/pkg/errors"
	"github.com/ridgelineco/coachsync/pkg/logging"
)

// Status is the terminal disposition of one sync attempt.
type Status string

const (
	// StatusSynced means the transcript was fully persisted.
	StatusSynced Status = "synced"
	// StatusSkipped means the transcript was intentionally not persisted,
	// for example a non-coaching session or a pending-queue entry.
	StatusSkipped Status = "skipped"
	// StatusFailed means processing aborted on an error.
	StatusFailed Status = "failed"
)

// pgUniqueViolation is the Postgres error code for unique_violation.
const pgUniqueViolation = "23505"

// Entry is one ledger record keyed by the provider's external transcript id.
type Entry struct {
	ID           string
	ExternalID   string
	Status       Status
	SessionType  string
	DataItemID   string
	Reason       string
	CredentialID string
	SyncedAt     time.Time
}

// Recorder is the write/lookup surface the ingestion pipeline depends on.
type Recorder interface {
	Get(ctx context.Context, externalID string) (*Entry, error)
	Record(ctx context.Context, entry *Entry) error
	MarkSynced(ctx context.Context, externalID, dataItemID, sessionType string) error
}

// Repository implements Recorder against Postgres.
type Repository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewRepository creates a ledger repository.
func NewRepository(pool *pgxpool.Pool, logger logging.Logger) *Repository {
	return &Repository{
		pool:   pool,
		logger: logger.With(logging.F("component", "sync_ledger")),
	}
}

// Get fetches the entry for an external id.
func (r *Repository) Get(ctx context.Context, externalID string) (*Entry, error) {
	const query = `
		SELECT id, external_id, status,
		       COALESCE(session_type, ''),
		       COALESCE(data_item_id::text, ''),
		       COALESCE(reason, ''),
		       COALESCE(credential_id, ''),
		       synced_at
		FROM sync_ledger
		WHERE external_id = $1
	`

	var e Entry
	err := r.pool.QueryRow(ctx, query, externalID).Scan(
		&e.ID, &e.ExternalID, &e.Status, &e.SessionType,
		&e.DataItemID, &e.Reason, &e.CredentialID, &e.SyncedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("ledger entry %q: %w", externalID, cserrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get ledger entry: %w", err)
	}
	return &e, nil
}

// Record inserts an entry. The external id carries a unique constraint, so a
// concurrent duplicate insert surfaces as ErrConflict; callers treat that as
// a benign lost race, not a failure.
func (r *Repository) Record(ctx context.Context, entry *Entry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.SyncedAt.IsZero() {
		entry.SyncedAt = time.Now().UTC()
	}

	const query = `
		INSERT INTO sync_ledger
			(id, external_id, status, session_type, data_item_id, reason, credential_id, synced_at)
		VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, '')::uuid, NULLIF($6, ''), NULLIF($7, ''), $8)
	`

	_, err := r.pool.Exec(ctx, query,
		entry.ID, entry.ExternalID, string(entry.Status), entry.SessionType,
		entry.DataItemID, entry.Reason, entry.CredentialID, entry.SyncedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			r.logger.Debug("ledger entry already recorded",
				logging.F("external_id", entry.ExternalID))
			return fmt.Errorf("ledger entry %q: %w", entry.ExternalID, cserrors.ErrConflict)
		}
		return fmt.Errorf("record ledger entry: %w", err)
	}

	r.logger.Info("ledger entry recorded",
		logging.F("external_id", entry.ExternalID),
		logging.F("status", string(entry.Status)))
	return nil
}

// MarkSynced promotes an existing entry to synced and attaches the data item
// reference. This covers a skipped entry whose transcript is later assigned
// by an operator and a failed entry whose retry succeeded. An entry that is
// already synced is left untouched.
func (r *Repository) MarkSynced(ctx context.Context, externalID, dataItemID, sessionType string) error {
	const query = `
		UPDATE sync_ledger
		SET status = 'synced',
		    data_item_id = NULLIF($2, '')::uuid,
		    session_type = NULLIF($3, ''),
		    reason = NULL,
		    synced_at = $4
		WHERE external_id = $1 AND status <> 'synced'
	`

	tag, err := r.pool.Exec(ctx, query, externalID, dataItemID, sessionType, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("mark ledger entry synced: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return nil
	}

	r.logger.Info("ledger entry promoted to synced",
		logging.F("external_id", externalID),
		logging.F("data_item_id", dataItemID))
	return nil
}

// CountByStatus returns entry counts grouped by status, for run reports.
func (r *Repository) CountByStatus(ctx context.Context) (map[Status]int, error) {
	const query = `SELECT status, COUNT(*) FROM sync_ledger GROUP BY status`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("count ledger entries: %w", err)
	}
	defer rows.Close()

	counts := make(map[Status]int)
	for rows.Next() {
		var status string
		var n int
		if err := rows.Scan(&status, &n); err != nil {
			return nil, fmt.Errorf("scan ledger count: %w", err)
		}
		counts[Status(status)] = n
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger counts: %w", err)
	}
	return counts, nil
}

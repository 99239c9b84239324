package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/ridgelineco/coachsync/pkg/classifier"
	"github.com/ridgelineco/coachsync/pkg/contentid"
	cserrors "github.com/ridgelineco/coachsync/pkg/errors"
	"github.com/ridgelineco/coachsync/pkg/logging"
)

// Repository implements Writer and Reader against Postgres. Chunk embeddings
// are stored in a pgvector column via its text literal form.
type Repository struct {
	pool   *pgxpool.Pool
	logger logging.Logger
}

// NewRepository creates a store repository.
func NewRepository(pool *pgxpool.Pool, logger logging.Logger) *Repository {
	return &Repository{
		pool:   pool,
		logger: logger.With(logging.F("component", "store_repository")),
	}
}

// CreateItem persists a data item. A missing id is generated.
func (r *Repository) CreateItem(ctx context.Context, item *DataItem) error {
	if item.ID == "" {
		item.ID = contentid.New(contentid.TypeTranscript)
	}
	if item.CreatedAt.IsZero() {
		item.CreatedAt = time.Now().UTC()
	}

	meta, err := json.Marshal(item.Metadata)
	if err != nil {
		return fmt.Errorf("marshal item metadata: %w", err)
	}

	const query = `
		INSERT INTO data_items
			(id, external_id, title, session_date, duration_minutes, session_type,
			 coach_id, client_id, organization_id, matched_via, summary, content,
			 metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6,
		        NULLIF($7, ''), NULLIF($8, ''), NULLIF($9, ''), $10, $11, $12,
		        $13, $14)
	`

	_, err = r.pool.Exec(ctx, query,
		item.ID, item.ExternalID, item.Title, item.SessionDate, item.DurationMinutes,
		string(item.SessionType), item.CoachID, item.ClientID, item.OrganizationID,
		item.MatchedVia, item.Summary, item.Content, meta, item.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert data item: %w", err)
	}

	r.logger.Debug("data item created",
		logging.F("data_item_id", item.ID),
		logging.F("external_id", item.ExternalID))
	return nil
}

// CreateChunk persists one embedded chunk. A missing id is generated.
func (r *Repository) CreateChunk(ctx context.Context, chunk *DataChunk) error {
	if chunk.ID == "" {
		chunk.ID = contentid.New(contentid.TypeChunk)
	}
	if chunk.CreatedAt.IsZero() {
		chunk.CreatedAt = time.Now().UTC()
	}

	meta, err := json.Marshal(chunk.Metadata)
	if err != nil {
		return fmt.Errorf("marshal chunk metadata: %w", err)
	}

	const query = `
		INSERT INTO data_chunks
			(id, data_item_id, position, content, embedding, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5::vector, $6, $7)
	`

	_, err = r.pool.Exec(ctx, query,
		chunk.ID, chunk.DataItemID, chunk.Position, chunk.Content,
		vectorLiteral(chunk.Embedding), meta, chunk.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert data chunk %d: %w", chunk.Position, err)
	}
	return nil
}

// GetItem fetches a data item by id.
func (r *Repository) GetItem(ctx context.Context, id string) (*DataItem, error) {
	return r.getItem(ctx, `WHERE id = $1`, id)
}

// GetItemByExternalID fetches a data item by its provider transcript id.
func (r *Repository) GetItemByExternalID(ctx context.Context, externalID string) (*DataItem, error) {
	return r.getItem(ctx, `WHERE external_id = $1`, externalID)
}

func (r *Repository) getItem(ctx context.Context, where, arg string) (*DataItem, error) {
	query := `
		SELECT id, external_id, title, session_date, duration_minutes, session_type,
		       COALESCE(coach_id, ''), COALESCE(client_id, ''),
		       COALESCE(organization_id, ''), matched_via, summary, content,
		       COALESCE(metadata, '{}'), created_at
		FROM data_items
	` + where

	var item DataItem
	var sessionType string
	var meta []byte
	err := r.pool.QueryRow(ctx, query, arg).Scan(
		&item.ID, &item.ExternalID, &item.Title, &item.SessionDate,
		&item.DurationMinutes, &sessionType, &item.CoachID, &item.ClientID,
		&item.OrganizationID, &item.MatchedVia, &item.Summary, &item.Content,
		&meta, &item.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("data item %q: %w", arg, cserrors.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get data item: %w", err)
	}

	item.SessionType = classifier.SessionType(sessionType)
	if len(meta) > 0 {
		if err := json.Unmarshal(meta, &item.Metadata); err != nil {
			return nil, fmt.Errorf("decode item metadata: %w", err)
		}
	}
	return &item, nil
}

// CountChunks returns the number of persisted chunks for a data item.
func (r *Repository) CountChunks(ctx context.Context, dataItemID string) (int, error) {
	const query = `SELECT COUNT(*) FROM data_chunks WHERE data_item_id = $1`

	var n int
	if err := r.pool.QueryRow(ctx, query, dataItemID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count chunks: %w", err)
	}
	return n, nil
}

// vectorLiteral renders a float slice in pgvector's input format: [x,y,z].
func vectorLiteral(vec []float32) string {
	var b strings.Builder
	b.WriteByte('[')
	for i, v := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}

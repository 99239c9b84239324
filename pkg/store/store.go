// Package store persists processed transcripts as data items with
// embedded chunks. A data item is the canonical record of one coaching
// session; its chunks carry the embeddings used for semantic retrieval.
package store

import (
	"context"
	"time"

	"github.com/ridgelineco/coachsync/pkg/classifier"
)

// DataItem is the persisted record of one processed transcript.
type DataItem struct {
	ID              string
	ExternalID      string
	Title           string
	SessionDate     time.Time
	DurationMinutes float64
	SessionType     classifier.SessionType
	CoachID         string
	ClientID        string
	OrganizationID  string
	MatchedVia      string
	Summary         string
	Content         string
	Metadata        map[string]string
	CreatedAt       time.Time
}

// DataChunk is one embedded slice of a data item's content. Metadata carries
// the chunk-local provenance tags (source, external id) so a chunk retrieved
// on its own still identifies its origin.
type DataChunk struct {
	ID         string
	DataItemID string
	Position   int
	Content    string
	Embedding  []float32
	Metadata   map[string]string
	CreatedAt  time.Time
}

// Writer is the persistence surface the ingestion pipeline depends on.
type Writer interface {
	// CreateItem persists the data item record and returns its id.
	CreateItem(ctx context.Context, item *DataItem) error
	// CreateChunk persists one embedded chunk. Chunks are written
	// sequentially; a failed chunk does not roll back its siblings.
	CreateChunk(ctx context.Context, chunk *DataChunk) error
}

// Reader provides lookup for CLI inspection commands.
type Reader interface {
	GetItem(ctx context.Context, id string) (*DataItem, error)
	GetItemByExternalID(ctx context.Context, externalID string) (*DataItem, error)
	CountChunks(ctx context.Context, dataItemID string) (int, error)
}

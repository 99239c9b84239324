package ingest

import (
	"fmt"

	"github.com/ridgelineco/coachsync/pkg/classifier"
	"github.com/ridgelineco/coachsync/pkg/identity"
)

// OutcomeStatus is the terminal disposition of one transcript pass.
type OutcomeStatus string

const (
	// OutcomeSynced means the transcript was persisted with all or some
	// of its chunks embedded.
	OutcomeSynced OutcomeStatus = "synced"
	// OutcomeSkipped means the transcript was intentionally not
	// persisted, either as a duplicate or a non-coaching session.
	OutcomeSkipped OutcomeStatus = "skipped"
	// OutcomeQueued means the transcript entered the pending-assignment
	// queue because no coach could be identified.
	OutcomeQueued OutcomeStatus = "queued"
	// OutcomeFailed means processing aborted on an error.
	OutcomeFailed OutcomeStatus = "failed"
)

// Skip reasons recorded in the ledger and run reports.
const (
	ReasonDuplicate  = "already_synced"
	ReasonUnresolved = "no_coach_match"
)

// Outcome is the typed result of processing one transcript.
type Outcome struct {
	Status          OutcomeStatus
	ExternalID      string
	DataItemID      string
	SessionType     classifier.SessionType
	MatchedVia      identity.MatchedVia
	ChunksProcessed int
	ChunksTotal     int
	Reason          string
	Err             error
}

// Synced reports whether the transcript was persisted.
func (o *Outcome) Synced() bool {
	return o.Status == OutcomeSynced
}

// Summary renders a one-line human-readable disposition for CLI output.
func (o *Outcome) Summary() string {
	switch o.Status {
	case OutcomeSynced:
		return fmt.Sprintf("%s: synced as %s (%s, %d/%d chunks)",
			o.ExternalID, o.DataItemID, o.SessionType, o.ChunksProcessed, o.ChunksTotal)
	case OutcomeSkipped:
		return fmt.Sprintf("%s: skipped (%s)", o.ExternalID, o.Reason)
	case OutcomeQueued:
		return fmt.Sprintf("%s: queued for coach assignment", o.ExternalID)
	case OutcomeFailed:
		return fmt.Sprintf("%s: failed: %v", o.ExternalID, o.Err)
	}
	return fmt.Sprintf("%s: %s", o.ExternalID, o.Status)
}

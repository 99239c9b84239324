package cmd

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ridgelineco/coachsync/pkg/ingest"
)

func captureCommand() (*cobra.Command, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	c := &cobra.Command{}
	c.SetOut(buf)
	c.SetErr(buf)
	return c, buf
}

func sampleReport() *ingest.RunReport {
	start := time.Date(2026, 8, 20, 9, 0, 0, 0, time.UTC)
	return &ingest.RunReport{
		StartedAt:   start,
		CompletedAt: start.Add(42 * time.Second),
		Credentials: []ingest.CredentialReport{
			{Credential: "avery", Found: 3, Synced: 1, Skipped: 1, Queued: 1},
			{Credential: "marisol", Err: errors.New("token expired")},
		},
		Synced: []ingest.Outcome{{
			Status:          ingest.OutcomeSynced,
			ExternalID:      "mtg_001",
			DataItemID:      "tr-abcd1234",
			SessionType:     "client_coaching",
			ChunksProcessed: 4,
			ChunksTotal:     4,
		}},
		Skipped: []ingest.Outcome{{
			Status:     ingest.OutcomeSkipped,
			ExternalID: "mtg_002",
			Reason:     ingest.ReasonDuplicate,
		}},
		Queued: []ingest.Outcome{{
			Status:     ingest.OutcomeQueued,
			ExternalID: "mtg_003",
			Reason:     ingest.ReasonUnresolved,
		}},
	}
}

func TestPrintReportText(t *testing.T) {
	c, buf := captureCommand()

	printReportText(c, sampleReport())
	out := buf.String()

	assert.Contains(t, out, "avery")
	assert.Contains(t, out, "found=3 synced=1 skipped=1 queued=1 failed=0")
	assert.Contains(t, out, "marisol")
	assert.Contains(t, out, "token expired")
	assert.Contains(t, out, "1 synced, 1 skipped, 1 queued, 0 failed")
	assert.Contains(t, out, "mtg_001 -> tr-abcd1234")
	assert.Contains(t, out, "mtg_003 (awaiting coach assignment)")
}

func TestPrintReportJSON(t *testing.T) {
	c, buf := captureCommand()

	require.NoError(t, printReportJSON(c, sampleReport()))

	var decoded struct {
		Credentials []struct {
			Credential string `json:"credential"`
			Error      string `json:"error"`
		} `json:"credentials"`
		Synced []struct {
			ExternalID  string `json:"external_id"`
			DataItemID  string `json:"data_item_id"`
			SessionType string `json:"session_type"`
		} `json:"synced"`
		Queued []struct {
			Reason string `json:"reason"`
		} `json:"queued"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	require.Len(t, decoded.Credentials, 2)
	assert.Equal(t, "token expired", decoded.Credentials[1].Error)
	require.Len(t, decoded.Synced, 1)
	assert.Equal(t, "tr-abcd1234", decoded.Synced[0].DataItemID)
	assert.Equal(t, "client_coaching", decoded.Synced[0].SessionType)
	require.Len(t, decoded.Queued, 1)
	assert.Equal(t, ingest.ReasonUnresolved, decoded.Queued[0].Reason)
}

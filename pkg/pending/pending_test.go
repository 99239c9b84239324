package pending

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestStatusValues(t *testing.T) {
	// Persisted status strings; must not drift.
	assert.Equal(t, Status("pending_coach_assignment"), StatusPending)
	assert.Equal(t, Status("processed"), StatusProcessed)
}

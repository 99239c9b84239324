package classifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify_KeywordGroups(t *testing.T) {
	tests := []struct {
		title string
		want  SessionType
	}{
		{"Q3 Strategy Offsite", SessionInternal},
		{"Leadership All Hands", SessionInternal},
		{"Maya 1:1", SessionStaffOneOnOne},
		{"One-on-one with ops", SessionStaffOneOnOne},
		{"New Coach Onboarding Workshop", SessionTraining},
		{"Discovery call - Acme", SessionSalesCall},
		{"Intro Call with prospect", SessionSalesCall},
		{"Personal Development Session", SessionPersonalDev},
		{"360 Stakeholder Interview - VP Eng", SessionReview360},
		{"Covering for Marisol", SessionOtherCoach},
	}

	for _, tc := range tests {
		t.Run(tc.title, func(t *testing.T) {
			assert.Equal(t, tc.want, Classify(tc.title, false))
		})
	}
}

func TestClassify_PriorityOrderFirstMatchWins(t *testing.T) {
	// "training" appears in the title, but the internal group is evaluated
	// first, so internal wins.
	got := Classify("Internal training strategy review", false)
	assert.Equal(t, SessionInternal, got)
}

func TestClassify_KeywordBeatsClientMatch(t *testing.T) {
	// Keyword groups outrank the client-match fallback.
	got := Classify("360 review with stakeholder", true)
	assert.Equal(t, SessionReview360, got)
}

func TestClassify_ClientMatchFallback(t *testing.T) {
	// Scenario: no keyword group matched but the resolver found a client.
	got := Classify("Jake Krask and Ryan Session Jan 7 2026", true)
	assert.Equal(t, SessionClientCoaching, got)
}

func TestClassify_CopyOfPrefix(t *testing.T) {
	got := Classify("Copy of Jordan Weekly", false)
	assert.Equal(t, SessionUnmatchedClient, got)
}

func TestClassify_CoachNameAdjacency(t *testing.T) {
	tests := []string{
		"Jordan - Avery",
		"Jordan & Marisol",
		"Avery - Sam",
	}
	for _, title := range tests {
		t.Run(title, func(t *testing.T) {
			assert.Equal(t, SessionUnmatchedClient, Classify(title, false))
		})
	}
}

func TestClassify_TwoNameConversational(t *testing.T) {
	assert.Equal(t, SessionNetworking, Classify("Maria and Tom", false))
	assert.Equal(t, SessionNetworking, Classify("Jake / Priya catch up", false))
}

func TestClassify_UntaggedDefault(t *testing.T) {
	// Scenario: nothing matches and no client match; ingestion proceeds
	// with the untagged label.
	assert.Equal(t, SessionUntagged, Classify("New FS Thing Weekly", false))
	assert.Equal(t, SessionUntagged, Classify("", false))
}

func TestNew_CustomRuleTable(t *testing.T) {
	c := New([]Rule{
		{
			Name:  "always",
			Match: func(Input) bool { return true },
			Label: SessionInternal,
		},
	})
	assert.Equal(t, SessionInternal, c.Classify("anything", false))
}

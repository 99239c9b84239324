// Package classifier labels coaching sessions by heuristic title matching.
//
// Classification is an ordered rule table: the first rule whose predicate
// matches wins and no further rules are evaluated. The keyword lists encode
// one organization's meeting-naming habits and are expected to grow as new
// conventions appear; callers can supply their own table via New.
package classifier

import (
	"regexp"
	"strings"
)

// SessionType labels the kind of session a transcript captures.
type SessionType string

const (
	SessionInternal        SessionType = "internal"
	SessionStaffOneOnOne   SessionType = "staff_one_on_one"
	SessionTraining        SessionType = "training"
	SessionSalesCall       SessionType = "sales_call"
	SessionPersonalDev     SessionType = "personal_development"
	SessionReview360       SessionType = "review_360"
	SessionOtherCoach      SessionType = "other_coach"
	SessionClientCoaching  SessionType = "client_coaching"
	SessionUnmatchedClient SessionType = "unmatched_client"
	SessionNetworking      SessionType = "networking"
	SessionUntagged        SessionType = "untagged"
)

// Input carries everything a rule may look at.
type Input struct {
	// TitleLower is the lower-cased, trimmed meeting title.
	TitleLower string

	// HasClientMatch is true when identity resolution matched a client.
	HasClientMatch bool
}

// Rule pairs a predicate with the label it assigns.
type Rule struct {
	Name  string
	Match func(Input) bool
	Label SessionType
}

// Classifier evaluates an ordered rule table.
type Classifier struct {
	rules []Rule
}

// New creates a classifier with a custom rule table. Rules are evaluated in
// order; the first match wins.
func New(rules []Rule) *Classifier {
	return &Classifier{rules: rules}
}

// NewDefault creates a classifier with the default rule table.
func NewDefault() *Classifier {
	return New(DefaultRules())
}

// Classify returns the session label for the given title. A failure to match
// any rule yields SessionUntagged, which flags the transcript for manual
// review but never blocks ingestion.
func (c *Classifier) Classify(title string, hasClientMatch bool) SessionType {
	in := Input{
		TitleLower:     strings.ToLower(strings.TrimSpace(title)),
		HasClientMatch: hasClientMatch,
	}
	for _, r := range c.rules {
		if r.Match(in) {
			return r.Label
		}
	}
	return SessionUntagged
}

// Classify labels a title using the default rule table.
func Classify(title string, hasClientMatch bool) SessionType {
	return NewDefault().Classify(title, hasClientMatch)
}

// containsAny reports whether the title contains any of the keywords.
func containsAny(keywords ...string) func(Input) bool {
	return func(in Input) bool {
		for _, kw := range keywords {
			if strings.Contains(in.TitleLower, kw) {
				return true
			}
		}
		return false
	}
}

// knownCoachNames are first names of coaches whose sessions show up in
// shared calendars under adjacency patterns like "Avery - Jordan".
var knownCoachNames = []string{"avery", "marisol", "deshawn"}

var (
	// "<name> - <coach>", "<name> & <coach>", "<coach> - <name>"
	nameAdjacency = regexp.MustCompile(`^[\p{L}.' ]+\s*[-&]\s*[\p{L}.' ]+$`)

	// Two bare names joined conversationally, e.g. "jake and ryan",
	// "maria / tom catch up".
	twoNameConversational = regexp.MustCompile(`^[\p{L}.']+\s+(?:and|&|/|\+)\s+[\p{L}.']+(?:\s+.*)?$`)
)

func matchesCoachAdjacency(in Input) bool {
	if !nameAdjacency.MatchString(in.TitleLower) {
		return false
	}
	for _, name := range knownCoachNames {
		if strings.Contains(in.TitleLower, name) {
			return true
		}
	}
	return false
}

// DefaultRules returns the default ordered rule table. The order is the
// contract: keyword groups first, then the client-match fallback, then the
// unmatched-client and networking patterns.
func DefaultRules() []Rule {
	return []Rule{
		{
			Name:  "internal",
			Match: containsAny("internal", "strategy", "leadership", "all hands", "all-hands", "team sync", "quarterly planning", "offsite"),
			Label: SessionInternal,
		},
		{
			Name:  "staff_one_on_one",
			Match: containsAny("1:1", "1-1", "one on one", "one-on-one", "staff check-in"),
			Label: SessionStaffOneOnOne,
		},
		{
			Name:  "training",
			Match: containsAny("training", "workshop", "onboarding", "certification", "practicum"),
			Label: SessionTraining,
		},
		{
			Name:  "sales_call",
			Match: containsAny("intro call", "discovery", "fit call", "sales", "consult", "prospect"),
			Label: SessionSalesCall,
		},
		{
			Name:  "personal_development",
			Match: containsAny("personal development", "pd session", "growth plan", "career conversation"),
			Label: SessionPersonalDev,
		},
		{
			Name:  "review_360",
			Match: containsAny("360", "stakeholder interview", "feedback interview"),
			Label: SessionReview360,
		},
		{
			Name:  "other_coach",
			Match: containsAny("avery's client", "marisol coaching", "covering for"),
			Label: SessionOtherCoach,
		},
		{
			Name:  "client_match",
			Match: func(in Input) bool { return in.HasClientMatch },
			Label: SessionClientCoaching,
		},
		{
			Name: "copy_of",
			Match: func(in Input) bool {
				return strings.HasPrefix(in.TitleLower, "copy of ")
			},
			Label: SessionUnmatchedClient,
		},
		{
			Name:  "coach_name_adjacency",
			Match: matchesCoachAdjacency,
			Label: SessionUnmatchedClient,
		},
		{
			Name: "two_name_conversational",
			Match: func(in Input) bool {
				return twoNameConversational.MatchString(in.TitleLower)
			},
			Label: SessionNetworking,
		},
	}
}

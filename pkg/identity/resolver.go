// Package identity resolves transcript participants against the internal
// coach and client directories.
//
// Resolution is a priority chain: organizer and host emails are far more
// likely to belong to the coach than an arbitrary attendee, so they are
// checked first; the primary-coach and credential-owner fallbacks recover
// "private" or "solo" transcripts that carry no coach-identifying email at
// all. Absence of any match is not an error; it routes the transcript to
// the pending-assignment queue.
package identity

import (
	"context"
	"fmt"
	"strings"

	"github.com/ridgelineco/coachsync/pkg/directory"
	cserrors "github.com/ridgelineco/coachsync/pkg/errors"
	"github.com/ridgelineco/coachsync/pkg/logging"
)

// MatchedVia records which rule in the fallback chain produced the coach match.
type MatchedVia string

const (
	MatchedViaEmail            MatchedVia = "email"
	MatchedViaPrimaryCoach     MatchedVia = "primary_coach"
	MatchedViaCredentialOwner  MatchedVia = "credential_owner"
	MatchedViaExplicitOverride MatchedVia = "explicit_override"
	MatchedViaNone             MatchedVia = "none"
)

// Candidates carries the participant emails of one transcript, in the order
// the resolver should consider them.
type Candidates struct {
	OrganizerEmail string
	HostEmail      string
	AttendeeEmails []string
}

// Emails returns the deduplicated, order-preserving candidate list:
// organizer first, then host if distinct, then attendees in listed order.
// Comparison is case-insensitive; empty entries are dropped.
func (c Candidates) Emails() []string {
	var out []string
	seen := make(map[string]bool)
	add := func(email string) {
		email = strings.TrimSpace(email)
		if email == "" {
			return
		}
		key := strings.ToLower(email)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, email)
	}

	add(c.OrganizerEmail)
	add(c.HostEmail)
	for _, e := range c.AttendeeEmails {
		add(e)
	}
	return out
}

// MatchResult is the outcome of one resolution pass.
type MatchResult struct {
	Coach           *directory.Coach
	Client          *directory.Client
	OrganizationID  string
	UnmatchedEmails []string
	MatchedVia      MatchedVia
}

// Resolved reports whether a coach was identified.
func (m *MatchResult) Resolved() bool {
	return m.Coach != nil
}

// ClientID returns the matched client id, or "".
func (m *MatchResult) ClientID() string {
	if m.Client == nil {
		return ""
	}
	return m.Client.ID
}

// ExplicitOverride builds a MatchResult for the operator-supplied assignment
// path. It always outranks automatic resolution.
func ExplicitOverride(coach *directory.Coach, client *directory.Client) *MatchResult {
	res := &MatchResult{
		Coach:      coach,
		Client:     client,
		MatchedVia: MatchedViaExplicitOverride,
	}
	if client != nil {
		res.OrganizationID = client.OrganizationID
	}
	return res
}

// Resolver maps participant emails to directory identities.
type Resolver struct {
	dir    directory.Lookup
	logger logging.Logger
}

// NewResolver creates a resolver backed by the given directory.
func NewResolver(dir directory.Lookup, logger logging.Logger) *Resolver {
	return &Resolver{
		dir:    dir,
		logger: logger.With(logging.F("component", "identity_resolver")),
	}
}

// Resolve walks the candidate email list once, first-match-wins per role,
// then applies the primary-coach and credential-owner fallbacks.
// fallbackCoachID is the credential's attributed owner, or "".
func (r *Resolver) Resolve(ctx context.Context, cands Candidates, fallbackCoachID string) (*MatchResult, error) {
	res := &MatchResult{MatchedVia: MatchedViaNone}

	for _, email := range cands.Emails() {
		matched := false

		if res.Coach == nil {
			coach, err := r.dir.CoachByEmail(ctx, email)
			switch {
			case err == nil:
				res.Coach = coach
				res.MatchedVia = MatchedViaEmail
				// A coach email is never also a client email for the same
				// transcript; skip the client attempt for this address.
				continue
			case !cserrors.IsNotFound(err):
				return nil, fmt.Errorf("coach lookup for %s: %w", email, err)
			}
		}

		if res.Client == nil {
			client, err := r.dir.ClientByEmail(ctx, email)
			switch {
			case err == nil:
				res.Client = client
				res.OrganizationID = client.OrganizationID
				matched = true
			case !cserrors.IsNotFound(err):
				return nil, fmt.Errorf("client lookup for %s: %w", email, err)
			}
		}

		if !matched {
			res.UnmatchedEmails = append(res.UnmatchedEmails, email)
		}
	}

	// Fallback: the matched client's designated primary coach.
	if res.Coach == nil && res.Client != nil && res.Client.PrimaryCoachID != "" {
		coach, err := r.dir.CoachByID(ctx, res.Client.PrimaryCoachID)
		switch {
		case err == nil:
			res.Coach = coach
			res.MatchedVia = MatchedViaPrimaryCoach
		case !cserrors.IsNotFound(err):
			return nil, fmt.Errorf("primary coach lookup: %w", err)
		}
	}

	// Fallback: the credential's attributed owner. Recovers transcripts
	// where the coach is the sole attendee of record and never appears in
	// the organizer/host/attendee fields under their own account.
	if res.Coach == nil && fallbackCoachID != "" {
		coach, err := r.dir.CoachByID(ctx, fallbackCoachID)
		switch {
		case err == nil:
			res.Coach = coach
			res.MatchedVia = MatchedViaCredentialOwner
		case !cserrors.IsNotFound(err):
			return nil, fmt.Errorf("credential owner lookup: %w", err)
		}
	}

	r.logger.Debug("resolution complete",
		logging.F("matched_via", string(res.MatchedVia)),
		logging.F("unmatched_emails", len(res.UnmatchedEmails)))

	return res, nil
}

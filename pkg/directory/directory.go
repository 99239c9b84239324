// Package directory provides lookups against the internal coach and client
// directories used for transcript identity resolution.
package directory

import "context"

// Coach is a service provider in the internal directory.
type Coach struct {
	ID    string
	Name  string
	Email string
}

// Client is a service recipient in the internal directory.
type Client struct {
	ID             string
	Name           string
	Email          string
	OrganizationID string
	// PrimaryCoachID is the coach this client is assigned to, used as a
	// resolution fallback when no coach email appears on a transcript.
	PrimaryCoachID string
}

// Lookup resolves directory identities. Email lookups are case-insensitive.
// All methods return errors.ErrNotFound (wrapped) when no record matches.
type Lookup interface {
	CoachByEmail(ctx context.Context, email string) (*Coach, error)
	CoachByID(ctx context.Context, id string) (*Coach, error)
	ClientByEmail(ctx context.Context, email string) (*Client, error)
	ClientByID(ctx context.Context, id string) (*Client, error)
}

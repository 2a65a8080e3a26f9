package contract

import (
	"context"
	"time"
)

// BusinessProfiles is the read-only per-account configuration source.
type BusinessProfiles interface {
	Profile(ctx context.Context, businessID string) (Profile, error)
}

// ClientRegistry looks up and registers the customers of a business.
// FindClientByPhone returns ErrNotFound when no client matches.
type ClientRegistry interface {
	FindClientByPhone(ctx context.Context, businessID, phone string) (Client, error)
	CreateClient(ctx context.Context, businessID, name, phone string) (Client, error)
}

// Appointments creates calendar events. EventDuration returns 0 when the
// owner has not configured one.
type Appointments interface {
	CreateEvent(ctx context.Context, in EventInput) (Event, error)
	EventDuration(ctx context.Context, ownerUserID string) (time.Duration, error)
}

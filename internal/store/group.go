package store

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/phrazzld/chorecast/internal/domain"
)

// GroupRoster is the read-only group membership directory.
type GroupRoster interface {
	// ActiveMembers returns the user IDs of the group's active members in a
	// stable order. An unknown group yields an empty slice.
	ActiveMembers(ctx context.Context, groupID uuid.UUID) ([]uuid.UUID, error)
}

// HolidayStore holds organization-specific holidays that supplement the
// public calendar.
type HolidayStore interface {
	// ListBetween returns custom holidays with from <= date <= to, ordered by date.
	ListBetween(ctx context.Context, from, to time.Time) ([]domain.Holiday, error)
}

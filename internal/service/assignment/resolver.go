// Package assignment picks the responsible group member for a materialized
// task.
package assignment

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"slices"

	"github.com/google/uuid"
	"github.com/phrazzld/chorecast/internal/domain"
	"github.com/phrazzld/chorecast/internal/platform/logger"
	"github.com/phrazzld/chorecast/internal/store"
)

// Common errors
var (
	// ErrAssigneeNotInGroup indicates the fixed assignee is no longer an
	// active member of the template's group.
	ErrAssigneeNotInGroup = errors.New("assignee no longer in group")

	// ErrNoEligibleMembers indicates auto-assignment found an empty roster.
	ErrNoEligibleMembers = errors.New("no eligible group members")

	// ErrNoAssignmentMode indicates the template names neither a fixed
	// assignee nor auto-assignment.
	ErrNoAssignmentMode = errors.New("template has no assignment mode")
)

// Resolver chooses assignees from the group roster.
type Resolver struct {
	roster store.GroupRoster
	intn   func(n int) int
	logger *slog.Logger
}

// Option customizes a Resolver.
type Option func(*Resolver)

// WithIntn replaces the random source used for auto-assignment. intn must
// return a value in [0, n).
func WithIntn(intn func(n int) int) Option {
	return func(r *Resolver) { r.intn = intn }
}

// NewResolver creates a Resolver over roster. If logger is nil, a default
// logger will be used.
func NewResolver(roster store.GroupRoster, logger *slog.Logger, opts ...Option) (*Resolver, error) {
	if roster == nil {
		return nil, errors.New("group roster cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	r := &Resolver{
		roster: roster,
		intn:   rand.IntN,
		logger: logger.With(slog.String("component", "assignment_resolver")),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Resolve returns the user who should receive the next instance of st.
//
// A fixed assignee is returned only while still an active member. With
// auto-assignment a member is drawn uniformly at random, excluding the
// template creator unless the creator is the only member.
func (r *Resolver) Resolve(ctx context.Context, st *domain.ScheduledTask) (uuid.UUID, error) {
	log := logger.FromContextOrDefault(ctx, r.logger)

	members, err := r.roster.ActiveMembers(ctx, st.GroupID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("load group roster: %w", err)
	}

	switch {
	case st.AssignedUserID != nil:
		if !slices.Contains(members, *st.AssignedUserID) {
			log.Warn("fixed assignee left the group",
				slog.String("scheduled_task_id", st.ID.String()),
				slog.String("user_id", st.AssignedUserID.String()))
			return uuid.Nil, ErrAssigneeNotInGroup
		}
		return *st.AssignedUserID, nil

	case st.AutoAssign:
		eligible := eligibleMembers(members, st.CreatedBy)
		if len(eligible) == 0 {
			return uuid.Nil, ErrNoEligibleMembers
		}
		picked := eligible[r.intn(len(eligible))]
		log.Debug("auto-assigned task",
			slog.String("scheduled_task_id", st.ID.String()),
			slog.String("user_id", picked.String()),
			slog.Int("candidates", len(eligible)))
		return picked, nil

	default:
		return uuid.Nil, ErrNoAssignmentMode
	}
}

func eligibleMembers(members []uuid.UUID, creator uuid.UUID) []uuid.UUID {
	others := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		if m != creator {
			others = append(others, m)
		}
	}
	if len(others) == 0 {
		// Only the creator remains.
		return members
	}
	return others
}

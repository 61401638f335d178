package request

import (
	"context"

	"github.com/google/uuid"

	"github.com/Rath300/research-collab/internal/repositories/match"
	"github.com/Rath300/research-collab/pkg/models"
)

// Connected reports whether a and b have a confirmed match.
func Connected(ctx context.Context, a, b uuid.UUID) (bool, error) {
	ctx, matches, err := Resolve[*match.Repository](ctx)
	if err != nil {
		return false, err
	}
	m, err := matches.FindBetween(ctx, a, b)
	if err != nil {
		return false, err
	}
	return m != nil && m.Status == models.MatchStatusMatched, nil
}

// CanSee reports whether viewer may read something owner published with the
// given visibility. Owners always see their own records.
func CanSee(ctx context.Context, viewer, owner uuid.UUID, visibility models.Visibility) (bool, error) {
	switch {
	case viewer == owner, visibility == models.VisibilityPublic:
		return true, nil
	case visibility == models.VisibilityConnections:
		return Connected(ctx, viewer, owner)
	}
	return false, nil
}

package service

import (
	"context"
	"time"

	"docq/internal/domain"
)

// SessionGate computes the set of documents a session may see. It is
// the single authorization boundary: every retrieval, search, ask and
// list path resolves visibility through it, live, at call time.
type SessionGate struct {
	docs domain.DocumentStore
	now  func() time.Time
}

func NewSessionGate(docs domain.DocumentStore) *SessionGate {
	return &SessionGate{docs: docs, now: time.Now}
}

// Visible returns the session's eligible documents: same session id,
// active, indexed and not yet expired. Expiry is evaluated against the
// current clock, so documents vanish the moment they expire, before any
// reaper run.
func (g *SessionGate) Visible(ctx context.Context, sessionID string) ([]domain.Document, error) {
	return g.docs.Visible(ctx, sessionID, g.now().UTC())
}

func (g *SessionGate) VisibleIDs(ctx context.Context, sessionID string) ([]string, error) {
	docs, err := g.Visible(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(docs))
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	return ids, nil
}

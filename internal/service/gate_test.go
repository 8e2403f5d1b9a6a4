package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docq/internal/domain"
)

func seedDoc(t *testing.T, docs *fakeDocs, id, sessionID string, status domain.DocumentStatus, expiresAt time.Time) {
	t.Helper()
	require.NoError(t, docs.Create(context.Background(), &domain.Document{
		ID:               id,
		Filename:         id + ".txt",
		SessionID:        sessionID,
		SessionExpiresAt: expiresAt,
		UploadedAt:       time.Now().UTC(),
		Status:           status,
		IsActive:         true,
	}))
}

func TestSessionGateIsolatesSessions(t *testing.T) {
	docs := newFakeDocs()
	future := time.Now().Add(time.Hour)
	seedDoc(t, docs, "doc-a", "session-1", domain.StatusIndexed, future)
	seedDoc(t, docs, "doc-b", "session-2", domain.StatusIndexed, future)

	gate := NewSessionGate(docs)
	ids, err := gate.VisibleIDs(context.Background(), "session-1")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-a"}, ids)
}

func TestSessionGateHidesNonIndexedStatuses(t *testing.T) {
	docs := newFakeDocs()
	future := time.Now().Add(time.Hour)
	seedDoc(t, docs, "doc-uploading", "s", domain.StatusUploading, future)
	seedDoc(t, docs, "doc-processing", "s", domain.StatusProcessing, future)
	seedDoc(t, docs, "doc-processed", "s", domain.StatusProcessed, future)
	seedDoc(t, docs, "doc-error", "s", domain.StatusError, future)
	seedDoc(t, docs, "doc-indexed", "s", domain.StatusIndexed, future)

	gate := NewSessionGate(docs)
	ids, err := gate.VisibleIDs(context.Background(), "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"doc-indexed"}, ids)
}

func TestSessionGateExpiryIsLive(t *testing.T) {
	docs := newFakeDocs()
	expiresAt := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	seedDoc(t, docs, "doc-a", "s", domain.StatusIndexed, expiresAt)

	gate := NewSessionGate(docs)

	gate.now = func() time.Time { return expiresAt.Add(-time.Second) }
	ids, err := gate.VisibleIDs(context.Background(), "s")
	require.NoError(t, err)
	assert.Len(t, ids, 1)

	// One second later the document vanishes without any reaper run.
	gate.now = func() time.Time { return expiresAt.Add(time.Second) }
	ids, err = gate.VisibleIDs(context.Background(), "s")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

func TestSessionGateHidesDeactivated(t *testing.T) {
	docs := newFakeDocs()
	seedDoc(t, docs, "doc-a", "s", domain.StatusIndexed, time.Now().Add(time.Hour))
	require.NoError(t, docs.Deactivate(context.Background(), "doc-a"))

	gate := NewSessionGate(docs)
	ids, err := gate.VisibleIDs(context.Background(), "s")
	require.NoError(t, err)
	assert.Empty(t, ids)
}

package ports

import (
	"context"
	"testing"
	"time"

	"github.com/greenoffice/leadchat/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RunStateStoreContract runs a suite of tests to verify that a StateStore implementation
// adheres to the defined interface contract.
func RunStateStoreContract(t *testing.T, store StateStore) {
	ctx := context.Background()
	sessionID := "contract-test-session-" + time.Now().Format("20060102150405")

	t.Run("Save and Load", func(t *testing.T) {
		state := domain.NewState(sessionID, "Q1", time.Now().UTC().Truncate(time.Second))
		state.Answers.Set("Q1", 1)
		state.Answers.Set("Q6", []int{0, 2})
		state.Answers.Set("name", "Ana")
		state.Pending = []string{"Q6_3"}
		state.Resume = "Q7"

		require.NoError(t, store.Save(ctx, sessionID, state), "Save should not return error")

		loaded, err := store.Load(ctx, sessionID)
		require.NoError(t, err, "Load should not return error")
		assert.Equal(t, state.CurrentNodeID, loaded.CurrentNodeID)
		assert.Equal(t, state.Answers.Keys(), loaded.Answers.Keys(), "answer order must survive a round trip")
		n, ok := loaded.Answers.Int("Q1")
		assert.True(t, ok)
		assert.Equal(t, 1, n)
		ints, ok := loaded.Answers.Ints("Q6")
		assert.True(t, ok)
		assert.Equal(t, []int{0, 2}, ints)
		assert.Equal(t, []string{"Q6_3"}, loaded.Pending)
		assert.Equal(t, "Q7", loaded.Resume)
		assert.Equal(t, domain.ModeQuestionnaire, loaded.Mode)
	})

	t.Run("Load Non-Existent", func(t *testing.T) {
		_, err := store.Load(ctx, "non-existent-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Save(ctx, sessionID, domain.NewState(sessionID, "Q1", time.Now())))
		require.NoError(t, store.Delete(ctx, sessionID), "Delete should not return error")

		_, err := store.Load(ctx, sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound, "Load after Delete should return ErrSessionNotFound")
	})

	t.Run("List", func(t *testing.T) {
		id1 := sessionID + "-1"
		id2 := sessionID + "-2"
		_ = store.Save(ctx, id1, domain.NewState(id1, "Q1", time.Now()))
		_ = store.Save(ctx, id2, domain.NewState(id2, "Q1", time.Now()))
		defer func() {
			_ = store.Delete(ctx, id1)
			_ = store.Delete(ctx, id2)
		}()

		sessions, err := store.List(ctx)
		require.NoError(t, err)
		assert.Contains(t, sessions, id1)
		assert.Contains(t, sessions, id2)
	})
}

// RunSessionRepositoryContract verifies a SessionRepository implementation.
func RunSessionRepositoryContract(t *testing.T, repo SessionRepository) {
	ctx := context.Background()
	base := time.Date(2026, 1, 5, 10, 0, 0, 0, time.UTC)
	sessionID := "contract-repo-" + time.Now().Format("150405.000000")

	t.Run("EnsureSession is idempotent", func(t *testing.T) {
		first, err := repo.EnsureSession(ctx, sessionID, base)
		require.NoError(t, err)
		assert.Equal(t, sessionID, first.SessionID)
		assert.Equal(t, domain.StatusActive, first.Status)
		assert.Zero(t, first.Score)

		second, err := repo.EnsureSession(ctx, sessionID, base.Add(time.Hour))
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
	})

	t.Run("UpdateSession", func(t *testing.T) {
		rec, err := repo.GetSession(ctx, sessionID)
		require.NoError(t, err)
		rec.Answers = domain.NewAnswers()
		rec.Answers.Set("Q1", 0)
		rec.Answers.Set(domain.AnswerEmail, "ana@example.com")
		rec.Score = 40
		rec.Status = domain.StatusCompleted
		rec.UpdatedAt = base.Add(2 * time.Hour)
		require.NoError(t, repo.UpdateSession(ctx, rec))

		got, err := repo.GetSession(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, 40, got.Score)
		assert.Equal(t, domain.StatusCompleted, got.Status)
		assert.Equal(t, "ana@example.com", got.Email())
	})

	t.Run("GetSession unknown", func(t *testing.T) {
		_, err := repo.GetSession(ctx, "missing-"+sessionID)
		assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	})

	t.Run("Messages keep order", func(t *testing.T) {
		for i, text := range []string{"hello", "hi", "bye"} {
			role := domain.RoleBot
			if i == 1 {
				role = domain.RoleUser
			}
			require.NoError(t, repo.AppendMessage(ctx, domain.TranscriptEntry{
				SessionID: sessionID,
				Role:      role,
				Text:      text,
				CreatedAt: base.Add(time.Duration(i) * time.Minute),
			}))
		}
		msgs, err := repo.Messages(ctx, sessionID)
		require.NoError(t, err)
		require.Len(t, msgs, 3)
		assert.Equal(t, "hello", msgs[0].Text)
		assert.Equal(t, domain.RoleUser, msgs[1].Role)
		assert.Equal(t, "bye", msgs[2].Text)
	})

	t.Run("Knowledge queries", func(t *testing.T) {
		assert.NoError(t, repo.LogKnowledgeQuery(ctx, domain.KnowledgeQuery{
			SessionID: sessionID,
			Query:     "wifi?",
			Response:  "fast",
			Source:    "static",
			CreatedAt: base,
		}))
	})

	t.Run("List newest first", func(t *testing.T) {
		newer := sessionID + "-newer"
		_, err := repo.EnsureSession(ctx, newer, base.Add(24*time.Hour))
		require.NoError(t, err)

		all, err := repo.ListSessions(ctx)
		require.NoError(t, err)
		idx := map[string]int{}
		for i, r := range all {
			idx[r.SessionID] = i
		}
		require.Contains(t, idx, newer)
		require.Contains(t, idx, sessionID)
		assert.Less(t, idx[newer], idx[sessionID])
	})

	t.Run("MarkStale", func(t *testing.T) {
		stale := sessionID + "-stale"
		_, err := repo.EnsureSession(ctx, stale, base.Add(-48*time.Hour))
		require.NoError(t, err)

		ids, err := repo.MarkStale(ctx, base.Add(-24*time.Hour))
		require.NoError(t, err)
		assert.Contains(t, ids, stale)
		assert.NotContains(t, ids, sessionID)

		got, err := repo.GetSession(ctx, stale)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusAbandoned, got.Status)

		completed, err := repo.GetSession(ctx, sessionID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusCompleted, completed.Status)
	})

	t.Run("Ping", func(t *testing.T) {
		assert.NoError(t, repo.Ping(ctx))
	})
}

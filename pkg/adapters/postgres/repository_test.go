package postgres_test

import (
	"context"
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/greenoffice/leadchat/pkg/adapters/postgres"
	"github.com/greenoffice/leadchat/pkg/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var sessionCols = []string{"id", "session_id", "user_responses", "qualification_score", "session_status", "created_at", "updated_at"}

func newMock(t *testing.T) (*postgres.Repository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return postgres.New(db), mock
}

func TestEnsureSession(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO chat_sessions`)).
		WithArgs(sqlmock.AnyArg(), "s1", now).
		WillReturnRows(sqlmock.NewRows(sessionCols).
			AddRow("6f1c", "s1", []byte(`{}`), 0, "active", now, now))

	rec, err := repo.EnsureSession(context.Background(), "s1", now)
	require.NoError(t, err)
	assert.Equal(t, "6f1c", rec.ID)
	assert.Equal(t, domain.StatusActive, rec.Status)
	assert.Zero(t, rec.Answers.Len())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateSession(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Date(2026, 2, 1, 9, 30, 0, 0, time.UTC)

	answers := domain.NewAnswers()
	answers.Set("Q1", 0)
	answers.Set("Q2", 1)

	mock.ExpectExec(regexp.QuoteMeta(`ON CONFLICT (session_id) DO UPDATE SET`)).
		WithArgs(sqlmock.AnyArg(), "s1", []byte(`{"Q1":0,"Q2":1}`), 40, "completed", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateSession(context.Background(), domain.SessionRecord{
		SessionID: "s1",
		Answers:   answers,
		Score:     40,
		Status:    domain.StatusCompleted,
		UpdatedAt: now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSession(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Date(2026, 2, 1, 9, 0, 0, 0, time.UTC)

	mock.ExpectQuery(regexp.QuoteMeta(`FROM chat_sessions WHERE session_id = $1`)).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows(sessionCols).
			AddRow("id1", "s1", []byte(`{"Q3":12,"email":"a@b.co"}`), 55, "completed", now, now))

	rec, err := repo.GetSession(context.Background(), "s1")
	require.NoError(t, err)
	assert.Equal(t, 55, rec.Score)
	assert.Equal(t, "a@b.co", rec.Email())
	assert.Equal(t, []string{"Q3", "email"}, rec.Answers.Keys())
	n, ok := rec.Answers.Int("Q3")
	assert.True(t, ok)
	assert.Equal(t, 12, n)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestGetSession_NotFound(t *testing.T) {
	repo, mock := newMock(t)
	mock.ExpectQuery(`SELECT`).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	_, err := repo.GetSession(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListSessions(t *testing.T) {
	repo, mock := newMock(t)
	t1 := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	t0 := t1.Add(-24 * time.Hour)

	mock.ExpectQuery(regexp.QuoteMeta(`ORDER BY created_at DESC`)).
		WillReturnRows(sqlmock.NewRows(sessionCols).
			AddRow("b", "s2", []byte(`{}`), 10, "active", t1, t1).
			AddRow("a", "s1", []byte(`{}`), 70, "completed", t0, t0))

	all, err := repo.ListSessions(context.Background())
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "s2", all[0].SessionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListSessions_BadAnswers(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()
	mock.ExpectQuery(`SELECT`).
		WillReturnRows(sqlmock.NewRows(sessionCols).AddRow("a", "s1", []byte(`[1,2]`), 0, "active", now, now))

	_, err := repo.ListSessions(context.Background())
	assert.Error(t, err)
}

func TestAppendMessage(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()

	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO chat_messages`)).
		WithArgs(sqlmock.AnyArg(), "s1", "user", "hello", now).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO chat_messages`)).
		WithArgs(sqlmock.AnyArg(), "ghost", "bot", "hi", now).
		WillReturnResult(sqlmock.NewResult(0, 0))

	ctx := context.Background()
	require.NoError(t, repo.AppendMessage(ctx, domain.TranscriptEntry{SessionID: "s1", Role: domain.RoleUser, Text: "hello", CreatedAt: now}))
	err := repo.AppendMessage(ctx, domain.TranscriptEntry{SessionID: "ghost", Role: domain.RoleBot, Text: "hi", CreatedAt: now})
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMessages(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()

	mock.ExpectQuery(regexp.QuoteMeta(`FROM chat_messages m`)).
		WithArgs("s1").
		WillReturnRows(sqlmock.NewRows([]string{"id", "message_type", "content", "created_at"}).
			AddRow("m1", "bot", "Welcome", now).
			AddRow("m2", "user", "Event planner", now.Add(time.Second)))

	msgs, err := repo.Messages(context.Background(), "s1")
	require.NoError(t, err)
	require.Len(t, msgs, 2)
	assert.Equal(t, domain.RoleBot, msgs[0].Role)
	assert.Equal(t, "s1", msgs[1].SessionID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLogKnowledgeQuery(t *testing.T) {
	repo, mock := newMock(t)
	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta(`INSERT INTO knowledge_queries`)).
		WithArgs(sqlmock.AnyArg(), "s1", "wifi?", "Fast fiber.", "static", now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.LogKnowledgeQuery(context.Background(), domain.KnowledgeQuery{
		SessionID: "s1", Query: "wifi?", Response: "Fast fiber.", Source: "static", CreatedAt: now,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMarkStale(t *testing.T) {
	repo, mock := newMock(t)
	before := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	mock.ExpectQuery(regexp.QuoteMeta(`UPDATE chat_sessions SET session_status = 'abandoned'`)).
		WithArgs(before).
		WillReturnRows(sqlmock.NewRows([]string{"session_id"}).AddRow("a").AddRow("b").AddRow("c"))

	ids, err := repo.MarkStale(context.Background(), before)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c"}, ids)

	mock.ExpectQuery(`UPDATE`).WithArgs(before).WillReturnError(errors.New("conn reset"))
	_, err = repo.MarkStale(context.Background(), before)
	assert.Error(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPing(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()
	mock.ExpectPing()

	assert.NoError(t, postgres.New(db).Ping(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMigrationFiles(t *testing.T) {
	names, err := postgres.MigrationFiles()
	require.NoError(t, err)
	assert.Contains(t, names, "000001_init.up.sql")
	assert.Contains(t, names, "000001_init.down.sql")
}

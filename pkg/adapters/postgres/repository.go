// Package postgres stores session records, transcripts and knowledge queries in PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/greenoffice/leadchat/pkg/domain"
	_ "github.com/lib/pq"
)

// PoolConfig tunes the connection pool.
type PoolConfig struct {
	MaxOpen     int
	MaxIdle     int
	MaxLifetime time.Duration
}

// DefaultPool mirrors what a small single-region deployment needs.
var DefaultPool = PoolConfig{MaxOpen: 10, MaxIdle: 5, MaxLifetime: 5 * time.Minute}

// Repository implements ports.SessionRepository on database/sql.
type Repository struct {
	db *sql.DB
}

// New wraps an open database handle.
func New(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// Open connects with lib/pq and verifies the connection.
func Open(ctx context.Context, dsn string, pool PoolConfig) (*Repository, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres: %w", err)
	}
	db.SetMaxOpenConns(pool.MaxOpen)
	db.SetMaxIdleConns(pool.MaxIdle)
	db.SetConnMaxLifetime(pool.MaxLifetime)
	db.SetConnMaxIdleTime(pool.MaxLifetime)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping postgres: %w", err)
	}
	return &Repository{db: db}, nil
}

// DB exposes the underlying handle.
func (r *Repository) DB() *sql.DB { return r.db }

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

const sessionColumns = `id, session_id, user_responses, qualification_score, session_status, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSession(row rowScanner) (domain.SessionRecord, error) {
	var (
		rec     domain.SessionRecord
		answers []byte
		status  string
	)
	if err := row.Scan(&rec.ID, &rec.SessionID, &answers, &rec.Score, &status, &rec.CreatedAt, &rec.UpdatedAt); err != nil {
		return domain.SessionRecord{}, err
	}
	rec.Status = domain.Status(status)
	if err := json.Unmarshal(answers, &rec.Answers); err != nil {
		return domain.SessionRecord{}, fmt.Errorf("decode answers for %s: %w", rec.SessionID, err)
	}
	return rec, nil
}

func (r *Repository) EnsureSession(ctx context.Context, sessionID string, now time.Time) (domain.SessionRecord, error) {
	// The no-op update makes RETURNING yield the existing row on conflict.
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO chat_sessions (id, session_id, user_responses, qualification_score, session_status, created_at, updated_at)
		VALUES ($1, $2, '{}', 0, 'active', $3, $3)
		ON CONFLICT (session_id) DO UPDATE SET session_id = EXCLUDED.session_id
		RETURNING `+sessionColumns,
		uuid.NewString(), sessionID, now,
	)
	rec, err := scanSession(row)
	if err != nil {
		return domain.SessionRecord{}, fmt.Errorf("ensure session %s: %w", sessionID, err)
	}
	return rec, nil
}

func (r *Repository) UpdateSession(ctx context.Context, rec domain.SessionRecord) error {
	answers, err := json.Marshal(rec.Answers)
	if err != nil {
		return fmt.Errorf("encode answers: %w", err)
	}
	status := rec.Status
	if status == "" {
		status = domain.StatusActive
	}
	_, err = r.db.ExecContext(ctx, `
		INSERT INTO chat_sessions (id, session_id, user_responses, qualification_score, session_status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $6)
		ON CONFLICT (session_id) DO UPDATE SET
			user_responses = EXCLUDED.user_responses,
			qualification_score = EXCLUDED.qualification_score,
			session_status = EXCLUDED.session_status,
			updated_at = EXCLUDED.updated_at`,
		uuid.NewString(), rec.SessionID, answers, rec.Score, string(status), rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("update session %s: %w", rec.SessionID, err)
	}
	return nil
}

func (r *Repository) GetSession(ctx context.Context, sessionID string) (domain.SessionRecord, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+sessionColumns+` FROM chat_sessions WHERE session_id = $1`, sessionID)
	rec, err := scanSession(row)
	if errors.Is(err, sql.ErrNoRows) {
		return domain.SessionRecord{}, domain.ErrSessionNotFound
	}
	if err != nil {
		return domain.SessionRecord{}, fmt.Errorf("get session %s: %w", sessionID, err)
	}
	return rec, nil
}

func (r *Repository) ListSessions(ctx context.Context) ([]domain.SessionRecord, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT `+sessionColumns+` FROM chat_sessions ORDER BY created_at DESC`)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []domain.SessionRecord
	for rows.Next() {
		rec, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (r *Repository) AppendMessage(ctx context.Context, entry domain.TranscriptEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	res, err := r.db.ExecContext(ctx, `
		INSERT INTO chat_messages (id, session_id, message_type, content, created_at)
		SELECT $1, id, $3, $4, $5 FROM chat_sessions WHERE session_id = $2`,
		entry.ID, entry.SessionID, string(entry.Role), entry.Text, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("append message: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("append message: %w", domain.ErrSessionNotFound)
	}
	return nil
}

func (r *Repository) Messages(ctx context.Context, sessionID string) ([]domain.TranscriptEntry, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT m.id, m.message_type, m.content, m.created_at
		FROM chat_messages m
		JOIN chat_sessions s ON s.id = m.session_id
		WHERE s.session_id = $1
		ORDER BY m.created_at ASC`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []domain.TranscriptEntry
	for rows.Next() {
		var (
			e    domain.TranscriptEntry
			role string
		)
		if err := rows.Scan(&e.ID, &role, &e.Text, &e.CreatedAt); err != nil {
			return nil, err
		}
		e.SessionID = sessionID
		e.Role = domain.Role(role)
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *Repository) LogKnowledgeQuery(ctx context.Context, q domain.KnowledgeQuery) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO knowledge_queries (id, session_id, query_text, response_provided, source, created_at)
		VALUES ($1, (SELECT id FROM chat_sessions WHERE session_id = $2), $3, $4, $5, $6)`,
		q.ID, q.SessionID, q.Query, q.Response, q.Source, q.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("log knowledge query: %w", err)
	}
	return nil
}

func (r *Repository) MarkStale(ctx context.Context, before time.Time) ([]string, error) {
	rows, err := r.db.QueryContext(ctx, `
		UPDATE chat_sessions SET session_status = 'abandoned'
		WHERE session_status = 'active' AND updated_at < $1
		RETURNING session_id`, before)
	if err != nil {
		return nil, fmt.Errorf("mark stale sessions: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("mark stale sessions: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

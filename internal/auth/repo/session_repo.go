package repo

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/auth"
)

// NOTE: expected table schema (Postgres example):
// CREATE TABLE auth_sessions (
//   id TEXT PRIMARY KEY,
//   user_id BIGINT NOT NULL,
//   organization_id TEXT NOT NULL,
//   created_at TIMESTAMP WITH TIME ZONE NOT NULL,
//   expires_at TIMESTAMP WITH TIME ZONE NOT NULL
// );

// SessionRepo is the Postgres-backed auth.SessionStore.
type SessionRepo struct {
	db *sqlx.DB
}

func NewSessionRepo(db *sqlx.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

// EnsureTable creates the sessions table and its user index.
func (r *SessionRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS auth_sessions (
  id TEXT PRIMARY KEY,
  user_id BIGINT NOT NULL,
  organization_id TEXT NOT NULL,
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  expires_at TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_auth_sessions_user_id ON auth_sessions(user_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

func (r *SessionRepo) Save(ctx context.Context, s *auth.Session) error {
	const q = `INSERT INTO auth_sessions (id, user_id, organization_id, created_at, expires_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.db.ExecContext(ctx, q, s.ID, s.UserID, s.OrganizationID, s.CreatedAt, s.ExpiresAt)
	return err
}

func (r *SessionRepo) Get(ctx context.Context, id string) (*auth.Session, error) {
	const q = `SELECT id, user_id, organization_id, created_at, expires_at FROM auth_sessions WHERE id = $1`
	var s auth.Session
	if err := r.db.GetContext(ctx, &s, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, auth.ErrSessionNotFound
		}
		return nil, err
	}
	if s.Expired(time.Now()) {
		return nil, auth.ErrSessionNotFound
	}
	return &s, nil
}

func (r *SessionRepo) Delete(ctx context.Context, id string) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE id = $1`, id)
	return err
}

func (r *SessionRepo) DeleteByUser(ctx context.Context, userID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE user_id = $1`, userID)
	return err
}

// DeleteExpired purges sessions whose expiry passed before now.
func (r *SessionRepo) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM auth_sessions WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

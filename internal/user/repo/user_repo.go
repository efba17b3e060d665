package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/user/entity"
)

// UserRepo provides data access for the users table using sqlx.
type UserRepo struct {
	db *sqlx.DB
}

func NewUserRepo(db *sqlx.DB) *UserRepo { return &UserRepo{db: db} }

const userColumns = `id, organization_id, full_name, email, password_hash, password_algo,
	password_updated_at, status, login_failed_attempts, locked_until, last_login_at,
	created_at, updated_at, senior_football_access, football_access, medical_players_access,
	medical_staff_access, physical_access, youth_records_access, staff_access`

// EnsureTable creates the users table if not exists (idempotent).
// This is a convenience for early development; prefer migrations in production.
func (r *UserRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE EXTENSION IF NOT EXISTS citext;
CREATE TABLE IF NOT EXISTS users (
  id BIGSERIAL PRIMARY KEY,
  organization_id TEXT NOT NULL,
  full_name TEXT NOT NULL DEFAULT '',
  email CITEXT UNIQUE NOT NULL,
  password_hash TEXT,
  password_algo TEXT,
  password_updated_at TIMESTAMPTZ,
  status TEXT NOT NULL DEFAULT 'active',
  login_failed_attempts INT NOT NULL DEFAULT 0,
  locked_until TIMESTAMPTZ,
  last_login_at TIMESTAMPTZ,
  senior_football_access TEXT DEFAULT 'sin_acceso',
  football_access TEXT DEFAULT 'sin_acceso',
  medical_players_access TEXT DEFAULT 'sin_acceso',
  medical_staff_access TEXT DEFAULT 'sin_acceso',
  physical_access TEXT DEFAULT 'sin_acceso',
  youth_records_access TEXT DEFAULT 'sin_acceso',
  staff_access TEXT DEFAULT 'sin_acceso',
  created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
  updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);
CREATE INDEX IF NOT EXISTS idx_users_organization_id ON users(organization_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

// Create inserts a new user row. Returns new ID.
func (r *UserRepo) Create(ctx context.Context, u *entity.User) (int64, error) {
	q := `INSERT INTO users (organization_id, full_name, email, password_hash, password_algo, password_updated_at, status,
		senior_football_access, football_access, medical_players_access, medical_staff_access, physical_access, youth_records_access, staff_access)
		  VALUES (:organization_id, :full_name, :email, :password_hash, :password_algo, NOW(), :status,
		:senior_football_access, :football_access, :medical_players_access, :medical_staff_access, :physical_access, :youth_records_access, :staff_access) RETURNING id`
	rows, err := r.db.NamedQueryContext(ctx, q, u)
	if err != nil {
		return 0, err
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&u.ID); err != nil {
			return 0, err
		}
		return u.ID, nil
	}
	return 0, errors.New("no id returned")
}

// GetByEmail returns a user matched by email (case-insensitive due to citext) or sql.ErrNoRows.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*entity.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE email=$1`
	var row entity.User
	if err := r.db.GetContext(ctx, &row, q, email); err != nil {
		return nil, err
	}
	return &row, nil
}

// GetByID fetches a user inside one organization.
func (r *UserRepo) GetByID(ctx context.Context, orgID string, id int64) (*entity.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE organization_id=$1 AND id=$2`
	var row entity.User
	if err := r.db.GetContext(ctx, &row, q, orgID, id); err != nil {
		return nil, err
	}
	return &row, nil
}

// ListByOrganization returns the organization's accounts ordered by name.
func (r *UserRepo) ListByOrganization(ctx context.Context, orgID string) ([]entity.User, error) {
	q := `SELECT ` + userColumns + ` FROM users WHERE organization_id=$1 ORDER BY full_name, id`
	var out []entity.User
	if err := r.db.SelectContext(ctx, &out, q, orgID); err != nil {
		return nil, err
	}
	return out, nil
}

// GetAccessRecord returns only what the permission resolver needs.
func (r *UserRepo) GetAccessRecord(ctx context.Context, id int64) (*entity.AccessRecord, error) {
	const q = `SELECT id, organization_id, status, senior_football_access, football_access,
		medical_players_access, medical_staff_access, physical_access, youth_records_access, staff_access
		FROM users WHERE id=$1`
	var v entity.AccessRecord
	if err := r.db.GetContext(ctx, &v, q, id); err != nil {
		return nil, err
	}
	return &v, nil
}

// GetAuthView returns the projection handed back on sign-in.
func (r *UserRepo) GetAuthView(ctx context.Context, id int64) (*entity.AuthView, error) {
	const q = `SELECT id, organization_id, email, full_name FROM users WHERE id=$1`
	var v entity.AuthView
	if err := r.db.GetContext(ctx, &v, q, id); err != nil {
		return nil, err
	}
	return &v, nil
}

// IncrementFailedLogin increments the failure counter atomically and returns new value.
func (r *UserRepo) IncrementFailedLogin(ctx context.Context, id int64) (int, error) {
	const q = `UPDATE users SET login_failed_attempts = login_failed_attempts + 1, updated_at=NOW() WHERE id=$1 RETURNING login_failed_attempts`
	var v int
	if err := r.db.GetContext(ctx, &v, q, id); err != nil {
		return 0, err
	}
	return v, nil
}

// LockIfThreshold locks the user if attempts >= threshold and currently active.
func (r *UserRepo) LockIfThreshold(ctx context.Context, id int64, threshold int, lockMinutes int) (bool, error) {
	const q = `UPDATE users SET status='locked', locked_until = NOW() + ($2 || ' minutes')::interval, updated_at=NOW()
              WHERE id=$1 AND status='active' AND login_failed_attempts >= $3 RETURNING 1`
	var one int
	err := r.db.GetContext(ctx, &one, q, id, lockMinutes, threshold)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ResetLoginSuccess resets failure metrics on successful authentication.
func (r *UserRepo) ResetLoginSuccess(ctx context.Context, id int64) error {
	const q = `UPDATE users SET login_failed_attempts=0, last_login_at=NOW(), locked_until=NULL, updated_at=NOW() WHERE id=$1`
	_, err := r.db.ExecContext(ctx, q, id)
	return err
}

// UnlockIfExpired sets status back to active if locked_until passed.
func (r *UserRepo) UnlockIfExpired(ctx context.Context, id int64) (bool, error) {
	const q = `UPDATE users SET status='active', locked_until=NULL, updated_at=NOW()
               WHERE id=$1 AND status='locked' AND locked_until IS NOT NULL AND locked_until < NOW() RETURNING 1`
	var one int
	err := r.db.GetContext(ctx, &one, q, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// UpdatePassword updates password hash & algo inside the organization.
func (r *UserRepo) UpdatePassword(ctx context.Context, orgID string, id int64, hash, algo string) (int64, error) {
	const q = `UPDATE users SET password_hash=$3, password_algo=$4, password_updated_at=NOW(), updated_at=NOW() WHERE organization_id=$1 AND id=$2`
	res, err := r.db.ExecContext(ctx, q, orgID, id, hash, algo)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateProfile changes name and email.
func (r *UserRepo) UpdateProfile(ctx context.Context, orgID string, id int64, fullName, email string) (int64, error) {
	const q = `UPDATE users SET full_name=$3, email=$4, updated_at=NOW() WHERE organization_id=$1 AND id=$2`
	res, err := r.db.ExecContext(ctx, q, orgID, id, fullName, email)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// UpdateAccess rewrites the seven permission columns.
func (r *UserRepo) UpdateAccess(ctx context.Context, orgID string, id int64, c entity.AccessColumns) (int64, error) {
	const q = `UPDATE users SET senior_football_access=$3, football_access=$4, medical_players_access=$5,
		medical_staff_access=$6, physical_access=$7, youth_records_access=$8, staff_access=$9, updated_at=NOW()
		WHERE organization_id=$1 AND id=$2`
	res, err := r.db.ExecContext(ctx, q, orgID, id,
		c.SeniorFootballAccess, c.FootballAccess, c.MedicalPlayersAccess, c.MedicalStaffAccess,
		c.PhysicalAccess, c.YouthRecordsAccess, c.StaffAccess)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// Delete removes the account.
func (r *UserRepo) Delete(ctx context.Context, orgID string, id int64) (int64, error) {
	const q = `DELETE FROM users WHERE organization_id=$1 AND id=$2`
	res, err := r.db.ExecContext(ctx, q, orgID, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

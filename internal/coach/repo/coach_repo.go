package repo

import (
	"context"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/coach/entity"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/scope"
)

var ErrNotFound = errors.New("coach not found")

var Table = scope.Table{
	Name: "coaches",
	Columns: []string{"id", "organization_id", "full_name", "role", "email", "phone",
		"season_id", "category_id", "senior_season_id", "senior_category_id", "created_at"},
	Hierarchical: true,
	OrderBy:      "full_name, id",
}

type CoachRepo struct {
	db *sqlx.DB
}

func NewCoachRepo(db *sqlx.DB) *CoachRepo { return &CoachRepo{db: db} }

func (r *CoachRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS coaches (
  id TEXT PRIMARY KEY,
  organization_id TEXT NOT NULL,
  full_name TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT '',
  email TEXT,
  phone TEXT,
  season_id TEXT,
  category_id TEXT,
  senior_season_id TEXT,
  senior_category_id TEXT,
  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_coaches_org ON coaches(organization_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

func (r *CoachRepo) List(ctx context.Context, q scope.Query) ([]entity.Coach, error) {
	return scope.Fetch[entity.Coach](ctx, r.db, Table, q)
}

func (r *CoachRepo) Create(ctx context.Context, c *entity.Coach) error {
	q := `INSERT INTO coaches (id, organization_id, full_name, role, email, phone,
		season_id, category_id, senior_season_id, senior_category_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(q), c.ID, c.OrganizationID, c.FullName, c.Role, c.Email, c.Phone,
		c.SeasonID, c.CategoryID, c.SeniorSeasonID, c.SeniorCategoryID)
	return err
}

// Delete removes the coach row of tree k.
func (r *CoachRepo) Delete(ctx context.Context, orgID string, k scope.Kind, id string) error {
	h, err := scope.New(k, "", "")
	if err != nil {
		return err
	}
	where, args, err := Table.Where(scope.Query{
		OrganizationID: orgID,
		Hierarchy:      h,
		Filter:         scope.Filter{Equals: []scope.Eq{{Column: "id", Value: id}}},
	})
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, r.db.Rebind("DELETE FROM coaches"+where), args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

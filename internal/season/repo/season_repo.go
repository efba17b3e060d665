package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/scope"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/season/entity"
)

// SeasonRepo stores both season → category trees.
type SeasonRepo struct {
	db *sqlx.DB
}

func NewSeasonRepo(db *sqlx.DB) *SeasonRepo { return &SeasonRepo{db: db} }

func seasonTable(k scope.Kind) scope.Table {
	return scope.Table{
		Name:    k.SeasonTable(),
		Columns: []string{"id", "organization_id", "name", "start_date", "end_date", "created_at"},
		OrderBy: "start_date DESC, name",
	}
}

func categoryTable(k scope.Kind) scope.Table {
	return scope.Table{
		Name:    k.CategoryTable(),
		Columns: []string{"id", "organization_id", "season_id", "name", "created_at"},
		OrderBy: "name",
	}
}

// EnsureTable creates the four hierarchy tables if they do not exist.
func (r *SeasonRepo) EnsureTable(ctx context.Context) error {
	for _, k := range []scope.Kind{scope.KindYouth, scope.KindSenior} {
		ddl := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %[1]s (
  id TEXT PRIMARY KEY,
  organization_id TEXT NOT NULL,
  name TEXT NOT NULL,
  start_date DATE,
  end_date DATE,
  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_org ON %[1]s(organization_id);
CREATE TABLE IF NOT EXISTS %[2]s (
  id TEXT PRIMARY KEY,
  organization_id TEXT NOT NULL,
  season_id TEXT NOT NULL REFERENCES %[1]s(id),
  name TEXT NOT NULL,
  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_%[2]s_org_season ON %[2]s(organization_id, season_id);
`, k.SeasonTable(), k.CategoryTable())
		if _, err := r.db.ExecContext(ctx, ddl); err != nil {
			return fmt.Errorf("ensure %s tables: %w", k, err)
		}
	}
	return nil
}

func dateArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.Format(scope.DateLayout)
}

func (r *SeasonRepo) ListSeasons(ctx context.Context, orgID string, k scope.Kind) ([]entity.Season, error) {
	return scope.Fetch[entity.Season](ctx, r.db, seasonTable(k), scope.Query{OrganizationID: orgID})
}

func (r *SeasonRepo) CreateSeason(ctx context.Context, k scope.Kind, s *entity.Season) error {
	q := `INSERT INTO ` + k.SeasonTable() + ` (id, organization_id, name, start_date, end_date) VALUES (?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(q), s.ID, s.OrganizationID, s.Name, dateArg(s.StartDate), dateArg(s.EndDate))
	return err
}

// GetSeason returns sql.ErrNoRows when the season is not in the organization.
func (r *SeasonRepo) GetSeason(ctx context.Context, orgID string, k scope.Kind, id string) (*entity.Season, error) {
	q := `SELECT id, organization_id, name, start_date, end_date, created_at FROM ` + k.SeasonTable() + ` WHERE organization_id = ? AND id = ?`
	var s entity.Season
	if err := r.db.GetContext(ctx, &s, r.db.Rebind(q), orgID, id); err != nil {
		return nil, err
	}
	return &s, nil
}

// ListCategories lists the organization's categories, optionally for one season.
func (r *SeasonRepo) ListCategories(ctx context.Context, orgID string, k scope.Kind, seasonID string) ([]entity.Category, error) {
	q := scope.Query{OrganizationID: orgID}
	if seasonID != "" {
		q.Filter.Equals = []scope.Eq{{Column: "season_id", Value: seasonID}}
	}
	return scope.Fetch[entity.Category](ctx, r.db, categoryTable(k), q)
}

func (r *SeasonRepo) CreateCategory(ctx context.Context, k scope.Kind, c *entity.Category) error {
	q := `INSERT INTO ` + k.CategoryTable() + ` (id, organization_id, season_id, name) VALUES (?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(q), c.ID, c.OrganizationID, c.SeasonID, c.Name)
	return err
}

// GetCategory returns sql.ErrNoRows when the category is not in the organization.
func (r *SeasonRepo) GetCategory(ctx context.Context, orgID string, k scope.Kind, id string) (*entity.Category, error) {
	q := `SELECT id, organization_id, season_id, name, created_at FROM ` + k.CategoryTable() + ` WHERE organization_id = ? AND id = ?`
	var c entity.Category
	if err := r.db.GetContext(ctx, &c, r.db.Rebind(q), orgID, id); err != nil {
		return nil, err
	}
	return &c, nil
}

// IsNotFound reports whether err is a missing row.
func IsNotFound(err error) bool { return errors.Is(err, sql.ErrNoRows) }

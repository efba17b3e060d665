package repo

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/player/entity"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/scope"
)

var ErrNotFound = errors.New("player not found")

// Table describes players for scoped reads.
var Table = scope.Table{
	Name: "players",
	Columns: []string{"id", "organization_id", "full_name", "position", "jersey_number", "birth_date", "photo_url",
		"season_id", "category_id", "senior_season_id", "senior_category_id", "is_deleted", "created_at"},
	Hierarchical: true,
	SoftDelete:   true,
	PlayerColumn: "id",
	OrderBy:      "full_name, id",
}

type PlayerRepo struct {
	db *sqlx.DB
}

func NewPlayerRepo(db *sqlx.DB) *PlayerRepo { return &PlayerRepo{db: db} }

func (r *PlayerRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS players (
  id TEXT PRIMARY KEY,
  organization_id TEXT NOT NULL,
  full_name TEXT NOT NULL,
  position TEXT NOT NULL DEFAULT '',
  jersey_number INTEGER,
  birth_date DATE,
  photo_url TEXT,
  season_id TEXT,
  category_id TEXT,
  senior_season_id TEXT,
  senior_category_id TEXT,
  is_deleted BOOLEAN NOT NULL DEFAULT FALSE,
  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_players_org_category ON players(organization_id, category_id);
CREATE INDEX IF NOT EXISTS idx_players_org_senior_category ON players(organization_id, senior_category_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

func (r *PlayerRepo) List(ctx context.Context, q scope.Query) ([]entity.Player, error) {
	return scope.Fetch[entity.Player](ctx, r.db, Table, q)
}

// Get returns a player of the organization, deleted or not.
func (r *PlayerRepo) Get(ctx context.Context, orgID, id string) (*entity.Player, error) {
	q := `SELECT id, organization_id, full_name, position, jersey_number, birth_date, photo_url,
		season_id, category_id, senior_season_id, senior_category_id, is_deleted, created_at
		FROM players WHERE organization_id = ? AND id = ?`
	var p entity.Player
	if err := r.db.GetContext(ctx, &p, r.db.Rebind(q), orgID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &p, nil
}

func dateArg(p *entity.Player) any {
	if p.BirthDate == nil {
		return nil
	}
	return p.BirthDate.Format(scope.DateLayout)
}

func (r *PlayerRepo) Create(ctx context.Context, p *entity.Player) error {
	q := `INSERT INTO players (id, organization_id, full_name, position, jersey_number, birth_date,
		season_id, category_id, senior_season_id, senior_category_id, is_deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(q), p.ID, p.OrganizationID, p.FullName, p.Position, p.JerseyNumber,
		dateArg(p), p.SeasonID, p.CategoryID, p.SeniorSeasonID, p.SeniorCategoryID, false)
	return err
}

func affected(res sql.Result, err error) error {
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

// Update rewrites the editable fields of a live player.
func (r *PlayerRepo) Update(ctx context.Context, p *entity.Player) error {
	q := `UPDATE players SET full_name = ?, position = ?, jersey_number = ?, birth_date = ?
		WHERE organization_id = ? AND id = ? AND is_deleted = ?`
	return affected(r.db.ExecContext(ctx, r.db.Rebind(q), p.FullName, p.Position, p.JerseyNumber, dateArg(p),
		p.OrganizationID, p.ID, false))
}

// SetDeleted flips the soft-delete flag.
func (r *PlayerRepo) SetDeleted(ctx context.Context, orgID, id string, deleted bool) error {
	q := `UPDATE players SET is_deleted = ? WHERE organization_id = ? AND id = ?`
	return affected(r.db.ExecContext(ctx, r.db.Rebind(q), deleted, orgID, id))
}

func (r *PlayerRepo) SetPhoto(ctx context.Context, orgID, id, url string) error {
	q := `UPDATE players SET photo_url = ? WHERE organization_id = ? AND id = ?`
	return affected(r.db.ExecContext(ctx, r.db.Rebind(q), url, orgID, id))
}

// AssignOrphans moves live players without a category into h's category.
func (r *PlayerRepo) AssignOrphans(ctx context.Context, orgID string, h scope.Hierarchy) (int64, error) {
	return scope.AssignOrphans(ctx, r.db, Table, orgID, h)
}

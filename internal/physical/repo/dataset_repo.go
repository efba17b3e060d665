package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/physical/entity"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/scope"
)

var ErrNotFound = errors.New("dataset not found")

var datasetColumns = []string{"id", "organization_id", "player_id", "record_date", "test_name", "value", "unit",
	"season_id", "category_id", "senior_season_id", "senior_category_id", "created_at"}

var Table = scope.Table{
	Name:         "physical_datasets",
	Columns:      datasetColumns,
	Hierarchical: true,
	DateColumn:   "record_date",
	PlayerColumn: "player_id",
	OrderBy:      "record_date DESC, test_name, id",
}

type DatasetRepo struct {
	db *sqlx.DB
}

func NewDatasetRepo(db *sqlx.DB) *DatasetRepo { return &DatasetRepo{db: db} }

func (r *DatasetRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS physical_datasets (
  id TEXT PRIMARY KEY,
  organization_id TEXT NOT NULL,
  player_id TEXT NOT NULL,
  record_date DATE NOT NULL,
  test_name TEXT NOT NULL,
  value REAL NOT NULL,
  unit TEXT NOT NULL DEFAULT '',
  season_id TEXT,
  category_id TEXT,
  senior_season_id TEXT,
  senior_category_id TEXT,
  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_physical_datasets_org_player ON physical_datasets(organization_id, player_id, record_date);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

func (r *DatasetRepo) List(ctx context.Context, q scope.Query) ([]entity.Dataset, error) {
	return scope.Fetch[entity.Dataset](ctx, r.db, Table, q)
}

func (r *DatasetRepo) Get(ctx context.Context, orgID, id string) (*entity.Dataset, error) {
	q := `SELECT ` + strings.Join(datasetColumns, ", ") + ` FROM physical_datasets WHERE organization_id = ? AND id = ?`
	var d entity.Dataset
	if err := r.db.GetContext(ctx, &d, r.db.Rebind(q), orgID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &d, nil
}

// Create inserts a batch of results in one transaction.
func (r *DatasetRepo) Create(ctx context.Context, ds []entity.Dataset) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	ins := tx.Rebind(`INSERT INTO physical_datasets (id, organization_id, player_id, record_date, test_name, value, unit,
		season_id, category_id, senior_season_id, senior_category_id) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, d := range ds {
		if _, err := tx.ExecContext(ctx, ins, d.ID, d.OrganizationID, d.PlayerID, d.RecordDate.Format(scope.DateLayout),
			d.TestName, d.Value, d.Unit, d.SeasonID, d.CategoryID, d.SeniorSeasonID, d.SeniorCategoryID); err != nil {
			return err
		}
	}
	return tx.Commit()
}

func (r *DatasetRepo) Delete(ctx context.Context, orgID, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM physical_datasets WHERE organization_id = ? AND id = ?`), orgID, id)
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

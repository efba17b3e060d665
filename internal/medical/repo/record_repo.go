package repo

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/medical/entity"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/scope"
)

var ErrNotFound = errors.New("medical record not found")

var recordColumns = []string{"id", "organization_id", "subject", "player_id", "person_name", "record_date",
	"diagnosis", "treatment", "status", "expected_return", "document_url", "notes", "created_at"}

// Table serves both subjects; reads always pin the subject column.
var Table = scope.Table{
	Name:         "medical_records",
	Columns:      recordColumns,
	DateColumn:   "record_date",
	PlayerColumn: "player_id",
	OrderBy:      "record_date DESC, id",
}

type RecordRepo struct {
	db *sqlx.DB
}

func NewRecordRepo(db *sqlx.DB) *RecordRepo { return &RecordRepo{db: db} }

func (r *RecordRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS medical_records (
  id TEXT PRIMARY KEY,
  organization_id TEXT NOT NULL,
  subject TEXT NOT NULL,
  player_id TEXT,
  person_name TEXT NOT NULL,
  record_date DATE NOT NULL,
  diagnosis TEXT NOT NULL,
  treatment TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL,
  expected_return DATE,
  document_url TEXT,
  notes TEXT NOT NULL DEFAULT '',
  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_medical_records_org_subject ON medical_records(organization_id, subject, record_date);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

func withSubject(q scope.Query, s entity.Subject) scope.Query {
	q.Filter.Equals = append(append([]scope.Eq(nil), q.Filter.Equals...), scope.Eq{Column: "subject", Value: string(s)})
	return q
}

func (r *RecordRepo) List(ctx context.Context, s entity.Subject, q scope.Query) ([]entity.Record, error) {
	return scope.Fetch[entity.Record](ctx, r.db, Table, withSubject(q, s))
}

func (r *RecordRepo) Get(ctx context.Context, orgID string, s entity.Subject, id string) (*entity.Record, error) {
	q := `SELECT ` + strings.Join(recordColumns, ", ") + ` FROM medical_records WHERE organization_id = ? AND subject = ? AND id = ?`
	var rec entity.Record
	if err := r.db.GetContext(ctx, &rec, r.db.Rebind(q), orgID, string(s), id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &rec, nil
}

func returnArg(rec *entity.Record) any {
	if rec.ExpectedReturn == nil {
		return nil
	}
	return rec.ExpectedReturn.Format(scope.DateLayout)
}

func (r *RecordRepo) Create(ctx context.Context, rec *entity.Record) error {
	q := `INSERT INTO medical_records (id, organization_id, subject, player_id, person_name, record_date, diagnosis,
		treatment, status, expected_return, notes) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(q), rec.ID, rec.OrganizationID, string(rec.Subject), rec.PlayerID,
		rec.PersonName, rec.RecordDate.Format(scope.DateLayout), rec.Diagnosis, rec.Treatment, rec.Status,
		returnArg(rec), rec.Notes)
	return err
}

func (r *RecordRepo) Update(ctx context.Context, rec *entity.Record) error {
	q := `UPDATE medical_records SET person_name = ?, player_id = ?, record_date = ?, diagnosis = ?, treatment = ?,
		status = ?, expected_return = ?, notes = ? WHERE organization_id = ? AND subject = ? AND id = ?`
	res, err := r.db.ExecContext(ctx, r.db.Rebind(q), rec.PersonName, rec.PlayerID, rec.RecordDate.Format(scope.DateLayout),
		rec.Diagnosis, rec.Treatment, rec.Status, returnArg(rec), rec.Notes, rec.OrganizationID, string(rec.Subject), rec.ID)
	if err != nil {
		return err
	}
	return affected(res)
}

func (r *RecordRepo) Delete(ctx context.Context, orgID string, s entity.Subject, id string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`DELETE FROM medical_records WHERE organization_id = ? AND subject = ? AND id = ?`),
		orgID, string(s), id)
	if err != nil {
		return err
	}
	return affected(res)
}

func (r *RecordRepo) SetDocument(ctx context.Context, orgID string, s entity.Subject, id, url string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE medical_records SET document_url = ? WHERE organization_id = ? AND subject = ? AND id = ?`),
		url, orgID, string(s), id)
	if err != nil {
		return err
	}
	return affected(res)
}

func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

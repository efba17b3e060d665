package scope

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	ErrInvalidColumn     = errors.New("invalid column name")
	ErrUnsupportedFilter = errors.New("filter not supported by table")
)

const DateLayout = "2006-01-02"

var identRe = regexp.MustCompile(`^[a-z_][a-z0-9_]*$`)

// Table describes an organization-scoped table.
type Table struct {
	Name  string
	Alias string
	// Columns is the select list, unqualified.
	Columns []string
	// Hierarchical tables carry the four season/category id columns.
	Hierarchical bool
	// SoftDelete tables carry is_deleted.
	SoftDelete   bool
	DateColumn   string
	PlayerColumn string
	OrderBy      string
}

func (t Table) col(name string) string {
	if t.Alias == "" {
		return name
	}
	return t.Alias + "." + name
}

func (t Table) from() string {
	if t.Alias == "" {
		return t.Name
	}
	return t.Name + " " + t.Alias
}

// Eq is a column equality filter. Column must be a plain identifier.
type Eq struct {
	Column string
	Value  any
}

// Filter narrows a scoped read.
type Filter struct {
	IncludeDeleted bool
	PlayerID       string
	From, To       time.Time
	Equals         []Eq
	Limit          int
}

// Query is one scoped read. OrganizationID is mandatory; Hierarchy is
// mandatory for hierarchical tables.
type Query struct {
	OrganizationID string
	Hierarchy      Hierarchy
	Filter         Filter
}

// Where renders the WHERE clause for q with '?' placeholders.
func (t Table) Where(q Query) (string, []any, error) {
	if strings.TrimSpace(q.OrganizationID) == "" {
		return "", nil, ErrMissingOrganization
	}
	conds := []string{t.col("organization_id") + " = ?"}
	args := []any{q.OrganizationID}

	if t.Hierarchical {
		h := q.Hierarchy
		if h.IsZero() {
			return "", nil, ErrMissingHierarchy
		}
		season, category := h.Columns()
		if h.SeasonID() != "" {
			conds = append(conds, t.col(season)+" = ?")
			args = append(args, h.SeasonID())
		}
		if h.CategoryID() != "" {
			conds = append(conds, t.col(category)+" = ?")
			args = append(args, h.CategoryID())
		}
		otherSeason, otherCategory := h.Kind().other().Columns()
		if h.IsSenior() {
			if h.SeasonID() == "" && h.CategoryID() == "" {
				conds = append(conds, "("+t.col(season)+" IS NOT NULL OR "+t.col(category)+" IS NOT NULL)")
			}
		} else {
			// rows carrying senior ids belong to the senior tree
			conds = append(conds, t.col(otherSeason)+" IS NULL", t.col(otherCategory)+" IS NULL")
		}
	}

	f := q.Filter
	if t.SoftDelete && !f.IncludeDeleted {
		conds = append(conds, t.col("is_deleted")+" = ?")
		args = append(args, false)
	}
	if f.PlayerID != "" {
		if t.PlayerColumn == "" {
			return "", nil, fmt.Errorf("%w: player_id on %s", ErrUnsupportedFilter, t.Name)
		}
		conds = append(conds, t.col(t.PlayerColumn)+" = ?")
		args = append(args, f.PlayerID)
	}
	if !f.From.IsZero() || !f.To.IsZero() {
		if t.DateColumn == "" {
			return "", nil, fmt.Errorf("%w: date range on %s", ErrUnsupportedFilter, t.Name)
		}
		if !f.From.IsZero() {
			conds = append(conds, t.col(t.DateColumn)+" >= ?")
			args = append(args, f.From.Format(DateLayout))
		}
		if !f.To.IsZero() {
			conds = append(conds, t.col(t.DateColumn)+" <= ?")
			args = append(args, f.To.Format(DateLayout))
		}
	}
	for _, eq := range f.Equals {
		if !identRe.MatchString(eq.Column) {
			return "", nil, fmt.Errorf("%w: %q", ErrInvalidColumn, eq.Column)
		}
		conds = append(conds, t.col(eq.Column)+" = ?")
		args = append(args, eq.Value)
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// Select renders the full SELECT for q.
func (t Table) Select(q Query) (string, []any, error) {
	where, args, err := t.Where(q)
	if err != nil {
		return "", nil, err
	}
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = t.col(c)
	}
	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(strings.Join(cols, ", "))
	b.WriteString(" FROM ")
	b.WriteString(t.from())
	b.WriteString(where)
	if t.OrderBy != "" {
		b.WriteString(" ORDER BY ")
		b.WriteString(t.OrderBy)
	}
	if q.Filter.Limit > 0 {
		b.WriteString(" LIMIT ?")
		args = append(args, q.Filter.Limit)
	}
	return b.String(), args, nil
}

// Queryer is satisfied by *sqlx.DB and *sqlx.Tx.
type Queryer interface {
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	Rebind(query string) string
}

// Fetch runs the scoped read for q and scans the rows into T.
func Fetch[T any](ctx context.Context, db Queryer, t Table, q Query) ([]T, error) {
	query, args, err := t.Select(q)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if err := db.SelectContext(ctx, &out, db.Rebind(query), args...); err != nil {
		return nil, fmt.Errorf("select %s: %w", t.Name, err)
	}
	return out, nil
}

// Execer is satisfied by *sqlx.DB and *sqlx.Tx.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	Rebind(query string) string
}

// AssignOrphans attaches rows of the organization that belong to no category
// to h's category and season. h must name both. Rows already in a category of
// either tree, or in a different season, are never touched, so a second run
// is a no-op.
func AssignOrphans(ctx context.Context, db Execer, t Table, orgID string, h Hierarchy) (int64, error) {
	if strings.TrimSpace(orgID) == "" {
		return 0, ErrMissingOrganization
	}
	if !t.Hierarchical {
		return 0, fmt.Errorf("%w: %s has no hierarchy", ErrUnsupportedFilter, t.Name)
	}
	if h.IsZero() || h.CategoryID() == "" || h.SeasonID() == "" {
		return 0, ErrMissingHierarchy
	}
	season, category := h.Columns()
	otherSeason, otherCategory := h.Kind().other().Columns()

	q := fmt.Sprintf(`UPDATE %s SET %s = ?, %s = ? WHERE organization_id = ? AND %s IS NULL AND (%s IS NULL OR %s = ?) AND %s IS NULL AND %s IS NULL`,
		t.Name, category, season, category, season, season, otherCategory, otherSeason)
	args := []any{h.CategoryID(), h.SeasonID(), orgID, h.SeasonID()}
	if t.SoftDelete {
		q += " AND is_deleted = ?"
		args = append(args, false)
	}
	res, err := db.ExecContext(ctx, db.Rebind(q), args...)
	if err != nil {
		return 0, fmt.Errorf("assign orphans in %s: %w", t.Name, err)
	}
	return res.RowsAffected()
}

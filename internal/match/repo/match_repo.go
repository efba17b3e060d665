package repo

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/match/entity"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/scope"
)

var ErrNotFound = errors.New("match not found")

var matchColumns = []string{"id", "organization_id", "opponent", "competition", "match_date", "is_home",
	"goals_for", "goals_against", "video_url", "season_id", "category_id", "senior_season_id",
	"senior_category_id", "created_at"}

var Table = scope.Table{
	Name:         "matches",
	Columns:      matchColumns,
	Hierarchical: true,
	DateColumn:   "match_date",
	OrderBy:      "match_date DESC, id",
}

// statScope filters stat lines through their match.
var statScope = scope.Table{
	Name:         "matches",
	Alias:        "m",
	Hierarchical: true,
	DateColumn:   "match_date",
}

const statLineSelect = `SELECT s.id, s.organization_id, s.match_id, s.player_id, s.minutes, s.goals, s.assists,
	s.yellow_cards, s.red_cards, s.rating,
	COALESCE(p.full_name, '') AS player_name, COALESCE(p.is_deleted, FALSE) AS player_deleted
	FROM match_stats s
	LEFT JOIN players p ON p.id = s.player_id AND p.organization_id = s.organization_id`

type MatchRepo struct {
	db *sqlx.DB
}

func NewMatchRepo(db *sqlx.DB) *MatchRepo { return &MatchRepo{db: db} }

func (r *MatchRepo) EnsureTable(ctx context.Context) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS matches (
  id TEXT PRIMARY KEY,
  organization_id TEXT NOT NULL,
  opponent TEXT NOT NULL,
  competition TEXT NOT NULL DEFAULT '',
  match_date DATE NOT NULL,
  is_home BOOLEAN NOT NULL DEFAULT TRUE,
  goals_for INTEGER NOT NULL DEFAULT 0,
  goals_against INTEGER NOT NULL DEFAULT 0,
  video_url TEXT,
  season_id TEXT,
  category_id TEXT,
  senior_season_id TEXT,
  senior_category_id TEXT,
  created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_matches_org_date ON matches(organization_id, match_date);
CREATE TABLE IF NOT EXISTS match_stats (
  id TEXT PRIMARY KEY,
  organization_id TEXT NOT NULL,
  match_id TEXT NOT NULL REFERENCES matches(id),
  player_id TEXT NOT NULL,
  minutes INTEGER NOT NULL DEFAULT 0,
  goals INTEGER NOT NULL DEFAULT 0,
  assists INTEGER NOT NULL DEFAULT 0,
  yellow_cards INTEGER NOT NULL DEFAULT 0,
  red_cards INTEGER NOT NULL DEFAULT 0,
  rating REAL,
  UNIQUE (match_id, player_id)
);
CREATE INDEX IF NOT EXISTS idx_match_stats_org_player ON match_stats(organization_id, player_id);
`
	_, err := r.db.ExecContext(ctx, ddl)
	return err
}

func (r *MatchRepo) List(ctx context.Context, q scope.Query) ([]entity.Match, error) {
	return scope.Fetch[entity.Match](ctx, r.db, Table, q)
}

func (r *MatchRepo) Get(ctx context.Context, orgID, id string) (*entity.Match, error) {
	q := `SELECT ` + strings.Join(matchColumns, ", ") + ` FROM matches WHERE organization_id = ? AND id = ?`
	var m entity.Match
	if err := r.db.GetContext(ctx, &m, r.db.Rebind(q), orgID, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &m, nil
}

func (r *MatchRepo) Create(ctx context.Context, m *entity.Match) error {
	q := `INSERT INTO matches (id, organization_id, opponent, competition, match_date, is_home, goals_for, goals_against,
		season_id, category_id, senior_season_id, senior_category_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	_, err := r.db.ExecContext(ctx, r.db.Rebind(q), m.ID, m.OrganizationID, m.Opponent, m.Competition,
		m.MatchDate.Format(scope.DateLayout), m.IsHome, m.GoalsFor, m.GoalsAgainst,
		m.SeasonID, m.CategoryID, m.SeniorSeasonID, m.SeniorCategoryID)
	return err
}

// Delete removes the match and its stat lines.
func (r *MatchRepo) Delete(ctx context.Context, orgID, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM match_stats WHERE organization_id = ? AND match_id = ?`), orgID, id); err != nil {
		return fmt.Errorf("delete stats: %w", err)
	}
	res, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM matches WHERE organization_id = ? AND id = ?`), orgID, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

func (r *MatchRepo) SetVideo(ctx context.Context, orgID, id, url string) error {
	res, err := r.db.ExecContext(ctx, r.db.Rebind(`UPDATE matches SET video_url = ? WHERE organization_id = ? AND id = ?`), url, orgID, id)
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return ErrNotFound
	}
	return nil
}

// Stats returns the stat lines of one match with player names resolved,
// including players that have since been deleted.
func (r *MatchRepo) Stats(ctx context.Context, orgID, matchID string) ([]entity.StatLine, error) {
	q := statLineSelect + ` WHERE s.organization_id = ? AND s.match_id = ? ORDER BY player_name, s.player_id`
	out := []entity.StatLine{}
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(q), orgID, matchID); err != nil {
		return nil, err
	}
	return out, nil
}

// ReplaceStats swaps the stat lines of a match in one transaction.
func (r *MatchRepo) ReplaceStats(ctx context.Context, orgID, matchID string, lines []entity.Stat) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()
	if _, err := tx.ExecContext(ctx, tx.Rebind(`DELETE FROM match_stats WHERE organization_id = ? AND match_id = ?`), orgID, matchID); err != nil {
		return fmt.Errorf("clear stats: %w", err)
	}
	ins := tx.Rebind(`INSERT INTO match_stats (id, organization_id, match_id, player_id, minutes, goals, assists, yellow_cards, red_cards, rating)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	for _, s := range lines {
		if _, err := tx.ExecContext(ctx, ins, s.ID, orgID, matchID, s.PlayerID, s.Minutes, s.Goals, s.Assists,
			s.YellowCards, s.RedCards, s.Rating); err != nil {
			return fmt.Errorf("insert stat for %s: %w", s.PlayerID, err)
		}
	}
	return tx.Commit()
}

// StatLines returns every stat line of the matches selected by q. A player
// filter applies to the stat line, not to the match.
func (r *MatchRepo) StatLines(ctx context.Context, q scope.Query) ([]entity.StatLine, error) {
	playerID := q.Filter.PlayerID
	q.Filter.PlayerID = ""
	where, args, err := statScope.Where(q)
	if err != nil {
		return nil, err
	}
	var b strings.Builder
	b.WriteString(statLineSelect)
	b.WriteString(` JOIN matches m ON m.id = s.match_id AND m.organization_id = s.organization_id`)
	b.WriteString(where)
	if playerID != "" {
		b.WriteString(` AND s.player_id = ?`)
		args = append(args, playerID)
	}
	b.WriteString(` ORDER BY m.match_date, s.player_id`)
	out := []entity.StatLine{}
	if err := r.db.SelectContext(ctx, &out, r.db.Rebind(b.String()), args...); err != nil {
		return nil, fmt.Errorf("select stat lines: %w", err)
	}
	return out, nil
}

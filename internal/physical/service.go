package physical

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/export"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/physical/entity"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/physical/repo"
	playerentity "github.com/ovaphlow/pitchfork/service-club-go/internal/player/entity"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/scope"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/stats"
	"github.com/ovaphlow/pitchfork/service-club-go/pkg/utilities"
)

var (
	ErrNotFound     = repo.ErrNotFound
	ErrInvalidInput = errors.New("invalid input")
)

type Repository interface {
	List(ctx context.Context, q scope.Query) ([]entity.Dataset, error)
	Get(ctx context.Context, orgID, id string) (*entity.Dataset, error)
	Create(ctx context.Context, ds []entity.Dataset) error
	Delete(ctx context.Context, orgID, id string) error
}

type Players interface {
	Get(ctx context.Context, orgID, id string) (*playerentity.Player, error)
	List(ctx context.Context, q scope.Query, repair bool) ([]playerentity.Player, error)
}

type Service struct {
	repo    Repository
	players Players
	logger  *zap.SugaredLogger
}

func NewService(r Repository, players Players, logger *zap.SugaredLogger) *Service {
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{repo: r, players: players, logger: logger}
}

func (s *Service) List(ctx context.Context, q scope.Query) ([]entity.Dataset, error) {
	return s.repo.List(ctx, q)
}

type Result struct {
	TestName string  `json:"test_name"`
	Value    float64 `json:"value"`
	Unit     string  `json:"unit"`
}

// Input is one testing session of one player.
type Input struct {
	PlayerID   string    `json:"player_id"`
	RecordDate time.Time `json:"record_date"`
	Results    []Result  `json:"results"`
}

// Create stores the results of a session. Rows take the player's current
// category, so the player must be live and belong to tree k.
func (s *Service) Create(ctx context.Context, orgID string, k scope.Kind, in Input) ([]entity.Dataset, error) {
	if in.RecordDate.IsZero() {
		return nil, fmt.Errorf("%w: record_date is required", ErrInvalidInput)
	}
	if len(in.Results) == 0 {
		return nil, fmt.Errorf("%w: at least one result is required", ErrInvalidInput)
	}
	p, err := s.players.Get(ctx, orgID, in.PlayerID)
	if err != nil || p.IsDeleted {
		return nil, fmt.Errorf("%w: unknown player %s", ErrInvalidInput, in.PlayerID)
	}
	h, ok := p.Hierarchy()
	if !ok || h.Kind() != k {
		return nil, fmt.Errorf("%w: player %s is not in the %s tree", ErrInvalidInput, in.PlayerID, k)
	}
	now := time.Now().UTC()
	out := make([]entity.Dataset, 0, len(in.Results))
	for _, res := range in.Results {
		name := strings.TrimSpace(res.TestName)
		if name == "" {
			return nil, fmt.Errorf("%w: test_name is required", ErrInvalidInput)
		}
		if math.IsNaN(res.Value) || math.IsInf(res.Value, 0) {
			return nil, fmt.Errorf("%w: value of %s is not a number", ErrInvalidInput, name)
		}
		d := entity.Dataset{
			ID:             utilities.NewSnowflakeID(),
			OrganizationID: orgID,
			PlayerID:       p.ID,
			RecordDate:     in.RecordDate,
			TestName:       name,
			Value:          res.Value,
			Unit:           strings.TrimSpace(res.Unit),
			CreatedAt:      now,
		}
		d.Place(h)
		out = append(out, d)
	}
	if err := s.repo.Create(ctx, out); err != nil {
		return nil, fmt.Errorf("create datasets: %w", err)
	}
	return out, nil
}

func (s *Service) Delete(ctx context.Context, orgID string, k scope.Kind, id string) error {
	d, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return err
	}
	if h, ok := d.Hierarchy(); !ok || h.Kind() != k {
		return ErrNotFound
	}
	return s.repo.Delete(ctx, orgID, id)
}

// TestSummary aggregates one player's results in one test.
type TestSummary struct {
	PlayerID   string        `json:"player_id"`
	PlayerName string        `json:"player_name"`
	TestName   string        `json:"test_name"`
	Unit       string        `json:"unit"`
	Value      stats.Summary `json:"value"`
	Latest     float64       `json:"latest"`
	LatestDate time.Time     `json:"latest_date"`
}

// Summarize groups results by player and test. names resolves player ids;
// unknown ids keep an empty name.
func Summarize(ds []entity.Dataset, names map[string]string) []TestSummary {
	groups := stats.GroupBy(ds, func(d entity.Dataset) string { return d.PlayerID + "\x00" + d.TestName })
	out := make([]TestSummary, 0, len(groups))
	for _, key := range stats.SortedKeys(groups) {
		g := groups[key]
		ts := TestSummary{
			PlayerID:   g[0].PlayerID,
			PlayerName: names[g[0].PlayerID],
			TestName:   g[0].TestName,
			Unit:       g[0].Unit,
			Value:      stats.Summarize(g, func(d entity.Dataset) float64 { return d.Value }),
		}
		for _, d := range g {
			if !d.RecordDate.Before(ts.LatestDate) {
				ts.Latest, ts.LatestDate = d.Value, d.RecordDate
			}
		}
		out = append(out, ts)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].PlayerName != out[j].PlayerName {
			return out[i].PlayerName < out[j].PlayerName
		}
		if out[i].PlayerID != out[j].PlayerID {
			return out[i].PlayerID < out[j].PlayerID
		}
		return out[i].TestName < out[j].TestName
	})
	return out
}

// Summary aggregates the datasets selected by q. Names come from the whole
// tree, deleted and moved players included.
func (s *Service) Summary(ctx context.Context, q scope.Query) ([]TestSummary, error) {
	ds, err := s.repo.List(ctx, q)
	if err != nil {
		return nil, err
	}
	tree, err := scope.New(q.Hierarchy.Kind(), "", "")
	if err != nil {
		return nil, err
	}
	roster, err := s.players.List(ctx, scope.Query{
		OrganizationID: q.OrganizationID,
		Hierarchy:      tree,
		Filter:         scope.Filter{IncludeDeleted: true},
	}, false)
	if err != nil {
		return nil, fmt.Errorf("load roster: %w", err)
	}
	names := make(map[string]string, len(roster))
	for _, p := range roster {
		names[p.ID] = p.FullName
	}
	return Summarize(ds, names), nil
}

func SummarySheet(rows []TestSummary) export.Sheet {
	s := export.Sheet{
		Title:   "Physical summary",
		Headers: []string{"Player", "Test", "Unit", "Samples", "Average", "Total", "Latest", "Latest date"},
	}
	for _, r := range rows {
		s.AddRow(r.PlayerName, r.TestName, r.Unit, r.Value.Count, r.Value.Average, r.Value.Total, r.Latest, r.LatestDate)
	}
	return s
}

package match

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	coachentity "github.com/ovaphlow/pitchfork/service-club-go/internal/coach/entity"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/match/entity"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/match/repo"
	playerentity "github.com/ovaphlow/pitchfork/service-club-go/internal/player/entity"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/scope"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/storage"
	"github.com/ovaphlow/pitchfork/service-club-go/pkg/utilities"
)

var (
	ErrNotFound     = repo.ErrNotFound
	ErrInvalidInput = errors.New("invalid input")
)

type Repository interface {
	List(ctx context.Context, q scope.Query) ([]entity.Match, error)
	Get(ctx context.Context, orgID, id string) (*entity.Match, error)
	Create(ctx context.Context, m *entity.Match) error
	Delete(ctx context.Context, orgID, id string) error
	SetVideo(ctx context.Context, orgID, id, url string) error
	Stats(ctx context.Context, orgID, matchID string) ([]entity.StatLine, error)
	ReplaceStats(ctx context.Context, orgID, matchID string, lines []entity.Stat) error
	StatLines(ctx context.Context, q scope.Query) ([]entity.StatLine, error)
}

type Placement interface {
	Complete(ctx context.Context, orgID string, h scope.Hierarchy) (scope.Hierarchy, error)
}

// Players is the roster the match service reads from.
type Players interface {
	Get(ctx context.Context, orgID, id string) (*playerentity.Player, error)
	List(ctx context.Context, q scope.Query, repair bool) ([]playerentity.Player, error)
}

type Coaches interface {
	List(ctx context.Context, q scope.Query) ([]coachentity.Coach, error)
}

type Service struct {
	repo     Repository
	places   Placement
	players  Players
	coaches  Coaches
	uploader storage.Uploader
	logger   *zap.SugaredLogger
}

func NewService(r Repository, places Placement, players Players, coaches Coaches, up storage.Uploader, logger *zap.SugaredLogger) *Service {
	if up == nil {
		up = storage.Disabled{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{repo: r, places: places, players: players, coaches: coaches, uploader: up, logger: logger}
}

func (s *Service) List(ctx context.Context, q scope.Query) ([]entity.Match, error) {
	return s.repo.List(ctx, q)
}

type Input struct {
	Opponent     string    `json:"opponent"`
	Competition  string    `json:"competition"`
	MatchDate    time.Time `json:"match_date"`
	IsHome       bool      `json:"is_home"`
	GoalsFor     int       `json:"goals_for"`
	GoalsAgainst int       `json:"goals_against"`
}

func (s *Service) Create(ctx context.Context, orgID string, h scope.Hierarchy, in Input) (*entity.Match, error) {
	if strings.TrimSpace(in.Opponent) == "" {
		return nil, fmt.Errorf("%w: opponent is required", ErrInvalidInput)
	}
	if in.MatchDate.IsZero() {
		return nil, fmt.Errorf("%w: match_date is required", ErrInvalidInput)
	}
	if in.GoalsFor < 0 || in.GoalsAgainst < 0 {
		return nil, fmt.Errorf("%w: goals cannot be negative", ErrInvalidInput)
	}
	h, err := s.places.Complete(ctx, orgID, h)
	if err != nil {
		return nil, err
	}
	m := &entity.Match{
		ID:             utilities.NewSnowflakeID(),
		OrganizationID: orgID,
		Opponent:       strings.TrimSpace(in.Opponent),
		Competition:    strings.TrimSpace(in.Competition),
		MatchDate:      in.MatchDate,
		IsHome:         in.IsHome,
		GoalsFor:       in.GoalsFor,
		GoalsAgainst:   in.GoalsAgainst,
		CreatedAt:      time.Now().UTC(),
	}
	m.Place(h)
	if err := s.repo.Create(ctx, m); err != nil {
		return nil, fmt.Errorf("create match: %w", err)
	}
	return m, nil
}

// get loads a match of tree k.
func (s *Service) get(ctx context.Context, orgID string, k scope.Kind, id string) (*entity.Match, error) {
	m, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if h, ok := m.Hierarchy(); !ok || h.Kind() != k {
		return nil, ErrNotFound
	}
	return m, nil
}

func (s *Service) Delete(ctx context.Context, orgID string, k scope.Kind, id string) error {
	if _, err := s.get(ctx, orgID, k, id); err != nil {
		return err
	}
	return s.repo.Delete(ctx, orgID, id)
}

func (s *Service) Stats(ctx context.Context, orgID string, k scope.Kind, matchID string) ([]entity.StatLine, error) {
	if _, err := s.get(ctx, orgID, k, matchID); err != nil {
		return nil, err
	}
	return s.repo.Stats(ctx, orgID, matchID)
}

type StatInput struct {
	PlayerID    string   `json:"player_id"`
	Minutes     int      `json:"minutes"`
	Goals       int      `json:"goals"`
	Assists     int      `json:"assists"`
	YellowCards int      `json:"yellow_cards"`
	RedCards    int      `json:"red_cards"`
	Rating      *float64 `json:"rating"`
}

func (in StatInput) validate() error {
	switch {
	case in.PlayerID == "":
		return fmt.Errorf("%w: player_id is required", ErrInvalidInput)
	case in.Minutes < 0 || in.Minutes > 130:
		return fmt.Errorf("%w: minutes out of range", ErrInvalidInput)
	case in.Goals < 0 || in.Assists < 0 || in.YellowCards < 0 || in.RedCards < 0:
		return fmt.Errorf("%w: counts cannot be negative", ErrInvalidInput)
	case in.YellowCards > 2 || in.RedCards > 1:
		return fmt.Errorf("%w: too many cards", ErrInvalidInput)
	case in.Rating != nil && (*in.Rating < 0 || *in.Rating > 10):
		return fmt.Errorf("%w: rating must be between 0 and 10", ErrInvalidInput)
	}
	return nil
}

// SaveStats replaces the stat lines of a match. A new line needs a live player
// of the match's tree. Players the match already listed are accepted as they
// are, so old lines survive a deletion or a move.
func (s *Service) SaveStats(ctx context.Context, orgID string, k scope.Kind, matchID string, in []StatInput) ([]entity.StatLine, error) {
	if _, err := s.get(ctx, orgID, k, matchID); err != nil {
		return nil, err
	}
	existing, err := s.repo.Stats(ctx, orgID, matchID)
	if err != nil {
		return nil, err
	}
	had := make(map[string]bool, len(existing))
	for _, l := range existing {
		had[l.PlayerID] = true
	}
	seen := make(map[string]bool, len(in))
	lines := make([]entity.Stat, 0, len(in))
	for _, st := range in {
		if err := st.validate(); err != nil {
			return nil, err
		}
		if seen[st.PlayerID] {
			return nil, fmt.Errorf("%w: player %s listed twice", ErrInvalidInput, st.PlayerID)
		}
		seen[st.PlayerID] = true
		p, err := s.players.Get(ctx, orgID, st.PlayerID)
		if err != nil {
			return nil, fmt.Errorf("%w: unknown player %s", ErrInvalidInput, st.PlayerID)
		}
		if !had[p.ID] {
			if p.IsDeleted {
				return nil, fmt.Errorf("%w: player %s is deleted", ErrInvalidInput, st.PlayerID)
			}
			if h, ok := p.Hierarchy(); !ok || h.Kind() != k {
				return nil, fmt.Errorf("%w: player %s is not in the %s tree", ErrInvalidInput, st.PlayerID, k)
			}
		}
		lines = append(lines, entity.Stat{
			ID:             utilities.NewSnowflakeID(),
			OrganizationID: orgID,
			MatchID:        matchID,
			PlayerID:       st.PlayerID,
			Minutes:        st.Minutes,
			Goals:          st.Goals,
			Assists:        st.Assists,
			YellowCards:    st.YellowCards,
			RedCards:       st.RedCards,
			Rating:         st.Rating,
		})
	}
	if err := s.repo.ReplaceStats(ctx, orgID, matchID, lines); err != nil {
		return nil, fmt.Errorf("save stats: %w", err)
	}
	return s.repo.Stats(ctx, orgID, matchID)
}

// Summary aggregates the stat lines of the matches in q per player.
func (s *Service) Summary(ctx context.Context, q scope.Query) ([]PlayerSummary, error) {
	lines, err := s.repo.StatLines(ctx, q)
	if err != nil {
		return nil, err
	}
	return Summarize(lines), nil
}

// UploadVideo stores a match recording and links it to the match.
func (s *Service) UploadVideo(ctx context.Context, orgID string, k scope.Kind, id string, f *storage.File) (string, error) {
	if _, err := s.get(ctx, orgID, k, id); err != nil {
		return "", err
	}
	if !strings.HasPrefix(f.ContentType, "video/") {
		return "", fmt.Errorf("%w: file must be a video", ErrInvalidInput)
	}
	url, err := s.uploader.Upload(ctx, storage.ObjectKey(orgID, storage.FolderMatchVideos, id, f.Name), f.Body, f.Size, f.ContentType)
	if err != nil {
		return "", err
	}
	if err := s.repo.SetVideo(ctx, orgID, id, url); err != nil {
		return "", err
	}
	return url, nil
}

// Record is the win/draw/loss tally of a set of matches.
type Record struct {
	Played       int `json:"played"`
	Won          int `json:"won"`
	Drawn        int `json:"drawn"`
	Lost         int `json:"lost"`
	GoalsFor     int `json:"goals_for"`
	GoalsAgainst int `json:"goals_against"`
}

func RecordOf(ms []entity.Match) Record {
	var r Record
	for i := range ms {
		m := &ms[i]
		r.Played++
		r.GoalsFor += m.GoalsFor
		r.GoalsAgainst += m.GoalsAgainst
		switch m.Outcome() {
		case "W":
			r.Won++
		case "D":
			r.Drawn++
		default:
			r.Lost++
		}
	}
	return r
}

// Overview is everything a category page shows at once.
type Overview struct {
	Players []playerentity.Player `json:"players"`
	Coaches []coachentity.Coach   `json:"coaches"`
	Matches []entity.Match        `json:"matches"`
	Record  Record                `json:"record"`
}

// Overview fetches players, coaches and matches of q concurrently. The
// fetches are independent and may finish in any order. Date filters apply
// to matches only.
func (s *Service) Overview(ctx context.Context, q scope.Query) (*Overview, error) {
	roster := scope.Query{OrganizationID: q.OrganizationID, Hierarchy: q.Hierarchy}
	var out Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ps, err := s.players.List(gctx, roster, false)
		if err != nil {
			return fmt.Errorf("players: %w", err)
		}
		out.Players = ps
		return nil
	})
	g.Go(func() error {
		cs, err := s.coaches.List(gctx, roster)
		if err != nil {
			return fmt.Errorf("coaches: %w", err)
		}
		out.Coaches = cs
		return nil
	})
	g.Go(func() error {
		mq := roster
		mq.Filter.From, mq.Filter.To = q.Filter.From, q.Filter.To
		ms, err := s.repo.List(gctx, mq)
		if err != nil {
			return fmt.Errorf("matches: %w", err)
		}
		out.Matches = ms
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	out.Record = RecordOf(out.Matches)
	return &out, nil
}

func sortSummaries(out []PlayerSummary) {
	sort.Slice(out, func(i, j int) bool {
		if out[i].PlayerName != out[j].PlayerName {
			return out[i].PlayerName < out[j].PlayerName
		}
		return out[i].PlayerID < out[j].PlayerID
	})
}

package medical

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/medical/entity"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/medical/repo"
	playerentity "github.com/ovaphlow/pitchfork/service-club-go/internal/player/entity"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/scope"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/stats"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/storage"
	"github.com/ovaphlow/pitchfork/service-club-go/pkg/utilities"
)

var (
	ErrNotFound     = repo.ErrNotFound
	ErrInvalidInput = errors.New("invalid input")
)

type Repository interface {
	List(ctx context.Context, s entity.Subject, q scope.Query) ([]entity.Record, error)
	Get(ctx context.Context, orgID string, s entity.Subject, id string) (*entity.Record, error)
	Create(ctx context.Context, rec *entity.Record) error
	Update(ctx context.Context, rec *entity.Record) error
	Delete(ctx context.Context, orgID string, s entity.Subject, id string) error
	SetDocument(ctx context.Context, orgID string, s entity.Subject, id, url string) error
}

type Players interface {
	Get(ctx context.Context, orgID, id string) (*playerentity.Player, error)
}

type Service struct {
	repo     Repository
	players  Players
	uploader storage.Uploader
	logger   *zap.SugaredLogger
}

func NewService(r Repository, players Players, up storage.Uploader, logger *zap.SugaredLogger) *Service {
	if up == nil {
		up = storage.Disabled{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{repo: r, players: players, uploader: up, logger: logger}
}

func (s *Service) List(ctx context.Context, sub entity.Subject, q scope.Query) ([]entity.Record, error) {
	if sub == entity.SubjectStaff && q.Filter.PlayerID != "" {
		return nil, fmt.Errorf("%w: player_id on staff records", scope.ErrUnsupportedFilter)
	}
	return s.repo.List(ctx, sub, q)
}

type Input struct {
	PlayerID       string     `json:"player_id"`
	PersonName     string     `json:"person_name"`
	RecordDate     time.Time  `json:"record_date"`
	Diagnosis      string     `json:"diagnosis"`
	Treatment      string     `json:"treatment"`
	Status         string     `json:"status"`
	ExpectedReturn *time.Time `json:"expected_return"`
	Notes          string     `json:"notes"`
}

func (in Input) validate() error {
	switch {
	case in.RecordDate.IsZero():
		return fmt.Errorf("%w: record_date is required", ErrInvalidInput)
	case strings.TrimSpace(in.Diagnosis) == "":
		return fmt.Errorf("%w: diagnosis is required", ErrInvalidInput)
	case !entity.ValidStatus(in.Status):
		return fmt.Errorf("%w: status must be injured, recovering or available", ErrInvalidInput)
	case in.ExpectedReturn != nil && in.ExpectedReturn.Before(in.RecordDate):
		return fmt.Errorf("%w: expected_return is before record_date", ErrInvalidInput)
	}
	return nil
}

// fill copies in onto rec. Player records take the player's current name;
// staff records name the person directly.
func (s *Service) fill(ctx context.Context, rec *entity.Record, in Input) error {
	if err := in.validate(); err != nil {
		return err
	}
	switch rec.Subject {
	case entity.SubjectPlayers:
		if in.PlayerID == "" {
			return fmt.Errorf("%w: player_id is required", ErrInvalidInput)
		}
		p, err := s.players.Get(ctx, rec.OrganizationID, in.PlayerID)
		if err != nil {
			return fmt.Errorf("%w: unknown player %s", ErrInvalidInput, in.PlayerID)
		}
		rec.PlayerID = &p.ID
		rec.PersonName = p.FullName
	default:
		if strings.TrimSpace(in.PersonName) == "" {
			return fmt.Errorf("%w: person_name is required", ErrInvalidInput)
		}
		rec.PlayerID = nil
		rec.PersonName = strings.TrimSpace(in.PersonName)
	}
	rec.RecordDate = in.RecordDate
	rec.Diagnosis = strings.TrimSpace(in.Diagnosis)
	rec.Treatment = strings.TrimSpace(in.Treatment)
	rec.Status = in.Status
	rec.ExpectedReturn = in.ExpectedReturn
	rec.Notes = in.Notes
	return nil
}

func (s *Service) Create(ctx context.Context, orgID string, sub entity.Subject, in Input) (*entity.Record, error) {
	rec := &entity.Record{
		ID:             utilities.NewSnowflakeID(),
		OrganizationID: orgID,
		Subject:        sub,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.fill(ctx, rec, in); err != nil {
		return nil, err
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return nil, fmt.Errorf("create medical record: %w", err)
	}
	return rec, nil
}

func (s *Service) Update(ctx context.Context, orgID string, sub entity.Subject, id string, in Input) (*entity.Record, error) {
	rec, err := s.repo.Get(ctx, orgID, sub, id)
	if err != nil {
		return nil, err
	}
	if err := s.fill(ctx, rec, in); err != nil {
		return nil, err
	}
	if err := s.repo.Update(ctx, rec); err != nil {
		return nil, err
	}
	return rec, nil
}

func (s *Service) Delete(ctx context.Context, orgID string, sub entity.Subject, id string) error {
	return s.repo.Delete(ctx, orgID, sub, id)
}

// Summary is the status board of a set of records.
type Summary struct {
	Total        int            `json:"total"`
	ByStatus     map[string]int `json:"by_status"`
	RecoveryDays stats.Summary  `json:"recovery_days"`
}

func Summarize(recs []entity.Record) Summary {
	out := Summary{
		Total:    len(recs),
		ByStatus: stats.CountBy(recs, func(r entity.Record) string { return r.Status }),
		RecoveryDays: stats.SummarizePresent(recs, func(r entity.Record) (float64, bool) {
			return r.RecoveryDays()
		}),
	}
	for _, st := range []string{entity.StatusInjured, entity.StatusRecovering, entity.StatusAvailable} {
		if _, ok := out.ByStatus[st]; !ok {
			out.ByStatus[st] = 0
		}
	}
	return out
}

func (s *Service) Summary(ctx context.Context, sub entity.Subject, q scope.Query) (Summary, error) {
	recs, err := s.List(ctx, sub, q)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(recs), nil
}

// UploadDocument stores a report (PDF or image) and links it to the record.
func (s *Service) UploadDocument(ctx context.Context, orgID string, sub entity.Subject, id string, f *storage.File) (string, error) {
	if _, err := s.repo.Get(ctx, orgID, sub, id); err != nil {
		return "", err
	}
	if f.ContentType != "application/pdf" && !strings.HasPrefix(f.ContentType, "image/") {
		return "", fmt.Errorf("%w: document must be a PDF or an image", ErrInvalidInput)
	}
	url, err := s.uploader.Upload(ctx, storage.ObjectKey(orgID, storage.FolderMedicalDocuments, id, f.Name), f.Body, f.Size, f.ContentType)
	if err != nil {
		return "", err
	}
	if err := s.repo.SetDocument(ctx, orgID, sub, id, url); err != nil {
		return "", err
	}
	s.logger.Infow("medical document stored", "org", orgID, "record", id)
	return url, nil
}

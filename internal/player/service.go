package player

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/player/entity"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/player/repo"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/scope"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/storage"
	"github.com/ovaphlow/pitchfork/service-club-go/pkg/utilities"
)

var (
	ErrNotFound     = repo.ErrNotFound
	ErrInvalidInput = errors.New("invalid input")
)

type Repository interface {
	List(ctx context.Context, q scope.Query) ([]entity.Player, error)
	Get(ctx context.Context, orgID, id string) (*entity.Player, error)
	Create(ctx context.Context, p *entity.Player) error
	Update(ctx context.Context, p *entity.Player) error
	SetDeleted(ctx context.Context, orgID, id string, deleted bool) error
	SetPhoto(ctx context.Context, orgID, id, url string) error
	AssignOrphans(ctx context.Context, orgID string, h scope.Hierarchy) (int64, error)
}

// Placement validates a hierarchy against the organization's categories.
type Placement interface {
	Complete(ctx context.Context, orgID string, h scope.Hierarchy) (scope.Hierarchy, error)
}

type Service struct {
	repo     Repository
	places   Placement
	uploader storage.Uploader
	logger   *zap.SugaredLogger
}

func NewService(r Repository, places Placement, up storage.Uploader, logger *zap.SugaredLogger) *Service {
	if up == nil {
		up = storage.Disabled{}
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Service{repo: r, places: places, uploader: up, logger: logger}
}

// List returns the scoped players. With repair set, players that belong to
// no category are first assigned to the requested category. The repair is
// best effort: its failure is logged and the read goes ahead.
func (s *Service) List(ctx context.Context, q scope.Query, repair bool) ([]entity.Player, error) {
	if repair {
		s.Repair(ctx, q.OrganizationID, q.Hierarchy)
	}
	return s.repo.List(ctx, q)
}

// Get returns a player of the organization, including deleted ones.
func (s *Service) Get(ctx context.Context, orgID, id string) (*entity.Player, error) {
	return s.repo.Get(ctx, orgID, id)
}

// Repair runs the orphan assignment and reports how many rows moved. The
// category must exist in the organization; its season is taken from the row.
func (s *Service) Repair(ctx context.Context, orgID string, h scope.Hierarchy) int64 {
	if h.CategoryID() == "" {
		return 0
	}
	h, err := s.places.Complete(ctx, orgID, h)
	if err != nil {
		s.logger.Warnw("orphan repair skipped", "err", err, "org", orgID, "hierarchy", h.String())
		return 0
	}
	n, err := s.repo.AssignOrphans(ctx, orgID, h)
	if err != nil {
		s.logger.Warnw("orphan repair failed", "err", err, "org", orgID, "hierarchy", h.String())
		return 0
	}
	if n > 0 {
		s.logger.Infow("orphan players assigned", "org", orgID, "hierarchy", h.String(), "rows", n)
	}
	return n
}

type Input struct {
	FullName     string     `json:"full_name"`
	Position     string     `json:"position"`
	JerseyNumber *int       `json:"jersey_number"`
	BirthDate    *time.Time `json:"birth_date"`
}

func (in Input) validate() error {
	if strings.TrimSpace(in.FullName) == "" {
		return fmt.Errorf("%w: full_name is required", ErrInvalidInput)
	}
	if in.JerseyNumber != nil && (*in.JerseyNumber < 0 || *in.JerseyNumber > 99) {
		return fmt.Errorf("%w: jersey_number must be between 0 and 99", ErrInvalidInput)
	}
	return nil
}

// Create adds a player to the category named by h.
func (s *Service) Create(ctx context.Context, orgID string, h scope.Hierarchy, in Input) (*entity.Player, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	h, err := s.places.Complete(ctx, orgID, h)
	if err != nil {
		return nil, err
	}
	p := &entity.Player{
		ID:             utilities.NewSnowflakeID(),
		OrganizationID: orgID,
		FullName:       strings.TrimSpace(in.FullName),
		Position:       strings.TrimSpace(in.Position),
		JerseyNumber:   in.JerseyNumber,
		BirthDate:      in.BirthDate,
		CreatedAt:      time.Now().UTC(),
	}
	p.Place(h)
	if err := s.repo.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create player: %w", err)
	}
	return p, nil
}

// Update changes a live player of tree k.
func (s *Service) Update(ctx context.Context, orgID string, k scope.Kind, id string, in Input) (*entity.Player, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}
	p, err := s.get(ctx, orgID, k, id)
	if err != nil {
		return nil, err
	}
	p.FullName = strings.TrimSpace(in.FullName)
	p.Position = strings.TrimSpace(in.Position)
	p.JerseyNumber = in.JerseyNumber
	p.BirthDate = in.BirthDate
	if err := s.repo.Update(ctx, p); err != nil {
		return nil, err
	}
	return p, nil
}

// get loads a player and hides rows of the other tree.
func (s *Service) get(ctx context.Context, orgID string, k scope.Kind, id string) (*entity.Player, error) {
	p, err := s.repo.Get(ctx, orgID, id)
	if err != nil {
		return nil, err
	}
	if h, ok := p.Hierarchy(); ok && h.Kind() != k {
		return nil, ErrNotFound
	}
	return p, nil
}

// Delete marks the player deleted. Historical rows keep pointing at it.
func (s *Service) Delete(ctx context.Context, orgID string, k scope.Kind, id string) error {
	if _, err := s.get(ctx, orgID, k, id); err != nil {
		return err
	}
	return s.repo.SetDeleted(ctx, orgID, id, true)
}

func (s *Service) Restore(ctx context.Context, orgID string, k scope.Kind, id string) error {
	if _, err := s.get(ctx, orgID, k, id); err != nil {
		return err
	}
	return s.repo.SetDeleted(ctx, orgID, id, false)
}

// UploadPhoto stores the image and records its public URL on the player.
func (s *Service) UploadPhoto(ctx context.Context, orgID string, k scope.Kind, id string, f *storage.File) (string, error) {
	if _, err := s.get(ctx, orgID, k, id); err != nil {
		return "", err
	}
	if !strings.HasPrefix(f.ContentType, "image/") {
		return "", fmt.Errorf("%w: photo must be an image", ErrInvalidInput)
	}
	key := storage.ObjectKey(orgID, storage.FolderPlayerPhotos, id, f.Name)
	url, err := s.uploader.Upload(ctx, key, f.Body, f.Size, f.ContentType)
	if err != nil {
		return "", err
	}
	if err := s.repo.SetPhoto(ctx, orgID, id, url); err != nil {
		return "", err
	}
	return url, nil
}

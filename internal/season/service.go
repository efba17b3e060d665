package season

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/scope"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/season/entity"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/season/repo"
	"github.com/ovaphlow/pitchfork/service-club-go/pkg/utilities"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Repository is the storage the season service needs.
type Repository interface {
	ListSeasons(ctx context.Context, orgID string, k scope.Kind) ([]entity.Season, error)
	CreateSeason(ctx context.Context, k scope.Kind, s *entity.Season) error
	GetSeason(ctx context.Context, orgID string, k scope.Kind, id string) (*entity.Season, error)
	ListCategories(ctx context.Context, orgID string, k scope.Kind, seasonID string) ([]entity.Category, error)
	CreateCategory(ctx context.Context, k scope.Kind, c *entity.Category) error
	GetCategory(ctx context.Context, orgID string, k scope.Kind, id string) (*entity.Category, error)
}

type Service struct {
	repo Repository
}

func NewService(r Repository) *Service { return &Service{repo: r} }

func notFound(err error, what string) error {
	if repo.IsNotFound(err) {
		return fmt.Errorf("%w: %s", ErrNotFound, what)
	}
	return err
}

func (s *Service) Seasons(ctx context.Context, orgID string, k scope.Kind) ([]entity.Season, error) {
	return s.repo.ListSeasons(ctx, orgID, k)
}

type SeasonInput struct {
	Name      string     `json:"name"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

func (s *Service) CreateSeason(ctx context.Context, orgID string, k scope.Kind, in SeasonInput) (*entity.Season, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if in.StartDate != nil && in.EndDate != nil && in.EndDate.Before(*in.StartDate) {
		return nil, fmt.Errorf("%w: end_date is before start_date", ErrInvalidInput)
	}
	row := &entity.Season{
		ID:             utilities.NewSnowflakeID(),
		OrganizationID: orgID,
		Name:           name,
		StartDate:      in.StartDate,
		EndDate:        in.EndDate,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.repo.CreateSeason(ctx, k, row); err != nil {
		return nil, fmt.Errorf("create season: %w", err)
	}
	return row, nil
}

// Categories lists categories of one season, or of the whole tree when
// seasonID is empty. A season outside the organization is not found.
func (s *Service) Categories(ctx context.Context, orgID string, k scope.Kind, seasonID string) ([]entity.Category, error) {
	if seasonID != "" {
		if _, err := s.repo.GetSeason(ctx, orgID, k, seasonID); err != nil {
			return nil, notFound(err, "season")
		}
	}
	return s.repo.ListCategories(ctx, orgID, k, seasonID)
}

func (s *Service) CreateCategory(ctx context.Context, orgID string, k scope.Kind, seasonID, name string) (*entity.Category, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if _, err := s.repo.GetSeason(ctx, orgID, k, seasonID); err != nil {
		return nil, notFound(err, "season")
	}
	row := &entity.Category{
		ID:             utilities.NewSnowflakeID(),
		OrganizationID: orgID,
		SeasonID:       seasonID,
		Name:           name,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.repo.CreateCategory(ctx, k, row); err != nil {
		return nil, fmt.Errorf("create category: %w", err)
	}
	return row, nil
}

// Complete checks that h points at a category of the organization and fills
// in its season. Rows are always created against a concrete category.
func (s *Service) Complete(ctx context.Context, orgID string, h scope.Hierarchy) (scope.Hierarchy, error) {
	if h.IsZero() || h.CategoryID() == "" {
		return h, fmt.Errorf("%w: category_id is required", ErrInvalidInput)
	}
	c, err := s.repo.GetCategory(ctx, orgID, h.Kind(), h.CategoryID())
	if err != nil {
		return h, notFound(err, "category")
	}
	if h.SeasonID() != "" && h.SeasonID() != c.SeasonID {
		return h, fmt.Errorf("%w: category %s is not in season %s", ErrInvalidInput, c.ID, h.SeasonID())
	}
	return scope.New(h.Kind(), c.SeasonID, c.ID)
}

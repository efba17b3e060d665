package coach

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/coach/entity"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/coach/repo"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/scope"
	"github.com/ovaphlow/pitchfork/service-club-go/pkg/utilities"
)

var (
	ErrNotFound     = repo.ErrNotFound
	ErrInvalidInput = errors.New("invalid input")
)

type Repository interface {
	List(ctx context.Context, q scope.Query) ([]entity.Coach, error)
	Create(ctx context.Context, c *entity.Coach) error
	Delete(ctx context.Context, orgID string, k scope.Kind, id string) error
}

type Placement interface {
	Complete(ctx context.Context, orgID string, h scope.Hierarchy) (scope.Hierarchy, error)
}

type Service struct {
	repo   Repository
	places Placement
}

func NewService(r Repository, places Placement) *Service {
	return &Service{repo: r, places: places}
}

func (s *Service) List(ctx context.Context, q scope.Query) ([]entity.Coach, error) {
	return s.repo.List(ctx, q)
}

type Input struct {
	FullName string `json:"full_name"`
	Role     string `json:"role"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func (s *Service) Create(ctx context.Context, orgID string, h scope.Hierarchy, in Input) (*entity.Coach, error) {
	if strings.TrimSpace(in.FullName) == "" {
		return nil, fmt.Errorf("%w: full_name is required", ErrInvalidInput)
	}
	if in.Email != "" {
		if _, err := mail.ParseAddress(in.Email); err != nil {
			return nil, fmt.Errorf("%w: email", ErrInvalidInput)
		}
	}
	h, err := s.places.Complete(ctx, orgID, h)
	if err != nil {
		return nil, err
	}
	c := &entity.Coach{
		ID:             utilities.NewSnowflakeID(),
		OrganizationID: orgID,
		FullName:       strings.TrimSpace(in.FullName),
		Role:           strings.TrimSpace(in.Role),
		Email:          optional(in.Email),
		Phone:          optional(in.Phone),
		CreatedAt:      time.Now().UTC(),
	}
	c.Place(h)
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, fmt.Errorf("create coach: %w", err)
	}
	return c, nil
}

// Delete removes the coach for good.
func (s *Service) Delete(ctx context.Context, orgID string, k scope.Kind, id string) error {
	return s.repo.Delete(ctx, orgID, k, id)
}

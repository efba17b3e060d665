package entity

import (
	"time"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/scope"
)

// Coach is a member of a category's technical staff.
type Coach struct {
	ID               string    `json:"id" db:"id"`
	OrganizationID   string    `json:"organization_id" db:"organization_id"`
	FullName         string    `json:"full_name" db:"full_name"`
	Role             string    `json:"role" db:"role"`
	Email            *string   `json:"email,omitempty" db:"email"`
	Phone            *string   `json:"phone,omitempty" db:"phone"`
	SeasonID         *string   `json:"season_id,omitempty" db:"season_id"`
	CategoryID       *string   `json:"category_id,omitempty" db:"category_id"`
	SeniorSeasonID   *string   `json:"senior_season_id,omitempty" db:"senior_season_id"`
	SeniorCategoryID *string   `json:"senior_category_id,omitempty" db:"senior_category_id"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

func (c *Coach) Hierarchy() (scope.Hierarchy, bool) {
	return scope.FromRow(c.SeasonID, c.CategoryID, c.SeniorSeasonID, c.SeniorCategoryID)
}

func (c *Coach) Place(h scope.Hierarchy) {
	c.SeasonID, c.CategoryID, c.SeniorSeasonID, c.SeniorCategoryID = h.IDs()
}

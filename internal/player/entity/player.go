package entity

import (
	"time"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/scope"
)

// Player is a roster entry in either tree. Deleting a player only sets
// IsDeleted so match statistics keep their reference.
type Player struct {
	ID               string     `json:"id" db:"id"`
	OrganizationID   string     `json:"organization_id" db:"organization_id"`
	FullName         string     `json:"full_name" db:"full_name"`
	Position         string     `json:"position" db:"position"`
	JerseyNumber     *int       `json:"jersey_number,omitempty" db:"jersey_number"`
	BirthDate        *time.Time `json:"birth_date,omitempty" db:"birth_date"`
	PhotoURL         *string    `json:"photo_url,omitempty" db:"photo_url"`
	SeasonID         *string    `json:"season_id,omitempty" db:"season_id"`
	CategoryID       *string    `json:"category_id,omitempty" db:"category_id"`
	SeniorSeasonID   *string    `json:"senior_season_id,omitempty" db:"senior_season_id"`
	SeniorCategoryID *string    `json:"senior_category_id,omitempty" db:"senior_category_id"`
	IsDeleted        bool       `json:"is_deleted" db:"is_deleted"`
	CreatedAt        time.Time  `json:"created_at" db:"created_at"`
}

// Hierarchy classifies the row; senior ids win over youth ids.
func (p *Player) Hierarchy() (scope.Hierarchy, bool) {
	return scope.FromRow(p.SeasonID, p.CategoryID, p.SeniorSeasonID, p.SeniorCategoryID)
}

// Place stores h in the four hierarchy columns.
func (p *Player) Place(h scope.Hierarchy) {
	p.SeasonID, p.CategoryID, p.SeniorSeasonID, p.SeniorCategoryID = h.IDs()
}

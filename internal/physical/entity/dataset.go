package entity

import (
	"time"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/scope"
)

// Dataset is one physical test result of one player.
type Dataset struct {
	ID               string    `json:"id" db:"id"`
	OrganizationID   string    `json:"organization_id" db:"organization_id"`
	PlayerID         string    `json:"player_id" db:"player_id"`
	RecordDate       time.Time `json:"record_date" db:"record_date"`
	TestName         string    `json:"test_name" db:"test_name"`
	Value            float64   `json:"value" db:"value"`
	Unit             string    `json:"unit" db:"unit"`
	SeasonID         *string   `json:"season_id,omitempty" db:"season_id"`
	CategoryID       *string   `json:"category_id,omitempty" db:"category_id"`
	SeniorSeasonID   *string   `json:"senior_season_id,omitempty" db:"senior_season_id"`
	SeniorCategoryID *string   `json:"senior_category_id,omitempty" db:"senior_category_id"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

func (d *Dataset) Hierarchy() (scope.Hierarchy, bool) {
	return scope.FromRow(d.SeasonID, d.CategoryID, d.SeniorSeasonID, d.SeniorCategoryID)
}

func (d *Dataset) Place(h scope.Hierarchy) {
	d.SeasonID, d.CategoryID, d.SeniorSeasonID, d.SeniorCategoryID = h.IDs()
}

package entity

import "time"

// Season is one row of seasons or senior_seasons.
type Season struct {
	ID             string     `json:"id" db:"id"`
	OrganizationID string     `json:"organization_id" db:"organization_id"`
	Name           string     `json:"name" db:"name"`
	StartDate      *time.Time `json:"start_date,omitempty" db:"start_date"`
	EndDate        *time.Time `json:"end_date,omitempty" db:"end_date"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
}

// Category is one row of categories or senior_categories. SeasonID points
// into the season table of the same tree.
type Category struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organization_id" db:"organization_id"`
	SeasonID       string    `json:"season_id" db:"season_id"`
	Name           string    `json:"name" db:"name"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

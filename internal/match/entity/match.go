package entity

import (
	"time"

	"github.com/ovaphlow/pitchfork/service-club-go/internal/scope"
)

type Match struct {
	ID               string    `json:"id" db:"id"`
	OrganizationID   string    `json:"organization_id" db:"organization_id"`
	Opponent         string    `json:"opponent" db:"opponent"`
	Competition      string    `json:"competition" db:"competition"`
	MatchDate        time.Time `json:"match_date" db:"match_date"`
	IsHome           bool      `json:"is_home" db:"is_home"`
	GoalsFor         int       `json:"goals_for" db:"goals_for"`
	GoalsAgainst     int       `json:"goals_against" db:"goals_against"`
	VideoURL         *string   `json:"video_url,omitempty" db:"video_url"`
	SeasonID         *string   `json:"season_id,omitempty" db:"season_id"`
	CategoryID       *string   `json:"category_id,omitempty" db:"category_id"`
	SeniorSeasonID   *string   `json:"senior_season_id,omitempty" db:"senior_season_id"`
	SeniorCategoryID *string   `json:"senior_category_id,omitempty" db:"senior_category_id"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

func (m *Match) Hierarchy() (scope.Hierarchy, bool) {
	return scope.FromRow(m.SeasonID, m.CategoryID, m.SeniorSeasonID, m.SeniorCategoryID)
}

func (m *Match) Place(h scope.Hierarchy) {
	m.SeasonID, m.CategoryID, m.SeniorSeasonID, m.SeniorCategoryID = h.IDs()
}

// Outcome is "W", "D" or "L" from the club's side.
func (m *Match) Outcome() string {
	switch {
	case m.GoalsFor > m.GoalsAgainst:
		return "W"
	case m.GoalsFor < m.GoalsAgainst:
		return "L"
	}
	return "D"
}

// Stat is one player's line in one match.
type Stat struct {
	ID             string   `json:"id" db:"id"`
	OrganizationID string   `json:"organization_id" db:"organization_id"`
	MatchID        string   `json:"match_id" db:"match_id"`
	PlayerID       string   `json:"player_id" db:"player_id"`
	Minutes        int      `json:"minutes" db:"minutes"`
	Goals          int      `json:"goals" db:"goals"`
	Assists        int      `json:"assists" db:"assists"`
	YellowCards    int      `json:"yellow_cards" db:"yellow_cards"`
	RedCards       int      `json:"red_cards" db:"red_cards"`
	Rating         *float64 `json:"rating,omitempty" db:"rating"`
}

// StatLine is a Stat joined to its player. Deleted players still resolve.
type StatLine struct {
	Stat
	PlayerName    string `json:"player_name" db:"player_name"`
	PlayerDeleted bool   `json:"player_deleted" db:"player_deleted"`
}

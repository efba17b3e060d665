package match

import (
	"github.com/ovaphlow/pitchfork/service-club-go/internal/export"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/match/entity"
	"github.com/ovaphlow/pitchfork/service-club-go/internal/stats"
)

// PlayerSummary aggregates one player's stat lines.
type PlayerSummary struct {
	PlayerID    string        `json:"player_id"`
	PlayerName  string        `json:"player_name"`
	Deleted     bool          `json:"deleted"`
	Appearances int           `json:"appearances"`
	Minutes     stats.Summary `json:"minutes"`
	Goals       stats.Summary `json:"goals"`
	Assists     stats.Summary `json:"assists"`
	YellowCards int           `json:"yellow_cards"`
	RedCards    int           `json:"red_cards"`
	Rating      stats.Summary `json:"rating"`
}

// Summarize groups lines per player. Ratings average only over the matches
// where one was given.
func Summarize(lines []entity.StatLine) []PlayerSummary {
	groups := stats.GroupBy(lines, func(l entity.StatLine) string { return l.PlayerID })
	out := make([]PlayerSummary, 0, len(groups))
	for _, id := range stats.SortedKeys(groups) {
		ls := groups[id]
		ps := PlayerSummary{
			PlayerID:    id,
			PlayerName:  ls[0].PlayerName,
			Deleted:     ls[0].PlayerDeleted,
			Appearances: len(ls),
			Minutes:     stats.Summarize(ls, func(l entity.StatLine) float64 { return float64(l.Minutes) }),
			Goals:       stats.Summarize(ls, func(l entity.StatLine) float64 { return float64(l.Goals) }),
			Assists:     stats.Summarize(ls, func(l entity.StatLine) float64 { return float64(l.Assists) }),
			Rating: stats.SummarizePresent(ls, func(l entity.StatLine) (float64, bool) {
				if l.Rating == nil {
					return 0, false
				}
				return *l.Rating, true
			}),
		}
		for _, l := range ls {
			ps.YellowCards += l.YellowCards
			ps.RedCards += l.RedCards
		}
		out = append(out, ps)
	}
	sortSummaries(out)
	return out
}

// SummarySheet lays the summaries out for export.
func SummarySheet(title string, rows []PlayerSummary) export.Sheet {
	s := export.Sheet{
		Title: title,
		Headers: []string{"Player", "Deleted", "Appearances", "Minutes", "Avg minutes", "Goals", "Goals per match",
			"Assists", "Yellow cards", "Red cards", "Avg rating"},
	}
	for _, r := range rows {
		s.AddRow(r.PlayerName, r.Deleted, r.Appearances, r.Minutes.Total, r.Minutes.Average, r.Goals.Total,
			r.Goals.Average, r.Assists.Total, r.YellowCards, r.RedCards, r.Rating.Average)
	}
	return s
}

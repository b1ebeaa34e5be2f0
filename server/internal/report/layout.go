// Package report renders analysis results into the files and chart options
// handed to store managers.
package report

import (
	"math"

	"shelfsight/server/internal/models"
	"shelfsight/server/internal/spatial"
)

// LayoutRow is one line of the layout recommendation, busiest shelf first.
type LayoutRow struct {
	ShelfID    string  `json:"shelf_id"`
	Label      string  `json:"label,omitempty"`
	Interaksi  int     `json:"interaksi"`
	Percentage float64 `json:"percentage"`
	Origin     string  `json:"origin"`
}

// LayoutRecommendations ranks the tally and decorates it with the labels of
// the store layout. A nil layout leaves labels empty.
func LayoutRecommendations(tally *spatial.InteractionTally, layout *models.StoreLayout) []LayoutRow {
	ranked := tally.Ranked()
	rows := make([]LayoutRow, 0, len(ranked))
	for _, r := range ranked {
		row := LayoutRow{
			ShelfID:    r.ShelfID,
			Interaksi:  r.Count,
			Percentage: math.Round(r.Percentage*10) / 10,
			Origin:     string(r.Origin),
		}
		if layout.Known(r.ShelfID) {
			row.Label = layout.Label(r.ShelfID)
		}
		rows = append(rows, row)
	}
	return rows
}

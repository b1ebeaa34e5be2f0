package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"

	"shelfsight/server/internal/spatial"
)

const (
	InteractionsFile = "rak_interaksi.csv"
	LayoutFile       = "rekomendasi_layout.csv"
	SummaryFile      = "analysis_summary.txt"
)

// WriteInteractionsCSV writes shelf_id,interaksi rows in the order shelves
// were first seen.
func WriteInteractionsCSV(w io.Writer, tally *spatial.InteractionTally) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"shelf_id", "interaksi"}); err != nil {
		return fmt.Errorf("write interactions header: %w", err)
	}
	for _, id := range tally.IDs() {
		if err := cw.Write([]string{id, strconv.Itoa(tally.Count(id))}); err != nil {
			return fmt.Errorf("write interactions row %s: %w", id, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteLayoutCSV writes the ranked layout recommendation. The label column is
// only present when at least one row carries a label.
func WriteLayoutCSV(w io.Writer, rows []LayoutRow) error {
	withLabels := false
	for _, r := range rows {
		if r.Label != "" {
			withLabels = true
			break
		}
	}

	cw := csv.NewWriter(w)
	header := []string{"shelf_id", "interaksi"}
	if withLabels {
		header = append(header, "label")
	}
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("write layout header: %w", err)
	}
	for _, r := range rows {
		record := []string{r.ShelfID, strconv.Itoa(r.Interaksi)}
		if withLabels {
			record = append(record, r.Label)
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("write layout row %s: %w", r.ShelfID, err)
		}
	}
	cw.Flush()
	return cw.Error()
}

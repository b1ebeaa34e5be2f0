package report

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"shelfsight/server/internal/models"
	"shelfsight/server/internal/spatial"
)

// Summary is everything the text summary and the CSV sinks are built from.
type Summary struct {
	GeneratedAt time.Time
	FrameWidth  int
	FrameHeight int
	Tally       *spatial.InteractionTally
	Layout      *models.StoreLayout
}

// Files lists the paths written by WriteFiles.
type Files struct {
	Interactions string `json:"interactions"`
	Layout       string `json:"layout"`
	Summary      string `json:"summary"`
}

// WriteSummary renders the plain-text shelf summary.
func WriteSummary(w io.Writer, s Summary) error {
	bw := bufio.NewWriter(w)
	tally := s.Tally

	fmt.Fprintf(bw, "=== Shelf Interaction Analysis Summary ===\n\n")
	fmt.Fprintf(bw, "Analysis Time: %s\n", s.GeneratedAt.Format("2006-01-02T15:04:05.000000"))
	fmt.Fprintf(bw, "Total Shelves Detected: %d\n", tally.Len())
	fmt.Fprintf(bw, "Total Interactions: %d\n", tally.Total())
	fmt.Fprintf(bw, "Video Dimensions: %dx%d\n\n", s.FrameWidth, s.FrameHeight)

	if top, ok := tally.Top(); ok {
		fmt.Fprintf(bw, "Most Active Shelf: %s (%d interactions)\n\n", shelfName(top.ShelfID, s.Layout), top.Count)
	} else {
		fmt.Fprintf(bw, "Most Active Shelf: none (0 interactions)\n\n")
	}

	fmt.Fprintf(bw, "Shelf Distribution:\n")
	for _, r := range tally.Ranked() {
		fmt.Fprintf(bw, "  %s: %d interactions (%.1f%%)\n", shelfName(r.ShelfID, s.Layout), r.Count, r.Percentage)
	}
	return bw.Flush()
}

func shelfName(id string, layout *models.StoreLayout) string {
	if layout.Known(id) && layout.Label(id) != id {
		return fmt.Sprintf("%s [%s]", id, layout.Label(id))
	}
	return id
}

// WriteFiles writes the interaction CSV, the layout recommendation CSV and the
// text summary into dir, creating it if needed.
func WriteFiles(dir string, s Summary) (Files, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return Files{}, fmt.Errorf("create output directory: %w", err)
	}
	files := Files{
		Interactions: filepath.Join(dir, InteractionsFile),
		Layout:       filepath.Join(dir, LayoutFile),
		Summary:      filepath.Join(dir, SummaryFile),
	}

	err := writeFile(files.Interactions, func(w io.Writer) error {
		return WriteInteractionsCSV(w, s.Tally)
	})
	if err != nil {
		return Files{}, err
	}
	err = writeFile(files.Layout, func(w io.Writer) error {
		return WriteLayoutCSV(w, LayoutRecommendations(s.Tally, s.Layout))
	})
	if err != nil {
		return Files{}, err
	}
	err = writeFile(files.Summary, func(w io.Writer) error {
		return WriteSummary(w, s)
	})
	if err != nil {
		return Files{}, err
	}
	return files, nil
}

func writeFile(path string, render func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := render(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("close %s: %w", path, err)
	}
	return nil
}

package report

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"shelfsight/server/internal/journey"
	"shelfsight/server/internal/models"
	"shelfsight/server/internal/spatial"
)

func sampleTally() *spatial.InteractionTally {
	tally := spatial.NewTally()
	tally.RecordN(spatial.ShelfRef{ID: "shelf_2_1", Origin: spatial.OriginGrid}, 1)
	tally.RecordN(spatial.ShelfRef{ID: "A", Origin: spatial.OriginDetected}, 3)
	tally.RecordN(spatial.ShelfRef{ID: "B", Origin: spatial.OriginDetected}, 1)
	return tally
}

func sampleLayout(t *testing.T) *models.StoreLayout {
	t.Helper()
	layout, err := models.ParseLayout([]byte(`
name: Test Store
shelves:
  - id: A
    label: Snacks
`))
	if err != nil {
		t.Fatalf("ParseLayout: %v", err)
	}
	return layout
}

func TestLayoutRecommendations(t *testing.T) {
	rows := LayoutRecommendations(sampleTally(), sampleLayout(t))
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0].ShelfID != "A" || rows[0].Label != "Snacks" || rows[0].Percentage != 60 || rows[0].Origin != "detected" {
		t.Fatalf("unexpected top row %+v", rows[0])
	}
	if rows[1].ShelfID != "B" || rows[2].ShelfID != "shelf_2_1" {
		t.Fatalf("ties must break on shelf id: %+v", rows)
	}
	if rows[2].Label != "" || rows[2].Origin != "grid" {
		t.Fatalf("unknown shelves carry no label: %+v", rows[2])
	}
}

func TestWriteInteractionsCSVFirstSeenOrder(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteInteractionsCSV(&buf, sampleTally()); err != nil {
		t.Fatalf("WriteInteractionsCSV: %v", err)
	}
	want := "shelf_id,interaksi\nshelf_2_1,1\nA,3\nB,1\n"
	if buf.String() != want {
		t.Fatalf("unexpected CSV\nwant %q\ngot  %q", want, buf.String())
	}
}

func TestWriteLayoutCSV(t *testing.T) {
	var plain bytes.Buffer
	if err := WriteLayoutCSV(&plain, LayoutRecommendations(sampleTally(), nil)); err != nil {
		t.Fatalf("WriteLayoutCSV: %v", err)
	}
	if want := "shelf_id,interaksi\nA,3\nB,1\nshelf_2_1,1\n"; plain.String() != want {
		t.Fatalf("unexpected CSV\nwant %q\ngot  %q", want, plain.String())
	}

	var labelled bytes.Buffer
	if err := WriteLayoutCSV(&labelled, LayoutRecommendations(sampleTally(), sampleLayout(t))); err != nil {
		t.Fatalf("WriteLayoutCSV: %v", err)
	}
	if !strings.HasPrefix(labelled.String(), "shelf_id,interaksi,label\nA,3,Snacks\nB,1,\n") {
		t.Fatalf("unexpected labelled CSV %q", labelled.String())
	}
}

func TestWriteSummaryFormat(t *testing.T) {
	var buf bytes.Buffer
	err := WriteSummary(&buf, Summary{
		GeneratedAt: time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC),
		FrameWidth:  1920,
		FrameHeight: 1080,
		Tally:       sampleTally(),
	})
	if err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}
	want := "=== Shelf Interaction Analysis Summary ===\n\n" +
		"Analysis Time: 2025-03-01T09:30:00.000000\n" +
		"Total Shelves Detected: 3\n" +
		"Total Interactions: 5\n" +
		"Video Dimensions: 1920x1080\n\n" +
		"Most Active Shelf: A (3 interactions)\n\n" +
		"Shelf Distribution:\n" +
		"  A: 3 interactions (60.0%)\n" +
		"  B: 1 interactions (20.0%)\n" +
		"  shelf_2_1: 1 interactions (20.0%)\n"
	if buf.String() != want {
		t.Fatalf("unexpected summary\nwant %q\ngot  %q", want, buf.String())
	}
}

func TestWriteSummaryEmptyTally(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSummary(&buf, Summary{Tally: spatial.NewTally(), FrameWidth: 640, FrameHeight: 480}); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}
	if !strings.Contains(buf.String(), "Most Active Shelf: none (0 interactions)") {
		t.Fatalf("unexpected summary %q", buf.String())
	}
}

func TestWriteFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "shelf_analysis")
	files, err := WriteFiles(dir, Summary{GeneratedAt: time.Now(), FrameWidth: 100, FrameHeight: 100, Tally: sampleTally(), Layout: sampleLayout(t)})
	if err != nil {
		t.Fatalf("WriteFiles: %v", err)
	}
	for _, path := range []string{files.Interactions, files.Layout, files.Summary} {
		data, err := os.ReadFile(path)
		if err != nil {
			t.Fatalf("read %s: %v", path, err)
		}
		if len(data) == 0 {
			t.Fatalf("%s is empty", path)
		}
	}
	summary, _ := os.ReadFile(files.Summary)
	if !strings.Contains(string(summary), "Most Active Shelf: A [Snacks] (3 interactions)") {
		t.Fatalf("summary should carry the layout label: %s", summary)
	}
}

func TestBuildChartOptions(t *testing.T) {
	shelves := []journey.ShelfSummary{
		{ShelfID: "A", Conversion: 50, Hesitation: 25, Disengaged: 25, TotalInteractions: 4},
		{ShelfID: "B", Disengaged: 100, TotalInteractions: 1},
	}
	charts, err := BuildChartOptions(LayoutRecommendations(sampleTally(), nil), shelves, sampleLayout(t))
	if err != nil {
		t.Fatalf("BuildChartOptions: %v", err)
	}
	if !json.Valid(charts.Interactions) || !json.Valid(charts.Funnel) {
		t.Fatal("chart options must be valid JSON")
	}
	funnel := string(charts.Funnel)
	for _, want := range []string{`"stack":"funnel"`, "Konversi Sukses", "Kegagalan Menarik Minat", "Snacks"} {
		if !strings.Contains(funnel, want) {
			t.Fatalf("funnel chart missing %s: %s", want, funnel)
		}
	}
	if !strings.Contains(string(charts.Interactions), "shelf_2_1") {
		t.Fatalf("interaction chart missing grid shelf: %s", charts.Interactions)
	}
}

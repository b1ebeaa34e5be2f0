package services

import (
	"context"
	"encoding/json"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"shelfsight/server/internal/config"
	"shelfsight/server/internal/database"
	"shelfsight/server/internal/journey"
	"shelfsight/server/internal/models"
	"shelfsight/server/internal/repository"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

func setupDB(t *testing.T) {
	t.Helper()
	db, err := database.Open(config.DatabaseConfig{
		Driver:     "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "services.db"),
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	database.DB = db
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			sqlDB.Close()
		}
	})
}

const sampleJob = `{
	"video_name": "aisle-7.mp4",
	"frame_width": 1000,
	"frame_height": 800,
	"tracks": {
		"1": [
			{"frame": 0, "bbox": [100, 100, 200, 200]},
			{"frame": 1, "bbox": [100, 100, 200, 200]}
		],
		"2": [
			{"frame": 0, "bbox": [950, 750, 1050, 850]}
		]
	},
	"shelf_boxes": {
		"0": [["A", [0, 0, 300, 300]], ["B", [0, 0, 1000, 800]]]
	},
	"action_shelf_mapping": [
		[1, 0, "A", "Reach To Shelf"],
		[1, 1, "A", "Reach To Shelf"],
		[1, 2, "A", "Inspect Product"],
		["Walking"],
		[2, 0, "B", "Reach To Shelf"]
	]
}`

func decodeJob(t *testing.T) Job {
	t.Helper()
	var job Job
	if err := json.Unmarshal([]byte(sampleJob), &job); err != nil {
		t.Fatalf("decode job: %v", err)
	}
	return job
}

func newService() *AnalysisService {
	return NewAnalysisService(zap.NewNop(), config.Default().Analysis, nil)
}

func TestRunCombinesBothPasses(t *testing.T) {
	result, err := newService().Run(decodeJob(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if result.ID == "" {
		t.Fatal("expected a generated id")
	}

	tally := result.ShelfInteractions
	// frame 0 of person 1 hits A first, frame 1 has no boxes and falls back
	// to grid cell (0, 0) with 200x200 cells, person 2 hits B.
	if tally.Count("A") != 1 || tally.Count("shelf_0_0") != 1 || tally.Count("B") != 1 {
		t.Fatalf("unexpected tally %v", tally.Counts())
	}
	if result.TotalInteractions != 3 || result.TotalShelves != 3 {
		t.Fatalf("unexpected totals %d/%d", result.TotalInteractions, result.TotalShelves)
	}

	if len(result.ActionShelfMapping) != 4 {
		t.Fatalf("expected 4 deduplicated entries, got %d", len(result.ActionShelfMapping))
	}
	dist := result.JourneyAnalysis.OutcomeDistribution
	if dist.Conversion != 1 || dist.Disengaged != 1 || dist.Hesitation != 0 {
		t.Fatalf("unexpected distribution %+v", dist)
	}
}

func TestRunRejectsInvalidJobs(t *testing.T) {
	job := decodeJob(t)
	job.FrameWidth = 0
	if _, err := newService().Run(job); !errors.Is(err, ErrInvalidJob) {
		t.Fatalf("expected ErrInvalidJob, got %v", err)
	}

	job = decodeJob(t)
	job.Tracks["3"] = models.Track{{Frame: -2, BBox: models.BBox{X2: 1, Y2: 1}}}
	if _, err := newService().Run(job); !errors.Is(err, ErrInvalidJob) {
		t.Fatalf("expected ErrInvalidJob for negative frame, got %v", err)
	}
}

func TestAnalyzeJourneyEmpty(t *testing.T) {
	got := newService().AnalyzeJourney(nil)
	data, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"action_shelf_mapping":[],"journey_analysis":{}}` {
		t.Fatalf("unexpected empty report %s", data)
	}
}

func TestCreateAndGetRoundTrip(t *testing.T) {
	setupDB(t)
	svc := newService()
	ctx := context.Background()

	created, err := svc.Create(ctx, decodeJob(t))
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	loaded, err := svc.Get(ctx, created.ID)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	want, _ := json.Marshal(created.ShelvesReport)
	got, _ := json.Marshal(loaded.ShelvesReport)
	if string(want) != string(got) {
		t.Fatalf("shelves report changed after storage\nwant %s\ngot  %s", want, got)
	}
	want, _ = json.Marshal(created.JourneyReport)
	got, _ = json.Marshal(loaded.JourneyReport)
	if string(want) != string(got) {
		t.Fatalf("journey report changed after storage\nwant %s\ngot  %s", want, got)
	}
	if loaded.ShelfInteractions.IDs()[0] != created.ShelfInteractions.IDs()[0] {
		t.Fatalf("first-seen order lost")
	}

	list, err := svc.List(ctx, 5)
	if err != nil || len(list) != 1 || list[0].ID != created.ID {
		t.Fatalf("unexpected listing %+v, err %v", list, err)
	}

	charts, err := svc.Charts(ctx, created.ID)
	if err != nil {
		t.Fatalf("Charts: %v", err)
	}
	if !json.Valid(charts.Funnel) || !json.Valid(charts.Interactions) {
		t.Fatal("invalid chart JSON")
	}
}

func TestGetUnknownAnalysis(t *testing.T) {
	setupDB(t)
	if _, err := newService().Get(context.Background(), "nope"); !errors.Is(err, gorm.ErrRecordNotFound) {
		t.Fatalf("expected ErrRecordNotFound, got %v", err)
	}
}

func TestRecordCarriesCounts(t *testing.T) {
	svc := newService()
	result, err := svc.Run(decodeJob(t))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	record, err := Record(result, 5)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	if record.TotalEvents != 5 || record.DedupedEvents != 4 || record.TotalDetections != 3 {
		t.Fatalf("unexpected record totals %+v", record)
	}
	if len(record.Interactions) != 3 || len(record.Funnels) != 2 {
		t.Fatalf("unexpected rows %d/%d", len(record.Interactions), len(record.Funnels))
	}
	if back := JourneyFromRecord(record); back.OutcomeDistribution != result.JourneyAnalysis.OutcomeDistribution {
		t.Fatalf("distribution lost: %+v", back)
	}
	if JourneyFromRecord(&models.Analysis{}).Empty() != true {
		t.Fatal("record without funnels must rebuild to an empty analysis")
	}
}

type countingObserver struct {
	started, finished, shelves int
}

func (c *countingObserver) TrackStarted(models.PersonID, int)     { c.started++ }
func (c *countingObserver) TrackFinished(models.PersonID)         { c.finished++ }
func (c *countingObserver) ShelfSummarized(journey.ShelfSummary) { c.shelves++ }

func TestWithObservers(t *testing.T) {
	obs := &countingObserver{}
	base := newService()
	if _, err := base.WithObservers(obs, obs).Run(decodeJob(t)); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if obs.started != 2 || obs.finished != 2 || obs.shelves != 2 {
		t.Fatalf("unexpected observer counts %+v", obs)
	}
	if base.spatialObserver != nil {
		t.Fatal("WithObservers must not modify the receiver")
	}
}

func TestSchedulerSweep(t *testing.T) {
	setupDB(t)
	ctx := context.Background()
	now := time.Date(2025, 6, 10, 12, 0, 0, 0, time.UTC)

	for id, created := range map[string]time.Time{
		"old":    now.AddDate(0, 0, -40),
		"recent": now.AddDate(0, 0, -2),
	} {
		if err := repository.SaveAnalysis(ctx, &models.Analysis{ID: id, CreatedAt: created}); err != nil {
			t.Fatalf("SaveAnalysis: %v", err)
		}
	}

	s := NewScheduler(zap.NewNop(), config.RetentionConfig{Days: 30, Schedule: "@every 1h"})
	s.now = func() time.Time { return now }

	deleted, err := s.Sweep(ctx)
	if err != nil {
		t.Fatalf("Sweep: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted analysis, got %d", deleted)
	}
	if _, err := repository.GetAnalysis(ctx, "recent"); err != nil {
		t.Fatalf("recent analysis removed: %v", err)
	}
}

func TestSchedulerStart(t *testing.T) {
	bad := NewScheduler(zap.NewNop(), config.RetentionConfig{Days: 1, Schedule: "not a schedule"})
	if err := bad.Start(); err == nil {
		t.Fatal("expected error for invalid schedule")
	}

	disabled := NewScheduler(zap.NewNop(), config.RetentionConfig{Days: 0, Schedule: "not a schedule"})
	if err := disabled.Start(); err != nil {
		t.Fatalf("disabled retention must not validate the schedule: %v", err)
	}

	good := NewScheduler(zap.NewNop(), config.RetentionConfig{Days: 1, Schedule: "@every 1h"})
	if err := good.Start(); err != nil {
		t.Fatalf("Start: %v", err)
	}
	good.Stop()
}

func TestJourneyFromRecordSortsShelvesByteWise(t *testing.T) {
	record := &models.Analysis{
		PersonShelfInteractions: 3,
		Funnels: []models.ShelfFunnel{
			{ShelfID: "b", TotalInteractions: 1},
			{ShelfID: "B", TotalInteractions: 1},
			{ShelfID: "a", TotalInteractions: 1},
		},
	}
	analysis := JourneyFromRecord(record)
	var ids []string
	for _, s := range analysis.Shelves {
		ids = append(ids, s.ShelfID)
	}
	if len(ids) != 3 || ids[0] != "B" || ids[1] != "a" || ids[2] != "b" {
		t.Fatalf("expected [B a b], got %v", ids)
	}
}

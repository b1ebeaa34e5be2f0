// Command analyze runs the shelf and journey analysis on one job file and
// writes the report files, or submits the job to a running server.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"shelfsight/server/internal/client"
	"shelfsight/server/internal/config"
	logger "shelfsight/server/internal/logging"
	"shelfsight/server/internal/models"
	"shelfsight/server/internal/report"
	"shelfsight/server/internal/services"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

const journeyFile = "journey.json"

type options struct {
	input    string
	out      string
	layout   string
	remote   string
	columns  int
	rows     int
	progress bool
}

func main() {
	var opts options
	var debug bool
	flag.StringVar(&opts.input, "input", "", "job file with tracks, shelf_boxes, frame size and action_shelf_mapping")
	flag.StringVar(&opts.out, "out", "shelf_analysis", "output directory")
	flag.StringVar(&opts.layout, "layout", "", "optional store layout YAML used to label shelves")
	flag.StringVar(&opts.remote, "remote", "", "submit the job to a shelfsight server at this URL instead of running locally")
	flag.IntVar(&opts.columns, "cols", 5, "grid fallback columns")
	flag.IntVar(&opts.rows, "rows", 4, "grid fallback rows")
	flag.BoolVar(&opts.progress, "progress", true, "show a progress bar")
	flag.BoolVar(&debug, "debug", false, "log per-track and per-shelf progress")
	flag.Parse()

	level := zapcore.InfoLevel
	if debug {
		level = zapcore.DebugLevel
	}
	log := logger.Console(level)
	defer log.Sync()

	if opts.input == "" {
		flag.Usage()
		os.Exit(2)
	}
	if err := run(context.Background(), opts, log); err != nil {
		log.Fatal("Analysis failed", zap.Error(err))
	}
}

func readJob(path string) (services.Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return services.Job{}, fmt.Errorf("read job file: %w", err)
	}
	var job services.Job
	if err := json.Unmarshal(data, &job); err != nil {
		return services.Job{}, fmt.Errorf("decode job file %s: %w", path, err)
	}
	return job, nil
}

func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode %s: %w", path, err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}

func run(ctx context.Context, opts options, log *zap.Logger) error {
	job, err := readJob(opts.input)
	if err != nil {
		return err
	}
	if opts.remote != "" {
		return submit(ctx, opts, job, log)
	}

	var layout *models.StoreLayout
	if opts.layout != "" {
		if layout, err = models.LoadLayout(opts.layout); err != nil {
			return err
		}
	}

	svc := services.NewAnalysisService(log, config.AnalysisConfig{GridColumns: opts.columns, GridRows: opts.rows}, layout)
	debugObserver := logger.NewAnalysisObserver(log)
	if opts.progress {
		progress := newProgressObserver(job.Tracks.DetectionCount())
		svc = svc.WithObservers(progress, debugObserver)
		defer progress.Finish()
	} else {
		svc = svc.WithObservers(debugObserver, debugObserver)
	}

	result, err := svc.Run(job)
	if err != nil {
		return err
	}

	files, err := report.WriteFiles(opts.out, report.Summary{
		GeneratedAt: time.Now(),
		FrameWidth:  job.FrameWidth,
		FrameHeight: job.FrameHeight,
		Tally:       result.ShelfInteractions,
		Layout:      layout,
	})
	if err != nil {
		return err
	}
	journeyPath := filepath.Join(opts.out, journeyFile)
	if err := writeJSON(journeyPath, result.JourneyReport); err != nil {
		return err
	}

	log.Info("Analysis written",
		zap.String("interactions", files.Interactions),
		zap.String("layout", files.Layout),
		zap.String("summary", files.Summary),
		zap.String("journey", journeyPath),
		zap.Int("total_interactions", result.TotalInteractions),
		zap.Int("person_shelf_interactions", result.JourneyAnalysis.TotalPersonShelfInteractions),
	)
	return nil
}

func submit(ctx context.Context, opts options, job services.Job, log *zap.Logger) error {
	c := client.New(opts.remote, 2*time.Minute)
	created, err := c.CreateAnalysis(ctx, job)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(opts.out, 0755); err != nil {
		return fmt.Errorf("create output directory: %w", err)
	}
	path := filepath.Join(opts.out, created.ID+".json")
	if err := writeJSON(path, created); err != nil {
		return err
	}
	log.Info("Analysis stored on server", zap.String("id", created.ID), zap.String("file", path))
	return nil
}

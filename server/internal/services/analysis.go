package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"shelfsight/server/internal/config"
	"shelfsight/server/internal/journey"
	"shelfsight/server/internal/models"
	"shelfsight/server/internal/report"
	"shelfsight/server/internal/repository"
	"shelfsight/server/internal/spatial"
	"shelfsight/server/internal/utils"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ErrInvalidJob marks input that failed validation.
var ErrInvalidJob = errors.New("invalid analysis job")

// Job is one video's worth of upstream pipeline output.
type Job struct {
	VideoName          string                   `json:"video_name"`
	Tracks             models.Tracks            `json:"tracks"`
	ShelfBoxes         models.ShelfBoxesByFrame `json:"shelf_boxes"`
	FrameWidth         int                      `json:"frame_width"`
	FrameHeight        int                      `json:"frame_height"`
	ActionShelfMapping []journey.Entry          `json:"action_shelf_mapping"`
}

// ShelvesReport is the spatial half of an analysis.
type ShelvesReport struct {
	ShelfInteractions     *spatial.InteractionTally `json:"shelf_interactions"`
	LayoutRecommendations []report.LayoutRow        `json:"layout_recommendations"`
	TotalInteractions     int                       `json:"total_interactions"`
	TotalShelves          int                       `json:"total_shelves"`
}

// JourneyReport is the journey half of an analysis.
type JourneyReport struct {
	ActionShelfMapping []journey.Entry  `json:"action_shelf_mapping"`
	JourneyAnalysis    journey.Analysis `json:"journey_analysis"`
}

// AnalysisReport is a complete, possibly stored, analysis.
type AnalysisReport struct {
	ID          string    `json:"id"`
	VideoName   string    `json:"video_name"`
	FrameWidth  int       `json:"frame_width"`
	FrameHeight int       `json:"frame_height"`
	CreatedAt   time.Time `json:"created_at"`
	ShelvesReport
	JourneyReport
}

// AnalysisService runs the spatial and journey passes and stores the results.
type AnalysisService struct {
	log             *zap.Logger
	grid            spatial.Grid
	layout          *models.StoreLayout
	spatialObserver spatial.Observer
	journeyObserver journey.Observer
}

func NewAnalysisService(log *zap.Logger, conf config.AnalysisConfig, layout *models.StoreLayout) *AnalysisService {
	return &AnalysisService{
		log:    log,
		grid:   spatial.Grid{Columns: conf.GridColumns, Rows: conf.GridRows},
		layout: layout,
	}
}

// WithObservers returns a copy of the service reporting progress to the given
// observers. Either may be nil.
func (s *AnalysisService) WithObservers(so spatial.Observer, jo journey.Observer) *AnalysisService {
	clone := *s
	clone.spatialObserver = so
	clone.journeyObserver = jo
	return &clone
}

// Layout returns the store layout used to label shelves, possibly nil.
func (s *AnalysisService) Layout() *models.StoreLayout {
	return s.layout
}

// ValidateShelves checks the spatial inputs of a job.
func ValidateShelves(job Job) error {
	if err := utils.ValidateFrameSize(job.FrameWidth, job.FrameHeight); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	if err := utils.ValidateTracks(job.Tracks); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	if err := utils.ValidateShelfBoxes(job.ShelfBoxes); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidJob, err)
	}
	return nil
}

// AnalyzeShelves attributes the job's detections to shelves.
func (s *AnalysisService) AnalyzeShelves(job Job) (ShelvesReport, error) {
	if err := ValidateShelves(job); err != nil {
		return ShelvesReport{}, err
	}
	assigner := spatial.Assigner{Grid: s.grid, Observer: s.spatialObserver}
	tally := assigner.Assign(job.Tracks, job.ShelfBoxes, job.FrameWidth, job.FrameHeight)

	s.log.Info("Shelf interactions assigned",
		zap.String("video", job.VideoName),
		zap.Int("detections", tally.Total()),
		zap.Int("shelves", tally.Len()),
	)
	return s.shelvesReport(tally), nil
}

// AnalyzeJourney deduplicates the action log and classifies shopper journeys.
func (s *AnalysisService) AnalyzeJourney(entries []journey.Entry) JourneyReport {
	deduped := journey.Deduplicate(entries)
	analysis := journey.Classifier{Observer: s.journeyObserver}.Classify(entries)

	s.log.Info("Shopper journeys classified",
		zap.Int("events", len(entries)),
		zap.Int("deduplicated", len(deduped)),
		zap.Int("person_shelf_pairs", analysis.TotalPersonShelfInteractions),
	)
	return JourneyReport{ActionShelfMapping: deduped, JourneyAnalysis: analysis}
}

// Run executes both passes without storing anything.
func (s *AnalysisService) Run(job Job) (AnalysisReport, error) {
	shelves, err := s.AnalyzeShelves(job)
	if err != nil {
		return AnalysisReport{}, err
	}
	return AnalysisReport{
		ID:            uuid.NewString(),
		VideoName:     job.VideoName,
		FrameWidth:    job.FrameWidth,
		FrameHeight:   job.FrameHeight,
		CreatedAt:     time.Now().UTC(),
		ShelvesReport: shelves,
		JourneyReport: s.AnalyzeJourney(job.ActionShelfMapping),
	}, nil
}

// Create runs both passes and stores the result.
func (s *AnalysisService) Create(ctx context.Context, job Job) (AnalysisReport, error) {
	result, err := s.Run(job)
	if err != nil {
		return AnalysisReport{}, err
	}
	record, err := Record(result, len(job.ActionShelfMapping))
	if err != nil {
		return AnalysisReport{}, err
	}
	if err := repository.SaveAnalysis(ctx, record); err != nil {
		return AnalysisReport{}, err
	}
	s.log.Info("Analysis stored", zap.String("id", result.ID), zap.String("video", job.VideoName))
	return result, nil
}

// Get loads a stored analysis. Unknown ids yield an error wrapping
// gorm.ErrRecordNotFound.
func (s *AnalysisService) Get(ctx context.Context, id string) (AnalysisReport, error) {
	record, err := repository.GetAnalysis(ctx, id)
	if err != nil {
		return AnalysisReport{}, err
	}
	return s.fromRecord(record)
}

// List returns the most recent stored analyses without their shelf rows.
func (s *AnalysisService) List(ctx context.Context, limit int) ([]models.Analysis, error) {
	return repository.ListAnalyses(ctx, limit)
}

// Charts renders the chart options of a stored analysis.
func (s *AnalysisService) Charts(ctx context.Context, id string) (report.ChartOptions, error) {
	result, err := s.Get(ctx, id)
	if err != nil {
		return report.ChartOptions{}, err
	}
	return report.BuildChartOptions(result.LayoutRecommendations, result.JourneyAnalysis.Shelves, s.layout)
}

func (s *AnalysisService) shelvesReport(tally *spatial.InteractionTally) ShelvesReport {
	return ShelvesReport{
		ShelfInteractions:     tally,
		LayoutRecommendations: report.LayoutRecommendations(tally, s.layout),
		TotalInteractions:     tally.Total(),
		TotalShelves:          tally.Len(),
	}
}

// Record converts a finished analysis into its persistence model.
func Record(result AnalysisReport, totalEvents int) (*models.Analysis, error) {
	log, err := json.Marshal(result.ActionShelfMapping)
	if err != nil {
		return nil, fmt.Errorf("encode journey log: %w", err)
	}
	journeyAnalysis := result.JourneyAnalysis
	record := &models.Analysis{
		ID:                      result.ID,
		VideoName:               result.VideoName,
		FrameWidth:              result.FrameWidth,
		FrameHeight:             result.FrameHeight,
		TotalDetections:         result.TotalInteractions,
		TotalEvents:             totalEvents,
		DedupedEvents:           len(result.ActionShelfMapping),
		PersonShelfInteractions: journeyAnalysis.TotalPersonShelfInteractions,
		ConversionCount:         journeyAnalysis.OutcomeDistribution.Conversion,
		HesitationCount:         journeyAnalysis.OutcomeDistribution.Hesitation,
		DisengagedCount:         journeyAnalysis.OutcomeDistribution.Disengaged,
		JourneyLog:              string(log),
		CreatedAt:               result.CreatedAt,
	}

	tally := result.ShelfInteractions
	for _, id := range tally.IDs() {
		record.Interactions = append(record.Interactions, models.ShelfInteraction{
			ShelfID:          id,
			Origin:           string(tally.Origin(id)),
			InteractionCount: tally.Count(id),
		})
	}
	for _, shelf := range journeyAnalysis.Shelves {
		record.Funnels = append(record.Funnels, models.ShelfFunnel{
			ShelfID:           shelf.ShelfID,
			Conversion:        shelf.Conversion,
			Hesitation:        shelf.Hesitation,
			Disengaged:        shelf.Disengaged,
			TotalInteractions: shelf.TotalInteractions,
		})
	}
	return record, nil
}

// TallyFromRecord rebuilds the interaction tally of a stored analysis.
func TallyFromRecord(record *models.Analysis) *spatial.InteractionTally {
	tally := spatial.NewTally()
	for _, row := range record.Interactions {
		tally.RecordN(spatial.ShelfRef{ID: row.ShelfID, Origin: spatial.Origin(row.Origin)}, row.InteractionCount)
	}
	return tally
}

// JourneyFromRecord rebuilds the journey analysis of a stored analysis.
func JourneyFromRecord(record *models.Analysis) journey.Analysis {
	if len(record.Funnels) == 0 {
		return journey.Analysis{}
	}
	analysis := journey.Analysis{
		TotalPersonShelfInteractions: record.PersonShelfInteractions,
		OutcomeDistribution: journey.Counts{
			Conversion: record.ConversionCount,
			Hesitation: record.HesitationCount,
			Disengaged: record.DisengagedCount,
		},
	}
	for _, f := range record.Funnels {
		analysis.Shelves = append(analysis.Shelves, journey.ShelfSummary{
			ShelfID:           f.ShelfID,
			Conversion:        f.Conversion,
			Hesitation:        f.Hesitation,
			Disengaged:        f.Disengaged,
			TotalInteractions: f.TotalInteractions,
		})
	}
	sort.Slice(analysis.Shelves, func(i, j int) bool {
		return analysis.Shelves[i].ShelfID < analysis.Shelves[j].ShelfID
	})
	return analysis
}

func (s *AnalysisService) fromRecord(record *models.Analysis) (AnalysisReport, error) {
	entries := make([]journey.Entry, 0)
	if record.JourneyLog != "" {
		if err := json.Unmarshal([]byte(record.JourneyLog), &entries); err != nil {
			return AnalysisReport{}, fmt.Errorf("decode journey log of %s: %w", record.ID, err)
		}
	}
	return AnalysisReport{
		ID:            record.ID,
		VideoName:     record.VideoName,
		FrameWidth:    record.FrameWidth,
		FrameHeight:   record.FrameHeight,
		CreatedAt:     record.CreatedAt,
		ShelvesReport: s.shelvesReport(TallyFromRecord(record)),
		JourneyReport: JourneyReport{ActionShelfMapping: entries, JourneyAnalysis: JourneyFromRecord(record)},
	}, nil
}

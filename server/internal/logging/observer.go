package logger

import (
	"shelfsight/server/internal/journey"
	"shelfsight/server/internal/models"

	"go.uber.org/zap"
)

// AnalysisObserver reports the progress of the spatial and journey passes at
// debug level. It satisfies spatial.Observer and journey.Observer.
type AnalysisObserver struct {
	log *zap.Logger
}

func NewAnalysisObserver(log *zap.Logger) *AnalysisObserver {
	return &AnalysisObserver{log: log.Named("analysis")}
}

func (o *AnalysisObserver) TrackStarted(personID models.PersonID, detections int) {
	o.log.Debug("Assigning track", zap.String("person_id", string(personID)), zap.Int("detections", detections))
}

func (o *AnalysisObserver) TrackFinished(personID models.PersonID) {
	o.log.Debug("Track assigned", zap.String("person_id", string(personID)))
}

func (o *AnalysisObserver) ShelfSummarized(s journey.ShelfSummary) {
	o.log.Debug("Shelf funnel",
		zap.String("shelf_id", s.ShelfID),
		zap.Float64("konversi_sukses", s.Conversion),
		zap.Float64("keraguan_pembatalan", s.Hesitation),
		zap.Float64("kegagalan_menarik_minat", s.Disengaged),
		zap.Int("total_interactions", s.TotalInteractions),
	)
}

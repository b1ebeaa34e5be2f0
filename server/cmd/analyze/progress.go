package main

import (
	"shelfsight/server/internal/models"

	"github.com/cheggaaa/pb/v3"
)

const progressTemplate = `{{ string . "prefix" }} {{counters . "%s/%s" "%s/?"}} {{bar . }} {{percent . "%.01f%%" "?"}} {{etime . "%s elapsed"}}`

// progressObserver advances a progress bar by one step per assigned detection.
type progressObserver struct {
	bar     *pb.ProgressBar
	current int
}

func newProgressObserver(total int) *progressObserver {
	bar := pb.ProgressBarTemplate(progressTemplate).New(total)
	bar.Set("prefix", "Assigning detections")
	return &progressObserver{bar: bar.Start()}
}

func (p *progressObserver) TrackStarted(_ models.PersonID, detections int) {
	p.current = detections
}

func (p *progressObserver) TrackFinished(models.PersonID) {
	p.bar.Add(p.current)
	p.current = 0
}

func (p *progressObserver) Finish() {
	p.bar.Finish()
}

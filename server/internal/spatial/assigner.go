// Package spatial attributes person detections to shelves and tallies the
// interactions per shelf.
package spatial

import (
	"sort"

	"shelfsight/server/internal/models"
)

// Observer is notified as tracks are processed. Implementations must not
// retain or mutate the tracks.
type Observer interface {
	TrackStarted(personID models.PersonID, detections int)
	TrackFinished(personID models.PersonID)
}

// Assigner resolves detections to shelves. The zero value uses DefaultGrid
// and reports to no observer.
type Assigner struct {
	Grid     Grid
	Observer Observer
}

// Assign attributes every detection of every track to a shelf and returns the
// per-shelf counts. Empty inputs yield an empty or all-grid tally.
func Assign(tracks models.Tracks, boxes models.ShelfBoxesByFrame, frameWidth, frameHeight int) *InteractionTally {
	return Assigner{}.Assign(tracks, boxes, frameWidth, frameHeight)
}

func (a Assigner) Assign(tracks models.Tracks, boxes models.ShelfBoxesByFrame, frameWidth, frameHeight int) *InteractionTally {
	tally := NewTally()

	// Tracks are visited in person order so observers and first-seen order
	// are reproducible; the counts themselves do not depend on it.
	personIDs := make([]models.PersonID, 0, len(tracks))
	for pid := range tracks {
		personIDs = append(personIDs, pid)
	}
	sort.Slice(personIDs, func(i, j int) bool { return personIDs[i] < personIDs[j] })

	for _, pid := range personIDs {
		track := tracks[pid]
		if a.Observer != nil {
			a.Observer.TrackStarted(pid, len(track))
		}
		for _, d := range track {
			tally.Record(a.Resolve(d, boxes[d.Frame], frameWidth, frameHeight))
		}
		if a.Observer != nil {
			a.Observer.TrackFinished(pid)
		}
	}

	return tally
}

// Resolve picks the shelf for one detection: the first box of its frame that
// contains the detection's midpoint, otherwise the grid cell of the midpoint.
func (a Assigner) Resolve(d models.Detection, frameBoxes []models.ShelfBox, frameWidth, frameHeight int) ShelfRef {
	cx, cy := d.BBox.Center()

	for _, box := range frameBoxes {
		if box.Rect.Contains(cx, cy) {
			return ShelfRef{ID: box.ShelfID, Origin: OriginDetected}
		}
	}

	grid := a.Grid.normalized()
	col, row := grid.Cell(cx, cy, frameWidth, frameHeight)
	return ShelfRef{ID: grid.ShelfID(col, row), Origin: OriginGrid}
}

package models

import (
	"encoding/json"
	"fmt"
)

// PersonID is the identity assigned by the upstream tracker. Trackers emit
// either integers or strings, both are kept in canonical text form.
type PersonID string

// UnmarshalJSON accepts a JSON string or number.
func (p *PersonID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*p = PersonID(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("person id must be a string or number: %w", err)
	}
	*p = PersonID(n.String())
	return nil
}

// BBox is an axis-aligned rectangle in pixel coordinates.
type BBox struct {
	X1, Y1, X2, Y2 float64
}

// Center returns the midpoint of the box.
func (b BBox) Center() (float64, float64) {
	return (b.X1 + b.X2) / 2, (b.Y1 + b.Y2) / 2
}

// Contains reports whether (x, y) lies inside the box, edges included.
func (b BBox) Contains(x, y float64) bool {
	return b.X1 <= x && x <= b.X2 && b.Y1 <= y && y <= b.Y2
}

func (b BBox) Valid() bool {
	return b.X1 < b.X2 && b.Y1 < b.Y2
}

// MarshalJSON writes the box as [x1, y1, x2, y2].
func (b BBox) MarshalJSON() ([]byte, error) {
	return json.Marshal([4]float64{b.X1, b.Y1, b.X2, b.Y2})
}

func (b *BBox) UnmarshalJSON(data []byte) error {
	var coords []float64
	if err := json.Unmarshal(data, &coords); err != nil {
		return fmt.Errorf("bbox: %w", err)
	}
	if len(coords) != 4 {
		return fmt.Errorf("bbox: expected 4 coordinates, got %d", len(coords))
	}
	b.X1, b.Y1, b.X2, b.Y2 = coords[0], coords[1], coords[2], coords[3]
	return nil
}

// Detection is a single tracked person box on one frame.
type Detection struct {
	Frame    int      `json:"frame"`
	BBox     BBox     `json:"bbox"`
	PersonID PersonID `json:"pid,omitempty"`
}

// Track holds the detections of one person ordered by frame.
type Track []Detection

// Tracks maps a person to their track. The caller owns it; analysis never mutates it.
type Tracks map[PersonID]Track

// DetectionCount returns the number of detections across all tracks.
func (t Tracks) DetectionCount() int {
	n := 0
	for _, track := range t {
		n += len(track)
	}
	return n
}

// ShelfBox is a shelf detected on a given frame.
type ShelfBox struct {
	ShelfID string `json:"shelf_id"`
	Frame   int    `json:"frame"`
	Rect    BBox   `json:"rect"`
}

// UnmarshalJSON accepts the detector's tuple form ["shelf_A", [x1, y1, x2, y2]]
// as well as the object form.
func (s *ShelfBox) UnmarshalJSON(data []byte) error {
	var tuple []json.RawMessage
	if err := json.Unmarshal(data, &tuple); err == nil {
		if len(tuple) != 2 {
			return fmt.Errorf("shelf box: expected [shelf_id, rect], got %d elements", len(tuple))
		}
		if err := json.Unmarshal(tuple[0], &s.ShelfID); err != nil {
			return fmt.Errorf("shelf box id: %w", err)
		}
		return json.Unmarshal(tuple[1], &s.Rect)
	}

	type plain ShelfBox
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return fmt.Errorf("shelf box: %w", err)
	}
	*s = ShelfBox(p)
	return nil
}

// ShelfBoxesByFrame lists the shelves detected on each frame. Order within a
// frame is significant: the first containing box wins.
type ShelfBoxesByFrame map[int][]ShelfBox

package utils

import (
	"fmt"

	"shelfsight/server/internal/models"
)

// ValidateFrameSize checks that the video dimensions are usable for the grid fallback.
func ValidateFrameSize(width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("frame dimensions must be positive, got %dx%d", width, height)
	}
	return nil
}

// ValidateTracks checks every detection for a non-negative frame and a
// well-formed box.
func ValidateTracks(tracks models.Tracks) error {
	for pid, track := range tracks {
		for i, d := range track {
			if d.Frame < 0 {
				return fmt.Errorf("track %s detection %d: negative frame %d", pid, i, d.Frame)
			}
			if !d.BBox.Valid() {
				return fmt.Errorf("track %s detection %d: malformed bbox %v", pid, i, d.BBox)
			}
		}
	}
	return nil
}

// ValidateShelfBoxes checks frame keys and shelf rectangles.
func ValidateShelfBoxes(boxes models.ShelfBoxesByFrame) error {
	for frame, frameBoxes := range boxes {
		if frame < 0 {
			return fmt.Errorf("shelf boxes: negative frame %d", frame)
		}
		for _, box := range frameBoxes {
			if box.ShelfID == "" {
				return fmt.Errorf("shelf boxes frame %d: empty shelf id", frame)
			}
			if !box.Rect.Valid() {
				return fmt.Errorf("shelf %s frame %d: malformed box %v", box.ShelfID, frame, box.Rect)
			}
		}
	}
	return nil
}

package journey

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"

	"shelfsight/server/internal/models"
)

// Shape describes which form an action-shelf mapping row arrived in.
type Shape int

const (
	// ShapeMalformed rows are kept for re-serialisation but ignored by analysis.
	ShapeMalformed Shape = iota
	// ShapeActionOnly rows carry only [action].
	ShapeActionOnly
	// ShapeFull rows are [pid, frame, shelf_id, action].
	ShapeFull
	// ShapeExtended rows carry the four fields followed by extra columns.
	ShapeExtended
)

// Entry is one row of the action-shelf mapping.
type Entry struct {
	Event models.ActionEvent
	Shape Shape

	raw json.RawMessage
	// null person or shelf fields, which dedup to the same state as [action]
	nullPerson, nullShelf bool
}

// NewEntry builds a full [pid, frame, shelf_id, action] row.
func NewEntry(pid models.PersonID, frame int, shelfID, action string) Entry {
	return Entry{
		Event: models.ActionEvent{PersonID: pid, Frame: frame, ShelfID: shelfID, Action: action},
		Shape: ShapeFull,
	}
}

// ActionOnly builds a partial row carrying only an action.
func ActionOnly(action string) Entry {
	return Entry{Event: models.ActionEvent{Action: action}, Shape: ShapeActionOnly}
}

// hasPair reports whether the row identifies a person and a shelf.
func (e Entry) hasPair() bool {
	return e.Shape == ShapeFull || e.Shape == ShapeExtended
}

// UnmarshalJSON never fails on a well-formed JSON value: rows that do not
// match a known shape are marked malformed and skipped by analysis. The shape
// depends on the field count only; a frame that is not a number reads as 0.
func (e *Entry) UnmarshalJSON(data []byte) error {
	*e = Entry{raw: append(json.RawMessage(nil), data...)}

	var fields []json.RawMessage
	if err := json.Unmarshal(data, &fields); err != nil {
		if !json.Valid(data) {
			return fmt.Errorf("action entry: %w", err)
		}
		return nil
	}

	switch {
	case len(fields) == 1:
		e.Event.Action = scalarText(fields[0])
		e.Shape = ShapeActionOnly
	case len(fields) >= 4:
		e.Event = models.ActionEvent{
			PersonID: models.PersonID(scalarText(fields[0])),
			Frame:    frameNumber(fields[1]),
			ShelfID:  scalarText(fields[2]),
			Action:   scalarText(fields[3]),
		}
		e.nullPerson = isNull(fields[0])
		e.nullShelf = isNull(fields[2])
		e.Shape = ShapeFull
		if len(fields) > 4 {
			e.Shape = ShapeExtended
		}
	}
	return nil
}

// MarshalJSON writes the row back exactly as received, or in array form for
// rows built in code.
func (e Entry) MarshalJSON() ([]byte, error) {
	if e.raw != nil {
		return e.raw, nil
	}
	switch e.Shape {
	case ShapeActionOnly:
		return json.Marshal([]any{e.Event.Action})
	case ShapeFull, ShapeExtended:
		return json.Marshal([]any{e.Event.PersonID, e.Event.Frame, e.Event.ShelfID, e.Event.Action})
	default:
		return []byte("null"), nil
	}
}

// scalarText returns a string value unquoted and any other value as its
// compact JSON text, so 7 and "7" compare equal.
func scalarText(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	if isNull(raw) {
		return ""
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}

// frameNumber reads a numeric or numeric-string frame, truncated to an int.
// Anything else is 0.
func frameNumber(raw json.RawMessage) int {
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		var s string
		if json.Unmarshal(raw, &s) != nil {
			return 0
		}
		if f, err = strconv.ParseFloat(s, 64); err != nil {
			return 0
		}
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return int(f)
}

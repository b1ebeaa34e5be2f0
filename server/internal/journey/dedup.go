package journey

import "shelfsight/server/internal/models"

// stateKey tracks null person and shelf separately from "", so
// [null, f, null, action] and [action] share a state.
type stateKey struct {
	nullPerson bool
	nullShelf  bool
	personID   models.PersonID
	shelfID    string
	action     string
}

func (e Entry) stateKey() (stateKey, bool) {
	switch e.Shape {
	case ShapeFull:
		return stateKey{
			nullPerson: e.nullPerson,
			nullShelf:  e.nullShelf,
			personID:   e.Event.PersonID,
			shelfID:    e.Event.ShelfID,
			action:     e.Event.Action,
		}, true
	case ShapeActionOnly:
		return stateKey{nullPerson: true, nullShelf: true, action: e.Event.Action}, true
	default:
		return stateKey{}, false
	}
}

// Deduplicate collapses consecutive repeats of the same (person, shelf,
// action) state so only transitions remain. Order is preserved. Rows that are
// neither full nor action-only are dropped without affecting the comparison.
func Deduplicate(entries []Entry) []Entry {
	out := make([]Entry, 0, len(entries))

	var last stateKey
	haveLast := false
	for _, e := range entries {
		key, ok := e.stateKey()
		if !ok {
			continue
		}
		if haveLast && key == last {
			continue
		}
		out = append(out, e)
		last = key
		haveLast = true
	}
	return out
}

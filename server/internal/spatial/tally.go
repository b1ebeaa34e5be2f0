package spatial

import (
	"encoding/json"
	"sort"
)

// Origin tells whether a shelf id came from a detected shelf box or from the
// grid fallback.
type Origin string

const (
	OriginDetected Origin = "detected"
	OriginGrid     Origin = "grid"
)

// ShelfRef is the shelf a single detection was attributed to.
type ShelfRef struct {
	ID     string
	Origin Origin
}

// RankedShelf is one entry of the layout recommendation.
type RankedShelf struct {
	ShelfID    string  `json:"shelf_id"`
	Count      int     `json:"interaksi"`
	Origin     Origin  `json:"origin"`
	Percentage float64 `json:"percentage"`
}

// InteractionTally counts detections per shelf id. Every recorded detection
// increments exactly one id, so Total always equals the number of records.
type InteractionTally struct {
	counts  map[string]int
	origins map[string]Origin
	order   []string
	total   int
}

func NewTally() *InteractionTally {
	return &InteractionTally{
		counts:  make(map[string]int),
		origins: make(map[string]Origin),
	}
}

// Record attributes one detection to ref. Counts merge on the id string; the
// first origin seen for an id is kept.
func (t *InteractionTally) Record(ref ShelfRef) {
	t.RecordN(ref, 1)
}

// RecordN attributes n detections to ref at once, used when restoring a tally.
func (t *InteractionTally) RecordN(ref ShelfRef, n int) {
	if n <= 0 {
		return
	}
	if _, seen := t.counts[ref.ID]; !seen {
		t.order = append(t.order, ref.ID)
		t.origins[ref.ID] = ref.Origin
	}
	t.counts[ref.ID] += n
	t.total += n
}

func (t *InteractionTally) Count(shelfID string) int {
	return t.counts[shelfID]
}

func (t *InteractionTally) Origin(shelfID string) Origin {
	return t.origins[shelfID]
}

// Total is the number of detections recorded.
func (t *InteractionTally) Total() int {
	return t.total
}

// Len is the number of distinct shelf ids.
func (t *InteractionTally) Len() int {
	return len(t.order)
}

// IDs returns the shelf ids in the order they were first seen.
func (t *InteractionTally) IDs() []string {
	ids := make([]string, len(t.order))
	copy(ids, t.order)
	return ids
}

// Counts returns a copy of the id to count mapping.
func (t *InteractionTally) Counts() map[string]int {
	out := make(map[string]int, len(t.counts))
	for id, n := range t.counts {
		out[id] = n
	}
	return out
}

// Share is the percentage of all detections attributed to the shelf. This is
// a share of detections, not a funnel percentage.
func (t *InteractionTally) Share(shelfID string) float64 {
	if t.total == 0 {
		return 0
	}
	return float64(t.counts[shelfID]) / float64(t.total) * 100
}

// Ranked orders shelves by count, busiest first; ties break on shelf id.
func (t *InteractionTally) Ranked() []RankedShelf {
	ranked := make([]RankedShelf, 0, len(t.order))
	for _, id := range t.order {
		ranked = append(ranked, RankedShelf{
			ShelfID:    id,
			Count:      t.counts[id],
			Origin:     t.origins[id],
			Percentage: t.Share(id),
		})
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].Count != ranked[j].Count {
			return ranked[i].Count > ranked[j].Count
		}
		return ranked[i].ShelfID < ranked[j].ShelfID
	})
	return ranked
}

// Top returns the busiest shelf.
func (t *InteractionTally) Top() (RankedShelf, bool) {
	ranked := t.Ranked()
	if len(ranked) == 0 {
		return RankedShelf{}, false
	}
	return ranked[0], true
}

// MarshalJSON writes the tally as a shelf id to count object.
func (t *InteractionTally) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.counts)
}

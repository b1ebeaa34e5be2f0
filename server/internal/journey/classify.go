// Package journey turns the action-shelf event log into shopper journeys:
// a deduplicated log of state transitions and a conversion funnel per shelf.
package journey

import (
	"encoding/json"
	"math"
	"sort"

	"shelfsight/server/internal/models"
)

// Observer is notified once for every shelf written to the funnel summary.
type Observer interface {
	ShelfSummarized(summary ShelfSummary)
}

// Counts holds the number of person-shelf pairs per funnel outcome.
type Counts struct {
	Conversion int `json:"konversi_sukses"`
	Hesitation int `json:"keraguan_pembatalan"`
	Disengaged int `json:"kegagalan_menarik_minat"`
}

func (c *Counts) add(o models.Outcome) {
	switch o {
	case models.OutcomeConversion:
		c.Conversion++
	case models.OutcomeHesitation:
		c.Hesitation++
	case models.OutcomeDisengaged:
		c.Disengaged++
	}
}

func (c Counts) Total() int {
	return c.Conversion + c.Hesitation + c.Disengaged
}

// ShelfSummary is the funnel of one shelf in percent of its relevant pairs.
type ShelfSummary struct {
	ShelfID           string  `json:"shelf_id"`
	Conversion        float64 `json:"konversi_sukses"`
	Hesitation        float64 `json:"keraguan_pembatalan"`
	Disengaged        float64 `json:"kegagalan_menarik_minat"`
	TotalInteractions int     `json:"total_interactions"`
}

// Analysis is the journey result for one event log.
type Analysis struct {
	Shelves                      []ShelfSummary `json:"journey_analysis"`
	TotalPersonShelfInteractions int            `json:"total_person_shelf_interactions"`
	OutcomeDistribution          Counts         `json:"outcome_distribution"`
}

// Empty reports whether no shelf had a relevant interaction.
func (a Analysis) Empty() bool {
	return len(a.Shelves) == 0
}

// MarshalJSON writes an empty analysis as {}.
func (a Analysis) MarshalJSON() ([]byte, error) {
	if a.Empty() {
		return []byte("{}"), nil
	}
	type plain Analysis
	return json.Marshal(plain(a))
}

// Decide applies the funnel decision table to the flags of one person-shelf pair.
func Decide(didReach, didInspect, didReturn bool) models.Outcome {
	switch {
	case !didReach:
		return models.OutcomeNoReach
	case didInspect && didReturn:
		return models.OutcomeHesitation
	case didInspect:
		return models.OutcomeConversion
	default:
		return models.OutcomeDisengaged
	}
}

type pairKey struct {
	personID models.PersonID
	shelfID  string
}

type pairFlags struct {
	reach, inspect, ret bool
}

// Classifier builds funnel summaries. The zero value reports to no observer.
type Classifier struct {
	Observer Observer
}

// Classify classifies every person-shelf pair of the log and aggregates the
// outcomes per shelf.
func Classify(entries []Entry) Analysis {
	return Classifier{}.Classify(entries)
}

func (c Classifier) Classify(entries []Entry) Analysis {
	pairs := make(map[pairKey]*pairFlags)
	for _, e := range entries {
		if !e.hasPair() {
			continue
		}
		key := pairKey{personID: e.Event.PersonID, shelfID: e.Event.ShelfID}
		flags, ok := pairs[key]
		if !ok {
			flags = &pairFlags{}
			pairs[key] = flags
		}
		switch e.Event.Action {
		case models.ActionReachToShelf:
			flags.reach = true
		case models.ActionInspectProduct, models.ActionInspectShelf:
			flags.inspect = true
		case models.ActionHandInShelf:
			flags.ret = true
		}
	}

	perShelf := make(map[string]*Counts)
	var result Analysis
	for key, flags := range pairs {
		outcome := Decide(flags.reach, flags.inspect, flags.ret)
		if outcome == models.OutcomeNoReach {
			continue
		}
		counts, ok := perShelf[key.shelfID]
		if !ok {
			counts = &Counts{}
			perShelf[key.shelfID] = counts
		}
		counts.add(outcome)
		result.OutcomeDistribution.add(outcome)
		result.TotalPersonShelfInteractions++
	}

	if len(perShelf) == 0 {
		return Analysis{}
	}

	shelfIDs := make([]string, 0, len(perShelf))
	for id := range perShelf {
		shelfIDs = append(shelfIDs, id)
	}
	sort.Strings(shelfIDs)

	result.Shelves = make([]ShelfSummary, 0, len(shelfIDs))
	for _, id := range shelfIDs {
		summary := summarize(id, *perShelf[id])
		result.Shelves = append(result.Shelves, summary)
		if c.Observer != nil {
			c.Observer.ShelfSummarized(summary)
		}
	}
	return result
}

// summarize converts counts to percentages. Shelves only reach this point with
// at least one relevant pair, so the total is never zero.
func summarize(shelfID string, counts Counts) ShelfSummary {
	total := counts.Total()
	pct := func(n int) float64 {
		return roundTenth(float64(n) / float64(total) * 100)
	}
	return ShelfSummary{
		ShelfID:           shelfID,
		Conversion:        pct(counts.Conversion),
		Hesitation:        pct(counts.Hesitation),
		Disengaged:        pct(counts.Disengaged),
		TotalInteractions: total,
	}
}

// roundTenth rounds halves to even, so 6.25 becomes 6.2.
func roundTenth(v float64) float64 {
	return math.RoundToEven(v*10) / 10
}

// Optimize runs both transforms over the same log: the deduplicated log for
// display and the funnel analysis computed from the full log.
func Optimize(entries []Entry) ([]Entry, Analysis) {
	return Deduplicate(entries), Classify(entries)
}

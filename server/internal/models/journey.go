package models

// Actions emitted by the action recognition model that drive the funnel.
// Other actions are accepted and carried through untouched.
const (
	ActionReachToShelf   = "Reach To Shelf"
	ActionInspectProduct = "Inspect Product"
	ActionInspectShelf   = "Inspect Shelf"
	ActionHandInShelf    = "Hand In Shelf"
)

// Outcome is the funnel classification of one person at one shelf.
type Outcome string

const (
	OutcomeNoReach    Outcome = "No Reach"
	OutcomeConversion Outcome = "Konversi Sukses"
	OutcomeHesitation Outcome = "Keraguan & Pembatalan"
	OutcomeDisengaged Outcome = "Kegagalan Menarik Minat"
)

// FunnelOutcomes are the outcomes that count towards a shelf's funnel, in report order.
var FunnelOutcomes = []Outcome{OutcomeConversion, OutcomeHesitation, OutcomeDisengaged}

// ActionEvent is one recognised action of a person at a shelf.
type ActionEvent struct {
	PersonID PersonID `json:"pid"`
	Frame    int      `json:"frame"`
	ShelfID  string   `json:"shelf_id"`
	Action   string   `json:"action"`
}

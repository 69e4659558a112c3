package types

import "time"

// Sub-score band maxima. The four bands sum to exactly 100 at their maxima,
// so the total clamp in the scorer is defensive rather than a normal code path.
const (
	MaxLocationScore = 40
	MaxBedsScore     = 25
	MaxBathsScore    = 15
	MaxBudgetScore   = 20
)

// MatchScore is the immutable result of scoring one buyer against one property.
type MatchScore struct {
	Score         int      `json:"score"`
	LocationScore int      `json:"location_score"`
	BedsScore     int      `json:"beds_score"`
	BathsScore    int      `json:"baths_score"`
	BudgetScore   int      `json:"budget_score"`
	IsPriority    bool     `json:"is_priority"`
	DistanceMiles *float64 `json:"distance_miles,omitempty"`
	Reasoning     string   `json:"reasoning"`
	Highlights    []string `json:"highlights,omitempty"`
	Concerns      []string `json:"concerns,omitempty"`
}

// Stage represents a deal pipeline stage for a match record.
type Stage string

// Pipeline stages in deal order. Lost is terminal and outside the ordering.
const (
	StageNewMatch         Stage = "New Match"
	StageContacted        Stage = "Contacted"
	StageShowingScheduled Stage = "Showing Scheduled"
	StageOfferMade        Stage = "Offer Made"
	StageUnderContract    Stage = "Under Contract"
	StageClosed           Stage = "Closed"
	StageLost             Stage = "Lost"
)

// stageOrder maps each advancing stage to its position in the pipeline.
var stageOrder = map[Stage]int{
	StageNewMatch:         0,
	StageContacted:        1,
	StageShowingScheduled: 2,
	StageOfferMade:        3,
	StageUnderContract:    4,
	StageClosed:           5,
}

// Valid reports whether s is a known pipeline stage.
func (s Stage) Valid() bool {
	if s == StageLost {
		return true
	}
	_, ok := stageOrder[s]
	return ok
}

// Before reports whether s comes earlier in the pipeline than other.
// Lost never orders before or after anything.
func (s Stage) Before(other Stage) bool {
	a, okA := stageOrder[s]
	b, okB := stageOrder[other]
	return okA && okB && a < b
}

// MatchRecord is the persisted outcome of a scoring run. At most one record
// exists per (BuyerID, PropertyID) pair; refreshing a pair updates score and
// notes but preserves the stage.
type MatchRecord struct {
	ID            string    `json:"id"`
	BuyerID       string    `json:"buyer_id"`
	PropertyID    string    `json:"property_id"`
	Score         int       `json:"score"`
	IsPriority    bool      `json:"is_priority"`
	Stage         Stage     `json:"stage"`
	Notes         string    `json:"notes,omitempty"`
	DistanceMiles *float64  `json:"distance_miles,omitempty"`
	MatchedAt     time.Time `json:"matched_at"`
}

// PairKey returns the dedup key for a buyer/property pair.
func PairKey(buyerID, propertyID string) string {
	return buyerID + "|" + propertyID
}

// Package matching implements the buyer/property compatibility scorer.
package matching

import (
	"fmt"
	"math"

	"github.com/jonathan/homematch/internal/geo"
	"github.com/jonathan/homematch/internal/types"
	"github.com/jonathan/homematch/internal/zip"
)

// Distance bands for the location sub-score, in miles.
const (
	bandVeryClose = 5
	bandClose     = 10
	bandNearby    = 25
	bandRegional  = 50
)

// Location points per band.
const (
	locationZipMatch  = 40
	locationVeryClose = 38
	locationClose     = 35
	locationNearby    = 28
	locationRegional  = 20
	locationNeutral   = 20
	locationZipMiss   = 10
	locationFarFloor  = 5
)

// Strategy scores one buyer against one property. Several scorer revisions
// existed upstream of this engine (ZIP-only, either/or distance); the seam is
// kept so an alternate ruleset can be swapped in without touching callers.
type Strategy interface {
	Score(buyer types.BuyerPreferences, property types.PropertyAttributes) types.MatchScore
}

// Hybrid is the canonical ruleset: preferred-ZIP membership always wins the
// location sub-score, with banded distance scoring as the fallback.
type Hybrid struct{}

// NewHybrid returns the default scoring strategy.
func NewHybrid() Hybrid { return Hybrid{} }

// Score is a convenience wrapper around the Hybrid strategy.
func Score(buyer types.BuyerPreferences, property types.PropertyAttributes) types.MatchScore {
	return Hybrid{}.Score(buyer, property)
}

// Score computes the weighted multi-factor match score. It is pure and never
// panics: absent or malformed fields score as the documented neutral cases.
func (Hybrid) Score(buyer types.BuyerPreferences, property types.PropertyAttributes) types.MatchScore {
	var result types.MatchScore

	loc := scoreLocation(&buyer, &property)
	result.LocationScore = loc.points
	result.IsPriority = loc.priority
	result.DistanceMiles = loc.distance
	result.Highlights = append(result.Highlights, loc.highlights...)
	result.Concerns = append(result.Concerns, loc.concerns...)

	beds := scoreBeds(buyer.DesiredBeds, property.Beds)
	result.BedsScore = beds.points
	result.Highlights = append(result.Highlights, beds.highlights...)
	result.Concerns = append(result.Concerns, beds.concerns...)

	baths := scoreBaths(buyer.DesiredBaths, property.Baths)
	result.BathsScore = baths.points
	result.Highlights = append(result.Highlights, baths.highlights...)
	result.Concerns = append(result.Concerns, baths.concerns...)

	budget := scoreBudget(buyer.DownPayment, property.Price)
	result.BudgetScore = budget.points
	result.Highlights = append(result.Highlights, budget.highlights...)
	result.Concerns = append(result.Concerns, budget.concerns...)

	total := result.LocationScore + result.BedsScore + result.BathsScore + result.BudgetScore
	if total > 100 {
		total = 100
	}
	result.Score = total

	result.Reasoning = buildReasoning(&result, loc, beds, baths, budget)

	return result
}

// factorResult carries one sub-score plus the clause used in the reasoning
// breakdown and any highlights/concerns collected along the way.
type factorResult struct {
	points     int
	reason     string
	priority   bool
	distance   *float64
	highlights []string
	concerns   []string
}

// scoreLocation evaluates the 0-40 location sub-score in strict priority
// order: preferred-ZIP membership, then distance bands, then the
// has-preference-but-no-signal case, then neutral.
func scoreLocation(buyer *types.BuyerPreferences, property *types.PropertyAttributes) factorResult {
	// 1. ZIP membership always wins, even when coordinates would score lower.
	if zip.InPreferred(property.ZipCode, property.Address, buyer.PreferredZipCodes) {
		return factorResult{
			points:     locationZipMatch,
			reason:     "in preferred ZIP code",
			priority:   true,
			highlights: []string{"In preferred ZIP code"},
		}
	}

	// 2. Distance banding when both sides carry valid coordinates.
	if hasValidCoords(buyer.Coords) && hasValidCoords(property.Coords) {
		d := geo.Distance(
			buyer.Coords.Latitude, buyer.Coords.Longitude,
			property.Coords.Latitude, property.Coords.Longitude,
		)
		res := factorResult{
			distance: &d,
			reason:   fmt.Sprintf("%.1f miles away", d),
		}
		switch {
		case d <= bandVeryClose:
			res.points, res.priority = locationVeryClose, true
			res.highlights = append(res.highlights, fmt.Sprintf("Very close: %.1f miles away", d))
		case d <= bandClose:
			res.points, res.priority = locationClose, true
			res.highlights = append(res.highlights, fmt.Sprintf("Close by: %.1f miles away", d))
		case d <= bandNearby:
			res.points, res.priority = locationNearby, true
		case d <= bandRegional:
			res.points, res.priority = locationRegional, true
		default:
			// Monotonic decay past 50 miles, floored at 5 points.
			res.points = locationFarFloor
			if decayed := 15 - int(math.Floor(d/20)); decayed > locationFarFloor {
				res.points = decayed
			}
			res.concerns = append(res.concerns, fmt.Sprintf("Far from buyer: %.1f miles away", d))
		}
		return res
	}

	// 3. The buyer stated ZIP preferences but nothing matched and no
	// coordinates exist to fall back on.
	if buyer.HasZipPreference() {
		return factorResult{
			points:   locationZipMiss,
			reason:   "not in preferred ZIP codes",
			concerns: []string{"Not in preferred ZIP codes"},
		}
	}

	// 4. No location signal at all.
	return factorResult{
		points: locationNeutral,
		reason: "no location preference set",
	}
}

func scoreBeds(desired, actual *float64) factorResult {
	if desired == nil {
		return factorResult{points: 12, reason: "no bedroom preference"}
	}
	if actual == nil {
		return factorResult{points: 12, reason: "bed count not listed"}
	}

	diff := math.Abs(*actual - *desired)
	switch {
	case diff == 0:
		return factorResult{
			points:     25,
			reason:     "exact match",
			highlights: []string{fmt.Sprintf("Exact bed count: %s beds", trimFloat(*actual))},
		}
	case diff == 1:
		return factorResult{points: 15, reason: "off by one bedroom"}
	case *actual > *desired:
		return factorResult{
			points:     10,
			reason:     "more bedrooms than requested",
			highlights: []string{fmt.Sprintf("Extra space: %s beds", trimFloat(*actual))},
		}
	default:
		return factorResult{
			points:   5,
			reason:   "fewer bedrooms than requested",
			concerns: []string{fmt.Sprintf("Only %s beds, wanted %s", trimFloat(*actual), trimFloat(*desired))},
		}
	}
}

func scoreBaths(desired, actual *float64) factorResult {
	if desired == nil {
		return factorResult{points: 8, reason: "no bathroom preference"}
	}
	if actual == nil {
		return factorResult{points: 8, reason: "bath count not listed"}
	}

	if *actual >= *desired {
		return factorResult{points: 15, reason: "meets requirement"}
	}
	return factorResult{
		points:   5,
		reason:   "below requirement",
		concerns: []string{fmt.Sprintf("Only %s baths, wanted %s", trimFloat(*actual), trimFloat(*desired))},
	}
}

func scoreBudget(downPayment, price *float64) factorResult {
	if downPayment == nil {
		return factorResult{points: 10, reason: "no down payment on file"}
	}
	if price == nil || *price <= 0 {
		return factorResult{points: 10, reason: "property price unknown"}
	}

	ratio := *downPayment / *price * 100
	reason := fmt.Sprintf("%.1f%% down payment", ratio)
	switch {
	case ratio >= 20:
		return factorResult{
			points:     20,
			reason:     reason,
			highlights: []string{fmt.Sprintf("Strong down payment ratio: %.1f%%", ratio)},
		}
	case ratio >= 10:
		return factorResult{points: 15, reason: reason}
	case ratio >= 5:
		return factorResult{points: 10, reason: reason}
	default:
		return factorResult{
			points:   5,
			reason:   reason,
			concerns: []string{fmt.Sprintf("Low down payment ratio: %.1f%%", ratio)},
		}
	}
}

func hasValidCoords(c *types.Coords) bool {
	return c != nil && geo.ValidCoords(c.Latitude, c.Longitude)
}

// trimFloat renders a bed/bath count without a trailing ".0" for whole values.
func trimFloat(v float64) string {
	if v == math.Trunc(v) {
		return fmt.Sprintf("%.0f", v)
	}
	return fmt.Sprintf("%.1f", v)
}

package matching

import (
	"fmt"
	"strings"

	"github.com/jonathan/homematch/internal/types"
)

// Quality labels derived from the total score. Downstream UI parses the
// reasoning text back out, so the per-category line shape
// "<Category>: <pts>/<max> pts (<reason>)" is load-bearing.
const (
	labelExcellent = "Excellent Match"
	labelGood      = "Good Match"
	labelFair      = "Fair Match"
	labelLimited   = "Limited Match"

	priorityMarker = "PRIORITY MATCH"
)

// qualityLabel maps a total score onto its human-readable quality label.
func qualityLabel(total int) string {
	switch {
	case total >= 80:
		return labelExcellent
	case total >= 60:
		return labelGood
	case total >= 40:
		return labelFair
	default:
		return labelLimited
	}
}

// buildReasoning renders the deterministic multi-line explanation for a score.
func buildReasoning(score *types.MatchScore, loc, beds, baths, budget factorResult) string {
	var sb strings.Builder

	if score.IsPriority {
		sb.WriteString(priorityMarker)
		sb.WriteString("\n")
	}

	sb.WriteString(fmt.Sprintf("%s (%d/100)\n", qualityLabel(score.Score), score.Score))
	sb.WriteString(fmt.Sprintf("Location: %d/%d pts (%s)\n", loc.points, types.MaxLocationScore, loc.reason))
	sb.WriteString(fmt.Sprintf("Bedrooms: %d/%d pts (%s)\n", beds.points, types.MaxBedsScore, beds.reason))
	sb.WriteString(fmt.Sprintf("Bathrooms: %d/%d pts (%s)\n", baths.points, types.MaxBathsScore, baths.reason))
	sb.WriteString(fmt.Sprintf("Budget: %d/%d pts (%s)", budget.points, types.MaxBudgetScore, budget.reason))

	return sb.String()
}

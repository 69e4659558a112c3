package observability

import (
	"bytes"
	"testing"
	"time"

	"github.com/jonathan/homematch/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestPrintRunStats(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintRunStats(40, 12, 3, 25, 4, 0, 1512*time.Millisecond)

	out := buf.String()
	assert.Contains(t, out, "MATCHING RUN COMPLETE")
	assert.Contains(t, out, "Pairs evaluated:  40")
	assert.Contains(t, out, "Created:          12")
	assert.Contains(t, out, "Priority matches: 4")
	assert.Contains(t, out, "1.512s")
	assert.NotContains(t, out, "Errors:")
}

func TestPrintRunStats_ShowsErrors(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintRunStats(10, 5, 0, 0, 1, 2, time.Second)

	assert.Contains(t, buf.String(), "Errors:           2")
}

func TestPrintMatchScore(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	d := 3.2
	p.PrintMatchScore("Alice", "123 Main St", &types.MatchScore{
		Score:         85,
		IsPriority:    true,
		DistanceMiles: &d,
		Highlights:    []string{"In preferred ZIP code"},
		Concerns:      []string{"Only 2 beds, wanted 3"},
	})

	out := buf.String()
	assert.Contains(t, out, "MATCH BREAKDOWN")
	assert.Contains(t, out, "Buyer:    Alice")
	assert.Contains(t, out, "Score: 85/100")
	assert.Contains(t, out, "Distance: 3.2 miles")
	assert.Contains(t, out, "In preferred ZIP code")
	assert.Contains(t, out, "Only 2 beds, wanted 3")
}

func TestPrintMatchScore_NilScoreIsNoop(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintMatchScore("Alice", "123 Main St", nil)
	assert.Empty(t, buf.String())
}

func TestPrintTopMatches(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	matches := make([]types.MatchRecord, 7)
	for i := range matches {
		matches[i] = types.MatchRecord{
			BuyerID:    "buyer1",
			PropertyID: "prop1",
			Score:      90 - i,
			Stage:      types.StageNewMatch,
		}
	}

	p.PrintTopMatches(matches)

	out := buf.String()
	assert.Contains(t, out, "TOP MATCHES")
	assert.Contains(t, out, "Total matches: 7")
	assert.Contains(t, out, "#5")
	assert.NotContains(t, out, "#6")
	assert.Contains(t, out, "... and 2 more matches")
}

func TestPrintTopMatches_EmptyIsNoop(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintTopMatches(nil)
	assert.Empty(t, buf.String())
}

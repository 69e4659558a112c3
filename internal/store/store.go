package store

import (
	"context"

	"github.com/jonathan/homematch/internal/types"
)

// Store is the backing-store contract the orchestrator runs against. Each
// call is atomic from the orchestrator's perspective; no cross-call
// transactional guarantees are assumed. Write methods take one batch at a
// time; the orchestrator owns batch sizing.
type Store interface {
	ListBuyers(ctx context.Context) ([]types.BuyerPreferences, error)
	ListProperties(ctx context.Context) ([]types.PropertyAttributes, error)
	ListMatches(ctx context.Context) ([]types.MatchRecord, error)

	// CreateMatches persists new records and returns them with their
	// store-assigned ids.
	CreateMatches(ctx context.Context, records []types.MatchRecord) ([]types.MatchRecord, error)
	// UpdateMatches refreshes score, priority, notes, and distance on
	// existing records. Stage is never touched.
	UpdateMatches(ctx context.Context, records []types.MatchRecord) error
	// DeleteMatches removes records by id.
	DeleteMatches(ctx context.Context, ids []string) error
	// ListMatchIDs returns every match record id.
	ListMatchIDs(ctx context.Context) ([]string, error)
}

// Package pipeline provides the batch matching orchestrator: it drives the
// scorer across the buyer/property cross product and persists results in
// bounded, deduplicated batches.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jonathan/homematch/internal/cache"
	"github.com/jonathan/homematch/internal/geocode"
	"github.com/jonathan/homematch/internal/matching"
	"github.com/jonathan/homematch/internal/observability"
	"github.com/jonathan/homematch/internal/store"
	"github.com/jonathan/homematch/internal/types"
)

// Defaults for run options.
const (
	DefaultMinScore    = 30
	DefaultBatchSize   = 10
	DefaultConcurrency = 5
)

// ErrNotFound indicates a requested buyer or property id has no record.
var ErrNotFound = fmt.Errorf("record not found")

// Cache keys for the three collections.
const (
	cacheKeyBuyers     = "buyers"
	cacheKeyProperties = "properties"
	cacheKeyMatches    = "matches"
)

// Options holds per-run parameters.
type Options struct {
	// MinScore filters out pairs scoring below it. Nil means DefaultMinScore;
	// an explicit zero writes every scored pair.
	MinScore *int
	// RefreshAll re-scores pairs that already have a match record instead of
	// skipping them.
	RefreshAll bool
	// BatchSize caps records per store write. Zero means DefaultBatchSize.
	BatchSize int
	// Concurrency caps simultaneous outbound batch writes per wave. Zero
	// means DefaultConcurrency.
	Concurrency int
	// Geocode fills in missing coordinates from display locations before
	// scoring, when the runner has a geocoder.
	Geocode bool
	Verbose bool
}

func (o Options) withDefaults() Options {
	if o.MinScore == nil {
		v := DefaultMinScore
		o.MinScore = &v
	}
	if o.BatchSize <= 0 {
		o.BatchSize = DefaultBatchSize
	}
	if o.Concurrency <= 0 {
		o.Concurrency = DefaultConcurrency
	}
	return o
}

// RunStats summarizes one matching run. Counts accumulate per completed wave,
// so they are order-independent and race-free.
type RunStats struct {
	Pairs    int           `json:"pairs"`
	Scored   int           `json:"scored"`
	Created  int           `json:"created"`
	Updated  int           `json:"updated"`
	Skipped  int           `json:"skipped"`
	BelowMin int           `json:"below_min"`
	Priority int           `json:"priority"`
	Errors   int           `json:"errors"`
	Elapsed  time.Duration `json:"elapsed"`
}

// Runner executes matching runs against an injected store, cache, and scoring
// strategy. The geocoder is optional; without one, records missing
// coordinates fall back to ZIP-only or neutral location scoring.
type Runner struct {
	store    store.Store
	cache    cache.Cache
	strategy matching.Strategy
	geocoder geocode.Geocoder
	printer  *observability.Printer
	cacheTTL time.Duration
	now      func() time.Time
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithStrategy swaps the scoring strategy.
func WithStrategy(s matching.Strategy) RunnerOption {
	return func(r *Runner) { r.strategy = s }
}

// WithGeocoder enables coordinate backfill for records missing coords.
func WithGeocoder(g geocode.Geocoder) RunnerOption {
	return func(r *Runner) { r.geocoder = g }
}

// WithPrinter directs verbose run summaries to the given printer.
func WithPrinter(p *observability.Printer) RunnerOption {
	return func(r *Runner) { r.printer = p }
}

// WithCacheTTL overrides the collection cache TTL.
func WithCacheTTL(ttl time.Duration) RunnerOption {
	return func(r *Runner) { r.cacheTTL = ttl }
}

// WithClock injects a clock for tests.
func WithClock(now func() time.Time) RunnerOption {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a matching runner.
func NewRunner(st store.Store, c cache.Cache, opts ...RunnerOption) *Runner {
	r := &Runner{
		store:    st,
		cache:    c,
		strategy: matching.NewHybrid(),
		cacheTTL: cache.DefaultTTL,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// RunAll scores the full buyer/property cross product.
func (r *Runner) RunAll(ctx context.Context, opts Options) (*RunStats, error) {
	opts = opts.withDefaults()

	buyers, err := r.loadBuyers(ctx)
	if err != nil {
		return &RunStats{}, err
	}
	properties, err := r.loadProperties(ctx)
	if err != nil {
		return &RunStats{}, err
	}

	return r.run(ctx, buyers, properties, opts)
}

// RunBuyer scores one buyer against every property.
func (r *Runner) RunBuyer(ctx context.Context, buyerID string, opts Options) (*RunStats, error) {
	opts = opts.withDefaults()

	buyers, err := r.loadBuyers(ctx)
	if err != nil {
		return &RunStats{}, err
	}
	buyer, ok := findBuyer(buyers, buyerID)
	if !ok {
		return &RunStats{}, fmt.Errorf("buyer %s: %w", buyerID, ErrNotFound)
	}
	properties, err := r.loadProperties(ctx)
	if err != nil {
		return &RunStats{}, err
	}

	return r.run(ctx, []types.BuyerPreferences{buyer}, properties, opts)
}

// RunProperty scores one property against every buyer.
func (r *Runner) RunProperty(ctx context.Context, propertyID string, opts Options) (*RunStats, error) {
	opts = opts.withDefaults()

	properties, err := r.loadProperties(ctx)
	if err != nil {
		return &RunStats{}, err
	}
	property, ok := findProperty(properties, propertyID)
	if !ok {
		return &RunStats{}, fmt.Errorf("property %s: %w", propertyID, ErrNotFound)
	}
	buyers, err := r.loadBuyers(ctx)
	if err != nil {
		return &RunStats{}, err
	}

	return r.run(ctx, buyers, []types.PropertyAttributes{property}, opts)
}

// ClearAll deletes every match record in bounded batches. Destructive and
// non-recoverable.
func (r *Runner) ClearAll(ctx context.Context) (int, error) {
	ids, err := r.store.ListMatchIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to fetch match ids: %w", err)
	}

	deleted := 0
	for _, batch := range chunkStrings(ids, DefaultBatchSize) {
		if err := r.store.DeleteMatches(ctx, batch); err != nil {
			return deleted, fmt.Errorf("failed to delete match batch: %w", err)
		}
		deleted += len(batch)
	}

	r.cache.Invalidate(ctx, cacheKeyMatches)
	return deleted, nil
}

// run is the shared core of the three run variants.
func (r *Runner) run(ctx context.Context, buyers []types.BuyerPreferences, properties []types.PropertyAttributes, opts Options) (*RunStats, error) {
	start := r.now()
	stats := &RunStats{}

	existing, err := r.loadExisting(ctx)
	if err != nil {
		return stats, err
	}

	if opts.Geocode && r.geocoder != nil {
		buyers = r.geocodeBuyers(ctx, buyers)
	}

	verbose := opts.Verbose && r.printer != nil

	var creates, updates []types.MatchRecord
	for _, buyer := range buyers {
		for _, property := range properties {
			stats.Pairs++

			key := types.PairKey(buyer.ID, property.ID)
			prior, seen := existing[key]
			if seen && !opts.RefreshAll {
				stats.Skipped++
				continue
			}

			score := r.strategy.Score(buyer, property)
			stats.Scored++
			if verbose {
				r.printer.PrintMatchScore(buyerLabel(buyer), propertyLabel(property), &score)
			}
			if score.Score < *opts.MinScore {
				stats.BelowMin++
				continue
			}
			if score.IsPriority {
				stats.Priority++
			}

			rec := types.MatchRecord{
				BuyerID:       buyer.ID,
				PropertyID:    property.ID,
				Score:         score.Score,
				IsPriority:    score.IsPriority,
				Stage:         types.StageNewMatch,
				Notes:         score.Reasoning,
				DistanceMiles: score.DistanceMiles,
				MatchedAt:     r.now(),
			}
			if seen {
				rec.ID = prior.ID
				rec.Stage = prior.Stage
				updates = append(updates, rec)
			} else {
				creates = append(creates, rec)
			}
		}
	}

	created, createErrs := r.writeWaves(ctx, chunkRecords(creates, opts.BatchSize), opts.Concurrency, r.createBatch)
	updated, updateErrs := r.writeWaves(ctx, chunkRecords(updates, opts.BatchSize), opts.Concurrency, r.updateBatch)
	stats.Created = created
	stats.Updated = updated
	stats.Errors = createErrs + updateErrs

	if created > 0 || updated > 0 {
		r.cache.Invalidate(ctx, cacheKeyMatches)
	}

	stats.Elapsed = r.now().Sub(start)
	if verbose {
		r.printer.PrintTopMatches(topByScore(creates, updates))
		r.printer.PrintRunStats(stats.Pairs, stats.Created, stats.Updated, stats.Skipped, stats.Priority, stats.Errors, stats.Elapsed)
	}
	return stats, nil
}

// topByScore merges the records written this run, highest score first.
// Ordering is stable so equal scores keep cross-product order.
func topByScore(creates, updates []types.MatchRecord) []types.MatchRecord {
	merged := make([]types.MatchRecord, 0, len(creates)+len(updates))
	merged = append(merged, creates...)
	merged = append(merged, updates...)
	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	return merged
}

func buyerLabel(b types.BuyerPreferences) string {
	if b.Name != "" {
		return b.Name
	}
	return b.ID
}

func propertyLabel(p types.PropertyAttributes) string {
	if p.Address != "" {
		return p.Address
	}
	return p.ID
}

// batchFn persists one batch and returns how many records it committed.
type batchFn func(ctx context.Context, batch []types.MatchRecord) (int, error)

func (r *Runner) createBatch(ctx context.Context, batch []types.MatchRecord) (int, error) {
	created, err := r.store.CreateMatches(ctx, batch)
	return len(created), err
}

func (r *Runner) updateBatch(ctx context.Context, batch []types.MatchRecord) (int, error) {
	if err := r.store.UpdateMatches(ctx, batch); err != nil {
		return 0, err
	}
	return len(batch), nil
}

// writeWaves issues batches in waves of up to concurrency simultaneous store
// calls, awaiting each wave before the next. A failed batch is logged and
// counted; the run continues. Results accumulate per wave and are reduced
// after the wave completes, so no counter is touched by concurrent writers.
func (r *Runner) writeWaves(ctx context.Context, batches [][]types.MatchRecord, concurrency int, persist batchFn) (committed, failures int) {
	for wave := 0; wave < len(batches); wave += concurrency {
		end := wave + concurrency
		if end > len(batches) {
			end = len(batches)
		}
		waveBatches := batches[wave:end]

		counts := make([]int, len(waveBatches))
		errs := make([]error, len(waveBatches))

		g, gCtx := errgroup.WithContext(ctx)
		for i, batch := range waveBatches {
			g.Go(func() error {
				n, err := persist(gCtx, batch)
				counts[i] = n
				errs[i] = err
				// Batch failures are absorbed here; returning them would
				// cancel sibling batches in the wave.
				return nil
			})
		}
		_ = g.Wait()

		for i := range waveBatches {
			if errs[i] != nil {
				failures += len(waveBatches[i])
				log.Printf("pipeline: batch write failed: %v", errs[i])
				continue
			}
			committed += counts[i]
		}
	}
	return committed, failures
}

// loadBuyers serves the buyer collection from cache when fresh, falling back
// to the store. A store failure is fatal for the run.
func (r *Runner) loadBuyers(ctx context.Context) ([]types.BuyerPreferences, error) {
	var buyers []types.BuyerPreferences
	if getCached(ctx, r.cache, cacheKeyBuyers, &buyers) {
		return buyers, nil
	}
	buyers, err := r.store.ListBuyers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch buyers: %w", err)
	}
	setCached(ctx, r.cache, cacheKeyBuyers, buyers, r.cacheTTL)
	return buyers, nil
}

func (r *Runner) loadProperties(ctx context.Context) ([]types.PropertyAttributes, error) {
	var properties []types.PropertyAttributes
	if getCached(ctx, r.cache, cacheKeyProperties, &properties) {
		return properties, nil
	}
	properties, err := r.store.ListProperties(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch properties: %w", err)
	}
	setCached(ctx, r.cache, cacheKeyProperties, properties, r.cacheTTL)
	return properties, nil
}

// loadExisting builds the skip set of already-scored pairs. A fetch failure
// here is fatal: running without the skip set would create duplicate rows.
func (r *Runner) loadExisting(ctx context.Context) (map[string]types.MatchRecord, error) {
	var matches []types.MatchRecord
	if !getCached(ctx, r.cache, cacheKeyMatches, &matches) {
		var err error
		matches, err = r.store.ListMatches(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to fetch existing matches: %w", err)
		}
		setCached(ctx, r.cache, cacheKeyMatches, matches, r.cacheTTL)
	}

	existing := make(map[string]types.MatchRecord, len(matches))
	for _, m := range matches {
		if m.BuyerID == "" || m.PropertyID == "" {
			continue
		}
		existing[types.PairKey(m.BuyerID, m.PropertyID)] = m
	}
	return existing, nil
}

// geocodeBuyers backfills coordinates for buyers that have a display location
// but no coords. Calls are sequential; the geocoder paces itself. Failures
// leave the buyer without coordinates.
func (r *Runner) geocodeBuyers(ctx context.Context, buyers []types.BuyerPreferences) []types.BuyerPreferences {
	out := make([]types.BuyerPreferences, len(buyers))
	copy(out, buyers)
	for i := range out {
		if out[i].Coords != nil {
			continue
		}
		query := out[i].DisplayLocation()
		if query == "" {
			continue
		}
		coords, err := r.geocoder.Geocode(ctx, query)
		if err != nil {
			if err != geocode.ErrNoResult {
				log.Printf("pipeline: geocode %q: %v", query, err)
			}
			continue
		}
		out[i].Coords = &coords
	}
	return out
}

// getCached decodes a cached JSON collection into dst, returning false on any
// miss or decode failure so callers fall through to a direct fetch.
func getCached[T any](ctx context.Context, c cache.Cache, key string, dst *T) bool {
	payload, ok := c.Get(ctx, key)
	if !ok {
		return false
	}
	if err := json.Unmarshal(payload, dst); err != nil {
		c.Invalidate(ctx, key)
		return false
	}
	return true
}

func setCached[T any](ctx context.Context, c cache.Cache, key string, value T, ttl time.Duration) {
	payload, err := json.Marshal(value)
	if err != nil {
		return
	}
	c.Set(ctx, key, payload, ttl)
}

func findBuyer(buyers []types.BuyerPreferences, id string) (types.BuyerPreferences, bool) {
	for _, b := range buyers {
		if b.ID == id {
			return b, true
		}
	}
	return types.BuyerPreferences{}, false
}

func findProperty(properties []types.PropertyAttributes, id string) (types.PropertyAttributes, bool) {
	for _, p := range properties {
		if p.ID == id {
			return p, true
		}
	}
	return types.PropertyAttributes{}, false
}

func chunkRecords(records []types.MatchRecord, size int) [][]types.MatchRecord {
	if len(records) == 0 {
		return nil
	}
	if size <= 0 {
		size = DefaultBatchSize
	}
	var chunks [][]types.MatchRecord
	for start := 0; start < len(records); start += size {
		end := start + size
		if end > len(records) {
			end = len(records)
		}
		chunks = append(chunks, records[start:end])
	}
	return chunks
}

func chunkStrings(values []string, size int) [][]string {
	if len(values) == 0 {
		return nil
	}
	if size <= 0 {
		size = DefaultBatchSize
	}
	var chunks [][]string
	for start := 0; start < len(values); start += size {
		end := start + size
		if end > len(values) {
			end = len(values)
		}
		chunks = append(chunks, values[start:end])
	}
	return chunks
}

package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/jonathan/homematch/internal/cache"
	"github.com/jonathan/homematch/internal/pipeline"
	"github.com/jonathan/homematch/internal/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeStore is an in-memory store.Store for handler tests.
type fakeStore struct {
	mu      sync.Mutex
	buyers  []types.BuyerPreferences
	props   []types.PropertyAttributes
	matches map[string]types.MatchRecord
	nextID  int

	listMatchesErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		buyers: []types.BuyerPreferences{
			{ID: "buyer1", Name: "Alice", PreferredZipCodes: []string{"70062"}},
			{ID: "buyer2", Name: "Bob"},
		},
		props: []types.PropertyAttributes{
			{ID: "prop1", ZipCode: "70062"},
			{ID: "prop2", ZipCode: "70115"},
		},
		matches: make(map[string]types.MatchRecord),
	}
}

func (s *fakeStore) ListBuyers(_ context.Context) ([]types.BuyerPreferences, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.buyers, nil
}

func (s *fakeStore) ListProperties(_ context.Context) ([]types.PropertyAttributes, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.props, nil
}

func (s *fakeStore) ListMatches(_ context.Context) ([]types.MatchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listMatchesErr != nil {
		return nil, s.listMatchesErr
	}
	out := make([]types.MatchRecord, 0, len(s.matches))
	for _, m := range s.matches {
		out = append(out, m)
	}
	return out, nil
}

func (s *fakeStore) CreateMatches(_ context.Context, records []types.MatchRecord) ([]types.MatchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	created := make([]types.MatchRecord, 0, len(records))
	for _, rec := range records {
		s.nextID++
		rec.ID = fmt.Sprintf("rec%d", s.nextID)
		s.matches[rec.ID] = rec
		created = append(created, rec)
	}
	return created, nil
}

func (s *fakeStore) UpdateMatches(_ context.Context, records []types.MatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, rec := range records {
		s.matches[rec.ID] = rec
	}
	return nil
}

func (s *fakeStore) DeleteMatches(_ context.Context, ids []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, id := range ids {
		delete(s.matches, id)
	}
	return nil
}

func (s *fakeStore) matchCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.matches)
}

func (s *fakeStore) ListMatchIDs(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]string, 0, len(s.matches))
	for id := range s.matches {
		ids = append(ids, id)
	}
	return ids, nil
}

// newTestServer wires a full server on a fake store and returns the HTTP test
// harness around its middleware stack.
func newTestServer(t *testing.T) (*httptest.Server, *fakeStore) {
	t.Helper()

	st := newFakeStore()
	runner := pipeline.NewRunner(st, cache.NewMemory())
	srv, err := New(Config{Port: 0, Runner: runner, Store: st})
	require.NoError(t, err)
	t.Cleanup(srv.rateLimiter.Stop)

	ts := httptest.NewServer(srv.httpServer.Handler)
	t.Cleanup(ts.Close)
	return ts, st
}

func TestNew_RequiresRunnerAndStore(t *testing.T) {
	_, err := New(Config{Port: 8080})
	assert.Error(t, err)

	_, err = New(Config{Port: 8080, Store: newFakeStore()})
	assert.Error(t, err)
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "ok", body["status"])
}

func TestRunAll(t *testing.T) {
	ts, st := newTestServer(t)

	resp, err := http.Post(ts.URL+"/matches/run", "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body RunResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "completed", body.Status)
	assert.Equal(t, 4, body.Stats.Pairs)
	assert.Equal(t, 4, body.Stats.Created)
	assert.Equal(t, 4, st.matchCount())
}

func TestRunAll_WithBody(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/matches/run", "application/json",
		strings.NewReader(`{"min_score": 45}`))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body RunResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 1, body.Stats.BelowMin)
	assert.Equal(t, 3, body.Stats.Created)
}

func TestDecodeRunRequest_ExplicitZeroMinScore(t *testing.T) {
	srv := &Server{validate: validator.New()}

	// An explicit zero survives decoding and reaches the pipeline options;
	// an omitted field leaves the pointer nil so the default applies.
	req := httptest.NewRequest(http.MethodPost, "/matches/run",
		strings.NewReader(`{"min_score": 0}`))
	parsed, err := srv.decodeRunRequest(req)
	require.NoError(t, err)
	require.NotNil(t, parsed.MinScore)
	assert.Equal(t, 0, *parsed.MinScore)
	require.NotNil(t, parsed.options().MinScore)
	assert.Equal(t, 0, *parsed.options().MinScore)

	req = httptest.NewRequest(http.MethodPost, "/matches/run",
		strings.NewReader(`{"refresh_all": true}`))
	parsed, err = srv.decodeRunRequest(req)
	require.NoError(t, err)
	assert.Nil(t, parsed.MinScore)
	assert.Nil(t, parsed.options().MinScore)
}

func TestRunAll_InvalidMinScore(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/matches/run", "application/json",
		strings.NewReader(`{"min_score": 150}`))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRunAll_MalformedJSON(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/matches/run", "application/json",
		strings.NewReader(`{not json`))
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRunBuyer(t *testing.T) {
	ts, st := newTestServer(t)

	resp, err := http.Post(ts.URL+"/buyers/buyer1/matches", "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body RunResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 2, body.Stats.Pairs)
	assert.Equal(t, 2, st.matchCount())
}

func TestRunBuyer_UnknownID(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/buyers/missing/matches", "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestRunProperty_UnknownID(t *testing.T) {
	ts, _ := newTestServer(t)

	resp, err := http.Post(ts.URL+"/properties/missing/matches", "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestListMatches(t *testing.T) {
	ts, _ := newTestServer(t)

	// Populate via a run first.
	resp, err := http.Post(ts.URL+"/matches/run", "application/json", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()

	resp, err = http.Get(ts.URL + "/matches")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Count   int                 `json:"count"`
		Matches []types.MatchRecord `json:"matches"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, 4, body.Count)
	assert.Len(t, body.Matches, 4)
}

func TestClearMatches_RequiresConfirm(t *testing.T) {
	ts, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/matches", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestClearMatches(t *testing.T) {
	ts, st := newTestServer(t)

	resp, err := http.Post(ts.URL+"/matches/run", "application/json", nil)
	require.NoError(t, err)
	_ = resp.Body.Close()

	req, err := http.NewRequest(http.MethodDelete, ts.URL+"/matches?confirm=true", nil)
	require.NoError(t, err)

	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body ClearResponse
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, "cleared", body.Status)
	assert.Equal(t, 4, body.Deleted)
	assert.Equal(t, 0, st.matchCount())
}

func TestCORSPreflight(t *testing.T) {
	ts, _ := newTestServer(t)

	req, err := http.NewRequest(http.MethodOptions, ts.URL+"/matches", nil)
	require.NoError(t, err)

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "*", resp.Header.Get("Access-Control-Allow-Origin"))
}

func TestRunEndpointRateLimit(t *testing.T) {
	ts, _ := newTestServer(t)

	// The matching-run endpoint allows a burst of 3.
	for i := 0; i < 3; i++ {
		resp, err := http.Post(ts.URL+"/matches/run", "application/json", nil)
		require.NoError(t, err)
		_ = resp.Body.Close()
		require.Equal(t, http.StatusOK, resp.StatusCode, "request %d should pass", i+1)
	}

	resp, err := http.Post(ts.URL+"/matches/run", "application/json", nil)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get("Retry-After"))
	assert.Equal(t, "30", resp.Header.Get("X-RateLimit-Limit"))
}

func TestStatsFromRun(t *testing.T) {
	stats := statsFromRun(&pipeline.RunStats{
		Pairs:   10,
		Scored:  8,
		Created: 5,
		Elapsed: 1512 * time.Millisecond,
	})
	assert.Equal(t, 10, stats.Pairs)
	assert.Equal(t, "1.512s", stats.Elapsed)
}

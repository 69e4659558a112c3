package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/jonathan/homematch/internal/pipeline"
)

// RunRequest represents the request body for matching runs. MinScore is a
// pointer so an explicit zero (write every scored pair) is distinguishable
// from an omitted field (use the default threshold).
type RunRequest struct {
	MinScore   *int `json:"min_score,omitempty" validate:"omitempty,gte=0,lte=100"`
	RefreshAll bool `json:"refresh_all,omitempty"`
	Geocode    bool `json:"geocode,omitempty"`
}

// RunResponse represents the response for a completed matching run.
type RunResponse struct {
	Status string `json:"status"`
	Stats  Stats  `json:"stats"`
}

// Stats is the wire shape of pipeline.RunStats, with elapsed rendered as a
// duration string.
type Stats struct {
	Pairs    int    `json:"pairs"`
	Scored   int    `json:"scored"`
	Created  int    `json:"created"`
	Updated  int    `json:"updated"`
	Skipped  int    `json:"skipped"`
	BelowMin int    `json:"below_min"`
	Priority int    `json:"priority"`
	Errors   int    `json:"errors"`
	Elapsed  string `json:"elapsed"`
}

func statsFromRun(rs *pipeline.RunStats) Stats {
	return Stats{
		Pairs:    rs.Pairs,
		Scored:   rs.Scored,
		Created:  rs.Created,
		Updated:  rs.Updated,
		Skipped:  rs.Skipped,
		BelowMin: rs.BelowMin,
		Priority: rs.Priority,
		Errors:   rs.Errors,
		Elapsed:  rs.Elapsed.Round(time.Millisecond).String(),
	}
}

// ClearResponse represents the response for the bulk clear endpoint.
type ClearResponse struct {
	Status  string `json:"status"`
	Deleted int    `json:"deleted"`
}

// decodeRunRequest parses and validates an optional JSON body. An empty body
// means run with defaults.
func (s *Server) decodeRunRequest(r *http.Request) (RunRequest, error) {
	var req RunRequest

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return req, &ErrValidation{Field: "body", Message: "failed to read request body"}
	}
	if len(strings.TrimSpace(string(body))) == 0 {
		return req, nil
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return req, &ErrValidation{Field: "body", Message: "invalid JSON: " + err.Error()}
	}
	if err := s.validate.Struct(req); err != nil {
		return req, &ErrValidation{Field: "min_score", Message: "must be in [0,100]"}
	}
	return req, nil
}

func (req RunRequest) options() pipeline.Options {
	return pipeline.Options{
		MinScore:   req.MinScore,
		RefreshAll: req.RefreshAll,
		Geocode:    req.Geocode,
	}
}

// handleRunAll runs matching across the full buyer/property cross product.
// A run with per-pair errors still returns 200; the error count rides in the
// stats payload. Only a fatal collection fetch fails the request.
func (s *Server) handleRunAll(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeRunRequest(r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	stats, err := s.runner.RunAll(r.Context(), req.options())
	if err != nil {
		s.errorResponse(w, HTTPStatus(&ErrUpstream{Op: "matching run", Cause: err}), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, RunResponse{Status: "completed", Stats: statsFromRun(stats)})
}

// handleRunBuyer runs matching for one buyer against all properties.
func (s *Server) handleRunBuyer(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeRunRequest(r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	buyerID := r.PathValue("id")
	stats, err := s.runner.RunBuyer(r.Context(), buyerID, req.options())
	if err != nil {
		if errors.Is(err, pipeline.ErrNotFound) {
			s.errorResponse(w, http.StatusNotFound, err.Error())
			return
		}
		s.errorResponse(w, HTTPStatus(&ErrUpstream{Op: "buyer matching run", Cause: err}), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, RunResponse{Status: "completed", Stats: statsFromRun(stats)})
}

// handleRunProperty runs matching for one property against all buyers.
func (s *Server) handleRunProperty(w http.ResponseWriter, r *http.Request) {
	req, err := s.decodeRunRequest(r)
	if err != nil {
		s.errorResponse(w, HTTPStatus(err), err.Error())
		return
	}

	propertyID := r.PathValue("id")
	stats, err := s.runner.RunProperty(r.Context(), propertyID, req.options())
	if err != nil {
		if errors.Is(err, pipeline.ErrNotFound) {
			s.errorResponse(w, http.StatusNotFound, err.Error())
			return
		}
		s.errorResponse(w, HTTPStatus(&ErrUpstream{Op: "property matching run", Cause: err}), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, RunResponse{Status: "completed", Stats: statsFromRun(stats)})
}

// handleListMatches returns every match record for the dashboard.
func (s *Server) handleListMatches(w http.ResponseWriter, r *http.Request) {
	matches, err := s.store.ListMatches(r.Context())
	if err != nil {
		s.errorResponse(w, HTTPStatus(&ErrUpstream{Op: "list matches", Cause: err}), err.Error())
		return
	}
	s.jsonResponse(w, http.StatusOK, map[string]any{
		"count":   len(matches),
		"matches": matches,
	})
}

// handleClearMatches deletes every match record. Destructive; callers must
// send confirm=true.
func (s *Server) handleClearMatches(w http.ResponseWriter, r *http.Request) {
	if r.URL.Query().Get("confirm") != "true" {
		s.errorResponse(w, http.StatusBadRequest, "bulk clear requires confirm=true")
		return
	}

	deleted, err := s.runner.ClearAll(r.Context())
	if err != nil {
		s.errorResponse(w, HTTPStatus(&ErrUpstream{Op: "clear matches", Cause: err}), err.Error())
		return
	}

	s.jsonResponse(w, http.StatusOK, ClearResponse{Status: "cleared", Deleted: deleted})
}

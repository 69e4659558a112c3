package airtable

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient("test-key", "appTESTBASE", &Options{BaseURL: srv.URL})
}

func TestListRecords_SinglePage(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/appTESTBASE/Buyers", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		_ = json.NewEncoder(w).Encode(recordPage{
			Records: []Record{
				{ID: "rec1", Fields: map[string]any{"Name": "Alice"}},
				{ID: "rec2", Fields: map[string]any{"Name": "Bob"}},
			},
		})
	})

	records, err := client.ListRecords(context.Background(), "Buyers")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "rec1", records[0].ID)
	assert.Equal(t, "Alice", records[0].Fields["Name"])
}

func TestListRecords_FollowsOffsetPagination(t *testing.T) {
	var requests []string
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		requests = append(requests, r.URL.Query().Get("offset"))

		page := recordPage{Records: []Record{{ID: fmt.Sprintf("rec%d", len(requests))}}}
		if len(requests) < 3 {
			page.Offset = fmt.Sprintf("off%d", len(requests))
		}
		_ = json.NewEncoder(w).Encode(page)
	})

	records, err := client.ListRecords(context.Background(), "Properties")
	require.NoError(t, err)
	assert.Len(t, records, 3)
	assert.Equal(t, []string{"", "off1", "off2"}, requests)
}

func TestListRecords_APIError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"AUTHENTICATION_REQUIRED"}`))
	})

	_, err := client.ListRecords(context.Background(), "Buyers")
	require.Error(t, err)

	var apiErr *Error
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.StatusCode)
	assert.Equal(t, "Buyers", apiErr.Table)
}

func TestCreateRecords(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var req writeRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Records, 2)
		assert.Empty(t, req.Records[0].ID)

		// Echo the records back with assigned ids.
		resp := recordPage{}
		for i, rec := range req.Records {
			rec.ID = fmt.Sprintf("rec%d", i+1)
			resp.Records = append(resp.Records, rec)
		}
		_ = json.NewEncoder(w).Encode(resp)
	})

	created, err := client.CreateRecords(context.Background(), "Matches", []map[string]any{
		{"Match Score": 85},
		{"Match Score": 40},
	})
	require.NoError(t, err)
	require.Len(t, created, 2)
	assert.Equal(t, "rec1", created[0].ID)
}

func TestCreateRecords_EmptyBatchIsNoop(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected for an empty batch")
	})

	created, err := client.CreateRecords(context.Background(), "Matches", nil)
	assert.NoError(t, err)
	assert.Nil(t, created)
}

func TestCreateRecords_RejectsOversizedBatch(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("oversized batch must be rejected client-side")
	})

	batch := make([]map[string]any, MaxBatchSize+1)
	for i := range batch {
		batch[i] = map[string]any{"Match Score": i}
	}

	_, err := client.CreateRecords(context.Background(), "Matches", batch)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exceeds limit")
}

func TestUpdateRecords(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)

		var req updateRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Len(t, req.Records, 1)
		assert.Equal(t, "rec1", req.Records[0].ID)

		_ = json.NewEncoder(w).Encode(recordPage{
			Records: []Record{{ID: "rec1", Fields: req.Records[0].Fields}},
		})
	})

	updated, err := client.UpdateRecords(context.Background(), "Matches", []RecordUpdate{
		{ID: "rec1", Fields: map[string]any{"Match Score": 92}},
	})
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, "rec1", updated[0].ID)
}

func TestDeleteRecords(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodDelete, r.Method)
		assert.Equal(t, []string{"rec1", "rec2"}, r.URL.Query()["records[]"])
		_, _ = w.Write([]byte(`{"records":[]}`))
	})

	err := client.DeleteRecords(context.Background(), "Matches", []string{"rec1", "rec2"})
	assert.NoError(t, err)
}

func TestDeleteRecords_EmptyBatchIsNoop(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		t.Error("no request expected for an empty batch")
	})

	assert.NoError(t, client.DeleteRecords(context.Background(), "Matches", nil))
}

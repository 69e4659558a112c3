// Package airtable provides a minimal REST client for the Airtable records
// API: paginated listing plus batch create/update/delete capped at the
// API's 10-records-per-request limit.
package airtable

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// DefaultBaseURL is the Airtable API root.
const DefaultBaseURL = "https://api.airtable.com/v0"

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// MaxBatchSize is the Airtable API limit on records per write request.
const MaxBatchSize = 10

// Error represents an error from the Airtable API.
type Error struct {
	Table      string
	StatusCode int
	Message    string
	Cause      error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("airtable error for table %s: %s: %v", e.Table, e.Message, e.Cause)
	}
	return fmt.Sprintf("airtable error for table %s (status %d): %s", e.Table, e.StatusCode, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// Options configures the client.
type Options struct {
	BaseURL string
	Timeout time.Duration
}

// DefaultOptions returns sensible defaults.
func DefaultOptions() *Options {
	return &Options{
		BaseURL: DefaultBaseURL,
		Timeout: DefaultTimeout,
	}
}

// Client talks to one Airtable base.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	baseID     string
}

// NewClient creates a client for the given base using API-key auth.
func NewClient(apiKey, baseID string, opts *Options) *Client {
	if opts == nil {
		opts = DefaultOptions()
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    opts.BaseURL,
		apiKey:     apiKey,
		baseID:     baseID,
	}
}

// Record is one row of an Airtable table: an opaque id plus a flat field map.
type Record struct {
	ID          string         `json:"id,omitempty"`
	Fields      map[string]any `json:"fields"`
	CreatedTime string         `json:"createdTime,omitempty"`
}

// RecordUpdate addresses an existing record for a batch update.
type RecordUpdate struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// recordPage is the wire shape of a list response.
type recordPage struct {
	Records []Record `json:"records"`
	Offset  string   `json:"offset,omitempty"`
}

// writeRequest is the wire shape of create/update requests.
type writeRequest struct {
	Records []Record `json:"records"`
}

type updateRequest struct {
	Records []RecordUpdate `json:"records"`
}

// ListRecords fetches every record of a table, following offset pagination
// until the API stops returning an offset token.
func (c *Client) ListRecords(ctx context.Context, table string) ([]Record, error) {
	var all []Record
	offset := ""
	for {
		page, err := c.listPage(ctx, table, offset)
		if err != nil {
			return nil, err
		}
		all = append(all, page.Records...)
		if page.Offset == "" {
			return all, nil
		}
		offset = page.Offset
	}
}

func (c *Client) listPage(ctx context.Context, table, offset string) (*recordPage, error) {
	endpoint := c.tableURL(table)
	if offset != "" {
		endpoint += "?offset=" + url.QueryEscape(offset)
	}

	body, err := c.do(ctx, http.MethodGet, endpoint, table, nil)
	if err != nil {
		return nil, err
	}

	var page recordPage
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, &Error{Table: table, Message: "failed to decode list response", Cause: err}
	}
	return &page, nil
}

// CreateRecords creates up to MaxBatchSize records in one request and returns
// the created records with their new ids.
func (c *Client) CreateRecords(ctx context.Context, table string, fields []map[string]any) ([]Record, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	if len(fields) > MaxBatchSize {
		return nil, &Error{Table: table, Message: fmt.Sprintf("batch of %d exceeds limit of %d", len(fields), MaxBatchSize)}
	}

	req := writeRequest{Records: make([]Record, 0, len(fields))}
	for _, f := range fields {
		req.Records = append(req.Records, Record{Fields: f})
	}

	body, err := c.doJSON(ctx, http.MethodPost, c.tableURL(table), table, req)
	if err != nil {
		return nil, err
	}

	var resp recordPage
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &Error{Table: table, Message: "failed to decode create response", Cause: err}
	}
	return resp.Records, nil
}

// UpdateRecords patches up to MaxBatchSize existing records in one request.
func (c *Client) UpdateRecords(ctx context.Context, table string, updates []RecordUpdate) ([]Record, error) {
	if len(updates) == 0 {
		return nil, nil
	}
	if len(updates) > MaxBatchSize {
		return nil, &Error{Table: table, Message: fmt.Sprintf("batch of %d exceeds limit of %d", len(updates), MaxBatchSize)}
	}

	body, err := c.doJSON(ctx, http.MethodPatch, c.tableURL(table), table, updateRequest{Records: updates})
	if err != nil {
		return nil, err
	}

	var resp recordPage
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &Error{Table: table, Message: "failed to decode update response", Cause: err}
	}
	return resp.Records, nil
}

// DeleteRecords deletes up to MaxBatchSize records by id in one request.
func (c *Client) DeleteRecords(ctx context.Context, table string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	if len(ids) > MaxBatchSize {
		return &Error{Table: table, Message: fmt.Sprintf("batch of %d exceeds limit of %d", len(ids), MaxBatchSize)}
	}

	query := url.Values{}
	for _, id := range ids {
		query.Add("records[]", id)
	}

	_, err := c.do(ctx, http.MethodDelete, c.tableURL(table)+"?"+query.Encode(), table, nil)
	return err
}

func (c *Client) tableURL(table string) string {
	return fmt.Sprintf("%s/%s/%s", c.baseURL, c.baseID, url.PathEscape(table))
}

func (c *Client) doJSON(ctx context.Context, method, endpoint, table string, payload any) ([]byte, error) {
	encoded, err := json.Marshal(payload)
	if err != nil {
		return nil, &Error{Table: table, Message: "failed to encode request", Cause: err}
	}
	return c.do(ctx, method, endpoint, table, encoded)
}

func (c *Client) do(ctx context.Context, method, endpoint, table string, payload []byte) ([]byte, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return nil, &Error{Table: table, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Table: table, Message: "request failed", Cause: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Table: table, StatusCode: resp.StatusCode, Message: "failed to read response", Cause: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &Error{Table: table, StatusCode: resp.StatusCode, Message: string(body)}
	}
	return body, nil
}

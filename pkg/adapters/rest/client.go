// Package rest provides a core.Remote that talks to the board REST API.
//
// The API layout is the one served by pkg/adapters/httpapi:
//
//	GET    /columns/                     list columns
//	POST   /columns/                     create a column
//	PATCH  /columns/{id}/                partial update
//	DELETE /columns/{id}/                delete, notes cascade
//	PATCH  /columns/reorder/             {"column_ids": [...]}
//	GET    /notes/?column_id=&is_archived=&search=
//	POST   /notes/                       create a note
//	PATCH  /notes/{id}/                  partial update
//	DELETE /notes/{id}/                  delete
//	PATCH  /notes/{id}/move/             {"column_id": ..., "position": ...}
//	PATCH  /notes/{id}/archive/          toggle is_archived
//	PATCH  /notes/reorder/               {"note_ids": [...], "column_id": ...}
//
// List endpoints may answer with a bare array or a paginated
// {"results": [...]} envelope. Non-2xx answers become *core.RemoteError.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/aretw0/noteboard/pkg/core"
)

// DefaultTimeout bounds every request when no http.Client is supplied.
const DefaultTimeout = 30 * time.Second

// Client implements core.Remote and core.Reorderer over HTTP.
// Client instances are safe for concurrent use by multiple goroutines.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
	logger     *slog.Logger
}

var (
	_ core.Remote    = (*Client)(nil)
	_ core.Reorderer = (*Client)(nil)
)

// Option configures a Client.
type Option func(*Client)

// WithToken sets the bearer token sent in the Authorization header.
// Refreshing an expired token is the caller's concern.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// NewClient creates a client for the API rooted at baseURL, for example
// "http://localhost:8000/api". A trailing slash is ignored.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		logger:     slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ComponentType implements introspection.Component.
func (c *Client) ComponentType() string { return "rest" }

// --- Columns ---

func (c *Client) ListColumns(ctx context.Context) ([]core.Column, error) {
	var columns []core.Column
	if err := c.list(ctx, "/columns/", &columns); err != nil {
		return nil, err
	}
	return columns, nil
}

func (c *Client) CreateColumn(ctx context.Context, draft core.ColumnDraft) (core.Column, error) {
	var column core.Column
	err := c.call(ctx, http.MethodPost, "/columns/", draft, &column)
	return column, err
}

func (c *Client) UpdateColumn(ctx context.Context, id core.ColumnID, patch core.ColumnPatch) (core.Column, error) {
	var column core.Column
	err := c.call(ctx, http.MethodPatch, "/columns/"+url.PathEscape(string(id))+"/", patch, &column)
	return column, err
}

func (c *Client) DeleteColumn(ctx context.Context, id core.ColumnID) error {
	return c.call(ctx, http.MethodDelete, "/columns/"+url.PathEscape(string(id))+"/", nil, nil)
}

func (c *Client) ReorderColumns(ctx context.Context, ids []core.ColumnID) error {
	body := struct {
		ColumnIDs []core.ColumnID `json:"column_ids"`
	}{ids}
	return c.call(ctx, http.MethodPatch, "/columns/reorder/", body, nil)
}

// --- Notes ---

func (c *Client) ListNotes(ctx context.Context, filter core.NoteFilter) ([]core.Note, error) {
	path := "/notes/"
	if q := FilterQuery(filter); q != "" {
		path += "?" + q
	}

	var notes []core.Note
	if err := c.list(ctx, path, &notes); err != nil {
		return nil, err
	}
	return notes, nil
}

func (c *Client) CreateNote(ctx context.Context, draft core.NoteDraft) (core.Note, error) {
	var note core.Note
	err := c.call(ctx, http.MethodPost, "/notes/", draft, &note)
	return note, err
}

func (c *Client) UpdateNote(ctx context.Context, id core.NoteID, patch core.NotePatch) (core.Note, error) {
	var note core.Note
	err := c.call(ctx, http.MethodPatch, notePath(id, ""), patch, &note)
	return note, err
}

func (c *Client) DeleteNote(ctx context.Context, id core.NoteID) error {
	return c.call(ctx, http.MethodDelete, notePath(id, ""), nil, nil)
}

func (c *Client) MoveNote(ctx context.Context, id core.NoteID, target core.ColumnID, index int) (core.Note, error) {
	body := MoveRequest{ColumnID: target, Position: &index}
	var note core.Note
	err := c.call(ctx, http.MethodPatch, notePath(id, "move/"), body, &note)
	return note, err
}

func (c *Client) ArchiveNote(ctx context.Context, id core.NoteID) (core.Note, error) {
	var note core.Note
	err := c.call(ctx, http.MethodPatch, notePath(id, "archive/"), nil, &note)
	return note, err
}

func (c *Client) ReorderNotes(ctx context.Context, column core.ColumnID, ids []core.NoteID) error {
	body := struct {
		NoteIDs  []core.NoteID `json:"note_ids"`
		ColumnID core.ColumnID `json:"column_id,omitempty"`
	}{ids, column}
	return c.call(ctx, http.MethodPatch, "/notes/reorder/", body, nil)
}

// MoveRequest is the body of PATCH /notes/{id}/move/.
type MoveRequest struct {
	ColumnID core.ColumnID `json:"column_id"`
	Position *int          `json:"position"`
}

// FilterQuery encodes a note filter as the list query string.
func FilterQuery(f core.NoteFilter) string {
	q := url.Values{}
	if f.ColumnID != "" {
		q.Set("column_id", string(f.ColumnID))
	}
	if f.IsArchived != nil {
		q.Set("is_archived", strconv.FormatBool(*f.IsArchived))
	}
	if f.Search != "" {
		q.Set("search", f.Search)
	}
	return q.Encode()
}

func notePath(id core.NoteID, action string) string {
	return "/notes/" + url.PathEscape(string(id)) + "/" + action
}

// --- Transport ---

// doRequest performs an HTTP request with proper headers.
func (c *Client) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.logger.Debug("remote request", "method", method, "path", path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func (c *Client) call(ctx context.Context, method, path string, body, target any) error {
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	return decodeResponse(resp, target)
}

// list decodes either a bare array or a {"results": [...]} page into target.
func (c *Client) list(ctx context.Context, path string, target any) error {
	var raw json.RawMessage
	if err := c.call(ctx, http.MethodGet, path, nil, &raw); err != nil {
		return err
	}

	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var page struct {
			Results json.RawMessage `json:"results"`
		}
		if err := json.Unmarshal(raw, &page); err != nil {
			return fmt.Errorf("failed to decode page: %w", err)
		}
		raw = page.Results
	}
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("failed to decode list: %w", err)
	}
	return nil
}

// decodeResponse decodes the JSON response into target.
func decodeResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		return &core.RemoteError{Status: resp.StatusCode, Body: strings.TrimSpace(string(body))}
	}

	if target != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}

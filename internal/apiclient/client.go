// Package apiclient talks to the Dennislaw REST API on behalf of console users.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const maxErrorBody = 64 << 10

// Observer receives one notification per API call.
type Observer interface {
	ObserveAPICall(resource, method string, status int, elapsed time.Duration)
}

// Config configures the API client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Observer   Observer
}

// Client wraps the Dennislaw REST API: bearer auth, JSON bodies and the
// "detail" error convention.
type Client struct {
	baseURL  string
	client   *http.Client
	observer Observer
}

// New builds a client for the API rooted at cfg.BaseURL.
func New(cfg Config) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, errors.New("apiclient: base url is required")
	}
	if _, err := url.Parse(base); err != nil {
		return nil, fmt.Errorf("apiclient: parse base url: %w", err)
	}
	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 20 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	return &Client{baseURL: base, client: httpClient, observer: cfg.Observer}, nil
}

type call struct {
	resource    string
	method      string
	path        string
	query       Query
	token       string
	body        io.Reader
	contentType string
}

// send performs the call and returns the response for 2xx statuses. Any other
// status is consumed and returned as *APIError.
func (c *Client) send(ctx context.Context, in call) (*http.Response, error) {
	target := c.baseURL + in.path
	if len(in.query) > 0 {
		target += "?" + in.query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, in.method, target, in.body)
	if err != nil {
		return nil, fmt.Errorf("apiclient: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in.contentType != "" {
		req.Header.Set("Content-Type", in.contentType)
	}
	if in.token != "" {
		req.Header.Set("Authorization", "Bearer "+in.token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	if err != nil {
		c.observe(in, 0, start)
		return nil, fmt.Errorf("apiclient: %s %s: %w", in.method, in.path, err)
	}
	c.observe(in, resp.StatusCode, start)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		defer resp.Body.Close()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, parseError(resp.StatusCode, body)
	}
	return resp, nil
}

func (c *Client) observe(in call, status int, start time.Time) {
	if c.observer == nil {
		return
	}
	c.observer.ObserveAPICall(in.resource, in.method, status, time.Since(start))
}

// doJSON sends payload as JSON (when non-nil) and decodes the body into target
// (when non-nil).
func (c *Client) doJSON(ctx context.Context, in call, payload any, target any) error {
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("apiclient: encode payload: %w", err)
		}
		in.body = bytes.NewReader(data)
		in.contentType = "application/json"
	}
	resp, err := c.send(ctx, in)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if target == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(target); err != nil {
		if errors.Is(err, io.EOF) {
			return nil
		}
		return fmt.Errorf("apiclient: decode %s response: %w", in.resource, err)
	}
	return nil
}

func (c *Client) raw(ctx context.Context, in call) ([]byte, error) {
	resp, err := c.send(ctx, in)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("apiclient: read %s response: %w", in.resource, err)
	}
	return body, nil
}

func adminPath(entity string, parts ...string) string {
	path := "/api/admin/" + url.PathEscape(entity)
	for _, p := range parts {
		path += "/" + url.PathEscape(p)
	}
	return path
}

// List fetches one page of an entity: GET /api/admin/{entity}?page&limit&search&<filters>.
func (c *Client) List(ctx context.Context, token, entity string, q ListQuery) (Page, error) {
	body, err := c.raw(ctx, call{
		resource: entity,
		method:   http.MethodGet,
		path:     adminPath(entity),
		query:    q.Query(),
		token:    token,
	})
	if err != nil {
		return Page{}, err
	}
	return decodePage(body, entity, q)
}

// Stats fetches GET /api/admin/{entity}/stats.
func (c *Client) Stats(ctx context.Context, token, entity string) (Stats, error) {
	body, err := c.raw(ctx, call{
		resource: entity,
		method:   http.MethodGet,
		path:     adminPath(entity, "stats"),
		token:    token,
	})
	if err != nil {
		return nil, err
	}
	return decodeStats(body, entity)
}

// Get fetches a single record.
func (c *Client) Get(ctx context.Context, token, entity, id string) (Record, error) {
	var out Record
	err := c.doJSON(ctx, call{resource: entity, method: http.MethodGet, path: adminPath(entity, id), token: token}, nil, &out)
	return unwrapRecord(out), err
}

// Create posts a new record.
func (c *Client) Create(ctx context.Context, token, entity string, payload any) (Record, error) {
	var out Record
	err := c.doJSON(ctx, call{resource: entity, method: http.MethodPost, path: adminPath(entity), token: token}, payload, &out)
	return unwrapRecord(out), err
}

// Update replaces a record.
func (c *Client) Update(ctx context.Context, token, entity, id string, payload any) (Record, error) {
	var out Record
	err := c.doJSON(ctx, call{resource: entity, method: http.MethodPut, path: adminPath(entity, id), token: token}, payload, &out)
	return unwrapRecord(out), err
}

// Delete removes a record: DELETE /api/admin/{entity}/{id}.
func (c *Client) Delete(ctx context.Context, token, entity, id string) error {
	return c.doJSON(ctx, call{resource: entity, method: http.MethodDelete, path: adminPath(entity, id), token: token}, nil, nil)
}

// SetStatus changes the account status of a record, e.g. activating a user.
func (c *Client) SetStatus(ctx context.Context, token, entity, id, status string) error {
	payload := map[string]string{"status": status}
	return c.doJSON(ctx, call{resource: entity, method: http.MethodPut, path: adminPath(entity, id, "status"), token: token}, payload, nil)
}

// unwrapRecord accepts both bare records and {"data": {...}} style envelopes.
func unwrapRecord(r Record) Record {
	if r == nil || r.ID() != "" {
		return r
	}
	for _, key := range []string{"data", "user", "item", "record"} {
		if nested, ok := r[key].(map[string]any); ok {
			return Record(nested)
		}
	}
	return r
}

package seeder

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/okian/routinerec/internal/domain/model"
	"github.com/okian/routinerec/internal/domain/types"
)

// ErrDuplicate reports a submission rejected for a reused idempotency key.
var ErrDuplicate = errors.New("duplicate submission")

// StatusError is an unexpected HTTP status.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Code, e.Body)
}

// Client talks to the routine service.
type Client struct {
	baseURL  string
	password string
	http     *http.Client
}

// NewClient creates a client. hc may be nil.
func NewClient(baseURL, password string, hc *http.Client) *Client {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &Client{baseURL: baseURL, password: password, http: hc}
}

func (c *Client) do(ctx context.Context, method, path string, body any, header http.Header, want int, out any) error {
	var rd io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.password != "" {
		req.Header.Set("X-Password", c.password)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}
	if resp.StatusCode != want {
		return &StatusError{Method: method, Path: path, Code: resp.StatusCode, Body: string(bytes.TrimSpace(payload))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

// Health checks the metrics endpoint.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, nil, http.StatusOK, nil)
}

// Users lists the roster.
func (c *Client) Users(ctx context.Context) ([]model.User, error) {
	var out []model.User
	err := c.do(ctx, http.MethodGet, "/users", nil, nil, http.StatusOK, &out)
	return out, err
}

// User loads one full record.
func (c *Client) User(ctx context.Context, id string) (model.UserData, error) {
	var out model.UserData
	err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(id), nil, nil, http.StatusOK, &out)
	return out, err
}

// PutRoutine replaces one routine.
func (c *Client) PutRoutine(ctx context.Context, id string, e model.Event, r model.Routine) error {
	body := struct {
		Skills model.Routine `json:"skills"`
	}{Skills: r}
	path := "/users/" + url.PathEscape(id) + "/routines/" + e.String()
	return c.do(ctx, http.MethodPut, path, body, nil, http.StatusOK, nil)
}

// Submit records a submission. A replayed key returns ErrDuplicate.
func (c *Client) Submit(ctx context.Context, id, key string, req types.SubmissionRequest) (model.Submission, error) {
	var h http.Header
	if key != "" {
		h = http.Header{"Idempotency-Key": []string{key}}
	}
	var out model.Submission
	err := c.do(ctx, http.MethodPost, "/users/"+url.PathEscape(id)+"/submissions", req, h, http.StatusCreated, &out)
	var se *StatusError
	if errors.As(err, &se) && se.Code == http.StatusConflict {
		return model.Submission{}, fmt.Errorf("%w: %s", ErrDuplicate, key)
	}
	return out, err
}

// Refresh reloads the aggregation cache.
func (c *Client) Refresh(ctx context.Context) (types.Coverage, error) {
	var out types.Coverage
	err := c.do(ctx, http.MethodPost, "/stats/refresh", nil, nil, http.StatusOK, &out)
	return out, err
}

// Breakdown fetches the per-skill breakdown for one user across all events.
func (c *Client) Breakdown(ctx context.Context, userID string) (types.BreakdownResult, error) {
	var out types.BreakdownResult
	q := url.Values{"user": []string{userID}}
	err := c.do(ctx, http.MethodGet, "/stats/breakdown?"+q.Encode(), nil, nil, http.StatusOK, &out)
	return out, err
}

// Package rest talks to the shelf HTTP API. Every request carries the
// owner id as an explicit filter in addition to the bearer token.
package rest

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

	"github.com/oklog/ulid/v2"

	"github.com/MrSnakeDoc/shelf/internal/domain"
	"github.com/MrSnakeDoc/shelf/internal/utils"
)

// StatusError is a non-2xx API response.
type StatusError struct {
	Status  int
	Code    string
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("http %d", e.Status)
	}
	return fmt.Sprintf("http %d: %s", e.Status, e.Message)
}

// Unwrap maps well-known statuses onto domain sentinels.
func (e *StatusError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusForbidden:
		return domain.ErrForbidden
	default:
		return nil
	}
}

// Create requests are retried on transport failures and gateway errors,
// reusing one Idempotency-Key so the server can replay the first result.
const (
	createAttempts  = 3
	createRetryWait = 250 * time.Millisecond
)

// Client is an HTTP client for the shelf API.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client

	retryWait time.Duration
}

// New creates a Client for baseURL authenticating with token.
func New(baseURL, token string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("failed to parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url must be http or https, got %q", baseURL)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		base:      u,
		token:     token,
		http:      &http.Client{Timeout: timeout},
		retryWait: createRetryWait,
	}, nil
}

// BaseURL returns the server URL.
func (c *Client) BaseURL() *url.URL {
	u := *c.base
	return &u
}

// Token returns the bearer token.
func (c *Client) Token() string { return c.token }

// ─────────────────────────────────────────────────────────────────
// Bookmarks
// ─────────────────────────────────────────────────────────────────

func (c *Client) ListBookmarks(ctx context.Context, userID string) ([]domain.Bookmark, error) {
	var out []domain.Bookmark
	if err := c.do(ctx, http.MethodGet, "/api/bookmarks", userID, nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateBookmark(ctx context.Context, userID string, in domain.BookmarkInput) (domain.Bookmark, error) {
	var out domain.Bookmark
	err := c.create(ctx, "/api/bookmarks", userID, in, &out)
	return out, err
}

func (c *Client) UpdateBookmark(ctx context.Context, userID, id string, in domain.BookmarkInput) (domain.Bookmark, error) {
	var out domain.Bookmark
	err := c.do(ctx, http.MethodPut, "/api/bookmarks/"+url.PathEscape(id), userID, in, "", &out)
	return out, err
}

func (c *Client) DeleteBookmark(ctx context.Context, userID, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/bookmarks/"+url.PathEscape(id), userID, nil, "", nil)
}

type favoriteBody struct {
	IsFavorite bool `json:"is_favorite"`
}

func (c *Client) SetFavorite(ctx context.Context, userID, id string, favorite bool) (domain.Bookmark, error) {
	var out domain.Bookmark
	err := c.do(ctx, http.MethodPatch, "/api/bookmarks/"+url.PathEscape(id)+"/favorite", userID, favoriteBody{IsFavorite: favorite}, "", &out)
	return out, err
}

// ─────────────────────────────────────────────────────────────────
// Collections
// ─────────────────────────────────────────────────────────────────

func (c *Client) ListCollections(ctx context.Context, userID string) ([]domain.Collection, error) {
	var out []domain.Collection
	if err := c.do(ctx, http.MethodGet, "/api/collections", userID, nil, "", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateCollection(ctx context.Context, userID string, in domain.CollectionInput) (domain.Collection, error) {
	var out domain.Collection
	err := c.create(ctx, "/api/collections", userID, in, &out)
	return out, err
}

func (c *Client) UpdateCollection(ctx context.Context, userID, id string, in domain.CollectionInput) (domain.Collection, error) {
	var out domain.Collection
	err := c.do(ctx, http.MethodPut, "/api/collections/"+url.PathEscape(id), userID, in, "", &out)
	return out, err
}

func (c *Client) DeleteCollection(ctx context.Context, userID, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/collections/"+url.PathEscape(id), userID, nil, "", nil)
}

// ─────────────────────────────────────────────────────────────────
// plumbing
// ─────────────────────────────────────────────────────────────────

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code"`
}

// create POSTs body under a single Idempotency-Key for every attempt.
func (c *Client) create(ctx context.Context, path, userID string, body, out any) error {
	key := ulid.Make().String()
	wait := c.retryWait

	var err error
	for attempt := 1; ; attempt++ {
		err = c.do(ctx, http.MethodPost, path, userID, body, key, out)
		if err == nil || attempt == createAttempts || !retryable(err) {
			return err
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
		wait *= 2
	}
}

// retryable reports whether a create may be sent again: the request never
// got an answer, a gateway failed, or the first attempt is still running.
func retryable(err error) bool {
	var serr *StatusError
	if !errors.As(err, &serr) {
		return !errors.Is(err, context.Canceled) && !errors.Is(err, context.DeadlineExceeded)
	}
	switch serr.Status {
	case http.StatusConflict, http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	default:
		return false
	}
}

func (c *Client) do(ctx context.Context, method, path, userID string, body any, idempotencyKey string, out any) error {
	u := c.base.JoinPath(path)
	q := u.Query()
	q.Set("user_id", userID)
	u.RawQuery = q.Encode()

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer utils.Close(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		serr := &StatusError{Status: resp.StatusCode}
		var eb errorBody
		if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&eb); err == nil {
			serr.Code = eb.Code
			serr.Message = eb.Error
		}
		return serr
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}

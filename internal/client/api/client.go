// Package api is a typed client for the workout HTTP API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dmitrijs2005/workout/internal/common"
	"github.com/google/uuid"
)

var (
	// ErrUnauthorized is returned for 401 responses: a missing, expired or
	// rejected token.
	ErrUnauthorized = fmt.Errorf("%w: unauthorized", common.ErrAuthentication)
	// ErrNotFound is returned for 404 responses.
	ErrNotFound = fmt.Errorf("%w: message not found", common.ErrNotFound)
)

// APIError is any other non-2xx response.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("api error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("api error: %d: %s", e.StatusCode, e.Detail)
}

type Health struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

type User struct {
	ID         int64   `json:"id"`
	Email      *string `json:"email"`
	CognitoSub string  `json:"cognito_sub"`
}

type Message struct {
	ID        int64     `json:"id"`
	Text      string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

type Client struct {
	baseURL *url.URL
	http    *http.Client
	token   string
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) { cl.http = c }
}

func WithToken(token string) Option {
	return func(cl *Client) { cl.token = token }
}

// New returns a client for the API rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q: scheme must be http or https", baseURL)
	}

	c := &Client{baseURL: u, http: &http.Client{Timeout: 10 * time.Second}}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// SetToken replaces the bearer token sent with authenticated calls.
func (c *Client) SetToken(token string) { c.token = token }

func (c *Client) HasToken() bool { return c.token != "" }

func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, "/", nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

func (c *Client) Me(ctx context.Context) (*User, error) {
	var u User
	if err := c.do(ctx, http.MethodGet, "/auth/me", nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) CreateMessage(ctx context.Context, text string) (*Message, error) {
	var m Message
	body := struct {
		Message string `json:"message"`
	}{Message: text}
	if err := c.do(ctx, http.MethodPost, "/messages", body, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

// ListMessages returns the caller's messages, newest first.
func (c *Client) ListMessages(ctx context.Context) ([]Message, error) {
	var resp struct {
		Messages []Message `json:"messages"`
	}
	if err := c.do(ctx, http.MethodGet, "/messages", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Messages, nil
}

func (c *Client) DeleteMessage(ctx context.Context, id int64) error {
	var resp struct {
		Deleted bool  `json:"deleted"`
		ID      int64 `json:"id"`
	}
	if err := c.do(ctx, http.MethodDelete, "/messages/"+strconv.FormatInt(id, 10), nil, &resp); err != nil {
		return err
	}
	if !resp.Deleted {
		return fmt.Errorf("message %d was not deleted", id)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(common.RequestIDHeaderName, uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	var e struct {
		Detail string `json:"detail"`
	}
	b, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err := json.Unmarshal(b, &e); err != nil {
		e.Detail = strings.TrimSpace(string(b))
	}

	switch resp.StatusCode {
	case http.StatusUnauthorized:
		if e.Detail != "" {
			return fmt.Errorf("%w: %s", ErrUnauthorized, e.Detail)
		}
		return ErrUnauthorized
	case http.StatusNotFound:
		return ErrNotFound
	}
	return &APIError{StatusCode: resp.StatusCode, Detail: e.Detail}
}

// IsAPIError reports whether err is an *APIError with the given status.
func IsAPIError(err error, status int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == status
}

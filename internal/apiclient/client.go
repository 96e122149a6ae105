// Package apiclient talks to the Khutwa platform REST API. Every request is
// decorated with the session's bearer token, and any 401 answer logs the
// session out before the error reaches the caller.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"github.com/khutwa-dev/khutwa/internal/guard"
	"github.com/khutwa-dev/khutwa/internal/models"
)

// DefaultBaseURL is the production platform API
const DefaultBaseURL = "https://education-scj0.onrender.com/api"

// LoginFailedMessage is shown when the server rejects a login without saying why
const LoginFailedMessage = "Login failed. Check your credentials."

var (
	ErrUnauthorized = errors.New("unauthorized")
	ErrNotFound     = errors.New("not found")
)

// Error is a non-2xx answer from the platform API
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("request failed (status %d)", e.StatusCode)
	}
	return fmt.Sprintf("%s (status %d)", e.Message, e.StatusCode)
}

// Is lets errors.Is match ErrUnauthorized and ErrNotFound by status code
func (e *Error) Is(target error) bool {
	switch target {
	case ErrUnauthorized:
		return e.StatusCode == http.StatusUnauthorized
	case ErrNotFound:
		return e.StatusCode == http.StatusNotFound
	}
	return false
}

// Session is the part of the session store the client reads and clears
type Session interface {
	Token() (string, bool)
	ClearSession() error
}

// Navigator moves the user to another route after a forced logout
type Navigator interface {
	Location() string
	Redirect(path string)
}

// Client represents an HTTP client for the platform API
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    Session
	navigator  Navigator
	logger     zerolog.Logger
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithNavigator sets where the client sends the user after a 401
func WithNavigator(n Navigator) Option {
	return func(c *Client) {
		c.navigator = n
	}
}

// WithLogger sets the client logger
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) {
		c.logger = logger.With().Str("component", "apiclient").Logger()
	}
}

// New creates a new API client
func New(baseURL string, session Session, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		session: session,
		logger:  zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithNavigator returns a copy of the client that redirects through n. The
// web console uses one copy per request so each tab sees its own redirect.
func (c *Client) WithNavigator(n Navigator) *Client {
	cp := *c
	cp.navigator = n
	return &cp
}

// BaseURL returns the API root the client talks to
func (c *Client) BaseURL() string {
	return c.baseURL
}

// LoginRequest represents the login request body
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse represents the login response
type LoginResponse struct {
	Token string          `json:"token"`
	User  models.Identity `json:"user"`
}

// Login authenticates against the platform. It does not touch the session
// and a rejected login is never treated as an expired session.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	reqBody := LoginRequest{
		Email:    strings.TrimSpace(email),
		Password: password,
	}

	var loginResp LoginResponse
	err := c.send(ctx, request{
		method:    http.MethodPost,
		path:      "/auth/login",
		body:      reqBody,
		out:       &loginResp,
		anonymous: true,
	})
	if err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.Message == "" {
			apiErr.Message = LoginFailedMessage
		}
		return nil, err
	}
	if loginResp.Token == "" {
		return nil, &Error{StatusCode: http.StatusOK, Message: LoginFailedMessage}
	}

	return &loginResp, nil
}

type request struct {
	method string
	path   string
	body   any
	// contentType overrides JSON encoding; body must then be an io.Reader
	contentType string
	out         any
	// anonymous requests carry no token and skip the 401 logout
	anonymous bool
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	return c.send(ctx, request{method: method, path: path, body: body, out: out})
}

func (c *Client) send(ctx context.Context, r request) error {
	var reader io.Reader
	contentType := r.contentType
	switch {
	case r.body == nil:
	case contentType != "":
		rd, ok := r.body.(io.Reader)
		if !ok {
			return fmt.Errorf("body for %s must be a reader", contentType)
		}
		reader = rd
	default:
		jsonData, err := json.Marshal(r.body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(jsonData)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, r.method, c.url(r.path), reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", ulid.Make().String())
	if !r.anonymous && c.session != nil {
		if token, ok := c.session.Token(); ok {
			req.Header.Set("Authorization", fmt.Sprintf("Bearer %s", token))
		}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		apiErr := &Error{
			StatusCode: resp.StatusCode,
			Message:    errorMessage(body),
		}
		if resp.StatusCode == http.StatusUnauthorized && !r.anonymous {
			c.forceLogout(r.method, r.path)
		}
		return apiErr
	}

	if r.out == nil {
		return nil
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, r.out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// url joins path onto the base URL; relative and absolute paths both resolve
// under the API root
func (c *Client) url(path string) string {
	return c.baseURL + "/" + strings.TrimLeft(path, "/")
}

// forceLogout clears the session and sends the user to the login route
// unless they are already there
func (c *Client) forceLogout(method, path string) {
	c.logger.Warn().
		Str("method", method).
		Str("path", path).
		Msg("Session rejected by API, logging out")

	if c.session != nil {
		if err := c.session.ClearSession(); err != nil {
			c.logger.Error().Err(err).Msg("Failed to clear session after 401")
		}
	}
	if c.navigator != nil && c.navigator.Location() != guard.LoginPath {
		c.navigator.Redirect(guard.LoginPath)
	}
}

// errorMessage pulls the human readable message out of an error body
func errorMessage(body []byte) string {
	var payload struct {
		Message string `json:"message"`
		Error   string `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if payload.Message != "" {
		return payload.Message
	}
	return payload.Error
}

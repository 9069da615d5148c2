// Package rest implements the outbound AuthAPI port over the task service's
// REST contract, plus the request interceptor that tags outgoing activity.
package rest

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/TanmoySin/sessionguard/internal/domain/auth"
	"github.com/TanmoySin/sessionguard/internal/port/outbound"
)

// DefaultTimeout bounds each request to the auth endpoints.
const DefaultTimeout = 10 * time.Second

// Client talks to the auth endpoints of the task service. Credentials are not
// held here: the ActivityTransport wrapped into the http.Client attaches them
// from the session store on every request.
type Client struct {
	baseURL    string
	timeout    time.Duration
	httpClient *http.Client
	logger     *slog.Logger
	tracer     trace.Tracer
}

// Option is a functional option for configuring a Client.
type Option func(*Client)

// WithHTTPClient sets a custom http.Client. In production this carries the
// ActivityTransport; tests may inject an httptest client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithTimeout sets the per-request timeout. Defaults to DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		c.timeout = d
	}
}

// WithLogger sets the logger. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		c.logger = l
	}
}

// NewClient creates a REST client for the given base URL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		timeout: DefaultTimeout,
		logger:  slog.Default(),
		tracer:  otel.Tracer("sessionguard/rest"),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = &http.Client{}
	}
	return c
}

// Wire types. The server speaks camelCase JSON; missing optional fields decode
// to their zero values rather than being guessed at.

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type userPayload struct {
	ID    string `json:"id"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

type loginResponse struct {
	Credential string      `json:"credential"`
	SessionID  string      `json:"sessionId"`
	User       userPayload `json:"user"`
}

type statusResponse struct {
	IsActive            bool  `json:"isActive"`
	IdleTimeRemainingMs int64 `json:"idleTimeRemainingMs"`
	ShouldWarn          bool  `json:"shouldWarn"`
}

// Login authenticates with email and password.
func (c *Client) Login(ctx context.Context, creds outbound.Credentials) (outbound.LoginResult, error) {
	ctx, span := c.tracer.Start(ctx, "auth.login")
	defer span.End()

	var resp loginResponse
	err := c.doRequest(ctx, http.MethodPost, "/auth/login", loginRequest{
		Email:    creds.Email,
		Password: creds.Password,
	}, &resp)
	if err != nil {
		span.RecordError(err)
		return outbound.LoginResult{}, err
	}

	if resp.Credential == "" || resp.SessionID == "" {
		return outbound.LoginResult{}, errors.New("login response missing credential or session id")
	}
	role := auth.Role(resp.User.Role)
	if !role.IsValid() {
		return outbound.LoginResult{}, fmt.Errorf("login response carries unknown role %q", resp.User.Role)
	}

	return outbound.LoginResult{
		User: auth.User{
			ID:    resp.User.ID,
			Email: resp.User.Email,
			Name:  resp.User.Name,
			Role:  role,
		},
		Credential: resp.Credential,
		SessionID:  resp.SessionID,
	}, nil
}

// SessionStatus fetches the server's authoritative session state.
func (c *Client) SessionStatus(ctx context.Context) (outbound.SessionStatus, error) {
	ctx, span := c.tracer.Start(ctx, "auth.session_status")
	defer span.End()

	var resp statusResponse
	if err := c.doRequest(ctx, http.MethodGet, "/auth/session-status", nil, &resp); err != nil {
		span.RecordError(err)
		return outbound.SessionStatus{}, err
	}

	status := outbound.SessionStatus{
		Active:        resp.IsActive,
		IdleRemaining: time.Duration(resp.IdleTimeRemainingMs) * time.Millisecond,
		ShouldWarn:    resp.ShouldWarn,
	}
	span.SetAttributes(
		attribute.Bool("session.active", status.Active),
		attribute.Int64("session.idle_remaining_ms", resp.IdleTimeRemainingMs),
	)
	return status, nil
}

// Ping issues a lightweight authenticated request so the server observes
// activity. The response body is ignored.
func (c *Client) Ping(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "auth.ping")
	defer span.End()

	if err := c.doRequest(ctx, http.MethodPost, "/auth/ping", nil, nil); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// Logout invalidates the session server-side.
func (c *Client) Logout(ctx context.Context) error {
	ctx, span := c.tracer.Start(ctx, "auth.logout")
	defer span.End()

	if err := c.doRequest(ctx, http.MethodPost, "/auth/logout", nil, nil); err != nil {
		span.RecordError(err)
		return err
	}
	return nil
}

// doRequest performs an HTTP request against the task service.
func (c *Client) doRequest(ctx context.Context, method, path string, body, result any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return &UnreachableError{Cause: err}
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return &APIError{
			Status: httpResp.StatusCode,
			Body:   strings.TrimSpace(string(respBody)),
		}
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("unmarshal response: %w", err)
		}
	}
	return nil
}

// Compile-time interface verification.
var _ outbound.AuthAPI = (*Client)(nil)

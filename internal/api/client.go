// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the remote chat agent API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"time"

	"github.com/jeranaias/querychat-tui/internal/model"
)

// =============================================================================
// ERROR TYPES
// =============================================================================

// ClientError represents an error from the chat API client.
type ClientError struct {
	Type    ErrorType
	Message string
	Cause   error
}

func (e *ClientError) Error() string {
	if e.Cause != nil {
		return e.Message + ": " + e.Cause.Error()
	}
	return e.Message
}

func (e *ClientError) Unwrap() error {
	return e.Cause
}

// ErrorType categorizes client errors for handling.
type ErrorType int

const (
	ErrTypeUnknown ErrorType = iota
	ErrTypeConnection
	ErrTypeTimeout
	ErrTypeCanceled
	ErrTypeNotFound
	ErrTypeServer
	ErrTypeInvalidResponse
)

// Sentinel errors for easy checking.
var (
	ErrUnreachable = &ClientError{Type: ErrTypeConnection, Message: "chat API is not reachable"}
	ErrTimeout     = &ClientError{Type: ErrTypeTimeout, Message: "request timed out"}
	ErrCanceled    = &ClientError{Type: ErrTypeCanceled, Message: "request canceled"}
	ErrNotFound    = &ClientError{Type: ErrTypeNotFound, Message: "endpoint not found"}
)

// Is lets errors.Is match sentinel ClientErrors by type.
func (e *ClientError) Is(target error) bool {
	t, ok := target.(*ClientError)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// IsConnectionError reports whether an error indicates the server is
// unreachable. Connection errors flip the global API status to
// disconnected; timeouts and HTTP-level failures do not.
func IsConnectionError(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeConnection
	}
	return false
}

// IsTimeout reports whether an error is a timeout.
func IsTimeout(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeTimeout
	}
	return false
}

// IsCanceled reports whether an error is a caller-canceled request. A
// cancel says nothing about server health: it is not a connection error
// and must not flip API status.
func IsCanceled(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeCanceled
	}
	return false
}

// IsNotFound reports whether an error is an HTTP 404.
func IsNotFound(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeNotFound
	}
	return false
}

// IsServerError reports whether an error is an HTTP 5xx.
func IsServerError(err error) bool {
	var clientErr *ClientError
	if errors.As(err, &clientErr) {
		return clientErr.Type == ErrTypeServer
	}
	return false
}

// UserMessage maps a send failure to the bot text shown in the transcript.
// Send failures are never surfaced as faults; they resolve the placeholder
// with one of these messages.
func UserMessage(err error) string {
	const prefix = "Sorry — I couldn't process that. "
	switch {
	case IsCanceled(err):
		return "Request canceled."
	case IsConnectionError(err):
		return prefix + "The server appears to be offline."
	case IsNotFound(err):
		return prefix + "Endpoint not found (404). Check the API URL."
	case IsServerError(err):
		return prefix + "Server error (500). Check the server logs."
	default:
		return prefix + "Try again."
	}
}

// =============================================================================
// CLIENT CONFIGURATION
// =============================================================================

// ClientConfig holds configuration options for the chat API client.
type ClientConfig struct {
	// BaseURL is the chat API base URL (default: http://127.0.0.1:8000)
	BaseURL string

	// ProbeTimeout bounds the connectivity probe (default: 5s)
	ProbeTimeout time.Duration

	// EnsureTimeout bounds the session-ensure call (default: 10s)
	EnsureTimeout time.Duration

	// HistoryTimeout bounds the history fetch (default: 10s)
	HistoryTimeout time.Duration

	// ChatTimeout bounds a chat send; generation can be slow (default: 120s)
	ChatTimeout time.Duration
}

// DefaultConfig returns the default client configuration.
func DefaultConfig() *ClientConfig {
	return &ClientConfig{
		BaseURL:        "http://127.0.0.1:8000",
		ProbeTimeout:   5 * time.Second,
		EnsureTimeout:  10 * time.Second,
		HistoryTimeout: 10 * time.Second,
		ChatTimeout:    120 * time.Second,
	}
}

// =============================================================================
// CLIENT
// =============================================================================

// Client handles communication with the chat agent API.
//
// The Client is safe for concurrent use.
type Client struct {
	config     *ClientConfig
	httpClient *http.Client
}

// NewClient creates a new client with default configuration.
func NewClient() *Client {
	return NewClientWithConfig(DefaultConfig())
}

// NewClientWithConfig creates a new client with custom configuration.
func NewClientWithConfig(config *ClientConfig) *Client {
	if config == nil {
		config = DefaultConfig()
	}

	// Fill in defaults for any zero values
	if config.BaseURL == "" {
		config.BaseURL = "http://127.0.0.1:8000"
	}
	if config.ProbeTimeout == 0 {
		config.ProbeTimeout = 5 * time.Second
	}
	if config.EnsureTimeout == 0 {
		config.EnsureTimeout = 10 * time.Second
	}
	if config.HistoryTimeout == 0 {
		config.HistoryTimeout = 10 * time.Second
	}
	if config.ChatTimeout == 0 {
		config.ChatTimeout = 120 * time.Second
	}

	return &Client{
		config: config,
		// Timeouts are applied per operation via context; the transport
		// itself carries none.
		httpClient: &http.Client{},
	}
}

// GetConfig returns the client configuration.
func (c *Client) GetConfig() *ClientConfig {
	return c.config
}

// BaseURL returns the configured API base URL.
func (c *Client) BaseURL() string {
	return c.config.BaseURL
}

// =============================================================================
// CONNECTIVITY PROBE
// =============================================================================

// ProbeConnectivity checks whether the chat API is reachable. Any 2xx
// response counts as success. The result gates whether sends are attempted.
func (c *Client) ProbeConnectivity(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, c.config.ProbeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.config.BaseURL+"/debug/db-test", nil)
	if err != nil {
		return false
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// =============================================================================
// SESSION ENSURE
// =============================================================================

type ensureRequest struct {
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// EnsureSession upserts a session on the remote side. The call is
// best-effort and idempotent; callers treat a false return as non-fatal.
func (c *Client) EnsureSession(ctx context.Context, userID, sessionID string) bool {
	ctx, cancel := context.WithTimeout(ctx, c.config.EnsureTimeout)
	defer cancel()

	body, err := json.Marshal(ensureRequest{UserID: userID, SessionID: sessionID})
	if err != nil {
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/sessions/ensure", bytes.NewReader(body))
	if err != nil {
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300
}

// =============================================================================
// HISTORY FETCH
// =============================================================================

type historyResponse struct {
	Messages []model.Message `json:"messages"`
}

// FetchHistory retrieves the server-side history for a session. On any
// failure (network, non-2xx, malformed body) it returns a non-nil error;
// a nil error with an empty slice means the server has nothing yet. The
// two cases merge differently.
func (c *Client) FetchHistory(ctx context.Context, userID, sessionID string) ([]model.Message, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.HistoryTimeout)
	defer cancel()

	endpoint := c.config.BaseURL + "/history/" + url.PathEscape(userID) + "/" + url.PathEscape(sessionID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError("history fetch failed", resp.StatusCode)
	}

	var result historyResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode history", Cause: err}
	}

	if result.Messages == nil {
		return []model.Message{}, nil
	}
	return result.Messages, nil
}

// =============================================================================
// CHAT SEND
// =============================================================================

type chatRequest struct {
	UserQuery string `json:"user_query"`
	UserID    string `json:"user_id"`
	SessionID string `json:"session_id"`
}

// ChatResponse is the wire shape of a chat reply. Servers differ in which
// field carries the answer; Text() resolves them in priority order.
type ChatResponse struct {
	Response string `json:"response,omitempty"`
	Result   string `json:"result,omitempty"`
	Answer   string `json:"answer,omitempty"`
}

// Text returns the reply text: first present of response, result, answer,
// else a fallback literal.
func (r *ChatResponse) Text() string {
	switch {
	case r.Response != "":
		return r.Response
	case r.Result != "":
		return r.Result
	case r.Answer != "":
		return r.Answer
	default:
		return "No response"
	}
}

// SendChat submits a user query and returns the reply text. Failures come
// back classified; use UserMessage to turn one into transcript text.
func (c *Client) SendChat(ctx context.Context, userID, sessionID, query string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, c.config.ChatTimeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{UserQuery: query, UserID: userID, SessionID: sessionID})
	if err != nil {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to marshal request", Cause: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.config.BaseURL+"/chat", bytes.NewReader(body))
	if err != nil {
		return "", &ClientError{Type: ErrTypeConnection, Message: "failed to create request", Cause: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", transportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", statusError("chat request failed", resp.StatusCode)
	}

	var result ChatResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", &ClientError{Type: ErrTypeInvalidResponse, Message: "failed to decode response", Cause: err}
	}

	return result.Text(), nil
}

// =============================================================================
// HELPERS
// =============================================================================

// transportError classifies a round-trip failure. Cancellation is checked
// before the deadline: a canceled context is a caller decision, not
// evidence the server is down.
func transportError(err error) *ClientError {
	switch {
	case errors.Is(err, context.Canceled):
		return ErrCanceled
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	default:
		return ErrUnreachable
	}
}

// statusError classifies a non-2xx response.
func statusError(op string, status int) *ClientError {
	switch {
	case status == http.StatusNotFound:
		return ErrNotFound
	case status >= 500:
		return &ClientError{Type: ErrTypeServer, Message: op + ": " + http.StatusText(status)}
	default:
		return &ClientError{Type: ErrTypeInvalidResponse, Message: op + ": " + http.StatusText(status)}
	}
}

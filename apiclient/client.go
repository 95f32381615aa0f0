// Package apiclient is a typed HTTP client for the intranet authentication
// API. It knows the backend's response envelope and error codes and converts
// every failure into an APIError so callers never have to inspect HTTP
// details themselves.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-intranet-client/users"
)

const (
	loginPath  = "/api/auth/login"
	verifyPath = "/api/auth/verify"
	logoutPath = "/api/auth/logout"
	healthPath = "/api/auth/health"

	defaultTimeout = 15 * time.Second
)

// Credentials is the login request payload. Field names follow the wire
// contract.
type Credentials struct {
	UserCode  string `json:"cdUsuario"`
	Password  string `json:"password"`
	CompanyID int    `json:"cdMultiEmpresa"`
}

// LoginResult is a successful login response.
type LoginResult struct {
	Token string     `json:"token"`
	User  users.User `json:"user"`
}

// Health is the backend's self-reported health.
type Health struct {
	Status    string `json:"status"`
	Database  string `json:"database,omitempty"`
	Timestamp string `json:"timestamp"`
}

// envelope is the uniform response wrapper used by every auth endpoint.
type envelope struct {
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	ErrorCode string          `json:"error_code"`
}

// Client calls the intranet authentication API.
type Client struct {
	baseURL    string
	httpClient *http.Client
	log        zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client (primarily for tests
// and custom TLS setups).
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

// WithLogger sets the request logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) {
		c.log = log
	}
}

// New creates a Client for the API rooted at baseURL.
func New(baseURL string, options ...Option) (*Client, error) {
	if strings.TrimSpace(baseURL) == "" {
		return nil, errors.New("[apiclient.New] baseURL is required")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        zerolog.Nop(),
	}
	for _, opt := range options {
		opt(c)
	}
	return c, nil
}

// Login exchanges credentials for a bearer token and the user record.
func (c *Client) Login(ctx context.Context, creds Credentials) (*LoginResult, error) {
	env, status, err := c.do(ctx, http.MethodPost, loginPath, creds, "")
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, loginError(status, env)
	}

	var result LoginResult
	if err := json.Unmarshal(env.Data, &result); err != nil {
		return nil, &APIError{Kind: KindServer, Message: "resposta inesperada do servidor"}
	}
	if result.Token == "" {
		return nil, &APIError{Kind: KindServer, Message: "resposta de login sem token"}
	}
	return &result, nil
}

// Verify checks the token against the backend and returns the backend's
// current view of the user.
func (c *Client) Verify(ctx context.Context, token string) (*users.User, error) {
	env, status, err := c.do(ctx, http.MethodPost, verifyPath, nil, token)
	if err != nil {
		return nil, err
	}
	if !env.Success {
		return nil, verifyError(status, env)
	}

	var data struct {
		Valid bool       `json:"valid"`
		User  users.User `json:"user"`
	}
	if err := json.Unmarshal(env.Data, &data); err != nil || !data.Valid {
		return nil, &APIError{Kind: KindTokenInvalid, Code: CodeInvalidToken, Message: env.Message}
	}
	return &data.User, nil
}

// Logout notifies the backend that the token is being abandoned. The backend
// treats this as advisory; so do we.
func (c *Client) Logout(ctx context.Context, token string) error {
	env, status, err := c.do(ctx, http.MethodPost, logoutPath, nil, token)
	if err != nil {
		return err
	}
	if !env.Success {
		return serverError(status, env)
	}
	return nil
}

// HealthCheck reports whether the backend (and its database) is reachable.
func (c *Client) HealthCheck(ctx context.Context) (*Health, error) {
	req, err := c.newRequest(ctx, http.MethodGet, healthPath, nil, "")
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Kind: KindNetwork, Message: err.Error()}
	}
	defer resp.Body.Close() // nolint: errcheck

	var health Health
	if err := json.NewDecoder(resp.Body).Decode(&health); err != nil {
		return nil, &APIError{Kind: KindServer, Message: "resposta inesperada do servidor"}
	}
	return &health, nil
}

// do performs a request and decodes the standard envelope. A non-nil error
// is always an *APIError; HTTP status handling is left to the caller since
// the same status maps to different kinds per endpoint.
func (c *Client) do(ctx context.Context, method, path string, body any, token string) (*envelope, int, error) {
	req, err := c.newRequest(ctx, method, path, body, token)
	if err != nil {
		return nil, 0, err
	}

	started := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Debug().Err(err).Str("path", path).Msg("auth API request failed")
		return nil, 0, &APIError{Kind: KindNetwork, Message: err.Error()}
	}
	defer resp.Body.Close() // nolint: errcheck

	c.log.Debug().
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(started)).
		Msg("auth API request")

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, &APIError{Kind: KindNetwork, Message: err.Error()}
	}

	env := &envelope{}
	if err := json.Unmarshal(data, env); err != nil {
		// Not the standard envelope: a proxy error page or similar.
		return nil, resp.StatusCode, &APIError{
			Kind:    KindServer,
			Message: fmt.Sprintf("resposta inesperada do servidor (HTTP %d)", resp.StatusCode),
		}
	}
	return env, resp.StatusCode, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, body any, token string) (*http.Request, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, &APIError{Kind: KindValidation, Message: err.Error()}
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, &APIError{Kind: KindValidation, Message: err.Error()}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return req, nil
}

func loginError(status int, env *envelope) error {
	switch {
	case status == http.StatusBadRequest:
		return &APIError{Kind: KindValidation, Code: env.ErrorCode, Message: env.Message}
	case status == http.StatusUnauthorized:
		return &APIError{Kind: KindCredentials, Code: env.ErrorCode, Message: env.Message}
	default:
		return serverError(status, env)
	}
}

func verifyError(status int, env *envelope) error {
	if status == http.StatusUnauthorized {
		return &APIError{Kind: KindTokenInvalid, Code: env.ErrorCode, Message: env.Message}
	}
	return serverError(status, env)
}

func serverError(status int, env *envelope) error {
	code := env.ErrorCode
	if code == "" && status >= http.StatusInternalServerError {
		code = CodeServerError
	}
	return &APIError{Kind: KindServer, Code: code, Message: env.Message}
}

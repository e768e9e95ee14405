// Package apiclient calls the JSON action endpoints from a client process.
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

	"github.com/teamhub/teamhub/internal/session"
)

// Client posts actions to a teamhub server.
type Client struct {
	baseURL string
	http    *http.Client
}

// New constructs a Client for baseURL, e.g. https://app.example.com.
func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), http: httpClient}
}

// Error is an {"error": ...} response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("apiclient: %d: %s", e.Status, e.Message)
}

// Call posts action with params to endpoint ("auth", "signup" or "settings")
// and decodes the response into out.
func (c *Client) Call(ctx context.Context, endpoint, action, token string, params map[string]any, out any) error {
	body := map[string]any{"action": action}
	for key, value := range params {
		body[key] = value
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("apiclient: encode: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/"+endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("apiclient: request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("apiclient: %s: %w", action, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("apiclient: read %s: %w", action, err)
	}
	if resp.StatusCode >= http.StatusBadRequest {
		var failure struct {
			Error string `json:"error"`
		}
		_ = json.Unmarshal(data, &failure)
		if failure.Error == "" {
			failure.Error = http.StatusText(resp.StatusCode)
		}
		return &Error{Status: resp.StatusCode, Message: failure.Error}
	}
	if out == nil {
		return nil
	}
	if err = json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("apiclient: decode %s: %w", action, err)
	}
	return nil
}

// FetchUser implements session.UserFetcher with the getUser action. A 401
// maps to session.ErrUnauthorized.
func (c *Client) FetchUser(ctx context.Context, token string) (*session.User, error) {
	var resp struct {
		User *session.User `json:"user"`
	}
	if err := c.Call(ctx, "auth", "getUser", token, nil, &resp); err != nil {
		var apiErr *Error
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			return nil, fmt.Errorf("%w: %s", session.ErrUnauthorized, apiErr.Message)
		}
		return nil, err
	}
	if resp.User == nil {
		return nil, fmt.Errorf("apiclient: getUser returned no user")
	}
	return resp.User, nil
}

// LoginResult is the login action response.
type LoginResult struct {
	User  *session.User `json:"user"`
	Token string        `json:"token"`
}

// Login runs the password step.
func (c *Client) Login(ctx context.Context, teamSlug, username, password string) (*LoginResult, error) {
	var out LoginResult
	err := c.Call(ctx, "auth", "login", "", map[string]any{
		"team_slug": teamSlug,
		"username":  username,
		"password":  password,
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// VerificationResult is returned by actions that complete a 2FA step.
type VerificationResult struct {
	Valid      bool   `json:"valid"`
	Token      string `json:"token"`
	VerifiedAt int64  `json:"verified_at"`
}

// VerifiedTime converts VerifiedAt from milliseconds.
func (r *VerificationResult) VerifiedTime() time.Time {
	return time.UnixMilli(r.VerifiedAt)
}

// VerifyPIN runs the PIN step. Valid is false for a wrong PIN.
func (c *Client) VerifyPIN(ctx context.Context, token, pin string) (*VerificationResult, error) {
	var out VerificationResult
	if err := c.Call(ctx, "auth", "verifyPIN", token, map[string]any{"pin": pin}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

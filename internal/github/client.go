// Package github verifies claimed GitHub identities against the GitHub API.
package github

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// ErrUserNotFound is returned when the username does not exist.
var ErrUserNotFound = errors.New("github user not found")

// UserProfile is the subset of the GitHub user payload the saga records.
type UserProfile struct {
	Login     string `json:"login"`
	AvatarURL string `json:"avatar_url"`
	HTMLURL   string `json:"html_url"`
}

// Client performs a single best-effort lookup per verification; retries are
// the saga's concern and it deliberately performs none.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        *slog.Logger
}

func NewClient(token string, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL:    "https://api.github.com",
		token:      token,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		log:        log,
	}
}

// NewClientWithBaseURL is used by tests to point the client at a stub server.
func NewClientWithBaseURL(baseURL, token string, log *slog.Logger) *Client {
	c := NewClient(token, log)
	c.baseURL = baseURL
	return c
}

// FetchUser resolves a username to its public profile. A 404 yields
// ErrUserNotFound; any other non-200 status or transport failure is an
// error. Callers treat both as a failed verification.
func (c *Client) FetchUser(ctx context.Context, username string) (*UserProfile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/users/"+username, nil)
	if err != nil {
		return nil, fmt.Errorf("build github request: %w", err)
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	req.Header.Set("X-GitHub-Api-Version", "2022-11-28")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.Error("github user lookup failed", "username", username, "error", err)
		return nil, fmt.Errorf("github request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var profile UserProfile
		if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
			return nil, fmt.Errorf("decode github response: %w", err)
		}
		return &profile, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrUserNotFound
	default:
		c.log.Error("github user lookup returned unexpected status",
			"username", username, "status", resp.StatusCode)
		return nil, fmt.Errorf("github returned status %d", resp.StatusCode)
	}
}

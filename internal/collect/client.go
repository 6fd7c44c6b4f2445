// Package collect pulls a player profile from the Hack The Box v4 API,
// keeps the raw responses in a bbolt store, and turns them into the flat
// dataset that badge templates bind against.
package collect

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const maxResponseBytes = 5 << 20

// Endpoint is one API call whose response becomes part of the dataset.
type Endpoint struct {
	Name string
	URL  string
}

// UserEndpoints lists the profile endpoints for a user, in dataset order.
// The first entry is the profile itself.
func UserEndpoints(apiURL, userID string) []Endpoint {
	api := strings.TrimRight(apiURL, "/")
	return []Endpoint{
		{"user", fmt.Sprintf("%s/profile/%s", api, userID)},
		{"user_machines", fmt.Sprintf("%s/profile/chart/machines/attack/%s", api, userID)},
		{"user_os", fmt.Sprintf("%s/profile/progress/machines/os/%s", api, userID)},
		{"user_challenges", fmt.Sprintf("%s/profile/progress/challenges/%s", api, userID)},
		{"user_fortresses", fmt.Sprintf("%s/profile/progress/fortress/%s", api, userID)},
		{"user_sherlocks", fmt.Sprintf("%s/profile/progress/sherlocks/%s", api, userID)},
		{"user_endgames", fmt.Sprintf("%s/profile/progress/endgame/%s", api, userID)},
		{"user_prolabs", fmt.Sprintf("%s/profile/progress/prolab/%s", api, userID)},
		{"user_activity", fmt.Sprintf("%s/profile/activity/%s", api, userID)},
	}
}

// TeamEndpoints lists the public team endpoints.
func TeamEndpoints(apiURL, teamID string) []Endpoint {
	api := strings.TrimRight(apiURL, "/")
	return []Endpoint{
		{"team", fmt.Sprintf("%s/public/team/info/%s", api, teamID)},
		{"team_bracket", fmt.Sprintf("%s/public/rankings/team/ranking_bracket/%s", api, teamID)},
		{"team_rank_best", fmt.Sprintf("%s/public/rankings/team/best/%s?period=1Y", api, teamID)},
		{"team_machines", fmt.Sprintf("%s/public/team/chart/machines/attack/%s", api, teamID)},
		{"team_challenges", fmt.Sprintf("%s/public/team/chart/challenge/categories/%s", api, teamID)},
	}
}

// StatusError is a non-200 API response.
type StatusError struct {
	URL        string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("GET %s: status %d: %s", e.URL, e.StatusCode, e.Body)
}

// Client calls the profile API.
type Client struct {
	http  *http.Client
	token string
	ua    string
}

// NewClient creates a client. token is optional and sent as a bearer token.
func NewClient(token string) *Client {
	return &Client{
		http:  &http.Client{Timeout: 30 * time.Second},
		token: token,
		ua:    "badgebind/1.0",
	}
}

// FetchEndpoint GETs url and returns the raw JSON body.
func (c *Client) FetchEndpoint(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", c.ua)
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, &StatusError{URL: url, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(respBody))}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("GET %s: response is not valid JSON", url)
	}
	return body, nil
}

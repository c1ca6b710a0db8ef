package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spec-kit/testnet-portal/internal/config"
	"github.com/spec-kit/testnet-portal/internal/domain"
)

const (
	maxBodyBytes = 4 << 20
	msgNoToken   = "No token available."
)

// Client talks to the testnet REST API.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
	now     func() time.Time
}

// New builds a client from configuration.
func New(cfg config.BackendConfig) *Client {
	timeout := cfg.RequestTimeout()
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		http:    &http.Client{Timeout: timeout},
		now:     time.Now,
	}
}

// FetchProfile returns the profile belonging to an identity token.
func (c *Client) FetchProfile(ctx context.Context, token string) (*domain.Profile, error) {
	var profile domain.Profile
	if err := c.do(ctx, http.MethodGet, "/me", nil, bearer(token), &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Login registers an identity token with the backend (POST /login). Any
// non-error response counts as logged in.
func (c *Client) Login(ctx context.Context, token string) (*LoginResponse, error) {
	if strings.TrimSpace(token) == "" {
		return nil, domain.NewLocalError(msgNoToken, http.StatusUnauthorized)
	}
	var ignored json.RawMessage
	if err := c.do(ctx, http.MethodPost, "/login", nil, bearer(token), &ignored); err != nil {
		return nil, err
	}
	return &LoginResponse{StatusCode: http.StatusOK, Loaded: true}, nil
}

// GetUser loads a public user record.
func (c *Client) GetUser(ctx context.Context, userID string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID), nil, nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// ListLeaderboard returns users ordered by rank.
func (c *Client) ListLeaderboard(ctx context.Context, q LeaderboardQuery) (*ListLeaderboardResponse, error) {
	params := url.Values{"order_by": {"rank"}}
	if q.Search != "" {
		params.Set("search", q.Search)
	}
	if q.CountryCode != "" {
		params.Set("country_code", q.CountryCode)
	}
	if q.EventType != "" {
		params.Set("event_type", q.EventType)
	}

	var out ListLeaderboardResponse
	if err := c.do(ctx, http.MethodGet, "/users?"+params.Encode(), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateUser signs a participant up for the testnet.
func (c *Client) CreateUser(ctx context.Context, in CreateUserInput) (*User, error) {
	body := map[string]string{
		"email":        in.Email,
		"graffiti":     in.Graffiti,
		"country_code": in.CountryCode,
	}
	if in.SocialChoice != "" {
		body[in.SocialChoice] = in.Social
	}

	var user User
	if err := c.do(ctx, http.MethodPost, "/users", body, bearer(c.apiKey), &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// GetUserWeeklyMetrics returns the user's totals since the start of the
// current testnet week.
func (c *Client) GetUserWeeklyMetrics(ctx context.Context, userID string) (*UserMetricsResponse, error) {
	end := c.now().UTC()
	params := url.Values{
		"granularity": {"total"},
		"start":       {WeeklyStart(end).Format(time.RFC3339Nano)},
		"end":         {end.Format(time.RFC3339Nano)},
	}
	return c.metrics(ctx, userID, params)
}

// GetUserAllTimeMetrics returns the user's lifetime totals.
func (c *Client) GetUserAllTimeMetrics(ctx context.Context, userID string) (*UserMetricsResponse, error) {
	return c.metrics(ctx, userID, url.Values{"granularity": {"lifetime"}})
}

func (c *Client) metrics(ctx context.Context, userID string, params url.Values) (*UserMetricsResponse, error) {
	var out UserMetricsResponse
	path := "/users/" + url.PathEscape(userID) + "/metrics?" + params.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ListEvents pages through a user's events.
func (c *Client) ListEvents(ctx context.Context, q EventsQuery) (*ListEventsResponse, error) {
	params := url.Values{"user_id": {q.UserID}}
	if q.After != "" {
		params.Set("after", q.After)
	}
	if q.Before != "" {
		params.Set("before", q.Before)
	}
	if q.Limit > 0 {
		params.Set("limit", strconv.Itoa(q.Limit))
	}

	var out ListEventsResponse
	if err := c.do(ctx, http.MethodGet, "/events?"+params.Encode(), nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// GetMetricsConfig returns the point configuration of the testnet.
func (c *Client) GetMetricsConfig(ctx context.Context) (*MetricsConfigResponse, error) {
	var out MetricsConfigResponse
	if err := c.do(ctx, http.MethodGet, "/metrics/config", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WeeklyStart returns Monday 00:00 UTC of the week containing now.
func WeeklyStart(now time.Time) time.Time {
	d := now.UTC()
	offset := (int(d.Weekday()) + 6) % 7
	y, m, day := d.AddDate(0, 0, -offset).Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

func bearer(token string) http.Header {
	h := http.Header{}
	h.Set("Authorization", "Bearer "+token)
	return h
}

// envelope probes a body for the API error shape.
type envelope struct {
	StatusCode int              `json:"statusCode"`
	Tag        *json.RawMessage `json:"error"`
}

// do performs a request and decodes the body into out. Error-shaped bodies
// become *domain.APIError; anything that fails before a body is decoded
// becomes *domain.LocalError.
func (c *Client) do(ctx context.Context, method, path string, in any, header http.Header, out any) error {
	if c.baseURL == "" {
		return domain.NewLocalError("api url not configured", http.StatusInternalServerError)
	}

	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return domain.WrapLocalError("encode request", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return domain.WrapLocalError("build request", err)
	}
	for k, v := range header {
		req.Header[k] = v
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	res, err := c.http.Do(req)
	if err != nil {
		return domain.WrapLocalError(fmt.Sprintf("%s %s", method, path), err)
	}
	defer res.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(res.Body, maxBodyBytes))
	if err != nil {
		return domain.WrapLocalError("read response", err)
	}

	if len(bytes.TrimSpace(raw)) == 0 {
		if res.StatusCode >= http.StatusBadRequest {
			return &domain.APIError{StatusCode: res.StatusCode, Messages: []string{http.StatusText(res.StatusCode)}}
		}
		if _, ok := out.(*json.RawMessage); ok {
			return nil
		}
		return domain.NewLocalError("empty response", http.StatusInternalServerError)
	}

	var probe envelope
	if err := json.Unmarshal(raw, &probe); err != nil {
		if res.StatusCode >= http.StatusBadRequest {
			return &domain.APIError{StatusCode: res.StatusCode, Messages: []string{http.StatusText(res.StatusCode)}}
		}
		return domain.WrapLocalError("decode response", err)
	}

	if probe.Tag != nil || probe.StatusCode >= http.StatusBadRequest || res.StatusCode >= http.StatusBadRequest {
		var apiErr domain.APIError
		if err := json.Unmarshal(raw, &apiErr); err != nil {
			return domain.WrapLocalError("decode error response", err)
		}
		if apiErr.StatusCode == 0 {
			apiErr.StatusCode = res.StatusCode
		}
		return &apiErr
	}

	if err := json.Unmarshal(raw, out); err != nil {
		return domain.WrapLocalError("decode response", err)
	}
	return nil
}

package profile

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"course-portal/internal/domain"

	"go.uber.org/zap"
)

// Client talks to the Profile Store HTTP surface.
type Client struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewClient returns a client for baseURL. A nil httpClient gets a 10s timeout.
func NewClient(baseURL string, httpClient *http.Client, logger *zap.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}
}

// FetchProfile returns the stored record as raw top-level fields.
func (c *Client) FetchProfile(ctx context.Context, email string) (map[string]json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/users/"+url.PathEscape(email), nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
	case http.StatusNotFound:
		return nil, domain.ErrProfileNotFound
	default:
		return nil, statusError("fetch profile", resp)
	}

	fields := make(map[string]json.RawMessage)
	if err := json.NewDecoder(resp.Body).Decode(&fields); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	return fields, nil
}

// UpsertProfile sends the whole record, replacing whatever the store holds for its email.
func (c *Client) UpsertProfile(ctx context.Context, user domain.User) error {
	body, err := json.Marshal(user)
	if err != nil {
		return fmt.Errorf("encode profile: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/users", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("upsert profile: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return statusError("upsert profile", resp)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	c.logger.Debug("profile synced", zap.String("email", user.Email))
	return nil
}

func statusError(op string, resp *http.Response) error {
	var payload struct {
		Error string `json:"error"`
	}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		return fmt.Errorf("%s: status %d: %s", op, resp.StatusCode, payload.Error)
	}
	return fmt.Errorf("%s: status %d", op, resp.StatusCode)
}

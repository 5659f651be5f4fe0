package dashboard

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/urielfelipevz0z/proyecto-progra-web/internal/domain"
	"github.com/urielfelipevz0z/proyecto-progra-web/pkg/cache"
)

const pumpListTTL = 30 * time.Second

// Client talks to the monitoring API on behalf of the dashboard. It holds
// the session token from Login and caches the pump list between polls.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	cache   *cache.Cache
}

// NewClient creates an API client for the given base URL, e.g.
// "http://localhost:3000".
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: 10 * time.Second},
		cache:   cache.New(),
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

// Login authenticates and stores the session token for later calls.
func (c *Client) Login(ctx context.Context, username, password string) error {
	var data struct {
		Token string `json:"token"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &data)
	if err != nil {
		return err
	}

	c.token = data.Token
	c.cache.Clear()
	return nil
}

// Logout tells the API and drops local session state.
func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	c.token = ""
	c.cache.Clear()
	return err
}

// Pumps lists the session user's pumps, served from the local cache when
// fresh.
func (c *Client) Pumps(ctx context.Context) ([]*domain.PumpWithMetric, error) {
	if cached, ok := c.cache.Get("pumps"); ok {
		return cached.([]*domain.PumpWithMetric), nil
	}

	var data struct {
		Pumps []*domain.PumpWithMetric `json:"pumps"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/pumps", nil, &data); err != nil {
		return nil, err
	}

	c.cache.Set("pumps", data.Pumps, pumpListTTL)
	return data.Pumps, nil
}

// Current fetches the pump's latest reading.
func (c *Client) Current(ctx context.Context, pumpID int64) (*domain.PumpMetric, error) {
	var data struct {
		Metrics *domain.PumpMetric `json:"metrics"`
	}
	path := fmt.Sprintf("/api/metrics/%d/current", pumpID)
	if err := c.do(ctx, http.MethodGet, path, nil, &data); err != nil {
		return nil, err
	}
	return data.Metrics, nil
}

// Simulate asks the API to fabricate and record a reading. The recording
// may change the pump's status, so the cached pump list is dropped.
func (c *Client) Simulate(ctx context.Context, pumpID int64) (*domain.PumpMetric, error) {
	var data struct {
		Metrics *domain.PumpMetric `json:"metrics"`
	}
	path := fmt.Sprintf("/api/metrics/%d/simulate", pumpID)
	if err := c.do(ctx, http.MethodPost, path, nil, &data); err != nil {
		return nil, err
	}

	c.cache.Invalidate("pumps")
	return data.Metrics, nil
}

// Healthy reports whether the API answers its health endpoint.
func (c *Client) Healthy(ctx context.Context) bool {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil) == nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body bytes.Buffer
	if payload != nil {
		if err := json.NewEncoder(&body).Encode(payload); err != nil {
			return err
		}
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return fmt.Errorf("decode response from %s: %w", path, err)
	}
	if !env.Success {
		return fmt.Errorf("%s %s: %s", method, path, env.Message)
	}
	if out != nil && env.Data != nil {
		return json.Unmarshal(env.Data, out)
	}
	return nil
}

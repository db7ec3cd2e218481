package ipset

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Client implements Service against the firewall admin API over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a client for the admin API at baseURL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 15 * time.Second},
	}
}

func (c *Client) ListSets(ctx context.Context, scope Scope) ([]SetSummary, error) {
	endpoint := fmt.Sprintf("%s/v1/ip-sets?scope=%s", c.baseURL, url.QueryEscape(string(scope)))
	var sets []SetSummary
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &sets); err != nil {
		return nil, fmt.Errorf("list ip sets: %w", err)
	}
	return sets, nil
}

func (c *Client) CreateSet(ctx context.Context, name string, scope Scope, addressVersion string) (Set, error) {
	body := map[string]string{
		"name":               name,
		"scope":              string(scope),
		"ip_address_version": addressVersion,
	}
	var set Set
	if err := c.do(ctx, http.MethodPost, c.baseURL+"/v1/ip-sets", body, &set); err != nil {
		return Set{}, fmt.Errorf("create ip set %q: %w", name, err)
	}
	return set, nil
}

func (c *Client) GetSet(ctx context.Context, name string, scope Scope, id string) (Set, error) {
	endpoint := fmt.Sprintf("%s/v1/ip-sets/%s?name=%s&scope=%s",
		c.baseURL, url.PathEscape(id), url.QueryEscape(name), url.QueryEscape(string(scope)))
	var set Set
	if err := c.do(ctx, http.MethodGet, endpoint, nil, &set); err != nil {
		return Set{}, fmt.Errorf("get ip set %q: %w", name, err)
	}
	return set, nil
}

func (c *Client) UpdateSet(ctx context.Context, name string, scope Scope, id, lockToken string, addresses []string) error {
	if addresses == nil {
		addresses = []string{}
	}
	body := map[string]any{
		"name":       name,
		"scope":      string(scope),
		"lock_token": lockToken,
		"addresses":  addresses,
	}
	endpoint := fmt.Sprintf("%s/v1/ip-sets/%s", c.baseURL, url.PathEscape(id))
	if err := c.do(ctx, http.MethodPut, endpoint, body, nil); err != nil {
		return fmt.Errorf("update ip set %q: %w", name, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, out any) error {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusConflict {
		return ErrStaleToken
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("admin API returned %d: %s", resp.StatusCode, string(detail))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

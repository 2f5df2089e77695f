// Package sandbox talks to the isolated environment where candidate
// fixes are applied and tested before anything touches the live app.
// An unreachable or unconfigured sandbox never blocks the pipeline:
// the stage is skipped and reported as such.
package sandbox

// #region imports
import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"
)

// #endregion imports

// #region config

type Config struct {
	BaseURL string
	Timeout time.Duration
}

func DefaultConfig() Config {
	cfg := Config{
		BaseURL: os.Getenv("SANDBOX_URL"),
		Timeout: 30 * time.Second,
	}
	return cfg
}

// #endregion config

// #region types

// Result reports one sandbox stage. Skipped results count as passed
// so a missing sandbox degrades to lower confidence elsewhere rather
// than a hard stop here.
type Result struct {
	Applied bool   `json:"applied"`
	Passed  bool   `json:"passed"`
	Output  string `json:"output,omitempty"`
	Error   string `json:"error,omitempty"`
	Skipped bool   `json:"skipped,omitempty"`
}

func skipped(reason string) Result {
	return Result{Applied: true, Passed: true, Skipped: true, Output: reason}
}

// #endregion types

// #region client

type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(cfg Config) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
	}
}

// Configured reports whether a sandbox endpoint was provided at all.
func (c *Client) Configured() bool { return c.baseURL != "" }

// Apply stages the proposed fix code in the sandbox.
func (c *Client) Apply(ctx context.Context, fixCode string) Result {
	return c.post(ctx, "/apply", map[string]string{"fix_code": fixCode})
}

// Run executes the proposed test against the staged fix.
func (c *Client) Run(ctx context.Context, testCode string) Result {
	return c.post(ctx, "/test", map[string]string{"test_code": testCode})
}

func (c *Client) post(ctx context.Context, path string, body map[string]string) Result {
	if c.baseURL == "" {
		return skipped("sandbox not configured")
	}
	payload, err := json.Marshal(body)
	if err != nil {
		return skipped(fmt.Sprintf("sandbox request marshal failed: %v", err))
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return skipped(fmt.Sprintf("sandbox request build failed: %v", err))
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return skipped(fmt.Sprintf("sandbox unreachable: %v", err))
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return skipped(fmt.Sprintf("sandbox returned %d", resp.StatusCode))
	}

	var r Result
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return skipped(fmt.Sprintf("sandbox response decode failed: %v", err))
	}
	return r
}

// #endregion client

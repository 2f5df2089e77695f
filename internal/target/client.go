package target

// #region imports
import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strings"
	"time"
)

// #endregion imports

// #region config

// Config holds connection parameters for the monitored app.
// Reads from env vars: TARGET_URL, TARGET_HEALTH_TIMEOUT.
type Config struct {
	BaseURL       string
	HealthTimeout time.Duration
}

// DefaultConfig returns the default target configuration.
func DefaultConfig() Config {
	cfg := Config{
		BaseURL:       "http://127.0.0.1:8001",
		HealthTimeout: 5 * time.Second,
	}
	if v := os.Getenv("TARGET_URL"); v != "" {
		cfg.BaseURL = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("TARGET_HEALTH_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.HealthTimeout = d
		}
	}
	return cfg
}

// #endregion config

// #region client-struct

// Client wraps the monitored app's HTTP surface: the /health probe the
// orchestrator polls, plus the admin endpoints used for recovery and
// demo fault injection.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the monitored app.
func NewClient(cfg Config) *Client {
	return &Client{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.HealthTimeout},
	}
}

// #endregion client-struct

// #region health-check

// HealthCheck probes /health. Transport failures are folded into the
// Health report (ConnectionRefused, Timeout, ProcessDown) rather than
// returned as errors, so every tick yields a classifiable signal.
func (c *Client) HealthCheck(ctx context.Context) Health {
	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return Health{Healthy: false, Error: err.Error(), ErrorType: "ProcessDown"}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Health{
			Healthy:    false,
			Error:      err.Error(),
			ErrorType:  transportErrorType(err),
			ResponseMS: time.Since(start).Milliseconds(),
		}
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	var h Health
	if err := json.Unmarshal(body, &h); err != nil {
		h = Health{Error: strings.TrimSpace(string(body))}
	}
	h.ResponseMS = time.Since(start).Milliseconds()

	if resp.StatusCode == http.StatusOK {
		h.Healthy = h.Status == "" || h.Status == "healthy"
		return h
	}

	h.Healthy = false
	if h.ErrorType == "" {
		h.ErrorType = fmt.Sprintf("HTTP%d", resp.StatusCode)
	}
	if h.Error == "" {
		h.Error = fmt.Sprintf("health endpoint returned %d", resp.StatusCode)
	}
	return h
}

// transportErrorType maps a transport error to the classifier's error types.
func transportErrorType(err error) string {
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return "Timeout"
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return "Timeout"
	}
	s := err.Error()
	if strings.Contains(s, "connection refused") {
		return "ConnectionRefused"
	}
	if strings.Contains(s, "no such host") || strings.Contains(s, "EOF") {
		return "ProcessDown"
	}
	return "ProcessDown"
}

// #endregion health-check

// #region logs

// Logs fetches the app's recent log tail for evidence bundles.
// Returns "" on any failure; missing logs never block diagnosis.
func (c *Client) Logs(ctx context.Context, limit int) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		fmt.Sprintf("%s/admin/logs?limit=%d", c.baseURL, limit), nil)
	if err != nil {
		return ""
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64*1024))
	return string(body)
}

// ReadFile fetches a source file from the app for evidence bundles.
// Returns "" on any failure.
func (c *Client) ReadFile(ctx context.Context, name string) string {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet,
		c.baseURL+"/admin/files/"+name, nil)
	if err != nil {
		return ""
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return ""
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return ""
	}
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 256*1024))
	return string(body)
}

// #endregion logs

// #region recover

// Recover asks the app's admin surface to restore prior good state for
// the given fault type (restore backed-up files and/or restart the
// process). The admin surface owns the details; the orchestrator only
// names the fault.
func (c *Client) Recover(ctx context.Context, faultType string) (RecoveryResult, error) {
	var out RecoveryResult
	if err := c.postJSON(ctx, "/admin/recover", map[string]string{"fault_type": faultType}, &out); err != nil {
		return RecoveryResult{}, fmt.Errorf("recover %s: %w", faultType, err)
	}
	return out, nil
}

// Restart kills and restarts the app process. Used after file restores
// for faults where the app caches the broken state in memory.
func (c *Client) Restart(ctx context.Context) error {
	if err := c.postJSON(ctx, "/admin/restart", nil, nil); err != nil {
		return fmt.Errorf("restart: %w", err)
	}
	return nil
}

// InjectFault triggers a demo fault in the monitored app.
func (c *Client) InjectFault(ctx context.Context, faultType string) (InjectResult, error) {
	var out InjectResult
	if err := c.postJSON(ctx, "/admin/inject", map[string]string{"fault_type": faultType}, &out); err != nil {
		return InjectResult{}, fmt.Errorf("inject %s: %w", faultType, err)
	}
	return out, nil
}

// #endregion recover

// #region helpers

func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4*1024))
		return fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}
	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

// #endregion helpers

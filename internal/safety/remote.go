package safety

// #region imports
import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
)

// #endregion imports

// #region config

// Config holds remote safety-validator parameters.
// Reads from env vars: SAFETY_API_URL, SAFETY_API_KEY, SAFETY_DEPLOYMENT_ID.
type Config struct {
	APIURL       string
	APIKey       string
	DeploymentID string
	Timeout      time.Duration
}

// DefaultConfig returns the default remote-validator configuration.
// An empty APIKey disables the remote path entirely.
func DefaultConfig() Config {
	cfg := Config{
		Timeout: 15 * time.Second,
	}
	if v := os.Getenv("SAFETY_API_URL"); v != "" {
		cfg.APIURL = strings.TrimRight(v, "/")
	}
	cfg.APIKey = os.Getenv("SAFETY_API_KEY")
	cfg.DeploymentID = os.Getenv("SAFETY_DEPLOYMENT_ID")
	return cfg
}

// #endregion config

// #region checker

// Checker fronts the safety gate: it prefers the remote validation API
// when one is configured and reachable, and falls back to the local
// rule engine otherwise. Both paths return the same Result shape.
type Checker struct {
	gate *Gate
	cfg  Config
	http *http.Client

	mu           sync.Mutex
	apiAvailable *bool // nil until the first remote attempt
}

// NewChecker creates a checker over the given local gate.
func NewChecker(gate *Gate, cfg Config) *Checker {
	return &Checker{
		gate: gate,
		cfg:  cfg,
		http: &http.Client{Timeout: cfg.Timeout},
	}
}

// #endregion checker

// #region check

// Check validates a fix. Remote failures are never surfaced: they
// flip the availability flag and the local engine answers instead.
func (c *Checker) Check(ctx context.Context, sctx Context, fixText string) Result {
	if c.cfg.APIKey != "" && c.cfg.APIURL != "" && c.available() {
		result, err := c.remoteCheck(ctx, sctx, fixText)
		if err == nil {
			c.setAvailable(true)
			c.gate.count(result.Passed)
			return result
		}
		log.Printf("[GATE] remote validator unavailable (%v), using local engine", err)
		c.setAvailable(false)
	}
	return c.gate.Check(sctx, fixText)
}

func (c *Checker) available() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.apiAvailable == nil || *c.apiAvailable
}

func (c *Checker) setAvailable(v bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.apiAvailable = &v
}

// Stats returns combined local+remote evaluation counters.
func (c *Checker) Stats() GateStats {
	return c.gate.Stats()
}

// #endregion check

// #region remote

type remotePolicy struct {
	Name    string `json:"name"`
	Flagged bool   `json:"flagged"`
}

type remoteResponse struct {
	Flagged  bool                    `json:"flagged"`
	Policies map[string]remotePolicy `json:"policies"`
}

func (c *Checker) remoteCheck(ctx context.Context, sctx Context, fixText string) (Result, error) {
	payload := map[string]any{
		"deployment_id": c.cfg.DeploymentID,
		"messages": []map[string]string{
			{
				"role": "user",
				"content": fmt.Sprintf(
					"[Safety Check] Fault: %s | Severity: %s\nRoot cause: %s\nProposed fix needs safety validation before deployment.",
					sctx.FaultType, sctx.Severity, sctx.RootCause),
			},
			{"role": "assistant", "content": fixText},
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return Result{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.APIURL+"/session/check", bytes.NewReader(body))
	if err != nil {
		return Result{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 200))
		return Result{}, fmt.Errorf("HTTP %d: %s", resp.StatusCode, strings.TrimSpace(string(b)))
	}

	var rr remoteResponse
	if err := json.NewDecoder(resp.Body).Decode(&rr); err != nil {
		return Result{}, fmt.Errorf("decode response: %w", err)
	}

	passed := !rr.Flagged
	score := 0.1
	if passed {
		score = 1.0
	}

	checks := make(map[string]bool, len(rr.Policies))
	var warnings []string
	for id, p := range rr.Policies {
		name := p.Name
		if name == "" {
			name = id
		}
		checks[name] = !p.Flagged
		if p.Flagged {
			warnings = append(warnings, fmt.Sprintf("Flagged by: %s", name))
		}
	}

	verdict := "UNSAFE — flagged by policy"
	if passed {
		verdict = "SAFE — no policies flagged"
	}
	return Result{
		Passed:    passed,
		Score:     score,
		Checks:    checks,
		Warnings:  warnings,
		Reasoning: fmt.Sprintf("Safety analysis (remote API)\nFault type: %s | Severity: %s\nVerdict: %s", sctx.FaultType, sctx.Severity, verdict),
		Provider:  "remote-validator",
		Mode:      "api",
	}, nil
}

// #endregion remote

package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/danielpatrickdp/opsagent/internal/classify"
	"github.com/danielpatrickdp/opsagent/internal/diagnose"
	"github.com/danielpatrickdp/opsagent/internal/hub"
	"github.com/danielpatrickdp/opsagent/internal/orchestrator"
	"github.com/danielpatrickdp/opsagent/internal/safety"
	"github.com/danielpatrickdp/opsagent/internal/sandbox"
	"github.com/danielpatrickdp/opsagent/internal/store"
	"github.com/danielpatrickdp/opsagent/internal/target"
)

// #region fakes

type fakeTarget struct {
	healthy bool
}

func (f *fakeTarget) HealthCheck(ctx context.Context) target.Health {
	if f.healthy {
		return target.Health{Healthy: true, Status: "healthy"}
	}
	return target.Health{Healthy: false, ErrorType: "ConnectionRefused", Error: "connection refused"}
}

func (f *fakeTarget) Logs(ctx context.Context, limit int) string       { return "" }
func (f *fakeTarget) ReadFile(ctx context.Context, name string) string { return "" }

func (f *fakeTarget) Recover(ctx context.Context, faultType string) (target.RecoveryResult, error) {
	return target.RecoveryResult{Fixed: true}, nil
}

func (f *fakeTarget) Restart(ctx context.Context) error { return nil }

func (f *fakeTarget) InjectFault(ctx context.Context, faultType string) (target.InjectResult, error) {
	return target.InjectResult{Fault: faultType, FileModified: "handler.py"}, nil
}

// #endregion fakes

// #region harness

type harness struct {
	store  *store.Store
	router *gin.Engine
	target *fakeTarget
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st, err := store.Open(filepath.Join(t.TempDir(), "opsagent.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	tgt := &fakeTarget{healthy: true}
	gate := safety.NewChecker(safety.NewGate(), safety.Config{Timeout: time.Second})
	orch := orchestrator.New(orchestrator.Config{
		Enabled:             true,
		MonitorInterval:     time.Hour,
		VerifyDelay:         time.Millisecond,
		VerifyAttempts:      4,
		AutoFixThreshold:    0.85,
		EscalationThreshold: 0.5,
		HandlerFile:         "handler.py",
		ConfigFile:          "config.json",
		ServiceName:         "demo-app",
	}, st, tgt, sandbox.NewClient(sandbox.Config{Timeout: time.Second}), diagnose.NewAdapter(nil), gate, hub.New(), nil)

	srv := New(st, orch, hub.New(), tgt, gate)
	return &harness{store: st, router: srv.Router(), target: tgt}
}

func (h *harness) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.Unmarshal(w.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response %q: %v", w.Body.String(), err)
	}
	return out
}

func (h *harness) registerUser(t *testing.T, name, role string) string {
	t.Helper()
	w := h.do(t, http.MethodPost, "/register", "", gin.H{
		"username": name, "password": "hunter2!", "role": role,
	})
	if w.Code != http.StatusOK {
		t.Fatalf("register %s: %d %s", name, w.Code, w.Body.String())
	}
	token, _ := decode(t, w)["token"].(string)
	if token == "" {
		t.Fatalf("register %s returned no token", name)
	}
	return token
}

func (h *harness) seedIncident(t *testing.T, inc store.Incident) store.Incident {
	t.Helper()
	if err := h.store.CreateIncident(&inc); err != nil {
		t.Fatalf("seed incident: %v", err)
	}
	return inc
}

// #endregion harness

// #region auth-tests

func TestRegisterAndLogin(t *testing.T) {
	h := newHarness(t)

	token := h.registerUser(t, "riley", "senior_dev")
	if token == "" {
		t.Fatal("no token")
	}

	if w := h.do(t, http.MethodPost, "/register", "", gin.H{"username": "riley", "password": "x", "role": "dev"}); w.Code != http.StatusBadRequest {
		t.Errorf("duplicate register = %d", w.Code)
	}
	if w := h.do(t, http.MethodPost, "/register", "", gin.H{"username": "eve", "password": "x", "role": "wizard"}); w.Code != http.StatusBadRequest {
		t.Errorf("unknown role = %d", w.Code)
	}

	if w := h.do(t, http.MethodPost, "/login", "", gin.H{"username": "riley", "password": "wrong"}); w.Code != http.StatusUnauthorized {
		t.Errorf("bad password login = %d", w.Code)
	}
	w := h.do(t, http.MethodPost, "/login", "", gin.H{"username": "riley", "password": "hunter2!"})
	if w.Code != http.StatusOK {
		t.Fatalf("login = %d %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp["role"] != "senior_dev" || resp["token"] == "" {
		t.Errorf("login response = %v", resp)
	}
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	h := newHarness(t)

	if w := h.do(t, http.MethodGet, "/api/incidents", "", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("no token = %d", w.Code)
	}
	if w := h.do(t, http.MethodGet, "/api/incidents", "not-a-jwt", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("garbage token = %d", w.Code)
	}

	token := h.registerUser(t, "dana", "dev")
	w := h.do(t, http.MethodGet, "/api/incidents", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("with token = %d %s", w.Code, w.Body.String())
	}
	if incidents, ok := decode(t, w)["incidents"].([]any); !ok || len(incidents) != 0 {
		t.Errorf("fresh store incidents = %v", w.Body.String())
	}
}

// #endregion auth-tests

// #region incident-tests

func TestGetIncident(t *testing.T) {
	h := newHarness(t)
	token := h.registerUser(t, "dana", "dev")

	if w := h.do(t, http.MethodGet, "/api/incidents/nope", token, nil); w.Code != http.StatusNotFound {
		t.Errorf("missing incident = %d", w.Code)
	}

	inc := h.seedIncident(t, store.Incident{
		ServiceName:      "demo-app",
		Title:            "Application crash: process down",
		Severity:         classify.SeverityCritical,
		ApprovalSeverity: classify.ApprovalBlocker,
		Status:           store.StatusFixProposed,
		RootCause:        "Application process is down and not accepting connections",
		ProposedFix:      "Restart the process and restore state",
	})

	w := h.do(t, http.MethodGet, "/api/incidents/"+inc.ID, token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get incident = %d %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp["id"] != inc.ID || resp["severity"] != "critical" || resp["status"] != "fix_proposed" {
		t.Errorf("incident view = %v", resp)
	}
}

func TestApprove_RoleGateAndReject(t *testing.T) {
	h := newHarness(t)
	junior := h.registerUser(t, "casey", "junior_dev")
	lead := h.registerUser(t, "morgan", "team_lead")

	inc := h.seedIncident(t, store.Incident{
		ServiceName:      "demo-app",
		Title:            "Application crash: process down",
		Severity:         classify.SeverityCritical,
		ApprovalSeverity: classify.ApprovalBlocker,
		Status:           store.StatusFixProposed,
		RootCause:        "Application process is down and not accepting connections",
		ProposedFix:      "Restart the process and restore state",
	})

	w := h.do(t, http.MethodPost, "/api/incidents/"+inc.ID+"/approve", junior, gin.H{"action": "approve"})
	if w.Code != http.StatusForbidden {
		t.Fatalf("junior on blocker = %d %s", w.Code, w.Body.String())
	}
	if resp := decode(t, w); resp["required_level"] != float64(4) {
		t.Errorf("required_level = %v", resp["required_level"])
	}

	w = h.do(t, http.MethodPost, "/api/incidents/"+inc.ID+"/approve", junior, gin.H{"action": "escalate"})
	if w.Code != http.StatusBadRequest {
		t.Errorf("unknown action = %d", w.Code)
	}

	w = h.do(t, http.MethodPost, "/api/incidents/"+inc.ID+"/approve", lead, gin.H{"action": "reject", "comment": "not convinced"})
	if w.Code != http.StatusOK {
		t.Fatalf("reject = %d %s", w.Code, w.Body.String())
	}
	if resp := decode(t, w); resp["status"] != "rejected" {
		t.Errorf("status after reject = %v", resp["status"])
	}

	w = h.do(t, http.MethodGet, "/api/incidents/"+inc.ID+"/approvals", lead, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("list approvals = %d", w.Code)
	}
	approvals, _ := decode(t, w)["approvals"].([]any)
	if len(approvals) != 1 {
		t.Fatalf("approvals = %v", approvals)
	}
	rec, _ := approvals[0].(map[string]any)
	if rec["user_name"] != "morgan" || rec["action"] != "reject" {
		t.Errorf("approval record = %v", rec)
	}
}

func TestComments(t *testing.T) {
	h := newHarness(t)
	token := h.registerUser(t, "dana", "dev")

	if w := h.do(t, http.MethodPost, "/api/incidents/nope/comments", token, gin.H{"content": "hi"}); w.Code != http.StatusNotFound {
		t.Errorf("comment on missing incident = %d", w.Code)
	}

	inc := h.seedIncident(t, store.Incident{
		ServiceName: "demo-app",
		Title:       "Slow responses",
		Severity:    classify.SeverityMedium,
		Status:      store.StatusAwaitingApproval,
	})

	w := h.do(t, http.MethodPost, "/api/incidents/"+inc.ID+"/comments", token, gin.H{"content": "looks like the retry loop"})
	if w.Code != http.StatusOK {
		t.Fatalf("add comment = %d %s", w.Code, w.Body.String())
	}

	w = h.do(t, http.MethodGet, "/api/incidents/"+inc.ID+"/comments", token, nil)
	comments, _ := decode(t, w)["comments"].([]any)
	if len(comments) != 1 {
		t.Fatalf("comments = %v", comments)
	}
	c, _ := comments[0].(map[string]any)
	if c["user_name"] != "dana" || c["content"] != "looks like the retry loop" {
		t.Errorf("comment = %v", c)
	}
}

// #endregion incident-tests

// #region agent-tests

func TestAgentStatus(t *testing.T) {
	h := newHarness(t)
	token := h.registerUser(t, "dana", "dev")

	w := h.do(t, http.MethodGet, "/api/agent/status", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("status = %d %s", w.Code, w.Body.String())
	}
	resp := decode(t, w)
	if resp["enabled"] != true {
		t.Errorf("enabled = %v", resp["enabled"])
	}
	if resp["running"] != false {
		t.Errorf("running = %v before start", resp["running"])
	}
	stats, ok := resp["stats"].(map[string]any)
	if !ok {
		t.Fatalf("stats missing: %v", resp)
	}
	if stats["incidents_total"] != float64(0) {
		t.Errorf("incidents_total = %v", stats["incidents_total"])
	}
	if _, ok := resp["safety_gate"]; !ok {
		t.Error("safety_gate missing from status")
	}
}

func TestAgentStartStop(t *testing.T) {
	h := newHarness(t)
	token := h.registerUser(t, "dana", "dev")

	w := h.do(t, http.MethodPost, "/api/agent/start", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("start = %d %s", w.Code, w.Body.String())
	}
	if resp := decode(t, w); resp["running"] != true {
		t.Errorf("start response = %v", resp)
	}

	w = h.do(t, http.MethodPost, "/api/agent/stop", token, nil)
	if resp := decode(t, w); resp["running"] != false {
		t.Errorf("stop response = %v", resp)
	}
}

func TestInjectAndHealth(t *testing.T) {
	h := newHarness(t)
	token := h.registerUser(t, "dana", "dev")

	if w := h.do(t, http.MethodPost, "/api/inject", token, gin.H{}); w.Code != http.StatusBadRequest {
		t.Errorf("inject without fault_type = %d", w.Code)
	}

	w := h.do(t, http.MethodPost, "/api/inject", token, gin.H{"fault_type": "bug"})
	if w.Code != http.StatusOK {
		t.Fatalf("inject = %d %s", w.Code, w.Body.String())
	}
	if resp := decode(t, w); resp["fault"] != "bug" {
		t.Errorf("inject response = %v", resp)
	}

	w = h.do(t, http.MethodGet, "/api/health", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("health = %d", w.Code)
	}
	if resp := decode(t, w); resp["healthy"] != true {
		t.Errorf("health = %v", resp)
	}

	h.target.healthy = false
	w = h.do(t, http.MethodGet, "/api/health", token, nil)
	if resp := decode(t, w); resp["healthy"] != false || resp["error_type"] != "ConnectionRefused" {
		t.Errorf("unhealthy = %v", resp)
	}
}

func TestVoiceSummary(t *testing.T) {
	h := newHarness(t)
	token := h.registerUser(t, "dana", "dev")

	w := h.do(t, http.MethodGet, "/api/voice/summary", token, nil)
	if w.Code != http.StatusOK {
		t.Fatalf("summary = %d %s", w.Code, w.Body.String())
	}
	script, _ := decode(t, w)["script"].(string)
	if script != "All systems are healthy. No incidents on record." {
		t.Errorf("script = %q", script)
	}
}

// #endregion agent-tests

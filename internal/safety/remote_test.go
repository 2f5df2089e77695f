package safety

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestChecker_NoAPIConfigured_UsesLocal(t *testing.T) {
	c := NewChecker(NewGate(), Config{Timeout: time.Second})
	res := c.Check(context.Background(), Context{FaultType: "crash"}, "restart process")
	if res.Mode != "local" {
		t.Errorf("mode = %s, want local", res.Mode)
	}
	if !res.Passed {
		t.Errorf("clean fix rejected: %v", res.Warnings)
	}
}

func TestChecker_RemoteVerdict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/session/check" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer test-key" {
			t.Errorf("auth header = %q", r.Header.Get("Authorization"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"flagged": true, "policies": {"p1": {"name": "destructive", "flagged": true}}}`))
	}))
	defer srv.Close()

	c := NewChecker(NewGate(), Config{APIURL: srv.URL, APIKey: "test-key", Timeout: time.Second})
	res := c.Check(context.Background(), Context{FaultType: "crash"}, "restart process")
	if res.Mode != "api" {
		t.Fatalf("mode = %s, want api", res.Mode)
	}
	if res.Passed {
		t.Error("flagged fix should not pass")
	}
	if res.Score != 0.1 {
		t.Errorf("score = %v, want 0.1", res.Score)
	}
}

func TestChecker_RemoteFailure_FallsBackAndSticks(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewChecker(NewGate(), Config{APIURL: srv.URL, APIKey: "test-key", Timeout: time.Second})

	res := c.Check(context.Background(), Context{FaultType: "crash"}, "restart process")
	if res.Mode != "local" {
		t.Fatalf("mode = %s, want local fallback", res.Mode)
	}
	if !res.Passed {
		t.Errorf("local fallback rejected clean fix: %v", res.Warnings)
	}

	// availability is cached: the dead API is not retried
	c.Check(context.Background(), Context{FaultType: "crash"}, "restart process")
	if calls != 1 {
		t.Errorf("remote called %d times, want 1", calls)
	}
}

func TestChecker_StatsCoverBothPaths(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"flagged": false, "policies": {}}`))
	}))
	defer srv.Close()

	c := NewChecker(NewGate(), Config{APIURL: srv.URL, APIKey: "k", Timeout: time.Second})
	c.Check(context.Background(), Context{FaultType: "crash"}, "restart process")

	if st := c.Stats(); st.ChecksRun != 1 || st.ChecksPassed != 1 {
		t.Errorf("stats = %+v", st)
	}
}

package voice

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/danielpatrickdp/opsagent/internal/store"
)

func TestAlertScript_ByStatus(t *testing.T) {
	base := store.Incident{
		Severity:        "critical",
		Title:           "Application crash: process down",
		RootCause:       "Application process is down and not accepting connections",
		ConfidenceScore: 0.82,
	}

	tests := []struct {
		name   string
		status store.Status
		want   string
	}{
		{"resolved", store.StatusResolved, "No action is required"},
		{"awaiting", store.StatusAwaitingApproval, "awaiting your approval"},
		{"deploying", store.StatusDeploying, "being deployed now"},
		{"detected", store.StatusDetected, "Investigation is in progress"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inc := base
			inc.Status = tt.status
			script := AlertScript(inc)
			if !strings.Contains(script, "A critical severity incident") {
				t.Errorf("script missing severity: %q", script)
			}
			if !strings.Contains(script, "Confidence is 82 percent") {
				t.Errorf("script missing confidence: %q", script)
			}
			if !strings.Contains(script, tt.want) {
				t.Errorf("script = %q, want substring %q", script, tt.want)
			}
		})
	}
}

func TestAlertScript_OmitsEmptyFields(t *testing.T) {
	script := AlertScript(store.Incident{Severity: "medium", Title: "Slow responses", Status: store.StatusDiagnosing})
	if strings.Contains(script, "Root cause") {
		t.Errorf("empty root cause rendered: %q", script)
	}
	if strings.Contains(script, "percent") {
		t.Errorf("zero confidence rendered: %q", script)
	}
}

func TestSummaryScript(t *testing.T) {
	if got := SummaryScript(store.Stats{}); got != "All systems are healthy. No incidents on record." {
		t.Errorf("empty stats = %q", got)
	}

	got := SummaryScript(store.Stats{IncidentsTotal: 5, IncidentsOpen: 2, AwaitingApproval: 1, IncidentsResolved: 3})
	for _, want := range []string{"5 incidents on record", "2 currently open", "1 awaiting approval", "3 resolved"} {
		if !strings.Contains(got, want) {
			t.Errorf("summary = %q, want substring %q", got, want)
		}
	}

	got = SummaryScript(store.Stats{IncidentsTotal: 1, IncidentsResolved: 1})
	if !strings.Contains(got, "1 incident on record") || !strings.Contains(got, "All incidents are closed") {
		t.Errorf("closed summary = %q", got)
	}
}

func TestAnnouncer_Unconfigured(t *testing.T) {
	a := NewAnnouncer(Config{Timeout: time.Second})
	if a.Configured() {
		t.Fatal("empty config reported configured")
	}
	audio, err := a.Speak(context.Background(), "hello")
	if err != nil || audio != nil {
		t.Errorf("unconfigured speak = (%v, %v), want (nil, nil)", audio, err)
	}
	a.Announce(context.Background(), "hello") // must not panic
}

func TestAnnouncer_Speak(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/synthesize" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("auth = %q", got)
		}
		var req map[string]string
		json.NewDecoder(r.Body).Decode(&req)
		if req["text"] != "Attention." || req["voice_id"] != "ava" {
			t.Errorf("request = %v", req)
		}
		w.Write([]byte("audio-bytes"))
	}))
	defer srv.Close()

	a := NewAnnouncer(Config{APIURL: srv.URL, APIKey: "test-key", VoiceID: "ava", Timeout: time.Second})
	audio, err := a.Speak(context.Background(), "Attention.")
	if err != nil {
		t.Fatalf("speak: %v", err)
	}
	if string(audio) != "audio-bytes" {
		t.Errorf("audio = %q", audio)
	}
}

func TestAnnouncer_SpeakErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	a := NewAnnouncer(Config{APIURL: srv.URL, APIKey: "k", Timeout: time.Second})
	if _, err := a.Speak(context.Background(), "x"); err == nil {
		t.Error("502 should surface as error from Speak")
	}
	a.Announce(context.Background(), "x") // swallowed
}

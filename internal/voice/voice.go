// Package voice builds spoken alert scripts for incidents and, when
// a speech API is configured, synthesizes them. Synthesis failures
// are logged and swallowed: audio is a courtesy, never a dependency
// of the pipeline.
package voice

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
	"time"

	"github.com/danielpatrickdp/opsagent/internal/store"
)

// #endregion imports

// #region config

type Config struct {
	APIURL  string
	APIKey  string
	VoiceID string
	Timeout time.Duration
}

func DefaultConfig() Config {
	return Config{
		APIURL:  os.Getenv("SPEECH_API_URL"),
		APIKey:  os.Getenv("SPEECH_API_KEY"),
		VoiceID: os.Getenv("SPEECH_VOICE_ID"),
		Timeout: 20 * time.Second,
	}
}

// #endregion config

// #region scripts

// AlertScript renders an incident as a short spoken announcement.
func AlertScript(inc store.Incident) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Attention. A %s severity incident has been detected. %s.", inc.Severity, strings.TrimSuffix(inc.Title, "."))
	if inc.RootCause != "" {
		fmt.Fprintf(&b, " Root cause: %s.", strings.TrimSuffix(inc.RootCause, "."))
	}
	if inc.ConfidenceScore > 0 {
		fmt.Fprintf(&b, " Confidence is %d percent.", int(inc.ConfidenceScore*100))
	}
	switch inc.Status {
	case store.StatusResolved:
		b.WriteString(" The fix has been applied and verified. No action is required.")
	case store.StatusAwaitingApproval:
		b.WriteString(" A fix is awaiting your approval.")
	case store.StatusDeploying:
		b.WriteString(" A fix is being deployed now.")
	default:
		b.WriteString(" Investigation is in progress.")
	}
	return b.String()
}

// SummaryScript renders overall system state as a spoken briefing.
func SummaryScript(stats store.Stats) string {
	if stats.IncidentsTotal == 0 {
		return "All systems are healthy. No incidents on record."
	}
	var b strings.Builder
	fmt.Fprintf(&b, "System briefing. %d incident%s on record.", stats.IncidentsTotal, plural(stats.IncidentsTotal))
	if stats.IncidentsOpen > 0 {
		fmt.Fprintf(&b, " %d currently open.", stats.IncidentsOpen)
	} else {
		b.WriteString(" All incidents are closed.")
	}
	if stats.AwaitingApproval > 0 {
		fmt.Fprintf(&b, " %d awaiting approval.", stats.AwaitingApproval)
	}
	if stats.IncidentsResolved > 0 {
		fmt.Fprintf(&b, " %d resolved.", stats.IncidentsResolved)
	}
	return b.String()
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

// #endregion scripts

// #region announcer

// Announcer synthesizes scripts through a speech API.
type Announcer struct {
	cfg  Config
	http *http.Client
}

func NewAnnouncer(cfg Config) *Announcer {
	return &Announcer{cfg: cfg, http: &http.Client{Timeout: cfg.Timeout}}
}

func (a *Announcer) Configured() bool {
	return a.cfg.APIURL != "" && a.cfg.APIKey != ""
}

// Speak synthesizes the script and returns the audio bytes. A nil
// slice with nil error means synthesis was skipped.
func (a *Announcer) Speak(ctx context.Context, script string) ([]byte, error) {
	if !a.Configured() {
		return nil, nil
	}
	payload, err := json.Marshal(map[string]string{
		"text":     script,
		"voice_id": a.cfg.VoiceID,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal speech request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.cfg.APIURL+"/synthesize", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("build speech request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.cfg.APIKey)

	resp, err := a.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("speech api: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("speech api returned %d", resp.StatusCode)
	}
	return io.ReadAll(resp.Body)
}

// Announce fires synthesis without surfacing failures to the caller.
func (a *Announcer) Announce(ctx context.Context, script string) {
	if !a.Configured() {
		return
	}
	if _, err := a.Speak(ctx, script); err != nil {
		log.Printf("[VOICE] synthesis failed: %v", err)
		return
	}
	log.Printf("[VOICE] announced: %.60s", script)
}

// #endregion announcer

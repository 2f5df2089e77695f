package main

// #region imports
import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"
)

// #endregion imports

// #region main

func main() {
	api := flag.String("api", envOr("OPSAGENT_API", "http://127.0.0.1:8080"), "orchestrator API base URL")
	user := flag.String("user", envOr("OPSAGENT_USER", ""), "user name")
	password := flag.String("password", envOr("OPSAGENT_PASSWORD", ""), "password")
	comment := flag.String("comment", "", "comment for action")
	jsonOut := flag.Bool("json", false, "raw JSON output")
	flag.Parse()

	if flag.NArg() == 0 {
		usage()
		os.Exit(2)
	}

	cli := &client{base: *api, http: &http.Client{Timeout: 15 * time.Second}}
	if *user != "" {
		if err := cli.login(*user, *password); err != nil {
			fmt.Fprintf(os.Stderr, "login: %v\n", err)
			os.Exit(1)
		}
	}

	var err error
	switch flag.Arg(0) {
	case "status":
		err = cli.show("GET", "/api/agent/status", nil, *jsonOut, printStatus)
	case "incidents":
		err = cli.show("GET", "/api/incidents", nil, *jsonOut, printIncidents)
	case "incident":
		err = cli.show("GET", "/api/incidents/"+flag.Arg(1), nil, true, nil)
	case "inject":
		err = cli.show("POST", "/api/inject", map[string]string{"fault_type": flag.Arg(1)}, true, nil)
	case "action":
		// opsctl action <incident-id> <approve|reject|override|request_changes>
		err = cli.show("POST", "/api/incidents/"+flag.Arg(1)+"/approve",
			map[string]string{"action": flag.Arg(2), "comment": *comment}, true, nil)
	case "start":
		err = cli.show("POST", "/api/agent/start", nil, true, nil)
	case "stop":
		err = cli.show("POST", "/api/agent/stop", nil, true, nil)
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, `usage: opsctl [flags] <command>

commands:
  status                              agent status and counters
  incidents                           list recent incidents
  incident <id>                       incident detail
  inject <fault-type>                 inject a fault into the target
  action <id> <action> [--comment s]  approve|reject|override|request_changes
  start | stop                        control the monitor loop

flags: --api URL --user NAME --password PW --comment TEXT --json`)
}

// #endregion main

// #region client

type client struct {
	base  string
	token string
	http  *http.Client
}

func (c *client) login(user, password string) error {
	body, _ := json.Marshal(map[string]string{"username": user, "password": password})
	resp, err := c.http.Post(c.base+"/login", "application/json", bytes.NewReader(body))
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("login returned %d", resp.StatusCode)
	}
	var out struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return err
	}
	c.token = out.Token
	return nil
}

func (c *client) show(method, path string, body any, jsonOut bool, printer func([]byte)) error {
	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return err
		}
		payload = bytes.NewReader(b)
	}
	req, err := http.NewRequest(method, c.base+path, payload)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s %s returned %d: %s", method, path, resp.StatusCode, raw)
	}
	if jsonOut || printer == nil {
		var buf bytes.Buffer
		if json.Indent(&buf, raw, "", "  ") == nil {
			raw = buf.Bytes()
		}
		fmt.Println(string(raw))
		return nil
	}
	printer(raw)
	return nil
}

// #endregion client

// #region printers

func printStatus(raw []byte) {
	var st struct {
		Enabled bool `json:"enabled"`
		Running bool `json:"running"`
		Stats   struct {
			Total         int     `json:"incidents_total"`
			Open          int     `json:"incidents_open"`
			Resolved      int     `json:"incidents_resolved"`
			Awaiting      int     `json:"awaiting_approval"`
			AutoResolved  int     `json:"auto_resolved"`
			Learning      int     `json:"learning_records"`
			ConfidenceAvg float64 `json:"confidence_avg"`
		} `json:"stats"`
	}
	if err := json.Unmarshal(raw, &st); err != nil {
		fmt.Println(string(raw))
		return
	}
	fmt.Printf("monitor: enabled=%v running=%v\n", st.Enabled, st.Running)
	fmt.Printf("incidents: total=%d open=%d awaiting=%d resolved=%d auto=%d\n",
		st.Stats.Total, st.Stats.Open, st.Stats.Awaiting, st.Stats.Resolved, st.Stats.AutoResolved)
	fmt.Printf("learning: records=%d avg_confidence=%.3f\n", st.Stats.Learning, st.Stats.ConfidenceAvg)
}

func printIncidents(raw []byte) {
	var out struct {
		Incidents []struct {
			ID         string  `json:"id"`
			Status     string  `json:"status"`
			Severity   string  `json:"severity"`
			Confidence float64 `json:"confidence_score"`
			Title      string  `json:"title"`
			DetectedAt string  `json:"detected_at"`
		} `json:"incidents"`
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		fmt.Println(string(raw))
		return
	}
	if len(out.Incidents) == 0 {
		fmt.Println("no incidents")
		return
	}
	fmt.Printf("%-10s %-18s %-9s %-6s %s\n", "ID", "STATUS", "SEVERITY", "CONF", "TITLE")
	for _, inc := range out.Incidents {
		fmt.Printf("%-10s %-18s %-9s %.2f   %s\n", inc.ID, inc.Status, inc.Severity, inc.Confidence, inc.Title)
	}
}

// #endregion printers

// #region helpers

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers

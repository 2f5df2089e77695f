package main

// #region imports
import (
	"log"
	"os"

	"github.com/danielpatrickdp/opsagent/internal/diagnose"
	"github.com/danielpatrickdp/opsagent/internal/hub"
	"github.com/danielpatrickdp/opsagent/internal/orchestrator"
	"github.com/danielpatrickdp/opsagent/internal/safety"
	"github.com/danielpatrickdp/opsagent/internal/sandbox"
	"github.com/danielpatrickdp/opsagent/internal/server"
	"github.com/danielpatrickdp/opsagent/internal/store"
	"github.com/danielpatrickdp/opsagent/internal/target"
	"github.com/danielpatrickdp/opsagent/internal/voice"
)

// #endregion imports

// #region main
func main() {
	dbPath := envOr("OPSAGENT_DB", "opsagent.db")
	addr := envOr("OPSAGENT_ADDR", ":8080")

	st, err := store.Open(dbPath)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer st.Close()

	tgt := target.NewClient(target.DefaultConfig())
	sb := sandbox.NewClient(sandbox.DefaultConfig())
	gate := safety.NewChecker(safety.NewGate(), safety.DefaultConfig())
	events := hub.New()

	var announcer orchestrator.Announcer
	if a := voice.NewAnnouncer(voice.DefaultConfig()); a.Configured() {
		announcer = a
	}

	engine := diagnose.NewAdapter(enginePrimary())

	cfg := orchestrator.DefaultConfig()
	orch := orchestrator.New(cfg, st, tgt, sb, engine, gate, events, announcer)
	if cfg.Enabled {
		if err := orch.Start(); err != nil {
			log.Fatalf("failed to start monitor: %v", err)
		}
		defer orch.Stop()
	} else {
		log.Println("[MAIN] orchestrator disabled, serving API only")
	}

	srv := server.New(st, orch, events, tgt, gate)
	log.Printf("[MAIN] listening on %s (db=%s)", addr, dbPath)
	if err := srv.Router().Run(addr); err != nil {
		log.Fatalf("server exited: %v", err)
	}
}

// #endregion main

// #region helpers

// enginePrimary returns nil when no API key is set, which leaves the
// adapter on its deterministic rule engine.
func enginePrimary() diagnose.Engine {
	if eng := diagnose.NewLLMEngine(diagnose.DefaultLLMConfig()); eng != nil {
		log.Println("[MAIN] reasoning engine enabled")
		return eng
	}
	log.Println("[MAIN] no reasoning engine configured, using rule engine")
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// #endregion helpers

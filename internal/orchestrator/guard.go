package orchestrator

// #region imports
import (
	"log"
	"sync"

	"github.com/danielpatrickdp/opsagent/internal/classify"
	"github.com/danielpatrickdp/opsagent/internal/store"
)

// #endregion imports

// #region guard

// dedupGuard tracks one open incident per fault type so the monitor
// loop never files duplicates while the first one is being worked.
type dedupGuard struct {
	mu   sync.Mutex
	open map[classify.FaultType]string // fault type -> incident id
}

func newDedupGuard() *dedupGuard {
	return &dedupGuard{open: make(map[classify.FaultType]string)}
}

// Claim reserves the fault type for a new incident. It returns the
// already-open incident id and false when one is in flight.
func (g *dedupGuard) Claim(ft classify.FaultType, incidentID string) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if existing, ok := g.open[ft]; ok {
		return existing, false
	}
	g.open[ft] = incidentID
	return incidentID, true
}

// Release frees the fault type once its incident reaches a terminal
// status. Releasing a slot held by a different incident is a no-op,
// which keeps a stale caller from freeing a newer claim.
func (g *dedupGuard) Release(ft classify.FaultType, incidentID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.open[ft] == incidentID {
		delete(g.open, ft)
	}
}

func (g *dedupGuard) Holder(ft classify.FaultType) (string, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()
	id, ok := g.open[ft]
	return id, ok
}

// #endregion guard

// #region rebuild

// Rebuild reloads the guard from open incidents after a restart. The
// fault type is rederived from each incident's recorded root cause.
func (g *dedupGuard) Rebuild(s *store.Store) error {
	incidents, err := s.OpenIncidents()
	if err != nil {
		return err
	}
	g.mu.Lock()
	defer g.mu.Unlock()
	g.open = make(map[classify.FaultType]string)
	for _, inc := range incidents {
		ft := classify.FromRootCause(inc.RootCause)
		if _, taken := g.open[ft]; !taken {
			g.open[ft] = inc.ID
		}
	}
	if len(g.open) > 0 {
		log.Printf("[ORCH] rebuilt dedup guard with %d open incident(s)", len(g.open))
	}
	return nil
}

// #endregion rebuild

package hub

// #region imports
import (
	"encoding/json"
	"log"
	"sort"
	"sync"
)

// #endregion imports

// #region sink

// Sink is one connected observer. The websocket implementation lives
// in ws.go; tests substitute in-memory sinks.
type Sink interface {
	Send(msg []byte) error
	Close() error
}

// Event is the wire envelope for every push.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data,omitempty"`
}

// #endregion sink

// #region hub

// Hub fans events out to connected observers, keyed by user name.
// One connection per user: a new registration replaces the old one.
// A failed send evicts the sink so one dead connection never blocks
// the rest.
type Hub struct {
	mu      sync.Mutex
	sinks   map[string]Sink
	viewing map[string]string // user -> incident id currently open
}

func New() *Hub {
	return &Hub{
		sinks:   make(map[string]Sink),
		viewing: make(map[string]string),
	}
}

// #endregion hub

// #region registration

func (h *Hub) Register(user string, s Sink) {
	h.mu.Lock()
	if old, ok := h.sinks[user]; ok {
		old.Close()
	}
	h.sinks[user] = s
	h.mu.Unlock()
	log.Printf("[HUB] %s connected", user)
	h.BroadcastPresence()
}

func (h *Hub) Unregister(user string, s Sink) {
	h.mu.Lock()
	// Only drop the entry if it still points at this sink; a replace
	// would otherwise be undone by the stale connection's teardown.
	if cur, ok := h.sinks[user]; ok && cur == s {
		delete(h.sinks, user)
		delete(h.viewing, user)
	}
	h.mu.Unlock()
	log.Printf("[HUB] %s disconnected", user)
	h.BroadcastPresence()
}

// #endregion registration

// #region broadcast

func (h *Hub) Broadcast(eventType string, data any) {
	msg, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		log.Printf("[HUB] marshal %s event: %v", eventType, err)
		return
	}

	h.mu.Lock()
	var dead []string
	for user, s := range h.sinks {
		if err := s.Send(msg); err != nil {
			dead = append(dead, user)
		}
	}
	for _, user := range dead {
		h.sinks[user].Close()
		delete(h.sinks, user)
		delete(h.viewing, user)
	}
	h.mu.Unlock()

	if len(dead) > 0 {
		log.Printf("[HUB] evicted %d dead connection(s)", len(dead))
		h.BroadcastPresence()
	}
}

// SendTo pushes an event to a single user. Unknown users are a no-op.
func (h *Hub) SendTo(user, eventType string, data any) {
	msg, err := json.Marshal(Event{Type: eventType, Data: data})
	if err != nil {
		log.Printf("[HUB] marshal %s event: %v", eventType, err)
		return
	}
	h.mu.Lock()
	s, ok := h.sinks[user]
	h.mu.Unlock()
	if ok {
		if err := s.Send(msg); err != nil {
			h.mu.Lock()
			if cur, still := h.sinks[user]; still && cur == s {
				s.Close()
				delete(h.sinks, user)
				delete(h.viewing, user)
			}
			h.mu.Unlock()
			h.BroadcastPresence()
		}
	}
}

// #endregion broadcast

// #region presence

func (h *Hub) Online() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	users := make([]string, 0, len(h.sinks))
	for u := range h.sinks {
		users = append(users, u)
	}
	sort.Strings(users)
	return users
}

// SetViewing records which incident a user has open; an empty id
// clears it. Either way the new presence state is pushed to everyone.
func (h *Hub) SetViewing(user, incidentID string) {
	h.mu.Lock()
	if incidentID == "" {
		delete(h.viewing, user)
	} else {
		h.viewing[user] = incidentID
	}
	h.mu.Unlock()
	h.BroadcastPresence()
}

func (h *Hub) BroadcastPresence() {
	h.mu.Lock()
	viewing := make(map[string]string, len(h.viewing))
	for u, id := range h.viewing {
		viewing[u] = id
	}
	h.mu.Unlock()
	h.Broadcast("presence", map[string]any{
		"online":  h.Online(),
		"viewing": viewing,
	})
}

// #endregion presence

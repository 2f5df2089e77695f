package hub

import (
	"encoding/json"
	"errors"
	"sync"
	"testing"
)

type memSink struct {
	mu     sync.Mutex
	msgs   [][]byte
	failed bool
	closed bool
}

func (s *memSink) Send(msg []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failed {
		return errors.New("sink dead")
	}
	cp := make([]byte, len(msg))
	copy(cp, msg)
	s.msgs = append(s.msgs, cp)
	return nil
}

func (s *memSink) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *memSink) events(t *testing.T) []Event {
	t.Helper()
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Event, 0, len(s.msgs))
	for _, raw := range s.msgs {
		var ev Event
		if err := json.Unmarshal(raw, &ev); err != nil {
			t.Fatalf("bad event payload %q: %v", raw, err)
		}
		out = append(out, ev)
	}
	return out
}

func lastEventOfType(t *testing.T, s *memSink, typ string) (Event, bool) {
	t.Helper()
	evs := s.events(t)
	for i := len(evs) - 1; i >= 0; i-- {
		if evs[i].Type == typ {
			return evs[i], true
		}
	}
	return Event{}, false
}

func TestHub_BroadcastReachesEveryone(t *testing.T) {
	h := New()
	a, b := &memSink{}, &memSink{}
	h.Register("alice", a)
	h.Register("bob", b)

	h.Broadcast("incident_update", map[string]string{"incident_id": "abc"})

	for name, s := range map[string]*memSink{"alice": a, "bob": b} {
		if _, ok := lastEventOfType(t, s, "incident_update"); !ok {
			t.Errorf("%s did not receive the broadcast", name)
		}
	}
}

func TestHub_DeadSinkEvicted(t *testing.T) {
	h := New()
	alive, dead := &memSink{}, &memSink{failed: true}
	h.Register("alice", alive)
	h.Register("bob", dead)

	h.Broadcast("incident_update", nil)

	online := h.Online()
	if len(online) != 1 || online[0] != "alice" {
		t.Errorf("online = %v, want [alice]", online)
	}
	if !dead.closed {
		t.Error("dead sink not closed")
	}
	// eviction triggers a fresh presence push to survivors
	if ev, ok := lastEventOfType(t, alive, "presence"); !ok {
		t.Error("no presence event after eviction")
	} else if data, _ := ev.Data.(map[string]any); data == nil {
		t.Error("presence event has no data")
	}
}

func TestHub_ReRegisterReplacesSink(t *testing.T) {
	h := New()
	old, fresh := &memSink{}, &memSink{}
	h.Register("alice", old)
	h.Register("alice", fresh)

	if !old.closed {
		t.Error("old sink not closed on re-register")
	}
	if got := h.Online(); len(got) != 1 {
		t.Errorf("online = %v", got)
	}

	// teardown of the stale connection must not drop the new one
	h.Unregister("alice", old)
	if got := h.Online(); len(got) != 1 {
		t.Errorf("stale unregister removed fresh sink: %v", got)
	}
	h.Unregister("alice", fresh)
	if got := h.Online(); len(got) != 0 {
		t.Errorf("online after unregister = %v", got)
	}
}

func TestHub_SendTo(t *testing.T) {
	h := New()
	a, b := &memSink{}, &memSink{}
	h.Register("alice", a)
	h.Register("bob", b)

	h.SendTo("alice", "clearance_report", map[string]string{"incident_id": "abc"})

	if _, ok := lastEventOfType(t, a, "clearance_report"); !ok {
		t.Error("alice missed her direct message")
	}
	if _, ok := lastEventOfType(t, b, "clearance_report"); ok {
		t.Error("bob received a message addressed to alice")
	}
	// unknown user is a no-op
	h.SendTo("nobody", "clearance_report", nil)
}

func TestHub_ViewingPresence(t *testing.T) {
	h := New()
	a := &memSink{}
	h.Register("alice", a)

	h.SetViewing("alice", "abc123")
	ev, ok := lastEventOfType(t, a, "presence")
	if !ok {
		t.Fatal("no presence event")
	}
	data := ev.Data.(map[string]any)
	viewing := data["viewing"].(map[string]any)
	if viewing["alice"] != "abc123" {
		t.Errorf("viewing = %v", viewing)
	}

	h.SetViewing("alice", "")
	ev, _ = lastEventOfType(t, a, "presence")
	if viewing := ev.Data.(map[string]any)["viewing"].(map[string]any); len(viewing) != 0 {
		t.Errorf("viewing after clear = %v", viewing)
	}
}

package status

import (
	"testing"

	"github.com/matheus3301/parley/internal/bus"
)

func TestInitialState(t *testing.T) {
	m := NewMachine(nil)
	if m.Current() != Starting {
		t.Errorf("initial state = %s, want STARTING", m.Current())
	}
	if m.Serving() {
		t.Error("a starting daemon should not report serving")
	}
}

func TestValidTransitions(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Starting, Migrating},
		{Starting, Failed},
		{Migrating, Serving},
		{Migrating, Failed},
		{Serving, Draining},
		{Serving, Failed},
		{Draining, Stopped},
		{Failed, Stopped},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine(nil)
			walkTo(t, m, tt.from)
			if err := m.Transition(tt.to); err != nil {
				t.Errorf("Transition(%s -> %s) error = %v", tt.from, tt.to, err)
			}
			if m.Current() != tt.to {
				t.Errorf("state = %s, want %s", m.Current(), tt.to)
			}
		})
	}
}

func TestInvalidTransition(t *testing.T) {
	tests := []struct {
		from State
		to   State
	}{
		{Starting, Serving},
		{Migrating, Draining},
		{Serving, Migrating},
		{Stopped, Starting},
		{Failed, Serving},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			m := NewMachine(nil)
			walkTo(t, m, tt.from)
			if err := m.Transition(tt.to); err == nil {
				t.Errorf("Transition(%s -> %s) should fail", tt.from, tt.to)
			}
			if m.Current() != tt.from {
				t.Errorf("state = %s, want %s (should not have changed)", m.Current(), tt.from)
			}
		})
	}
}

func TestTransitionEmitsEvent(t *testing.T) {
	b := bus.New()
	ch, unsub := b.Subscribe("server.", 10)
	defer unsub()

	m := NewMachine(b)
	if err := m.Transition(Migrating); err != nil {
		t.Fatal(err)
	}

	evt := <-ch
	if evt.Kind != bus.KindServerStatusChanged {
		t.Errorf("event kind = %q, want %s", evt.Kind, bus.KindServerStatusChanged)
	}
	change, ok := evt.Payload.(StatusChange)
	if !ok {
		t.Fatalf("payload type = %T, want StatusChange", evt.Payload)
	}
	if change.From != Starting || change.To != Migrating {
		t.Errorf("change = %v -> %v, want STARTING -> MIGRATING", change.From, change.To)
	}
}

// TestFullLifecycle walks STARTING → MIGRATING → SERVING → DRAINING → STOPPED.
func TestFullLifecycle(t *testing.T) {
	m := NewMachine(nil)

	before := m.Since()
	steps := []State{Migrating, Serving, Draining, Stopped}
	for _, s := range steps {
		if err := m.Transition(s); err != nil {
			t.Fatalf("Transition to %s: %v (current: %s)", s, err, m.Current())
		}
		if s == Serving && !m.Serving() {
			t.Error("Serving() = false in SERVING")
		}
	}
	if m.Current() != Stopped {
		t.Errorf("final state = %s, want STOPPED", m.Current())
	}
	if m.Since().Before(before) {
		t.Error("Since() moved backwards")
	}
}

// walkTo is a helper that transitions the machine to a target state.
func walkTo(t *testing.T, m *Machine, target State) {
	t.Helper()
	paths := map[State][]State{
		Starting:  {},
		Migrating: {Migrating},
		Serving:   {Migrating, Serving},
		Draining:  {Migrating, Serving, Draining},
		Stopped:   {Migrating, Serving, Draining, Stopped},
		Failed:    {Failed},
	}
	for _, s := range paths[target] {
		if err := m.Transition(s); err != nil {
			t.Fatalf("walkTo(%s): %v", target, err)
		}
	}
}

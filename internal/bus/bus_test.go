package bus

import (
	"testing"
	"time"
)

func TestPublishSubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("message.", 10)
	defer unsub()

	b.Publish(Event{Kind: KindMessageSent, Timestamp: time.Now(), Payload: "test"})

	select {
	case evt := <-ch:
		if evt.Kind != KindMessageSent {
			t.Errorf("got kind %q, want %s", evt.Kind, KindMessageSent)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}
}

func TestNamespaceFiltering(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("typing.", 10)
	defer unsub()

	b.Publish(Event{Kind: KindServerStatusChanged})
	b.Publish(Event{Kind: KindTypingChanged})

	select {
	case evt := <-ch:
		if evt.Kind != KindTypingChanged {
			t.Errorf("got kind %q, want %s", evt.Kind, KindTypingChanged)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
	}

	select {
	case evt := <-ch:
		t.Errorf("unexpected event: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestAudienceFiltering(t *testing.T) {
	b := New()
	alice, unsubA := b.SubscribeFor("", "alice", 10)
	defer unsubA()
	carol, unsubC := b.SubscribeFor("", "carol", 10)
	defer unsubC()

	b.Publish(Event{Kind: KindMessageSent, Topic: "c1", Audience: []string{"alice", "bob"}})
	b.Publish(Event{Kind: KindServerStatusChanged})

	if evt := <-alice; evt.Kind != KindMessageSent {
		t.Errorf("alice got %q, want %s", evt.Kind, KindMessageSent)
	}
	if evt := <-alice; evt.Kind != KindServerStatusChanged {
		t.Errorf("alice got %q, want %s", evt.Kind, KindServerStatusChanged)
	}
	if evt := <-carol; evt.Kind != KindServerStatusChanged {
		t.Errorf("carol got %q, want %s", evt.Kind, KindServerStatusChanged)
	}
	select {
	case evt := <-carol:
		t.Errorf("carol received event outside her audience: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestUnsubscribe(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("message.", 10)
	unsub()

	b.Publish(Event{Kind: KindMessageDeleted})

	select {
	case evt := <-ch:
		t.Errorf("received event after unsubscribe: %v", evt)
	case <-time.After(50 * time.Millisecond):
	}
	if n := b.Subscribers(); n != 0 {
		t.Errorf("got %d subscribers, want 0", n)
	}
}

func TestDropOnFullBuffer(t *testing.T) {
	b := New()
	ch, unsub := b.Subscribe("reaction.", 1)
	defer unsub()

	b.Publish(Event{Kind: KindReactionChanged, Payload: 1})
	// Dropped, the buffer is full.
	b.Publish(Event{Kind: KindReactionChanged, Payload: 2})

	evt := <-ch
	if evt.Payload != 1 {
		t.Errorf("got payload %v, want 1", evt.Payload)
	}
}

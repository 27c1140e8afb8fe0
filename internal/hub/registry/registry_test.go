package registry

import (
	"fmt"
	"sync"
	"testing"
)

type fakeSub struct {
	id string

	mu       sync.Mutex
	messages []any
	down     bool
}

func newFakeSub(id string) *fakeSub { return &fakeSub{id: id} }

func (f *fakeSub) ID() string { return f.id }

func (f *fakeSub) Enqueue(msg any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, msg)
	return nil
}

func (f *fakeSub) Shutdown(string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.down = true
}

func (f *fakeSub) Closed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.down
}

func TestSubscribeIdempotent(t *testing.T) {
	r := New()
	s := newFakeSub("conn-1")

	r.Subscribe("bus-1", s)
	r.Subscribe("bus-1", s)
	r.Subscribe("bus-1", s)

	if got := len(r.MembersOf("bus-1")); got != 1 {
		t.Fatalf("expected 1 member after repeated subscribe, got %d", got)
	}
}

func TestUnsubscribeAbsentIsNoop(t *testing.T) {
	r := New()
	r.Unsubscribe("bus-1", "nobody")

	if got := len(r.MembersOf("bus-1")); got != 0 {
		t.Fatalf("expected empty member set, got %d", got)
	}
}

func TestMembersOfIsolation(t *testing.T) {
	r := New()
	a := newFakeSub("conn-a")
	b := newFakeSub("conn-b")

	r.Subscribe("bus-1", a)
	r.Subscribe("bus-2", b)

	if got := len(r.MembersOf("bus-1")); got != 1 {
		t.Fatalf("bus-1: expected 1 member, got %d", got)
	}
	if got := r.MembersOf("bus-1")[0].ID(); got != "conn-a" {
		t.Fatalf("bus-1: expected conn-a, got %s", got)
	}
	if got := len(r.MembersOf("bus-2")); got != 1 {
		t.Fatalf("bus-2: expected 1 member, got %d", got)
	}
}

func TestMembersOfSnapshot(t *testing.T) {
	r := New()
	a := newFakeSub("conn-a")
	r.Subscribe("bus-1", a)

	members := r.MembersOf("bus-1")
	r.Unsubscribe("bus-1", "conn-a")

	// The earlier snapshot must be unaffected by the mutation.
	if len(members) != 1 {
		t.Fatalf("snapshot mutated, len=%d", len(members))
	}
	if got := len(r.MembersOf("bus-1")); got != 0 {
		t.Fatalf("expected empty set after unsubscribe, got %d", got)
	}
}

func TestReleaseConnRemovesAllMemberships(t *testing.T) {
	r := New()
	s := newFakeSub("conn-1")
	other := newFakeSub("conn-2")

	vehicles := []string{"bus-1", "bus-2", "bus-3"}
	for _, v := range vehicles {
		r.Subscribe(v, s)
	}
	r.Subscribe("bus-2", other)

	r.ReleaseConn("conn-1")

	for _, v := range vehicles {
		for _, m := range r.MembersOf(v) {
			if m.ID() == "conn-1" {
				t.Fatalf("conn-1 still subscribed to %s after release", v)
			}
		}
	}
	if got := len(r.MembersOf("bus-2")); got != 1 {
		t.Fatalf("release removed unrelated subscriber, bus-2 members=%d", got)
	}

	// Second release must be a no-op.
	r.ReleaseConn("conn-1")
}

func TestSubscribeAfterShutdownRefused(t *testing.T) {
	r := New()
	s := newFakeSub("conn-1")

	r.Subscribe("bus-1", s)

	// Teardown order on a dropped connection: shut down first, then
	// release. A subscribe dispatched by a still-draining read loop
	// lands after both and must not leave a membership behind.
	s.Shutdown("dropped")
	r.ReleaseConn("conn-1")
	r.Subscribe("bus-2", s)

	if got := len(r.MembersOf("bus-2")); got != 0 {
		t.Fatalf("released connection still a member of bus-2: %d entries", got)
	}
	if got := len(r.MembersOf("bus-1")); got != 0 {
		t.Fatalf("bus-1 membership survived release: %d entries", got)
	}
}

func TestSubscribeRacingShutdownIsUndone(t *testing.T) {
	r := New()
	s := newFakeSub("conn-1")

	// The subscriber goes down while Subscribe is between its liveness
	// check and the insert. The insert is invisible to the release that
	// already ran, so Subscribe itself must undo it.
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		s.Shutdown("dropped")
		r.ReleaseConn("conn-1")
	}()
	r.Subscribe("bus-1", s)
	wg.Wait()

	if got := len(r.MembersOf("bus-1")); got != 0 {
		t.Fatalf("bus-1 has %d members after racing release", got)
	}
}

func TestConcurrentChurn(t *testing.T) {
	r := New()

	var wg sync.WaitGroup
	for i := 0; i < 32; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			s := newFakeSub(fmt.Sprintf("conn-%d", n))
			vehicle := fmt.Sprintf("bus-%d", n%8)
			for j := 0; j < 100; j++ {
				r.Subscribe(vehicle, s)
				r.MembersOf(vehicle)
				r.Unsubscribe(vehicle, s.ID())
			}
			r.Subscribe(vehicle, s)
			r.ReleaseConn(s.ID())
		}(i)
	}
	wg.Wait()

	for i := 0; i < 8; i++ {
		if got := len(r.MembersOf(fmt.Sprintf("bus-%d", i))); got != 0 {
			t.Fatalf("bus-%d still has %d members after churn", i, got)
		}
	}
}

package registry

import (
	"hash/fnv"
	"sync"

	"buswatch.io/buswatch/internal/pkg/metrics"
)

// Subscriber is a delivery target stored in the registry. Implemented by
// the gateway's connection handle.
type Subscriber interface {
	// ID returns the unique connection id.
	ID() string

	// Enqueue hands a message to the subscriber without blocking. An
	// error means the subscriber cannot keep up or is already closed.
	Enqueue(msg any) error

	// Shutdown asynchronously closes the subscriber's connection. Safe to
	// call more than once.
	Shutdown(reason string)

	// Closed reports whether the subscriber has been shut down. Must be
	// true before the subscriber's connection is released from the
	// registry.
	Closed() bool
}

// shardCount trades memory for lock independence between vehicle topics.
const shardCount = 64

type shard struct {
	mu sync.RWMutex
	// vehicleID -> connID -> Subscriber
	topics map[string]map[string]Subscriber
}

// Registry maps vehicle ids to the set of connections subscribed to them.
// Membership is linearizable per vehicle; unrelated vehicles never contend
// on the same lock. A reverse index keyed by connection id makes release
// proportional to the connection's own subscriptions.
type Registry struct {
	shards [shardCount]*shard

	mu sync.Mutex
	// connID -> set of vehicleIDs
	byConn map[string]map[string]struct{}
}

// New creates an empty Registry.
func New() *Registry {
	r := &Registry{
		byConn: make(map[string]map[string]struct{}),
	}
	for i := range r.shards {
		r.shards[i] = &shard{topics: make(map[string]map[string]Subscriber)}
	}
	return r
}

func (r *Registry) shardFor(vehicleID string) *shard {
	h := fnv.New32a()
	_, _ = h.Write([]byte(vehicleID))
	return r.shards[h.Sum32()%shardCount]
}

// Subscribe adds the subscriber to the vehicle's member set. Idempotent.
// A subscriber that has already been shut down is refused, so a subscribe
// racing the connection's release can never leave a membership behind.
func (r *Registry) Subscribe(vehicleID string, s Subscriber) {
	if s.Closed() {
		return
	}

	sh := r.shardFor(vehicleID)

	sh.mu.Lock()
	members, ok := sh.topics[vehicleID]
	if !ok {
		members = make(map[string]Subscriber)
		sh.topics[vehicleID] = members
	}
	_, existed := members[s.ID()]
	members[s.ID()] = s
	sh.mu.Unlock()

	if existed {
		return
	}

	r.mu.Lock()
	vehicles, ok := r.byConn[s.ID()]
	if !ok {
		vehicles = make(map[string]struct{})
		r.byConn[s.ID()] = vehicles
	}
	vehicles[vehicleID] = struct{}{}
	r.mu.Unlock()

	metrics.SubscriptionsActive.Inc()

	// The subscriber may have been shut down and released between the
	// liveness check and the inserts; ReleaseConn cannot see an entry
	// added after its snapshot, so undo it here.
	if s.Closed() {
		r.Unsubscribe(vehicleID, s.ID())
	}
}

// Unsubscribe removes the membership. No-op if absent.
func (r *Registry) Unsubscribe(vehicleID, connID string) {
	sh := r.shardFor(vehicleID)

	sh.mu.Lock()
	members, ok := sh.topics[vehicleID]
	var existed bool
	if ok {
		_, existed = members[connID]
		delete(members, connID)
		if len(members) == 0 {
			delete(sh.topics, vehicleID)
		}
	}
	sh.mu.Unlock()

	if !existed {
		return
	}

	r.mu.Lock()
	if vehicles, ok := r.byConn[connID]; ok {
		delete(vehicles, vehicleID)
		if len(vehicles) == 0 {
			delete(r.byConn, connID)
		}
	}
	r.mu.Unlock()

	metrics.SubscriptionsActive.Dec()
}

// MembersOf returns the current subscribers of a vehicle's topic. The
// returned slice is a snapshot; mutating the registry does not affect it.
func (r *Registry) MembersOf(vehicleID string) []Subscriber {
	sh := r.shardFor(vehicleID)

	sh.mu.RLock()
	defer sh.mu.RUnlock()

	members := sh.topics[vehicleID]
	if len(members) == 0 {
		return nil
	}
	out := make([]Subscriber, 0, len(members))
	for _, s := range members {
		out = append(out, s)
	}
	return out
}

// ReleaseConn removes the connection from every vehicle's member set.
// Invoked once per connection close; calling it again is a no-op.
func (r *Registry) ReleaseConn(connID string) {
	r.mu.Lock()
	vehicles := r.byConn[connID]
	delete(r.byConn, connID)
	r.mu.Unlock()

	for vehicleID := range vehicles {
		sh := r.shardFor(vehicleID)
		sh.mu.Lock()
		if members, ok := sh.topics[vehicleID]; ok {
			delete(members, connID)
			if len(members) == 0 {
				delete(sh.topics, vehicleID)
			}
		}
		sh.mu.Unlock()
		metrics.SubscriptionsActive.Dec()
	}
}

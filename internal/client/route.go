package client

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/luxfi/prism/internal/wire"
)

// ServerRecord is a client's view of one known PRISM server: enough to
// address it and decide whether it's still a usable relay or dropbox
// hop (spec.md's ARK-derived server directory entry).
type ServerRecord struct {
	Name          string
	Pseudonym     []byte
	Epoch         string
	Role          string
	LinkAddresses []string
	Valid         bool
}

// Reachability reports whether a route hop can reach another, backed by
// the link-state database's reachability table (server_db.py's
// can_reach, gated on link-state routing being enabled).
type Reachability func(from, to ServerRecord) bool

// AlwaysReachable is the Reachability used when link-state routing is
// disabled: every hop is assumed reachable (server_db.py's can_reach
// returns True unconditionally when ls_routing is off).
func AlwaysReachable(ServerRecord, ServerRecord) bool { return true }

// Route is a concrete onion path: zero or more EMIX hops followed by a
// dropbox target.
type Route struct {
	Hops      []ServerRecord
	Target    ServerRecord
	Timestamp time.Time
}

// Head returns the first hop a message is actually sent to.
func (r Route) Head() ServerRecord {
	if len(r.Hops) == 0 {
		return r.Target
	}
	return r.Hops[0]
}

// Tail returns every hop after the first, plus the target — the nodes
// that must stay mutually reachable for the route to still be usable.
func (r Route) Tail() []ServerRecord {
	if len(r.Hops) == 0 {
		return nil
	}
	tail := make([]ServerRecord, 0, len(r.Hops))
	tail = append(tail, r.Hops[1:]...)
	tail = append(tail, r.Target)
	return tail
}

// IsDead reports whether any link-state hop along the route has become
// unreachable from the head.
func (r Route) IsDead(reachable Reachability) bool {
	head := r.Head()
	for _, hop := range r.Tail() {
		if !reachable(head, hop) {
			return true
		}
	}
	return false
}

// Wrap layers msg for delivery through the route: each EMIX hop from the
// target backwards wraps the previous layer's encoding in a
// TypeSendToNext addressed to the next hop. The layers are CBOR-encoded
// only; no hop's key is applied, so every layer is readable in transit.
func Wrap(route Route, msg *wire.Message) *wire.Message {
	target := route.Target
	for i := len(route.Hops) - 1; i >= 0; i-- {
		emix := route.Hops[i]
		wrapped := wire.New(wire.TypeSendToNext)
		wrapped.Set(wire.FieldName, target.Name)
		wrapped.Set(wire.FieldData, mustEncode(msg))
		msg = wrapped
		target = emix
	}
	return msg
}

func mustEncode(msg *wire.Message) []byte {
	data, err := wire.Encode(msg)
	if err != nil {
		// Encoding a message built entirely from this package's own
		// constructors should never fail; a failure here means a
		// caller handed Wrap a malformed message.
		panic(fmt.Sprintf("client: encode onion layer: %v", err))
	}
	return data
}

// FindRoute picks a route to target through layers-1 random EMIX hops
// chosen from candidates, starting from one of starts that can still
// reach target. It returns nil if no starting point has enough
// reachable, non-NARKed hops to fill the route.
func FindRoute(reachable Reachability, starts, candidates []ServerRecord, target ServerRecord, layers int, epoch string) *Route {
	var usableStarts []ServerRecord
	for _, s := range starts {
		if reachable(s, target) {
			usableStarts = append(usableStarts, s)
		}
	}

	type candidateRoute struct {
		hops []ServerRecord
	}
	var routes []candidateRoute

	for _, start := range usableStarts {
		var hops []ServerRecord
		for _, emix := range candidates {
			if emix.Name == start.Name || emix.Epoch != epoch {
				continue
			}
			if reachable(start, emix) {
				hops = append(hops, emix)
			}
		}
		if len(hops)+1 < layers {
			continue
		}
		rand.Shuffle(len(hops), func(i, j int) { hops[i], hops[j] = hops[j], hops[i] })
		picked := append([]ServerRecord{start}, hops[:layers-1]...)
		routes = append(routes, candidateRoute{hops: picked})
	}

	if len(routes) == 0 {
		return nil
	}
	chosen := routes[rand.Intn(len(routes))]
	return &Route{Hops: chosen.hops, Target: target, Timestamp: time.Now()}
}

package routing

import (
	"sync"
	"time"

	"github.com/luxfi/prism/internal/logging"
)

// Neighbor is a directly adjacent node reachable over a specific link
// address.
type Neighbor struct {
	Address   string
	Pseudonym string
}

// Neighborhood tracks which neighbors are currently presumed alive,
// resetting a liveness timer on every HELLO/HELLO_RESPONSE received and
// declaring a neighbor dead if the timer lapses (spec.md 4.6, "HELLO
// handshake liveness state machine").
type Neighborhood struct {
	mu sync.Mutex

	self      Neighbor
	neighbors map[string]Neighbor // pseudonym -> Neighbor
	timers    map[string]*time.Timer

	aliveTimeout time.Duration
	onAliveness  func()
	onDead       func(pseudonym string)

	log *logging.Logger
}

// NewNeighborhood builds a neighborhood centered on self.
func NewNeighborhood(self Neighbor, aliveTimeout time.Duration, log *logging.Logger) *Neighborhood {
	return &Neighborhood{
		self:         self,
		neighbors:    map[string]Neighbor{self.Pseudonym: self},
		timers:       make(map[string]*time.Timer),
		aliveTimeout: aliveTimeout,
		log:          log,
	}
}

// OnAliveness registers a callback fired whenever neighborhood membership
// changes (used to retrigger a routing table recomputation).
func (n *Neighborhood) OnAliveness(cb func()) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onAliveness = cb
}

// OnDead registers a callback fired when a neighbor is declared dead.
func (n *Neighborhood) OnDead(cb func(pseudonym string)) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.onDead = cb
}

// AddressFor returns the link address of a known neighbor.
func (n *Neighborhood) AddressFor(pseudonym string) (string, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	nb, ok := n.neighbors[pseudonym]
	return nb.Address, ok
}

// IsAlive reports whether pseudonym is currently a tracked neighbor.
func (n *Neighborhood) IsAlive(pseudonym string) bool {
	n.mu.Lock()
	defer n.mu.Unlock()
	_, ok := n.neighbors[pseudonym]
	return ok
}

// SetAlive records a HELLO/HELLO_RESPONSE from pseudonym: if it's a known
// neighbor, its dead-timer resets; if it's new, it's admitted.
func (n *Neighborhood) SetAlive(nb Neighbor) {
	if nb.Pseudonym == n.self.Pseudonym {
		return
	}

	n.mu.Lock()
	_, existed := n.neighbors[nb.Pseudonym]
	n.neighbors[nb.Pseudonym] = nb
	n.resetTimerLocked(nb.Pseudonym)
	cb := n.onAliveness
	n.mu.Unlock()

	if !existed && cb != nil {
		cb()
	}
}

func (n *Neighborhood) resetTimerLocked(pseudonym string) {
	if t, ok := n.timers[pseudonym]; ok {
		t.Stop()
	}
	n.timers[pseudonym] = time.AfterFunc(n.aliveTimeout, func() {
		n.declareDead(pseudonym)
	})
}

func (n *Neighborhood) declareDead(pseudonym string) {
	n.mu.Lock()
	nb, ok := n.neighbors[pseudonym]
	if !ok {
		n.mu.Unlock()
		return
	}
	delete(n.neighbors, pseudonym)
	if t, ok := n.timers[pseudonym]; ok {
		t.Stop()
		delete(n.timers, pseudonym)
	}
	cb := n.onAliveness
	dead := n.onDead
	n.mu.Unlock()

	n.log.With("pseudonym", pseudonym, "address", nb.Address).Warn("declaring neighbor dead")
	if dead != nil {
		dead(pseudonym)
	}
	if cb != nil {
		cb()
	}
}

// Neighbors returns a snapshot of every currently-alive neighbor
// (excluding self).
func (n *Neighborhood) Neighbors() []Neighbor {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]Neighbor, 0, len(n.neighbors))
	for p, nb := range n.neighbors {
		if p == n.self.Pseudonym {
			continue
		}
		out = append(out, nb)
	}
	return out
}

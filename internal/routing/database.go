// Package routing maintains the link-state picture of an epoch's
// network: each node's most recent LSP, a TTL-driven expiration queue,
// and a Dijkstra-derived next-hop routing table.
package routing

import (
	"container/heap"
	"sort"
	"sync"
	"time"

	"github.com/luxfi/prism/internal/logging"
)

// Neighbor is one edge of an LSP: a directly observed neighbor and the
// cost of reaching it.
type Neighbor struct {
	Pseudonym string
	Cost      int
}

// LSP is a single node's link-state packet: who its neighbors are, how
// fresh the packet is, and how long it's valid for.
type LSP struct {
	Originator      string
	Neighbors       []Neighbor
	MicroTimestamp  int64
	TTL             float64 // seconds
	HopCount        int
}

func (l LSP) expiresAt() time.Time {
	return time.UnixMicro(l.MicroTimestamp).Add(time.Duration(l.TTL * float64(time.Second)))
}

type expirationEntry struct {
	originator string
	expiresAt  time.Time
	index      int
}

type expirationHeap []*expirationEntry

func (h expirationHeap) Len() int            { return len(h) }
func (h expirationHeap) Less(i, j int) bool  { return h[i].expiresAt.Before(h[j].expiresAt) }
func (h expirationHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i]; h[i].index, h[j].index = i, j }
func (h *expirationHeap) Push(x interface{}) {
	e := x.(*expirationEntry)
	e.index = len(*h)
	*h = append(*h, e)
}
func (h *expirationHeap) Pop() interface{} {
	old := *h
	n := len(old)
	e := old[n-1]
	old[n-1] = nil
	*h = old[:n-1]
	return e
}

// Database is the link-state database, hops-max cap, and derived routing
// table for a single epoch (spec.md 4.6, "LS Database").
type Database struct {
	mu sync.Mutex

	self    string
	hopsMax int
	epoch   string

	lsps        map[string]LSP
	expirations expirationHeap
	indexByNode map[string]*expirationEntry
	routingTable map[string]string

	log          *logging.Logger
	onExpiration func(originator string)

	timer *time.Timer
	stop  chan struct{}
}

// NewDatabase builds an empty database for self's own epoch.
func NewDatabase(self string, hopsMax int, epoch string, log *logging.Logger) *Database {
	d := &Database{
		self:         self,
		hopsMax:      hopsMax,
		epoch:        epoch,
		lsps:         make(map[string]LSP),
		indexByNode:  make(map[string]*expirationEntry),
		routingTable: make(map[string]string),
		log:          log,
		stop:         make(chan struct{}),
	}
	heap.Init(&d.expirations)
	return d
}

// UpdateIf inserts lsp if it's newer than what's stored, or (tie-break)
// if it carries a strictly lower hop count at the same timestamp with
// identical neighbors, so a copy that travelled fewer hops (for example
// one below the hop limit) replaces one that travelled further
// (LSDatabase.update_if's three-way OR).
func (d *Database) UpdateIf(lsp LSP) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	existing, ok := d.lsps[lsp.Originator]
	update := !ok ||
		existing.MicroTimestamp < lsp.MicroTimestamp ||
		(existing.MicroTimestamp == lsp.MicroTimestamp &&
			sameNeighborSet(existing.Neighbors, lsp.Neighbors) &&
			lsp.HopCount < existing.HopCount)
	if !update {
		return false
	}

	d.lsps[lsp.Originator] = lsp
	d.scheduleExpiration(lsp)
	return true
}

func sameNeighborSet(a, b []Neighbor) bool {
	if len(a) != len(b) {
		return false
	}
	as := make([]string, len(a))
	bs := make([]string, len(b))
	for i := range a {
		as[i] = a[i].Pseudonym
	}
	for i := range b {
		bs[i] = b[i].Pseudonym
	}
	sort.Strings(as)
	sort.Strings(bs)
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

func (d *Database) scheduleExpiration(lsp LSP) {
	if old, ok := d.indexByNode[lsp.Originator]; ok {
		heap.Remove(&d.expirations, old.index)
	}
	entry := &expirationEntry{originator: lsp.Originator, expiresAt: lsp.expiresAt()}
	heap.Push(&d.expirations, entry)
	d.indexByNode[lsp.Originator] = entry
	d.resetTimerLocked()
}

func (d *Database) resetTimerLocked() {
	if len(d.expirations) == 0 {
		return
	}
	next := d.expirations[0].expiresAt
	delay := time.Until(next)
	if delay < 0 {
		delay = 0
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(delay, d.expire)
}

func (d *Database) expire() {
	d.mu.Lock()
	if len(d.expirations) == 0 {
		d.mu.Unlock()
		return
	}
	top := d.expirations[0]
	if time.Now().Before(top.expiresAt) {
		d.resetTimerLocked()
		d.mu.Unlock()
		return
	}
	heap.Pop(&d.expirations)
	delete(d.indexByNode, top.originator)
	delete(d.lsps, top.originator)
	d.resetTimerLocked()
	d.mu.Unlock()

	d.log.With("originator", top.originator).Warn("LSP expired, removing from database")
	if d.onExpiration != nil {
		d.onExpiration(top.originator)
	}
	d.UpdateRoutingTable()
}

// OnExpiration registers a callback invoked whenever an LSP expires (used
// to trigger a NARK for the departed originator's ARK role).
func (d *Database) OnExpiration(cb func(originator string)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onExpiration = cb
}

// Lookup returns the stored LSP for originator, if any.
func (d *Database) Lookup(originator string) (LSP, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	lsp, ok := d.lsps[originator]
	return lsp, ok
}

// UpdateRoutingTable recomputes next-hop routing from the current LSP set
// via Dijkstra from self, taking the max of each direction's advertised
// cost for edges both endpoints agree exist (ls_database.py's
// bidirectional-edge reconciliation). Returns whether reachability
// changed.
func (d *Database) UpdateRoutingTable() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	type edgeKey struct{ a, b string }
	costs := make(map[edgeKey]int)
	for src, lsp := range d.lsps {
		for _, n := range lsp.Neighbors {
			costs[edgeKey{src, n.Pseudonym}] = n.Cost
		}
	}

	adjacency := make(map[string]map[string]int)
	addEdge := func(a, b string, cost int) {
		if adjacency[a] == nil {
			adjacency[a] = make(map[string]int)
		}
		if existing, ok := adjacency[a][b]; !ok || cost > existing {
			adjacency[a][b] = cost
		}
	}
	seen := make(map[edgeKey]bool)
	for k, cost1 := range costs {
		edge := edgeKey{k.a, k.b}
		if edge.a > edge.b {
			edge = edgeKey{edge.b, edge.a}
		}
		if seen[edge] {
			continue
		}
		seen[edge] = true
		cost2, reverseOK := costs[edgeKey{k.b, k.a}]
		if !reverseOK {
			continue
		}
		best := cost1
		if cost2 > best {
			best = cost2
		}
		addEdge(k.a, k.b, best)
		addEdge(k.b, k.a, best)
	}

	newTable := dijkstraNextHops(d.self, adjacency)

	oldReachable := make(map[string]bool, len(d.routingTable))
	for dest := range d.routingTable {
		oldReachable[dest] = true
	}
	changed := len(newTable) != len(oldReachable)
	if !changed {
		for dest := range newTable {
			if !oldReachable[dest] {
				changed = true
				break
			}
		}
	}

	d.routingTable = newTable
	return changed
}

// dijkstraNextHops returns, for every node reachable from self, the
// pseudonym of the next hop on a shortest path.
func dijkstraNextHops(self string, adjacency map[string]map[string]int) map[string]string {
	const inf = int(^uint(0) >> 1)
	dist := map[string]int{self: 0}
	nextHop := map[string]string{}
	visited := map[string]bool{}

	// collect all known nodes
	nodes := map[string]bool{self: true}
	for a, edges := range adjacency {
		nodes[a] = true
		for b := range edges {
			nodes[b] = true
		}
	}

	for len(visited) < len(nodes) {
		cur := ""
		best := inf
		for n := range nodes {
			if visited[n] {
				continue
			}
			if d, ok := dist[n]; ok && d < best {
				best = d
				cur = n
			}
		}
		if cur == "" {
			break
		}
		visited[cur] = true
		for neighbor, cost := range adjacency[cur] {
			if visited[neighbor] {
				continue
			}
			alt := dist[cur] + cost
			if existing, ok := dist[neighbor]; !ok || alt < existing {
				dist[neighbor] = alt
				if cur == self {
					nextHop[neighbor] = neighbor
				} else {
					nextHop[neighbor] = nextHop[cur]
				}
			}
		}
	}
	delete(nextHop, self)
	return nextHop
}

// ReachableDestinations returns every destination self currently has a
// route to.
func (d *Database) ReachableDestinations() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]string, 0, len(d.routingTable))
	for dest := range d.routingTable {
		out = append(out, dest)
	}
	return out
}

// NextHop returns the next-hop pseudonym for destination, if reachable.
func (d *Database) NextHop(destination string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	hop, ok := d.routingTable[destination]
	return hop, ok
}

package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/luxfi/prism/internal/wire"
)

// MemNetwork is an in-process bus connecting MemChannel instances by
// party name, standing in for the sockets/bebo channels of a live
// deployment when running end-to-end scenarios in a single process.
type MemNetwork struct {
	mu       sync.Mutex
	parties  map[string]*Transport
}

// NewMemNetwork builds an empty bus.
func NewMemNetwork() *MemNetwork {
	return &MemNetwork{parties: make(map[string]*Transport)}
}

// Join registers t under name and returns a Channel wired into the shared
// bus; t.AddChannel(channel) still needs to be called by the caller.
func (n *MemNetwork) Join(name string, t *Transport) *MemChannel {
	n.mu.Lock()
	n.parties[name] = t
	n.mu.Unlock()
	return &MemChannel{id: "mem", network: n, owner: name}
}

func (n *MemNetwork) transportFor(name string) (*Transport, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	t, ok := n.parties[name]
	return t, ok
}

func (n *MemNetwork) names() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]string, 0, len(n.parties))
	for name := range n.parties {
		out = append(out, name)
	}
	return out
}

// MemChannel is a Channel backed by a MemNetwork: "creating" a link just
// means remembering which endpoints it addresses, since delivery is a
// direct in-process call into the destination Transport.
type MemChannel struct {
	mu      sync.Mutex
	id      string
	network *MemNetwork
	owner   string
	links   []Link
}

func (c *MemChannel) ID() string { return c.id }

func (c *MemChannel) Links() []Link {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Link(nil), c.links...)
}

func (c *MemChannel) CreateLink(ctx context.Context, endpoints []string, epoch string) (Link, error) {
	l := &memLink{
		id:        fmt.Sprintf("mem-%s-%d", c.owner, len(c.links)),
		epoch:     epoch,
		endpoints: endpoints,
		network:   c.network,
	}
	c.mu.Lock()
	c.links = append(c.links, l)
	c.mu.Unlock()
	return l, nil
}

func (c *MemChannel) LoadLink(ctx context.Context, address string, endpoints []string, epoch string) (Link, error) {
	return c.CreateLink(ctx, endpoints, epoch)
}

// memLink delivers directly into every named endpoint's Transport; an
// endpoint list of ["*"] broadcasts to every joined party.
type memLink struct {
	id        string
	epoch     string
	endpoints []string
	network   *MemNetwork
}

func (l *memLink) ID() string              { return l.id }
func (l *memLink) Epoch() string           { return l.epoch }
func (l *memLink) Endpoints() []string     { return l.endpoints }
func (l *memLink) Status() ConnectionStatus { return ConnectionOpen }
func (l *memLink) Type() LinkType           { return LinkBidirectional }

func (l *memLink) CanReach(address string) bool {
	for _, e := range l.endpoints {
		if e == address || e == "*" {
			return true
		}
	}
	return false
}

func (l *memLink) Send(ctx context.Context, msg *wire.Message) bool {
	select {
	case <-ctx.Done():
		return false
	default:
	}

	targets := l.endpoints
	if len(targets) == 1 && targets[0] == "*" {
		targets = l.network.names()
	}

	sent := false
	for _, name := range targets {
		t, ok := l.network.transportFor(name)
		if !ok {
			continue
		}
		t.Deliver(Package{Message: msg, Link: l})
		sent = true
	}
	return sent
}

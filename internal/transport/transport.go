// Package transport abstracts message delivery over a set of channels and
// links, independent of what physical medium backs them. It also
// implements the hook mechanism that lets waiting operations intercept a
// matching message inline instead of polling a shared queue.
package transport

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/luxfi/prism/internal/logging"
	"github.com/luxfi/prism/internal/wire"
)

// ConnectionStatus/LinkType classify a link the way the
// source's transport.enums does; only the values the rest of this module
// reference are carried over.
type ConnectionStatus int

const (
	ConnectionClosed ConnectionStatus = iota
	ConnectionOpen
	ConnectionAvailable
)

type LinkType int

const (
	LinkSend LinkType = iota
	LinkReceive
	LinkBidirectional
)

func (t LinkType) CanSend() bool {
	return t == LinkSend || t == LinkBidirectional
}

// Package wraps a received message with the link it arrived on and when.
type Package struct {
	Message   *wire.Message
	Link      Link
	Timestamp time.Time
}

// Link is a single point-to-point or broadcast send/receive path, reached
// through a Channel.
type Link interface {
	ID() string
	Epoch() string
	Endpoints() []string
	Status() ConnectionStatus
	Type() LinkType
	CanReach(address string) bool
	Send(ctx context.Context, msg *wire.Message) bool
}

// Channel groups the links reachable over one transmission medium (e.g.
// "tcp" or an in-process test bus).
type Channel interface {
	ID() string
	Links() []Link
	CreateLink(ctx context.Context, endpoints []string, epoch string) (Link, error)
	LoadLink(ctx context.Context, address string, endpoints []string, epoch string) (Link, error)
}

// Hook lets a waiting caller intercept matching packages inline instead of
// going through the transport's general delivery pool. Register one,
// range over C until the desired package arrives, then pass it to
// Transport.RemoveHook.
type Hook struct {
	Match func(Package) bool
	C     chan Package
}

// NewHook builds a hook with a 256-package buffer; delivery never blocks on
// a slow consumer, and matching packages arriving while the buffer is full
// are dropped.
func NewHook(match func(Package) bool) *Hook {
	return &Hook{Match: match, C: make(chan Package, 256)}
}

func (h *Hook) put(pkg Package) {
	select {
	case h.C <- pkg:
	default:
	}
}

// localLink loops packages back to the owning Transport without touching
// any Channel, mirroring the source's LocalLink for self-addressed
// traffic (a party sending to its own persona name).
type localLink struct {
	epoch string
	t     *Transport
}

func (l *localLink) ID() string                 { return "local" }
func (l *localLink) Epoch() string              { return l.epoch }
func (l *localLink) Endpoints() []string         { return []string{"local"} }
func (l *localLink) Status() ConnectionStatus    { return ConnectionOpen }
func (l *localLink) Type() LinkType              { return LinkSend }
func (l *localLink) CanReach(address string) bool { return address == "local" }
func (l *localLink) Send(ctx context.Context, msg *wire.Message) bool {
	l.t.deliver(Package{Message: msg, Link: l, Timestamp: time.Now()})
	return true
}

// Transport delivers packages to hooks over its channels. Its HoldDuration
// governs how long an unmatched package is retained in the pool before
// it's dropped, matching `dt_hold_package_sec`
// (config.SendConfig.HoldPackageSec).
type Transport struct {
	mu           sync.Mutex
	localAddress string
	channels     []Channel
	hooks        []*Hook
	pool         map[string]Package
	holdDuration time.Duration

	local *localLink
	log   *logging.Logger

	fallbackBroadcast bool
}

// New builds a Transport for localAddress with no channels registered yet;
// AddChannel wires in real or in-memory channels after construction.
func New(localAddress string, holdDuration time.Duration, fallbackBroadcast bool, log *logging.Logger) *Transport {
	t := &Transport{
		localAddress:      localAddress,
		pool:              make(map[string]Package),
		holdDuration:      holdDuration,
		fallbackBroadcast: fallbackBroadcast,
		log:               log,
	}
	t.local = &localLink{epoch: "genesis", t: t}
	return t
}

// AddChannel registers a channel this transport can send/receive over.
func (t *Transport) AddChannel(c Channel) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.channels = append(t.channels, c)
}

// LinksForAddress returns every usable link across every channel that can
// reach address; the address "*" selects every usable link.
func (t *Transport) LinksForAddress(address string) []Link {
	t.mu.Lock()
	channels := append([]Channel(nil), t.channels...)
	t.mu.Unlock()

	var out []Link
	for _, c := range channels {
		for _, l := range c.Links() {
			if l.Type().CanSend() && l.Status() != ConnectionClosed && (address == "*" || l.CanReach(address)) {
				out = append(out, l)
			}
		}
	}
	return out
}

// RegisterHook adds hook to the live set, first draining any pool entries
// it already matches (spec.md 4.4: late-registering hooks still see
// messages that arrived before they subscribed).
func (t *Transport) RegisterHook(hook *Hook) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for id, pkg := range t.pool {
		if hook.Match(pkg) {
			hook.put(pkg)
			delete(t.pool, id)
		}
	}
	t.hooks = append(t.hooks, hook)
}

// RemoveHook unregisters a hook and closes its channel.
func (t *Transport) RemoveHook(hook *Hook) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for i, h := range t.hooks {
		if h == hook {
			t.hooks = append(t.hooks[:i], t.hooks[i+1:]...)
			break
		}
	}
	close(hook.C)
}

// deliver is called by a Link implementation (or loopback) whenever a
// package arrives. It matches against every live hook; packages nobody
// claims sit in the pool until a later-registering hook claims them or
// HoldDuration elapses.
func (t *Transport) deliver(pkg Package) {
	if pkg.Timestamp.IsZero() {
		pkg.Timestamp = time.Now()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	matched := false
	for _, h := range t.hooks {
		if h.Match(pkg) {
			h.put(pkg)
			matched = true
		}
	}
	if !matched {
		t.pool[uuid.NewString()] = pkg
	}
}

// Deliver is the exported entry point channels use to hand a received
// package to this transport.
func (t *Transport) Deliver(pkg Package) {
	t.deliver(pkg)
}

// EmitOnLinks sends msg to address over every usable filtered link at
// once, returning true as soon as the first send succeeds (spec.md 4.4,
// "race send across usable links"). If linkFilter is nil every link for
// the address is tried.
func (t *Transport) EmitOnLinks(ctx context.Context, address string, msg *wire.Message, linkFilter func(Link) bool) bool {
	if address == t.localAddress {
		return t.local.Send(ctx, msg)
	}

	links := t.LinksForAddress(address)
	if len(links) == 0 && address != "*" && t.fallbackBroadcast {
		t.log.With("address", address).Debug("no link found, falling back to broadcast")
		links = t.LinksForAddress("*")
	}
	if len(links) == 0 {
		return false
	}

	if linkFilter != nil {
		filtered := links[:0:0]
		for _, l := range links {
			if linkFilter(l) {
				filtered = append(filtered, l)
			}
		}
		links = filtered
	}
	if len(links) == 0 {
		return false
	}

	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	results := make(chan bool, len(links))
	var wg sync.WaitGroup
	for _, l := range links {
		wg.Add(1)
		go func(link Link) {
			defer wg.Done()
			ok := link.Send(raceCtx, msg)
			results <- ok
			if ok {
				cancel()
			}
		}(l)
	}
	go func() {
		wg.Wait()
		close(results)
	}()

	for ok := range results {
		if ok {
			return true
		}
	}
	return false
}

// RunPoolGC evicts pooled packages older than HoldDuration until ctx is
// cancelled; run it once as a background goroutine per Transport.
func (t *Transport) RunPoolGC(ctx context.Context) {
	ticker := time.NewTicker(100 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			t.mu.Lock()
			now := time.Now()
			for id, pkg := range t.pool {
				if now.Sub(pkg.Timestamp) >= t.holdDuration {
					delete(t.pool, id)
				}
			}
			t.mu.Unlock()
		}
	}
}

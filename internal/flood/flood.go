// Package flood implements constrained flooding: one-hop rebroadcast of
// the latest payload seen from each originator, used to disseminate ARKs
// and other epoch-wide announcements without a routing table.
package flood

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/luxfi/prism/internal/logging"
	"github.com/luxfi/prism/internal/transport"
	"github.com/luxfi/prism/internal/wire"
)

// Policy configures how aggressively a flood rebroadcasts, matching
// config.FloodConfig's `flood_max_hops`/`flood_gossip_r`/`flood_spread_seconds`.
type Policy struct {
	MaxHops       int     // 0 disables the hop-count limit
	GossipR       float64 // in (0,1): per-link forward probability; >=1: forward to exactly that many links
	SpreadSeconds float64 // stagger forwards across this many seconds to avoid bursty correlation
	ViaDirectOnly bool
}

// Flooding maintains one originator-keyed database of the latest payload
// seen this epoch and rebroadcasts fresh arrivals to a sampled subset of
// usable links.
type Flooding struct {
	mu   sync.Mutex
	db   map[string]*wire.Message

	self     string
	epoch    string
	policy   Policy
	transp   *transport.Transport
	log      *logging.Logger
}

// New constructs a Flooding instance for the given epoch.
func New(self, epoch string, policy Policy, t *transport.Transport, log *logging.Logger) *Flooding {
	return &Flooding{
		db:     make(map[string]*wire.Message),
		self:   self,
		epoch:  epoch,
		policy: policy,
		transp: t,
		log:    log,
	}
}

// Len is the number of distinct originators currently in the database.
func (f *Flooding) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.db)
}

// Payloads returns every originator's latest known payload.
func (f *Flooding) Payloads() []*wire.Message {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*wire.Message, 0, len(f.db))
	for _, m := range f.db {
		out = append(out, m)
	}
	return out
}

// Initiate starts flooding payload from this node as its originator.
func (f *Flooding) Initiate(ctx context.Context, payload *wire.Message) {
	flood := wire.New(wire.TypeFlood).
		Set(wire.FieldOriginator, f.self).
		Set(wire.FieldSender, f.self).
		Set(wire.FieldHopCount, int64(-1)).
		Set(wire.FieldSubmessages, []*wire.Message{payload})
	f.handle(ctx, flood)
}

// HandleMessage processes an incoming flood message: stores it if its
// originator is new to this epoch, then rebroadcasts per policy.
func (f *Flooding) HandleMessage(ctx context.Context, msg *wire.Message) {
	f.handle(ctx, msg)
}

func (f *Flooding) handle(ctx context.Context, msg *wire.Message) {
	originator := msg.GetString(wire.FieldOriginator)
	subs := msg.GetMessages(wire.FieldSubmessages)
	if originator == "" || len(subs) == 0 {
		return
	}
	payload := subs[0]

	f.mu.Lock()
	_, seen := f.db[originator]
	if seen {
		f.mu.Unlock()
		return
	}
	f.db[originator] = payload
	dbSize := len(f.db)
	f.mu.Unlock()

	f.log.With("epoch", f.epoch, "db_size", dbSize).Debug("flood database updated")

	hopCount := msg.GetInt(wire.FieldHopCount)
	if f.policy.MaxHops > 0 && int(hopCount) >= f.policy.MaxHops {
		f.log.Debug("stopping flood: max hop count reached")
		return
	}

	fwd := wire.New(wire.TypeFlood).
		Set(wire.FieldOriginator, originator).
		Set(wire.FieldSender, f.self).
		Set(wire.FieldHopCount, hopCount+1).
		Set(wire.FieldSubmessages, []*wire.Message{payload})

	f.forward(ctx, fwd)
}

func (f *Flooding) linkFilter(l transport.Link) bool {
	return l.Type().CanSend() && l.Status() != transport.ConnectionClosed && l.Epoch() == f.epoch
}

func (f *Flooding) forward(ctx context.Context, msg *wire.Message) {
	links := f.transp.LinksForAddress("*")
	var filtered []transport.Link
	for _, l := range links {
		if f.linkFilter(l) {
			filtered = append(filtered, l)
		}
	}
	if len(filtered) == 0 {
		return
	}

	probability := 1.0
	if f.policy.GossipR > 0 && f.policy.GossipR < 1 {
		probability = f.policy.GossipR
	} else if f.policy.GossipR >= 1 && int(f.policy.GossipR) < len(filtered) {
		n := int(f.policy.GossipR)
		rand.Shuffle(len(filtered), func(i, j int) { filtered[i], filtered[j] = filtered[j], filtered[i] })
		filtered = filtered[:n]
	}

	spread := f.policy.SpreadSeconds
	for i, link := range filtered {
		if rand.Float64() >= probability {
			continue
		}
		if spread > 0 && len(filtered) > 1 {
			delay := time.Duration(rand.Float64() * spread * float64(time.Second) / float64(len(filtered)))
			select {
			case <-ctx.Done():
				return
			case <-time.After(delay):
			}
		}
		if !link.Send(ctx, msg) {
			f.log.With("link", link.ID(), "index", i).Warn("flood forward failed")
		}
	}
}

// Listen registers a hook for flood messages and drains it until ctx is
// cancelled; run it as a background goroutine per epoch.
func (f *Flooding) Listen(ctx context.Context) {
	hook := transport.NewHook(func(p transport.Package) bool {
		return p.Message.Type() == wire.TypeFlood
	})
	f.transp.RegisterHook(hook)
	defer f.transp.RemoveHook(hook)

	for {
		select {
		case <-ctx.Done():
			return
		case pkg, ok := <-hook.C:
			if !ok {
				return
			}
			f.HandleMessage(ctx, pkg.Message)
		}
	}
}

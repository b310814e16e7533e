// Package mix implements the per-message mixing strategies an EMIX role
// applies before forwarding a decrypted onion layer onward: none
// (idempotent), Poisson-distributed delay, and threshold-batched pool
// mixing.
package mix

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/luxfi/prism/internal/logging"
	"github.com/luxfi/prism/internal/wire"
)

// Strategy names a configured mix (config.go's `mix.strategy` key).
type Strategy string

const (
	Idempotent Strategy = "IdempotentMix"
	Poisson    Strategy = "PoissonMix"
	Pool       Strategy = "PoolMix"
)

// Mix delays and/or reorders outgoing messages before they're forwarded.
type Mix interface {
	// Submit accepts a message to be forwarded; out is called (possibly
	// later, possibly from another goroutine) once the mix releases it.
	Submit(ctx context.Context, msg *wire.Message, out func(*wire.Message))
	// Run executes any background behavior the strategy needs (e.g. a
	// pool's periodic flush); no-op for strategies that don't need one.
	Run(ctx context.Context)
}

// New builds the named strategy, falling back to Idempotent for an
// unknown or empty name (mix_strategies.py's get_mix default-on-miss
// behavior).
func New(name Strategy, opts Options, log *logging.Logger) Mix {
	switch name {
	case Poisson:
		return NewPoissonMix(opts.PoissonLambda, log)
	case Pool:
		return NewPoolMix(opts.PoolThreshold, opts.PoolFlushInterval, log)
	case Idempotent, "":
		return NewIdempotentMix(log)
	default:
		log.With("strategy", name).Info("unknown mix strategy, falling back to idempotent")
		return NewIdempotentMix(log)
	}
}

// Options configures every strategy; fields unused by the chosen
// strategy are ignored. Mirrors config.MixConfig's poisson_lambda,
// pool_threshold, and pool_flush_interval keys.
type Options struct {
	PoissonLambda     float64
	PoolThreshold     int
	PoolFlushInterval time.Duration
}

// IdempotentMix forwards messages immediately without delay or
// reordering.
type IdempotentMix struct {
	log *logging.Logger
}

// NewIdempotentMix builds a no-op mix.
func NewIdempotentMix(log *logging.Logger) *IdempotentMix {
	return &IdempotentMix{log: log}
}

func (m *IdempotentMix) Submit(ctx context.Context, msg *wire.Message, out func(*wire.Message)) {
	out(msg)
}

func (m *IdempotentMix) Run(ctx context.Context) {}

// PoissonMix delays each message independently by an exponentially
// distributed interval, decorrelating arrival order from forward order.
type PoissonMix struct {
	lambda float64
	log    *logging.Logger
}

// NewPoissonMix builds a Poisson-delay mix with the given rate (lambda;
// mean delay is 1/lambda seconds).
func NewPoissonMix(lambda float64, log *logging.Logger) *PoissonMix {
	if lambda <= 0 {
		lambda = 1.0
	}
	return &PoissonMix{lambda: lambda, log: log}
}

func (m *PoissonMix) Submit(ctx context.Context, msg *wire.Message, out func(*wire.Message)) {
	delay := time.Duration(rand.ExpFloat64() / m.lambda * float64(time.Second))
	go func() {
		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
			out(msg)
		}
	}()
}

func (m *PoissonMix) Run(ctx context.Context) {}

// PoolMix accumulates messages until either a threshold batch size is
// reached or a flush interval elapses, then releases the entire pool in
// shuffled order. This replaces the source's PoolMix, which left the
// strategy as a TODO stub (spec.md 4.9 calls for a complete configurable
// flush policy, so this is filled in rather than carried over as a
// no-op).
type PoolMix struct {
	mu        sync.Mutex
	threshold int
	interval  time.Duration
	pending   []*wire.Message
	callbacks []func(*wire.Message)
	release   chan struct{}
	log       *logging.Logger
}

// NewPoolMix builds a pool mix that flushes once it holds threshold
// messages, or every interval, whichever comes first.
func NewPoolMix(threshold int, interval time.Duration, log *logging.Logger) *PoolMix {
	if threshold <= 0 {
		threshold = 1
	}
	if interval <= 0 {
		interval = time.Second
	}
	return &PoolMix{
		threshold: threshold,
		interval:  interval,
		release:   make(chan struct{}, 1),
		log:       log,
	}
}

func (m *PoolMix) Submit(ctx context.Context, msg *wire.Message, out func(*wire.Message)) {
	m.mu.Lock()
	m.pending = append(m.pending, msg)
	m.callbacks = append(m.callbacks, out)
	full := len(m.pending) >= m.threshold
	m.mu.Unlock()

	if full {
		select {
		case m.release <- struct{}{}:
		default:
		}
	}
}

func (m *PoolMix) Run(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.flush()
		case <-m.release:
			m.flush()
		}
	}
}

func (m *PoolMix) flush() {
	m.mu.Lock()
	if len(m.pending) == 0 {
		m.mu.Unlock()
		return
	}
	msgs := m.pending
	cbs := m.callbacks
	m.pending = nil
	m.callbacks = nil
	m.mu.Unlock()

	order := rand.Perm(len(msgs))
	m.log.With("batch_size", len(msgs)).Debug("flushing mix pool")
	for _, i := range order {
		cbs[i](msgs[i])
	}
}

package mix_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/prism/internal/logging"
	"github.com/luxfi/prism/internal/mix"
	"github.com/luxfi/prism/internal/wire"
)

func TestIdempotentMixForwardsImmediately(t *testing.T) {
	m := mix.NewIdempotentMix(logging.Nop())
	msg := wire.New(wire.TypeClearText)

	var got *wire.Message
	m.Submit(context.Background(), msg, func(out *wire.Message) { got = out })

	assert.Same(t, msg, got)
}

func TestPoissonMixDelaysThenForwards(t *testing.T) {
	m := mix.NewPoissonMix(1000, logging.Nop()) // high rate, short expected delay
	msg := wire.New(wire.TypeClearText)

	done := make(chan struct{})
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	m.Submit(ctx, msg, func(out *wire.Message) { close(done) })

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("poisson mix never delivered the message")
	}
}

func TestPoolMixFlushesAtThreshold(t *testing.T) {
	m := mix.NewPoolMix(3, time.Minute, logging.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	var mu sync.Mutex
	var delivered []int
	deliver := func(i int) func(*wire.Message) {
		return func(*wire.Message) {
			mu.Lock()
			delivered = append(delivered, i)
			mu.Unlock()
		}
	}

	for i := 0; i < 3; i++ {
		m.Submit(ctx, wire.New(wire.TypeClearText), deliver(i))
	}

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(delivered) == 3
	}, time.Second, 10*time.Millisecond)
}

func TestPoolMixFlushesOnInterval(t *testing.T) {
	m := mix.NewPoolMix(100, 30*time.Millisecond, logging.Nop())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go m.Run(ctx)

	delivered := make(chan struct{}, 1)
	m.Submit(ctx, wire.New(wire.TypeClearText), func(*wire.Message) { delivered <- struct{}{} })

	select {
	case <-delivered:
	case <-time.After(time.Second):
		t.Fatal("pool mix never flushed on its interval")
	}
}

func TestNewFallsBackToIdempotentForUnknownStrategy(t *testing.T) {
	m := mix.New(mix.Strategy("NotARealMix"), mix.Options{}, logging.Nop())
	_, ok := m.(*mix.IdempotentMix)
	assert.True(t, ok)
}

func TestNewSelectsPoissonAndPool(t *testing.T) {
	p := mix.New(mix.Poisson, mix.Options{PoissonLambda: 2.0}, logging.Nop())
	_, ok := p.(*mix.PoissonMix)
	assert.True(t, ok)

	pool := mix.New(mix.Pool, mix.Options{PoolThreshold: 4, PoolFlushInterval: time.Second}, logging.Nop())
	_, ok = pool.(*mix.PoolMix)
	assert.True(t, ok)
}

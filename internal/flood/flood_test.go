package flood_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/prism/internal/flood"
	"github.com/luxfi/prism/internal/logging"
	"github.com/luxfi/prism/internal/transport"
	"github.com/luxfi/prism/internal/wire"
)

func TestFloodInitiateStoresInOwnDatabase(t *testing.T) {
	net := transport.NewMemNetwork()
	a := transport.New("a", time.Second, false, logging.Nop())
	a.AddChannel(net.Join("a", a))

	f := flood.New("a", "genesis", flood.Policy{MaxHops: 8}, a, logging.Nop())

	payload := wire.New(wire.TypeARK).Set(wire.FieldName, "a")
	f.Initiate(context.Background(), payload)

	assert.Equal(t, 1, f.Len())
}

func TestFloodForwardsToNeighborOnce(t *testing.T) {
	net := transport.NewMemNetwork()

	a := transport.New("a", time.Second, false, logging.Nop())
	aChan := net.Join("a", a)
	a.AddChannel(aChan)

	b := transport.New("b", time.Second, false, logging.Nop())
	b.AddChannel(net.Join("b", b))

	ctx := context.Background()
	_, err := aChan.CreateLink(ctx, []string{"b"}, "genesis")
	require.NoError(t, err)

	floodA := flood.New("a", "genesis", flood.Policy{MaxHops: 8}, a, logging.Nop())
	floodB := flood.New("b", "genesis", flood.Policy{MaxHops: 8}, b, logging.Nop())

	bCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go floodB.Listen(bCtx)
	time.Sleep(10 * time.Millisecond)

	payload := wire.New(wire.TypeARK).Set(wire.FieldName, "a")
	floodA.Initiate(ctx, payload)

	require.Eventually(t, func() bool {
		return floodB.Len() == 1
	}, time.Second, 5*time.Millisecond)
}

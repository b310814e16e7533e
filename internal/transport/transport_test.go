package transport_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/prism/internal/logging"
	"github.com/luxfi/prism/internal/transport"
	"github.com/luxfi/prism/internal/wire"
)

func TestEmitOnLinksDeliversToHook(t *testing.T) {
	net := transport.NewMemNetwork()

	alice := transport.New("alice", time.Second, false, logging.Nop())
	aliceChan := net.Join("alice", alice)
	alice.AddChannel(aliceChan)

	bob := transport.New("bob", time.Second, false, logging.Nop())
	bob.AddChannel(net.Join("bob", bob))

	ctx := context.Background()
	_, err := aliceChan.CreateLink(ctx, []string{"bob"}, "genesis")
	require.NoError(t, err)

	hook := transport.NewHook(func(p transport.Package) bool {
		return p.Message.Type() == wire.TypeHello
	})
	bob.RegisterHook(hook)

	msg := wire.New(wire.TypeHello).Set(wire.FieldName, "alice")
	ok := alice.EmitOnLinks(ctx, "bob", msg, nil)
	require.True(t, ok)

	select {
	case pkg := <-hook.C:
		assert.Equal(t, "alice", pkg.Message.GetString(wire.FieldName))
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for hook delivery")
	}
}

func TestUnmatchedPackageParksInPool(t *testing.T) {
	net := transport.NewMemNetwork()
	alice := transport.New("alice", time.Second, false, logging.Nop())
	alice.AddChannel(net.Join("alice", alice))

	bob := transport.New("bob", time.Second, false, logging.Nop())
	bobChan := net.Join("bob", bob)
	bob.AddChannel(bobChan)

	_, err := bobChan.CreateLink(context.Background(), []string{"alice"}, "genesis")
	require.NoError(t, err)

	msg := wire.New(wire.TypeHello)
	ok := bob.EmitOnLinks(context.Background(), "alice", msg, nil)
	require.True(t, ok)

	hook := transport.NewHook(func(p transport.Package) bool {
		return p.Message.Type() == wire.TypeHello
	})
	alice.RegisterHook(hook)

	select {
	case <-hook.C:
	case <-time.After(time.Second):
		t.Fatal("late-registered hook should still see the pooled package")
	}
}

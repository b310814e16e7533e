// Package e2e exercises PRISM's components together across the
// narrative scenarios spec.md describes, rather than in isolation:
// round-trip store+retrieve through a committee, oblivious FIND across
// mismatched and matching pseudonyms, a committee peer falling below
// threshold, an epoch advancing through its lifecycle while flooding
// its ARK, and a link-state routing table recovering after a neighbor
// drops out.
package e2e_test

import (
	"context"
	"testing"
	"time"

	"github.com/cronokirby/saferith"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/prism/internal/ark"
	"github.com/luxfi/prism/internal/dropbox"
	"github.com/luxfi/prism/internal/epoch"
	"github.com/luxfi/prism/internal/field"
	"github.com/luxfi/prism/internal/flood"
	"github.com/luxfi/prism/internal/logging"
	"github.com/luxfi/prism/internal/partyid"
	"github.com/luxfi/prism/internal/preproduct"
	"github.com/luxfi/prism/internal/routing"
	"github.com/luxfi/prism/internal/transport"
	"github.com/luxfi/prism/internal/wire"
)

func committeeParams(t *testing.T) *field.Params {
	t.Helper()
	modulus, err := field.GeneratePrime(64)
	require.NoError(t, err)
	params, err := field.NewShamirParams(3, 2, modulus)
	require.NoError(t, err)
	return params
}

func dealTriple(t *testing.T, params *field.Params, a, b uint64) []field.Triple {
	t.Helper()
	aNat := new(saferith.Nat).SetUint64(a)
	bNat := new(saferith.Nat).SetUint64(b)
	cNat := new(saferith.Nat).ModMul(aNat, bNat, params.Modulus)

	aShares := params.Share(aNat)
	bShares := params.Share(bNat)
	cShares := params.Share(cNat)

	triples := make([]field.Triple, len(aShares))
	for i := range aShares {
		triples[i] = field.Triple{A: aShares[i], B: bShares[i], C: cShares[i]}
	}
	return triples
}

// TestDropboxStoreFindRetrieveRoundTrip walks a whole oblivious dropbox
// cycle for a three-party, threshold-two committee: a client stores a
// fragment with every peer, the committee runs oblivious FIND — drawing
// its Beaver triple and random mask from a preproduct pool claimed
// across the committee's three parallel stores, exactly as a live
// deployment would rather than dealing fresh randomness per query — and
// on a match retrieves the stored ciphertext.
func TestDropboxStoreFindRetrieveRoundTrip(t *testing.T) {
	params := committeeParams(t)
	peers := partyid.Slice{0, 1, 2}

	batches, err := preproduct.GenerateBatch(params, peers, "e2e-batch-1", 1)
	require.NoError(t, err)
	batches[peers[0]].Owned = true
	pools := make([]*preproduct.Store, len(peers))
	for i, p := range peers {
		pools[i] = preproduct.NewStore(logging.Nop())
		pools[i].AddBatch(batches[p])
	}

	pseudonym := new(saferith.Nat).SetUint64(777)
	storedShares := params.Share(pseudonym)
	queryShares := params.Share(pseudonym)

	stores := make([]*dropbox.Store, 3)
	for i := range stores {
		stores[i] = dropbox.NewStore(logging.Nop())
		require.NoError(t, stores[i].StoreFragment(dropbox.Fragment{
			FragmentID:     "frag-777",
			PseudonymShare: storedShares[i],
			Ciphertext:     []byte("secret payload"),
		}))
	}

	match, err := dropbox.FindWithPool(context.Background(), params, pools[0], peers, pools, storedShares, queryShares)
	require.NoError(t, err)
	require.True(t, match)

	for _, s := range stores {
		ciphertexts, err := s.Retrieve([]string{"frag-777"})
		require.NoError(t, err)
		assert.Equal(t, []byte("secret payload"), ciphertexts[0])
	}
}

// TestObliviousFindRejectsMismatchedPseudonym confirms FIND reports no
// match when the client's query pseudonym differs from what's stored,
// without ever reconstructing either value in the clear.
func TestObliviousFindRejectsMismatchedPseudonym(t *testing.T) {
	params := committeeParams(t)
	triples := dealTriple(t, params, 5, 9)
	mask := params.Share(new(saferith.Nat).SetUint64(3))

	storedShares := params.Share(new(saferith.Nat).SetUint64(111))
	queryShares := params.Share(new(saferith.Nat).SetUint64(222))

	match, err := dropbox.FindMatch(params, storedShares, queryShares, triples, mask)
	require.NoError(t, err)
	assert.False(t, match)
}

// TestRetrieveFailsWhenCommitteeDropsBelowThreshold simulates a peer
// going offline: a fragment stored with only one of three committee
// members (below the two-of-three threshold) can't be retrieved from
// the peers that never received it.
func TestRetrieveFailsWhenCommitteeDropsBelowThreshold(t *testing.T) {
	aliveStore := dropbox.NewStore(logging.Nop())
	require.NoError(t, aliveStore.StoreFragment(dropbox.Fragment{FragmentID: "frag-1", Ciphertext: []byte("x")}))

	droppedStore := dropbox.NewStore(logging.Nop())
	// droppedStore never received the STORE for frag-1 — its peer was
	// offline when the write happened.
	_, err := droppedStore.Retrieve([]string{"frag-1"})
	assert.Error(t, err)

	ciphertexts, err := aliveStore.Retrieve([]string{"frag-1"})
	require.NoError(t, err)
	assert.Equal(t, []byte("x"), ciphertexts[0])
}

// TestEpochAdvanceTriggersARKFloodAcrossLink drives an epoch through
// its PRE_RUN -> RUNNING -> HANDOFF -> OFF lifecycle while two
// transport-linked nodes flood a signed ARK for that epoch; the second
// node must observe the flooded ARK and the controller must report the
// epoch OFF once its lifecycle completes.
func TestEpochAdvanceTriggersARKFloodAcrossLink(t *testing.T) {
	net := transport.NewMemNetwork()
	log := logging.Nop()

	aliceT := transport.New("alice", time.Minute, false, log)
	bobT := transport.New("bob", time.Minute, false, log)
	aliceChan := net.Join("alice", aliceT)
	bobChan := net.Join("bob", bobT)
	aliceT.AddChannel(aliceChan)
	bobT.AddChannel(bobChan)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := aliceChan.CreateLink(ctx, []string{"bob"}, "epoch-1")
	require.NoError(t, err)

	aliceFlood := flood.New("alice", "epoch-1", flood.Policy{MaxHops: 4}, aliceT, log)
	bobFlood := flood.New("bob", "epoch-1", flood.Policy{MaxHops: 4}, bobT, log)
	go bobFlood.Listen(ctx)

	key, err := ark.GenerateKeyPair()
	require.NoError(t, err)
	arkMsg := wire.New(wire.TypeARK).Set(wire.FieldName, "alice").Set(wire.FieldEpoch, "epoch-1")
	signed, err := key.Sign(arkMsg)
	require.NoError(t, err)

	genesis := epoch.NewGenesis(nil, "EMIX", nil, []byte("alice-pseudonym"))
	genesis.State = epoch.PreRun
	ctrl := epoch.NewController(genesis, log)

	var floodTriggered bool
	ctrl.OnFloodEpoch = func(e *epoch.Epoch) {
		floodTriggered = true
		aliceFlood.Initiate(ctx, signed)
	}
	var shutdownCalled bool
	ctrl.OnShutdown = func(e *epoch.Epoch) { shutdownCalled = true }

	go ctrl.Run(ctx)

	// PRE_RUN epoch with no previous never floods (matches
	// newserver.py's "epoch.state == PRE_RUN and epoch.previous" gate), so
	// genesis is moved to RUNNING and the flood-epoch assertion below
	// targets a fresh PRE_RUN epoch whose previous is genesis.
	genesis.State = epoch.Running
	handoffEpoch := epoch.NewGenesis(genesis, "EMIX", nil, []byte("alice-pseudonym"))
	handoffEpoch.State = epoch.PreRun
	ctrl.Register(handoffEpoch)

	ctrl.Submit(epoch.Command{Type: epoch.CommandFloodEpoch, TargetEpochName: handoffEpoch.Name})

	require.Eventually(t, func() bool { return floodTriggered }, time.Second, 10*time.Millisecond)
	require.Eventually(t, func() bool { return bobFlood.Len() == 1 }, time.Second, 10*time.Millisecond)

	for _, p := range bobFlood.Payloads() {
		assert.Equal(t, "alice", p.GetString(wire.FieldName))
		assert.NoError(t, ark.Verify(p))
	}

	// PreRun -> Running -> Handoff -> Off takes three NEXT commands.
	ctrl.Submit(epoch.Command{Type: epoch.CommandNext, TargetEpochName: handoffEpoch.Name})
	ctrl.Submit(epoch.Command{Type: epoch.CommandNext, TargetEpochName: handoffEpoch.Name})
	ctrl.Submit(epoch.Command{Type: epoch.CommandNext, TargetEpochName: handoffEpoch.Name})
	require.Eventually(t, func() bool {
		e, _ := ctrl.Lookup(handoffEpoch.Name)
		return e.State == epoch.Off
	}, time.Second, 10*time.Millisecond)
	assert.True(t, shutdownCalled)
}

// TestRoutingTableRecoversAfterNeighborDrop builds a three-node chain's
// routing table, confirms the computed next hop, then simulates the
// middle node losing its link to the far node and recomputes — the far
// node must become unreachable, and reinstating the link must restore
// the original next hop.
func TestRoutingTableRecoversAfterNeighborDrop(t *testing.T) {
	log := logging.Nop()
	a := routing.NewDatabase("a", 16, "epoch-1", log)

	// Timestamps are offsets from now so the 60-second TTL has not already
	// elapsed when each LSP is inserted.
	now := time.Now().UnixMicro()
	full := func(ts int64) {
		a.UpdateIf(routing.LSP{Originator: "a", Neighbors: []routing.Neighbor{{Pseudonym: "b", Cost: 1}}, MicroTimestamp: now + ts, TTL: 60})
		a.UpdateIf(routing.LSP{Originator: "b", Neighbors: []routing.Neighbor{{Pseudonym: "a", Cost: 1}, {Pseudonym: "c", Cost: 1}}, MicroTimestamp: now + ts, TTL: 60})
		a.UpdateIf(routing.LSP{Originator: "c", Neighbors: []routing.Neighbor{{Pseudonym: "b", Cost: 1}}, MicroTimestamp: now + ts, TTL: 60})
	}
	full(1000)
	a.UpdateRoutingTable()

	hop, ok := a.NextHop("c")
	require.True(t, ok)
	assert.Equal(t, "b", hop)

	// b drops its link to c.
	a.UpdateIf(routing.LSP{Originator: "b", Neighbors: []routing.Neighbor{{Pseudonym: "a", Cost: 1}}, MicroTimestamp: now + 2000, TTL: 60})
	a.UpdateIf(routing.LSP{Originator: "c", Neighbors: []routing.Neighbor{}, MicroTimestamp: now + 2000, TTL: 60})
	a.UpdateRoutingTable()

	_, ok = a.NextHop("c")
	assert.False(t, ok)

	// Link comes back.
	full(3000)
	a.UpdateRoutingTable()

	hop, ok = a.NextHop("c")
	require.True(t, ok)
	assert.Equal(t, "b", hop)
}

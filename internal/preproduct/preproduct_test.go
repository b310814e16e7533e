package preproduct_test

import (
	"context"
	"testing"
	"time"

	"github.com/cronokirby/saferith"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/prism/internal/field"
	"github.com/luxfi/prism/internal/logging"
	"github.com/luxfi/prism/internal/partyid"
	"github.com/luxfi/prism/internal/preproduct"
)

func testParams(t *testing.T) *field.Params {
	t.Helper()
	modulus, err := field.GeneratePrime(64)
	require.NoError(t, err)
	params, err := field.NewShamirParams(5, 3, modulus)
	require.NoError(t, err)
	return params
}

// TestGenerateBatchHonorsSubsetAndOrder is the regression test for
// GenerateBatch's indexing bug: peers is neither the identity-ordered
// full party set nor sorted, exactly the shape spec.md 4.2's "every
// subset of peers" generation loop produces. Every party must receive a
// triple share whose x-coordinate matches its own ID, so opening all
// three parties' shares together must satisfy a*b=c.
func TestGenerateBatchHonorsSubsetAndOrder(t *testing.T) {
	params := testParams(t)
	peers := partyid.Slice{3, 0, 4} // subset, not 0..n-1, not sorted; len == Threshold

	batches, err := preproduct.GenerateBatch(params, peers, "batch-1", 2)
	require.NoError(t, err)
	require.Len(t, batches, len(peers))
	for _, p := range peers {
		assert.Equal(t, 2, batches[p].Size())
	}

	// Designate peers[0] the committee leader: its copy is the one that
	// claims chunks; the rest fetch the same claimed index from theirs.
	batches[peers[0]].Owned = true
	leader := preproduct.NewStore(logging.Nop())
	leader.AddBatch(batches[peers[0]])

	info, err := leader.ClaimChunk(context.Background(), 1, peers)
	require.NoError(t, err)

	members := make(map[partyid.ID]*preproduct.Store, len(peers))
	members[peers[0]] = leader
	for _, p := range peers[1:] {
		s := preproduct.NewStore(logging.Nop())
		s.AddBatch(batches[p])
		members[p] = s
	}

	var aShares, bShares, cShares []field.Share
	for _, p := range peers {
		chunk, ok := members[p].GetChunk(info)
		require.True(t, ok)
		require.Equal(t, 1, chunk.Size())
		aShares = append(aShares, chunk.Triples[0].A)
		bShares = append(bShares, chunk.Triples[0].B)
		cShares = append(cShares, chunk.Triples[0].C)
	}

	a := params.Open(aShares)
	b := params.Open(bShares)
	c := params.Open(cShares)
	require.NotNil(t, a)
	require.NotNil(t, b)
	require.NotNil(t, c)

	want := new(saferith.Nat).ModMul(a, b, params.Modulus)
	assert.Equal(t, want.Big().String(), c.Big().String())
}

func TestStoreClaimChunkSucceedsThenExhausts(t *testing.T) {
	params := testParams(t)
	peers := partyid.Slice{0, 1, 2}
	batches, err := preproduct.GenerateBatch(params, peers, "batch-2", 2)
	require.NoError(t, err)
	batches[peers[0]].Owned = true

	store := preproduct.NewStore(logging.Nop())
	store.AddBatch(batches[peers[0]])

	info, err := store.ClaimChunk(context.Background(), 2, peers)
	require.NoError(t, err)
	require.Len(t, info.Sizes, 1)
	assert.Equal(t, 2, info.Sizes[0])

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err = store.ClaimChunk(ctx, 1, peers)
	assert.Error(t, err) // batch exhausted, ctx deadline trips the poll loop
}

func TestStoreGetChunkMissingBatch(t *testing.T) {
	store := preproduct.NewStore(logging.Nop())
	_, ok := store.GetChunk(preproduct.Info{BatchIDs: []string{"nope"}, Starts: []int{0}, Sizes: []int{1}})
	assert.False(t, ok)
}

func TestStoreEvictStaleRemovesUnkeptBatches(t *testing.T) {
	params := testParams(t)
	peers := partyid.Slice{0, 1, 2}
	batches, err := preproduct.GenerateBatch(params, peers, "batch-3", 1)
	require.NoError(t, err)
	batches[peers[0]].Owned = true

	store := preproduct.NewStore(logging.Nop())
	store.AddBatch(batches[peers[0]])

	store.EvictStale(func(id string) bool { return false })
	assert.Equal(t, 0, store.TotalRemaining(peers, false))
}

package dropbox_test

import (
	"context"
	"testing"

	"github.com/cronokirby/saferith"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/prism/internal/dropbox"
	"github.com/luxfi/prism/internal/field"
	"github.com/luxfi/prism/internal/logging"
	"github.com/luxfi/prism/internal/partyid"
	"github.com/luxfi/prism/internal/preproduct"
)

func poolsFor(t *testing.T, params *field.Params, peers partyid.Slice, batchID string, count int) []*preproduct.Store {
	t.Helper()
	batches, err := preproduct.GenerateBatch(params, peers, batchID, count)
	require.NoError(t, err)
	batches[peers[0]].Owned = true

	stores := make([]*preproduct.Store, len(peers))
	for i, p := range peers {
		s := preproduct.NewStore(logging.Nop())
		s.AddBatch(batches[p])
		stores[i] = s
	}
	return stores
}

func TestFindWithPoolDetectsEqualityThroughPreproductStores(t *testing.T) {
	params := testParams(t)
	peers := partyid.Slice{0, 1, 2}
	members := poolsFor(t, params, peers, "find-batch-1", 1)

	pseudonym := new(saferith.Nat).SetUint64(4242)
	pShares := params.Share(pseudonym)
	qShares := params.Share(pseudonym)
	// FindMatch/FindWithPool compare party-by-party; restrict to the
	// three committee members actually holding preproduct pools.
	pShares3 := []field.Share{pShares[0], pShares[1], pShares[2]}
	qShares3 := []field.Share{qShares[0], qShares[1], qShares[2]}

	match, err := dropbox.FindWithPool(context.Background(), params, members[0], peers, members, pShares3, qShares3)
	require.NoError(t, err)
	assert.True(t, match)
}

func TestFindWithPoolDetectsMismatchThroughPreproductStores(t *testing.T) {
	params := testParams(t)
	peers := partyid.Slice{0, 1, 2}
	members := poolsFor(t, params, peers, "find-batch-2", 1)

	pShares := params.Share(new(saferith.Nat).SetUint64(1))
	qShares := params.Share(new(saferith.Nat).SetUint64(2))
	pShares3 := []field.Share{pShares[0], pShares[1], pShares[2]}
	qShares3 := []field.Share{qShares[0], qShares[1], qShares[2]}

	match, err := dropbox.FindWithPool(context.Background(), params, members[0], peers, members, pShares3, qShares3)
	require.NoError(t, err)
	assert.False(t, match)
}

func TestFindWithPoolErrorsOnPoolExhaustion(t *testing.T) {
	params := testParams(t)
	peers := partyid.Slice{0, 1, 2}
	members := poolsFor(t, params, peers, "find-batch-3", 1)

	pseudonym := new(saferith.Nat).SetUint64(7)
	pShares := params.Share(pseudonym)
	pShares3 := []field.Share{pShares[0], pShares[1], pShares[2]}

	// First call consumes the only preproduct in the batch.
	ctx := context.Background()
	_, err := dropbox.FindWithPool(ctx, params, members[0], peers, members, pShares3, pShares3)
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(ctx, 0)
	defer cancel()
	_, err = dropbox.FindWithPool(ctx, params, members[0], peers, members, pShares3, pShares3)
	assert.Error(t, err)
}

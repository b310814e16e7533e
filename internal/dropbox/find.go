package dropbox

import (
	"context"
	"fmt"

	"github.com/luxfi/prism/internal/errs"
	"github.com/luxfi/prism/internal/field"
	"github.com/luxfi/prism/internal/partyid"
	"github.com/luxfi/prism/internal/preproduct"
)

// FindWithPool runs oblivious FIND for one candidate fragment, drawing the
// Beaver triple and random mask it consumes from the committee's shared
// preproduct pool instead of having the caller deal fresh randomness per
// query (spec.md component C2, "preproducts claimed at use time"). leader
// claims one preproduct against its own owned batch; members holds every
// committee member's local pool (leader's own pool included, in the same
// party order as pseudonymShares/queryShares) so each can fetch its share
// of that same claimed index from its parallel copy of the batch.
func FindWithPool(ctx context.Context, params *field.Params, leader *preproduct.Store, peers partyid.Slice, members []*preproduct.Store, pseudonymShares, queryShares []field.Share) (bool, error) {
	if len(members) != len(pseudonymShares) {
		return false, fmt.Errorf("dropbox: %d member pools for %d party shares", len(members), len(pseudonymShares))
	}

	info, err := leader.ClaimChunk(ctx, 1, peers)
	if err != nil {
		return false, fmt.Errorf("dropbox: claiming preproduct for FIND: %w", err)
	}

	triples := make([]field.Triple, len(members))
	randomMask := make([]field.Share, len(members))
	for i, pool := range members {
		chunk, ok := pool.GetChunk(info)
		if !ok || chunk.Size() == 0 {
			return false, fmt.Errorf("%w: preproduct pool exhausted fetching claimed chunk", errs.ErrThresholdNotMet)
		}
		triples[i] = chunk.Triples[0]
		randomMask[i] = chunk.RandomNumbers[0]
	}

	return FindMatch(params, pseudonymShares, queryShares, triples, randomMask)
}

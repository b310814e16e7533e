package dropbox

import (
	"github.com/luxfi/prism/internal/field"
)

// FindMatch runs oblivious equality: it reveals whether two secret-shared
// values are equal without revealing either value, by multiplying their
// (secret-shared) difference against a secret-shared random mask and
// opening only the masked product (spec.md 4.8, "oblivious FIND").
//
// pseudonymShares and queryShares must each carry one share per party in
// triples/randomMask, in the same party order. The committee already
// holds the Beaver triple and random mask locally (spec.md component C2's
// preproduct pool); what a real FIND op adds is exchanging epsilon/delta
// openings over links before combining — see mul_ed's commentary on
// Params.MulED for where that round boundary sits.
func FindMatch(params *field.Params, pseudonymShares, queryShares []field.Share, triples []field.Triple, randomMask []field.Share) (bool, error) {
	n := len(pseudonymShares)
	epsilonShares := make([]field.Share, n)
	deltaShares := make([]field.Share, n)
	for i := 0; i < n; i++ {
		diff := params.Sub(pseudonymShares[i], queryShares[i])
		epsilonShares[i] = params.Sub(diff, triples[i].A)
		deltaShares[i] = params.Sub(randomMask[i], triples[i].B)
	}

	epsilon := params.Open(epsilonShares)
	delta := params.Open(deltaShares)
	if epsilon == nil || delta == nil {
		return false, nil
	}

	productShares := make([]field.Share, n)
	for i := 0; i < n; i++ {
		productShares[i] = params.MulED(epsilon, delta, triples[i])
	}

	product := params.Open(productShares)
	if product == nil {
		return false, nil
	}
	return product.Big().Sign() == 0, nil
}

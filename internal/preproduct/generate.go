package preproduct

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"

	"github.com/cronokirby/saferith"

	"github.com/luxfi/prism/internal/field"
	"github.com/luxfi/prism/internal/partyid"
)

// GenerateBatch deals a fresh batch of count Beaver triples and count
// shared random numbers to every member of peers, returning each party's
// view of the resulting batch. Every copy is returned with Owned=false;
// the caller sets Owned on the copy held by the party that claims chunks
// from it. TotalRemaining and ClaimChunk count only owned copies, while
// GetChunk reads any copy.
//
// A production committee reaches the same joint state via three rounds of
// exchanged shares rather than a single dealer, matching the commit/share
// round shape jvss.go uses for the w/q auxiliary secrets in resharing: a
// committee member first shares two random values per triple (round 1),
// the group computes and opens the masked product (round 2), and each
// member reduces the masked opening back into its own degree-t share
// (round 3). GenerateBatch stands in for all three rounds today: the
// approach is identical, but routing each round across committee links is
// deferred to the transport/epoch machinery that schedules batch refills.
func GenerateBatch(params *field.Params, peers partyid.Slice, batchID string, count int) (map[partyid.ID]*Batch, error) {
	if batchID == "" {
		id, err := randomBatchID()
		if err != nil {
			return nil, err
		}
		batchID = id
	}

	triplesPerParty := make(map[partyid.ID][]field.Triple, len(peers))
	randomsPerParty := make(map[partyid.ID][]field.Share, len(peers))
	for _, p := range peers {
		triplesPerParty[p] = make([]field.Triple, 0, count)
		randomsPerParty[p] = make([]field.Share, 0, count)
	}

	for i := 0; i < count; i++ {
		a, err := randomSecret(params.Modulus)
		if err != nil {
			return nil, err
		}
		b, err := randomSecret(params.Modulus)
		if err != nil {
			return nil, err
		}
		c := new(saferith.Nat).ModMul(a, b, params.Modulus)

		aShares := params.Share(a)
		bShares := params.Share(b)
		cShares := params.Share(c)

		r, err := randomSecret(params.Modulus)
		if err != nil {
			return nil, err
		}
		rShares := params.Share(r)

		for _, p := range peers {
			triplesPerParty[p] = append(triplesPerParty[p], field.Triple{
				A: aShares[p],
				B: bShares[p],
				C: cShares[p],
			})
			randomsPerParty[p] = append(randomsPerParty[p], rShares[p])
		}
	}

	out := make(map[partyid.ID]*Batch, len(peers))
	for _, p := range peers {
		out[p] = NewBatch(batchID, peers, false, triplesPerParty[p], randomsPerParty[p])
	}
	return out, nil
}

func randomSecret(modulus *saferith.Modulus) (*saferith.Nat, error) {
	bitLen := modulus.Nat().TrueLen()
	buf := make([]byte, (bitLen+7)/8)
	if _, err := rand.Read(buf); err != nil {
		return nil, fmt.Errorf("preproduct: sampling random secret: %w", err)
	}
	n := new(saferith.Nat).SetBytes(buf)
	n.Mod(n, modulus)
	return n, nil
}

func randomBatchID() (string, error) {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("preproduct: generating batch id: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

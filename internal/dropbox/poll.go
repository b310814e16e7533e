package dropbox

import (
	"math/rand"
	"time"

	"github.com/luxfi/prism/internal/wire"
)

// Poll is a client's outstanding READ_OBLIVIOUS_DROPBOX request: a
// pseudonym half-key for encrypting the reply, an expiration, and the
// per-peer pseudonym-share submessages the requester attached so the
// committee can run oblivious FIND without learning the pseudonym.
type Poll struct {
	Nonce            []byte
	HalfKey          HalfKey
	Expiration       time.Time // zero means no expiration
	PeerFragments    map[partyIndex]*wire.Message
	LinkAddresses    []string
	CheckedFragments map[string]bool
}

type partyIndex = int

// Live reports whether this poll hasn't expired yet.
func (p *Poll) Live() bool {
	return p.Expiration.IsZero() || p.Expiration.After(time.Now())
}

// FragmentsToCheck picks a set of fragment IDs to run FIND against for
// this poll: a pivot fragment available on at least threshold peers,
// then every other fragment available on that same peer subset, capped
// at limit (spec.md 4.8, "fragments_to_check"). Returns nil if no
// fragment meets the peers>=threshold bar.
func (p *Poll) FragmentsToCheck(peers []*Peer, threshold, limit int) []string {
	candidateSet := make(map[string]bool)
	for _, peer := range peers {
		for fragID := range peer.StoredFragments {
			if !p.CheckedFragments[fragID] {
				candidateSet[fragID] = true
			}
		}
	}
	candidates := make([]string, 0, len(candidateSet))
	for id := range candidateSet {
		candidates = append(candidates, id)
	}
	rand.Shuffle(len(candidates), func(i, j int) { candidates[i], candidates[j] = candidates[j], candidates[i] })

	var pivot string
	var pivotPeers []*Peer
	for _, frag := range candidates {
		var holders []*Peer
		for _, peer := range peers {
			if peer.Has(frag) {
				holders = append(holders, peer)
			}
		}
		if len(holders) >= threshold {
			pivot = frag
			pivotPeers = holders
			break
		}
	}
	if pivot == "" {
		return nil
	}

	common := make(map[string]int)
	for _, peer := range pivotPeers {
		for fragID := range peer.StoredFragments {
			common[fragID]++
		}
	}
	var commonFragments []string
	for fragID, count := range common {
		if count == len(pivotPeers) {
			commonFragments = append(commonFragments, fragID)
		}
	}

	rand.Shuffle(len(commonFragments), func(i, j int) {
		commonFragments[i], commonFragments[j] = commonFragments[j], commonFragments[i]
	})
	if len(commonFragments) > limit {
		commonFragments = commonFragments[:limit]
	}
	return commonFragments
}

// Reply builds the encrypted READ_OBLIVIOUS_DROPBOX response carrying the
// retrieved submessages, encrypted under a fresh ephemeral half-key
// exchange with the poll's half-key (spec.md 4.8).
func (p *Poll) Reply(submessages []*wire.Message) (*wire.Message, error) {
	inner := wire.New(wire.TypeReadObliviousDropboxResponse).
		Set(wire.FieldSubmessages, submessages)

	innerBytes, err := wire.Encode(inner)
	if err != nil {
		return nil, err
	}

	ephemeral, err := GenerateHalfKey()
	if err != nil {
		return nil, err
	}
	ciphertext, err := ephemeral.Encrypt(p.HalfKey, innerBytes)
	if err != nil {
		return nil, err
	}

	return wire.New(wire.TypeEncryptedReadObliviousDropboxResponse).
		Set(wire.FieldEncDropboxResponseID, p.Nonce).
		Set(wire.FieldCiphertext, ciphertext).
		Set(wire.FieldHalfKey, ephemeral.PublicBytes()).
		Set(wire.FieldNonce, p.Nonce), nil
}

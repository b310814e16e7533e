// Package dropbox implements the oblivious MPC dropbox protocol: storing
// pseudonym-addressed message fragments across a committee, finding a
// fragment set matching a polling client's pseudonym share without
// revealing the pseudonym itself, and retrieving/deleting matched
// fragments.
package dropbox

import (
	"github.com/luxfi/prism/internal/field"
	"github.com/luxfi/prism/internal/partyid"
)

// Fragment is one committee member's share of a single stored message:
// its pseudonym share (for oblivious matching), its encrypted payload,
// and the fragment ID that ties matching peers' copies together.
type Fragment struct {
	FragmentID     string
	PseudonymShare field.Share
	Ciphertext     []byte
}

// DummyFragment is a well-formed placeholder with no real content, used
// to pad batch sizes so real and dummy traffic are indistinguishable on
// the wire (spec.md 4.8, "dummy padding").
func DummyFragment() Fragment {
	return Fragment{
		FragmentID:     "",
		PseudonymShare: field.Dummy(),
		Ciphertext:     nil,
	}
}

// IsDummy reports whether this is padding rather than a real stored
// fragment.
func (f Fragment) IsDummy() bool {
	return f.PseudonymShare.IsDummy()
}

// Peer tracks what a single committee member has told us about its own
// storage: which fragment IDs it holds and which preproduct batches it
// shares with us, used by fragments_to_check to find fragment sets
// available on a common peer subset.
type Peer struct {
	ID               partyid.ID
	StoredFragments  map[string]bool
	PreproductBatches map[string]bool
}

// NewPeer builds an empty peer record.
func NewPeer(id partyid.ID) *Peer {
	return &Peer{
		ID:                id,
		StoredFragments:   make(map[string]bool),
		PreproductBatches: make(map[string]bool),
	}
}

// Has reports whether this peer has told us it stores fragmentID.
func (p *Peer) Has(fragmentID string) bool {
	return p.StoredFragments[fragmentID]
}

package dropbox

import (
	"fmt"
	"sync"

	"github.com/luxfi/prism/internal/errs"
	"github.com/luxfi/prism/internal/field"
	"github.com/luxfi/prism/internal/logging"
)

// Store holds one committee member's local copy of every fragment it has
// accepted, keyed by fragment ID.
type Store struct {
	mu        sync.RWMutex
	fragments map[string]Fragment
	log       *logging.Logger
}

// NewStore builds an empty fragment store.
func NewStore(log *logging.Logger) *Store {
	return &Store{fragments: make(map[string]Fragment), log: log}
}

// StoreFragment accepts a fragment for storage, retrying on a fragment-ID
// collision is the caller's responsibility (spec.md 4.8: "a fragment-ID
// collision during STORE is a fatal store error" — this layer rejects
// the write rather than silently overwriting).
func (s *Store) StoreFragment(frag Fragment) error {
	if frag.FragmentID == "" {
		return fmt.Errorf("%w: empty fragment id", errs.ErrFatal)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.fragments[frag.FragmentID]; exists {
		return fmt.Errorf("%w: fragment id collision %s", errs.ErrFatal, frag.FragmentID)
	}
	s.fragments[frag.FragmentID] = frag
	return nil
}

// Get returns a previously stored fragment.
func (s *Store) Get(fragmentID string) (Fragment, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	f, ok := s.fragments[fragmentID]
	return f, ok
}

// Delete removes a fragment (fire-and-forget; spec.md 4.8's DELETE has no
// reply and no error if the fragment is already gone).
func (s *Store) Delete(fragmentID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.fragments, fragmentID)
}

// FragmentIDs returns every fragment ID currently held.
func (s *Store) FragmentIDs() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]string, 0, len(s.fragments))
	for id := range s.fragments {
		out = append(out, id)
	}
	return out
}

// Retrieve collects the ciphertexts of the named fragments, erroring if
// the caller's threshold of committee members can't supply them all.
func (s *Store) Retrieve(fragmentIDs []string) ([][]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([][]byte, 0, len(fragmentIDs))
	for _, id := range fragmentIDs {
		f, ok := s.fragments[id]
		if !ok {
			return nil, fmt.Errorf("%w: fragment %s not found", errs.ErrThresholdNotMet, id)
		}
		out = append(out, f.Ciphertext)
	}
	return out, nil
}

// ReconstructPseudonym opens the pseudonym shares carried by a set of
// stored fragments believed to belong to the same logical message, used
// once FindMatch confirms a match to recover the plaintext pseudonym for
// bookkeeping/logging (never transmitted back to the client in the
// clear).
func ReconstructPseudonym(params *field.Params, shares []field.Share) []byte {
	opened := params.Open(shares)
	if opened == nil {
		return nil
	}
	return opened.Bytes()
}

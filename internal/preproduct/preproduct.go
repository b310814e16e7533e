// Package preproduct manages pools of precomputed Beaver triples and
// shared random numbers ("preproducts") that MPC operations consume at
// use time instead of generating fresh randomness per operation.
package preproduct

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/luxfi/prism/internal/field"
	"github.com/luxfi/prism/internal/logging"
	"github.com/luxfi/prism/internal/partyid"
)

// Chunk is a slice of preproducts claimed out of one or more batches for a
// single MPC operation.
type Chunk struct {
	Triples       []field.Triple
	RandomNumbers []field.Share
}

// Size is the number of preproducts available in the chunk.
func (c Chunk) Size() int {
	return len(c.Triples)
}

// Info names which batches, offsets, and sizes make up a claimed chunk, so
// the claim and the eventual fetch can be separated in time (the claim
// happens once; get_chunk can be called later by a caller holding Info).
type Info struct {
	BatchIDs []string
	Starts   []int
	Sizes    []int
}

// Batch is a pool of preproducts shared by a fixed committee of peers.
// Every participating peer holds a parallel copy of the same batch; only
// the owner may claim chunks out of it.
type Batch struct {
	mu sync.Mutex

	ID    string
	Peers partyid.Slice
	Owned bool

	triples       []*field.Triple
	randomNumbers []*field.Share
	next          int
}

// NewBatch constructs a batch from freshly generated preproducts.
func NewBatch(id string, peers partyid.Slice, owned bool, triples []field.Triple, randoms []field.Share) *Batch {
	b := &Batch{
		ID:            id,
		Peers:         peers,
		Owned:         owned,
		triples:       make([]*field.Triple, len(triples)),
		randomNumbers: make([]*field.Share, len(randoms)),
	}
	for i := range triples {
		t := triples[i]
		b.triples[i] = &t
	}
	for i := range randoms {
		r := randoms[i]
		b.randomNumbers[i] = &r
	}
	return b
}

// Size is the batch's total (original) capacity.
func (b *Batch) Size() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.triples)
}

// Remaining is the number of unclaimed preproducts left in the batch.
func (b *Batch) Remaining() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.remainingLocked()
}

func (b *Batch) remainingLocked() int {
	r := len(b.triples) - b.next
	if r < 0 {
		return 0
	}
	return r
}

// claimChunk reserves the next size preproducts in this batch, owner-only.
// Returns false if the batch doesn't have size remaining.
func (b *Batch) claimChunk(size int) (start int, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.Owned {
		return 0, false
	}
	if size > b.remainingLocked() {
		return 0, false
	}
	start = b.next
	b.next += size
	return start, true
}

// getChunk pulls the triples/randoms starting at start, nulling them out so
// they can never be served twice.
func (b *Batch) getChunk(start, size int) Chunk {
	b.mu.Lock()
	defer b.mu.Unlock()
	triples := make([]field.Triple, size)
	randoms := make([]field.Share, size)
	for i := 0; i < size; i++ {
		idx := start + i
		triples[i] = *b.triples[idx]
		randoms[i] = *b.randomNumbers[idx]
		b.triples[idx] = nil
		b.randomNumbers[idx] = nil
	}
	return Chunk{Triples: triples, RandomNumbers: randoms}
}

// serves reports whether every peer in the requested set participates in
// this batch (exact requires the membership sets to match exactly).
func (b *Batch) serves(peers partyid.Slice, exact bool) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if exact {
		return equalMembership(b.Peers, peers)
	}
	for _, p := range peers {
		if !b.Peers.Contains(p) {
			return false
		}
	}
	return true
}

func equalMembership(a, b partyid.Slice) bool {
	if len(a) != len(b) {
		return false
	}
	as, bs := a.Sorted(), b.Sorted()
	for i := range as {
		if as[i] != bs[i] {
			return false
		}
	}
	return true
}

// Store holds every batch a party currently participates in and serves
// claims for the ones it owns.
type Store struct {
	mu      sync.Mutex
	batches map[string]*Batch
	log     *logging.Logger

	claimPoll time.Duration
}

// NewStore builds an empty preproduct store.
func NewStore(log *logging.Logger) *Store {
	return &Store{
		batches:   make(map[string]*Batch),
		log:       log,
		claimPoll: 100 * time.Millisecond,
	}
}

// AddBatch registers a newly generated or received batch.
func (s *Store) AddBatch(b *Batch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.batches[b.ID] = b
}

// TotalRemaining sums remaining preproducts across every owned batch that
// serves the given peer set.
func (s *Store) TotalRemaining(peers partyid.Slice, exact bool) int {
	s.mu.Lock()
	batches := make([]*Batch, 0, len(s.batches))
	for _, b := range s.batches {
		batches = append(batches, b)
	}
	s.mu.Unlock()

	total := 0
	for _, b := range batches {
		if b.Owned && b.serves(peers, exact) {
			total += b.Remaining()
		}
	}
	return total
}

// ClaimChunk reserves size preproducts against one or more owned batches
// that serve peers, blocking (polling on claimPoll, cancellable via ctx)
// until at least size are available across them. A concurrent claim
// between that check and the claim itself can still leave Info's total
// below size, so callers should treat Info's total as authoritative.
func (s *Store) ClaimChunk(ctx context.Context, size int, peers partyid.Slice) (Info, error) {
	ticker := time.NewTicker(s.claimPoll)
	defer ticker.Stop()

	logged := false
	for {
		if s.TotalRemaining(peers, false) >= size {
			info := s.claimAvailable(size, peers)
			return info, nil
		}

		if !logged {
			s.log.With("peers", len(peers)).Info("awaiting preproduct availability")
			logged = true
		}

		select {
		case <-ctx.Done():
			return Info{}, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (s *Store) claimAvailable(size int, peers partyid.Slice) Info {
	s.mu.Lock()
	candidates := make([]*Batch, 0, len(s.batches))
	for _, b := range s.batches {
		if b.Owned && b.serves(peers, false) && b.Remaining() > 0 {
			candidates = append(candidates, b)
		}
	}
	s.mu.Unlock()

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Remaining() > candidates[j].Remaining()
	})

	var info Info
	toClaim := size
	for _, b := range candidates {
		if toClaim <= 0 {
			break
		}
		want := toClaim
		if r := b.Remaining(); r < want {
			want = r
		}
		start, ok := b.claimChunk(want)
		if !ok {
			continue
		}
		info.BatchIDs = append(info.BatchIDs, b.ID)
		info.Starts = append(info.Starts, start)
		info.Sizes = append(info.Sizes, want)
		toClaim -= want
	}
	return info
}

// GetChunk fetches the preproducts named by a prior claim's Info. Returns
// false if a named batch is no longer present (e.g. evicted after expiry).
func (s *Store) GetChunk(info Info) (Chunk, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out Chunk
	for i, id := range info.BatchIDs {
		b, ok := s.batches[id]
		if !ok {
			return Chunk{}, false
		}
		chunk := b.getChunk(info.Starts[i], info.Sizes[i])
		out.Triples = append(out.Triples, chunk.Triples...)
		out.RandomNumbers = append(out.RandomNumbers, chunk.RandomNumbers...)
	}
	return out, true
}

// EvictStale drops every batch whose ID keep rejects; the caller decides
// staleness (e.g. past a committee's epoch handoff, or past each batch's
// configured time-to-live).
func (s *Store) EvictStale(keep func(batchID string) bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for id := range s.batches {
		if !keep(id) {
			delete(s.batches, id)
		}
	}
}

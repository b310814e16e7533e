// Package partyid provides the comparable identifier type used throughout
// PRISM to name MPC committee members, routers, and wire-level senders.
package partyid

import (
	"sort"

	"github.com/cronokirby/saferith"
)

// ID identifies a single party within an MPC committee or routing domain.
// It is a small non-negative integer assigned by sorting committee
// pseudonyms at sortition time (spec.md 4.10); party 0 is always the leader.
type ID int32

// None is the sentinel for "no party"; it is -1, distinct from party 0.
const None ID = -1

// Scalar returns the field element x used as this party's polynomial
// evaluation point. Points start at 1, not 0, so that the secret itself
// (P(0)) is never directly represented by a party's share.
func (id ID) Scalar() *saferith.Nat {
	return new(saferith.Nat).SetUint64(uint64(id) + 1)
}

// Slice is a sortable, de-duplicable collection of party IDs.
type Slice []ID

func (s Slice) Len() int           { return len(s) }
func (s Slice) Less(i, j int) bool { return s[i] < s[j] }
func (s Slice) Swap(i, j int)      { s[i], s[j] = s[j], s[i] }

// Sorted returns a sorted copy of s.
func (s Slice) Sorted() Slice {
	out := make(Slice, len(s))
	copy(out, s)
	sort.Sort(out)
	return out
}

// Contains reports whether id appears in s.
func (s Slice) Contains(id ID) bool {
	for _, p := range s {
		if p == id {
			return true
		}
	}
	return false
}

// Intersect returns the elements of s that also appear in other.
func (s Slice) Intersect(other Slice) Slice {
	out := make(Slice, 0, len(s))
	for _, id := range s {
		if other.Contains(id) {
			out = append(out, id)
		}
	}
	return out
}

// Remove returns a copy of s with id removed, if present.
func (s Slice) Remove(id ID) Slice {
	out := make(Slice, 0, len(s))
	for _, p := range s {
		if p != id {
			out = append(out, p)
		}
	}
	return out
}

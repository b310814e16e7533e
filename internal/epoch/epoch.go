package epoch

import (
	"fmt"
	"sync/atomic"

	"github.com/luxfi/prism/internal/vrf"
)

var serialCounter int64

func nextSerial() int64 {
	return atomic.AddInt64(&serialCounter, 1)
}

// SortitionOptions controls how a VRF-selected dropbox committee maps to
// a concrete role name and dropbox index (mirrors vrf.py's
// vrf_dropbox_ss / vrf_db_index_from_range_ids config switches).
type SortitionOptions struct {
	DropboxSingleServer bool
	IndexFromRangeIDs   bool
}

// Epoch is one generation of role assignment: a name, a lifecycle
// state, and (once sorted) the role/committee this node plays for its
// duration.
type Epoch struct {
	Name         string
	SerialNumber int64
	Previous     *Epoch
	State        State
	Pseudonym    []byte

	Role         string
	Committee    string
	DropboxIndex *int
	Proof        *vrf.Proof
}

// NewGenesis builds the first epoch of a deployment, with a role fixed
// by configuration rather than sortition (mirrors GenesisEpoch, which
// reads `role`/`db_index` directly from config instead of running a
// VRF).
func NewGenesis(previous *Epoch, role string, dropboxIndex *int, pseudonym []byte) *Epoch {
	committee := role
	if dropboxIndex != nil {
		committee = fmt.Sprintf("%s%d", role, *dropboxIndex)
	}
	return &Epoch{
		Name:         "genesis",
		SerialNumber: nextSerial(),
		Previous:     previous,
		State:        Running,
		Pseudonym:    pseudonym,
		Role:         role,
		Committee:    committee,
		DropboxIndex: dropboxIndex,
	}
}

// NewFromSeed builds a sorted epoch: alpha is the VRF input (the epoch
// seed), and key proves this node's role under dist.
func NewFromSeed(name string, previous *Epoch, pseudonym []byte, dist *vrf.Distribution, committees map[string]vrf.Committee, mReplicas int, opts SortitionOptions, key *vrf.PrivateKey, alpha []byte) (*Epoch, error) {
	sortition := vrf.NewSortition(dist)
	committee, proof, err := sortition.SortAndProve(key, alpha)
	if err != nil {
		return nil, fmt.Errorf("epoch: sortition for %s: %w", name, err)
	}

	role, dropboxIndex := resolveRole(committee, committees, mReplicas, opts)

	return &Epoch{
		Name:         name,
		SerialNumber: nextSerial(),
		Previous:     previous,
		State:        PreRun,
		Pseudonym:    pseudonym,
		Role:         role,
		Committee:    committee,
		DropboxIndex: dropboxIndex,
		Proof:        &proof,
	}, nil
}

func resolveRole(committee string, committees map[string]vrf.Committee, mReplicas int, opts SortitionOptions) (role string, dropboxIndex *int) {
	if committee == "OFF" {
		return "DUMMY", nil
	}
	if c, ok := committees[committee]; ok {
		roleName := "DROPBOX_LF"
		if opts.DropboxSingleServer {
			roleName = "DROPBOX"
		}
		var idx int
		if opts.IndexFromRangeIDs {
			idx = c.Range - 1
		} else {
			idx = (c.Range-1)*mReplicas + (c.Replica - 1)
		}
		return roleName, &idx
	}
	return committee, nil
}

// Advance applies a NEXT command, moving the epoch to its successor
// state. It reports false (without side effects) once the epoch is
// already OFF.
func (e *Epoch) Advance() bool {
	next, changed := e.State.next()
	e.State = next
	return changed
}

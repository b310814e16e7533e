// Package field implements the secret-sharing algebra (spec.md component
// C1): Shamir/Feldman/Full share and open, pointwise add/sub/mul with
// dummy-share short-circuiting, and the byte-chunking helpers the dropbox
// and preproduct pipelines build on.
//
// Grounded on the teacher's pkg/math/polynomial (Polynomial, Lagrange) and
// its use of github.com/cronokirby/saferith for modular big-integer
// arithmetic throughout protocols/lss.
package field

import (
	"crypto/rand"
	"fmt"

	"github.com/cronokirby/saferith"

	"github.com/luxfi/prism/internal/partyid"
)

// Scheme names a secret-sharing variant (spec.md 3, "Secret-sharing params").
type Scheme int

const (
	Shamir Scheme = iota
	Feldman
	Full
)

func (s Scheme) String() string {
	switch s {
	case Shamir:
		return "Shamir"
	case Feldman:
		return "Feldman"
	case Full:
		return "Full"
	default:
		return "Unknown"
	}
}

// Params describes the geometry of a secret-sharing scheme: party count,
// reconstruction threshold, and the prime field it operates over. Feldman
// additionally carries (p, g) for exponentiation commitments.
type Params struct {
	Scheme    Scheme
	NParties  int
	Threshold int
	Modulus   *saferith.Modulus

	// P, G are only set for Feldman: commitments are g^coeff mod P.
	P *saferith.Nat
	G *saferith.Nat
}

// NewShamirParams builds Params for plain Shamir sharing over modulus.
func NewShamirParams(nParties, threshold int, modulus *saferith.Nat) (*Params, error) {
	p := &Params{
		Scheme:    Shamir,
		NParties:  nParties,
		Threshold: threshold,
		Modulus:   saferith.ModulusFromNat(modulus),
	}
	return p, p.Validate()
}

// NewFeldmanParams builds Params for Feldman-VSS sharing, additionally
// carrying the (p, g) used for coefficient commitments.
func NewFeldmanParams(nParties, threshold int, modulus, p, g *saferith.Nat) (*Params, error) {
	pr := &Params{
		Scheme:    Feldman,
		NParties:  nParties,
		Threshold: threshold,
		Modulus:   saferith.ModulusFromNat(modulus),
		P:         p,
		G:         g,
	}
	return pr, pr.Validate()
}

// NewFullParams builds Params for the Full scheme: every party must be
// present to reconstruct (threshold == nParties).
func NewFullParams(nParties int, modulus *saferith.Nat) (*Params, error) {
	pr := &Params{
		Scheme:    Full,
		NParties:  nParties,
		Threshold: nParties,
		Modulus:   saferith.ModulusFromNat(modulus),
	}
	return pr, pr.Validate()
}

// Validate enforces spec.md 3's invariant: threshold <= n_parties, and Full
// requires threshold == n_parties.
func (p *Params) Validate() error {
	if p.NParties < 3 {
		return fmt.Errorf("field: nparties must be >= 3, got %d", p.NParties)
	}
	if p.Threshold > p.NParties {
		return fmt.Errorf("field: threshold %d exceeds nparties %d", p.Threshold, p.NParties)
	}
	if p.Threshold < 1 {
		return fmt.Errorf("field: threshold must be >= 1")
	}
	if p.Scheme == Full && p.Threshold != p.NParties {
		return fmt.Errorf("field: Full scheme requires threshold == nparties")
	}
	if p.Scheme == Feldman && (p.P == nil || p.G == nil) {
		return fmt.Errorf("field: Feldman scheme requires (p, g)")
	}
	return nil
}

// ChunkSizeBytes returns the number of plaintext bytes that fit safely in a
// single field element, reserving header bytes for the CBOR length prefix
// the way the source's secretsharing.chunk_size_bytes does.
func (p *Params) ChunkSizeBytes() int {
	maxBits := p.Modulus.Nat().TrueLen() - 1
	maxBytes := maxBits / 8
	if maxBytes <= 2 {
		return 1
	}
	return maxBytes - 2
}

// randNat returns a uniformly random element of [1, modulus).
func randNat(modulus *saferith.Modulus) *saferith.Nat {
	bound := modulus.Nat()
	bitLen := bound.TrueLen()
	byteLen := (bitLen + 7) / 8
	buf := make([]byte, byteLen)
	for {
		if _, err := rand.Read(buf); err != nil {
			panic(fmt.Errorf("field: reading randomness: %w", err))
		}
		n := new(saferith.Nat).SetBytes(buf)
		n.Mod(n, modulus)
		if n.Big().Sign() != 0 {
			return n
		}
	}
}

// idScalar returns the polynomial evaluation point for party id: points
// start at 1 (matching original_source's `s.x + 1` convention) so that
// x=0 is reserved for the secret itself.
func idScalar(id partyid.ID) *saferith.Nat {
	return id.Scalar()
}

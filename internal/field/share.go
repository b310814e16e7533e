package field

import (
	"github.com/cronokirby/saferith"

	"github.com/luxfi/prism/internal/partyid"
)

// Share is one party's evaluation of a secret-sharing polynomial (spec.md
// 3, "Share"). X == -1 (partyid.None) denotes a dummy share: any arithmetic
// operation touching a dummy short-circuits to another dummy, so bulk
// vectorized ops over batches with placeholder positions never need to
// branch on validity.
type Share struct {
	Value       *saferith.Nat
	X           partyid.ID
	Commitments []*saferith.Nat // only populated for Feldman shares
}

// Dummy returns the canonical dummy share.
func Dummy() Share {
	return Share{Value: new(saferith.Nat).SetUint64(0), X: partyid.None}
}

// IsDummy reports whether s is a dummy (placeholder) share.
func (s Share) IsDummy() bool {
	return s.X == partyid.None
}

// dummyIfAny returns (Dummy(), true) if any operand is a dummy share.
func dummyIfAny(shares ...Share) (Share, bool) {
	for _, s := range shares {
		if s.IsDummy() {
			return Dummy(), true
		}
	}
	return Share{}, false
}

// Add returns a + b, assuming both are shares at the same x-coordinate.
func (p *Params) Add(a, b Share) Share {
	if d, ok := dummyIfAny(a, b); ok {
		return d
	}
	v := new(saferith.Nat).ModAdd(a.Value, b.Value, p.Modulus)
	return Share{Value: v, X: a.X}
}

// Sub returns a - b.
func (p *Params) Sub(a, b Share) Share {
	if d, ok := dummyIfAny(a, b); ok {
		return d
	}
	v := new(saferith.Nat).ModSub(a.Value, b.Value, p.Modulus)
	return Share{Value: v, X: a.X}
}

// Mul returns a share of a*b. Warning (spec.md 4.1): this doubles the
// effective polynomial degree; the caller must degree-reduce (see the
// internal/dropbox mulm implementation) before further multiplication.
func (p *Params) Mul(a, b Share) Share {
	if d, ok := dummyIfAny(a, b); ok {
		return d
	}
	v := new(saferith.Nat).ModMul(a.Value, b.Value, p.Modulus)
	return Share{Value: v, X: a.X}
}

// AddConst returns a + c for a public constant c.
func (p *Params) AddConst(a Share, c *saferith.Nat) Share {
	if d, ok := dummyIfAny(a); ok {
		return d
	}
	v := new(saferith.Nat).ModAdd(a.Value, c, p.Modulus)
	return Share{Value: v, X: a.X}
}

// MulConst returns a * c for a public constant c.
func (p *Params) MulConst(a Share, c *saferith.Nat) Share {
	if d, ok := dummyIfAny(a); ok {
		return d
	}
	v := new(saferith.Nat).ModMul(a.Value, c, p.Modulus)
	return Share{Value: v, X: a.X}
}

// MulED implements the Beaver-triple degree reduction identity used by
// mulm (spec.md 4.8.2): given public epsilon = a - x, delta = b - y for a
// triple (x, y, z=x*y), c = z + delta*x + epsilon*y + epsilon*delta
// reconstructs a share of a*b with local computation only, after a single
// open round on epsilon/delta. Grounded on the source's
// Sharing.mul_ed(epsilon, delta, triple).
func (p *Params) MulED(epsilon, delta *saferith.Nat, triple Triple) Share {
	if d, ok := dummyIfAny(triple.A, triple.B, triple.C); ok {
		return d
	}
	t1 := p.MulConst(triple.B, epsilon)
	t2 := p.MulConst(triple.A, delta)
	sum := p.Add(p.Add(triple.C, t1), t2)
	ed := new(saferith.Nat).ModMul(epsilon, delta, p.Modulus)
	return p.AddConst(sum, ed)
}

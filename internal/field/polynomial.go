package field

import (
	"github.com/cronokirby/saferith"

	"github.com/luxfi/prism/internal/partyid"
)

// polynomial is a dense coefficient list, coeffs[0] is the constant term
// (the secret). Evaluated with Horner's method mod the field's modulus.
type polynomial struct {
	coeffs  []*saferith.Nat
	modulus *saferith.Modulus
}

// newPolynomial builds a degree-(threshold-1) polynomial with the given
// constant term and uniformly random higher coefficients.
func newPolynomial(constant *saferith.Nat, threshold int, modulus *saferith.Modulus) *polynomial {
	coeffs := make([]*saferith.Nat, threshold)
	coeffs[0] = constant
	for i := 1; i < threshold; i++ {
		coeffs[i] = randNat(modulus)
	}
	return &polynomial{coeffs: coeffs, modulus: modulus}
}

// evaluate computes P(x) via Horner's method.
func (poly *polynomial) evaluate(x *saferith.Nat) *saferith.Nat {
	y := new(saferith.Nat).SetUint64(0)
	for i := len(poly.coeffs) - 1; i >= 0; i-- {
		y = new(saferith.Nat).ModMul(y, x, poly.modulus)
		y = new(saferith.Nat).ModAdd(y, poly.coeffs[i], poly.modulus)
	}
	return y
}

// Share evaluates a fresh random degree-(threshold-1) polynomial with the
// given secret as its constant term at each party's x-coordinate
// (spec.md 4.1, "share(secret) -> [Share]").
func (p *Params) Share(secret *saferith.Nat) []Share {
	poly := newPolynomial(secret, p.Threshold, p.Modulus)

	shares := make([]Share, p.NParties)
	for i := 0; i < p.NParties; i++ {
		id := partyid.ID(i)
		x := idScalar(id)
		v := poly.evaluate(x)
		s := Share{Value: v, X: id}
		if p.Scheme == Feldman {
			s.Commitments = p.commitCoefficients(poly)
		}
		shares[i] = s
	}
	return shares
}

// commitCoefficients produces g^f_i mod P for each coefficient, the
// commitment the source's FeldmansVSS.share uses.
func (p *Params) commitCoefficients(poly *polynomial) []*saferith.Nat {
	commits := make([]*saferith.Nat, len(poly.coeffs))
	pMod := saferith.ModulusFromNat(p.P)
	for i, c := range poly.coeffs {
		commits[i] = new(saferith.Nat).Exp(p.G, c, pMod)
	}
	return commits
}

// VerifyShare checks a Feldman share against its polynomial commitments:
// prod(C_i ^ (x^i)) mod P should equal g^share mod P (spec.md 4.1,
// Feldman variant). Grounded on the source's FeldmansVSS.verify.
func (p *Params) VerifyShare(s Share) bool {
	if p.Scheme != Feldman || len(s.Commitments) == 0 {
		return true
	}
	pMod := saferith.ModulusFromNat(p.P)
	x := idScalar(s.X)
	ref := new(saferith.Nat).SetUint64(1)
	xPow := new(saferith.Nat).SetUint64(1)
	for _, c := range s.Commitments {
		term := new(saferith.Nat).Exp(c, xPow, pMod)
		ref = new(saferith.Nat).ModMul(ref, term, pMod)
		xPow = new(saferith.Nat).ModMul(xPow, x, pMod)
	}
	expect := new(saferith.Nat).Exp(p.G, s.Value, pMod)
	return ref.Big().Cmp(expect.Big()) == 0
}

// lagrangeCoefficients computes the Lagrange basis coefficients for
// interpolating at x=iq given the sample points xPoints (1-indexed party
// positions), grounded directly on the source's
// ShamirSS._recoverCoefficients.
func lagrangeCoefficients(xPoints []*saferith.Nat, iq *saferith.Nat, modulus *saferith.Modulus) []*saferith.Nat {
	coeffs := make([]*saferith.Nat, len(xPoints))
	for i, xi := range xPoints {
		result := new(saferith.Nat).SetUint64(1)
		for _, xj := range xPoints {
			if xi.Big().Cmp(xj.Big()) == 0 {
				continue
			}
			num := new(saferith.Nat).ModSub(iq, xj, modulus)
			diff := new(saferith.Nat).ModSub(xi, xj, modulus)
			inv := new(saferith.Nat).ModInverse(diff, modulus)
			term := new(saferith.Nat).ModMul(num, inv, modulus)
			result = new(saferith.Nat).ModMul(result, term, modulus)
		}
		coeffs[i] = result
	}
	return coeffs
}

// Open reconstructs the secret from a set of shares via Lagrange
// interpolation at x=0, returning nil if fewer than Threshold non-dummy
// shares are present (spec.md 4.1, "open"; spec.md 8's Open invariant).
func (p *Params) Open(shares []Share) *saferith.Nat {
	real := make([]Share, 0, len(shares))
	for _, s := range shares {
		if !s.IsDummy() {
			real = append(real, s)
		}
	}
	if len(real) < p.Threshold {
		return nil
	}
	real = real[:p.Threshold]

	xPoints := make([]*saferith.Nat, len(real))
	for i, s := range real {
		xPoints[i] = idScalar(s.X)
	}
	zero := new(saferith.Nat).SetUint64(0)
	coeffs := lagrangeCoefficients(xPoints, zero, p.Modulus)

	value := new(saferith.Nat).SetUint64(0)
	for i, s := range real {
		term := new(saferith.Nat).ModMul(coeffs[i], s.Value, p.Modulus)
		value = new(saferith.Nat).ModAdd(value, term, p.Modulus)
	}
	return value
}

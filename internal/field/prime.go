package field

import (
	"crypto/rand"
	"fmt"
	"math/big"

	"github.com/cronokirby/saferith"
)

// GeneratePrime returns a random prime of the requested bit length, for
// configuring a committee's mpc_modulus when the deployment does not pin a
// fixed prime (spec.md 6, `mpc_modulus`).
func GeneratePrime(bits int) (*saferith.Nat, error) {
	p, err := rand.Prime(rand.Reader, bits)
	if err != nil {
		return nil, fmt.Errorf("field: generating prime: %w", err)
	}
	return new(saferith.Nat).SetBig(p, bits+1), nil
}

// ModulusFromHex parses a hex-encoded modulus, as carried in
// config.MPCConfig.ModulusHex.
func ModulusFromHex(hexStr string) (*saferith.Nat, error) {
	n, ok := new(big.Int).SetString(hexStr, 16)
	if !ok {
		return nil, fmt.Errorf("field: invalid hex modulus %q", hexStr)
	}
	return new(saferith.Nat).SetBig(n, n.BitLen()+1), nil
}

package field_test

import (
	"math/big"
	"testing"

	"github.com/cronokirby/saferith"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/prism/internal/field"
)

func testModulus(t *testing.T) *saferith.Nat {
	t.Helper()
	// A small prime sufficient for unit tests; production deployments use
	// the 256-bit prime carried in config.MPCConfig.ModulusHex.
	m, err := field.GeneratePrime(64)
	require.NoError(t, err)
	return m
}

func TestShareOpenRoundTrip(t *testing.T) {
	modulus := testModulus(t)
	params, err := field.NewShamirParams(5, 3, modulus)
	require.NoError(t, err)

	secret := new(saferith.Nat).SetUint64(424242)
	shares := params.Share(secret)
	require.Len(t, shares, 5)

	opened := params.Open(shares[:3])
	require.NotNil(t, opened)
	assert.Equal(t, secret.Big(), opened.Big())

	opened2 := params.Open(shares)
	require.NotNil(t, opened2)
	assert.Equal(t, secret.Big(), opened2.Big())
}

func TestOpenFailsBelowThreshold(t *testing.T) {
	modulus := testModulus(t)
	params, err := field.NewShamirParams(5, 3, modulus)
	require.NoError(t, err)

	secret := new(saferith.Nat).SetUint64(7)
	shares := params.Share(secret)

	assert.Nil(t, params.Open(shares[:2]))
}

func TestDummyPropagation(t *testing.T) {
	modulus := testModulus(t)
	params, err := field.NewShamirParams(5, 3, modulus)
	require.NoError(t, err)

	secret := new(saferith.Nat).SetUint64(5)
	shares := params.Share(secret)

	sum := params.Add(shares[0], field.Dummy())
	assert.True(t, sum.IsDummy())

	prod := params.Mul(shares[0], field.Dummy())
	assert.True(t, prod.IsDummy())
}

func TestArithmeticHomomorphism(t *testing.T) {
	modulus := testModulus(t)
	params, err := field.NewShamirParams(5, 3, modulus)
	require.NoError(t, err)

	a := new(saferith.Nat).SetUint64(10)
	b := new(saferith.Nat).SetUint64(17)
	sharesA := params.Share(a)
	sharesB := params.Share(b)

	sumShares := make([]field.Share, len(sharesA))
	for i := range sharesA {
		sumShares[i] = params.Add(sharesA[i], sharesB[i])
	}
	opened := params.Open(sumShares[:3])
	require.NotNil(t, opened)
	assert.Equal(t, int64(27), opened.Big().Int64())
}

func TestShareBytesRoundTrip(t *testing.T) {
	modulus := testModulus(t)
	params, err := field.NewShamirParams(4, 2, modulus)
	require.NoError(t, err)

	data := []byte("hello, dropbox")
	perParty, err := params.ShareBytes(data)
	require.NoError(t, err)
	require.Len(t, perParty, 4)

	out, err := params.ReconstructBytes(perParty[:2])
	require.NoError(t, err)
	assert.Equal(t, data, out)
}

func TestFeldmanVerify(t *testing.T) {
	// VerifyShare compares g^(F(x) mod q) with prod C_i^(x^i) mod p, which
	// agree only when g generates a subgroup of order q. With a safe prime
	// p = 2q+1, g = 4 (a quadratic residue other than 1) has order exactly q.
	var modulus, p *saferith.Nat
	for modulus == nil {
		q, err := field.GeneratePrime(64)
		require.NoError(t, err)
		pBig := new(big.Int).Add(new(big.Int).Lsh(q.Big(), 1), big.NewInt(1))
		if pBig.ProbablyPrime(20) {
			modulus = q
			p = new(saferith.Nat).SetBig(pBig, pBig.BitLen())
		}
	}
	g := new(saferith.Nat).SetUint64(4)

	params, err := field.NewFeldmanParams(5, 3, modulus, p, g)
	require.NoError(t, err)

	secret := new(saferith.Nat).SetUint64(99)
	shares := params.Share(secret)
	for _, s := range shares {
		assert.True(t, params.VerifyShare(s))
	}
}

package vrf_test

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/prism/internal/vrf"
)

func TestProveAndVerifyRoundTrip(t *testing.T) {
	key, err := vrf.GenerateKey()
	require.NoError(t, err)

	alpha := []byte("epoch-seed-1")
	proof := key.Prove(alpha)

	ok, beta := vrf.Verify(key.Public(), alpha, proof)
	assert.True(t, ok)
	assert.NotEmpty(t, beta)
}

func TestVerifyRejectsWrongAlpha(t *testing.T) {
	key, err := vrf.GenerateKey()
	require.NoError(t, err)

	proof := key.Prove([]byte("alpha-one"))
	ok, _ := vrf.Verify(key.Public(), []byte("alpha-two"), proof)
	assert.False(t, ok)
}

func TestProveIsDeterministic(t *testing.T) {
	key, err := vrf.GenerateKey()
	require.NoError(t, err)

	alpha := []byte("deterministic-seed")
	p1 := key.Prove(alpha)
	p2 := key.Prove(alpha)
	assert.Equal(t, p1, p2)
}

func TestRoleDistributionPartitionsSpace(t *testing.T) {
	dist, committees, err := vrf.RoleDistribution(vrf.Config{
		NRanges:   2,
		MReplicas: 1,
		PEmix:     0.3,
		POff:      0.2,
	})
	require.NoError(t, err)
	assert.Len(t, committees, 2)

	// Both ends of the domain must resolve to a real role.
	role, err := dist.Role(vrf.Space)
	require.NoError(t, err)
	assert.NotEmpty(t, role)

	role, err = dist.Role(big.NewInt(0))
	require.NoError(t, err)
	assert.NotEmpty(t, role)
}

func TestSortAndProveVerifies(t *testing.T) {
	dist, _, err := vrf.RoleDistribution(vrf.Config{NRanges: 1, MReplicas: 1, PEmix: 0.3, POff: 0.2})
	require.NoError(t, err)
	sortition := vrf.NewSortition(dist)

	key, err := vrf.GenerateKey()
	require.NoError(t, err)

	role, proof, err := sortition.SortAndProve(key, []byte("genesis-seed"))
	require.NoError(t, err)
	assert.True(t, sortition.VerifyProof(proof, role))
	assert.False(t, sortition.VerifyProof(proof, "definitely-not-"+role))
}

func TestProofHexRoundTrip(t *testing.T) {
	dist, _, err := vrf.RoleDistribution(vrf.Config{NRanges: 1, MReplicas: 1, PEmix: 0.3, POff: 0.2})
	require.NoError(t, err)
	sortition := vrf.NewSortition(dist)

	key, err := vrf.GenerateKey()
	require.NoError(t, err)

	role, proof, err := sortition.SortAndProve(key, []byte("seed"))
	require.NoError(t, err)

	parsed, err := vrf.ProofFromHex(proof.Hex())
	require.NoError(t, err)
	assert.True(t, sortition.VerifyProof(parsed, role))
}

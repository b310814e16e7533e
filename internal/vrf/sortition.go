package vrf

import (
	"encoding/hex"
	"fmt"
	"math/big"
)

// Sortition assigns roles to nodes by running the VRF against an epoch
// seed and looking the output up in a Distribution.
type Sortition struct {
	dist *Distribution
}

// NewSortition builds a Sortition over the given role distribution.
func NewSortition(dist *Distribution) *Sortition {
	return &Sortition{dist: dist}
}

// Proof is a serialized, independently verifiable sortition proof: the
// public key, the seed it was computed over, and the VRF proof.
type Proof struct {
	PublicKey PublicKey
	Alpha     []byte
	Pi        []byte
}

// Hex encodes a Proof for wire transmission (ARK's role-proof field).
func (p Proof) Hex() string {
	return hex.EncodeToString(p.PublicKey.Bytes()) + ":" + hex.EncodeToString(p.Alpha) + ":" + hex.EncodeToString(p.Pi)
}

// ProofFromHex parses the format Hex produces.
func ProofFromHex(s string) (Proof, error) {
	parts := splitThree(s)
	if parts == nil {
		return Proof{}, fmt.Errorf("vrf: malformed proof %q", s)
	}
	pubBytes, err := hex.DecodeString(parts[0])
	if err != nil {
		return Proof{}, fmt.Errorf("vrf: decode public key: %w", err)
	}
	pub, err := PublicKeyFromBytes(pubBytes)
	if err != nil {
		return Proof{}, err
	}
	alpha, err := hex.DecodeString(parts[1])
	if err != nil {
		return Proof{}, fmt.Errorf("vrf: decode alpha: %w", err)
	}
	pi, err := hex.DecodeString(parts[2])
	if err != nil {
		return Proof{}, fmt.Errorf("vrf: decode proof: %w", err)
	}
	return Proof{PublicKey: pub, Alpha: alpha, Pi: pi}, nil
}

func splitThree(s string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(s); i++ {
		if s[i] == ':' {
			parts = append(parts, s[start:i])
			start = i + 1
		}
	}
	parts = append(parts, s[start:])
	if len(parts) != 3 {
		return nil
	}
	return parts
}

// SortAndProve runs the VRF for sk over alpha and returns the selected
// role alongside the serialized proof a peer can later verify.
func (s *Sortition) SortAndProve(sk *PrivateKey, alpha []byte) (role string, proof Proof, err error) {
	pi := sk.Prove(alpha)
	beta := ProofToHash(pi)
	role, err = s.dist.Role(new(big.Int).SetBytes(beta))
	if err != nil {
		return "", Proof{}, err
	}
	return role, Proof{PublicKey: sk.Public(), Alpha: alpha, Pi: pi}, nil
}

// VerifyProof checks that proof is valid and that it actually selects
// claimedRole under this Sortition's distribution.
func (s *Sortition) VerifyProof(proof Proof, claimedRole string) bool {
	ok, beta := Verify(proof.PublicKey, proof.Alpha, proof.Pi)
	if !ok {
		return false
	}
	role, err := s.dist.Role(new(big.Int).SetBytes(beta))
	if err != nil {
		return false
	}
	return role == claimedRole
}

package vrf

import (
	"fmt"
	"math/big"
	"sort"
)

// Space is the VRF output domain, matching the source's 2**256 - 1.
var Space = new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 256), big.NewInt(1))

// Distribution partitions Space into contiguous ranges, one per role,
// sized proportionally to each role's assigned probability.
type Distribution struct {
	roles       []string
	upperBounds []*big.Int
	space       *big.Int
}

// NewDistribution builds a Distribution from a role-to-probability map.
// Probabilities must be non-negative and sum to (approximately) 1; the
// final boundary is always pinned to space to absorb rounding.
func NewDistribution(roleProbabilities map[string]float64, space *big.Int) (*Distribution, error) {
	roles := make([]string, 0, len(roleProbabilities))
	for role := range roleProbabilities {
		roles = append(roles, role)
	}
	sort.Strings(roles)

	var sum float64
	for _, p := range roleProbabilities {
		if p < 0 || p > 1 {
			return nil, fmt.Errorf("vrf: %f is not a probability", p)
		}
		sum += p
	}
	if sum < 0.999 || sum > 1.001 {
		return nil, fmt.Errorf("vrf: probabilities sum to %f, want 1", sum)
	}

	spaceF := new(big.Float).SetInt(space)
	upperBounds := make([]*big.Int, len(roles))
	running := new(big.Float)
	for i, role := range roles {
		gap := new(big.Float).Mul(big.NewFloat(roleProbabilities[role]), spaceF)
		running.Add(running, gap)
		bound, _ := running.Int(nil)
		upperBounds[i] = bound
	}
	// Pin the last boundary to space so rounding never leaves payloads
	// past the final role's range unassigned.
	if len(upperBounds) > 0 {
		upperBounds[len(upperBounds)-1] = new(big.Int).Set(space)
	}

	return &Distribution{roles: roles, upperBounds: upperBounds, space: space}, nil
}

// Role returns the role whose range payload falls into.
func (d *Distribution) Role(payload *big.Int) (string, error) {
	if payload.Sign() < 0 || payload.Cmp(d.space) > 0 {
		return "", fmt.Errorf("vrf: payload %s out of domain [0, %s]", payload, d.space)
	}
	i := sort.Search(len(d.upperBounds), func(i int) bool {
		return d.upperBounds[i].Cmp(payload) >= 0
	})
	if i == len(d.roles) {
		i = len(d.roles) - 1
	}
	return d.roles[i], nil
}

// Config mirrors the source's VRFConfig: sortition geometry for the
// dropbox committee space and the EMIX/OFF split.
type Config struct {
	NRanges   int
	MReplicas int
	PEmix     float64
	POff      float64
}

// Committee identifies one dropbox committee's position in the
// range/replica grid.
type Committee struct {
	Range    int
	Replica  int
}

// RoleDistribution builds the sortition distribution spec.md 4.10
// describes: a fixed OFF probability, a fixed EMIX probability (the
// remainder after dropbox committees and OFF are accounted for), and
// NRanges*MReplicas equally sized DROPBOX_<range>_<replica> committees
// sharing the remaining probability mass evenly.
func RoleDistribution(cfg Config) (*Distribution, map[string]Committee, error) {
	committees := make(map[string]Committee, cfg.NRanges*cfg.MReplicas)
	for r := 1; r <= cfg.NRanges; r++ {
		for m := 1; m <= cfg.MReplicas; m++ {
			key := fmt.Sprintf("DROPBOX_%d_%d", r, m)
			committees[key] = Committee{Range: r, Replica: m}
		}
	}

	dbRatio := 1 - cfg.PEmix - cfg.POff
	if dbRatio < 0 {
		return nil, nil, fmt.Errorf("vrf: p_emix + p_off exceeds 1")
	}
	dbProb := 0.0
	if n := cfg.NRanges * cfg.MReplicas; n > 0 {
		dbProb = dbRatio / float64(n)
	}

	roleMap := map[string]float64{"OFF": cfg.POff}
	for key := range committees {
		roleMap[key] = dbProb
	}
	var assigned float64
	for role, p := range roleMap {
		if role != "EMIX" {
			assigned += p
		}
	}
	roleMap["EMIX"] = 1 - assigned

	dist, err := NewDistribution(roleMap, Space)
	if err != nil {
		return nil, nil, err
	}
	return dist, committees, nil
}

package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/luxfi/prism/internal/vrf"
)

func runGenesisRole(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	_, committees, err := vrf.RoleDistribution(vrf.Config{
		NRanges:   cfg.VRF.NRanges,
		MReplicas: cfg.VRF.MReplicas,
		PEmix:     cfg.VRF.PEmix,
		POff:      cfg.VRF.POff,
	})
	if err != nil {
		return fmt.Errorf("prismd: building role distribution: %w", err)
	}

	fmt.Printf("OFF: p=%.4f\n", cfg.VRF.POff)
	fmt.Printf("EMIX: p=%.4f\n", cfg.VRF.PEmix)
	for name, c := range committees {
		fmt.Printf("%s: range=%d replica=%d\n", name, c.Range, c.Replica)
	}
	return nil
}

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	configPath string
	debug      bool

	rootCmd = &cobra.Command{
		Use:   "prismd",
		Short: "PRISM mix network node",
		Long: `prismd runs one role (EMIX, a dropbox committee member, or a client
bootstrap helper) of a PRISM deployment: the MPC dropbox protocol, the
link-state routing substrate, the epoch/sortition controller, and ARK
broadcast, wired together per a YAML configuration file.`,
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run a PRISM node",
		Long: `Wires configuration, logging, metrics, and the protocol
components (routing, flooding, ARK store, dropbox store, epoch
controller) and runs until interrupted.

Without --peers this runs a single isolated node with no transport
peers — useful for exercising metrics and config loading. With --peers
it also joins an in-process transport mesh shared by every prismd
instance started with the same --peers set in this process, for local
multi-node demos; a real deployment supplies its own transport.Channel
implementation (TCP, QUIC, ...) in place of the in-memory one used here.`,
		RunE: runServe,
	}

	genesisCmd = &cobra.Command{
		Use:   "genesis-role",
		Short: "Print the role/committee partitioning a VRF distribution would assign",
		Long: `Builds the sortition distribution from the loaded configuration and
prints the committee boundaries, without running any network I/O —
useful for checking a deployment's vrf_* configuration before rollout.`,
		RunE: runGenesisRole,
	}

	self  string
	peers []string
	role  string
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "path to YAML configuration (defaults applied if omitted)")
	rootCmd.PersistentFlags().BoolVarP(&debug, "debug", "v", false, "enable debug-level logging")

	serveCmd.Flags().StringVar(&self, "self", "node-1", "this node's pseudonym")
	serveCmd.Flags().StringSliceVar(&peers, "peers", nil, "other node pseudonyms sharing this process's in-memory transport mesh")
	serveCmd.Flags().StringVar(&role, "role", "EMIX", "genesis role for this node (EMIX, OFF, or a DROPBOX_<range>_<replica> committee)")

	rootCmd.AddCommand(serveCmd, genesisCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "prismd: %v\n", err)
		os.Exit(1)
	}
}

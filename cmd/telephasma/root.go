package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// NewRootCmd creates the root command for Telephasma.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "telephasma",
		Short: "Social graph reconnaissance for messaging platforms",
		Long: `Telephasma maps hidden connections between messaging platform accounts.

Starting from a chat's member list or an explicit target set, it walks the
social graph breadth-first: bios are mined for linked accounts and channels,
and gift ledgers reveal who funds whom. Findings stream live over a
WebSocket and are recorded for later reporting.

The serve command starts the HTTP API; everything else happens through it.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	// Global flags that apply to all commands
	cmd.PersistentFlags().BoolP("verbose", "v", false, "Enable verbose logging")

	// Add subcommands
	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewVersionCmd())

	return cmd
}

// Execute runs the root command.
func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

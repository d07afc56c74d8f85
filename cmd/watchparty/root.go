package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var portOverride int

var rootCmd = &cobra.Command{
	Use:   "watchparty",
	Short: "watchparty runs shared video rooms with chat and peer signaling.",
	RunE: func(cmd *cobra.Command, args []string) error {
		return runServer(cmd.Context())
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.Flags().IntVarP(&portOverride, "port", "p", 0, "listen port (overrides PORT)")
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

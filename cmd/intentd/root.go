package main

import (
	"github.com/spf13/cobra"
)

const defaultConfigPath = "intentd.toml"

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "intentd",
		Short:         "Intent classification daemon",
		Long:          "intentd trains a keyword/type/location model and classifies utterances over TCP.\nIt speaks a length-prefixed JSON dialect and the legacy t:/q: text dialect on one port.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(
		newServeCmd(),
		newTrainCmd(),
		newQueryCmd(),
		newConfigCmd(),
	)
	return cmd
}

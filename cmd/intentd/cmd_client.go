package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/danmuck/intentctl/internal/client"
	"github.com/danmuck/intentctl/internal/protocol"
	"github.com/danmuck/intentctl/internal/server"
	"github.com/spf13/cobra"
)

type clientOptions struct {
	addr    string
	legacy  bool
	timeout time.Duration
}

func (o *clientOptions) bind(cmd *cobra.Command) {
	cmd.Flags().StringVar(&o.addr, "addr", server.DefaultConfig().Addr, "intentd address")
	cmd.Flags().BoolVar(&o.legacy, "legacy", false, "use the t:/q: text dialect")
	cmd.Flags().DurationVar(&o.timeout, "timeout", 5*time.Second, "per-request timeout")
}

func (o *clientOptions) client() *client.Client {
	return &client.Client{Addr: o.addr, Legacy: o.legacy, Timeout: o.timeout}
}

func newTrainCmd() *cobra.Command {
	var (
		opts      clientOptions
		keywords  []string
		types     []string
		locations []string
	)
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Replace the served model",
		Long:  "Send keyword, type and location vocabularies. The previous model is discarded.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			req := protocol.TrainRequest{Keywords: keywords, Types: types, Locations: locations}
			if err := opts.client().Train(cmd.Context(), req); err != nil {
				return fmt.Errorf("train: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "trained %d keywords, %d types, %d locations\n",
				len(keywords), len(types), len(locations))
			return nil
		},
	}
	opts.bind(cmd)
	cmd.Flags().StringSliceVarP(&keywords, "keyword", "k", nil, "keyword entity (repeatable or comma separated)")
	cmd.Flags().StringSliceVarP(&types, "type", "t", nil, "type entity (repeatable or comma separated)")
	cmd.Flags().StringSliceVarP(&locations, "location", "l", nil, "location entity (repeatable or comma separated)")
	return cmd
}

func newQueryCmd() *cobra.Command {
	var opts clientOptions
	cmd := &cobra.Command{
		Use:   "query <text...>",
		Short: "Classify an utterance",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, found, err := opts.client().Query(cmd.Context(), strings.Join(args, " "))
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			if !found {
				return fmt.Errorf("query: no intent matched")
			}
			out, err := json.Marshal(res)
			if err != nil {
				return fmt.Errorf("query: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return nil
		},
	}
	opts.bind(cmd)
	return cmd
}

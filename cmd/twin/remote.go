package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/twin-engine/internal/engine"
	"github.com/danielpatrickdp/twin-engine/internal/rpc"
)

// #region command

// newRemoteCmd drives a running `twin serve` over gRPC.
func newRemoteCmd(a *app) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "remote",
		Short: "Drive a running simulation server",
	}
	cmd.PersistentFlags().StringVar(&addr, "addr", "", "server address (overrides TWIN_GRPC_ADDR)")

	dial := func() (*rpc.Client, error) {
		target := a.cfg.GRPCAddr
		if addr != "" {
			target = addr
		}
		return rpc.Dial(target)
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "set <factor> <value>",
			Short: "Update one input on the server",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				v, err := strconv.ParseFloat(args[1], 64)
				if err != nil {
					return fmt.Errorf("not a number: %s", args[1])
				}
				c, err := dial()
				if err != nil {
					return err
				}
				defer c.Close()
				return c.SetInput(cmd.Context(), args[0], v)
			},
		},
		&cobra.Command{
			Use:   "run",
			Short: "Run a simulation and print the result",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				c, err := dial()
				if err != nil {
					return err
				}
				defer c.Close()
				res, err := c.Run(cmd.Context())
				if err != nil {
					return err
				}
				printBanner(res, cmd.OutOrStdout())
				return nil
			},
		},
		&cobra.Command{
			Use:   "state",
			Short: "Show the server's run state, inputs and last result",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				c, err := dial()
				if err != nil {
					return err
				}
				defer c.Close()
				snap, err := c.State(cmd.Context())
				if err != nil {
					return err
				}
				printState(snap, cmd.OutOrStdout())
				return nil
			},
		},
		&cobra.Command{
			Use:   "watch",
			Short: "Stream completed results until interrupted",
			Args:  cobra.NoArgs,
			RunE: func(cmd *cobra.Command, _ []string) error {
				c, err := dial()
				if err != nil {
					return err
				}
				defer c.Close()
				out := cmd.OutOrStdout()
				return c.Subscribe(cmd.Context(), func(res engine.Result) {
					printBanner(res, out)
				})
			},
		},
	)
	return cmd
}

// #endregion command

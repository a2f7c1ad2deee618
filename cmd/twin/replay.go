package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/twin-engine/internal/replay"
)

// #region command
func newReplayCmd(a *app) *cobra.Command {
	var verbose bool

	cmd := &cobra.Command{
		Use:   "replay <fixture.yaml>...",
		Short: "Replay scenario fixtures against the engine and report mismatches",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			h := replay.NewHarness(nil, a.logger)
			out := cmd.OutOrStdout()

			failed := 0
			for _, path := range args {
				f, err := replay.LoadFixture(path)
				if err != nil {
					return err
				}
				sum, err := h.Run(cmd.Context(), f)
				if err != nil {
					return fmt.Errorf("%s: %w", path, err)
				}
				printReplaySummary(out, path, sum, verbose)
				failed += sum.Failed
			}
			if failed > 0 {
				return fmt.Errorf("%d scenario(s) failed", failed)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&verbose, "verbose", "v", false, "print every scenario, not only failures")
	return cmd
}

// #endregion command

func printReplaySummary(out io.Writer, path string, sum replay.Summary, verbose bool) {
	fmt.Fprintf(out, "%s: %d/%d passed\n", path, sum.Passed, sum.Total)
	for _, r := range sum.Results {
		if r.Passed {
			if verbose {
				fmt.Fprintf(out, "  PASS %-32s impact=%+d %s\n", r.Name, r.Result.Impact, r.Result.Label)
			}
			continue
		}
		fmt.Fprintf(out, "  FAIL %s\n", r.Name)
		for _, msg := range r.Failures {
			fmt.Fprintf(out, "       %s\n", msg)
		}
	}
}

package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/twin-engine/internal/engine"
	"github.com/danielpatrickdp/twin-engine/internal/journal"
)

// #region command
func newReplCmd(a *app) *cobra.Command {
	var noJournal bool
	var delay time.Duration

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Adjust inputs and run simulations interactively",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !cmd.Flags().Changed("delay") {
				delay = a.cfg.RunDelay
			}
			ctrl, err := engine.New(engine.Options{Delay: delay, Logger: a.logger})
			if err != nil {
				return err
			}

			if !noJournal {
				store, err := journal.Open(a.cfg.DBPath)
				if err != nil {
					return fmt.Errorf("open journal: %w", err)
				}
				defer store.Close()
				defer ctrl.Subscribe(store.Subscriber())()
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Digital twin simulator ready.")
			fmt.Fprintf(out, "  Journal: %s | Delay: %s\n", journalLabel(noJournal, a.cfg.DBPath), delay)
			fmt.Fprintln(out, "Type 'help' for commands.")
			return runREPL(cmd.Context(), ctrl, cmd.InOrStdin(), out)
		},
	}
	cmd.Flags().BoolVar(&noJournal, "no-journal", false, "do not record runs")
	cmd.Flags().DurationVar(&delay, "delay", 0, "presentation delay per run (overrides TWIN_RUN_DELAY)")
	return cmd
}

func journalLabel(off bool, path string) string {
	if off {
		return "off"
	}
	return path
}

// #endregion command

// #region loop

// runREPL reads commands until EOF or quit.
func runREPL(ctx context.Context, ctrl *engine.Controller, in io.Reader, out io.Writer) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		fields := strings.Fields(line)
		switch strings.ToLower(fields[0]) {
		case "quit", "exit":
			return nil
		case "help":
			printHelp(out)
		case "factors":
			printFactors(ctrl, out)
		case "state":
			printState(ctrl.CurrentState(), out)
		case "set":
			if len(fields) != 3 {
				fmt.Fprintln(out, "usage: set <factor> <value>")
				continue
			}
			v, err := strconv.ParseFloat(fields[2], 64)
			if err != nil {
				fmt.Fprintf(out, "not a number: %s\n", fields[2])
				continue
			}
			if err := ctrl.SetInput(strings.ToLower(fields[1]), v); err != nil {
				if errors.Is(err, engine.ErrInvalidInput) {
					fmt.Fprintf(out, "rejected: %v\n", err)
					continue
				}
				return err
			}
		case "run":
			fmt.Fprintln(out, "running simulation...")
			res, err := ctrl.Run(ctx)
			if err != nil {
				return err
			}
			printBanner(res, out)
		default:
			fmt.Fprintf(out, "unknown command %q (try 'help')\n", fields[0])
		}
	}
	return scanner.Err()
}

// #endregion loop

// #region output

// printBanner prints the status banner for a completed run.
func printBanner(res engine.Result, out io.Writer) {
	fmt.Fprintf(out, "[%s] %s  impact=%+d  (run %s)\n",
		strings.ToUpper(string(res.Status)), res.Label, res.Impact, shortID(res.RunID))
}

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "  set <factor> <value>   update one input")
	fmt.Fprintln(out, "  run                    run a simulation over the current inputs")
	fmt.Fprintln(out, "  state                  show run state, inputs and last result")
	fmt.Fprintln(out, "  factors                list factors, domains and scoring bands")
	fmt.Fprintln(out, "  quit                   exit")
}

func printFactors(ctrl *engine.Controller, out io.Writer) {
	m := ctrl.Model()
	for _, name := range m.Names() {
		f, _ := m.Lookup(name)
		fmt.Fprintf(out, "  %-9s %-24s %s\n", f.Name, f.Domain.String(), f.Unit)
		for _, b := range f.Bands {
			fmt.Fprintf(out, "      %-20s %+d\n", b.Range.String(), b.Points)
		}
	}
}

func printState(snap engine.Snapshot, out io.Writer) {
	fmt.Fprintf(out, "  state: %s\n", snap.State)
	for _, name := range sortedNames(snap.Inputs) {
		fmt.Fprintf(out, "  %-9s %g\n", name, snap.Inputs[name])
	}
	if snap.Result == nil {
		return
	}
	r := snap.Result
	fmt.Fprintf(out, "  last: %s (%s) impact=%+d\n", r.Label, r.Status, r.Impact)
	for _, c := range r.Contributions {
		fmt.Fprintf(out, "    %-9s %8g → %+d\n", c.Factor, c.Value, c.Points)
	}
}

func sortedNames(m map[string]float64) []string {
	names := make([]string, 0, len(m))
	for k := range m {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output

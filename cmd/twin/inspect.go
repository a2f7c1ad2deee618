package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danielpatrickdp/twin-engine/internal/classify"
	"github.com/danielpatrickdp/twin-engine/internal/journal"
)

// #region command

func newInspectCmd(a *app) *cobra.Command {
	var last int
	var runID string
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "List or show recorded runs from the journal",
		RunE: func(cmd *cobra.Command, _ []string) error {
			store, err := journal.Open(a.cfg.DBPath)
			if err != nil {
				return fmt.Errorf("open journal: %w", err)
			}
			defer store.Close()

			out := cmd.OutOrStdout()
			if runID != "" {
				return runDetailMode(store, runID, jsonOut, out)
			}
			return runListMode(store, last, jsonOut, out)
		},
	}
	cmd.Flags().IntVar(&last, "last", 20, "show N most recent runs")
	cmd.Flags().StringVar(&runID, "run", "", "show single run detail")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "output as JSON instead of table")
	return cmd
}

// #endregion command

// #region list-mode

type listRow struct {
	RunID       string `json:"run_id"`
	Impact      int    `json:"impact"`
	Label       string `json:"label"`
	Status      string `json:"status"`
	CompletedAt string `json:"completed_at"`
}

func runListMode(store *journal.Store, last int, jsonOut bool, out io.Writer) error {
	entries, err := store.List(last)
	if err != nil {
		return err
	}
	sum, err := store.Summarize()
	if err != nil {
		return err
	}

	// store returns newest first; show chronologically
	rows := make([]listRow, len(entries))
	for i, e := range entries {
		rows[len(entries)-1-i] = listRow{
			RunID:       e.RunID,
			Impact:      e.Impact,
			Label:       e.Label,
			Status:      string(e.Status),
			CompletedAt: e.CompletedAt.Format("2006-01-02T15:04:05Z"),
		}
	}

	if jsonOut {
		return printJSON(out, map[string]any{"runs": rows, "summary": summaryJSON(sum)})
	}
	if len(rows) == 0 {
		fmt.Fprintln(out, "no runs recorded")
		return nil
	}

	fmt.Fprintf(out, "%-10s  %6s  %-17s  %-8s  %s\n", "Run", "Impact", "Label", "Status", "Time")
	fmt.Fprintf(out, "%s\n", strings.Repeat("-", 66))
	for _, r := range rows {
		fmt.Fprintf(out, "%-10s  %+6d  %-17s  %-8s  %s\n", shortID(r.RunID), r.Impact, r.Label, r.Status, r.CompletedAt)
	}
	fmt.Fprintf(out, "\n%d runs: nominal=%d warning=%d critical=%d  impact min=%d max=%d avg=%.1f\n",
		sum.Total,
		sum.ByStatus[classify.StatusNominal], sum.ByStatus[classify.StatusWarning], sum.ByStatus[classify.StatusCritical],
		sum.MinImpact, sum.MaxImpact, sum.AvgImpact)
	return nil
}

func summaryJSON(sum journal.Summary) map[string]any {
	byStatus := make(map[string]int, len(sum.ByStatus))
	for k, v := range sum.ByStatus {
		byStatus[string(k)] = v
	}
	return map[string]any{
		"total":      sum.Total,
		"by_status":  byStatus,
		"min_impact": sum.MinImpact,
		"max_impact": sum.MaxImpact,
		"avg_impact": sum.AvgImpact,
	}
}

// #endregion list-mode

// #region detail-mode

func runDetailMode(store *journal.Store, runID string, jsonOut bool, out io.Writer) error {
	e, err := store.Get(runID)
	if err != nil {
		return err
	}
	if jsonOut {
		return printJSON(out, e)
	}

	fmt.Fprintf(out, "Run:       %s\n", e.RunID)
	fmt.Fprintf(out, "Result:    %s (%s)\n", e.Label, e.Status)
	fmt.Fprintf(out, "Impact:    %+d\n", e.Impact)
	fmt.Fprintf(out, "Started:   %s\n", e.StartedAt.Format("2006-01-02T15:04:05.000Z"))
	fmt.Fprintf(out, "Completed: %s\n", e.CompletedAt.Format("2006-01-02T15:04:05.000Z"))
	fmt.Fprintln(out, "Contributions:")
	for _, c := range e.Contributions {
		fmt.Fprintf(out, "  %-9s %8g → %+d\n", c.Factor, c.Value, c.Points)
	}
	return nil
}

// #endregion detail-mode

// #region helpers
func printJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// #endregion helpers

package main

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/alecthomas/kong"
)

// HistoryCmd shows previous exports
type HistoryCmd struct {
	RunID  string `arg:"" optional:"" name:"run" help:"Show the conversations of one run"`
	Limit  int    `short:"n" help:"Number of runs to show" default:"20"`
	Format string `help:"Output format (table, json)" default:"table" enum:"table,json"`
}

// Run executes the history command
func (c *HistoryCmd) Run(kctx *kong.Context, cli *CLI) error {
	cfg, logger, err := setup(cli)
	if err != nil {
		return err
	}
	// history needs no session
	a, err := newOfflineApp(cfg, logger)
	if err != nil {
		return err
	}
	defer a.Close()
	ctx := context.Background()

	if c.RunID != "" {
		items, err := a.RunItems(ctx, c.RunID)
		if err != nil {
			return err
		}
		if c.Format == "json" {
			return writeJSON(kctx.Stdout, items)
		}
		w := tabwriter.NewWriter(kctx.Stdout, 0, 0, 2, ' ', 0)
		defer w.Flush()
		fmt.Fprintln(w, "CONVERSATION\tNAME\tFILES\tEXPORTED")
		for _, it := range items {
			fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", it.ConversationID, it.Name, it.Files, formatDate(it.ExportedAt))
		}
		return nil
	}

	runs, err := a.History(ctx, c.Limit)
	if err != nil {
		return err
	}
	if c.Format == "json" {
		return writeJSON(kctx.Stdout, runs)
	}
	w := tabwriter.NewWriter(kctx.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "RUN\tSTARTED\tSCOPE\tMODE\tDONE\tFILES\tFAILED\tDESTINATION")
	for _, r := range runs {
		done := fmt.Sprintf("%d/%d", r.Completed, r.Total)
		if r.Cancelled {
			done += " (cancelled)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ID, formatDate(r.StartedAt), r.Scope, r.Mode, done, r.ExportedFiles, len(r.FailedItems), r.Destination)
	}
	return nil
}

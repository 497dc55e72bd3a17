package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/alecthomas/kong"

	"github.com/elee1766/claudexport/src/convo"
)

// ListCmd lists what can be exported
type ListCmd struct {
	Projects      ListProjectsCmd      `cmd:"" help:"List your projects"`
	Conversations ListConversationsCmd `cmd:"" help:"List the conversations of a project"`
	Recents       ListRecentsCmd       `cmd:"" help:"List recent conversations"`
}

// ListProjectsCmd lists projects
type ListProjectsCmd struct {
	Format string `help:"Output format (table, json)" default:"table" enum:"table,json"`
}

// Run executes the list projects command
func (c *ListProjectsCmd) Run(kctx *kong.Context, cli *CLI) error {
	a, err := newApp(cli)
	if err != nil {
		return err
	}
	defer a.Close()

	groups, err := a.Client.ListGroups(context.Background())
	if err != nil {
		return err
	}
	if c.Format == "json" {
		return writeJSON(kctx.Stdout, groups)
	}

	w := tabwriter.NewWriter(kctx.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "ID\tNAME\tUPDATED")
	for _, g := range groups {
		fmt.Fprintf(w, "%s\t%s\t%s\n", g.UUID, g.Name, formatDate(g.UpdatedAt))
	}
	return nil
}

// ListConversationsCmd lists the conversations of one project
type ListConversationsCmd struct {
	Project string `arg:"" help:"Project id"`
	Format  string `help:"Output format (table, json)" default:"table" enum:"table,json"`
}

// Run executes the list conversations command
func (c *ListConversationsCmd) Run(kctx *kong.Context, cli *CLI) error {
	a, err := newApp(cli)
	if err != nil {
		return err
	}
	defer a.Close()

	leaves, err := a.Client.ListLeaves(context.Background(), c.Project)
	if err != nil {
		return err
	}
	return printLeaves(kctx.Stdout, leaves, c.Format)
}

// ListRecentsCmd lists recent conversations
type ListRecentsCmd struct {
	Format string `help:"Output format (table, json)" default:"table" enum:"table,json"`
}

// Run executes the list recents command
func (c *ListRecentsCmd) Run(kctx *kong.Context, cli *CLI) error {
	a, err := newApp(cli)
	if err != nil {
		return err
	}
	defer a.Close()

	leaves, err := a.Client.ListUngroupedItems(context.Background())
	if err != nil {
		return err
	}
	return printLeaves(kctx.Stdout, leaves, c.Format)
}

func printLeaves(out io.Writer, leaves []convo.LeafSummary, format string) error {
	if format == "json" {
		return writeJSON(out, leaves)
	}
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	defer w.Flush()
	fmt.Fprintln(w, "ID\tNAME\tPROJECT\tUPDATED")
	for _, l := range leaves {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", l.UUID, l.Name, l.ProjectUUID, formatDate(l.UpdatedAt))
	}
	return nil
}

func writeJSON(out io.Writer, v interface{}) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}

package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/alecthomas/kong"

	"github.com/elee1766/claudexport/src/app"
	"github.com/elee1766/claudexport/src/config"
	"github.com/elee1766/claudexport/src/exporter"
	"github.com/elee1766/claudexport/src/scope"
	"github.com/elee1766/claudexport/src/theme"
)

// ExportCmd exports conversations
type ExportCmd struct {
	Location string   `arg:"" optional:"" default:"/projects" help:"Claude URL or path: /projects, /project/<id>, /recents or /chat/<id>"`
	Project  []string `short:"p" help:"Limit an all-projects export to these project ids or names"`

	Mode            string `short:"m" help:"Artifact versions: final, all, latest_per_message, none"`
	Artifacts       string `short:"a" help:"Artifact policy: embed, files, both"`
	Folders         string `help:"Folder policy: group, none, project"`
	Output          string `short:"o" type:"path" help:"Output directory"`
	Zip             bool   `short:"z" help:"Write a zip archive"`
	PerConversation bool   `help:"Give each conversation its own folder"`
	IncludeCanceled bool   `help:"Keep artifact versions that were interrupted"`
	SkipUnchanged   bool   `help:"Skip conversations not updated since their last export"`
	Metadata        bool   `help:"Prepend a metadata header to markdown and text artifacts"`
	Diffs           bool   `help:"Embed later versions as diffs in mode all"`
}

func (e *ExportCmd) apply(cfg *config.Config) error {
	x := &cfg.Export
	if e.Mode != "" {
		x.Mode = e.Mode
	}
	if e.Artifacts != "" {
		x.ArtifactPolicy = e.Artifacts
	}
	if e.Folders != "" {
		x.FolderPolicy = e.Folders
	}
	if e.Output != "" {
		x.OutputDir = e.Output
	}
	x.ForceArchive = x.ForceArchive || e.Zip
	x.PerLeafSubfolder = x.PerLeafSubfolder || e.PerConversation
	x.ExcludeCanceled = x.ExcludeCanceled && !e.IncludeCanceled
	x.SkipUnchanged = x.SkipUnchanged || e.SkipUnchanged
	x.IncludeArtifactMetadata = x.IncludeArtifactMetadata || e.Metadata
	x.ShowVersionDiffs = x.ShowVersionDiffs || e.Diffs
	return config.NewValidator().Validate(cfg)
}

// Run executes the export command
func (e *ExportCmd) Run(kctx *kong.Context, cli *CLI) error {
	sc := scope.Resolve(e.Location)
	if sc.Kind == scope.Unrecognized {
		return fmt.Errorf("%w: %s", app.ErrUnsupportedScope, e.Location)
	}

	a, err := newApp(cli, e.apply)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	flag := &exporter.CancelFlag{}
	stop := watchInterrupts(flag, cancel)
	defer stop()

	progress := newProgressLine(os.Stderr)
	res, err := a.Export(ctx, app.ExportRequest{
		Scope:    sc,
		Projects: e.Project,
		Progress: progress.Update,
		Cancel:   flag,
	})
	progress.Done()
	if err != nil {
		return err
	}

	printSummary(kctx.Stdout, sc, res)

	switch {
	case res.Job.Cancelled:
		return errInterrupted
	case len(res.Job.Errors) > 0:
		return fmt.Errorf("%w: %d of %d", errPartial, len(res.Job.Errors), res.Job.Total)
	}
	return nil
}

// watchInterrupts stops after the current conversation on the first interrupt and aborts on the
// second.
func watchInterrupts(flag *exporter.CancelFlag, cancel context.CancelFunc) func() {
	sigs := make(chan os.Signal, 2)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)
	done := make(chan struct{})

	go func() {
		select {
		case <-sigs:
			flag.Cancel()
			fmt.Fprintln(os.Stderr, "\nStopping after the current conversation, interrupt again to abort")
		case <-done:
			return
		}
		select {
		case <-sigs:
			cancel()
		case <-done:
		}
	}()

	return func() {
		signal.Stop(sigs)
		close(done)
	}
}

func printSummary(w io.Writer, sc scope.Scope, res *app.ExportResult) {
	s := theme.Current
	job := res.Job

	status := s.Success.Render("Export complete")
	switch {
	case job.Cancelled:
		status = s.Warning.Render("Export cancelled")
	case len(job.Errors) > 0:
		status = s.Warning.Render("Export finished with errors")
	}

	rows := []string{
		status,
		s.Row("Scope", sc.Title),
		s.Row("Conversations", fmt.Sprintf("%d of %d", job.Completed, job.Total)),
		s.Row("Files", fmt.Sprint(job.ExportedFileCount)),
	}
	if job.Skipped > 0 {
		rows = append(rows, s.Row("Unchanged", fmt.Sprint(job.Skipped)))
	}
	if len(job.Errors) > 0 {
		rows = append(rows, s.Row("Failed", s.Error.Render(fmt.Sprint(len(job.Errors)))))
	}
	if res.Output != "" {
		rows = append(rows, s.Row("Output", res.Output))
	}

	body := ""
	for i, r := range rows {
		if i > 0 {
			body += "\n"
		}
		body += r
	}
	fmt.Fprintln(w, s.Box.Render(body))
	fmt.Fprintln(w, s.Muted.Render(job.Summary()))

	for _, e := range job.Errors {
		name := e.Name
		if name == "" {
			name = e.ItemID
		}
		fmt.Fprintf(w, "%s %s: %s\n", s.Error.Render("✗"), name, e.Message)
	}
}

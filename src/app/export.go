package app

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/elee1766/claudexport/src/convo"
	"github.com/elee1766/claudexport/src/exporter"
	"github.com/elee1766/claudexport/src/resolver"
	"github.com/elee1766/claudexport/src/scope"
	"github.com/elee1766/claudexport/src/selection"
	"github.com/elee1766/claudexport/src/sink"
)

// pseudoGroupName labels the pseudo group used for recents and single conversations.
const pseudoGroupName = "Conversations"

// ExportRequest describes one export.
type ExportRequest struct {
	Scope scope.Scope
	// Projects narrows an all-projects export to these ids or names.
	Projects []string
	Progress exporter.ProgressFunc
	Cancel   *exporter.CancelFlag
}

// ExportResult is the outcome of Export.
type ExportResult struct {
	Job *exporter.Job
	// Output is the directory or archive written, empty when nothing was written.
	Output string
}

// Export resolves the scope to a selection, exports it and finalizes the sink.
func (a *App) Export(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	logger := a.Logger.With("scope", req.Scope.Kind.String())

	if _, err := a.Ready(ctx); err != nil {
		return nil, err
	}

	groups, folder, err := a.Select(ctx, req.Scope, req.Projects)
	if err != nil {
		return nil, err
	}

	opts, err := a.exportOptions(req, folder)
	if err != nil {
		return nil, err
	}

	out, err := a.openSink(ctx)
	if err != nil {
		return nil, err
	}
	opts.Destination = out.destination

	deps := exporter.Deps{
		Provider: a.Client,
		Renderer: a.Renderer,
		Sink:     out.sink,
		Logger:   a.Logger,
	}
	if a.Store != nil {
		deps.History = a.Store
	}
	exp, err := exporter.New(deps, opts)
	if err != nil {
		return nil, err
	}

	job, err := exp.Run(ctx, groups)
	if err != nil {
		return nil, err
	}

	result := &ExportResult{Job: job}
	if job.ExportedFileCount == 0 {
		logger.Info("nothing written", "summary", job.Summary())
		return result, nil
	}

	// a cancelled run still keeps what it wrote
	finalizeCtx := context.WithoutCancel(ctx)
	result.Output, err = out.finalize(finalizeCtx, a.archiveName(job))
	if err != nil {
		return result, fmt.Errorf("failed to finalize export: %w", err)
	}
	logger.Info("export finished", "summary", job.Summary(), "output", result.Output)
	return result, nil
}

// Select turns a scope into the groups and leaves to export, along with the folder policy the
// scope implies.
func (a *App) Select(ctx context.Context, sc scope.Scope, projects []string) ([]selection.GroupSelection, exporter.FolderPolicy, error) {
	switch sc.Kind {
	case scope.AllGroups:
		sel, err := a.selectProjects(ctx, projects)
		return sel, exporter.FolderGroup, err

	case scope.SingleGroup:
		sel, err := a.selectProjects(ctx, []string{sc.ID})
		return sel, exporter.FolderGroup, err

	case scope.AllUngroupedItems:
		leaves, err := a.Client.ListUngroupedItems(ctx)
		if err != nil {
			return nil, "", err
		}
		sel, err := a.selectPreloaded(ctx, leaves)
		return sel, exporter.FolderProject, err

	case scope.SingleItem:
		sel, err := a.selectPreloaded(ctx, []convo.LeafSummary{{UUID: sc.ID}})
		return sel, exporter.FolderProject, err

	default:
		return nil, "", fmt.Errorf("%w: %s", ErrUnsupportedScope, sc.Title)
	}
}

// selectProjects selects every conversation of the named projects, or of all projects when
// names is empty. Projects that fail to list are logged and exported as empty.
func (a *App) selectProjects(ctx context.Context, names []string) ([]selection.GroupSelection, error) {
	all, err := a.Client.ListGroups(ctx)
	if err != nil {
		return nil, err
	}

	groups := all
	if len(names) > 0 {
		groups, err = matchGroups(all, names)
		if err != nil {
			return nil, err
		}
	}

	state := selection.New(groups, a.Client, a.Logger)
	if err := state.SelectAllGroups(ctx); err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		a.Logger.Warn("some projects could not be listed", "error", err)
	}
	return state.ExportSelection(), nil
}

// selectPreloaded selects leaves that are already known, under a single pseudo group.
func (a *App) selectPreloaded(ctx context.Context, leaves []convo.LeafSummary) ([]selection.GroupSelection, error) {
	group := convo.Group{Name: pseudoGroupName}
	state := selection.New([]convo.Group{group}, a.Client, a.Logger)
	if err := state.Preload(group.UUID, leaves); err != nil {
		return nil, err
	}
	if err := state.ToggleGroup(ctx, group.UUID, true); err != nil {
		return nil, err
	}
	return state.ExportSelection(), nil
}

func matchGroups(all []convo.Group, names []string) ([]convo.Group, error) {
	var out []convo.Group
	for _, name := range names {
		found := false
		for _, g := range all {
			if g.UUID == name || strings.EqualFold(g.Name, name) {
				out = append(out, g)
				found = true
				break
			}
		}
		if !found {
			return nil, fmt.Errorf("%w: %s", ErrProjectNotFound, name)
		}
	}
	return out, nil
}

func (a *App) exportOptions(req ExportRequest, scopeFolder exporter.FolderPolicy) (exporter.Options, error) {
	cfg := a.Config.Export

	mode, err := resolver.ParseMode(cfg.Mode)
	if err != nil {
		return exporter.Options{}, err
	}
	policy, err := exporter.ParseArtifactPolicy(cfg.ArtifactPolicy)
	if err != nil {
		return exporter.Options{}, err
	}
	folder := scopeFolder
	if cfg.FolderPolicy != "" {
		if folder, err = exporter.ParseFolderPolicy(cfg.FolderPolicy); err != nil {
			return exporter.Options{}, err
		}
	}

	scopeLabel := req.Scope.Kind.String()
	if req.Scope.ID != "" {
		scopeLabel += ":" + req.Scope.ID
	}

	return exporter.Options{
		Mode:                mode,
		ArtifactPolicy:      policy,
		ExcludeCanceled:     cfg.ExcludeCanceled,
		PostProcessMarkdown: cfg.PostProcessMarkdown,
		PerLeafSubfolder:    cfg.PerLeafSubfolder,
		FolderPolicy:        folder,
		Delay:               cfg.RequestDelay,
		SkipUnchanged:       cfg.SkipUnchanged && a.Store != nil,
		Scope:               scopeLabel,
		Progress:            req.Progress,
		Cancel:              req.Cancel,
	}, nil
}

type output struct {
	sink        sink.Sink
	destination string
	finalize    func(ctx context.Context, name string) (string, error)
}

func (a *App) openSink(ctx context.Context) (*output, error) {
	cfg := a.Config.Export

	if cfg.ForceArchive {
		zs := sink.NewZipSink(a.fs, cfg.OutputDir, a.Logger)
		return &output{
			sink:        zs,
			destination: cfg.OutputDir,
			finalize: func(ctx context.Context, name string) (string, error) {
				path, err := zs.FinalizePath(ctx, name)
				if errors.Is(err, sink.ErrEmptyArchive) {
					return "", nil
				}
				return path, err
			},
		}, nil
	}

	ds := sink.NewDirSink(a.fs, cfg.OutputDir, a.Logger)
	if cfg.MinFreeBytes > 0 {
		if err := ds.Preflight(ctx, cfg.MinFreeBytes); err != nil {
			return nil, err
		}
	}
	return &output{
		sink:        ds,
		destination: cfg.OutputDir,
		finalize: func(ctx context.Context, name string) (string, error) {
			return cfg.OutputDir, ds.Finalize(ctx, name)
		},
	}, nil
}

func (a *App) archiveName(job *exporter.Job) string {
	return filepath.Base(a.Config.Export.ArchiveName) + "_" + job.StartedAt.Format("2006-01-02_15-04-05")
}

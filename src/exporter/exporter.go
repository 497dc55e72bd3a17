// Package exporter walks a selection of conversations, fetches each one, resolves its artifact
// versions and writes the resulting files to a sink. A failed conversation never stops the run.
package exporter

import (
	"context"
	"fmt"
	"log/slog"
	"path"
	"time"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/elee1766/claudexport/src/convo"
	"github.com/elee1766/claudexport/src/render"
	"github.com/elee1766/claudexport/src/resolver"
	"github.com/elee1766/claudexport/src/selection"
	"github.com/elee1766/claudexport/src/sink"
	"github.com/elee1766/claudexport/src/storage"
)

// Provider fetches conversation details.
type Provider interface {
	FetchDetail(ctx context.Context, leafID string) (*convo.Conversation, error)
}

// Renderer formats conversations and artifacts. *render.Renderer implements it.
type Renderer interface {
	RenderPrimary(conv *convo.Conversation, set *resolver.VersionSet, branches []resolver.Branch, mode resolver.Mode) string
	RenderArtifactBody(inv resolver.Invocation, postProcess bool) string
	PrimaryFilename(conv *convo.Conversation) string
	ArtifactFilename(inv resolver.Invocation, conv *convo.Conversation, branchLabel string, isMain bool, artifactID string) string
	MetadataHeader(inv resolver.Invocation, artifactID, branchLabel string, isMain bool) string
	ConversationFolder(conv *convo.Conversation) string
}

// History records runs and remembers what was exported. *storage.DB implements it.
type History interface {
	StartRun(ctx context.Context, run *storage.ExportRun) error
	FinishRun(ctx context.Context, run *storage.ExportRun) error
	RecordItem(ctx context.Context, item *storage.ExportedItem) error
	LastExport(ctx context.Context, conversationID string) (*storage.ExportedItem, error)
}

// Deps are the collaborators of an exporter. History and Logger are optional.
type Deps struct {
	Provider Provider
	Renderer Renderer
	Sink     sink.Sink
	History  History
	Logger   *slog.Logger
}

// Job is the record of one run.
type Job struct {
	ID                string
	Total             int
	Completed         int
	ExportedFileCount int
	// Exported counts conversations written without error.
	Exported   int
	Skipped    int
	Groups     int
	Cancelled  bool
	Errors     []ItemError
	StartedAt  time.Time
	FinishedAt time.Time
}

// Summary is the human readable outcome of the job.
func (j *Job) Summary() string {
	s := fmt.Sprintf("Exported %d files from %d conversations across %d projects", j.ExportedFileCount, j.Exported, j.Groups)
	if j.Skipped > 0 {
		s += fmt.Sprintf(", %d unchanged skipped", j.Skipped)
	}
	if len(j.Errors) > 0 {
		s += fmt.Sprintf(", %d failed", len(j.Errors))
	}
	if j.Cancelled {
		s += " (cancelled)"
	}
	return s
}

// Exporter runs exports. An Exporter may be reused for several runs, one at a time.
type Exporter struct {
	deps   Deps
	opts   Options
	logger *slog.Logger
}

// New creates an exporter.
func New(deps Deps, opts Options) (*Exporter, error) {
	switch {
	case deps.Provider == nil:
		return nil, fmt.Errorf("%w: provider", ErrMissingDependency)
	case deps.Renderer == nil:
		return nil, fmt.Errorf("%w: renderer", ErrMissingDependency)
	case deps.Sink == nil:
		return nil, fmt.Errorf("%w: sink", ErrMissingDependency)
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{
		deps:   deps,
		opts:   opts.withDefaults(),
		logger: logger.With("component", "exporter"),
	}, nil
}

// Run exports every selected conversation in selection order. It returns ErrEmptySelection when
// nothing is selected; every other failure is recorded in the job.
func (e *Exporter) Run(ctx context.Context, groups []selection.GroupSelection) (*Job, error) {
	total := 0
	for _, g := range groups {
		total += len(g.Leaves)
	}
	if total == 0 {
		return nil, ErrEmptySelection
	}

	job := &Job{
		ID:        uuid.New().String(),
		Total:     total,
		StartedAt: time.Now(),
	}
	logger := e.logger.With("job", job.ID)
	logger.Info("starting export", "conversations", total, "groups", len(groups), "mode", e.opts.Mode, "policy", e.opts.ArtifactPolicy)

	run := e.startRun(ctx, job, logger)

	var limiter *rate.Limiter
	if e.opts.Delay > 0 {
		limiter = rate.NewLimiter(rate.Every(e.opts.Delay), 1)
	}

loop:
	for _, g := range groups {
		if len(g.Leaves) > 0 {
			job.Groups++
		}
		for _, leaf := range g.Leaves {
			if e.stopRequested(ctx) {
				job.Cancelled = true
				break loop
			}

			if e.unchanged(ctx, leaf, logger) {
				job.Skipped++
				job.Completed++
				e.progress(job, g.Group, leaf, "Skipping unchanged conversation")
				continue
			}

			if limiter != nil {
				if err := pace(ctx, limiter); err != nil {
					job.Cancelled = true
					break loop
				}
				if e.stopRequested(ctx) {
					job.Cancelled = true
					break loop
				}
			}

			conv, written, err := e.exportLeaf(ctx, g.Group, leaf)
			job.ExportedFileCount += written
			if err != nil {
				if ctx.Err() != nil {
					// aborted mid-conversation; the leaf is neither done nor failed
					job.Cancelled = true
					break loop
				}
				logger.Warn("failed to export conversation", "conversation", leaf.UUID, "name", leaf.Name, "files", written, "error", err)
				job.Errors = append(job.Errors, ItemError{ItemID: leaf.UUID, Name: leaf.Name, Message: err.Error(), Err: err})
			} else {
				job.Exported++
				if run != nil {
					e.recordItem(ctx, g.Group, leaf, conv, run.ID, written)
				}
			}

			job.Completed++
			e.progress(job, g.Group, leaf, "Exporting conversation")
		}
	}

	job.FinishedAt = time.Now()
	e.finishRun(job, run, logger)

	logger.Info("export finished",
		"completed", job.Completed,
		"total", job.Total,
		"files", job.ExportedFileCount,
		"skipped", job.Skipped,
		"failed", len(job.Errors),
		"cancelled", job.Cancelled,
		"duration", job.FinishedAt.Sub(job.StartedAt),
	)
	return job, nil
}

// pace waits for the limiter's next slot. Unlike rate.Limiter.Wait it does not give up early
// when the slot lies past the context deadline; only a done context stops it.
func pace(ctx context.Context, limiter *rate.Limiter) error {
	r := limiter.Reserve()
	delay := r.Delay()
	if delay <= 0 {
		return nil
	}
	t := time.NewTimer(delay)
	defer t.Stop()
	select {
	case <-ctx.Done():
		r.Cancel()
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func (e *Exporter) stopRequested(ctx context.Context) bool {
	return e.opts.Cancel.Cancelled() || ctx.Err() != nil
}

func (e *Exporter) progress(job *Job, group convo.Group, leaf convo.LeafSummary, verb string) {
	if e.opts.Progress == nil {
		return
	}
	text := fmt.Sprintf("%s %d/%d", verb, job.Completed, job.Total)
	detail := "Chat: " + leaf.Name
	if group.Name != "" {
		detail = "Project: " + group.Name + " | " + detail
	}
	e.opts.Progress(job.Completed, job.Total, text, detail)
}

// exportLeaf writes one conversation and returns the number of files written, which may be
// non-zero even when an error is returned.
func (e *Exporter) exportLeaf(ctx context.Context, group convo.Group, leaf convo.LeafSummary) (*convo.Conversation, int, error) {
	conv, err := e.deps.Provider.FetchDetail(ctx, leaf.UUID)
	if err != nil {
		return nil, 0, err
	}
	if conv == nil {
		return nil, 0, ErrNoConversation
	}
	if conv.UUID == "" {
		conv.UUID = leaf.UUID
	}
	if conv.Name == "" {
		conv.Name = leaf.Name
	}

	var ropts resolver.Options
	if e.opts.ExcludeCanceled {
		ropts.Filter = resolver.ExcludeCanceled()
	}
	set, branches := resolver.Resolve(conv, e.opts.Mode, ropts)

	dir := e.folder(group, conv)
	if e.opts.PerLeafSubfolder {
		dir = path.Join(dir, e.deps.Renderer.ConversationFolder(conv))
	}

	written := 0
	primary := e.deps.Renderer.RenderPrimary(conv, set, branches, e.opts.primaryMode())
	if err := e.deps.Sink.Write(ctx, path.Join(dir, e.deps.Renderer.PrimaryFilename(conv)), primary); err != nil {
		return conv, written, err
	}
	written++

	if e.opts.separateFiles() {
		for _, branchID := range set.Branches() {
			branch, ok := resolver.FindBranch(branches, branchID)
			if !ok {
				continue
			}
			label := branch.Label()
			for _, artifactID := range set.ArtifactIDs(branchID) {
				for _, inv := range set.Versions(branchID, artifactID) {
					name := e.deps.Renderer.ArtifactFilename(inv, conv, label, branch.IsMain, artifactID)
					content := e.deps.Renderer.RenderArtifactBody(inv, e.opts.PostProcessMarkdown)
					if header := e.deps.Renderer.MetadataHeader(inv, artifactID, label, branch.IsMain); header != "" {
						content = header + "\n" + content
					}
					if err := e.deps.Sink.Write(ctx, path.Join(dir, name), content); err != nil {
						return conv, written, err
					}
					written++
				}
			}
		}
	}

	return conv, written, nil
}

func (e *Exporter) folder(group convo.Group, conv *convo.Conversation) string {
	switch e.opts.FolderPolicy {
	case FolderGroup:
		return render.SanitizeFileName(group.Name)
	case FolderProject:
		return render.SanitizeFileName(conv.ProjectName())
	default:
		return ""
	}
}

// unchanged reports whether leaf was exported before and has not been updated since.
func (e *Exporter) unchanged(ctx context.Context, leaf convo.LeafSummary, logger *slog.Logger) bool {
	if !e.opts.SkipUnchanged || e.deps.History == nil || leaf.UpdatedAt.IsZero() {
		return false
	}
	prev, err := e.deps.History.LastExport(ctx, leaf.UUID)
	if err != nil {
		logger.Warn("failed to read export history", "conversation", leaf.UUID, "error", err)
		return false
	}
	return prev != nil && !leaf.UpdatedAt.After(prev.ConversationUpdatedAt)
}

func (e *Exporter) startRun(ctx context.Context, job *Job, logger *slog.Logger) *storage.ExportRun {
	if e.deps.History == nil {
		return nil
	}
	run := &storage.ExportRun{
		ID:             job.ID,
		Scope:          e.opts.Scope,
		Mode:           string(e.opts.Mode),
		ArtifactPolicy: string(e.opts.ArtifactPolicy),
		Destination:    e.opts.Destination,
		Total:          job.Total,
		StartedAt:      job.StartedAt,
	}
	if err := e.deps.History.StartRun(ctx, run); err != nil {
		logger.Warn("failed to record export run, history disabled for this run", "error", err)
		return nil
	}
	return run
}

func (e *Exporter) recordItem(ctx context.Context, group convo.Group, leaf convo.LeafSummary, conv *convo.Conversation, runID string, files int) {
	if e.deps.History == nil {
		return
	}
	updated := leaf.UpdatedAt
	if updated.IsZero() {
		updated = conv.UpdatedAt
	}
	item := &storage.ExportedItem{
		ConversationID:        leaf.UUID,
		RunID:                 runID,
		GroupID:               group.UUID,
		Name:                  conv.Name,
		Files:                 files,
		ConversationUpdatedAt: updated,
	}
	if err := e.deps.History.RecordItem(ctx, item); err != nil {
		e.logger.Warn("failed to record exported conversation", "conversation", leaf.UUID, "error", err)
	}
}

func (e *Exporter) finishRun(job *Job, run *storage.ExportRun, logger *slog.Logger) {
	if run == nil {
		return
	}
	failed := make(storage.JSONStringArray, 0, len(job.Errors))
	for _, ie := range job.Errors {
		failed = append(failed, ie.ItemID)
	}
	run.Total = job.Total
	run.Completed = job.Completed
	run.ExportedFiles = job.ExportedFileCount
	run.Skipped = job.Skipped
	run.FailedItems = failed
	run.Cancelled = job.Cancelled
	finished := job.FinishedAt
	run.FinishedAt = &finished

	// the run context may already be cancelled; the summary is still worth keeping
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := e.deps.History.FinishRun(ctx, run); err != nil {
		logger.Warn("failed to record export run", "error", err)
	}
}

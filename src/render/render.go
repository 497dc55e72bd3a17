// Package render turns a fetched conversation and its resolved artifact versions into markdown
// files and file names.
package render

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/aymanbagabas/go-udiff"

	"github.com/elee1766/claudexport/src/convo"
	"github.com/elee1766/claudexport/src/resolver"
)

const conversationURL = "https://claude.ai/chat/"

// Options controls optional parts of the rendered output.
type Options struct {
	// IncludeMetadata prepends a metadata header to markdown and text artifact files.
	IncludeMetadata bool
	// ConvertHTML embeds HTML artifacts as converted markdown instead of a fenced block.
	ConvertHTML bool
	// ShowVersionDiffs embeds later versions of an artifact as a diff against the previous one.
	ShowVersionDiffs bool
}

// Renderer formats conversations and artifacts. It is safe for concurrent use.
type Renderer struct {
	opts   Options
	logger *slog.Logger
}

// New creates a renderer.
func New(opts Options, logger *slog.Logger) *Renderer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Renderer{opts: opts, logger: logger.With("component", "render")}
}

// RenderPrimary renders the conversation file: a header, the main branch transcript and, unless
// mode is none, the embedded artifact versions of every branch.
func (r *Renderer) RenderPrimary(conv *convo.Conversation, set *resolver.VersionSet, branches []resolver.Branch, mode resolver.Mode) string {
	var b strings.Builder

	title := conv.Name
	if title == "" {
		title = "Untitled"
	}
	fmt.Fprintf(&b, "# %s\n\n", title)
	writeField(&b, "Created", formatTime(conv.CreatedAt))
	writeField(&b, "Updated", formatTime(conv.UpdatedAt))
	writeField(&b, "Model", conv.Model)
	writeField(&b, "Project", conv.ProjectName())
	writeField(&b, "Link", conversationURL+conv.UUID)
	if len(branches) > 1 {
		writeField(&b, "Branches", fmt.Sprint(len(branches)))
	}
	if conv.Summary != "" {
		fmt.Fprintf(&b, "\n> %s\n", strings.ReplaceAll(strings.TrimSpace(conv.Summary), "\n", "\n> "))
	}
	b.WriteString("\n---\n")

	for _, m := range resolver.MainPath(conv) {
		r.writeMessage(&b, m)
	}

	if mode != resolver.ModeNone && set != nil && !set.Empty() {
		b.WriteString("\n---\n\n## Artifacts\n")
		for _, branchID := range set.Branches() {
			branch, ok := resolver.FindBranch(branches, branchID)
			if !ok {
				continue
			}
			fmt.Fprintf(&b, "\n### Branch %s", branch.Label())
			if branch.IsMain {
				b.WriteString(" (main)")
			}
			b.WriteString("\n")
			for _, artifactID := range set.ArtifactIDs(branchID) {
				r.writeArtifactVersions(&b, artifactID, set.Versions(branchID, artifactID), mode)
			}
		}
	}
	return b.String()
}

func (r *Renderer) writeMessage(b *strings.Builder, m convo.Message) {
	sender := "Claude"
	if m.Sender == "human" {
		sender = "Human"
	}
	fmt.Fprintf(b, "\n## %s", sender)
	if !m.CreatedAt.IsZero() {
		fmt.Fprintf(b, " (%s)", formatTime(m.CreatedAt))
	}
	b.WriteString("\n\n")

	if len(m.Content) == 0 && m.Text != "" {
		b.WriteString(strings.TrimSpace(m.Text))
		b.WriteString("\n")
		return
	}
	for _, block := range m.Content {
		switch {
		case block.Type == convo.BlockText:
			if text := strings.TrimSpace(block.Text); text != "" {
				b.WriteString(text)
				b.WriteString("\n\n")
			}
		case block.IsArtifact():
			in := block.Input
			label := in.Title
			if label == "" {
				label = in.ID
			}
			fmt.Fprintf(b, "> Artifact `%s`: %s (%s)\n\n", in.ID, label, in.Command)
		}
	}
}

func (r *Renderer) writeArtifactVersions(b *strings.Builder, artifactID string, versions []resolver.Invocation, mode resolver.Mode) {
	for i, inv := range versions {
		title := r.artifactTitle(inv)
		if title == "" {
			title = artifactID
		}
		fmt.Fprintf(b, "\n#### %s (v%d)\n\n", title, inv.Version)
		if inv.StopReason == convo.StopReasonUserCanceled {
			b.WriteString("_Generation was canceled._\n\n")
		}

		if i > 0 && mode == resolver.ModeAll && r.opts.ShowVersionDiffs {
			prev := versions[i-1]
			diff := udiff.Unified(fmt.Sprintf("v%d", prev.Version), fmt.Sprintf("v%d", inv.Version), prev.ProducedContent, inv.ProducedContent)
			if diff == "" {
				b.WriteString("_No changes._\n")
				continue
			}
			writeFenced(b, "diff", diff)
			continue
		}
		r.writeEmbeddedBody(b, inv)
	}
}

func (r *Renderer) writeEmbeddedBody(b *strings.Builder, inv resolver.Invocation) {
	switch inv.FinalType {
	case TypeMarkdown:
		b.WriteString(strings.TrimSpace(inv.ProducedContent))
		b.WriteString("\n")
		return
	case TypeHTML:
		if r.opts.ConvertHTML {
			converted, err := htmlToMarkdown(inv.ProducedContent)
			if err == nil {
				b.WriteString(strings.TrimSpace(converted))
				b.WriteString("\n")
				return
			}
			r.logger.Warn("failed to convert html artifact", "artifact", inv.ArtifactID, "error", err)
		}
	}
	writeFenced(b, FenceLanguage(inv.FinalType, inv.Language), inv.ProducedContent)
}

// RenderArtifactBody returns the content of a separate artifact file.
func (r *Renderer) RenderArtifactBody(inv resolver.Invocation, postProcess bool) string {
	if postProcess && inv.FinalType == TypeMarkdown {
		return strings.ReplaceAll(inv.ProducedContent, "\n\n", "\n")
	}
	return inv.ProducedContent
}

// MetadataHeader returns a header for markdown and plain text artifact files, or "" when the
// artifact type cannot carry one or metadata is disabled.
func (r *Renderer) MetadataHeader(inv resolver.Invocation, artifactID, branchLabel string, isMain bool) string {
	if !r.opts.IncludeMetadata {
		return ""
	}
	if inv.FinalType != TypeMarkdown && inv.FinalType != TypePlain {
		return ""
	}

	branch := branchLabel
	if isMain {
		branch += " (main)"
	}

	var b strings.Builder
	b.WriteString("<!--\n")
	writeMeta(&b, "artifact", artifactID)
	writeMeta(&b, "title", r.artifactTitle(inv))
	writeMeta(&b, "version", fmt.Sprint(inv.Version))
	writeMeta(&b, "branch", branch)
	writeMeta(&b, "command", inv.Command)
	writeMeta(&b, "message", inv.MessageID)
	writeMeta(&b, "stop_reason", inv.StopReason)
	writeMeta(&b, "timestamp", formatTime(inv.StopTimestamp))
	b.WriteString("-->\n")
	return b.String()
}

// artifactTitle falls back to the document title for untitled HTML artifacts.
func (r *Renderer) artifactTitle(inv resolver.Invocation) string {
	if inv.Title != "" {
		return inv.Title
	}
	if inv.FinalType == TypeHTML {
		return htmlTitle(inv.ProducedContent)
	}
	return ""
}

func writeField(b *strings.Builder, name, value string) {
	if value != "" {
		fmt.Fprintf(b, "- **%s:** %s\n", name, value)
	}
}

func writeMeta(b *strings.Builder, key, value string) {
	if value != "" {
		fmt.Fprintf(b, "%s: %s\n", key, value)
	}
}

// writeFenced writes content in a code fence long enough not to collide with backticks inside it.
func writeFenced(b *strings.Builder, lang, content string) {
	fence := "```"
	for strings.Contains(content, fence) {
		fence += "`"
	}
	fmt.Fprintf(b, "%s%s\n%s", fence, lang, content)
	if !strings.HasSuffix(content, "\n") {
		b.WriteString("\n")
	}
	b.WriteString(fence)
	b.WriteString("\n")
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04:05 UTC")
}

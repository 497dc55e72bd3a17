package render

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"github.com/elee1766/claudexport/src/convo"
	"github.com/elee1766/claudexport/src/resolver"
)

const maxNameRunes = 100

var (
	reservedChars = regexp.MustCompile(`[\\/:*?"<>|]`)
	whitespaceRun = regexp.MustCompile(`\s+`)
	underscoreRun = regexp.MustCompile(`__+`)
)

// SanitizeFileName makes name safe to use as a single path segment. The result may be empty.
func SanitizeFileName(name string) string {
	name = norm.NFC.String(name)
	name = strings.Map(func(r rune) rune {
		if unicode.IsControl(r) {
			return '_'
		}
		return r
	}, name)
	name = reservedChars.ReplaceAllString(name, "_")
	name = whitespaceRun.ReplaceAllString(name, "_")
	name = underscoreRun.ReplaceAllString(name, "_")
	name = strings.Trim(name, "_")

	if runes := []rune(name); len(runes) > maxNameRunes {
		name = strings.TrimRight(string(runes[:maxNameRunes]), "_")
	}
	return name
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func conversationBase(conv *convo.Conversation) string {
	name := SanitizeFileName(conv.Name)
	if name == "" {
		name = "Untitled"
	}
	return name + "_" + shortID(conv.UUID)
}

// PrimaryFilename is the conversation markdown file name.
func (r *Renderer) PrimaryFilename(conv *convo.Conversation) string {
	return conversationBase(conv) + ".md"
}

// ConversationFolder is the per-conversation subfolder used when artifacts get their own folder.
func (r *Renderer) ConversationFolder(conv *convo.Conversation) string {
	return conversationBase(conv)
}

// ArtifactFilename names one artifact version file. The conversation id keeps files from
// different conversations apart when they share a folder.
func (r *Renderer) ArtifactFilename(inv resolver.Invocation, conv *convo.Conversation, branchLabel string, isMain bool, artifactID string) string {
	title := SanitizeFileName(r.artifactTitle(inv))
	if title == "" {
		title = "artifact"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%s_%s_branch%s", title, shortID(conv.UUID), branchLabel)
	if isMain {
		b.WriteString("_main")
	}
	id := SanitizeFileName(artifactID)
	if id != "" {
		fmt.Fprintf(&b, "_%s", id)
	}
	fmt.Fprintf(&b, "_v%d.%s", inv.Version, Extension(inv.FinalType, inv.Language))
	return b.String()
}

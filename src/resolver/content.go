package resolver

import (
	"strings"

	"github.com/elee1766/claudexport/src/convo"
	"github.com/sergi/go-diff/diffmatchpatch"
)

// artifactState is the reconstructed state of one artifact while walking a branch.
type artifactState struct {
	content   string
	finalType string
	title     string
	language  string
}

func (st *artifactState) apply(in *convo.ArtifactInput) {
	switch in.Command {
	case convo.CommandUpdate:
		st.content = applyUpdate(st.content, in.OldStr, in.NewStr)
	default:
		// create, rewrite and anything unrecognised carry a full body
		st.content = in.Content
	}
	if in.Type != "" {
		st.finalType = in.Type
	}
	if in.Title != "" {
		st.title = in.Title
	}
	if in.Language != "" {
		st.language = in.Language
	}
}

// applyUpdate replaces the first occurrence of oldStr. When the text drifted and there is no
// exact match, a fuzzy patch is attempted; if that fails too the content is left unchanged.
func applyUpdate(content, oldStr, newStr string) string {
	if oldStr == "" {
		return content
	}
	if strings.Contains(content, oldStr) {
		return strings.Replace(content, oldStr, newStr, 1)
	}
	dmp := diffmatchpatch.New()
	patches := dmp.PatchMake(oldStr, newStr)
	patched, applied := dmp.PatchApply(patches, content)
	for _, ok := range applied {
		if !ok {
			return content
		}
	}
	return patched
}

package exporter

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/elee1766/claudexport/src/resolver"
)

// DefaultDelay spaces conversation fetches.
const DefaultDelay = 200 * time.Millisecond

// ArtifactPolicy decides where artifact versions end up. It is orthogonal to the resolver mode.
type ArtifactPolicy string

const (
	// PolicyEmbed folds artifacts into the conversation file.
	PolicyEmbed ArtifactPolicy = "embed"
	// PolicyFiles writes artifacts as separate files only.
	PolicyFiles ArtifactPolicy = "files"
	// PolicyBoth writes separate files and embeds them.
	PolicyBoth ArtifactPolicy = "both"
)

// ArtifactPolicies lists every valid policy.
var ArtifactPolicies = []ArtifactPolicy{PolicyEmbed, PolicyFiles, PolicyBoth}

// ParseArtifactPolicy converts a string to an ArtifactPolicy.
func ParseArtifactPolicy(s string) (ArtifactPolicy, error) {
	for _, p := range ArtifactPolicies {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("invalid artifact policy %q", s)
}

// FolderPolicy decides the folder prefix of a conversation's files.
type FolderPolicy string

const (
	// FolderGroup uses the name of the selected group.
	FolderGroup FolderPolicy = "group"
	// FolderNone writes everything at the top level.
	FolderNone FolderPolicy = "none"
	// FolderProject uses the project named in the fetched conversation, if any.
	FolderProject FolderPolicy = "project"
)

// FolderPolicies lists every valid folder policy.
var FolderPolicies = []FolderPolicy{FolderGroup, FolderNone, FolderProject}

// ParseFolderPolicy converts a string to a FolderPolicy.
func ParseFolderPolicy(s string) (FolderPolicy, error) {
	for _, p := range FolderPolicies {
		if string(p) == s {
			return p, nil
		}
	}
	return "", fmt.Errorf("invalid folder policy %q", s)
}

// ProgressFunc is called after every conversation, whether it succeeded or not.
type ProgressFunc func(completed, total int, text, detail string)

// CancelFlag is a cooperative stop request. The exporter checks it before every conversation
// and never interrupts one in progress.
type CancelFlag struct {
	v atomic.Bool
}

// Cancel requests a stop.
func (c *CancelFlag) Cancel() {
	c.v.Store(true)
}

// Cancelled reports whether a stop was requested. A nil flag is never cancelled.
func (c *CancelFlag) Cancelled() bool {
	return c != nil && c.v.Load()
}

// Options configures a run.
type Options struct {
	Mode                resolver.Mode
	ArtifactPolicy      ArtifactPolicy
	ExcludeCanceled     bool
	PostProcessMarkdown bool
	PerLeafSubfolder    bool
	FolderPolicy        FolderPolicy
	// Delay is the minimum spacing between conversation fetches. Zero disables pacing.
	Delay time.Duration
	// SkipUnchanged skips conversations not updated since their last recorded export.
	SkipUnchanged bool

	// Scope and Destination are recorded in the history only.
	Scope       string
	Destination string

	Progress ProgressFunc
	Cancel   *CancelFlag
}

func (o Options) withDefaults() Options {
	if o.Mode == "" {
		o.Mode = resolver.ModeFinal
	}
	if o.ArtifactPolicy == "" {
		o.ArtifactPolicy = PolicyFiles
	}
	if o.FolderPolicy == "" {
		o.FolderPolicy = FolderGroup
	}
	return o
}

// primaryMode is the mode the conversation file is rendered with. Artifacts that get their own
// files are left out of it under PolicyFiles.
func (o Options) primaryMode() resolver.Mode {
	if o.ArtifactPolicy == PolicyFiles {
		return resolver.ModeNone
	}
	return o.Mode
}

func (o Options) separateFiles() bool {
	return o.Mode != resolver.ModeNone && o.ArtifactPolicy != PolicyEmbed
}

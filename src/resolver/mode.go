package resolver

import (
	"fmt"
	"strconv"
	"time"

	"github.com/elee1766/claudexport/src/convo"
)

// Mode selects which artifact versions are materialized per branch.
type Mode string

const (
	// ModeFinal keeps only the last invocation per branch and artifact.
	ModeFinal Mode = "final"
	// ModeAll keeps every invocation.
	ModeAll Mode = "all"
	// ModeLatestPerMessage keeps the final state each message left an artifact in.
	ModeLatestPerMessage Mode = "latest_per_message"
	// ModeNone exports the conversation body only.
	ModeNone Mode = "none"
)

// Modes lists every valid mode.
var Modes = []Mode{ModeFinal, ModeAll, ModeLatestPerMessage, ModeNone}

// ParseMode converts a string to a Mode.
func ParseMode(s string) (Mode, error) {
	for _, m := range Modes {
		if string(m) == s {
			return m, nil
		}
	}
	return "", fmt.Errorf("invalid export mode %q", s)
}

// Branch is one root-to-leaf path through a conversation tree, identified by its leaf message.
type Branch struct {
	ID     string
	Index  int
	IsMain bool
}

// Label is the human facing branch label used in filenames and headers.
func (b Branch) Label() string {
	return strconv.Itoa(b.Index)
}

// FindBranch returns the branch with the given id.
func FindBranch(branches []Branch, id string) (Branch, bool) {
	for _, b := range branches {
		if b.ID == id {
			return b, true
		}
	}
	return Branch{}, false
}

// Invocation is one artifact version as it existed after a single tool_use block.
type Invocation struct {
	ArtifactID      string
	MessageID       string
	Command         string
	Title           string
	Language        string
	FinalType       string
	ProducedContent string
	StopTimestamp   time.Time
	StopReason      string
	// Version is the 1-based chronological position within its branch, before any filtering.
	Version int
}

// Filter reports whether an invocation should be kept.
type Filter func(Invocation) bool

// ExcludeCanceled drops invocations the user interrupted.
func ExcludeCanceled() Filter {
	return func(inv Invocation) bool {
		return inv.StopReason != convo.StopReasonUserCanceled
	}
}

// Options tunes a resolution.
type Options struct {
	// Filter runs after mode selection.
	Filter Filter
}

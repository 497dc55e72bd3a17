// Package resolver reconstructs the branch structure of a conversation and selects which
// artifact versions to materialize on each branch. It performs no I/O.
package resolver

import (
	"sort"
	"time"

	"github.com/elee1766/claudexport/src/convo"
)

// Resolve derives the branches of conv and the artifact versions kept under mode.
//
// Branch 0 (the main branch) is the first leaf message in document order. A conversation with
// no messages, or mode none, yields an empty set and a single synthetic main branch.
func Resolve(conv *convo.Conversation, mode Mode, opts Options) (*VersionSet, []Branch) {
	set := newVersionSet()
	if mode == ModeNone || conv == nil || len(conv.Messages) == 0 {
		return set, []Branch{syntheticBranch(conv)}
	}

	t := buildTree(conv.Messages)
	leaves := t.leaves()

	var keep map[int64]struct{}
	if mode == ModeLatestPerMessage {
		keep = latestPerMessage(conv.Messages)
	}

	branches := make([]Branch, 0, len(leaves))
	for i, leaf := range leaves {
		b := Branch{ID: t.msgs[leaf].UUID, Index: i, IsMain: i == 0}
		branches = append(branches, b)

		order, grouped := collect(t.msgs, t.pathTo(leaf))
		for _, artifactID := range order {
			versions := selectVersions(grouped[artifactID], mode, keep)
			if opts.Filter != nil {
				versions = filter(versions, opts.Filter)
			}
			set.add(b.ID, artifactID, versions)
		}
	}
	return set, branches
}

// MainPath returns the messages of the main branch from root to leaf.
func MainPath(conv *convo.Conversation) []convo.Message {
	if conv == nil || len(conv.Messages) == 0 {
		return nil
	}
	t := buildTree(conv.Messages)
	path := t.pathTo(t.leaves()[0])
	out := make([]convo.Message, 0, len(path))
	for _, i := range path {
		out = append(out, t.msgs[i])
	}
	return out
}

func syntheticBranch(conv *convo.Conversation) Branch {
	id := ""
	if conv != nil {
		id = conv.UUID
	}
	return Branch{ID: id, Index: 0, IsMain: true}
}

type tree struct {
	msgs     []convo.Message
	parent   []int
	hasChild []bool
}

// buildTree links messages by parent id. A parent that does not exist makes the message a root.
func buildTree(msgs []convo.Message) *tree {
	index := make(map[string]int, len(msgs))
	for i, m := range msgs {
		if _, dup := index[m.UUID]; !dup {
			index[m.UUID] = i
		}
	}
	t := &tree{
		msgs:     msgs,
		parent:   make([]int, len(msgs)),
		hasChild: make([]bool, len(msgs)),
	}
	for i, m := range msgs {
		p, ok := index[m.ParentMessageUUID]
		if !ok || p == i {
			t.parent[i] = -1
			continue
		}
		t.parent[i] = p
		t.hasChild[p] = true
	}
	return t
}

// leaves returns childless messages in document order. A fully cyclic tree has none, in which
// case the last message stands in as the only leaf.
func (t *tree) leaves() []int {
	var out []int
	for i := range t.msgs {
		if !t.hasChild[i] {
			out = append(out, i)
		}
	}
	if len(out) == 0 {
		out = append(out, len(t.msgs)-1)
	}
	return out
}

// pathTo returns message indexes from the root down to leaf. Cycles end the walk.
func (t *tree) pathTo(leaf int) []int {
	seen := make(map[int]bool)
	var up []int
	for i := leaf; i >= 0 && !seen[i]; i = t.parent[i] {
		seen[i] = true
		up = append(up, i)
	}
	for l, r := 0, len(up)-1; l < r; l, r = l+1, r-1 {
		up[l], up[r] = up[r], up[l]
	}
	return up
}

// collect groups the invocations found along path by artifact id, reconstructing content as it
// goes, then orders each group by stop timestamp.
func collect(msgs []convo.Message, path []int) ([]string, map[string][]Invocation) {
	var order []string
	grouped := make(map[string][]Invocation)
	states := make(map[string]*artifactState)
	sortKeys := make(map[string][]time.Time)
	var last time.Time

	for _, mi := range path {
		m := msgs[mi]
		for _, block := range m.Content {
			if !block.IsArtifact() {
				continue
			}
			in := block.Input
			st, ok := states[in.ID]
			if !ok {
				st = &artifactState{}
				states[in.ID] = st
				order = append(order, in.ID)
			}
			st.apply(in)

			reason := block.StopReason
			if reason == "" {
				reason = m.StopReason
			}
			if !block.StopTimestamp.IsZero() {
				last = block.StopTimestamp
			}
			grouped[in.ID] = append(grouped[in.ID], Invocation{
				ArtifactID:      in.ID,
				MessageID:       m.UUID,
				Command:         in.Command,
				Title:           st.title,
				Language:        st.language,
				FinalType:       st.finalType,
				ProducedContent: st.content,
				StopTimestamp:   block.StopTimestamp,
				StopReason:      reason,
			})
			// blocks without a timestamp sort as if they ended with the previous one
			sortKeys[in.ID] = append(sortKeys[in.ID], last)
		}
	}

	for id, versions := range grouped {
		keys := sortKeys[id]
		idx := make([]int, len(versions))
		for i := range idx {
			idx[i] = i
		}
		sort.SliceStable(idx, func(a, b int) bool {
			return keys[idx[a]].Before(keys[idx[b]])
		})
		sorted := make([]Invocation, len(versions))
		for i, j := range idx {
			sorted[i] = versions[j]
			sorted[i].Version = i + 1
		}
		grouped[id] = sorted
	}
	return order, grouped
}

// latestPerMessage collects, across the whole conversation, the stop timestamps of the last
// invocation of each artifact within each single message.
func latestPerMessage(msgs []convo.Message) map[int64]struct{} {
	keep := make(map[int64]struct{})
	for _, m := range msgs {
		latest := make(map[string]convo.ContentBlock)
		for _, block := range m.Content {
			if block.IsArtifact() {
				latest[block.Input.ID] = block
			}
		}
		for _, block := range latest {
			if !block.StopTimestamp.IsZero() {
				keep[block.StopTimestamp.UnixNano()] = struct{}{}
			}
		}
	}
	return keep
}

func selectVersions(versions []Invocation, mode Mode, keep map[int64]struct{}) []Invocation {
	if len(versions) == 0 {
		return nil
	}
	switch mode {
	case ModeFinal:
		return versions[len(versions)-1:]
	case ModeLatestPerMessage:
		var out []Invocation
		for _, v := range versions {
			if v.StopTimestamp.IsZero() {
				continue
			}
			if _, ok := keep[v.StopTimestamp.UnixNano()]; ok {
				out = append(out, v)
			}
		}
		return out
	default:
		return versions
	}
}

func filter(versions []Invocation, keep Filter) []Invocation {
	var out []Invocation
	for _, v := range versions {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

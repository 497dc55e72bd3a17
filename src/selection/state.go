// Package selection tracks which conversations a user picked across projects. Leaf lists are
// expensive to fetch, so they are loaded lazily and at most once per group.
package selection

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/elee1766/claudexport/src/convo"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

// maxConcurrentLoads bounds SelectAllGroups fan-out.
const maxConcurrentLoads = 4

// Loader fetches the leaves of a group.
type Loader interface {
	LoadLeaves(ctx context.Context, groupID string) ([]convo.LeafSummary, error)
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(ctx context.Context, groupID string) ([]convo.LeafSummary, error)

// LoadLeaves implements Loader.
func (f LoaderFunc) LoadLeaves(ctx context.Context, groupID string) ([]convo.LeafSummary, error) {
	return f(ctx, groupID)
}

// TriState is the aggregate selection of a group.
type TriState int

const (
	Unknown TriState = iota
	Empty
	Partial
	Full
)

func (t TriState) String() string {
	switch t {
	case Empty:
		return "empty"
	case Partial:
		return "partial"
	case Full:
		return "full"
	default:
		return "unknown"
	}
}

// GroupSelection is one group and the leaves selected in it.
type GroupSelection struct {
	Group  convo.Group
	Leaves []convo.LeafSummary
}

// Change is delivered to subscribers whenever a group's selection changes.
type Change struct {
	GroupID  string
	State    TriState
	Selected int
}

type node struct {
	group    convo.Group
	leaves   []convo.LeafSummary
	loaded   bool
	checking bool
	selected map[string]bool
}

// State is the selection model a view binds to.
type State struct {
	mu     sync.Mutex
	order  []string
	nodes  map[string]*node
	loader Loader
	loads  singleflight.Group
	logger *slog.Logger

	subs    map[int]func(Change)
	nextSub int
}

// New creates a selection over groups, in the given order.
func New(groups []convo.Group, loader Loader, logger *slog.Logger) *State {
	if logger == nil {
		logger = slog.Default()
	}
	s := &State{
		nodes:  make(map[string]*node, len(groups)),
		loader: loader,
		logger: logger.With("component", "selection"),
		subs:   make(map[int]func(Change)),
	}
	for _, g := range groups {
		if _, dup := s.nodes[g.UUID]; dup {
			continue
		}
		s.order = append(s.order, g.UUID)
		s.nodes[g.UUID] = &node{group: g, selected: make(map[string]bool)}
	}
	return s
}

// Preload seeds a group whose leaves are already known. It is a no-op once the group is loaded.
func (s *State) Preload(groupID string, leaves []convo.LeafSummary) error {
	s.mu.Lock()
	n, ok := s.nodes[groupID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownGroup, groupID)
	}
	if !n.loaded {
		n.leaves = leaves
		n.loaded = true
	}
	s.mu.Unlock()
	s.notify(groupID)
	return nil
}

// Subscribe registers fn for change notifications and returns a function that removes it.
func (s *State) Subscribe(fn func(Change)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, id)
	}
}

// ToggleGroup loads the group's leaves if needed and then sets every leaf to checked.
func (s *State) ToggleGroup(ctx context.Context, groupID string, checked bool) error {
	s.mu.Lock()
	n, ok := s.nodes[groupID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownGroup, groupID)
	}
	pending := !n.loaded
	if pending {
		n.checking = checked
	}
	s.mu.Unlock()

	if pending {
		s.notify(groupID)
		if err := s.ensureLoaded(ctx, groupID); err != nil {
			s.mu.Lock()
			n.checking = false
			s.mu.Unlock()
			s.notify(groupID)
			return err
		}
	}

	s.mu.Lock()
	for _, leaf := range n.leaves {
		n.selected[leaf.UUID] = checked
	}
	n.checking = false
	s.mu.Unlock()

	s.notify(groupID)
	return nil
}

// ToggleLeaf sets the membership of a single leaf. It never loads.
func (s *State) ToggleLeaf(groupID, leafID string, checked bool) error {
	s.mu.Lock()
	n, ok := s.nodes[groupID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownGroup, groupID)
	}
	if !n.loaded || !hasLeaf(n.leaves, leafID) {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s in group %s", ErrUnknownLeaf, leafID, groupID)
	}
	n.selected[leafID] = checked
	s.mu.Unlock()

	s.notify(groupID)
	return nil
}

// SelectAllGroups loads every group concurrently and selects all leaves. Groups that fail to
// load stay unselected and the first error is returned.
func (s *State) SelectAllGroups(ctx context.Context) error {
	var pending []*node
	s.mu.Lock()
	for _, n := range s.nodes {
		if !n.loaded {
			n.checking = true
			pending = append(pending, n)
		}
	}
	s.mu.Unlock()
	s.notify(s.groupIDs()...)

	var g errgroup.Group
	g.SetLimit(maxConcurrentLoads)
	for _, id := range s.groupIDs() {
		g.Go(func() error {
			return s.ensureLoaded(ctx, id)
		})
	}
	err := g.Wait()

	s.mu.Lock()
	for _, n := range pending {
		n.checking = false
	}
	for _, n := range s.nodes {
		if !n.loaded {
			continue
		}
		for _, leaf := range n.leaves {
			n.selected[leaf.UUID] = true
		}
	}
	s.mu.Unlock()

	s.notify(s.groupIDs()...)
	return err
}

// SelectNone clears every selection but keeps loaded leaf lists.
func (s *State) SelectNone() {
	s.mu.Lock()
	for _, n := range s.nodes {
		clear(n.selected)
		n.checking = false
	}
	s.mu.Unlock()
	s.notify(s.groupIDs()...)
}

// TriState reports the aggregate state of a group.
func (s *State) TriState(groupID string) TriState {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[groupID]
	if !ok {
		return Unknown
	}
	return n.triState()
}

// Leaves returns the loaded leaves of a group, and whether they are loaded.
func (s *State) Leaves(groupID string) ([]convo.LeafSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n, ok := s.nodes[groupID]
	if !ok || !n.loaded {
		return nil, false
	}
	return append([]convo.LeafSummary(nil), n.leaves...), true
}

// SelectedCount is the number of selected leaves across all groups.
func (s *State) SelectedCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, n := range s.nodes {
		total += n.selectedCount()
	}
	return total
}

// ExportSelection returns the selected leaves grouped by group, in group then leaf order.
// Groups without a selected leaf are omitted.
func (s *State) ExportSelection() []GroupSelection {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []GroupSelection
	for _, id := range s.order {
		n := s.nodes[id]
		var leaves []convo.LeafSummary
		for _, leaf := range n.leaves {
			if n.selected[leaf.UUID] {
				leaves = append(leaves, leaf)
			}
		}
		if len(leaves) == 0 {
			continue
		}
		out = append(out, GroupSelection{Group: n.group, Leaves: leaves})
	}
	return out
}

// ensureLoaded fetches a group's leaves once. Concurrent callers share a single fetch.
func (s *State) ensureLoaded(ctx context.Context, groupID string) error {
	s.mu.Lock()
	n, ok := s.nodes[groupID]
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownGroup, groupID)
	}
	loaded := n.loaded
	s.mu.Unlock()
	if loaded {
		return nil
	}

	// the load is shared, so one caller giving up must not fail the others
	loadCtx := context.WithoutCancel(ctx)
	results := s.loads.DoChan(groupID, func() (interface{}, error) {
		leaves, err := s.loader.LoadLeaves(loadCtx, groupID)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		if !n.loaded {
			n.leaves = leaves
			n.loaded = true
		}
		s.mu.Unlock()
		return nil, nil
	})

	var res singleflight.Result
	select {
	case <-ctx.Done():
		return fmt.Errorf("failed to load conversations for %s: %w", n.group.Name, ctx.Err())
	case res = <-results:
	}
	err, shared := res.Err, res.Shared
	if err != nil {
		s.logger.Warn("failed to load group leaves", "group", groupID, "error", err)
		return fmt.Errorf("failed to load conversations for %s: %w", n.group.Name, err)
	}
	s.logger.Debug("group leaves loaded", "group", groupID, "shared", shared)
	return nil
}

func (s *State) groupIDs() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.order...)
}

func (s *State) notify(groupIDs ...string) {
	s.mu.Lock()
	if len(s.subs) == 0 {
		s.mu.Unlock()
		return
	}
	changes := make([]Change, 0, len(groupIDs))
	for _, id := range groupIDs {
		n, ok := s.nodes[id]
		if !ok {
			continue
		}
		changes = append(changes, Change{GroupID: id, State: n.triState(), Selected: n.selectedCount()})
	}
	subs := make([]func(Change), 0, len(s.subs))
	for _, fn := range s.subs {
		subs = append(subs, fn)
	}
	s.mu.Unlock()

	for _, c := range changes {
		for _, fn := range subs {
			fn(c)
		}
	}
}

func (n *node) triState() TriState {
	if !n.loaded {
		if n.checking {
			return Full
		}
		return Unknown
	}
	count := n.selectedCount()
	switch {
	case count == 0:
		return Empty
	case count == len(n.leaves):
		return Full
	default:
		return Partial
	}
}

func (n *node) selectedCount() int {
	count := 0
	for _, on := range n.selected {
		if on {
			count++
		}
	}
	return count
}

func hasLeaf(leaves []convo.LeafSummary, id string) bool {
	for _, l := range leaves {
		if l.UUID == id {
			return true
		}
	}
	return false
}

package exporter

import (
	"context"
	"errors"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elee1766/claudexport/src/convo"
	"github.com/elee1766/claudexport/src/render"
	"github.com/elee1766/claudexport/src/resolver"
	"github.com/elee1766/claudexport/src/selection"
	"github.com/elee1766/claudexport/src/storage"
)

type fakeProvider struct {
	mu      sync.Mutex
	convs   map[string]*convo.Conversation
	fail    map[string]error
	fetched []string
	onFetch func(id string)
}

func newFakeProvider(convs ...*convo.Conversation) *fakeProvider {
	p := &fakeProvider{convs: map[string]*convo.Conversation{}, fail: map[string]error{}}
	for _, c := range convs {
		p.convs[c.UUID] = c
	}
	return p
}

func (p *fakeProvider) FetchDetail(ctx context.Context, leafID string) (*convo.Conversation, error) {
	p.mu.Lock()
	p.fetched = append(p.fetched, leafID)
	hook := p.onFetch
	p.mu.Unlock()

	if hook != nil {
		hook(leafID)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := p.fail[leafID]; err != nil {
		return nil, err
	}
	c, ok := p.convs[leafID]
	if !ok {
		return nil, errors.New("not found")
	}
	// callers may fill in missing fields
	cp := *c
	return &cp, nil
}

func (p *fakeProvider) fetchedIDs() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.fetched...)
}

type memSink struct {
	mu       sync.Mutex
	files    map[string]string
	order    []string
	failPath func(string) bool
}

func newMemSink() *memSink {
	return &memSink{files: map[string]string{}}
}

func (s *memSink) Write(ctx context.Context, path string, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failPath != nil && s.failPath(path) {
		return errors.New("disk full")
	}
	s.files[path] = content
	s.order = append(s.order, path)
	return nil
}

func (s *memSink) Finalize(ctx context.Context, name string) error { return nil }

func (s *memSink) paths() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := append([]string(nil), s.order...)
	sort.Strings(out)
	return out
}

var epoch = time.Date(2025, 5, 1, 10, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return epoch.Add(time.Duration(sec) * time.Second) }

func artifactBlock(id, command, content string, stop time.Time) convo.ContentBlock {
	return convo.ContentBlock{
		Type:          convo.BlockToolUse,
		Name:          convo.ToolArtifacts,
		StopTimestamp: stop,
		Input:         &convo.ArtifactInput{ID: id, Command: command, Type: render.TypeMarkdown, Title: "Doc " + id, Content: content},
	}
}

// conversation builds a two message conversation whose reply carries the given blocks.
func conversation(id, name string, blocks ...convo.ContentBlock) *convo.Conversation {
	return &convo.Conversation{
		UUID: id,
		Name: name,
		Messages: []convo.Message{
			{UUID: id + "-q", Sender: "human", Content: []convo.ContentBlock{{Type: convo.BlockText, Text: "question"}}},
			{UUID: id + "-a", ParentMessageUUID: id + "-q", Sender: "assistant", Content: append(
				[]convo.ContentBlock{{Type: convo.BlockText, Text: "answer"}}, blocks...)},
		},
	}
}

func leaf(c *convo.Conversation) convo.LeafSummary {
	return convo.LeafSummary{UUID: c.UUID, Name: c.Name, UpdatedAt: c.UpdatedAt}
}

func newExporter(t *testing.T, p Provider, s *memSink, opts Options) *Exporter {
	t.Helper()
	e, err := New(Deps{Provider: p, Renderer: render.New(render.Options{}, nil), Sink: s}, opts)
	require.NoError(t, err)
	return e
}

func TestEndToEndTwoGroups(t *testing.T) {
	a := conversation("aaaaaaaa-1", "With artifacts",
		artifactBlock("doc", convo.CommandCreate, "first", at(1)),
		artifactBlock("doc", convo.CommandRewrite, "second", at(2)),
	)
	b := conversation("bbbbbbbb-1", "Plain")
	p := newFakeProvider(a, b)
	s := newMemSink()

	e := newExporter(t, p, s, Options{Mode: resolver.ModeFinal, ArtifactPolicy: PolicyFiles})
	job, err := e.Run(context.Background(), []selection.GroupSelection{
		{Group: convo.Group{UUID: "ga", Name: "Group A"}, Leaves: []convo.LeafSummary{leaf(a)}},
		{Group: convo.Group{UUID: "gb", Name: "Group B"}, Leaves: []convo.LeafSummary{leaf(b)}},
	})
	require.NoError(t, err)

	assert.Equal(t, 3, job.ExportedFileCount)
	assert.Empty(t, job.Errors)
	assert.Equal(t, 2, job.Completed)
	assert.Equal(t, 2, job.Total)
	assert.Equal(t, 2, job.Groups)
	assert.False(t, job.Cancelled)
	assert.NotEmpty(t, job.ID)
	assert.Equal(t, "Exported 3 files from 2 conversations across 2 projects", job.Summary())

	assert.Equal(t, []string{
		"Group_A/Doc_doc_aaaaaaaa_branch0_main_doc_v2.md",
		"Group_A/With_artifacts_aaaaaaaa.md",
		"Group_B/Plain_bbbbbbbb.md",
	}, s.paths())

	assert.Equal(t, "second", s.files["Group_A/Doc_doc_aaaaaaaa_branch0_main_doc_v2.md"])
	assert.NotContains(t, s.files["Group_A/With_artifacts_aaaaaaaa.md"], "## Artifacts")
}

func TestFailedLeafDoesNotAbort(t *testing.T) {
	var convs []*convo.Conversation
	var leaves []convo.LeafSummary
	for _, id := range []string{"c1", "c2", "c3", "c4"} {
		c := conversation(id, "Chat "+id, artifactBlock("x", convo.CommandCreate, "body", at(1)))
		convs = append(convs, c)
		leaves = append(leaves, leaf(c))
	}
	p := newFakeProvider(convs...)
	p.fail["c2"] = errors.New("502 bad gateway")
	s := newMemSink()

	e := newExporter(t, p, s, Options{Mode: resolver.ModeFinal, ArtifactPolicy: PolicyFiles})
	job, err := e.Run(context.Background(), []selection.GroupSelection{{Group: convo.Group{UUID: "g", Name: "G"}, Leaves: leaves}})
	require.NoError(t, err)

	assert.Equal(t, 4, job.Completed)
	require.Len(t, job.Errors, 1)
	assert.Equal(t, "c2", job.Errors[0].ItemID)
	assert.Equal(t, "Chat c2", job.Errors[0].Name)
	assert.Contains(t, job.Errors[0].Message, "502")
	assert.Equal(t, 6, job.ExportedFileCount, "two files for each of the three good conversations")
	assert.Equal(t, 3, job.Exported)
	assert.Len(t, s.paths(), 6)
}

func TestCancelFlagStopsBeforeNextLeaf(t *testing.T) {
	var convs []*convo.Conversation
	var leaves []convo.LeafSummary
	for _, id := range []string{"c1", "c2", "c3", "c4"} {
		c := conversation(id, id)
		convs = append(convs, c)
		leaves = append(leaves, leaf(c))
	}
	p := newFakeProvider(convs...)
	s := newMemSink()
	cancel := &CancelFlag{}

	var reports []int
	e := newExporter(t, p, s, Options{
		Mode:   resolver.ModeNone,
		Cancel: cancel,
		Progress: func(completed, total int, text, detail string) {
			reports = append(reports, completed)
			assert.Equal(t, 4, total)
			if completed == 2 {
				cancel.Cancel()
			}
		},
	})

	job, err := e.Run(context.Background(), []selection.GroupSelection{{Group: convo.Group{UUID: "g"}, Leaves: leaves}})
	require.NoError(t, err)

	assert.True(t, job.Cancelled)
	assert.Equal(t, 2, job.Completed)
	assert.Equal(t, []string{"c1", "c2"}, p.fetchedIDs())
	assert.Equal(t, []int{1, 2}, reports)
	assert.Equal(t, 2, job.ExportedFileCount)
}

func TestContextCancelDuringFetch(t *testing.T) {
	c1, c2 := conversation("c1", "one"), conversation("c2", "two")
	p := newFakeProvider(c1, c2)
	ctx, cancel := context.WithCancel(context.Background())
	p.onFetch = func(id string) {
		if id == "c1" {
			cancel()
		}
	}
	s := newMemSink()

	e := newExporter(t, p, s, Options{Mode: resolver.ModeNone})
	job, err := e.Run(ctx, []selection.GroupSelection{{Leaves: []convo.LeafSummary{leaf(c1), leaf(c2)}}})
	require.NoError(t, err)

	assert.True(t, job.Cancelled)
	assert.Equal(t, 0, job.Completed)
	assert.Empty(t, job.Errors)
	assert.Equal(t, []string{"c1"}, p.fetchedIDs())
}

func TestEmptySelection(t *testing.T) {
	p := newFakeProvider()
	e := newExporter(t, p, newMemSink(), Options{})

	job, err := e.Run(context.Background(), nil)
	assert.ErrorIs(t, err, ErrEmptySelection)
	assert.Nil(t, job)

	job, err = e.Run(context.Background(), []selection.GroupSelection{{Group: convo.Group{UUID: "g"}}})
	assert.ErrorIs(t, err, ErrEmptySelection)
	assert.Nil(t, job)
	assert.Empty(t, p.fetchedIDs())
}

func TestArtifactPolicies(t *testing.T) {
	c := conversation("cccccccc", "Policy",
		artifactBlock("one", convo.CommandCreate, "v1", at(1)),
		artifactBlock("one", convo.CommandRewrite, "v2", at(2)),
		artifactBlock("two", convo.CommandCreate, "other", at(3)),
	)
	sel := []selection.GroupSelection{{Leaves: []convo.LeafSummary{leaf(c)}}}

	tests := []struct {
		name         string
		mode         resolver.Mode
		policy       ArtifactPolicy
		wantFiles    int
		wantEmbedded bool
	}{
		{"embed final", resolver.ModeFinal, PolicyEmbed, 1, true},
		{"files final", resolver.ModeFinal, PolicyFiles, 3, false},
		{"both final", resolver.ModeFinal, PolicyBoth, 3, true},
		{"files all", resolver.ModeAll, PolicyFiles, 4, false},
		{"both none", resolver.ModeNone, PolicyBoth, 1, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newMemSink()
			e := newExporter(t, newFakeProvider(c), s, Options{Mode: tt.mode, ArtifactPolicy: tt.policy, FolderPolicy: FolderNone})
			job, err := e.Run(context.Background(), sel)
			require.NoError(t, err)
			assert.Equal(t, tt.wantFiles, job.ExportedFileCount)
			assert.Len(t, s.paths(), tt.wantFiles)
			assert.Equal(t, tt.wantEmbedded, strings.Contains(s.files["Policy_cccccccc.md"], "## Artifacts"))
		})
	}
}

func TestSinkFailureCountsWrittenFiles(t *testing.T) {
	c := conversation("c1", "Broken",
		artifactBlock("a", convo.CommandCreate, "A", at(1)),
		artifactBlock("b", convo.CommandCreate, "B", at(2)),
	)
	ok := conversation("c2", "Fine")
	s := newMemSink()
	s.failPath = func(p string) bool { return strings.Contains(p, "_b_v1") }

	e := newExporter(t, newFakeProvider(c, ok), s, Options{Mode: resolver.ModeFinal, ArtifactPolicy: PolicyFiles})
	job, err := e.Run(context.Background(), []selection.GroupSelection{{Leaves: []convo.LeafSummary{leaf(c), leaf(ok)}}})
	require.NoError(t, err)

	require.Len(t, job.Errors, 1)
	assert.Equal(t, "c1", job.Errors[0].ItemID)
	assert.Equal(t, 3, job.ExportedFileCount, "primary and first artifact of c1, primary of c2")
	assert.Equal(t, 2, job.Completed)
}

func TestFolderPolicies(t *testing.T) {
	c := conversation("dddddddd", "Chat", artifactBlock("a", convo.CommandCreate, "A", at(1)))
	c.Project = &convo.ProjectRef{UUID: "p", Name: "My Project"}
	group := convo.Group{UUID: "g", Name: "Work Stuff"}

	tests := []struct {
		name      string
		policy    FolderPolicy
		subfolder bool
		want      string
	}{
		{"group", FolderGroup, false, "Work_Stuff/Chat_dddddddd.md"},
		{"none", FolderNone, false, "Chat_dddddddd.md"},
		{"project", FolderProject, false, "My_Project/Chat_dddddddd.md"},
		{"group with subfolder", FolderGroup, true, "Work_Stuff/Chat_dddddddd/Chat_dddddddd.md"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newMemSink()
			e := newExporter(t, newFakeProvider(c), s, Options{
				Mode: resolver.ModeFinal, ArtifactPolicy: PolicyFiles, FolderPolicy: tt.policy, PerLeafSubfolder: tt.subfolder,
			})
			_, err := e.Run(context.Background(), []selection.GroupSelection{{Group: group, Leaves: []convo.LeafSummary{leaf(c)}}})
			require.NoError(t, err)

			assert.Contains(t, s.paths(), tt.want)
			dir := filepath.ToSlash(filepath.Dir(tt.want))
			for _, p := range s.paths() {
				assert.Equal(t, dir, filepath.ToSlash(filepath.Dir(p)), "artifacts share the conversation folder")
			}
		})
	}
}

func TestArtifactFileContent(t *testing.T) {
	canceled := artifactBlock("doc", convo.CommandRewrite, "partial", at(2))
	canceled.StopReason = convo.StopReasonUserCanceled
	c := conversation("eeeeeeee", "Notes",
		artifactBlock("doc", convo.CommandCreate, "line1\n\nline2", at(1)),
		canceled,
	)
	s := newMemSink()
	e, err := New(Deps{
		Provider: newFakeProvider(c),
		Renderer: render.New(render.Options{IncludeMetadata: true}, nil),
		Sink:     s,
	}, Options{Mode: resolver.ModeAll, ArtifactPolicy: PolicyFiles, ExcludeCanceled: true, PostProcessMarkdown: true, FolderPolicy: FolderNone})
	require.NoError(t, err)

	job, err := e.Run(context.Background(), []selection.GroupSelection{{Leaves: []convo.LeafSummary{leaf(c)}}})
	require.NoError(t, err)
	require.Equal(t, 2, job.ExportedFileCount, "canceled version is excluded")

	content := s.files["Doc_doc_eeeeeeee_branch0_main_doc_v1.md"]
	require.NotEmpty(t, content)
	assert.True(t, strings.HasPrefix(content, "<!--\n"))
	assert.True(t, strings.HasSuffix(content, "-->\n\nline1\nline2"))
}

func TestSkipUnchanged(t *testing.T) {
	db, err := storage.Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	defer db.Close()

	c1 := conversation("c1", "Old")
	c1.UpdatedAt = at(10)
	c2 := conversation("c2", "New")
	c2.UpdatedAt = at(10)
	p := newFakeProvider(c1, c2)
	sel := []selection.GroupSelection{{Group: convo.Group{UUID: "g", Name: "G"}, Leaves: []convo.LeafSummary{leaf(c1), leaf(c2)}}}

	run := func() *Job {
		e, err := New(Deps{Provider: p, Renderer: render.New(render.Options{}, nil), Sink: newMemSink(), History: db},
			Options{Mode: resolver.ModeNone, SkipUnchanged: true, Scope: "project"})
		require.NoError(t, err)
		job, err := e.Run(context.Background(), sel)
		require.NoError(t, err)
		return job
	}

	first := run()
	assert.Equal(t, 0, first.Skipped)
	assert.Equal(t, 2, first.ExportedFileCount)

	sel[0].Leaves[1].UpdatedAt = at(20)
	second := run()
	assert.Equal(t, 1, second.Skipped)
	assert.Equal(t, 2, second.Completed)
	assert.Equal(t, 1, second.ExportedFileCount)
	assert.Equal(t, []string{"c1", "c2", "c2"}, p.fetchedIDs())

	recorded, err := storage.GetRunByID(context.Background(), db.DB(), second.ID)
	require.NoError(t, err)
	require.NotNil(t, recorded)
	assert.Equal(t, 1, recorded.Skipped)
	assert.Equal(t, "project", recorded.Scope)
	require.NotNil(t, recorded.FinishedAt)

	item, err := db.LastExport(context.Background(), "c2")
	require.NoError(t, err)
	assert.Equal(t, second.ID, item.RunID)
}

func TestDelayPacesFetches(t *testing.T) {
	var convs []*convo.Conversation
	var leaves []convo.LeafSummary
	for _, id := range []string{"c1", "c2", "c3"} {
		c := conversation(id, id)
		convs = append(convs, c)
		leaves = append(leaves, leaf(c))
	}
	e := newExporter(t, newFakeProvider(convs...), newMemSink(), Options{Mode: resolver.ModeNone, Delay: 30 * time.Millisecond})

	start := time.Now()
	job, err := e.Run(context.Background(), []selection.GroupSelection{{Leaves: leaves}})
	require.NoError(t, err)
	assert.Equal(t, 3, job.Completed)
	assert.GreaterOrEqual(t, time.Since(start), 55*time.Millisecond)
}

func TestDelayPastDeadlineWaitsForContext(t *testing.T) {
	a, b := conversation("c1", "c1"), conversation("c2", "c2")
	p := newFakeProvider(a, b)
	e := newExporter(t, p, newMemSink(), Options{Mode: resolver.ModeNone, Delay: 500 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	start := time.Now()
	job, err := e.Run(ctx, []selection.GroupSelection{{Leaves: []convo.LeafSummary{leaf(a), leaf(b)}}})
	require.NoError(t, err)

	assert.True(t, job.Cancelled)
	assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded, "cancelled only once the deadline passed")
	assert.GreaterOrEqual(t, time.Since(start), 140*time.Millisecond)
	assert.Equal(t, 1, job.Completed)
	assert.Equal(t, []string{"c1"}, p.fetchedIDs())
}

type providerFunc func(ctx context.Context, leafID string) (*convo.Conversation, error)

func (f providerFunc) FetchDetail(ctx context.Context, leafID string) (*convo.Conversation, error) {
	return f(ctx, leafID)
}

func TestMissingDetailIsItemError(t *testing.T) {
	good := conversation("c2", "Good")
	p := providerFunc(func(ctx context.Context, leafID string) (*convo.Conversation, error) {
		if leafID == "c1" {
			return nil, nil
		}
		cp := *good
		return &cp, nil
	})
	s := newMemSink()
	e := newExporter(t, p, s, Options{Mode: resolver.ModeNone})

	job, err := e.Run(context.Background(), []selection.GroupSelection{{Leaves: []convo.LeafSummary{
		{UUID: "c1", Name: "Empty"}, leaf(good),
	}}})
	require.NoError(t, err)

	assert.Equal(t, 2, job.Completed)
	require.Len(t, job.Errors, 1)
	assert.Equal(t, "c1", job.Errors[0].ItemID)
	assert.ErrorIs(t, job.Errors[0], ErrNoConversation)
	assert.Equal(t, 1, job.Exported)
	assert.Equal(t, []string{"Good_c2.md"}, s.paths())
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Deps{Renderer: render.New(render.Options{}, nil), Sink: newMemSink()}, Options{})
	assert.ErrorIs(t, err, ErrMissingDependency)

	_, err = New(Deps{Provider: newFakeProvider(), Sink: newMemSink()}, Options{})
	assert.ErrorIs(t, err, ErrMissingDependency)

	_, err = New(Deps{Provider: newFakeProvider(), Renderer: render.New(render.Options{}, nil)}, Options{})
	assert.ErrorIs(t, err, ErrMissingDependency)
}

func TestParsePolicies(t *testing.T) {
	p, err := ParseArtifactPolicy("both")
	require.NoError(t, err)
	assert.Equal(t, PolicyBoth, p)
	_, err = ParseArtifactPolicy("zip")
	assert.Error(t, err)

	f, err := ParseFolderPolicy("project")
	require.NoError(t, err)
	assert.Equal(t, FolderProject, f)
	_, err = ParseFolderPolicy("")
	assert.Error(t, err)
}

func TestCancelFlagNil(t *testing.T) {
	var c *CancelFlag
	assert.False(t, c.Cancelled())
}

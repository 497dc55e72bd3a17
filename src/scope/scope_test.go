package scope

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestResolve(t *testing.T) {
	tests := []struct {
		location string
		want     Scope
	}{
		{"/projects", Scope{Kind: AllGroups, Title: "All Projects"}},
		{"/projects/", Scope{Kind: AllGroups, Title: "All Projects"}},
		{"/project/abc-123", Scope{Kind: SingleGroup, ID: "abc-123", Title: "Current Project"}},
		{"/recents", Scope{Kind: AllUngroupedItems, Title: "Recent Conversations"}},
		{"/chat/42", Scope{Kind: SingleItem, ID: "42", Title: "Current Conversation"}},
		{"https://claude.ai/project/p1?tab=chats", Scope{Kind: SingleGroup, ID: "p1", Title: "Current Project"}},
		{"https://claude.ai/chat/c9", Scope{Kind: SingleItem, ID: "c9", Title: "Current Conversation"}},
		{"/project/p1/extra", Scope{Kind: Unrecognized, Title: "Unknown Context"}},
		{"/project/", Scope{Kind: Unrecognized, Title: "Unknown Context"}},
		{"/settings", Scope{Kind: Unrecognized, Title: "Unknown Context"}},
		{"", Scope{Kind: Unrecognized, Title: "Unknown Context"}},
	}

	for _, tt := range tests {
		t.Run(tt.location, func(t *testing.T) {
			assert.Equal(t, tt.want, Resolve(tt.location))
		})
	}
}

func TestKindString(t *testing.T) {
	assert.Equal(t, "projects", AllGroups.String())
	assert.Equal(t, "unknown", Unrecognized.String())
}

package claudeapi

import (
	"context"
	"fmt"
	"net/url"

	"github.com/elee1766/claudexport/src/convo"
)

// recentsLimit matches the page size the web app requests for "all chats".
const recentsLimit = 10000

// Organization is an entry of /api/organizations.
type Organization struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// ListGroups returns the projects created by the current user.
func (c *Client) ListGroups(ctx context.Context) ([]convo.Group, error) {
	org, err := c.Bootstrap(ctx)
	if err != nil {
		return nil, err
	}

	var groups []convo.Group
	path := fmt.Sprintf("/api/organizations/%s/projects?include_harmony_projects=true&creator_filter=is_creator", url.PathEscape(org))
	if err := c.getJSON(ctx, path, &groups); err != nil {
		return nil, fmt.Errorf("failed to fetch projects: %w", err)
	}
	return groups, nil
}

// ListLeaves returns the conversations of a project. Results are cached for CacheTTL.
func (c *Client) ListLeaves(ctx context.Context, groupID string) ([]convo.LeafSummary, error) {
	if leaves, ok := c.leafCache.Get(groupID); ok {
		return leaves, nil
	}

	org, err := c.Bootstrap(ctx)
	if err != nil {
		return nil, err
	}

	var leaves []convo.LeafSummary
	path := fmt.Sprintf("/api/organizations/%s/projects/%s/conversations", url.PathEscape(org), url.PathEscape(groupID))
	if err := c.getJSON(ctx, path, &leaves); err != nil {
		return nil, fmt.Errorf("failed to fetch project conversations: %w", err)
	}
	c.leafCache.Put(groupID, leaves)
	return leaves, nil
}

// LoadLeaves lets the client serve as a selection loader.
func (c *Client) LoadLeaves(ctx context.Context, groupID string) ([]convo.LeafSummary, error) {
	return c.ListLeaves(ctx, groupID)
}

// ListUngroupedItems returns every recent conversation, with or without a project.
func (c *Client) ListUngroupedItems(ctx context.Context) ([]convo.LeafSummary, error) {
	org, err := c.Bootstrap(ctx)
	if err != nil {
		return nil, err
	}

	var leaves []convo.LeafSummary
	path := fmt.Sprintf("/api/organizations/%s/chat_conversations?limit=%d", url.PathEscape(org), recentsLimit)
	if err := c.getJSON(ctx, path, &leaves); err != nil {
		return nil, fmt.Errorf("failed to fetch recent conversations: %w", err)
	}
	return leaves, nil
}

// FetchDetail returns the full message tree of a conversation.
func (c *Client) FetchDetail(ctx context.Context, leafID string) (*convo.Conversation, error) {
	org, err := c.Bootstrap(ctx)
	if err != nil {
		return nil, err
	}

	var conv convo.Conversation
	path := fmt.Sprintf("/api/organizations/%s/chat_conversations/%s?tree=true&rendering_mode=messages&render_all_tools=true",
		url.PathEscape(org), url.PathEscape(leafID))
	if err := c.getJSON(ctx, path, &conv); err != nil {
		return nil, fmt.Errorf("failed to fetch conversation %s: %w", leafID, err)
	}
	return &conv, nil
}

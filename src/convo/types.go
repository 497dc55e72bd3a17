package convo

import "time"

// Content block types and tool names used by the Claude web API.
const (
	BlockText    = "text"
	BlockToolUse = "tool_use"

	ToolArtifacts = "artifacts"
)

// Artifact commands carried by an artifacts tool_use block.
const (
	CommandCreate  = "create"
	CommandRewrite = "rewrite"
	CommandUpdate  = "update"
)

// StopReasonUserCanceled marks an invocation the user interrupted.
const StopReasonUserCanceled = "user_canceled"

// Group is a top-level container of conversations (a project).
type Group struct {
	UUID      string    `json:"uuid"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// LeafSummary is a conversation as it appears in list endpoints.
type LeafSummary struct {
	UUID        string    `json:"uuid"`
	Name        string    `json:"name"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
	ProjectUUID string    `json:"project_uuid,omitempty"`
}

// ProjectRef is the project embedded in a conversation detail.
type ProjectRef struct {
	UUID string `json:"uuid"`
	Name string `json:"name"`
}

// Conversation is the full detail of one conversation including its message tree.
type Conversation struct {
	UUID                   string      `json:"uuid"`
	Name                   string      `json:"name"`
	Summary                string      `json:"summary,omitempty"`
	Model                  string      `json:"model,omitempty"`
	CreatedAt              time.Time   `json:"created_at"`
	UpdatedAt              time.Time   `json:"updated_at"`
	Project                *ProjectRef `json:"project,omitempty"`
	CurrentLeafMessageUUID string      `json:"current_leaf_message_uuid,omitempty"`
	Messages               []Message   `json:"chat_messages"`
}

// Message is one node of the conversation tree.
type Message struct {
	UUID              string         `json:"uuid"`
	ParentMessageUUID string         `json:"parent_message_uuid"`
	Sender            string         `json:"sender"`
	Index             int            `json:"index"`
	Text              string         `json:"text,omitempty"`
	StopReason        string         `json:"stop_reason,omitempty"`
	CreatedAt         time.Time      `json:"created_at"`
	Content           []ContentBlock `json:"content"`
}

// ContentBlock is a tagged variant; Type selects which fields are meaningful.
type ContentBlock struct {
	Type           string         `json:"type"`
	Text           string         `json:"text,omitempty"`
	Name           string         `json:"name,omitempty"`
	Input          *ArtifactInput `json:"input,omitempty"`
	StartTimestamp time.Time      `json:"start_timestamp,omitempty"`
	StopTimestamp  time.Time      `json:"stop_timestamp,omitempty"`
	StopReason     string         `json:"stop_reason,omitempty"`
}

// ArtifactInput is the payload of an artifacts tool_use block.
type ArtifactInput struct {
	ID       string `json:"id"`
	Command  string `json:"command"`
	Type     string `json:"type,omitempty"`
	Title    string `json:"title,omitempty"`
	Language string `json:"language,omitempty"`
	Content  string `json:"content,omitempty"`
	OldStr   string `json:"old_str,omitempty"`
	NewStr   string `json:"new_str,omitempty"`
}

// IsArtifact reports whether the block is an artifact invocation.
func (b ContentBlock) IsArtifact() bool {
	return b.Type == BlockToolUse && b.Name == ToolArtifacts && b.Input != nil && b.Input.ID != ""
}

// ProjectName returns the name of the conversation's project, or "".
func (c *Conversation) ProjectName() string {
	if c == nil || c.Project == nil {
		return ""
	}
	return c.Project.Name
}

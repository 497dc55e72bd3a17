package storage

import "time"

// ExportRun is the summary of one export run.
type ExportRun struct {
	ID             string          `json:"id" db:"id"`
	Scope          string          `json:"scope" db:"scope"`
	Mode           string          `json:"mode" db:"mode"`
	ArtifactPolicy string          `json:"artifact_policy" db:"artifact_policy"`
	Destination    string          `json:"destination" db:"destination"`
	Total          int             `json:"total" db:"total"`
	Completed      int             `json:"completed" db:"completed"`
	ExportedFiles  int             `json:"exported_files" db:"exported_files"`
	Skipped        int             `json:"skipped" db:"skipped"`
	FailedItems    JSONStringArray `json:"failed_items" db:"failed_items"` // conversation ids
	Cancelled      bool            `json:"cancelled" db:"cancelled"`
	StartedAt      time.Time       `json:"started_at" db:"started_at"`
	FinishedAt     *time.Time      `json:"finished_at,omitempty" db:"finished_at"`
}

// ExportedItem records the last successful export of a conversation.
type ExportedItem struct {
	ConversationID        string    `json:"conversation_id" db:"conversation_id"`
	RunID                 string    `json:"run_id" db:"run_id"`
	GroupID               string    `json:"group_id" db:"group_id"`
	Name                  string    `json:"name" db:"name"`
	Files                 int       `json:"files" db:"files"`
	ConversationUpdatedAt time.Time `json:"conversation_updated_at" db:"conversation_updated_at"`
	ExportedAt            time.Time `json:"exported_at" db:"exported_at"`
}

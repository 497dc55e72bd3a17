package storage

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/georgysavva/scany/v2/sqlscan"
	"github.com/google/uuid"
)

const runColumns = `id, scope, mode, artifact_policy, destination, total, completed, exported_files, skipped,
	json(failed_items) as failed_items, cancelled, started_at, finished_at`

// CreateRun inserts a new export run
func CreateRun(ctx context.Context, db Execer, run *ExportRun) error {
	if run.ID == "" {
		run.ID = uuid.New().String()
	}
	if run.StartedAt.IsZero() {
		run.StartedAt = time.Now()
	}
	if run.FailedItems == nil {
		run.FailedItems = JSONStringArray{}
	}

	query := `INSERT INTO export_runs (id, scope, mode, artifact_policy, destination, total, started_at) VALUES (?, ?, ?, ?, ?, ?, ?)`
	_, err := db.ExecContext(ctx, query, run.ID, run.Scope, run.Mode, run.ArtifactPolicy, run.Destination, run.Total, run.StartedAt)
	return err
}

// FinishRun stores the final counters of a run
func FinishRun(ctx context.Context, db Execer, run *ExportRun) error {
	if run.FinishedAt == nil {
		now := time.Now()
		run.FinishedAt = &now
	}

	query := `UPDATE export_runs SET total = ?, completed = ?, exported_files = ?, skipped = ?, failed_items = ?, cancelled = ?, finished_at = ? WHERE id = ?`
	_, err := db.ExecContext(ctx, query,
		run.Total,
		run.Completed,
		run.ExportedFiles,
		run.Skipped,
		run.FailedItems,
		run.Cancelled,
		*run.FinishedAt,
		run.ID,
	)
	return err
}

// GetRunByID retrieves a run by its ID
func GetRunByID(ctx context.Context, db Querier, runID string) (*ExportRun, error) {
	query := `SELECT ` + runColumns + ` FROM export_runs WHERE id = ?`
	var run ExportRun
	err := sqlscan.Get(ctx, db, &run, query, runID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, err
	}
	return &run, nil
}

// ListRuns returns the most recent runs first
func ListRuns(ctx context.Context, db Querier, limit int) ([]ExportRun, error) {
	if limit <= 0 {
		limit = 20
	}
	query := `SELECT ` + runColumns + ` FROM export_runs ORDER BY started_at DESC LIMIT ?`
	var runs []ExportRun
	if err := sqlscan.Select(ctx, db, &runs, query, limit); err != nil {
		return nil, err
	}
	return runs, nil
}

// UpsertItem records the latest export of a conversation
func UpsertItem(ctx context.Context, db Execer, item *ExportedItem) error {
	if item.ExportedAt.IsZero() {
		item.ExportedAt = time.Now()
	}

	query := `INSERT INTO exported_items (conversation_id, run_id, group_id, name, files, conversation_updated_at, exported_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(conversation_id) DO UPDATE SET
			run_id = excluded.run_id,
			group_id = excluded.group_id,
			name = excluded.name,
			files = excluded.files,
			conversation_updated_at = excluded.conversation_updated_at,
			exported_at = excluded.exported_at`
	_, err := db.ExecContext(ctx, query,
		item.ConversationID,
		item.RunID,
		item.GroupID,
		item.Name,
		item.Files,
		item.ConversationUpdatedAt,
		item.ExportedAt,
	)
	return err
}

// GetItem retrieves the last export of a conversation
func GetItem(ctx context.Context, db Querier, conversationID string) (*ExportedItem, error) {
	query := `SELECT conversation_id, run_id, group_id, name, files, conversation_updated_at, exported_at FROM exported_items WHERE conversation_id = ?`
	var item ExportedItem
	err := sqlscan.Get(ctx, db, &item, query, conversationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil // Not found
		}
		return nil, err
	}
	return &item, nil
}

// ListRunItems returns the conversations exported by a run
func ListRunItems(ctx context.Context, db Querier, runID string) ([]ExportedItem, error) {
	query := `SELECT conversation_id, run_id, group_id, name, files, conversation_updated_at, exported_at FROM exported_items WHERE run_id = ? ORDER BY exported_at`
	var items []ExportedItem
	if err := sqlscan.Select(ctx, db, &items, query, runID); err != nil {
		return nil, err
	}
	return items, nil
}

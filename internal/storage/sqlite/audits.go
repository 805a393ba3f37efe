package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/mmynk/housemerge/internal/models"
)

// ListMergeAudits returns a group's merge audit entries, newest first.
func (s *SQLiteStore) ListMergeAudits(ctx context.Context, groupID string) ([]*models.MergeAuditEntry, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, group_id, source_person_id, target_person_id, merged_by, merged_at, moved_counts
		 FROM merge_audits WHERE group_id = ? ORDER BY merged_at DESC, rowid DESC`,
		groupID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list merge audits: %w", err)
	}
	defer rows.Close()

	var entries []*models.MergeAuditEntry
	for rows.Next() {
		entry := &models.MergeAuditEntry{}
		var counts string
		if err := rows.Scan(&entry.ID, &entry.GroupID, &entry.SourcePersonID, &entry.TargetPersonID,
			&entry.MergedBy, &entry.MergedAt, &counts); err != nil {
			return nil, fmt.Errorf("failed to scan merge audit: %w", err)
		}
		if err := json.Unmarshal([]byte(counts), &entry.MovedCounts); err != nil {
			return nil, fmt.Errorf("failed to decode moved counts for audit %s: %w", entry.ID, err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate merge audits: %w", err)
	}

	return entries, nil
}

func insertMergeAudit(ctx context.Context, q querier, entry *models.MergeAuditEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.MergedAt == 0 {
		entry.MergedAt = time.Now().Unix()
	}

	counts, err := json.Marshal(entry.MovedCounts)
	if err != nil {
		return fmt.Errorf("failed to encode moved counts: %w", err)
	}

	_, err = q.ExecContext(ctx,
		`INSERT INTO merge_audits (id, group_id, source_person_id, target_person_id, merged_by, merged_at, moved_counts)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.GroupID, entry.SourcePersonID, entry.TargetPersonID,
		entry.MergedBy, entry.MergedAt, string(counts),
	)
	if err != nil {
		return fmt.Errorf("failed to insert merge audit: %w", err)
	}
	return nil
}

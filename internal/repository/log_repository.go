package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/farnsworth-bsc/workshift-api/internal/models"
)

// LogRepository persists the audit trail of instance transitions.
type LogRepository struct {
	db *sqlx.DB
}

// NewLogRepository instantiates a log repository.
func NewLogRepository(db *sqlx.DB) *LogRepository {
	return &LogRepository{db: db}
}

// Create appends a log entry. It takes an ExtContext so the entry lands
// in the same transaction as the transition it records.
func (r *LogRepository) Create(ctx context.Context, exec sqlx.ExtContext, entry *models.ShiftLogEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.EntryTime.IsZero() {
		entry.EntryTime = time.Now().UTC()
	}

	const query = `INSERT INTO shift_log_entries (id, instance_id, profile_id, entry_type, note, hours, entry_time)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err := exec.ExecContext(ctx, query,
		entry.ID, entry.InstanceID, entry.ProfileID, entry.EntryType, entry.Note, entry.Hours, entry.EntryTime)
	if err != nil {
		return fmt.Errorf("create log entry: %w", err)
	}
	return nil
}

// ListByInstance returns an instance's log entries oldest first.
func (r *LogRepository) ListByInstance(ctx context.Context, instanceID string) ([]models.ShiftLogEntry, error) {
	const query = `SELECT l.id, l.instance_id, l.profile_id, l.entry_type, l.note, l.hours, l.entry_time,
		COALESCE(m.username, '') AS username
		FROM shift_log_entries l
		LEFT JOIN workshift_profiles wp ON wp.id = l.profile_id
		LEFT JOIN members m ON m.id = wp.member_id
		WHERE l.instance_id = $1 ORDER BY l.entry_time, l.id`
	var entries []models.ShiftLogEntry
	if err := r.db.SelectContext(ctx, &entries, query, instanceID); err != nil {
		return nil, fmt.Errorf("list log entries: %w", err)
	}
	return entries, nil
}

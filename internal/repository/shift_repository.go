package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/farnsworth-bsc/workshift-api/internal/models"
)

const shiftDetailColumns = `s.id, s.type_id, s.pool_id, s.title, s.day, s.week_long, s.start_time, s.end_time,
	s.hours, s.count, s.active, s.verify, s.addendum, s.created_at, s.updated_at,
	t.title AS type_title, t.assignment AS type_assignment, p.title AS pool_title, p.semester_id`

const shiftDetailJoins = `FROM regular_workshifts s
	JOIN workshift_types t ON t.id = s.type_id
	JOIN workshift_pools p ON p.id = s.pool_id`

// ShiftRepository handles persistence for recurring workshifts and their
// assignee sets.
type ShiftRepository struct {
	db *sqlx.DB
}

// NewShiftRepository instantiates a shift repository.
func NewShiftRepository(db *sqlx.DB) *ShiftRepository {
	return &ShiftRepository{db: db}
}

// List returns shifts matching provided filters.
func (r *ShiftRepository) List(ctx context.Context, filter models.ShiftFilter) ([]models.ShiftDetail, int, error) {
	base := shiftDetailJoins + " WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.PoolID != "" {
		conditions = append(conditions, fmt.Sprintf("s.pool_id = $%d", len(args)+1))
		args = append(args, filter.PoolID)
	}
	if filter.TypeID != "" {
		conditions = append(conditions, fmt.Sprintf("s.type_id = $%d", len(args)+1))
		args = append(args, filter.TypeID)
	}
	if filter.SemesterID != "" {
		conditions = append(conditions, fmt.Sprintf("p.semester_id = $%d", len(args)+1))
		args = append(args, filter.SemesterID)
	}
	if filter.Active != nil {
		conditions = append(conditions, fmt.Sprintf("s.active = $%d", len(args)+1))
		args = append(args, *filter.Active)
	}
	if filter.Day != nil {
		conditions = append(conditions, fmt.Sprintf("s.day = $%d", len(args)+1))
		args = append(args, *filter.Day)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 200 {
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY s.day, s.start_time, s.title LIMIT %d OFFSET %d",
		shiftDetailColumns, base, size, offset)

	var shifts []models.ShiftDetail
	if err := r.db.SelectContext(ctx, &shifts, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list shifts: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count shifts: %w", err)
	}
	return shifts, total, nil
}

// FindByID loads a shift with catalog and pool context.
func (r *ShiftRepository) FindByID(ctx context.Context, id string) (*models.ShiftDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE s.id = $1`, shiftDetailColumns, shiftDetailJoins)
	var shift models.ShiftDetail
	if err := r.db.GetContext(ctx, &shift, query, id); err != nil {
		return nil, err
	}
	return &shift, nil
}

// ListAutoAssignable returns active shifts in a pool whose catalog type is
// auto-assigned, the candidate set for the assignment algorithm.
func (r *ShiftRepository) ListAutoAssignable(ctx context.Context, poolID string) ([]models.ShiftDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE s.pool_id = $1 AND s.active = TRUE AND t.assignment = $2
		ORDER BY s.day, s.start_time, s.title`, shiftDetailColumns, shiftDetailJoins)
	var shifts []models.ShiftDetail
	if err := r.db.SelectContext(ctx, &shifts, query, poolID, models.AssignmentModeAuto); err != nil {
		return nil, fmt.Errorf("list auto-assignable shifts: %w", err)
	}
	return shifts, nil
}

// Create inserts a new recurring shift.
func (r *ShiftRepository) Create(ctx context.Context, shift *models.RegularWorkshift) error {
	if shift.ID == "" {
		shift.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	shift.CreatedAt = now
	shift.UpdatedAt = now

	const query = `INSERT INTO regular_workshifts (id, type_id, pool_id, title, day, week_long, start_time, end_time,
		hours, count, active, verify, addendum, created_at, updated_at)
		VALUES (:id, :type_id, :pool_id, :title, :day, :week_long, :start_time, :end_time,
		:hours, :count, :active, :verify, :addendum, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, shift); err != nil {
		return fmt.Errorf("create shift: %w", err)
	}
	return nil
}

// Update modifies a recurring shift definition.
func (r *ShiftRepository) Update(ctx context.Context, shift *models.RegularWorkshift) error {
	shift.UpdatedAt = time.Now().UTC()
	const query = `UPDATE regular_workshifts SET type_id = :type_id, pool_id = :pool_id, title = :title, day = :day,
		week_long = :week_long, start_time = :start_time, end_time = :end_time, hours = :hours, count = :count,
		active = :active, verify = :verify, addendum = :addendum, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, shift); err != nil {
		return fmt.Errorf("update shift: %w", err)
	}
	return nil
}

// SetActive toggles the active flag only.
func (r *ShiftRepository) SetActive(ctx context.Context, exec sqlx.ExtContext, id string, active bool) error {
	const query = `UPDATE regular_workshifts SET active = $2, updated_at = $3 WHERE id = $1`
	if _, err := exec.ExecContext(ctx, query, id, active, time.Now().UTC()); err != nil {
		return fmt.Errorf("set shift active: %w", err)
	}
	return nil
}

// Delete removes a shift permanently. Instance detachment is the
// service's responsibility and happens in the same transaction.
func (r *ShiftRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM shift_assignees WHERE shift_id = $1`, id); err != nil {
		return fmt.Errorf("clear shift assignees: %w", err)
	}
	if _, err := exec.ExecContext(ctx, `DELETE FROM regular_workshifts WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete shift: %w", err)
	}
	return nil
}

// ListAssigneeIDs returns profile IDs currently holding the shift.
func (r *ShiftRepository) ListAssigneeIDs(ctx context.Context, shiftID string) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids,
		`SELECT profile_id FROM shift_assignees WHERE shift_id = $1 ORDER BY profile_id`, shiftID)
	if err != nil {
		return nil, fmt.Errorf("list shift assignees: %w", err)
	}
	return ids, nil
}

// CountAssignees returns the current headcount on a shift.
func (r *ShiftRepository) CountAssignees(ctx context.Context, shiftID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM shift_assignees WHERE shift_id = $1`, shiftID); err != nil {
		return 0, fmt.Errorf("count shift assignees: %w", err)
	}
	return count, nil
}

// AddAssignee links a profile to the shift.
func (r *ShiftRepository) AddAssignee(ctx context.Context, exec sqlx.ExtContext, shiftID, profileID string) error {
	const query = `INSERT INTO shift_assignees (shift_id, profile_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if _, err := exec.ExecContext(ctx, query, shiftID, profileID); err != nil {
		return fmt.Errorf("add shift assignee: %w", err)
	}
	return nil
}

// RemoveAssignee unlinks a profile from the shift.
func (r *ShiftRepository) RemoveAssignee(ctx context.Context, exec sqlx.ExtContext, shiftID, profileID string) error {
	const query = `DELETE FROM shift_assignees WHERE shift_id = $1 AND profile_id = $2`
	if _, err := exec.ExecContext(ctx, query, shiftID, profileID); err != nil {
		return fmt.Errorf("remove shift assignee: %w", err)
	}
	return nil
}

// ClearAssignees unlinks every profile from the shift.
func (r *ShiftRepository) ClearAssignees(ctx context.Context, exec sqlx.ExtContext, shiftID string) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM shift_assignees WHERE shift_id = $1`, shiftID); err != nil {
		return fmt.Errorf("clear shift assignees: %w", err)
	}
	return nil
}

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

const instanceDetailColumns = `i.id, i.semester_id, i.shift_id, i.info_id, i.date, i.workshifter_id, i.liable_id,
	i.verifier_id, i.intended_hours, i.hours, i.closed, i.blown, i.verify, i.week_long, i.created_at, i.updated_at,
	COALESCE(s.title, fi.title, '') AS title,
	COALESCE(t.description, fi.description, '') AS description,
	COALESCE(s.start_time, fi.start_time, '') AS start_time,
	COALESCE(s.end_time, fi.end_time, '') AS end_time,
	p.id AS pool_id, p.title AS pool_title, p.sign_out_cutoff_hours, p.verify_cutoff_hours, p.any_blown, p.self_verify`

const instanceDetailJoins = `FROM workshift_instances i
	LEFT JOIN regular_workshifts s ON s.id = i.shift_id
	LEFT JOIN workshift_types t ON t.id = s.type_id
	LEFT JOIN instance_infos fi ON fi.id = i.info_id
	JOIN workshift_pools p ON p.id = COALESCE(s.pool_id, fi.pool_id)`

// InstanceRepository handles persistence for dated workshift instances,
// their freestanding info records and audit logs. State-changing updates
// take an ExtContext so the service can wrap each transition, its hour
// adjustment and its log entry into one transaction.
type InstanceRepository struct {
	db *sqlx.DB
}

// NewInstanceRepository instantiates an instance repository.
func NewInstanceRepository(db *sqlx.DB) *InstanceRepository {
	return &InstanceRepository{db: db}
}

// List returns instance details matching provided filters in date order.
func (r *InstanceRepository) List(ctx context.Context, filter models.InstanceFilter) ([]models.InstanceDetail, int, error) {
	base := instanceDetailJoins + " WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.SemesterID != "" {
		conditions = append(conditions, fmt.Sprintf("i.semester_id = $%d", len(args)+1))
		args = append(args, filter.SemesterID)
	}
	if filter.ShiftID != "" {
		conditions = append(conditions, fmt.Sprintf("i.shift_id = $%d", len(args)+1))
		args = append(args, filter.ShiftID)
	}
	if filter.PoolID != "" {
		conditions = append(conditions, fmt.Sprintf("p.id = $%d", len(args)+1))
		args = append(args, filter.PoolID)
	}
	if filter.WorkshifterID != "" {
		conditions = append(conditions, fmt.Sprintf("i.workshifter_id = $%d", len(args)+1))
		args = append(args, filter.WorkshifterID)
	}
	if filter.DateFrom != nil {
		conditions = append(conditions, fmt.Sprintf("i.date >= $%d", len(args)+1))
		args = append(args, *filter.DateFrom)
	}
	if filter.DateTo != nil {
		conditions = append(conditions, fmt.Sprintf("i.date <= $%d", len(args)+1))
		args = append(args, *filter.DateTo)
	}
	if filter.Closed != nil {
		conditions = append(conditions, fmt.Sprintf("i.closed = $%d", len(args)+1))
		args = append(args, *filter.Closed)
	}
	if filter.Blown != nil {
		conditions = append(conditions, fmt.Sprintf("i.blown = $%d", len(args)+1))
		args = append(args, *filter.Blown)
	}
	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 500 {
		size = 100
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY i.date, start_time LIMIT %d OFFSET %d",
		instanceDetailColumns, base, size, offset)

	var instances []models.InstanceDetail
	if err := r.db.SelectContext(ctx, &instances, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list instances: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count instances: %w", err)
	}
	return instances, total, nil
}

// FindDetail loads one instance with shift/info and pool policy context.
func (r *InstanceRepository) FindDetail(ctx context.Context, id string) (*models.InstanceDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE i.id = $1`, instanceDetailColumns, instanceDetailJoins)
	var instance models.InstanceDetail
	if err := r.db.GetContext(ctx, &instance, query, id); err != nil {
		return nil, err
	}
	return &instance, nil
}

// ExistingDates returns how many instances a shift already has per date,
// keyed by ISO date string. Instance generation tops dates up to the
// shift's headcount instead of blindly inserting, keeping it idempotent.
func (r *InstanceRepository) ExistingDates(ctx context.Context, shiftID string) (map[string]int, error) {
	var dates []time.Time
	err := r.db.SelectContext(ctx, &dates,
		`SELECT date FROM workshift_instances WHERE shift_id = $1`, shiftID)
	if err != nil {
		return nil, fmt.Errorf("list existing instance dates: %w", err)
	}
	existing := make(map[string]int, len(dates))
	for _, d := range dates {
		existing[d.Format("2006-01-02")]++
	}
	return existing, nil
}

// Create inserts an instance row.
func (r *InstanceRepository) Create(ctx context.Context, exec sqlx.ExtContext, instance *models.WorkshiftInstance) error {
	if instance.ID == "" {
		instance.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	instance.CreatedAt = now
	instance.UpdatedAt = now

	const query = `INSERT INTO workshift_instances (id, semester_id, shift_id, info_id, date, workshifter_id,
		liable_id, verifier_id, intended_hours, hours, closed, blown, verify, week_long, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err := exec.ExecContext(ctx, query,
		instance.ID, instance.SemesterID, instance.ShiftID, instance.InfoID, instance.Date,
		instance.WorkshifterID, instance.LiableID, instance.VerifierID,
		instance.IntendedHours, instance.Hours, instance.Closed, instance.Blown,
		instance.Verify, instance.WeekLong, instance.CreatedAt, instance.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create instance: %w", err)
	}
	return nil
}

// CreateInfo inserts a freestanding info record.
func (r *InstanceRepository) CreateInfo(ctx context.Context, exec sqlx.ExtContext, info *models.InstanceInfo) error {
	if info.ID == "" {
		info.ID = uuid.NewString()
	}
	info.CreatedAt = time.Now().UTC()

	const query = `INSERT INTO instance_infos (id, title, description, pool_id, start_time, end_time, verify, week_long, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err := exec.ExecContext(ctx, query,
		info.ID, info.Title, info.Description, info.PoolID, info.StartTime, info.EndTime,
		info.Verify, info.WeekLong, info.CreatedAt)
	if err != nil {
		return fmt.Errorf("create instance info: %w", err)
	}
	return nil
}

// UpdateStaffing sets workshifter and liable on an instance.
func (r *InstanceRepository) UpdateStaffing(ctx context.Context, exec sqlx.ExtContext, id string, workshifterID, liableID *string) error {
	const query = `UPDATE workshift_instances SET workshifter_id = $2, liable_id = $3, updated_at = $4 WHERE id = $1`
	if _, err := exec.ExecContext(ctx, query, id, workshifterID, liableID, time.Now().UTC()); err != nil {
		return fmt.Errorf("update instance staffing: %w", err)
	}
	return nil
}

// CloseVerified marks an open instance verified and closed. The guard on
// closed = FALSE keeps concurrent transitions from double-applying.
func (r *InstanceRepository) CloseVerified(ctx context.Context, exec sqlx.ExtContext, id, verifierID string) (bool, error) {
	const query = `UPDATE workshift_instances SET verifier_id = $2, closed = TRUE, updated_at = $3
		WHERE id = $1 AND closed = FALSE`
	res, err := exec.ExecContext(ctx, query, id, verifierID, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("close verified: %w", err)
	}
	return rowsAffected(res), nil
}

// ReopenVerified reverses a verification.
func (r *InstanceRepository) ReopenVerified(ctx context.Context, exec sqlx.ExtContext, id string) (bool, error) {
	const query = `UPDATE workshift_instances SET verifier_id = NULL, closed = FALSE, updated_at = $2
		WHERE id = $1 AND closed = TRUE AND blown = FALSE`
	res, err := exec.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("reopen verified: %w", err)
	}
	return rowsAffected(res), nil
}

// CloseBlown marks an open instance blown and closed.
func (r *InstanceRepository) CloseBlown(ctx context.Context, exec sqlx.ExtContext, id string) (bool, error) {
	const query = `UPDATE workshift_instances SET blown = TRUE, closed = TRUE, updated_at = $2
		WHERE id = $1 AND closed = FALSE`
	res, err := exec.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("close blown: %w", err)
	}
	return rowsAffected(res), nil
}

// ReopenBlown reverses a blown closure.
func (r *InstanceRepository) ReopenBlown(ctx context.Context, exec sqlx.ExtContext, id string) (bool, error) {
	const query = `UPDATE workshift_instances SET blown = FALSE, closed = FALSE, updated_at = $2
		WHERE id = $1 AND closed = TRUE AND blown = TRUE`
	res, err := exec.ExecContext(ctx, query, id, time.Now().UTC())
	if err != nil {
		return false, fmt.Errorf("reopen blown: %w", err)
	}
	return rowsAffected(res), nil
}

// UpdateHours sets the actual hours credit on an instance.
func (r *InstanceRepository) UpdateHours(ctx context.Context, exec sqlx.ExtContext, id string, hours float64) error {
	const query = `UPDATE workshift_instances SET hours = $2, updated_at = $3 WHERE id = $1`
	if _, err := exec.ExecContext(ctx, query, id, hours, time.Now().UTC()); err != nil {
		return fmt.Errorf("update instance hours: %w", err)
	}
	return nil
}

// ListOpenByShift returns open instances of one shift from a date onward.
func (r *InstanceRepository) ListOpenByShift(ctx context.Context, shiftID string, from time.Time) ([]models.WorkshiftInstance, error) {
	const query = `SELECT id, semester_id, shift_id, info_id, date, workshifter_id, liable_id, verifier_id,
		intended_hours, hours, closed, blown, verify, week_long, created_at, updated_at
		FROM workshift_instances WHERE shift_id = $1 AND closed = FALSE AND date >= $2 ORDER BY date`
	var instances []models.WorkshiftInstance
	if err := r.db.SelectContext(ctx, &instances, query, shiftID, from); err != nil {
		return nil, fmt.Errorf("list open instances: %w", err)
	}
	return instances, nil
}

// DeleteOpenByShift removes all open instances of a shift along with
// their logs. Used when a shift is deactivated or its recurrence edited.
func (r *InstanceRepository) DeleteOpenByShift(ctx context.Context, exec sqlx.ExtContext, shiftID string) error {
	const logQuery = `DELETE FROM shift_log_entries WHERE instance_id IN
		(SELECT id FROM workshift_instances WHERE shift_id = $1 AND closed = FALSE)`
	if _, err := exec.ExecContext(ctx, logQuery, shiftID); err != nil {
		return fmt.Errorf("delete open instance logs: %w", err)
	}
	const query = `DELETE FROM workshift_instances WHERE shift_id = $1 AND closed = FALSE`
	if _, err := exec.ExecContext(ctx, query, shiftID); err != nil {
		return fmt.Errorf("delete open instances: %w", err)
	}
	return nil
}

// DetachClosed re-points a shift's closed instances at a freestanding
// info record, preserving history past the shift's deletion.
func (r *InstanceRepository) DetachClosed(ctx context.Context, exec sqlx.ExtContext, shiftID, infoID string) error {
	const query = `UPDATE workshift_instances SET shift_id = NULL, info_id = $2, updated_at = $3
		WHERE shift_id = $1 AND closed = TRUE`
	if _, err := exec.ExecContext(ctx, query, shiftID, infoID, time.Now().UTC()); err != nil {
		return fmt.Errorf("detach closed instances: %w", err)
	}
	return nil
}

// Delete removes one instance and its logs.
func (r *InstanceRepository) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	if _, err := exec.ExecContext(ctx, `DELETE FROM shift_log_entries WHERE instance_id = $1`, id); err != nil {
		return fmt.Errorf("delete instance logs: %w", err)
	}
	if _, err := exec.ExecContext(ctx, `DELETE FROM workshift_instances WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete instance: %w", err)
	}
	return nil
}

// ListPastOpen returns open instances dated on or before the given moment
// for the blown-shift collector. The caller applies end-time cutoffs.
func (r *InstanceRepository) ListPastOpen(ctx context.Context, semesterID string, asOf time.Time) ([]models.InstanceDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s WHERE i.closed = FALSE AND i.date <= $1`,
		instanceDetailColumns, instanceDetailJoins)
	args := []interface{}{asOf}
	if semesterID != "" {
		query += " AND i.semester_id = $2"
		args = append(args, semesterID)
	}
	query += " ORDER BY i.date, start_time"

	var instances []models.InstanceDetail
	if err := r.db.SelectContext(ctx, &instances, query, args...); err != nil {
		return nil, fmt.Errorf("list past open instances: %w", err)
	}
	return instances, nil
}

// ListUnfilledOpen returns open, unstaffed instances in a pool from a
// date onward, for the random fallback assigner.
func (r *InstanceRepository) ListUnfilledOpen(ctx context.Context, poolID string, from time.Time) ([]models.InstanceDetail, error) {
	query := fmt.Sprintf(`SELECT %s %s
		WHERE p.id = $1 AND i.closed = FALSE AND i.workshifter_id IS NULL AND i.date >= $2
		ORDER BY i.date, start_time`, instanceDetailColumns, instanceDetailJoins)
	var instances []models.InstanceDetail
	if err := r.db.SelectContext(ctx, &instances, query, poolID, from); err != nil {
		return nil, fmt.Errorf("list unfilled instances: %w", err)
	}
	return instances, nil
}

func rowsAffected(res interface{ RowsAffected() (int64, error) }) bool {
	n, err := res.RowsAffected()
	return err == nil && n > 0
}

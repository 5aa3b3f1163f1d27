package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/farnsworth-bsc/workshift-api/internal/models"
)

const poolHoursColumns = `id, pool_id, profile_id, hours, assigned_hours, standing, hour_adjustment,
	first_date_standing, second_date_standing, third_date_standing, last_standing_update, created_at, updated_at`

// PoolHoursRepository handles persistence for per-member, per-pool hour
// standings. Delta updates take an ExtContext so services can batch them
// into a transaction with the state change that justifies them.
type PoolHoursRepository struct {
	db *sqlx.DB
}

// NewPoolHoursRepository instantiates a pool-hours repository.
func NewPoolHoursRepository(db *sqlx.DB) *PoolHoursRepository {
	return &PoolHoursRepository{db: db}
}

// Find loads the unique (profile, pool) standing row.
func (r *PoolHoursRepository) Find(ctx context.Context, profileID, poolID string) (*models.PoolHours, error) {
	query := fmt.Sprintf(`SELECT %s FROM pool_hours WHERE profile_id = $1 AND pool_id = $2`, poolHoursColumns)
	var hours models.PoolHours
	if err := r.db.GetContext(ctx, &hours, query, profileID, poolID); err != nil {
		return nil, err
	}
	return &hours, nil
}

// ListByProfile returns all standings held by one profile.
func (r *PoolHoursRepository) ListByProfile(ctx context.Context, profileID string) ([]models.PoolHours, error) {
	query := fmt.Sprintf(`SELECT %s FROM pool_hours WHERE profile_id = $1`, poolHoursColumns)
	var hours []models.PoolHours
	if err := r.db.SelectContext(ctx, &hours, query, profileID); err != nil {
		return nil, fmt.Errorf("list pool hours by profile: %w", err)
	}
	return hours, nil
}

// ListByPool returns all standings within one pool.
func (r *PoolHoursRepository) ListByPool(ctx context.Context, poolID string) ([]models.PoolHours, error) {
	query := fmt.Sprintf(`SELECT %s FROM pool_hours WHERE pool_id = $1`, poolHoursColumns)
	var hours []models.PoolHours
	if err := r.db.SelectContext(ctx, &hours, query, poolID); err != nil {
		return nil, fmt.Errorf("list pool hours by pool: %w", err)
	}
	return hours, nil
}

// ExistingPairs returns the (profile, pool) pairs already holding a
// standing row in a semester, so back-fills stay idempotent.
func (r *PoolHoursRepository) ExistingPairs(ctx context.Context, semesterID string) (map[string]struct{}, error) {
	const query = `SELECT ph.profile_id, ph.pool_id FROM pool_hours ph
		JOIN workshift_pools p ON p.id = ph.pool_id WHERE p.semester_id = $1`
	rows, err := r.db.QueryxContext(ctx, query, semesterID)
	if err != nil {
		return nil, fmt.Errorf("list existing pool hour pairs: %w", err)
	}
	defer rows.Close()

	pairs := make(map[string]struct{})
	for rows.Next() {
		var profileID, poolID string
		if err := rows.Scan(&profileID, &poolID); err != nil {
			return nil, fmt.Errorf("scan pool hour pair: %w", err)
		}
		pairs[profileID+"|"+poolID] = struct{}{}
	}
	return pairs, rows.Err()
}

// Create inserts a standing row.
func (r *PoolHoursRepository) Create(ctx context.Context, hours *models.PoolHours) error {
	if hours.ID == "" {
		hours.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	hours.CreatedAt = now
	hours.UpdatedAt = now

	const query = `INSERT INTO pool_hours (id, pool_id, profile_id, hours, assigned_hours, standing, hour_adjustment,
		first_date_standing, second_date_standing, third_date_standing, last_standing_update, created_at, updated_at)
		VALUES (:id, :pool_id, :profile_id, :hours, :assigned_hours, :standing, :hour_adjustment,
		:first_date_standing, :second_date_standing, :third_date_standing, :last_standing_update, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, hours); err != nil {
		return fmt.Errorf("create pool hours: %w", err)
	}
	return nil
}

// AdjustStanding applies a delta to a member's standing.
func (r *PoolHoursRepository) AdjustStanding(ctx context.Context, exec sqlx.ExtContext, id string, delta float64) error {
	const query = `UPDATE pool_hours SET standing = standing + $2, updated_at = $3 WHERE id = $1`
	if _, err := exec.ExecContext(ctx, query, id, delta, time.Now().UTC()); err != nil {
		return fmt.Errorf("adjust standing: %w", err)
	}
	return nil
}

// AdjustAssigned applies a delta to a member's assigned recurring hours.
func (r *PoolHoursRepository) AdjustAssigned(ctx context.Context, exec sqlx.ExtContext, id string, delta float64) error {
	const query = `UPDATE pool_hours SET assigned_hours = assigned_hours + $2, updated_at = $3 WHERE id = $1`
	if _, err := exec.ExecContext(ctx, query, id, delta, time.Now().UTC()); err != nil {
		return fmt.Errorf("adjust assigned hours: %w", err)
	}
	return nil
}

// UpdateRequirement sets the periodic requirement on a standing row.
func (r *PoolHoursRepository) UpdateRequirement(ctx context.Context, id string, hours float64) error {
	const query = `UPDATE pool_hours SET hours = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, hours, time.Now().UTC()); err != nil {
		return fmt.Errorf("update pool hours requirement: %w", err)
	}
	return nil
}

// SetAdjustment replaces the manual adjustment and applies the delta to
// standing in one statement.
func (r *PoolHoursRepository) SetAdjustment(ctx context.Context, id string, adjustment float64) error {
	const query = `UPDATE pool_hours
		SET standing = standing + ($2 - hour_adjustment), hour_adjustment = $2, updated_at = $3
		WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, adjustment, time.Now().UTC()); err != nil {
		return fmt.Errorf("set hour adjustment: %w", err)
	}
	return nil
}

// SnapshotFineDate copies current standing into one of the three fine
// slots for every row in the pool.
func (r *PoolHoursRepository) SnapshotFineDate(ctx context.Context, poolID string, slot int) error {
	var column string
	switch slot {
	case 1:
		column = "first_date_standing"
	case 2:
		column = "second_date_standing"
	case 3:
		column = "third_date_standing"
	default:
		return fmt.Errorf("invalid fine date slot %d", slot)
	}
	// One-shot per slot: rows already snapshotted keep their value.
	query := fmt.Sprintf(`UPDATE pool_hours SET %s = standing, updated_at = $2 WHERE pool_id = $1 AND %s IS NULL`, column, column)
	if _, err := r.db.ExecContext(ctx, query, poolID, time.Now().UTC()); err != nil {
		return fmt.Errorf("snapshot fine date: %w", err)
	}
	return nil
}

// MarkStandingUpdated records the periodic reconciliation watermark.
func (r *PoolHoursRepository) MarkStandingUpdated(ctx context.Context, exec sqlx.ExtContext, id string, at time.Time) error {
	const query = `UPDATE pool_hours SET last_standing_update = $2, updated_at = $2 WHERE id = $1`
	if _, err := exec.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("mark standing updated: %w", err)
	}
	return nil
}

// ListStandings returns the joined standing summary for a semester,
// optionally narrowed to one pool.
func (r *PoolHoursRepository) ListStandings(ctx context.Context, semesterID, poolID string) ([]models.StandingSummary, error) {
	query := `SELECT ph.profile_id, m.full_name AS member_name, m.email, ph.pool_id, p.title AS pool_title,
		ph.hours, ph.assigned_hours, ph.standing
		FROM pool_hours ph
		JOIN workshift_pools p ON p.id = ph.pool_id
		JOIN workshift_profiles wp ON wp.id = ph.profile_id
		JOIN members m ON m.id = wp.member_id
		WHERE p.semester_id = $1`
	args := []interface{}{semesterID}
	if poolID != "" {
		query += " AND ph.pool_id = $2"
		args = append(args, poolID)
	}
	query += " ORDER BY p.is_primary DESC, p.title, m.full_name"

	var standings []models.StandingSummary
	if err := r.db.SelectContext(ctx, &standings, query, args...); err != nil {
		return nil, fmt.Errorf("list standings: %w", err)
	}
	return standings, nil
}

package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/farnsworth-bsc/workshift-api/internal/models"
)

const poolColumns = `id, semester_id, title, is_primary, hours, weeks_per_period, sign_out_cutoff_hours,
	verify_cutoff_hours, self_verify, any_blown, first_fine_date, second_fine_date, third_fine_date,
	created_at, updated_at`

// PoolRepository handles persistence for workshift pools.
type PoolRepository struct {
	db *sqlx.DB
}

// NewPoolRepository instantiates a pool repository.
func NewPoolRepository(db *sqlx.DB) *PoolRepository {
	return &PoolRepository{db: db}
}

// ListBySemester returns a semester's pools, primary first.
func (r *PoolRepository) ListBySemester(ctx context.Context, semesterID string) ([]models.WorkshiftPool, error) {
	query := fmt.Sprintf(`SELECT %s FROM workshift_pools WHERE semester_id = $1 ORDER BY is_primary DESC, title`, poolColumns)
	var pools []models.WorkshiftPool
	if err := r.db.SelectContext(ctx, &pools, query, semesterID); err != nil {
		return nil, fmt.Errorf("list pools: %w", err)
	}
	return pools, nil
}

// FindByID loads a pool by identifier.
func (r *PoolRepository) FindByID(ctx context.Context, id string) (*models.WorkshiftPool, error) {
	query := fmt.Sprintf(`SELECT %s FROM workshift_pools WHERE id = $1`, poolColumns)
	var pool models.WorkshiftPool
	if err := r.db.GetContext(ctx, &pool, query, id); err != nil {
		return nil, err
	}
	return &pool, nil
}

// FindPrimary loads the primary pool of a semester.
func (r *PoolRepository) FindPrimary(ctx context.Context, semesterID string) (*models.WorkshiftPool, error) {
	query := fmt.Sprintf(`SELECT %s FROM workshift_pools WHERE semester_id = $1 AND is_primary = TRUE LIMIT 1`, poolColumns)
	var pool models.WorkshiftPool
	if err := r.db.GetContext(ctx, &pool, query, semesterID); err != nil {
		return nil, err
	}
	return &pool, nil
}

// ExistsByTitle checks the (semester, title) uniqueness constraint.
func (r *PoolRepository) ExistsByTitle(ctx context.Context, semesterID, title, excludeID string) (bool, error) {
	base := `SELECT 1 FROM workshift_pools WHERE semester_id = $1 AND title = $2`
	args := []interface{}{semesterID, title}
	if excludeID != "" {
		base += " AND id <> $3"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, base+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check pool uniqueness: %w", err)
	}
	return true, nil
}

// Create inserts a new pool record.
func (r *PoolRepository) Create(ctx context.Context, pool *models.WorkshiftPool) error {
	if pool.ID == "" {
		pool.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	pool.CreatedAt = now
	pool.UpdatedAt = now

	const query = `INSERT INTO workshift_pools (id, semester_id, title, is_primary, hours, weeks_per_period,
		sign_out_cutoff_hours, verify_cutoff_hours, self_verify, any_blown,
		first_fine_date, second_fine_date, third_fine_date, created_at, updated_at)
		VALUES (:id, :semester_id, :title, :is_primary, :hours, :weeks_per_period,
		:sign_out_cutoff_hours, :verify_cutoff_hours, :self_verify, :any_blown,
		:first_fine_date, :second_fine_date, :third_fine_date, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, pool); err != nil {
		return fmt.Errorf("create pool: %w", err)
	}
	return nil
}

// Update modifies an existing pool.
func (r *PoolRepository) Update(ctx context.Context, pool *models.WorkshiftPool) error {
	pool.UpdatedAt = time.Now().UTC()
	const query = `UPDATE workshift_pools SET title = :title, is_primary = :is_primary, hours = :hours,
		weeks_per_period = :weeks_per_period, sign_out_cutoff_hours = :sign_out_cutoff_hours,
		verify_cutoff_hours = :verify_cutoff_hours, self_verify = :self_verify, any_blown = :any_blown,
		first_fine_date = :first_fine_date, second_fine_date = :second_fine_date, third_fine_date = :third_fine_date,
		updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, pool); err != nil {
		return fmt.Errorf("update pool: %w", err)
	}
	return nil
}

// Delete removes a pool with its manager links and hour records.
func (r *PoolRepository) Delete(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete pool tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM pool_managers WHERE pool_id = $1`, id); err != nil {
		return fmt.Errorf("delete pool managers: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM pool_hours WHERE pool_id = $1`, id); err != nil {
		return fmt.Errorf("delete pool hours: %w", err)
	}
	if _, err = tx.ExecContext(ctx, `DELETE FROM workshift_pools WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete pool: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete pool tx: %w", err)
	}
	return nil
}

// SetManagers replaces the pool's manager set.
func (r *PoolRepository) SetManagers(ctx context.Context, poolID string, memberIDs []string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin set pool managers tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM pool_managers WHERE pool_id = $1`, poolID); err != nil {
		return fmt.Errorf("clear pool managers: %w", err)
	}
	for _, memberID := range memberIDs {
		if _, err = tx.ExecContext(ctx,
			`INSERT INTO pool_managers (pool_id, member_id) VALUES ($1, $2)`, poolID, memberID); err != nil {
			return fmt.Errorf("add pool manager: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit set pool managers tx: %w", err)
	}
	return nil
}

// ListManagerIDs returns member IDs managing the pool.
func (r *PoolRepository) ListManagerIDs(ctx context.Context, poolID string) ([]string, error) {
	var ids []string
	err := r.db.SelectContext(ctx, &ids,
		`SELECT member_id FROM pool_managers WHERE pool_id = $1 ORDER BY member_id`, poolID)
	if err != nil {
		return nil, fmt.Errorf("list pool managers: %w", err)
	}
	return ids, nil
}

// IsManager reports whether a member manages the pool.
func (r *PoolRepository) IsManager(ctx context.Context, poolID, memberID string) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists,
		`SELECT 1 FROM pool_managers WHERE pool_id = $1 AND member_id = $2 LIMIT 1`, poolID, memberID)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check pool manager: %w", err)
	}
	return true, nil
}

// ManagerEmails returns contact addresses for managers of every pool in
// a semester, used when surfacing inconsistent-state warnings.
func (r *PoolRepository) ManagerEmails(ctx context.Context, semesterID string) ([]string, error) {
	const query = `SELECT DISTINCT m.email FROM members m
		JOIN pool_managers pm ON pm.member_id = m.id
		JOIN workshift_pools p ON p.id = pm.pool_id
		WHERE p.semester_id = $1 ORDER BY m.email`
	var emails []string
	if err := r.db.SelectContext(ctx, &emails, query, semesterID); err != nil {
		return nil, fmt.Errorf("list manager emails: %w", err)
	}
	return emails, nil
}

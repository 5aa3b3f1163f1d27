package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/farnsworth-bsc/workshift-api/internal/models"
)

const semesterColumns = `id, season, year, rate, policy_url, start_date, end_date, preferences_open, current, created_at, updated_at`

// SemesterRepository handles persistence for workshift semesters.
type SemesterRepository struct {
	db *sqlx.DB
}

// NewSemesterRepository instantiates a semester repository.
func NewSemesterRepository(db *sqlx.DB) *SemesterRepository {
	return &SemesterRepository{db: db}
}

// List returns semesters matching provided filters, newest first.
func (r *SemesterRepository) List(ctx context.Context, filter models.SemesterFilter) ([]models.Semester, int, error) {
	base := "FROM semesters WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Season != "" {
		conditions = append(conditions, fmt.Sprintf("season = $%d", len(args)+1))
		args = append(args, filter.Season)
	}
	if filter.Year != 0 {
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)+1))
		args = append(args, filter.Year)
	}
	if filter.Current != nil {
		conditions = append(conditions, fmt.Sprintf("current = $%d", len(args)+1))
		args = append(args, *filter.Current)
	}

	if len(conditions) > 0 {
		base += " AND " + strings.Join(conditions, " AND ")
	}

	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 100 {
		size = 20
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY start_date DESC LIMIT %d OFFSET %d", semesterColumns, base, size, offset)

	var semesters []models.Semester
	if err := r.db.SelectContext(ctx, &semesters, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list semesters: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count semesters: %w", err)
	}

	return semesters, total, nil
}

// FindByID loads a semester by identifier.
func (r *SemesterRepository) FindByID(ctx context.Context, id string) (*models.Semester, error) {
	query := fmt.Sprintf(`SELECT %s FROM semesters WHERE id = $1`, semesterColumns)
	var semester models.Semester
	if err := r.db.GetContext(ctx, &semester, query, id); err != nil {
		return nil, err
	}
	return &semester, nil
}

// FindBySeasonYear loads a semester by its unique (season, year) pair.
func (r *SemesterRepository) FindBySeasonYear(ctx context.Context, season models.Season, year int) (*models.Semester, error) {
	query := fmt.Sprintf(`SELECT %s FROM semesters WHERE season = $1 AND year = $2`, semesterColumns)
	var semester models.Semester
	if err := r.db.GetContext(ctx, &semester, query, season, year); err != nil {
		return nil, err
	}
	return &semester, nil
}

// ListCurrent returns every semester flagged current, most recently
// started first. More than one row signals inconsistent state the caller
// must surface.
func (r *SemesterRepository) ListCurrent(ctx context.Context) ([]models.Semester, error) {
	query := fmt.Sprintf(`SELECT %s FROM semesters WHERE current = TRUE ORDER BY start_date DESC`, semesterColumns)
	var semesters []models.Semester
	if err := r.db.SelectContext(ctx, &semesters, query); err != nil {
		return nil, fmt.Errorf("list current semesters: %w", err)
	}
	return semesters, nil
}

// Create inserts a semester and unsets the current flag on all others in
// one transaction.
func (r *SemesterRepository) Create(ctx context.Context, semester *models.Semester) error {
	if semester.ID == "" {
		semester.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	semester.CreatedAt = now
	semester.UpdatedAt = now

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create semester tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if semester.Current {
		if _, err = tx.ExecContext(ctx,
			`UPDATE semesters SET current = FALSE, updated_at = $1 WHERE current = TRUE`, now); err != nil {
			return fmt.Errorf("unset current semesters: %w", err)
		}
	}

	const query = `INSERT INTO semesters (id, season, year, rate, policy_url, start_date, end_date, preferences_open, current, created_at, updated_at)
		VALUES (:id, :season, :year, :rate, :policy_url, :start_date, :end_date, :preferences_open, :current, :created_at, :updated_at)`
	if _, err = tx.NamedExecContext(ctx, query, semester); err != nil {
		return fmt.Errorf("create semester: %w", err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit create semester tx: %w", err)
	}
	return nil
}

// Update modifies mutable semester fields.
func (r *SemesterRepository) Update(ctx context.Context, semester *models.Semester) error {
	semester.UpdatedAt = time.Now().UTC()
	const query = `UPDATE semesters SET rate = :rate, policy_url = :policy_url, start_date = :start_date,
		end_date = :end_date, preferences_open = :preferences_open, current = :current, updated_at = :updated_at
		WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, semester); err != nil {
		return fmt.Errorf("update semester: %w", err)
	}
	return nil
}

// DeleteCascade removes a semester and all workshift data scoped to it,
// in dependency order, within one transaction.
func (r *SemesterRepository) DeleteCascade(ctx context.Context, id string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete semester tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	steps := []struct {
		name  string
		query string
	}{
		{"shift logs", `DELETE FROM shift_log_entries WHERE instance_id IN (SELECT id FROM workshift_instances WHERE semester_id = $1)`},
		{"instances", `DELETE FROM workshift_instances WHERE semester_id = $1`},
		{"instance infos", `DELETE FROM instance_infos WHERE pool_id IN (SELECT id FROM workshift_pools WHERE semester_id = $1)`},
		{"shift assignees", `DELETE FROM shift_assignees WHERE shift_id IN (SELECT id FROM regular_workshifts WHERE pool_id IN (SELECT id FROM workshift_pools WHERE semester_id = $1))`},
		{"shifts", `DELETE FROM regular_workshifts WHERE pool_id IN (SELECT id FROM workshift_pools WHERE semester_id = $1)`},
		{"pool hours", `DELETE FROM pool_hours WHERE pool_id IN (SELECT id FROM workshift_pools WHERE semester_id = $1)`},
		{"time blocks", `DELETE FROM time_blocks WHERE profile_id IN (SELECT id FROM workshift_profiles WHERE semester_id = $1)`},
		{"ratings", `DELETE FROM workshift_ratings WHERE profile_id IN (SELECT id FROM workshift_profiles WHERE semester_id = $1)`},
		{"profiles", `DELETE FROM workshift_profiles WHERE semester_id = $1`},
		{"pool managers", `DELETE FROM pool_managers WHERE pool_id IN (SELECT id FROM workshift_pools WHERE semester_id = $1)`},
		{"pools", `DELETE FROM workshift_pools WHERE semester_id = $1`},
		{"semester", `DELETE FROM semesters WHERE id = $1`},
	}
	for _, step := range steps {
		if _, err = tx.ExecContext(ctx, step.query, id); err != nil {
			return fmt.Errorf("delete semester %s: %w", step.name, err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit delete semester tx: %w", err)
	}
	return nil
}

// Exists reports whether a (season, year) pair is already taken.
func (r *SemesterRepository) Exists(ctx context.Context, season models.Season, year int) (bool, error) {
	var exists int
	err := r.db.GetContext(ctx, &exists,
		`SELECT 1 FROM semesters WHERE season = $1 AND year = $2 LIMIT 1`, season, year)
	if err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check semester uniqueness: %w", err)
	}
	return true, nil
}

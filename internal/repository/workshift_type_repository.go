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

const typeColumns = `id, title, description, quick_tips, hours, rateable, assignment, created_at, updated_at`

// WorkshiftTypeRepository handles persistence for the chore catalog.
type WorkshiftTypeRepository struct {
	db *sqlx.DB
}

// NewWorkshiftTypeRepository instantiates a type repository.
func NewWorkshiftTypeRepository(db *sqlx.DB) *WorkshiftTypeRepository {
	return &WorkshiftTypeRepository{db: db}
}

// List returns catalog entries matching provided filters.
func (r *WorkshiftTypeRepository) List(ctx context.Context, filter models.WorkshiftTypeFilter) ([]models.WorkshiftType, int, error) {
	base := "FROM workshift_types WHERE 1=1"
	var conditions []string
	var args []interface{}

	if filter.Rateable != nil {
		conditions = append(conditions, fmt.Sprintf("rateable = $%d", len(args)+1))
		args = append(args, *filter.Rateable)
	}
	if filter.Assignment != "" {
		conditions = append(conditions, fmt.Sprintf("assignment = $%d", len(args)+1))
		args = append(args, filter.Assignment)
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
		size = 50
	}
	offset := (page - 1) * size

	query := fmt.Sprintf("SELECT %s %s ORDER BY title LIMIT %d OFFSET %d", typeColumns, base, size, offset)

	var types []models.WorkshiftType
	if err := r.db.SelectContext(ctx, &types, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list workshift types: %w", err)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, fmt.Sprintf("SELECT COUNT(*) %s", base), args...); err != nil {
		return nil, 0, fmt.Errorf("count workshift types: %w", err)
	}
	return types, total, nil
}

// FindByID loads a type by identifier.
func (r *WorkshiftTypeRepository) FindByID(ctx context.Context, id string) (*models.WorkshiftType, error) {
	query := fmt.Sprintf(`SELECT %s FROM workshift_types WHERE id = $1`, typeColumns)
	var wtype models.WorkshiftType
	if err := r.db.GetContext(ctx, &wtype, query, id); err != nil {
		return nil, err
	}
	return &wtype, nil
}

// FindByTitle loads a type by its unique title.
func (r *WorkshiftTypeRepository) FindByTitle(ctx context.Context, title string) (*models.WorkshiftType, error) {
	query := fmt.Sprintf(`SELECT %s FROM workshift_types WHERE title = $1`, typeColumns)
	var wtype models.WorkshiftType
	if err := r.db.GetContext(ctx, &wtype, query, title); err != nil {
		return nil, err
	}
	return &wtype, nil
}

// ExistsByTitle checks the catalog's unique-title constraint.
func (r *WorkshiftTypeRepository) ExistsByTitle(ctx context.Context, title, excludeID string) (bool, error) {
	base := `SELECT 1 FROM workshift_types WHERE title = $1`
	args := []interface{}{title}
	if excludeID != "" {
		base += " AND id <> $2"
		args = append(args, excludeID)
	}
	var exists int
	if err := r.db.GetContext(ctx, &exists, base+" LIMIT 1", args...); err != nil {
		if err == sql.ErrNoRows {
			return false, nil
		}
		return false, fmt.Errorf("check type uniqueness: %w", err)
	}
	return true, nil
}

// Create inserts a new catalog entry.
func (r *WorkshiftTypeRepository) Create(ctx context.Context, wtype *models.WorkshiftType) error {
	if wtype.ID == "" {
		wtype.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	wtype.CreatedAt = now
	wtype.UpdatedAt = now

	const query = `INSERT INTO workshift_types (id, title, description, quick_tips, hours, rateable, assignment, created_at, updated_at)
		VALUES (:id, :title, :description, :quick_tips, :hours, :rateable, :assignment, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, wtype); err != nil {
		return fmt.Errorf("create workshift type: %w", err)
	}
	return nil
}

// Update modifies a catalog entry.
func (r *WorkshiftTypeRepository) Update(ctx context.Context, wtype *models.WorkshiftType) error {
	wtype.UpdatedAt = time.Now().UTC()
	const query = `UPDATE workshift_types SET title = :title, description = :description, quick_tips = :quick_tips,
		hours = :hours, rateable = :rateable, assignment = :assignment, updated_at = :updated_at WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, wtype); err != nil {
		return fmt.Errorf("update workshift type: %w", err)
	}
	return nil
}

// Delete removes a catalog entry permanently.
func (r *WorkshiftTypeRepository) Delete(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM workshift_types WHERE id = $1`, id); err != nil {
		return fmt.Errorf("delete workshift type: %w", err)
	}
	return nil
}

// CountShifts returns the number of recurring shifts referencing the type.
func (r *WorkshiftTypeRepository) CountShifts(ctx context.Context, id string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM regular_workshifts WHERE type_id = $1`, id); err != nil {
		return 0, fmt.Errorf("count type shifts: %w", err)
	}
	return count, nil
}

package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/farnsworth-bsc/workshift-api/internal/models"
)

const profileColumns = `id, member_id, semester_id, note, preference_save_time, created_at, updated_at`

// ProfileRepository handles persistence for workshift profiles and their
// preference collections (ratings, time blocks).
type ProfileRepository struct {
	db *sqlx.DB
}

// NewProfileRepository instantiates a profile repository.
func NewProfileRepository(db *sqlx.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// ListBySemester returns a semester's profiles joined with member identity.
func (r *ProfileRepository) ListBySemester(ctx context.Context, semesterID string) ([]models.ProfileDetail, error) {
	const query = `SELECT p.id, p.member_id, p.semester_id, p.note, p.preference_save_time, p.created_at, p.updated_at,
		m.username, m.full_name, m.email, m.status
		FROM workshift_profiles p JOIN members m ON m.id = p.member_id
		WHERE p.semester_id = $1 ORDER BY m.username`
	var profiles []models.ProfileDetail
	if err := r.db.SelectContext(ctx, &profiles, query, semesterID); err != nil {
		return nil, fmt.Errorf("list profiles: %w", err)
	}
	return profiles, nil
}

// FindByID loads a profile by identifier.
func (r *ProfileRepository) FindByID(ctx context.Context, id string) (*models.WorkshiftProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM workshift_profiles WHERE id = $1`, profileColumns)
	var profile models.WorkshiftProfile
	if err := r.db.GetContext(ctx, &profile, query, id); err != nil {
		return nil, err
	}
	return &profile, nil
}

// FindByMemberSemester loads the unique (member, semester) profile.
func (r *ProfileRepository) FindByMemberSemester(ctx context.Context, memberID, semesterID string) (*models.WorkshiftProfile, error) {
	query := fmt.Sprintf(`SELECT %s FROM workshift_profiles WHERE member_id = $1 AND semester_id = $2`, profileColumns)
	var profile models.WorkshiftProfile
	if err := r.db.GetContext(ctx, &profile, query, memberID, semesterID); err != nil {
		return nil, err
	}
	return &profile, nil
}

// Create inserts a new profile.
func (r *ProfileRepository) Create(ctx context.Context, profile *models.WorkshiftProfile) error {
	if profile.ID == "" {
		profile.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	profile.CreatedAt = now
	profile.UpdatedAt = now

	const query = `INSERT INTO workshift_profiles (id, member_id, semester_id, note, preference_save_time, created_at, updated_at)
		VALUES (:id, :member_id, :semester_id, :note, :preference_save_time, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, profile); err != nil {
		return fmt.Errorf("create profile: %w", err)
	}
	return nil
}

// UpdateNote stores the manager-facing note on a profile.
func (r *ProfileRepository) UpdateNote(ctx context.Context, id, note string) error {
	const query = `UPDATE workshift_profiles SET note = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, note, time.Now().UTC()); err != nil {
		return fmt.Errorf("update profile note: %w", err)
	}
	return nil
}

// TouchPreferenceSaveTime stamps the last preference submission.
func (r *ProfileRepository) TouchPreferenceSaveTime(ctx context.Context, id string, at time.Time) error {
	const query = `UPDATE workshift_profiles SET preference_save_time = $2, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, at); err != nil {
		return fmt.Errorf("touch preference save time: %w", err)
	}
	return nil
}

// ListRatings returns the profile's workshift type ratings.
func (r *ProfileRepository) ListRatings(ctx context.Context, profileID string) ([]models.WorkshiftRating, error) {
	var ratings []models.WorkshiftRating
	err := r.db.SelectContext(ctx, &ratings,
		`SELECT id, profile_id, type_id, rating FROM workshift_ratings WHERE profile_id = $1`, profileID)
	if err != nil {
		return nil, fmt.Errorf("list ratings: %w", err)
	}
	return ratings, nil
}

// UpsertRating stores one type rating for a profile.
func (r *ProfileRepository) UpsertRating(ctx context.Context, rating *models.WorkshiftRating) error {
	if rating.ID == "" {
		rating.ID = uuid.NewString()
	}
	const query = `INSERT INTO workshift_ratings (id, profile_id, type_id, rating)
		VALUES (:id, :profile_id, :type_id, :rating)
		ON CONFLICT (profile_id, type_id) DO UPDATE SET rating = EXCLUDED.rating`
	if _, err := r.db.NamedExecContext(ctx, query, rating); err != nil {
		return fmt.Errorf("upsert rating: %w", err)
	}
	return nil
}

// ListTimeBlocks returns the profile's availability blocks.
func (r *ProfileRepository) ListTimeBlocks(ctx context.Context, profileID string) ([]models.TimeBlock, error) {
	var blocks []models.TimeBlock
	err := r.db.SelectContext(ctx, &blocks,
		`SELECT id, profile_id, day, start_time, end_time, preference FROM time_blocks WHERE profile_id = $1 ORDER BY day, start_time`,
		profileID)
	if err != nil {
		return nil, fmt.Errorf("list time blocks: %w", err)
	}
	return blocks, nil
}

// ReplaceTimeBlocks swaps the profile's availability blocks atomically.
func (r *ProfileRepository) ReplaceTimeBlocks(ctx context.Context, profileID string, blocks []models.TimeBlock) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin replace time blocks tx: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if _, err = tx.ExecContext(ctx, `DELETE FROM time_blocks WHERE profile_id = $1`, profileID); err != nil {
		return fmt.Errorf("clear time blocks: %w", err)
	}
	for i := range blocks {
		if blocks[i].ID == "" {
			blocks[i].ID = uuid.NewString()
		}
		blocks[i].ProfileID = profileID
		if _, err = tx.NamedExecContext(ctx,
			`INSERT INTO time_blocks (id, profile_id, day, start_time, end_time, preference)
			VALUES (:id, :profile_id, :day, :start_time, :end_time, :preference)`, blocks[i]); err != nil {
			return fmt.Errorf("insert time block: %w", err)
		}
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit replace time blocks tx: %w", err)
	}
	return nil
}

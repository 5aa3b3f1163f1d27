package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/farnsworth-bsc/workshift-api/internal/models"
)

const memberColumns = `id, username, full_name, email, status, workshift_manager, password_hash, active, created_at, updated_at`

// MemberRepository reads house member identities. The membership subsystem
// owns writes; the workshift engine only consumes status and capabilities.
type MemberRepository struct {
	db *sqlx.DB
}

// NewMemberRepository instantiates a member repository.
func NewMemberRepository(db *sqlx.DB) *MemberRepository {
	return &MemberRepository{db: db}
}

// FindByID loads a member by identifier.
func (r *MemberRepository) FindByID(ctx context.Context, id string) (*models.Member, error) {
	query := fmt.Sprintf(`SELECT %s FROM members WHERE id = $1`, memberColumns)
	var member models.Member
	if err := r.db.GetContext(ctx, &member, query, id); err != nil {
		return nil, err
	}
	return &member, nil
}

// FindByUsername loads a member by username.
func (r *MemberRepository) FindByUsername(ctx context.Context, username string) (*models.Member, error) {
	query := fmt.Sprintf(`SELECT %s FROM members WHERE username = $1`, memberColumns)
	var member models.Member
	if err := r.db.GetContext(ctx, &member, query, username); err != nil {
		return nil, err
	}
	return &member, nil
}

// ListEligible returns active residents and boarders, excluding the
// anonymous system account. These members receive workshift profiles.
func (r *MemberRepository) ListEligible(ctx context.Context, anonymousUsername string) ([]models.Member, error) {
	query := fmt.Sprintf(
		`SELECT %s FROM members WHERE active = TRUE AND status IN ($1, $2) AND username <> $3 ORDER BY username`,
		memberColumns,
	)
	var members []models.Member
	err := r.db.SelectContext(ctx, &members, query,
		models.MemberStatusResident, models.MemberStatusBoarder, anonymousUsername)
	if err != nil {
		return nil, fmt.Errorf("list eligible members: %w", err)
	}
	return members, nil
}

// ListWorkshiftManagers returns members holding the workshift-manager flag.
func (r *MemberRepository) ListWorkshiftManagers(ctx context.Context) ([]models.Member, error) {
	query := fmt.Sprintf(`SELECT %s FROM members WHERE active = TRUE AND workshift_manager = TRUE ORDER BY username`, memberColumns)
	var members []models.Member
	if err := r.db.SelectContext(ctx, &members, query); err != nil {
		return nil, fmt.Errorf("list workshift managers: %w", err)
	}
	return members, nil
}

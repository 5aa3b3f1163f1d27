package repository

import (
	"context"
	"regexp"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newPoolHoursRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestPoolHoursRepositoryFind(t *testing.T) {
	db, mock, cleanup := newPoolHoursRepoMock(t)
	defer cleanup()
	repo := NewPoolHoursRepository(db)

	rows := sqlmock.NewRows([]string{"id", "pool_id", "profile_id", "hours", "assigned_hours", "standing", "hour_adjustment"}).
		AddRow("ph-1", "pool-1", "p-1", 5.0, 2.0, -1.5, 0.0)
	mock.ExpectQuery("SELECT .* FROM pool_hours WHERE profile_id = \\$1 AND pool_id = \\$2").
		WithArgs("p-1", "pool-1").
		WillReturnRows(rows)

	hours, err := repo.Find(context.Background(), "p-1", "pool-1")
	require.NoError(t, err)
	assert.Equal(t, "ph-1", hours.ID)
	assert.Equal(t, -1.5, hours.Standing)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolHoursRepositoryExistingPairs(t *testing.T) {
	db, mock, cleanup := newPoolHoursRepoMock(t)
	defer cleanup()
	repo := NewPoolHoursRepository(db)

	rows := sqlmock.NewRows([]string{"profile_id", "pool_id"}).
		AddRow("p-1", "pool-1").
		AddRow("p-2", "pool-1")
	mock.ExpectQuery("SELECT ph.profile_id, ph.pool_id FROM pool_hours ph").
		WithArgs("sem-1").
		WillReturnRows(rows)

	pairs, err := repo.ExistingPairs(context.Background(), "sem-1")
	require.NoError(t, err)
	assert.Len(t, pairs, 2)
	_, ok := pairs["p-1|pool-1"]
	assert.True(t, ok)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolHoursRepositoryAdjustStanding(t *testing.T) {
	db, mock, cleanup := newPoolHoursRepoMock(t)
	defer cleanup()
	repo := NewPoolHoursRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE pool_hours SET standing = standing + $2, updated_at = $3 WHERE id = $1")).
		WithArgs("ph-1", 1.5, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.AdjustStanding(context.Background(), db, "ph-1", 1.5))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolHoursRepositorySetAdjustment(t *testing.T) {
	db, mock, cleanup := newPoolHoursRepoMock(t)
	defer cleanup()
	repo := NewPoolHoursRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("SET standing = standing + ($2 - hour_adjustment), hour_adjustment = $2")).
		WithArgs("ph-1", 2.0, sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.SetAdjustment(context.Background(), "ph-1", 2.0))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolHoursRepositorySnapshotFineDate(t *testing.T) {
	db, mock, cleanup := newPoolHoursRepoMock(t)
	defer cleanup()
	repo := NewPoolHoursRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE pool_hours SET second_date_standing = standing, updated_at = $2 WHERE pool_id = $1 AND second_date_standing IS NULL")).
		WithArgs("pool-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 3))

	require.NoError(t, repo.SnapshotFineDate(context.Background(), "pool-1", 2))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPoolHoursRepositorySnapshotFineDateRejectsBadSlot(t *testing.T) {
	db, _, cleanup := newPoolHoursRepoMock(t)
	defer cleanup()
	repo := NewPoolHoursRepository(db)

	err := repo.SnapshotFineDate(context.Background(), "pool-1", 4)
	assert.Error(t, err)
}

func TestPoolHoursRepositoryListStandingsFiltersByPool(t *testing.T) {
	db, mock, cleanup := newPoolHoursRepoMock(t)
	defer cleanup()
	repo := NewPoolHoursRepository(db)

	rows := sqlmock.NewRows([]string{"profile_id", "member_name", "email", "pool_id", "pool_title", "hours", "assigned_hours", "standing"}).
		AddRow("p-1", "Philip Fry", "fry@farnsworth.org", "pool-1", "Regular Workshift", 5.0, 5.0, -1.5)
	mock.ExpectQuery("SELECT ph.profile_id, m.full_name AS member_name").
		WithArgs("sem-1", "pool-1").
		WillReturnRows(rows)

	standings, err := repo.ListStandings(context.Background(), "sem-1", "pool-1")
	require.NoError(t, err)
	require.Len(t, standings, 1)
	assert.Equal(t, "Philip Fry", standings[0].MemberName)
	assert.NoError(t, mock.ExpectationsWereMet())
}

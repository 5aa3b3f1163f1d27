package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farnsworth-bsc/workshift-api/internal/models"
	appErrors "github.com/farnsworth-bsc/workshift-api/pkg/errors"
)

type fakeInstanceRepo struct {
	detail *models.InstanceDetail

	staffedWorkshifter *string
	staffedLiable      *string
	staffingUpdated    bool
	closedVerifiedBy   string
	closedBlown        bool
	reopenedVerified   bool
	reopenedBlown      bool
	updatedHours       *float64
	deleted            bool
}

func (f *fakeInstanceRepo) List(ctx context.Context, filter models.InstanceFilter) ([]models.InstanceDetail, int, error) {
	return []models.InstanceDetail{*f.detail}, 1, nil
}

func (f *fakeInstanceRepo) FindDetail(ctx context.Context, id string) (*models.InstanceDetail, error) {
	copied := *f.detail
	return &copied, nil
}

func (f *fakeInstanceRepo) Create(ctx context.Context, exec sqlx.ExtContext, instance *models.WorkshiftInstance) error {
	instance.ID = "inst-new"
	return nil
}

func (f *fakeInstanceRepo) CreateInfo(ctx context.Context, exec sqlx.ExtContext, info *models.InstanceInfo) error {
	info.ID = "info-new"
	return nil
}

func (f *fakeInstanceRepo) UpdateStaffing(ctx context.Context, exec sqlx.ExtContext, id string, workshifterID, liableID *string) error {
	f.staffingUpdated = true
	f.staffedWorkshifter = workshifterID
	f.staffedLiable = liableID
	return nil
}

func (f *fakeInstanceRepo) CloseVerified(ctx context.Context, exec sqlx.ExtContext, id, verifierID string) (bool, error) {
	f.closedVerifiedBy = verifierID
	return true, nil
}

func (f *fakeInstanceRepo) ReopenVerified(ctx context.Context, exec sqlx.ExtContext, id string) (bool, error) {
	f.reopenedVerified = true
	return true, nil
}

func (f *fakeInstanceRepo) CloseBlown(ctx context.Context, exec sqlx.ExtContext, id string) (bool, error) {
	f.closedBlown = true
	return true, nil
}

func (f *fakeInstanceRepo) ReopenBlown(ctx context.Context, exec sqlx.ExtContext, id string) (bool, error) {
	f.reopenedBlown = true
	return true, nil
}

func (f *fakeInstanceRepo) UpdateHours(ctx context.Context, exec sqlx.ExtContext, id string, hours float64) error {
	f.updatedHours = &hours
	return nil
}

func (f *fakeInstanceRepo) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	f.deleted = true
	return nil
}

type fakeLogRepo struct {
	entries []models.ShiftLogEntry
}

func (f *fakeLogRepo) Create(ctx context.Context, exec sqlx.ExtContext, entry *models.ShiftLogEntry) error {
	f.entries = append(f.entries, *entry)
	return nil
}

func (f *fakeLogRepo) ListByInstance(ctx context.Context, instanceID string) ([]models.ShiftLogEntry, error) {
	return f.entries, nil
}

type fakePoolHours struct {
	account *models.PoolHours
	deltas  []float64
}

func (f *fakePoolHours) Find(ctx context.Context, profileID, poolID string) (*models.PoolHours, error) {
	copied := *f.account
	return &copied, nil
}

func (f *fakePoolHours) AdjustStanding(ctx context.Context, exec sqlx.ExtContext, id string, delta float64) error {
	f.deltas = append(f.deltas, delta)
	return nil
}

type fakePoolChecker struct {
	manages bool
}

func (f *fakePoolChecker) IsManager(ctx context.Context, poolID, memberID string) (bool, error) {
	return f.manages, nil
}

func newMockDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	raw, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { raw.Close() })
	return sqlx.NewDb(raw, "sqlmock"), mock
}

func strPtr(s string) *string { return &s }

func openDetail() *models.InstanceDetail {
	return &models.InstanceDetail{
		WorkshiftInstance: models.WorkshiftInstance{
			ID:         "inst-1",
			SemesterID: "sem-1",
			Date:       time.Date(2026, time.March, 2, 0, 0, 0, 0, time.UTC),
			Hours:      1.5,
			Verify:     models.VerifySelf,
		},
		Title:              "Dinner Cook",
		PoolID:             "pool-1",
		StartTime:          "17:00",
		EndTime:            "19:00",
		SignOutCutoffHours: 24,
		VerifyCutoffHours:  2,
		SelfVerify:         true,
	}
}

func newInstanceService(repo *fakeInstanceRepo, logs *fakeLogRepo, hours *fakePoolHours, checker *fakePoolChecker, db *sqlx.DB) *InstanceService {
	return NewInstanceService(repo, logs, hours, checker, db, nil, nil)
}

func TestSignInClaimsVacantInstance(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	repo := &fakeInstanceRepo{detail: openDetail()}
	logs := &fakeLogRepo{}
	svc := newInstanceService(repo, logs, &fakePoolHours{}, &fakePoolChecker{}, db)

	err := svc.SignIn(context.Background(), "inst-1", Actor{MemberID: "m-1", ProfileID: "p-1"})
	require.NoError(t, err)
	require.NotNil(t, repo.staffedWorkshifter)
	assert.Equal(t, "p-1", *repo.staffedWorkshifter)
	require.Len(t, logs.entries, 1)
	assert.Equal(t, models.LogSignIn, logs.entries[0].EntryType)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSignInRejectsClosedAndFilled(t *testing.T) {
	db, _ := newMockDB(t)

	closed := openDetail()
	closed.Closed = true
	svc := newInstanceService(&fakeInstanceRepo{detail: closed}, &fakeLogRepo{}, &fakePoolHours{}, &fakePoolChecker{}, db)
	err := svc.SignIn(context.Background(), "inst-1", Actor{ProfileID: "p-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrShiftClosed.Code, err.(*appErrors.Error).Code)

	filled := openDetail()
	filled.WorkshifterID = strPtr("p-2")
	svc = newInstanceService(&fakeInstanceRepo{detail: filled}, &fakeLogRepo{}, &fakePoolHours{}, &fakePoolChecker{}, db)
	err = svc.SignIn(context.Background(), "inst-1", Actor{ProfileID: "p-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrShiftFilled.Code, err.(*appErrors.Error).Code)
}

func TestSignOutInsideCutoffLeavesLiability(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	detail := openDetail()
	detail.WorkshifterID = strPtr("p-1")
	repo := &fakeInstanceRepo{detail: detail}
	logs := &fakeLogRepo{}
	svc := newInstanceService(repo, logs, &fakePoolHours{}, &fakePoolChecker{}, db)
	// Twelve hours before the shift, inside the 24h cutoff.
	svc.now = func() time.Time {
		return time.Date(2026, time.March, 2, 5, 0, 0, 0, time.UTC)
	}

	err := svc.SignOut(context.Background(), "inst-1", Actor{MemberID: "m-1", ProfileID: "p-1"})
	require.NoError(t, err)
	assert.Nil(t, repo.staffedWorkshifter)
	require.NotNil(t, repo.staffedLiable)
	assert.Equal(t, "p-1", *repo.staffedLiable)
}

func TestSignOutEarlyCarriesNoLiability(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	detail := openDetail()
	detail.WorkshifterID = strPtr("p-1")
	repo := &fakeInstanceRepo{detail: detail}
	svc := newInstanceService(repo, &fakeLogRepo{}, &fakePoolHours{}, &fakePoolChecker{}, db)
	svc.now = func() time.Time {
		return time.Date(2026, time.February, 25, 12, 0, 0, 0, time.UTC)
	}

	err := svc.SignOut(context.Background(), "inst-1", Actor{MemberID: "m-1", ProfileID: "p-1"})
	require.NoError(t, err)
	assert.True(t, repo.staffingUpdated)
	assert.Nil(t, repo.staffedLiable)
}

func TestSignOutRejectsOtherMember(t *testing.T) {
	db, _ := newMockDB(t)
	detail := openDetail()
	detail.WorkshifterID = strPtr("p-1")
	svc := newInstanceService(&fakeInstanceRepo{detail: detail}, &fakeLogRepo{}, &fakePoolHours{}, &fakePoolChecker{}, db)

	err := svc.SignOut(context.Background(), "inst-1", Actor{ProfileID: "p-other"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, err.(*appErrors.Error).Code)
}

func TestVerifyCreditsStanding(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	detail := openDetail()
	detail.WorkshifterID = strPtr("p-1")
	repo := &fakeInstanceRepo{detail: detail}
	logs := &fakeLogRepo{}
	hours := &fakePoolHours{account: &models.PoolHours{ID: "ph-1"}}
	svc := newInstanceService(repo, logs, hours, &fakePoolChecker{}, db)
	svc.now = func() time.Time {
		return time.Date(2026, time.March, 2, 20, 0, 0, 0, time.UTC)
	}

	err := svc.Verify(context.Background(), "inst-1", Actor{MemberID: "m-1", ProfileID: "p-1"})
	require.NoError(t, err)
	assert.Equal(t, "p-1", repo.closedVerifiedBy)
	require.Len(t, hours.deltas, 1)
	assert.Equal(t, 1.5, hours.deltas[0])
	require.Len(t, logs.entries, 1)
	assert.Equal(t, models.LogVerify, logs.entries[0].EntryType)
}

func TestVerifyRejectsBeforeStart(t *testing.T) {
	db, _ := newMockDB(t)
	detail := openDetail()
	detail.WorkshifterID = strPtr("p-1")
	svc := newInstanceService(&fakeInstanceRepo{detail: detail}, &fakeLogRepo{}, &fakePoolHours{account: &models.PoolHours{ID: "ph-1"}}, &fakePoolChecker{}, db)
	svc.now = func() time.Time {
		return time.Date(2026, time.March, 2, 10, 0, 0, 0, time.UTC)
	}

	err := svc.Verify(context.Background(), "inst-1", Actor{ProfileID: "p-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, err.(*appErrors.Error).Code)
}

func TestVerifyRejectsAfterCutoff(t *testing.T) {
	db, _ := newMockDB(t)
	detail := openDetail()
	detail.WorkshifterID = strPtr("p-1")
	svc := newInstanceService(&fakeInstanceRepo{detail: detail}, &fakeLogRepo{}, &fakePoolHours{account: &models.PoolHours{ID: "ph-1"}}, &fakePoolChecker{}, db)
	// The shift ended at 19:00 with a 2h grace window; a week later is
	// far past it.
	svc.now = func() time.Time {
		return time.Date(2026, time.March, 9, 20, 0, 0, 0, time.UTC)
	}

	err := svc.Verify(context.Background(), "inst-1", Actor{ProfileID: "p-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, err.(*appErrors.Error).Code)

	// Just past the window on the same evening also fails.
	svc.now = func() time.Time {
		return time.Date(2026, time.March, 2, 21, 1, 0, 0, time.UTC)
	}
	err = svc.Verify(context.Background(), "inst-1", Actor{ProfileID: "p-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, err.(*appErrors.Error).Code)
}

func TestVerifySelfRejectsOtherMembers(t *testing.T) {
	db, _ := newMockDB(t)
	detail := openDetail()
	detail.WorkshifterID = strPtr("p-1")
	svc := newInstanceService(&fakeInstanceRepo{detail: detail}, &fakeLogRepo{}, &fakePoolHours{account: &models.PoolHours{ID: "ph-1"}}, &fakePoolChecker{}, db)
	svc.now = func() time.Time {
		return time.Date(2026, time.March, 2, 20, 0, 0, 0, time.UTC)
	}

	err := svc.Verify(context.Background(), "inst-1", Actor{ProfileID: "p-2"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, err.(*appErrors.Error).Code)
}

func TestVerifySelfHonorsPoolPolicy(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	detail := openDetail()
	detail.WorkshifterID = strPtr("p-1")
	detail.SelfVerify = false
	svc := newInstanceService(&fakeInstanceRepo{detail: detail}, &fakeLogRepo{}, &fakePoolHours{account: &models.PoolHours{ID: "ph-1"}}, &fakePoolChecker{}, db)
	svc.now = func() time.Time {
		return time.Date(2026, time.March, 2, 20, 0, 0, 0, time.UTC)
	}

	// The workshifter cannot self-verify when the pool withholds it.
	err := svc.Verify(context.Background(), "inst-1", Actor{ProfileID: "p-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, err.(*appErrors.Error).Code)

	// A second member still can.
	err = svc.Verify(context.Background(), "inst-1", Actor{ProfileID: "p-2"})
	require.NoError(t, err)
}

func TestVerifyAuthorityModes(t *testing.T) {
	cases := []struct {
		name    string
		mode    models.VerifyMode
		actor   Actor
		manages bool
		wantErr bool
	}{
		{name: "auto never verifies by hand", mode: models.VerifyAuto, actor: Actor{ProfileID: "p-1", WorkshiftManager: true}, wantErr: true},
		{name: "self allows the workshifter", mode: models.VerifySelf, actor: Actor{ProfileID: "p-1"}},
		{name: "other rejects the workshifter", mode: models.VerifyOther, actor: Actor{ProfileID: "p-1"}, wantErr: true},
		{name: "other allows someone else", mode: models.VerifyOther, actor: Actor{ProfileID: "p-2"}},
		{name: "workshift manager flag required", mode: models.VerifyWorkshiftManager, actor: Actor{ProfileID: "p-2"}, wantErr: true},
		{name: "workshift manager passes", mode: models.VerifyWorkshiftManager, actor: Actor{ProfileID: "p-2", WorkshiftManager: true}},
		{name: "pool manager rejected for regular member", mode: models.VerifyPoolManager, actor: Actor{ProfileID: "p-2"}, wantErr: true},
		{name: "pool manager passes", mode: models.VerifyPoolManager, actor: Actor{MemberID: "m-2", ProfileID: "p-2"}, manages: true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			db, mock := newMockDB(t)
			if !tc.wantErr {
				mock.ExpectBegin()
				mock.ExpectCommit()
			}

			detail := openDetail()
			detail.Verify = tc.mode
			detail.WorkshifterID = strPtr("p-1")
			svc := newInstanceService(&fakeInstanceRepo{detail: detail}, &fakeLogRepo{}, &fakePoolHours{account: &models.PoolHours{ID: "ph-1"}}, &fakePoolChecker{manages: tc.manages}, db)
			svc.now = func() time.Time {
				return time.Date(2026, time.March, 2, 20, 0, 0, 0, time.UTC)
			}

			err := svc.Verify(context.Background(), "inst-1", tc.actor)
			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
			}
		})
	}
}

func TestUnverifyDebitsStanding(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	detail := openDetail()
	detail.Closed = true
	detail.WorkshifterID = strPtr("p-1")
	detail.VerifierID = strPtr("p-2")
	repo := &fakeInstanceRepo{detail: detail}
	hours := &fakePoolHours{account: &models.PoolHours{ID: "ph-1"}}
	svc := newInstanceService(repo, &fakeLogRepo{}, hours, &fakePoolChecker{}, db)

	err := svc.Unverify(context.Background(), "inst-1", Actor{ProfileID: "p-3", WorkshiftManager: true})
	require.NoError(t, err)
	assert.True(t, repo.reopenedVerified)
	require.Len(t, hours.deltas, 1)
	assert.Equal(t, -1.5, hours.deltas[0])
}

func TestUnverifyRequiresVerifiedInstance(t *testing.T) {
	db, _ := newMockDB(t)
	svc := newInstanceService(&fakeInstanceRepo{detail: openDetail()}, &fakeLogRepo{}, &fakePoolHours{}, &fakePoolChecker{}, db)

	err := svc.Unverify(context.Background(), "inst-1", Actor{WorkshiftManager: true})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, err.(*appErrors.Error).Code)
}

func TestMarkBlownDebitsAccountable(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	detail := openDetail()
	detail.LiableID = strPtr("p-1")
	repo := &fakeInstanceRepo{detail: detail}
	hours := &fakePoolHours{account: &models.PoolHours{ID: "ph-1"}}
	svc := newInstanceService(repo, &fakeLogRepo{}, hours, &fakePoolChecker{}, db)

	err := svc.MarkBlown(context.Background(), "inst-1", Actor{ProfileID: "p-9", WorkshiftManager: true})
	require.NoError(t, err)
	assert.True(t, repo.closedBlown)
	require.Len(t, hours.deltas, 1)
	assert.Equal(t, -1.5, hours.deltas[0])
}

func TestMarkBlownAnyBlownSkipsManagerCheck(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	detail := openDetail()
	detail.AnyBlown = true
	detail.WorkshifterID = strPtr("p-1")
	svc := newInstanceService(&fakeInstanceRepo{detail: detail}, &fakeLogRepo{}, &fakePoolHours{account: &models.PoolHours{ID: "ph-1"}}, &fakePoolChecker{manages: false}, db)

	err := svc.MarkBlown(context.Background(), "inst-1", Actor{ProfileID: "p-2"})
	require.NoError(t, err)
}

func TestMarkBlownRequiresAccountable(t *testing.T) {
	db, _ := newMockDB(t)
	svc := newInstanceService(&fakeInstanceRepo{detail: openDetail()}, &fakeLogRepo{}, &fakePoolHours{}, &fakePoolChecker{}, db)

	err := svc.MarkBlown(context.Background(), "inst-1", Actor{WorkshiftManager: true})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrShiftUnfilled.Code, err.(*appErrors.Error).Code)
}

func TestEditHoursAdjustsVerifiedStanding(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	detail := openDetail()
	detail.Closed = true
	detail.WorkshifterID = strPtr("p-1")
	repo := &fakeInstanceRepo{detail: detail}
	hours := &fakePoolHours{account: &models.PoolHours{ID: "ph-1"}}
	svc := newInstanceService(repo, &fakeLogRepo{}, hours, &fakePoolChecker{}, db)

	err := svc.EditHours(context.Background(), "inst-1", 2.5, "deep clean", Actor{ProfileID: "p-9", WorkshiftManager: true})
	require.NoError(t, err)
	require.NotNil(t, repo.updatedHours)
	assert.Equal(t, 2.5, *repo.updatedHours)
	require.Len(t, hours.deltas, 1)
	assert.Equal(t, 1.0, hours.deltas[0])
}

func TestEditHoursOpenInstanceLeavesStanding(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	repo := &fakeInstanceRepo{detail: openDetail()}
	hours := &fakePoolHours{account: &models.PoolHours{ID: "ph-1"}}
	svc := newInstanceService(repo, &fakeLogRepo{}, hours, &fakePoolChecker{}, db)

	err := svc.EditHours(context.Background(), "inst-1", 2.0, "", Actor{WorkshiftManager: true})
	require.NoError(t, err)
	assert.Empty(t, hours.deltas)
}

func TestEditHoursRejectsBlownAndNegative(t *testing.T) {
	db, _ := newMockDB(t)

	svc := newInstanceService(&fakeInstanceRepo{detail: openDetail()}, &fakeLogRepo{}, &fakePoolHours{}, &fakePoolChecker{}, db)
	err := svc.EditHours(context.Background(), "inst-1", -1, "", Actor{WorkshiftManager: true})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, err.(*appErrors.Error).Code)

	blown := openDetail()
	blown.Closed = true
	blown.Blown = true
	svc = newInstanceService(&fakeInstanceRepo{detail: blown}, &fakeLogRepo{}, &fakePoolHours{}, &fakePoolChecker{}, db)
	err = svc.EditHours(context.Background(), "inst-1", 2, "", Actor{WorkshiftManager: true})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrPreconditionFailed.Code, err.(*appErrors.Error).Code)
}

func TestDeleteVerifiedInstanceTakesBackCredit(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	detail := openDetail()
	detail.Closed = true
	detail.WorkshifterID = strPtr("p-1")
	detail.VerifierID = strPtr("p-2")
	repo := &fakeInstanceRepo{detail: detail}
	hours := &fakePoolHours{account: &models.PoolHours{ID: "ph-1"}}
	svc := newInstanceService(repo, &fakeLogRepo{}, hours, &fakePoolChecker{}, db)

	err := svc.Delete(context.Background(), "inst-1", Actor{ProfileID: "p-9", WorkshiftManager: true})
	require.NoError(t, err)
	assert.True(t, repo.deleted)
	require.Len(t, hours.deltas, 1)
	assert.Equal(t, -1.5, hours.deltas[0])
}

func TestDeleteBlownInstanceRefundsPenalty(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	detail := openDetail()
	detail.Closed = true
	detail.Blown = true
	detail.LiableID = strPtr("p-1")
	repo := &fakeInstanceRepo{detail: detail}
	hours := &fakePoolHours{account: &models.PoolHours{ID: "ph-1"}}
	svc := newInstanceService(repo, &fakeLogRepo{}, hours, &fakePoolChecker{}, db)

	err := svc.Delete(context.Background(), "inst-1", Actor{ProfileID: "p-9", WorkshiftManager: true})
	require.NoError(t, err)
	assert.True(t, repo.deleted)
	require.Len(t, hours.deltas, 1)
	assert.Equal(t, 1.5, hours.deltas[0])
}

func TestDeleteOpenInstanceLeavesStanding(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	detail := openDetail()
	detail.WorkshifterID = strPtr("p-1")
	repo := &fakeInstanceRepo{detail: detail}
	hours := &fakePoolHours{account: &models.PoolHours{ID: "ph-1"}}
	svc := newInstanceService(repo, &fakeLogRepo{}, hours, &fakePoolChecker{}, db)

	err := svc.Delete(context.Background(), "inst-1", Actor{WorkshiftManager: true})
	require.NoError(t, err)
	assert.True(t, repo.deleted)
	assert.Empty(t, hours.deltas)
}

func TestDeleteRequiresManager(t *testing.T) {
	db, _ := newMockDB(t)
	repo := &fakeInstanceRepo{detail: openDetail()}
	svc := newInstanceService(repo, &fakeLogRepo{}, &fakePoolHours{}, &fakePoolChecker{}, db)

	err := svc.Delete(context.Background(), "inst-1", Actor{MemberID: "m-1", ProfileID: "p-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, err.(*appErrors.Error).Code)
	assert.False(t, repo.deleted)
}

func TestSellVacatesWithoutLiability(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	detail := openDetail()
	detail.WorkshifterID = strPtr("p-1")
	repo := &fakeInstanceRepo{detail: detail}
	logs := &fakeLogRepo{}
	svc := newInstanceService(repo, logs, &fakePoolHours{}, &fakePoolChecker{}, db)

	err := svc.Sell(context.Background(), "inst-1", Actor{ProfileID: "p-1"}, "away this weekend")
	require.NoError(t, err)
	assert.Nil(t, repo.staffedWorkshifter)
	assert.Nil(t, repo.staffedLiable)
	require.Len(t, logs.entries, 1)
	assert.Equal(t, models.LogSell, logs.entries[0].EntryType)
	assert.Equal(t, "away this weekend", logs.entries[0].Note)
}

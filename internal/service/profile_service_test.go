package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farnsworth-bsc/workshift-api/internal/models"
	appErrors "github.com/farnsworth-bsc/workshift-api/pkg/errors"
)

type fakeProfileStore struct {
	profiles map[string]*models.WorkshiftProfile
	byMember map[string]*models.WorkshiftProfile

	created []models.WorkshiftProfile
}

func (f *fakeProfileStore) ListBySemester(ctx context.Context, semesterID string) ([]models.ProfileDetail, error) {
	return nil, nil
}

func (f *fakeProfileStore) FindByID(ctx context.Context, id string) (*models.WorkshiftProfile, error) {
	if p, ok := f.profiles[id]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeProfileStore) FindByMemberSemester(ctx context.Context, memberID, semesterID string) (*models.WorkshiftProfile, error) {
	if p, ok := f.byMember[memberID+"|"+semesterID]; ok {
		copied := *p
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeProfileStore) Create(ctx context.Context, profile *models.WorkshiftProfile) error {
	profile.ID = "profile-" + profile.MemberID
	f.created = append(f.created, *profile)
	return nil
}

func (f *fakeProfileStore) UpdateNote(ctx context.Context, id, note string) error { return nil }

func (f *fakeProfileStore) TouchPreferenceSaveTime(ctx context.Context, id string, at time.Time) error {
	return nil
}

func (f *fakeProfileStore) ListRatings(ctx context.Context, profileID string) ([]models.WorkshiftRating, error) {
	return nil, nil
}

func (f *fakeProfileStore) UpsertRating(ctx context.Context, rating *models.WorkshiftRating) error {
	return nil
}

func (f *fakeProfileStore) ListTimeBlocks(ctx context.Context, profileID string) ([]models.TimeBlock, error) {
	return nil, nil
}

func (f *fakeProfileStore) ReplaceTimeBlocks(ctx context.Context, profileID string, blocks []models.TimeBlock) error {
	return nil
}

type fakeProfileSemesters struct {
	semesters map[string]*models.Semester
}

func (f *fakeProfileSemesters) FindByID(ctx context.Context, id string) (*models.Semester, error) {
	if s, ok := f.semesters[id]; ok {
		copied := *s
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

type fakeProfileTypes struct{}

func (f *fakeProfileTypes) FindByID(ctx context.Context, id string) (*models.WorkshiftType, error) {
	return nil, sql.ErrNoRows
}

type fakeProfileMembers struct {
	members map[string]*models.Member
}

func (f *fakeProfileMembers) FindByID(ctx context.Context, id string) (*models.Member, error) {
	if m, ok := f.members[id]; ok {
		copied := *m
		return &copied, nil
	}
	return nil, sql.ErrNoRows
}

type fakeProfileAccounts struct{}

func (f *fakeProfileAccounts) ListByProfile(ctx context.Context, profileID string) ([]models.PoolHours, error) {
	return nil, nil
}

func (f *fakeProfileAccounts) Find(ctx context.Context, profileID, poolID string) (*models.PoolHours, error) {
	return nil, sql.ErrNoRows
}

func (f *fakeProfileAccounts) SetAdjustment(ctx context.Context, id string, adjustment float64) error {
	return nil
}

type fakeHoursFiller struct {
	filled []string
}

func (f *fakeHoursFiller) FillPoolHours(ctx context.Context, semesterID string) error {
	f.filled = append(f.filled, semesterID)
	return nil
}

func newProfileService(repo *fakeProfileStore, members *fakeProfileMembers, filler *fakeHoursFiller) *ProfileService {
	semesters := &fakeProfileSemesters{semesters: map[string]*models.Semester{
		"sem-1": {ID: "sem-1", Current: true},
	}}
	return NewProfileService(repo, semesters, &fakeProfileTypes{}, members, &fakeProfileAccounts{}, filler, nil, nil)
}

func TestCreateProfileMidSemester(t *testing.T) {
	repo := &fakeProfileStore{}
	members := &fakeProfileMembers{members: map[string]*models.Member{
		"m-1": {ID: "m-1", Username: "fry"},
	}}
	filler := &fakeHoursFiller{}
	svc := newProfileService(repo, members, filler)

	profile, err := svc.Create(context.Background(), CreateProfileRequest{MemberID: "m-1", SemesterID: "sem-1"})
	require.NoError(t, err)
	assert.Equal(t, "profile-m-1", profile.ID)
	require.Len(t, repo.created, 1)
	// The hour grid is backfilled so the new profile gets its accounts.
	assert.Equal(t, []string{"sem-1"}, filler.filled)
}

func TestCreateProfileRejectsDuplicate(t *testing.T) {
	repo := &fakeProfileStore{byMember: map[string]*models.WorkshiftProfile{
		"m-1|sem-1": {ID: "profile-m-1"},
	}}
	members := &fakeProfileMembers{members: map[string]*models.Member{"m-1": {ID: "m-1"}}}
	filler := &fakeHoursFiller{}
	svc := newProfileService(repo, members, filler)

	_, err := svc.Create(context.Background(), CreateProfileRequest{MemberID: "m-1", SemesterID: "sem-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, err.(*appErrors.Error).Code)
	assert.Empty(t, filler.filled)
}

func TestCreateProfileRejectsUnknownMemberAndSemester(t *testing.T) {
	repo := &fakeProfileStore{}
	members := &fakeProfileMembers{members: map[string]*models.Member{"m-1": {ID: "m-1"}}}
	svc := newProfileService(repo, members, &fakeHoursFiller{})

	_, err := svc.Create(context.Background(), CreateProfileRequest{MemberID: "m-unknown", SemesterID: "sem-1"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, err.(*appErrors.Error).Code)

	_, err = svc.Create(context.Background(), CreateProfileRequest{MemberID: "m-1", SemesterID: "sem-unknown"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, err.(*appErrors.Error).Code)
}

package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farnsworth-bsc/workshift-api/internal/models"
	"github.com/farnsworth-bsc/workshift-api/pkg/config"
	appErrors "github.com/farnsworth-bsc/workshift-api/pkg/errors"
)

type fakeSemesterRepo struct {
	semesters []models.Semester
	current   []models.Semester
	exists    bool

	created *models.Semester
	deleted string
}

func (f *fakeSemesterRepo) List(ctx context.Context, filter models.SemesterFilter) ([]models.Semester, int, error) {
	return f.semesters, len(f.semesters), nil
}

func (f *fakeSemesterRepo) FindByID(ctx context.Context, id string) (*models.Semester, error) {
	for i := range f.semesters {
		if f.semesters[i].ID == id {
			copied := f.semesters[i]
			return &copied, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSemesterRepo) ListCurrent(ctx context.Context) ([]models.Semester, error) {
	return f.current, nil
}

func (f *fakeSemesterRepo) Create(ctx context.Context, semester *models.Semester) error {
	semester.ID = "sem-new"
	f.created = semester
	return nil
}

func (f *fakeSemesterRepo) Update(ctx context.Context, semester *models.Semester) error {
	return nil
}

func (f *fakeSemesterRepo) DeleteCascade(ctx context.Context, id string) error {
	f.deleted = id
	return nil
}

func (f *fakeSemesterRepo) Exists(ctx context.Context, season models.Season, year int) (bool, error) {
	return f.exists, nil
}

type fakeSemesterPools struct {
	pools    []models.WorkshiftPool
	emails   []string
	managers map[string][]string
}

func (f *fakeSemesterPools) ListBySemester(ctx context.Context, semesterID string) ([]models.WorkshiftPool, error) {
	return f.pools, nil
}

func (f *fakeSemesterPools) Create(ctx context.Context, pool *models.WorkshiftPool) error {
	pool.ID = "pool-primary"
	f.pools = append(f.pools, *pool)
	return nil
}

func (f *fakeSemesterPools) SetManagers(ctx context.Context, poolID string, memberIDs []string) error {
	if f.managers == nil {
		f.managers = make(map[string][]string)
	}
	f.managers[poolID] = memberIDs
	return nil
}

func (f *fakeSemesterPools) ManagerEmails(ctx context.Context, semesterID string) ([]string, error) {
	return f.emails, nil
}

type fakeSemesterMembers struct {
	eligible []models.Member
	managers []models.Member
}

func (f *fakeSemesterMembers) ListEligible(ctx context.Context, anonymousUsername string) ([]models.Member, error) {
	return f.eligible, nil
}

func (f *fakeSemesterMembers) ListWorkshiftManagers(ctx context.Context) ([]models.Member, error) {
	return f.managers, nil
}

type fakeSemesterProfiles struct {
	profiles []models.ProfileDetail
}

func (f *fakeSemesterProfiles) ListBySemester(ctx context.Context, semesterID string) ([]models.ProfileDetail, error) {
	return f.profiles, nil
}

func (f *fakeSemesterProfiles) Create(ctx context.Context, profile *models.WorkshiftProfile) error {
	profile.ID = "profile-" + profile.MemberID
	f.profiles = append(f.profiles, models.ProfileDetail{WorkshiftProfile: *profile})
	return nil
}

type fakeSemesterPoolHours struct {
	existing map[string]struct{}
	created  []models.PoolHours
}

func (f *fakeSemesterPoolHours) ExistingPairs(ctx context.Context, semesterID string) (map[string]struct{}, error) {
	if f.existing == nil {
		return map[string]struct{}{}, nil
	}
	return f.existing, nil
}

func (f *fakeSemesterPoolHours) Create(ctx context.Context, hours *models.PoolHours) error {
	f.created = append(f.created, *hours)
	return nil
}

type fakeSemesterTypes struct {
	types   map[string]models.WorkshiftType
	created []models.WorkshiftType
}

func (f *fakeSemesterTypes) FindByTitle(ctx context.Context, title string) (*models.WorkshiftType, error) {
	if wtype, ok := f.types[title]; ok {
		return &wtype, nil
	}
	return nil, sql.ErrNoRows
}

func (f *fakeSemesterTypes) Create(ctx context.Context, wtype *models.WorkshiftType) error {
	wtype.ID = "type-manager"
	f.created = append(f.created, *wtype)
	return nil
}

type fakeSeededShifts struct {
	created  []CreateShiftRequest
	assigned map[string][]string
}

func (f *fakeSeededShifts) Create(ctx context.Context, req CreateShiftRequest) (*models.ShiftDetail, error) {
	f.created = append(f.created, req)
	id := fmt.Sprintf("shift-%d", len(f.created))
	return &models.ShiftDetail{RegularWorkshift: models.RegularWorkshift{ID: id}}, nil
}

func (f *fakeSeededShifts) UpdateAssignees(ctx context.Context, shiftID string, profileIDs []string) error {
	if f.assigned == nil {
		f.assigned = make(map[string][]string)
	}
	f.assigned[shiftID] = profileIDs
	return nil
}

func workshiftTestConfig() config.WorkshiftConfig {
	return config.WorkshiftConfig{
		DefaultPoolHours:     5,
		DefaultShiftHours:    5,
		DefaultSignOutCutoff: 24 * time.Hour,
		DefaultVerifyCutoff:  2 * time.Hour,
		SemesterCacheTTL:     5 * time.Minute,
		AnonymousUsername:    "anonymous",
	}
}

func newSemesterService(repo *fakeSemesterRepo, pools *fakeSemesterPools, members *fakeSemesterMembers, profiles *fakeSemesterProfiles, poolHours *fakeSemesterPoolHours) *SemesterService {
	return newSeededSemesterService(repo, pools, members, profiles, poolHours, &fakeSemesterTypes{}, &fakeSeededShifts{})
}

func newSeededSemesterService(repo *fakeSemesterRepo, pools *fakeSemesterPools, members *fakeSemesterMembers, profiles *fakeSemesterProfiles, poolHours *fakeSemesterPoolHours, types *fakeSemesterTypes, shifts *fakeSeededShifts) *SemesterService {
	return NewSemesterService(repo, pools, members, profiles, poolHours, types, shifts, nil, workshiftTestConfig(), nil, nil)
}

func TestYearSeason(t *testing.T) {
	cases := []struct {
		day    time.Time
		year   int
		season models.Season
	}{
		{time.Date(2026, time.February, 10, 0, 0, 0, 0, time.UTC), 2026, models.SeasonSpring},
		{time.Date(2026, time.June, 1, 0, 0, 0, 0, time.UTC), 2026, models.SeasonSummer},
		{time.Date(2026, time.September, 15, 0, 0, 0, 0, time.UTC), 2026, models.SeasonFall},
		{time.Date(2026, time.December, 10, 0, 0, 0, 0, time.UTC), 2026, models.SeasonFall},
		{time.Date(2026, time.December, 20, 0, 0, 0, 0, time.UTC), 2027, models.SeasonSpring},
	}
	for _, tc := range cases {
		year, season := models.YearSeason(tc.day)
		assert.Equal(t, tc.year, year, tc.day.String())
		assert.Equal(t, tc.season, season, tc.day.String())
	}
}

func TestSeasonStartEnd(t *testing.T) {
	start, end := models.SeasonStartEnd(2026, models.SeasonSpring)
	assert.Equal(t, time.Date(2026, time.January, 20, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2026, time.May, 17, 0, 0, 0, 0, time.UTC), end)

	start, end = models.SeasonStartEnd(2026, models.SeasonFall)
	assert.Equal(t, time.August, start.Month())
	assert.Equal(t, time.December, end.Month())
}

func TestStartSeedsPoolProfilesAndHours(t *testing.T) {
	repo := &fakeSemesterRepo{}
	pools := &fakeSemesterPools{}
	members := &fakeSemesterMembers{eligible: []models.Member{
		{ID: "m-1", Username: "fry"},
		{ID: "m-2", Username: "leela"},
	}}
	profiles := &fakeSemesterProfiles{}
	poolHours := &fakeSemesterPoolHours{}
	svc := newSemesterService(repo, pools, members, profiles, poolHours)

	semester, err := svc.Start(context.Background(), StartSemesterRequest{
		Season: models.SeasonFall,
		Year:   2026,
		Rate:   12,
	})
	require.NoError(t, err)
	assert.True(t, semester.Current)
	assert.True(t, semester.PreferencesOpen)
	assert.Equal(t, time.August, semester.StartDate.Month())

	require.Len(t, pools.pools, 1)
	primary := pools.pools[0]
	assert.True(t, primary.IsPrimary)
	assert.Equal(t, 5.0, primary.Hours)
	assert.Equal(t, 24, primary.SignOutCutoffHours)
	assert.Equal(t, 2, primary.VerifyCutoffHours)
	assert.True(t, primary.SelfVerify)

	require.Len(t, profiles.profiles, 2)
	// Every (profile, pool) pair gets an hour record seeded from the pool.
	require.Len(t, poolHours.created, 2)
	for _, record := range poolHours.created {
		assert.Equal(t, "pool-primary", record.PoolID)
		assert.Equal(t, 5.0, record.Hours)
	}
}

func TestStartSeedsManagersAndTheirShifts(t *testing.T) {
	repo := &fakeSemesterRepo{}
	pools := &fakeSemesterPools{}
	members := &fakeSemesterMembers{
		eligible: []models.Member{
			{ID: "m-1", Username: "fry", WorkshiftManager: true},
			{ID: "m-2", Username: "leela"},
		},
		managers: []models.Member{{ID: "m-1", Username: "fry", WorkshiftManager: true}},
	}
	types := &fakeSemesterTypes{}
	shifts := &fakeSeededShifts{}
	svc := newSeededSemesterService(repo, pools, members, &fakeSemesterProfiles{}, &fakeSemesterPoolHours{}, types, shifts)

	_, err := svc.Start(context.Background(), StartSemesterRequest{Season: models.SeasonFall, Year: 2026})
	require.NoError(t, err)

	// The manager runs the primary pool.
	assert.Equal(t, []string{"m-1"}, pools.managers["pool-primary"])

	// The catalog entry is created once, opted out of auto-assignment.
	require.Len(t, types.created, 1)
	assert.Equal(t, managerShiftTitle, types.created[0].Title)
	assert.Equal(t, models.AssignmentModeNone, types.created[0].Assignment)

	// One week-long auto-verified shift, held by the manager's profile.
	require.Len(t, shifts.created, 1)
	seeded := shifts.created[0]
	assert.True(t, seeded.WeekLong)
	assert.Equal(t, models.VerifyAuto, seeded.Verify)
	assert.Equal(t, "pool-primary", seeded.PoolID)
	assert.Equal(t, "type-manager", seeded.TypeID)
	assert.Equal(t, 5.0, seeded.Hours)
	assert.Equal(t, []string{"profile-m-1"}, shifts.assigned["shift-1"])
}

func TestStartReusesManagerShiftType(t *testing.T) {
	members := &fakeSemesterMembers{
		eligible: []models.Member{{ID: "m-1", WorkshiftManager: true}},
		managers: []models.Member{{ID: "m-1"}},
	}
	types := &fakeSemesterTypes{types: map[string]models.WorkshiftType{
		managerShiftTitle: {ID: "type-existing", Title: managerShiftTitle},
	}}
	shifts := &fakeSeededShifts{}
	svc := newSeededSemesterService(&fakeSemesterRepo{}, &fakeSemesterPools{}, members, &fakeSemesterProfiles{}, &fakeSemesterPoolHours{}, types, shifts)

	_, err := svc.Start(context.Background(), StartSemesterRequest{Season: models.SeasonSpring, Year: 2027})
	require.NoError(t, err)
	assert.Empty(t, types.created)
	require.Len(t, shifts.created, 1)
	assert.Equal(t, "type-existing", shifts.created[0].TypeID)
}

func TestStartRejectsDuplicateSemester(t *testing.T) {
	repo := &fakeSemesterRepo{exists: true}
	svc := newSemesterService(repo, &fakeSemesterPools{}, &fakeSemesterMembers{}, &fakeSemesterProfiles{}, &fakeSemesterPoolHours{})

	_, err := svc.Start(context.Background(), StartSemesterRequest{Season: models.SeasonFall, Year: 2026})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, err.(*appErrors.Error).Code)
}

func TestStartRejectsInvertedDates(t *testing.T) {
	start := time.Date(2026, time.September, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, -7)
	svc := newSemesterService(&fakeSemesterRepo{}, &fakeSemesterPools{}, &fakeSemesterMembers{}, &fakeSemesterProfiles{}, &fakeSemesterPoolHours{})

	_, err := svc.Start(context.Background(), StartSemesterRequest{
		Season:    models.SeasonFall,
		Year:      2026,
		StartDate: &start,
		EndDate:   &end,
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, err.(*appErrors.Error).Code)
}

func TestCurrentReturnsNoSemesterError(t *testing.T) {
	svc := newSemesterService(&fakeSemesterRepo{}, &fakeSemesterPools{}, &fakeSemesterMembers{}, &fakeSemesterProfiles{}, &fakeSemesterPoolHours{})

	_, err := svc.Current(context.Background())
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNoSemester.Code, err.(*appErrors.Error).Code)
}

func TestCurrentWarnsOnMultipleCurrentSemesters(t *testing.T) {
	repo := &fakeSemesterRepo{current: []models.Semester{
		{ID: "sem-2", Season: models.SeasonFall, Year: 2026, Current: true},
		{ID: "sem-1", Season: models.SeasonSummer, Year: 2026, Current: true},
	}}
	pools := &fakeSemesterPools{emails: []string{"manager@farnsworth.org"}}
	svc := newSemesterService(repo, pools, &fakeSemesterMembers{}, &fakeSemesterProfiles{}, &fakeSemesterPoolHours{})

	result, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "sem-2", result.Semester.ID)
	assert.Contains(t, result.Warning, "2 semesters")
	assert.Equal(t, []string{"manager@farnsworth.org"}, result.ManagerEmails)
}

func TestCurrentSingleSemesterHasNoWarning(t *testing.T) {
	repo := &fakeSemesterRepo{current: []models.Semester{{ID: "sem-1", Season: models.SeasonFall, Year: 2026}}}
	svc := newSemesterService(repo, &fakeSemesterPools{}, &fakeSemesterMembers{}, &fakeSemesterProfiles{}, &fakeSemesterPoolHours{})

	result, err := svc.Current(context.Background())
	require.NoError(t, err)
	assert.Empty(t, result.Warning)
	assert.Empty(t, result.ManagerEmails)
}

func TestFillPoolHoursSkipsExistingPairs(t *testing.T) {
	pools := &fakeSemesterPools{pools: []models.WorkshiftPool{
		{ID: "pool-1", Hours: 5},
		{ID: "pool-2", Hours: 2},
	}}
	profiles := &fakeSemesterProfiles{profiles: []models.ProfileDetail{
		{WorkshiftProfile: models.WorkshiftProfile{ID: "p-1"}},
	}}
	poolHours := &fakeSemesterPoolHours{existing: map[string]struct{}{
		"p-1|pool-1": {},
	}}
	svc := newSemesterService(&fakeSemesterRepo{}, pools, &fakeSemesterMembers{}, profiles, poolHours)

	err := svc.FillPoolHours(context.Background(), "sem-1")
	require.NoError(t, err)
	require.Len(t, poolHours.created, 1)
	assert.Equal(t, "pool-2", poolHours.created[0].PoolID)
	assert.Equal(t, 2.0, poolHours.created[0].Hours)
}

func TestDeleteCascades(t *testing.T) {
	repo := &fakeSemesterRepo{semesters: []models.Semester{{ID: "sem-1"}}}
	svc := newSemesterService(repo, &fakeSemesterPools{}, &fakeSemesterMembers{}, &fakeSemesterProfiles{}, &fakeSemesterPoolHours{})

	require.NoError(t, svc.Delete(context.Background(), "sem-1"))
	assert.Equal(t, "sem-1", repo.deleted)
}

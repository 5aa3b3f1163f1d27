package service

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/farnsworth-bsc/workshift-api/internal/models"
	appErrors "github.com/farnsworth-bsc/workshift-api/pkg/errors"
)

type fakeShiftRepo struct {
	detail    *models.ShiftDetail
	assignees []string

	added   []string
	removed []string
}

func (f *fakeShiftRepo) List(ctx context.Context, filter models.ShiftFilter) ([]models.ShiftDetail, int, error) {
	return []models.ShiftDetail{*f.detail}, 1, nil
}

func (f *fakeShiftRepo) FindByID(ctx context.Context, id string) (*models.ShiftDetail, error) {
	copied := *f.detail
	return &copied, nil
}

func (f *fakeShiftRepo) Create(ctx context.Context, shift *models.RegularWorkshift) error {
	shift.ID = "shift-new"
	return nil
}

func (f *fakeShiftRepo) Update(ctx context.Context, shift *models.RegularWorkshift) error {
	return nil
}

func (f *fakeShiftRepo) SetActive(ctx context.Context, exec sqlx.ExtContext, id string, active bool) error {
	f.detail.Active = active
	return nil
}

func (f *fakeShiftRepo) Delete(ctx context.Context, exec sqlx.ExtContext, id string) error {
	return nil
}

func (f *fakeShiftRepo) ListAssigneeIDs(ctx context.Context, shiftID string) ([]string, error) {
	return f.assignees, nil
}

func (f *fakeShiftRepo) AddAssignee(ctx context.Context, exec sqlx.ExtContext, shiftID, profileID string) error {
	f.added = append(f.added, profileID)
	return nil
}

func (f *fakeShiftRepo) RemoveAssignee(ctx context.Context, exec sqlx.ExtContext, shiftID, profileID string) error {
	f.removed = append(f.removed, profileID)
	return nil
}

func (f *fakeShiftRepo) ClearAssignees(ctx context.Context, exec sqlx.ExtContext, shiftID string) error {
	f.assignees = nil
	return nil
}

type fakeShiftInstances struct {
	existing map[string]int
	open     []models.WorkshiftInstance

	created     []models.WorkshiftInstance
	staffed     map[string]*string
	vacated     []string
	deletedOpen []string
	detached    bool
}

func (f *fakeShiftInstances) ExistingDates(ctx context.Context, shiftID string) (map[string]int, error) {
	if f.existing == nil {
		return map[string]int{}, nil
	}
	return f.existing, nil
}

func (f *fakeShiftInstances) Create(ctx context.Context, exec sqlx.ExtContext, instance *models.WorkshiftInstance) error {
	instance.ID = instance.Date.Format("2006-01-02")
	f.created = append(f.created, *instance)
	return nil
}

func (f *fakeShiftInstances) CreateInfo(ctx context.Context, exec sqlx.ExtContext, info *models.InstanceInfo) error {
	info.ID = "info-1"
	return nil
}

func (f *fakeShiftInstances) UpdateStaffing(ctx context.Context, exec sqlx.ExtContext, id string, workshifterID, liableID *string) error {
	if f.staffed == nil {
		f.staffed = make(map[string]*string)
	}
	f.staffed[id] = workshifterID
	if workshifterID == nil {
		f.vacated = append(f.vacated, id)
	}
	return nil
}

func (f *fakeShiftInstances) ListOpenByShift(ctx context.Context, shiftID string, from time.Time) ([]models.WorkshiftInstance, error) {
	return f.open, nil
}

func (f *fakeShiftInstances) DeleteOpenByShift(ctx context.Context, exec sqlx.ExtContext, shiftID string) error {
	f.deletedOpen = append(f.deletedOpen, shiftID)
	return nil
}

func (f *fakeShiftInstances) DetachClosed(ctx context.Context, exec sqlx.ExtContext, shiftID, infoID string) error {
	f.detached = true
	return nil
}

type fakeShiftHours struct {
	accounts map[string]*models.PoolHours
	assigned map[string][]float64
}

func (f *fakeShiftHours) Find(ctx context.Context, profileID, poolID string) (*models.PoolHours, error) {
	copied := *f.accounts[profileID]
	return &copied, nil
}

func (f *fakeShiftHours) AdjustAssigned(ctx context.Context, exec sqlx.ExtContext, id string, delta float64) error {
	if f.assigned == nil {
		f.assigned = make(map[string][]float64)
	}
	f.assigned[id] = append(f.assigned[id], delta)
	return nil
}

type fakeShiftSemesters struct {
	semester *models.Semester
}

func (f *fakeShiftSemesters) FindByID(ctx context.Context, id string) (*models.Semester, error) {
	copied := *f.semester
	return &copied, nil
}

type fakeShiftTypes struct {
	wtype *models.WorkshiftType
}

func (f *fakeShiftTypes) FindByID(ctx context.Context, id string) (*models.WorkshiftType, error) {
	copied := *f.wtype
	return &copied, nil
}

// futureSemester runs two weeks starting well in the future so instance
// generation always starts from the semester start.
func futureSemester() *models.Semester {
	start := time.Date(2100, time.March, 1, 0, 0, 0, 0, time.UTC)
	return &models.Semester{
		ID:        "sem-1",
		StartDate: start,
		EndDate:   start.AddDate(0, 0, 13),
	}
}

func weeklyShift(semester *models.Semester, count int) *models.ShiftDetail {
	day := semester.StartDate.AddDate(0, 0, 3)
	return &models.ShiftDetail{
		RegularWorkshift: models.RegularWorkshift{
			ID:        "shift-1",
			TypeID:    "type-1",
			PoolID:    "pool-1",
			Title:     "Dinner Cook",
			Day:       int(day.Weekday()),
			StartTime: "17:00",
			EndTime:   "19:00",
			Hours:     1.5,
			Count:     count,
			Active:    true,
			Verify:    models.VerifySelf,
		},
		SemesterID: "sem-1",
	}
}

func newShiftService(repo *fakeShiftRepo, instances *fakeShiftInstances, hours *fakeShiftHours, semesters *fakeShiftSemesters, db *sqlx.DB) *ShiftService {
	return NewShiftService(repo, instances, hours, semesters, &fakeShiftTypes{wtype: &models.WorkshiftType{ID: "type-1", Title: "Cook", Hours: 1.5}}, &fakeLogRepo{}, db, nil, nil, nil)
}

func TestMakeInstancesGeneratesHeadcountPerOccurrence(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	semester := futureSemester()
	repo := &fakeShiftRepo{detail: weeklyShift(semester, 2)}
	instances := &fakeShiftInstances{}
	svc := newShiftService(repo, instances, &fakeShiftHours{}, &fakeShiftSemesters{semester: semester}, db)

	created, err := svc.MakeInstances(context.Background(), "shift-1")
	require.NoError(t, err)
	// Two occurrences in a two-week semester, two slots each.
	assert.Equal(t, 4, created)
	require.Len(t, instances.created, 4)
	for _, inst := range instances.created {
		assert.Equal(t, time.Weekday(repo.detail.Day), inst.Date.Weekday())
		assert.Equal(t, 1.5, inst.Hours)
	}
}

func TestMakeInstancesTopsUpExistingDates(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	semester := futureSemester()
	detail := weeklyShift(semester, 2)
	firstDate := semester.StartDate.AddDate(0, 0, 3).Format("2006-01-02")
	repo := &fakeShiftRepo{detail: detail}
	instances := &fakeShiftInstances{existing: map[string]int{firstDate: 1}}
	svc := newShiftService(repo, instances, &fakeShiftHours{}, &fakeShiftSemesters{semester: semester}, db)

	created, err := svc.MakeInstances(context.Background(), "shift-1")
	require.NoError(t, err)
	// First date already has one of two slots; only three are missing.
	assert.Equal(t, 3, created)
}

func TestMakeInstancesStaffsAssigneeSlots(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	semester := futureSemester()
	repo := &fakeShiftRepo{detail: weeklyShift(semester, 2), assignees: []string{"p-1"}}
	instances := &fakeShiftInstances{}
	svc := newShiftService(repo, instances, &fakeShiftHours{}, &fakeShiftSemesters{semester: semester}, db)

	_, err := svc.MakeInstances(context.Background(), "shift-1")
	require.NoError(t, err)

	staffedCount := 0
	for _, inst := range instances.created {
		if inst.WorkshifterID != nil {
			assert.Equal(t, "p-1", *inst.WorkshifterID)
			staffedCount++
		}
	}
	// One assignee fills the first slot of each occurrence.
	assert.Equal(t, 2, staffedCount)
}

func TestMakeInstancesInactiveShiftIsNoop(t *testing.T) {
	db, _ := newMockDB(t)

	semester := futureSemester()
	detail := weeklyShift(semester, 2)
	detail.Active = false
	svc := newShiftService(&fakeShiftRepo{detail: detail}, &fakeShiftInstances{}, &fakeShiftHours{}, &fakeShiftSemesters{semester: semester}, db)

	created, err := svc.MakeInstances(context.Background(), "shift-1")
	require.NoError(t, err)
	assert.Zero(t, created)
}

func TestSetActiveDeactivationDropsOpenInstances(t *testing.T) {
	db, mock := newMockDB(t)
	// One tx: toggle the flag and drop the open instances together.
	mock.ExpectBegin()
	mock.ExpectCommit()

	semester := futureSemester()
	repo := &fakeShiftRepo{detail: weeklyShift(semester, 2)}
	instances := &fakeShiftInstances{}
	svc := newShiftService(repo, instances, &fakeShiftHours{}, &fakeShiftSemesters{semester: semester}, db)

	require.NoError(t, svc.SetActive(context.Background(), "shift-1", false))
	assert.False(t, repo.detail.Active)
	assert.Equal(t, []string{"shift-1"}, instances.deletedOpen)
	assert.Empty(t, instances.created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetActiveReactivationRegenerates(t *testing.T) {
	db, mock := newMockDB(t)
	// One tx for the toggle, a second for instance generation.
	for i := 0; i < 2; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
	}

	semester := futureSemester()
	detail := weeklyShift(semester, 2)
	detail.Active = false
	repo := &fakeShiftRepo{detail: detail}
	instances := &fakeShiftInstances{}
	svc := newShiftService(repo, instances, &fakeShiftHours{}, &fakeShiftSemesters{semester: semester}, db)

	require.NoError(t, svc.SetActive(context.Background(), "shift-1", true))
	assert.True(t, repo.detail.Active)
	// Nothing is dropped on the way up; the schedule is regenerated.
	assert.Empty(t, instances.deletedOpen)
	assert.Len(t, instances.created, 4)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSetActiveSameStateIsNoop(t *testing.T) {
	db, mock := newMockDB(t)

	semester := futureSemester()
	repo := &fakeShiftRepo{detail: weeklyShift(semester, 2)}
	instances := &fakeShiftInstances{}
	svc := newShiftService(repo, instances, &fakeShiftHours{}, &fakeShiftSemesters{semester: semester}, db)

	require.NoError(t, svc.SetActive(context.Background(), "shift-1", true))
	assert.Empty(t, instances.deletedOpen)
	assert.Empty(t, instances.created)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestUpdateAssigneesRejectsOverHeadcount(t *testing.T) {
	db, _ := newMockDB(t)

	semester := futureSemester()
	svc := newShiftService(&fakeShiftRepo{detail: weeklyShift(semester, 1)}, &fakeShiftInstances{}, &fakeShiftHours{}, &fakeShiftSemesters{semester: semester}, db)

	err := svc.UpdateAssignees(context.Background(), "shift-1", []string{"p-1", "p-2"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrValidation.Code, err.(*appErrors.Error).Code)
}

func TestUpdateAssigneesMovesHoursAndStaffing(t *testing.T) {
	db, mock := newMockDB(t)
	mock.ExpectBegin()
	mock.ExpectCommit()

	semester := futureSemester()
	date := semester.StartDate.AddDate(0, 0, 3)
	repo := &fakeShiftRepo{detail: weeklyShift(semester, 2), assignees: []string{"p-old"}}
	old := "p-old"
	instances := &fakeShiftInstances{open: []models.WorkshiftInstance{
		{ID: "inst-1", Date: date, WorkshifterID: &old},
		{ID: "inst-2", Date: date},
	}}
	hours := &fakeShiftHours{accounts: map[string]*models.PoolHours{
		"p-old": {ID: "ph-old"},
		"p-new": {ID: "ph-new"},
	}}
	svc := newShiftService(repo, instances, hours, &fakeShiftSemesters{semester: semester}, db)

	err := svc.UpdateAssignees(context.Background(), "shift-1", []string{"p-new"})
	require.NoError(t, err)

	assert.Equal(t, []string{"p-old"}, repo.removed)
	assert.Equal(t, []string{"p-new"}, repo.added)
	assert.Equal(t, []float64{-1.5}, hours.assigned["ph-old"])
	assert.Equal(t, []float64{1.5}, hours.assigned["ph-new"])
	// The removed member's instance is vacated, then the added member
	// takes one slot for that date.
	assert.Contains(t, instances.vacated, "inst-1")
	staffed := 0
	for _, ws := range instances.staffed {
		if ws != nil && *ws == "p-new" {
			staffed++
		}
	}
	assert.Equal(t, 1, staffed)
}

func TestUpdateAssigneesNoChangeIsNoop(t *testing.T) {
	db, _ := newMockDB(t)

	semester := futureSemester()
	repo := &fakeShiftRepo{detail: weeklyShift(semester, 2), assignees: []string{"p-1"}}
	svc := newShiftService(repo, &fakeShiftInstances{}, &fakeShiftHours{}, &fakeShiftSemesters{semester: semester}, db)

	err := svc.UpdateAssignees(context.Background(), "shift-1", []string{"p-1"})
	require.NoError(t, err)
	assert.Empty(t, repo.added)
	assert.Empty(t, repo.removed)
}

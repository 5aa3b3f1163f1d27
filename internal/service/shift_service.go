package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/farnsworth-bsc/workshift-api/internal/models"
	appErrors "github.com/farnsworth-bsc/workshift-api/pkg/errors"
)

// txBeginner opens sqlx transactions. *sqlx.DB satisfies it.
type txBeginner interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type shiftRepository interface {
	List(ctx context.Context, filter models.ShiftFilter) ([]models.ShiftDetail, int, error)
	FindByID(ctx context.Context, id string) (*models.ShiftDetail, error)
	Create(ctx context.Context, shift *models.RegularWorkshift) error
	Update(ctx context.Context, shift *models.RegularWorkshift) error
	SetActive(ctx context.Context, exec sqlx.ExtContext, id string, active bool) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
	ListAssigneeIDs(ctx context.Context, shiftID string) ([]string, error)
	AddAssignee(ctx context.Context, exec sqlx.ExtContext, shiftID, profileID string) error
	RemoveAssignee(ctx context.Context, exec sqlx.ExtContext, shiftID, profileID string) error
	ClearAssignees(ctx context.Context, exec sqlx.ExtContext, shiftID string) error
}

type shiftInstanceRepository interface {
	ExistingDates(ctx context.Context, shiftID string) (map[string]int, error)
	Create(ctx context.Context, exec sqlx.ExtContext, instance *models.WorkshiftInstance) error
	CreateInfo(ctx context.Context, exec sqlx.ExtContext, info *models.InstanceInfo) error
	UpdateStaffing(ctx context.Context, exec sqlx.ExtContext, id string, workshifterID, liableID *string) error
	ListOpenByShift(ctx context.Context, shiftID string, from time.Time) ([]models.WorkshiftInstance, error)
	DeleteOpenByShift(ctx context.Context, exec sqlx.ExtContext, shiftID string) error
	DetachClosed(ctx context.Context, exec sqlx.ExtContext, shiftID, infoID string) error
}

type shiftPoolHoursRepository interface {
	Find(ctx context.Context, profileID, poolID string) (*models.PoolHours, error)
	AdjustAssigned(ctx context.Context, exec sqlx.ExtContext, id string, delta float64) error
}

type shiftSemesterReader interface {
	FindByID(ctx context.Context, id string) (*models.Semester, error)
}

type shiftTypeReader interface {
	FindByID(ctx context.Context, id string) (*models.WorkshiftType, error)
}

type shiftLogWriter interface {
	Create(ctx context.Context, exec sqlx.ExtContext, entry *models.ShiftLogEntry) error
}

type instanceMetrics interface {
	RecordInstancesGenerated(n int)
}

// CreateShiftRequest holds payload for creating recurring shifts.
type CreateShiftRequest struct {
	TypeID    string            `json:"type_id" validate:"required"`
	PoolID    string            `json:"pool_id" validate:"required"`
	Title     string            `json:"title"`
	Day       int               `json:"day" validate:"min=0,max=6"`
	WeekLong  bool              `json:"week_long"`
	StartTime string            `json:"start_time"`
	EndTime   string            `json:"end_time"`
	Hours     float64           `json:"hours" validate:"min=0"`
	Count     int               `json:"count" validate:"required,min=1"`
	Verify    models.VerifyMode `json:"verify" validate:"required,oneof=SELF AUTO OTHER_MEMBER ANY_MANAGER POOL_MANAGER WORKSHIFT_MANAGER"`
	Addendum  string            `json:"addendum"`
}

// UpdateShiftRequest holds payload for updating recurring shifts.
type UpdateShiftRequest struct {
	Title     string            `json:"title"`
	Day       int               `json:"day" validate:"min=0,max=6"`
	WeekLong  bool              `json:"week_long"`
	StartTime string            `json:"start_time"`
	EndTime   string            `json:"end_time"`
	Hours     float64           `json:"hours" validate:"min=0"`
	Count     int               `json:"count" validate:"required,min=1"`
	Verify    models.VerifyMode `json:"verify" validate:"required,oneof=SELF AUTO OTHER_MEMBER ANY_MANAGER POOL_MANAGER WORKSHIFT_MANAGER"`
	Addendum  string            `json:"addendum"`
}

// ShiftService manages recurring shift definitions, their assignees and
// the generation of dated instances.
type ShiftService struct {
	repo      shiftRepository
	instances shiftInstanceRepository
	poolHours shiftPoolHoursRepository
	semesters shiftSemesterReader
	types     shiftTypeReader
	logs      shiftLogWriter
	db        txBeginner
	metrics   instanceMetrics
	validator *validator.Validate
	logger    *zap.Logger
}

// NewShiftService constructs the shift service.
func NewShiftService(
	repo shiftRepository,
	instances shiftInstanceRepository,
	poolHours shiftPoolHoursRepository,
	semesters shiftSemesterReader,
	types shiftTypeReader,
	logs shiftLogWriter,
	db txBeginner,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *ShiftService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ShiftService{
		repo:      repo,
		instances: instances,
		poolHours: poolHours,
		semesters: semesters,
		types:     types,
		logs:      logs,
		db:        db,
		metrics:   metrics,
		validator: validate,
		logger:    logger,
	}
}

// List returns shifts and pagination metadata.
func (s *ShiftService) List(ctx context.Context, filter models.ShiftFilter) ([]models.ShiftDetail, *models.Pagination, error) {
	shifts, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list shifts")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return shifts, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one shift with its assignees.
func (s *ShiftService) Get(ctx context.Context, id string) (*models.ShiftDetail, error) {
	shift, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "shift not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load shift")
	}
	assignees, err := s.repo.ListAssigneeIDs(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignees")
	}
	shift.Assignees = assignees
	return shift, nil
}

// Create registers a recurring shift and generates its instances.
func (s *ShiftService) Create(ctx context.Context, req CreateShiftRequest) (*models.ShiftDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid shift payload")
	}
	if err := validateClockRange(req.StartTime, req.EndTime, req.WeekLong); err != nil {
		return nil, err
	}

	wtype, err := s.types.FindByID(ctx, req.TypeID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "workshift type not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load workshift type")
	}

	title := req.Title
	if title == "" {
		title = wtype.Title
	}
	hours := req.Hours
	if hours == 0 {
		hours = wtype.Hours
	}

	shift := &models.RegularWorkshift{
		TypeID:    req.TypeID,
		PoolID:    req.PoolID,
		Title:     title,
		Day:       req.Day,
		WeekLong:  req.WeekLong,
		StartTime: req.StartTime,
		EndTime:   req.EndTime,
		Hours:     hours,
		Count:     req.Count,
		Active:    true,
		Verify:    req.Verify,
		Addendum:  req.Addendum,
	}
	if err := s.repo.Create(ctx, shift); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create shift")
	}
	if _, err := s.MakeInstances(ctx, shift.ID); err != nil {
		return nil, err
	}
	return s.Get(ctx, shift.ID)
}

// Update modifies a recurring shift. A change of recurrence (day or the
// week-long flag) drops the open instances and regenerates them; closed
// instances are history and stay put.
func (s *ShiftService) Update(ctx context.Context, id string, req UpdateShiftRequest) (*models.ShiftDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid shift payload")
	}
	if err := validateClockRange(req.StartTime, req.EndTime, req.WeekLong); err != nil {
		return nil, err
	}
	detail, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	recurrenceChanged := detail.Day != req.Day || detail.WeekLong != req.WeekLong
	hoursDelta := req.Hours - detail.Hours

	shift := detail.RegularWorkshift
	shift.Title = req.Title
	shift.Day = req.Day
	shift.WeekLong = req.WeekLong
	shift.StartTime = req.StartTime
	shift.EndTime = req.EndTime
	shift.Hours = req.Hours
	shift.Count = req.Count
	shift.Verify = req.Verify
	shift.Addendum = req.Addendum

	if err := s.repo.Update(ctx, &shift); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update shift")
	}

	if hoursDelta != 0 {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
		}
		for _, profileID := range detail.Assignees {
			record, err := s.poolHours.Find(ctx, profileID, shift.PoolID)
			if err != nil {
				_ = tx.Rollback()
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hour account")
			}
			if err := s.poolHours.AdjustAssigned(ctx, tx, record.ID, hoursDelta); err != nil {
				_ = tx.Rollback()
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to adjust assigned hours")
			}
		}
		if err := tx.Commit(); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit transaction")
		}
	}

	if recurrenceChanged && shift.Active {
		tx, err := s.db.BeginTxx(ctx, nil)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
		}
		if err := s.instances.DeleteOpenByShift(ctx, tx, id); err != nil {
			_ = tx.Rollback()
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop open instances")
		}
		if err := tx.Commit(); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit transaction")
		}
		if _, err := s.MakeInstances(ctx, id); err != nil {
			return nil, err
		}
	}
	return s.Get(ctx, id)
}

// SetActive toggles a shift. Deactivation drops the open instances;
// reactivation regenerates them.
func (s *ShiftService) SetActive(ctx context.Context, id string, active bool) error {
	detail, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if detail.Active == active {
		return nil
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	if err := s.repo.SetActive(ctx, tx, id, active); err != nil {
		_ = tx.Rollback()
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to toggle shift")
	}
	if !active {
		if err := s.instances.DeleteOpenByShift(ctx, tx, id); err != nil {
			_ = tx.Rollback()
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to drop open instances")
		}
	}
	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit transaction")
	}

	if active {
		if _, err := s.MakeInstances(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes a shift. Open instances go with it; closed instances are
// re-pointed at a snapshot info record so their history survives, and
// every assignee's assigned hours shrink accordingly.
func (s *ShiftService) Delete(ctx context.Context, id string) error {
	detail, err := s.Get(ctx, id)
	if err != nil {
		return err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	rollback := func(err error, msg string) error {
		_ = tx.Rollback()
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, msg)
	}

	if err := s.instances.DeleteOpenByShift(ctx, tx, id); err != nil {
		return rollback(err, "failed to drop open instances")
	}

	info := &models.InstanceInfo{
		Title:       detail.Title,
		Description: detail.Addendum,
		PoolID:      detail.PoolID,
		StartTime:   detail.StartTime,
		EndTime:     detail.EndTime,
		Verify:      detail.Verify,
		WeekLong:    detail.WeekLong,
	}
	if err := s.instances.CreateInfo(ctx, tx, info); err != nil {
		return rollback(err, "failed to snapshot shift info")
	}
	if err := s.instances.DetachClosed(ctx, tx, id, info.ID); err != nil {
		return rollback(err, "failed to detach closed instances")
	}

	for _, profileID := range detail.Assignees {
		record, err := s.poolHours.Find(ctx, profileID, detail.PoolID)
		if err != nil {
			return rollback(err, "failed to load hour account")
		}
		if err := s.poolHours.AdjustAssigned(ctx, tx, record.ID, -detail.Hours); err != nil {
			return rollback(err, "failed to release assigned hours")
		}
	}

	if err := s.repo.Delete(ctx, tx, id); err != nil {
		return rollback(err, "failed to delete shift")
	}
	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit transaction")
	}
	return nil
}

// MakeInstances generates the missing dated instances of one shift over
// its semester, one instance per headcount slot per occurrence. Running
// it again never duplicates: dates are only topped up to the headcount.
// Returns the number of instances created.
func (s *ShiftService) MakeInstances(ctx context.Context, shiftID string) (int, error) {
	detail, err := s.Get(ctx, shiftID)
	if err != nil {
		return 0, err
	}
	if !detail.Active {
		return 0, nil
	}
	semester, err := s.semesters.FindByID(ctx, detail.SemesterID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}
	existing, err := s.instances.ExistingDates(ctx, shiftID)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list existing instances")
	}

	targetDay := time.Weekday(detail.Day)
	if detail.WeekLong {
		targetDay = semester.StartDate.Weekday()
	}
	from := semester.StartDate
	if today := truncateToDay(time.Now()); today.After(from) {
		from = today
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}

	created := 0
	for date := from; !date.After(semester.EndDate); date = date.AddDate(0, 0, 1) {
		if date.Weekday() != targetDay {
			continue
		}
		key := date.Format("2006-01-02")
		for slot := existing[key]; slot < detail.Count; slot++ {
			instance := &models.WorkshiftInstance{
				SemesterID:    detail.SemesterID,
				ShiftID:       &detail.ID,
				Date:          date,
				IntendedHours: detail.Hours,
				Hours:         detail.Hours,
				Verify:        detail.Verify,
				WeekLong:      detail.WeekLong,
			}
			if slot < len(detail.Assignees) {
				instance.WorkshifterID = &detail.Assignees[slot]
			}
			if err := s.instances.Create(ctx, tx, instance); err != nil {
				_ = tx.Rollback()
				return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create instance")
			}
			if instance.WorkshifterID != nil {
				entry := &models.ShiftLogEntry{
					InstanceID: instance.ID,
					ProfileID:  *instance.WorkshifterID,
					EntryType:  models.LogAssigned,
				}
				if err := s.logs.Create(ctx, tx, entry); err != nil {
					_ = tx.Rollback()
					return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to log assignment")
				}
			}
			created++
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit transaction")
	}

	if s.metrics != nil {
		s.metrics.RecordInstancesGenerated(created)
	}
	if created > 0 {
		s.logger.Info("instances generated",
			zap.String("shift_id", shiftID),
			zap.Int("created", created))
	}
	return created, nil
}

// MakeSemesterInstances generates missing instances for every active
// shift of a semester.
func (s *ShiftService) MakeSemesterInstances(ctx context.Context, semesterID string) (int, error) {
	active := true
	shifts, _, err := s.repo.List(ctx, models.ShiftFilter{SemesterID: semesterID, Active: &active, PageSize: 500})
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list shifts")
	}
	total := 0
	for i := range shifts {
		created, err := s.MakeInstances(ctx, shifts[i].ID)
		if err != nil {
			return total, err
		}
		total += created
	}
	return total, nil
}

// UpdateAssignees replaces the assignee set of a shift. Removed members
// release their assigned hours and vacate open instances; added members
// pick up hours and fill vacant slots, one per occurrence.
func (s *ShiftService) UpdateAssignees(ctx context.Context, shiftID string, profileIDs []string) error {
	detail, err := s.Get(ctx, shiftID)
	if err != nil {
		return err
	}
	if len(profileIDs) > detail.Count {
		return appErrors.Clone(appErrors.ErrValidation, "more assignees than the shift headcount")
	}

	current := make(map[string]struct{}, len(detail.Assignees))
	for _, id := range detail.Assignees {
		current[id] = struct{}{}
	}
	next := make(map[string]struct{}, len(profileIDs))
	for _, id := range profileIDs {
		next[id] = struct{}{}
	}

	var added, removed []string
	for _, id := range profileIDs {
		if _, ok := current[id]; !ok {
			added = append(added, id)
		}
	}
	for _, id := range detail.Assignees {
		if _, ok := next[id]; !ok {
			removed = append(removed, id)
		}
	}
	if len(added) == 0 && len(removed) == 0 {
		return nil
	}

	open, err := s.instances.ListOpenByShift(ctx, shiftID, truncateToDay(time.Now()))
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list open instances")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	rollback := func(err error, msg string) error {
		_ = tx.Rollback()
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, msg)
	}

	for _, profileID := range removed {
		if err := s.repo.RemoveAssignee(ctx, tx, shiftID, profileID); err != nil {
			return rollback(err, "failed to remove assignee")
		}
		record, err := s.poolHours.Find(ctx, profileID, detail.PoolID)
		if err != nil {
			return rollback(err, "failed to load hour account")
		}
		if err := s.poolHours.AdjustAssigned(ctx, tx, record.ID, -detail.Hours); err != nil {
			return rollback(err, "failed to release assigned hours")
		}
		for i := range open {
			if open[i].WorkshifterID == nil || *open[i].WorkshifterID != profileID {
				continue
			}
			if err := s.instances.UpdateStaffing(ctx, tx, open[i].ID, nil, nil); err != nil {
				return rollback(err, "failed to vacate instance")
			}
			open[i].WorkshifterID = nil
			entry := &models.ShiftLogEntry{
				InstanceID: open[i].ID,
				ProfileID:  profileID,
				EntryType:  models.LogUnassigned,
			}
			if err := s.logs.Create(ctx, tx, entry); err != nil {
				return rollback(err, "failed to log unassignment")
			}
		}
	}

	for _, profileID := range added {
		if err := s.repo.AddAssignee(ctx, tx, shiftID, profileID); err != nil {
			return rollback(err, "failed to add assignee")
		}
		record, err := s.poolHours.Find(ctx, profileID, detail.PoolID)
		if err != nil {
			return rollback(err, "failed to load hour account")
		}
		if err := s.poolHours.AdjustAssigned(ctx, tx, record.ID, detail.Hours); err != nil {
			return rollback(err, "failed to take on assigned hours")
		}

		// One slot per occurrence date.
		taken := make(map[string]bool)
		for i := range open {
			key := open[i].Date.Format("2006-01-02")
			if open[i].WorkshifterID != nil || taken[key] {
				continue
			}
			pid := profileID
			if err := s.instances.UpdateStaffing(ctx, tx, open[i].ID, &pid, open[i].LiableID); err != nil {
				return rollback(err, "failed to staff instance")
			}
			open[i].WorkshifterID = &pid
			taken[key] = true
			entry := &models.ShiftLogEntry{
				InstanceID: open[i].ID,
				ProfileID:  profileID,
				EntryType:  models.LogAssigned,
			}
			if err := s.logs.Create(ctx, tx, entry); err != nil {
				return rollback(err, "failed to log assignment")
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit transaction")
	}
	s.logger.Info("shift assignees updated",
		zap.String("shift_id", shiftID),
		zap.Int("added", len(added)),
		zap.Int("removed", len(removed)))
	return nil
}

func validateClockRange(start, end string, weekLong bool) error {
	if weekLong {
		return nil
	}
	if !validClock(start) || !validClock(end) {
		return appErrors.Clone(appErrors.ErrValidation, "shift times use HH:MM wall-clock times")
	}
	return nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

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

type instanceRepository interface {
	List(ctx context.Context, filter models.InstanceFilter) ([]models.InstanceDetail, int, error)
	FindDetail(ctx context.Context, id string) (*models.InstanceDetail, error)
	Create(ctx context.Context, exec sqlx.ExtContext, instance *models.WorkshiftInstance) error
	CreateInfo(ctx context.Context, exec sqlx.ExtContext, info *models.InstanceInfo) error
	UpdateStaffing(ctx context.Context, exec sqlx.ExtContext, id string, workshifterID, liableID *string) error
	CloseVerified(ctx context.Context, exec sqlx.ExtContext, id, verifierID string) (bool, error)
	ReopenVerified(ctx context.Context, exec sqlx.ExtContext, id string) (bool, error)
	CloseBlown(ctx context.Context, exec sqlx.ExtContext, id string) (bool, error)
	ReopenBlown(ctx context.Context, exec sqlx.ExtContext, id string) (bool, error)
	UpdateHours(ctx context.Context, exec sqlx.ExtContext, id string, hours float64) error
	Delete(ctx context.Context, exec sqlx.ExtContext, id string) error
}

type instanceLogRepository interface {
	Create(ctx context.Context, exec sqlx.ExtContext, entry *models.ShiftLogEntry) error
	ListByInstance(ctx context.Context, instanceID string) ([]models.ShiftLogEntry, error)
}

type instancePoolHoursRepository interface {
	Find(ctx context.Context, profileID, poolID string) (*models.PoolHours, error)
	AdjustStanding(ctx context.Context, exec sqlx.ExtContext, id string, delta float64) error
}

type poolManagerChecker interface {
	IsManager(ctx context.Context, poolID, memberID string) (bool, error)
}

// Actor identifies who is performing an instance transition.
type Actor struct {
	MemberID         string
	ProfileID        string
	WorkshiftManager bool
}

// CreateOneOffRequest holds payload for one-off instances.
type CreateOneOffRequest struct {
	SemesterID  string            `json:"semester_id" validate:"required"`
	PoolID      string            `json:"pool_id" validate:"required"`
	Title       string            `json:"title" validate:"required"`
	Description string            `json:"description"`
	Date        time.Time         `json:"date" validate:"required"`
	StartTime   string            `json:"start_time"`
	EndTime     string            `json:"end_time"`
	Hours       float64           `json:"hours" validate:"required,min=0"`
	Verify      models.VerifyMode `json:"verify" validate:"required,oneof=SELF AUTO OTHER_MEMBER ANY_MANAGER POOL_MANAGER WORKSHIFT_MANAGER"`
	WeekLong    bool              `json:"week_long"`
	AssigneeID  *string           `json:"assignee_id,omitempty"`
}

// InstanceView is an instance with its audit trail attached.
type InstanceView struct {
	models.InstanceDetail
	Logs []models.ShiftLogEntry `json:"logs"`
}

// InstanceService runs the instance state machine: sign-in, sign-out,
// verification, blown handling and hour edits. Closed instances are
// terminal apart from the explicit unverify/unblown reversals, and every
// transition lands atomically with its standing change and log entry.
type InstanceService struct {
	repo      instanceRepository
	logs      instanceLogRepository
	poolHours instancePoolHoursRepository
	pools     poolManagerChecker
	db        txBeginner
	validator *validator.Validate
	logger    *zap.Logger

	// now is swappable in tests.
	now func() time.Time
}

// NewInstanceService constructs the instance service.
func NewInstanceService(
	repo instanceRepository,
	logs instanceLogRepository,
	poolHours instancePoolHoursRepository,
	pools poolManagerChecker,
	db txBeginner,
	validate *validator.Validate,
	logger *zap.Logger,
) *InstanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InstanceService{
		repo:      repo,
		logs:      logs,
		poolHours: poolHours,
		pools:     pools,
		db:        db,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
}

// List returns instances and pagination metadata.
func (s *InstanceService) List(ctx context.Context, filter models.InstanceFilter) ([]models.InstanceDetail, *models.Pagination, error) {
	instances, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instances")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 100
	}
	return instances, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one instance with its log trail.
func (s *InstanceService) Get(ctx context.Context, id string) (*InstanceView, error) {
	detail, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	logs, err := s.logs.ListByInstance(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list instance logs")
	}
	return &InstanceView{InstanceDetail: *detail, Logs: logs}, nil
}

// CreateOneOff adds a single dated instance outside any recurring shift.
func (s *InstanceService) CreateOneOff(ctx context.Context, req CreateOneOffRequest) (*models.InstanceDetail, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid instance payload")
	}
	if !req.WeekLong && (!validClock(req.StartTime) || !validClock(req.EndTime)) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "instance times use HH:MM wall-clock times")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}

	info := &models.InstanceInfo{
		Title:       req.Title,
		Description: req.Description,
		PoolID:      req.PoolID,
		StartTime:   req.StartTime,
		EndTime:     req.EndTime,
		Verify:      req.Verify,
		WeekLong:    req.WeekLong,
	}
	if err := s.repo.CreateInfo(ctx, tx, info); err != nil {
		_ = tx.Rollback()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create instance info")
	}
	instance := &models.WorkshiftInstance{
		SemesterID:    req.SemesterID,
		InfoID:        &info.ID,
		Date:          req.Date,
		WorkshifterID: req.AssigneeID,
		IntendedHours: req.Hours,
		Hours:         req.Hours,
		Verify:        req.Verify,
		WeekLong:      req.WeekLong,
	}
	if err := s.repo.Create(ctx, tx, instance); err != nil {
		_ = tx.Rollback()
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create instance")
	}
	if req.AssigneeID != nil {
		entry := &models.ShiftLogEntry{InstanceID: instance.ID, ProfileID: *req.AssigneeID, EntryType: models.LogAssigned}
		if err := s.logs.Create(ctx, tx, entry); err != nil {
			_ = tx.Rollback()
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to log assignment")
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit transaction")
	}
	return s.find(ctx, instance.ID)
}

// SignIn claims a vacant instance for the acting member.
func (s *InstanceService) SignIn(ctx context.Context, instanceID string, actor Actor) error {
	detail, err := s.find(ctx, instanceID)
	if err != nil {
		return err
	}
	if detail.Closed {
		return appErrors.Clone(appErrors.ErrShiftClosed, appErrors.ErrShiftClosed.Message)
	}
	if detail.WorkshifterID != nil {
		return appErrors.Clone(appErrors.ErrShiftFilled, appErrors.ErrShiftFilled.Message)
	}

	return s.transition(ctx, func(tx *sqlx.Tx) error {
		pid := actor.ProfileID
		if err := s.repo.UpdateStaffing(ctx, tx, instanceID, &pid, detail.LiableID); err != nil {
			return err
		}
		return s.logs.Create(ctx, tx, &models.ShiftLogEntry{
			InstanceID: instanceID,
			ProfileID:  actor.ProfileID,
			EntryType:  models.LogSignIn,
		})
	})
}

// SignOut releases an instance the acting member holds. Signing out
// inside the pool's cutoff window leaves the member liable: they still
// eat the penalty if nobody picks the shift up.
func (s *InstanceService) SignOut(ctx context.Context, instanceID string, actor Actor) error {
	detail, err := s.find(ctx, instanceID)
	if err != nil {
		return err
	}
	if detail.Closed {
		return appErrors.Clone(appErrors.ErrShiftClosed, appErrors.ErrShiftClosed.Message)
	}
	if detail.WorkshifterID == nil {
		return appErrors.Clone(appErrors.ErrShiftUnfilled, appErrors.ErrShiftUnfilled.Message)
	}
	if *detail.WorkshifterID != actor.ProfileID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the signed-in member can sign out")
	}

	liable := detail.LiableID
	if s.now().After(detail.StartAt().Add(-detail.SignOutCutoff())) {
		pid := actor.ProfileID
		liable = &pid
	}

	return s.transition(ctx, func(tx *sqlx.Tx) error {
		if err := s.repo.UpdateStaffing(ctx, tx, instanceID, nil, liable); err != nil {
			return err
		}
		return s.logs.Create(ctx, tx, &models.ShiftLogEntry{
			InstanceID: instanceID,
			ProfileID:  actor.ProfileID,
			EntryType:  models.LogSignOut,
		})
	})
}

// Sell releases an instance without liability, advertising it for pickup.
func (s *InstanceService) Sell(ctx context.Context, instanceID string, actor Actor, note string) error {
	detail, err := s.find(ctx, instanceID)
	if err != nil {
		return err
	}
	if detail.Closed {
		return appErrors.Clone(appErrors.ErrShiftClosed, appErrors.ErrShiftClosed.Message)
	}
	if detail.WorkshifterID == nil || *detail.WorkshifterID != actor.ProfileID {
		return appErrors.Clone(appErrors.ErrForbidden, "only the signed-in member can sell a shift")
	}

	return s.transition(ctx, func(tx *sqlx.Tx) error {
		if err := s.repo.UpdateStaffing(ctx, tx, instanceID, nil, detail.LiableID); err != nil {
			return err
		}
		return s.logs.Create(ctx, tx, &models.ShiftLogEntry{
			InstanceID: instanceID,
			ProfileID:  actor.ProfileID,
			EntryType:  models.LogSell,
			Note:       note,
		})
	})
}

// Verify closes an instance as completed and credits its hours to the
// workshifter's standing. Who may verify depends on the instance's mode.
func (s *InstanceService) Verify(ctx context.Context, instanceID string, actor Actor) error {
	detail, err := s.find(ctx, instanceID)
	if err != nil {
		return err
	}
	if detail.Closed {
		return appErrors.Clone(appErrors.ErrShiftClosed, appErrors.ErrShiftClosed.Message)
	}
	if detail.WorkshifterID == nil {
		return appErrors.Clone(appErrors.ErrShiftUnfilled, appErrors.ErrShiftUnfilled.Message)
	}
	now := s.now()
	if now.Before(detail.StartAt()) {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "a workshift cannot be verified before it starts")
	}
	if now.After(detail.EndAt().Add(detail.VerifyCutoff())) {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "the verification window for this workshift has closed")
	}
	if err := s.checkVerifyAuthority(ctx, detail, actor); err != nil {
		return err
	}

	account, err := s.account(ctx, *detail.WorkshifterID, detail.PoolID)
	if err != nil {
		return err
	}

	return s.transition(ctx, func(tx *sqlx.Tx) error {
		done, err := s.repo.CloseVerified(ctx, tx, instanceID, actor.ProfileID)
		if err != nil {
			return err
		}
		if !done {
			return appErrors.Clone(appErrors.ErrShiftClosed, appErrors.ErrShiftClosed.Message)
		}
		if err := s.poolHours.AdjustStanding(ctx, tx, account.ID, detail.Hours); err != nil {
			return err
		}
		hours := detail.Hours
		return s.logs.Create(ctx, tx, &models.ShiftLogEntry{
			InstanceID: instanceID,
			ProfileID:  actor.ProfileID,
			EntryType:  models.LogVerify,
			Hours:      &hours,
		})
	})
}

// Unverify reverses a verification, debiting the credited hours.
func (s *InstanceService) Unverify(ctx context.Context, instanceID string, actor Actor) error {
	detail, err := s.find(ctx, instanceID)
	if err != nil {
		return err
	}
	if !detail.Closed || detail.Blown || detail.VerifierID == nil {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "instance is not verified")
	}
	if err := s.requireManager(ctx, detail.PoolID, actor); err != nil {
		return err
	}
	if detail.WorkshifterID == nil {
		return appErrors.Clone(appErrors.ErrShiftUnfilled, appErrors.ErrShiftUnfilled.Message)
	}

	account, err := s.account(ctx, *detail.WorkshifterID, detail.PoolID)
	if err != nil {
		return err
	}

	return s.transition(ctx, func(tx *sqlx.Tx) error {
		done, err := s.repo.ReopenVerified(ctx, tx, instanceID)
		if err != nil {
			return err
		}
		if !done {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "instance is not verified")
		}
		if err := s.poolHours.AdjustStanding(ctx, tx, account.ID, -detail.Hours); err != nil {
			return err
		}
		return s.logs.Create(ctx, tx, &models.ShiftLogEntry{
			InstanceID: instanceID,
			ProfileID:  actor.ProfileID,
			EntryType:  models.LogUnverify,
		})
	})
}

// MarkBlown closes an instance as blown and debits the accountable
// member. Pools with any-blown enabled let any member report it;
// otherwise it takes a manager.
func (s *InstanceService) MarkBlown(ctx context.Context, instanceID string, actor Actor) error {
	detail, err := s.find(ctx, instanceID)
	if err != nil {
		return err
	}
	if detail.Closed {
		return appErrors.Clone(appErrors.ErrShiftClosed, appErrors.ErrShiftClosed.Message)
	}
	if !detail.AnyBlown {
		if err := s.requireManager(ctx, detail.PoolID, actor); err != nil {
			return err
		}
	}
	accountable := detail.AccountableProfile()
	if accountable == nil {
		return appErrors.Clone(appErrors.ErrShiftUnfilled, appErrors.ErrShiftUnfilled.Message)
	}

	account, err := s.account(ctx, *accountable, detail.PoolID)
	if err != nil {
		return err
	}

	return s.transition(ctx, func(tx *sqlx.Tx) error {
		done, err := s.repo.CloseBlown(ctx, tx, instanceID)
		if err != nil {
			return err
		}
		if !done {
			return appErrors.Clone(appErrors.ErrShiftClosed, appErrors.ErrShiftClosed.Message)
		}
		if err := s.poolHours.AdjustStanding(ctx, tx, account.ID, -detail.Hours); err != nil {
			return err
		}
		return s.logs.Create(ctx, tx, &models.ShiftLogEntry{
			InstanceID: instanceID,
			ProfileID:  actor.ProfileID,
			EntryType:  models.LogBlown,
		})
	})
}

// UnmarkBlown reverses a blown closure and refunds the debited hours.
func (s *InstanceService) UnmarkBlown(ctx context.Context, instanceID string, actor Actor) error {
	detail, err := s.find(ctx, instanceID)
	if err != nil {
		return err
	}
	if !detail.Closed || !detail.Blown {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "instance is not blown")
	}
	if err := s.requireManager(ctx, detail.PoolID, actor); err != nil {
		return err
	}
	accountable := detail.AccountableProfile()
	if accountable == nil {
		return appErrors.Clone(appErrors.ErrShiftUnfilled, appErrors.ErrShiftUnfilled.Message)
	}

	account, err := s.account(ctx, *accountable, detail.PoolID)
	if err != nil {
		return err
	}

	return s.transition(ctx, func(tx *sqlx.Tx) error {
		done, err := s.repo.ReopenBlown(ctx, tx, instanceID)
		if err != nil {
			return err
		}
		if !done {
			return appErrors.Clone(appErrors.ErrPreconditionFailed, "instance is not blown")
		}
		if err := s.poolHours.AdjustStanding(ctx, tx, account.ID, detail.Hours); err != nil {
			return err
		}
		return s.logs.Create(ctx, tx, &models.ShiftLogEntry{
			InstanceID: instanceID,
			ProfileID:  actor.ProfileID,
			EntryType:  models.LogUnblown,
		})
	})
}

// EditHours changes the hour credit of an instance. On an instance that
// has already been verified the workshifter's standing moves by the
// difference.
func (s *InstanceService) EditHours(ctx context.Context, instanceID string, hours float64, note string, actor Actor) error {
	if hours < 0 {
		return appErrors.Clone(appErrors.ErrValidation, "hours cannot be negative")
	}
	detail, err := s.find(ctx, instanceID)
	if err != nil {
		return err
	}
	if err := s.requireManager(ctx, detail.PoolID, actor); err != nil {
		return err
	}
	if detail.Blown {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "blown instances do not carry hour credit")
	}

	delta := hours - detail.Hours
	var account *models.PoolHours
	if detail.Closed && detail.WorkshifterID != nil && delta != 0 {
		if account, err = s.account(ctx, *detail.WorkshifterID, detail.PoolID); err != nil {
			return err
		}
	}

	return s.transition(ctx, func(tx *sqlx.Tx) error {
		if err := s.repo.UpdateHours(ctx, tx, instanceID, hours); err != nil {
			return err
		}
		if account != nil {
			if err := s.poolHours.AdjustStanding(ctx, tx, account.ID, delta); err != nil {
				return err
			}
		}
		h := hours
		return s.logs.Create(ctx, tx, &models.ShiftLogEntry{
			InstanceID: instanceID,
			ProfileID:  actor.ProfileID,
			EntryType:  models.LogModifyHours,
			Hours:      &h,
			Note:       note,
		})
	})
}

// Delete removes an instance outright. If the instance closed with a
// standing effect, that effect is reversed first: a verified close gives
// back its credit, a blown close refunds its penalty.
func (s *InstanceService) Delete(ctx context.Context, instanceID string, actor Actor) error {
	detail, err := s.find(ctx, instanceID)
	if err != nil {
		return err
	}
	if err := s.requireManager(ctx, detail.PoolID, actor); err != nil {
		return err
	}

	var account *models.PoolHours
	var delta float64
	if detail.Closed {
		switch {
		case detail.Blown:
			if accountable := detail.AccountableProfile(); accountable != nil {
				delta = detail.Hours
				if account, err = s.account(ctx, *accountable, detail.PoolID); err != nil {
					return err
				}
			}
		case detail.WorkshifterID != nil:
			delta = -detail.Hours
			if account, err = s.account(ctx, *detail.WorkshifterID, detail.PoolID); err != nil {
				return err
			}
		}
	}

	return s.transition(ctx, func(tx *sqlx.Tx) error {
		if account != nil {
			if err := s.poolHours.AdjustStanding(ctx, tx, account.ID, delta); err != nil {
				return err
			}
		}
		return s.repo.Delete(ctx, tx, instanceID)
	})
}

func (s *InstanceService) checkVerifyAuthority(ctx context.Context, detail *models.InstanceDetail, actor Actor) error {
	switch detail.Verify {
	case models.VerifyAuto:
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "auto-verified workshifts close on their own")
	case models.VerifySelf:
		if detail.SelfVerify {
			if detail.WorkshifterID == nil || *detail.WorkshifterID != actor.ProfileID {
				return appErrors.Clone(appErrors.ErrForbidden, "only the signed-in member can verify this workshift")
			}
			return nil
		}
		// Pool policy withholds self-verification: fall back to requiring
		// a second member, same as OTHER_MEMBER.
		if detail.WorkshifterID != nil && *detail.WorkshifterID == actor.ProfileID {
			return appErrors.Clone(appErrors.ErrForbidden, "this pool does not allow self-verification")
		}
		return nil
	case models.VerifyOther:
		if detail.WorkshifterID != nil && *detail.WorkshifterID == actor.ProfileID {
			return appErrors.Clone(appErrors.ErrForbidden, "another member must verify this workshift")
		}
		return nil
	case models.VerifyWorkshiftManager:
		if !actor.WorkshiftManager {
			return appErrors.Clone(appErrors.ErrForbidden, "a workshift manager must verify this workshift")
		}
		return nil
	case models.VerifyPoolManager, models.VerifyAnyManager:
		return s.requireManager(ctx, detail.PoolID, actor)
	default:
		return appErrors.Clone(appErrors.ErrValidation, "unknown verification mode")
	}
}

// requireManager passes for workshift managers and managers of the pool.
func (s *InstanceService) requireManager(ctx context.Context, poolID string, actor Actor) error {
	if actor.WorkshiftManager {
		return nil
	}
	manages, err := s.pools.IsManager(ctx, poolID, actor.MemberID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check pool manager")
	}
	if !manages {
		return appErrors.Clone(appErrors.ErrForbidden, "manager capability required")
	}
	return nil
}

func (s *InstanceService) account(ctx context.Context, profileID, poolID string) (*models.PoolHours, error) {
	account, err := s.poolHours.Find(ctx, profileID, poolID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "hour account not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hour account")
	}
	return account, nil
}

func (s *InstanceService) find(ctx context.Context, id string) (*models.InstanceDetail, error) {
	detail, err := s.repo.FindDetail(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "instance not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load instance")
	}
	return detail, nil
}

// transition wraps one state change, its standing delta and its log entry
// into a single transaction.
func (s *InstanceService) transition(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		if appErr, ok := err.(*appErrors.Error); ok {
			return appErr
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "instance transition failed")
	}
	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit transaction")
	}
	return nil
}

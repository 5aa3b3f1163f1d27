package service

import (
	"context"
	"database/sql"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/farnsworth-bsc/workshift-api/internal/models"
	appErrors "github.com/farnsworth-bsc/workshift-api/pkg/errors"
)

type poolRepository interface {
	ListBySemester(ctx context.Context, semesterID string) ([]models.WorkshiftPool, error)
	FindByID(ctx context.Context, id string) (*models.WorkshiftPool, error)
	ExistsByTitle(ctx context.Context, semesterID, title, excludeID string) (bool, error)
	Create(ctx context.Context, pool *models.WorkshiftPool) error
	Update(ctx context.Context, pool *models.WorkshiftPool) error
	Delete(ctx context.Context, id string) error
	SetManagers(ctx context.Context, poolID string, memberIDs []string) error
	ListManagerIDs(ctx context.Context, poolID string) ([]string, error)
}

type poolHoursReader interface {
	ListByPool(ctx context.Context, poolID string) ([]models.PoolHours, error)
	UpdateRequirement(ctx context.Context, id string, hours float64) error
}

// hoursFiller back-fills the (profile, pool) hours grid after a pool or
// profile is added mid-semester. SemesterService implements it.
type hoursFiller interface {
	FillPoolHours(ctx context.Context, semesterID string) error
}

// CreatePoolRequest holds payload for creating workshift pools.
type CreatePoolRequest struct {
	SemesterID         string     `json:"semester_id" validate:"required"`
	Title              string     `json:"title" validate:"required"`
	Hours              float64    `json:"hours" validate:"min=0"`
	WeeksPerPeriod     int        `json:"weeks_per_period" validate:"min=0"`
	SignOutCutoffHours int        `json:"sign_out_cutoff_hours" validate:"min=0"`
	VerifyCutoffHours  int        `json:"verify_cutoff_hours" validate:"min=0"`
	SelfVerify         bool       `json:"self_verify"`
	AnyBlown           bool       `json:"any_blown"`
	FirstFineDate      *time.Time `json:"first_fine_date,omitempty"`
	SecondFineDate     *time.Time `json:"second_fine_date,omitempty"`
	ThirdFineDate      *time.Time `json:"third_fine_date,omitempty"`
	ManagerIDs         []string   `json:"manager_ids,omitempty"`
}

// UpdatePoolRequest holds payload for updating workshift pools.
type UpdatePoolRequest struct {
	Title              string     `json:"title" validate:"required"`
	Hours              float64    `json:"hours" validate:"min=0"`
	WeeksPerPeriod     int        `json:"weeks_per_period" validate:"min=0"`
	SignOutCutoffHours int        `json:"sign_out_cutoff_hours" validate:"min=0"`
	VerifyCutoffHours  int        `json:"verify_cutoff_hours" validate:"min=0"`
	SelfVerify         bool       `json:"self_verify"`
	AnyBlown           bool       `json:"any_blown"`
	FirstFineDate      *time.Time `json:"first_fine_date,omitempty"`
	SecondFineDate     *time.Time `json:"second_fine_date,omitempty"`
	ThirdFineDate      *time.Time `json:"third_fine_date,omitempty"`
	ManagerIDs         []string   `json:"manager_ids,omitempty"`
}

// PoolService handles workshift pool administration.
type PoolService struct {
	repo      poolRepository
	hours     poolHoursReader
	filler    hoursFiller
	validator *validator.Validate
	logger    *zap.Logger
}

// NewPoolService constructs the pool service.
func NewPoolService(repo poolRepository, hours poolHoursReader, filler hoursFiller, validate *validator.Validate, logger *zap.Logger) *PoolService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PoolService{repo: repo, hours: hours, filler: filler, validator: validate, logger: logger}
}

// List returns the pools of one semester, managers included.
func (s *PoolService) List(ctx context.Context, semesterID string) ([]models.WorkshiftPool, error) {
	pools, err := s.repo.ListBySemester(ctx, semesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pools")
	}
	return pools, nil
}

// Get returns one pool.
func (s *PoolService) Get(ctx context.Context, id string) (*models.WorkshiftPool, error) {
	pool, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "pool not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load pool")
	}
	return pool, nil
}

// Managers returns the member ids administering a pool.
func (s *PoolService) Managers(ctx context.Context, id string) ([]string, error) {
	ids, err := s.repo.ListManagerIDs(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pool managers")
	}
	return ids, nil
}

// Create adds a pool to a semester and back-fills hour records so every
// existing profile immediately carries the new pool's requirement.
func (s *PoolService) Create(ctx context.Context, req CreatePoolRequest) (*models.WorkshiftPool, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid pool payload")
	}
	exists, err := s.repo.ExistsByTitle(ctx, req.SemesterID, req.Title, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate pool title")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "pool title already used this semester")
	}

	pool := &models.WorkshiftPool{
		SemesterID:         req.SemesterID,
		Title:              req.Title,
		Hours:              req.Hours,
		WeeksPerPeriod:     req.WeeksPerPeriod,
		SignOutCutoffHours: req.SignOutCutoffHours,
		VerifyCutoffHours:  req.VerifyCutoffHours,
		SelfVerify:         req.SelfVerify,
		AnyBlown:           req.AnyBlown,
		FirstFineDate:      req.FirstFineDate,
		SecondFineDate:     req.SecondFineDate,
		ThirdFineDate:      req.ThirdFineDate,
	}
	if err := s.repo.Create(ctx, pool); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create pool")
	}
	if len(req.ManagerIDs) > 0 {
		if err := s.repo.SetManagers(ctx, pool.ID, req.ManagerIDs); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set pool managers")
		}
	}
	if err := s.filler.FillPoolHours(ctx, req.SemesterID); err != nil {
		return nil, err
	}
	return pool, nil
}

// Update modifies a pool. When the default requirement changes, hour
// records still sitting at the old default follow it; individually
// adjusted records keep their value.
func (s *PoolService) Update(ctx context.Context, id string, req UpdatePoolRequest) (*models.WorkshiftPool, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid pool payload")
	}
	pool, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsByTitle(ctx, pool.SemesterID, req.Title, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate pool title")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "pool title already used this semester")
	}

	oldHours := pool.Hours
	pool.Title = req.Title
	pool.Hours = req.Hours
	pool.WeeksPerPeriod = req.WeeksPerPeriod
	pool.SignOutCutoffHours = req.SignOutCutoffHours
	pool.VerifyCutoffHours = req.VerifyCutoffHours
	pool.SelfVerify = req.SelfVerify
	pool.AnyBlown = req.AnyBlown
	pool.FirstFineDate = req.FirstFineDate
	pool.SecondFineDate = req.SecondFineDate
	pool.ThirdFineDate = req.ThirdFineDate

	if err := s.repo.Update(ctx, pool); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update pool")
	}
	if req.ManagerIDs != nil {
		if err := s.repo.SetManagers(ctx, id, req.ManagerIDs); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set pool managers")
		}
	}

	if oldHours != req.Hours {
		records, err := s.hours.ListByPool(ctx, id)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pool hours")
		}
		for i := range records {
			if records[i].Hours != oldHours {
				continue
			}
			if err := s.hours.UpdateRequirement(ctx, records[i].ID, req.Hours); err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to propagate pool hours")
			}
		}
	}
	return pool, nil
}

// Delete removes a pool. The primary pool of a semester cannot go away.
func (s *PoolService) Delete(ctx context.Context, id string) error {
	pool, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if pool.IsPrimary {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "the primary pool cannot be deleted")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete pool")
	}
	return nil
}

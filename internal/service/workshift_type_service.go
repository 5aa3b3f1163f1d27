package service

import (
	"context"
	"database/sql"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/farnsworth-bsc/workshift-api/internal/models"
	appErrors "github.com/farnsworth-bsc/workshift-api/pkg/errors"
)

type workshiftTypeRepository interface {
	List(ctx context.Context, filter models.WorkshiftTypeFilter) ([]models.WorkshiftType, int, error)
	FindByID(ctx context.Context, id string) (*models.WorkshiftType, error)
	ExistsByTitle(ctx context.Context, title, excludeID string) (bool, error)
	Create(ctx context.Context, wtype *models.WorkshiftType) error
	Update(ctx context.Context, wtype *models.WorkshiftType) error
	Delete(ctx context.Context, id string) error
	CountShifts(ctx context.Context, id string) (int, error)
}

// CreateWorkshiftTypeRequest holds payload for creating catalog entries.
type CreateWorkshiftTypeRequest struct {
	Title       string                `json:"title" validate:"required"`
	Description string                `json:"description"`
	QuickTips   string                `json:"quick_tips"`
	Hours       float64               `json:"hours" validate:"min=0"`
	Rateable    bool                  `json:"rateable"`
	Assignment  models.AssignmentMode `json:"assignment" validate:"required,oneof=AUTO MANUAL NONE"`
}

// UpdateWorkshiftTypeRequest holds payload for updating catalog entries.
type UpdateWorkshiftTypeRequest struct {
	Title       string                `json:"title" validate:"required"`
	Description string                `json:"description"`
	QuickTips   string                `json:"quick_tips"`
	Hours       float64               `json:"hours" validate:"min=0"`
	Rateable    bool                  `json:"rateable"`
	Assignment  models.AssignmentMode `json:"assignment" validate:"required,oneof=AUTO MANUAL NONE"`
}

// WorkshiftTypeService manages the long-lived catalog of chore kinds.
type WorkshiftTypeService struct {
	repo      workshiftTypeRepository
	validator *validator.Validate
	logger    *zap.Logger
}

// NewWorkshiftTypeService constructs the workshift type service.
func NewWorkshiftTypeService(repo workshiftTypeRepository, validate *validator.Validate, logger *zap.Logger) *WorkshiftTypeService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WorkshiftTypeService{repo: repo, validator: validate, logger: logger}
}

// List returns catalog entries and pagination metadata.
func (s *WorkshiftTypeService) List(ctx context.Context, filter models.WorkshiftTypeFilter) ([]models.WorkshiftType, *models.Pagination, error) {
	types, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list workshift types")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return types, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one catalog entry.
func (s *WorkshiftTypeService) Get(ctx context.Context, id string) (*models.WorkshiftType, error) {
	wtype, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "workshift type not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load workshift type")
	}
	return wtype, nil
}

// Create registers a new catalog entry.
func (s *WorkshiftTypeService) Create(ctx context.Context, req CreateWorkshiftTypeRequest) (*models.WorkshiftType, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid workshift type payload")
	}
	exists, err := s.repo.ExistsByTitle(ctx, req.Title, "")
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate title")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "workshift type title already used")
	}
	wtype := &models.WorkshiftType{
		Title:       req.Title,
		Description: req.Description,
		QuickTips:   req.QuickTips,
		Hours:       req.Hours,
		Rateable:    req.Rateable,
		Assignment:  req.Assignment,
	}
	if err := s.repo.Create(ctx, wtype); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create workshift type")
	}
	return wtype, nil
}

// Update modifies a catalog entry.
func (s *WorkshiftTypeService) Update(ctx context.Context, id string, req UpdateWorkshiftTypeRequest) (*models.WorkshiftType, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid workshift type payload")
	}
	wtype, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	exists, err := s.repo.ExistsByTitle(ctx, req.Title, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to validate title")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, "workshift type title already used")
	}
	wtype.Title = req.Title
	wtype.Description = req.Description
	wtype.QuickTips = req.QuickTips
	wtype.Hours = req.Hours
	wtype.Rateable = req.Rateable
	wtype.Assignment = req.Assignment
	if err := s.repo.Update(ctx, wtype); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update workshift type")
	}
	return wtype, nil
}

// Delete removes a catalog entry. Entries still referenced by recurring
// shifts are kept; deleting them would orphan shift history.
func (s *WorkshiftTypeService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	count, err := s.repo.CountShifts(ctx, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count shifts for type")
	}
	if count > 0 {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "workshift type is referenced by existing shifts")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete workshift type")
	}
	return nil
}

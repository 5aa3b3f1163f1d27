package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/farnsworth-bsc/workshift-api/internal/models"
	"github.com/farnsworth-bsc/workshift-api/pkg/config"
	appErrors "github.com/farnsworth-bsc/workshift-api/pkg/errors"
)

const currentSemesterCacheKey = "workshift:semester:current"

type semesterRepository interface {
	List(ctx context.Context, filter models.SemesterFilter) ([]models.Semester, int, error)
	FindByID(ctx context.Context, id string) (*models.Semester, error)
	ListCurrent(ctx context.Context) ([]models.Semester, error)
	Create(ctx context.Context, semester *models.Semester) error
	Update(ctx context.Context, semester *models.Semester) error
	DeleteCascade(ctx context.Context, id string) error
	Exists(ctx context.Context, season models.Season, year int) (bool, error)
}

type semesterPoolRepository interface {
	ListBySemester(ctx context.Context, semesterID string) ([]models.WorkshiftPool, error)
	Create(ctx context.Context, pool *models.WorkshiftPool) error
	SetManagers(ctx context.Context, poolID string, memberIDs []string) error
	ManagerEmails(ctx context.Context, semesterID string) ([]string, error)
}

type semesterMemberRepository interface {
	ListEligible(ctx context.Context, anonymousUsername string) ([]models.Member, error)
	ListWorkshiftManagers(ctx context.Context) ([]models.Member, error)
}

type semesterTypeCatalog interface {
	FindByTitle(ctx context.Context, title string) (*models.WorkshiftType, error)
	Create(ctx context.Context, wtype *models.WorkshiftType) error
}

// managerShiftSeeder is the slice of ShiftService used to hand each
// workshift manager their recurring shift on semester start.
type managerShiftSeeder interface {
	Create(ctx context.Context, req CreateShiftRequest) (*models.ShiftDetail, error)
	UpdateAssignees(ctx context.Context, shiftID string, profileIDs []string) error
}

type semesterProfileRepository interface {
	ListBySemester(ctx context.Context, semesterID string) ([]models.ProfileDetail, error)
	Create(ctx context.Context, profile *models.WorkshiftProfile) error
}

type semesterPoolHoursRepository interface {
	ExistingPairs(ctx context.Context, semesterID string) (map[string]struct{}, error)
	Create(ctx context.Context, hours *models.PoolHours) error
}

// StartSemesterRequest holds payload for starting a new semester.
type StartSemesterRequest struct {
	Season    models.Season `json:"season" validate:"required,oneof=SPRING SUMMER FALL"`
	Year      int           `json:"year" validate:"required,min=1900"`
	Rate      float64       `json:"rate" validate:"min=0"`
	PolicyURL string        `json:"policy_url" validate:"omitempty,url"`
	StartDate *time.Time    `json:"start_date,omitempty"`
	EndDate   *time.Time    `json:"end_date,omitempty"`
}

// UpdateSemesterRequest holds payload for updating semester settings.
type UpdateSemesterRequest struct {
	Rate            float64    `json:"rate" validate:"min=0"`
	PolicyURL       string     `json:"policy_url" validate:"omitempty,url"`
	StartDate       *time.Time `json:"start_date,omitempty"`
	EndDate         *time.Time `json:"end_date,omitempty"`
	PreferencesOpen bool       `json:"preferences_open"`
	Current         bool       `json:"current"`
}

// SemesterService handles semester lifecycle: starting a semester seeds
// the primary pool, a profile per eligible member and the full
// profile-pool hours grid.
type SemesterService struct {
	repo      semesterRepository
	pools     semesterPoolRepository
	members   semesterMemberRepository
	profiles  semesterProfileRepository
	poolHours semesterPoolHoursRepository
	types     semesterTypeCatalog
	shifts    managerShiftSeeder
	cache     *CacheService
	cfg       config.WorkshiftConfig
	validator *validator.Validate
	logger    *zap.Logger
}

// NewSemesterService constructs the semester service.
func NewSemesterService(
	repo semesterRepository,
	pools semesterPoolRepository,
	members semesterMemberRepository,
	profiles semesterProfileRepository,
	poolHours semesterPoolHoursRepository,
	types semesterTypeCatalog,
	shifts managerShiftSeeder,
	cache *CacheService,
	cfg config.WorkshiftConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *SemesterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SemesterService{
		repo:      repo,
		pools:     pools,
		members:   members,
		profiles:  profiles,
		poolHours: poolHours,
		types:     types,
		shifts:    shifts,
		cache:     cache,
		cfg:       cfg,
		validator: validate,
		logger:    logger,
	}
}

// List returns semesters and pagination metadata.
func (s *SemesterService) List(ctx context.Context, filter models.SemesterFilter) ([]models.Semester, *models.Pagination, error) {
	semesters, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list semesters")
	}
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	return semesters, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// Get returns one semester.
func (s *SemesterService) Get(ctx context.Context, id string) (*models.Semester, error) {
	semester, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "semester not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}
	return semester, nil
}

// Current resolves the current semester. When several semesters claim to
// be current the most recently started wins and the result carries a
// warning plus workshift manager contacts; the extra rows are reported,
// not silently repaired.
func (s *SemesterService) Current(ctx context.Context) (*models.CurrentSemesterResult, error) {
	if s.cache.Enabled() {
		var cached models.CurrentSemesterResult
		if hit, _ := s.cache.Get(ctx, currentSemesterCacheKey, &cached); hit {
			return &cached, nil
		}
	}

	semesters, err := s.repo.ListCurrent(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve current semester")
	}
	if len(semesters) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoSemester, appErrors.ErrNoSemester.Message)
	}

	result := &models.CurrentSemesterResult{Semester: &semesters[0]}
	if len(semesters) > 1 {
		result.Warning = fmt.Sprintf("%d semesters are marked current; using %s", len(semesters), semesters[0].Label())
		emails, err := s.pools.ManagerEmails(ctx, semesters[0].ID)
		if err != nil {
			s.logger.Warn("failed to collect manager emails for current-semester warning", zap.Error(err))
		} else {
			result.ManagerEmails = emails
		}
		s.logger.Warn("multiple current semesters",
			zap.Int("count", len(semesters)),
			zap.String("winner", semesters[0].Label()))
	}

	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, currentSemesterCacheKey, result, s.cfg.SemesterCacheTTL)
	}
	return result, nil
}

// Start creates a semester and seeds its scaffolding: other semesters
// lose the current flag, a primary pool is created and handed to the
// workshift managers, every eligible member gets a profile, every
// (profile, pool) pair gets an hours record and each manager gets their
// week-long manager shift.
func (s *SemesterService) Start(ctx context.Context, req StartSemesterRequest) (*models.Semester, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid semester payload")
	}

	exists, err := s.repo.Exists(ctx, req.Season, req.Year)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check for existing semester")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("semester %s %d already exists", req.Season, req.Year))
	}

	startDate, endDate := models.SeasonStartEnd(req.Year, req.Season)
	if req.StartDate != nil {
		startDate = *req.StartDate
	}
	if req.EndDate != nil {
		endDate = *req.EndDate
	}
	if !endDate.After(startDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester end date must follow start date")
	}

	semester := &models.Semester{
		Season:          req.Season,
		Year:            req.Year,
		Rate:            req.Rate,
		PolicyURL:       req.PolicyURL,
		StartDate:       startDate,
		EndDate:         endDate,
		PreferencesOpen: true,
		Current:         true,
	}
	if err := s.repo.Create(ctx, semester); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create semester")
	}

	primary := &models.WorkshiftPool{
		SemesterID:         semester.ID,
		Title:              "Regular Workshift",
		IsPrimary:          true,
		Hours:              s.cfg.DefaultPoolHours,
		WeeksPerPeriod:     1,
		SignOutCutoffHours: int(s.cfg.DefaultSignOutCutoff.Hours()),
		VerifyCutoffHours:  int(s.cfg.DefaultVerifyCutoff.Hours()),
		SelfVerify:         true,
	}
	if err := s.pools.Create(ctx, primary); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create primary pool")
	}

	managers, err := s.members.ListWorkshiftManagers(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list workshift managers")
	}
	if len(managers) > 0 {
		managerIDs := make([]string, 0, len(managers))
		for i := range managers {
			managerIDs = append(managerIDs, managers[i].ID)
		}
		if err := s.pools.SetManagers(ctx, primary.ID, managerIDs); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to set pool managers")
		}
	}

	eligible, err := s.members.ListEligible(ctx, s.cfg.AnonymousUsername)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list eligible members")
	}
	var managerProfiles []string
	for i := range eligible {
		profile := &models.WorkshiftProfile{
			MemberID:   eligible[i].ID,
			SemesterID: semester.ID,
		}
		if err := s.profiles.Create(ctx, profile); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create workshift profile")
		}
		if eligible[i].WorkshiftManager {
			managerProfiles = append(managerProfiles, profile.ID)
		}
	}

	if err := s.FillPoolHours(ctx, semester.ID); err != nil {
		return nil, err
	}

	if err := s.seedManagerShifts(ctx, primary.ID, managerProfiles); err != nil {
		return nil, err
	}

	s.invalidateCurrent(ctx)
	s.logger.Info("semester started",
		zap.String("semester", semester.Label()),
		zap.Int("profiles", len(eligible)))
	return semester, nil
}

// Update applies semester settings changes.
func (s *SemesterService) Update(ctx context.Context, id string, req UpdateSemesterRequest) (*models.Semester, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid semester payload")
	}
	semester, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	semester.Rate = req.Rate
	semester.PolicyURL = req.PolicyURL
	semester.PreferencesOpen = req.PreferencesOpen
	semester.Current = req.Current
	if req.StartDate != nil {
		semester.StartDate = *req.StartDate
	}
	if req.EndDate != nil {
		semester.EndDate = *req.EndDate
	}
	if !semester.EndDate.After(semester.StartDate) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "semester end date must follow start date")
	}

	if err := s.repo.Update(ctx, semester); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update semester")
	}
	s.invalidateCurrent(ctx)
	return semester, nil
}

// Delete removes a semester and everything hanging off it.
func (s *SemesterService) Delete(ctx context.Context, id string) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}
	if err := s.repo.DeleteCascade(ctx, id); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete semester")
	}
	s.invalidateCurrent(ctx)
	return nil
}

// FillPoolHours creates the missing (profile, pool) hour records for a
// semester, seeding each with its pool's default requirement. Idempotent;
// called on semester start and again whenever a pool or profile appears.
func (s *SemesterService) FillPoolHours(ctx context.Context, semesterID string) error {
	pools, err := s.pools.ListBySemester(ctx, semesterID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pools")
	}
	profiles, err := s.profiles.ListBySemester(ctx, semesterID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list profiles")
	}
	existing, err := s.poolHours.ExistingPairs(ctx, semesterID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pool hours")
	}

	created := 0
	for pi := range profiles {
		for qi := range pools {
			key := profiles[pi].ID + "|" + pools[qi].ID
			if _, ok := existing[key]; ok {
				continue
			}
			record := &models.PoolHours{
				PoolID:    pools[qi].ID,
				ProfileID: profiles[pi].ID,
				Hours:     pools[qi].Hours,
			}
			if err := s.poolHours.Create(ctx, record); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create pool hours")
			}
			created++
		}
	}
	if created > 0 {
		s.logger.Info("pool hours filled",
			zap.String("semester_id", semesterID),
			zap.Int("created", created))
	}
	return nil
}

const managerShiftTitle = "Workshift Manager"

// seedManagerShifts gives every workshift manager a week-long shift in
// the primary pool for their administrative hours. The catalog entry the
// shifts hang off is created on first use; its assignment mode is NONE so
// the auto-assigner leaves it alone.
func (s *SemesterService) seedManagerShifts(ctx context.Context, poolID string, profileIDs []string) error {
	if len(profileIDs) == 0 {
		return nil
	}

	wtype, err := s.types.FindByTitle(ctx, managerShiftTitle)
	if err == sql.ErrNoRows {
		wtype = &models.WorkshiftType{
			Title:       managerShiftTitle,
			Description: "Running the house workshift program for the semester.",
			Hours:       s.cfg.DefaultShiftHours,
			Assignment:  models.AssignmentModeNone,
		}
		if err := s.types.Create(ctx, wtype); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create manager shift type")
		}
	} else if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load manager shift type")
	}

	for _, profileID := range profileIDs {
		shift, err := s.shifts.Create(ctx, CreateShiftRequest{
			TypeID:   wtype.ID,
			PoolID:   poolID,
			WeekLong: true,
			Hours:    s.cfg.DefaultShiftHours,
			Count:    1,
			Verify:   models.VerifyAuto,
		})
		if err != nil {
			return err
		}
		if err := s.shifts.UpdateAssignees(ctx, shift.ID, []string{profileID}); err != nil {
			return err
		}
	}
	s.logger.Info("manager shifts seeded", zap.Int("count", len(profileIDs)))
	return nil
}

func (s *SemesterService) invalidateCurrent(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, currentSemesterCacheKey)
}

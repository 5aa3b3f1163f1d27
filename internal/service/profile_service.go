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

type profileRepository interface {
	ListBySemester(ctx context.Context, semesterID string) ([]models.ProfileDetail, error)
	FindByID(ctx context.Context, id string) (*models.WorkshiftProfile, error)
	FindByMemberSemester(ctx context.Context, memberID, semesterID string) (*models.WorkshiftProfile, error)
	Create(ctx context.Context, profile *models.WorkshiftProfile) error
	UpdateNote(ctx context.Context, id, note string) error
	TouchPreferenceSaveTime(ctx context.Context, id string, at time.Time) error
	ListRatings(ctx context.Context, profileID string) ([]models.WorkshiftRating, error)
	UpsertRating(ctx context.Context, rating *models.WorkshiftRating) error
	ListTimeBlocks(ctx context.Context, profileID string) ([]models.TimeBlock, error)
	ReplaceTimeBlocks(ctx context.Context, profileID string, blocks []models.TimeBlock) error
}

type profileSemesterReader interface {
	FindByID(ctx context.Context, id string) (*models.Semester, error)
}

type profileTypeReader interface {
	FindByID(ctx context.Context, id string) (*models.WorkshiftType, error)
}

type profileMemberReader interface {
	FindByID(ctx context.Context, id string) (*models.Member, error)
}

// profileHoursFiller is the slice of SemesterService that backfills the
// (profile, pool) hour grid after a profile appears mid-semester.
type profileHoursFiller interface {
	FillPoolHours(ctx context.Context, semesterID string) error
}

type profilePoolHoursReader interface {
	ListByProfile(ctx context.Context, profileID string) ([]models.PoolHours, error)
	Find(ctx context.Context, profileID, poolID string) (*models.PoolHours, error)
	SetAdjustment(ctx context.Context, id string, adjustment float64) error
}

// RatingInput sets one type preference.
type RatingInput struct {
	TypeID string        `json:"type_id" validate:"required"`
	Rating models.Rating `json:"rating" validate:"min=0,max=2"`
}

// TimeBlockInput sets one weekly availability window.
type TimeBlockInput struct {
	Day        int                        `json:"day" validate:"min=0,max=6"`
	StartTime  string                     `json:"start_time" validate:"required"`
	EndTime    string                     `json:"end_time" validate:"required"`
	Preference models.TimeBlockPreference `json:"preference" validate:"min=0,max=2"`
}

// SavePreferencesRequest holds a member's full preference submission.
type SavePreferencesRequest struct {
	Ratings    []RatingInput    `json:"ratings" validate:"dive"`
	TimeBlocks []TimeBlockInput `json:"time_blocks" validate:"dive"`
	Note       string           `json:"note"`
}

// ProfileView is the profile detail read-model with preferences and
// per-pool hour accounts attached.
type ProfileView struct {
	models.ProfileDetail
	Ratings    []models.WorkshiftRating `json:"ratings"`
	TimeBlocks []models.TimeBlock       `json:"time_blocks"`
	PoolHours  []models.PoolHours       `json:"pool_hours"`
}

// ProfileService manages per-semester workshift profiles and their
// preference submissions.
type ProfileService struct {
	repo      profileRepository
	semesters profileSemesterReader
	types     profileTypeReader
	members   profileMemberReader
	poolHours profilePoolHoursReader
	filler    profileHoursFiller
	validator *validator.Validate
	logger    *zap.Logger
}

// NewProfileService constructs the profile service.
func NewProfileService(repo profileRepository, semesters profileSemesterReader, types profileTypeReader, members profileMemberReader, poolHours profilePoolHoursReader, filler profileHoursFiller, validate *validator.Validate, logger *zap.Logger) *ProfileService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProfileService{repo: repo, semesters: semesters, types: types, members: members, poolHours: poolHours, filler: filler, validator: validate, logger: logger}
}

// List returns the profiles of one semester.
func (s *ProfileService) List(ctx context.Context, semesterID string) ([]models.ProfileDetail, error) {
	profiles, err := s.repo.ListBySemester(ctx, semesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list profiles")
	}
	return profiles, nil
}

// Get returns one profile with ratings, time blocks and hour accounts.
func (s *ProfileService) Get(ctx context.Context, id string) (*ProfileView, error) {
	profile, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}

	view := &ProfileView{}
	view.WorkshiftProfile = *profile

	if view.Ratings, err = s.repo.ListRatings(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list ratings")
	}
	if view.TimeBlocks, err = s.repo.ListTimeBlocks(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list time blocks")
	}
	if view.PoolHours, err = s.poolHours.ListByProfile(ctx, id); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pool hours")
	}
	return view, nil
}

// CreateProfileRequest adds a member to a running semester.
type CreateProfileRequest struct {
	MemberID   string `json:"member_id" validate:"required"`
	SemesterID string `json:"semester_id" validate:"required"`
}

// Create adds a workshift profile for a member who joined after semester
// start and backfills their hour accounts across the semester's pools.
func (s *ProfileService) Create(ctx context.Context, req CreateProfileRequest) (*models.WorkshiftProfile, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid profile payload")
	}
	if _, err := s.members.FindByID(ctx, req.MemberID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "member not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load member")
	}
	if _, err := s.semesters.FindByID(ctx, req.SemesterID); err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "semester not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}
	if _, err := s.repo.FindByMemberSemester(ctx, req.MemberID, req.SemesterID); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, "member already has a profile this semester")
	} else if err != sql.ErrNoRows {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check for existing profile")
	}

	profile := &models.WorkshiftProfile{MemberID: req.MemberID, SemesterID: req.SemesterID}
	if err := s.repo.Create(ctx, profile); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create profile")
	}
	if err := s.filler.FillPoolHours(ctx, req.SemesterID); err != nil {
		return nil, err
	}
	s.logger.Info("profile created mid-semester",
		zap.String("member_id", req.MemberID),
		zap.String("semester_id", req.SemesterID))
	return profile, nil
}

// GetByMember resolves a member's profile within a semester.
func (s *ProfileService) GetByMember(ctx context.Context, memberID, semesterID string) (*models.WorkshiftProfile, error) {
	profile, err := s.repo.FindByMemberSemester(ctx, memberID, semesterID)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "no workshift profile for member this semester")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}
	return profile, nil
}

// SavePreferences stores a member's ratings, availability and note.
// Rejected once the semester's preference window has closed. Ratings for
// non-rateable types are rejected rather than dropped.
func (s *ProfileService) SavePreferences(ctx context.Context, profileID string, req SavePreferencesRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid preferences payload")
	}
	profile, err := s.find(ctx, profileID)
	if err != nil {
		return err
	}
	semester, err := s.semesters.FindByID(ctx, profile.SemesterID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load semester")
	}
	if !semester.PreferencesOpen {
		return appErrors.Clone(appErrors.ErrPreconditionFailed, "the preference window for this semester is closed")
	}

	for _, block := range req.TimeBlocks {
		if !validClock(block.StartTime) || !validClock(block.EndTime) {
			return appErrors.Clone(appErrors.ErrValidation, "time blocks use HH:MM wall-clock times")
		}
	}

	for _, input := range req.Ratings {
		wtype, err := s.types.FindByID(ctx, input.TypeID)
		if err != nil {
			if err == sql.ErrNoRows {
				return appErrors.Clone(appErrors.ErrNotFound, "rated workshift type not found")
			}
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load workshift type")
		}
		if !wtype.Rateable {
			return appErrors.Clone(appErrors.ErrValidation, "workshift type does not accept ratings")
		}
		rating := &models.WorkshiftRating{ProfileID: profileID, TypeID: input.TypeID, Rating: input.Rating}
		if err := s.repo.UpsertRating(ctx, rating); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save rating")
		}
	}

	blocks := make([]models.TimeBlock, 0, len(req.TimeBlocks))
	for _, input := range req.TimeBlocks {
		blocks = append(blocks, models.TimeBlock{
			ProfileID:  profileID,
			Day:        input.Day,
			StartTime:  input.StartTime,
			EndTime:    input.EndTime,
			Preference: input.Preference,
		})
	}
	if err := s.repo.ReplaceTimeBlocks(ctx, profileID, blocks); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save time blocks")
	}

	if err := s.repo.UpdateNote(ctx, profileID, req.Note); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save note")
	}
	if err := s.repo.TouchPreferenceSaveTime(ctx, profileID, time.Now().UTC()); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stamp preference save")
	}
	return nil
}

// SetHourAdjustment sets a manual standing correction on one hour
// account. Standing moves by the difference from the previous adjustment.
func (s *ProfileService) SetHourAdjustment(ctx context.Context, profileID, poolID string, adjustment float64) error {
	record, err := s.poolHours.Find(ctx, profileID, poolID)
	if err != nil {
		if err == sql.ErrNoRows {
			return appErrors.Clone(appErrors.ErrNotFound, "hour account not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hour account")
	}
	if err := s.poolHours.SetAdjustment(ctx, record.ID, adjustment); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to apply hour adjustment")
	}
	s.logger.Info("hour adjustment applied",
		zap.String("profile_id", profileID),
		zap.String("pool_id", poolID),
		zap.Float64("adjustment", adjustment))
	return nil
}

func (s *ProfileService) find(ctx context.Context, id string) (*models.WorkshiftProfile, error) {
	profile, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "profile not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load profile")
	}
	return profile, nil
}

func validClock(clock string) bool {
	_, err := time.Parse("15:04", clock)
	return err == nil
}

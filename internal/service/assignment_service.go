package service

import (
	"context"
	"database/sql"
	"math/rand"
	"sort"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/farnsworth-bsc/workshift-api/internal/models"
	appErrors "github.com/farnsworth-bsc/workshift-api/pkg/errors"
)

type assignmentShiftRepository interface {
	ListAutoAssignable(ctx context.Context, poolID string) ([]models.ShiftDetail, error)
	ListAssigneeIDs(ctx context.Context, shiftID string) ([]string, error)
}

// shiftAssigner applies assignee changes with their hour bookkeeping.
// ShiftService implements it.
type shiftAssigner interface {
	UpdateAssignees(ctx context.Context, shiftID string, profileIDs []string) error
}

type assignmentProfileRepository interface {
	ListBySemester(ctx context.Context, semesterID string) ([]models.ProfileDetail, error)
	ListRatings(ctx context.Context, profileID string) ([]models.WorkshiftRating, error)
	ListTimeBlocks(ctx context.Context, profileID string) ([]models.TimeBlock, error)
}

type assignmentPoolHoursRepository interface {
	Find(ctx context.Context, profileID, poolID string) (*models.PoolHours, error)
	ListByPool(ctx context.Context, poolID string) ([]models.PoolHours, error)
}

type assignmentInstanceRepository interface {
	ListUnfilledOpen(ctx context.Context, poolID string, from time.Time) ([]models.InstanceDetail, error)
	UpdateStaffing(ctx context.Context, exec sqlx.ExtContext, id string, workshifterID, liableID *string) error
}

// AssignmentResult reports an assignment run: how many placements were
// made and which profiles still have unmet hour requirements.
type AssignmentResult struct {
	Assigned   int      `json:"assigned"`
	Unfinished []string `json:"unfinished_profile_ids"`
}

// AssignmentService distributes recurring shifts and leftover one-off
// instances across member profiles.
type AssignmentService struct {
	shifts    assignmentShiftRepository
	assigner  shiftAssigner
	profiles  assignmentProfileRepository
	poolHours assignmentPoolHoursRepository
	instances assignmentInstanceRepository
	logs      shiftLogWriter
	db        txBeginner
	logger    *zap.Logger

	// rng drives the random fallback assigner; swappable in tests.
	rng *rand.Rand
}

// NewAssignmentService constructs the assignment service.
func NewAssignmentService(
	shifts assignmentShiftRepository,
	assigner shiftAssigner,
	profiles assignmentProfileRepository,
	poolHours assignmentPoolHoursRepository,
	instances assignmentInstanceRepository,
	logs shiftLogWriter,
	db txBeginner,
	logger *zap.Logger,
) *AssignmentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		shifts:    shifts,
		assigner:  assigner,
		profiles:  profiles,
		poolHours: poolHours,
		instances: instances,
		logs:      logs,
		db:        db,
		logger:    logger,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

// AutoAssign hands out the auto-assignable shifts of a pool by member
// preference: liked types first, then unrated or indifferent ones;
// disliked types are never assigned. A shift whose hours would push a
// member past their requirement is skipped rather than overflowed.
// Profiles whose requirement could not be met come back as unfinished.
func (s *AssignmentService) AutoAssign(ctx context.Context, semesterID, poolID string) (*AssignmentResult, error) {
	shifts, err := s.shifts.ListAutoAssignable(ctx, poolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list auto-assignable shifts")
	}
	profiles, err := s.profiles.ListBySemester(ctx, semesterID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list profiles")
	}

	// Free headcount and pending additions per shift.
	slots := make(map[string]int, len(shifts))
	pending := make(map[string][]string, len(shifts))
	existing := make(map[string][]string, len(shifts))
	for i := range shifts {
		assignees, err := s.shifts.ListAssigneeIDs(ctx, shifts[i].ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list assignees")
		}
		existing[shifts[i].ID] = assignees
		slots[shifts[i].ID] = shifts[i].Count - len(assignees)
	}

	result := &AssignmentResult{}
	for pi := range profiles {
		account, err := s.poolHours.Find(ctx, profiles[pi].ID, poolID)
		if err != nil {
			if err == sql.ErrNoRows {
				continue
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hour account")
		}
		remaining := account.RemainingNeed()
		if remaining <= 0 {
			continue
		}

		ratings, err := s.profiles.ListRatings(ctx, profiles[pi].ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list ratings")
		}
		ratingByType := make(map[string]models.Rating, len(ratings))
		for _, r := range ratings {
			ratingByType[r.TypeID] = r.Rating
		}
		blocks, err := s.profiles.ListTimeBlocks(ctx, profiles[pi].ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list time blocks")
		}

		for _, candidate := range rankShifts(shifts, ratingByType) {
			if remaining <= 0 {
				break
			}
			if slots[candidate.ID] <= 0 {
				continue
			}
			if candidate.Hours > remaining {
				continue
			}
			if busyConflict(blocks, candidate) {
				continue
			}
			if holdsShift(existing[candidate.ID], pending[candidate.ID], profiles[pi].ID) {
				continue
			}
			pending[candidate.ID] = append(pending[candidate.ID], profiles[pi].ID)
			slots[candidate.ID]--
			remaining -= candidate.Hours
			result.Assigned++
		}

		if remaining > 0 {
			result.Unfinished = append(result.Unfinished, profiles[pi].ID)
		}
	}

	for shiftID, additions := range pending {
		if len(additions) == 0 {
			continue
		}
		if err := s.assigner.UpdateAssignees(ctx, shiftID, append(existing[shiftID], additions...)); err != nil {
			return nil, err
		}
	}

	s.logger.Info("auto assignment finished",
		zap.String("pool_id", poolID),
		zap.Int("assigned", result.Assigned),
		zap.Int("unfinished", len(result.Unfinished)))
	return result, nil
}

// ClearAssignments strips every assignee from the auto-assignable shifts
// of a pool, releasing their hours and vacating open instances.
func (s *AssignmentService) ClearAssignments(ctx context.Context, poolID string) error {
	shifts, err := s.shifts.ListAutoAssignable(ctx, poolID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list auto-assignable shifts")
	}
	for i := range shifts {
		if err := s.assigner.UpdateAssignees(ctx, shifts[i].ID, nil); err != nil {
			return err
		}
	}
	return nil
}

// RandomAssignInstances staffs a pool's vacant one-off instances, in date
// order, across randomly shuffled profiles that still owe hours. Each
// profile takes at most one instance per day.
func (s *AssignmentService) RandomAssignInstances(ctx context.Context, poolID string) (*AssignmentResult, error) {
	accounts, err := s.poolHours.ListByPool(ctx, poolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list hour accounts")
	}
	var needy []models.PoolHours
	for i := range accounts {
		if accounts[i].RemainingNeed() > 0 {
			needy = append(needy, accounts[i])
		}
	}
	s.rng.Shuffle(len(needy), func(i, j int) { needy[i], needy[j] = needy[j], needy[i] })

	open, err := s.instances.ListUnfilledOpen(ctx, poolID, truncateToDay(time.Now()))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list vacant instances")
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}

	result := &AssignmentResult{}
	used := make(map[int]bool, len(open))
	for ni := range needy {
		remaining := needy[ni].RemainingNeed()
		datesTaken := make(map[string]bool)
		for oi := range open {
			if remaining <= 0 {
				break
			}
			if used[oi] {
				continue
			}
			key := open[oi].Date.Format("2006-01-02")
			if datesTaken[key] || open[oi].Hours > remaining {
				continue
			}
			pid := needy[ni].ProfileID
			if err := s.instances.UpdateStaffing(ctx, tx, open[oi].ID, &pid, nil); err != nil {
				_ = tx.Rollback()
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to staff instance")
			}
			entry := &models.ShiftLogEntry{
				InstanceID: open[oi].ID,
				ProfileID:  pid,
				EntryType:  models.LogAssigned,
			}
			if err := s.logs.Create(ctx, tx, entry); err != nil {
				_ = tx.Rollback()
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to log assignment")
			}
			used[oi] = true
			datesTaken[key] = true
			remaining -= open[oi].Hours
			result.Assigned++
		}
		if remaining > 0 {
			result.Unfinished = append(result.Unfinished, needy[ni].ProfileID)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit transaction")
	}
	return result, nil
}

// rankShifts orders candidates for one profile: liked types first, then
// unrated or indifferent, stable within a band. Disliked types drop out.
func rankShifts(shifts []models.ShiftDetail, ratings map[string]models.Rating) []models.ShiftDetail {
	ranked := make([]models.ShiftDetail, 0, len(shifts))
	band := func(typeID string) int {
		rating, ok := ratings[typeID]
		if !ok {
			return 1
		}
		switch rating {
		case models.RatingLike:
			return 0
		case models.RatingDislike:
			return 2
		default:
			return 1
		}
	}
	for i := range shifts {
		if band(shifts[i].TypeID) == 2 {
			continue
		}
		ranked = append(ranked, shifts[i])
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return band(ranked[i].TypeID) < band(ranked[j].TypeID)
	})
	return ranked
}

// busyConflict reports whether a busy time block overlaps the shift's
// window on the same weekday. Week-long shifts carry no fixed window and
// never conflict. Wall-clock strings compare lexicographically.
func busyConflict(blocks []models.TimeBlock, shift models.ShiftDetail) bool {
	if shift.WeekLong {
		return false
	}
	for _, block := range blocks {
		if block.Preference != models.TimeBlockBusy || block.Day != shift.Day {
			continue
		}
		if block.StartTime < shift.EndTime && shift.StartTime < block.EndTime {
			return true
		}
	}
	return false
}

func holdsShift(existing, pending []string, profileID string) bool {
	for _, id := range existing {
		if id == profileID {
			return true
		}
	}
	for _, id := range pending {
		if id == profileID {
			return true
		}
	}
	return false
}

package service

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/farnsworth-bsc/workshift-api/internal/models"
	"github.com/farnsworth-bsc/workshift-api/pkg/export"
	appErrors "github.com/farnsworth-bsc/workshift-api/pkg/errors"
)

const standingsCacheKeyPrefix = "workshift:standings:"

type standingsInstanceRepository interface {
	ListPastOpen(ctx context.Context, semesterID string, asOf time.Time) ([]models.InstanceDetail, error)
	CloseVerified(ctx context.Context, exec sqlx.ExtContext, id, verifierID string) (bool, error)
	CloseBlown(ctx context.Context, exec sqlx.ExtContext, id string) (bool, error)
}

type standingsPoolHoursRepository interface {
	Find(ctx context.Context, profileID, poolID string) (*models.PoolHours, error)
	ListByPool(ctx context.Context, poolID string) ([]models.PoolHours, error)
	AdjustStanding(ctx context.Context, exec sqlx.ExtContext, id string, delta float64) error
	MarkStandingUpdated(ctx context.Context, exec sqlx.ExtContext, id string, at time.Time) error
	SnapshotFineDate(ctx context.Context, poolID string, slot int) error
	ListStandings(ctx context.Context, semesterID, poolID string) ([]models.StandingSummary, error)
}

type standingsPoolRepository interface {
	ListBySemester(ctx context.Context, semesterID string) ([]models.WorkshiftPool, error)
	FindByID(ctx context.Context, id string) (*models.WorkshiftPool, error)
}

type standingsSemesterResolver interface {
	Current(ctx context.Context) (*models.CurrentSemesterResult, error)
}

type standingsMetrics interface {
	RecordBlownCollected(n int)
}

// CollectResult tallies one collector pass.
type CollectResult struct {
	AutoVerified int `json:"auto_verified"`
	Blown        int `json:"blown"`
	Expired      int `json:"expired_unfilled"`
}

// StandingsService owns hour accounting over time: the blown-shift
// collector, periodic standing depletion, fine-date snapshots, fine
// calculation and standings export.
type StandingsService struct {
	instances standingsInstanceRepository
	poolHours standingsPoolHoursRepository
	pools     standingsPoolRepository
	semesters standingsSemesterResolver
	logs      shiftLogWriter
	cache     *CacheService
	db        txBeginner
	metrics   standingsMetrics
	csv       *export.CSVExporter
	pdf       *export.PDFExporter
	logger    *zap.Logger

	now func() time.Time
}

// NewStandingsService constructs the standings service.
func NewStandingsService(
	instances standingsInstanceRepository,
	poolHours standingsPoolHoursRepository,
	pools standingsPoolRepository,
	semesters standingsSemesterResolver,
	logs shiftLogWriter,
	cache *CacheService,
	db txBeginner,
	metrics *MetricsService,
	logger *zap.Logger,
) *StandingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &StandingsService{
		instances: instances,
		poolHours: poolHours,
		pools:     pools,
		semesters: semesters,
		logs:      logs,
		cache:     cache,
		db:        db,
		metrics:   metrics,
		csv:       export.NewCSVExporter(),
		pdf:       export.NewPDFExporter(),
		logger:    logger,
	}
}

func (s *StandingsService) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// CollectBlown sweeps the open instances of the current semester whose
// time has run out and closes each one:
//
//   - auto-verified instances with a workshifter close as completed once
//     the shift ends, crediting the hours;
//   - instances past the verify grace window with nobody accountable
//     stay open and are reported for manager attention, no penalty;
//   - everything else past the grace window closes blown, debiting the
//     accountable member.
//
// Instances still inside the grace window are left for the next pass, so
// the collector is safe to run as often as wanted.
func (s *StandingsService) CollectBlown(ctx context.Context) (*CollectResult, error) {
	current, err := s.semesters.Current(ctx)
	if err != nil {
		if appErr, ok := err.(*appErrors.Error); ok && appErr.Code == appErrors.ErrNoSemester.Code {
			return &CollectResult{}, nil
		}
		return nil, err
	}

	now := s.clock()
	open, err := s.instances.ListPastOpen(ctx, current.Semester.ID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list expired instances")
	}

	result := &CollectResult{}
	for i := range open {
		detail := &open[i]
		ended := now.After(detail.EndAt())
		graceExpired := now.After(detail.EndAt().Add(detail.VerifyCutoff()))

		switch {
		case detail.Verify == models.VerifyAuto && detail.WorkshifterID != nil && ended:
			if err := s.closeAutoVerified(ctx, detail); err != nil {
				return result, err
			}
			result.AutoVerified++
		case !graceExpired:
			continue
		case detail.AccountableProfile() == nil:
			// Nobody to charge. The instance stays open so a manager can
			// still staff or reconcile it.
			s.logger.Warn("unfilled workshift ran out",
				zap.String("instance_id", detail.ID),
				zap.String("title", detail.Title),
				zap.Time("date", detail.Date))
			result.Expired++
		default:
			if err := s.closeBlown(ctx, detail); err != nil {
				return result, err
			}
			result.Blown++
		}
	}

	if s.metrics != nil {
		s.metrics.RecordBlownCollected(result.Blown)
	}
	if result.AutoVerified+result.Blown > 0 {
		s.invalidateStandings(ctx)
		s.logger.Info("collector pass finished",
			zap.Int("auto_verified", result.AutoVerified),
			zap.Int("blown", result.Blown),
			zap.Int("expired", result.Expired))
	}
	return result, nil
}

func (s *StandingsService) closeAutoVerified(ctx context.Context, detail *models.InstanceDetail) error {
	account, err := s.poolHours.Find(ctx, *detail.WorkshifterID, detail.PoolID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hour account")
	}
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		done, err := s.instances.CloseVerified(ctx, tx, detail.ID, *detail.WorkshifterID)
		if err != nil || !done {
			return err
		}
		if err := s.poolHours.AdjustStanding(ctx, tx, account.ID, detail.Hours); err != nil {
			return err
		}
		hours := detail.Hours
		return s.logs.Create(ctx, tx, &models.ShiftLogEntry{
			InstanceID: detail.ID,
			ProfileID:  *detail.WorkshifterID,
			EntryType:  models.LogVerify,
			Hours:      &hours,
			Note:       "auto-verified",
		})
	})
}

func (s *StandingsService) closeBlown(ctx context.Context, detail *models.InstanceDetail) error {
	accountable := *detail.AccountableProfile()
	account, err := s.poolHours.Find(ctx, accountable, detail.PoolID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hour account")
	}
	return s.inTx(ctx, func(tx *sqlx.Tx) error {
		done, err := s.instances.CloseBlown(ctx, tx, detail.ID)
		if err != nil || !done {
			return err
		}
		if err := s.poolHours.AdjustStanding(ctx, tx, account.ID, -detail.Hours); err != nil {
			return err
		}
		return s.logs.Create(ctx, tx, &models.ShiftLogEntry{
			InstanceID: detail.ID,
			ProfileID:  accountable,
			EntryType:  models.LogBlown,
			Note:       "collected",
		})
	})
}

// UpdateStandings depletes every hour account of the current semester by
// its periodic requirement once per elapsed period. The per-row watermark
// makes extra runs within a period no-ops.
func (s *StandingsService) UpdateStandings(ctx context.Context) error {
	current, err := s.semesters.Current(ctx)
	if err != nil {
		if appErr, ok := err.(*appErrors.Error); ok && appErr.Code == appErrors.ErrNoSemester.Code {
			return nil
		}
		return err
	}

	now := s.clock()
	pools, err := s.pools.ListBySemester(ctx, current.Semester.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pools")
	}

	for pi := range pools {
		weeks := pools[pi].WeeksPerPeriod
		if weeks < 1 {
			weeks = 1
		}
		period := time.Duration(weeks) * 7 * 24 * time.Hour

		accounts, err := s.poolHours.ListByPool(ctx, pools[pi].ID)
		if err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list hour accounts")
		}
		for ai := range accounts {
			account := &accounts[ai]
			last := account.LastStandingUpdate
			if last == nil {
				// First run anchors the watermark without depleting.
				if err := s.inTx(ctx, func(tx *sqlx.Tx) error {
					return s.poolHours.MarkStandingUpdated(ctx, tx, account.ID, now)
				}); err != nil {
					return err
				}
				continue
			}
			if now.Sub(*last) < period {
				continue
			}
			if err := s.inTx(ctx, func(tx *sqlx.Tx) error {
				if err := s.poolHours.AdjustStanding(ctx, tx, account.ID, -account.Hours); err != nil {
					return err
				}
				return s.poolHours.MarkStandingUpdated(ctx, tx, account.ID, last.Add(period))
			}); err != nil {
				return err
			}
		}
	}

	s.invalidateStandings(ctx)
	return nil
}

// SnapshotFineDates freezes standings into the fine slots of every pool
// whose fine date has arrived. Already-frozen slots are untouched.
func (s *StandingsService) SnapshotFineDates(ctx context.Context) error {
	current, err := s.semesters.Current(ctx)
	if err != nil {
		if appErr, ok := err.(*appErrors.Error); ok && appErr.Code == appErrors.ErrNoSemester.Code {
			return nil
		}
		return err
	}
	now := s.clock()
	pools, err := s.pools.ListBySemester(ctx, current.Semester.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pools")
	}
	for pi := range pools {
		for slot := 1; slot <= 3; slot++ {
			date := pools[pi].FineDate(slot)
			if date == nil || now.Before(*date) {
				continue
			}
			if err := s.poolHours.SnapshotFineDate(ctx, pools[pi].ID, slot); err != nil {
				return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to snapshot fine date")
			}
		}
	}
	return nil
}

// Standings returns the standing summary of a semester, cached briefly.
func (s *StandingsService) Standings(ctx context.Context, semesterID, poolID string) ([]models.StandingSummary, error) {
	key := standingsCacheKeyPrefix + semesterID + ":" + poolID
	if s.cache.Enabled() {
		var cached []models.StandingSummary
		if hit, _ := s.cache.Get(ctx, key, &cached); hit {
			return cached, nil
		}
	}
	standings, err := s.poolHours.ListStandings(ctx, semesterID, poolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list standings")
	}
	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, key, standings, 0)
	}
	return standings, nil
}

// Fines computes what each member in deficit owes from a fine slot's
// frozen standing: the deficit times the semester's hourly rate.
func (s *StandingsService) Fines(ctx context.Context, semester *models.Semester, poolID string, slot int) ([]models.Fine, error) {
	if slot < 1 || slot > 3 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "fine date slot is 1, 2 or 3")
	}
	standings, err := s.poolHours.ListStandings(ctx, semester.ID, poolID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list standings")
	}

	fines := make([]models.Fine, 0)
	for i := range standings {
		account, err := s.poolHours.Find(ctx, standings[i].ProfileID, standings[i].PoolID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load hour account")
		}
		frozen := snapshotFor(account, slot)
		if frozen == nil || *frozen >= 0 {
			continue
		}
		deficit := -*frozen
		fines = append(fines, models.Fine{
			ProfileID:  standings[i].ProfileID,
			MemberName: standings[i].MemberName,
			Email:      standings[i].Email,
			PoolID:     standings[i].PoolID,
			PoolTitle:  standings[i].PoolTitle,
			Deficit:    deficit,
			Amount:     deficit * semester.Rate,
		})
	}
	return fines, nil
}

// ExportStandingsCSV renders a semester's standings as CSV.
func (s *StandingsService) ExportStandingsCSV(ctx context.Context, semesterID, poolID string) ([]byte, string, error) {
	standings, err := s.Standings(ctx, semesterID, poolID)
	if err != nil {
		return nil, "", err
	}
	data, err := s.csv.Render(standingsDataset(standings))
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv")
	}
	return data, fmt.Sprintf("standings-%s.csv", semesterID), nil
}

// ExportStandingsPDF renders a semester's standings as PDF.
func (s *StandingsService) ExportStandingsPDF(ctx context.Context, semesterID, poolID string) ([]byte, string, error) {
	standings, err := s.Standings(ctx, semesterID, poolID)
	if err != nil {
		return nil, "", err
	}
	data, err := s.pdf.Render(standingsDataset(standings), "Workshift Standings")
	if err != nil {
		return nil, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf")
	}
	return data, fmt.Sprintf("standings-%s.pdf", semesterID), nil
}

func standingsDataset(standings []models.StandingSummary) export.Dataset {
	rows := make([][]string, 0, len(standings))
	for i := range standings {
		rows = append(rows, []string{
			standings[i].MemberName,
			standings[i].PoolTitle,
			fmt.Sprintf("%.2f", standings[i].Hours),
			fmt.Sprintf("%.2f", standings[i].AssignedHours),
			fmt.Sprintf("%.2f", standings[i].Standing),
		})
	}
	return export.Dataset{
		Headers: []string{"Member", "Pool", "Requirement", "Assigned", "Standing"},
		Rows:    rows,
	}
}

func snapshotFor(account *models.PoolHours, slot int) *float64 {
	switch slot {
	case 1:
		return account.FirstDateStanding
	case 2:
		return account.SecondDateStanding
	case 3:
		return account.ThirdDateStanding
	}
	return nil
}

func (s *StandingsService) invalidateStandings(ctx context.Context) {
	_ = s.cache.Invalidate(ctx, standingsCacheKeyPrefix+"*")
}

func (s *StandingsService) inTx(ctx context.Context, fn func(tx *sqlx.Tx) error) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		if appErr, ok := err.(*appErrors.Error); ok {
			return appErr
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "standings update failed")
	}
	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit transaction")
	}
	return nil
}

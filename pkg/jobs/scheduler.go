package jobs

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Schedule describes a recurring job fed into a queue at a fixed interval.
type Schedule struct {
	Name     string
	Interval time.Duration
	// RunAtStart fires the job once immediately after the scheduler starts.
	RunAtStart bool
}

// Scheduler enqueues recurring jobs on fixed intervals. It owns no work
// itself; the queue's handler decides what each job type means.
type Scheduler struct {
	queue  *Queue
	logger *zap.Logger

	mu        sync.Mutex
	schedules []Schedule
	cancel    context.CancelFunc
	wg        sync.WaitGroup
}

// NewScheduler builds a scheduler feeding the given queue.
func NewScheduler(queue *Queue, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{queue: queue, logger: logger}
}

// Add registers a recurring schedule. Must be called before Start.
func (s *Scheduler) Add(schedule Schedule) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if schedule.Interval <= 0 {
		schedule.Interval = time.Minute
	}
	s.schedules = append(s.schedules, schedule)
}

// Start launches one ticker goroutine per schedule.
func (s *Scheduler) Start(ctx context.Context) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancel != nil {
		return
	}
	ctx, s.cancel = context.WithCancel(ctx)

	for _, schedule := range s.schedules {
		s.wg.Add(1)
		go s.run(ctx, schedule)
	}
	s.logger.Sugar().Infow("scheduler started", "schedules", len(s.schedules))
}

// Stop halts all tickers and waits for them to exit.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	cancel := s.cancel
	s.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	s.wg.Wait()
	s.logger.Sugar().Infow("scheduler stopped")
}

func (s *Scheduler) run(ctx context.Context, schedule Schedule) {
	defer s.wg.Done()

	if schedule.RunAtStart {
		s.fire(schedule)
	}

	ticker := time.NewTicker(schedule.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.fire(schedule)
		}
	}
}

func (s *Scheduler) fire(schedule Schedule) {
	err := s.queue.Enqueue(Job{
		ID:   uuid.NewString(),
		Type: schedule.Name,
	})
	if err != nil {
		s.logger.Sugar().Warnw("failed to enqueue scheduled job", "schedule", schedule.Name, "error", err)
	}
}

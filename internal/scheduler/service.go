package scheduler

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jonesrussell/jobsweep/internal/domain"
	"github.com/jonesrussell/jobsweep/internal/logger"
)

// MinInterval is the shortest allowed gap between two runs of an entry.
const MinInterval = time.Minute

// Repository persists schedule entries.
type Repository interface {
	Store
	Create(ctx context.Context, e *domain.ScheduleEntry) error
	GetByID(ctx context.Context, id string) (*domain.ScheduleEntry, error)
	List(ctx context.Context) ([]*domain.ScheduleEntry, error)
	SetEnabled(ctx context.Context, id string, enabled bool, now time.Time) error
	Delete(ctx context.Context, id string) error
}

// CreateRequest describes a new entry. Exactly one of IntervalMinutes and
// CronLikeInterval is set.
type CreateRequest struct {
	IntervalMinutes  int
	CronLikeInterval string
	Params           domain.SearchParameters
}

// Service manages schedule entries.
type Service struct {
	repo Repository
	log  logger.Logger
	now  func() time.Time
}

// NewService creates a schedule service.
func NewService(repo Repository, log logger.Logger) *Service {
	if log == nil {
		log = logger.NewNop()
	}
	return &Service{
		repo: repo,
		log:  log.With(logger.String("component", "schedules")),
		now:  func() time.Time { return time.Now().UTC() },
	}
}

// Create validates req and stores an enabled entry.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*domain.ScheduleEntry, error) {
	params := req.Params
	if err := params.Validate(); err != nil {
		return nil, err
	}

	spec := strings.TrimSpace(req.CronLikeInterval)
	if err := validateInterval(req.IntervalMinutes, spec); err != nil {
		return nil, err
	}

	now := s.now()
	entry := &domain.ScheduleEntry{
		ID:               uuid.NewString(),
		CronLikeInterval: spec,
		IntervalMinutes:  req.IntervalMinutes,
		Sources:          params.Sources,
		DateRange:        params.DateRange,
		Keywords:         params.Keywords,
		Owner:            params.RequestingUser,
		Enabled:          true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Create(ctx, entry); err != nil {
		return nil, err
	}

	s.log.Info("Schedule created",
		logger.String("schedule_id", entry.ID),
		logger.String("spec", entry.Spec()),
		logger.String("owner", entry.Owner),
	)
	return entry, nil
}

func validateInterval(minutes int, spec string) error {
	if spec == "" {
		if minutes < int(MinInterval/time.Minute) {
			return domain.NewValidationError("intervalMinutes", "must be at least 1")
		}
		return nil
	}
	if minutes != 0 {
		return domain.NewValidationError("intervalMinutes", "cannot be combined with cronLikeInterval")
	}

	sched, err := ParseSpec(spec)
	if err != nil {
		return domain.NewValidationError("cronLikeInterval", err.Error())
	}
	first := sched.Next(time.Now())
	if sched.Next(first).Sub(first) < MinInterval {
		return domain.NewValidationError("cronLikeInterval", "runs more often than once a minute")
	}
	return nil
}

// Get returns one entry.
func (s *Service) Get(ctx context.Context, id string) (*domain.ScheduleEntry, error) {
	return s.repo.GetByID(ctx, id)
}

// List returns every entry.
func (s *Service) List(ctx context.Context) ([]*domain.ScheduleEntry, error) {
	return s.repo.List(ctx)
}

// Enable activates an entry.
func (s *Service) Enable(ctx context.Context, id string) error {
	return s.setEnabled(ctx, id, true)
}

// Disable deactivates an entry without deleting it.
func (s *Service) Disable(ctx context.Context, id string) error {
	return s.setEnabled(ctx, id, false)
}

func (s *Service) setEnabled(ctx context.Context, id string, enabled bool) error {
	if err := s.repo.SetEnabled(ctx, id, enabled, s.now()); err != nil {
		return err
	}
	s.log.Info("Schedule updated",
		logger.String("schedule_id", id),
		logger.Bool("enabled", enabled),
	)
	return nil
}

// Delete removes an entry.
func (s *Service) Delete(ctx context.Context, id string) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info("Schedule deleted", logger.String("schedule_id", id))
	return nil
}

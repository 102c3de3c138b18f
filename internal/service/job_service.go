package service

import (
	"context"
	"fmt"
	"time"

	"github.com/evotools/evo-dispatch/environments"
	"github.com/evotools/evo-dispatch/internal/campaign"
	"github.com/evotools/evo-dispatch/internal/domain"
	"github.com/evotools/evo-dispatch/pkg/logger"
)

// Small internal interfaces so we can test without touching real DB/cache/gateway.
type jobRepository interface {
	Add(ctx context.Context, kind domain.JobKind, payload domain.JobPayload, scheduledAt time.Time) (*domain.ScheduledJob, error)
	GetByID(ctx context.Context, id string) (*domain.ScheduledJob, error)
	List(ctx context.Context, status *domain.JobStatus, page, pageSize int) ([]domain.ScheduledJob, int64, error)
	GetDue(ctx context.Context, now time.Time, limit int) ([]domain.ScheduledJob, error)
	MarkSent(ctx context.Context, id string) error
	MarkFailed(ctx context.Context, id string, errMsg string) error
	Remove(ctx context.Context, id string) error
	Stats(ctx context.Context) (pending, sent, failed int64, err error)
}

type gatewaySender interface {
	SendText(ctx context.Context, instance string, msg domain.TextMessage) (*domain.SendReceipt, error)
	SendMedia(ctx context.Context, instance string, msg domain.MediaMessage) (*domain.SendReceipt, error)
}

type sentJobCache interface {
	CacheSentJob(ctx context.Context, jobID, remoteID string, sentAt time.Time) error
	GetAllCachedJobs(ctx context.Context) (map[string]*domain.SentJobCache, error)
}

type templateRenderer interface {
	Render(ctx context.Context, template string, contact domain.Contact, instance string, imported bool) string
}

// JobService owns job lifecycle: scheduling, the due-job scan the dispatcher
// drives, and the bulk campaign flow.
type JobService struct {
	repo     jobRepository
	gateway  gatewaySender
	cache    sentJobCache
	renderer templateRenderer
	config   environments.DispatchConfig
	location *time.Location
	nowFn    func() time.Time
}

func NewJobService(
	repo jobRepository,
	gateway gatewaySender,
	cache sentJobCache,
	renderer templateRenderer,
	config environments.DispatchConfig,
) (*JobService, error) {
	loc, err := time.LoadLocation(config.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid dispatch timezone %q: %w", config.Timezone, err)
	}

	return &JobService{
		repo:     repo,
		gateway:  gateway,
		cache:    cache,
		renderer: renderer,
		config:   config,
		location: loc,
		nowFn:    time.Now,
	}, nil
}

// ScheduleText validates and persists a future text send.
func (s *JobService) ScheduleText(
	ctx context.Context,
	instance string,
	msg domain.TextMessage,
	scheduledAt time.Time,
) (*domain.ScheduledJob, error) {
	if instance == "" {
		return nil, fmt.Errorf("instance name is required")
	}
	if msg.Number == "" {
		return nil, fmt.Errorf("destination number is required")
	}
	if msg.Text == "" {
		return nil, fmt.Errorf("message text is required")
	}
	if !scheduledAt.After(s.nowFn()) {
		return nil, fmt.Errorf("scheduledAt must be in the future")
	}

	payload := domain.JobPayload{
		Instance:    instance,
		ScheduledAt: scheduledAt.In(s.location).Format(time.RFC3339),
		Text:        &msg,
	}

	return s.repo.Add(ctx, domain.KindText, payload, scheduledAt.UTC())
}

// ScheduleMedia validates and persists a future media send.
func (s *JobService) ScheduleMedia(
	ctx context.Context,
	instance string,
	msg domain.MediaMessage,
	scheduledAt time.Time,
) (*domain.ScheduledJob, error) {
	if instance == "" {
		return nil, fmt.Errorf("instance name is required")
	}
	if msg.Number == "" {
		return nil, fmt.Errorf("destination number is required")
	}
	if msg.Media == "" {
		return nil, fmt.Errorf("media URL is required")
	}
	if msg.MediaType == "document" && msg.FileName == "" {
		return nil, fmt.Errorf("fileName is required for document media")
	}
	if !scheduledAt.After(s.nowFn()) {
		return nil, fmt.Errorf("scheduledAt must be in the future")
	}

	payload := domain.JobPayload{
		Instance:    instance,
		ScheduledAt: scheduledAt.In(s.location).Format(time.RFC3339),
		Media:       &msg,
	}

	return s.repo.Add(ctx, domain.KindMedia, payload, scheduledAt.UTC())
}

// ProcessDueJobs is one dispatch scan: every pending job whose scheduled time
// has elapsed at now is sent, in insertion order, one at a time. A single
// job's failure is recorded on that job and never aborts the scan.
func (s *JobService) ProcessDueJobs(ctx context.Context, now time.Time) ([]domain.SendResult, error) {
	jobs, err := s.repo.GetDue(ctx, now, s.config.BatchSize)
	if err != nil {
		return nil, fmt.Errorf("failed to get due jobs: %w", err)
	}

	if len(jobs) == 0 {
		logger.Debugf("No due jobs to process")
		return nil, nil
	}

	logger.Infof("Processing %d due jobs", len(jobs))

	results := make([]domain.SendResult, 0, len(jobs))
	for i := range jobs {
		results = append(results, s.dispatchJob(ctx, &jobs[i]))
	}

	return results, nil
}

func (s *JobService) dispatchJob(ctx context.Context, job *domain.ScheduledJob) domain.SendResult {
	result := domain.SendResult{
		JobID:  job.ID,
		SentAt: s.nowFn(),
	}

	var receipt *domain.SendReceipt
	var err error

	switch {
	case job.Payload.Instance == "":
		err = fmt.Errorf("instance name not provided in scheduled job")
	case job.Kind == domain.KindText && job.Payload.Text != nil:
		receipt, err = s.gateway.SendText(ctx, job.Payload.Instance, *job.Payload.Text)
	case job.Kind == domain.KindMedia && job.Payload.Media != nil:
		receipt, err = s.gateway.SendMedia(ctx, job.Payload.Instance, *job.Payload.Media)
	default:
		err = fmt.Errorf("job payload does not match kind %q", job.Kind)
	}

	if err != nil {
		logger.Errorf("Failed to dispatch job %s: %v", job.ID, err)
		result.Success = false
		result.Error = err

		if markErr := s.repo.MarkFailed(ctx, job.ID, err.Error()); markErr != nil {
			logger.Errorf("Failed to mark job %s as failed: %v", job.ID, markErr)
		}

		return result
	}

	if err := s.repo.MarkSent(ctx, job.ID); err != nil {
		logger.Errorf("Failed to mark job %s as sent: %v", job.ID, err)
		result.Success = false
		result.Error = err
		return result
	}

	if receipt != nil {
		result.RemoteID = receipt.Key.ID
	}

	if s.cache != nil {
		if err := s.cache.CacheSentJob(ctx, job.ID, result.RemoteID, result.SentAt); err != nil {
			logger.Warnf("Failed to cache sent job %s: %v", job.ID, err)
		}
	}

	logger.Infof("Successfully dispatched job %s (gateway message id: %s)", job.ID, result.RemoteID)

	result.Success = true
	return result
}

func (s *JobService) ListJobs(
	ctx context.Context,
	status *domain.JobStatus,
	page, pageSize int,
) ([]domain.ScheduledJob, int64, error) {
	return s.repo.List(ctx, status, page, pageSize)
}

func (s *JobService) GetJob(ctx context.Context, id string) (*domain.ScheduledJob, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *JobService) RemoveJob(ctx context.Context, id string) error {
	return s.repo.Remove(ctx, id)
}

func (s *JobService) GetStats(ctx context.Context) (pending, sent, failed int64, err error) {
	return s.repo.Stats(ctx)
}

func (s *JobService) GetCachedJobs(ctx context.Context) (map[string]*domain.SentJobCache, error) {
	if s.cache == nil {
		return nil, fmt.Errorf("cache client not configured")
	}
	return s.cache.GetAllCachedJobs(ctx)
}

// CampaignResult summarizes a bulk scheduling run.
type CampaignResult struct {
	Scheduled []domain.ScheduledJob `json:"scheduled"`
	Skipped   int                   `json:"skipped"`
}

// ScheduleCampaign parses a CSV contact list, renders the template per
// contact and schedules one text job per contact. Contacts without a number
// are skipped, not fatal; jobs are staggered by delaySeconds so the gateway
// is not hit with a burst at the scheduled instant.
func (s *JobService) ScheduleCampaign(
	ctx context.Context,
	instance, template, csvText string,
	scheduledAt time.Time,
	delaySeconds int,
) (*CampaignResult, error) {
	if instance == "" {
		return nil, fmt.Errorf("instance name is required")
	}

	contacts, err := campaign.ParseContacts(csvText)
	if err != nil {
		return nil, err
	}
	if len(contacts) == 0 {
		return nil, fmt.Errorf("csv contains no contacts")
	}

	result := &CampaignResult{}

	for i, contact := range contacts {
		if contact.Number() == "" {
			logger.Warnf("Skipping contact without a number (row %d)", i+1)
			result.Skipped++
			continue
		}

		body := s.renderer.Render(ctx, template, contact, instance, true)

		msg := domain.TextMessage{
			Number: contact.Number(),
			Text:   body,
		}

		at := scheduledAt.Add(time.Duration(i*delaySeconds) * time.Second)
		job, err := s.ScheduleText(ctx, instance, msg, at)
		if err != nil {
			return nil, fmt.Errorf("failed to schedule contact %s: %w", contact.Number(), err)
		}

		result.Scheduled = append(result.Scheduled, *job)
	}

	return result, nil
}

// RenderPreview resolves a template for a single contact without scheduling.
func (s *JobService) RenderPreview(ctx context.Context, instance, template string, contact domain.Contact) string {
	return s.renderer.Render(ctx, template, contact, instance, false)
}

package service

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/openretreat/office-sync/internal/dto"
	"github.com/openretreat/office-sync/internal/models"
	"github.com/openretreat/office-sync/pkg/config"
	appErrors "github.com/openretreat/office-sync/pkg/errors"
	"github.com/openretreat/office-sync/pkg/export"
)

// SheetFetcher downloads one sheet of the configured spreadsheet.
type SheetFetcher interface {
	FetchSheet(ctx context.Context, sheetName string) (*RawSheet, error)
}

// OfficePublisher replaces the layout on the presentation service.
type OfficePublisher interface {
	Publish(ctx context.Context, office *dto.Office) error
}

// SyncService runs the full pipeline: fetch both sheets, adapt,
// validate, generate, enrich and publish. Runs are serialized; a
// second trigger waits for the running one to finish.
type SyncService struct {
	cfg        config.Config
	fetcher    SheetFetcher
	adapter    *AdapterService
	validator  *ValidatorService
	generator  *OfficeService
	enrichment *EnrichmentService
	publisher  OfficePublisher
	slack      SlackAPI
	confluence ConfluenceAPI
	metrics    *MetricsService
	logger     *zap.Logger

	mu     sync.Mutex
	status dto.SyncStatus
}

type SyncServiceDeps struct {
	Fetcher    SheetFetcher
	Adapter    *AdapterService
	Validator  *ValidatorService
	Generator  *OfficeService
	Enrichment *EnrichmentService
	Publisher  OfficePublisher
	Slack      SlackAPI
	Confluence ConfluenceAPI
	Metrics    *MetricsService
	Logger     *zap.Logger
}

func NewSyncService(cfg config.Config, deps SyncServiceDeps) *SyncService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncService{
		cfg:        cfg,
		fetcher:    deps.Fetcher,
		adapter:    deps.Adapter,
		validator:  deps.Validator,
		generator:  deps.Generator,
		enrichment: deps.Enrichment,
		publisher:  deps.Publisher,
		slack:      deps.Slack,
		confluence: deps.Confluence,
		metrics:    deps.Metrics,
		logger:     logger,
	}
}

// Run executes one full sync and records the outcome. Validation
// failures leave the published office untouched and are reported as
// the run's outcome, not as an internal error.
func (s *SyncService) Run(ctx context.Context) error {
	s.mu.Lock()
	s.status.Running = true
	s.mu.Unlock()

	started := time.Now()
	office, err := s.compute(ctx, true)
	s.finish(started, office, err)
	return err
}

// Preview computes the office without enrichment or publishing. It
// never touches the recorded sync status.
func (s *SyncService) Preview(ctx context.Context) (*dto.Office, error) {
	rows, dict, err := s.fetchAndAdapt(ctx)
	if err != nil {
		return nil, err
	}
	if err := s.validator.Validate(rows, dict); err != nil {
		return nil, err
	}
	return s.generator.Generate(rows, dict)
}

// Status returns a copy of the last-run record.
func (s *SyncService) Status() dto.SyncStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// ScheduleDataset fetches and adapts the schedule sheet into a tabular
// dataset for the CSV and PDF exports.
func (s *SyncService) ScheduleDataset(ctx context.Context) (export.Dataset, error) {
	rows, _, err := s.fetchAndAdapt(ctx)
	if err != nil {
		return export.Dataset{}, err
	}

	dataset := export.Dataset{
		Headers: []string{"Start", "Slot", "Title", "Subtitle", "MeetingIds", "ReservedIds", "RandomJoin", "OpenEnd"},
		Rows:    make([]map[string]string, 0, len(rows)),
	}
	for _, row := range rows {
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Start":       row.Start,
			"Slot":        row.Slot,
			"Title":       row.Title,
			"Subtitle":    row.Subtitle,
			"MeetingIds":  strings.Join(row.MeetingIds, ","),
			"ReservedIds": strings.Join(row.ReservedIds, ","),
			"RandomJoin":  formatBool(row.RandomJoin),
			"OpenEnd":     formatBool(row.OpenEnd),
		})
	}
	return dataset, nil
}

func (s *SyncService) compute(ctx context.Context, publish bool) (*dto.Office, error) {
	rows, dict, err := s.fetchAndAdapt(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(rows, dict); err != nil {
		return nil, err
	}

	office, err := s.generator.Generate(rows, dict)
	if err != nil {
		return nil, err
	}

	if s.cfg.Slack.Enabled && s.slack != nil {
		if err := s.enrichment.AddSlackChannels(ctx, office, s.slack); err != nil {
			return office, err
		}
	}
	if s.cfg.Confluence.Enabled && s.confluence != nil {
		if err := s.enrichment.AddConfluencePages(ctx, office, s.confluence); err != nil {
			return office, err
		}
	}

	if publish {
		if err := s.publisher.Publish(ctx, office); err != nil {
			s.metrics.RecordPublishFailure()
			return office, appErrors.Wrap(err, appErrors.ErrUpstream.Code, appErrors.ErrUpstream.Status,
				"publishing office failed")
		}
		s.logger.Info("office published",
			zap.Int("rooms", len(office.Rooms)),
			zap.Int("groups", len(office.Groups)))
	}
	return office, nil
}

func (s *SyncService) fetchAndAdapt(ctx context.Context) ([]models.ScheduleRow, models.MeetingDictionary, error) {
	meetingsSheet, err := s.fetcher.FetchSheet(ctx, s.cfg.Spreadsheet.MeetingsSheetName)
	if err != nil {
		return nil, nil, err
	}
	scheduleSheet, err := s.fetcher.FetchSheet(ctx, s.cfg.Spreadsheet.ScheduleSheetName)
	if err != nil {
		return nil, nil, err
	}

	meetingRows, err := s.adapter.AdaptMeetings(meetingsSheet)
	if err != nil {
		return nil, nil, err
	}
	rows, err := s.adapter.AdaptSchedule(scheduleSheet)
	if err != nil {
		return nil, nil, err
	}

	dict := s.adapter.BuildMeetingDictionary(meetingRows)
	return rows, dict, nil
}

// finish records the run's outcome under the status lock.
func (s *SyncService) finish(started time.Time, office *dto.Office, err error) {
	duration := time.Since(started)
	now := time.Now()

	s.mu.Lock()
	defer s.mu.Unlock()

	s.status.Running = false
	s.status.LastRun = &now
	s.status.LastError = ""
	s.status.ViolationCount = 0

	var validationErr *appErrors.ValidationError
	switch {
	case err == nil:
		s.status.LastOutcome = dto.SyncOutcomeSuccess
	case errors.As(err, &validationErr):
		s.status.LastOutcome = dto.SyncOutcomeValidation
		s.status.LastError = validationErr.Error()
		s.status.ViolationCount = len(validationErr.Violations)
	default:
		s.status.LastOutcome = dto.SyncOutcomeError
		s.status.LastError = err.Error()
	}

	if office != nil {
		s.status.RoomCount = len(office.Rooms)
		s.status.GroupCount = len(office.Groups)
		s.metrics.RecordOffice(len(office.Rooms), len(office.Groups))
	}
	s.metrics.RecordSync(s.status.LastOutcome, duration, s.status.ViolationCount)

	if err != nil {
		s.logger.Error("sync run failed", zap.String("outcome", string(s.status.LastOutcome)), zap.Error(err))
	} else {
		s.logger.Info("sync run finished", zap.Duration("duration", duration))
	}
}

func formatBool(b bool) string {
	if b {
		return "TRUE"
	}
	return "FALSE"
}

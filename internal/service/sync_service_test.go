package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/openretreat/office-sync/internal/dto"
	"github.com/openretreat/office-sync/pkg/config"
	appErrors "github.com/openretreat/office-sync/pkg/errors"
)

type fakeFetcher struct {
	sheets map[string]*RawSheet
	err    error
}

func (f *fakeFetcher) FetchSheet(_ context.Context, sheetName string) (*RawSheet, error) {
	if f.err != nil {
		return nil, f.err
	}
	sheet, ok := f.sheets[sheetName]
	if !ok {
		return nil, fmt.Errorf("no sheet %q", sheetName)
	}
	return sheet, nil
}

type fakePublisher struct {
	calls int
	last  *dto.Office
	err   error
}

func (p *fakePublisher) Publish(_ context.Context, office *dto.Office) error {
	p.calls++
	p.last = office
	return p.err
}

func meetingsRawSheet(ids ...string) *RawSheet {
	rows := make([]map[string]string, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, map[string]string{
			"email":     fmt.Sprintf("host%s@example.com", id),
			"meetingId": id,
			"joinUrl":   fmt.Sprintf("http://zoom.us/joinMe/%s", id),
			"hostKey":   id,
		})
	}
	return &RawSheet{
		Columns: []string{"email", "meetingId", "joinUrl", "hostKey"},
		Rows:    rows,
	}
}

func newSyncServiceForTest(t *testing.T, fetcher *fakeFetcher, publisher *fakePublisher) *SyncService {
	t.Helper()

	cfg := config.Config{}
	cfg.Spreadsheet = config.SpreadsheetConfig{
		ID:                "sheet-id",
		ScheduleSheetName: "Schedule",
		MeetingsSheetName: "Meetings",
	}
	cfg.Generator = generatorConfig()

	generator := newOfficeService(t, cfg.Generator, nil)

	return NewSyncService(cfg, SyncServiceDeps{
		Fetcher:    fetcher,
		Adapter:    NewAdapterService(nil, nil),
		Validator:  NewValidatorService(nil),
		Generator:  generator,
		Enrichment: NewEnrichmentService(cfg.Slack, cfg.Confluence, NewLinkExtractor(testIconBase), nil),
		Publisher:  publisher,
		Metrics:    NewMetricsService(),
	})
}

func TestRunPublishesGeneratedOffice(t *testing.T) {
	fetcher := &fakeFetcher{sheets: map[string]*RawSheet{
		"Meetings": meetingsRawSheet("1", "2"),
		"Schedule": scheduleSheet(
			map[string]string{"Start": "09:00", "Title": "Welcome", "MeetingIds": "1", "RandomJoin": "FALSE"},
			map[string]string{"Start": "10:00", "Title": "Break", "MeetingIds": "1,2", "RandomJoin": "TRUE"},
		),
	}}
	publisher := &fakePublisher{}
	svc := newSyncServiceForTest(t, fetcher, publisher)

	require.NoError(t, svc.Run(context.Background()))
	require.Equal(t, 1, publisher.calls)
	require.Len(t, publisher.last.Rooms, 3)
	require.Len(t, publisher.last.Groups, 2)

	status := svc.Status()
	require.False(t, status.Running)
	require.NotNil(t, status.LastRun)
	require.Equal(t, dto.SyncOutcomeSuccess, status.LastOutcome)
	require.Empty(t, status.LastError)
	require.Equal(t, 3, status.RoomCount)
	require.Equal(t, 2, status.GroupCount)
}

func TestRunDoesNotPublishOnValidationFailure(t *testing.T) {
	fetcher := &fakeFetcher{sheets: map[string]*RawSheet{
		"Meetings": meetingsRawSheet("1"),
		"Schedule": scheduleSheet(
			map[string]string{"Start": "09:00", "Title": "Welcome", "MeetingIds": "7", "RandomJoin": "FALSE"},
		),
	}}
	publisher := &fakePublisher{}
	svc := newSyncServiceForTest(t, fetcher, publisher)

	err := svc.Run(context.Background())
	require.Error(t, err)
	require.Equal(t, 0, publisher.calls)

	var validationErr *appErrors.ValidationError
	require.ErrorAs(t, err, &validationErr)

	status := svc.Status()
	require.Equal(t, dto.SyncOutcomeValidation, status.LastOutcome)
	require.Equal(t, 1, status.ViolationCount)
	require.Contains(t, status.LastError, "no join URL for meeting with id 7")
}

func TestRunRecordsPublishFailure(t *testing.T) {
	fetcher := &fakeFetcher{sheets: map[string]*RawSheet{
		"Meetings": meetingsRawSheet("1"),
		"Schedule": scheduleSheet(
			map[string]string{"Start": "09:00", "Title": "Welcome", "MeetingIds": "1", "RandomJoin": "FALSE"},
		),
	}}
	publisher := &fakePublisher{err: fmt.Errorf("boom")}
	svc := newSyncServiceForTest(t, fetcher, publisher)

	err := svc.Run(context.Background())
	require.Error(t, err)

	status := svc.Status()
	require.Equal(t, dto.SyncOutcomeError, status.LastOutcome)
	require.Contains(t, status.LastError, "publishing office failed")
}

func TestRunRecordsFetchFailure(t *testing.T) {
	fetcher := &fakeFetcher{err: fmt.Errorf("network down")}
	publisher := &fakePublisher{}
	svc := newSyncServiceForTest(t, fetcher, publisher)

	require.Error(t, svc.Run(context.Background()))
	require.Equal(t, 0, publisher.calls)
	require.Equal(t, dto.SyncOutcomeError, svc.Status().LastOutcome)
}

func TestPreviewDoesNotPublishOrTouchStatus(t *testing.T) {
	fetcher := &fakeFetcher{sheets: map[string]*RawSheet{
		"Meetings": meetingsRawSheet("1"),
		"Schedule": scheduleSheet(
			map[string]string{"Start": "09:00", "Title": "Welcome", "MeetingIds": "1", "RandomJoin": "FALSE"},
		),
	}}
	publisher := &fakePublisher{}
	svc := newSyncServiceForTest(t, fetcher, publisher)

	office, err := svc.Preview(context.Background())
	require.NoError(t, err)
	require.Len(t, office.Rooms, 1)
	require.Equal(t, 0, publisher.calls)
	require.Nil(t, svc.Status().LastRun)
}

func TestScheduleDataset(t *testing.T) {
	fetcher := &fakeFetcher{sheets: map[string]*RawSheet{
		"Meetings": meetingsRawSheet("1", "2"),
		"Schedule": scheduleSheet(
			map[string]string{"Start": "09:00", "Title": "Welcome", "Subtitle": "Earthlings", "MeetingIds": "1,2", "RandomJoin": "TRUE", "Slot": "A1"},
		),
	}}
	svc := newSyncServiceForTest(t, fetcher, &fakePublisher{})

	dataset, err := svc.ScheduleDataset(context.Background())
	require.NoError(t, err)
	require.Len(t, dataset.Rows, 1)

	row := dataset.Rows[0]
	require.Equal(t, "09:00", row["Start"])
	require.Equal(t, "A1", row["Slot"])
	require.Equal(t, "Welcome", row["Title"])
	require.Equal(t, "1,2", row["MeetingIds"])
	require.Equal(t, "TRUE", row["RandomJoin"])
	require.Equal(t, "FALSE", row["OpenEnd"])
}

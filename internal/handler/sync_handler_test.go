package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/openretreat/office-sync/internal/dto"
	"github.com/openretreat/office-sync/internal/middleware"
	"github.com/openretreat/office-sync/internal/service"
	"github.com/openretreat/office-sync/pkg/config"
	"github.com/openretreat/office-sync/pkg/jobs"
	"github.com/openretreat/office-sync/pkg/response"
)

type fetcherStub struct {
	sheets map[string]*service.RawSheet
}

func (f *fetcherStub) FetchSheet(_ context.Context, sheetName string) (*service.RawSheet, error) {
	sheet, ok := f.sheets[sheetName]
	if !ok {
		return nil, fmt.Errorf("no sheet %q", sheetName)
	}
	return sheet, nil
}

type publisherStub struct {
	calls int
}

func (p *publisherStub) Publish(_ context.Context, _ *dto.Office) error {
	p.calls++
	return nil
}

func syncServiceForTest(t *testing.T) *service.SyncService {
	t.Helper()

	cfg := config.Config{}
	cfg.Spreadsheet = config.SpreadsheetConfig{
		ID:                "sheet-id",
		ScheduleSheetName: "Schedule",
		MeetingsSheetName: "Meetings",
	}
	cfg.Generator = config.GeneratorConfig{
		RoomJoinLeadMinutes:  5,
		ScheduleDate:         "2020-05-22",
		Timezone:             "Europe/Berlin",
		GroupJoinMinUsers:    5,
		GroupJoinDescription: "join a random room",
		IconBaseURL:          "https://icons.example.com",
	}

	generator, err := service.NewOfficeService(cfg.Generator, nil, nil, nil)
	require.NoError(t, err)

	fetcher := &fetcherStub{sheets: map[string]*service.RawSheet{
		"Meetings": {
			Columns: []string{"email", "meetingId", "joinUrl", "hostKey"},
			Rows: []map[string]string{
				{"email": "host1@example.com", "meetingId": "1", "joinUrl": "http://zoom.us/joinMe/1", "hostKey": "1"},
			},
		},
		"Schedule": {
			Columns: []string{"Start", "Title", "Subtitle", "Link", "MeetingIds", "ReservedIds", "RandomJoin"},
			Rows: []map[string]string{
				{"Start": "09:00", "Title": "Welcome", "MeetingIds": "1", "RandomJoin": "FALSE"},
			},
		},
	}}

	return service.NewSyncService(cfg, service.SyncServiceDeps{
		Fetcher:   fetcher,
		Adapter:   service.NewAdapterService(nil, nil),
		Validator: service.NewValidatorService(nil),
		Generator: generator,
		Publisher: &publisherStub{},
		Metrics:   service.NewMetricsService(),
	})
}

func startedQueue(t *testing.T) *jobs.Queue {
	t.Helper()
	queue := jobs.NewQueue("sync", func(context.Context, jobs.Job) error { return nil }, jobs.QueueConfig{})
	queue.Start(context.Background())
	t.Cleanup(queue.Stop)
	return queue
}

func TestTriggerAcknowledgesWithJobID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewSyncHandler(syncServiceForTest(t), startedQueue(t), nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/sync", nil)

	handler.Trigger(c)
	require.Equal(t, http.StatusAccepted, w.Code)

	var envelope struct {
		Data dto.SyncTriggerResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotEmpty(t, envelope.Data.JobID)
}

func TestTriggerFailsWhenQueueStopped(t *testing.T) {
	gin.SetMode(gin.TestMode)
	queue := jobs.NewQueue("sync", func(context.Context, jobs.Job) error { return nil }, jobs.QueueConfig{})
	handler := NewSyncHandler(syncServiceForTest(t), queue, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodPost, "/sync", nil)

	handler.Trigger(c)
	require.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestStatusReturnsLastRunRecord(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := syncServiceForTest(t)
	require.NoError(t, svc.Run(context.Background()))
	handler := NewSyncHandler(svc, startedQueue(t), nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/sync/status", nil)

	handler.Status(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data dto.SyncStatus `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Equal(t, dto.SyncOutcomeSuccess, envelope.Data.LastOutcome)
	require.Equal(t, 1, envelope.Data.RoomCount)
}

func TestPreviewReturnsOffice(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewSyncHandler(syncServiceForTest(t), startedQueue(t), nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/office/preview", nil)

	handler.Preview(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data dto.Office `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.Len(t, envelope.Data.Rooms, 1)
	require.Equal(t, "group-09:00:room-1", envelope.Data.Rooms[0].RoomID)
}

func TestExportCSV(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewSyncHandler(syncServiceForTest(t), startedQueue(t), nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/export/schedule.csv", nil)

	handler.ExportCSV(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	require.Contains(t, w.Header().Get("Content-Disposition"), ".csv")
	require.Contains(t, w.Body.String(), "Start,Slot,Title")
	require.Contains(t, w.Body.String(), "09:00")
}

func TestExportPDF(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewSyncHandler(syncServiceForTest(t), startedQueue(t), nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request, _ = http.NewRequest(http.MethodGet, "/export/schedule.pdf", nil)

	handler.ExportPDF(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	require.True(t, len(w.Body.Bytes()) > 0)
}

func TestAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/guarded", middleware.Auth("secret-token"), func(c *gin.Context) {
		response.JSON(c, http.StatusOK, gin.H{"ok": true})
	})

	cases := []struct {
		name   string
		header string
		status int
	}{
		{"valid token", "Bearer secret-token", http.StatusOK},
		{"wrong token", "Bearer other-token", http.StatusUnauthorized},
		{"missing header", "", http.StatusUnauthorized},
		{"wrong scheme", "Basic secret-token", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			req, _ := http.NewRequest(http.MethodGet, "/guarded", nil)
			if tc.header != "" {
				req.Header.Set("Authorization", tc.header)
			}
			r.ServeHTTP(w, req)
			require.Equal(t, tc.status, w.Code)
		})
	}
}

func TestAuthMiddlewareRejectsWhenUnconfigured(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/guarded", middleware.Auth(""), func(c *gin.Context) {
		c.Status(http.StatusOK)
	})

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodGet, "/guarded", nil)
	req.Header.Set("Authorization", "Bearer anything")
	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/openretreat/office-sync/internal/dto"
	"github.com/openretreat/office-sync/internal/service"
	"github.com/openretreat/office-sync/pkg/export"
	"github.com/openretreat/office-sync/pkg/jobs"
	"github.com/openretreat/office-sync/pkg/response"
)

// SyncHandler exposes the admin surface of the sync pipeline.
type SyncHandler struct {
	sync   *service.SyncService
	queue  *jobs.Queue
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

func NewSyncHandler(sync *service.SyncService, queue *jobs.Queue, logger *zap.Logger) *SyncHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SyncHandler{
		sync:   sync,
		queue:  queue,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

// Trigger enqueues an async sync run and acknowledges with the job id.
func (h *SyncHandler) Trigger(c *gin.Context) {
	job := jobs.Job{
		ID:      uuid.NewString(),
		Trigger: jobs.TriggerAPI,
	}
	if err := h.queue.Enqueue(job); err != nil {
		response.Error(c, err)
		return
	}
	h.logger.Info("sync triggered", zap.String("job_id", job.ID))
	response.Accepted(c, dto.SyncTriggerResponse{JobID: job.ID})
}

// Status returns the last-run record.
func (h *SyncHandler) Status(c *gin.Context) {
	response.JSON(c, http.StatusOK, h.sync.Status())
}

// Preview computes and returns the office without publishing it.
func (h *SyncHandler) Preview(c *gin.Context) {
	office, err := h.sync.Preview(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, office)
}

// ExportCSV streams the adapted schedule as CSV.
func (h *SyncHandler) ExportCSV(c *gin.Context) {
	dataset, err := h.sync.ScheduleDataset(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	payload, err := h.csv.Render(dataset)
	if err != nil {
		response.Error(c, err)
		return
	}
	h.attachment(c, "text/csv", "csv", payload)
}

// ExportPDF streams the adapted schedule as PDF.
func (h *SyncHandler) ExportPDF(c *gin.Context) {
	dataset, err := h.sync.ScheduleDataset(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	payload, err := h.pdf.Render(dataset, "Schedule")
	if err != nil {
		response.Error(c, err)
		return
	}
	h.attachment(c, "application/pdf", "pdf", payload)
}

func (h *SyncHandler) attachment(c *gin.Context, contentType, extension string, payload []byte) {
	filename := fmt.Sprintf("schedule-%s.%s", time.Now().Format("2006-01-02"), extension)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, contentType, payload)
}

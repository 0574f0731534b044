package service

import (
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/openretreat/office-sync/internal/models"
	appErrors "github.com/openretreat/office-sync/pkg/errors"
)

// Schedule sheet column names. Slot and OpenEnd are optional; the rest
// must be present in the sheet header.
const (
	colStart       = "Start"
	colTitle       = "Title"
	colSubtitle    = "Subtitle"
	colLink        = "Link"
	colMeetingIds  = "MeetingIds"
	colReservedIds = "ReservedIds"
	colRandomJoin  = "RandomJoin"
	colSlot        = "Slot"
	colOpenEnd     = "OpenEnd"
)

// Meetings sheet column names.
const (
	colEmail     = "email"
	colMeetingID = "meetingId"
	colJoinURL   = "joinUrl"
	colHostKey   = "hostKey"
)

var requiredScheduleColumns = []string{
	colStart, colTitle, colSubtitle, colLink, colMeetingIds, colReservedIds, colRandomJoin,
}

var requiredMeetingColumns = []string{colEmail, colMeetingID, colJoinURL}

// RawSheet is one downloaded sheet: the header columns plus one
// stringly-typed cell map per data row.
type RawSheet struct {
	Columns []string
	Rows    []map[string]string
}

func (s *RawSheet) hasColumn(name string) bool {
	for _, col := range s.Columns {
		if col == name {
			return true
		}
	}
	return false
}

// AdapterService turns raw sheet rows into the typed domain model.
// All transforms are pure; the only failure mode is a structurally
// broken sheet (missing required column, malformed meeting row).
type AdapterService struct {
	validate *validator.Validate
	logger   *zap.Logger
}

func NewAdapterService(validate *validator.Validate, logger *zap.Logger) *AdapterService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AdapterService{validate: validate, logger: logger}
}

// AdaptSchedule decodes the schedule sheet into typed rows. A missing
// required column is a decode error naming the column; it aborts the
// run before any validation rule is evaluated.
func (a *AdapterService) AdaptSchedule(sheet *RawSheet) ([]models.ScheduleRow, error) {
	if err := checkColumns(sheet, requiredScheduleColumns); err != nil {
		return nil, err
	}

	rows := make([]models.ScheduleRow, 0, len(sheet.Rows))
	for _, raw := range sheet.Rows {
		rows = append(rows, models.ScheduleRow{
			Start:       raw[colStart],
			Title:       raw[colTitle],
			Subtitle:    raw[colSubtitle],
			Link:        raw[colLink],
			MeetingIds:  splitIDList(raw[colMeetingIds]),
			ReservedIds: splitIDList(raw[colReservedIds]),
			RandomJoin:  raw[colRandomJoin] == "TRUE",
			OpenEnd:     raw[colOpenEnd] == "TRUE",
			Slot:        raw[colSlot],
		})
	}
	return rows, nil
}

// AdaptMeetings decodes the meetings sheet into typed rows.
func (a *AdapterService) AdaptMeetings(sheet *RawSheet) ([]models.MeetingRow, error) {
	if err := checkColumns(sheet, requiredMeetingColumns); err != nil {
		return nil, err
	}

	rows := make([]models.MeetingRow, 0, len(sheet.Rows))
	for i, raw := range sheet.Rows {
		row := models.MeetingRow{
			Email:     raw[colEmail],
			MeetingID: raw[colMeetingID],
			JoinURL:   raw[colJoinURL],
			HostKey:   raw[colHostKey],
		}
		if err := a.validate.Struct(row); err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrDecode.Code, appErrors.ErrDecode.Status,
				fmt.Sprintf("meetings sheet row %d is malformed", i+1))
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// BuildMeetingDictionary folds meeting rows into the id lookup table.
// On duplicate ids the last row wins; the overwrite is logged so the
// sheet owner can clean it up.
func (a *AdapterService) BuildMeetingDictionary(rows []models.MeetingRow) models.MeetingDictionary {
	dict := make(models.MeetingDictionary, len(rows))
	for _, row := range rows {
		if _, exists := dict[row.MeetingID]; exists {
			a.logger.Warn("duplicate meeting id in meetings sheet, last row wins",
				zap.String("meeting_id", row.MeetingID))
		}
		dict[row.MeetingID] = models.Meeting{
			Email:   row.Email,
			JoinURL: row.JoinURL,
			HostKey: row.HostKey,
		}
	}
	return dict
}

func checkColumns(sheet *RawSheet, required []string) error {
	for _, col := range required {
		if !sheet.hasColumn(col) {
			return appErrors.Clone(appErrors.ErrDecode,
				fmt.Sprintf("sheet is missing required column %q", col))
		}
	}
	return nil
}

// splitIDList turns a comma-separated cell into a list of ids. An empty
// cell yields an empty list, never a single empty element.
func splitIDList(cell string) []string {
	ids := []string{}
	for _, part := range strings.Split(cell, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			ids = append(ids, trimmed)
		}
	}
	return ids
}

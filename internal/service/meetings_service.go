package service

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/openretreat/office-sync/internal/dto"
	"github.com/openretreat/office-sync/internal/models"
	"github.com/openretreat/office-sync/pkg/config"
)

// licensedUserType is the zoom account type allowed to host meetings.
const licensedUserType = 2

// ZoomAPI is the meeting-provider surface the provisioning needs.
type ZoomAPI interface {
	ListUsers(ctx context.Context) ([]dto.ZoomUser, error)
	GetUser(ctx context.Context, userID string) (*dto.ZoomUserDetail, error)
	ListUpcomingMeetings(ctx context.Context, userID string) ([]dto.ZoomMeeting, error)
	CreateMeeting(ctx context.Context, userID string, req *dto.ZoomMeetingRequest) (*dto.ZoomMeeting, error)
}

// MeetingsService provisions one recurring meeting per selected zoom
// user and emits the rows for the meetings sheet. Provisioning is
// get-or-create keyed on the meeting topic, so reruns are safe.
type MeetingsService struct {
	cfg    config.ZoomConfig
	zoom   ZoomAPI
	logger *zap.Logger
}

func NewMeetingsService(cfg config.ZoomConfig, zoom ZoomAPI, logger *zap.Logger) *MeetingsService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &MeetingsService{cfg: cfg, zoom: zoom, logger: logger}
}

// Provision selects the licensed users named in the email file,
// ensures each has a meeting with the configured topic, and returns
// one meetings-sheet row per user.
func (m *MeetingsService) Provision(ctx context.Context) ([]models.MeetingRow, error) {
	users, err := m.selectUsers(ctx)
	if err != nil {
		return nil, err
	}
	m.logger.Info("provisioning meetings", zap.Int("users", len(users)))

	rows := make([]models.MeetingRow, 0, len(users))
	for _, user := range users {
		meeting, err := m.getOrCreateMeeting(ctx, user)
		if err != nil {
			return nil, err
		}

		detail, err := m.zoom.GetUser(ctx, user.ID)
		if err != nil {
			return nil, fmt.Errorf("get user %s: %w", user.Email, err)
		}

		rows = append(rows, models.MeetingRow{
			Email:     user.Email,
			MeetingID: strconv.FormatInt(meeting.ID, 10),
			JoinURL:   meeting.JoinURL,
			HostKey:   detail.HostKey,
		})
	}
	return rows, nil
}

// selectUsers intersects the account's user list with the email file,
// keeping only licensed users.
func (m *MeetingsService) selectUsers(ctx context.Context) ([]dto.ZoomUser, error) {
	content, err := os.ReadFile(m.cfg.UserEmailFile)
	if err != nil {
		return nil, fmt.Errorf("read user email file: %w", err)
	}

	wanted := make(map[string]bool)
	for _, line := range strings.Split(string(content), "\n") {
		if email := strings.TrimSpace(line); email != "" {
			wanted[email] = true
		}
	}

	users, err := m.zoom.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list zoom users: %w", err)
	}

	var selected []dto.ZoomUser
	for _, user := range users {
		if wanted[user.Email] && user.Type == licensedUserType {
			selected = append(selected, user)
		}
	}
	return selected, nil
}

func (m *MeetingsService) getOrCreateMeeting(ctx context.Context, user dto.ZoomUser) (*dto.ZoomMeeting, error) {
	meetings, err := m.zoom.ListUpcomingMeetings(ctx, user.ID)
	if err != nil {
		return nil, fmt.Errorf("list meetings for %s: %w", user.Email, err)
	}
	for _, meeting := range meetings {
		if meeting.Topic == m.cfg.MeetingTopic {
			m.logger.Info("meeting already exists",
				zap.String("email", user.Email), zap.Int64("meeting_id", meeting.ID))
			meeting := meeting
			return &meeting, nil
		}
	}

	m.logger.Info("meeting not found, creating", zap.String("email", user.Email))
	return m.zoom.CreateMeeting(ctx, user.ID, &dto.ZoomMeetingRequest{
		Topic:     m.cfg.MeetingTopic,
		Type:      2,
		StartTime: m.cfg.StartTime,
		Duration:  m.cfg.DurationMinutes,
		Password:  m.cfg.MeetingPassword,
		TrackingFields: []dto.ZoomTrackingField{
			{Field: "origin", Value: "office-sync"},
		},
		Settings: dto.ZoomMeetingSettings{JoinBeforeHost: true},
	})
}

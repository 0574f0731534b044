package service

import (
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/openretreat/office-sync/internal/dto"
	"github.com/openretreat/office-sync/internal/models"
	"github.com/openretreat/office-sync/pkg/config"
	appErrors "github.com/openretreat/office-sync/pkg/errors"
)

// timestampLayout is the wall-clock format the presentation service
// expects for group windows, millisecond precision with a numeric
// zone offset.
const timestampLayout = "2006-01-02T15:04:05.000-07:00"

const endOfDay = "23:59:59"

// OfficeService turns validated schedule rows and the meeting
// dictionary into an office layout. Generation is deterministic: the
// same rows, dictionary and schedule date always produce the same
// office, so repeated syncs replace the layout with an identical one.
type OfficeService struct {
	cfg    config.GeneratorConfig
	links  *LinkExtractor
	layout *EventLayout
	loc    *time.Location
	logger *zap.Logger

	// now is the clock used when no schedule date is configured.
	// Package tests pin it.
	now func() time.Time
}

func NewOfficeService(cfg config.GeneratorConfig, links *LinkExtractor, layout *EventLayout, logger *zap.Logger) (*OfficeService, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if links == nil {
		links = NewLinkExtractor(cfg.IconBaseURL)
	}

	tz := cfg.Timezone
	if tz == "" {
		tz = "Europe/Berlin"
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", tz, err)
	}

	return &OfficeService{
		cfg:    cfg,
		links:  links,
		layout: layout,
		loc:    loc,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Generate builds the office for the given rows. Rows must already
// have passed validation; an id that still fails to resolve here is
// an internal error, not a user-facing violation.
func (s *OfficeService) Generate(rows []models.ScheduleRow, dict models.MeetingDictionary) (*dto.Office, error) {
	s.logger.Info("generating office", zap.Int("rows", len(rows)))

	day, err := s.scheduleDay()
	if err != nil {
		return nil, err
	}

	partitions := partitionByStart(rows)
	starts := sortedStarts(partitions)

	office := &dto.Office{
		Rooms:  []dto.Room{},
		Groups: []dto.Group{},
	}

	for i, start := range starts {
		peers := partitions[start]

		group := dto.Group{
			ID:   groupID(start),
			Name: start,
		}

		disabledBefore, err := s.timestamp(day, start, 0)
		if err != nil {
			return nil, err
		}
		joinableAfter, err := s.timestamp(day, start, -time.Duration(s.cfg.RoomJoinLeadMinutes)*time.Minute)
		if err != nil {
			return nil, err
		}

		end := endOfDay
		if i+1 < len(starts) && !hasOpenEnd(peers) {
			end = starts[i+1]
		}
		disabledAfter, err := s.timestamp(day, end, 0)
		if err != nil {
			return nil, err
		}

		group.DisabledBefore = disabledBefore
		group.DisabledAfter = disabledAfter
		group.JoinableAfter = joinableAfter

		for _, row := range peers {
			if row.RandomJoin {
				group.GroupJoin = s.groupJoin(row)
				break
			}
		}

		rooms, err := s.roomsForPartition(group, peers, dict)
		if err != nil {
			return nil, err
		}

		office.Groups = append(office.Groups, group)
		office.Rooms = append(office.Rooms, rooms...)
	}

	if s.layout != nil {
		s.layout.apply(office, starts, dict)
	}

	s.logger.Info("office generated",
		zap.Int("rooms", len(office.Rooms)),
		zap.Int("groups", len(office.Groups)))
	return office, nil
}

// roomsForPartition synthesizes one room per meeting id of each row.
// Rows with an empty title carry no presentable room and are skipped.
func (s *OfficeService) roomsForPartition(group dto.Group, peers []models.ScheduleRow, dict models.MeetingDictionary) ([]dto.Room, error) {
	var rooms []dto.Room
	for _, row := range peers {
		if row.Title == "" {
			s.logger.Debug("skipping untitled row", zap.String("start", row.Start))
			continue
		}

		meetingIDs := append([]string(nil), row.MeetingIds...)
		sort.Strings(meetingIDs)

		poolRoom := row.RandomJoin && len(meetingIDs) > 1 && s.layout != nil && len(s.layout.PoolRoomNames) > 0

		for i, meetingID := range meetingIDs {
			meeting, ok := dict[meetingID]
			if !ok {
				return nil, appErrors.Clone(appErrors.ErrInternal,
					fmt.Sprintf("meeting id %s vanished between validation and generation", meetingID))
			}

			room := dto.Room{
				RoomID:    fmt.Sprintf("%s:room-%s", group.ID, meetingID),
				MeetingID: meetingID,
				GroupID:   group.ID,
				Name:      s.roomName(row, i, len(meetingIDs)),
				Subtitle:  row.Subtitle,
				JoinURL:   meeting.JoinURL,
				Links:     s.roomLinks(row, meeting),
			}
			if poolRoom {
				room.Name = s.layout.poolRoomName(i, group.GroupJoin)
			}
			if row.Slot != "" {
				room.HasSlackChannel = true
			}
			rooms = append(rooms, room)
		}
	}
	return rooms, nil
}

// roomName numbers rooms only when the row spans several meetings; the
// slot tag, when present, replaces the number as the prefix.
func (s *OfficeService) roomName(row models.ScheduleRow, index, total int) string {
	if row.Slot != "" {
		return fmt.Sprintf("%s %s", row.Slot, row.Title)
	}
	if total > 1 {
		return fmt.Sprintf("(%d) %s", index+1, row.Title)
	}
	return row.Title
}

// roomLinks prepends the host-key hint to the links extracted from the
// row. Only slot rooms carry a host key: their owner moderates the
// meeting and needs the key at hand.
func (s *OfficeService) roomLinks(row models.ScheduleRow, meeting models.Meeting) []dto.RoomLink {
	links := []dto.RoomLink{}
	if row.Slot != "" && meeting.HostKey != "" {
		links = append(links, dto.RoomLink{
			Text: fmt.Sprintf("Host-Key: %s", meeting.HostKey),
			Href: s.cfg.HostKeyInfoURL,
			Icon: s.links.IconURLFor("zoom"),
		})
	}
	return append(links, s.links.Extract(row.Link)...)
}

func (s *OfficeService) groupJoin(row models.ScheduleRow) *dto.GroupJoinConfig {
	join := &dto.GroupJoinConfig{
		MinimumParticipantCount: s.cfg.GroupJoinMinUsers,
		Title:                   row.Title,
		Subtitle:                row.Subtitle,
		Description:             s.cfg.GroupJoinDescription,
	}
	if s.layout != nil && len(s.layout.PoolRoomNames) > 0 {
		join.MinimumRoomsToShow = len(s.layout.PoolRoomNames) + 5
	}
	return join
}

// scheduleDay resolves the calendar day the schedule runs on: the
// configured date, or today in the schedule timezone.
func (s *OfficeService) scheduleDay() (time.Time, error) {
	if s.cfg.ScheduleDate != "" {
		day, err := time.ParseInLocation("2006-01-02", s.cfg.ScheduleDate, s.loc)
		if err != nil {
			return time.Time{}, fmt.Errorf("parse schedule date %q: %w", s.cfg.ScheduleDate, err)
		}
		return day, nil
	}
	now := s.now().In(s.loc)
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, s.loc), nil
}

// timestamp anchors a wall-clock value (HH:MM or HH:MM:SS) to the
// schedule day and renders it with the configured offset applied.
func (s *OfficeService) timestamp(day time.Time, clock string, shift time.Duration) (string, error) {
	parsed, err := time.Parse("15:04:05", clock)
	if err != nil {
		parsed, err = time.Parse("15:04", clock)
		if err != nil {
			return "", appErrors.Clone(appErrors.ErrDecode, fmt.Sprintf("invalid start time %q", clock))
		}
	}

	t := time.Date(day.Year(), day.Month(), day.Day(), parsed.Hour(), parsed.Minute(), parsed.Second(), 0, s.loc).Add(shift)
	return t.Format(timestampLayout), nil
}

func groupID(start string) string {
	return fmt.Sprintf("group-%s", start)
}

func hasOpenEnd(rows []models.ScheduleRow) bool {
	for _, row := range rows {
		if row.OpenEnd {
			return true
		}
	}
	return false
}

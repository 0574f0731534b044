package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/openretreat/office-sync/internal/dto"
	"github.com/openretreat/office-sync/internal/models"
	"github.com/openretreat/office-sync/pkg/config"
)

const groupJoinDescription = `Wenn ihr mögt, könnt ihr durch den rechts stehenden "Join"-Button einem zufällig ausgewählten Raum beitreten.`

func generatorConfig() config.GeneratorConfig {
	return config.GeneratorConfig{
		RoomJoinLeadMinutes:  5,
		ScheduleDate:         "2020-05-22",
		Timezone:             "Europe/Berlin",
		GroupJoinMinUsers:    5,
		GroupJoinDescription: groupJoinDescription,
		HostKeyInfoURL:       "https://wiki.example.com/x/hostkey",
		IconBaseURL:          testIconBase,
	}
}

func newOfficeService(t *testing.T, cfg config.GeneratorConfig, layout *EventLayout) *OfficeService {
	t.Helper()
	svc, err := NewOfficeService(cfg, NewLinkExtractor(cfg.IconBaseURL), layout, nil)
	require.NoError(t, err)
	return svc
}

func TestGenerateFullSchedule(t *testing.T) {
	svc := newOfficeService(t, generatorConfig(), nil)

	rows := []models.ScheduleRow{
		{Start: "08:30", Title: "Break", MeetingIds: []string{"2", "3"}, ReservedIds: []string{"2", "3", "4", "5"}, RandomJoin: true, OpenEnd: true},
		{Start: "09:00", Title: "Welcome", Subtitle: "Earthlings", MeetingIds: []string{"1"}, ReservedIds: []string{}},
		{Start: "09:05", Title: "Keynote", MeetingIds: []string{"1"}, ReservedIds: []string{}},
		{Start: "10:05", Title: "The Funnel", MeetingIds: []string{"3"}, ReservedIds: []string{}},
		{Start: "10:15", Title: "Break", Subtitle: "Lunch", MeetingIds: []string{"1", "2", "3", "4"}, ReservedIds: []string{}, RandomJoin: true},
		{Start: "10:30", Slot: "A1", Title: "Topic A", Link: "[Topic A](http://shouting.machine/topicA)", MeetingIds: []string{"1"}, ReservedIds: []string{}},
		{Start: "10:30", Slot: "A2", Title: "Topic B 1", Subtitle: "Poggers", Link: "[Topic B](http://shouting.machine/topicB)", MeetingIds: []string{"2"}, ReservedIds: []string{"2", "3"}},
		{Start: "10:30", Slot: "A3", Title: "Topic B 2", Subtitle: "in the Chat", Link: "[Topic B](http://shouting.machine/topicB)", MeetingIds: []string{"4"}, ReservedIds: []string{"4", "5"}},
		{Start: "12:00", Title: "Break", MeetingIds: []string{"1"}, ReservedIds: []string{"1", "2"}, RandomJoin: true},
	}
	dict := dictFor("1", "2", "3", "4", "5")

	office, err := svc.Generate(rows, dict)
	require.NoError(t, err)

	hostKeyLink := func(key string) dto.RoomLink {
		return dto.RoomLink{
			Text: "Host-Key: " + key,
			Href: "https://wiki.example.com/x/hostkey",
			Icon: testIconBase + "/zoom-icon.png",
		}
	}

	require.Equal(t, []dto.Room{
		{RoomID: "group-08:30:room-2", MeetingID: "2", GroupID: "group-08:30", Name: "(1) Break", JoinURL: "http://zoom.us/joinMe/2", Links: []dto.RoomLink{}},
		{RoomID: "group-08:30:room-3", MeetingID: "3", GroupID: "group-08:30", Name: "(2) Break", JoinURL: "http://zoom.us/joinMe/3", Links: []dto.RoomLink{}},
		{RoomID: "group-09:00:room-1", MeetingID: "1", GroupID: "group-09:00", Name: "Welcome", Subtitle: "Earthlings", JoinURL: "http://zoom.us/joinMe/1", Links: []dto.RoomLink{}},
		{RoomID: "group-09:05:room-1", MeetingID: "1", GroupID: "group-09:05", Name: "Keynote", JoinURL: "http://zoom.us/joinMe/1", Links: []dto.RoomLink{}},
		{RoomID: "group-10:05:room-3", MeetingID: "3", GroupID: "group-10:05", Name: "The Funnel", JoinURL: "http://zoom.us/joinMe/3", Links: []dto.RoomLink{}},
		{RoomID: "group-10:15:room-1", MeetingID: "1", GroupID: "group-10:15", Name: "(1) Break", Subtitle: "Lunch", JoinURL: "http://zoom.us/joinMe/1", Links: []dto.RoomLink{}},
		{RoomID: "group-10:15:room-2", MeetingID: "2", GroupID: "group-10:15", Name: "(2) Break", Subtitle: "Lunch", JoinURL: "http://zoom.us/joinMe/2", Links: []dto.RoomLink{}},
		{RoomID: "group-10:15:room-3", MeetingID: "3", GroupID: "group-10:15", Name: "(3) Break", Subtitle: "Lunch", JoinURL: "http://zoom.us/joinMe/3", Links: []dto.RoomLink{}},
		{RoomID: "group-10:15:room-4", MeetingID: "4", GroupID: "group-10:15", Name: "(4) Break", Subtitle: "Lunch", JoinURL: "http://zoom.us/joinMe/4", Links: []dto.RoomLink{}},
		{RoomID: "group-10:30:room-1", MeetingID: "1", GroupID: "group-10:30", Name: "A1 Topic A", JoinURL: "http://zoom.us/joinMe/1",
			Links: []dto.RoomLink{hostKeyLink("1"), {Text: "Topic A", Href: "http://shouting.machine/topicA"}}, HasSlackChannel: true},
		{RoomID: "group-10:30:room-2", MeetingID: "2", GroupID: "group-10:30", Name: "A2 Topic B 1", Subtitle: "Poggers", JoinURL: "http://zoom.us/joinMe/2",
			Links: []dto.RoomLink{hostKeyLink("2"), {Text: "Topic B", Href: "http://shouting.machine/topicB"}}, HasSlackChannel: true},
		{RoomID: "group-10:30:room-4", MeetingID: "4", GroupID: "group-10:30", Name: "A3 Topic B 2", Subtitle: "in the Chat", JoinURL: "http://zoom.us/joinMe/4",
			Links: []dto.RoomLink{hostKeyLink("4"), {Text: "Topic B", Href: "http://shouting.machine/topicB"}}, HasSlackChannel: true},
		{RoomID: "group-12:00:room-1", MeetingID: "1", GroupID: "group-12:00", Name: "Break", JoinURL: "http://zoom.us/joinMe/1", Links: []dto.RoomLink{}},
	}, office.Rooms)

	breakJoin := func(subtitle string) *dto.GroupJoinConfig {
		return &dto.GroupJoinConfig{
			MinimumParticipantCount: 5,
			Title:                   "Break",
			Subtitle:                subtitle,
			Description:             groupJoinDescription,
		}
	}

	require.Equal(t, []dto.Group{
		{ID: "group-08:30", Name: "08:30", GroupJoin: breakJoin(""),
			DisabledBefore: "2020-05-22T08:30:00.000+02:00", DisabledAfter: "2020-05-22T23:59:59.000+02:00", JoinableAfter: "2020-05-22T08:25:00.000+02:00"},
		{ID: "group-09:00", Name: "09:00",
			DisabledBefore: "2020-05-22T09:00:00.000+02:00", DisabledAfter: "2020-05-22T09:05:00.000+02:00", JoinableAfter: "2020-05-22T08:55:00.000+02:00"},
		{ID: "group-09:05", Name: "09:05",
			DisabledBefore: "2020-05-22T09:05:00.000+02:00", DisabledAfter: "2020-05-22T10:05:00.000+02:00", JoinableAfter: "2020-05-22T09:00:00.000+02:00"},
		{ID: "group-10:05", Name: "10:05",
			DisabledBefore: "2020-05-22T10:05:00.000+02:00", DisabledAfter: "2020-05-22T10:15:00.000+02:00", JoinableAfter: "2020-05-22T10:00:00.000+02:00"},
		{ID: "group-10:15", Name: "10:15", GroupJoin: breakJoin("Lunch"),
			DisabledBefore: "2020-05-22T10:15:00.000+02:00", DisabledAfter: "2020-05-22T10:30:00.000+02:00", JoinableAfter: "2020-05-22T10:10:00.000+02:00"},
		{ID: "group-10:30", Name: "10:30",
			DisabledBefore: "2020-05-22T10:30:00.000+02:00", DisabledAfter: "2020-05-22T12:00:00.000+02:00", JoinableAfter: "2020-05-22T10:25:00.000+02:00"},
		{ID: "group-12:00", Name: "12:00", GroupJoin: breakJoin(""),
			DisabledBefore: "2020-05-22T12:00:00.000+02:00", DisabledAfter: "2020-05-22T23:59:59.000+02:00", JoinableAfter: "2020-05-22T11:55:00.000+02:00"},
	}, office.Groups)

	require.Nil(t, office.Schedule)
}

func TestGenerateUsesConfiguredScheduleDate(t *testing.T) {
	cfg := generatorConfig()
	cfg.ScheduleDate = "2020-07-04"
	cfg.RoomJoinLeadMinutes = 10
	svc := newOfficeService(t, cfg, nil)

	rows := []models.ScheduleRow{
		{Start: "08:30", Title: "Break", MeetingIds: []string{"2", "3"}, ReservedIds: []string{"2", "3"}, RandomJoin: true},
	}

	office, err := svc.Generate(rows, dictFor("2", "3"))
	require.NoError(t, err)
	require.Len(t, office.Groups, 1)

	group := office.Groups[0]
	require.Equal(t, "2020-07-04T08:30:00.000+02:00", group.DisabledBefore)
	require.Equal(t, "2020-07-04T23:59:59.000+02:00", group.DisabledAfter)
	require.Equal(t, "2020-07-04T08:20:00.000+02:00", group.JoinableAfter)
}

func TestGenerateDefaultsToToday(t *testing.T) {
	cfg := generatorConfig()
	cfg.ScheduleDate = ""
	svc := newOfficeService(t, cfg, nil)
	svc.now = func() time.Time {
		return time.Date(2020, 5, 22, 7, 0, 0, 0, time.UTC)
	}

	rows := []models.ScheduleRow{
		{Start: "09:00", Title: "Welcome", MeetingIds: []string{"1"}, ReservedIds: []string{}},
	}

	office, err := svc.Generate(rows, dictFor("1"))
	require.NoError(t, err)
	require.Equal(t, "2020-05-22T09:00:00.000+02:00", office.Groups[0].DisabledBefore)
}

func TestGenerateSupportsSecondsInStart(t *testing.T) {
	svc := newOfficeService(t, generatorConfig(), nil)

	rows := []models.ScheduleRow{
		{Start: "08:30:30", Title: "Break", MeetingIds: []string{"2"}, ReservedIds: []string{}},
	}

	office, err := svc.Generate(rows, dictFor("2"))
	require.NoError(t, err)
	require.Equal(t, "group-08:30:30", office.Groups[0].ID)
	require.Equal(t, "2020-05-22T08:30:30.000+02:00", office.Groups[0].DisabledBefore)
}

func TestGenerateRejectsMalformedStart(t *testing.T) {
	svc := newOfficeService(t, generatorConfig(), nil)

	for _, start := range []string{"half past eight", "10:30abc", "10:30:00abc", "25:00"} {
		t.Run(start, func(t *testing.T) {
			rows := []models.ScheduleRow{
				{Start: start, Title: "Break", MeetingIds: []string{"2"}, ReservedIds: []string{}},
			}

			_, err := svc.Generate(rows, dictFor("2"))
			require.Error(t, err)
		})
	}
}

func TestGenerateSkipsUntitledRows(t *testing.T) {
	svc := newOfficeService(t, generatorConfig(), nil)

	rows := []models.ScheduleRow{
		{Start: "09:00", Title: "", MeetingIds: []string{"1"}, ReservedIds: []string{}},
		{Start: "09:00", Title: "Welcome", MeetingIds: []string{"2"}, ReservedIds: []string{}},
	}

	office, err := svc.Generate(rows, dictFor("1", "2"))
	require.NoError(t, err)
	require.Len(t, office.Groups, 1)
	require.Len(t, office.Rooms, 1)
	require.Equal(t, "Welcome", office.Rooms[0].Name)
}

func TestGenerateIsDeterministic(t *testing.T) {
	svc := newOfficeService(t, generatorConfig(), nil)

	rows := []models.ScheduleRow{
		{Start: "10:15", Title: "Break", MeetingIds: []string{"3", "1", "2"}, ReservedIds: []string{}, RandomJoin: true},
		{Start: "09:00", Title: "Welcome", MeetingIds: []string{"1"}, ReservedIds: []string{}},
	}
	dict := dictFor("1", "2", "3")

	first, err := svc.Generate(rows, dict)
	require.NoError(t, err)
	second, err := svc.Generate(rows, dict)
	require.NoError(t, err)
	require.Equal(t, first, second)

	// Meeting ids are emitted sorted regardless of the cell order.
	require.Equal(t, "group-10:15:room-1", first.Rooms[1].RoomID)
	require.Equal(t, "group-10:15:room-2", first.Rooms[2].RoomID)
	require.Equal(t, "group-10:15:room-3", first.Rooms[3].RoomID)
}

func TestGenerateAppliesEventLayout(t *testing.T) {
	layout := &EventLayout{
		Name:   "test-day",
		Tracks: []dto.Track{{ID: "track-1", Name: ""}},
		StaticGroups: []dto.Group{
			{ID: "orga", Name: ""},
		},
		StaticRooms: []dto.Room{
			{RoomID: "orga-room", MeetingID: "9", GroupID: "orga", Name: "Orga", JoinURL: "http://zoom.us/joinMe/9", Links: []dto.RoomLink{}},
		},
		StaticSessions: []dto.Session{
			{GroupID: "orga", Start: "08:00", End: "08:30", AlwaysActive: true},
		},
		PoolRoomNames: []string{"Kaffeeküche", "Open Air"},
	}
	svc := newOfficeService(t, generatorConfig(), layout)

	rows := []models.ScheduleRow{
		{Start: "09:00", Title: "Welcome", MeetingIds: []string{"1"}, ReservedIds: []string{}},
		{Start: "12:00", Title: "Lunch", MeetingIds: []string{"2", "3", "4"}, ReservedIds: []string{}, RandomJoin: true},
	}

	office, err := svc.Generate(rows, dictFor("1", "2", "3", "4"))
	require.NoError(t, err)

	require.Equal(t, "orga", office.Groups[len(office.Groups)-1].ID)
	require.Equal(t, "orga-room", office.Rooms[len(office.Rooms)-1].RoomID)

	require.NotNil(t, office.Schedule)
	require.Equal(t, layout.Tracks, office.Schedule.Tracks)
	require.Equal(t, []dto.Session{
		{GroupID: "group-09:00", Start: "09:00", End: "12:00"},
		{GroupID: "group-12:00", Start: "12:00", End: "23:59"},
		{GroupID: "orga", Start: "08:00", End: "08:30", AlwaysActive: true},
	}, office.Schedule.Sessions)

	// Pool rooms take their names from the layout, falling back to the
	// group-join title once the list is exhausted.
	var poolNames []string
	for _, room := range office.Rooms {
		if room.GroupID == "group-12:00" {
			poolNames = append(poolNames, room.Name)
		}
	}
	require.Equal(t, []string{"Kaffeeküche", "Open Air", "Lunch"}, poolNames)

	lunch := office.Groups[1]
	require.NotNil(t, lunch.GroupJoin)
	require.Equal(t, len(layout.PoolRoomNames)+5, lunch.GroupJoin.MinimumRoomsToShow)
}

func TestGenerateAttachesOrgaRoom(t *testing.T) {
	layout, err := LayoutByName("retreat-day")
	require.NoError(t, err)
	layout.AttachOrgaRoom("9")
	svc := newOfficeService(t, generatorConfig(), layout)

	rows := []models.ScheduleRow{
		{Start: "09:00", Title: "Welcome", MeetingIds: []string{"1"}, ReservedIds: []string{}},
	}

	office, err := svc.Generate(rows, dictFor("1", "9"))
	require.NoError(t, err)

	// The orga group, its room and its timeline slot come as one piece,
	// with the join URL resolved from the meeting dictionary.
	require.Equal(t, dto.Group{ID: "orga", Name: ""}, office.Groups[len(office.Groups)-1])
	require.Equal(t, dto.Room{
		RoomID:    "orga-room",
		MeetingID: "9",
		GroupID:   "orga",
		Name:      "Retreat-Orga",
		JoinURL:   "http://zoom.us/joinMe/9",
		Links:     []dto.RoomLink{},
	}, office.Rooms[len(office.Rooms)-1])
	require.Contains(t, office.Schedule.Sessions,
		dto.Session{GroupID: "orga", Start: "08:00", End: "08:30", AlwaysActive: true})
}

func TestLayoutByName(t *testing.T) {
	layout, err := LayoutByName("")
	require.NoError(t, err)
	require.Nil(t, layout)

	layout, err = LayoutByName("retreat-day")
	require.NoError(t, err)
	require.NotNil(t, layout)
	require.Equal(t, "retreat-day", layout.Name)

	_, err = LayoutByName("does-not-exist")
	require.Error(t, err)
}

func TestLayoutByNameReturnsPrivateCopies(t *testing.T) {
	first, err := LayoutByName("retreat-day")
	require.NoError(t, err)
	first.AttachOrgaRoom("9")
	first.PoolRoomNames[0] = "changed"

	second, err := LayoutByName("retreat-day")
	require.NoError(t, err)
	require.Empty(t, second.StaticRooms)
	require.Equal(t, "Kaffeeküche", second.PoolRoomNames[0])
}

func TestNewOfficeServiceRejectsUnknownTimezone(t *testing.T) {
	cfg := generatorConfig()
	cfg.Timezone = "Mars/OlympusMons"
	_, err := NewOfficeService(cfg, nil, nil, nil)
	require.Error(t, err)
}

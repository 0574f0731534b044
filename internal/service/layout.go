package service

import (
	"fmt"

	"github.com/openretreat/office-sync/internal/dto"
	"github.com/openretreat/office-sync/internal/models"
)

// EventLayout customizes generation for special event days. A layout
// contributes a track timeline plus static groups and rooms that the
// sheet does not describe, and optionally names the synthesized
// random-join pool rooms. The plain generator runs with a nil layout.
type EventLayout struct {
	Name string

	Tracks []dto.Track

	// StaticGroups and StaticRooms are appended verbatim after the
	// sheet-derived layout, e.g. an always-open orga room. A static
	// room with a meeting id but no join URL gets the URL from the
	// meeting dictionary at generation time.
	StaticGroups []dto.Group
	StaticRooms  []dto.Room

	// StaticSessions are fixed timeline entries (e.g. an always-active
	// orga slot) merged with the per-partition sessions.
	StaticSessions []dto.Session

	// PoolRoomNames names random-join pool rooms by position. Rooms
	// beyond the list fall back to the group-join title.
	PoolRoomNames []string
}

// AttachOrgaRoom binds the organizer room to a meeting. The meeting id
// is deployment data, so it comes from configuration rather than the
// registry; without it the orga group has a timeline slot but no room.
func (l *EventLayout) AttachOrgaRoom(meetingID string) {
	l.StaticRooms = append(l.StaticRooms, dto.Room{
		RoomID:    "orga-room",
		MeetingID: meetingID,
		GroupID:   "orga",
		Name:      "Retreat-Orga",
		Links:     []dto.RoomLink{},
	})
}

// apply overlays the layout onto a generated office: appends the
// static pieces and derives one timeline session per partition.
func (l *EventLayout) apply(office *dto.Office, starts []string, dict models.MeetingDictionary) {
	office.Groups = append(office.Groups, l.StaticGroups...)
	for _, room := range l.StaticRooms {
		if room.JoinURL == "" && room.MeetingID != "" {
			if meeting, ok := dict[room.MeetingID]; ok {
				room.JoinURL = meeting.JoinURL
			}
		}
		office.Rooms = append(office.Rooms, room)
	}

	sessions := make([]dto.Session, 0, len(starts)+len(l.StaticSessions))
	for i, start := range starts {
		end := "23:59"
		if i+1 < len(starts) {
			end = starts[i+1]
		}
		sessions = append(sessions, dto.Session{
			GroupID: groupID(start),
			Start:   start,
			End:     end,
		})
	}
	sessions = append(sessions, l.StaticSessions...)

	office.Schedule = &dto.Schedule{
		Tracks:   l.Tracks,
		Sessions: sessions,
	}
}

func (l *EventLayout) poolRoomName(index int, join *dto.GroupJoinConfig) string {
	if index < len(l.PoolRoomNames) {
		return l.PoolRoomNames[index]
	}
	if join != nil {
		return join.Title
	}
	return ""
}

// clone deep-copies the layout so callers can attach deployment pieces
// without mutating the registry.
func (l *EventLayout) clone() *EventLayout {
	copied := *l
	copied.Tracks = append([]dto.Track(nil), l.Tracks...)
	copied.StaticGroups = append([]dto.Group(nil), l.StaticGroups...)
	copied.StaticRooms = append([]dto.Room(nil), l.StaticRooms...)
	copied.StaticSessions = append([]dto.Session(nil), l.StaticSessions...)
	copied.PoolRoomNames = append([]string(nil), l.PoolRoomNames...)
	return &copied
}

// layouts is the registry of known event layouts. The orga room is not
// declared here: it needs a deployment-specific meeting id, attached
// via AttachOrgaRoom from configuration.
var layouts = map[string]*EventLayout{
	"retreat-day": {
		Name: "retreat-day",
		Tracks: []dto.Track{
			{ID: "track-1", Name: ""},
			{ID: "track-2", Name: ""},
		},
		StaticGroups: []dto.Group{
			{ID: "orga", Name: ""},
		},
		StaticSessions: []dto.Session{
			{GroupID: "orga", Start: "08:00", End: "08:30", AlwaysActive: true},
		},
		PoolRoomNames: []string{
			"Kaffeeküche",
			"Literaturcafé",
			"Kochen und Essen",
			"Open Air",
			"Let the music rock",
		},
	},
}

// LayoutByName resolves a configured layout name to a private copy.
// The empty name means no layout and returns nil without error.
func LayoutByName(name string) (*EventLayout, error) {
	if name == "" {
		return nil, nil
	}
	layout, ok := layouts[name]
	if !ok {
		return nil, fmt.Errorf("unknown event layout %q", name)
	}
	return layout.clone(), nil
}

package dto

// Office is the full layout pushed to the presentation service. It is
// a flat, acyclic, JSON-ready graph: rooms reference their group by id,
// never by pointer.
type Office struct {
	Rooms    []Room    `json:"rooms"`
	Groups   []Group   `json:"groups"`
	Schedule *Schedule `json:"schedule,omitempty"`
}

// Schedule carries the track/session timeline used by event layouts.
type Schedule struct {
	Tracks   []Track   `json:"tracks"`
	Sessions []Session `json:"sessions"`
}

type Track struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type Session struct {
	RoomID       string `json:"roomId,omitempty"`
	GroupID      string `json:"groupId,omitempty"`
	TrackID      string `json:"trackId,omitempty"`
	Start        string `json:"start"`
	End          string `json:"end"`
	AlwaysActive bool   `json:"alwaysActive,omitempty"`
}

// Room is one joinable unit derived from a schedule row and a meeting id.
type Room struct {
	RoomID          string     `json:"roomId"`
	MeetingID       string     `json:"meetingId"`
	GroupID         string     `json:"groupId,omitempty"`
	Name            string     `json:"name"`
	Subtitle        string     `json:"subtitle"`
	JoinURL         string     `json:"joinUrl"`
	Links           []RoomLink `json:"links"`
	Icon            string     `json:"icon,omitempty"`
	HasSlackChannel bool       `json:"hasSlackChannel"`
}

// RoomLink is a structured link shown on a room card.
type RoomLink struct {
	Text string `json:"text"`
	Href string `json:"href"`
	Icon string `json:"icon,omitempty"`
}

// Group is one time-slot partition of the schedule.
type Group struct {
	ID             string           `json:"id"`
	Name           string           `json:"name"`
	GroupJoin      *GroupJoinConfig `json:"groupJoin,omitempty"`
	DisabledBefore string           `json:"disabledBefore,omitempty"`
	DisabledAfter  string           `json:"disabledAfter,omitempty"`
	JoinableAfter  string           `json:"joinableAfter,omitempty"`
}

// GroupJoinConfig enables the random-join affordance on a group.
type GroupJoinConfig struct {
	MinimumParticipantCount int    `json:"minimumParticipantCount"`
	Title                   string `json:"title"`
	Subtitle                string `json:"subtitle"`
	Description             string `json:"description"`
	MinimumRoomsToShow      int    `json:"minimumRoomsToShow,omitempty"`
}

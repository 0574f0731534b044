package models

// ScheduleRow is one typed row of the schedule sheet. Start is the
// partition key: rows sharing a Start value form one time-slot group.
// Start must be canonical wall-clock text (HH:MM or HH:MM:SS) so that
// lexical order equals chronological order.
type ScheduleRow struct {
	Start       string
	Title       string
	Subtitle    string
	Link        string
	MeetingIds  []string
	ReservedIds []string
	RandomJoin  bool
	OpenEnd     bool
	// Slot tags a parallel track (e.g. "A1"). Empty means untagged; a
	// tagged row gets a host-key link and a chat channel downstream.
	Slot string
}

// MeetingRow is one typed row of the meetings sheet.
type MeetingRow struct {
	Email     string `validate:"required,email"`
	MeetingID string `validate:"required"`
	JoinURL   string `validate:"required,url"`
	HostKey   string
}

// Meeting is the dictionary value for a provisioned meeting.
type Meeting struct {
	Email   string
	JoinURL string
	HostKey string
}

// MeetingDictionary maps meeting id to its join data. Built once per
// run and read-only afterwards; an id referenced by a schedule row but
// absent here is a validation error, never a silent default.
type MeetingDictionary map[string]Meeting

// Has reports whether the id resolves to a meeting.
func (d MeetingDictionary) Has(id string) bool {
	_, ok := d[id]
	return ok
}

package dto

// ZoomUser is one account member as returned by the users listing.
type ZoomUser struct {
	ID        string `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Email     string `json:"email"`
	Type      int    `json:"type"`
}

// ZoomUserDetail is the single-user view, which additionally carries
// the host key.
type ZoomUserDetail struct {
	ZoomUser
	HostKey string `json:"host_key"`
}

// ZoomMeeting is one meeting of a user.
type ZoomMeeting struct {
	UUID      string `json:"uuid"`
	ID        int64  `json:"id"`
	Type      int    `json:"type"`
	Topic     string `json:"topic"`
	StartTime string `json:"start_time,omitempty"`
	JoinURL   string `json:"join_url"`
}

// ZoomMeetingRequest is the create-meeting payload.
type ZoomMeetingRequest struct {
	Topic          string              `json:"topic"`
	Type           int                 `json:"type"`
	StartTime      string              `json:"start_time,omitempty"`
	Duration       int                 `json:"duration,omitempty"`
	Password       string              `json:"password,omitempty"`
	TrackingFields []ZoomTrackingField `json:"tracking_fields,omitempty"`
	Settings       ZoomMeetingSettings `json:"settings"`
}

type ZoomTrackingField struct {
	Field string `json:"field"`
	Value string `json:"value"`
}

type ZoomMeetingSettings struct {
	JoinBeforeHost bool `json:"join_before_host"`
}

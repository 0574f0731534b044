package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	AuthToken string

	Spreadsheet SpreadsheetConfig
	Office      OfficeConfig
	Generator   GeneratorConfig
	Slack       SlackConfig
	Confluence  ConfluenceConfig
	Zoom        ZoomConfig
	Sync        SyncConfig
	Redis       RedisConfig
	Snapshot    SnapshotConfig
	CORS        CORSConfig
	Log         LogConfig
}

// SpreadsheetConfig locates the source-of-truth Google spreadsheet.
type SpreadsheetConfig struct {
	ID                string
	ScheduleSheetName string
	MeetingsSheetName string
}

// OfficeConfig addresses the presentation service receiving the layout.
type OfficeConfig struct {
	BaseURL  string
	Username string
	Password string
}

// GeneratorConfig governs office synthesis.
type GeneratorConfig struct {
	RoomJoinLeadMinutes  int
	ScheduleDate         string
	Timezone             string
	GroupJoinMinUsers    int
	GroupJoinDescription string
	HostKeyInfoURL       string
	IconBaseURL          string
	EventLayout          string
	OrgaMeetingID        string
}

// SlackConfig controls chat-channel enrichment.
type SlackConfig struct {
	Enabled           bool
	Token             string
	BaseURL           string
	ChannelPrefix     string
	MinCreateInterval time.Duration
}

// ConfluenceConfig controls wiki-page enrichment.
type ConfluenceConfig struct {
	Enabled         bool
	BaseURL         string
	User            string
	Password        string
	SpaceKey        string
	ParentPageID    string
	TemplatePageID  string
	PageTitlePrefix string
}

// ZoomConfig drives meeting provisioning.
type ZoomConfig struct {
	JWT             string
	MeetingTopic    string
	MeetingPassword string
	StartTime       string
	DurationMinutes int
	UserEmailFile   string
}

// SyncConfig schedules recurring runs.
type SyncConfig struct {
	Interval string
	Workers  int
	Retries  int
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// SnapshotConfig toggles the fetched-sheet cache.
type SnapshotConfig struct {
	Enabled bool
	TTL     time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.AuthToken = v.GetString("ADMIN_AUTH_TOKEN")

	cfg.Spreadsheet = SpreadsheetConfig{
		ID:                v.GetString("GOOGLE_SPREADSHEET_ID"),
		ScheduleSheetName: v.GetString("SCHEDULE_SHEET_NAME"),
		MeetingsSheetName: v.GetString("MEETINGS_SHEET_NAME"),
	}

	cfg.Office = OfficeConfig{
		BaseURL:  v.GetString("VIRTUAL_OFFICE_BASE_URL"),
		Username: v.GetString("VIRTUAL_OFFICE_USERNAME"),
		Password: v.GetString("VIRTUAL_OFFICE_PASSWORD"),
	}

	cfg.Generator = GeneratorConfig{
		RoomJoinLeadMinutes:  v.GetInt("ROOM_JOIN_LEAD_MINUTES"),
		ScheduleDate:         v.GetString("SCHEDULE_DATE"),
		Timezone:             v.GetString("SCHEDULE_TIMEZONE"),
		GroupJoinMinUsers:    v.GetInt("GROUP_JOIN_MIN_PARTICIPANTS"),
		GroupJoinDescription: v.GetString("GROUP_JOIN_DESCRIPTION"),
		HostKeyInfoURL:       v.GetString("HOST_KEY_INFO_URL"),
		IconBaseURL:          v.GetString("ICON_BASE_URL"),
		EventLayout:          v.GetString("EVENT_LAYOUT"),
		OrgaMeetingID:        v.GetString("ORGA_MEETING_ID"),
	}
	if cfg.Generator.RoomJoinLeadMinutes < 0 {
		return nil, fmt.Errorf("ROOM_JOIN_LEAD_MINUTES must not be negative")
	}

	cfg.Slack = SlackConfig{
		Enabled:           v.GetBool("ENABLE_SLACK"),
		Token:             v.GetString("SLACK_TOKEN"),
		BaseURL:           v.GetString("SLACK_BASE_URL"),
		ChannelPrefix:     v.GetString("SLACK_CHANNEL_PREFIX"),
		MinCreateInterval: parseDuration(v.GetString("SLACK_MIN_CREATE_INTERVAL"), 3*time.Second),
	}

	cfg.Confluence = ConfluenceConfig{
		Enabled:         v.GetBool("ENABLE_CONFLUENCE"),
		BaseURL:         v.GetString("CONFLUENCE_BASE_URL"),
		User:            v.GetString("CONFLUENCE_USER"),
		Password:        v.GetString("CONFLUENCE_PASSWORD"),
		SpaceKey:        v.GetString("CONFLUENCE_SPACE_KEY"),
		ParentPageID:    v.GetString("CONFLUENCE_PARENT_PAGE_ID"),
		TemplatePageID:  v.GetString("CONFLUENCE_TEMPLATE_PAGE_ID"),
		PageTitlePrefix: v.GetString("CONFLUENCE_PAGE_TITLE_PREFIX"),
	}

	cfg.Zoom = ZoomConfig{
		JWT:             v.GetString("ZOOM_JWT"),
		MeetingTopic:    v.GetString("MEETING_TOPIC"),
		MeetingPassword: v.GetString("MEETING_PASSWORD"),
		StartTime:       v.GetString("MEETING_START_TIME"),
		DurationMinutes: v.GetInt("MEETING_DURATION"),
		UserEmailFile:   v.GetString("USER_EMAIL_FILE"),
	}

	cfg.Sync = SyncConfig{
		Interval: v.GetString("SYNC_INTERVAL"),
		Workers:  v.GetInt("SYNC_WORKERS"),
		Retries:  v.GetInt("SYNC_RETRIES"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.Snapshot = SnapshotConfig{
		Enabled: v.GetBool("ENABLE_SNAPSHOT_CACHE"),
		TTL:     parseDuration(v.GetString("SNAPSHOT_CACHE_TTL"), 2*time.Minute),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("ADMIN_AUTH_TOKEN", "")

	v.SetDefault("SCHEDULE_SHEET_NAME", "Schedule")
	v.SetDefault("MEETINGS_SHEET_NAME", "Meetings")

	v.SetDefault("ROOM_JOIN_LEAD_MINUTES", 5)
	v.SetDefault("SCHEDULE_DATE", "")
	v.SetDefault("SCHEDULE_TIMEZONE", "Europe/Berlin")
	v.SetDefault("GROUP_JOIN_MIN_PARTICIPANTS", 5)
	v.SetDefault("GROUP_JOIN_DESCRIPTION",
		`Wenn ihr mögt, könnt ihr durch den rechts stehenden "Join"-Button einem zufällig ausgewählten Raum beitreten.`)
	v.SetDefault("HOST_KEY_INFO_URL", "")
	v.SetDefault("ICON_BASE_URL", "https://virtual-office-icons.s3.eu-central-1.amazonaws.com")
	v.SetDefault("EVENT_LAYOUT", "")
	v.SetDefault("ORGA_MEETING_ID", "")

	v.SetDefault("ENABLE_SLACK", false)
	v.SetDefault("SLACK_BASE_URL", "")
	v.SetDefault("SLACK_CHANNEL_PREFIX", "vsr")
	v.SetDefault("SLACK_MIN_CREATE_INTERVAL", "3s")

	v.SetDefault("ENABLE_CONFLUENCE", false)

	v.SetDefault("MEETING_DURATION", 480)

	v.SetDefault("SYNC_INTERVAL", "")
	v.SetDefault("SYNC_WORKERS", 1)
	v.SetDefault("SYNC_RETRIES", 2)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("ENABLE_SNAPSHOT_CACHE", false)
	v.SetDefault("SNAPSHOT_CACHE_TTL", "2m")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

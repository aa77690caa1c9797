package config

import (
	"errors"
	"fmt"
	"time"

	"bonchassist-backend/internal/attendance"
	"bonchassist-backend/internal/scrapers/sut"
	"bonchassist-backend/internal/timetable"
	"bonchassist-backend/lib/configutil"
	configlibsql "bonchassist-backend/lib/configutil/libsql"

	"dario.cat/mergo"
)

type CredentialsConfig struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

// PortalConfig overrides the portal endpoints and transport, empty fields
// keep their defaults.
type PortalConfig struct {
	CabinetURL        string   `json:"cabinet_url"`
	AuthURL           string   `json:"auth_url"`
	AttendanceURL     string   `json:"attendance_url"`
	ListingURL        string   `json:"listing_url"`
	TimetableURL      string   `json:"timetable_url"`
	GroupsURL         string   `json:"groups_url"`
	UserAgent         string   `json:"user_agent"`
	TimeoutSeconds    int      `json:"timeout_seconds"`
	RequestsPerSecond float64  `json:"requests_per_second"`
	CloudflareBypass  bool     `json:"cloudflare_bypass"`
	DumpDir           string   `json:"dump_dir"`
	BuildingSuffixes  []string `json:"building_suffixes"`
}

type AttendanceConfig struct {
	attendance.PolicyConfig
	// Enabled makes bonchbot run a clicker for the configured credentials
	// next to the clickers of its Telegram users.
	Enabled bool `json:"enabled"`
}

type BotConfig struct {
	Token string `json:"token"`
	// RefreshSchedule is the cron spec of the timetable snapshot refresh.
	RefreshSchedule string `json:"refresh_schedule"`
	Debug           bool   `json:"debug"`
}

type Config struct {
	// SemesterStart is the Monday of week 0, as YYYY-MM-DD.
	SemesterStart    string              `json:"semester_start"`
	ConcurrencyLimit int                 `json:"concurrency_limit"`
	Timezone         string              `json:"timezone"`
	Credentials      CredentialsConfig   `json:"credentials"`
	GroupName        string              `json:"group_name"`
	Snapshot         string              `json:"snapshot"`
	Portal           PortalConfig        `json:"portal"`
	Markers          sut.Markers         `json:"markers"`
	Attendance       AttendanceConfig    `json:"attendance"`
	Database         configlibsql.Struct `json:"database"`
	Bot              BotConfig           `json:"bot"`
	Verbose          bool                `json:"verbose"`
}

func Defaults() Config {
	return Config{
		ConcurrencyLimit: timetable.DefaultConcurrencyLimit,
		Timezone:         "Europe/Moscow",
		Snapshot:         "timetable.json",
		Markers:          sut.DefaultMarkers(),
		Database: configlibsql.Struct{
			File: "bonchassist.db",
		},
		Bot: BotConfig{
			RefreshSchedule: "0 5 * * *",
		},
	}
}

// Load reads path (and its .local override) and fills every unset field with
// its default. A missing file yields the defaults.
func Load(path string) (Config, error) {
	cfg, err := configutil.ReadConfig[Config](path)
	if err != nil && !errors.Is(err, configutil.ErrNotFound) {
		return Config{}, err
	}
	err = mergo.Merge(&cfg, Defaults())
	if err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.Timezone)
}

func (c Config) SemesterStartTime() (time.Time, error) {
	if c.SemesterStart == "" {
		return time.Time{}, fmt.Errorf("semester_start is not set")
	}
	start, err := timetable.ParseSemesterStart(c.SemesterStart)
	if err != nil {
		return time.Time{}, fmt.Errorf("semester_start: %w", err)
	}
	return start, nil
}

// SessionOptions builds the portal session options from the configuration.
func (c Config) SessionOptions() (sut.Options, error) {
	options := sut.DefaultOptions()

	start, err := c.SemesterStartTime()
	if err != nil {
		return sut.Options{}, err
	}
	options.SemesterStart = start

	override := func(dst *string, value string) {
		if value != "" {
			*dst = value
		}
	}
	override(&options.CabinetURL, c.Portal.CabinetURL)
	override(&options.AuthURL, c.Portal.AuthURL)
	override(&options.AttendanceURL, c.Portal.AttendanceURL)
	override(&options.ListingURL, c.Portal.ListingURL)
	override(&options.TimetableURL, c.Portal.TimetableURL)
	override(&options.GroupsURL, c.Portal.GroupsURL)
	override(&options.UserAgent, c.Portal.UserAgent)

	if c.Portal.TimeoutSeconds > 0 {
		options.Timeout = time.Duration(c.Portal.TimeoutSeconds) * time.Second
	}
	options.RequestsPerSecond = c.Portal.RequestsPerSecond
	options.CloudflareBypass = c.Portal.CloudflareBypass
	options.DumpDir = c.Portal.DumpDir
	if c.Portal.BuildingSuffixes != nil {
		options.BuildingSuffixes = c.Portal.BuildingSuffixes
	}
	if len(c.Markers.Relogin) > 0 || len(c.Markers.Denied) > 0 {
		options.Markers = c.Markers
	}
	return options, nil
}

func (c Config) AttendancePolicy() (attendance.Policy, error) {
	return c.Attendance.PolicyConfig.Policy()
}

package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the overall application configuration.
type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Database   DatabaseConfig   `yaml:"database"`
	Push       PushConfig       `yaml:"push"`
	WorkerPool WorkerPoolConfig `yaml:"worker_pool"`
	Auth       AuthConfig       `yaml:"auth"`
	Booking    BookingConfig    `yaml:"booking"`
}

// ServerConfig holds the server-related configuration.
type ServerConfig struct {
	Port            int     `yaml:"port"`
	RequestIPHeader string  `yaml:"request_ip_header"`
	RateLimitPerSec float64 `yaml:"rate_limit_per_sec"`
	RateLimitBurst  int     `yaml:"rate_limit_burst"`
	CacheTTLSeconds int     `yaml:"cache_ttl_seconds"`
}

// DatabaseConfig holds the database connection configuration.
type DatabaseConfig struct {
	DSN                    string `yaml:"dsn"`
	MaxOpenConns           int    `yaml:"max_open_conns"`
	MaxIdleConns           int    `yaml:"max_idle_conns"`
	ConnMaxLifetimeMinutes int    `yaml:"conn_max_lifetime_minutes"`
	// EnableExclusionConstraint applies the Postgres-only DDL that makes
	// overlapping approved reservations impossible at commit time.
	EnableExclusionConstraint bool `yaml:"enable_exclusion_constraint"`
}

// PushConfig holds the VAPID keys for web push notifications.
type PushConfig struct {
	PublicKey  string `yaml:"vapid_public_key"`
	PrivateKey string `yaml:"vapid_private_key"`
	Subject    string `yaml:"subject"`
	TTL        int    `yaml:"ttl"`
}

// WorkerPoolConfig holds the configuration for the notification worker pool.
type WorkerPoolConfig struct {
	Size int `yaml:"size"`
}

// AuthConfig holds the settings for validating bearer tokens. Tokens are
// issued elsewhere; this service only verifies them.
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"`
}

// BookingConfig holds the reservation policy knobs: the semester window that
// recurring reservations are pinned to, and the time windows gating the
// opening, attendance and closure actions.
type BookingConfig struct {
	Timezone      string `yaml:"timezone"`
	SemesterStart string `yaml:"semester_start"` // YYYY-MM-DD
	SemesterEnd   string `yaml:"semester_end"`   // YYYY-MM-DD

	OpeningWindowBeforeMinutes int `yaml:"opening_window_before_minutes"`
	OpeningWindowAfterMinutes  int `yaml:"opening_window_after_minutes"`
	AttendanceGraceMinutes     int `yaml:"attendance_grace_minutes"`
	ClosureGraceMinutes        int `yaml:"closure_grace_minutes"`

	// Parsed forms, ignored by the YAML parser.
	Location            *time.Location `yaml:"-"`
	SemesterStartDate   time.Time      `yaml:"-"`
	SemesterEndDate     time.Time      `yaml:"-"`
	OpeningWindowBefore time.Duration  `yaml:"-"`
	OpeningWindowAfter  time.Duration  `yaml:"-"`
	AttendanceGrace     time.Duration  `yaml:"-"`
	ClosureGrace        time.Duration  `yaml:"-"`
}

// Load reads the configuration from the given path.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var cfg Config
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(&cfg); err != nil {
		return nil, err
	}

	if cfg.Server.RateLimitPerSec <= 0 {
		cfg.Server.RateLimitPerSec = 10
	}
	if cfg.Server.RateLimitBurst <= 0 {
		cfg.Server.RateLimitBurst = 5
	}
	if cfg.Server.CacheTTLSeconds <= 0 {
		cfg.Server.CacheTTLSeconds = 300
	}

	if cfg.Push.TTL <= 0 {
		cfg.Push.TTL = 3600
	}

	if cfg.WorkerPool.Size <= 0 {
		cfg.WorkerPool.Size = 1
	}

	if err := cfg.Booking.finalize(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (b *BookingConfig) finalize() error {
	if b.Timezone == "" {
		b.Timezone = "UTC"
	}
	loc, err := time.LoadLocation(b.Timezone)
	if err != nil {
		return fmt.Errorf("invalid booking.timezone %q: %w", b.Timezone, err)
	}
	b.Location = loc

	if b.SemesterStart != "" {
		b.SemesterStartDate, err = time.ParseInLocation("2006-01-02", b.SemesterStart, loc)
		if err != nil {
			return fmt.Errorf("invalid booking.semester_start %q: %w", b.SemesterStart, err)
		}
	}
	if b.SemesterEnd != "" {
		b.SemesterEndDate, err = time.ParseInLocation("2006-01-02", b.SemesterEnd, loc)
		if err != nil {
			return fmt.Errorf("invalid booking.semester_end %q: %w", b.SemesterEnd, err)
		}
	}
	if !b.SemesterStartDate.IsZero() && !b.SemesterEndDate.IsZero() &&
		b.SemesterEndDate.Before(b.SemesterStartDate) {
		return fmt.Errorf("booking.semester_end %q precedes booking.semester_start %q", b.SemesterEnd, b.SemesterStart)
	}

	if b.OpeningWindowBeforeMinutes <= 0 {
		b.OpeningWindowBeforeMinutes = 20
	}
	if b.OpeningWindowAfterMinutes <= 0 {
		b.OpeningWindowAfterMinutes = 15
	}
	if b.AttendanceGraceMinutes <= 0 {
		b.AttendanceGraceMinutes = 30
	}
	if b.ClosureGraceMinutes <= 0 {
		b.ClosureGraceMinutes = 15
	}

	b.OpeningWindowBefore = time.Duration(b.OpeningWindowBeforeMinutes) * time.Minute
	b.OpeningWindowAfter = time.Duration(b.OpeningWindowAfterMinutes) * time.Minute
	b.AttendanceGrace = time.Duration(b.AttendanceGraceMinutes) * time.Minute
	b.ClosureGrace = time.Duration(b.ClosureGraceMinutes) * time.Minute

	return nil
}

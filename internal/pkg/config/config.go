package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/samirrijal/nextmetro/internal/core/domain"
	"github.com/samirrijal/nextmetro/internal/pkg/clock"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Schedule  ScheduleConfig  `mapstructure:"schedule"`
	Log       LogConfig       `mapstructure:"log"`
	NATS      NATSConfig      `mapstructure:"nats"`
	Valkey    ValkeyConfig    `mapstructure:"valkey"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
	QueryTap  QueryTapConfig  `mapstructure:"querytap"`
}

type ServerConfig struct {
	Port         int `mapstructure:"port"`
	ReadTimeout  int `mapstructure:"read_timeout"`
	WriteTimeout int `mapstructure:"write_timeout"`
	WSInterval   int `mapstructure:"ws_interval"` // seconds between WebSocket board pushes
}

// ScheduleConfig is the raw, string-typed form of the timetable.
type ScheduleConfig struct {
	HeadwayMin      int    `mapstructure:"headway_min"`
	LastWindowStart string `mapstructure:"last_window_start"`
	ServiceEnd      string `mapstructure:"service_end"`
	MockTime        string `mapstructure:"mock_time"`
	Timezone        string `mapstructure:"timezone"`
	Line            string `mapstructure:"line"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// NATSConfig and ValkeyConfig are optional; an empty address disables them.
type NATSConfig struct {
	URL string `mapstructure:"url"`
}

type ValkeyConfig struct {
	Addr string `mapstructure:"addr"`
}

type TelemetryConfig struct {
	ServiceName string `mapstructure:"service_name"`
	OTLPAddr    string `mapstructure:"otlp_addr"`
	Enabled     bool   `mapstructure:"enabled"`
}

// QueryTapConfig drives cmd/querytap.
type QueryTapConfig struct {
	Period time.Duration `mapstructure:"period"` // e.g. "1m"; how often counts are logged and reset
	Top    int           `mapstructure:"top"`
}

// legacyEnv maps config keys to the unprefixed variable names the service
// has always honoured.
var legacyEnv = map[string]string{
	"server.port":                "PORT",
	"schedule.headway_min":       "HEADWAY_MIN",
	"schedule.last_window_start": "LAST_WINDOW_START",
	"schedule.service_end":       "SERVICE_END",
	"schedule.mock_time":         "MOCK_TIME",
	"log.level":                  "LOG_LEVEL",
	"log.format":                 "LOG_FORMAT",
}

// Load reads configuration from file and environment variables.
func Load(service string) (*Config, error) {
	v := viper.New()

	// Defaults
	v.SetDefault("server.port", 3000)
	v.SetDefault("server.read_timeout", 10)
	v.SetDefault("server.write_timeout", 10)
	v.SetDefault("server.ws_interval", 30)
	v.SetDefault("schedule.headway_min", 3)
	v.SetDefault("schedule.last_window_start", "00:45")
	v.SetDefault("schedule.service_end", "01:15")
	v.SetDefault("schedule.mock_time", "")
	v.SetDefault("schedule.timezone", "Europe/Paris")
	v.SetDefault("schedule.line", "M7")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("nats.url", "")
	v.SetDefault("valkey.addr", "")
	v.SetDefault("telemetry.service_name", service)
	v.SetDefault("telemetry.otlp_addr", "localhost:4317")
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("querytap.period", "1m")
	v.SetDefault("querytap.top", 10)

	// Config file (optional)
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./configs")
	if err := v.ReadInConfig(); err != nil {
		if _, missing := err.(viper.ConfigFileNotFoundError); !missing {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	// Environment variables: NEXTMETRO_SCHEDULE_HEADWAY_MIN → schedule.headway_min
	v.SetEnvPrefix("NEXTMETRO")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range legacyEnv {
		if err := v.BindEnv(key, "NEXTMETRO_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return nil, fmt.Errorf("bind env %s: %w", env, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Validate checks that required configuration fields are present and sane.
func (c *Config) Validate() error {
	var errs []string

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("server.port must be 1-65535, got %d", c.Server.Port))
	}
	if c.Server.ReadTimeout <= 0 {
		errs = append(errs, "server.read_timeout must be positive")
	}
	if c.Server.WriteTimeout <= 0 {
		errs = append(errs, "server.write_timeout must be positive")
	}
	if c.Server.WSInterval <= 0 {
		errs = append(errs, "server.ws_interval must be positive")
	}
	if c.Schedule.HeadwayMin < 1 {
		errs = append(errs, fmt.Sprintf("schedule.headway_min must be at least 1, got %d", c.Schedule.HeadwayMin))
	}
	if _, err := domain.ParseTimeOfDay(c.Schedule.LastWindowStart); err != nil {
		errs = append(errs, "schedule.last_window_start: "+err.Error())
	}
	if _, err := domain.ParseTimeOfDay(c.Schedule.ServiceEnd); err != nil {
		errs = append(errs, "schedule.service_end: "+err.Error())
	}
	if c.Schedule.MockTime != "" {
		if _, err := domain.ParseTimeOfDay(c.Schedule.MockTime); err != nil {
			errs = append(errs, "schedule.mock_time: "+err.Error())
		}
	}
	if c.Schedule.Timezone == "" {
		errs = append(errs, "schedule.timezone is required")
	}
	if c.Schedule.Line == "" {
		errs = append(errs, "schedule.line is required")
	}
	if c.QueryTap.Period <= 0 {
		errs = append(errs, fmt.Sprintf("querytap.period must be positive, got %s", c.QueryTap.Period))
	}
	if c.QueryTap.Top < 1 {
		errs = append(errs, fmt.Sprintf("querytap.top must be at least 1, got %d", c.QueryTap.Top))
	}
	if c.Telemetry.Enabled && c.Telemetry.OTLPAddr == "" {
		errs = append(errs, "telemetry.otlp_addr is required when telemetry is enabled")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}

// ScheduleConfig converts the raw schedule section into the domain value the
// engine runs on. Call it on a validated Config.
func (c *Config) ScheduleConfig() (domain.ScheduleConfig, error) {
	lastWindow, err := domain.ParseTimeOfDay(c.Schedule.LastWindowStart)
	if err != nil {
		return domain.ScheduleConfig{}, fmt.Errorf("last window start: %w", err)
	}
	end, err := domain.ParseTimeOfDay(c.Schedule.ServiceEnd)
	if err != nil {
		return domain.ScheduleConfig{}, fmt.Errorf("service end: %w", err)
	}
	return domain.ScheduleConfig{
		HeadwayMinutes:  c.Schedule.HeadwayMin,
		LastWindowStart: lastWindow,
		ServiceEnd:      end,
		ServiceResume:   domain.DefaultServiceResume,
		Timezone:        c.Schedule.Timezone,
		Line:            c.Schedule.Line,
	}, nil
}

// Clock returns the fixed clock when a mock time is configured and the wall
// clock otherwise.
func (c *Config) Clock() (clock.Clock, error) {
	return clock.FromOverride(c.Schedule.MockTime)
}

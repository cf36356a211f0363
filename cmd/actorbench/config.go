package main

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the benchmark configuration. Every field can be set by flag,
// by ACTORBENCH_<KEY> env var or by a yaml config file.
type Config struct {
	Actors      int           `mapstructure:"actors"`
	Senders     int           `mapstructure:"senders"`
	Duration    time.Duration `mapstructure:"duration"`
	AskEvery    int           `mapstructure:"ask_every"`
	AskTimeout  time.Duration `mapstructure:"ask_timeout"`
	Heartbeat   time.Duration `mapstructure:"heartbeat"`
	WorkTime    time.Duration `mapstructure:"work_time"`
	MetricsAddr string        `mapstructure:"metrics_addr"`
	LogLevel    string        `mapstructure:"log_level"`
}

func Default() Config {
	return Config{
		Actors:     16,
		Senders:    8,
		Duration:   10 * time.Second,
		AskEvery:   100,
		AskTimeout: time.Second,
		Heartbeat:  100 * time.Millisecond,
		LogLevel:   "info",
	}
}

// SetDefaults registers default values with v.
func SetDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("actors", d.Actors)
	v.SetDefault("senders", d.Senders)
	v.SetDefault("duration", d.Duration)
	v.SetDefault("ask_every", d.AskEvery)
	v.SetDefault("ask_timeout", d.AskTimeout)
	v.SetDefault("heartbeat", d.Heartbeat)
	v.SetDefault("work_time", d.WorkTime)
	v.SetDefault("metrics_addr", d.MetricsAddr)
	v.SetDefault("log_level", d.LogLevel)
}

// Load reads the configuration from v and validates it.
func Load(v *viper.Viper) (Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.Actors <= 0 {
		errs = append(errs, fmt.Errorf("actors must be positive, got %d", c.Actors))
	}
	if c.Senders <= 0 {
		errs = append(errs, fmt.Errorf("senders must be positive, got %d", c.Senders))
	}
	if c.Duration <= 0 {
		errs = append(errs, fmt.Errorf("duration must be positive, got %s", c.Duration))
	}
	if c.AskEvery < 0 {
		errs = append(errs, fmt.Errorf("ask_every must not be negative, got %d", c.AskEvery))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

func parseLevel(s string) (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(strings.ToUpper(s))); err != nil {
		return 0, fmt.Errorf("invalid log_level %q", s)
	}
	return l, nil
}

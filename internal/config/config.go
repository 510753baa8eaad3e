// Package config defines the application configuration: logging, the typing
// session tunables, and the remote-control server. Values come from
// config.yaml and QTYPE_* environment variables via Viper; anything malformed
// or missing falls back to a built-in default so the engine never sees an
// invalid configuration.
package config

import (
	"time"

	"github.com/xkilldash9x/qtype/internal/engine"
)

// Config is the root of the application configuration.
type Config struct {
	Logger LoggerConfig `mapstructure:"logger" yaml:"logger"`
	Typing TypingConfig `mapstructure:"typing" yaml:"typing"`
	Server ServerConfig `mapstructure:"server" yaml:"server"`
}

// LoggerConfig controls the zap logger setup.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`

	// File rotation; logging to a file is off unless LogFile is set.
	LogFile    string `mapstructure:"log_file" yaml:"log_file"`
	MaxSize    int    `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge     int    `mapstructure:"max_age" yaml:"max_age"`
	Compress   bool   `mapstructure:"compress" yaml:"compress"`
}

// TypingConfig carries everything a typing session needs.
type TypingConfig struct {
	Profile string `mapstructure:"profile" yaml:"profile"`
	Layout  string `mapstructure:"layout" yaml:"layout"`

	MinDelayMs int `mapstructure:"min_delay_ms" yaml:"min_delay_ms"`
	MaxDelayMs int `mapstructure:"max_delay_ms" yaml:"max_delay_ms"`

	Typos                 bool `mapstructure:"typos" yaml:"typos"`
	TypoMin               int  `mapstructure:"typo_min" yaml:"typo_min"`
	TypoMax               int  `mapstructure:"typo_max" yaml:"typo_max"`
	DoubleKeys            bool `mapstructure:"double_keys" yaml:"double_keys"`
	DoubleMin             int  `mapstructure:"double_min" yaml:"double_min"`
	DoubleMax             int  `mapstructure:"double_max" yaml:"double_max"`
	AutoCorrection        bool `mapstructure:"auto_correction" yaml:"auto_correction"`
	CorrectionProbability int  `mapstructure:"correction_probability" yaml:"correction_probability"`

	StartDelay      time.Duration `mapstructure:"start_delay" yaml:"start_delay"`
	WatchdogTimeout time.Duration `mapstructure:"watchdog_timeout" yaml:"watchdog_timeout"`
}

// ServerConfig controls the remote-control WebSocket server.
type ServerConfig struct {
	ListenAddr   string        `mapstructure:"listen_addr" yaml:"listen_addr"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout" yaml:"write_timeout"`
}

// Default returns the built-in configuration, mirroring the reference
// typer's stock settings.
func Default() Config {
	return Config{
		Logger: LoggerConfig{
			Level:       "info",
			Format:      "console",
			ServiceName: "qtype",
			MaxSize:     10,
			MaxBackups:  3,
			MaxAge:      14,
		},
		Typing: TypingConfig{
			Profile:               "advanced",
			Layout:                string(engine.LayoutUSQwerty),
			MinDelayMs:            80,
			MaxDelayMs:            180,
			Typos:                 true,
			TypoMin:               300,
			TypoMax:               500,
			DoubleKeys:            true,
			DoubleMin:             250,
			DoubleMax:             400,
			AutoCorrection:        true,
			CorrectionProbability: 15,
			StartDelay:            5 * time.Second,
			WatchdogTimeout:       10 * time.Second,
		},
		Server: ServerConfig{
			ListenAddr:   "127.0.0.1:8787",
			ReadTimeout:  60 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
	}
}

// Normalize substitutes built-in defaults for out-of-range values.
func (t TypingConfig) Normalize() TypingConfig {
	def := Default().Typing
	if t.MinDelayMs <= 0 {
		t.MinDelayMs = def.MinDelayMs
	}
	if t.MaxDelayMs <= 0 {
		t.MaxDelayMs = def.MaxDelayMs
	}
	if t.MinDelayMs > t.MaxDelayMs {
		t.MinDelayMs, t.MaxDelayMs = t.MaxDelayMs, t.MinDelayMs
	}
	if t.TypoMin <= 0 || t.TypoMax < t.TypoMin {
		t.TypoMin, t.TypoMax = def.TypoMin, def.TypoMax
	}
	if t.DoubleMin <= 0 || t.DoubleMax < t.DoubleMin {
		t.DoubleMin, t.DoubleMax = def.DoubleMin, def.DoubleMax
	}
	if t.CorrectionProbability < 0 || t.CorrectionProbability > 100 {
		t.CorrectionProbability = def.CorrectionProbability
	}
	if t.WatchdogTimeout <= 0 {
		t.WatchdogTimeout = def.WatchdogTimeout
	}
	return t
}

// EngineSettings converts the configuration into the engine's value types.
// The profile's base speed factor scales the configured delay range, which
// is how the presets differ in overall pace.
func (t TypingConfig) EngineSettings() (engine.TimingProfile, engine.DelayRange, engine.ImperfectionSettings, engine.LayoutType) {
	t = t.Normalize()

	profile, _ := engine.ProfileByName(t.Profile)
	delays := engine.DelayRange{
		MinMs: int(float64(t.MinDelayMs) * profile.BaseSpeedFactor),
		MaxMs: int(float64(t.MaxDelayMs) * profile.BaseSpeedFactor),
	}.Normalize()

	imperfections := engine.ImperfectionSettings{
		EnableTypos:           t.Typos,
		TypoMin:               t.TypoMin,
		TypoMax:               t.TypoMax,
		EnableDoubleKeys:      t.DoubleKeys,
		DoubleMin:             t.DoubleMin,
		DoubleMax:             t.DoubleMax,
		EnableAutoCorrection:  t.AutoCorrection,
		CorrectionProbability: t.CorrectionProbability,
	}

	return profile, delays, imperfections, engine.LayoutType(t.Layout)
}

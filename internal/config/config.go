package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

type ReaperConfig struct {
	Interval time.Duration `mapstructure:"interval"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

type StatusReportConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// Features toggles the optional parts of the router. With both disabled the
// hub behaves like a plain drawing/video relay.
type Features struct {
	AudioSignaling bool `mapstructure:"audio_signaling"`
	RelayTrace     bool `mapstructure:"relay_trace"`
}

type RolesConfig struct {
	// Strict rejects role declarations other than User and Aid.
	Strict bool `mapstructure:"strict"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
}

type Config struct {
	Mode          string             `mapstructure:"mode"`
	Port          int                `mapstructure:"port"`
	ReadLimit     int64              `mapstructure:"read_limit"`
	PingPeriod    time.Duration      `mapstructure:"ping_period"`
	WriteTimeout  time.Duration      `mapstructure:"write_timeout"`
	SendBuffer    int                `mapstructure:"send_buffer"`
	Secret        string             `mapstructure:"secret"`
	ShutdownGrace time.Duration      `mapstructure:"shutdown_grace"`
	Reaper        ReaperConfig       `mapstructure:"reaper"`
	StatusReport  StatusReportConfig `mapstructure:"status_report"`
	Features      Features           `mapstructure:"features"`
	Roles         RolesConfig        `mapstructure:"roles"`
	Log           LogConfig          `mapstructure:"log"`
	ICEServers    []string           `mapstructure:"ice_servers"`

	v        *viper.Viper
	fromFile bool
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 8080)
	v.SetDefault("read_limit", 8<<20)
	v.SetDefault("ping_period", "54s")
	v.SetDefault("write_timeout", "5s")
	v.SetDefault("send_buffer", 64)
	v.SetDefault("secret", "assist-hub-dev-secret")
	v.SetDefault("shutdown_grace", "1s")
	v.SetDefault("reaper.interval", "30s")
	v.SetDefault("reaper.timeout", "60s")
	v.SetDefault("status_report.interval", "60s")
	v.SetDefault("features.audio_signaling", true)
	v.SetDefault("features.relay_trace", true)
	v.SetDefault("roles.strict", false)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.file", "logs/assist_hub.log")
	v.SetDefault("ice_servers", []string{"stun:stun.l.google.com:19302"})

	// PORT is the single override the deployment environment provides.
	_ = v.BindEnv("port", "PORT")
	return v
}

func Load() (*Config, error) {
	v := newViper()

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)
	v.SetConfigFile(fileName)

	fromFile := true
	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
		fromFile = false
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	cfg, err := decode(v)
	if err != nil {
		return nil, err
	}
	cfg.fromFile = fromFile
	fmt.Printf("🧩 Mode: %s | Port: %d | Log: %s\n", cfg.Mode, cfg.Port, cfg.Log.File)
	return cfg, nil
}

func decode(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	cfg.v = v
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d is out of range [1, 65535]", c.Port)
	}
	if c.Reaper.Interval <= 0 || c.Reaper.Timeout <= 0 {
		return errors.New("reaper.interval and reaper.timeout must be positive")
	}
	if c.SendBuffer <= 0 {
		return fmt.Errorf("send_buffer must be positive, got %d", c.SendBuffer)
	}
	if c.ShutdownGrace < 0 {
		return errors.New("shutdown_grace must not be negative")
	}
	return nil
}

// OnChange watches the loaded config file and calls fn with the re-decoded
// config on every write. Invalid edits are reported and ignored. It is a
// no-op when the config came from defaults only.
func (c *Config) OnChange(fn func(*Config), onErr func(error)) {
	if c.v == nil || !c.fromFile {
		return
	}
	c.v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		next, err := decode(c.v)
		if err != nil {
			if onErr != nil {
				onErr(err)
			}
			return
		}
		next.fromFile = true
		fn(next)
	})
	c.v.WatchConfig()
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all server configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Game     GameConfig     `mapstructure:"game"`
	Database DatabaseConfig `mapstructure:"database"`
}

// ServerConfig holds the listener settings.
type ServerConfig struct {
	HTTP            HTTPConfig    `mapstructure:"http"`
	GRPC            GRPCConfig    `mapstructure:"grpc"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// HTTPConfig configures the REST and websocket listener.
type HTTPConfig struct {
	Address      string        `mapstructure:"address"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	// Mode is the gin mode: debug, release or test.
	Mode string `mapstructure:"mode"`
	// AllowedOrigins is the CORS and websocket origin allowlist. Empty allows any.
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// GRPCConfig configures the health-check listener.
type GRPCConfig struct {
	Address              string `mapstructure:"address"`
	MaxConcurrentStreams int    `mapstructure:"max_concurrent_streams"`
}

// LoggingConfig selects the zap level and encoder.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// GameConfig tunes match setup.
type GameConfig struct {
	HandSize int `mapstructure:"hand_size"`
	// DrawPerTurn of zero turns end-of-turn draws off.
	DrawPerTurn int    `mapstructure:"draw_per_turn"`
	MaxMatches  int    `mapstructure:"max_matches"`
	ReplayDir   string `mapstructure:"replay_dir"`
	// CoinSeed makes coin flips reproducible when non-zero.
	CoinSeed uint64 `mapstructure:"coin_seed"`
}

// DatabaseConfig configures the optional card catalogue database.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	URL             string        `mapstructure:"url"`
	MaxConns        int32         `mapstructure:"max_conns"`
	MinConns        int32         `mapstructure:"min_conns"`
	MaxConnLifetime time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime time.Duration `mapstructure:"max_conn_idle_time"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.http.address", ":8080")
	v.SetDefault("server.http.read_timeout", 10*time.Second)
	v.SetDefault("server.http.write_timeout", 10*time.Second)
	v.SetDefault("server.http.mode", "release")
	v.SetDefault("server.http.allowed_origins", []string{})
	v.SetDefault("server.grpc.address", ":9090")
	v.SetDefault("server.grpc.max_concurrent_streams", 100)
	v.SetDefault("server.shutdown_timeout", 15*time.Second)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")

	v.SetDefault("game.hand_size", 7)
	v.SetDefault("game.draw_per_turn", 1)
	v.SetDefault("game.max_matches", 1000)
	v.SetDefault("game.replay_dir", "")
	v.SetDefault("game.coin_seed", 0)

	v.SetDefault("database.enabled", false)
	v.SetDefault("database.url", "")
	v.SetDefault("database.max_conns", 10)
	v.SetDefault("database.min_conns", 1)
	v.SetDefault("database.max_conn_lifetime", time.Hour)
	v.SetDefault("database.max_conn_idle_time", 30*time.Minute)
}

// Load reads configuration from path. A missing file falls back to defaults;
// HCTCG_* environment variables override both (HCTCG_GAME_HAND_SIZE, ...).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("HCTCG")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			var notFound viper.ConfigFileNotFoundError
			// SetConfigFile reports a missing file as a plain fs error.
			if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
				return nil, fmt.Errorf("failed to read config %s: %w", path, err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.Server.HTTP.Address == "" {
		return errors.New("server.http.address is required")
	}
	if c.Game.HandSize < 0 || c.Game.DrawPerTurn < 0 || c.Game.MaxMatches < 0 {
		return errors.New("game settings must not be negative")
	}
	if c.Database.Enabled && c.Database.URL == "" {
		return errors.New("database.url is required when the database is enabled")
	}
	switch c.Server.HTTP.Mode {
	case "debug", "release", "test":
	default:
		return fmt.Errorf("unknown server.http.mode %q", c.Server.HTTP.Mode)
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown logging.level %q", c.Logging.Level)
	}
	return nil
}

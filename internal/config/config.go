package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
	"github.com/rocketscienceinc/inarow-server/internal/entity"
)

var ErrInvalidConfig = errors.New("invalid config")

// Config - server settings. Games is the number of games to run, 0 runs until stopped;
// a zero in the file reads as the default, so set GAMES=0 instead.
type Config struct {
	LogLevel  string `yaml:"log-level" env:"LOG_LEVEL" env-default:"info"`
	HTTPPort  string `yaml:"http-port" env:"HTTP_PORT" env-default:"9090"`
	Password  string `yaml:"password" env:"TTT_PASSWORD"`
	TimeoutMs int    `yaml:"timeout-ms" env:"TIMEOUT_MS" env-default:"300"`
	Games     int    `yaml:"games" env:"GAMES" env-default:"1"`
	Game      Game   `yaml:"game"`
	Redis     Redis  `yaml:"redis"`
}

type Game struct {
	Rows      int `yaml:"rows" env:"GAME_ROWS" env-default:"20"`
	Cols      int `yaml:"cols" env:"GAME_COLS" env-default:"20"`
	WinLength int `yaml:"win-length" env:"GAME_WIN_LENGTH" env-default:"5"`
	MaxMoves  int `yaml:"max-moves" env:"GAME_MAX_MOVES" env-default:"0"`
}

type Redis struct {
	Enabled    bool          `yaml:"enabled" env:"REDIS_ENABLED" env-default:"false"`
	Host       string        `yaml:"host" env:"REDIS_HOST" env-default:"localhost"`
	Port       string        `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password   string        `yaml:"password" env:"REDIS_PASSWORD"`
	DB         int           `yaml:"db" env:"REDIS_DB" env-default:"0"`
	SessionTTL time.Duration `yaml:"session-ttl" env:"REDIS_SESSION_TTL" env-default:"1h"`
}

// Load - reads the config file when it exists, environment variables override it.
func Load(path string) (*Config, error) {
	config := &Config{}

	var err error
	if _, statErr := os.Stat(path); statErr == nil {
		err = cleanenv.ReadConfig(path, config)
	} else {
		err = cleanenv.ReadEnv(config)
	}

	if err != nil {
		return nil, fmt.Errorf("unable to load config: %w", err)
	}

	if err = config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// MustLoad - load all configurations in config.yml file.
func MustLoad(path string) *Config {
	config, err := Load(path)
	if err != nil {
		panic(err)
	}

	return config
}

func (that *Config) Validate() error {
	switch that.LogLevel {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("%w: unknown log level %q", ErrInvalidConfig, that.LogLevel)
	}

	if that.TimeoutMs <= 0 {
		return fmt.Errorf("%w: timeout must be positive, got %dms", ErrInvalidConfig, that.TimeoutMs)
	}

	if that.Games < 0 {
		return fmt.Errorf("%w: games must be >= 0, got %d", ErrInvalidConfig, that.Games)
	}

	if err := that.Options().Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}

	return nil
}

// Options - board configuration of every game the server runs.
func (that *Config) Options() entity.Options {
	return entity.Options{
		Rows:      that.Game.Rows,
		Cols:      that.Game.Cols,
		WinLength: that.Game.WinLength,
		MaxMoves:  that.Game.MaxMoves,
	}
}

// Timeout - reply budget for every client round trip.
func (that *Config) Timeout() time.Duration {
	return time.Duration(that.TimeoutMs) * time.Millisecond
}

func (that *Redis) GetRedisAddr() string {
	return fmt.Sprintf("%s:%s", that.Host, that.Port)
}

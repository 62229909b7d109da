package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"

	"github.com/enetx/upnpfsm/avtransport"
)

var (
	ErrLoadingEnvFile = errors.New("failed to load .env file")
	ErrParsingConfig  = errors.New("failed to parse config")
)

// Config is read from the environment, optionally seeded from .env files.
type Config struct {
	InstanceID  uint32   `env:"AVT_INSTANCE_ID" envDefault:"0"`
	Scenario    string   `env:"AVT_SCENARIO,required"`
	LogLevel    string   `env:"AVT_LOG_LEVEL"    envDefault:"info"`
	LogJSON     bool     `env:"AVT_LOG_JSON"     envDefault:"false"`
	MetricsAddr string   `env:"AVT_METRICS_ADDR"`
	RecordMedia []string `env:"AVT_RECORD_MEDIA" envSeparator:","`
	Tracks      uint32   `env:"AVT_TRACKS"       envDefault:"1"`
	DOT         bool     `env:"AVT_DOT"          envDefault:"false"`
}

// loadConfig loads the given .env files, or ./.env when it exists, and
// parses the environment into a Config.
func loadConfig(files ...string) (Config, error) {
	if len(files) == 0 {
		// The default .env file is optional.
		_ = godotenv.Load()
	} else if err := godotenv.Load(files...); err != nil {
		return Config{}, errors.Join(ErrLoadingEnvFile, err)
	}

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, errors.Join(ErrParsingConfig, err)
	}

	return cfg, nil
}

func (c Config) transportOptions(logger *slog.Logger) []avtransport.Option {
	opts := []avtransport.Option{
		avtransport.WithLogger(logger),
		avtransport.WithTracksPerURI(c.Tracks),
	}

	if len(c.RecordMedia) > 0 {
		media := make([]avtransport.StorageMedium, 0, len(c.RecordMedia))
		for _, m := range c.RecordMedia {
			media = append(media, avtransport.StorageMedium(m))
		}

		opts = append(opts, avtransport.WithRecordMedia(media...))
	}

	return opts
}

func (c Config) logger() (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return nil, fmt.Errorf("%w: AVT_LOG_LEVEL: %w", ErrParsingConfig, err)
	}

	opts := &slog.HandlerOptions{Level: level}

	if c.LogJSON {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts)), nil
	}

	return slog.New(slog.NewTextHandler(os.Stderr, opts)), nil
}

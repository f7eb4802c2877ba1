package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"secretsanta/internal/storage"

	"github.com/joho/godotenv"
)

const (
	defaultPort          = 8080
	defaultSQLiteDSN     = "secretsanta.db"
	defaultDrawTTL       = storage.DefaultTTL
	defaultSweepInterval = 10 * time.Minute
)

// Config holds everything main needs to start the service.
type Config struct {
	Port          int
	StoreDriver   string
	StoreDSN      string
	DrawTTL       time.Duration
	SweepInterval time.Duration
	BaseURL       string
	LogFile       string
	Verbose       bool
}

// Addr is the listen address for Port.
func (c Config) Addr() string {
	return fmt.Sprintf(":%d", c.Port)
}

var loadDotEnvOnce sync.Once

// LoadDotEnv reads .env once if it exists.
func LoadDotEnv() error {
	var err error
	loadDotEnvOnce.Do(func() {
		if _, statErr := os.Stat(".env"); statErr != nil {
			return
		}
		if loadErr := godotenv.Load(); loadErr != nil {
			err = fmt.Errorf("dotenv: failed to load .env: %w", loadErr)
		}
	})
	return err
}

// Parse reads flags from args and falls back to environment variables for
// anything not given on the command line.
func Parse(args []string) (Config, error) {
	var cfg Config

	fs := flag.NewFlagSet("secretsanta", flag.ContinueOnError)
	fs.IntVar(&cfg.Port, "p", 0, "Server port")
	fs.StringVar(&cfg.StoreDriver, "store", "", "Draw store (memory, sqlite or postgres)")
	fs.StringVar(&cfg.StoreDSN, "dsn", "", "Store DSN or sqlite file")
	fs.DurationVar(&cfg.DrawTTL, "ttl", 0, "How long a draw is kept")
	fs.DurationVar(&cfg.SweepInterval, "sweep", 0, "How often expired draws are removed")
	fs.StringVar(&cfg.BaseURL, "base-url", "", "Public base URL for share links")
	fs.StringVar(&cfg.LogFile, "log-file", "", "Also write logs to this file")
	fs.BoolVar(&cfg.Verbose, "v", true, "Log to stdout")

	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	set := make(map[string]bool)
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })

	if cfg.Port == 0 {
		if portStr := os.Getenv("PORT"); portStr != "" {
			port, err := strconv.Atoi(portStr)
			if err != nil || port <= 0 {
				return Config{}, errors.New("invalid PORT env variable")
			}
			cfg.Port = port
		} else {
			cfg.Port = defaultPort
		}
	}

	if cfg.StoreDriver == "" {
		cfg.StoreDriver = os.Getenv("STORE_DRIVER")
	}
	cfg.StoreDriver = strings.ToLower(strings.TrimSpace(cfg.StoreDriver))
	if cfg.StoreDriver == "" {
		cfg.StoreDriver = storage.DriverMemory
	}

	if cfg.StoreDSN == "" {
		cfg.StoreDSN = os.Getenv("STORE_DSN")
	}
	switch cfg.StoreDriver {
	case storage.DriverMemory:
	case storage.DriverSQLite:
		if cfg.StoreDSN == "" {
			cfg.StoreDSN = defaultSQLiteDSN
		}
	case storage.DriverPostgres:
		if cfg.StoreDSN == "" {
			return Config{}, errors.New("postgres DSN required (use -dsn or STORE_DSN env)")
		}
	default:
		return Config{}, fmt.Errorf("%w: %q", storage.ErrUnknownDriver, cfg.StoreDriver)
	}

	var err error
	if cfg.DrawTTL, err = durationOrEnv(cfg.DrawTTL, "DRAW_TTL", defaultDrawTTL); err != nil {
		return Config{}, err
	}
	if cfg.SweepInterval, err = durationOrEnv(cfg.SweepInterval, "SWEEP_INTERVAL", defaultSweepInterval); err != nil {
		return Config{}, err
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = os.Getenv("PUBLIC_BASE_URL")
	}
	if cfg.LogFile == "" {
		cfg.LogFile = os.Getenv("LOG_FILE")
	}
	if !set["v"] {
		if v := os.Getenv("LOG_VERBOSE"); v != "" {
			verbose, err := strconv.ParseBool(v)
			if err != nil {
				return Config{}, errors.New("invalid LOG_VERBOSE env variable")
			}
			cfg.Verbose = verbose
		}
	}

	return cfg, nil
}

func durationOrEnv(value time.Duration, key string, fallback time.Duration) (time.Duration, error) {
	if value < 0 {
		return 0, fmt.Errorf("%s must not be negative", key)
	}
	if value > 0 {
		return value, nil
	}
	raw := os.Getenv(key)
	if raw == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s env variable", key)
	}
	return d, nil
}

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"

	"zk-identity/pkg/logger"
	"zk-identity/pkg/utilities"
)

const (
	EnvKeyDir        = "ZKID_KEY_DIR"
	EnvLogLevel      = "ZKID_LOG_LEVEL"
	EnvReferenceYear = "ZKID_REFERENCE_YEAR"
	EnvConcurrency   = "ZKID_CONCURRENCY"

	DefaultKeyDir        = "keys"
	DefaultReferenceYear = 2024
)

type ConfigJson struct {
	KeyDir        string                  `json:"key_dir"`
	ReferenceYear int                     `json:"reference_year"`
	Concurrency   int                     `json:"concurrency"`
	Logger        logger.LoggerConfigJson `json:"logger"`
}

type Config struct {
	KeyDir string
	// ReferenceYear is only used when generating keys; loaded keys carry
	// their own.
	ReferenceYear uint16
	Concurrency   int
	Logger        logger.LoggerConfig
}

func (c ConfigJson) ConvertToDomain() Config {
	cfg := Config{
		KeyDir:        c.KeyDir,
		ReferenceYear: DefaultReferenceYear,
		Concurrency:   c.Concurrency,
		Logger:        c.Logger.ConvertToDomain(),
	}
	if cfg.KeyDir == "" {
		cfg.KeyDir = DefaultKeyDir
	}
	if c.ReferenceYear > 0 && c.ReferenceYear < 1<<16 {
		cfg.ReferenceYear = uint16(c.ReferenceYear)
	}
	return cfg
}

// Load reads the JSON config file, if any, then applies environment overrides.
// Variables from a .env file in the working directory, or from envFiles when
// given, are loaded first without replacing variables already set.
func Load(file string, envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env: %w", err)
	}

	var cfg Config
	var err error
	if file == "" {
		cfg = ConfigJson{}.ConvertToDomain()
	} else if cfg, err = utilities.ReadConfigOrDefault[ConfigJson, Config](file); err != nil {
		return Config{}, err
	}

	cfg.KeyDir = GetenvDefault(EnvKeyDir, cfg.KeyDir)
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logger = logger.LoggerConfigJson{LogLevel: v}.ConvertToDomain()
	}
	if v := os.Getenv(EnvReferenceYear); v != "" {
		year, err := strconv.ParseUint(v, 10, 16)
		if err != nil || year == 0 {
			return Config{}, fmt.Errorf("%s=%q: not a year", EnvReferenceYear, v)
		}
		cfg.ReferenceYear = uint16(year)
	}
	if v := os.Getenv(EnvConcurrency); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("%s=%q: not a positive integer", EnvConcurrency, v)
		}
		cfg.Concurrency = n
	}
	return cfg, nil
}

// GetenvDefault returns the environment variable value if set, or def.
func GetenvDefault(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

// Package config loads the Grapher runtime configuration from a YAML, TOML or
// JSON file, a .env file and GRAPHER_* environment variables, in that order.
package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/user"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/aretw0/grapher/pkg/adapters/process"
	"github.com/aretw0/grapher/pkg/domain"
	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Lock backends.
const (
	LockBackendFile  = "file"
	LockBackendRedis = "redis"
)

// Redis configures the Redis lock backend.
type Redis struct {
	Addr     string `yaml:"addr" toml:"addr" json:"addr"`
	Password string `yaml:"password" toml:"password" json:"password"`
	DB       int    `yaml:"db" toml:"db" json:"db"`
	Prefix   string `yaml:"prefix" toml:"prefix" json:"prefix"`
}

// Config is the resolved runtime configuration. It is built once at startup.
type Config struct {
	User         string                         `yaml:"user" toml:"user" json:"user"`
	Station      string                         `yaml:"station" toml:"station" json:"station"`
	RootPath     string                         `yaml:"root_path" toml:"root_path" json:"root_path"`
	MarkerDir    string                         `yaml:"marker_dir" toml:"marker_dir" json:"marker_dir"`
	WorkDir      string                         `yaml:"work_dir" toml:"work_dir" json:"work_dir"`
	LogLevel     string                         `yaml:"log_level" toml:"log_level" json:"log_level"`
	LockBackend  string                         `yaml:"lock_backend" toml:"lock_backend" json:"lock_backend"`
	Redis        Redis                          `yaml:"redis" toml:"redis" json:"redis"`
	Interpreters map[string]process.Interpreter `yaml:"interpreters" toml:"interpreters" json:"interpreters"`
}

// Default returns a Config populated with the current user, the host name
// and repository defaults.
func Default() Config {
	cfg := Config{
		RootPath:     ".",
		MarkerDir:    filepath.Join(".grapher", "markers"),
		WorkDir:      filepath.Join(".grapher", "work"),
		LogLevel:     "info",
		LockBackend:  LockBackendFile,
		Redis:        Redis{Addr: "localhost:6379", Prefix: "grapher:lock:"},
		Interpreters: process.DefaultInterpreters(),
	}
	if u, err := user.Current(); err == nil {
		cfg.User = u.Username
	}
	if host, err := os.Hostname(); err == nil {
		cfg.Station = host
	}
	return cfg
}

// Load reads path on top of Default and applies GRAPHER_* overrides.
// An empty path or a missing file yields the defaults plus overrides.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		if err := decodeFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}
	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// LoadEnvFile exports the variables of a .env file into the process
// environment. Variables already set win. A missing file is not an error.
func LoadEnvFile(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}

func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config: %w", err)
	}

	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, cfg)
	case ".json":
		err = json.Unmarshal(data, cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, cfg)
	default:
		return fmt.Errorf("unsupported config format %q", ext)
	}
	if err != nil {
		return fmt.Errorf("failed to parse %s: %w", filepath.Base(path), err)
	}
	return nil
}

// applyEnv overrides scalar fields from GRAPHER_* variables.
func applyEnv(cfg *Config) error {
	strs := map[string]*string{
		"GRAPHER_USER":           &cfg.User,
		"GRAPHER_STATION":        &cfg.Station,
		"GRAPHER_ROOT_PATH":      &cfg.RootPath,
		"GRAPHER_MARKER_DIR":     &cfg.MarkerDir,
		"GRAPHER_WORK_DIR":       &cfg.WorkDir,
		"GRAPHER_LOG_LEVEL":      &cfg.LogLevel,
		"GRAPHER_LOCK_BACKEND":   &cfg.LockBackend,
		"GRAPHER_REDIS_ADDR":     &cfg.Redis.Addr,
		"GRAPHER_REDIS_PASSWORD": &cfg.Redis.Password,
		"GRAPHER_REDIS_PREFIX":   &cfg.Redis.Prefix,
	}
	for key, dst := range strs {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}
	if v, ok := os.LookupEnv("GRAPHER_REDIS_DB"); ok {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("GRAPHER_REDIS_DB: %w", err)
		}
		cfg.Redis.DB = db
	}
	return nil
}

// Validate reports configuration that cannot work.
func (c Config) Validate() error {
	var errs []error
	if c.User == "" {
		errs = append(errs, errors.New("user is required"))
	}
	if c.Station == "" {
		errs = append(errs, errors.New("station is required"))
	}
	switch c.LockBackend {
	case LockBackendFile:
	case LockBackendRedis:
		if c.Redis.Addr == "" {
			errs = append(errs, errors.New("redis.addr is required for the redis lock backend"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown lock_backend %q", c.LockBackend))
	}
	for dialect, in := range c.Interpreters {
		if in.Command == "" {
			errs = append(errs, fmt.Errorf("interpreter %q has no command", dialect))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	return nil
}

// Identity returns the caller identity used by lockers and markers.
func (c Config) Identity() domain.Identity {
	return domain.Identity{User: c.User, Station: c.Station}
}

package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/go-containerregistry/pkg/name"
	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"
)

// Defaults mirror the environment-driven defaults of the original deployment.
const (
	DefaultAddr        = ":8000"
	DefaultWorkspace   = "./workspace"
	DefaultLogsDir     = "./logs"
	DefaultDockerBin   = "docker"
	DefaultRasaImage   = "rasa/rasa:3.6.20-full"
	DefaultSettleMS    = 2000
	DefaultChatTimeout = 30
	DefaultReadyTimeout = 60
)

// ArchiveConfig enables uploading finished training logs to S3-compatible storage.
type ArchiveConfig struct {
	Bucket    string `json:"bucket" yaml:"bucket" toml:"bucket"`
	Region    string `json:"region" yaml:"region" toml:"region"`
	Endpoint  string `json:"endpoint" yaml:"endpoint" toml:"endpoint"`
	Prefix    string `json:"prefix" yaml:"prefix" toml:"prefix"`
	PathStyle bool   `json:"path_style" yaml:"path_style" toml:"path_style"`
}

// Config holds runtime parameters for the service.
type Config struct {
	Addr      string `json:"addr" yaml:"addr" toml:"addr"`
	Workspace string `json:"workspace" yaml:"workspace" toml:"workspace"`
	LogsDir   string `json:"logs_dir" yaml:"logs_dir" toml:"logs_dir"`

	UseDocker    bool   `json:"use_docker" yaml:"use_docker" toml:"use_docker"`
	ContainerAPI bool   `json:"container_api" yaml:"container_api" toml:"container_api"`
	DockerBin    string `json:"docker_bin" yaml:"docker_bin" toml:"docker_bin"`
	RasaImage    string `json:"rasa_image" yaml:"rasa_image" toml:"rasa_image"`
	RasaBin      string `json:"rasa_bin" yaml:"rasa_bin" toml:"rasa_bin"`

	SettleDelayMS       int  `json:"settle_delay_ms" yaml:"settle_delay_ms" toml:"settle_delay_ms"`
	ReadyProbe          bool `json:"ready_probe" yaml:"ready_probe" toml:"ready_probe"`
	ReadyTimeoutSeconds int  `json:"ready_timeout_seconds" yaml:"ready_timeout_seconds" toml:"ready_timeout_seconds"`
	ChatTimeoutSeconds  int  `json:"chat_timeout_seconds" yaml:"chat_timeout_seconds" toml:"chat_timeout_seconds"`

	CORSOrigins  []string `json:"cors_origins" yaml:"cors_origins" toml:"cors_origins"`
	MaxBodyBytes int64    `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	LogLevel     string   `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat    string   `json:"log_format" yaml:"log_format" toml:"log_format"`

	Archive ArchiveConfig `json:"archive" yaml:"archive" toml:"archive"`
}

// Default returns the configuration used when nothing else is specified.
func Default() Config {
	return Config{
		Addr:                DefaultAddr,
		Workspace:           DefaultWorkspace,
		LogsDir:             DefaultLogsDir,
		UseDocker:           true,
		DockerBin:           DefaultDockerBin,
		RasaImage:           DefaultRasaImage,
		SettleDelayMS:       DefaultSettleMS,
		ReadyTimeoutSeconds: DefaultReadyTimeout,
		ChatTimeoutSeconds:  DefaultChatTimeout,
		CORSOrigins:         []string{"*"},
		LogLevel:            "info",
		LogFormat:           "json",
	}
}

// Load reads a configuration file based on its extension on top of Default().
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}

// ApplyEnv overlays recognized environment variables onto cfg. getenv is
// usually os.Getenv; tests pass a map lookup.
func ApplyEnv(cfg *Config, getenv func(string) string) {
	str := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	boolean := func(key string, dst *bool) {
		if v := getenv(key); v != "" {
			*dst = ParseBool(v)
		}
	}
	integer := func(key string, dst *int) {
		if v := getenv(key); v != "" {
			if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
				*dst = n
			}
		}
	}

	// Names shared with the original deployment scripts.
	boolean("USE_DOCKER", &cfg.UseDocker)
	str("DOCKER_BIN", &cfg.DockerBin)
	str("RASA_IMAGE", &cfg.RasaImage)
	str("RASA_BIN", &cfg.RasaBin)
	str("WORKSPACE", &cfg.Workspace)
	str("LOGS_DIR", &cfg.LogsDir)

	str("RASAD_ADDR", &cfg.Addr)
	boolean("RASAD_CONTAINER_API", &cfg.ContainerAPI)
	integer("RASAD_SETTLE_DELAY_MS", &cfg.SettleDelayMS)
	boolean("RASAD_READY_PROBE", &cfg.ReadyProbe)
	integer("RASAD_READY_TIMEOUT_SECONDS", &cfg.ReadyTimeoutSeconds)
	integer("RASAD_CHAT_TIMEOUT_SECONDS", &cfg.ChatTimeoutSeconds)
	str("RASAD_LOG_LEVEL", &cfg.LogLevel)
	str("RASAD_LOG_FORMAT", &cfg.LogFormat)
	if v := getenv("RASAD_CORS_ORIGINS"); v != "" {
		cfg.CORSOrigins = SplitCSV(v)
	}
	str("RASAD_ARCHIVE_BUCKET", &cfg.Archive.Bucket)
	str("RASAD_ARCHIVE_REGION", &cfg.Archive.Region)
	str("RASAD_ARCHIVE_ENDPOINT", &cfg.Archive.Endpoint)
	str("RASAD_ARCHIVE_PREFIX", &cfg.Archive.Prefix)
	boolean("RASAD_ARCHIVE_PATH_STYLE", &cfg.Archive.PathStyle)
}

// ParseBool accepts 1/true/yes/on (any case) as true; everything else is false.
func ParseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// SplitCSV splits a comma-separated list, dropping empty items.
func SplitCSV(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks values that would otherwise fail late, at the first train
// or start request.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Workspace) == "" {
		return fmt.Errorf("workspace must not be empty")
	}
	if strings.TrimSpace(c.LogsDir) == "" {
		return fmt.Errorf("logs dir must not be empty")
	}
	if c.SettleDelayMS < 0 {
		return fmt.Errorf("settle_delay_ms must be >= 0, got %d", c.SettleDelayMS)
	}
	if c.UseDocker {
		if !c.ContainerAPI && strings.TrimSpace(c.DockerBin) == "" {
			return fmt.Errorf("docker_bin must not be empty when use_docker is set")
		}
		if _, err := name.ParseReference(c.RasaImage); err != nil {
			return fmt.Errorf("invalid rasa_image %q: %w", c.RasaImage, err)
		}
	}
	switch strings.ToLower(c.LogFormat) {
	case "", "json", "console":
	default:
		return fmt.Errorf("unsupported log_format %q (json|console)", c.LogFormat)
	}
	return nil
}

package manager

import (
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"rasad/internal/common/fsutil"
)

// Defaults applied when corresponding ManagerConfig fields are unset.
const (
	defaultDockerBin    = "docker"
	defaultImage        = "rasa/rasa:3.6.20-full"
	defaultSettleDelay  = 2 * time.Second
	defaultReadyTimeout = 60 * time.Second
	defaultChatTimeout  = 30 * time.Second
	defaultPortStart    = 5005
	defaultPortEnd      = 5999

	// containerWorkdir is where the project directory is mounted inside containers.
	containerWorkdir = "/app"
	// containerPort is the bot port inside the container.
	containerPort = 5005
)

// ManagerConfig encapsulates all tunables for Manager construction.
type ManagerConfig struct {
	Workspace string
	LogsDir   string

	// UseDocker selects a container backend; ContainerAPI switches it from the
	// docker CLI to the Engine API.
	UseDocker    bool
	ContainerAPI bool
	DockerBin    string
	Image        string
	RasaBin      string

	// SettleDelay is the wait after a launch before the endpoint is reported.
	// Zero means the default; negative disables the wait.
	SettleDelay  time.Duration
	ReadyProbe   bool
	ReadyTimeout time.Duration
	ChatTimeout  time.Duration

	PortStart int
	PortEnd   int

	// Backend overrides the backend selected from UseDocker/ContainerAPI.
	Backend   Backend
	Archiver  LogArchiver
	Publisher EventPublisher
	Logger    *zerolog.Logger
	// HTTPClient is used for chat and readiness probes. Requests carry their
	// own deadlines, so the client itself has no timeout.
	HTTPClient *http.Client
}

// NewWithConfig constructs a Manager from ManagerConfig, creating the
// workspace and logs directories when missing.
func NewWithConfig(cfg ManagerConfig) (*Manager, error) {
	if cfg.Workspace == "" {
		return nil, fmt.Errorf("workspace is required")
	}
	if cfg.LogsDir == "" {
		return nil, fmt.Errorf("logs dir is required")
	}
	ws, err := fsutil.AbsDir(cfg.Workspace)
	if err != nil {
		return nil, fmt.Errorf("workspace: %w", err)
	}
	logs, err := fsutil.AbsDir(cfg.LogsDir)
	if err != nil {
		return nil, fmt.Errorf("logs dir: %w", err)
	}
	for _, d := range []string{ws, logs} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			return nil, fmt.Errorf("mkdir %s: %w", d, err)
		}
	}
	cfg.Workspace, cfg.LogsDir = ws, logs

	// Apply defaults if unset
	if cfg.DockerBin == "" {
		cfg.DockerBin = defaultDockerBin
	}
	if cfg.Image == "" {
		cfg.Image = defaultImage
	}
	if cfg.SettleDelay == 0 {
		cfg.SettleDelay = defaultSettleDelay
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = defaultReadyTimeout
	}
	if cfg.ChatTimeout <= 0 {
		cfg.ChatTimeout = defaultChatTimeout
	}
	if cfg.PortStart <= 0 {
		cfg.PortStart = defaultPortStart
	}
	if cfg.PortEnd <= 0 {
		cfg.PortEnd = defaultPortEnd
	}
	if cfg.PortEnd < cfg.PortStart {
		return nil, fmt.Errorf("invalid port range %d-%d", cfg.PortStart, cfg.PortEnd)
	}
	if cfg.Publisher == nil {
		cfg.Publisher = noopPublisher{}
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: 0}
	}
	logger := zerolog.Nop()
	if cfg.Logger != nil {
		logger = *cfg.Logger
	}
	backend := cfg.Backend
	if backend == nil {
		backend, err = NewBackend(cfg)
		if err != nil {
			return nil, err
		}
	}
	return newManager(cfg, backend, logger), nil
}

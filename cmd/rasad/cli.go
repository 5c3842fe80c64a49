package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"rasad/internal/archive"
	"rasad/internal/config"
	"rasad/internal/manager"
)

// app carries state shared by subcommands once flags are parsed.
type app struct {
	getenv     func(string) string
	configPath string
	cfg        config.Config
	log        zerolog.Logger
}

// newRootCmd builds the command tree. getenv is os.Getenv outside tests.
func newRootCmd(getenv func(string) string) *cobra.Command {
	a := &app{getenv: getenv}
	d := config.Default()

	root := &cobra.Command{
		Use:           "rasad",
		Short:         "Manage, train and serve conversational bot projects",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := resolveConfig(cmd, a.configPath, getenv)
			if err != nil {
				return err
			}
			logger, err := newLogger(cfg.LogLevel, cfg.LogFormat, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			a.cfg, a.log = cfg, logger
			return nil
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&a.configPath, "config", "c", "", "Config file (.yaml, .yml, .json, .toml)")
	pf.String("workspace", d.Workspace, "Workspace root holding one directory per project (env WORKSPACE)")
	pf.String("logs-dir", d.LogsDir, "Directory for training and serving logs (env LOGS_DIR)")
	pf.Bool("use-docker", d.UseDocker, "Run the toolchain in containers (env USE_DOCKER)")
	pf.Bool("container-api", d.ContainerAPI, "Use the Engine API instead of the docker CLI (env RASAD_CONTAINER_API)")
	pf.String("docker-bin", d.DockerBin, "Container runtime binary (env DOCKER_BIN)")
	pf.String("rasa-image", d.RasaImage, "Image used for train and serve (env RASA_IMAGE)")
	pf.String("rasa-bin", d.RasaBin, "Local toolchain override path (env RASA_BIN)")
	pf.String("log-level", d.LogLevel, "Log level: debug|info|warn|error (env RASAD_LOG_LEVEL)")
	pf.String("log-format", d.LogFormat, "Log format: json|console (env RASAD_LOG_FORMAT)")

	root.AddCommand(
		newServeCmd(a),
		newProjectsCmd(a),
		newCreateCmd(a),
		newTrainCmd(a),
		newCheckCmd(a),
		newVersionCmd(),
	)
	return root
}

// resolveConfig layers defaults, the optional config file, environment and
// explicitly set flags, in that order.
func resolveConfig(cmd *cobra.Command, path string, getenv func(string) string) (config.Config, error) {
	cfg := config.Default()
	if path != "" {
		loaded, err := config.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	config.ApplyEnv(&cfg, getenv)

	fs := cmd.Flags()
	str := func(name string, dst *string) {
		if fs.Changed(name) {
			*dst, _ = fs.GetString(name)
		}
	}
	boolean := func(name string, dst *bool) {
		if fs.Changed(name) {
			*dst, _ = fs.GetBool(name)
		}
	}
	integer := func(name string, dst *int) {
		if fs.Lookup(name) != nil && fs.Changed(name) {
			*dst, _ = fs.GetInt(name)
		}
	}
	str("workspace", &cfg.Workspace)
	str("logs-dir", &cfg.LogsDir)
	boolean("use-docker", &cfg.UseDocker)
	boolean("container-api", &cfg.ContainerAPI)
	str("docker-bin", &cfg.DockerBin)
	str("rasa-image", &cfg.RasaImage)
	str("rasa-bin", &cfg.RasaBin)
	str("log-level", &cfg.LogLevel)
	str("log-format", &cfg.LogFormat)
	if fs.Lookup("addr") != nil {
		str("addr", &cfg.Addr)
		boolean("ready-probe", &cfg.ReadyProbe)
		integer("settle-delay-ms", &cfg.SettleDelayMS)
		integer("chat-timeout", &cfg.ChatTimeoutSeconds)
	}

	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// managerConfigFrom maps the file/env/flag configuration onto the manager.
func managerConfigFrom(cfg config.Config, logger zerolog.Logger) manager.ManagerConfig {
	settle := time.Duration(cfg.SettleDelayMS) * time.Millisecond
	if cfg.SettleDelayMS == 0 {
		settle = -1
	}
	return manager.ManagerConfig{
		Workspace:    cfg.Workspace,
		LogsDir:      cfg.LogsDir,
		UseDocker:    cfg.UseDocker,
		ContainerAPI: cfg.ContainerAPI,
		DockerBin:    cfg.DockerBin,
		Image:        cfg.RasaImage,
		RasaBin:      cfg.RasaBin,
		SettleDelay:  settle,
		ReadyProbe:   cfg.ReadyProbe,
		ReadyTimeout: time.Duration(cfg.ReadyTimeoutSeconds) * time.Second,
		ChatTimeout:  time.Duration(cfg.ChatTimeoutSeconds) * time.Second,
		Publisher:    manager.NewLogPublisher(logger),
		Logger:       &logger,
	}
}

// newManager builds the manager for the resolved configuration, including
// the log archiver when a bucket is configured.
func (a *app) newManager(ctx context.Context) (*manager.Manager, error) {
	mc := managerConfigFrom(a.cfg, a.log)
	if a.cfg.Archive.Bucket != "" {
		arc, err := archive.New(ctx, archive.Config{
			Bucket:    a.cfg.Archive.Bucket,
			Region:    a.cfg.Archive.Region,
			Endpoint:  a.cfg.Archive.Endpoint,
			Prefix:    a.cfg.Archive.Prefix,
			PathStyle: a.cfg.Archive.PathStyle,
		})
		if err != nil {
			return nil, err
		}
		mc.Archiver = arc
		a.log.Info().Str("bucket", a.cfg.Archive.Bucket).Msg("archiving training logs")
	}
	return manager.NewWithConfig(mc)
}

func newProjectsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "projects",
		Short: "List projects in the workspace",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := manager.NewProjectStore(a.cfg.Workspace).List()
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}

func newCreateCmd(a *app) *cobra.Command {
	var template string
	cmd := &cobra.Command{
		Use:     "create NAME",
		Short:   "Create a project from the minimal or a named template",
		Example: "  rasad create demo\n  rasad create demo --template pt-basic",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := os.MkdirAll(a.cfg.Workspace, 0o755); err != nil {
				return err
			}
			if err := manager.NewProjectStore(a.cfg.Workspace).Create(args[0], template); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().StringVar(&template, "template", "", "Template id (pt-basic)")
	return cmd
}

func newTrainCmd(a *app) *cobra.Command {
	var follow bool
	cmd := &cobra.Command{
		Use:   "train NAME",
		Short: "Train a project and wait for the job to finish",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			m, err := a.newManager(ctx)
			if err != nil {
				return err
			}
			defer m.Close(context.WithoutCancel(ctx))

			out := cmd.OutOrStdout()
			if !follow {
				j, err := m.Train(ctx, args[0], true)
				if err != nil {
					return err
				}
				return reportJob(out, j.ID, j.Status, j.LogPath)
			}
			j, err := m.Train(ctx, args[0], false)
			if err != nil {
				return err
			}
			if err := m.FollowJobLog(ctx, j.ID, out, nil); err != nil {
				return err
			}
			done, err := m.Job(j.ID)
			if err != nil {
				return err
			}
			return reportJob(out, done.ID, done.Status, done.LogPath)
		},
	}
	cmd.Flags().BoolVarP(&follow, "follow", "f", false, "Stream the training log while the job runs")
	return cmd
}

func reportJob(w io.Writer, id, status, logPath string) error {
	fmt.Fprintf(w, "job %s %s (log: %s)\n", id, status, logPath)
	if status != string(manager.JobSucceeded) {
		return fmt.Errorf("training job %s %s", id, status)
	}
	return nil
}

func newCheckCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Verify the configured toolchain is reachable",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.newManager(cmd.Context())
			if err != nil {
				return err
			}
			defer m.Close(context.WithoutCancel(cmd.Context()))
			r := m.SanityCheck(cmd.Context())
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			if err := enc.Encode(r); err != nil {
				return err
			}
			if !r.Found {
				return fmt.Errorf("toolchain not available: %s", r.Error)
			}
			return nil
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// no config needed
		PersistentPreRun: func(cmd *cobra.Command, args []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}

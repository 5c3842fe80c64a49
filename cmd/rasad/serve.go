package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"rasad/internal/config"
	"rasad/internal/httpapi"
)

// shutdownGrace bounds graceful HTTP shutdown and endpoint cleanup.
const shutdownGrace = 15 * time.Second

func newServeCmd(a *app) *cobra.Command {
	d := config.Default()
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			ln, err := net.Listen("tcp", a.cfg.Addr)
			if err != nil {
				return err
			}
			return a.serve(ctx, ln)
		},
	}
	f := cmd.Flags()
	f.String("addr", d.Addr, "HTTP listen address (env RASAD_ADDR)")
	f.Bool("ready-probe", d.ReadyProbe, "Poll the endpoint instead of a fixed settling delay (env RASAD_READY_PROBE)")
	f.Int("settle-delay-ms", d.SettleDelayMS, "Wait after launching an endpoint, 0 disables (env RASAD_SETTLE_DELAY_MS)")
	f.Int("chat-timeout", d.ChatTimeoutSeconds, "Chat proxy timeout in seconds (env RASAD_CHAT_TIMEOUT_SECONDS)")
	return cmd
}

// serve runs the API on ln until ctx is canceled, then shuts down the
// server and stops every inference endpoint.
func (a *app) serve(ctx context.Context, ln net.Listener) error {
	m, err := a.newManager(ctx)
	if err != nil {
		_ = ln.Close()
		return err
	}

	httpapi.SetLogger(a.log.With().Str("component", "http").Logger())
	httpapi.SetBaseContext(ctx)
	httpapi.SetVersion(version)
	httpapi.SetCORSOptions(len(a.cfg.CORSOrigins) > 0, a.cfg.CORSOrigins, nil, nil)
	httpapi.SetMaxBodyBytes(a.cfg.MaxBodyBytes)

	srv := &http.Server{
		Handler:           httpapi.NewMux(m),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() {
		a.log.Info().
			Str("addr", ln.Addr().String()).
			Str("mode", string(m.Mode())).
			Str("workspace", a.cfg.Workspace).
			Str("logs_dir", a.cfg.LogsDir).
			Msg("rasad listening")
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-errc:
	}

	a.log.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		a.log.Warn().Err(err).Msg("graceful shutdown")
	}
	m.Close(sctx)
	return serveErr
}

package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/tabmux/tabmux/internal/app"
	"github.com/tabmux/tabmux/internal/config"
	"github.com/tabmux/tabmux/internal/control"
	"github.com/tabmux/tabmux/internal/events"
	telem "github.com/tabmux/tabmux/internal/otel"
)

func runAttach(cmd *cobra.Command) error {
	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	// Load configuration: defaults -> config file -> env vars -> flags.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if flagSession != "" {
		cfg.Session = flagSession
	}
	if flagTheme != "" {
		cfg.Theme = flagTheme
	}
	if flagPrefix != "" {
		cfg.PrefixKey = flagPrefix
	}
	if flagNoSidebar {
		cfg.SidebarVisible = false
	}
	if flagEventLog != "" {
		cfg.EventLog = flagEventLog
	}

	if cfg.ConfigFile != "" {
		fmt.Fprintf(os.Stderr, "config: loaded %s\n", cfg.ConfigFile)
	}

	// Wire build version into OTEL service metadata
	telem.Version = Version

	// Initialize OTEL (no-op if no endpoint configured)
	tel, err := telem.Init(ctx, telem.OTELConfig{
		Endpoint: cfg.OTELEndpoint,
		Headers:  cfg.OTELHeaders,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: otel init failed: %v\n", err)
	}
	if tel != nil {
		defer tel.Shutdown(ctx)
	}

	logPath := cfg.EventLog
	switch logPath {
	case "":
		logPath = events.DefaultLogPath()
	case "off":
		logPath = ""
	}
	store := events.NewStore(256)
	recorder, err := events.NewRecorder(store, logPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: event log disabled: %v\n", err)
		recorder, _ = events.NewRecorder(store, "")
	}
	defer recorder.Close()

	conn, err := control.Connect(ctx, control.Config{Session: cfg.Session})
	if err != nil {
		return fmt.Errorf("attach to tmux: %w", err)
	}
	defer conn.Close()

	frontend := &app.App{
		Conn:      conn,
		Config:    cfg,
		Telemetry: tel,
		Recorder:  recorder,
	}
	reason, err := frontend.Run(ctx)
	if err != nil {
		return err
	}

	switch reason {
	case app.ExitDetached:
		fmt.Fprintf(os.Stderr, "detached from session %q\n", cfg.Session)
	case app.ExitServerExit:
		fmt.Fprintln(os.Stderr, "tmux server exited")
	case app.ExitTransportLost:
		return fmt.Errorf("connection to tmux lost")
	}
	return nil
}

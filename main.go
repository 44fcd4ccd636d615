package main

import (
	"fmt"
	"log/slog"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	flag "github.com/spf13/pflag"

	"github.com/quasar/mclaunch/internal/app"
	"github.com/quasar/mclaunch/internal/config"
	"github.com/quasar/mclaunch/internal/store"
)

func main() {
	dataDir := flag.String("data-dir", "", "launcher data directory (default: platform data dir)")
	directoryURL := flag.String("directory-url", "", "instance directory URL")
	logLevel := flag.String("log-level", "", "log level: debug, info, warn, error")
	flag.Parse()

	if err := run(*dataDir, *directoryURL, *logLevel); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(dataDir, directoryURL, logLevel string) error {
	cfg, err := config.Load(dataDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if directoryURL != "" {
		cfg.DirectoryURL = directoryURL
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.EnsureDirs(); err != nil {
		return err
	}

	logFile, err := os.OpenFile(cfg.LogPath(), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("opening log: %w", err)
	}
	defer logFile.Close()
	logger := slog.New(slog.NewJSONHandler(logFile, &slog.HandlerOptions{Level: cfg.SlogLevel()}))

	st, err := store.OpenSQLite(cfg.StorePath(), logger.With("component", "store"))
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	logger.Info("launcher starting", "data_dir", cfg.DataDir, "directory", cfg.DirectoryURL)
	components := app.Wire(cfg, st, logger)
	model := app.New(components.Deps(logger))
	defer model.Close()

	p := tea.NewProgram(
		model,
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("running program: %w", err)
	}
	return nil
}

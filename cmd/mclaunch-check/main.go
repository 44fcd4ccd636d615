// Command mclaunch-check reconciles the stored accounts and checks the
// instance selection once, without the terminal UI.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"

	flag "github.com/spf13/pflag"

	"github.com/quasar/mclaunch/internal/app"
	"github.com/quasar/mclaunch/internal/config"
	"github.com/quasar/mclaunch/internal/store"
)

func main() {
	dataDir := flag.String("data-dir", "", "launcher data directory (default: platform data dir)")
	directoryURL := flag.String("directory-url", "", "instance directory URL")
	verbose := flag.BoolP("verbose", "v", false, "log to stderr")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := run(ctx, *dataDir, *directoryURL, *verbose); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, dataDir, directoryURL string, verbose bool) error {
	cfg, err := config.Load(dataDir)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if directoryURL != "" {
		cfg.DirectoryURL = directoryURL
	}

	logger := slog.New(slog.DiscardHandler)
	if verbose {
		logger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
	}

	if err := cfg.EnsureDirs(); err != nil {
		return err
	}
	st, err := store.OpenSQLite(cfg.StorePath(), logger)
	if err != nil {
		return fmt.Errorf("opening store: %w", err)
	}
	defer st.Close()

	c := app.Wire(cfg, st, logger)

	res, err := c.Engine.ReconcileAll(ctx)
	if err != nil {
		return fmt.Errorf("reconciling accounts: %w", err)
	}
	fmt.Printf("refreshed: %d, evicted: %d\n", len(res.Refreshed), len(res.Evicted))
	if res.NeedsLogin {
		fmt.Println("no valid account, login required")
		return nil
	}

	if err := c.Service.Repair(ctx); err != nil {
		return fmt.Errorf("checking instances: %w", err)
	}

	home, err := c.Service.Home(ctx)
	if err != nil {
		return err
	}
	if home.Account == nil {
		return fmt.Errorf("selected account %s disappeared", res.SelectedAccountID)
	}
	fmt.Printf("account: %s (%s)\n", home.Account.Name, home.Account.Provider)
	fmt.Printf("instance: %s\n", home.Selected)
	for _, inst := range home.Instances {
		marker := " "
		if inst.Name == home.Selected {
			marker = "*"
		}
		fmt.Printf(" %s %s\n", marker, inst.Name)
	}
	return nil
}

// Package watcher polls the instance directory and moves the selection off
// an instance when a whitelist edit locks the current account out.
package watcher

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/quasar/mclaunch/internal/core"
	"github.com/quasar/mclaunch/internal/directory"
	"github.com/quasar/mclaunch/internal/events"
	"github.com/quasar/mclaunch/internal/selector"
	"github.com/quasar/mclaunch/internal/store"
)

// DefaultInterval between directory polls.
const DefaultInterval = 5 * time.Second

// Options configures a Watcher.
type Options struct {
	Source   directory.Source
	Accounts *core.AccountRepo
	Configs  *core.ConfigRepo
	Selector *selector.Selector
	Bus      *events.Bus
	Logger   *slog.Logger
	Interval time.Duration
}

// Watcher is a restartable periodic whitelist check.
type Watcher struct {
	opts Options

	checkMu  sync.Mutex
	baseline Snapshot

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a stopped watcher.
func New(opts Options) *Watcher {
	if opts.Logger == nil {
		opts.Logger = slog.New(slog.DiscardHandler)
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultInterval
	}
	return &Watcher{opts: opts}
}

// Start runs a check immediately and then every interval until Stop or ctx
// is done. Calling Start on a running watcher does nothing.
func (w *Watcher) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.done != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	w.cancel = cancel
	w.done = done
	go w.run(ctx, done)
	w.opts.Logger.Debug("whitelist watcher started", "interval", w.opts.Interval)
}

// Stop halts the loop and waits for it to exit. The watcher can be started
// again afterwards; the last snapshot is kept.
func (w *Watcher) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if done == nil {
		return
	}
	cancel()
	<-done
	w.opts.Logger.Debug("whitelist watcher stopped")
}

// Running reports whether the loop is active.
func (w *Watcher) Running() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.done != nil
}

func (w *Watcher) run(ctx context.Context, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(w.opts.Interval)
	defer ticker.Stop()

	for {
		if err := w.Check(ctx); err != nil && ctx.Err() == nil {
			w.opts.Logger.Debug("whitelist check skipped", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// Check performs one poll. The first successful poll only records a
// baseline. When the whitelist state differs from the previous poll, the
// selection is re-validated against the live list and migrated if the
// account lost access. A failed fetch leaves both snapshot and selection
// untouched.
func (w *Watcher) Check(ctx context.Context) error {
	w.checkMu.Lock()
	defer w.checkMu.Unlock()

	instances, err := w.opts.Source.Instances(ctx)
	if err != nil {
		return err
	}
	snap, err := TakeSnapshot(instances)
	if err != nil {
		return err
	}

	if w.baseline == nil {
		w.baseline = snap
		return nil
	}
	if w.baseline.Equal(snap) {
		return nil
	}

	w.opts.Logger.Info("whitelist change detected", "instances", len(instances))
	if err := w.migrate(ctx, instances); err != nil {
		return err
	}
	w.opts.Bus.Publish(events.Event{Kind: events.InstancesChanged})
	w.baseline = snap
	return nil
}

func (w *Watcher) migrate(ctx context.Context, instances []core.Instance) error {
	cfg, err := w.opts.Configs.Load(ctx)
	if err != nil {
		return err
	}
	acc, err := w.opts.Accounts.Get(ctx, cfg.AccountSelected)
	if errors.Is(err, store.ErrNotFound) {
		acc = nil
	} else if err != nil {
		return err
	}

	change, err := w.opts.Selector.Ensure(ctx, acc, instances)
	if err != nil {
		return err
	}
	if !change.Changed() || change.Old == "" {
		return nil
	}

	w.opts.Logger.Info("whitelist access revoked", "old", change.Old, "instance", change.New)
	w.opts.Bus.Publish(events.Event{
		Kind:        events.WhitelistAccessRevoked,
		OldInstance: change.Old,
		NewInstance: change.New,
	})
	w.opts.Bus.Notify(events.LevelWarn, "You no longer have access to %s, switched to %s", change.Old, change.New)
	return nil
}

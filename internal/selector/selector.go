// Package selector keeps the selected instance usable by the selected
// account.
package selector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/quasar/mclaunch/internal/core"
	"github.com/quasar/mclaunch/internal/events"
)

var (
	ErrUnknownInstance = errors.New("instance not found")
	ErrNotWhitelisted  = errors.New("account is not on the instance whitelist")
)

// Change describes the selection before and after a call.
type Change struct {
	Old string
	New string
}

// Changed reports whether the selection moved.
func (c Change) Changed() bool { return c.Old != c.New }

// Selector enforces the instance access rule on the persisted selection.
type Selector struct {
	configs *core.ConfigRepo
	bus     *events.Bus
	logger  *slog.Logger
}

// New creates a selector. bus and logger may be nil.
func New(configs *core.ConfigRepo, bus *events.Bus, logger *slog.Logger) *Selector {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Selector{configs: configs, bus: bus, logger: logger}
}

func accountName(acc *core.Account) string {
	if acc == nil {
		return ""
	}
	return acc.Name
}

// Ensure repairs the selection for acc against instances. A selection that
// is missing or excludes the account moves to the first open instance, or to
// the first instance when all are whitelisted. An empty list leaves the
// selection alone. The config is written only when the selection changes.
func (s *Selector) Ensure(ctx context.Context, acc *core.Account, instances []core.Instance) (Change, error) {
	name := accountName(acc)
	var change Change
	_, err := s.configs.Update(ctx, func(cfg *core.ClientConfig) (bool, error) {
		change.Old = cfg.InstanceSelected
		change.New = core.ChooseInstance(instances, cfg.InstanceSelected, name)
		cfg.InstanceSelected = change.New
		return change.Changed(), nil
	})
	if err != nil {
		return Change{}, fmt.Errorf("ensuring instance selection: %w", err)
	}

	if change.Changed() {
		s.logger.Info("instance selection changed", "old", change.Old, "instance", change.New, "account", name)
		s.bus.Publish(events.Event{Kind: events.InstanceSelectionChanged, Instance: change.New})
	}
	if len(instances) > 0 && !core.SelectionValid(instances, change.New, name) {
		s.logger.Warn("no instance accessible to account, keeping first instance", "instance", change.New, "account", name)
	}
	return change, nil
}

// Select makes name the selection after checking acc may use it.
func (s *Selector) Select(ctx context.Context, name string, acc *core.Account, instances []core.Instance) (Change, error) {
	inst, ok := core.FindInstance(instances, name)
	if !ok {
		return Change{}, fmt.Errorf("%w: %s", ErrUnknownInstance, name)
	}
	if !inst.Allows(accountName(acc)) {
		return Change{}, fmt.Errorf("%w: %s", ErrNotWhitelisted, name)
	}

	var change Change
	_, err := s.configs.Update(ctx, func(cfg *core.ClientConfig) (bool, error) {
		change = Change{Old: cfg.InstanceSelected, New: name}
		cfg.InstanceSelected = name
		return change.Changed(), nil
	})
	if err != nil {
		return Change{}, fmt.Errorf("selecting instance: %w", err)
	}
	if change.Changed() {
		s.logger.Info("instance selected", "old", change.Old, "instance", name)
		s.bus.Publish(events.Event{Kind: events.InstanceSelectionChanged, Instance: name})
	}
	return change, nil
}

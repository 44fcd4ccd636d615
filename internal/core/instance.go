// Package core contains business logic independent of the UI.
// Accounts, the client configuration record and the remotely defined
// instances all live here, together with the access rule tying them.
package core

import (
	"encoding/json"
	"slices"
)

// Instance is a remotely defined game instance. It is fetched from the
// instance directory on demand and never persisted locally.
type Instance struct {
	Name            string   `json:"name"`
	WhitelistActive bool     `json:"whitelistActive"`
	Whitelist       []string `json:"whitelist"` // account names; empty when absent or malformed
	Status          string   `json:"status,omitempty"`

	// Launch metadata
	URL     string          `json:"url,omitempty"`
	Loader  json.RawMessage `json:"loadder,omitempty"` // raw descriptor, validated at launch
	Verify  bool            `json:"verify,omitempty"`
	Ignored []string        `json:"ignored,omitempty"`

	Background string `json:"background,omitempty"`
	Avatar     string `json:"avatar,omitempty"`
}

// Allows reports whether accountName may use the instance.
func (i *Instance) Allows(accountName string) bool {
	if !i.WhitelistActive {
		return true
	}
	if accountName == "" {
		return false
	}
	return slices.Contains(i.Whitelist, accountName)
}

// FindInstance returns the instance called name.
func FindInstance(instances []Instance, name string) (*Instance, bool) {
	for i := range instances {
		if instances[i].Name == name {
			return &instances[i], true
		}
	}
	return nil, false
}

// AccessibleInstances filters instances down to the ones accountName may use,
// keeping directory order.
func AccessibleInstances(instances []Instance, accountName string) []Instance {
	out := make([]Instance, 0, len(instances))
	for _, inst := range instances {
		if inst.Allows(accountName) {
			out = append(out, inst)
		}
	}
	return out
}

// SelectionValid reports whether current names an instance in the list that
// accountName may use.
func SelectionValid(instances []Instance, current, accountName string) bool {
	inst, ok := FindInstance(instances, current)
	return ok && inst.Allows(accountName)
}

// ChooseInstance returns the instance name that should be selected.
//
// A valid current selection is kept. Otherwise the first instance without
// an active whitelist wins; when every instance is whitelisted the first
// instance is returned even if accountName cannot use it. An empty list
// yields current unchanged.
func ChooseInstance(instances []Instance, current, accountName string) string {
	if len(instances) == 0 {
		return current
	}
	if SelectionValid(instances, current, accountName) {
		return current
	}
	for _, inst := range instances {
		if !inst.WhitelistActive {
			return inst.Name
		}
	}
	return instances[0].Name
}

package watcher

import (
	"bytes"
	"fmt"

	"github.com/fxamacker/cbor/v2"

	"github.com/quasar/mclaunch/internal/core"
)

// encMode uses Core Deterministic Encoding so equal whitelist state always
// yields identical bytes.
var encMode cbor.EncMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("watcher: CBOR encoder initialization failed: " + err.Error())
	}
}

type snapshotEntry struct {
	Name            string   `cbor:"1,keyasint"`
	WhitelistActive bool     `cbor:"2,keyasint"`
	Whitelist       []string `cbor:"3,keyasint"`
}

// Snapshot is the canonical encoding of the access-relevant part of the
// directory. It is only compared, never decoded.
type Snapshot []byte

// TakeSnapshot encodes name, whitelist flag and whitelist of every instance
// in directory order. An absent whitelist encodes like an empty one.
func TakeSnapshot(instances []core.Instance) (Snapshot, error) {
	entries := make([]snapshotEntry, len(instances))
	for i, inst := range instances {
		wl := inst.Whitelist
		if wl == nil {
			wl = []string{}
		}
		entries[i] = snapshotEntry{Name: inst.Name, WhitelistActive: inst.WhitelistActive, Whitelist: wl}
	}
	data, err := encMode.Marshal(entries)
	if err != nil {
		return nil, fmt.Errorf("encoding whitelist snapshot: %w", err)
	}
	return data, nil
}

// Equal compares two snapshots byte for byte.
func (s Snapshot) Equal(other Snapshot) bool {
	return bytes.Equal(s, other)
}

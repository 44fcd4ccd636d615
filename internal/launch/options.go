package launch

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/quasar/mclaunch/internal/core"
)

// launchTimeoutMillis is handed to the backend, which enforces it.
const launchTimeoutMillis = 10000

// Options is the launch configuration handed to the backend.
type Options struct {
	URL                  string     `json:"url"`
	Authenticator        Credential `json:"authenticator"`
	Timeout              int        `json:"timeout"`
	Path                 string     `json:"path"`
	Instance             string     `json:"instance"`
	Version              string     `json:"version,omitempty"`
	Detached             bool       `json:"detached"`
	DownloadFileMultiple int        `json:"downloadFileMultiple"`
	IntelEnabledMac      bool       `json:"intelEnabledMac"`
	Loader               Loader     `json:"loader"`
	Verify               bool       `json:"verify"`
	Ignored              []string   `json:"ignored"`
	JavaPath             string     `json:"javaPath,omitempty"`
	Screen               Screen     `json:"screen"`
	Memory               Memory     `json:"memory"`
}

// Credential is the part of an account the game needs.
type Credential struct {
	Name        string `json:"name"`
	UUID        string `json:"uuid"`
	AccessToken string `json:"access_token"`
	UserType    string `json:"user_type"`
	Online      bool   `json:"online"`
}

type Loader struct {
	Type   string `json:"type,omitempty"`
	Build  string `json:"build,omitempty"`
	Enable bool   `json:"enable"`
}

type Screen struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Memory limits in the JVM's "<n>M" notation.
type Memory struct {
	Min string `json:"min"`
	Max string `json:"max"`
}

// loaderDescriptor is the instance's "loadder" object.
type loaderDescriptor struct {
	MinecraftVersion string `json:"minecraft_version"`
	Type             string `json:"loadder_type"`
	Build            string `json:"loadder_version"`
}

// parseLoader checks the raw descriptor is an object. An absent or null
// descriptor is allowed and yields a disabled loader. Version strings are
// passed through as is; loader builds and snapshots are not semver.
func parseLoader(raw json.RawMessage) (*loaderDescriptor, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return &loaderDescriptor{Type: "none"}, nil
	}
	if trimmed[0] != '{' {
		return nil, fmt.Errorf("%w: not an object", ErrMalformedLoader)
	}

	var d loaderDescriptor
	if err := json.Unmarshal(trimmed, &d); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedLoader, err)
	}
	if d.Type == "" {
		d.Type = "none"
	}
	return &d, nil
}

// Compose builds the backend options from the selected account, instance
// and client config. Neither input is modified.
func Compose(acc *core.Account, inst *core.Instance, cfg *core.ClientConfig, gameDir string) (*Options, error) {
	loader, err := parseLoader(inst.Loader)
	if err != nil {
		return nil, err
	}

	cfg = cfg.Clone()
	cfg.Normalize()

	opts := &Options{
		URL: inst.URL,
		Authenticator: Credential{
			Name:        acc.Name,
			UUID:        acc.UUID,
			AccessToken: acc.AccessToken,
			UserType:    acc.UserType(),
			Online:      acc.Provider != core.ProviderMojangLegacy || acc.Online,
		},
		Timeout:              launchTimeoutMillis,
		Path:                 gameDir,
		Instance:             inst.Name,
		Version:              loader.MinecraftVersion,
		Detached:             cfg.Launcher.CloseLauncher != core.CloseAll,
		DownloadFileMultiple: cfg.Launcher.DownloadMulti,
		IntelEnabledMac:      cfg.Launcher.IntelEnabledMac,
		Loader: Loader{
			Type:   loader.Type,
			Build:  loader.Build,
			Enable: loader.Type != "none",
		},
		Verify:   inst.Verify,
		Ignored:  append([]string{}, inst.Ignored...),
		JavaPath: cfg.Java.Path,
		Screen:   Screen{Width: cfg.Game.ScreenSize.Width, Height: cfg.Game.ScreenSize.Height},
		Memory: Memory{
			Min: fmt.Sprintf("%dM", cfg.Java.Memory.Min*1024),
			Max: fmt.Sprintf("%dM", cfg.Java.Memory.Max*1024),
		},
	}
	return opts, nil
}

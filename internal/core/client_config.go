package core

// ClientConfig is the persisted singleton holding the current selection and
// the per-user game settings.
type ClientConfig struct {
	AccountSelected  string `json:"account_selected,omitempty"`  // Account.ID, empty when none
	InstanceSelected string `json:"instance_selected,omitempty"` // Instance.Name, empty when none

	Java     *JavaConfig    `json:"java_config,omitempty"`
	Game     *GameConfig    `json:"game_config,omitempty"`
	Launcher *LauncherPrefs `json:"launcher_config,omitempty"`
}

// JavaConfig configures the Java runtime.
type JavaConfig struct {
	Path   string  `json:"java_path,omitempty"`
	Memory *Memory `json:"java_memory,omitempty"`
}

// Memory bounds in gigabytes.
type Memory struct {
	Min int `json:"min"`
	Max int `json:"max"`
}

// GameConfig configures the game window.
type GameConfig struct {
	ScreenSize *ScreenSize `json:"screen_size,omitempty"`
}

// ScreenSize in pixels.
type ScreenSize struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// Close behaviours after the game starts.
const (
	CloseLauncher = "close-launcher"
	CloseAll      = "close-all"
	CloseNone     = "close-none"
)

// LauncherPrefs holds launcher behaviour settings.
type LauncherPrefs struct {
	DownloadMulti   int    `json:"download_multi"`
	Theme           string `json:"theme"`
	CloseLauncher   string `json:"closeLauncher"`
	IntelEnabledMac bool   `json:"intelEnabledMac"`
}

func defaultMemory() *Memory { return &Memory{Min: 2, Max: 4} }
func defaultScreen() *ScreenSize { return &ScreenSize{Width: 854, Height: 480} }
func defaultLauncher() *LauncherPrefs {
	return &LauncherPrefs{
		DownloadMulti:   5,
		Theme:           "auto",
		CloseLauncher:   CloseLauncher,
		IntelEnabledMac: true,
	}
}

// DefaultClientConfig returns a config with no selection and default settings.
func DefaultClientConfig() *ClientConfig {
	c := &ClientConfig{}
	c.Normalize()
	return c
}

// Normalize fills in missing sections with defaults. It reports whether
// anything was added so callers persist the repaired record once.
func (c *ClientConfig) Normalize() bool {
	changed := false
	if c.Java == nil {
		c.Java = &JavaConfig{}
		changed = true
	}
	if c.Java.Memory == nil {
		c.Java.Memory = defaultMemory()
		changed = true
	}
	if c.Game == nil {
		c.Game = &GameConfig{}
		changed = true
	}
	if c.Game.ScreenSize == nil {
		c.Game.ScreenSize = defaultScreen()
		changed = true
	}
	if c.Launcher == nil {
		c.Launcher = defaultLauncher()
		changed = true
	}
	return changed
}

// Clone returns a deep copy.
func (c *ClientConfig) Clone() *ClientConfig {
	out := *c
	if c.Java != nil {
		j := *c.Java
		if j.Memory != nil {
			m := *j.Memory
			j.Memory = &m
		}
		out.Java = &j
	}
	if c.Game != nil {
		g := *c.Game
		if g.ScreenSize != nil {
			s := *g.ScreenSize
			g.ScreenSize = &s
		}
		out.Game = &g
	}
	if c.Launcher != nil {
		l := *c.Launcher
		out.Launcher = &l
	}
	return &out
}

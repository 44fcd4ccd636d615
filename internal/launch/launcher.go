// Package launch validates and starts a game session and reports its
// progress. Installing and running the game is left to a Backend.
package launch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/quasar/mclaunch/internal/core"
	"github.com/quasar/mclaunch/internal/directory"
	"github.com/quasar/mclaunch/internal/store"
)

// Status represents the current launch step
type Status struct {
	Step       string  // Current step name
	Progress   float64 // 0.0 - 1.0
	Message    string  // Human-readable message
	IsComplete bool
	Error      error
	LogLine    *LogLine // Streamed log output
}

// LogLine represents a line of log output
type LogLine struct {
	Text string
	Type string // "stdout" or "stderr"
}

// Step names reported in Status.
const (
	StepPreparing   = "Preparing"
	StepDownloading = "Downloading"
	StepVerifying   = "Verifying"
	StepPatching    = "Patching"
	StepPlaying     = "Playing"
	StepComplete    = "Complete"
)

// State of the launcher.
type State int

const (
	StateIdle State = iota
	StateLaunching
	StatePlaying
)

// JavaFinder picks a local Java runtime for a Minecraft version.
type JavaFinder interface {
	ForMinecraft(ctx context.Context, mcVersion string) (string, bool)
}

// Launcher runs one launch attempt at a time.
type Launcher struct {
	accounts *core.AccountRepo
	configs  *core.ConfigRepo
	source   directory.Source
	backend  Backend
	gameDir  string
	java     JavaFinder
	logger   *slog.Logger

	mu    sync.Mutex
	state State
}

// NewLauncher creates a new launcher
func NewLauncher(accounts *core.AccountRepo, configs *core.ConfigRepo, source directory.Source, backend Backend, gameDir string, logger *slog.Logger) *Launcher {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Launcher{
		accounts: accounts,
		configs:  configs,
		source:   source,
		backend:  backend,
		gameDir:  gameDir,
		logger:   logger,
	}
}

// SetJavaFinder makes the launcher fill in a Java runtime when the client
// config names none. Without a finder the backend picks its own.
func (l *Launcher) SetJavaFinder(f JavaFinder) {
	l.java = f
}

// State returns the current launcher state.
func (l *Launcher) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

func (l *Launcher) setState(s State) {
	l.mu.Lock()
	l.state = s
	l.mu.Unlock()
}

// Launch validates the current selection, starts the backend and forwards
// its events as Status until the game closes. Whatever happens, the
// launcher is idle again when Launch returns. Precondition failures return
// before the backend is touched.
func (l *Launcher) Launch(ctx context.Context, statusChan chan<- Status) error {
	l.mu.Lock()
	if l.state != StateIdle {
		l.mu.Unlock()
		return ErrAlreadyRunning
	}
	l.state = StateLaunching
	l.mu.Unlock()
	defer l.setState(StateIdle)

	send := func(s Status) { sendStatus(statusChan, s) }
	fail := func(err error) error {
		send(Status{Step: StepComplete, Message: err.Error(), Error: err, IsComplete: true})
		return err
	}

	send(Status{Step: StepPreparing, Message: "Preparing launch..."})
	opts, err := l.prepare(ctx)
	if err != nil {
		l.logger.Warn("launch rejected", "error", err)
		return fail(err)
	}

	l.logger.Info("starting game", "instance", opts.Instance, "version", opts.Version, "loader", opts.Loader.Type)
	session, err := l.start(ctx, opts)
	if err != nil {
		l.logger.Error("launch failed", "instance", opts.Instance, "error", err)
		return fail(fmt.Errorf("starting game: %w", err))
	}

	if err := l.follow(ctx, session, send); err != nil {
		l.logger.Error("game session failed", "instance", opts.Instance, "error", err)
		return fail(err)
	}
	return nil
}

// prepare checks the preconditions and composes the backend options.
func (l *Launcher) prepare(ctx context.Context) (*Options, error) {
	cfg, err := l.configs.Load(ctx)
	if err != nil {
		return nil, err
	}

	instances, err := l.source.Instances(ctx)
	if err != nil {
		l.logger.Warn("instance directory unavailable", "error", err)
		instances = nil
	}
	inst, ok := core.FindInstance(instances, cfg.InstanceSelected)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoInstance, cfg.InstanceSelected)
	}

	acc, err := l.accounts.Get(ctx, cfg.AccountSelected)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrNoAccount
	}
	if err != nil {
		return nil, err
	}

	opts, err := Compose(acc, inst, cfg, l.gameDir)
	if err != nil {
		return nil, err
	}
	if opts.JavaPath == "" && l.java != nil {
		if path, ok := l.java.ForMinecraft(ctx, opts.Version); ok {
			opts.JavaPath = path
		}
	}
	return opts, nil
}

// start invokes the backend, turning a panic into an error.
func (l *Launcher) start(ctx context.Context, opts *Options) (s Session, err error) {
	defer func() {
		if r := recover(); r != nil {
			s, err = nil, fmt.Errorf("launch backend panicked: %v", r)
		}
	}()
	s, err = l.backend.Start(ctx, opts)
	if err == nil && s == nil {
		err = errors.New("launch backend returned no session")
	}
	return s, err
}

// follow translates session events until close or error.
func (l *Launcher) follow(ctx context.Context, session Session, send func(Status)) error {
	var speed, eta string
	events := session.Events()

	for {
		var ev Event
		var ok bool
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok = <-events:
		}
		if !ok {
			return ErrSessionEnded
		}

		switch ev.Type {
		case EventExtract:
			send(Status{Step: StepPreparing, Message: "Extracting files..."})
		case EventProgress:
			send(Status{Step: StepDownloading, Progress: ratio(ev), Message: progressMessage("Downloading", ev, speed, eta)})
		case EventCheck:
			send(Status{Step: StepVerifying, Progress: ratio(ev), Message: progressMessage("Verifying", ev, "", "")})
		case EventEstimated:
			eta = FormatETA(time.Duration(ev.Seconds * float64(time.Second)))
		case EventSpeed:
			speed = FormatSpeed(ev.Speed)
		case EventPatch:
			send(Status{Step: StepPatching, Message: "Applying patch..."})
		case EventData:
			if l.State() != StatePlaying {
				l.setState(StatePlaying)
				send(Status{Step: StepPlaying, Progress: 1, Message: "Game running..."})
			}
			if ev.Line != "" && importantLine(ev.Line) {
				send(Status{Step: StepPlaying, LogLine: &LogLine{Text: ev.Line, Type: "stdout"}})
			}
		case EventClose:
			l.logger.Info("game closed", "code", ev.Code)
			msg := "Game closed."
			if ev.Code != 0 {
				msg = fmt.Sprintf("Game closed with code %d.", ev.Code)
			}
			send(Status{Step: StepComplete, Progress: 1, Message: msg, IsComplete: true})
			return nil
		case EventError:
			reason := ev.Reason
			if reason == "" {
				reason = "unknown error"
			}
			return fmt.Errorf("launch session: %s", reason)
		default:
			l.logger.Debug("ignoring launch event", "type", ev.Type)
		}
	}
}

func sendStatus(ch chan<- Status, s Status) {
	if ch != nil {
		select {
		case ch <- s:
		default:
		}
	}
}

func ratio(ev Event) float64 {
	if ev.Total <= 0 {
		return 0
	}
	r := float64(ev.Current) / float64(ev.Total)
	return min(max(r, 0), 1)
}

func progressMessage(verb string, ev Event, speed, eta string) string {
	msg := fmt.Sprintf("%s %.0f%%", verb, ratio(ev)*100)
	var extra []string
	if speed != "" {
		extra = append(extra, speed)
	}
	if eta != "" {
		extra = append(extra, eta)
	}
	if len(extra) > 0 {
		msg += " (" + strings.Join(extra, ", ") + ")"
	}
	return msg
}

// FormatSpeed formats a transfer rate for display
func FormatSpeed(bytesPerSec float64) string {
	if bytesPerSec <= 0 {
		return ""
	}
	return humanize.Bytes(uint64(bytesPerSec)) + "/s"
}

// FormatETA formats the estimated time left, e.g. "3 minutes remaining".
func FormatETA(d time.Duration) string {
	if d <= 0 {
		return ""
	}
	now := time.Now()
	return humanize.RelTime(now, now.Add(d), "remaining", "")
}

func importantLine(text string) bool {
	return strings.Contains(text, "[FATAL]") ||
		strings.Contains(text, "[ERROR]") ||
		strings.Contains(text, "[WARN]") ||
		strings.Contains(text, "Exception") ||
		strings.Contains(text, "Error")
}

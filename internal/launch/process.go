package launch

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
)

// ProcessBackend delegates the launch to an external command. The command
// receives Options as JSON on stdin and reports progress as JSON-lines
// events on stdout. Lines that are not events are treated as game output.
type ProcessBackend struct {
	Command []string
	Dir     string
	Env     []string // added to the launcher's environment
	Logger  *slog.Logger
}

type processSession struct {
	events chan Event
}

func (s *processSession) Events() <-chan Event { return s.events }

// Start runs the command and returns once it has started.
func (b *ProcessBackend) Start(ctx context.Context, opts *Options) (Session, error) {
	if len(b.Command) == 0 {
		return nil, errors.New("no launch command configured")
	}
	logger := b.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	input, err := json.Marshal(opts)
	if err != nil {
		return nil, fmt.Errorf("encoding launch options: %w", err)
	}

	cmd := exec.CommandContext(ctx, b.Command[0], b.Command[1:]...)
	cmd.Dir = b.Dir
	if len(b.Env) > 0 {
		cmd.Env = append(os.Environ(), b.Env...)
	}
	cmd.Stdin = bytes.NewReader(input)
	cmd.Stderr = &logWriter{logger: logger}
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, err
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", b.Command[0], err)
	}

	s := &processSession{events: make(chan Event, 64)}
	go func() {
		defer close(s.events)
		ended := streamEvents(ctx, stdout, s.events)
		err := cmd.Wait()
		if ended {
			return
		}
		final := Event{Type: EventClose}
		if err != nil {
			final = Event{Type: EventError, Reason: fmt.Sprintf("launch command failed: %v", err)}
		}
		select {
		case s.events <- final:
		case <-ctx.Done():
		}
	}()
	return s, nil
}

// streamEvents forwards stdout lines as events until a close or error
// event, which it reports. Output after that, or after ctx is done, is
// discarded so the command never blocks on a full pipe.
func streamEvents(ctx context.Context, r io.Reader, out chan<- Event) bool {
	defer io.Copy(io.Discard, r)

	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		text := scanner.Text()
		ev, ok := parseEvent(text)
		if !ok {
			ev = Event{Type: EventData, Line: text}
		}
		select {
		case out <- ev:
		case <-ctx.Done():
			return false
		}
		if ev.Type == EventClose || ev.Type == EventError {
			return true
		}
	}
	return false
}

func parseEvent(line string) (Event, bool) {
	line = strings.TrimSpace(line)
	if !strings.HasPrefix(line, "{") {
		return Event{}, false
	}
	var ev Event
	if err := json.Unmarshal([]byte(line), &ev); err != nil || ev.Type == "" {
		return Event{}, false
	}
	return ev, true
}

// logWriter sends stderr lines to the log.
type logWriter struct {
	logger *slog.Logger
	buf    []byte
}

func (w *logWriter) Write(p []byte) (int, error) {
	w.buf = append(w.buf, p...)
	for {
		i := bytes.IndexByte(w.buf, '\n')
		if i < 0 {
			break
		}
		if line := strings.TrimSpace(string(w.buf[:i])); line != "" {
			w.logger.Warn("launch backend", "stderr", line)
		}
		w.buf = w.buf[i+1:]
	}
	return len(p), nil
}

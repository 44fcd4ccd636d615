// Package java finds a local Java runtime suitable for a Minecraft release.
package java

import (
	"bufio"
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"runtime"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/Masterminds/semver/v3"
)

var versionRegex = regexp.MustCompile(`(?:java|openjdk) version "([^"]+)"`)

// Runtime is a detected Java installation.
type Runtime struct {
	Path    string // java executable, symlinks resolved
	Version string
	Major   int
	Vendor  string
}

func (r Runtime) String() string {
	vendor := r.Vendor
	if vendor == "" {
		vendor = "Unknown"
	}
	return fmt.Sprintf("Java %d (%s)", r.Major, vendor)
}

// requirements maps Minecraft releases to the Java major they need, newest
// first.
var requirements = []struct {
	constraint *semver.Constraints
	major      int
}{
	{mustConstraint(">= 1.20.5"), 21},
	{mustConstraint(">= 1.18"), 17},
	{mustConstraint(">= 1.17"), 16},
}

func mustConstraint(s string) *semver.Constraints {
	c, err := semver.NewConstraint(s)
	if err != nil {
		panic(err)
	}
	return c
}

// RequiredMajor returns the minimum Java major for a Minecraft release.
// Unknown or unparseable versions return 0.
func RequiredMajor(mcVersion string) int {
	v, err := semver.NewVersion(mcVersion)
	if err != nil {
		return 0
	}
	for _, r := range requirements {
		if r.constraint.Check(v) {
			return r.major
		}
	}
	return 8
}

// Finder scans the system for Java runtimes once and answers from the
// cached result afterwards.
type Finder struct {
	roots  []string
	probe  func(ctx context.Context, path string) (string, error)
	logger *slog.Logger

	once  sync.Once
	found []Runtime
}

// NewFinder creates a finder over JAVA_HOME, PATH and the usual install
// locations for this platform.
func NewFinder(logger *slog.Logger) *Finder {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Finder{roots: defaultRoots(), probe: probeJava, logger: logger}
}

// Runtimes lists every runtime found, in discovery order.
func (f *Finder) Runtimes(ctx context.Context) []Runtime {
	f.once.Do(func() { f.found = f.scan(ctx) })
	return f.found
}

// ForMinecraft returns the executable of the oldest runtime that satisfies
// mcVersion. When the version is unknown the newest runtime is used.
func (f *Finder) ForMinecraft(ctx context.Context, mcVersion string) (string, bool) {
	found := f.Runtimes(ctx)
	if len(found) == 0 {
		return "", false
	}

	need := RequiredMajor(mcVersion)
	var best *Runtime
	for i := range found {
		r := &found[i]
		switch {
		case need == 0:
			if best == nil || r.Major > best.Major {
				best = r
			}
		case r.Major >= need:
			if best == nil || r.Major < best.Major {
				best = r
			}
		}
	}
	if best == nil {
		f.logger.Warn("no java runtime satisfies version", "minecraft", mcVersion, "required", need)
		return "", false
	}
	f.logger.Debug("java runtime chosen", "minecraft", mcVersion, "runtime", best.String(), "path", best.Path)
	return best.Path, true
}

func (f *Finder) scan(ctx context.Context) []Runtime {
	var candidates []string
	if home := os.Getenv("JAVA_HOME"); home != "" {
		candidates = append(candidates, javaInDir(home))
	}
	if p, err := exec.LookPath(javaExe()); err == nil {
		candidates = append(candidates, p)
	}
	for _, root := range f.roots {
		entries, err := os.ReadDir(root)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				candidates = append(candidates, javaInDir(filepath.Join(root, entry.Name())))
			}
		}
	}

	var out []Runtime
	seen := make(map[string]bool)
	for _, c := range candidates {
		if c == "" {
			continue
		}
		path, err := filepath.EvalSymlinks(c)
		if err != nil {
			path = c
		}
		if seen[path] {
			continue
		}
		seen[path] = true

		output, err := f.probe(ctx, path)
		if err != nil {
			f.logger.Debug("java probe failed", "path", path, "error", err)
			continue
		}
		if r, ok := parseVersionOutput(path, output); ok {
			out = append(out, r)
		}
	}
	f.logger.Info("java runtimes detected", "count", len(out))
	return out
}

func probeJava(ctx context.Context, path string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	output, err := exec.CommandContext(ctx, path, "-version").CombinedOutput()
	return string(output), err
}

func javaExe() string {
	if runtime.GOOS == "windows" {
		return "java.exe"
	}
	return "java"
}

// javaInDir returns the java executable under a JDK directory, or "".
func javaInDir(dir string) string {
	for _, candidate := range []string{
		filepath.Join(dir, "bin", javaExe()),
		filepath.Join(dir, "Contents", "Home", "bin", javaExe()), // macOS .jdk bundle
	} {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate
		}
	}
	return ""
}

func defaultRoots() []string {
	home, _ := os.UserHomeDir()
	switch runtime.GOOS {
	case "darwin":
		return []string{
			"/Library/Java/JavaVirtualMachines",
			filepath.Join(home, ".sdkman/candidates/java"),
		}
	case "linux":
		return []string{
			"/usr/lib/jvm",
			"/usr/lib64/jvm",
			filepath.Join(home, ".sdkman/candidates/java"),
		}
	case "windows":
		return []string{
			`C:\Program Files\Java`,
			`C:\Program Files\Eclipse Adoptium`,
			`C:\Program Files\Microsoft\jdk`,
		}
	default:
		return nil
	}
}

// vendors is checked in order; generic OpenJDK comes last.
var vendors = []struct{ marker, name string }{
	{"graalvm", "GraalVM"},
	{"azul", "Azul Zulu"},
	{"temurin", "Eclipse Adoptium"},
	{"adoptium", "Eclipse Adoptium"},
	{"oracle", "Oracle"},
	{"microsoft", "Microsoft"},
}

// parseVersionOutput reads the output of `java -version`, e.g.
//
//	openjdk version "21.0.1" 2023-10-17
//	java version "1.8.0_391"
func parseVersionOutput(path, output string) (Runtime, bool) {
	r := Runtime{Path: path}
	lower := strings.ToLower(output)

	scanner := bufio.NewScanner(strings.NewReader(output))
	for scanner.Scan() {
		if m := versionRegex.FindStringSubmatch(scanner.Text()); len(m) > 1 {
			r.Version = m[1]
			r.Major = parseMajor(m[1])
			break
		}
	}
	if r.Version == "" {
		return Runtime{}, false
	}

	idx := slices.IndexFunc(vendors, func(v struct{ marker, name string }) bool {
		return strings.Contains(lower, v.marker)
	})
	switch {
	case idx >= 0:
		r.Vendor = vendors[idx].name
	case strings.Contains(lower, "openjdk"):
		r.Vendor = "OpenJDK"
	}
	return r, true
}

// parseMajor handles both 1.8.0_391 and 17.0.9 forms.
func parseMajor(version string) int {
	parts := strings.Split(version, ".")
	if parts[0] == "1" && len(parts) > 1 {
		v, _ := strconv.Atoi(parts[1])
		return v
	}
	v, _ := strconv.Atoi(parts[0])
	return v
}

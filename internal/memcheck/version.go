package memcheck

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"golang.org/x/mod/semver"

	"github.com/AndreyAkinshin/utrun/internal/process"
)

// ParseVersion extracts a canonical semantic version from `valgrind
// --version` output such as "valgrind-3.18.1" or "valgrind-3.22.0.GIT".
func ParseVersion(out string) (string, error) {
	s := strings.TrimSpace(out)
	if i := strings.LastIndex(s, "-"); i >= 0 {
		s = s[i+1:]
	}
	parts := strings.Split(s, ".")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	v := "v" + strings.Join(parts, ".")
	if !semver.IsValid(v) {
		return "", fmt.Errorf("unrecognized version output %q", strings.TrimSpace(out))
	}
	return semver.Canonical(v), nil
}

// CheckVersion runs `<tool> --version` and reports an error when the tool
// is older than minVersion. The returned version is canonical ("v3.18.1").
func CheckVersion(ctx context.Context, r process.Runner, tool, minVersion string) (string, error) {
	var out bytes.Buffer
	code, err := r.Run(ctx, process.Command{Name: tool, Args: []string{"--version"}, Stdout: &out})
	if err != nil {
		return "", fmt.Errorf("probe %s: %w", tool, err)
	}
	if code != 0 {
		return "", fmt.Errorf("probe %s: exit code %d", tool, code)
	}

	got, err := ParseVersion(out.String())
	if err != nil {
		return "", err
	}

	want := minVersion
	if !strings.HasPrefix(want, "v") {
		want = "v" + want
	}
	if !semver.IsValid(want) {
		return got, fmt.Errorf("invalid minimum version %q", minVersion)
	}
	if semver.Compare(got, want) < 0 {
		return got, fmt.Errorf("%s %s is older than required %s", tool, got, semver.Canonical(want))
	}
	return got, nil
}

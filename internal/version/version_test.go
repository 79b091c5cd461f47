package version

import (
	"strings"
	"testing"
)

func TestVersion(t *testing.T) {
	if Version == "" {
		t.Error("Version should not be empty")
	}
	if BuildTime == "" || GitCommit == "" {
		t.Error("build metadata should be initialized")
	}
}

func TestString(t *testing.T) {
	s := String()
	if !strings.HasPrefix(s, "mdbook-iced ") {
		t.Errorf("unexpected version line: %q", s)
	}
	if !strings.Contains(s, Version) {
		t.Errorf("version line %q does not contain %q", s, Version)
	}
}

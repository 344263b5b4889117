package logging

import (
	"bytes"
	"strings"
	"testing"

	"github.com/charmbracelet/log"
)

func TestParseVerbosity(t *testing.T) {
	cases := []struct {
		input string
		want  Verbosity
	}{
		{"", Normal},
		{"normal", Normal},
		{"QUIET", Quiet},
		{" debug ", Debug},
	}
	for _, tc := range cases {
		got, err := ParseVerbosity(tc.input)
		if err != nil {
			t.Fatalf("ParseVerbosity(%q) error: %v", tc.input, err)
		}
		if got != tc.want {
			t.Fatalf("ParseVerbosity(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
	if _, err := ParseVerbosity("loud"); err == nil {
		t.Fatalf("expected error for unknown verbosity")
	}
}

func TestFromFlags(t *testing.T) {
	if _, err := FromFlags(true, true); err == nil {
		t.Fatalf("expected error when both flags are set")
	}
	if v, _ := FromFlags(true, false); v != Quiet {
		t.Fatalf("FromFlags(quiet) = %q", v)
	}
	if v, _ := FromFlags(false, true); v != Debug {
		t.Fatalf("FromFlags(debug) = %q", v)
	}
	if v, _ := FromFlags(false, false); v != Normal {
		t.Fatalf("FromFlags() = %q", v)
	}
}

func TestLevels(t *testing.T) {
	if Quiet.Level() != log.ErrorLevel || Normal.Level() != log.InfoLevel || Debug.Level() != log.DebugLevel {
		t.Fatalf("unexpected level mapping")
	}
}

func TestNewRespectsVerbosity(t *testing.T) {
	var buf bytes.Buffer
	logger := New(&buf, Quiet)
	logger.Info("hidden")
	logger.Error("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") {
		t.Fatalf("quiet logger printed info: %q", out)
	}
	if !strings.Contains(out, "shown") {
		t.Fatalf("quiet logger dropped error: %q", out)
	}
}

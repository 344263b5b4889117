package ui

import (
	"bufio"
	"context"
	"errors"
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"

	"grfbuild/internal/buildpipeline"
)

func TestProgressModelTracksFragments(t *testing.T) {
	m := NewProgressModel("build", nil).(*progressModel)
	events := []buildpipeline.Event{
		{Stage: buildpipeline.StageValidate, Status: buildpipeline.StatusDone},
		{Stage: buildpipeline.StageScan, Status: buildpipeline.StatusDone},
		{File: "grf.pnml", Stage: buildpipeline.StageAggregate, Status: buildpipeline.StatusQueued},
		{File: "trains/a.pnml", Stage: buildpipeline.StageAggregate, Status: buildpipeline.StatusQueued},
		{Stage: buildpipeline.StageAggregate, Status: buildpipeline.StatusWorking},
		{File: "grf.pnml", Stage: buildpipeline.StageAggregate, Status: buildpipeline.StatusDone},
	}
	for _, ev := range events {
		m.applyEvent(ev)
	}
	if len(m.items) != 2 || m.items[0].status != buildpipeline.StatusDone || m.items[1].status != buildpipeline.StatusQueued {
		t.Fatalf("items = %+v", m.items)
	}
	if m.stageLabel != "aggregating" {
		t.Fatalf("stage label = %q", m.stageLabel)
	}
	want := 2.5 / float64(len(buildpipeline.Stages()))
	if got := m.percent(); got != want {
		t.Fatalf("percent = %v, want %v", got, want)
	}
	view := m.View()
	if !strings.Contains(view, "trains/a.pnml") || !strings.Contains(view, "aggregating") {
		t.Fatalf("view missing rows:\n%s", view)
	}

	m.applyEvent(buildpipeline.Event{Stage: buildpipeline.StageWrite, Status: buildpipeline.StatusError, Err: errors.New("disk full")})
	if _, cmd := m.Update(doneMsg{}); cmd == nil {
		t.Fatalf("done did not quit")
	}
	if !strings.Contains(m.View(), "failed:") {
		t.Fatalf("failed build not shown:\n%s", m.View())
	}
}

func TestTruncate(t *testing.T) {
	tests := []struct {
		in    string
		width int
		want  string
	}{
		{"short", 10, "short"},
		{"trains/long_name.pnml", 10, "trai..."},
		{"abcdef", 3, "abc"},
		{"abc", 0, "abc"},
	}
	for _, tt := range tests {
		if got := truncate(tt.in, tt.width); got != tt.want {
			t.Fatalf("truncate(%q, %d) = %q, want %q", tt.in, tt.width, got, tt.want)
		}
	}
}

func TestPromptModel(t *testing.T) {
	m := newPromptModel("Where?", "/tmp/newgrf")
	m.Update(tea.KeyMsg{Type: tea.KeyEnter})
	if !m.answered || m.input.Value() != "/tmp/newgrf" {
		t.Fatalf("answered=%v value=%q", m.answered, m.input.Value())
	}

	m = newPromptModel("Where?", "")
	m.Update(tea.KeyMsg{Type: tea.KeyEsc})
	if !m.cancelled {
		t.Fatalf("esc did not cancel")
	}
}

func TestLinePrompter(t *testing.T) {
	var out strings.Builder
	p := LinePrompter{In: bufio.NewReader(strings.NewReader("\n  /opt/game  \n")), Out: &out}

	got, err := p.Prompt(context.Background(), "Executable", "/usr/bin/openttd")
	if err != nil || got != "/usr/bin/openttd" {
		t.Fatalf("default answer = %q, %v", got, err)
	}
	got, err = p.Prompt(context.Background(), "Executable", "")
	if err != nil || got != "/opt/game" {
		t.Fatalf("typed answer = %q, %v", got, err)
	}
	if _, err := p.Prompt(context.Background(), "Executable", ""); !errors.Is(err, ErrPromptCancelled) {
		t.Fatalf("EOF error = %v", err)
	}
	if !strings.Contains(out.String(), "Executable [/usr/bin/openttd]: ") {
		t.Fatalf("prompt output = %q", out.String())
	}
}

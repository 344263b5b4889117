package gamerun

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"grfbuild/internal/diag"
)

func TestDefaults(t *testing.T) {
	linux, err := Defaults("linux", "/home/u")
	if err != nil {
		t.Fatalf("linux: %v", err)
	}
	if linux.NewGRFDir != filepath.Join("/home/u", ".openttd", "newgrf") || linux.Executable != "/usr/bin/openttd" {
		t.Fatalf("linux = %+v", linux)
	}
	if strings.Join(linux.KillCmd, " ") != "killall openttd" {
		t.Fatalf("kill = %v", linux.KillCmd)
	}
	win, err := Defaults("windows", "/home/u")
	if err != nil || strings.Join(win.KillCmd, " ") != "taskkill /IM OpenTTD.exe" {
		t.Fatalf("windows = %+v, %v", win, err)
	}
	if _, err := Defaults("darwin", "/home/u"); !errors.Is(err, diag.ErrUnsupportedPlatform) {
		t.Fatalf("darwin error = %v, want UnsupportedPlatform", err)
	}
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()
	path := ConfigPath(dir)

	cfg, err := LoadConfig(path)
	if err != nil || cfg != nil {
		t.Fatalf("missing file = %v, %v", cfg, err)
	}

	want := Config{NewGRFDir: "/g/newgrf", Executable: "/usr/bin/openttd"}
	if err := SaveConfig(path, want); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}
	cfg, err = LoadConfig(path)
	if err != nil || cfg == nil || *cfg != want {
		t.Fatalf("LoadConfig = %+v, %v", cfg, err)
	}

	tests := []struct {
		name    string
		content string
	}{
		{"not json", "{"},
		{"missing key", `{"newgrf_dir": "/g/newgrf"}`},
		{"wrong type", `{"newgrf_dir": 3, "executable": "/x"}`},
		{"empty value", `{"newgrf_dir": "", "executable": "/x"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := os.WriteFile(path, []byte(tt.content), 0o600); err != nil {
				t.Fatalf("write: %v", err)
			}
			_, err := LoadConfig(path)
			if diag.CodeOf(err) != diag.RunnerConfigInvalid {
				t.Fatalf("error = %v, want RunnerConfigInvalid", err)
			}
		})
	}
}

// fakeChecks answers the resolver checks from fixed sets.
func fakeChecks(dirs []string, exes ...string) Checks {
	return Checks{
		DirExists:    func(p string) bool { return contains(dirs, p) },
		IsExecutable: func(p string) bool { return contains(exes, p) },
	}
}

func contains(list []string, s string) bool {
	for _, x := range list {
		if x == s {
			return true
		}
	}
	return false
}

type scriptedPrompter struct {
	answers []string
	asked   []string
}

func (p *scriptedPrompter) Prompt(_ context.Context, question, _ string) (string, error) {
	p.asked = append(p.asked, question)
	if len(p.answers) == 0 {
		return "", errors.New("no more answers")
	}
	a := p.answers[0]
	p.answers = p.answers[1:]
	return a, nil
}

func TestResolveKeepsValidConfig(t *testing.T) {
	existing := &Config{NewGRFDir: "/g/newgrf", Executable: "/bin/openttd"}
	p := &scriptedPrompter{}
	cfg, changed, err := Resolve(context.Background(), existing, ResolveOptions{
		Prompter: p,
		Checks:   Checks{DirExists: func(string) bool { return true }, IsExecutable: func(string) bool { return true }},
	})
	if err != nil || changed || cfg != *existing || len(p.asked) != 0 {
		t.Fatalf("Resolve = %+v changed=%v err=%v asked=%v", cfg, changed, err, p.asked)
	}
}

func TestResolveUsesValidDefaultsWithoutPrompt(t *testing.T) {
	defaults := Platform{NewGRFDir: "/home/u/.openttd/newgrf", Executable: "/usr/bin/openttd"}
	p := &scriptedPrompter{}
	cfg, changed, err := Resolve(context.Background(), nil, ResolveOptions{
		Defaults: defaults,
		Prompter: p,
		Checks:   fakeChecks([]string{defaults.NewGRFDir}, defaults.Executable),
	})
	if err != nil || !changed || len(p.asked) != 0 {
		t.Fatalf("Resolve err=%v changed=%v asked=%v", err, changed, p.asked)
	}
	if cfg.NewGRFDir != defaults.NewGRFDir || cfg.Executable != defaults.Executable {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestResolvePromptsUntilValid(t *testing.T) {
	p := &scriptedPrompter{answers: []string{
		"/games/grfs",       // not named newgrf
		"~/ottd/newgrf",     // expands to an existing dir
		"/opt/openttd/nope", // not executable
		"/opt/openttd/openttd",
	}}
	cfg, changed, err := Resolve(context.Background(), &Config{NewGRFDir: "/missing/newgrf", Executable: "/missing"}, ResolveOptions{
		Prompter: p,
		Home:     "/home/u",
		Checks:   fakeChecks([]string{"/games/grfs", "/home/u/ottd/newgrf"}, "/opt/openttd/openttd"),
	})
	if err != nil || !changed {
		t.Fatalf("Resolve err=%v changed=%v", err, changed)
	}
	if cfg.NewGRFDir != "/home/u/ottd/newgrf" || cfg.Executable != "/opt/openttd/openttd" {
		t.Fatalf("cfg = %+v", cfg)
	}
	if len(p.asked) != 4 {
		t.Fatalf("asked %d times, want 4", len(p.asked))
	}
}

func TestResolveGivesUp(t *testing.T) {
	answers := make([]string, MaxAttempts)
	for i := range answers {
		answers[i] = "/nowhere/newgrf"
	}
	_, _, err := Resolve(context.Background(), nil, ResolveOptions{
		Prompter: &scriptedPrompter{answers: answers},
		Checks:   fakeChecks(nil),
	})
	if diag.CodeOf(err) != diag.RunnerConfigInvalid {
		t.Fatalf("error = %v, want RunnerConfigInvalid", err)
	}

	_, _, err = Resolve(context.Background(), nil, ResolveOptions{Checks: fakeChecks(nil)})
	if diag.CodeOf(err) != diag.RunnerConfigInvalid {
		t.Fatalf("no prompter error = %v", err)
	}
}

type recordingCommander struct {
	ran     [][]string
	started [][]string
	dir     string
	runErr  error
}

func (c *recordingCommander) Run(_ context.Context, argv []string) error {
	c.ran = append(c.ran, argv)
	return c.runErr
}

func (c *recordingCommander) Start(argv []string, dir string) error {
	c.started = append(c.started, argv)
	c.dir = dir
	return nil
}

func TestGameRun(t *testing.T) {
	root := t.TempDir()
	grf := filepath.Join(root, "build", "brtrains.grf")
	newgrf := filepath.Join(root, "newgrf")
	for _, d := range []string{filepath.Dir(grf), newgrf} {
		if err := os.MkdirAll(d, 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
	}
	if err := os.WriteFile(grf, []byte("GRF"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}

	cmd := &recordingCommander{runErr: errors.New("no process found")}
	g := &Game{
		Platform:  Platform{KillCmd: []string{"killall", "openttd"}},
		Config:    Config{NewGRFDir: newgrf, Executable: "/opt/openttd/openttd"},
		Commander: cmd,
	}
	if err := g.Run(context.Background(), grf); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(cmd.ran) != 1 || cmd.ran[0][0] != "killall" {
		t.Fatalf("kill commands = %v", cmd.ran)
	}
	data, err := os.ReadFile(filepath.Join(newgrf, "brtrains.grf"))
	if err != nil || string(data) != "GRF" {
		t.Fatalf("copied grf = %q, %v", data, err)
	}
	if len(cmd.started) != 1 || strings.Join(cmd.started[0], " ") != "/opt/openttd/openttd -t 2050 -g" {
		t.Fatalf("started = %v", cmd.started)
	}
	if cmd.dir != "/opt/openttd" {
		t.Fatalf("working dir = %s", cmd.dir)
	}
}

package gamerun

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"

	"grfbuild/internal/diag"
	"grfbuild/internal/logging"
)

// Prompter asks the user for a value. initial is offered as the default.
type Prompter interface {
	Prompt(ctx context.Context, question, initial string) (string, error)
}

// PrompterFunc adapts a function to Prompter.
type PrompterFunc func(ctx context.Context, question, initial string) (string, error)

func (f PrompterFunc) Prompt(ctx context.Context, question, initial string) (string, error) {
	return f(ctx, question, initial)
}

// Checks decide whether a configured path is usable.
type Checks struct {
	DirExists    func(string) bool
	IsExecutable func(string) bool
}

// OSChecks inspects the real filesystem.
func OSChecks() Checks {
	return Checks{
		DirExists: func(p string) bool {
			st, err := os.Stat(p)
			return err == nil && st.IsDir()
		},
		IsExecutable: isExecutable,
	}
}

// MaxAttempts bounds how often a single value is asked for.
const MaxAttempts = 5

// ResolveOptions configures Resolve.
type ResolveOptions struct {
	Defaults Platform
	Prompter Prompter
	Checks   Checks
	// Home expands a leading "~" in answers.
	Home   string
	Logger *log.Logger
}

// Resolve returns a usable config. A valid existing config is returned as is
// with changed=false. Otherwise every invalid value is asked for until it
// passes the checks; changed=true tells the caller to persist the result.
func Resolve(ctx context.Context, existing *Config, opts ResolveOptions) (cfg Config, changed bool, err error) {
	logger := logging.OrNop(opts.Logger)
	checks := opts.Checks
	if checks.DirExists == nil || checks.IsExecutable == nil {
		checks = OSChecks()
	}

	cfg = Config{NewGRFDir: opts.Defaults.NewGRFDir, Executable: opts.Defaults.Executable}
	if existing != nil {
		cfg = *existing
	}
	validDir := func(p string) bool {
		return filepath.Base(filepath.Clean(p)) == "newgrf" && checks.DirExists(p)
	}
	validExe := func(p string) bool { return checks.IsExecutable(p) }

	if existing != nil && validDir(cfg.NewGRFDir) && validExe(cfg.Executable) {
		return cfg, false, nil
	}
	if existing != nil {
		logger.Warn("Stored runner config is not usable", "newgrf_dir", cfg.NewGRFDir, "executable", cfg.Executable)
	}

	if !validDir(cfg.NewGRFDir) {
		logger.Info("No usable newgrf directory, asking for one")
		cfg.NewGRFDir, err = ask(ctx, opts, "Enter the newgrf directory", opts.Defaults.NewGRFDir, validDir, logger)
		if err != nil {
			return Config{}, false, err
		}
	}
	if !validExe(cfg.Executable) {
		logger.Info("No usable game executable, asking for one")
		cfg.Executable, err = ask(ctx, opts, "Enter the OpenTTD executable path", opts.Defaults.Executable, validExe, logger)
		if err != nil {
			return Config{}, false, err
		}
	}
	return cfg, true, nil
}

func ask(ctx context.Context, opts ResolveOptions, question, initial string, valid func(string) bool, logger *log.Logger) (string, error) {
	if opts.Prompter == nil {
		return "", diag.Errorf(diag.RunnerConfigInvalid, "", "%s: no interactive prompt available", strings.ToLower(question))
	}
	for attempt := 0; attempt < MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		answer, err := opts.Prompter.Prompt(ctx, question, initial)
		if err != nil {
			return "", err
		}
		answer = expandHome(strings.TrimSpace(answer), opts.Home)
		if answer != "" && valid(answer) {
			return answer, nil
		}
		logger.Warn("Rejected answer", "value", answer)
	}
	return "", diag.Errorf(diag.RunnerConfigInvalid, "", "%s: no valid answer after %d attempts", strings.ToLower(question), MaxAttempts)
}

func expandHome(p, home string) string {
	if home == "" || p == "" || p[0] != '~' {
		return p
	}
	if p == "~" {
		return home
	}
	if p[1] == '/' || p[1] == filepath.Separator {
		return filepath.Join(home, p[2:])
	}
	return p
}

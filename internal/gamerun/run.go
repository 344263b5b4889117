package gamerun

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/charmbracelet/log"

	"grfbuild/internal/diag"
	"grfbuild/internal/logging"
)

// Commander runs external processes.
type Commander interface {
	// Run executes argv and waits for it.
	Run(ctx context.Context, argv []string) error
	// Start launches argv in dir with output discarded and does not wait.
	Start(argv []string, dir string) error
}

// Game installs a GRF and starts the game.
type Game struct {
	Platform Platform
	Config   Config
	Logger   *log.Logger
	// Commander defaults to the real process launcher.
	Commander Commander
}

// Run kills running instances, copies grfPath into the newgrf directory and
// starts the game. A failed kill is only a warning.
func (g *Game) Run(ctx context.Context, grfPath string) error {
	logger := logging.OrNop(g.Logger)
	cmd := g.Commander
	if cmd == nil {
		cmd = execCommander{}
	}

	if len(g.Platform.KillCmd) > 0 {
		logger.Info("Killing existing processes")
		if err := cmd.Run(ctx, g.Platform.KillCmd); err != nil {
			logger.Warn("Something went wrong when trying to kill processes", "err", err)
		}
	}

	logger.Info("Copying grf", "to", g.Config.NewGRFDir)
	if err := copyFile(grfPath, filepath.Join(g.Config.NewGRFDir, filepath.Base(grfPath))); err != nil {
		return err
	}

	logger.Info("Running game", "executable", g.Config.Executable)
	argv := []string{g.Config.Executable, "-t", "2050", "-g"}
	if err := cmd.Start(argv, filepath.Dir(g.Config.Executable)); err != nil {
		return diag.Wrap(diag.CollaboratorUnavailable, g.Config.Executable, fmt.Errorf("failed to start game: %w", err))
	}
	return nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return diag.Wrap(diag.ReadFailed, src, err)
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return diag.Wrap(diag.WriteFailed, dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return diag.Wrap(diag.WriteFailed, dst, err)
	}
	if err := out.Close(); err != nil {
		return diag.Wrap(diag.WriteFailed, dst, err)
	}
	return nil
}

type execCommander struct{}

func (execCommander) Run(ctx context.Context, argv []string) error {
	// #nosec G204 -- argv comes from the platform table
	c := exec.CommandContext(ctx, argv[0], argv[1:]...)
	return c.Run()
}

func (execCommander) Start(argv []string, dir string) error {
	// #nosec G204 -- executable path is validated by Resolve
	c := exec.Command(argv[0], argv[1:]...)
	c.Dir = dir
	// nil Stdout and Stderr go to the null device.
	if err := c.Start(); err != nil {
		return err
	}
	go func() { _ = c.Wait() }()
	return nil
}

package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"grfbuild/internal/diag"
)

// CompileJob names the inputs and output of one nmlc invocation.
type CompileJob struct {
	// Source is the aggregated .nml artifact.
	Source string
	// Output is the .grf to produce.
	Output string
	// LangDir is passed to nmlc when non-empty.
	LangDir string
}

// Compiler turns an .nml artifact into a .grf.
type Compiler interface {
	Compile(ctx context.Context, job CompileJob) error
}

// NMLC runs the nmlc executable.
type NMLC struct {
	// Binary defaults to "nmlc" looked up on PATH.
	Binary string
	// Stdout receives nmlc's standard output; nil discards it.
	Stdout io.Writer
	// PrintCommands echoes the command line before running it.
	PrintCommands bool
}

// Args returns the nmlc argument list for job.
func (n NMLC) Args(job CompileJob) []string {
	var args []string
	if job.LangDir != "" {
		args = append(args, "--lang", job.LangDir)
	}
	args = append(args, "--grf", job.Output, job.Source)
	return args
}

// Compile runs nmlc. A missing binary is CollaboratorUnavailable; a non-zero
// exit or a signal is CollaboratorTermination.
func (n NMLC) Compile(ctx context.Context, job CompileJob) error {
	bin := n.Binary
	if bin == "" {
		bin = "nmlc"
	}
	path, err := exec.LookPath(bin)
	if err != nil {
		return &diag.Error{
			Code:    diag.CollaboratorUnavailable,
			Path:    bin,
			Message: "nml is not installed. You can get it using 'pip install nml'",
			Err:     err,
		}
	}
	args := n.Args(job)
	if n.PrintCommands {
		if _, printErr := fmt.Fprintf(os.Stdout, "%s %s\n", bin, strings.Join(args, " ")); printErr != nil {
			return fmt.Errorf("failed to print command: %w", printErr)
		}
	}
	// #nosec G204 -- arguments are build paths
	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdout = n.Stdout
	var stderr strings.Builder
	cmd.Stderr = &stderr
	if err := cmd.Run(); err != nil {
		msg := strings.TrimSpace(stderr.String())
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			if msg == "" {
				msg = exitErr.Error()
			}
			return &diag.Error{Code: diag.CollaboratorTermination, Path: job.Source, Message: "nmlc: " + msg, Err: err}
		}
		return diag.Wrap(diag.CollaboratorUnavailable, bin, err)
	}
	return nil
}

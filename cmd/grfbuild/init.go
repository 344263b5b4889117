package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"grfbuild/internal/project"
)

var initCmd = &cobra.Command{
	Use:   "init [path|name]",
	Short: "Initialize a new grfbuild project",
	Long: `Initialize a grfbuild project by writing grfbuild.toml with every default
spelled out and creating the src, lang and gfx directories. If [path|name] is
omitted, the current directory is initialized; a missing directory is created.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runInit,
}

func runInit(cmd *cobra.Command, args []string) error {
	wd, err := os.Getwd()
	if err != nil {
		return err
	}
	target := wd
	if len(args) > 0 && args[0] != "." {
		target = args[0]
		if !filepath.IsAbs(target) {
			target = filepath.Join(wd, target)
		}
	}
	return initProject(cmd.OutOrStdout(), wd, target)
}

// initProject writes the manifest and the source directories into target.
// It refuses to touch an existing manifest.
func initProject(out io.Writer, wd, target string) error {
	if st, err := os.Stat(target); err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return err
		}
		if err := os.MkdirAll(target, 0o755); err != nil {
			return fmt.Errorf("failed to create directory %q: %w", target, err)
		}
	} else if !st.IsDir() {
		return fmt.Errorf("%q is not a directory", target)
	}

	name := strings.TrimSpace(filepath.Base(target))
	if name == "" || name == "." || name == string(filepath.Separator) {
		name = "newgrf"
	}

	manifestPath := filepath.Join(target, project.ManifestName)
	if _, err := os.Stat(manifestPath); err == nil {
		return fmt.Errorf("project already initialized: %s exists", manifestPath)
	}
	if err := os.WriteFile(manifestPath, []byte(project.Template(name)), 0o600); err != nil {
		return fmt.Errorf("failed to write manifest: %w", err)
	}

	def := project.DefaultConfig().Paths
	created := []string{project.ManifestName}
	for _, dir := range []string{def.Src, def.Lang, def.Gfx} {
		p := filepath.Join(target, dir)
		if _, err := os.Stat(p); err == nil {
			continue
		}
		if err := os.MkdirAll(p, 0o755); err != nil {
			return fmt.Errorf("failed to create %q: %w", p, err)
		}
		created = append(created, dir+"/")
	}

	rel := target
	if r, err := filepath.Rel(wd, target); err == nil {
		rel = r
	}
	if _, err := fmt.Fprintf(out, "Initialized grfbuild project %q in %s\n", name, rel); err != nil {
		return err
	}
	for _, c := range created {
		if _, err := fmt.Fprintf(out, "  - %s\n", c); err != nil {
			return err
		}
	}
	return nil
}

package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"

	"github.com/spf13/cobra"

	"grfbuild/internal/buildcache"
	"grfbuild/internal/buildpipeline"
	"grfbuild/internal/project"
)

var cleanCmd = &cobra.Command{
	Use:   "clean [path]",
	Short: "Remove generated .nml and .grf files and the build cache",
	Long: `Remove the .nml and .grf files grfbuild generated in the build directory,
together with its build cache. The runner config and any other file in the
build directory are kept.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runClean,
}

func runClean(cmd *cobra.Command, args []string) error {
	base := "."
	if len(args) > 0 && args[0] != "" {
		base = args[0]
	}
	manifest, _, err := project.Load(base)
	if err != nil {
		return err
	}
	return cleanBuildDir(cmd.OutOrStdout(), manifest.Root, manifest.Resolve(manifest.Config.Paths.Build))
}

func cleanBuildDir(out io.Writer, root, buildDir string) error {
	info, err := os.Stat(buildDir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			_, err = fmt.Fprintln(out, "build directory not found")
			return err
		}
		return fmt.Errorf("failed to stat %q: %w", buildDir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%q is not a directory", buildDir)
	}

	var victims []string
	for _, pattern := range []string{"*.nml", "*" + buildpipeline.GRFExt} {
		matches, err := filepath.Glob(filepath.Join(buildDir, pattern))
		if err != nil {
			return err
		}
		victims = append(victims, matches...)
	}
	sort.Strings(victims)
	for _, v := range victims {
		if err := os.Remove(v); err != nil {
			return fmt.Errorf("failed to remove %q: %w", v, err)
		}
		if _, err := fmt.Fprintf(out, "removed %s\n", formatPathForOutput(root, v)); err != nil {
			return err
		}
	}

	cache := buildcache.Open(buildDir)
	if _, err := os.Stat(cache.Dir()); err == nil {
		if err := cache.DropAll(); err != nil {
			return err
		}
		if _, err := fmt.Fprintf(out, "removed %s\n", formatPathForOutput(root, cache.Dir())); err != nil {
			return err
		}
		victims = append(victims, cache.Dir())
	}
	if len(victims) == 0 {
		_, err = fmt.Fprintln(out, "nothing to clean")
	}
	return err
}

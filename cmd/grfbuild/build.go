package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"grfbuild/internal/buildpipeline"
	"grfbuild/internal/fragment"
	"grfbuild/internal/gamerun"
	"grfbuild/internal/project"
	"grfbuild/internal/ui"
)

var buildCmd = &cobra.Command{
	Use:   "build [flags] [name]",
	Short: "Assemble the source fragments into <name>.nml",
	Long: `Assemble every .pnml fragment of the source tree into <build>/<name>.nml.
The name defaults to [package].name of grfbuild.toml. With --compile the result
is compiled with nmlc; --run also installs the GRF and starts the game.`,
	Args: cobra.MaximumNArgs(1),
	RunE: buildExecution,
}

func init() {
	buildCmd.Flags().String("src", "", "source directory (default from manifest, src)")
	buildCmd.Flags().String("lang", "", "language directory (default from manifest, lang)")
	buildCmd.Flags().String("gfx", "", "graphics directory (default from manifest, gfx)")
	buildCmd.Flags().String("build-dir", "", "output directory (default from manifest, build)")
	buildCmd.Flags().Bool("compile", false, "compile the result with nmlc")
	buildCmd.Flags().Bool("run", false, "compile, install the GRF and start the game")
	buildCmd.Flags().Bool("force", false, "compile even when the build cache is current")
	buildCmd.Flags().String("nmlc", "nmlc", "nmlc binary to invoke")
	buildCmd.Flags().Bool("print-commands", false, "print the nmlc command line")
	buildCmd.Flags().String("ui", "auto", "user interface (auto|on|off)")
}

// buildPaths are the directories one build works with.
type buildPaths struct {
	Src, Lang, Gfx, Build string
}

// resolveBuildPaths anchors manifest paths at the project root. Flags the
// user set override them relative to the working directory.
func resolveBuildPaths(cmd *cobra.Command, m *project.Manifest) (buildPaths, error) {
	p := buildPaths{
		Src:   m.Resolve(m.Config.Paths.Src),
		Lang:  m.Resolve(m.Config.Paths.Lang),
		Gfx:   m.Resolve(m.Config.Paths.Gfx),
		Build: m.Resolve(m.Config.Paths.Build),
	}
	overrides := []struct {
		flag   string
		target *string
	}{
		{"src", &p.Src},
		{"lang", &p.Lang},
		{"gfx", &p.Gfx},
		{"build-dir", &p.Build},
	}
	for _, o := range overrides {
		if !cmd.Flags().Changed(o.flag) {
			continue
		}
		value, err := cmd.Flags().GetString(o.flag)
		if err != nil {
			return p, err
		}
		if strings.TrimSpace(value) == "" {
			return p, fmt.Errorf("--%s must not be empty", o.flag)
		}
		abs, err := filepath.Abs(value)
		if err != nil {
			return p, err
		}
		*o.target = abs
	}
	return p, nil
}

func buildExecution(cmd *cobra.Command, args []string) error {
	logger, err := newLogger(cmd)
	if err != nil {
		return err
	}
	stopProfiling, err := startProfiling(cmd)
	if err != nil {
		return err
	}
	defer stopProfiling()

	compile, err := cmd.Flags().GetBool("compile")
	if err != nil {
		return err
	}
	run, err := cmd.Flags().GetBool("run")
	if err != nil {
		return err
	}
	force, err := cmd.Flags().GetBool("force")
	if err != nil {
		return err
	}
	nmlcBinary, err := cmd.Flags().GetString("nmlc")
	if err != nil {
		return err
	}
	printCommands, err := cmd.Flags().GetBool("print-commands")
	if err != nil {
		return err
	}
	uiValue, err := cmd.Flags().GetString("ui")
	if err != nil {
		return err
	}
	showTimings, err := cmd.Root().PersistentFlags().GetBool("timings")
	if err != nil {
		return err
	}
	mode, err := readMode("--ui", uiValue)
	if err != nil {
		return err
	}

	manifest, found, err := project.Load(".")
	if err != nil {
		return err
	}
	if !found {
		logger.Debug("No manifest found, using built-in defaults", "manifest", project.ManifestName)
	}

	name := manifest.Config.Package.Name
	if len(args) > 0 {
		name = args[0]
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return errors.New("missing output name: pass one or set [package].name in " + project.ManifestName)
	}

	paths, err := resolveBuildPaths(cmd, manifest)
	if err != nil {
		return err
	}

	req := &buildpipeline.BuildRequest{
		Name:     name,
		Layout:   fragment.Layout{SrcDir: paths.Src, GfxDir: paths.Gfx, LangDir: paths.Lang},
		BuildDir: paths.Build,
		Rules:    manifest.Config.FragmentRules(),
		Compile:  compile,
		Run:      run,
		Force:    force,
		Compiler: buildpipeline.NMLC{
			Binary:        nmlcBinary,
			Stdout:        cmd.OutOrStdout(),
			PrintCommands: printCommands,
		},
		Logger: logger,
	}
	if run {
		game, err := prepareGame(cmd.Context(), paths.Build, logger)
		if err != nil {
			return err
		}
		req.Runner = game
	}

	out := cmd.OutOrStdout()
	var res buildpipeline.BuildResult
	if enabled(mode, os.Stdout) {
		res, err = runBuildWithUI(cmd.Context(), out, "grfbuild build "+name, req)
	} else {
		res, err = buildpipeline.Build(cmd.Context(), req)
	}
	if showTimings {
		if terr := printStageTimings(out, res.Timings); terr != nil {
			return terr
		}
	}
	if err != nil {
		return err
	}

	root := manifest.Root
	if _, err := fmt.Fprintf(out, "built %s (%d fragments)\n", formatPathForOutput(root, res.OutputPath), len(res.Fragments)); err != nil {
		return err
	}
	switch {
	case res.CompileSkipped:
		_, err = fmt.Fprintf(out, "%s is up to date\n", formatPathForOutput(root, res.GRFPath))
	case res.Compiled:
		_, err = fmt.Fprintf(out, "compiled %s\n", formatPathForOutput(root, res.GRFPath))
	}
	if err != nil {
		return err
	}
	if res.Started {
		_, err = fmt.Fprintln(out, "game started")
	}
	return err
}

// prepareGame resolves the runner config stored in buildDir, asking for
// missing values, and persists it when it changed.
func prepareGame(ctx context.Context, buildDir string, logger *log.Logger) (*gamerun.Game, error) {
	home, _ := os.UserHomeDir()
	platform, err := gamerun.Defaults(runtime.GOOS, home)
	if err != nil {
		return nil, err
	}
	cfgPath := gamerun.ConfigPath(buildDir)
	existing, err := gamerun.LoadConfig(cfgPath)
	if err != nil {
		logger.Warn("Ignoring runner config", "err", err)
		existing = nil
	}
	cfg, changed, err := gamerun.Resolve(ctx, existing, gamerun.ResolveOptions{
		Defaults: platform,
		Prompter: newPrompter(os.Stdin, os.Stdout),
		Home:     home,
		Logger:   logger,
	})
	if err != nil {
		return nil, err
	}
	if changed {
		if err := gamerun.SaveConfig(cfgPath, cfg); err != nil {
			return nil, err
		}
		logger.Info("Saved runner config", "path", cfgPath)
	}
	return &gamerun.Game{Platform: platform, Config: cfg, Logger: logger}, nil
}

func newPrompter(in *os.File, out io.Writer) gamerun.Prompter {
	if isTerminal(in) {
		return ui.TextPrompter{In: in, Out: out}
	}
	return ui.LinePrompter{In: bufio.NewReader(in), Out: out}
}

func formatPathForOutput(root, path string) string {
	if root == "" || path == "" {
		return path
	}
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return path
	}
	if strings.HasPrefix(rel, "..") {
		return path
	}
	return filepath.ToSlash(rel)
}

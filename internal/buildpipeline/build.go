// Package buildpipeline orchestrates a build: validate the project, assemble
// the fragments, write the artifact and optionally compile and run it.
package buildpipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"

	"grfbuild/internal/buildcache"
	"grfbuild/internal/diag"
	"grfbuild/internal/fragment"
	"grfbuild/internal/logging"
	"grfbuild/internal/project"
)

// Runner installs a compiled GRF and starts the game.
type Runner interface {
	Run(ctx context.Context, grfPath string) error
}

// BuildRequest configures one build.
type BuildRequest struct {
	// Name is the output identifier; the artifact is <BuildDir>/<Name>.nml.
	Name     string
	Layout   fragment.Layout
	BuildDir string
	Rules    fragment.Rules

	// Compile runs the Compiler after writing. Run implies Compile.
	Compile bool
	Run     bool
	// Force compiles even when the cache says the GRF is current.
	Force bool

	Compiler Compiler
	Runner   Runner
	Logger   *log.Logger
	Progress ProgressSink
	// MaxDiagnostics caps the warnings kept in the result; 0 keeps all.
	MaxDiagnostics int
}

// BuildResult captures build artefacts and timings.
type BuildResult struct {
	OutputPath string
	GRFPath    string
	// Fragments lists emitted file names in output order.
	Fragments   []string
	Digest      project.Digest
	Diagnostics *diag.Bag
	// Compiled is set when a current GRF exists after the build.
	Compiled       bool
	CompileSkipped bool
	Started        bool
	Timings        Timings
}

// GRFExt is the extension of the compiled output.
const GRFExt = ".grf"

// Build runs the pipeline. Fatal errors abort before anything is written;
// collaborator failures during compile are logged and recorded in the
// result's diagnostics instead.
func Build(ctx context.Context, req *BuildRequest) (BuildResult, error) {
	var result BuildResult
	if ctx == nil {
		ctx = context.Background()
	}
	if req == nil {
		return result, fmt.Errorf("missing build request")
	}
	if req.Name == "" {
		return result, fmt.Errorf("missing output name")
	}
	logger := logging.OrNop(req.Logger)
	bag := diag.NewBag(req.MaxDiagnostics)
	result.Diagnostics = bag

	if err := req.Rules.Validate(); err != nil {
		return result, &diag.Error{Code: diag.InvalidManifest, Message: err.Error(), Err: err}
	}

	start := time.Now()
	emitStage(req.Progress, StageValidate, StatusWorking, nil, 0)
	hasLang, err := fragment.Validate(req.Layout, req.Rules, logger, bag)
	result.Timings.Set(StageValidate, time.Since(start))
	if err != nil {
		emitStage(req.Progress, StageValidate, StatusError, err, 0)
		return result, err
	}
	emitStage(req.Progress, StageValidate, StatusDone, nil, result.Timings.Duration(StageValidate))

	start = time.Now()
	emitStage(req.Progress, StageScan, StatusWorking, nil, 0)
	scan, err := fragment.Scan(req.Layout.SrcDir, req.Rules, logger, bag)
	result.Timings.Set(StageScan, time.Since(start))
	if err != nil {
		emitStage(req.Progress, StageScan, StatusError, err, 0)
		return result, err
	}
	emitStage(req.Progress, StageScan, StatusDone, nil, result.Timings.Duration(StageScan))

	files := make([]string, len(scan.All))
	for i, f := range scan.All {
		files[i] = f.Rel
	}
	emitQueued(req.Progress, files)

	start = time.Now()
	emitStage(req.Progress, StageAggregate, StatusWorking, nil, 0)
	emitted := make(map[string]struct{}, len(files))
	buf, err := fragment.Aggregate(req.Layout.SrcDir, req.Rules, scan, fragment.AggregateOptions{
		Logger: logger,
		OnBlock: func(b fragment.Block) {
			emitted[b.Rel] = struct{}{}
			emitFile(req.Progress, b.Rel, StageAggregate, StatusDone, nil)
		},
	})
	result.Timings.Set(StageAggregate, time.Since(start))
	if err != nil {
		emitStage(req.Progress, StageAggregate, StatusError, err, 0)
		return result, err
	}
	for _, f := range files {
		if _, ok := emitted[f]; !ok {
			emitFile(req.Progress, f, StageAggregate, StatusSkipped, nil)
		}
	}
	result.Fragments = buf.Names()
	emitStage(req.Progress, StageAggregate, StatusDone, nil, result.Timings.Duration(StageAggregate))

	start = time.Now()
	emitStage(req.Progress, StageWrite, StatusWorking, nil, 0)
	out, err := fragment.Write(req.BuildDir, req.Name, buf, logger)
	if err == nil {
		result.Digest, err = project.HashFile(out)
		if err != nil {
			err = diag.Wrap(diag.ReadFailed, out, err)
		}
	}
	result.Timings.Set(StageWrite, time.Since(start))
	if err != nil {
		emitStage(req.Progress, StageWrite, StatusError, err, 0)
		return result, err
	}
	result.OutputPath = out
	result.GRFPath = filepath.Join(req.BuildDir, req.Name+GRFExt)
	emitStage(req.Progress, StageWrite, StatusDone, nil, result.Timings.Duration(StageWrite))

	langDir := ""
	if hasLang {
		langDir = req.Layout.LangDir
	}
	if err := compileStage(ctx, req, &result, langDir, logger); err != nil {
		return result, err
	}

	if !req.Run {
		emitStage(req.Progress, StageRun, StatusSkipped, nil, 0)
		return result, nil
	}
	start = time.Now()
	emitStage(req.Progress, StageRun, StatusWorking, nil, 0)
	err = runStage(ctx, req, &result)
	result.Timings.Set(StageRun, time.Since(start))
	if err != nil {
		emitStage(req.Progress, StageRun, StatusError, err, 0)
		return result, err
	}
	result.Started = true
	emitStage(req.Progress, StageRun, StatusDone, nil, result.Timings.Duration(StageRun))
	return result, nil
}

// compileStage records the build in the cache and runs the compiler when
// asked to. Only context cancellation is returned as an error.
func compileStage(ctx context.Context, req *BuildRequest, result *BuildResult, langDir string, logger *log.Logger) error {
	cache := buildcache.Open(req.BuildDir)
	key, err := buildcache.Key(result.Digest, langDir)
	if err != nil {
		logger.Warn("Could not hash language files; the build cache is bypassed", "err", err)
	}
	upToDate := err == nil && cache.UpToDate(req.Name, key) && fileExists(result.GRFPath)
	rec := &buildcache.Record{
		Name:      req.Name,
		Fragments: result.Fragments,
		Artifact:  result.Digest,
		Key:       key,
		Compiled:  upToDate,
	}
	if prev, ok, _ := cache.Get(req.Name); ok && upToDate {
		rec.CompiledAt = prev.CompiledAt
	}
	defer func() {
		if err := cache.Put(rec); err != nil {
			logger.Warn("Could not update build cache", "dir", cache.Dir(), "err", err)
		}
	}()

	if !req.Compile && !req.Run {
		emitStage(req.Progress, StageCompile, StatusSkipped, nil, 0)
		return nil
	}
	if upToDate && !req.Force {
		logger.Info("GRF is up to date, skipping nmlc", "grf", result.GRFPath)
		result.Compiled = true
		result.CompileSkipped = true
		emitStage(req.Progress, StageCompile, StatusSkipped, nil, 0)
		return nil
	}

	compiler := req.Compiler
	if compiler == nil {
		compiler = NMLC{}
	}
	rec.Compiled = false
	start := time.Now()
	emitStage(req.Progress, StageCompile, StatusWorking, nil, 0)
	err = compiler.Compile(ctx, CompileJob{Source: result.OutputPath, Output: result.GRFPath, LangDir: langDir})
	result.Timings.Set(StageCompile, time.Since(start))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			emitStage(req.Progress, StageCompile, StatusError, ctxErr, 0)
			return ctxErr
		}
		recoverCollaborator(err, result.Diagnostics, logger)
		emitStage(req.Progress, StageCompile, StatusError, err, 0)
		return nil
	}
	logger.Info("Finished compiling grf file", "grf", result.GRFPath)
	result.Compiled = true
	rec.Compiled = true
	rec.CompiledAt = time.Now()
	emitStage(req.Progress, StageCompile, StatusDone, nil, result.Timings.Duration(StageCompile))
	return nil
}

// recoverCollaborator logs a compiler failure and keeps it as a diagnostic.
func recoverCollaborator(err error, bag *diag.Bag, logger *log.Logger) {
	var de *diag.Error
	if !errors.As(err, &de) {
		de = diag.Wrap(diag.CollaboratorTermination, "", err)
	}
	switch de.Code {
	case diag.CollaboratorUnavailable:
		logger.Warn(de.Message)
	default:
		logger.Error("nmlc stopped before finishing; the build continues", "err", de.Message)
	}
	bag.Add(diag.Warning(de.Code, de.Path, de.Message))
}

func runStage(ctx context.Context, req *BuildRequest, result *BuildResult) error {
	if req.Runner == nil {
		return fmt.Errorf("no game runner configured")
	}
	if !fileExists(result.GRFPath) {
		return diag.Errorf(diag.ReadFailed, result.GRFPath, "no compiled GRF to install")
	}
	return req.Runner.Run(ctx, result.GRFPath)
}

func fileExists(p string) bool {
	st, err := os.Stat(p)
	return err == nil && !st.IsDir()
}

func emitQueued(sink ProgressSink, files []string) {
	if sink == nil {
		return
	}
	for _, file := range files {
		sink.OnEvent(Event{File: file, Stage: StageAggregate, Status: StatusQueued})
	}
}

func emitStage(sink ProgressSink, stage Stage, status Status, err error, elapsed time.Duration) {
	if sink == nil {
		return
	}
	sink.OnEvent(Event{Stage: stage, Status: status, Err: err, Elapsed: elapsed})
}

func emitFile(sink ProgressSink, file string, stage Stage, status Status, err error) {
	if sink == nil {
		return
	}
	sink.OnEvent(Event{File: file, Stage: stage, Status: status, Err: err})
}

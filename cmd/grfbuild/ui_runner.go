package main

import (
	"context"
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"

	"grfbuild/internal/buildpipeline"
	"grfbuild/internal/ui"
)

type buildOutcome struct {
	result buildpipeline.BuildResult
	err    error
}

type buildFunc func(ctx context.Context, sink buildpipeline.ProgressSink) (buildpipeline.BuildResult, error)

func runBuildWithUI(ctx context.Context, out io.Writer, title string, req *buildpipeline.BuildRequest) (buildpipeline.BuildResult, error) {
	if req == nil {
		return buildpipeline.BuildResult{}, fmt.Errorf("missing build request")
	}
	build := func(ctx context.Context, sink buildpipeline.ProgressSink) (buildpipeline.BuildResult, error) {
		reqCopy := *req
		reqCopy.Progress = sink
		return buildpipeline.Build(ctx, &reqCopy)
	}
	show := func(events <-chan buildpipeline.Event) error {
		program := tea.NewProgram(ui.NewProgressModel(title, events), tea.WithOutput(out))
		_, err := program.Run()
		return err
	}
	return driveBuild(ctx, build, show)
}

// driveBuild runs build in the background while show consumes its events.
// Once show returns the build context is cancelled, so quitting the view
// stops a compile or game launch still in flight.
func driveBuild(ctx context.Context, build buildFunc, show func(<-chan buildpipeline.Event) error) (buildpipeline.BuildResult, error) {
	buildCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	events := make(chan buildpipeline.Event, 256)
	outcomeCh := make(chan buildOutcome, 1)
	go func() {
		res, err := build(buildCtx, buildpipeline.ChannelSink{Ch: events})
		outcomeCh <- buildOutcome{result: res, err: err}
		close(events)
	}()

	uiErr := show(events)
	cancel()
	// The UI may stop early; keep the pipeline from blocking on a full channel.
	go func() {
		for range events {
		}
	}()
	outcome := <-outcomeCh
	if uiErr != nil {
		return outcome.result, uiErr
	}
	return outcome.result, outcome.err
}

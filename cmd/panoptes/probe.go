package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/adamkirk/panoptes/internal/httpclient"
	"github.com/adamkirk/panoptes/internal/runnerconfig"
)

const startupProbePath = "/api/v1/_probes/startup"

var ErrProbeFailed = errors.New("probe failed")

func runProbe(ctx context.Context, runnerConfigPath, path string, out io.Writer) error {
	cfg, err := runnerconfig.Load(runnerConfigPath)
	if err != nil {
		return err
	}
	return probe(ctx, cfg, path, out)
}

// probe calls path on the api project and succeeds only on a 204.
func probe(ctx context.Context, cfg *runnerconfig.Config, path string, out io.Writer) error {
	project, ok, err := cfg.Project(runnerconfig.ProjectAPI, runnerconfig.DefaultUseOpts())
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%w: %s project is disabled", ErrProbeFailed, runnerconfig.ProjectAPI)
	}

	client := httpclient.New(cfg, project)
	resp, err := client.Get(ctx, path)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrProbeFailed, err)
	}
	if resp.StatusCode != http.StatusNoContent {
		return fmt.Errorf("%w: %s%s answered %d", ErrProbeFailed, project.Use.BaseURL, path, resp.StatusCode)
	}

	fmt.Fprintf(out, "%s%s: %d\n", project.Use.BaseURL, path, resp.StatusCode)
	return nil
}

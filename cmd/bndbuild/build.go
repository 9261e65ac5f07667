package main

import (
	"errors"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/osgikit/bndbuild/internal/builder"
	"github.com/osgikit/bndbuild/internal/config"
	"github.com/osgikit/bndbuild/internal/logging"
	"github.com/osgikit/bndbuild/internal/progress"
	"github.com/osgikit/bndbuild/internal/service"
)

type buildParams struct {
	configFiles []string
	parallelism int
	noProgress  bool
	noSummary   bool
}

func buildCommand(logLevel *logging.Level) *cobra.Command {
	var params buildParams

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build every configured bundle once",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runBuild(cmd, params, *logLevel)
		},
	}

	cmd.Flags().StringSliceVarP(&params.configFiles, "config", "c", []string{"bndbuild.yaml"}, "configuration file or directory (repeatable)")
	cmd.Flags().IntVarP(&params.parallelism, "parallelism", "p", 4, "maximum number of concurrent bundle builds")
	cmd.Flags().BoolVar(&params.noProgress, "no-progress", false, "disable the progress bar")
	cmd.Flags().BoolVar(&params.noSummary, "no-summary", false, "disable the result summary table")
	return cmd
}

var errBuildFailed = errors.New("one or more bundles failed to build")

func runBuild(cmd *cobra.Command, params buildParams, logLevel logging.Level) error {
	root, err := loadConfig(params.configFiles)
	if err != nil {
		return err
	}

	logger := logging.NewLogger(logging.Config{Level: logLevel, Output: cmd.ErrOrStderr()})
	bar := progress.New(cmd.ErrOrStderr(), len(root.Bundles), "building bundles", !params.noProgress)
	defer bar.Finish()

	// Advisory and fatal diagnostics go to stderr; trace lines too, where
	// their "# " prefix keeps them apart.
	reporter := builder.NewReporter(cmd.ErrOrStderr(), cmd.ErrOrStderr())

	workers, err := service.Workers(root, logger, bar, reporter, true, 0)
	if err != nil {
		return err
	}

	var g errgroup.Group
	g.SetLimit(max(params.parallelism, 1))
	for _, w := range workers {
		g.Go(func() error {
			w.Execute(cmd.Context())
			return nil
		})
	}
	_ = g.Wait()

	failed := false
	for _, w := range workers {
		if w.Status().State != service.BuildStateSuccess {
			failed = true
		}
	}

	if !params.noSummary {
		renderSummary(cmd, workers)
	}

	if failed {
		return errBuildFailed
	}
	return nil
}

func renderSummary(cmd *cobra.Command, workers []*service.BundleWorker) {
	table := tablewriter.NewWriter(cmd.OutOrStdout())
	table.Header("BUNDLE", "STATUS", "MESSAGE")
	for _, w := range workers {
		status := w.Status()
		_ = table.Append(w.Name(), status.State.String(), status.Message)
	}
	_ = table.Render()
}

func loadConfig(configFiles []string) (*config.Root, error) {
	bs, err := config.Merge(configFiles, true)
	if err != nil {
		return nil, err
	}
	root, err := config.Parse(bs)
	if err != nil {
		return nil, err
	}
	return root, nil
}

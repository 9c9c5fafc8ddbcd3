package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/mocha/packages/collection"
	"github.com/abdul-hamid-achik/mocha/packages/core/model"
	"github.com/abdul-hamid-achik/mocha/packages/core/runner"
	"github.com/abdul-hamid-achik/mocha/packages/export/metrics"
	"github.com/abdul-hamid-achik/mocha/packages/output"
	"github.com/abdul-hamid-achik/mocha/packages/workspace"
)

var (
	runFolderFlag     string
	runEnvFlag        string
	runIterationsFlag int
	runRateFlag       float64
	runBailFlag       bool
	runNameFlag       string
	runOutputFlag     string
	runOutputFileFlag string
	runDryRunFlag     bool
	runMetricsFlag    string
	runLabelFlags     []string
)

var runCmd = &cobra.Command{
	Use:   "run <collection|document>",
	Short: "Send every request of a collection or folder",
	Long: `Dispatch the requests of a collection, or of a collection document file, in
tree order and print a summary with latency percentiles. Exits non-zero when a
request fails.

Examples:
  mocha run Shop --env Staging
  mocha run Shop --folder Users --iterations 5 --rate 10
  mocha run shop.yaml --env Local -o junit --output-file report.xml
  mocha run Shop --name users --bail
  mocha run Shop --metrics-file /var/lib/node_exporter/mocha.prom --label env=prod`,
	Args: cobra.ExactArgs(1),
	RunE: runCommand,
}

func init() {
	runCmd.Flags().StringVar(&runFolderFlag, "folder", "", "Only run this folder (id, name or path)")
	runCmd.Flags().StringVarP(&runEnvFlag, "env", "e", "", "Environment to use (env: MOCHA_ENV)")
	runCmd.Flags().IntVarP(&runIterationsFlag, "iterations", "n", getEnvInt("MOCHA_ITERATIONS", 1), "Run the whole set this many times (env: MOCHA_ITERATIONS)")
	runCmd.Flags().Float64VarP(&runRateFlag, "rate", "r", 0, "Maximum requests per second, 0 for no limit")
	runCmd.Flags().BoolVar(&runBailFlag, "bail", getEnvBool("MOCHA_BAIL", false), "Stop on first failure (env: MOCHA_BAIL)")
	runCmd.Flags().StringVar(&runNameFlag, "name", "", "Run only requests whose path contains this")
	runCmd.Flags().StringVarP(&runOutputFlag, "output", "o", getEnvString("MOCHA_OUTPUT", "console"), "Output format: console, json, junit (env: MOCHA_OUTPUT)")
	runCmd.Flags().StringVar(&runOutputFileFlag, "output-file", "", "Write output to file (default: stdout)")
	runCmd.Flags().BoolVar(&runDryRunFlag, "dry-run", false, "List what would run without sending anything")
	runCmd.Flags().StringVar(&runMetricsFlag, "metrics-file", getEnvString("MOCHA_METRICS_FILE", ""), "Write Prometheus metrics of the run to this file (env: MOCHA_METRICS_FILE)")
	runCmd.Flags().StringArrayVar(&runLabelFlags, "label", nil, "Extra metrics label (key=value, repeatable)")
}

// runSource is the tree a run works on.
type runSource struct {
	name string
	tree *collection.Tree
	envs *model.Environments
}

func runCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	src, err := loadRunSource(ctx, args[0])
	if err != nil {
		return err
	}

	rootID := ""
	if runFolderFlag != "" {
		folder, err := findItem(src.tree, runFolderFlag)
		if err != nil {
			return err
		}
		rootID = folder.ID
	}

	if runDryRunFlag {
		items, err := runner.Items(src.tree, rootID)
		if err != nil {
			return err
		}
		for _, it := range items {
			fmt.Fprintf(cmd.OutOrStdout(), "%-6s %s  %s\n", it.Request.Method, it.Path, it.Request.URL)
		}
		return nil
	}

	name := runEnvFlag
	if name == "" && src.envs != nil && len(src.envs.Environments) > 0 {
		name = cfg.Environment
	}
	resolver, err := newResolver(src.envs, name)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	w, closeOut, err := outputWriter(cmd, runOutputFileFlag)
	if err != nil {
		return err
	}
	defer closeOut()
	formatter, err := output.New(runOutputFlag, output.Options{Writer: w, Verbose: cfg.GetVerbose(), NoColor: cfg.GetNoColor()})
	if err != nil {
		return usageError("%v", err)
	}
	exporter, err := metricsExporter()
	if err != nil {
		return err
	}
	if console, ok := formatter.(*output.ConsoleFormatter); ok {
		console.FormatHeader(version)
	}

	runCfg := &runner.Config{
		Iterations: runIterationsFlag,
		Rate:       runRateFlag,
		Bail:       runBailFlag,
		NameFilter: runNameFlag,
		Resolver:   resolver,
		Logger:     logger,
	}
	if a, err := openApp(ctx); err == nil {
		defer a.Close()
		if hist, closeHist, err := a.history(); err == nil {
			defer closeHist()
			runCfg.History = hist
		}
	}

	summary, runErr := runner.NewRunner(newHTTPClient(), runCfg).Run(ctx, src.name, src.tree, rootID)
	if summary == nil {
		return runErr
	}
	if err := formatter.FormatRun(summary); err != nil {
		return err
	}
	if fl, ok := formatter.(output.Flushable); ok {
		if err := fl.Flush(summary.Duration); err != nil {
			return err
		}
	}

	if exporter != nil {
		if err := exporter.WriteFile(runMetricsFlag, summary); err != nil {
			logger.Error("writing metrics failed", "path", runMetricsFlag, "error", err)
		}
	}

	switch {
	case ctx.Err() != nil:
		return errCancelled
	case runErr != nil:
		return runErr
	case summary.Failed() > 0:
		return withExitCode(ExitFailure, fmt.Errorf("%d of %d request(s) failed", summary.Failed(), summary.Total))
	}
	return nil
}

// metricsExporter is nil without --metrics-file.
func metricsExporter() (*metrics.PrometheusExporter, error) {
	if runMetricsFlag == "" {
		return nil, nil
	}
	var opts []metrics.PrometheusOption
	for _, l := range runLabelFlags {
		name, value, ok := strings.Cut(l, "=")
		if !ok || name == "" {
			return nil, usageError("invalid --label %q, want key=value", l)
		}
		opts = append(opts, metrics.WithLabel(name, value))
	}
	return metrics.NewPrometheusExporter(opts...), nil
}

// loadRunSource reads a collection document when ref is a file and loads the
// collection named ref otherwise.
func loadRunSource(ctx context.Context, ref string) (runSource, error) {
	if fileExists(ref) {
		doc, err := workspace.ReadFile(ref)
		if err != nil {
			return runSource{}, err
		}
		svc := collection.NewService(ref, nil, collection.WithLogger(logger))
		if _, err := workspace.Import(ctx, svc, "", doc.Items); err != nil {
			return runSource{}, err
		}
		return runSource{name: doc.Name, tree: svc.Tree(), envs: doc.Environments}, nil
	}

	a, err := openApp(ctx)
	if err != nil {
		return runSource{}, err
	}
	defer a.Close()
	col, _, err := a.findCollection(ctx, ref)
	if err != nil {
		return runSource{}, err
	}
	return runSource{name: col.Name, tree: a.service(col).Tree(), envs: col.Environments}, nil
}

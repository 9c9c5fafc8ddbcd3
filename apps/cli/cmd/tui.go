package cmd

import (
	"context"
	"errors"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/mocha/packages/autosave"
	"github.com/abdul-hamid-achik/mocha/packages/collection"
	"github.com/abdul-hamid-achik/mocha/packages/core/model"
	"github.com/abdul-hamid-achik/mocha/packages/editor"
	"github.com/abdul-hamid-achik/mocha/packages/tui"
	"github.com/abdul-hamid-achik/mocha/packages/viewer"
)

var (
	tuiCollectionFlag string
	tuiEnvFlag        string
	tuiRequestFlag    string
)

var tuiCmd = &cobra.Command{
	Use:   "tui [url]",
	Short: "Open the interactive request editor",
	Long: `Open a terminal request editor. With -c the collection tree is shown in a
sidebar and edits are saved automatically.

Keys: enter send, esc cancel, ctrl+t change method, tab sidebar, ctrl+c quit.

Examples:
  mocha tui https://httpbin.org/get
  mocha tui -c Shop --env Staging`,
	Args: cobra.MaximumNArgs(1),
	RunE: tuiCommand,
}

func init() {
	tuiCmd.Flags().StringVarP(&tuiCollectionFlag, "collection", "c", "", "Collection to browse (id or name)")
	tuiCmd.Flags().StringVarP(&tuiEnvFlag, "env", "e", "", "Environment to use")
	tuiCmd.Flags().StringVar(&tuiRequestFlag, "open", "", "Request to open first (id, name or path)")
}

func tuiCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	policy, err := viewer.ParseCancelPolicy(cfg.CancelPolicy)
	if err != nil {
		return configError(err)
	}
	opts := []editor.Option{
		editor.WithLogger(logger),
		editor.WithCancelPolicy(policy),
	}

	if tuiCollectionFlag == "" {
		resolver, err := newResolver(nil, "")
		if err != nil {
			return err
		}
		ed := editor.New(newHTTPClient(), append(opts, editor.WithResolver(resolver))...)
		req := model.NewRequest("Untitled")
		req.ID = "adhoc"
		if len(args) == 1 {
			req.URL = args[0]
		}
		ed.Open(req)
		return runTUI(ctx, tui.New(ed, tui.WithContext(ctx)))
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	col, _, err := a.findCollection(ctx, tuiCollectionFlag)
	if err != nil {
		return err
	}
	envName := tuiEnvFlag
	if envName == "" && col.Environments != nil && len(col.Environments.Environments) > 0 {
		envName = cfg.Environment
	}
	resolver, err := newResolver(col.Environments, envName)
	if err != nil {
		return withExitCode(ExitUsageError, err)
	}

	svc := a.service(col)
	saver := autosave.New(ctx,
		autosave.WithDelay(cfg.AutosaveDuration()),
		autosave.WithLogger(logger),
		autosave.WithErrorHandler(func(id string, err error) {
			logger.Error("autosave failed", "request", id, "error", err)
		}),
	)
	defer saver.Stop()

	ed := editor.New(newHTTPClient(), append(opts,
		editor.WithResolver(resolver),
		editor.WithAutosave(saver, svc.Save),
	)...)
	nav := collection.NewNavigator(svc, ed)
	if tuiRequestFlag != "" {
		item, err := findItem(svc.Tree(), tuiRequestFlag)
		if err != nil {
			return err
		}
		if _, err := nav.Select(item.ID); err != nil {
			return err
		}
	}

	runErr := runTUI(ctx, tui.New(ed, tui.WithContext(ctx), tui.WithCollection(col.Name, svc, nav)))

	flushCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 10*time.Second)
	defer cancel()
	if err := ed.Flush(flushCtx); err != nil {
		logger.Error("saving pending edits failed", "error", err)
		if runErr == nil {
			runErr = err
		}
	}
	return runErr
}

func runTUI(ctx context.Context, m tui.Model) error {
	err := tui.Run(ctx, m)
	if errors.Is(err, tea.ErrProgramKilled) || errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}

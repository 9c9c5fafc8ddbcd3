package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/mocha/packages/collection"
	"github.com/abdul-hamid-achik/mocha/packages/composer"
	"github.com/abdul-hamid-achik/mocha/packages/core/env"
	"github.com/abdul-hamid-achik/mocha/packages/core/model"
	"github.com/abdul-hamid-achik/mocha/packages/dispatch"
	"github.com/abdul-hamid-achik/mocha/packages/editor"
	"github.com/abdul-hamid-achik/mocha/packages/output"
	"github.com/abdul-hamid-achik/mocha/packages/storage"
	"github.com/abdul-hamid-achik/mocha/packages/viewer"
	"github.com/abdul-hamid-achik/mocha/packages/workspace"
)

const (
	// WatchDebounceDelay is the debounce delay for file watch events
	WatchDebounceDelay = 300 * time.Millisecond
)

var (
	sendFileFlag       string
	sendEnvFlag        string
	sendVarFlags       []string
	sendFilterFlag     string
	sendOutputFlag     string
	sendOutputFileFlag string
	sendFailFlag       bool
	sendSaveFlag       bool
	sendWatchFlag      bool
)

var sendCmd = &cobra.Command{
	Use:   "send [METHOD] <url> | send <request> -c <collection> | send --file <request.yaml>",
	Short: "Compose and send a request",
	Long: `Send an ad hoc request, a request file, or a saved request of a collection.
Flags change the request before it is sent; with --save the change is kept.
Ctrl+C cancels the request in flight.

Examples:
  mocha send https://httpbin.org/get
  mocha send POST https://httpbin.org/post --body '{"name":"Ada"}'
  mocha send GET https://api.example.com/users -q page=2 -H "Accept: application/json"
  mocha send "Users/List users" -c Shop --env Staging --filter "users.#.name"
  mocha send --file requests/create-user.yaml --watch`,
	Args: cobra.MaximumNArgs(2),
	RunE: sendCommand,
}

func init() {
	f := sendCmd.Flags()
	f.StringVarP(&collectionFlag, "collection", "c", getEnvString("MOCHA_COLLECTION", ""), "Collection of a saved request (env: MOCHA_COLLECTION)")
	f.StringVarP(&sendFileFlag, "file", "f", "", "Request file (YAML or JSON)")
	f.StringVarP(&sendEnvFlag, "env", "e", "", "Environment of the collection (env: MOCHA_ENV)")
	f.StringArrayVar(&sendVarFlags, "var", nil, `Set a variable ("name=value")`)
	f.StringVar(&sendFilterFlag, "filter", "", "Print only this gjson path of a JSON body")
	f.StringVarP(&sendOutputFlag, "output", "o", getEnvString("MOCHA_OUTPUT", "console"), "Output format: console, json (env: MOCHA_OUTPUT)")
	f.StringVar(&sendOutputFileFlag, "output-file", "", "Write output to file (default: stdout)")
	f.BoolVar(&sendFailFlag, "fail", getEnvBool("MOCHA_FAIL", false), "Exit non-zero on 4xx and 5xx answers (env: MOCHA_FAIL)")
	f.BoolVar(&sendSaveFlag, "save", false, "Save flag changes into the collection request")
	f.BoolVarP(&sendWatchFlag, "watch", "w", false, "Send again whenever the request file changes")

	f.StringVar(&editNameFlag, "name", "", "Request name")
	f.StringVarP(&editMethodFlag, "method", "X", "", "HTTP method")
	f.StringVar(&editURLFlag, "url", "", "Request URL")
	f.StringArrayVarP(&editHeaderFlags, "header", "H", nil, `Add a header ("Name: value")`)
	f.StringArrayVarP(&editParamFlags, "param", "q", nil, `Add a query param ("name=value")`)
	f.StringVar(&editBodyFlag, "body", "", "JSON body")
	f.StringVar(&editBodyTypeFlag, "body-type", "", "Body type: NONE or JSON")
	f.StringVar(&editBearerFlag, "bearer", "", "Bearer token")
}

// sendTarget is the request to send and where it came from.
type sendTarget struct {
	request model.Request
	envs    *model.Environments
	svc     *collection.Service
}

func sendCommand(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	target, err := loadSendTarget(ctx, a, args)
	if err != nil {
		return err
	}
	req, err := editedRequest(cmd, target.request)
	if err != nil {
		return err
	}
	if sendSaveFlag {
		if target.svc == nil {
			return usageError("--save needs a saved request (-c)")
		}
		if err := target.svc.Save(ctx, req); err != nil {
			return err
		}
	}

	resolver, err := sendResolver(cmd, target.envs)
	if err != nil {
		return err
	}

	w, closeOut, err := outputWriter(cmd, sendOutputFileFlag)
	if err != nil {
		return err
	}
	defer closeOut()

	policy, err := viewer.ParseCancelPolicy(cfg.CancelPolicy)
	if err != nil {
		return configError(err)
	}
	ed := editor.New(newHTTPClient(),
		editor.WithResolver(resolver),
		editor.WithLogger(logger),
		editor.WithCancelPolicy(policy),
	)

	hist, closeHist, err := a.history()
	if err != nil {
		logger.Warn("history is unavailable", "error", err)
		hist, closeHist = nil, func() {}
	}
	defer closeHist()

	s := &sender{editor: ed, resolver: resolver, history: hist, writer: w}
	err = s.send(ctx, req)
	if !sendWatchFlag {
		return err
	}
	if sendFileFlag == "" {
		return usageError("--watch needs --file")
	}
	if err != nil {
		output.NewConsoleFormatter(output.WithWriter(cmd.ErrOrStderr())).FormatError(err)
	}
	return watchRequestFile(ctx, cmd, sendFileFlag, func() {
		req, err := workspace.ReadRequest(sendFileFlag)
		if err == nil {
			req, err = editedRequest(cmd, req)
		}
		if err == nil {
			err = s.send(ctx, req)
		}
		if err != nil {
			output.NewConsoleFormatter(output.WithWriter(cmd.ErrOrStderr())).FormatError(err)
		}
	})
}

func loadSendTarget(ctx context.Context, a *app, args []string) (sendTarget, error) {
	switch {
	case sendFileFlag != "":
		if len(args) > 0 {
			return sendTarget{}, usageError("--file and positional arguments are exclusive")
		}
		req, err := workspace.ReadRequest(sendFileFlag)
		return sendTarget{request: req}, err

	case collectionFlag != "":
		if len(args) != 1 {
			return sendTarget{}, usageError("name the request to send from %s", collectionFlag)
		}
		col, _, err := a.findCollection(ctx, collectionFlag)
		if err != nil {
			return sendTarget{}, err
		}
		svc := a.service(col)
		req, err := findItem(svc.Tree(), args[0])
		if err != nil {
			return sendTarget{}, err
		}
		if req.IsFolder() {
			return sendTarget{}, usageError("%q is a folder, use `mocha run` to send all of it", req.Name)
		}
		return sendTarget{request: req, envs: col.Environments, svc: svc}, nil
	}

	req := model.NewRequest("")
	req.ID = "adhoc"
	switch len(args) {
	case 0:
		if editURLFlag == "" {
			return sendTarget{}, usageError("a URL, a request file or a saved request is required")
		}
	case 1:
		req.URL = args[0]
	case 2:
		m, ok := model.ParseMethod(args[0])
		if !ok {
			return sendTarget{}, usageError("unsupported method %q", args[0])
		}
		req.Method = m
		req.URL = args[1]
	}
	return sendTarget{request: req}, nil
}

func editedRequest(cmd *cobra.Command, req model.Request) (model.Request, error) {
	c := composer.New(req)
	if err := applyEdits(cmd, c); err != nil {
		return model.Request{}, err
	}
	out := c.Request()
	if out.Name == "" {
		out.Name = fmt.Sprintf("%s %s", out.Method, out.URL)
	}
	return out, nil
}

// sendResolver resolves the environment given with --env, or the configured default
// when the collection has environments, then applies --var.
func sendResolver(cmd *cobra.Command, envs *model.Environments) (*env.Resolver, error) {
	name := sendEnvFlag
	if !cmd.Flags().Changed("env") && envs != nil && len(envs.Environments) > 0 {
		name = cfg.Environment
	}
	r, err := newResolver(envs, name)
	if err != nil {
		return nil, withExitCode(ExitUsageError, err)
	}
	for _, v := range sendVarFlags {
		k, val, ok := strings.Cut(v, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, usageError("invalid --var %q, want name=value", v)
		}
		r.SetVariable(strings.TrimSpace(k), val)
	}
	return r, nil
}

// outputWriter returns the command's stdout, or the file at path.
func outputWriter(cmd *cobra.Command, path string) (io.Writer, func(), error) {
	if path == "" {
		return cmd.OutOrStdout(), func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot create output file: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

// sender dispatches requests through one editor, so a new send supersedes the one in
// flight.
type sender struct {
	editor   *editor.Editor
	resolver *env.Resolver
	history  storage.History
	writer   io.Writer
	mu       sync.Mutex
}

func (s *sender) send(ctx context.Context, req model.Request) error {
	formatter, err := output.New(sendOutputFlag, output.Options{
		Writer:  s.writer,
		Verbose: cfg.GetVerbose(),
		NoColor: cfg.GetNoColor(),
		Filter:  sendFilterFlag,
	})
	if err != nil {
		return usageError("%v", err)
	}

	s.editor.Open(req)
	out, err := s.editor.Send(ctx)
	if err != nil {
		return err
	}
	if out.Discarded {
		return nil
	}
	if out.Outcome == dispatch.OutcomeCancelled {
		return errCancelled
	}

	snap := out.Snapshot()
	s.record(ctx, req, out)

	s.mu.Lock()
	err = formatter.FormatResponse(&output.Exchange{
		Name:     req.Name,
		Method:   string(req.Method),
		URL:      s.resolver.Resolve(req.URL),
		Snapshot: snap,
	})
	if fl, ok := formatter.(output.Flushable); ok && err == nil {
		err = fl.Flush(out.Elapsed)
	}
	s.mu.Unlock()
	if err != nil {
		return err
	}

	switch {
	case snap.NetworkError:
		return withExitCode(ExitNetworkError, fmt.Errorf("%s: %s", viewer.NetworkErrorMessage, snap.Error))
	case sendFailFlag && snap.HTTPStatus >= 400:
		return withExitCode(ExitFailure, fmt.Errorf("request failed with status %d", snap.HTTPStatus))
	}
	return nil
}

func (s *sender) record(ctx context.Context, req model.Request, out editor.Outcome) {
	if s.history == nil {
		return
	}
	snap := out.Snapshot()
	err := s.history.Record(ctx, storage.HistoryEntry{
		RequestID: req.ID,
		Method:    string(req.Method),
		URL:       s.resolver.Resolve(req.URL),
		Status:    snap.HTTPStatus,
		ElapsedMs: snap.ElapsedMs,
		Outcome:   out.Outcome.String(),
		At:        snap.At,
	})
	if err != nil {
		logger.Warn("failed to record history", "error", err)
	}
}

// watchRequestFile calls fn after path changes, once per burst of writes, until ctx is
// cancelled.
func watchRequestFile(ctx context.Context, cmd *cobra.Command, path string, fn func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	// Editors replace files on save, so the directory is watched rather than the file.
	if err := watcher.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\nWatching %s for changes... (press Ctrl+C to stop)\n", path)

	var debounceTimer *time.Timer
	defer func() {
		if debounceTimer != nil {
			debounceTimer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs || !(event.Has(fsnotify.Write) || event.Has(fsnotify.Create)) {
				continue
			}
			if debounceTimer != nil {
				debounceTimer.Stop()
			}
			debounceTimer = time.AfterFunc(WatchDebounceDelay, func() {
				fmt.Fprintf(cmd.OutOrStdout(), "\n%s %s\n", color.New(color.Faint).Sprint("File changed:"), path)
				fn()
			})

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("watcher error", "error", err)
		}
	}
}

package cmd

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/mocha/packages/viewer"
)

var (
	historyLimitFlag int
	historyJSONFlag  bool
)

var historyCmd = &cobra.Command{
	Use:   "history [request-id]",
	Short: "Show past dispatches, newest first",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		hist, closeHist, err := a.history()
		if err != nil {
			return err
		}
		defer closeHist()

		id := ""
		if len(args) == 1 {
			id = args[0]
		}
		entries, err := hist.History(ctx, id, historyLimitFlag)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if historyJSONFlag {
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(entries)
		}
		if len(entries) == 0 {
			fmt.Fprintln(out, color.New(color.Faint).Sprint("No history yet."))
			return nil
		}
		dim := color.New(color.Faint).SprintFunc()
		for _, e := range entries {
			status := e.Outcome
			if e.Status > 0 {
				status = fmt.Sprint(e.Status)
			}
			fmt.Fprintf(out, "%s  %-6s %s %s %s\n",
				dim(e.At.Local().Format(time.DateTime)),
				e.Method,
				statusColor(e.Status).Sprint(status),
				e.URL,
				dim(fmt.Sprintf("(%dms)", e.ElapsedMs)),
			)
		}
		return nil
	},
}

func init() {
	historyCmd.Flags().IntVarP(&historyLimitFlag, "limit", "n", 20, "Number of entries")
	historyCmd.Flags().BoolVar(&historyJSONFlag, "json", false, "Print JSON")
}

func statusColor(status int) *color.Color {
	switch viewer.Classify(status) {
	case viewer.ClassSuccess:
		return color.New(color.FgGreen)
	case viewer.ClassRedirection, viewer.ClassInformational:
		return color.New(color.FgCyan)
	case viewer.ClassClientError:
		return color.New(color.FgYellow)
	default:
		return color.New(color.FgRed)
	}
}

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/mocha/packages/workspace"
)

var (
	exportOutputFlag string
	exportJSONFlag   bool
)

var exportCmd = &cobra.Command{
	Use:   "export <collection>",
	Short: "Write a collection with its environments to a document",
	Long: `Export the request tree and environments of a collection as YAML or JSON.
The document can be imported again, kept in git, or run offline with mocha run.

Examples:
  mocha export Shop -o shop.yaml
  mocha export Shop --json > shop.json`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		col, _, err := a.findCollection(ctx, args[0])
		if err != nil {
			return err
		}
		doc := workspace.Export(col.Name, a.service(col).Tree(), col.Environments)
		if err := writeDocument(cmd, doc, exportOutputFlag, exportJSONFlag); err != nil {
			return err
		}
		if exportOutputFlag != "" {
			folders, requests := workspace.Count(doc.Items)
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d request(s) in %d folder(s) to %s\n", requests, folders, exportOutputFlag)
		}
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVarP(&exportOutputFlag, "output", "o", "", "Output file path (default: stdout)")
	exportCmd.Flags().BoolVar(&exportJSONFlag, "json", false, "Write JSON instead of YAML to stdout")
}

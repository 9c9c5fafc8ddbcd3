package cmd

import (
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/mocha/packages/core/config"
	"github.com/abdul-hamid-achik/mocha/packages/core/model"
	"github.com/abdul-hamid-achik/mocha/packages/workspace"
)

var forceInit bool

var initCmd = &cobra.Command{
	Use:   "init [dir]",
	Short: "Create a mocha config and an example collection",
	Long: `Initialize mocha in a directory (default: the current one).

This creates:
  - mocha.yaml          - configuration with the defaults spelled out
  - collection.yaml     - an example collection you can run offline

Examples:
  mocha init
  mocha init ./api --force`,
	Args: cobra.MaximumNArgs(1),
	RunE: initCommand,
}

func init() {
	initCmd.Flags().BoolVarP(&forceInit, "force", "f", false, "Overwrite existing files")
}

func initCommand(cmd *cobra.Command, args []string) error {
	dir := "."
	if len(args) == 1 {
		dir = args[0]
	}

	configFile := filepath.Join(dir, "mocha.yaml")
	exampleFile := filepath.Join(dir, "collection.yaml")

	if !forceInit {
		for _, f := range []string{configFile, exampleFile} {
			if fileExists(f) {
				return usageError("file already exists: %s (use --force to overwrite)", f)
			}
		}
	}

	if err := config.DefaultConfig().SaveConfig(configFile); err != nil {
		return fmt.Errorf("write %s: %w", configFile, err)
	}
	if err := workspace.WriteFile(exampleFile, exampleDocument()); err != nil {
		return fmt.Errorf("write %s: %w", exampleFile, err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Created %s\n", configFile)
	fmt.Fprintf(out, "Created %s\n", exampleFile)
	fmt.Fprintln(out, "\nTry it:")
	fmt.Fprintf(out, "  mocha run %s --env Public\n", exampleFile)
	return nil
}

func exampleDocument() *workspace.Document {
	return &workspace.Document{
		Version: workspace.CurrentVersion,
		Name:    "Example",
		Items: []workspace.Item{
			{
				Name:   "Get a post",
				Method: model.MethodGet,
				URL:    "{{baseUrl}}/posts/1",
			},
			{
				Type: model.ItemFolder,
				Name: "Posts",
				Items: []workspace.Item{
					{
						Name:     "Create a post",
						Method:   model.MethodPost,
						URL:      "{{baseUrl}}/posts",
						Headers:  []model.Row{{Name: "Content-Type", Value: "application/json"}},
						BodyType: model.BodyJSON,
						Body:     `{"title": "hello", "body": "from mocha", "userId": 1}`,
					},
				},
			},
		},
		Environments: &model.Environments{
			Variables: []model.Variable{{ID: "baseUrl", Name: "baseUrl"}},
			Environments: []model.Environment{
				{ID: "public", Name: "Public", Variables: map[string]string{"baseUrl": "https://jsonplaceholder.typicode.com"}},
				{ID: "local", Name: "Local", Variables: map[string]string{"baseUrl": "http://localhost:8080"}},
			},
		},
	}
}

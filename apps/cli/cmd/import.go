package cmd

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/mocha/packages/core/env"
	"github.com/abdul-hamid-achik/mocha/packages/core/model"
	"github.com/abdul-hamid-achik/mocha/packages/import/curl"
	"github.com/abdul-hamid-achik/mocha/packages/import/insomnia"
	"github.com/abdul-hamid-achik/mocha/packages/import/openapi"
	"github.com/abdul-hamid-achik/mocha/packages/workspace"
)

var (
	importOutputFlag      string
	importJSONFlag        bool
	importBaseURLFlag     string
	importTagsFlag        string
	importExcludeTagsFlag string
	importNoEnvFlag       bool
)

var importCmd = &cobra.Command{
	Use:   "import <format> <source>",
	Short: "Import requests from cURL, Insomnia or OpenAPI",
	Long: `Convert requests from other tools into a collection document, or straight into
a collection with -c.

Supported formats:
  curl     - cURL commands, one per line or continued with a backslash
  insomnia - Insomnia v4 export (request groups become folders)
  openapi  - OpenAPI 3.0/3.1, YAML or JSON, file or URL (tags become folders)

Examples:
  mocha import curl requests.sh -o shop.yaml
  mocha import curl "curl -X POST https://api.example.com/users -d '{\"name\":\"Ada\"}'"
  mocha import insomnia export.json -c Shop
  mocha import openapi https://petstore3.swagger.io/api/v3/openapi.json -c Petstore --tags pet`,
}

var importCurlCmd = &cobra.Command{
	Use:   "curl <file|command|->",
	Short: "Import cURL commands",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conv := curl.NewConverter()
		src := args[0]
		switch {
		case src == "-":
			return finishImport(cmd, func(context.Context) (*workspace.Document, error) {
				return conv.ConvertReader("cURL import", cmd.InOrStdin())
			})
		case strings.HasPrefix(strings.TrimSpace(src), "curl "):
			return finishImport(cmd, func(context.Context) (*workspace.Document, error) {
				req, err := conv.ConvertCommand(src)
				if err != nil {
					return nil, err
				}
				return &workspace.Document{Version: workspace.CurrentVersion, Name: "cURL import", Items: []workspace.Item{workspace.ItemFromRequest(req)}}, nil
			})
		default:
			return finishImport(cmd, func(context.Context) (*workspace.Document, error) {
				return conv.ConvertFile(src)
			})
		}
	},
}

var importInsomniaCmd = &cobra.Command{
	Use:   "insomnia <export-file>",
	Short: "Import an Insomnia export",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		conv := insomnia.NewConverter(insomnia.WithEnvironments(!importNoEnvFlag))
		return finishImport(cmd, func(context.Context) (*workspace.Document, error) {
			return conv.ConvertFile(args[0])
		})
	},
}

var importOpenAPICmd = &cobra.Command{
	Use:   "openapi <spec-file-or-url>",
	Short: "Import an OpenAPI specification",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := []openapi.Option{openapi.WithLogger(logger)}
		if importBaseURLFlag != "" {
			opts = append(opts, openapi.WithBaseURL(importBaseURLFlag))
		}
		if tags := splitList(importTagsFlag); len(tags) > 0 {
			opts = append(opts, openapi.WithTags(tags))
		}
		if tags := splitList(importExcludeTagsFlag); len(tags) > 0 {
			opts = append(opts, openapi.WithExcludeTags(tags))
		}
		conv := openapi.NewConverter(opts...)
		return finishImport(cmd, func(ctx context.Context) (*workspace.Document, error) {
			return conv.ConvertFile(ctx, args[0])
		})
	},
}

func init() {
	for _, c := range []*cobra.Command{importCurlCmd, importInsomniaCmd, importOpenAPICmd} {
		c.Flags().StringVarP(&collectionFlag, "collection", "c", "", "Import into this collection instead of writing a document")
		c.Flags().StringVar(&parentFlag, "parent", "", "Folder of the collection to import into")
		c.Flags().StringVarP(&importOutputFlag, "output", "o", "", "Output file path (default: stdout)")
		c.Flags().BoolVar(&importJSONFlag, "json", false, "Write JSON instead of YAML to stdout")
	}
	importInsomniaCmd.Flags().BoolVar(&importNoEnvFlag, "no-env", false, "Skip environments")
	importOpenAPICmd.Flags().StringVar(&importBaseURLFlag, "base-url", "", "Override base URL from spec")
	importOpenAPICmd.Flags().StringVar(&importTagsFlag, "tags", "", "Only import operations with these tags (comma-separated)")
	importOpenAPICmd.Flags().StringVar(&importExcludeTagsFlag, "exclude-tags", "", "Skip operations with these tags (comma-separated)")

	importCmd.AddCommand(importCurlCmd, importInsomniaCmd, importOpenAPICmd)
}

// finishImport converts the source and then writes the document or imports it into
// the collection given with -c.
func finishImport(cmd *cobra.Command, convert func(ctx context.Context) (*workspace.Document, error)) error {
	ctx := cmd.Context()
	doc, err := convert(ctx)
	if err != nil {
		return withExitCode(ExitValidationError, err)
	}
	folders, requests := workspace.Count(doc.Items)

	if collectionFlag == "" {
		if err := writeDocument(cmd, doc, importOutputFlag, importJSONFlag); err != nil {
			return err
		}
		if importOutputFlag != "" {
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote %d request(s) in %d folder(s) to %s\n", requests, folders, importOutputFlag)
		}
		return nil
	}

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	col, _, err := a.findCollection(ctx, collectionFlag)
	if err != nil {
		return err
	}
	svc := a.service(col)
	parentID, err := resolveParent(svc.Tree(), parentFlag)
	if err != nil {
		return err
	}
	created, err := workspace.Import(ctx, svc, parentID, doc.Items)
	if err != nil {
		return fmt.Errorf("imported %d of %d item(s): %w", len(created), folders+requests, err)
	}
	if doc.Environments != nil && len(doc.Environments.Environments) > 0 {
		merged := env.NewDocument(col.Environments)
		if err := mergeEnvironments(merged, doc.Environments); err != nil {
			return err
		}
		if err := saveEnvironments(ctx, a, col.ID, merged.Model()); err != nil {
			return err
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Imported %d request(s) in %d folder(s) into %s\n", requests, folders, col.Name)
	return nil
}

// mergeEnvironments adds the variables and environments of src to dst. Values of src
// win for environments present in both.
func mergeEnvironments(dst *env.Document, src *model.Environments) error {
	names := make(map[string]string, len(src.Variables))
	for _, v := range src.Variables {
		names[v.ID] = v.Name
		if findVariable(dst, v.Name) == nil {
			dst.AddVariable(v.Name)
		}
	}
	for _, e := range src.Environments {
		if _, err := dst.Values(e.Name); err != nil {
			dst.AddEnvironment(e.Name)
		}
		for id, value := range e.Variables {
			name, ok := names[id]
			if !ok {
				continue
			}
			if err := dst.SetValue(e.Name, name, value); err != nil {
				return err
			}
		}
	}
	return nil
}

// writeDocument writes doc to path, or to stdout when path is empty.
func writeDocument(cmd *cobra.Command, doc *workspace.Document, path string, asJSON bool) error {
	if path != "" {
		return workspace.WriteFile(path, doc)
	}
	data, err := workspace.Marshal(doc, asJSON)
	if err != nil {
		return err
	}
	_, err = cmd.OutOrStdout().Write(data)
	return err
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

package cmd

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/mocha/packages/workspace"
)

var validateRequestsFlag bool

var validateCmd = &cobra.Command{
	Use:   "validate <file|directory>...",
	Short: "Check collection documents and request files without sending",
	Long: `Validate collection documents (.yaml, .yml, .json) against the document
schema. Directories are searched recursively. With --requests, files are read
as single request files instead.

Examples:
  mocha validate shop.yaml
  mocha validate ./collections/
  mocha validate --requests ./requests/`,
	Args: cobra.MinimumNArgs(1),
	RunE: validateCommand,
}

func init() {
	validateCmd.Flags().BoolVar(&validateRequestsFlag, "requests", false, "Validate single request files")
}

func validateCommand(cmd *cobra.Command, args []string) error {
	files, err := collectDocuments(args)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		return usageError("no .yaml, .yml or .json files found")
	}

	failed := 0
	for _, file := range files {
		if err := validateFile(file); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "%s %s: %v\n", color.RedString("✗"), file, err)
			failed++
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", color.GreenString("✓"), file)
	}

	if failed > 0 {
		return withExitCode(ExitValidationError, fmt.Errorf("%d of %d file(s) invalid", failed, len(files)))
	}
	return nil
}

func validateFile(path string) error {
	if validateRequestsFlag {
		_, err := workspace.ReadRequest(path)
		return err
	}
	_, err := workspace.ReadFile(path)
	return err
}

func collectDocuments(args []string) ([]string, error) {
	var files []string
	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			files = append(files, arg)
			continue
		}
		err = filepath.WalkDir(arg, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if d.IsDir() {
				if path != arg && strings.HasPrefix(d.Name(), ".") {
					return filepath.SkipDir
				}
				return nil
			}
			if isDocumentFile(path) {
				files = append(files, path)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	return files, nil
}

func isDocumentFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml", ".json":
		return true
	}
	return false
}

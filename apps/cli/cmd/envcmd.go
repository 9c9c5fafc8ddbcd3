package cmd

import (
	"context"
	"fmt"
	"sort"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/mocha/packages/core/env"
	"github.com/abdul-hamid-achik/mocha/packages/core/model"
)

var envCmd = &cobra.Command{
	Use:   "env",
	Short: "Manage the environments of a collection",
	Long: `Environments hold the values of the {{variables}} used by a collection.
Every environment has a value for every variable.

Examples:
  mocha env add Staging -c Shop
  mocha env set Staging baseUrl https://staging.example.com -c Shop
  mocha env list -c Shop
  mocha send "Users/List users" -c Shop --env Staging`,
}

var envListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show environments with their values",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironments(cmd, false, func(doc *env.Document) error {
			out := cmd.OutOrStdout()
			if len(doc.Environments) == 0 {
				fmt.Fprintln(out, color.New(color.Faint).Sprint("No environments."))
				return nil
			}
			for _, e := range doc.Environments {
				fmt.Fprintln(out, color.New(color.Bold).Sprint(e.Name))
				values, err := doc.Values(e.ID)
				if err != nil {
					return err
				}
				names := make([]string, 0, len(values))
				for name := range values {
					names = append(names, name)
				}
				sort.Strings(names)
				for _, name := range names {
					fmt.Fprintf(out, "  %s = %s\n", color.CyanString(name), values[name])
				}
			}
			return nil
		})
	},
}

var envAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Add an environment",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironments(cmd, true, func(doc *env.Document) error {
			if _, err := doc.Values(args[0]); err == nil {
				return fmt.Errorf("environment %q already exists", args[0])
			}
			e := doc.AddEnvironment(args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "Added environment %s.\n", e.Name)
			return nil
		})
	},
}

var envSetCmd = &cobra.Command{
	Use:   "set <environment> <variable> <value>",
	Short: "Set the value of a variable, declaring it when new",
	Args:  cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironments(cmd, true, func(doc *env.Document) error {
			if findVariable(doc, args[1]) == nil {
				doc.AddVariable(args[1])
			}
			return doc.SetValue(args[0], args[1], args[2])
		})
	},
}

var envVarsCmd = &cobra.Command{
	Use:   "vars",
	Short: "List the declared variables",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironments(cmd, false, func(doc *env.Document) error {
			for _, v := range doc.Variables {
				fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", v.Name, color.New(color.Faint).Sprint(v.ID))
			}
			return nil
		})
	},
}

var envVarsAddCmd = &cobra.Command{
	Use:   "add <name>",
	Short: "Declare a variable",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironments(cmd, true, func(doc *env.Document) error {
			if findVariable(doc, args[0]) != nil {
				return fmt.Errorf("variable %q already exists", args[0])
			}
			doc.AddVariable(args[0])
			return nil
		})
	},
}

var envVarsRenameCmd = &cobra.Command{
	Use:   "rename <variable> <new name>",
	Short: "Rename a variable",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironments(cmd, true, func(doc *env.Document) error {
			v := findVariable(doc, args[0])
			if v == nil {
				return fmt.Errorf("variable %q not found", args[0])
			}
			return doc.RenameVariable(v.ID, args[1])
		})
	},
}

var envVarsRemoveCmd = &cobra.Command{
	Use:   "remove <variable>",
	Short: "Remove a variable and its values",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withEnvironments(cmd, true, func(doc *env.Document) error {
			v := findVariable(doc, args[0])
			if v == nil {
				return fmt.Errorf("variable %q not found", args[0])
			}
			doc.RemoveVariable(v.ID)
			return nil
		})
	},
}

func init() {
	envCmd.PersistentFlags().StringVarP(&collectionFlag, "collection", "c", getEnvString("MOCHA_COLLECTION", ""), "Collection id or name (env: MOCHA_COLLECTION)")
	envVarsCmd.AddCommand(envVarsAddCmd, envVarsRenameCmd, envVarsRemoveCmd)
	envCmd.AddCommand(envListCmd, envAddCmd, envSetCmd, envVarsCmd)
}

// withEnvironments loads the environments of --collection into a document, runs fn and
// saves the document when save is set.
func withEnvironments(cmd *cobra.Command, save bool, fn func(doc *env.Document) error) error {
	ctx := cmd.Context()
	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()
	col, _, err := a.findCollection(ctx, collectionFlag)
	if err != nil {
		return err
	}
	doc := env.NewDocument(col.Environments)
	if err := fn(doc); err != nil {
		return err
	}
	if !save {
		return nil
	}
	return saveEnvironments(ctx, a, col.ID, doc.Model())
}

func saveEnvironments(ctx context.Context, a *app, collectionID string, envs *model.Environments) error {
	if _, err := a.client.SaveEnvironments(ctx, collectionID, *envs); err != nil {
		return fmt.Errorf("save environments: %w", err)
	}
	return nil
}

func findVariable(doc *env.Document, ref string) *model.Variable {
	for i := range doc.Variables {
		if doc.Variables[i].ID == ref || doc.Variables[i].Name == ref {
			return &doc.Variables[i]
		}
	}
	return nil
}

package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/mocha/packages/output"
)

var showIDsFlag bool

var collectionsCmd = &cobra.Command{
	Use:     "collections",
	Aliases: []string{"collection", "col"},
	Short:   "Manage the collections of the selected organization",
}

var collectionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List collections",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		org, err := a.organization(ctx)
		if err != nil {
			return err
		}
		cols, err := a.client.Collections(ctx, org.ID)
		if err != nil {
			return err
		}
		if len(cols) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), color.New(color.Faint).Sprintf("No collections in %s.", org.Name))
			return nil
		}
		for _, c := range cols {
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s\n", color.New(color.Bold).Sprint(c.Name), color.New(color.Faint).Sprint(c.ID))
		}
		return nil
	},
}

var collectionsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a collection",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		org, err := a.organization(ctx)
		if err != nil {
			return err
		}
		col, err := a.client.CreateCollection(ctx, org.ID, strings.Join(args, " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Created %s (%s).\n", col.Name, col.ID)
		return nil
	},
}

var collectionsRenameCmd = &cobra.Command{
	Use:   "rename <id|name> <new name>",
	Short: "Rename a collection",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		col, orgID, err := a.findCollection(ctx, args[0])
		if err != nil {
			return err
		}
		renamed, err := a.client.RenameCollection(ctx, orgID, col.ID, strings.Join(args[1:], " "))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Renamed to %s.\n", renamed.Name)
		return nil
	},
}

var collectionsDeleteCmd = &cobra.Command{
	Use:   "delete <id|name>",
	Short: "Delete a collection with all its requests",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		col, orgID, err := a.findCollection(ctx, args[0])
		if err != nil {
			return err
		}
		if err := a.client.DeleteCollection(ctx, orgID, col.ID); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s.\n", col.Name)
		return nil
	},
}

var collectionsShowCmd = &cobra.Command{
	Use:   "show <id|name>",
	Short: "Print the request tree of a collection",
	Args:  cobra.ExactArgs(1),
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
		fmt.Fprintln(cmd.OutOrStdout(), color.New(color.Bold).Sprint(col.Name))
		return output.PrintTree(cmd.OutOrStdout(), a.service(col).Tree(), showIDsFlag)
	},
}

func init() {
	collectionsShowCmd.Flags().BoolVar(&showIDsFlag, "ids", false, "Show item ids")
	collectionsCmd.AddCommand(collectionsListCmd, collectionsCreateCmd, collectionsRenameCmd, collectionsDeleteCmd, collectionsShowCmd)
}

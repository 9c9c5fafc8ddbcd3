package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

var orgCmd = &cobra.Command{
	Use:   "org",
	Short: "List and select organizations",
}

var orgListCmd = &cobra.Command{
	Use:   "list",
	Short: "List your organizations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd.Context())
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireUser(); err != nil {
			return err
		}
		orgs, err := a.client.Organizations(cmd.Context())
		if err != nil {
			return err
		}
		current := a.org.Get()
		for _, o := range orgs {
			marker := "  "
			name := o.Name
			if current != nil && current.ID == o.ID {
				marker = color.GreenString("* ")
				name = color.New(color.Bold).Sprint(name)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s%s  %s\n", marker, name, color.New(color.Faint).Sprint(o.ID))
		}
		return nil
	},
}

var orgUseCmd = &cobra.Command{
	Use:   "use <id|name>",
	Short: "Select the organization later commands work in",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		a, err := openApp(ctx)
		if err != nil {
			return err
		}
		defer a.Close()
		if err := a.requireUser(); err != nil {
			return err
		}
		orgs, err := a.client.Organizations(ctx)
		if err != nil {
			return err
		}
		for _, o := range orgs {
			if o.ID == args[0] || strings.EqualFold(o.Name, args[0]) {
				if err := a.org.Set(ctx, &o); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Using %s.\n", o.Name)
				return nil
			}
		}
		return fmt.Errorf("organization %q not found", args[0])
	},
}

func init() {
	orgCmd.AddCommand(orgListCmd, orgUseCmd)
}

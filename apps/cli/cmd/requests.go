package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abdul-hamid-achik/mocha/packages/collection"
	"github.com/abdul-hamid-achik/mocha/packages/composer"
	"github.com/abdul-hamid-achik/mocha/packages/core/model"
)

var (
	collectionFlag string
	parentFlag     string

	editNameFlag     string
	editMethodFlag   string
	editURLFlag      string
	editHeaderFlags  []string
	editParamFlags   []string
	editBodyFlag     string
	editBodyTypeFlag string
	editBearerFlag   string
)

var requestsCmd = &cobra.Command{
	Use:     "requests",
	Aliases: []string{"request", "req"},
	Short:   "Edit the request tree of a collection",
	Long: `Create, rename, move and delete requests and folders of a collection.
Items are addressed by id, by name or by their slash separated path.

Examples:
  mocha requests folder Users -c Shop
  mocha requests create "List users" --parent Users -c Shop
  mocha requests edit "Users/List users" -X GET --url "{{baseUrl}}/users" -c Shop
  mocha requests delete Users -c Shop`,
}

var requestsCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a request",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *collection.Service) error {
			parentID, err := resolveParent(svc.Tree(), parentFlag)
			if err != nil {
				return err
			}
			req, err := svc.CreateRequest(ctx, strings.Join(args, " "), parentID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created request %s (%s).\n", req.Name, req.ID)
			return nil
		})
	},
}

var requestsFolderCmd = &cobra.Command{
	Use:   "folder <name>",
	Short: "Create a folder",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *collection.Service) error {
			parentID, err := resolveParent(svc.Tree(), parentFlag)
			if err != nil {
				return err
			}
			f, err := svc.CreateFolder(ctx, strings.Join(args, " "), parentID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Created folder %s (%s).\n", f.Name, f.ID)
			return nil
		})
	},
}

var requestsRenameCmd = &cobra.Command{
	Use:   "rename <item> <new name>",
	Short: "Rename a request or folder",
	Args:  cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *collection.Service) error {
			item, err := findItem(svc.Tree(), args[0])
			if err != nil {
				return err
			}
			renamed, err := svc.Rename(ctx, item.ID, strings.Join(args[1:], " "))
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Renamed to %s.\n", renamed.Name)
			return nil
		})
	},
}

var requestsDeleteCmd = &cobra.Command{
	Use:   "delete <item>",
	Short: "Delete a request, or a folder with everything below it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *collection.Service) error {
			item, err := findItem(svc.Tree(), args[0])
			if err != nil {
				return err
			}
			ids, err := svc.Delete(ctx, item.ID)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %d item(s).\n", len(ids))
			return nil
		})
	},
}

var requestsEditCmd = &cobra.Command{
	Use:   "edit <request>",
	Short: "Change the method, URL, headers, params, body or auth of a request",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return withService(cmd, func(ctx context.Context, svc *collection.Service) error {
			item, err := findItem(svc.Tree(), args[0])
			if err != nil {
				return err
			}
			if item.IsFolder() {
				return usageError("%q is a folder", item.Name)
			}
			c := composer.New(item)
			if err := applyEdits(cmd, c); err != nil {
				return err
			}
			if err := svc.Save(ctx, c.Request()); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Saved %s.\n", item.Name)
			return nil
		})
	},
}

func init() {
	requestsCmd.PersistentFlags().StringVarP(&collectionFlag, "collection", "c", getEnvString("MOCHA_COLLECTION", ""), "Collection id or name (env: MOCHA_COLLECTION)")
	for _, c := range []*cobra.Command{requestsCreateCmd, requestsFolderCmd} {
		c.Flags().StringVar(&parentFlag, "parent", "", "Folder to create the item in")
	}

	f := requestsEditCmd.Flags()
	f.StringVar(&editNameFlag, "name", "", "New name")
	f.StringVarP(&editMethodFlag, "method", "X", "", "HTTP method")
	f.StringVar(&editURLFlag, "url", "", "Request URL")
	f.StringArrayVarP(&editHeaderFlags, "header", "H", nil, `Add a header row ("Name: value")`)
	f.StringArrayVarP(&editParamFlags, "param", "q", nil, `Add a query param row ("name=value")`)
	f.StringVar(&editBodyFlag, "body", "", "JSON body")
	f.StringVar(&editBodyTypeFlag, "body-type", "", "Body type: NONE or JSON")
	f.StringVar(&editBearerFlag, "bearer", "", "Bearer token; empty string with --bearer= removes auth")

	requestsCmd.AddCommand(requestsCreateCmd, requestsFolderCmd, requestsRenameCmd, requestsDeleteCmd, requestsEditCmd)
}

// withService opens the collection named by --collection and runs fn on its service.
func withService(cmd *cobra.Command, fn func(ctx context.Context, svc *collection.Service) error) error {
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
	return fn(ctx, a.service(col))
}

func resolveParent(tree *collection.Tree, ref string) (string, error) {
	if ref == "" {
		return "", nil
	}
	item, err := findItem(tree, ref)
	if err != nil {
		return "", err
	}
	if !item.IsFolder() {
		return "", usageError("%q is not a folder", item.Name)
	}
	return item.ID, nil
}

// applyEdits applies the edit flags that were given to c.
func applyEdits(cmd *cobra.Command, c *composer.Composer) error {
	flags := cmd.Flags()
	if flags.Changed("name") {
		c.SetName(editNameFlag)
	}
	if flags.Changed("method") {
		m, ok := model.ParseMethod(editMethodFlag)
		if !ok {
			return usageError("unsupported method %q", editMethodFlag)
		}
		c.SetMethod(m)
	}
	if flags.Changed("url") {
		c.SetURL(editURLFlag)
	}
	for _, h := range editHeaderFlags {
		name, value, ok := strings.Cut(h, ":")
		if !ok {
			return usageError("invalid header %q, want \"Name: value\"", h)
		}
		c.AddHeader(strings.TrimSpace(name), strings.TrimSpace(value))
	}
	for _, p := range editParamFlags {
		name, value, _ := strings.Cut(p, "=")
		c.AddParam(strings.TrimSpace(name), value)
	}
	if flags.Changed("body") {
		c.SetBody(editBodyFlag)
		if !flags.Changed("body-type") {
			c.SetBodyType(model.BodyJSON)
		}
	}
	if flags.Changed("body-type") {
		bt, err := parseBodyType(editBodyTypeFlag)
		if err != nil {
			return err
		}
		c.SetBodyType(bt)
	}
	if flags.Changed("bearer") {
		if editBearerFlag == "" {
			c.SetAuthType(model.AuthNone)
		} else {
			c.SetAuthType(model.AuthBearer)
		}
		c.SetToken(editBearerFlag)
	}
	return nil
}

func parseBodyType(s string) (model.BodyType, error) {
	switch strings.ToUpper(s) {
	case "", string(model.BodyNone):
		return model.BodyNone, nil
	case string(model.BodyJSON):
		return model.BodyJSON, nil
	default:
		return "", usageError("unsupported body type %q (want NONE or JSON)", s)
	}
}

package output

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/abdul-hamid-achik/mocha/packages/collection"
	"github.com/abdul-hamid-achik/mocha/packages/core/model"
)

// PrintTree prints the folders and requests of tree as an indented outline, with the
// method of each request and its id when showIDs is set.
func PrintTree(w io.Writer, tree *collection.Tree, showIDs bool) error {
	folder := color.New(color.FgBlue, color.Bold).SprintFunc()
	dim := color.New(color.Faint).SprintFunc()

	if tree.Len() == 0 {
		fmt.Fprintln(w, dim("(empty)"))
		return nil
	}

	return tree.Walk(func(n model.Request, depth int) error {
		indent := ""
		for i := 0; i < depth; i++ {
			indent += "  "
		}

		var line string
		if n.IsFolder() {
			line = fmt.Sprintf("%s%s", indent, folder(n.Name+"/"))
		} else {
			line = fmt.Sprintf("%s%s %s", indent, methodColor(n.Method).Sprintf("%-6s", n.Method), n.Name)
		}
		if showIDs {
			line += " " + dim(n.ID)
		}
		_, err := fmt.Fprintln(w, line)
		return err
	})
}

func methodColor(m model.Method) *color.Color {
	switch m {
	case model.MethodGet:
		return color.New(color.FgGreen)
	case model.MethodPost:
		return color.New(color.FgYellow)
	case model.MethodPut, model.MethodPatch:
		return color.New(color.FgBlue)
	case model.MethodDelete:
		return color.New(color.FgRed)
	default:
		return color.New(color.Reset)
	}
}

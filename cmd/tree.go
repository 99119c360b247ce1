package cmd

import (
	"github.com/Daskott/famtree/colors"
	"github.com/Daskott/famtree/server/models"
	"github.com/spf13/cobra"
)

func createTreeCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "tree <family-id>",
		Short: "Show a family with all its members and relationships",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			treeStore := newStores().Tree
			tree, err := treeStore.Load(commandContext(cmd), id)
			if err != nil {
				return storeError(treeStore.State().Error)
			}

			if asJSON {
				return printJSON(cmd, tree)
			}

			printTree(cmd, tree)
			return nil
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print the tree as JSON")

	return cmd
}

// printTree lists each member followed by the relationships they are the source of.
func printTree(cmd *cobra.Command, tree *models.FamilyTree) {
	names := make(map[uint]string, len(tree.Members))
	for _, member := range tree.Members {
		names[member.ID] = member.FullName()
	}

	cmd.Printf("%s (%d members)\n", colors.Green(tree.Family.Name), len(tree.Members))

	for _, member := range tree.Members {
		label := member.FullName()
		if member.IsRoot {
			label += " " + colors.Blue("[root]")
		}
		cmd.Printf("  %d %s\n", member.ID, label)

		for _, relationship := range tree.Relationships {
			if relationship.SourceMemberID != member.ID {
				continue
			}

			target, ok := names[relationship.TargetMemberID]
			if !ok {
				target = colors.Yellow("unknown member")
			}
			cmd.Printf("      %s of %s\n", relationship.Type, target)
		}
	}
}

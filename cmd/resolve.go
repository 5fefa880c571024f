package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentic-research/descend/pkg/resolve"
)

var (
	resolveFrom     string
	resolveRootName string
	resolveStrategy string
)

var resolveCmd = &cobra.Command{
	Use:   "resolve [scene] [segment...]",
	Short: "Resolve a name path in a scene and print the node it reaches",
	Long: `Resolve a name path in a scene and print the node it reaches.

With --root-name the search root is first located from --from (or the
default scene) using --strategy, the same way a record pass does.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, closeScene, err := openScene(args[0])
		if err != nil {
			return err
		}
		defer closeScene()

		root, err := startNode(g, resolveFrom)
		if err != nil {
			return err
		}
		if resolveRootName != "" || resolveStrategy != "" {
			st, err := resolve.ParseStrategy(resolveStrategy, "")
			if err != nil {
				return err
			}
			if root, err = resolve.Locate(g, st, root, resolveRootName); err != nil {
				return err
			}
		}

		segments := args[1:]
		id, ok := resolve.Path(g, root, segments)
		if !ok {
			return fmt.Errorf("path %q not found below %s; name paths from there:\n%s",
				segments, root, resolve.FormatPaths(resolve.CollectLeafPaths(g, root)))
		}
		n, err := g.GetNode(id)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s\t%q\n", id, n.Name)
		return nil
	},
}

func init() {
	resolveCmd.Flags().StringVar(&resolveFrom, "from", "", "Node ID to start from (default: the default scene)")
	resolveCmd.Flags().StringVar(&resolveRootName, "root-name", "", "Locate a root with this name before descending")
	resolveCmd.Flags().StringVar(&resolveStrategy, "strategy", "", "Root strategy: scene, child or direct")
	rootCmd.AddCommand(resolveCmd)
}

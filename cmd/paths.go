package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/agentic-research/descend/pkg/resolve"
)

var pathsFrom string

var pathsCmd = &cobra.Command{
	Use:   "paths [scene]",
	Short: "List the name path of every named leaf in a scene",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		g, closeScene, err := openScene(args[0])
		if err != nil {
			return err
		}
		defer closeScene()

		from, err := startNode(g, pathsFrom)
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		n := 0
		for p := range resolve.LeafPaths(g, from) {
			_, _ = fmt.Fprintf(out, "%q\n", p)
			n++
		}
		if n == 0 {
			_, _ = fmt.Fprintf(cmd.ErrOrStderr(), "no named leaf paths below %s\n", from)
		}
		return nil
	},
}

func init() {
	pathsCmd.Flags().StringVar(&pathsFrom, "from", "", "Node ID to enumerate from (default: the default scene)")
	rootCmd.AddCommand(pathsCmd)
}

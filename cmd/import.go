package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/agentic-research/descend/pkg/graph"
)

var importCmd = &cobra.Command{
	Use:   "import [scene.gltf|scene.glb] [output.db]",
	Short: "Snapshot a glTF asset into a SQLite scene database",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		source := args[0]
		output := args[1]

		g, closeScene, err := openScene(source)
		if err != nil {
			return err
		}
		defer closeScene()
		if _, ok := g.(*graph.MemoryStore); !ok {
			return fmt.Errorf("import %s: source is already a scene database", source)
		}

		_ = os.Remove(output) // Overwrite
		writer, err := graph.NewSQLiteWriter(output)
		if err != nil {
			return err
		}

		start := time.Now()
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Importing %s into %s...\n", source, output)
		if err := writer.WriteGraph(g); err != nil {
			_ = writer.Close()
			return fmt.Errorf("import %s: %w", source, err)
		}
		if err := writer.Close(); err != nil {
			return err
		}
		_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Done in %v.\n", time.Since(start))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(importCmd)
}

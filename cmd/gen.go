package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/agentic-research/descend/internal/codegen"
)

var genCmd = &cobra.Command{
	Use:   "gen [file.go...]",
	Short: "Generate record contracts for structs that embed collect.Root",
	Long: `Generate record contracts for structs that embed collect.Root.

For every input file with at least one such struct, a sibling
<name>_namepath.go is written with RootName and ResolveFields methods.`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, path := range args {
			src, err := os.ReadFile(path)
			if err != nil {
				return err
			}
			f, err := codegen.ParseStructs(src)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			if len(f.Structs) == 0 {
				continue
			}
			out, err := codegen.Generate(f)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			dst := codegen.OutputPath(path)
			if err := os.WriteFile(dst, out, 0o644); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d records)\n", dst, len(f.Structs))
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(genCmd)
}

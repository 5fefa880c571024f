package cmd

import (
	"github.com/spf13/cobra"

	"github.com/agentic-research/descend/internal/mcpserver"
)

var serveCmd = &cobra.Command{
	Use:   "serve [scene]",
	Short: "Serve name-path lookups over a scene as MCP tools on stdio",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		_, logger, err := loadConfig()
		if err != nil {
			return err
		}
		g, closeScene, err := openScene(args[0])
		if err != nil {
			return err
		}
		defer closeScene()

		logger.Info("serving", "scene", args[0])
		return mcpserver.New(g, version).ServeStdio()
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

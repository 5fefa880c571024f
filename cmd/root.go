package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/agentic-research/descend/internal/config"
	"github.com/agentic-research/descend/internal/ingest"
	"github.com/agentic-research/descend/pkg/graph"
)

// version is set at build time with -ldflags "-X".
var version = "dev"

var configPath string

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to descend.{toml,yaml,json} (default: search the working directory)")
}

var rootCmd = &cobra.Command{
	Use:           "descend",
	Short:         "descend: collect named descendants of spawned scenes into typed records",
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func loadConfig() (*config.Config, *log.Logger, error) {
	cfg, used, err := config.Load(config.LoadOptions{ConfigFilePath: configPath})
	if err != nil {
		return nil, nil, err
	}
	logger, err := cfg.NewLogger(os.Stderr, "descend")
	if err != nil {
		return nil, nil, err
	}
	if used != "" {
		logger.Debug("loaded config", "path", used)
	}
	return cfg, logger, nil
}

// openScene opens a .gltf, .glb or .db asset given on the command line.
func openScene(path string) (graph.Graph, func(), error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve %s: %w", path, err)
	}
	g, err := ingest.OpenScene(osfs.New(filepath.Dir(abs)), filepath.Base(abs))
	if err != nil {
		return nil, nil, err
	}
	closeFn := func() {}
	if c, ok := g.(interface{ Close() error }); ok {
		closeFn = func() { _ = c.Close() }
	}
	return g, closeFn, nil
}

// startNode returns from, or the default scene of g when from is empty.
func startNode(g graph.Graph, from string) (string, error) {
	if from != "" {
		if _, err := g.GetNode(from); err != nil {
			return "", fmt.Errorf("node %s: %w", from, err)
		}
		return from, nil
	}
	return ingest.DefaultScene(g)
}

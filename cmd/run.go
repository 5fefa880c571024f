package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/spf13/cobra"

	"github.com/agentic-research/descend/api"
	"github.com/agentic-research/descend/internal/config"
	"github.com/agentic-research/descend/internal/ingest"
	"github.com/agentic-research/descend/pkg/collect"
	"github.com/agentic-research/descend/pkg/graph"
)

var (
	runSchema string
	runScenes []string
	runKinds  []string
	runDir    string
)

var runCmd = &cobra.Command{
	Use:   "run --schema records.hcl --scene turret=turret.gltf [--scene ...]",
	Short: "Spawn scenes and collect the declared records from them",
	Long: `Spawn scenes and collect the declared records from them.

Each --scene spawns the default scene of an asset under a new attachment
node and marks it for every record kind (or only those named by --kind).
Ticks run until every scene is in and no marker is pending, then the
collected records are printed as JSON.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, logger, err := loadConfig()
		if err != nil {
			return err
		}
		schema, err := api.LoadSchema(runSchema)
		if err != nil {
			return err
		}
		return collectRecords(cmd.Context(), cfg, logger, schema, runOptions{
			dir:    runDir,
			scenes: runScenes,
			kinds:  runKinds,
		}, cmd.OutOrStdout())
	},
}

func init() {
	runCmd.Flags().StringVarP(&runSchema, "schema", "s", "", "Record declarations (.hcl or .json)")
	runCmd.Flags().StringArrayVar(&runScenes, "scene", nil, "attachment=path of an asset to spawn; repeatable")
	runCmd.Flags().StringSliceVar(&runKinds, "kind", nil, "Record kinds to mark on each scene (default: all)")
	runCmd.Flags().StringVar(&runDir, "dir", ".", "Directory scene paths are relative to")
	_ = runCmd.MarkFlagRequired("schema")
	rootCmd.AddCommand(runCmd)
}

type runOptions struct {
	dir    string
	scenes []string
	kinds  []string
}

type printedField struct {
	Node string   `json:"node"`
	Name string   `json:"name"`
	Path []string `json:"path"`
}

type printedRecord struct {
	Kind       string                  `json:"kind"`
	Attachment string                  `json:"attachment"`
	Fields     map[string]printedField `json:"fields"`
}

type printedFailure struct {
	Kind       string `json:"kind"`
	Attachment string `json:"attachment"`
	Error      string `json:"error"`
}

type runOutput struct {
	Records  []printedRecord  `json:"records"`
	Failures []printedFailure `json:"failures,omitempty"`
}

func parseSceneFlag(s string) (attachment, path string, err error) {
	attachment, path, ok := strings.Cut(s, "=")
	if !ok || attachment == "" || path == "" {
		return "", "", fmt.Errorf("scene %q: want attachment=path", s)
	}
	return attachment, path, nil
}

func collectRecords(ctx context.Context, cfg *config.Config, logger *log.Logger, schema *api.Schema, opts runOptions, out io.Writer) error {
	// Releases loads still in flight when the run stops early.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	for _, r := range cfg.Records {
		if _, ok := schema.Record(r.Kind); !ok {
			return fmt.Errorf("config records: kind %q is not declared in the schema", r.Kind)
		}
	}

	store := graph.NewMemoryStore()
	world := collect.NewWorld(store)

	schedOpts, err := cfg.SchedulerOptions(logger)
	if err != nil {
		return err
	}
	sched := collect.NewScheduler(world, schedOpts...)
	passOpts, err := cfg.PassOptions()
	if err != nil {
		return err
	}
	if err := collect.RegisterSchema(sched, schema, passOpts); err != nil {
		return err
	}

	kinds := opts.kinds
	if len(kinds) == 0 {
		kinds = sched.Kinds()
	}
	for _, k := range kinds {
		if _, ok := schema.Record(k); !ok {
			return fmt.Errorf("kind %q is not declared in the schema", k)
		}
	}

	dir, err := filepath.Abs(opts.dir)
	if err != nil {
		return err
	}
	spawner := ingest.NewSpawner(store, world, ingest.NewLoader(osfs.New(dir)), logger)
	for _, s := range opts.scenes {
		attachment, path, err := parseSceneFlag(s)
		if err != nil {
			return err
		}
		if err := spawner.Spawn(ctx, ingest.Request{
			Attachment: attachment,
			Name:       attachment,
			Path:       path,
			Kinds:      kinds,
		}); err != nil {
			return err
		}
	}

	var (
		failures []collect.Failure
		loadErrs []error
	)
	for tick := 0; cfg.Collector.MaxTicks == 0 || tick < cfg.Collector.MaxTicks; tick++ {
		if _, err := spawner.Drain(); err != nil {
			loadErrs = append(loadErrs, err)
		}
		rep, err := sched.Tick(ctx)
		failures = append(failures, rep.Failures...)
		if err != nil {
			return err
		}
		if spawner.InFlight() == 0 && pending(world, kinds) == 0 {
			break
		}
		if spawner.InFlight() > 0 {
			// Nothing to do until the next scene lands.
			if _, err := spawner.Wait(ctx); err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				loadErrs = append(loadErrs, err)
			}
			continue
		}
		select {
		case <-time.After(cfg.Collector.Tick):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if n := spawner.InFlight() + pending(world, kinds); n > 0 {
		logger.Warn("stopped with work outstanding", "max_ticks", cfg.Collector.MaxTicks, "outstanding", n)
	}

	result := runOutput{Records: []printedRecord{}}
	for _, kind := range kinds {
		for _, attachment := range world.Attached(kind) {
			rec, ok := collect.Get[collect.Record](world, kind, attachment)
			if !ok {
				continue
			}
			decl, _ := schema.Record(kind)
			pr := printedRecord{Kind: kind, Attachment: attachment, Fields: make(map[string]printedField, len(rec.Fields))}
			for _, f := range rec.Fields {
				pf := printedField{Node: f.Node, Path: namePath(decl, f.Name)}
				if n, err := store.GetNode(f.Node); err == nil {
					pf.Name = n.Name
				}
				pr.Fields[f.Name] = pf
			}
			result.Records = append(result.Records, pr)
		}
	}
	for _, f := range failures {
		result.Failures = append(result.Failures, printedFailure{Kind: f.Kind, Attachment: f.Attachment, Error: f.Err.Error()})
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(result); err != nil {
		return err
	}

	errs := loadErrs
	for _, f := range failures {
		errs = append(errs, f.Err)
	}
	return errors.Join(errs...)
}

// namePath is the full name path of a declared field, root name first.
func namePath(decl api.Record, field string) []string {
	path := []string{decl.Root}
	for _, f := range decl.Fields {
		if f.Name == field {
			return append(path, f.Path...)
		}
	}
	return path
}

func pending(w *collect.World, kinds []string) int {
	n := 0
	for _, k := range kinds {
		n += w.Pending(k)
	}
	return n
}

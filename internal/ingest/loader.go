package ingest

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"

	"github.com/charmbracelet/log"
	billy "github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/util"

	"github.com/agentic-research/descend/pkg/collect"
	"github.com/agentic-research/descend/pkg/graph"
)

// OpenScene reads an asset from fs. .gltf and .glb files are parsed into
// memory; .db snapshots are opened in place, which needs fs to be backed
// by the OS filesystem. The caller closes the result when it is an
// io.Closer.
func OpenScene(fs billy.Filesystem, path string) (graph.Graph, error) {
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".gltf", ".glb":
		data, err := util.ReadFile(fs, path)
		if err != nil {
			return nil, fmt.Errorf("read scene: %w", err)
		}
		store, err := ParseGLTF(data)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return store, nil
	case ".db":
		if _, err := fs.Stat(path); err != nil {
			return nil, fmt.Errorf("stat scene: %w", err)
		}
		g, err := graph.OpenSQLiteGraph(filepath.Join(fs.Root(), path))
		if err != nil {
			return nil, err
		}
		return g, nil
	default:
		return nil, fmt.Errorf("scene %s: unsupported extension %q (want .gltf, .glb or .db)", path, ext)
	}
}

// Request asks for the default scene of an asset to be spawned under an
// attachment node, with the given record kinds marked once it is there.
type Request struct {
	Attachment string
	Name       string // name given to the attachment node, may be empty
	Path       string
	Kinds      []string
}

// Loaded is a finished load.
type Loaded struct {
	Request
	Graph graph.Graph
	Err   error
}

// Loader reads assets on background goroutines.
type Loader struct {
	fs   billy.Filesystem
	done chan Loaded
	wg   sync.WaitGroup
}

func NewLoader(fs billy.Filesystem) *Loader {
	return &Loader{fs: fs, done: make(chan Loaded)}
}

// Load starts reading req.Path. The result is delivered on Done unless ctx
// ends first.
func (l *Loader) Load(ctx context.Context, req Request) {
	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		g, err := OpenScene(l.fs, req.Path)
		select {
		case l.done <- Loaded{Request: req, Graph: g, Err: err}:
		case <-ctx.Done():
			closeGraph(g)
		}
	}()
}

// Done delivers finished loads.
func (l *Loader) Done() <-chan Loaded {
	return l.done
}

// Wait blocks until every started load was delivered or abandoned.
func (l *Loader) Wait() {
	l.wg.Wait()
}

func closeGraph(g graph.Graph) {
	if c, ok := g.(io.Closer); ok {
		_ = c.Close() // read-only snapshot
	}
}

// Spawner owns the scene store on the scheduler's goroutine. It creates
// attachment nodes immediately, and when their assets arrive it
// instantiates them and marks the requested kinds, producing the edge the
// scheduler reacts to. Call its methods between ticks only.
type Spawner struct {
	store    *graph.MemoryStore
	world    *collect.World
	loader   *Loader
	logger   *log.Logger
	inflight int
}

func NewSpawner(store *graph.MemoryStore, world *collect.World, loader *Loader, logger *log.Logger) *Spawner {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Spawner{store: store, world: world, loader: loader, logger: logger}
}

// Spawn adds the attachment node and starts loading its asset.
func (s *Spawner) Spawn(ctx context.Context, req Request) error {
	if req.Attachment == "" {
		return errors.New("spawn: empty attachment ID")
	}
	if _, err := s.store.GetNode(req.Attachment); err == nil {
		return fmt.Errorf("spawn %s: node already exists", req.Attachment)
	}
	s.store.AddRoot(&graph.Node{ID: req.Attachment, Name: req.Name})
	s.loader.Load(ctx, req)
	s.inflight++
	return nil
}

// InFlight returns the number of spawned assets not yet instantiated.
func (s *Spawner) InFlight() int {
	return s.inflight
}

// Drain instantiates every asset that finished loading, without blocking.
// It returns the attachment points that were populated.
func (s *Spawner) Drain() ([]string, error) {
	var (
		spawned []string
		errs    []error
	)
	for {
		select {
		case l := <-s.loader.Done():
			if err := s.finish(l); err != nil {
				errs = append(errs, err)
			} else {
				spawned = append(spawned, l.Attachment)
			}
		default:
			return spawned, errors.Join(errs...)
		}
	}
}

// Wait blocks until at least one asset finished loading, then drains.
// With nothing in flight it returns immediately.
func (s *Spawner) Wait(ctx context.Context) ([]string, error) {
	if s.inflight == 0 {
		return nil, nil
	}
	select {
	case l := <-s.loader.Done():
		first := s.finish(l)
		spawned, err := s.Drain()
		if first != nil {
			return spawned, errors.Join(first, err)
		}
		return append([]string{l.Attachment}, spawned...), err
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

func (s *Spawner) finish(l Loaded) error {
	s.inflight--
	if l.Err != nil {
		s.logger.Error("scene load failed", "attachment", l.Attachment, "path", l.Path, "err", l.Err)
		return fmt.Errorf("spawn %s: %w", l.Attachment, l.Err)
	}
	defer closeGraph(l.Graph)

	scene, err := DefaultScene(l.Graph)
	if err != nil {
		return fmt.Errorf("spawn %s from %s: %w", l.Attachment, l.Path, err)
	}
	root, err := Instantiate(s.store, l.Attachment, l.Graph, scene)
	if err != nil {
		return fmt.Errorf("spawn %s from %s: %w", l.Attachment, l.Path, err)
	}
	for _, kind := range l.Kinds {
		s.world.Mark(kind, l.Attachment)
	}
	s.logger.Debug("scene spawned", "attachment", l.Attachment, "path", l.Path, "scene", root, "kinds", l.Kinds)
	return nil
}

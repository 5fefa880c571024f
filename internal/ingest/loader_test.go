package ingest

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/osfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/agentic-research/descend/pkg/collect"
	"github.com/agentic-research/descend/pkg/graph"
)

func TestOpenScene(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "models/turret.gltf", []byte(turretGLTF), 0o644))
	require.NoError(t, util.WriteFile(fs, "models/turret.obj", []byte("v 0 0 0"), 0o644))

	g, err := OpenScene(fs, "models/turret.gltf")
	require.NoError(t, err)
	def, err := DefaultScene(g)
	require.NoError(t, err)
	assert.Equal(t, "scene/0", def)

	_, err = OpenScene(fs, "models/turret.obj")
	assert.ErrorContains(t, err, "unsupported extension")
	_, err = OpenScene(fs, "models/absent.gltf")
	assert.Error(t, err)
	_, err = OpenScene(fs, "models/absent.db")
	assert.Error(t, err)
}

func TestOpenScene_SQLiteSnapshot(t *testing.T) {
	dir := t.TempDir()
	asset, err := ParseGLTF([]byte(turretGLTF))
	require.NoError(t, err)

	w, err := graph.NewSQLiteWriter(filepath.Join(dir, "turret.db"))
	require.NoError(t, err)
	require.NoError(t, w.WriteGraph(asset))
	require.NoError(t, w.Close())

	g, err := OpenScene(osfs.New(dir), "turret.db")
	require.NoError(t, err)
	defer closeGraph(g)

	def, err := DefaultScene(g)
	require.NoError(t, err)
	assert.Equal(t, "scene/0", def)
	n, err := g.GetNode("node/0")
	require.NoError(t, err)
	assert.Equal(t, "Armature", n.Name)
}

func TestSpawner_MarksAfterInstantiation(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "turret.gltf", []byte(turretGLTF), 0o644))

	store := graph.NewMemoryStore()
	world := collect.NewWorld(store)
	sp := NewSpawner(store, world, NewLoader(fs), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, sp.Spawn(ctx, Request{Attachment: "t1", Name: "Turret", Path: "turret.gltf", Kinds: []string{"turret", "lights"}}))
	assert.Equal(t, 1, sp.InFlight())
	assert.False(t, world.HasMarker("turret", "t1"), "no marker before the scene exists")

	n, err := store.GetNode("t1")
	require.NoError(t, err)
	assert.Equal(t, "Turret", n.Name)

	spawned, err := sp.Wait(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"t1"}, spawned)
	assert.Equal(t, 0, sp.InFlight())
	assert.True(t, world.HasMarker("turret", "t1"))
	assert.True(t, world.HasMarker("lights", "t1"))

	_, err = store.GetNode("t1/node/0")
	assert.NoError(t, err)

	assert.ErrorContains(t, sp.Spawn(ctx, Request{Attachment: "t1", Path: "turret.gltf"}), "already exists")
	assert.Error(t, sp.Spawn(ctx, Request{Path: "turret.gltf"}))

	spawned, err = sp.Wait(ctx)
	require.NoError(t, err)
	assert.Empty(t, spawned, "nothing in flight")
}

func TestSpawner_LoadFailure(t *testing.T) {
	store := graph.NewMemoryStore()
	world := collect.NewWorld(store)
	sp := NewSpawner(store, world, NewLoader(memfs.New()), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	require.NoError(t, sp.Spawn(ctx, Request{Attachment: "t1", Path: "missing.gltf", Kinds: []string{"turret"}}))
	_, err := sp.Wait(ctx)
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
	assert.False(t, world.HasMarker("turret", "t1"))
	assert.Equal(t, 0, sp.InFlight())
}

func TestLoader_AbandonsOnCancel(t *testing.T) {
	fs := memfs.New()
	require.NoError(t, util.WriteFile(fs, "turret.gltf", []byte(turretGLTF), 0o644))
	l := NewLoader(fs)

	ctx, cancel := context.WithCancel(context.Background())
	l.Load(ctx, Request{Attachment: "t1", Path: "turret.gltf"})
	cancel()
	l.Wait()
}

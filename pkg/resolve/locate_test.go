package resolve

import (
	"errors"
	"testing"

	"github.com/agentic-research/descend/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// spawnedScene mimics a scene spawned under an attachment point:
// attachment -> unnamed scene root -> "Armature" -> "Bone".
func spawnedScene(t *testing.T) *graph.MemoryStore {
	t.Helper()
	s := graph.NewMemoryStore()
	s.AddRoot(&graph.Node{ID: "turret", Name: "Turret"})
	addChild(t, s, "turret", "turret/scene", "")
	addChild(t, s, "turret/scene", "turret/scene/0", "Armature")
	addChild(t, s, "turret/scene/0", "turret/scene/1", "Bone")
	return s
}

func TestLocate_ScenarioC(t *testing.T) {
	s := spawnedScene(t)

	root, err := Locate(s, SceneDiscovery(), "turret", "Armature")
	require.NoError(t, err)
	assert.Equal(t, "turret/scene/0", root)

	_, err = Locate(s, DirectChild(), "turret", "Armature")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRootNotFound)

	var rnf *RootNotFoundError
	require.True(t, errors.As(err, &rnf))
	assert.Equal(t, "turret", rnf.Attachment)
	assert.Equal(t, "Armature", rnf.RootName)
	assert.Equal(t, KindDirectChild, rnf.Strategy.Kind())
	assert.Equal(t, [][]string{{"Turret", "Armature", "Bone"}}, rnf.Candidates)
	assert.Contains(t, err.Error(), `"Armature"`)
	assert.Contains(t, err.Error(), `["Turret" "Armature" "Bone"]`)
}

func TestLocate_DirectChild(t *testing.T) {
	s := graph.NewMemoryStore()
	s.AddRoot(&graph.Node{ID: "attach"})
	addChild(t, s, "attach", "attach/arm", "Armature")

	root, err := Locate(s, DirectChild(), "attach", "Armature")
	require.NoError(t, err)
	assert.Equal(t, "attach/arm", root)

	// Scene discovery looks one level too deep for this layout.
	_, err = Locate(s, SceneDiscovery(), "attach", "Armature")
	assert.ErrorIs(t, err, ErrRootNotFound)
}

func TestLocate_DirectAndFixedIgnoreRootName(t *testing.T) {
	s := spawnedScene(t)

	root, err := Locate(s, Direct(), "turret", "does-not-exist")
	require.NoError(t, err)
	assert.Equal(t, "turret", root)

	root, err = Locate(s, Fixed("turret/scene/1"), "turret", "does-not-exist")
	require.NoError(t, err)
	assert.Equal(t, "turret/scene/1", root)

	// Fixed never validates, even against a node the graph lacks.
	root, err = Locate(s, Fixed("elsewhere"), "turret", "")
	require.NoError(t, err)
	assert.Equal(t, "elsewhere", root)
}

func TestStrategy_ZeroValueIsSceneDiscovery(t *testing.T) {
	var s Strategy
	assert.Equal(t, KindSceneDiscovery, s.Kind())
	assert.Equal(t, "scene", s.String())

	_, ok := s.FixedRoot()
	assert.False(t, ok)

	id, ok := Fixed("n").FixedRoot()
	assert.True(t, ok)
	assert.Equal(t, "n", id)
	assert.Equal(t, "fixed(n)", Fixed("n").String())
}

func TestParseStrategy(t *testing.T) {
	tests := []struct {
		name    string
		fixed   string
		want    Strategy
		wantErr bool
	}{
		{name: "", want: SceneDiscovery()},
		{name: "scene", want: SceneDiscovery()},
		{name: "scene-discovery", want: SceneDiscovery()},
		{name: "child", want: DirectChild()},
		{name: "direct-child", want: DirectChild()},
		{name: "direct", want: Direct()},
		{name: "fixed", fixed: "n1", want: Fixed("n1")},
		{name: "fixed", wantErr: true},
		{name: "direct", fixed: "n1", wantErr: true},
		{name: "sideways", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name+"/"+tt.fixed, func(t *testing.T) {
			got, err := ParseStrategy(tt.name, tt.fixed)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

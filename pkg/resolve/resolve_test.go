package resolve

import (
	"testing"

	"github.com/agentic-research/descend/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// countingGraph records how many nodes were fetched.
type countingGraph struct {
	graph.Graph
	gets int
}

func (c *countingGraph) GetNode(id string) (*graph.Node, error) {
	c.gets++
	return c.Graph.GetNode(id)
}

func addChild(t *testing.T, s *graph.MemoryStore, parent, id, name string) {
	t.Helper()
	require.NoError(t, s.AppendChild(parent, &graph.Node{ID: id, Name: name}))
}

// scenarioA builds root -> "foo1" -> "bar" -> {"baz", "baz2", unnamed}.
func scenarioA(t *testing.T) *graph.MemoryStore {
	t.Helper()
	s := graph.NewMemoryStore()
	s.AddRoot(&graph.Node{ID: "root"})
	addChild(t, s, "root", "foo1", "foo1")
	addChild(t, s, "foo1", "foo1/bar", "bar")
	addChild(t, s, "foo1/bar", "foo1/bar/baz", "baz")
	addChild(t, s, "foo1/bar", "foo1/bar/baz2", "baz2")
	addChild(t, s, "foo1/bar", "foo1/bar/anon", "")
	return s
}

// scenarioB adds the sibling root -> "foo2" -> "bar" -> {"baz", "baz2", "baz3"}.
func scenarioB(t *testing.T) *graph.MemoryStore {
	t.Helper()
	s := scenarioA(t)
	addChild(t, s, "root", "foo2", "foo2")
	addChild(t, s, "foo2", "foo2/bar", "bar")
	addChild(t, s, "foo2/bar", "foo2/bar/baz", "baz")
	addChild(t, s, "foo2/bar", "foo2/bar/baz2", "baz2")
	addChild(t, s, "foo2/bar", "foo2/bar/baz3", "baz3")
	return s
}

func TestPath_ScenarioA(t *testing.T) {
	s := scenarioA(t)

	got, ok := Path(s, "root", []string{"foo1", "bar", "baz"})
	require.True(t, ok)
	assert.Equal(t, "foo1/bar/baz", got)

	_, ok = Path(s, "root", []string{"foo1", "bar", "qux"})
	assert.False(t, ok)
}

func TestPath_EmptySegmentsReturnsRoot(t *testing.T) {
	s := scenarioA(t)

	for _, root := range []string{"root", "foo1/bar", "foo1/bar/anon"} {
		got, ok := Path(s, root, nil)
		require.True(t, ok)
		assert.Equal(t, root, got)

		got, ok = Path(s, root, []string{})
		require.True(t, ok)
		assert.Equal(t, root, got)
	}
}

func TestPath_DescendsExactlyOneLevelPerSegment(t *testing.T) {
	s := scenarioB(t)

	// "bar" exists at depth 2 but not among root's direct children.
	_, ok := Path(s, "root", []string{"bar"})
	assert.False(t, ok)

	// "baz" sits at depth 3; skipping "bar" must not find it.
	_, ok = Path(s, "root", []string{"foo1", "baz"})
	assert.False(t, ok)

	got, ok := Path(s, "root", []string{"foo2", "bar"})
	require.True(t, ok)
	assert.Equal(t, "foo2/bar", got)
}

func TestPath_LeafAndEmptyChildListShortCircuit(t *testing.T) {
	s := graph.NewMemoryStore()
	s.AddRoot(&graph.Node{ID: "leaf", Name: "leaf"})
	s.AddRoot(&graph.Node{ID: "empty", Name: "empty", Children: []string{}})

	_, ok := Path(s, "leaf", []string{"x"})
	assert.False(t, ok)
	_, ok = Path(s, "empty", []string{"x"})
	assert.False(t, ok)
	_, ok = Path(s, "ghost", []string{"x"})
	assert.False(t, ok)
}

func TestPath_FirstMatchWinsWithoutBacktracking(t *testing.T) {
	s := graph.NewMemoryStore()
	s.AddRoot(&graph.Node{ID: "root"})
	addChild(t, s, "root", "dup1", "dup")
	addChild(t, s, "root", "dup2", "dup")
	addChild(t, s, "dup2", "dup2/target", "target")

	// The first "dup" has no "target"; the second is never tried.
	_, ok := Path(s, "root", []string{"dup", "target"})
	assert.False(t, ok)

	for range 5 {
		got, ok := Path(s, "root", []string{"dup"})
		require.True(t, ok)
		assert.Equal(t, "dup1", got)
	}
}

func TestPath_CaseSensitiveAndUnnamedNeverMatch(t *testing.T) {
	s := scenarioA(t)

	_, ok := Path(s, "root", []string{"FOO1"})
	assert.False(t, ok)

	// The unnamed child under bar cannot be addressed by an empty segment.
	_, ok = Path(s, "foo1/bar", []string{""})
	assert.False(t, ok)
}

func TestPath_SkipsDanglingChildren(t *testing.T) {
	s := graph.NewMemoryStore()
	s.AddRoot(&graph.Node{ID: "root", Children: []string{"missing", "real"}})
	s.AddNode(&graph.Node{ID: "real", Name: "real"})

	got, ok := Path(s, "root", []string{"real"})
	require.True(t, ok)
	assert.Equal(t, "real", got)
}

func TestGrandchild_OnlyDepthTwo(t *testing.T) {
	s := graph.NewMemoryStore()
	s.AddRoot(&graph.Node{ID: "attach"})
	addChild(t, s, "attach", "d1", "target")     // depth 1
	addChild(t, s, "d1", "d2", "other")          // depth 2
	addChild(t, s, "d2", "d3", "target")         // depth 3
	addChild(t, s, "attach", "wrapper", "")      // depth 1, unnamed
	addChild(t, s, "wrapper", "hit", "Armature") // depth 2

	_, ok := Grandchild(s, "attach", "target")
	assert.False(t, ok, "depth 1 and depth 3 matches must not be found")

	got, ok := Grandchild(s, "attach", "Armature")
	require.True(t, ok)
	assert.Equal(t, "hit", got)
}

func TestGrandchild_FirstInIterationOrder(t *testing.T) {
	s := graph.NewMemoryStore()
	s.AddRoot(&graph.Node{ID: "attach"})
	addChild(t, s, "attach", "a", "")
	addChild(t, s, "attach", "b", "")
	addChild(t, s, "b", "b/x", "x")
	addChild(t, s, "a", "a/y", "y")
	addChild(t, s, "a", "a/x", "x")

	got, ok := Grandchild(s, "attach", "x")
	require.True(t, ok)
	assert.Equal(t, "a/x", got)

	_, ok = Grandchild(s, "ghost", "x")
	assert.False(t, ok)
}

func TestLeafPaths_ScenarioB(t *testing.T) {
	s := scenarioB(t)

	assert.Equal(t, [][]string{
		{"foo1", "bar", "baz"},
		{"foo1", "bar", "baz2"},
		{"foo2", "bar", "baz"},
		{"foo2", "bar", "baz2"},
		{"foo2", "bar", "baz3"},
	}, CollectLeafPaths(s, "root"))
}

func TestLeafPaths_UnnamedIntermediateNodes(t *testing.T) {
	s := graph.NewMemoryStore()
	s.AddRoot(&graph.Node{ID: "root"})
	addChild(t, s, "root", "wrap", "")
	addChild(t, s, "wrap", "wrap/arm", "Armature")
	addChild(t, s, "wrap/arm", "wrap/arm/anon", "")
	addChild(t, s, "wrap/arm/anon", "wrap/arm/anon/bone", "Bone")
	addChild(t, s, "root", "childless", "")
	require.NoError(t, s.AppendChild("wrap", &graph.Node{ID: "wrap/empty-list", Name: "Hollow", Children: []string{}}))

	assert.Equal(t, [][]string{
		{"Armature", "Bone"},
		{"Hollow"},
	}, CollectLeafPaths(s, "root"))
}

func TestLeafPaths_NamedRoot(t *testing.T) {
	s := graph.NewMemoryStore()
	s.AddRoot(&graph.Node{ID: "solo", Name: "Solo"})
	assert.Equal(t, [][]string{{"Solo"}}, CollectLeafPaths(s, "solo"))

	s.AddRoot(&graph.Node{ID: "arm", Name: "Armature"})
	addChild(t, s, "arm", "arm/bone", "Bone")
	assert.Equal(t, [][]string{{"Armature", "Bone"}}, CollectLeafPaths(s, "arm"))

	s.AddRoot(&graph.Node{ID: "anon"})
	assert.Empty(t, CollectLeafPaths(s, "anon"))
	assert.Empty(t, CollectLeafPaths(s, "ghost"))
}

func TestLeafPaths_IsLazy(t *testing.T) {
	c := &countingGraph{Graph: scenarioB(t)}

	for p := range LeafPaths(c, "root") {
		assert.Equal(t, []string{"foo1", "bar", "baz"}, p)
		break
	}
	early := c.gets

	c.gets = 0
	_ = CollectLeafPaths(c, "root")
	assert.Less(t, early, c.gets, "stopping after the first path should fetch fewer nodes")
}

func TestLeafPaths_SurvivesCycles(t *testing.T) {
	s := graph.NewMemoryStore()
	s.AddRoot(&graph.Node{ID: "a", Name: "a", Children: []string{"b"}})
	s.AddNode(&graph.Node{ID: "b", Name: "b", Children: []string{"a", "c"}})
	s.AddNode(&graph.Node{ID: "c", Name: "c"})

	assert.Equal(t, [][]string{{"a", "b", "c"}}, CollectLeafPaths(s, "a"))
}

func TestResolvedPathsDoNotAlias(t *testing.T) {
	s := scenarioB(t)
	paths := CollectLeafPaths(s, "root")
	paths[0][2] = "mutated"
	assert.Equal(t, "baz2", paths[1][2])
}

func TestFormatPaths(t *testing.T) {
	out := FormatPaths([][]string{{"foo1", "bar"}, {"a b"}})
	assert.Equal(t, "  [\"foo1\" \"bar\"]\n  [\"a b\"]", out)
	assert.Contains(t, FormatPaths(nil), "no named leaf paths")
}

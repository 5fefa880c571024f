package collect

import (
	"testing"

	"github.com/agentic-research/descend/pkg/graph"
	"github.com/stretchr/testify/require"
)

func addChild(t *testing.T, s *graph.MemoryStore, parent, id, name string) {
	t.Helper()
	require.NoError(t, s.AppendChild(parent, &graph.Node{ID: id, Name: name}))
}

// spawnTurret builds the layout a spawned turret scene has:
//
//	attachment -> (unnamed scene root) -> Armature -> Bone -> Bone.Neck -> Bone.Head
//	                                              \-> Bone.Head.Target.IK
func spawnTurret(t *testing.T, s *graph.MemoryStore, attachment string) {
	t.Helper()
	s.AddRoot(&graph.Node{ID: attachment, Name: "Turret"})
	scene := attachment + "/scene"
	arm := scene + "/Armature"
	addChild(t, s, attachment, scene, "")
	addChild(t, s, scene, arm, "Armature")
	addChild(t, s, arm, arm+"/Bone", "Bone")
	addChild(t, s, arm+"/Bone", arm+"/Bone/Neck", "Bone.Neck")
	addChild(t, s, arm+"/Bone/Neck", arm+"/Bone/Neck/Head", "Bone.Head")
	addChild(t, s, arm, arm+"/IK", "Bone.Head.Target.IK")
}

type turretArmature struct {
	Root `namepath:"Armature"`

	Armature string `namepath:""`
	Base     string `namepath:"Bone"`
	Neck     string `namepath:"Bone,Bone.Neck"`
	Head     string `namepath:"Bone,Bone.Neck,Bone.Head"`
	TargetIK string `namepath:"Bone.Head.Target.IK"`
}

// funcContract adapts a function to Contract for tests.
type funcContract[T any] struct {
	root string
	fn   func(g graph.Graph, root, attachment string) (T, error)
}

func (c funcContract[T]) RootName() string { return c.root }

func (c funcContract[T]) ResolveFields(g graph.Graph, root, attachment string) (T, error) {
	return c.fn(g, root, attachment)
}

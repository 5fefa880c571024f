package collect

import (
	"errors"
	"testing"

	"github.com/agentic-research/descend/pkg/graph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFieldResolver_ResolvesFromRoot(t *testing.T) {
	s := graph.NewMemoryStore()
	spawnTurret(t, s, "t1")
	root := "t1/scene/Armature"

	r := NewFieldResolver(s, root, "Armature")
	assert.Equal(t, root, r.Resolve("root"))
	assert.Equal(t, root+"/Bone/Neck", r.Resolve("neck", "Bone", "Bone.Neck"))
	assert.NoError(t, r.Err())
}

func TestFieldResolver_FirstErrorSticks(t *testing.T) {
	s := graph.NewMemoryStore()
	spawnTurret(t, s, "t1")
	root := "t1/scene/Armature"

	r := NewFieldResolver(s, root, "Armature")
	assert.Empty(t, r.Resolve("neck", "Bone", "Neck"))
	assert.Empty(t, r.Resolve("base", "Bone"), "resolution stops after the first failure")

	err := r.Err()
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrFieldNotFound)

	var fre *FieldResolutionError
	require.True(t, errors.As(err, &fre))
	assert.Equal(t, "Armature", fre.Record)
	assert.Equal(t, "neck", fre.Field)
	assert.Equal(t, []string{"Bone", "Neck"}, fre.Path)
	assert.Equal(t, root, fre.Root)
	assert.Equal(t, [][]string{
		{"Armature", "Bone", "Bone.Neck", "Bone.Head"},
		{"Armature", "Bone.Head.Target.IK"},
	}, fre.Candidates)
	assert.Contains(t, err.Error(), `Armature.neck: path ["Bone" "Neck"] not found`)
}

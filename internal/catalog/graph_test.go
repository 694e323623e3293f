package catalog

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func ptrInt64(v int64) *int64 { return &v }

func knownFixture() map[int64]Permission {
	return map[int64]Permission{
		1: {ID: 1, Code: "reports", Path: "/1"},
		2: {ID: 2, Code: "reports.view", ParentID: ptrInt64(1), Path: "/1/2"},
		3: {ID: 3, Code: "reports.export", ParentID: ptrInt64(1), Path: "/1/3"},
	}
}

func TestValidateEdges(t *testing.T) {
	known := knownFixture()

	require.NoError(t, validateEdges(3, []int64{2}, []int64{1}, known))

	err := validateEdges(3, []int64{3}, nil, known)
	require.ErrorIs(t, err, ErrInvalidGraph)

	err = validateEdges(3, nil, []int64{3}, known)
	require.ErrorIs(t, err, ErrInvalidGraph)

	err = validateEdges(3, []int64{99}, nil, known)
	require.ErrorIs(t, err, ErrInvalidGraph)

	err = validateEdges(3, nil, []int64{99}, known)
	require.ErrorIs(t, err, ErrInvalidGraph)

	// The same edge cannot be required and forbidden at once.
	err = validateEdges(3, []int64{2}, []int64{2}, known)
	require.ErrorIs(t, err, ErrInvalidGraph)
}

func TestValidateParent(t *testing.T) {
	known := knownFixture()

	require.NoError(t, validateParent(3, nil, known))
	require.NoError(t, validateParent(3, ptrInt64(1), known))

	// Reparenting the root under its own descendant closes a cycle.
	err := validateParent(1, ptrInt64(2), known)
	require.ErrorIs(t, err, ErrInvalidGraph)

	err = validateParent(3, ptrInt64(99), known)
	require.ErrorIs(t, err, ErrInvalidGraph)
}

func TestMaterializePath(t *testing.T) {
	known := knownFixture()

	require.Equal(t, "/42", materializePath(42, nil, known))
	require.Equal(t, "/1/2/42", materializePath(42, ptrInt64(2), known))
	require.Equal(t, "/42", materializePath(42, ptrInt64(99), known))
}

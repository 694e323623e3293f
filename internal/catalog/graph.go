package catalog

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates the requested permission does not exist.
	ErrNotFound = errors.New("catalog: permission not found")
	// ErrInvalidGraph indicates a write that would corrupt the permission
	// graph: a parent cycle, or overlapping dependency and conflict sets.
	ErrInvalidGraph = errors.New("catalog: invalid permission graph")
	// ErrSystemPermission indicates an attempt to delete or rename a system
	// permission.
	ErrSystemPermission = errors.New("catalog: system permission is immutable")
	// ErrDuplicateCode indicates the permission code is already taken.
	ErrDuplicateCode = errors.New("catalog: duplicate permission code")
)

// validateEdges checks that the dependency and conflict sets are disjoint and
// contain neither the permission itself nor unknown entries.
func validateEdges(id int64, dependencies, conflicts []int64, known map[int64]Permission) error {
	deps := make(map[int64]struct{}, len(dependencies))
	for _, dep := range dependencies {
		if dep == id {
			return fmt.Errorf("%w: permission %d depends on itself", ErrInvalidGraph, id)
		}
		if _, ok := known[dep]; !ok {
			return fmt.Errorf("%w: unknown dependency %d", ErrInvalidGraph, dep)
		}
		deps[dep] = struct{}{}
	}
	for _, conflict := range conflicts {
		if conflict == id {
			return fmt.Errorf("%w: permission %d conflicts with itself", ErrInvalidGraph, id)
		}
		if _, ok := known[conflict]; !ok {
			return fmt.Errorf("%w: unknown conflict %d", ErrInvalidGraph, conflict)
		}
		if _, overlap := deps[conflict]; overlap {
			return fmt.Errorf("%w: %d is both dependency and conflict", ErrInvalidGraph, conflict)
		}
	}
	return nil
}

// validateParent walks the ancestor chain from the proposed parent and
// rejects assignments that would close a cycle.
func validateParent(id int64, parentID *int64, known map[int64]Permission) error {
	if parentID == nil {
		return nil
	}
	seen := make(map[int64]struct{})
	current := *parentID
	for {
		if current == id {
			return fmt.Errorf("%w: parent chain cycles through %d", ErrInvalidGraph, id)
		}
		if _, visited := seen[current]; visited {
			return fmt.Errorf("%w: parent chain already cyclic at %d", ErrInvalidGraph, current)
		}
		seen[current] = struct{}{}
		node, ok := known[current]
		if !ok {
			return fmt.Errorf("%w: unknown parent %d", ErrInvalidGraph, current)
		}
		if node.ParentID == nil {
			return nil
		}
		current = *node.ParentID
	}
}

// materializePath builds the slash-delimited ancestor chain ending in the
// permission's own ID, e.g. "/3/17/42".
func materializePath(id int64, parentID *int64, known map[int64]Permission) string {
	if parentID == nil {
		return fmt.Sprintf("/%d", id)
	}
	parent, ok := known[*parentID]
	if !ok {
		return fmt.Sprintf("/%d", id)
	}
	return fmt.Sprintf("%s/%d", parent.Path, id)
}

// Package relation answers structural queries over the directed document
// graph. Traversals work on an explicit edge source and carry visited sets,
// so they terminate even if stored edge data has been corrupted into a cycle.
package relation

import (
	"context"
	"fmt"

	"specline/internal/domain"
)

// Edges exposes one-hop adjacency over persisted relationship edges.
type Edges interface {
	Parents(ctx context.Context, id string) ([]string, error)
	Children(ctx context.Context, id string) ([]string, error)
}

// NodeLoader resolves a document id into its tree node fields.
type NodeLoader func(ctx context.Context, id string) (domain.TreeNode, error)

// SelfLinkError rejects an edge from a document to itself.
type SelfLinkError struct {
	ID string
}

func (e SelfLinkError) Error() string {
	return fmt.Sprintf("document %s cannot link to itself", e.ID)
}

// DuplicateLinkError rejects an edge that already exists.
type DuplicateLinkError struct {
	ParentID string
	ChildID  string
}

func (e DuplicateLinkError) Error() string {
	return fmt.Sprintf("link %s -> %s already exists", e.ParentID, e.ChildID)
}

// CircularDependencyError rejects an edge that would make a document its own
// transitive ancestor.
type CircularDependencyError struct {
	ParentID string
	ChildID  string
}

func (e CircularDependencyError) Error() string {
	return fmt.Sprintf("link %s -> %s would create a cycle", e.ParentID, e.ChildID)
}

// Ancestors returns the transitive parents of id in breadth-first order,
// excluding id itself.
func Ancestors(ctx context.Context, edges Edges, id string) ([]string, error) {
	return walk(ctx, id, edges.Parents)
}

// Descendants returns the transitive children of id in breadth-first order,
// excluding id itself.
func Descendants(ctx context.Context, edges Edges, id string) ([]string, error) {
	return walk(ctx, id, edges.Children)
}

func walk(ctx context.Context, start string, next func(context.Context, string) ([]string, error)) ([]string, error) {
	visited := map[string]bool{start: true}
	queue := []string{start}
	var out []string
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		hops, err := next(ctx, cur)
		if err != nil {
			return nil, err
		}
		for _, id := range hops {
			if visited[id] {
				continue
			}
			visited[id] = true
			out = append(out, id)
			queue = append(queue, id)
		}
	}
	return out, nil
}

// WouldCycle reports whether adding parentID -> childID would create a cycle,
// i.e. childID is already a transitive ancestor of parentID.
func WouldCycle(ctx context.Context, edges Edges, parentID, childID string) (bool, error) {
	if parentID == childID {
		return true, nil
	}
	ancestors, err := Ancestors(ctx, edges, parentID)
	if err != nil {
		return false, err
	}
	for _, id := range ancestors {
		if id == childID {
			return true, nil
		}
	}
	return false, nil
}

// BuildTree materializes the subtree rooted at rootID by recursive descent
// over child edges. A visiting set guards against cyclic edge data: a node
// seen again on the current path is omitted rather than recursed into.
func BuildTree(ctx context.Context, edges Edges, load NodeLoader, rootID string) (*domain.TreeNode, error) {
	return descend(ctx, edges, load, rootID, map[string]bool{})
}

func descend(ctx context.Context, edges Edges, load NodeLoader, id string, visiting map[string]bool) (*domain.TreeNode, error) {
	node, err := load(ctx, id)
	if err != nil {
		return nil, err
	}
	visiting[id] = true
	defer delete(visiting, id)

	children, err := edges.Children(ctx, id)
	if err != nil {
		return nil, err
	}
	for _, childID := range children {
		if visiting[childID] {
			continue
		}
		child, err := descend(ctx, edges, load, childID, visiting)
		if err != nil {
			return nil, err
		}
		node.Children = append(node.Children, child)
	}
	return &node, nil
}

package relation_test

import (
	"context"
	"errors"
	"testing"

	"specline/internal/domain"
	"specline/internal/relation"
)

// mapEdges is an in-memory edge source; parent -> children.
type mapEdges map[string][]string

func (m mapEdges) Children(_ context.Context, id string) ([]string, error) {
	return m[id], nil
}

func (m mapEdges) Parents(_ context.Context, id string) ([]string, error) {
	var out []string
	for parent, children := range m {
		for _, c := range children {
			if c == id {
				out = append(out, parent)
			}
		}
	}
	return out, nil
}

func loaderFor(edges mapEdges) relation.NodeLoader {
	return func(_ context.Context, id string) (domain.TreeNode, error) {
		return domain.TreeNode{DocumentID: id, Title: id}, nil
	}
}

func TestAncestorsDiamond(t *testing.T) {
	// root -> a, root -> b, a -> leaf, b -> leaf
	edges := mapEdges{
		"root": {"a", "b"},
		"a":    {"leaf"},
		"b":    {"leaf"},
	}
	got, err := relation.Ancestors(context.Background(), edges, "leaf")
	if err != nil {
		t.Fatal(err)
	}
	seen := map[string]int{}
	for _, id := range got {
		seen[id]++
	}
	for _, id := range []string{"a", "b", "root"} {
		if seen[id] != 1 {
			t.Fatalf("expected %s exactly once, got %v", id, got)
		}
	}
	if len(got) != 3 {
		t.Fatalf("unexpected ancestors %v", got)
	}
}

func TestDescendants(t *testing.T) {
	edges := mapEdges{
		"root": {"a", "b"},
		"a":    {"leaf"},
	}
	got, err := relation.Descendants(context.Background(), edges, "root")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 3 {
		t.Fatalf("expected a, b, leaf; got %v", got)
	}
	if got[0] != "a" || got[1] != "b" {
		t.Fatalf("expected breadth-first order, got %v", got)
	}
}

func TestWouldCycle(t *testing.T) {
	edges := mapEdges{
		"epic":  {"story"},
		"story": {"task"},
	}
	ctx := context.Background()
	cycle, err := relation.WouldCycle(ctx, edges, "task", "epic")
	if err != nil || !cycle {
		t.Fatalf("task -> epic should cycle: %v %v", cycle, err)
	}
	cycle, err = relation.WouldCycle(ctx, edges, "x", "x")
	if err != nil || !cycle {
		t.Fatalf("self link should cycle")
	}
	cycle, err = relation.WouldCycle(ctx, edges, "epic", "other")
	if err != nil || cycle {
		t.Fatalf("unrelated edge should not cycle: %v %v", cycle, err)
	}
}

func TestWalkTerminatesOnCorruptData(t *testing.T) {
	// Stored edges already contain a cycle; traversal must still end. The
	// start node is excluded from its own ancestor set even when the cycle
	// leads back to it.
	edges := mapEdges{
		"a": {"b"},
		"b": {"a"},
	}
	got, err := relation.Ancestors(context.Background(), edges, "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0] != "b" {
		t.Fatalf("expected exactly [b], got %v", got)
	}
}

func TestBuildTree(t *testing.T) {
	edges := mapEdges{
		"root": {"a", "b"},
		"a":    {"leaf"},
	}
	tree, err := relation.BuildTree(context.Background(), edges, loaderFor(edges), "root")
	if err != nil {
		t.Fatal(err)
	}
	if tree.DocumentID != "root" || len(tree.Children) != 2 {
		t.Fatalf("unexpected tree %+v", tree)
	}
	if tree.Children[0].DocumentID != "a" || len(tree.Children[0].Children) != 1 {
		t.Fatalf("unexpected subtree %+v", tree.Children[0])
	}
	if tree.Children[0].Children[0].DocumentID != "leaf" {
		t.Fatalf("expected leaf under a")
	}
}

func TestBuildTreeSkipsCyclicChild(t *testing.T) {
	edges := mapEdges{
		"a": {"b"},
		"b": {"a"},
	}
	tree, err := relation.BuildTree(context.Background(), edges, loaderFor(edges), "a")
	if err != nil {
		t.Fatal(err)
	}
	if len(tree.Children) != 1 || tree.Children[0].DocumentID != "b" {
		t.Fatalf("unexpected tree %+v", tree)
	}
	// b's back edge to a must be omitted, not recursed into.
	if len(tree.Children[0].Children) != 0 {
		t.Fatalf("expected cycle edge omitted, got %+v", tree.Children[0].Children)
	}
}

func TestBuildTreePropagatesLoadError(t *testing.T) {
	edges := mapEdges{"root": {"missing"}}
	wantErr := errors.New("gone")
	load := func(_ context.Context, id string) (domain.TreeNode, error) {
		if id == "missing" {
			return domain.TreeNode{}, wantErr
		}
		return domain.TreeNode{DocumentID: id}, nil
	}
	_, err := relation.BuildTree(context.Background(), edges, load, "root")
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected load error, got %v", err)
	}
}

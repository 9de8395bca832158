package diff

import "testing"

func TestIdenticalTexts(t *testing.T) {
	text := "alpha\nbeta\ngamma\n"
	blocks := Lines(text, text)
	if len(blocks) != 3 {
		t.Fatalf("expected 3 blocks, got %d", len(blocks))
	}
	for i, b := range blocks {
		if b.Type != Unchanged {
			t.Errorf("block %d: expected unchanged, got %s", i, b.Type)
		}
		if b.OldLine != i+1 || b.NewLine != i+1 || b.Line != i+1 {
			t.Errorf("block %d: bad numbering old=%d new=%d line=%d", i, b.OldLine, b.NewLine, b.Line)
		}
	}
}

func TestEmptyToContent(t *testing.T) {
	blocks := Lines("", "a\nb")
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %v", blocks)
	}
	for i, b := range blocks {
		if b.Type != Added {
			t.Errorf("block %d: expected added, got %s", i, b.Type)
		}
		if b.NewLine != i+1 || b.OldLine != 0 {
			t.Errorf("block %d: bad numbering old=%d new=%d", i, b.OldLine, b.NewLine)
		}
	}
}

func TestReplacedLine(t *testing.T) {
	blocks := Lines("a\nb\nc\n", "a\nx\nc\n")
	want := []struct {
		typ              Type
		text             string
		line, oldL, newL int
	}{
		{Unchanged, "a", 1, 1, 1},
		{Removed, "b", 2, 2, 0},
		{Added, "x", 3, 0, 2},
		{Unchanged, "c", 4, 3, 3},
	}
	if len(blocks) != len(want) {
		t.Fatalf("expected %d blocks, got %v", len(want), blocks)
	}
	for i, w := range want {
		b := blocks[i]
		if b.Type != w.typ || b.Text != w.text || b.Line != w.line || b.OldLine != w.oldL || b.NewLine != w.newL {
			t.Errorf("block %d: got %+v, want %+v", i, b, w)
		}
	}
}

func TestDirectionMatters(t *testing.T) {
	oldText := "a\nb\n"
	newText := "a\nb\nc\n"
	forward := Lines(oldText, newText)
	backward := Lines(newText, oldText)
	if forward[len(forward)-1].Type != Added {
		t.Fatalf("forward: expected trailing added, got %+v", forward)
	}
	if backward[len(backward)-1].Type != Removed {
		t.Fatalf("backward: expected trailing removed, got %+v", backward)
	}
}

func TestNoPhantomTrailingLine(t *testing.T) {
	blocks := Lines("a\n", "a\nb\n")
	if len(blocks) != 2 {
		t.Fatalf("expected 2 blocks, got %v", blocks)
	}
	for _, b := range blocks {
		if b.Text == "" {
			t.Fatalf("phantom empty line in %v", blocks)
		}
	}
}

func TestSideBySidePairsRuns(t *testing.T) {
	blocks := Lines("a\nb\nc\n", "a\nx\ny\nc\n")
	rows := SideBySide(blocks)
	// a | a, b | x, nil | y, c | c
	if len(rows) != 4 {
		t.Fatalf("expected 4 rows, got %d", len(rows))
	}
	if rows[1].Left == nil || rows[1].Right == nil {
		t.Fatalf("row 1: expected paired removal/addition, got %+v", rows[1])
	}
	if rows[1].Left.Text != "b" || rows[1].Right.Text != "x" {
		t.Fatalf("row 1: got %q | %q", rows[1].Left.Text, rows[1].Right.Text)
	}
	if rows[2].Left != nil || rows[2].Right == nil || rows[2].Right.Text != "y" {
		t.Fatalf("row 2: expected right-only addition, got %+v", rows[2])
	}
	if rows[3].Left == nil || rows[3].Left.Text != "c" || rows[3].Right.Text != "c" {
		t.Fatalf("row 3: expected unchanged pair, got %+v", rows[3])
	}
}

func TestInlinePrefixes(t *testing.T) {
	blocks := Lines("a\nb\n", "a\nc\n")
	lines := Inline(blocks)
	want := []string{"  a", "- b", "+ c"}
	if len(lines) != len(want) {
		t.Fatalf("got %v", lines)
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Errorf("line %d: got %q, want %q", i, lines[i], want[i])
		}
	}
}

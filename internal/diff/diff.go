// Package diff computes line-level differences between two text blobs. It is
// pure: no storage, no I/O, safe for concurrent use.
package diff

import (
	"strings"

	"github.com/sergi/go-diff/diffmatchpatch"
)

type Type string

const (
	Added     Type = "added"
	Removed   Type = "removed"
	Unchanged Type = "unchanged"
)

// Block is one line of a diff. Line is the inline position, counted across
// every block in edit order. OldLine is set on removed and unchanged blocks,
// NewLine on added and unchanged blocks; the other counter is zero.
type Block struct {
	Type    Type   `json:"type" enum:"added,removed,unchanged"`
	Text    string `json:"text"`
	Line    int    `json:"line"`
	OldLine int    `json:"old_line,omitempty"`
	NewLine int    `json:"new_line,omitempty"`
}

// Lines returns the minimal line-level edit script transforming oldText into
// newText, one Block per line.
func Lines(oldText, newText string) []Block {
	dmp := diffmatchpatch.New()
	a, b, lineIndex := dmp.DiffLinesToChars(oldText, newText)
	diffs := dmp.DiffCharsToLines(dmp.DiffMain(a, b, false), lineIndex)

	var blocks []Block
	line, oldLine, newLine := 0, 0, 0
	for _, d := range diffs {
		for _, text := range splitGroup(d.Text) {
			line++
			b := Block{Text: text, Line: line}
			switch d.Type {
			case diffmatchpatch.DiffDelete:
				oldLine++
				b.Type = Removed
				b.OldLine = oldLine
			case diffmatchpatch.DiffInsert:
				newLine++
				b.Type = Added
				b.NewLine = newLine
			default:
				oldLine++
				newLine++
				b.Type = Unchanged
				b.OldLine = oldLine
				b.NewLine = newLine
			}
			blocks = append(blocks, b)
		}
	}
	return blocks
}

// splitGroup splits one change group into lines, dropping the empty trailing
// element a final newline produces so it does not show up as a phantom line.
func splitGroup(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	if lines[len(lines)-1] == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Row is one rendered side-by-side row; Left and Right are nil for the side
// a purely added or removed line does not appear on.
type Row struct {
	Left  *Block `json:"left,omitempty"`
	Right *Block `json:"right,omitempty"`
}

// SideBySide lays blocks out in two columns, pairing each run of removed
// lines with the added run that follows it.
func SideBySide(blocks []Block) []Row {
	var rows []Row
	i := 0
	for i < len(blocks) {
		switch blocks[i].Type {
		case Unchanged:
			b := blocks[i]
			rows = append(rows, Row{Left: &b, Right: &b})
			i++
		case Removed:
			var removed, added []Block
			for i < len(blocks) && blocks[i].Type == Removed {
				removed = append(removed, blocks[i])
				i++
			}
			for i < len(blocks) && blocks[i].Type == Added {
				added = append(added, blocks[i])
				i++
			}
			for j := 0; j < len(removed) || j < len(added); j++ {
				var row Row
				if j < len(removed) {
					row.Left = &removed[j]
				}
				if j < len(added) {
					row.Right = &added[j]
				}
				rows = append(rows, row)
			}
		default:
			b := blocks[i]
			rows = append(rows, Row{Right: &b})
			i++
		}
	}
	return rows
}

// Inline renders blocks as unified-diff style lines.
func Inline(blocks []Block) []string {
	out := make([]string, 0, len(blocks))
	for _, b := range blocks {
		prefix := "  "
		switch b.Type {
		case Added:
			prefix = "+ "
		case Removed:
			prefix = "- "
		}
		out = append(out, prefix+b.Text)
	}
	return out
}

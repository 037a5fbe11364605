package parser

import (
	"errors"
	"strings"
	"testing"
)

const threeBlockFile = `This is just a test
# KIGEN_start foo_func arg1:a arg2:b arg3:c
# Yeah, just a comment
# WOO!
# KIGEN_end
Some useless stuff
// C style inline comments work too
// KIGEN_start bar_func arg1:a arg2:c arg3:e
int main() {
  dothebusiness();
}
// KIGEN_end

Need to test empty blocks
## KIGEN_start baz_func
## KIGEN_end
`

const headBlockFile = `# KIGEN_start foo_func
# KIGEN_end
This is just a test
# KIGEN_start foo_func arg1:a arg2:b arg3:c
# Yeah, just a comment
# WOO!
# KIGEN_end
Some useless stuff
// C style inline comments work too
// KIGEN_start bar_func arg1:a arg2:c arg3:e
int main() {
  dothebusiness();
}
// KIGEN_end

Need to test empty blocks
## KIGEN_start baz_func
## KIGEN_end
`

func TestExtractBlocks(t *testing.T) {
	blocks, err := ExtractBlocks(threeBlockFile)
	if err != nil {
		t.Fatalf("ExtractBlocks returned error: %v", err)
	}

	want := []struct {
		start, end int
		function   string
		mark       string
		args       Args
	}{
		{1, 4, "foo_func", "#", Args{{"arg1", "a"}, {"arg2", "b"}, {"arg3", "c"}}},
		{7, 11, "bar_func", "//", Args{{"arg1", "a"}, {"arg2", "c"}, {"arg3", "e"}}},
		{14, 15, "baz_func", "##", nil},
	}

	if len(blocks) != len(want) {
		t.Fatalf("expected %d blocks, got %d", len(want), len(blocks))
	}
	for i, w := range want {
		b := blocks[i]
		if b.Start != w.start || b.End != w.end {
			t.Errorf("block %d: expected span (%d,%d), got (%d,%d)", i, w.start, w.end, b.Start, b.End)
		}
		if b.Command.Function != w.function {
			t.Errorf("block %d: expected function %q, got %q", i, w.function, b.Command.Function)
		}
		if b.CommentMark != w.mark {
			t.Errorf("block %d: expected mark %q, got %q", i, w.mark, b.CommentMark)
		}
		if len(b.Command.Args) != len(w.args) {
			t.Fatalf("block %d: expected %d args, got %d (%v)", i, len(w.args), len(b.Command.Args), b.Command.Args)
		}
		for j, arg := range w.args {
			if b.Command.Args[j] != arg {
				t.Errorf("block %d arg %d: expected %v, got %v", i, j, arg, b.Command.Args[j])
			}
		}
	}
}

func TestExtractBlocksAtFileHead(t *testing.T) {
	blocks, err := ExtractBlocks(headBlockFile)
	if err != nil {
		t.Fatalf("ExtractBlocks returned error: %v", err)
	}

	wantSpans := [][2]int{{0, 1}, {3, 6}, {9, 13}, {16, 17}}
	if len(blocks) != len(wantSpans) {
		t.Fatalf("expected %d blocks, got %d", len(wantSpans), len(blocks))
	}
	for i, span := range wantSpans {
		if blocks[i].Start != span[0] || blocks[i].End != span[1] {
			t.Errorf("block %d: expected span (%d,%d), got (%d,%d)",
				i, span[0], span[1], blocks[i].Start, blocks[i].End)
		}
	}
}

func TestExtractBlocksSingleTransition(t *testing.T) {
	// The start line carries the end marker inside an argument value. The
	// line must only open the block, never close it.
	text := "# KIGEN_start f note:KIGEN_end\n# KIGEN_end\n"
	blocks, err := ExtractBlocks(text)
	if err != nil {
		t.Fatalf("ExtractBlocks returned error: %v", err)
	}
	if len(blocks) != 1 || blocks[0].Start != 0 || blocks[0].End != 1 {
		t.Fatalf("expected one block spanning (0,1), got %+v", blocks)
	}
	if v, _ := blocks[0].Command.Args.Get("note"); v != "KIGEN_end" {
		t.Errorf("expected note arg to keep the raw value, got %q", v)
	}
}

func TestExtractBlocksErrors(t *testing.T) {
	t.Run("nested start", func(t *testing.T) {
		text := "# KIGEN_start f\n# KIGEN_start g\n# KIGEN_end\n"
		_, err := ExtractBlocks(text)
		var nested *NestedBlockError
		if !errors.As(err, &nested) {
			t.Fatalf("expected NestedBlockError, got %T: %v", err, err)
		}
		if nested.Line != 1 || nested.OpenLine != 0 {
			t.Errorf("expected lines (1,0), got (%d,%d)", nested.Line, nested.OpenLine)
		}
	})

	t.Run("dangling end", func(t *testing.T) {
		text := "some text\n# KIGEN_end\n"
		_, err := ExtractBlocks(text)
		var dangling *DanglingBlockEndError
		if !errors.As(err, &dangling) {
			t.Fatalf("expected DanglingBlockEndError, got %T: %v", err, err)
		}
		if dangling.Line != 1 {
			t.Errorf("expected line 1, got %d", dangling.Line)
		}
	})

	t.Run("unterminated block", func(t *testing.T) {
		text := "intro\n# KIGEN_start f\nbody\n"
		_, err := ExtractBlocks(text)
		var open *UnterminatedBlockError
		if !errors.As(err, &open) {
			t.Fatalf("expected UnterminatedBlockError, got %T: %v", err, err)
		}
		if open.OpenLine != 1 || open.LastLine != 2 {
			t.Errorf("expected lines (1,2), got (%d,%d)", open.OpenLine, open.LastLine)
		}
	})

	t.Run("unterminated block without trailing newline", func(t *testing.T) {
		text := "intro\n# KIGEN_start f\nbody"
		_, err := ExtractBlocks(text)
		var open *UnterminatedBlockError
		if !errors.As(err, &open) {
			t.Fatalf("expected UnterminatedBlockError, got %T: %v", err, err)
		}
		if open.OpenLine != 1 || open.LastLine != 2 {
			t.Errorf("expected lines (1,2), got (%d,%d)", open.OpenLine, open.LastLine)
		}
	})

	t.Run("bad command aborts the scan", func(t *testing.T) {
		text := "# KIGEN_start f k:a k:b\n# KIGEN_end\n"
		_, err := ExtractBlocks(text)
		var syntax *CommandSyntaxError
		if !errors.As(err, &syntax) {
			t.Fatalf("expected CommandSyntaxError, got %T: %v", err, err)
		}
		if !strings.Contains(err.Error(), "line 0") {
			t.Errorf("expected the line number in %q", err.Error())
		}
	})
}

func TestSplitAtBlocks(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []string
	}{
		{
			name: "with lead-in",
			text: threeBlockFile,
			want: []string{
				"This is just a test",
				"Some useless stuff\n// C style inline comments work too",
				"\nNeed to test empty blocks",
				"",
			},
		},
		{
			name: "no lead-in",
			text: headBlockFile,
			want: []string{
				"",
				"This is just a test",
				"Some useless stuff\n// C style inline comments work too",
				"\nNeed to test empty blocks",
				"",
			},
		},
		{
			name: "trailing newline kept by last chunk",
			text: "A\n# KIGEN_start f k:v\n# KIGEN_end\nB\n",
			want: []string{"A", "B\n"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blocks, err := ExtractBlocks(tt.text)
			if err != nil {
				t.Fatalf("ExtractBlocks returned error: %v", err)
			}
			chunks := SplitAtBlocks(tt.text, blocks)
			if len(chunks) != len(tt.want) {
				t.Fatalf("expected %d chunks, got %d (%#v)", len(tt.want), len(chunks), chunks)
			}
			for i := range tt.want {
				if chunks[i] != tt.want[i] {
					t.Errorf("chunk %d: expected %q, got %q", i, tt.want[i], chunks[i])
				}
			}
		})
	}
}

// rebuildBlocks reassembles each block from reconstructed marker lines
// around its original body, the way a rendered block is assembled.
func rebuildBlocks(text string, blocks []Block) []string {
	lines := strings.Split(text, "\n")
	rendered := make([]string, len(blocks))
	for i, b := range blocks {
		parts := []string{b.StartString()}
		parts = append(parts, lines[b.Start+1:b.End]...)
		parts = append(parts, b.EndString())
		rendered[i] = strings.Join(parts, "\n")
	}
	return rendered
}

func TestRecombineIdentity(t *testing.T) {
	blocks, err := ExtractBlocks(threeBlockFile)
	if err != nil {
		t.Fatalf("ExtractBlocks returned error: %v", err)
	}

	chunks := SplitAtBlocks(threeBlockFile, blocks)
	if got := Recombine(chunks, rebuildBlocks(threeBlockFile, blocks)); got != threeBlockFile {
		t.Errorf("recombined text differs from the original:\n%q", got)
	}
}

func TestRecombineAroundEmptyChunks(t *testing.T) {
	tests := []struct {
		name string
		text string
		want string
	}{
		{
			name: "block at file head gains one leading newline",
			text: "# KIGEN_start f k:v\n# KIGEN_end\ntrailer\n",
			want: "\n# KIGEN_start f k:v\n# KIGEN_end\ntrailer\n",
		},
		{
			name: "back-to-back blocks gain one separating blank line",
			text: "lead\n# KIGEN_start a\n# KIGEN_end\n# KIGEN_start b\n# KIGEN_end\ntrailer\n",
			want: "lead\n# KIGEN_start a\n# KIGEN_end\n\n# KIGEN_start b\n# KIGEN_end\ntrailer\n",
		},
	}

	pass := func(t *testing.T, text string) string {
		t.Helper()
		blocks, err := ExtractBlocks(text)
		if err != nil {
			t.Fatalf("ExtractBlocks returned error: %v", err)
		}
		return Recombine(SplitAtBlocks(text, blocks), rebuildBlocks(text, blocks))
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			first := pass(t, tt.text)
			if first != tt.want {
				t.Errorf("first pass: expected %q, got %q", tt.want, first)
			}
			second := pass(t, first)
			if second != first {
				t.Errorf("second pass must reproduce the first: expected %q, got %q", first, second)
			}
		})
	}
}

func TestSplitNoBlocks(t *testing.T) {
	text := "plain text\nwith a few lines\nand no markers at all\n"
	blocks, err := ExtractBlocks(text)
	if err != nil {
		t.Fatalf("ExtractBlocks returned error: %v", err)
	}
	if len(blocks) != 0 {
		t.Fatalf("expected no blocks, got %d", len(blocks))
	}

	chunks := SplitAtBlocks(text, blocks)
	if len(chunks) != 1 || chunks[0] != text {
		t.Fatalf("expected the whole file as one chunk, got %#v", chunks)
	}
	if got := Recombine(chunks, nil); got != text {
		t.Errorf("expected the input back verbatim, got %q", got)
	}
}

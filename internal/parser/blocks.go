package parser

import (
	"fmt"
	"strings"
)

// ExtractBlocks scans text line by line and returns every matched
// start/end marker pair in line order. The scan is a two-state machine:
// a line containing the start marker opens a block, a line containing the
// end marker closes it. Each line fires at most one transition, with the
// start marker checked first, so a block always spans at least two lines.
//
// A start marker inside an open block, an end marker outside any block,
// and a block still open at end of file all abort the scan with no
// partial result.
func ExtractBlocks(text string) ([]Block, error) {
	var blocks []Block

	lines := strings.Split(text, "\n")
	inBlock := false
	blockStart := 0
	var command Command
	var mark string

	for idx, line := range lines {
		if strings.Contains(line, StartMarker) {
			if inBlock {
				return nil, &NestedBlockError{Line: idx, OpenLine: blockStart}
			}
			m, cmd, err := ParseCommand(line)
			if err != nil {
				return nil, fmt.Errorf("line %d: %w", idx, err)
			}
			inBlock = true
			blockStart = idx
			mark = m
			command = cmd
			continue
		}

		if strings.Contains(line, EndMarker) {
			if !inBlock {
				return nil, &DanglingBlockEndError{Line: idx}
			}
			inBlock = false
			blocks = append(blocks, Block{
				Start:       blockStart,
				End:         idx,
				Command:     command,
				CommentMark: mark,
			})
		}
	}

	if inBlock {
		// A trailing newline leaves an empty final split element; the
		// file's last line is the one before it.
		last := len(lines) - 1
		if last > 0 && lines[last] == "" {
			last--
		}
		return nil, &UnterminatedBlockError{OpenLine: blockStart, LastLine: last}
	}

	return blocks, nil
}

// SplitAtBlocks returns the passthrough chunks of text: for N blocks there
// are N+1 chunks, where chunk i holds the lines strictly between block
// i-1's end and block i's start (chunk 0 starts at line 0, the final chunk
// runs to the last line). Lines inside a chunk are joined with newlines
// and are otherwise untouched.
func SplitAtBlocks(text string, blocks []Block) []string {
	lines := strings.Split(text, "\n")
	chunks := make([]string, 0, len(blocks)+1)

	idx := 0
	for _, block := range blocks {
		chunks = append(chunks, strings.Join(lines[idx:block.Start], "\n"))
		idx = block.End + 1
	}
	chunks = append(chunks, strings.Join(lines[idx:], "\n"))

	return chunks
}

// Recombine interleaves the N+1 passthrough chunks with the N rendered
// blocks (chunk 0, block 0, chunk 1, ..., chunk N) joined by single
// newlines. With no blocks the single chunk is returned verbatim.
func Recombine(chunks []string, rendered []string) string {
	if len(rendered) == 0 && len(chunks) == 1 {
		return chunks[0]
	}

	parts := make([]string, 0, len(chunks)+len(rendered))
	for i, chunk := range chunks {
		parts = append(parts, chunk)
		if i < len(rendered) {
			parts = append(parts, rendered[i])
		}
	}
	return strings.Join(parts, "\n")
}

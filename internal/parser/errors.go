package parser

import "fmt"

// NestedBlockError is returned when a start marker appears inside an
// already-open block. Nested blocks are not supported.
type NestedBlockError struct {
	Line     int // line of the offending start marker
	OpenLine int // line of the block that is still open
}

func (e *NestedBlockError) Error() string {
	return fmt.Sprintf(
		"nested blocks are not supported: new block at line %d but the block starting at line %d has not been closed",
		e.Line, e.OpenLine)
}

// DanglingBlockEndError is returned when an end marker appears with no
// open block to close.
type DanglingBlockEndError struct {
	Line int
}

func (e *DanglingBlockEndError) Error() string {
	return fmt.Sprintf("block end at line %d has no beginning", e.Line)
}

// UnterminatedBlockError is returned when the file ends while a block is
// still open.
type UnterminatedBlockError struct {
	OpenLine int // line of the unclosed start marker
	LastLine int // last content line of the file
}

func (e *UnterminatedBlockError) Error() string {
	return fmt.Sprintf(
		"block starting at line %d is never closed (file ends at line %d)",
		e.OpenLine, e.LastLine)
}

// CommandSyntaxError is returned for a malformed start-marker command:
// a missing function name, an argument token without a colon, or a
// duplicate argument key.
type CommandSyntaxError struct {
	Token  string // offending argument token, empty when not token-specific
	Reason string
}

func (e *CommandSyntaxError) Error() string {
	if e.Token == "" {
		return "invalid " + StartMarker + " command: " + e.Reason
	}
	return fmt.Sprintf("invalid %s command: token %q: %s", StartMarker, e.Token, e.Reason)
}

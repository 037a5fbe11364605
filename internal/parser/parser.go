package parser

import (
	"fmt"
	"strings"
)

const (
	// StartMarker opens a generated block and carries the expansion command
	StartMarker = "KIGEN_start"
	// EndMarker closes the generated block opened by the nearest StartMarker
	EndMarker = "KIGEN_end"
)

// Arg is one key:value argument from a start-marker line
type Arg struct {
	Key   string
	Value string
}

// Args holds a command's arguments in the order they appeared on the
// marker line. Order is significant: it is reproduced verbatim when the
// start line is reconstructed.
type Args []Arg

// Get returns the value for key and whether it was present
func (a Args) Get(key string) (string, bool) {
	for _, arg := range a {
		if arg.Key == key {
			return arg.Value, true
		}
	}
	return "", false
}

// Has reports whether key is present
func (a Args) Has(key string) bool {
	_, ok := a.Get(key)
	return ok
}

// Map returns the arguments as a plain map, dropping order
func (a Args) Map() map[string]string {
	m := make(map[string]string, len(a))
	for _, arg := range a {
		m[arg.Key] = arg.Value
	}
	return m
}

// String renders the arguments as space-separated key:value tokens
func (a Args) String() string {
	tokens := make([]string, len(a))
	for i, arg := range a {
		tokens[i] = arg.Key + ":" + arg.Value
	}
	return strings.Join(tokens, " ")
}

// Command is the expansion function and arguments parsed from a start marker
type Command struct {
	Function string
	Args     Args
}

// String renders the command as it appears after the start marker token
func (c Command) String() string {
	if len(c.Args) == 0 {
		return c.Function
	}
	return c.Function + " " + c.Args.String()
}

// Block is one matched start/end marker pair. Start and End are 0-indexed
// line numbers with Start < End. CommentMark is the literal text that
// preceded the start marker (e.g. "#" or "//"), reused on both
// reconstructed marker lines.
type Block struct {
	Start       int
	End         int
	Command     Command
	CommentMark string
}

// StartString reconstructs the block's start-marker line. Arguments are
// emitted in their original order; an empty comment mark emits no leading
// token, so prefix-less markers round-trip exactly.
func (b Block) StartString() string {
	parts := make([]string, 0, 3)
	if b.CommentMark != "" {
		parts = append(parts, b.CommentMark)
	}
	parts = append(parts, StartMarker, b.Command.String())
	return strings.Join(parts, " ")
}

// EndString reconstructs the block's end-marker line
func (b Block) EndString() string {
	if b.CommentMark == "" {
		return EndMarker
	}
	return b.CommentMark + " " + EndMarker
}

// ParseCommand splits one start-marker line into the comment mark and the
// expansion command. Everything before the marker token, trimmed of
// surrounding whitespace, is the comment mark. The remainder is trimmed and
// split on single spaces: the first token is the function name, each
// further token must be key:value. Values may contain colons (the split is
// on the first colon only); a token without a colon, an empty token from a
// run of spaces, a repeated key, and a missing function name are all
// command syntax errors.
func ParseCommand(line string) (string, Command, error) {
	idx := strings.Index(line, StartMarker)
	if idx < 0 {
		return "", Command{}, &CommandSyntaxError{Reason: "line has no " + StartMarker + " marker"}
	}

	mark := strings.TrimSpace(line[:idx])
	rest := strings.TrimSpace(line[idx+len(StartMarker):])
	if rest == "" {
		return "", Command{}, &CommandSyntaxError{Reason: "missing function name after " + StartMarker}
	}

	tokens := strings.Split(rest, " ")
	cmd := Command{Function: tokens[0]}

	for _, token := range tokens[1:] {
		if token == "" {
			return "", Command{}, &CommandSyntaxError{Reason: "empty argument token (repeated spaces?)"}
		}
		key, value, ok := strings.Cut(token, ":")
		if !ok {
			return "", Command{}, &CommandSyntaxError{Token: token, Reason: "argument must be key:value"}
		}
		if cmd.Args.Has(key) {
			return "", Command{}, &CommandSyntaxError{Token: token, Reason: fmt.Sprintf("duplicate argument key %q", key)}
		}
		cmd.Args = append(cmd.Args, Arg{Key: key, Value: value})
	}

	return mark, cmd, nil
}

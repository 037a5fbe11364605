package provider

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/gubarz/kigen/internal/parser"
)

// Func is the content-provider capability: it maps a block's merged
// arguments to the content its module template is rendered against. dir
// is the module's directory, used by providers that resolve relative
// paths. The returned value must be a string-keyed mapping; the renderer
// rejects anything else.
type Func func(args parser.Args, dir string) (any, error)

// Set maps the provider names usable in module descriptors to their
// implementations.
type Set map[string]Func

// Names returns the provider names in sorted order.
func (s Set) Names() []string {
	names := make([]string, 0, len(s))
	for name := range s {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Options configures the builtin provider set.
type Options struct {
	Shell string   // shell for the exec provider, e.g. /bin/bash
	Fs    afero.Fs // filesystem for the file and yaml providers
}

// Builtins returns the compiled-in providers: static, env, exec, file
// and yaml.
func Builtins(opts Options) Set {
	return Set{
		"static": Static,
		"env":    Env,
		"exec":   Exec(opts.Shell),
		"file":   File(opts.Fs),
		"yaml":   YAML(opts.Fs),
	}
}

// Static returns the arguments themselves as the content mapping.
func Static(args parser.Args, _ string) (any, error) {
	content := make(map[string]any, len(args))
	for _, arg := range args {
		content[arg.Key] = arg.Value
	}
	return content, nil
}

// Env maps each argument key to the value of the environment variable
// named by the argument value. Unset variables map to empty text.
func Env(args parser.Args, _ string) (any, error) {
	content := make(map[string]any, len(args))
	for _, arg := range args {
		content[arg.Key] = os.Getenv(arg.Value)
	}
	return content, nil
}

// Exec returns a provider that runs the cmd argument through shell and
// yields {output: trimmed stdout}. A missing cmd argument or a failing
// command is an error.
func Exec(shell string) Func {
	return func(args parser.Args, _ string) (any, error) {
		command, ok := args.Get("cmd")
		if !ok {
			return nil, errors.New(`exec provider requires a "cmd" argument`)
		}

		cmd := exec.Command(shell, "-c", command)
		cmd.Env = os.Environ()

		var stdout, stderr bytes.Buffer
		cmd.Stdout = &stdout
		cmd.Stderr = &stderr

		if err := cmd.Run(); err != nil {
			return nil, fmt.Errorf("shell error: %w: %s", err, stderr.String())
		}

		return map[string]any{"output": strings.TrimSpace(stdout.String())}, nil
	}
}

// File returns a provider that reads the file named by the path argument
// and yields {content: file text}. Relative paths resolve against the
// module's directory.
func File(fsys afero.Fs) Func {
	return func(args parser.Args, dir string) (any, error) {
		path, ok := args.Get("path")
		if !ok {
			return nil, errors.New(`file provider requires a "path" argument`)
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}

		data, err := afero.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}
		return map[string]any{"content": string(data)}, nil
	}
}

// YAML returns a provider that decodes the YAML document named by the
// path argument and yields it as-is. Relative paths resolve against the
// module's directory. A document that is not a mapping is returned
// unchecked here and rejected by the renderer's content-shape check.
func YAML(fsys afero.Fs) Func {
	return func(args parser.Args, dir string) (any, error) {
		path, ok := args.Get("path")
		if !ok {
			return nil, errors.New(`yaml provider requires a "path" argument`)
		}
		if !filepath.IsAbs(path) {
			path = filepath.Join(dir, path)
		}

		data, err := afero.ReadFile(fsys, path)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", path, err)
		}

		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("decode %s: %w", path, err)
		}
		return doc, nil
	}
}

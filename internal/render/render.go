package render

import (
	"context"
	"fmt"
	"reflect"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/gubarz/kigen/internal/parser"
	"github.com/gubarz/kigen/internal/registry"
	"github.com/gubarz/kigen/internal/template"
)

// Pipeline regenerates the marked blocks of input files. It is safe for
// concurrent use: the registry is read-only and rendering shares no
// state between files.
type Pipeline struct {
	fs       afero.Fs
	registry *registry.Registry
	renderer template.Renderer
	logger   *log.Logger
}

// New returns a Pipeline rendering against reg with renderer.
func New(fsys afero.Fs, reg *registry.Registry, renderer template.Renderer, logger *log.Logger) *Pipeline {
	return &Pipeline{fs: fsys, registry: reg, renderer: renderer, logger: logger}
}

// Result is the rendered output for one input file. Nothing has been
// written when a Result is produced; the caller decides where the
// output goes.
type Result struct {
	Path    string // input path as given
	Output  string // fully regenerated file text
	Changed bool   // whether Output differs from the input text
}

// RenderBlock regenerates one block: it resolves the block's expansion
// module, invokes the module's content provider with the block arguments
// merged over the descriptor defaults, renders the module template
// against the returned mapping, and re-wraps the body in reconstructed
// marker lines.
func (p *Pipeline) RenderBlock(block parser.Block) (string, error) {
	mod, err := p.registry.Resolve(block.Command.Function)
	if err != nil {
		return "", err
	}

	args := mod.MergedArgs(block.Command.Args)
	content, err := mod.Provider(args, mod.Dir)
	if err != nil {
		return "", fmt.Errorf("module %q: content provider: %w", mod.Name, err)
	}

	mapping, ok := contentMapping(content)
	if !ok {
		return "", &InvalidContentError{Module: mod.Name, Dir: mod.Dir, Value: content}
	}

	body, err := p.renderer.Render(mod.Template, mapping)
	if err != nil {
		return "", fmt.Errorf("module %q: %w", mod.Name, err)
	}

	return strings.Join([]string{block.StartString(), body, block.EndString()}, "\n"), nil
}

// RenderText regenerates every marked block in text and returns the
// recombined file. Text outside blocks passes through byte-exact; any
// error aborts with no partial result.
func (p *Pipeline) RenderText(text string) (string, error) {
	blocks, err := parser.ExtractBlocks(text)
	if err != nil {
		return "", err
	}
	chunks := parser.SplitAtBlocks(text, blocks)

	rendered := make([]string, len(blocks))
	for i, block := range blocks {
		out, err := p.RenderBlock(block)
		if err != nil {
			return "", err
		}
		p.logger.Debug("rendered block",
			"function", block.Command.Function, "start", block.Start, "end", block.End)
		rendered[i] = out
	}

	return parser.Recombine(chunks, rendered), nil
}

// RenderFile reads path and regenerates its blocks.
func (p *Pipeline) RenderFile(path string) (*Result, error) {
	data, err := afero.ReadFile(p.fs, path)
	if err != nil {
		return nil, err
	}

	text := string(data)
	out, err := p.RenderText(text)
	if err != nil {
		return nil, err
	}

	return &Result{Path: path, Output: out, Changed: out != text}, nil
}

// RenderAll renders every path, up to jobs files in parallel, and
// returns results in input order. The first failure cancels outstanding
// work and is returned wrapped with its file path.
func (p *Pipeline) RenderAll(ctx context.Context, paths []string, jobs int) ([]*Result, error) {
	if jobs < 1 {
		jobs = 1
	}

	results := make([]*Result, len(paths))
	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)

	for i, path := range paths {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			res, err := p.RenderFile(path)
			if err != nil {
				return fmt.Errorf("%s: %w", path, err)
			}
			results[i] = res
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// contentMapping coerces a provider result to map[string]any. Any
// string-keyed map kind is accepted; the shape check is top-level only.
func contentMapping(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[string]string:
		out := make(map[string]any, len(m))
		for key, val := range m {
			out[key] = val
		}
		return out, true
	}

	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Map || rv.Type().Key().Kind() != reflect.String {
		return nil, false
	}
	out := make(map[string]any, rv.Len())
	iter := rv.MapRange()
	for iter.Next() {
		out[iter.Key().String()] = iter.Value().Interface()
	}
	return out, true
}

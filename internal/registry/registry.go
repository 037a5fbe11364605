package registry

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"github.com/spf13/afero"

	"github.com/gubarz/kigen/internal/parser"
	"github.com/gubarz/kigen/internal/provider"
)

const (
	// DescriptorExt marks the provider-descriptor unit of a module
	DescriptorExt = ".toml"
	// TemplateExt marks the template unit of a module
	TemplateExt = ".jinja2"
)

// Module is one expansion module: a provider descriptor and a template
// sharing a base name inside a module directory.
type Module struct {
	Name         string
	Dir          string
	TemplatePath string
	Template     string
	Provider     provider.Func
	ProviderName string
	Defaults     map[string]string
}

// MergedArgs extends the block arguments with the module's defaults for
// every key the block did not supply. Block arguments keep their
// original order and win over defaults; defaults are appended in sorted
// key order so provider input is deterministic.
func (m *Module) MergedArgs(args parser.Args) parser.Args {
	merged := make(parser.Args, len(args), len(args)+len(m.Defaults))
	copy(merged, args)

	keys := make([]string, 0, len(m.Defaults))
	for key := range m.Defaults {
		if !merged.Has(key) {
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)

	for _, key := range keys {
		merged = append(merged, parser.Arg{Key: key, Value: m.Defaults[key]})
	}
	return merged
}

// descriptor is the TOML unit binding a module name to a compiled-in
// provider, with optional default arguments.
type descriptor struct {
	Provider string            `toml:"provider"`
	Defaults map[string]string `toml:"defaults"`
}

// Registry resolves expansion-module names. It is built once by Load,
// before any file is processed, and never mutated afterwards.
type Registry struct {
	modules map[string]*Module
	dirs    []string
}

// ModuleConflictError is returned when two module directories define the
// same module name. The merge fails closed instead of picking one.
type ModuleConflictError struct {
	Name      string
	FirstDir  string
	SecondDir string
}

func (e *ModuleConflictError) Error() string {
	return fmt.Sprintf("module %q in %s conflicts with module %q in %s",
		e.Name, e.SecondDir, e.Name, e.FirstDir)
}

// UnknownModuleError is returned when a block names a module no searched
// directory provides.
type UnknownModuleError struct {
	Function string
	Dirs     []string
}

func (e *UnknownModuleError) Error() string {
	listing := make([]string, len(e.Dirs))
	for i, dir := range e.Dirs {
		listing[i] = "  - " + dir
	}
	return fmt.Sprintf("expansion module %q not found in any of the searched directories:\n%s",
		e.Function, strings.Join(listing, "\n"))
}

// Load scans the module directories in order and merges their modules
// into one registry. A directory contributes module X iff it holds both
// X.toml and X.jinja2; unpaired files, other extensions and
// subdirectories are ignored. The same name appearing in two directories
// is a ModuleConflictError.
func Load(fsys afero.Fs, dirs []string, providers provider.Set) (*Registry, error) {
	reg := &Registry{
		modules: make(map[string]*Module),
		dirs:    dirs,
	}

	for _, dir := range dirs {
		mods, err := loadDir(fsys, dir, providers)
		if err != nil {
			return nil, err
		}
		for _, mod := range mods {
			if existing, ok := reg.modules[mod.Name]; ok {
				return nil, &ModuleConflictError{
					Name:      mod.Name,
					FirstDir:  existing.Dir,
					SecondDir: mod.Dir,
				}
			}
			reg.modules[mod.Name] = mod
		}
	}

	return reg, nil
}

// loadDir returns the modules defined in one directory, sorted by name.
func loadDir(fsys afero.Fs, dir string, providers provider.Set) ([]*Module, error) {
	infos, err := afero.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read module directory %s: %w", dir, err)
	}

	descriptors := make(map[string]bool)
	templates := make(map[string]bool)
	for _, info := range infos {
		if info.IsDir() {
			continue
		}
		name := info.Name()
		switch {
		case strings.HasSuffix(name, DescriptorExt):
			descriptors[strings.TrimSuffix(name, DescriptorExt)] = true
		case strings.HasSuffix(name, TemplateExt):
			templates[strings.TrimSuffix(name, TemplateExt)] = true
		}
	}

	names := make([]string, 0, len(descriptors))
	for name := range descriptors {
		if templates[name] {
			names = append(names, name)
		}
	}
	sort.Strings(names)

	mods := make([]*Module, 0, len(names))
	for _, name := range names {
		mod, err := loadModule(fsys, dir, name, providers)
		if err != nil {
			return nil, err
		}
		mods = append(mods, mod)
	}
	return mods, nil
}

// loadModule reads one descriptor/template pair and binds its provider.
func loadModule(fsys afero.Fs, dir, name string, providers provider.Set) (*Module, error) {
	descPath := filepath.Join(dir, name+DescriptorExt)
	data, err := afero.ReadFile(fsys, descPath)
	if err != nil {
		return nil, fmt.Errorf("read descriptor %s: %w", descPath, err)
	}

	var desc descriptor
	if err := toml.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("parse descriptor %s: %w", descPath, err)
	}
	if desc.Provider == "" {
		return nil, fmt.Errorf("descriptor %s names no provider (known providers: %s)",
			descPath, strings.Join(providers.Names(), ", "))
	}
	fn, ok := providers[desc.Provider]
	if !ok {
		return nil, fmt.Errorf("descriptor %s names unknown provider %q (known providers: %s)",
			descPath, desc.Provider, strings.Join(providers.Names(), ", "))
	}

	tplPath := filepath.Join(dir, name+TemplateExt)
	tpl, err := afero.ReadFile(fsys, tplPath)
	if err != nil {
		return nil, fmt.Errorf("read template %s: %w", tplPath, err)
	}

	return &Module{
		Name:         name,
		Dir:          dir,
		TemplatePath: tplPath,
		Template:     string(tpl),
		Provider:     fn,
		ProviderName: desc.Provider,
		Defaults:     desc.Defaults,
	}, nil
}

// Resolve returns the module registered under name.
func (r *Registry) Resolve(name string) (*Module, error) {
	mod, ok := r.modules[name]
	if !ok {
		return nil, &UnknownModuleError{Function: name, Dirs: r.Dirs()}
	}
	return mod, nil
}

// Modules returns every registered module sorted by name.
func (r *Registry) Modules() []*Module {
	mods := make([]*Module, 0, len(r.modules))
	for _, mod := range r.modules {
		mods = append(mods, mod)
	}
	sort.Slice(mods, func(i, j int) bool { return mods[i].Name < mods[j].Name })
	return mods
}

// Names returns every registered module name in sorted order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.modules))
	for name := range r.modules {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Dirs returns the searched module directories in search order.
func (r *Registry) Dirs() []string {
	dirs := make([]string, len(r.dirs))
	copy(dirs, r.dirs)
	return dirs
}

// Len returns the number of registered modules.
func (r *Registry) Len() int {
	return len(r.modules)
}

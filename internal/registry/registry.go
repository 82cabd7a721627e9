// Package registry holds the ordered list of third party packages and the
// CMake definitions each of them is configured with.
package registry

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"strings"
	"sync"

	"github.com/pelletier/go-toml/v2"
)

// All is the package identifier that selects every registered package.
const All = "all"

//go:embed packages.toml
var defaultPackages []byte

// Package is one [[package]] entry of the registry
type Package struct {
	Name    string   `toml:"name"`
	Source  string   `toml:"source"`
	Numeric bool     `toml:"numeric"`
	Flags   []string `toml:"flags"`
}

// Build is a package with its definitions resolved, ready to be configured
type Build struct {
	Name    string
	Source  string
	Defines []string // KEY=VALUE, in order
}

type Registry struct {
	numericFlags []string
	packages     []Package
	byName       map[string]int
}

type document struct {
	NumericFlags []string  `toml:"numeric_flags"`
	Packages     []Package `toml:"package"`
}

// Default returns the registry compiled into the binary
var Default = sync.OnceValue(func() *Registry {
	reg, err := Parse(bytes.NewReader(defaultPackages))
	if err != nil {
		panic(fmt.Sprintf("registry: embedded packages.toml: %v", err))
	}
	return reg
})

// Parse reads and validates a registry document
func Parse(rdr io.Reader) (*Registry, error) {
	var doc document
	dec := toml.NewDecoder(rdr).DisallowUnknownFields()
	if err := dec.Decode(&doc); err != nil {
		var derr *toml.DecodeError
		if errors.As(err, &derr) {
			return nil, errors.New(derr.String())
		}
		var serr *toml.StrictMissingError
		if errors.As(err, &serr) {
			return nil, errors.New(serr.String())
		}
		return nil, err
	}

	reg := &Registry{
		numericFlags: doc.NumericFlags,
		packages:     make([]Package, 0, len(doc.Packages)),
		byName:       make(map[string]int, len(doc.Packages)),
	}

	if err := validateFlags("numeric_flags", doc.NumericFlags); err != nil {
		return nil, err
	}

	for i, pkg := range doc.Packages {
		if pkg.Name == "" {
			return nil, fmt.Errorf("package #%d has no name", i+1)
		}
		if pkg.Name == All {
			return nil, fmt.Errorf("package name %q is reserved", All)
		}
		if _, dup := reg.byName[pkg.Name]; dup {
			return nil, fmt.Errorf("package %q is declared twice", pkg.Name)
		}
		if pkg.Source == "" {
			pkg.Source = pkg.Name
		}
		if err := validateSource(pkg.Source); err != nil {
			return nil, fmt.Errorf("package %q: %w", pkg.Name, err)
		}
		if err := validateFlags(pkg.Name, pkg.Flags); err != nil {
			return nil, err
		}
		reg.byName[pkg.Name] = len(reg.packages)
		reg.packages = append(reg.packages, pkg)
	}

	if len(reg.packages) == 0 {
		return nil, errors.New("registry declares no packages")
	}
	return reg, nil
}

// source directories are slash separated and stay below third_party/
func validateSource(src string) error {
	if path.IsAbs(src) || strings.Contains(src, `\`) {
		return fmt.Errorf("source %q must be a relative slash separated path", src)
	}
	if clean := path.Clean(src); clean != src || clean == "." || clean == "build" ||
		clean == ".." || strings.HasPrefix(clean, "../") || strings.HasPrefix(clean, "build/") {
		return fmt.Errorf("source %q is not a clean path below third_party", src)
	}
	return nil
}

func validateFlags(owner string, flags []string) error {
	for _, flag := range flags {
		key, _, ok := strings.Cut(flag, "=")
		if !ok || strings.TrimSpace(key) == "" || strings.ContainsAny(key, " \t") {
			return fmt.Errorf("%s: flag %q is not of the form KEY=VALUE", owner, flag)
		}
	}
	return nil
}

// Names returns the package names in declaration order
func (r *Registry) Names() []string {
	names := make([]string, len(r.packages))
	for i, pkg := range r.packages {
		names[i] = pkg.Name
	}
	return names
}

// Choices returns every accepted package identifier, "all" first
func (r *Registry) Choices() []string {
	return append([]string{All}, r.Names()...)
}

func (r *Registry) Packages() []Package {
	return slices.Clone(r.packages)
}

func (r *Registry) Lookup(name string) (Package, bool) {
	i, ok := r.byName[name]
	if !ok {
		return Package{}, false
	}
	return r.packages[i], true
}

// NeedsNumeric reports whether any of the named packages embeds the numeric
// library paths
func (r *Registry) NeedsNumeric(names ...string) bool {
	for _, name := range names {
		if pkg, ok := r.Lookup(name); ok && pkg.Numeric {
			return true
		}
	}
	return false
}

// Resolve evaluates the definitions of a package against env
func (r *Registry) Resolve(name string, env FlagEnv) (Build, error) {
	pkg, ok := r.Lookup(name)
	if !ok {
		return Build{}, fmt.Errorf("unknown package %q", name)
	}
	if pkg.Numeric && !env.numeric {
		return Build{}, fmt.Errorf("package %q needs the numeric library paths, which were not resolved", name)
	}

	var flags []string
	if pkg.Numeric {
		flags = append(flags, r.numericFlags...)
	}
	flags = append(flags, pkg.Flags...)

	defines := make([]string, 0, len(flags))
	for _, flag := range flags {
		key, value, _ := strings.Cut(flag, "=")
		value, err := evaluateString(value, env)
		if err != nil {
			return Build{}, fmt.Errorf("package %q, flag %s: %w", name, key, err)
		}
		defines = append(defines, key+"="+value)
	}

	return Build{Name: pkg.Name, Source: pkg.Source, Defines: defines}, nil
}

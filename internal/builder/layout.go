package builder

import (
	"os"
	"path/filepath"
)

// Layout derives every path the builder touches from the PyMesh checkout root
type Layout struct {
	Root string
}

// DefaultRoot returns the parent of the directory holding the executable,
// i.e. the checkout root when depbuild lives in third_party/
func DefaultRoot() (string, error) {
	exe, err := os.Executable()
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return filepath.Dir(filepath.Dir(exe)), nil
}

func NewLayout(root string) (Layout, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return Layout{}, err
	}
	return Layout{Root: root}, nil
}

// ThirdParty is the directory holding every package's sources
func (l Layout) ThirdParty() string {
	return filepath.Join(l.Root, "third_party")
}

// SourceDir is where the sources of a package live, src is slash separated
func (l Layout) SourceDir(src string) string {
	return filepath.Join(l.ThirdParty(), filepath.FromSlash(src))
}

// BuildRoot holds the transient build directories of every package
func (l Layout) BuildRoot() string {
	return filepath.Join(l.ThirdParty(), "build")
}

func (l Layout) BuildDir(src string) string {
	return filepath.Join(l.BuildRoot(), filepath.FromSlash(src))
}

// InstallPrefix is shared by all packages
func (l Layout) InstallPrefix() string {
	return filepath.Join(l.Root, "python", "pymesh", "third_party")
}

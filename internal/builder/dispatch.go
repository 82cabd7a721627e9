package builder

import (
	"fmt"
	"strings"

	"github.com/pymesh/depbuild/internal/registry"
)

// Plan resolves a package identifier into the builds to run, in order.
// "all" expands to every registered package in declaration order. The
// numeric library paths are looked up once, and only when a planned package
// needs them, so configuration errors surface before anything is run.
func Plan(reg *registry.Registry, pkg string, env registry.FlagEnv, lookup func(string) (string, bool)) ([]registry.Build, error) {
	var names []string
	if pkg == registry.All {
		names = reg.Names()
	} else {
		if _, ok := reg.Lookup(pkg); !ok {
			return nil, fmt.Errorf("unknown package %q, known packages: %s", pkg, strings.Join(reg.Choices(), ", "))
		}
		names = []string{pkg}
	}

	if reg.NeedsNumeric(names...) {
		numeric, err := registry.LookupNumeric(lookup)
		if err != nil {
			return nil, err
		}
		env = env.WithNumeric(numeric)
	}

	builds := make([]registry.Build, 0, len(names))
	for _, name := range names {
		build, err := reg.Resolve(name, env)
		if err != nil {
			return nil, err
		}
		builds = append(builds, build)
	}
	return builds, nil
}

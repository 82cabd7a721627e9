// depbuild clean [pattern]
package cmd

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/pymesh/depbuild/internal/msg"
	"github.com/pymesh/depbuild/internal/registry"
	"github.com/spf13/cobra"
)

func doClean(cmd *cobra.Command, pattern string, flags *rootFlags) error {
	if !doublestar.ValidatePattern(pattern) {
		return &usageError{fmt.Errorf("invalid pattern %q", pattern)}
	}
	layout, err := flags.layout()
	if err != nil {
		return err
	}

	matched := 0
	for _, pkg := range registry.Default().Packages() {
		ok, err := doublestar.Match(pattern, pkg.Name)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		matched++

		dir := layout.BuildDir(pkg.Source)
		if _, err := os.Stat(dir); os.IsNotExist(err) {
			continue
		}
		msg.Step(cmd.OutOrStdout(), "Removing", "%s", dir)
		if err := os.RemoveAll(dir); err != nil {
			return err
		}

		// drop parents left empty by nested sources, e.g. build/Clipper
		for parent := filepath.Dir(dir); parent != layout.BuildRoot(); parent = filepath.Dir(parent) {
			if os.Remove(parent) != nil {
				break
			}
		}
	}

	if matched == 0 {
		msg.Warn("no package matches %q", pattern)
	}
	return nil
}

func newCleanCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "clean [pattern]",
		Short: "Remove transient build directories",
		Long: `Remove the build directories of every package whose name matches pattern
(a glob, default "*"). Installed artifacts are left alone.`,
		Args: usageArgs(cobra.MaximumNArgs(1)),
		ValidArgsFunction: func(cmd *cobra.Command, args []string, toComplete string) ([]cobra.Completion, cobra.ShellCompDirective) {
			if len(args) > 0 {
				return nil, cobra.ShellCompDirectiveNoFileComp
			}
			return registry.Default().Names(), cobra.ShellCompDirectiveNoFileComp
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			pattern := "*"
			if len(args) > 0 {
				pattern = args[0]
			}
			return doClean(cmd, pattern, flags)
		},
	}
}

// depbuild list
package cmd

import (
	"fmt"
	"runtime"
	"strings"
	"text/tabwriter"

	"github.com/pymesh/depbuild/internal/registry"
	"github.com/pymesh/depbuild/internal/srctree"
	"github.com/spf13/cobra"
)

// repoDir is the top-level directory of a package's sources, which is where
// its checkout lives even when the build starts from a subdirectory
func repoDir(source string) string {
	top, _, _ := strings.Cut(source, "/")
	return top
}

func doList(cmd *cobra.Command, flags *rootFlags) error {
	layout, err := flags.layout()
	if err != nil {
		return err
	}

	pkgs := registry.Default().Packages()
	dirs := make([]string, len(pkgs))
	for i, pkg := range pkgs {
		dirs[i] = layout.SourceDir(repoDir(pkg.Source))
	}

	revs, err := srctree.Revisions(cmd.Context(), dirs, runtime.NumCPU())
	if err != nil {
		return err
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tSOURCE\tNUMERIC\tREVISION\tFLAGS")
	for i, pkg := range pkgs {
		numeric := "-"
		if pkg.Numeric {
			numeric = "yes"
		}
		defines := make([]string, len(pkg.Flags))
		for j, f := range pkg.Flags {
			defines[j] = "-D" + f
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", pkg.Name, pkg.Source, numeric, revs[i], strings.Join(defines, " "))
	}
	return tw.Flush()
}

func newListCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the registered packages in build order",
		Args:  usageArgs(cobra.NoArgs),
		RunE: func(cmd *cobra.Command, args []string) error {
			return doList(cmd, flags)
		},
	}
}

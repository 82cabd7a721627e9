// Package srctree inspects the third party source checkouts.
package srctree

import (
	"context"
	"errors"
	"os"

	"github.com/go-git/go-git/v6"
	"golang.org/x/sync/errgroup"
)

const shortHashLen = 12

// Revision describes the checkout found in one source directory
type Revision struct {
	Dir    string
	Commit string // short hash, empty when unavailable
	Branch string // empty when HEAD is detached
	Err    error
}

// String returns the short commit, or why there is none
func (r Revision) String() string {
	switch {
	case r.Err == nil && r.Branch != "":
		return r.Commit + " (" + r.Branch + ")"
	case r.Err == nil:
		return r.Commit
	case errors.Is(r.Err, os.ErrNotExist):
		return "missing"
	case errors.Is(r.Err, git.ErrRepositoryNotExists):
		return "not a git checkout"
	default:
		return "error: " + r.Err.Error()
	}
}

// Lookup opens the repository rooted at dir and reads its HEAD
func Lookup(dir string) Revision {
	rev := Revision{Dir: dir}
	if _, err := os.Stat(dir); err != nil {
		rev.Err = err
		return rev
	}

	repo, err := git.PlainOpen(dir)
	if err != nil {
		rev.Err = err
		return rev
	}
	head, err := repo.Head()
	if err != nil {
		rev.Err = err
		return rev
	}

	rev.Commit = head.Hash().String()[:shortHashLen]
	if head.Name().IsBranch() {
		rev.Branch = head.Name().Short()
	}
	return rev
}

// Revisions looks up every directory, at most jobs at a time. The result is
// in the same order as dirs; per-directory failures are reported in
// Revision.Err.
func Revisions(ctx context.Context, dirs []string, jobs int) ([]Revision, error) {
	revs := make([]Revision, len(dirs))

	eg, ctx := errgroup.WithContext(ctx)
	if jobs > 0 {
		eg.SetLimit(jobs)
	}

	for i, dir := range dirs {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			revs[i] = Lookup(dir)
			return nil
		})
	}

	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return revs, nil
}

// Package lint validates Dockerfiles on disk for the command line.
package lint

import (
	"context"
	"io"
	"os"
	"runtime"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/shmocker/dockerfile-lsp/internal/report"
	"github.com/shmocker/dockerfile-lsp/pkg/dockerfile"
)

// Stdin is the path that reads the Dockerfile from standard input.
const Stdin = "-"

// Runner lints files concurrently with a shared linter.
type Runner struct {
	Linter dockerfile.Linter

	// Concurrency bounds the number of files read at once. Zero uses
	// GOMAXPROCS.
	Concurrency int

	// Stdin is read for the "-" path. Defaults to os.Stdin.
	Stdin io.Reader
}

// Run lints every path and returns the results in argument order. The first
// read error cancels the remaining work.
func (r *Runner) Run(ctx context.Context, paths []string) ([]report.FileResult, error) {
	limit := r.Concurrency
	if limit <= 0 {
		limit = runtime.GOMAXPROCS(0)
	}

	results := make([]report.FileResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, path := range paths {
		i, path := i, path
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			text, err := r.read(path)
			if err != nil {
				return err
			}
			results[i] = report.FileResult{
				Path:        path,
				Diagnostics: r.Linter.Lint(text),
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (r *Runner) read(path string) (string, error) {
	if path == Stdin {
		in := r.Stdin
		if in == nil {
			in = os.Stdin
		}
		data, err := io.ReadAll(in)
		if err != nil {
			return "", errors.Wrap(err, "failed to read standard input")
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", errors.Wrapf(err, "failed to read %s", path)
	}
	return string(data), nil
}

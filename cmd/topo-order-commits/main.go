// Command topo-order-commits prints the commits reachable from every local
// branch of the enclosing repository in topological order, newest first.
package main

import (
	"fmt"
	"io"
	"os"

	"github.com/rybkr/gittopo/internal/config"
	"github.com/rybkr/gittopo/internal/domain"
	"github.com/rybkr/gittopo/internal/gitcore"
	"github.com/rybkr/gittopo/internal/logging"
	"github.com/rybkr/gittopo/internal/render"
)

func main() {
	os.Exit(run(".", os.Stdout, os.Stderr, os.Getenv))
}

func run(dir string, stdout, stderr io.Writer, getenv func(string) string) int {
	cfg, err := config.LoadFrom(getenv)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	logger, closer, err := logging.New(cfg.Log, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	defer closer.Close()

	repo, err := gitcore.NewRepository(dir, gitcore.WithLogger(logger))
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	snap, err := domain.BuildSnapshot(repo, logger)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}

	opts := render.Options{Color: render.ColorEnabled(cfg.Color, stdout)}
	if err := snap.WriteLog(stdout, opts); err != nil {
		fmt.Fprintln(stderr, err)
		return 1
	}
	return 0
}

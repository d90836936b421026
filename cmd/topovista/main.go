// Command topovista serves a live, auto-refreshing topological commit log for
// a repository, and can print the same log once.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/rybkr/gittopo/internal/config"
	"github.com/rybkr/gittopo/internal/domain"
	"github.com/rybkr/gittopo/internal/gitcore"
	"github.com/rybkr/gittopo/internal/logging"
	"github.com/rybkr/gittopo/internal/render"
	"github.com/rybkr/gittopo/internal/server"
)

var version = "dev"

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd(os.Getenv).ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

// app holds what every subcommand needs once flags and config are resolved.
type app struct {
	getenv func(string) string
	cfg    config.Config
	logger *slog.Logger
	closer io.Closer
	repo   string
}

func newRootCmd(getenv func(string) string) *cobra.Command {
	a := &app{getenv: getenv}

	root := &cobra.Command{
		Use:           "topovista",
		Short:         "Browse a repository's commit graph in topological order",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd.ErrOrStderr())
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.closer != nil {
				return a.closer.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.repo, "repo", ".", "path inside the repository")

	root.AddCommand(newServeCmd(a), newLogCmd(a), newVersionCmd())
	return root
}

func (a *app) setup(stderr io.Writer) error {
	cfg, err := config.LoadFrom(a.getenv)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return err
	}
	logger, closer, err := logging.New(cfg.Log, stderr)
	if err != nil {
		fmt.Fprintln(stderr, err)
		return err
	}
	a.cfg, a.logger, a.closer = cfg, logger, closer
	return nil
}

func (a *app) openRepository() (*gitcore.Repository, error) {
	return gitcore.NewRepository(a.repo, gitcore.WithLogger(a.logger))
}

func newServeCmd(a *app) *cobra.Command {
	var listen string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the commit log over HTTP and WebSocket",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.openRepository()
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return err
			}

			cfg := a.cfg.Server
			if listen != "" {
				cfg.Listen = listen
			}

			fmt.Fprintf(cmd.OutOrStdout(), "topovista serving %s at http://localhost%s\n", repo.Name(), cfg.Listen)
			if err := server.NewServer(repo, cfg, a.logger).Run(cmd.Context()); err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return err
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&listen, "listen", "", "listen address (overrides TOPO_LISTEN)")
	return cmd
}

func newLogCmd(a *app) *cobra.Command {
	var color string

	cmd := &cobra.Command{
		Use:   "log",
		Short: "Print the topological commit log once",
		RunE: func(cmd *cobra.Command, args []string) error {
			repo, err := a.openRepository()
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return err
			}

			snap, err := domain.BuildSnapshot(repo, a.logger)
			if err != nil {
				fmt.Fprintln(cmd.ErrOrStderr(), err)
				return err
			}

			mode := a.cfg.Color
			if color != "" {
				mode = color
			}
			out := cmd.OutOrStdout()
			return snap.WriteLog(out, render.Options{Color: render.ColorEnabled(mode, out)})
		},
	}
	cmd.Flags().StringVar(&color, "color", "", "auto, always or never (overrides TOPO_COLOR)")
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := fmt.Fprintln(cmd.OutOrStdout(), "topovista", version)
			return err
		},
	}
}

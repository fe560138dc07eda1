package cli

import (
	"io"
	"os/signal"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/tgienger/annotate/internal/server"
	"github.com/tgienger/annotate/internal/ui"
)

func (a *app) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the JSON API and Prometheus metrics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			svc, err := a.open(true)
			if err != nil {
				return err
			}
			if addr == "" {
				addr = a.cfg.HTTP.Addr
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			srv := server.New(svc, a.log, a.collector, a.registry)
			return srv.Run(ctx, addr, a.cfg.HTTP.ShutdownTimeout)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address (default from config)")
	return cmd
}

func (a *app) tuiCmd() *cobra.Command {
	var worker string
	cmd := &cobra.Command{
		Use:   "tui",
		Short: "Annotate assigned tasks in the terminal",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			// the alternate screen owns the terminal, keep logs out of it
			if a.cfg.Log.File == "" {
				a.log.SetOutput(io.Discard)
			}
			svc, err := a.open(false)
			if err != nil {
				return err
			}

			app := ui.NewApp(svc, worker)
			p := tea.NewProgram(app, tea.WithAltScreen())
			if _, err := p.Run(); err != nil {
				return errors.Wrap(err, "run terminal ui")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&worker, "worker", "w", "", "worker id or username (default: last used)")
	return cmd
}

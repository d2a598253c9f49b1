package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/nick-dorsch/planner/internal/mcp"
	"github.com/nick-dorsch/planner/internal/server"
	"github.com/nick-dorsch/planner/internal/ui"
)

const shutdownTimeout = 5 * time.Second

func newBrowseCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "browse",
		Short: "Browse and edit tasks in the terminal",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.withService(func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		a.svc.Start(ctx)
		return ui.RunBrowse(ctx, a.svc)
	})
	return cmd
}

func newWebCmd(a *app) *cobra.Command {
	var port int
	cmd := &cobra.Command{
		Use:   "web",
		Short: "Serve the web interface and JSON API",
		Args:  cobra.NoArgs,
	}
	cmd.Flags().IntVarP(&port, "port", "p", 0, "Port to listen on (default from config)")

	cmd.RunE = a.withService(func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		if port == 0 {
			port = a.cfg.Web.Port
		}
		a.svc.Start(ctx)
		srv := server.NewServer(a.svc, a.logger)

		errCh := make(chan error, 1)
		go func() {
			errCh <- srv.Start(fmt.Sprintf(":%d", port))
		}()
		fmt.Fprintf(cmd.OutOrStdout(), "Serving planner on http://localhost:%d\n", port)

		select {
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		case <-ctx.Done():
		}

		shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	return cmd
}

func newMCPCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve planner tools over MCP on stdio",
		Args:  cobra.NoArgs,
	}
	cmd.RunE = a.withService(func(cmd *cobra.Command, args []string) error {
		return mcp.Serve(mcp.NewServer(a.svc))
	})
	return cmd
}

package main

import (
	"context"
	"net/http"

	"github.com/spf13/cobra"

	"mapleads/internal/browser"
	"mapleads/internal/scrape"
	"mapleads/internal/server"
	"mapleads/internal/session"
)

func newServeCmd() *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the scraping API over HTTP",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()

			orch := scrape.New(func(ctx context.Context) (browser.Session, error) {
				return browser.Open(ctx, logger)
			}, logger)
			sessions := session.NewManager(orch.RunWithProgress, session.DefaultGrace, logger)
			srv := server.New(orch, sessions, logger)

			logger.Info("server listening", "addr", addr)
			return http.ListenAndServe(addr, srv.Handler())
		},
	}

	cmd.Flags().StringVar(&addr, "addr", ":3001", "Listen address")

	return cmd
}

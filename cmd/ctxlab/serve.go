package main

import (
	"github.com/spf13/cobra"

	"ctxlab/internal/dashboard"
	"ctxlab/internal/events"
	"ctxlab/internal/teaching"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the dashboard JSON API over recorded sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := events.NewStore(cfg.LogDir, logger)
		if err != nil {
			return err
		}
		server, err := dashboard.NewServer(store, teaching.NewRegistry(), logger)
		if err != nil {
			return err
		}
		defer server.Close()
		return server.ListenAndServe(serveAddr)
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "127.0.0.1:8000", "listen address")
}

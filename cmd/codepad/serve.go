package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/huzeyfeaktas/python-editor/internal/app"
	"github.com/huzeyfeaktas/python-editor/internal/server"
)

var portFlag int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the codepad web server",
	Long: `Start the codepad HTTP server with REST API and WebSocket support.

The editor UI is available at the root URL. API endpoints are under /api and
expect the X-Owner-ID header set by the fronting proxy.

Examples:
  codepad serve
  codepad serve --port 9090 --viewer none`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVar(&portFlag, "port", 0, "Port to listen on (overrides config)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}

	// Open storage
	tr, err := app.OpenTree(cfg, logger)
	if err != nil {
		return err
	}
	defer tr.Close()

	// Build runners
	ex, err := app.BuildExecution(cfg, viewerFlag, logger)
	if err != nil {
		return err
	}

	// Determine port
	port := cfg.Server.Port
	if portFlag > 0 {
		port = portFlag
	}

	// Create and start server
	srv := server.New(cfg, server.Services{
		Tree:      tr.Service,
		Engine:    ex.Engine,
		Renderers: ex.Renderers,
	}, logger)

	// Graceful shutdown on SIGINT/SIGTERM
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigCh
		srv.Shutdown(context.Background())
	}()

	return srv.Start(port)
}

package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nishad/gdcharvest/internal/api"
	"github.com/spf13/cobra"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Serve harvested artifacts over HTTP",
	Long: `Server exposes harvested datasets, their artifact tables, run logs and
statistics over a JSON API, plus metadata search when an index has
been built.`,
	Example: `  # Serve the configured output directory
  gdcharvest server --port 8080

  # Expose the search index too
  gdcharvest server --with-search`,
	RunE: runServer,
}

var (
	serverHost       string
	serverPort       int
	serverCORS       bool
	serverWithSearch bool
)

func init() {
	serverCmd.Flags().StringVar(&serverHost, "host", "localhost", "Host to bind to")
	serverCmd.Flags().IntVarP(&serverPort, "port", "p", 8080, "Port to listen on")
	serverCmd.Flags().BoolVar(&serverCORS, "cors", false, "Enable CORS headers")
	serverCmd.Flags().BoolVar(&serverWithSearch, "with-search", false, "Serve the metadata search index")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	apiCfg := &api.Config{
		Host:       serverHost,
		Port:       serverPort,
		OutputDir:  cfg.OutputDir,
		EnableCORS: serverCORS,
	}
	if serverWithSearch || cfg.Search.Enabled {
		apiCfg.IndexPath = cfg.Search.IndexPath
	}

	srv, err := api.NewServer(apiCfg)
	if err != nil {
		return err
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}

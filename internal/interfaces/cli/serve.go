package cli

import (
	"context"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	httpapi "github.com/robotu/molkit/internal/interfaces/http"
)

var servePort int

// NewServeCmd creates the serve command running the HTTP API.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the search API over HTTP",
		RunE:  runServe,
	}
	cmd.Flags().IntVarP(&servePort, "port", "p", 0, "listen port (default from config)")
	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	cc := GetCLIContext(cmd.Context())
	if servePort > 0 {
		cc.Config.Server.Port = servePort
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	engine, err := buildSearchEngine(cc, registry)
	if err != nil {
		return err
	}
	server := httpapi.NewServer(cc.Config.Server, engine, registry, cc.Logger)

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return server.Stop(context.Background())
	}
}

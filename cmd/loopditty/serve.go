package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/Ursinus-CS476-F2020/LoopDitty/projection"
	"github.com/Ursinus-CS476-F2020/LoopDitty/server"
)

var serveAddr string

// serveCmd exposes the projector over HTTP
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve projections over HTTP",
	Long: `Serve projections over HTTP until interrupted.

  POST /v1/projections  run one request, stream events as JSON lines
  GET  /metrics         prometheus metrics
  GET  /healthz         liveness`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address; overrides server.addr when set")
}

func runServe(cmd *cobra.Command, args []string) error {
	run := *cfg
	if serveAddr != "" {
		run.Server.Addr = serveAddr
	}
	// Requests from different clients are independent, so none supersedes
	// another.
	run.Pipeline.Supersede = false

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	p := projection.NewProjector(&run, projection.WithMetrics(projection.NewMetrics(reg)))
	s := server.New(p, run.Server, server.WithGatherer(reg))

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return s.ListenAndServe(ctx)
}

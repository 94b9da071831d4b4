package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/rezonia/ubl-pdf/internal/server"
	"github.com/rezonia/ubl-pdf/internal/signature/trust"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Long: `Start an HTTP API server for converting UBL documents.

The API provides endpoints for:
  - POST /api/v1/process  - Parse, render and extract (JSON, base64 PDFs)
  - POST /api/v1/render   - Summary PDF
  - POST /api/v1/extract  - Embedded PDF
  - POST /api/v1/parse    - Parsed invoice record
  - POST /api/v1/verify   - XMLDSig verification
  - POST /api/v1/info     - File information
  - GET  /health          - Health check

Examples:
  # Start server on default port
  ublpdf serve

  # Start on custom port with trust anchors
  ublpdf serve --address :9090 --ca-file roots.pem

  # Start in debug mode
  ublpdf serve --debug`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	flags.String("address", ":8080", "Server listen address")
	flags.Bool("debug", false, "Enable debug mode")
	flags.Duration("read-timeout", 30*time.Second, "HTTP read timeout")
	flags.Duration("write-timeout", 60*time.Second, "HTTP write timeout")
	flags.Int64("max-body-bytes", 32<<20, "Maximum request body size")
	flags.String("ca-file", "", "Trusted CA certificates for /verify (PEM)")

	mustBind("server.address", flags.Lookup("address"))
	mustBind("server.debug", flags.Lookup("debug"))
	mustBind("server.read_timeout", flags.Lookup("read-timeout"))
	mustBind("server.write_timeout", flags.Lookup("write-timeout"))
	mustBind("server.max_body_bytes", flags.Lookup("max-body-bytes"))
}

func runServe(cmd *cobra.Command, args []string) error {
	caFile := cfg.Trust.CAFile
	if cmd.Flags().Changed("ca-file") {
		caFile, _ = cmd.Flags().GetString("ca-file")
	}
	trustStore, err := trust.LoadFile(caFile)
	if err != nil {
		return fmt.Errorf("failed to create trust store: %w", err)
	}

	srv := server.NewServer(&server.Config{
		Address:          cfg.Server.Address,
		ReadTimeout:      cfg.Server.ReadTimeout,
		WriteTimeout:     cfg.Server.WriteTimeout,
		MaxBodyBytes:     cfg.Server.MaxBodyBytes,
		ValidateEmbedded: cfg.Convert.ValidateEmbedded,
		Debug:            cfg.Server.Debug,
	}, server.WithLogger(log), server.WithTrustStore(trustStore))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info("Starting server",
		zap.String("address", cfg.Server.Address),
		zap.Bool("trust_anchors", !trustStore.Empty()))

	return srv.Run(ctx)
}

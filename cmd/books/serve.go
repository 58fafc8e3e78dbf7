package main

import (
	"crypto/tls"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/the-books-must-balance/internal/api"
	"github.com/Veraticus/the-books-must-balance/internal/api/handlers"
	"github.com/Veraticus/the-books-must-balance/internal/certs"
	"github.com/Veraticus/the-books-must-balance/internal/config"
	"github.com/Veraticus/the-books-must-balance/internal/engine"
	"github.com/Veraticus/the-books-must-balance/internal/stripe"
)

func serveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the journal batch HTTP API",
		Long: `Serve the journal batch endpoints:

  POST /api/sync-transactions
  POST /api/create-journal-batch
  POST /api/complete-journal-batch    {"batchId": "..."}
  POST /api/cancel-journal-batch      {"batchId": "..."}
  GET  /api/download-batch-excel?batchId=...
  GET  /api/unmapped-programs
  GET  /api/batches?status=&limit=

API requests are refused until the Stripe secret key is configured.`,
		RunE: runServe,
	}

	cmd.Flags().String("addr", ":8080", "Address to listen on")
	cmd.Flags().Bool("tls", false, "Serve HTTPS with a self-signed certificate")
	cmd.Flags().StringSlice("tls-host", nil, "Extra host names or IPs for the certificate")
	_ = viper.BindPFlag("server.addr", cmd.Flags().Lookup("addr"))
	_ = viper.BindPFlag("server.tls", cmd.Flags().Lookup("tls"))
	_ = viper.BindPFlag("server.tls_hosts", cmd.Flags().Lookup("tls-host"))

	return cmd
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	log := slog.Default()

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	// Without a key the server still starts; RequireConfig reports it per request.
	var source engine.PaymentSource
	stripeConfig, err := config.LoadStripeConfig()
	if err != nil {
		log.Warn("Stripe is not configured, payment sync is disabled", "error", err)
	} else {
		client, err := stripe.NewClient(*stripeConfig)
		if err != nil {
			return fmt.Errorf("failed to create Stripe client: %w", err)
		}
		source = client
	}

	h := handlers.NewBatchesHandler(newEngine(store), store, source, log)
	handler := api.NewHandler(h, api.Options{
		Required: map[string]func() bool{
			"STRIPE_SECRET_KEY": func() bool { return source != nil },
		},
		Logger: log,
	})

	var tlsConfig *tls.Config
	if viper.GetBool("server.tls") {
		certDir := config.ExpandPath(viper.GetString("server.cert_dir"))
		tlsConfig, err = certs.NewFileManager(certDir, viper.GetStringSlice("server.tls_hosts")...).TLSConfig()
		if err != nil {
			return fmt.Errorf("failed to prepare TLS certificate: %w", err)
		}
	}

	return api.Serve(ctx, viper.GetString("server.addr"), handler, tlsConfig, log)
}

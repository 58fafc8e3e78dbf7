package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/Veraticus/the-books-must-balance/internal/cli"
	"github.com/Veraticus/the-books-must-balance/internal/common"
	"github.com/Veraticus/the-books-must-balance/internal/config"
	"github.com/Veraticus/the-books-must-balance/internal/sheets"
)

func sheetsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sheets",
		Short: "Google Sheets publishing",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "auth",
		Short: "Authorize publishing to Google Sheets",
		Long: `Run the OAuth2 flow in your browser and save the resulting token.

Requires sheets.client_id and sheets.client_secret (or GOOGLE_SHEETS_CLIENT_ID
and GOOGLE_SHEETS_CLIENT_SECRET).`,
		RunE: runSheetsAuth,
	})

	return cmd
}

func runSheetsAuth(cmd *cobra.Command, _ []string) error {
	cfg := sheets.DefaultConfig()
	if err := cfg.LoadFromEnv(); err != nil {
		return err
	}
	if v := viper.GetString("sheets.client_id"); v != "" {
		cfg.ClientID = v
	}
	if v := viper.GetString("sheets.client_secret"); v != "" {
		cfg.ClientSecret = v
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return common.NewUserError("set sheets.client_id and sheets.client_secret first", common.ErrMissingConfig)
	}

	tokenFile := config.DefaultTokenFile()
	if v := viper.GetString("sheets.token_file"); v != "" {
		tokenFile = config.ExpandPath(v)
	} else if cfg.TokenFile != "" {
		tokenFile = cfg.TokenFile
	}

	ctx, stop := cli.NewInterruptHandler(cmd.ErrOrStderr()).HandleInterrupts(cmd.Context(), "Authentication")
	defer stop()

	if _, err := sheets.AuthenticateOAuth2Interactive(ctx, sheets.OAuth2Config{
		ClientID:     cfg.ClientID,
		ClientSecret: cfg.ClientSecret,
		TokenFile:    tokenFile,
	}); err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}

	_, _ = fmt.Fprintln(cmd.OutOrStdout(), cli.FormatSuccess("Google Sheets authorized. Token saved to "+tokenFile))
	return nil
}

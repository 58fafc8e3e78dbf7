package config

import (
	"os"

	"github.com/spf13/viper"

	"github.com/Veraticus/the-books-must-balance/internal/plaid"
)

// LoadPlaidConfig loads Plaid configuration from Viper, falling back to
// PLAID_CLIENT_ID, PLAID_SECRET, PLAID_ENV and PLAID_ACCESS_TOKEN.
func LoadPlaidConfig() (*plaid.Config, error) {
	config := plaid.Config{
		ClientID:    viper.GetString("plaid.client_id"),
		Secret:      viper.GetString("plaid.secret"),
		Environment: viper.GetString("plaid.environment"),
		AccessToken: viper.GetString("plaid.access_token"),
		Days:        viper.GetInt("plaid.days"),
	}

	if config.ClientID == "" {
		config.ClientID = os.Getenv("PLAID_CLIENT_ID")
	}
	if config.Secret == "" {
		config.Secret = os.Getenv("PLAID_SECRET")
	}
	if config.Environment == "" {
		config.Environment = os.Getenv("PLAID_ENV")
	}
	if config.Environment == "" {
		config.Environment = "sandbox"
	}
	if config.AccessToken == "" {
		config.AccessToken = os.Getenv("PLAID_ACCESS_TOKEN")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

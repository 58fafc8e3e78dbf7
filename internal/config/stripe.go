package config

import (
	"os"

	"github.com/spf13/viper"

	"github.com/Veraticus/the-books-must-balance/internal/stripe"
)

// LoadStripeConfig loads Stripe configuration from Viper, falling back to
// STRIPE_SECRET_KEY for the secret key.
func LoadStripeConfig() (*stripe.Config, error) {
	config := stripe.Config{
		SecretKey: viper.GetString("stripe.secret_key"),
		BaseURL:   viper.GetString("stripe.base_url"),
		Limit:     viper.GetInt64("stripe.limit"),
	}

	if config.SecretKey == "" {
		config.SecretKey = os.Getenv("STRIPE_SECRET_KEY")
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

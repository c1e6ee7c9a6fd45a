package internal

import (
	"fmt"

	"github.com/lensvault/lensvault_server/internal/admin"
	"github.com/lensvault/lensvault_server/internal/download"
	"github.com/lensvault/lensvault_server/internal/fetch"
	"github.com/lensvault/lensvault_server/internal/pinauth"
	"github.com/spf13/viper"
)

type Config struct {
	ListenAddr     string          `mapstructure:"listen_addr"`
	DatabaseURL    string          `mapstructure:"database_url"`
	MasterSecret   string          `mapstructure:"master_secret"`
	ExternalURL    string          `mapstructure:"external_url"`
	AllowedOrigins []string        `mapstructure:"allowed_origins"`
	Admin          admin.Config    `mapstructure:"admin"`
	Pin            pinauth.Config  `mapstructure:"pin"`
	Fetch          fetch.Config    `mapstructure:"fetch"`
	Download       download.Config `mapstructure:"download"`
}

func LoadConfig() (*Config, error) {
	viper.SetConfigFile("files/config.yaml")

	// Try to read the config and provide more detailed error information
	if err := viper.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return &config, nil
}

/**
 * @description
 * This package handles the configuration management for the service. It uses
 * the Viper library to read configuration from environment variables,
 * providing a centralized and straightforward way to manage application
 * settings.
 *
 * @dependencies
 * - github.com/spf13/viper: A popular library for Go application configuration.
 */

package config

import (
	"log"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// Config holds all the configuration variables for the campaign-service.
// These values are loaded from environment variables.
type Config struct {
	ServerPort                 string `mapstructure:"SERVER_PORT"`
	DatabaseURL                string `mapstructure:"DATABASE_URL"`
	RabbitMQURL                string `mapstructure:"RABBITMQ_URL"`
	CampaignEventExchange      string `mapstructure:"CAMPAIGN_EVENT_EXCHANGE"`
	TreasuryAPIBaseURL         string `mapstructure:"TREASURY_API_BASE_URL"`
	TreasuryAPIKey             string `mapstructure:"TREASURY_API_KEY"`
	JWTSecret                  string `mapstructure:"JWT_SECRET"`
	PlatformOwnerID            string `mapstructure:"PLATFORM_OWNER_ID"`
	PlatformFeeBps             int64  `mapstructure:"PLATFORM_FEE_BPS"`
	RedisURL                   string `mapstructure:"REDIS_URL"`
	RedisRateLimitPrefix       string `mapstructure:"REDIS_RATE_LIMIT_PREFIX"`
	DonationRateLimitPerMinute int    `mapstructure:"DONATION_RATE_LIMIT_PER_MINUTE"`
}

// LoadConfig reads configuration from environment variables from the given path.
// It uses Viper to automatically bind environment variables to the Config struct.
func LoadConfig(path string) (config Config, err error) {
	// Tell viper the path to look for the optional .env file.
	viper.AddConfigPath(path)
	viper.SetConfigName(".env")
	viper.SetConfigType("env")

	// Enable automatic binding of environment variables.
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// Set default values
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("CAMPAIGN_EVENT_EXCHANGE", "campaign_events")
	viper.SetDefault("PLATFORM_FEE_BPS", 250)
	viper.SetDefault("REDIS_RATE_LIMIT_PREFIX", "openfund:rate_limit")
	viper.SetDefault("DONATION_RATE_LIMIT_PER_MINUTE", 0)

	// Bind environment variables explicitly to ensure they appear in Unmarshal
	_ = viper.BindEnv("SERVER_PORT")
	_ = viper.BindEnv("PORT")
	_ = viper.BindEnv("DATABASE_URL")
	_ = viper.BindEnv("RABBITMQ_URL")
	_ = viper.BindEnv("CAMPAIGN_EVENT_EXCHANGE")
	_ = viper.BindEnv("TREASURY_API_BASE_URL")
	_ = viper.BindEnv("TREASURY_API_KEY")
	_ = viper.BindEnv("JWT_SECRET")
	_ = viper.BindEnv("PLATFORM_OWNER_ID")
	_ = viper.BindEnv("PLATFORM_FEE_BPS")
	_ = viper.BindEnv("REDIS_URL")
	_ = viper.BindEnv("REDIS_RATE_LIMIT_PREFIX")
	_ = viper.BindEnv("DONATION_RATE_LIMIT_PER_MINUTE")

	// Attempt to read the config file. It's okay if it doesn't exist.
	if err = viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			log.Printf("level=warn component=config msg=\"failed to read config file; using environment values\" err=%v", err)
		}
	}

	// Unmarshal the configuration into the Config struct.
	err = viper.Unmarshal(&config)
	if err != nil {
		return
	}

	if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		config.ServerPort = port
	}
	config.PlatformOwnerID = strings.TrimSpace(config.PlatformOwnerID)
	config.RedisURL = strings.TrimSpace(config.RedisURL)
	config.RedisRateLimitPrefix = strings.TrimSpace(config.RedisRateLimitPrefix)
	if config.RedisRateLimitPrefix == "" {
		config.RedisRateLimitPrefix = "openfund:rate_limit"
	}

	// The fee must stay within [0, 1000] basis points (10%).
	if config.PlatformFeeBps < 0 {
		log.Printf("level=warn component=config msg=\"negative platform fee configured; coercing to zero\" fee_bps=%d", config.PlatformFeeBps)
		config.PlatformFeeBps = 0
	}
	if config.PlatformFeeBps > 1000 {
		log.Printf("level=warn component=config msg=\"platform fee too high; capping at 1000 bps\" fee_bps=%d", config.PlatformFeeBps)
		config.PlatformFeeBps = 1000
	}

	if config.DonationRateLimitPerMinute < 0 {
		config.DonationRateLimitPerMinute = 0
	}

	return
}

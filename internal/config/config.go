package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName         = "WalletDashboard"
	defaultAppEnv          = "development"
	defaultLogLevel        = "info"
	defaultHTTPTimeout     = 15 * time.Second
	defaultCheckoutAddr    = "127.0.0.1:7878"
	defaultCheckoutWait    = 5 * time.Minute
	httpTimeoutEnvVar      = "HTTP_TIMEOUT"
	checkoutSecondsEnvVar  = "CHECKOUT_TIMEOUT_SECONDS"
	checkoutDurationEnvVar = "CHECKOUT_TIMEOUT"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName         string
	AppEnv          string
	LogLevel        string
	APIBaseURL      string
	RazorpayKeyID   string
	HTTPTimeout     time.Duration
	CheckoutAddr    string
	CheckoutTimeout time.Duration
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:         getEnv("APP_NAME", defaultAppName),
		AppEnv:          getEnv("APP_ENV", defaultAppEnv),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		APIBaseURL:      os.Getenv("WALLET_API_BASE_URL"),
		RazorpayKeyID:   os.Getenv("RAZORPAY_KEY_ID"),
		HTTPTimeout:     defaultHTTPTimeout,
		CheckoutAddr:    getEnv("CHECKOUT_ADDR", defaultCheckoutAddr),
		CheckoutTimeout: defaultCheckoutWait,
	}

	if v := os.Getenv(httpTimeoutEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", httpTimeoutEnvVar, err)
		}
		cfg.HTTPTimeout = d
	}

	if v := os.Getenv(checkoutSecondsEnvVar); v != "" {
		seconds, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", checkoutSecondsEnvVar, err)
		}
		cfg.CheckoutTimeout = time.Duration(seconds) * time.Second
	} else if v := os.Getenv(checkoutDurationEnvVar); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid %s: %w", checkoutDurationEnvVar, err)
		}
		cfg.CheckoutTimeout = d
	}

	if cfg.APIBaseURL == "" {
		return Config{}, fmt.Errorf("WALLET_API_BASE_URL must be set")
	}
	if _, err := url.Parse(cfg.APIBaseURL); err != nil {
		return Config{}, fmt.Errorf("invalid WALLET_API_BASE_URL: %w", err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

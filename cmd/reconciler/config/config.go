// Package config translates viper settings (flags, RECONCILER_ environment
// variables, optional config file) into the typed configs each component
// consumes.
package config

import (
	"time"

	"payment-reconciliation-service/internal/bankclient"
	"payment-reconciliation-service/internal/reconciler"
	"payment-reconciliation-service/internal/server"
	"payment-reconciliation-service/internal/training"
	"payment-reconciliation-service/pkg/errors"
	"payment-reconciliation-service/pkg/logger"

	"github.com/spf13/viper"
)

// Config is the full service configuration.
type Config struct {
	BankToken       string
	BankBaseURL     string
	CurrencyCode    int
	WindowHours     int
	FetchTimeout    time.Duration
	ExchangeDivisor int64

	DatabaseDSN string
	ServerAddr  string

	LogLevel  string
	LogFormat string

	SweepInterval time.Duration
	SweepMaxAge   time.Duration
}

// SetDefaults registers every setting's default value with viper. Called
// once from the CLI before flags and env vars are read.
func SetDefaults() {
	bank := bankclient.DefaultConfig()
	recon := reconciler.DefaultConfig()
	srv := server.DefaultConfig()
	sweep := training.DefaultConfig()

	viper.SetDefault("bank.token", "")
	viper.SetDefault("bank.base_url", bank.BaseURL)
	viper.SetDefault("bank.currency_code", bank.CurrencyCode)
	viper.SetDefault("bank.fetch_timeout", bank.FetchTimeout)
	viper.SetDefault("reconcile.window_hours", recon.WindowHours)
	viper.SetDefault("reconcile.exchange_divisor", recon.ExchangeDivisor)
	viper.SetDefault("database.dsn", "")
	viper.SetDefault("server.addr", srv.Addr)
	viper.SetDefault("log.level", "info")
	viper.SetDefault("log.format", "text")
	viper.SetDefault("sweep.interval", sweep.Interval)
	viper.SetDefault("sweep.max_age", sweep.MaxAge)
}

// Load materializes the configuration from viper's merged sources.
func Load() (*Config, error) {
	c := &Config{
		BankToken:       viper.GetString("bank.token"),
		BankBaseURL:     viper.GetString("bank.base_url"),
		CurrencyCode:    viper.GetInt("bank.currency_code"),
		WindowHours:     viper.GetInt("reconcile.window_hours"),
		FetchTimeout:    viper.GetDuration("bank.fetch_timeout"),
		ExchangeDivisor: viper.GetInt64("reconcile.exchange_divisor"),
		DatabaseDSN:     viper.GetString("database.dsn"),
		ServerAddr:      viper.GetString("server.addr"),
		LogLevel:        viper.GetString("log.level"),
		LogFormat:       viper.GetString("log.format"),
		SweepInterval:   viper.GetDuration("sweep.interval"),
		SweepMaxAge:     viper.GetDuration("sweep.max_age"),
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate rejects settings no component could run with. A missing bank
// token is deliberately NOT an error here: the service starts without one
// and reports it per request.
func (c *Config) Validate() error {
	if c.BankBaseURL == "" {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "bank.base_url", nil)
	}
	if c.WindowHours <= 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "reconcile.window_hours", nil)
	}
	if c.ExchangeDivisor <= 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "reconcile.exchange_divisor", nil)
	}
	if c.FetchTimeout <= 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "bank.fetch_timeout", nil)
	}
	return nil
}

// BankConfig builds the bank client configuration.
func (c *Config) BankConfig() bankclient.Config {
	return bankclient.Config{
		BaseURL:      c.BankBaseURL,
		Token:        c.BankToken,
		CurrencyCode: c.CurrencyCode,
		FetchTimeout: c.FetchTimeout,
	}
}

// ReconcilerConfig builds the orchestrator configuration.
func (c *Config) ReconcilerConfig() reconciler.Config {
	return reconciler.Config{
		WindowHours:     c.WindowHours,
		ExchangeDivisor: c.ExchangeDivisor,
	}
}

// ServerConfig builds the HTTP server configuration.
func (c *Config) ServerConfig() server.Config {
	cfg := server.DefaultConfig()
	cfg.Addr = c.ServerAddr
	return cfg
}

// SweepConfig builds the training-sweep configuration.
func (c *Config) SweepConfig() training.Config {
	return training.Config{
		MaxAge:   c.SweepMaxAge,
		Interval: c.SweepInterval,
	}
}

// LoggerConfig builds the logging configuration.
func (c *Config) LoggerConfig() *logger.Config {
	return &logger.Config{
		Level:  c.LogLevel,
		Format: c.LogFormat,
	}
}

package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration.
type Config struct {
	Database struct {
		URL string `yaml:"url"`
	} `yaml:"database"`
	Auth struct {
		JWTSecret string `yaml:"jwt_secret"`
	} `yaml:"auth"`
	Reasoning struct {
		URL            string `yaml:"url"`
		APIKey         string `yaml:"api_key"`
		Model          string `yaml:"model"`
		TimeoutSeconds int64  `yaml:"timeout_seconds"`
	} `yaml:"reasoning"`
	MarketData struct {
		URL            string `yaml:"url"`
		APIKey         string `yaml:"api_key"`
		TimeoutSeconds int64  `yaml:"timeout_seconds"`
	} `yaml:"market_data"`
	Wallet struct {
		URL            string `yaml:"url"`
		APIKey         string `yaml:"api_key"`
		TimeoutSeconds int64  `yaml:"timeout_seconds"`
	} `yaml:"wallet"`
	Executor struct {
		URL            string `yaml:"url"`
		APIKey         string `yaml:"api_key"`
		TimeoutSeconds int64  `yaml:"timeout_seconds"`
	} `yaml:"executor"`
	Pipeline struct {
		PnlThreshold float64 `yaml:"pnl_threshold"`
	} `yaml:"pipeline"`
	Notifier struct {
		Enabled  bool   `yaml:"enabled"`
		BotToken string `yaml:"bot_token"`
		ChatID   int64  `yaml:"chat_id"`
	} `yaml:"notifier"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
}

// LoadConfig reads configuration from the specified YAML file.
func LoadConfig(configPath string) (*Config, error) {
	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.applyDefaults()

	return config, nil
}

func (c *Config) applyDefaults() {
	if c.Reasoning.TimeoutSeconds == 0 {
		c.Reasoning.TimeoutSeconds = 30
	}
	if c.MarketData.TimeoutSeconds == 0 {
		c.MarketData.TimeoutSeconds = 15
	}
	if c.Wallet.TimeoutSeconds == 0 {
		c.Wallet.TimeoutSeconds = 10
	}
	if c.Executor.TimeoutSeconds == 0 {
		c.Executor.TimeoutSeconds = 15
	}
	if c.Pipeline.PnlThreshold == 0 {
		c.Pipeline.PnlThreshold = 10
	}
	if c.Server.Port == "" {
		c.Server.Port = ":8000"
	}
}

package config

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the configuration for the application.
type Config struct {
	Server struct {
		Port int `mapstructure:"port"`
	} `mapstructure:"server"`
	DB struct {
		Host     string `mapstructure:"host"`
		Port     int    `mapstructure:"port"`
		User     string `mapstructure:"user"`
		Password string `mapstructure:"password"`
		Name     string `mapstructure:"name"`
		SSLMode  string `mapstructure:"sslmode"`
	} `mapstructure:"db"`
	Reddit struct {
		BaseURL      string `mapstructure:"base_url"`
		TokenURL     string `mapstructure:"token_url"`
		ClientID     string `mapstructure:"client_id"`
		ClientSecret string `mapstructure:"client_secret"`
		UserAgent    string `mapstructure:"user_agent"`
	} `mapstructure:"reddit"`
	LLM struct {
		BaseURL           string  `mapstructure:"base_url"`
		APIKey            string  `mapstructure:"api_key"`
		Model             string  `mapstructure:"model"`
		RequestsPerMinute float64 `mapstructure:"requests_per_minute"`
		Burst             int     `mapstructure:"burst"`
	} `mapstructure:"llm"`
	Engine struct {
		Workers            int  `mapstructure:"workers"`
		QueueSize          int  `mapstructure:"queue_size"`
		MaxConcurrentCalls int  `mapstructure:"max_concurrent_calls"`
		RecordDryRuns      bool `mapstructure:"record_dry_runs"`
	} `mapstructure:"engine"`
}

// LoadConfig loads the configuration from a file and the environment.
func LoadConfig() (*Config, error) {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	viper.AutomaticEnv()

	viper.SetDefault("server.port", 8080)
	viper.SetDefault("db.port", 5432)
	viper.SetDefault("db.sslmode", "disable")
	viper.SetDefault("reddit.base_url", "https://oauth.reddit.com")
	viper.SetDefault("reddit.token_url", "https://www.reddit.com/api/v1/access_token")
	viper.SetDefault("llm.requests_per_minute", 30)
	viper.SetDefault("llm.burst", 1)
	viper.SetDefault("engine.workers", 2)
	viper.SetDefault("engine.queue_size", 64)
	viper.SetDefault("engine.max_concurrent_calls", 3)

	if err := viper.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	if err := config.validate(); err != nil {
		return nil, err
	}

	return &config, nil
}

func (c *Config) validate() error {
	if c.Engine.Workers <= 0 {
		return fmt.Errorf("engine.workers must be positive, got %d", c.Engine.Workers)
	}
	if c.Engine.MaxConcurrentCalls <= 0 {
		return fmt.Errorf("engine.max_concurrent_calls must be positive, got %d", c.Engine.MaxConcurrentCalls)
	}
	if c.LLM.RequestsPerMinute <= 0 {
		return fmt.Errorf("llm.requests_per_minute must be positive, got %v", c.LLM.RequestsPerMinute)
	}
	return nil
}

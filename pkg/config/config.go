package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Guardrails GuardrailsConfig `mapstructure:"guardrails"`
	Provider   ProviderConfig   `mapstructure:"provider"`
}

type ServerConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	MetricsPort int    `mapstructure:"metrics_port"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

// GuardrailsConfig wires the inspection engine into the request path. Enabled
// is the single switch that removes the Gate from the pipeline entirely; it
// is overridable via GUARDRAILS_ENABLED. PolicyFile points at the
// guardrails.yaml policy source.
type GuardrailsConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	PolicyFile string `mapstructure:"policy_file"`
}

type ProviderConfig struct {
	Name         string  `mapstructure:"name"`
	Model        string  `mapstructure:"model"`
	APIKey       string  `mapstructure:"api_key"`
	MaxTokens    int     `mapstructure:"max_tokens"`
	Temperature  float64 `mapstructure:"temperature"`
	SystemPrompt string  `mapstructure:"system_prompt"`
}

var globalConfig Config

func Load(configPath string) error {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath("./config")
	v.AddConfigPath(".")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaultValues(v)

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if !errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("error reading config file: %w", err)
		}
		// No config file: environment variables and defaults carry the load.
	}

	if err := v.Unmarshal(&globalConfig); err != nil {
		return fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return nil
}

func setDefaultValues(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.metrics_port", 9090)
	v.SetDefault("metrics.enabled", true)
	v.SetDefault("guardrails.enabled", true)
	v.SetDefault("guardrails.policy_file", "config/guardrails.yaml")
	v.SetDefault("provider.name", "openai")
	v.SetDefault("provider.model", "gpt-4o-mini")
	v.SetDefault("provider.max_tokens", 1500)
	v.SetDefault("provider.temperature", 0.7)
}

func GetConfig() *Config {
	return &globalConfig
}

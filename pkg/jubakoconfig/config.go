// Package jubakoconfig loads jubako CLI defaults from a config file,
// environment variables, and built-in fallbacks: JUBAKO_-prefixed
// environment variables beat the file, which beats the defaults, following
// Viper's normal precedence. Command-line flags are not bound here.
package jubakoconfig

import (
	"fmt"

	"github.com/spf13/viper"
)

// Config holds the settings Load reads. The jubako CLI loads it before
// every command, but no command consults its fields.
type Config struct {
	DefaultCompression string `mapstructure:"default_compression"`
	ConcatMode         string `mapstructure:"concat_mode"`
	VerifyOnOpen       bool   `mapstructure:"verify_on_open"`
}

// Load reads jubako.yaml from the working directory, the user's config
// home, or /etc/jubako, falling back to built-in defaults for anything
// left unset.
func Load() (*Config, error) {
	viper.SetConfigName("jubako")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("$HOME/.jubako")
	viper.AddConfigPath("/etc/jubako")

	viper.SetDefault("default_compression", "zstd")
	viper.SetDefault("concat_mode", "one_file")
	viper.SetDefault("verify_on_open", true)

	viper.SetEnvPrefix("JUBAKO")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("jubakoconfig: read config file: %w", err)
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("jubakoconfig: unmarshal config: %w", err)
	}
	return &cfg, nil
}

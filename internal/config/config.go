// This file defines the configuration structure for the application.
package config

import (
	// use Viper for loading the config.yml file.
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration settings for the application.
// It maps directly to the structure of config.yml.
type Config struct {
	Port            int     `mapstructure:"port"`
	BatchSize       int     `mapstructure:"batch_size"`
	RenderDPI       float64 `mapstructure:"render_dpi"`
	QueueCapacity   int     `mapstructure:"queue_capacity"`
	RetentionHours  int     `mapstructure:"retention_hours"`
	CleanupInterval int     `mapstructure:"cleanup_interval"` // minutes
	Database        struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"database"`
	Storage struct {
		UploadDir string `mapstructure:"upload_dir"`
		OutputDir string `mapstructure:"output_dir"`
		InboxDir  string `mapstructure:"inbox_dir"`
	} `mapstructure:"storage"`
	OCR struct {
		Endpoint string `mapstructure:"endpoint"`
		Language string `mapstructure:"language"`
		Timeout  int    `mapstructure:"timeout"` // seconds, per recognition request
	} `mapstructure:"ocr"`
}

// Load reads configuration from a file named "config.yml" in the
// current directory and unmarshals it into a Config struct.
func Load() (*Config, error) {
	viper.SetConfigName("config") // name of config file (without extension)
	viper.SetConfigType("yml")    // or "yaml"
	viper.AddConfigPath(".")      // looking for config in the current directory

	// --- Environment Variable Overrides ---
	// This tells Viper to look for environment variables with a "DOCR_" prefix.
	// e.g., DOCR_DATABASE_PATH will override the `database.path` key.
	viper.SetEnvPrefix("DOCR")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// Set default values
	viper.SetDefault("port", 8080)
	viper.SetDefault("batch_size", 8)
	viper.SetDefault("render_dpi", 150)
	viper.SetDefault("queue_capacity", 10)
	viper.SetDefault("retention_hours", 72)
	viper.SetDefault("cleanup_interval", 60)
	viper.SetDefault("database.path", "./docr.db")
	viper.SetDefault("storage.upload_dir", "./uploads")
	viper.SetDefault("storage.output_dir", "./output")
	viper.SetDefault("storage.inbox_dir", "")
	viper.SetDefault("ocr.endpoint", "http://localhost:8868")
	viper.SetDefault("ocr.language", "en")
	viper.SetDefault("ocr.timeout", 300)

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			// Config file not found; ignore error and use defaults
		} else {
			// Config file was found but another error was produced
			return nil, err
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// Package config provides a reusable loader for broker configuration
// files and environment variables. It is versioned so that
// applications can depend on a stable API contract.
//
// Version: v0.1.0
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/nextgraph-core/ng/pkg/ngerr"
	"github.com/nextgraph-core/ng/pkg/utils"
)

// Version is the semantic version of this configuration package.
const Version = "v0.1.0"

// Config is the unified configuration for a broker process (spec.md
// section 6: "a broker requires an admin private key, a local peer
// private key, and a bind address"). The default WebSocket ports
// quoted there are configuration, not part of the core contract, so
// they appear as defaults here rather than constants.
type Config struct {
	Identity struct {
		AdminKeyPath string `mapstructure:"admin_key_path" json:"admin_key_path"`
		PeerKeyPath  string `mapstructure:"peer_key_path" json:"peer_key_path"`
	} `mapstructure:"identity" json:"identity"`

	Network struct {
		BindAddress        string `mapstructure:"bind_address" json:"bind_address"`
		PublicPort         int    `mapstructure:"public_port" json:"public_port"`
		TLSPort            int    `mapstructure:"tls_port" json:"tls_port"`
		LocalDevPort       int    `mapstructure:"local_dev_port" json:"local_dev_port"`
		NoiseStaticKeyPath string `mapstructure:"noise_static_key_path" json:"noise_static_key_path"`
	} `mapstructure:"network" json:"network"`

	Storage struct {
		Backend string `mapstructure:"backend" json:"backend"`
		DataDir string `mapstructure:"data_dir" json:"data_dir"`
	} `mapstructure:"storage" json:"storage"`

	ORM struct {
		ShapeDir string `mapstructure:"shape_dir" json:"shape_dir"`
	} `mapstructure:"orm" json:"orm"`

	Metrics struct {
		Enabled     bool   `mapstructure:"enabled" json:"enabled"`
		BindAddress string `mapstructure:"bind_address" json:"bind_address"`
		HealthLog   string `mapstructure:"health_log" json:"health_log"`
	} `mapstructure:"metrics" json:"metrics"`

	Logging struct {
		Level string `mapstructure:"level" json:"level"`
		File  string `mapstructure:"file" json:"file"`
	} `mapstructure:"logging" json:"logging"`
}

// setDefaults mirrors spec.md section 6's stated defaults: 80/443 for
// public endpoints, 14400 for localhost development.
func setDefaults() {
	viper.SetDefault("network.public_port", 80)
	viper.SetDefault("network.tls_port", 443)
	viper.SetDefault("network.local_dev_port", 14400)
	viper.SetDefault("network.bind_address", "0.0.0.0")
	viper.SetDefault("network.noise_static_key_path", "./noise_static.key")
	viper.SetDefault("identity.admin_key_path", "./admin.key")
	viper.SetDefault("identity.peer_key_path", "./peer.key")
	viper.SetDefault("storage.backend", "memory")
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.bind_address", "127.0.0.1:9090")
	viper.SetDefault("metrics.health_log", "ngbroker-health.log")
	viper.SetDefault("logging.level", "info")
}

// AppConfig holds the configuration loaded via Load or LoadFromEnv.
var AppConfig Config

// Load reads configuration files and merges any environment specific
// overrides. The resulting configuration is stored in AppConfig and
// returned.
//
// The function uses the provided environment name to merge additional
// config files. If env is empty, only the default configuration is
// loaded.
func Load(env string) (*Config, error) {
	viper.SetConfigName("default")
	viper.AddConfigPath("cmd/config")
	viper.AddConfigPath("config")
	viper.SetConfigType("yaml")
	setDefaults()

	if err := viper.ReadInConfig(); err != nil {
		return nil, ngerr.Wrap(err, "config: load")
	}

	if env != "" {
		viper.SetConfigName(env)
		if err := viper.MergeInConfig(); err != nil {
			return nil, ngerr.Wrap(err, fmt.Sprintf("config: merge %s", env))
		}
	}

	viper.SetEnvPrefix("NG")
	viper.AutomaticEnv()

	if err := viper.Unmarshal(&AppConfig); err != nil {
		return nil, ngerr.Wrap(err, "config: unmarshal")
	}
	return &AppConfig, nil
}

// LoadFromEnv loads configuration using the NG_ENV environment variable.
func LoadFromEnv() (*Config, error) {
	return Load(utils.EnvOrDefault("NG_ENV", ""))
}

// =================================
// File: internal/config/config.go
// =================================
package config

import (
	"errors"
	"net/url"
	"strings"

	"github.com/spf13/viper"
)

// Config is the process configuration loaded from file with env overrides.
type Config struct {
	RPCList          []string `mapstructure:"rpc_list"`
	WebSocketURL     string   `mapstructure:"websocket_url"`
	WalletPrivateKey string   `mapstructure:"wallet_private_key"`
	DatabasePath     string   `mapstructure:"database_path"`
	DebugLogging     bool     `mapstructure:"debug_logging"`
	LogFile          string   `mapstructure:"log_file"`
	DedupCacheSize   int      `mapstructure:"dedup_cache_size"`
	MetricsListen    string   `mapstructure:"metrics_listen"`

	Settings BotSettings `mapstructure:"settings"`
}

const (
	DefaultDatabasePath   = "pumptrader.db"
	DefaultDedupCacheSize = 4096
)

// LoadConfig reads the config file at path, applies defaults and env
// overrides (PUMPTRADER_ prefix), and validates the result.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)

	defaults := map[string]interface{}{
		"database_path":    DefaultDatabasePath,
		"dedup_cache_size": DefaultDedupCacheSize,
	}
	for key, value := range settingsDefaults() {
		defaults["settings."+key] = value
	}
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.AutomaticEnv()
	v.SetEnvPrefix("PUMPTRADER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	loadEnvironmentVariables(v, &cfg)

	return &cfg, validateConfig(&cfg)
}

func validateConfig(cfg *Config) error {
	if len(cfg.RPCList) == 0 {
		return errors.New("rpc_list is empty")
	}
	for _, rpcURL := range cfg.RPCList {
		if err := validateURL(rpcURL, "http"); err != nil {
			return errors.New("invalid RPC URL protocol")
		}
	}
	if cfg.WebSocketURL == "" {
		return errors.New("missing websocket_url in configuration")
	}
	if err := validateURL(cfg.WebSocketURL, "ws"); err != nil {
		return errors.New("invalid WebSocket URL protocol")
	}
	if cfg.WalletPrivateKey == "" {
		return errors.New("missing wallet_private_key in configuration")
	}
	if cfg.DedupCacheSize <= 0 {
		return errors.New("invalid dedup_cache_size")
	}
	return cfg.Settings.Validate()
}

func validateURL(rawURL string, protocol string) error {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return errors.New("invalid URL format")
	}
	if !strings.HasPrefix(parsed.Scheme, protocol) {
		return errors.New("invalid URL protocol")
	}
	return nil
}

func loadEnvironmentVariables(v *viper.Viper, cfg *Config) {
	if key := v.GetString("WALLET_PRIVATE_KEY"); key != "" {
		cfg.WalletPrivateKey = key
	}

	if rpcList := v.GetString("RPC_LIST"); rpcList != "" {
		var cleanRPCs []string
		for _, rpc := range strings.Split(rpcList, ",") {
			if clean := strings.TrimSpace(rpc); clean != "" {
				cleanRPCs = append(cleanRPCs, clean)
			}
		}
		if len(cleanRPCs) > 0 {
			cfg.RPCList = cleanRPCs
		}
	}
}

// Path: internal/config/config.go
package config

import (
	"strings"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
type Config struct {
	Server   ServerConfig
	Upstream UpstreamConfig
	Store    StoreConfig
	Client   ClientConfig
	Log      LogConfig
}

// ServerConfig holds the HTTP server settings.
type ServerConfig struct {
	Port                string `mapstructure:"port"`
	ReadTimeoutSeconds  int    `mapstructure:"read_timeout_seconds"`
	WriteTimeoutSeconds int    `mapstructure:"write_timeout_seconds"`
}

// UpstreamConfig holds settings for the recipe data provider.
type UpstreamConfig struct {
	BaseURL           string `mapstructure:"base_url"`
	APIKey            string `mapstructure:"api_key"`
	CredentialName    string `mapstructure:"credential_name"`
	RequestsPerSecond int    `mapstructure:"requests_per_second"`
	BurstLimit        int    `mapstructure:"burst_limit"`
	TimeoutSeconds    int    `mapstructure:"timeout_seconds"`
}

// StoreConfig selects the key-value backend for persisted client preferences.
type StoreConfig struct {
	Driver     string `mapstructure:"driver"` // memory, file or mongo
	Path       string `mapstructure:"path"`
	URI        string `mapstructure:"uri"`
	Database   string `mapstructure:"database"`
	Collection string `mapstructure:"collection"`
}

// ClientConfig holds the tunables of the search/favorites client.
type ClientConfig struct {
	ProxyURL           string `mapstructure:"proxy_url"`
	DefaultPageSize    int    `mapstructure:"default_page_size"`
	DebounceMillis     int    `mapstructure:"debounce_millis"`
	FavoritesBatchSize int    `mapstructure:"favorites_batch_size"`
	FeaturedCount      int    `mapstructure:"featured_count"`
	FetchTimeoutSecs   int    `mapstructure:"fetch_timeout_seconds"`
	SessionIdleMinutes int    `mapstructure:"session_idle_minutes"`
	MaxSessions        int    `mapstructure:"max_sessions"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
}

// Load loads the configuration from file and environment variables.
func Load() (*Config, error) {
	return LoadFrom("./configs")
}

// LoadFrom is Load with an explicit config directory.
func LoadFrom(dir string) (*Config, error) {
	v := viper.New()

	// Set default values
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.READ_TIMEOUT_SECONDS", 5)
	v.SetDefault("SERVER.WRITE_TIMEOUT_SECONDS", 0) // SSE streams stay open
	v.SetDefault("UPSTREAM.BASE_URL", "https://api.spoonacular.com")
	v.SetDefault("UPSTREAM.API_KEY", "")
	v.SetDefault("UPSTREAM.CREDENTIAL_NAME", "SPOONACULAR_KEY")
	v.SetDefault("UPSTREAM.REQUESTS_PER_SECOND", 5)
	v.SetDefault("UPSTREAM.BURST_LIMIT", 10)
	v.SetDefault("UPSTREAM.TIMEOUT_SECONDS", 30)
	v.SetDefault("STORE.DRIVER", "file")
	v.SetDefault("STORE.PATH", "data/preferences.json")
	v.SetDefault("STORE.URI", "mongodb://localhost:27017")
	v.SetDefault("STORE.DATABASE", "recipe-finder")
	v.SetDefault("STORE.COLLECTION", "preferences")
	v.SetDefault("CLIENT.PROXY_URL", "")
	v.SetDefault("CLIENT.DEFAULT_PAGE_SIZE", 12)
	v.SetDefault("CLIENT.DEBOUNCE_MILLIS", 300)
	v.SetDefault("CLIENT.FAVORITES_BATCH_SIZE", 5)
	v.SetDefault("CLIENT.FEATURED_COUNT", 6)
	v.SetDefault("CLIENT.FETCH_TIMEOUT_SECONDS", 30)
	v.SetDefault("CLIENT.SESSION_IDLE_MINUTES", 30)
	v.SetDefault("CLIENT.MAX_SESSIONS", 100)
	v.SetDefault("LOG.LEVEL", "info")

	// Load from config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(dir)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err // Only return error if it's not a "file not found" error
		}
	}

	// Load from environment variables
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The provider key keeps its conventional name.
	if err := v.BindEnv("UPSTREAM.API_KEY", "UPSTREAM_API_KEY", "SPOONACULAR_KEY"); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if cfg.Client.ProxyURL == "" {
		cfg.Client.ProxyURL = "http://localhost:" + cfg.Server.Port
	}

	return &cfg, nil
}

package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	envPrefix          = "SHOWCASE"
	defaultHTTPAddress = "0.0.0.0:8080"
	defaultDataDir     = "data"
	defaultUploadsDir  = "public/uploads"
	defaultBlobPrefix  = "showcase"
	defaultLogLevel    = "info"
	defaultSessionTTL  = 12 * time.Hour
)

// RuntimeMode selects the storage tier order for the whole process. It is
// resolved once at startup and injected everywhere a tier decision is made.
type RuntimeMode string

const (
	// ModeLocal persists resources to JSON files under the data directory.
	ModeLocal RuntimeMode = "local"
	// ModeHosted persists resources to the blob store with a process-memory
	// fallback.
	ModeHosted RuntimeMode = "hosted"
)

// AppConfig captures runtime configuration for the API server.
type AppConfig struct {
	HTTPAddress     string
	Mode            RuntimeMode
	DataDir         string
	UploadsDir      string
	BlobBucket      string
	BlobPrefix      string
	BlobCredentials string
	AdminPassword   string
	SessionSecret   string
	SessionTTL      time.Duration
	LogLevel        string
}

// NewViper returns a viper instance with defaults and env bindings configured.
func NewViper() *viper.Viper {
	configViper := viper.New()
	ApplyDefaults(configViper)
	return configViper
}

// ApplyDefaults configures defaults and env bindings on the provided viper instance.
func ApplyDefaults(configViper *viper.Viper) {
	configViper.SetEnvPrefix(envPrefix)
	configViper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	configViper.AutomaticEnv()

	configViper.SetDefault("http.address", defaultHTTPAddress)
	configViper.SetDefault("runtime.mode", string(ModeLocal))
	configViper.SetDefault("data.dir", defaultDataDir)
	configViper.SetDefault("uploads.dir", defaultUploadsDir)
	configViper.SetDefault("blob.prefix", defaultBlobPrefix)
	configViper.SetDefault("session.ttl_minutes", int(defaultSessionTTL.Minutes()))
	configViper.SetDefault("log.level", defaultLogLevel)
}

// Load parses runtime configuration from viper.
func Load(configViper *viper.Viper) (AppConfig, error) {
	cfg := AppConfig{
		HTTPAddress:     configViper.GetString("http.address"),
		Mode:            RuntimeMode(strings.ToLower(strings.TrimSpace(configViper.GetString("runtime.mode")))),
		DataDir:         configViper.GetString("data.dir"),
		UploadsDir:      configViper.GetString("uploads.dir"),
		BlobBucket:      configViper.GetString("blob.bucket"),
		BlobPrefix:      configViper.GetString("blob.prefix"),
		BlobCredentials: configViper.GetString("blob.credentials_file"),
		AdminPassword:   configViper.GetString("admin.password"),
		SessionSecret:   configViper.GetString("session.signing_secret"),
		SessionTTL:      time.Duration(configViper.GetInt("session.ttl_minutes")) * time.Minute,
		LogLevel:        configViper.GetString("log.level"),
	}

	if err := cfg.validate(); err != nil {
		return AppConfig{}, err
	}

	return cfg, nil
}

func (c AppConfig) validate() error {
	switch c.Mode {
	case ModeLocal, ModeHosted:
	default:
		return fmt.Errorf("runtime.mode must be %q or %q, got %q", ModeLocal, ModeHosted, c.Mode)
	}
	if c.Mode == ModeLocal && strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("data.dir is required in local mode")
	}
	if c.Mode == ModeHosted && strings.TrimSpace(c.BlobBucket) == "" {
		return fmt.Errorf("blob.bucket is required in hosted mode")
	}
	if strings.TrimSpace(c.AdminPassword) != "" && strings.TrimSpace(c.SessionSecret) == "" {
		return fmt.Errorf("session.signing_secret is required when admin.password is set")
	}
	if c.SessionTTL <= 0 {
		return fmt.Errorf("session.ttl_minutes must be positive")
	}
	return nil
}

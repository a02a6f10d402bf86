// Package config provides configuration management for the Smarther client
// tooling. It handles loading and parsing YAML configuration files, and
// provides structured access to application settings including partner portal
// credentials, the loopback callback address, proxy configuration, and the
// notification receiver.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Default values applied when the configuration omits them.
const (
	// DefaultTokenFile is where the CLI persists authorization material.
	DefaultTokenFile = "saved_tokens.json"
	// DefaultCallbackHost is the loopback host the partner portal redirects to.
	DefaultCallbackHost = "localhost"
	// DefaultCallbackPort is the loopback port registered with the portal.
	DefaultCallbackPort = 23784
	// DefaultReceiverListen is the notification receiver's listen address.
	DefaultReceiverListen = ":8585"
	// DefaultReceiverPath is the route cloud notifications are posted to.
	DefaultReceiverPath = "/events"
	// DefaultPostgresTable is the table name used by the Postgres event sink.
	DefaultPostgresTable = "smarther_events"
)

// Config represents the application's configuration, loaded from a YAML file.
type Config struct {
	// ClientID is the OAuth client identifier issued by the partner portal.
	ClientID string `yaml:"client-id" json:"client-id"`

	// ClientSecret is the OAuth client secret paired with ClientID.
	ClientSecret string `yaml:"client-secret" json:"client-secret"`

	// SubscriptionKey is the API Management subscription key sent with every
	// device request.
	SubscriptionKey string `yaml:"subscription-key" json:"subscription-key"`

	// TokenFile is the path where authorization material is persisted between
	// runs. Defaults to saved_tokens.json in the working directory.
	TokenFile string `yaml:"token-file,omitempty" json:"token-file,omitempty"`

	// Debug enables verbose logging.
	Debug bool `yaml:"debug" json:"debug"`

	// LoggingToFile redirects logs from stdout to rotated files.
	LoggingToFile bool `yaml:"logging-to-file" json:"logging-to-file"`

	// ProxyURL is the URL of an optional proxy server to use for outbound
	// requests. Supports socks5, http, and https schemes.
	ProxyURL string `yaml:"proxy-url,omitempty" json:"proxy-url,omitempty"`

	// APIURL overrides the device API base URL. Leave empty for production.
	APIURL string `yaml:"api-url,omitempty" json:"api-url,omitempty"`

	// AuthURL overrides the browser-facing authorization endpoint.
	AuthURL string `yaml:"auth-url,omitempty" json:"auth-url,omitempty"`

	// TokenURL overrides the token endpoint.
	TokenURL string `yaml:"token-url,omitempty" json:"token-url,omitempty"`

	// Callback configures the loopback listener used during interactive login.
	Callback CallbackConfig `yaml:"callback" json:"callback"`

	// Receiver configures the cloud-to-client notification receiver.
	Receiver ReceiverConfig `yaml:"receiver" json:"receiver"`
}

// CallbackConfig holds the loopback callback listener address. The address
// must match the redirect URI registered with the partner portal application.
type CallbackConfig struct {
	// Host is the loopback host to bind. Defaults to localhost.
	Host string `yaml:"host,omitempty" json:"host,omitempty"`

	// Port is the loopback port to bind. Defaults to 23784.
	Port int `yaml:"port,omitempty" json:"port,omitempty"`
}

// ReceiverConfig holds the notification receiver configuration.
type ReceiverConfig struct {
	// Listen is the address the receiver binds, for example ":8585".
	Listen string `yaml:"listen,omitempty" json:"listen,omitempty"`

	// Path is the route cloud notifications are posted to. Defaults to /events.
	Path string `yaml:"path,omitempty" json:"path,omitempty"`

	// PublicURL is the externally reachable URL registered as the webhook
	// endpoint, for example "https://example.com/events".
	PublicURL string `yaml:"public-url,omitempty" json:"public-url,omitempty"`

	// Domain enables automatic TLS via Let's Encrypt for the given host name.
	// When empty the receiver serves plain HTTP on Listen.
	Domain string `yaml:"domain,omitempty" json:"domain,omitempty"`

	// Secret, when set, must be presented by callers in the X-Receiver-Secret
	// header for a notification to be accepted.
	Secret string `yaml:"secret,omitempty" json:"secret,omitempty"`

	// Plants lists the plant identifiers to subscribe for notifications when
	// the receiver starts.
	Plants []string `yaml:"plants,omitempty" json:"plants,omitempty"`

	// Postgres configures the optional Postgres event sink.
	Postgres PostgresConfig `yaml:"postgres,omitempty" json:"postgres,omitempty"`

	// Archive configures the optional object storage event archive.
	Archive ArchiveConfig `yaml:"archive,omitempty" json:"archive,omitempty"`
}

// PostgresConfig holds the Postgres event sink settings.
type PostgresConfig struct {
	// DSN is the Postgres connection string. Empty disables the sink.
	DSN string `yaml:"dsn,omitempty" json:"dsn,omitempty"`

	// Table is the table events are written to. Defaults to smarther_events.
	Table string `yaml:"table,omitempty" json:"table,omitempty"`
}

// ArchiveConfig holds the S3-compatible object storage archive settings.
type ArchiveConfig struct {
	// Endpoint is the object storage endpoint host, for example
	// "s3.amazonaws.com" or "minio.local:9000". Empty disables the archive.
	Endpoint string `yaml:"endpoint,omitempty" json:"endpoint,omitempty"`

	// AccessKey and SecretKey are the static credentials for the endpoint.
	AccessKey string `yaml:"access-key,omitempty" json:"access-key,omitempty"`
	SecretKey string `yaml:"secret-key,omitempty" json:"secret-key,omitempty"`

	// Bucket is the bucket events are archived into.
	Bucket string `yaml:"bucket,omitempty" json:"bucket,omitempty"`

	// Region is the bucket region, when the endpoint requires one.
	Region string `yaml:"region,omitempty" json:"region,omitempty"`

	// Prefix is prepended to every archived object key.
	Prefix string `yaml:"prefix,omitempty" json:"prefix,omitempty"`

	// Secure selects HTTPS transport to the endpoint.
	Secure bool `yaml:"secure,omitempty" json:"secure,omitempty"`

	// PathStyle forces path-style bucket addressing, needed by MinIO.
	PathStyle bool `yaml:"path-style,omitempty" json:"path-style,omitempty"`
}

// LoadConfig reads and parses the YAML configuration file at the given path,
// applying defaults and environment fallbacks.
func LoadConfig(configFile string) (*Config, error) {
	data, err := os.ReadFile(configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg Config
	if err = yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.applyDefaults()
	return &cfg, nil
}

// LoadConfigOptional behaves like LoadConfig but tolerates a missing file
// when optional is true, returning a default configuration instead.
func LoadConfigOptional(configFile string, optional bool) (*Config, error) {
	cfg, err := LoadConfig(configFile)
	if err != nil {
		if optional && errors.Is(err, os.ErrNotExist) {
			def := &Config{}
			def.applyDefaults()
			return def, nil
		}
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills in unset fields, consulting the environment for
// credentials so .env files can supply them.
func (c *Config) applyDefaults() {
	if c.ClientID == "" {
		c.ClientID = os.Getenv("SMARTHER_CLIENT_ID")
	}
	if c.ClientSecret == "" {
		c.ClientSecret = os.Getenv("SMARTHER_CLIENT_SECRET")
	}
	if c.SubscriptionKey == "" {
		c.SubscriptionKey = os.Getenv("SMARTHER_SUBSCRIPTION_KEY")
	}
	if c.TokenFile == "" {
		c.TokenFile = DefaultTokenFile
	}
	if c.Callback.Host == "" {
		c.Callback.Host = DefaultCallbackHost
	}
	if c.Callback.Port == 0 {
		c.Callback.Port = DefaultCallbackPort
	}
	if c.Receiver.Listen == "" {
		c.Receiver.Listen = DefaultReceiverListen
	}
	if c.Receiver.Path == "" {
		c.Receiver.Path = DefaultReceiverPath
	}
	if c.Receiver.Postgres.Table == "" {
		c.Receiver.Postgres.Table = DefaultPostgresTable
	}
}

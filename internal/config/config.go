package config

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "RECORDS"

// Config holds the service configuration.
type Config struct {
	DatabaseURL string `mapstructure:"database_url"` // control-plane (tenant registry) DSN
	ServerAddr  string `mapstructure:"server_addr"`
	LogLevel    string `mapstructure:"log_level"`
	LogFormat   string `mapstructure:"log_format"` // json or console

	Secrets    SecretsConfig    `mapstructure:"secrets"`
	Legacy     LegacyConfig     `mapstructure:"legacy"`
	Okta       OktaConfig       `mapstructure:"okta"`
	Resolution ResolutionConfig `mapstructure:"resolution"`
	Tenants    TenantsConfig    `mapstructure:"tenants"`
	Catalog    CatalogConfig    `mapstructure:"catalog"`
	CORS       CORSConfig       `mapstructure:"cors"`
	Telemetry  TelemetryConfig  `mapstructure:"telemetry"`
}

// SecretsConfig keys the cipher protecting tenant DSNs.
type SecretsConfig struct {
	MasterKey string `mapstructure:"master_key"`
	Salt      string `mapstructure:"salt"`
}

// LegacyConfig describes the in-house authorization server.
type LegacyConfig struct {
	Issuer     string `mapstructure:"issuer"`
	HMACSecret string `mapstructure:"hmac_secret"`
}

// Enabled reports whether legacy tokens are accepted.
func (c LegacyConfig) Enabled() bool { return c.Issuer != "" }

// OktaConfig describes the external identity provider.
type OktaConfig struct {
	Issuer     string `mapstructure:"issuer"`
	Audience   string `mapstructure:"audience"`
	ResourceID string `mapstructure:"resource_id"` // resource marker added to tokens it verifies
}

// Enabled reports whether external-provider tokens are accepted.
func (c OktaConfig) Enabled() bool { return c.Issuer != "" }

// PartialOverride forces the permission-load mode for matching requests.
type PartialOverride struct {
	Pattern string `mapstructure:"pattern"`
	Method  string `mapstructure:"method"`
	Partial bool   `mapstructure:"partial"`
}

// ResolutionConfig tunes the security-context pipeline.
type ResolutionConfig struct {
	ElevatedScopes   []string          `mapstructure:"elevated_scopes"`
	IdentitySystem   string            `mapstructure:"identity_system"`
	TenantParam      string            `mapstructure:"tenant_param"`
	PartialOverrides []PartialOverride `mapstructure:"partial_overrides"`
}

// TenantsConfig bounds the tenant handle cache.
type TenantsConfig struct {
	CacheSize    int           `mapstructure:"cache_size"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	StatusTTL    time.Duration `mapstructure:"status_ttl"`  // how long a tenant's enabled flag is trusted
	CloseGrace   time.Duration `mapstructure:"close_grace"` // evicted handles stay open this long
}

// CatalogConfig bounds the client catalog cache.
type CatalogConfig struct {
	Size int           `mapstructure:"size"`
	TTL  time.Duration `mapstructure:"ttl"`
}

// CORSConfig lists browser origins allowed to call the API.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// TelemetryConfig configures OTLP export. An empty endpoint disables it.
type TelemetryConfig struct {
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPInsecure   bool   `mapstructure:"otlp_insecure"`
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("database_url", "")
	v.SetDefault("server_addr", "localhost:8080")
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")

	v.SetDefault("secrets.master_key", "")
	v.SetDefault("secrets.salt", "")

	v.SetDefault("legacy.issuer", "")
	v.SetDefault("legacy.hmac_secret", "")

	v.SetDefault("okta.issuer", "")
	v.SetDefault("okta.audience", "")
	v.SetDefault("okta.resource_id", "okta")

	v.SetDefault("resolution.elevated_scopes", []string{"qhr-first-party", "qhr-system"})
	v.SetDefault("resolution.identity_system", "OKTA")
	v.SetDefault("resolution.tenant_param", "tenantId")
	v.SetDefault("resolution.partial_overrides", []map[string]any{})

	v.SetDefault("tenants.cache_size", 64)
	v.SetDefault("tenants.max_open_conns", 10)
	v.SetDefault("tenants.status_ttl", 30*time.Second)
	v.SetDefault("tenants.close_grace", time.Minute)

	v.SetDefault("catalog.size", 512)
	v.SetDefault("catalog.ttl", 10*time.Minute)

	v.SetDefault("cors.allowed_origins", []string{})

	v.SetDefault("telemetry.otlp_endpoint", "")
	v.SetDefault("telemetry.otlp_insecure", false)
	v.SetDefault("telemetry.service_name", "recordsapi")
	v.SetDefault("telemetry.service_version", "dev")
}

// Load reads configuration from the global viper instance: defaults, any
// config file already read by the caller, bound flags, and RECORDS_*
// environment variables (highest precedence after flags).
func Load() (*Config, error) {
	v := viper.GetViper()
	setDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("decode configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("RECORDS_DATABASE_URL is required")
	}
	if c.Okta.Enabled() && c.Okta.Audience == "" {
		return fmt.Errorf("okta.audience is required when okta.issuer is set")
	}
	if c.Legacy.Enabled() && c.Legacy.HMACSecret == "" {
		return fmt.Errorf("legacy.hmac_secret is required when legacy.issuer is set")
	}
	if c.Tenants.StatusTTL < 0 || c.Tenants.CloseGrace < 0 {
		return fmt.Errorf("tenants.status_ttl and tenants.close_grace must not be negative")
	}
	if c.Secrets.MasterKey != "" && len(c.Secrets.MasterKey) < 32 {
		return fmt.Errorf("secrets.master_key must be at least 32 bytes")
	}
	for i, o := range c.Resolution.PartialOverrides {
		if !strings.HasPrefix(o.Pattern, "/") {
			return fmt.Errorf("resolution.partial_overrides[%d]: pattern %q must start with /", i, o.Pattern)
		}
		if !overrideMethod(o.Method) {
			return fmt.Errorf("resolution.partial_overrides[%d]: unsupported method %q", i, o.Method)
		}
	}
	return nil
}

// overrideMethod reports whether method can be routed by an override.
// Empty and "*" match every method.
func overrideMethod(method string) bool {
	switch strings.ToUpper(strings.TrimSpace(method)) {
	case "", "*",
		http.MethodGet, http.MethodHead, http.MethodPost, http.MethodPut, http.MethodPatch,
		http.MethodDelete, http.MethodConnect, http.MethodOptions, http.MethodTrace:
		return true
	}
	return false
}

// RequireServing checks the settings only the API server needs.
func (c *Config) RequireServing() error {
	if !c.Legacy.Enabled() && !c.Okta.Enabled() {
		return fmt.Errorf("at least one of legacy.issuer or okta.issuer must be configured")
	}
	return c.RequireSecrets()
}

// RequireSecrets checks that tenant DSNs can be decrypted.
func (c *Config) RequireSecrets() error {
	if c.Secrets.MasterKey == "" {
		return fmt.Errorf("secrets.master_key is required")
	}
	return nil
}

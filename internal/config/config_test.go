package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	viper.Reset()
	t.Setenv("RECORDS_DATABASE_URL", "postgres://registry/registry")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "localhost:8080", cfg.ServerAddr)
	assert.Equal(t, "okta", cfg.Okta.ResourceID)
	assert.Equal(t, []string{"qhr-first-party", "qhr-system"}, cfg.Resolution.ElevatedScopes)
	assert.Equal(t, "OKTA", cfg.Resolution.IdentitySystem)
	assert.Equal(t, "tenantId", cfg.Resolution.TenantParam)
	assert.Equal(t, 10*time.Minute, cfg.Catalog.TTL)
	assert.Equal(t, 30*time.Second, cfg.Tenants.StatusTTL)
	assert.Equal(t, time.Minute, cfg.Tenants.CloseGrace)
	assert.Empty(t, cfg.Resolution.PartialOverrides)
}

func TestLoad_WithEnvironmentVariables(t *testing.T) {
	viper.Reset()
	t.Setenv("RECORDS_DATABASE_URL", "postgres://env/env")
	t.Setenv("RECORDS_SERVER_ADDR", "0.0.0.0:9090")
	t.Setenv("RECORDS_OKTA_ISSUER", "https://acme.okta.example/oauth2/default")
	t.Setenv("RECORDS_OKTA_AUDIENCE", "api://records")
	t.Setenv("RECORDS_RESOLUTION_ELEVATED_SCOPES", "first,second")
	t.Setenv("RECORDS_CATALOG_TTL", "90s")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://env/env", cfg.DatabaseURL)
	assert.Equal(t, "0.0.0.0:9090", cfg.ServerAddr)
	assert.True(t, cfg.Okta.Enabled())
	assert.Equal(t, "api://records", cfg.Okta.Audience)
	assert.Equal(t, []string{"first", "second"}, cfg.Resolution.ElevatedScopes)
	assert.Equal(t, 90*time.Second, cfg.Catalog.TTL)
}

func TestLoad_WithConfigFile(t *testing.T) {
	viper.Reset()
	configPath := filepath.Join(t.TempDir(), "recordsapi.yaml")
	content := `
database_url: "postgres://file/file"
log_format: console
legacy:
  issuer: "https://auth.records.example"
  hmac_secret: "file-secret"
resolution:
  partial_overrides:
    - pattern: "/api/v1/charts/{id}/export"
      method: GET
      partial: false
    - pattern: "/api/v1/search"
      method: POST
      partial: true
`
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0o644))
	viper.SetConfigFile(configPath)
	require.NoError(t, viper.ReadInConfig())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "postgres://file/file", cfg.DatabaseURL)
	assert.Equal(t, "console", cfg.LogFormat)
	assert.True(t, cfg.Legacy.Enabled())
	require.Len(t, cfg.Resolution.PartialOverrides, 2)
	assert.Equal(t, PartialOverride{Pattern: "/api/v1/charts/{id}/export", Method: "GET", Partial: false}, cfg.Resolution.PartialOverrides[0])
	assert.True(t, cfg.Resolution.PartialOverrides[1].Partial)
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	viper.Reset()
	configPath := filepath.Join(t.TempDir(), "recordsapi.yaml")
	require.NoError(t, os.WriteFile(configPath, []byte(`database_url: "postgres://file/file"`), 0o644))
	viper.SetConfigFile(configPath)
	require.NoError(t, viper.ReadInConfig())

	t.Setenv("RECORDS_DATABASE_URL", "postgres://env/env")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "postgres://env/env", cfg.DatabaseURL)
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name    string
		env     map[string]string
		wantErr string
	}{
		{
			name:    "missing database url",
			env:     map[string]string{},
			wantErr: "RECORDS_DATABASE_URL",
		},
		{
			name: "okta without audience",
			env: map[string]string{
				"RECORDS_DATABASE_URL": "postgres://x/x",
				"RECORDS_OKTA_ISSUER":  "https://acme.okta.example",
			},
			wantErr: "okta.audience",
		},
		{
			name: "legacy without secret",
			env: map[string]string{
				"RECORDS_DATABASE_URL":  "postgres://x/x",
				"RECORDS_LEGACY_ISSUER": "https://auth.records.example",
			},
			wantErr: "legacy.hmac_secret",
		},
		{
			name: "short master key",
			env: map[string]string{
				"RECORDS_DATABASE_URL":       "postgres://x/x",
				"RECORDS_SECRETS_MASTER_KEY": "short",
			},
			wantErr: "master_key",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			viper.Reset()
			t.Setenv("RECORDS_DATABASE_URL", "")
			for k, v := range tt.env {
				t.Setenv(k, v)
			}

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_ValidatePartialOverrides(t *testing.T) {
	tests := []struct {
		name     string
		override PartialOverride
		wantErr  string
	}{
		{name: "any method", override: PartialOverride{Pattern: "/api/v1/charts/*"}},
		{name: "wildcard method", override: PartialOverride{Pattern: "/api/v1/charts/*", Method: "*"}},
		{name: "lowercase method", override: PartialOverride{Pattern: "/api/v1/charts", Method: "post"}},
		{name: "relative pattern", override: PartialOverride{Pattern: "api/v1"}, wantErr: "must start with /"},
		{name: "unknown method", override: PartialOverride{Pattern: "/api/v1", Method: "FETCH"}, wantErr: "unsupported method"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{
				DatabaseURL: "postgres://x/x",
				Resolution:  ResolutionConfig{PartialOverrides: []PartialOverride{tt.override}},
			}
			err := cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfig_RequireServing(t *testing.T) {
	cfg := &Config{DatabaseURL: "postgres://x/x"}
	err := cfg.RequireServing()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "issuer")

	cfg.Legacy = LegacyConfig{Issuer: "https://auth.records.example", HMACSecret: "s"}
	err = cfg.RequireServing()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "master_key")

	cfg.Secrets.MasterKey = strings.Repeat("m", 32)
	assert.NoError(t, cfg.RequireServing())
}

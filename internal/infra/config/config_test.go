package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Success(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.NotNil(t, cfg)
}

func TestLoad_InvalidRateLimitRPS(t *testing.T) {
	t.Setenv("RATE_LIMIT_RPS", "0")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "RATE_LIMIT_RPS")
	assert.Contains(t, err.Error(), "greater than 0")
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, 4, cfg.FrameworkEventThreadPoolSize)
	assert.Equal(t, time.Second, cfg.FrameworkModulesReloadPollInterval)
	assert.False(t, cfg.FrameworkModulesAutoReload)
	assert.True(t, cfg.FrameworkModulesAutoStart)
	assert.False(t, cfg.FrameworkSecurityEnabled)
	assert.False(t, cfg.FrameworkIPCEnabled)
	assert.Equal(t, 256, cfg.FrameworkServiceCacheSize)
}

func TestLoad_CustomValues(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("SERVICE_NAME", "custom-host")
	t.Setenv("FRAMEWORK_EVENT_THREAD_POOL_SIZE", "8")
	t.Setenv("FRAMEWORK_MODULES_AUTO_RELOAD", "true")
	t.Setenv("FRAMEWORK_MODULES_AUTO_START", "false")
	t.Setenv("FRAMEWORK_IPC_ENABLED", "true")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "custom-host", cfg.ServiceName)
	assert.Equal(t, 8, cfg.FrameworkEventThreadPoolSize)
	assert.True(t, cfg.FrameworkModulesAutoReload)
	assert.False(t, cfg.FrameworkModulesAutoStart)
	assert.True(t, cfg.FrameworkIPCEnabled)
}

func TestLoad_InvalidProblemBaseURL(t *testing.T) {
	t.Setenv("PROBLEM_BASE_URL", "not-a-url")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PROBLEM_BASE_URL")
}

func TestLoad_ProblemBaseURLMustEndWithSlash(t *testing.T) {
	t.Setenv("PROBLEM_BASE_URL", "https://api.example.com/problems")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "trailing slash")
}

func TestLoad_LogLevelUppercase(t *testing.T) {
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func TestLoad_InvalidPort(t *testing.T) {
	t.Setenv("PORT", "not-a-number")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
}

func TestLoad_InvalidPortRange(t *testing.T) {
	t.Setenv("PORT", "70000")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
}

func TestLoad_InvalidEnv(t *testing.T) {
	t.Setenv("ENV", "bogus")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ENV")
}

func TestLoad_InvalidLogLevel(t *testing.T) {
	t.Setenv("LOG_LEVEL", "bogus")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOG_LEVEL")
}

func TestLoad_InvalidServiceName(t *testing.T) {
	t.Setenv("SERVICE_NAME", "  ")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SERVICE_NAME")
}

func TestConfig_IsDevelopment(t *testing.T) {
	cfg := &Config{Env: "development"}
	assert.True(t, cfg.IsDevelopment())
	assert.False(t, cfg.IsProduction())
}

func TestConfig_IsProduction(t *testing.T) {
	cfg := &Config{Env: "production"}
	assert.True(t, cfg.IsProduction())
	assert.False(t, cfg.IsDevelopment())
}

func TestLoad_InvalidAuditRedactEmail(t *testing.T) {
	t.Setenv("AUDIT_REDACT_EMAIL", "bogus")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUDIT_REDACT_EMAIL")
}

func TestLoad_AuditRedactEmailValues(t *testing.T) {
	for _, mode := range []string{"full", "partial"} {
		t.Run(mode, func(t *testing.T) {
			t.Setenv("AUDIT_REDACT_EMAIL", mode)

			cfg, err := Load()

			require.NoError(t, err)
			assert.Equal(t, mode, cfg.AuditRedactEmail)
		})
	}
}

func TestLoad_ProductionRequiresJWTEnabled(t *testing.T) {
	t.Setenv("ENV", "production")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_ENABLED")
}

func TestLoad_ProductionRequiresJWTSecret(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_ENABLED", "true")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_ProductionWithValidJWT(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("JWT_ENABLED", "true")
	t.Setenv("JWT_SECRET", "a-secret-that-is-at-least-32-bytes-long")

	cfg, err := Load()

	require.NoError(t, err)
	assert.True(t, cfg.JWTEnabled)
}

func TestLoad_DevelopmentAllowsNoJWT(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.False(t, cfg.JWTEnabled)
}

func TestLoad_JWTSecretTooShort(t *testing.T) {
	t.Setenv("JWT_ENABLED", "true")
	t.Setenv("JWT_SECRET", "too-short")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least 32 bytes")
}

func TestLoad_JWTSecretExactly32Bytes(t *testing.T) {
	t.Setenv("JWT_ENABLED", "true")
	t.Setenv("JWT_SECRET", "12345678901234567890123456789012")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Len(t, cfg.JWTSecret, 32)
}

func TestLoad_JWTSecretNormalization(t *testing.T) {
	t.Setenv("JWT_ENABLED", "true")
	t.Setenv("JWT_SECRET", "  12345678901234567890123456789012  ")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "12345678901234567890123456789012", cfg.JWTSecret)
}

func TestConfig_Redacted(t *testing.T) {
	cfg := &Config{JWTSecret: "super-secret"}

	redacted := cfg.Redacted()

	assert.NotContains(t, redacted, "super-secret")
	assert.Contains(t, redacted, "[REDACTED]")
}

func TestLoad_InternalPortDefault(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 8081, cfg.InternalPort)
}

func TestLoad_InternalPortCollision(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("INTERNAL_PORT", "9000")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INTERNAL_PORT")
}

func TestLoad_InternalPortInvalidRange(t *testing.T) {
	t.Setenv("INTERNAL_PORT", "-1")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
}

func TestLoad_InternalBindAddressEmpty(t *testing.T) {
	t.Setenv("INTERNAL_BIND_ADDRESS", "")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "INTERNAL_BIND_ADDRESS")
}

func TestLoad_HTTPTimeouts_Defaults(t *testing.T) {
	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, 15*time.Second, cfg.HTTPReadTimeout)
	assert.Equal(t, 15*time.Second, cfg.HTTPWriteTimeout)
	assert.Equal(t, 60*time.Second, cfg.HTTPIdleTimeout)
}

func TestLoad_ShutdownTimeoutInvalid(t *testing.T) {
	t.Setenv("SHUTDOWN_TIMEOUT", "0s")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "SHUTDOWN_TIMEOUT")
}

func TestLoad_FrameworkPollIntervalInvalid(t *testing.T) {
	t.Setenv("FRAMEWORK_MODULES_RELOAD_POLL_INTERVAL", "0s")

	cfg, err := Load()

	assert.Nil(t, cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "FRAMEWORK_MODULES_RELOAD_POLL_INTERVAL")
}

package app

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("SESSION_SECRET", "s")
	t.Setenv("CSRF_SECRET", "c")

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, AuthBackendPostgres, cfg.AuthBackend)
	assert.Equal(t, "/sign-in", cfg.SignInPath)
	assert.Equal(t, "/unauthorized", cfg.UnauthorizedPath)
	assert.Equal(t, "@every 1h", cfg.PruneSessionsCron)
	assert.False(t, cfg.IsProduction())
}

func TestLoadConfigRequiresSecrets(t *testing.T) {
	t.Setenv("SESSION_SECRET", "")
	t.Setenv("CSRF_SECRET", "")
	_, err := LoadConfig()
	assert.Error(t, err)
}

func TestValidateRESTBackendNeedsURL(t *testing.T) {
	cfg := Config{SessionSecret: "s", CSRFSecret: "c", AuthBackend: AuthBackendREST, SignInPath: "/sign-in", UnauthorizedPath: "/unauthorized"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "AUTH_API_URL")

	cfg.AuthAPIURL = "https://auth.internal/api"
	assert.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadPaths(t *testing.T) {
	cfg := Config{SessionSecret: "s", CSRFSecret: "c", AuthBackend: "ldap", SignInPath: "https://evil.example", UnauthorizedPath: "/unauthorized"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown AUTH_BACKEND "ldap"`)
	assert.Contains(t, err.Error(), "SIGN_IN_PATH")

	cfg = Config{SessionSecret: "s", CSRFSecret: "c", AuthBackend: AuthBackendPostgres, SignInPath: "/x", UnauthorizedPath: "/x"}
	assert.ErrorContains(t, cfg.Validate(), "must differ")
}

func TestNewLoggerFormats(t *testing.T) {
	var buf bytes.Buffer
	newLogger(&buf, &Config{LogFormat: "json", AppEnv: "production"}).Info("hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "hello", entry["msg"])
	assert.Equal(t, "odyssey-console", entry["service"])
	assert.Equal(t, "production", entry["env"])

	buf.Reset()
	newLogger(&buf, &Config{LogFormat: "json", AppEnv: "production"}).Debug("hidden")
	assert.Empty(t, buf.String())
}

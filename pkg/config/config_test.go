package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestFromViperDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, EnvDevelopment, cfg.Env)
	assert.Equal(t, "/api/v1", cfg.APIPrefix)
	assert.Equal(t, 15*time.Minute, cfg.Substitution.FuzzWindow)
	assert.Equal(t, 5, cfg.Substitution.WarningThreshold)
	assert.Equal(t, 3, cfg.Substitution.CautionThreshold)
	assert.Equal(t, 30*time.Second, cfg.Dashboard.CacheTTL)
	assert.False(t, cfg.Redis.Enabled)
}

func TestFromViperOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("SUBSTITUTE_FUZZ_WINDOW", "10m")
	v.Set("WORKLOAD_WARNING_THRESHOLD", 0)
	v.Set("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	v.Set("JWT_EXPIRATION", "not-a-duration")

	cfg := fromViper(v)

	assert.Equal(t, 10*time.Minute, cfg.Substitution.FuzzWindow)
	assert.Equal(t, 5, cfg.Substitution.WarningThreshold)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, 24*time.Hour, cfg.JWT.Expiration)
}

func TestFromViperExportsSigningSecretFallsBackToJWT(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("JWT_SECRET", "jwt-secret")

	cfg := fromViper(v)
	assert.Equal(t, "jwt-secret", cfg.Exports.SigningSecret)
	assert.Equal(t, 5000, cfg.Exports.MaxRows)
	assert.Equal(t, 100000, cfg.Exports.AsyncMaxRows)
	assert.Equal(t, "./exports", cfg.Exports.Dir)
	assert.Equal(t, 24*time.Hour, cfg.Exports.URLTTL)

	v.Set("EXPORTS_SIGNING_SECRET", "export-secret")
	v.Set("EXPORTS_URL_TTL", "2h")
	cfg = fromViper(v)
	assert.Equal(t, "export-secret", cfg.Exports.SigningSecret)
	assert.Equal(t, 2*time.Hour, cfg.Exports.URLTTL)
}

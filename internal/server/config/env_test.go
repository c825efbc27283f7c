package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mapLookup(m map[string]string) LookupFunc {
	return func(key string) (string, bool) {
		v, ok := m[key]
		return v, ok
	}
}

func Test_parseEnv(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	err := parseEnv(cfg, mapLookup(map[string]string{
		"HTTP_ADDR":            ":8001",
		"ALLOWED_ORIGINS":      "http://a.test, http://b.test",
		"DATABASE_HOST":        "rds.local",
		"DATABASE_PASSWORD":    "secret",
		"COGNITO_REGION":       "eu-central-1",
		"COGNITO_USER_POOL_ID": "eu-central-1_x",
		"COGNITO_CLIENT_ID":    "abc",
		"LOG_LEVEL":            "debug",
		"DATABASE_NAME":        "",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":8001", cfg.HTTPAddr)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.AllowedOrigins)
	assert.Equal(t, "rds.local", cfg.DatabaseHost)
	assert.Equal(t, "secret", cfg.DatabasePassword)
	assert.Equal(t, "workout", cfg.DatabaseName, "empty variables are ignored")
	assert.Equal(t, "eu-central-1", cfg.CognitoRegion)
	assert.Equal(t, "eu-central-1_x", cfg.CognitoUserPoolID)
	assert.Equal(t, "abc", cfg.CognitoClientID)
	assert.Equal(t, "debug", cfg.LogLevel)
}

func Test_parseEnv_DatabaseSecretJSON(t *testing.T) {
	cfg := &Config{}
	cfg.LoadDefaults()

	err := parseEnv(cfg, mapLookup(map[string]string{
		"DATABASE_HOST":        "ignored.local",
		"DATABASE_SECRET_JSON": `{"host":"prod.rds","port":5433,"dbname":"workout","username":"admin","password":"s3cr3t","engine":"postgres"}`,
	}))
	require.NoError(t, err)

	assert.Equal(t, "prod.rds", cfg.DatabaseHost)
	assert.Equal(t, "5433", cfg.DatabasePort)
	assert.Equal(t, "admin", cfg.DatabaseUser)
	assert.Equal(t, "s3cr3t", cfg.DatabasePassword)
}

func Test_parseEnv_BadSecretJSON(t *testing.T) {
	cfg := &Config{}
	err := parseEnv(cfg, mapLookup(map[string]string{"DATABASE_SECRET_JSON": "{"}))
	require.ErrorContains(t, err, "DATABASE_SECRET_JSON")
}

package config

import (
	"encoding/json"
	"fmt"

	"github.com/dmitrijs2005/workout/internal/flagx"
)

// LookupFunc has the signature of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// dbSecret is the JSON document Secrets Manager stores for an RDS instance.
type dbSecret struct {
	Host     string      `json:"host"`
	Port     json.Number `json:"port"`
	DBName   string      `json:"dbname"`
	Username string      `json:"username"`
	Password string      `json:"password"`
}

// parseEnv overlays values from environment variables. DATABASE_SECRET_JSON,
// when present, overrides the discrete DATABASE_* connection values.
func parseEnv(config *Config, lookup LookupFunc) error {
	str := func(key string, dst *string) {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}

	str("HTTP_ADDR", &config.HTTPAddr)
	str("LOG_LEVEL", &config.LogLevel)
	if v, ok := lookup("ALLOWED_ORIGINS"); ok && v != "" {
		config.AllowedOrigins = flagx.SplitList(v)
	}

	str("DATABASE_DSN", &config.DatabaseDSN)
	str("DATABASE_HOST", &config.DatabaseHost)
	str("DATABASE_PORT", &config.DatabasePort)
	str("DATABASE_NAME", &config.DatabaseName)
	str("DATABASE_USER", &config.DatabaseUser)
	str("DATABASE_PASSWORD", &config.DatabasePassword)

	if raw, ok := lookup("DATABASE_SECRET_JSON"); ok && raw != "" {
		var s dbSecret
		if err := json.Unmarshal([]byte(raw), &s); err != nil {
			return fmt.Errorf("parse DATABASE_SECRET_JSON: %w", err)
		}
		setString(&config.DatabaseHost, s.Host)
		setString(&config.DatabasePort, s.Port.String())
		setString(&config.DatabaseName, s.DBName)
		setString(&config.DatabaseUser, s.Username)
		setString(&config.DatabasePassword, s.Password)
	}

	str("COGNITO_REGION", &config.CognitoRegion)
	str("COGNITO_USER_POOL_ID", &config.CognitoUserPoolID)
	str("COGNITO_CLIENT_ID", &config.CognitoClientID)
	str("COGNITO_ISSUER", &config.CognitoIssuer)
	str("COGNITO_JWKS_URL", &config.CognitoJWKSURL)

	return nil
}

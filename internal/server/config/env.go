package config

import (
	"os"
	"strings"
)

// parseEnv overlays Config fields from environment variables. Unset variables
// leave the current value untouched.
//
// Recognized variables:
//
//	ADDRESS                        HTTP bind address
//	DATABASE_DSN                   PostgreSQL DSN
//	SPOTIFY_CLIENT_ID              provider application id
//	SPOTIFY_CLIENT_SECRET          provider application secret
//	SPOTIFY_REDIRECT_URI           registered callback URL
//	SPOTIFY_SCOPES                 comma-separated scope list
//	SPOTIFY_TOKEN_ENCRYPTION_KEY   64-hex key literal or passphrase
//	SPOTIFY_TOKEN_ENCRYPTION_SALT  key-derivation salt
//	FRONTEND_URL                   post-login redirect target
//	SESSION_SECRET                 JWT signing secret
//	ENVIRONMENT                    "production" hardens key derivation
func parseEnv(config *Config) {
	setString := func(dst *string, key string) {
		if v, ok := os.LookupEnv(key); ok {
			*dst = v
		}
	}

	setString(&config.EndpointAddr, "ADDRESS")
	setString(&config.DatabaseDSN, "DATABASE_DSN")
	setString(&config.ClientID, "SPOTIFY_CLIENT_ID")
	setString(&config.ClientSecret, "SPOTIFY_CLIENT_SECRET")
	setString(&config.RedirectURI, "SPOTIFY_REDIRECT_URI")
	setString(&config.EncryptionSecret, "SPOTIFY_TOKEN_ENCRYPTION_KEY")
	setString(&config.EncryptionSalt, "SPOTIFY_TOKEN_ENCRYPTION_SALT")
	setString(&config.FrontendURL, "FRONTEND_URL")
	setString(&config.SessionSecret, "SESSION_SECRET")

	if v, ok := os.LookupEnv("SPOTIFY_SCOPES"); ok {
		config.Scopes = splitScopes(v)
	}

	if v, ok := os.LookupEnv("ENVIRONMENT"); ok {
		config.Production = strings.EqualFold(v, "production")
	}
}

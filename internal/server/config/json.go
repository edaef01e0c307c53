package config

import (
	"encoding/json"
	"os"
	"strings"
	"time"

	"github.com/dmitrijs2005/spotivault/internal/flagx"
)

// JsonConfig is the DTO for reading JSON configuration files. SessionTTL is
// carried as a duration string ("24h") and converted on copy.
type JsonConfig struct {
	EndpointAddr     *string `json:"endpoint_addr"`
	DatabaseDSN      *string `json:"database_dsn"`
	ClientID         *string `json:"client_id"`
	ClientSecret     *string `json:"client_secret"`
	RedirectURI      *string `json:"redirect_uri"`
	Scopes           *string `json:"scopes"`
	EncryptionSecret *string `json:"encryption_secret"`
	EncryptionSalt   *string `json:"encryption_salt"`
	FrontendURL      *string `json:"frontend_url"`
	SessionSecret    *string `json:"session_secret"`
	SessionTTL       *string `json:"session_ttl"`
	Production       *bool   `json:"production"`
}

// parseJson loads configuration values from a JSON file into the provided
// Config instance. The file path comes from the -c/-config command-line
// flags; when neither is set, no JSON file is loaded. Absent JSON fields
// leave the current value untouched. An unreadable or invalid file panics:
// a half-applied config file must never start the server.
func parseJson(config *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	file, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	c := &JsonConfig{}
	if err := json.Unmarshal(file, c); err != nil {
		panic(err)
	}

	setIf := func(dst *string, src *string) {
		if src != nil {
			*dst = *src
		}
	}

	setIf(&config.EndpointAddr, c.EndpointAddr)
	setIf(&config.DatabaseDSN, c.DatabaseDSN)
	setIf(&config.ClientID, c.ClientID)
	setIf(&config.ClientSecret, c.ClientSecret)
	setIf(&config.RedirectURI, c.RedirectURI)
	setIf(&config.EncryptionSecret, c.EncryptionSecret)
	setIf(&config.EncryptionSalt, c.EncryptionSalt)
	setIf(&config.FrontendURL, c.FrontendURL)
	setIf(&config.SessionSecret, c.SessionSecret)

	if c.Scopes != nil {
		config.Scopes = splitScopes(*c.Scopes)
	}
	if c.SessionTTL != nil {
		d, err := time.ParseDuration(*c.SessionTTL)
		if err != nil {
			panic(err)
		}
		config.SessionTTL = d
	}
	if c.Production != nil {
		config.Production = *c.Production
	}
}

func splitScopes(raw string) []string {
	var scopes []string
	for _, s := range strings.Split(raw, ",") {
		if s = strings.TrimSpace(s); s != "" {
			scopes = append(scopes, s)
		}
	}
	return scopes
}

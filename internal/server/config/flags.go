package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/spotivault/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-i string   provider client id
//	-s string   provider client secret
//	-r string   registered redirect URI
//	-f string   frontend URL for the post-login redirect
//	-k string   session JWT signing secret
//	-l string   session token lifetime (e.g., "24h")
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-i", "-s", "-r", "-f", "-k", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddr, "a", config.EndpointAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.ClientID, "i", config.ClientID, "provider client id")
	fs.StringVar(&config.ClientSecret, "s", config.ClientSecret, "provider client secret")
	fs.StringVar(&config.RedirectURI, "r", config.RedirectURI, "redirect URI")
	fs.StringVar(&config.FrontendURL, "f", config.FrontendURL, "frontend URL")
	fs.StringVar(&config.SessionSecret, "k", config.SessionSecret, "session signing secret")

	sessionTTL := fs.String("l", config.SessionTTL.String(), "session token lifetime")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	d, err := time.ParseDuration(*sessionTTL)
	if err != nil {
		panic(err)
	}
	config.SessionTTL = d
}

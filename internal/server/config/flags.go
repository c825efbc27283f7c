package config

import (
	"flag"
	"strings"

	"github.com/dmitrijs2005/workout/internal/flagx"
)

// parseFlags overlays values from command-line flags:
//
//	-a string   HTTP listen address (e.g. ":8000")
//	-d string   PostgreSQL DSN
//	-r string   Cognito region
//	-p string   Cognito user pool id
//	-i string   Cognito app client id
//	-o string   comma-separated allowed CORS origins
//	-l string   log level
//
// Only these flags are looked at; anything else in args is ignored.
func parseFlags(config *Config, args []string) error {
	args = flagx.FilterArgs(args, []string{"-a", "-d", "-r", "-p", "-i", "-o", "-l"})

	fs := flag.NewFlagSet("server", flag.ContinueOnError)

	fs.StringVar(&config.HTTPAddr, "a", config.HTTPAddr, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.CognitoRegion, "r", config.CognitoRegion, "Cognito region")
	fs.StringVar(&config.CognitoUserPoolID, "p", config.CognitoUserPoolID, "Cognito user pool id")
	fs.StringVar(&config.CognitoClientID, "i", config.CognitoClientID, "Cognito app client id")
	origins := fs.String("o", strings.Join(config.AllowedOrigins, ","), "allowed CORS origins, comma separated")
	fs.StringVar(&config.LogLevel, "l", config.LogLevel, "log level (debug, info, warn, error)")

	if err := fs.Parse(args); err != nil {
		return err
	}

	config.AllowedOrigins = flagx.SplitList(*origins)
	return nil
}

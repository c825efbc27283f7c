// Package config loads runtime configuration for the workout CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-s string   base URL of the workout API, e.g. http://localhost:8000
//	-t int      per-request timeout (seconds)
//
// # JSON schema
//
// The JSON loader uses timex.Duration for the timeout, so values can be either
// strings like "10s" or integer nanoseconds:
//
//	{
//	  "server_url": "https://api.example.com",
//	  "request_timeout": "10s"
//	}
//
// The bearer token is never configured here; the CLI prompts for it.
package config

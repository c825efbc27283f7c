// Package cli provides the interactive workout command-line client.
//
// It wires configuration and the HTTP API client into a small REPL. The user
// pastes an ID token obtained from the identity provider (read without echo),
// then lists, posts and deletes their messages.
//
// The REPL is started via App.Run(ctx), which blocks until the user exits.
package cli

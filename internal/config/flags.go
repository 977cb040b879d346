package config

import (
	"flag"
	"os"
)

// parses CLI flags for the terminal client, falling back to DOCSUITE_* variables
func ParseTUIFlags(args []string) Flags {
	fs := flag.NewFlagSet("tui", flag.ExitOnError)
	server := fs.String("server", orDefault(os.Getenv("DOCSUITE_SERVER"), "ws://localhost:8080"), "server base URL")
	document := fs.String("document", os.Getenv("DOCSUITE_DOCUMENT"), "document id to join")
	token := fs.String("token", os.Getenv("DOCSUITE_TOKEN"), "JWT issued by the identity provider")
	fs.Parse(args) //nolint:errcheck,gosec // G104: ExitOnError flag set handles errors

	return Flags{ServerURL: *server, DocumentID: *document, Token: *token}
}

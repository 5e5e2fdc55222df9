package config

import (
	"flag"
	"os"

	"github.com/printbatch/printbatch/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   HTTP bind address (e.g., ":8080")
//	-d string   PostgreSQL DSN
//	-r string   GitHub storage repository ("owner/name")
//	-m string   SMTP host
//	-p int      SMTP port
//	-f string   notification sender address
//	-o string   notification recipient (operator) address
//
// Notes:
//   - The function first filters os.Args to only the flags it recognizes using
//     flagx.FilterArgs, avoiding collisions with other components.
//   - Secrets (token, SMTP credentials) are never accepted as flags; see
//     parseEnv.
func parseFlags(config *Config) {
	// Filter args to include only the flags handled here.
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-d", "-r", "-m", "-p", "-f", "-o"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrHTTP, "a", config.EndpointAddrHTTP, "address and port to run server")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.GitHubRepository, "r", config.GitHubRepository, "GitHub storage repository (owner/name)")
	fs.StringVar(&config.SMTPHost, "m", config.SMTPHost, "SMTP host")
	fs.IntVar(&config.SMTPPort, "p", config.SMTPPort, "SMTP port")
	fs.StringVar(&config.SMTPFrom, "f", config.SMTPFrom, "notification sender address")
	fs.StringVar(&config.SMTPTo, "o", config.SMTPTo, "notification recipient address")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}

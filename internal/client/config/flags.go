package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/srpgate/internal/flagx"
)

// parseFlags overrides cfg with command-line flags:
//
//	-a string   server URL (HTTP) or host:port (gRPC)
//	-t string   transport, http or grpc
//	-r string   role required to hold a session
//	-l string   log level
//
// os.Args is filtered first so flags owned by other components are ignored.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-t", "-r", "-l"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)
	fs.StringVar(&cfg.ServerURL, "a", cfg.ServerURL, "server URL or host:port")
	fs.StringVar(&cfg.Transport, "t", cfg.Transport, "transport: http or grpc")
	fs.StringVar(&cfg.RequiredRole, "r", cfg.RequiredRole, "role required to hold a session")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level: debug, info, warn, error")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}

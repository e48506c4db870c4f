// Command fithubctl signs in to a FitHub server from the terminal and keeps
// the token between runs.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// Build information, set via ldflags.
var (
	Version = "dev"
	Commit  = "unknown"
)

func main() {
	if err := App().Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// App creates the CLI application.
func App() *cli.App {
	return &cli.App{
		Name:    "fithubctl",
		Usage:   "FitHub account command-line tool",
		Version: fmt.Sprintf("%s (commit: %s)", Version, Commit),
		Flags:   globalFlags(),
		Commands: []*cli.Command{
			registerCommand(),
			loginCommand(),
			logoutCommand(),
			whoamiCommand(),
			sessionsCommand(),
		},
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "server",
			Aliases: []string{"s"},
			Usage:   "FitHub server address (e.g., localhost:8080)",
			EnvVars: []string{"FITHUB_SERVER"},
			Value:   "localhost:8080",
		},
		&cli.StringFlag{
			Name:    "token-file",
			Usage:   "Where the session token is kept (default: user config dir)",
			EnvVars: []string{"FITHUB_TOKEN_FILE"},
		},
		&cli.StringFlag{
			Name:    "output",
			Aliases: []string{"o"},
			Usage:   "Output format: table, json",
			Value:   "table",
		},
		&cli.DurationFlag{
			Name:  "timeout",
			Usage: "Request timeout",
			Value: defaultRequestTimeout,
		},
	}
}

package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

var version = "dev"

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "invoicectl:", err)
		os.Exit(1)
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:    "invoicectl",
		Usage:   "create, edit and render invoices through the opsdesk API",
		Version: version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "api-url",
				Usage:   "base URL of the opsdesk API",
				EnvVars: []string{"OPSDESK_API_URL"},
			},
			&cli.StringFlag{
				Name:    "actor",
				Usage:   "actor id sent with every request",
				EnvVars: []string{"OPSDESK_ACTOR"},
			},
			&cli.DurationFlag{
				Name:  "timeout",
				Usage: "request timeout",
			},
		},
		Commands: []*cli.Command{
			createCommand(),
			showCommand(),
			applyCommand(),
			payCommand(),
			renderCommand(),
		},
	}
}

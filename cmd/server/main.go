package main

import (
	"context"
	"log"
	"os"

	"github.com/urfave/cli/v3"
)

func main() {
	app := &cli.Command{
		Name:  "knowledgehub",
		Usage: "Knowledge Hub scoring and ranking service",
		Commands: []*cli.Command{
			serveCommand(),
			migrateCommand(),
			recomputeTrendingCommand(),
			issueTokenCommand(),
		},
	}

	if err := app.Run(context.Background(), os.Args); err != nil {
		log.Printf("Error: %v", err)
		os.Exit(1)
	}
}

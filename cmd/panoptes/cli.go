package main

import (
	"context"
	"os"

	"github.com/adamkirk/panoptes/internal/config"
	"github.com/urfave/cli/v3"
)

func NewCommand() *cli.Command {
	return &cli.Command{
		Name:    "panoptes",
		Usage:   "Panoptes - GitHub webhook ingestion service",
		Version: version,
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "Run the Panoptes server",
				Flags: []cli.Flag{configFlag()},
				Action: func(ctx context.Context, c *cli.Command) error {
					cfg, err := config.Parse(config.Flags{Config: c.String("config")})
					if err != nil {
						return err
					}
					return serve(ctx, cfg)
				},
			},
			{
				Name:  "probe",
				Usage: "Call the startup probe of the configured target and fail unless it answers 204",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "runner-config",
						Aliases: []string{"r"},
						Usage:   "Path to the e2e runner config file",
					},
					&cli.StringFlag{
						Name:  "path",
						Usage: "Probe path, relative to the api project base URL",
						Value: startupProbePath,
					},
				},
				Action: func(ctx context.Context, c *cli.Command) error {
					return runProbe(ctx, c.String("runner-config"), c.String("path"), os.Stdout)
				},
			},
			{
				Name:  "migrate",
				Usage: "Postgres schema migrations",
				Flags: []cli.Flag{configFlag()},
				Commands: []*cli.Command{
					{
						Name:  "up",
						Usage: "Apply pending migrations",
						Flags: []cli.Flag{stepsFlag()},
						Action: func(ctx context.Context, c *cli.Command) error {
							return withMigrator(ctx, c, func(m migrationRunner) error {
								return migrateUp(ctx, m, int(c.Int("steps")), os.Stdout)
							})
						},
					},
					{
						Name:  "down",
						Usage: "Roll back applied migrations",
						Flags: []cli.Flag{stepsFlag()},
						Action: func(ctx context.Context, c *cli.Command) error {
							return withMigrator(ctx, c, func(m migrationRunner) error {
								return migrateDown(ctx, m, int(c.Int("steps")), os.Stdout)
							})
						},
					},
					{
						Name:  "version",
						Usage: "Print the applied schema version",
						Action: func(ctx context.Context, c *cli.Command) error {
							return withMigrator(ctx, c, func(m migrationRunner) error {
								return printVersion(ctx, m, os.Stdout)
							})
						},
					},
				},
			},
		},
	}
}

func configFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "config",
		Aliases: []string{"c"},
		Usage:   "Path to config file",
	}
}

func stepsFlag() cli.Flag {
	return &cli.IntFlag{
		Name:    "steps",
		Aliases: []string{"n"},
		Usage:   "Number of migrations, 0 for all",
	}
}

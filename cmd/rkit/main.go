package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"

	"github.com/rvltools/rkit/internal/config"
	"github.com/rvltools/rkit/internal/debug"
	"github.com/rvltools/rkit/internal/version"
)

func main() {
	app := &cli.App{
		Name:                   "rkit",
		Usage:                  "Read, edit and rebuild GameCube/Wii binary assets",
		Version:                version.Version,
		UseShortOptionHandling: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   ".rkit.kdl",
				Usage:   "path to the KDL configuration file",
			},
			&cli.BoolFlag{
				Name:  "verbose",
				Usage: "log every transaction message",
			},
			&cli.BoolFlag{
				Name:  "debug",
				Usage: "write diagnostic output to a temp log file",
			},
		},
		Before: func(c *cli.Context) error {
			if c.Bool("debug") {
				path, err := debug.InitLogFile()
				if err != nil {
					return err
				}
				fmt.Fprintf(os.Stderr, "debug log: %s\n", path)
			}
			return nil
		},
		After: func(*cli.Context) error {
			debug.Close()
			return nil
		},
		Commands: []*cli.Command{
			importCommand(),
			checkCommand(),
			watchCommand(),
			infoCommand(),
		},
		// Bare `rkit <from> <to> [check]` rebuilds a file through its
		// codec.
		Action: func(c *cli.Context) error {
			args := c.Args()
			if args.Len() < 2 {
				cli.ShowAppHelpAndExit(c, 1)
			}
			verify := args.Len() > 2 && args.Get(2) == "check"
			cfg, err := loadConfig(c)
			if err != nil {
				return err
			}
			return rebuild(cfg, c.Bool("verbose"), args.Get(0), args.Get(1), verify)
		},
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "rkit: %v\n", err)
		os.Exit(1)
	}
}

func loadConfig(c *cli.Context) (*config.Config, error) {
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return nil, err
	}
	if c.Bool("verbose") {
		cfg.Verbose = true
	}
	return cfg, nil
}

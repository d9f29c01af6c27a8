// submodule cmd contains command definitions
package main

import (
	"context"
	"fmt"

	"github.com/desertthunder/copyurl/internal/plugin"
	"github.com/desertthunder/copyurl/internal/shared"
	"github.com/urfave/cli/v3"
)

// newApp builds the root command around r.
func newApp(r *Runner) *cli.Command {
	return &cli.Command{
		Name:     "copyurl",
		Usage:    "Copy the Spotify link of a local track or album",
		Version:  plugin.About().Version(),
		Flags:    globalFlags(),
		Before:   r.Before,
		Commands: r.register(),
	}
}

func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
		},
		&cli.StringFlag{
			Name:  "log-level",
			Usage: "Log level (debug, info, warn, error)",
		},
		&cli.StringFlag{
			Name:  "storage",
			Usage: "Directory holding the token and developer credential files",
		},
	}
}

// Before loads the configuration and applies the global flags.
func (r *Runner) Before(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	path := cmd.String("config")
	if path == "" {
		path = r.configPath
	}
	if path != "" {
		config, err := shared.LoadConfig(path)
		if err != nil {
			return ctx, err
		}
		r.config = config
		r.configPath = path
	}

	if dir := cmd.String("storage"); dir != "" {
		r.config.Storage.Dir = dir
	}
	if err := r.config.ResolveStorageDir(); err != nil {
		return ctx, err
	}

	level := r.config.Log.Level
	if cmd.IsSet("log-level") {
		level = cmd.String("log-level")
	}
	shared.SetLogLevel(r.logger, level)

	r.logger.Debug("configuration loaded", "path", r.configPath, "storage", r.config.Storage.Dir)
	return ctx, nil
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		copyCommand, searchCommand, authCommand, configCommand, infoCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// copyCommand runs the plugin against files on disk.
func copyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "copy",
		Usage:     "Copy the Spotify URL for the given files (one file: track, several: album)",
		ArgsUsage: "FILE...",
		Action:    r.Copy,
	}
}

// searchCommand runs the same pipeline with tags given as flags.
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search Spotify for a track or album and copy its URL",
		Commands: []*cli.Command{
			{
				Name:  "track",
				Usage: "Search for a track by title and artist",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "title",
						Aliases:  []string{"t"},
						Usage:    "Track title",
						Required: true,
					},
					artistFlag(),
				},
				Action: r.SearchTrack,
			},
			{
				Name:  "album",
				Usage: "Search for an album by name and artist",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "album",
						Usage:    "Album name",
						Required: true,
					},
					artistFlag(),
				},
				Action: r.SearchAlbum,
			},
		},
	}
}

// authCommand handles authentication operations
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify credentials",
		Commands: []*cli.Command{
			{
				Name:   "login",
				Usage:  "Sign in through the browser (authorization code with PKCE)",
				Action: r.AuthLogin,
			},
			{
				Name:  "developer",
				Usage: "Save and verify the client id and secret of a Spotify developer app",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "client-id",
						Usage: "Developer app client ID (prompted when omitted)",
					},
					&cli.StringFlag{
						Name:  "client-secret",
						Usage: "Developer app client secret (prompted when omitted)",
					},
				},
				Action: r.AuthDeveloper,
			},
			{
				Name:  "status",
				Usage: "Show which credential files exist and which would be used",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
				},
				Action: r.AuthStatus,
			},
			{
				Name:   "reset",
				Usage:  "Delete the saved token and developer credential",
				Action: r.AuthReset,
			},
		},
	}
}

// configCommand handles configuration file operations.
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Configuration commands",
		Commands: []*cli.Command{
			{
				Name:  "init",
				Usage: "Write the example configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "path",
						Aliases: []string{"p"},
						Usage:   "Where to write the file",
						Value:   "config.toml",
					},
				},
				Action: r.ConfigInit,
			},
		},
	}
}

// infoCommand prints the plugin metadata.
func infoCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "info",
		Usage: "Show plugin metadata",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Info,
	}
}

func artistFlag() *cli.StringFlag {
	return &cli.StringFlag{
		Name:     "artist",
		Aliases:  []string{"a"},
		Usage:    "Album artist",
		Required: true,
	}
}

func requireArgs(cmd *cli.Command, what string) ([]string, error) {
	args := cmd.Args().Slice()
	if len(args) == 0 {
		return nil, fmt.Errorf("%w: at least one %s is required", shared.ErrInvalidArgument, what)
	}
	return args, nil
}

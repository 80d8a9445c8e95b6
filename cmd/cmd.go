// submodule cmd contains command definitions
package main

import (
	"github.com/desertthunder/qcat/internal/formatter"
	"github.com/urfave/cli/v3"
)

func qualityFlag() cli.Flag {
	return &cli.StringFlag{
		Name:    "quality",
		Aliases: []string{"q"},
		Usage:   "Stream quality: mp3, cd, hires96, hires192 (or 5, 6, 7, 27)",
		Value:   "cd",
	}
}

func explicitFlag() cli.Flag {
	return &cli.BoolFlag{
		Name:  "explicit",
		Usage: "Include releases and tracks with a parental warning",
		Value: true,
	}
}

func fallbackFlag() cli.Flag {
	return &cli.StringSliceFlag{
		Name:  "fallback",
		Usage: "Regions tried in order when a stream is unavailable",
	}
}

func pageFlags(limit int) []cli.Flag {
	return []cli.Flag{
		&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Maximum number of items to return", Value: limit},
		&cli.IntFlag{Name: "offset", Usage: "Number of items to skip"},
	}
}

// searchCommand handles free text and permalink searches
func searchCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "search",
		Aliases:   []string{"s"},
		Usage:     "Search albums, tracks and artists, or classify a pasted permalink",
		ArgsUsage: "<query|url>",
		Arguments: []cli.Argument{&cli.StringArg{Name: "query"}},
		Flags:     append(pageFlags(10), explicitFlag()),
		Action:    r.Search,
	}
}

// artistCommand handles artist profile and release listings
func artistCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "artist",
		Usage:     "Show an artist profile and discography",
		ArgsUsage: "<artist-id>",
		Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
		Action:    r.Artist,
		Commands: []*cli.Command{
			{
				Name:      "releases",
				Usage:     "List one page of an artist's releases",
				ArgsUsage: "<artist-id>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: append(pageFlags(10),
					&cli.StringFlag{
						Name:    "type",
						Aliases: []string{"t"},
						Usage:   "Release type: album, live, compilation, epSingle",
						Value:   "album",
					},
					&cli.IntFlag{Name: "track-size", Usage: "Tracks embedded per release", Value: 1000},
					explicitFlag(),
				),
				Action: r.Releases,
			},
			{
				Name:      "discography",
				Usage:     "Walk every page of an artist's releases",
				ArgsUsage: "<artist-id>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "type",
						Aliases: []string{"t"},
						Usage:   "Release types to walk (default: all)",
					},
					&cli.IntFlag{Name: "page-size", Usage: "Releases per request", Value: 50},
					&cli.IntFlag{Name: "max-pages", Usage: "Upper bound of pages per type (0: unbounded)"},
				},
				Action: r.Discography,
			},
		},
	}
}

// albumCommand handles album lookups, exports and bulk stream resolution
func albumCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "album",
		Usage:     "Show an album and its tracks",
		ArgsUsage: "<album-id>",
		Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "export",
				Aliases: []string{"e"},
				Usage:   "Write the album to disk: " + formatter.FormatJSON + ", " + formatter.FormatCSV + ", " + formatter.FormatMarkdown + ", " + formatter.FormatText,
			},
			&cli.StringFlag{Name: "output", Aliases: []string{"o"}, Usage: "Export directory", Value: "."},
			&cli.BoolFlag{Name: "cover", Usage: "Download the full resolution cover with markdown exports"},
		},
		Action: r.Album,
		Commands: []*cli.Command{
			{
				Name:      "resolve",
				Usage:     "Resolve a stream URL for every track",
				ArgsUsage: "<album-id>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					qualityFlag(),
					fallbackFlag(),
					&cli.IntFlag{Name: "workers", Aliases: []string{"w"}, Usage: "Concurrent resolutions (default from config)"},
					&cli.FloatFlag{Name: "rate", Usage: "Requests per second (default from config)"},
				},
				Action: r.ResolveAlbum,
			},
		},
	}
}

// streamCommand resolves a single track's file URL
func streamCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "stream",
		Usage:     "Resolve a signed file URL for a track",
		ArgsUsage: "<track-id>",
		Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
		Flags: []cli.Flag{
			qualityFlag(),
			&cli.BoolFlag{Name: "open", Usage: "Open the URL with the system's default handler"},
		},
		Action: r.Stream,
	}
}

// apiCommand handles direct upstream calls
func apiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "api",
		Usage: "Direct calls to the upstream catalog API",
		Commands: []*cli.Command{
			{
				Name:      "get",
				Usage:     "GET an upstream endpoint (e.g. album/get) and print the raw response",
				ArgsUsage: "<endpoint>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "endpoint"}},
				Flags: []cli.Flag{
					&cli.StringSliceFlag{
						Name:    "param",
						Aliases: []string{"p"},
						Usage:   "Query parameter as key=value",
					},
				},
				Action: r.APIGet,
			},
		},
	}
}

// setupCommand handles configuration and database setup
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write an example configuration file",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
			},
			{
				Name:  "token",
				Usage: "Store a credential captured from the browser (DevTools > Copy as cURL) under --region",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "curl", Usage: "cURL command of any authenticated catalog request"},
					&cli.StringFlag{Name: "curl-file", Usage: "Path to .sh file containing the cURL command"},
				},
				Action: r.SetupToken,
			},
			{
				Name:   "check",
				Usage:  "Validate the configuration",
				Action: r.SetupCheck,
			},
		},
	}
}

// historyCommand handles the local lookup history
func historyCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "history",
		Usage: "Recent lookups",
		Commands: []*cli.Command{
			{
				Name:  "list",
				Usage: "List recent lookups, newest first",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "operation", Usage: "Only show this operation (search, album, ...)"},
					&cli.IntFlag{Name: "limit", Aliases: []string{"l"}, Usage: "Maximum number of lookups", Value: 20},
				},
				Action: r.HistoryList,
			},
			{
				Name:   "clear",
				Usage:  "Remove all recorded lookups",
				Action: r.HistoryClear,
			},
		},
	}
}

// cacheCommand handles the local album cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Manage the local album cache",
		Commands: []*cli.Command{
			{
				Name:   "purge",
				Usage:  "Remove entries older than database.cache_ttl",
				Action: r.CachePurge,
			},
			{
				Name:   "clear",
				Usage:  "Remove every cached album",
				Action: r.CacheClear,
			},
		},
	}
}

// serveCommand exposes the catalog over HTTP
func serveCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "serve",
		Usage: "Serve the catalog HTTP API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "host", Usage: "Listen host (default from config)"},
			&cli.IntFlag{Name: "port", Usage: "Listen port (default from config)"},
		},
		Action: r.Serve,
	}
}

// tuiCommand returns the top-level TUI command for interactive browsing.
func tuiCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "tui",
		Aliases: []string{"interactive", "ui"},
		Usage:   "Launch the interactive catalog browser",
		Flags:   append(pageFlags(10), qualityFlag(), explicitFlag(), fallbackFlag()),
		Action:  r.TUI,
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		searchCommand, artistCommand, albumCommand, streamCommand, apiCommand,
		setupCommand, historyCommand, cacheCommand, serveCommand, tuiCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// globalFlags are read by every subcommand.
func globalFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "config",
			Aliases: []string{"c"},
			Usage:   "Path to configuration file",
			Value:   "config.toml",
			Sources: cli.EnvVars("QCAT_CONFIG"),
		},
		&cli.StringFlag{
			Name:    "region",
			Aliases: []string{"r"},
			Usage:   "Region hint (ISO 3166-1 alpha-2) selecting the credential",
			Sources: cli.EnvVars("QCAT_REGION"),
		},
		&cli.BoolFlag{Name: "json", Usage: "Output raw JSON"},
		&cli.BoolFlag{Name: "pretty", Usage: "Pretty-print JSON output"},
		&cli.StringFlag{Name: "log-level", Usage: "Override log.level from the configuration"},
	}
}

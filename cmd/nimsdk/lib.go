package main

import (
	"fmt"

	"github.com/ruteri/serverless-sdk/cmd/flags"
	"github.com/ruteri/serverless-sdk/libfetch"
	"github.com/ruteri/serverless-sdk/sdk"
	"github.com/urfave/cli/v2"
)

var libCommand = &cli.Command{
	Name:  "lib",
	Usage: "manage provider libraries",
	Subcommands: []*cli.Command{
		{
			Name:      "ensure",
			Usage:     "download and install a provider library",
			ArgsUsage: "<name>",
			Flags: []cli.Flag{
				flags.LibrarySourceFlag,
				&cli.StringFlag{Name: "via", Value: "http", Usage: "download with 'http' or an external 'command'"},
				&cli.StringFlag{Name: "command", Value: "curl", Usage: "program used with --via command"},
				&cli.Int64Flag{Name: "concurrency", Value: 1, Usage: "concurrent downloads allowed in this process"},
			},
			Action: func(cCtx *cli.Context) error {
				if err := requireArgs(cCtx, 1, "<name>"); err != nil {
					return err
				}

				var fetcher libfetch.Fetcher
				switch via := cCtx.String("via"); via {
				case "http":
					fetcher = libfetch.NewHTTPFetcher(nil)
				case "command":
					// Programs other than curl are called as <command> <url> <dst>.
					cmd, args := cCtx.String("command"), []string{libfetch.PlaceholderURL, libfetch.PlaceholderDst}
					if cmd == "curl" {
						cmd, args = "", nil
					}
					fetcher = libfetch.NewCommandFetcher(cmd, args, nil)
				default:
					return fmt.Errorf("unknown --via %q, use http or command", via)
				}
				fetcher = libfetch.NewSemaphoreFetcher(fetcher, cCtx.Int64("concurrency"))

				s, _, err := openSDK(cCtx, func(cfg *sdk.Config) { cfg.Fetcher = fetcher })
				if err != nil {
					return err
				}

				path, err := s.EnsureLibrary(cCtx.Context, cCtx.Args().First(), cCtx.String(flags.LibrarySourceFlag.Name))
				if err != nil {
					return err
				}
				fmt.Fprintln(cCtx.App.Writer, path)
				return nil
			},
		},
	},
}

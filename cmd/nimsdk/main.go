package main

import (
	"encoding/json"
	"fmt"
	"log"
	"log/slog"
	"os"
	"sort"

	"github.com/ruteri/serverless-sdk/cmd/flags"
	"github.com/ruteri/serverless-sdk/common"
	"github.com/ruteri/serverless-sdk/provider"
	"github.com/ruteri/serverless-sdk/sdk"
	"github.com/urfave/cli/v2"
)

const usage = "access the storage buckets and key-value store of a namespace"

func newApp() *cli.App {
	return &cli.App{
		Name:    "nimsdk",
		Usage:   usage,
		Version: common.Version,
		Flags:   append(append([]cli.Flag{}, flags.LogFlags...), flags.SDKFlags...),
		Commands: []*cli.Command{
			providersCommand,
			storageCommand,
			kvCommand,
			libCommand,
			serveCommand,
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// openSDK builds an SDK from the global flags. configure, when given, can
// adjust the configuration first.
func openSDK(cCtx *cli.Context, configure func(*sdk.Config)) (*sdk.SDK, *slog.Logger, error) {
	logger := flags.SetupLogger(cCtx)

	cfg, err := flags.ConfigureSDK(cCtx, logger)
	if err != nil {
		logger.Error("Failed to configure SDK", "err", err)
		return nil, nil, err
	}
	if configure != nil {
		configure(&cfg)
	}
	return sdk.New(cfg), logger, nil
}

func printJSON(cCtx *cli.Context, v any) error {
	enc := json.NewEncoder(cCtx.App.Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func requireArgs(cCtx *cli.Context, n int, usage string) error {
	if cCtx.Args().Len() < n {
		return fmt.Errorf("usage: %s %s", cCtx.Command.HelpName, usage)
	}
	return nil
}

var providersCommand = &cli.Command{
	Name:  "providers",
	Usage: "resolve storage providers",
	Subcommands: []*cli.Command{
		{
			Name:      "resolve",
			Usage:     "load the provider registered under an identifier",
			ArgsUsage: "<identifier>",
			Action: func(cCtx *cli.Context) error {
				if err := requireArgs(cCtx, 1, "<identifier>"); err != nil {
					return err
				}
				s, _, err := openSDK(cCtx, nil)
				if err != nil {
					return err
				}

				p, err := s.Resolve(cCtx.Args().First())
				if err != nil {
					return err
				}
				fmt.Fprintln(cCtx.App.Writer, p.Identifier())
				return nil
			},
		},
		{
			Name:  "list",
			Usage: "try every known provider and report which ones load",
			Action: func(cCtx *cli.Context) error {
				s, _, err := openSDK(cCtx, nil)
				if err != nil {
					return err
				}

				ids := make([]string, 0, len(provider.DefaultLibraries))
				for id := range provider.DefaultLibraries {
					ids = append(ids, id)
				}
				sort.Strings(ids)

				type status struct {
					Provider string `json:"provider"`
					Library  string `json:"library"`
					Error    string `json:"error,omitempty"`
				}
				out := make([]status, 0, len(ids))
				for _, id := range ids {
					st := status{Provider: id, Library: provider.DefaultLibraries[id]}
					if _, err := s.Resolve(id); err != nil {
						st.Error = err.Error()
					}
					out = append(out, st)
				}
				return printJSON(cCtx, out)
			},
		},
	},
}

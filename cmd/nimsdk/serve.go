package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/ruteri/serverless-sdk/cmd/flags"
	"github.com/ruteri/serverless-sdk/httpserver"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:  "serve",
	Usage: "serve health, metrics and read-only SDK inspection over HTTP",
	Flags: append([]cli.Flag{
		&cli.StringFlag{
			Name:  "listen-addr",
			Value: "127.0.0.1:8080",
			Usage: "address to listen on for API",
		},
	}, flags.ServerFlags...),
	Action: func(cCtx *cli.Context) error {
		s, logger, err := openSDK(cCtx, nil)
		if err != nil {
			return err
		}
		defer s.Close()

		cfg := flags.ConfigureServer(cCtx, logger, cCtx.String("listen-addr"))
		server, err := httpserver.New(cfg, httpserver.NewHandler(s, logger))
		if err != nil {
			logger.Error("Failed to create server", "err", err)
			return err
		}
		server.RunInBackground()

		exit := make(chan os.Signal, 1)
		signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

		logger.Info("Server is running, press Ctrl+C to stop")
		<-exit
		logger.Info("Shutdown signal received")

		server.Shutdown()
		logger.Info("Server shutdown complete")
		return nil
	},
}

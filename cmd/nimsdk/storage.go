package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ruteri/serverless-sdk/interfaces"
	"github.com/urfave/cli/v2"
)

var webFlag = &cli.BoolFlag{
	Name:  "web",
	Usage: "use the web bucket instead of the data bucket",
}

var prefixFlag = &cli.StringFlag{
	Name:  "prefix",
	Usage: "only objects whose name starts with this prefix",
}

func withBucket(cCtx *cli.Context, fn func(ctx context.Context, client interfaces.StorageClient) error) error {
	s, logger, err := openSDK(cCtx, nil)
	if err != nil {
		return err
	}

	client, err := s.StorageClient(cCtx.Context, cCtx.Bool(webFlag.Name))
	if err != nil {
		logger.Error("Failed to open bucket", "err", err)
		return err
	}
	defer client.Close()
	return fn(cCtx.Context, client)
}

var storageCommand = &cli.Command{
	Name:  "storage",
	Usage: "operate on the web or data bucket",
	Flags: []cli.Flag{webFlag},
	Subcommands: []*cli.Command{
		{
			Name:  "url",
			Usage: "print the bucket name and URL",
			Action: func(cCtx *cli.Context) error {
				return withBucket(cCtx, func(ctx context.Context, client interfaces.StorageClient) error {
					return printJSON(cCtx, map[string]string{
						"bucket": client.BucketName(),
						"url":    client.URL(),
					})
				})
			},
		},
		{
			Name:  "ls",
			Usage: "list objects",
			Flags: []cli.Flag{prefixFlag},
			Action: func(cCtx *cli.Context) error {
				return withBucket(cCtx, func(ctx context.Context, client interfaces.StorageClient) error {
					files, err := client.Files(ctx, &interfaces.GetFilesOptions{Prefix: cCtx.String(prefixFlag.Name)})
					if err != nil {
						return err
					}
					for _, f := range files {
						fmt.Fprintln(cCtx.App.Writer, f.Name())
					}
					return nil
				})
			},
		},
		{
			Name:      "stat",
			Usage:     "print object metadata",
			ArgsUsage: "<name>",
			Action: func(cCtx *cli.Context) error {
				if err := requireArgs(cCtx, 1, "<name>"); err != nil {
					return err
				}
				return withBucket(cCtx, func(ctx context.Context, client interfaces.StorageClient) error {
					md, err := client.File(cCtx.Args().First()).GetMetadata(ctx)
					if err != nil {
						return err
					}
					return printJSON(cCtx, md)
				})
			},
		},
		{
			Name:      "get",
			Usage:     "download an object to stdout or a file",
			ArgsUsage: "<name>",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "dest", Usage: "local file to write to"},
			},
			Action: func(cCtx *cli.Context) error {
				if err := requireArgs(cCtx, 1, "<name>"); err != nil {
					return err
				}
				return withBucket(cCtx, func(ctx context.Context, client interfaces.StorageClient) error {
					data, err := client.File(cCtx.Args().First()).Download(ctx, &interfaces.DownloadOptions{
						Destination: cCtx.String("dest"),
					})
					if err != nil {
						return err
					}
					_, err = cCtx.App.Writer.Write(data)
					return err
				})
			},
		},
		{
			Name:      "put",
			Usage:     "upload a local file",
			ArgsUsage: "<path>",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "dest", Usage: "object name, defaults to the path"},
				&cli.BoolFlag{Name: "gzip", Usage: "compress the content"},
				&cli.StringFlag{Name: "content-type", Usage: "content type of the object"},
				&cli.StringFlag{Name: "cache-control", Usage: "cache control of the object"},
			},
			Action: func(cCtx *cli.Context) error {
				if err := requireArgs(cCtx, 1, "<path>"); err != nil {
					return err
				}
				opts := &interfaces.UploadOptions{
					Destination: cCtx.String("dest"),
					Gzip:        cCtx.Bool("gzip"),
				}
				if ct, cc := cCtx.String("content-type"), cCtx.String("cache-control"); ct != "" || cc != "" {
					opts.Metadata = &interfaces.SettableFileMetadata{ContentType: ct, CacheControl: cc}
				}
				return withBucket(cCtx, func(ctx context.Context, client interfaces.StorageClient) error {
					return client.Upload(ctx, cCtx.Args().First(), opts)
				})
			},
		},
		{
			Name:      "rm",
			Usage:     "delete objects by name, or every object under --prefix",
			ArgsUsage: "[name...]",
			Flags:     []cli.Flag{prefixFlag},
			Action: func(cCtx *cli.Context) error {
				return withBucket(cCtx, func(ctx context.Context, client interfaces.StorageClient) error {
					if cCtx.Args().Len() == 0 {
						deleted, err := client.DeleteFiles(ctx, &interfaces.DeleteFilesOptions{
							Prefix: cCtx.String(prefixFlag.Name),
							Force:  true,
						})
						for _, name := range deleted {
							fmt.Fprintln(cCtx.App.Writer, name)
						}
						return err
					}

					var errs []error
					for _, name := range cCtx.Args().Slice() {
						if err := client.File(name).Delete(ctx); err != nil {
							errs = append(errs, err)
							continue
						}
						fmt.Fprintln(cCtx.App.Writer, name)
					}
					return interfaces.NewMultiError(errs)
				})
			},
		},
		{
			Name:      "sign",
			Usage:     "print a signed URL for an object",
			ArgsUsage: "<name>",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "action", Value: string(interfaces.SignedURLRead), Usage: "read, write or delete"},
				&cli.StringFlag{Name: "signing-version", Value: string(interfaces.SignedURLV4), Usage: "v2 or v4"},
				&cli.DurationFlag{Name: "expires", Value: 15 * time.Minute, Usage: "validity of the URL"},
				&cli.StringFlag{Name: "content-type", Usage: "content type a write must use"},
			},
			Action: func(cCtx *cli.Context) error {
				if err := requireArgs(cCtx, 1, "<name>"); err != nil {
					return err
				}
				if cCtx.Duration("expires") <= 0 {
					return errors.New("--expires must be positive")
				}
				return withBucket(cCtx, func(ctx context.Context, client interfaces.StorageClient) error {
					url, err := client.File(cCtx.Args().First()).SignedURL(ctx, interfaces.SignedURLOptions{
						Version:     interfaces.SignedURLVersion(cCtx.String("signing-version")),
						Action:      interfaces.SignedURLAction(cCtx.String("action")),
						Expires:     time.Now().Add(cCtx.Duration("expires")),
						ContentType: cCtx.String("content-type"),
					})
					if err != nil {
						return err
					}
					fmt.Fprintln(cCtx.App.Writer, url)
					return nil
				})
			},
		},
		{
			Name:  "website",
			Usage: "configure static website serving of the bucket",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "main-page", Value: "index.html", Usage: "page served for directory requests"},
				&cli.StringFlag{Name: "not-found", Value: "404.html", Usage: "page served for missing objects"},
			},
			Action: func(cCtx *cli.Context) error {
				return withBucket(cCtx, func(ctx context.Context, client interfaces.StorageClient) error {
					return client.SetWebsite(ctx, interfaces.WebsiteOptions{
						MainPageSuffix: cCtx.String("main-page"),
						NotFoundPage:   cCtx.String("not-found"),
					})
				})
			},
		},
	},
}

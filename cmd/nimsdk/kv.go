package main

import (
	"context"
	"fmt"
	"strconv"

	"github.com/ruteri/serverless-sdk/interfaces"
	"github.com/urfave/cli/v2"
)

func withKeyValue(cCtx *cli.Context, fn func(ctx context.Context, kv interfaces.KeyValueClient) error) error {
	s, logger, err := openSDK(cCtx, nil)
	if err != nil {
		return err
	}
	defer s.Close()

	kv, err := s.KeyValueClient()
	if err != nil {
		logger.Error("Failed to open key-value store", "err", err)
		return err
	}
	return fn(cCtx.Context, kv)
}

func parseInt(s, name string) (int64, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, interfaces.InvalidInput(fmt.Sprintf("%s %q is not an integer", name, s))
	}
	return v, nil
}

// kvIntCommand runs op on the positional arguments and prints its result.
func kvIntCommand(name, usage, argsUsage string, nargs int, op func(ctx context.Context, kv interfaces.KeyValueClient, args []string) (int64, error)) *cli.Command {
	return &cli.Command{
		Name:      name,
		Usage:     usage,
		ArgsUsage: argsUsage,
		Action: func(cCtx *cli.Context) error {
			if err := requireArgs(cCtx, nargs, argsUsage); err != nil {
				return err
			}
			return withKeyValue(cCtx, func(ctx context.Context, kv interfaces.KeyValueClient) error {
				n, err := op(ctx, kv, cCtx.Args().Slice())
				if err != nil {
					return err
				}
				fmt.Fprintln(cCtx.App.Writer, n)
				return nil
			})
		},
	}
}

var kvCommand = &cli.Command{
	Name:  "kv",
	Usage: "operate on the key-value store",
	Subcommands: []*cli.Command{
		{
			Name:      "get",
			Usage:     "print the value of a key",
			ArgsUsage: "<key>",
			Action: func(cCtx *cli.Context) error {
				if err := requireArgs(cCtx, 1, "<key>"); err != nil {
					return err
				}
				return withKeyValue(cCtx, func(ctx context.Context, kv interfaces.KeyValueClient) error {
					v, found, err := kv.Get(ctx, cCtx.Args().First())
					if err != nil {
						return err
					}
					if !found {
						return cli.Exit("(nil)", 1)
					}
					fmt.Fprintln(cCtx.App.Writer, v)
					return nil
				})
			},
		},
		{
			Name:      "set",
			Usage:     "store a value without expiry",
			ArgsUsage: "<key> <value>",
			Action: func(cCtx *cli.Context) error {
				if err := requireArgs(cCtx, 2, "<key> <value>"); err != nil {
					return err
				}
				return withKeyValue(cCtx, func(ctx context.Context, kv interfaces.KeyValueClient) error {
					return kv.Set(ctx, cCtx.Args().Get(0), cCtx.Args().Get(1))
				})
			},
		},
		kvIntCommand("del", "delete keys, print how many existed", "<key...>", 1,
			func(ctx context.Context, kv interfaces.KeyValueClient, args []string) (int64, error) {
				return kv.Del(ctx, args...)
			}),
		kvIntCommand("ttl", "print the remaining TTL in seconds", "<key>", 1,
			func(ctx context.Context, kv interfaces.KeyValueClient, args []string) (int64, error) {
				return kv.TTL(ctx, args[0])
			}),
		kvIntCommand("expire", "set a TTL in seconds", "<key> <seconds>", 2,
			func(ctx context.Context, kv interfaces.KeyValueClient, args []string) (int64, error) {
				seconds, err := parseInt(args[1], "seconds")
				if err != nil {
					return 0, err
				}
				return kv.Expire(ctx, args[0], seconds)
			}),
		kvIntCommand("llen", "print the length of a list", "<key>", 1,
			func(ctx context.Context, kv interfaces.KeyValueClient, args []string) (int64, error) {
				return kv.LLen(ctx, args[0])
			}),
		kvIntCommand("lpush", "prepend a value to a list", "<key> <value>", 2,
			func(ctx context.Context, kv interfaces.KeyValueClient, args []string) (int64, error) {
				return kv.LPush(ctx, args[0], args[1])
			}),
		kvIntCommand("rpush", "append a value to a list", "<key> <value>", 2,
			func(ctx context.Context, kv interfaces.KeyValueClient, args []string) (int64, error) {
				return kv.RPush(ctx, args[0], args[1])
			}),
		{
			Name:      "lrange",
			Usage:     "print a range of a list",
			ArgsUsage: "<key> <start> <stop>",
			Action: func(cCtx *cli.Context) error {
				if err := requireArgs(cCtx, 3, "<key> <start> <stop>"); err != nil {
					return err
				}
				start, err := parseInt(cCtx.Args().Get(1), "start")
				if err != nil {
					return err
				}
				stop, err := parseInt(cCtx.Args().Get(2), "stop")
				if err != nil {
					return err
				}
				return withKeyValue(cCtx, func(ctx context.Context, kv interfaces.KeyValueClient) error {
					values, err := kv.LRange(ctx, cCtx.Args().Get(0), start, stop)
					if err != nil {
						return err
					}
					for _, v := range values {
						fmt.Fprintln(cCtx.App.Writer, v)
					}
					return nil
				})
			},
		},
		{
			Name:  "scan",
			Usage: "list keys matching a pattern",
			Flags: []cli.Flag{
				&cli.StringFlag{Name: "match", Usage: "glob pattern, all keys when empty"},
				&cli.Int64Flag{Name: "count", Usage: "keys per round trip hint"},
			},
			Action: func(cCtx *cli.Context) error {
				return withKeyValue(cCtx, func(ctx context.Context, kv interfaces.KeyValueClient) error {
					var cursor uint64
					for {
						next, keys, err := kv.Scan(ctx, cursor, cCtx.String("match"), cCtx.Int64("count"))
						if err != nil {
							return err
						}
						for _, k := range keys {
							fmt.Fprintln(cCtx.App.Writer, k)
						}
						if next == 0 {
							return nil
						}
						cursor = next
					}
				})
			},
		},
	},
}

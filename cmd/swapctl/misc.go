package main

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/urfave/cli/v2"

	"hashswap/native/htlc"
	"hashswap/rpc"
)

var listEvents = cli.Command{
	Name:  "events",
	Usage: "page through the committed event log",
	Flags: []cli.Flag{
		&cli.Uint64Flag{Name: "from", Usage: "first sequence number"},
		&cli.IntFlag{Name: "limit", Value: 100},
	},
	Action: listEventsAction,
}

var stats = cli.Command{
	Name:   "stats",
	Usage:  "show order, swap and event counts",
	Action: statsAction,
}

var balance = cli.Command{
	Name:      "balance",
	Usage:     "show the ledger balance of an address",
	ArgsUsage: "<address>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "asset", Value: "native"},
	},
	Action: balanceAction,
}

var hashlock = cli.Command{
	Name:      "hashlock",
	Usage:     "print the hashlock committing to a secret",
	ArgsUsage: "<secret>",
	Action:    hashlockAction,
}

var devToken = cli.Command{
	Name:      "dev-token",
	Usage:     "mint an HS256 bearer token for an address (development only)",
	ArgsUsage: "<address>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "secret", Usage: "node auth.HMACSecret", Required: true, EnvVars: []string{"SWAPD_HMAC_SECRET"}},
		&cli.StringFlag{Name: "issuer"},
		&cli.StringFlag{Name: "audience"},
		&cli.DurationFlag{Name: "ttl", Value: 24 * time.Hour},
	},
	Action: devTokenAction,
}

func statsAction(ctx *cli.Context) error {
	var out rpc.StatsResult
	if err := call(ctx, "swap_stats", nil, &out); err != nil {
		return err
	}
	return printJSON(ctx, out)
}

func listEventsAction(ctx *cli.Context) error {
	var records []rpc.EventResult
	params := map[string]interface{}{"from": ctx.Uint64("from"), "limit": ctx.Int("limit")}
	if err := call(ctx, "swap_events", params, &records); err != nil {
		return err
	}
	return printJSON(ctx, records)
}

func balanceAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return &invalidUsageError{ctx, "balance"}
	}
	var result map[string]string
	params := map[string]interface{}{"asset": ctx.String("asset"), "address": ctx.Args().First()}
	if err := call(ctx, "bank_balance", params, &result); err != nil {
		return err
	}
	if decimals := ctx.Int(decimalsFlag); decimals > 0 {
		human, err := fromBaseUnits(result["balance"], decimals)
		if err != nil {
			return err
		}
		result["balance"] = human
	}
	return printJSON(ctx, result)
}

func hashlockAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return &invalidUsageError{ctx, "hashlock"}
	}
	lock := htlc.HashSecret([]byte(ctx.Args().First()))
	return printJSON(ctx, map[string]string{"hashLock": common.Hash(lock).Hex()})
}

func devTokenAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 || !common.IsHexAddress(ctx.Args().First()) {
		return &invalidUsageError{ctx, "dev-token"}
	}
	subject := common.HexToAddress(ctx.Args().First())
	token, err := rpc.IssueToken(ctx.String("secret"), subject, ctx.String("issuer"), ctx.String("audience"), ctx.Duration("ttl"))
	if err != nil {
		return err
	}
	return printJSON(ctx, map[string]string{"token": token})
}

package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"

	"hashswap/rpc"
)

var initiateSwap = cli.Command{
	Name:  "initiate",
	Usage: "take part of an order by locking the counter asset",
	Flags: []cli.Flag{
		&cli.Uint64Flag{Name: "order", Usage: "order id", Required: true},
		&cli.StringFlag{Name: "take", Usage: "amount of the sell asset to take", Required: true},
		&cli.DurationFlag{Name: "ttl", Usage: "swap lifetime, must end before the order", Value: time.Hour},
		&cli.StringFlag{Name: "hashlock", Usage: "override the order hashlock (0x-prefixed 32 bytes)"},
	},
	Action: initiateSwapAction,
}

var completeSwap = cli.Command{
	Name:      "complete",
	Usage:     "reveal the secret and settle a swap",
	ArgsUsage: "<swap-id>",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "secret", Usage: "preimage of the swap hashlock", Required: true},
	},
	Action: completeSwapAction,
}

var refundSwap = cli.Command{
	Name:      "refund",
	Usage:     "unwind an expired swap",
	ArgsUsage: "<swap-id>",
	Action:    refundSwapAction,
}

var getSwap = cli.Command{
	Name:      "swap",
	Usage:     "show a swap",
	ArgsUsage: "<swap-id>",
	Action:    getSwapAction,
}

func initiateSwapAction(ctx *cli.Context) error {
	orderID := ctx.Uint64("order")
	take, err := toBaseUnits(ctx.String("take"), ctx.Int(decimalsFlag))
	if err != nil {
		return fmt.Errorf("--take: %w", err)
	}
	params := map[string]interface{}{
		"orderId":    orderID,
		"takeAmount": take,
		"timelock":   time.Now().Add(ctx.Duration("ttl")).Unix(),
	}
	if lock := ctx.String("hashlock"); lock != "" {
		params["hashLock"] = lock
	}

	order, err := fetchOrder(ctx, orderID)
	if err != nil {
		return err
	}
	if order.BuyAsset == "native" {
		give, err := counterAmount(take, order.AmountToBuy, order.InitialAmountToSell)
		if err != nil {
			return err
		}
		params["value"] = give
	}

	var created struct {
		ID uint64 `json:"id"`
	}
	if err := call(ctx, "swap_initiate", params, &created); err != nil {
		return err
	}
	return printJSON(ctx, created)
}

func completeSwapAction(ctx *cli.Context) error {
	id, err := idArg(ctx, "complete")
	if err != nil {
		return err
	}
	params := map[string]interface{}{
		"swapId":   id,
		"preimage": hexutil.Encode([]byte(ctx.String("secret"))),
	}
	if err := call(ctx, "swap_complete", params, nil); err != nil {
		return err
	}
	return printJSON(ctx, map[string]interface{}{"completed": id})
}

func refundSwapAction(ctx *cli.Context) error {
	id, err := idArg(ctx, "refund")
	if err != nil {
		return err
	}
	if err := call(ctx, "swap_refund", map[string]interface{}{"swapId": id}, nil); err != nil {
		return err
	}
	return printJSON(ctx, map[string]interface{}{"refunded": id})
}

func getSwapAction(ctx *cli.Context) error {
	id, err := idArg(ctx, "swap")
	if err != nil {
		return err
	}
	var swap rpc.SwapResult
	if err := call(ctx, "swap_getSwap", map[string]interface{}{"id": id}, &swap); err != nil {
		return err
	}
	return printJSON(ctx, swap)
}

func idArg(ctx *cli.Context, command string) (uint64, error) {
	if ctx.NArg() != 1 {
		return 0, &invalidUsageError{ctx, command}
	}
	id, err := strconv.ParseUint(ctx.Args().First(), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid id %q: %w", ctx.Args().First(), err)
	}
	return id, nil
}

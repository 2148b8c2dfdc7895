package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/urfave/cli/v2"

	"hashswap/rpc"
)

var createOrder = cli.Command{
	Name:  "create-order",
	Usage: "lock sell funds and list an order",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "sell-asset", Usage: "asset offered, 'native' or a token address", Value: "native"},
		&cli.StringFlag{Name: "buy-asset", Usage: "asset wanted, 'native' or a token address", Required: true},
		&cli.StringFlag{Name: "sell-amount", Usage: "amount offered", Required: true},
		&cli.StringFlag{Name: "buy-amount", Usage: "amount wanted for the full sell amount", Required: true},
		&cli.StringFlag{Name: "min", Usage: "minimum take per swap"},
		&cli.StringFlag{Name: "max", Usage: "maximum take per swap"},
		&cli.BoolFlag{Name: "partial", Usage: "allow more than one swap to fill the order"},
		&cli.DurationFlag{Name: "ttl", Usage: "order lifetime", Value: 24 * time.Hour},
		&cli.StringFlag{Name: "secret", Usage: "secret whose hash locks every swap", Required: true},
	},
	Action: createOrderAction,
}

var cancelOrder = cli.Command{
	Name:      "cancel",
	Usage:     "withdraw an order without active swaps",
	ArgsUsage: "<order-id>",
	Action:    cancelOrderAction,
}

var getOrder = cli.Command{
	Name:      "order",
	Usage:     "show an order",
	ArgsUsage: "<order-id>",
	Action:    getOrderAction,
}

var orderBook = cli.Command{
	Name:  "book",
	Usage: "list open orders for a pair",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "sell-asset", Value: "native"},
		&cli.StringFlag{Name: "buy-asset", Required: true},
	},
	Action: orderBookAction,
}

var userOrders = cli.Command{
	Name:      "user-orders",
	Usage:     "list every order created by an address",
	ArgsUsage: "<address>",
	Action:    userOrdersAction,
}

func createOrderAction(ctx *cli.Context) error {
	decimals := ctx.Int(decimalsFlag)
	params := map[string]interface{}{
		"sellAsset":          ctx.String("sell-asset"),
		"buyAsset":           ctx.String("buy-asset"),
		"partialFillAllowed": ctx.Bool("partial"),
		"timelock":           time.Now().Add(ctx.Duration("ttl")).Unix(),
		"secret":             hexutil.Encode([]byte(ctx.String("secret"))),
	}
	for flag, field := range map[string]string{
		"sell-amount": "amountToSell",
		"buy-amount":  "amountToBuy",
		"min":         "minTradeAmount",
		"max":         "maxTradeAmount",
	} {
		amount, err := toBaseUnits(ctx.String(flag), decimals)
		if err != nil {
			return fmt.Errorf("--%s: %w", flag, err)
		}
		params[field] = amount
	}
	if params["minTradeAmount"] == "" {
		params["minTradeAmount"] = "0"
	}
	if params["maxTradeAmount"] == "" {
		params["maxTradeAmount"] = params["amountToSell"]
	}
	if isNative(ctx.String("sell-asset")) {
		params["value"] = params["amountToSell"]
	}

	var created struct {
		ID uint64 `json:"id"`
	}
	if err := call(ctx, "swap_createOrder", params, &created); err != nil {
		return err
	}
	return printJSON(ctx, created)
}

func cancelOrderAction(ctx *cli.Context) error {
	id, err := idArg(ctx, "cancel")
	if err != nil {
		return err
	}
	if err := call(ctx, "swap_cancelOrder", map[string]interface{}{"orderId": id}, nil); err != nil {
		return err
	}
	return printJSON(ctx, map[string]interface{}{"cancelled": id})
}

func fetchOrder(ctx *cli.Context, id uint64) (*rpc.OrderResult, error) {
	var order rpc.OrderResult
	if err := call(ctx, "swap_getOrder", map[string]interface{}{"id": id}, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func getOrderAction(ctx *cli.Context) error {
	id, err := idArg(ctx, "order")
	if err != nil {
		return err
	}
	order, err := fetchOrder(ctx, id)
	if err != nil {
		return err
	}
	return printJSON(ctx, order)
}

func orderBookAction(ctx *cli.Context) error {
	var ids []uint64
	params := map[string]interface{}{
		"sellAsset": ctx.String("sell-asset"),
		"buyAsset":  ctx.String("buy-asset"),
	}
	if err := call(ctx, "swap_orderBook", params, &ids); err != nil {
		return err
	}
	return printJSON(ctx, ids)
}

func userOrdersAction(ctx *cli.Context) error {
	if ctx.NArg() != 1 {
		return &invalidUsageError{ctx, "user-orders"}
	}
	var ids []uint64
	if err := call(ctx, "swap_userOrders", map[string]interface{}{"address": ctx.Args().First()}, &ids); err != nil {
		return err
	}
	return printJSON(ctx, ids)
}

func isNative(asset string) bool {
	trimmed := strings.TrimSpace(asset)
	return trimmed == "" || strings.EqualFold(trimmed, "native")
}

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/urfave/cli/v2"
)

const (
	rpcFlag      = "rpc"
	tokenFlag    = "token"
	decimalsFlag = "decimals"
)

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fatal(err)
	}
}

func newApp() *cli.App {
	app := cli.NewApp()
	app.Name = "swapctl"
	app.Usage = "Command line interface for the swapd HTLC swap engine"
	app.Flags = []cli.Flag{
		&cli.StringFlag{
			Name:    rpcFlag,
			Usage:   "swapd JSON-RPC endpoint",
			Value:   "http://127.0.0.1:8545",
			EnvVars: []string{"SWAPCTL_RPC"},
		},
		&cli.StringFlag{
			Name:    tokenFlag,
			Usage:   "bearer token identifying the caller",
			EnvVars: []string{"SWAPCTL_TOKEN"},
		},
		&cli.IntFlag{
			Name:  decimalsFlag,
			Usage: "scale amount flags and balances by 10^decimals",
		},
	}
	app.Commands = append(
		app.Commands,
		&createOrder,
		&cancelOrder,
		&getOrder,
		&orderBook,
		&userOrders,
		&initiateSwap,
		&completeSwap,
		&refundSwap,
		&getSwap,
		&listEvents,
		&stats,
		&balance,
		&hashlock,
		&devToken,
	)
	return app
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *rpcError       `json:"error"`
}

type rpcError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
}

func (e *rpcError) Error() string {
	if len(e.Data) > 0 {
		return fmt.Sprintf("rpc error %d: %s (%s)", e.Code, e.Message, e.Data)
	}
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

var httpClient = &http.Client{Timeout: 30 * time.Second}

// call invokes method with a single params object and decodes the result
// into out when out is non-nil.
func call(ctx *cli.Context, method string, params interface{}, out interface{}) error {
	payload := map[string]interface{}{
		"jsonrpc": "2.0",
		"id":      1,
		"method":  method,
	}
	if params != nil {
		payload["params"] = []interface{}{params}
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx.Context, http.MethodPost, ctx.String(rpcFlag), bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if token := strings.TrimSpace(ctx.String(tokenFlag)); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("unable to reach swapd: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 8<<20))
	if err != nil {
		return err
	}
	var decoded rpcResponse
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return fmt.Errorf("unexpected response (%s): %w", resp.Status, err)
	}
	if decoded.Error != nil {
		return decoded.Error
	}
	if out == nil {
		return nil
	}
	return json.Unmarshal(decoded.Result, out)
}

func printJSON(ctx *cli.Context, v interface{}) error {
	enc := json.NewEncoder(ctx.App.Writer)
	enc.SetIndent("", "\t")
	return enc.Encode(v)
}

type invalidUsageError struct {
	ctx     *cli.Context
	command string
}

func (e *invalidUsageError) Error() string {
	return fmt.Sprintf("invalid usage of command %s", e.command)
}

func fatal(err error) {
	var e *invalidUsageError
	if errors.As(err, &e) {
		_ = cli.ShowCommandHelp(e.ctx, e.command)
	} else {
		_, _ = fmt.Fprintf(os.Stderr, "[swapctl] %v\n", err)
	}
	os.Exit(1)
}

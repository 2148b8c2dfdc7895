package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"math/big"
	"net/http"

	"hashswap/native/htlc"
)

const maxEventsPerPage = 500

type createOrderParams struct {
	SellAsset          string `json:"sellAsset"`
	BuyAsset           string `json:"buyAsset"`
	AmountToSell       string `json:"amountToSell"`
	AmountToBuy        string `json:"amountToBuy"`
	MinTradeAmount     string `json:"minTradeAmount"`
	MaxTradeAmount     string `json:"maxTradeAmount"`
	PartialFillAllowed bool   `json:"partialFillAllowed"`
	Timelock           int64  `json:"timelock"`
	Secret             string `json:"secret"`
	Value              string `json:"value,omitempty"`
}

type initiateParams struct {
	OrderID    uint64 `json:"orderId"`
	TakeAmount string `json:"takeAmount"`
	HashLock   string `json:"hashLock,omitempty"`
	Timelock   int64  `json:"timelock"`
	Value      string `json:"value,omitempty"`
}

type completeParams struct {
	SwapID   uint64 `json:"swapId"`
	Preimage string `json:"preimage"`
}

type swapIDParams struct {
	SwapID uint64 `json:"swapId"`
}

type orderIDParams struct {
	OrderID uint64 `json:"orderId"`
}

type idParams struct {
	ID uint64 `json:"id"`
}

type pairParams struct {
	SellAsset string `json:"sellAsset"`
	BuyAsset  string `json:"buyAsset"`
}

type addressParams struct {
	Address string `json:"address"`
}

type eventsParams struct {
	From  uint64 `json:"from"`
	Limit int    `json:"limit"`
}

type balanceParams struct {
	Asset   string `json:"asset"`
	Address string `json:"address"`
}

type createdResult struct {
	ID uint64 `json:"id"`
}

type okResult struct {
	OK bool `json:"ok"`
}

func decodeParams(params []json.RawMessage, dst interface{}) *RPCError {
	if len(params) != 1 {
		return invalidParams("expected a single params object", nil)
	}
	if err := json.Unmarshal(params[0], dst); err != nil {
		return invalidParams("invalid params", err)
	}
	return nil
}

// engineError maps a node failure to its JSON-RPC error. Precondition
// failures carry their stable name in data.name.
func engineError(err error) *RPCError {
	name := htlc.ErrorName(err)
	switch {
	case errors.Is(err, htlc.ErrOrderNotFound), errors.Is(err, htlc.ErrSwapNotFound):
		return newError(http.StatusNotFound, codeNotFound, err.Error(), map[string]string{"name": name})
	case name != "":
		return newError(http.StatusConflict, codeEngineFailure, err.Error(), map[string]string{"name": name})
	default:
		return newError(http.StatusInternalServerError, codeServerError, "internal error", nil)
	}
}

func (s *Server) handleCreateOrder(ctx context.Context, caller [20]byte, raw []json.RawMessage) (interface{}, *RPCError) {
	var p createOrderParams
	if rpcErr := decodeParams(raw, &p); rpcErr != nil {
		return nil, rpcErr
	}
	sell, err := parseAsset(p.SellAsset, "sellAsset")
	if err != nil {
		return nil, invalidParams(err.Error(), nil)
	}
	buy, err := parseAsset(p.BuyAsset, "buyAsset")
	if err != nil {
		return nil, invalidParams(err.Error(), nil)
	}
	amounts := make([]*big.Int, 0, 5)
	for _, field := range []struct{ raw, name string }{
		{p.AmountToSell, "amountToSell"},
		{p.AmountToBuy, "amountToBuy"},
		{p.MinTradeAmount, "minTradeAmount"},
		{p.MaxTradeAmount, "maxTradeAmount"},
		{p.Value, "value"},
	} {
		v, err := parseAmount(field.raw, field.name)
		if err != nil {
			return nil, invalidParams(err.Error(), nil)
		}
		amounts = append(amounts, v)
	}
	secret, err := parseBytes(p.Secret, "secret")
	if err != nil {
		return nil, invalidParams(err.Error(), nil)
	}
	if len(secret) == 0 {
		return nil, invalidParams("secret required", nil)
	}
	params := htlc.OrderParams{
		SellAsset:          sell,
		BuyAsset:           buy,
		AmountToSell:       amounts[0],
		AmountToBuy:        amounts[1],
		MinTradeAmount:     amounts[2],
		MaxTradeAmount:     amounts[3],
		PartialFillAllowed: p.PartialFillAllowed,
		Timelock:           p.Timelock,
		Secret:             secret,
	}
	id, err := s.node.CreateOrder(ctx, caller, amounts[4], params)
	if err != nil {
		return nil, engineError(err)
	}
	return createdResult{ID: id}, nil
}

func (s *Server) handleInitiate(ctx context.Context, caller [20]byte, raw []json.RawMessage) (interface{}, *RPCError) {
	var p initiateParams
	if rpcErr := decodeParams(raw, &p); rpcErr != nil {
		return nil, rpcErr
	}
	take, err := parseAmount(p.TakeAmount, "takeAmount")
	if err != nil {
		return nil, invalidParams(err.Error(), nil)
	}
	value, err := parseAmount(p.Value, "value")
	if err != nil {
		return nil, invalidParams(err.Error(), nil)
	}
	hashLock, err := parseHash(p.HashLock, "hashLock")
	if err != nil {
		return nil, invalidParams(err.Error(), nil)
	}
	id, err := s.node.InitiateSwap(ctx, caller, value, htlc.SwapParams{
		OrderID:    p.OrderID,
		TakeAmount: take,
		HashLock:   hashLock,
		Timelock:   p.Timelock,
	})
	if err != nil {
		return nil, engineError(err)
	}
	return createdResult{ID: id}, nil
}

func (s *Server) handleComplete(ctx context.Context, caller [20]byte, raw []json.RawMessage) (interface{}, *RPCError) {
	var p completeParams
	if rpcErr := decodeParams(raw, &p); rpcErr != nil {
		return nil, rpcErr
	}
	preimage, err := parseBytes(p.Preimage, "preimage")
	if err != nil {
		return nil, invalidParams(err.Error(), nil)
	}
	if err := s.node.CompleteSwap(ctx, caller, p.SwapID, preimage); err != nil {
		return nil, engineError(err)
	}
	return okResult{OK: true}, nil
}

func (s *Server) handleRefund(ctx context.Context, caller [20]byte, raw []json.RawMessage) (interface{}, *RPCError) {
	var p swapIDParams
	if rpcErr := decodeParams(raw, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.node.RefundSwap(ctx, caller, p.SwapID); err != nil {
		return nil, engineError(err)
	}
	return okResult{OK: true}, nil
}

func (s *Server) handleCancelOrder(ctx context.Context, caller [20]byte, raw []json.RawMessage) (interface{}, *RPCError) {
	var p orderIDParams
	if rpcErr := decodeParams(raw, &p); rpcErr != nil {
		return nil, rpcErr
	}
	if err := s.node.CancelOrder(ctx, caller, p.OrderID); err != nil {
		return nil, engineError(err)
	}
	return okResult{OK: true}, nil
}

func (s *Server) handleGetOrder(_ context.Context, _ [20]byte, raw []json.RawMessage) (interface{}, *RPCError) {
	var p idParams
	if rpcErr := decodeParams(raw, &p); rpcErr != nil {
		return nil, rpcErr
	}
	order, err := s.node.Order(p.ID)
	if err != nil {
		return nil, engineError(err)
	}
	return formatOrder(order), nil
}

func (s *Server) handleGetSwap(_ context.Context, _ [20]byte, raw []json.RawMessage) (interface{}, *RPCError) {
	var p idParams
	if rpcErr := decodeParams(raw, &p); rpcErr != nil {
		return nil, rpcErr
	}
	view, err := s.node.Swap(p.ID)
	if err != nil {
		return nil, engineError(err)
	}
	return formatSwap(view), nil
}

func (s *Server) handleOrderSwaps(_ context.Context, _ [20]byte, raw []json.RawMessage) (interface{}, *RPCError) {
	var p idParams
	if rpcErr := decodeParams(raw, &p); rpcErr != nil {
		return nil, rpcErr
	}
	ids, err := s.node.SwapsOf(p.ID)
	if err != nil {
		return nil, engineError(err)
	}
	return nonNilIDs(ids), nil
}

func (s *Server) handleOrderBook(_ context.Context, _ [20]byte, raw []json.RawMessage) (interface{}, *RPCError) {
	var p pairParams
	if rpcErr := decodeParams(raw, &p); rpcErr != nil {
		return nil, rpcErr
	}
	sell, err := parseAsset(p.SellAsset, "sellAsset")
	if err != nil {
		return nil, invalidParams(err.Error(), nil)
	}
	buy, err := parseAsset(p.BuyAsset, "buyAsset")
	if err != nil {
		return nil, invalidParams(err.Error(), nil)
	}
	ids, err := s.node.OrderBook(sell, buy)
	if err != nil {
		return nil, engineError(err)
	}
	return nonNilIDs(ids), nil
}

func (s *Server) handleUserOrders(_ context.Context, _ [20]byte, raw []json.RawMessage) (interface{}, *RPCError) {
	var p addressParams
	if rpcErr := decodeParams(raw, &p); rpcErr != nil {
		return nil, rpcErr
	}
	owner, err := parseAddress(p.Address, "address")
	if err != nil {
		return nil, invalidParams(err.Error(), nil)
	}
	ids, err := s.node.UserOrders(owner)
	if err != nil {
		return nil, engineError(err)
	}
	return nonNilIDs(ids), nil
}

func (s *Server) handleEvents(_ context.Context, _ [20]byte, raw []json.RawMessage) (interface{}, *RPCError) {
	var p eventsParams
	if len(raw) > 0 {
		if rpcErr := decodeParams(raw, &p); rpcErr != nil {
			return nil, rpcErr
		}
	}
	if p.Limit < 0 {
		return nil, invalidParams("limit must not be negative", nil)
	}
	if p.Limit == 0 || p.Limit > maxEventsPerPage {
		p.Limit = maxEventsPerPage
	}
	records, err := s.node.Events(p.From, p.Limit)
	if err != nil {
		return nil, engineError(err)
	}
	out := make([]EventResult, 0, len(records))
	for _, rec := range records {
		out = append(out, formatRecord(rec))
	}
	return out, nil
}

func (s *Server) handleBalance(_ context.Context, _ [20]byte, raw []json.RawMessage) (interface{}, *RPCError) {
	var p balanceParams
	if rpcErr := decodeParams(raw, &p); rpcErr != nil {
		return nil, rpcErr
	}
	asset, err := parseAsset(p.Asset, "asset")
	if err != nil {
		return nil, invalidParams(err.Error(), nil)
	}
	addr, err := parseAddress(p.Address, "address")
	if err != nil {
		return nil, invalidParams(err.Error(), nil)
	}
	bal, err := s.node.Balance(asset, addr)
	if err != nil {
		return nil, engineError(err)
	}
	return map[string]string{"asset": formatAsset(asset), "balance": formatAmount(bal)}, nil
}

func (s *Server) handleStats(_ context.Context, _ [20]byte, raw []json.RawMessage) (interface{}, *RPCError) {
	if len(raw) > 1 {
		return nil, invalidParams("swap_stats takes no params", nil)
	}
	stats, err := s.node.Stats()
	if err != nil {
		return nil, engineError(err)
	}
	return StatsResult{Orders: stats.Orders, Swaps: stats.Swaps, Events: stats.Events}, nil
}

func nonNilIDs(ids []uint64) []uint64 {
	if ids == nil {
		return []uint64{}
	}
	return ids
}

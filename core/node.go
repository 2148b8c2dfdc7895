package core

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"hashswap/core/events"
	"hashswap/core/state"
	"hashswap/core/types"
	"hashswap/native/bank"
	"hashswap/native/htlc"
	"hashswap/observability"
	telemetry "hashswap/observability/otel"
	"hashswap/storage"
	"hashswap/storage/eventlog"
)

// Operation names used for logs, spans and metrics.
const (
	OpCreateOrder  = "createOrder"
	OpInitiateSwap = "initiateSwap"
	OpCompleteSwap = "completeSwap"
	OpRefundSwap   = "refundSwap"
	OpCancelOrder  = "cancelOrder"
)

// Options configures a Node.
type Options struct {
	Vault  [20]byte
	Logger *slog.Logger
	// Now overrides the clock used for timelocks and event timestamps.
	Now func() time.Time
}

// Node owns the engine and serializes every call against it. Each mutating
// call either commits its state writes and events together or leaves both
// untouched. Node is safe for concurrent use.
type Node struct {
	mu      sync.Mutex
	state   *state.Manager
	ledger  *bank.Ledger
	engine  *htlc.Engine
	buffer  *events.Buffer
	log     *eventlog.Log
	sinks   events.Fanout
	logger  *slog.Logger
	metrics *observability.SwapMetrics
	now     func() time.Time
}

// NewNode wires the engine to state held in db and the event log.
func NewNode(db storage.Database, log *eventlog.Log, opts Options) (*Node, error) {
	if db == nil {
		return nil, fmt.Errorf("core: database required")
	}
	if log == nil {
		return nil, fmt.Errorf("core: event log required")
	}
	if opts.Vault == ([20]byte{}) {
		return nil, bank.ErrVaultNotConfigured
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	n := &Node{
		state:   state.NewManager(db),
		buffer:  &events.Buffer{},
		log:     log,
		logger:  logger.With(slog.String("component", "node")),
		metrics: observability.Swap(),
		now:     now,
	}
	n.ledger = bank.NewLedger(n.state, opts.Vault)
	n.engine = htlc.NewEngine()
	n.engine.SetState(n.state)
	n.engine.SetLedger(n.ledger)
	n.engine.SetEmitter(n.buffer)
	n.engine.SetNowFunc(func() int64 { return n.now().Unix() })
	return n, nil
}

// Subscribe registers an emitter that receives every committed event.
func (n *Node) Subscribe(sink events.Emitter) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sinks = append(n.sinks, sink)
}

// CreateOrder locks the sell amount and lists a new order.
func (n *Node) CreateOrder(ctx context.Context, maker [20]byte, value *big.Int, params htlc.OrderParams) (uint64, error) {
	var id uint64
	err := n.apply(ctx, OpCreateOrder, func() (err error) {
		id, err = n.engine.CreateOrder(maker, value, params)
		return err
	})
	return id, err
}

// InitiateSwap opens a swap against an order.
func (n *Node) InitiateSwap(ctx context.Context, caller [20]byte, value *big.Int, params htlc.SwapParams) (uint64, error) {
	var id uint64
	err := n.apply(ctx, OpInitiateSwap, func() (err error) {
		id, err = n.engine.InitiateSwap(caller, value, params)
		return err
	})
	return id, err
}

// CompleteSwap settles a swap with its preimage.
func (n *Node) CompleteSwap(ctx context.Context, caller [20]byte, swapID uint64, preimage []byte) error {
	return n.apply(ctx, OpCompleteSwap, func() error {
		return n.engine.CompleteSwap(caller, swapID, preimage)
	})
}

// RefundSwap unwinds an expired swap.
func (n *Node) RefundSwap(ctx context.Context, caller [20]byte, swapID uint64) error {
	return n.apply(ctx, OpRefundSwap, func() error {
		return n.engine.RefundSwap(caller, swapID)
	})
}

// CancelOrder withdraws an order.
func (n *Node) CancelOrder(ctx context.Context, caller [20]byte, orderID uint64) error {
	return n.apply(ctx, OpCancelOrder, func() error {
		return n.engine.CancelOrder(caller, orderID)
	})
}

func (n *Node) apply(ctx context.Context, op string, fn func() error) error {
	_, span := telemetry.Tracer().Start(ctx, "htlc."+op)
	defer span.End()
	started := time.Now()

	n.mu.Lock()
	committed, err := n.run(fn)
	n.mu.Unlock()

	failure := htlc.ErrorName(err)
	if err != nil && failure == "" {
		failure = "internal"
	}
	n.metrics.Observe(op, failure, time.Since(started))

	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, failure)
		level := slog.LevelInfo
		if failure == "internal" {
			level = slog.LevelError
		}
		n.logger.Log(ctx, level, "engine call rejected",
			slog.String("operation", op),
			slog.String("reason", failure),
			slog.Any("error", err))
		return err
	}

	span.SetAttributes(attribute.Int("events", len(committed)))
	for _, evt := range committed {
		n.metrics.RecordEvent(evt.Type)
		n.logger.Debug("event committed", slog.String("type", evt.Type), slog.Any("attributes", evt.Attributes))
	}
	return nil
}

// run executes fn, then commits its effects and hands the committed events
// to subscribers. The caller holds n.mu so subscribers observe events in
// commit order.
func (n *Node) run(fn func() error) ([]*types.Event, error) {
	if err := fn(); err != nil {
		n.state.Discard()
		n.buffer.Reset()
		return nil, err
	}
	pending := n.buffer.Drain()
	wire, err := n.commit(pending)
	if err != nil {
		return nil, err
	}
	for _, evt := range pending {
		n.sinks.Emit(evt)
	}
	return wire, nil
}

// commit persists pending state and events. The event log is appended
// first; if the state commit then fails the appended tail is truncated so
// neither side records the call. The caller holds n.mu.
func (n *Node) commit(pending []events.Event) ([]*types.Event, error) {
	wire := make([]*types.Event, 0, len(pending))
	for _, evt := range pending {
		w, ok := evt.(interface{ Event() *types.Event })
		if !ok {
			n.state.Discard()
			return nil, fmt.Errorf("core: event %s has no wire form", evt.EventType())
		}
		wire = append(wire, w.Event())
	}

	first, err := n.log.Append(wire, n.now())
	if err != nil {
		n.state.Discard()
		return nil, fmt.Errorf("core: append events: %w", err)
	}
	if err := n.state.Commit(); err != nil {
		n.state.Discard()
		if first > 0 {
			if truncErr := n.log.Truncate(first); truncErr != nil {
				err = errors.Join(err, fmt.Errorf("core: truncate events: %w", truncErr))
			}
		}
		return nil, err
	}
	n.recordCustody(wire)
	return wire, nil
}

func (n *Node) recordCustody(wire []*types.Event) {
	seen := make(map[htlc.Asset]struct{})
	for _, evt := range wire {
		id, err := strconv.ParseUint(evt.Attr("orderId"), 10, 64)
		if err != nil {
			continue
		}
		order, ok, err := n.state.OrderGet(id)
		if err != nil || !ok {
			continue
		}
		seen[order.SellAsset] = struct{}{}
		seen[order.BuyAsset] = struct{}{}
	}
	for asset := range seen {
		held, err := n.ledger.Custody(asset)
		if err != nil {
			continue
		}
		n.metrics.RecordCustody(asset.String(), held)
	}
}

package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"hashswap/core"
	"hashswap/observability"
	"hashswap/observability/logging"
)

const (
	jsonRPCVersion  = "2.0"
	maxRequestBytes = 1 << 20 // 1 MiB
	requestIDHeader = "X-Request-ID"
)

const (
	codeParseError     = -32700
	codeInvalidRequest = -32600
	codeMethodNotFound = -32601
	codeInvalidParams  = -32602
	codeUnauthorized   = -32001
	codeServerError    = -32000
	codeRateLimited    = -32020
	codeEngineFailure  = -32030
	codeNotFound       = -32031
)

// ServerConfig controls authentication and throttling of the JSON-RPC surface.
type ServerConfig struct {
	Auth      AuthConfig
	RateLimit RateLimitConfig
}

// Server exposes the swap node over JSON-RPC 2.0.
type Server struct {
	node    *core.Node
	auth    *authenticator
	limiter *limiter
	logger  *slog.Logger
	metrics interface {
		Observe(method string, code int, duration time.Duration)
		RecordThrottle(reason string)
	}
	methods map[string]method

	serverMu   sync.Mutex
	httpServer *http.Server
	closed     bool
}

type handlerFunc func(ctx context.Context, caller [20]byte, params []json.RawMessage) (interface{}, *RPCError)

type method struct {
	handle   handlerFunc
	mutating bool
}

// NewServer builds a server for node. A nil logger falls back to slog.Default.
func NewServer(node *core.Node, cfg ServerConfig, logger *slog.Logger) (*Server, error) {
	if node == nil {
		return nil, fmt.Errorf("rpc: node required")
	}
	auth, err := newAuthenticator(cfg.Auth)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Server{
		node:    node,
		auth:    auth,
		limiter: newLimiter(cfg.RateLimit),
		logger:  logger.With(slog.String("component", "rpc")),
		metrics: observability.ModuleMetrics(),
	}
	s.methods = map[string]method{
		"swap_createOrder": {handle: s.handleCreateOrder, mutating: true},
		"swap_initiate":    {handle: s.handleInitiate, mutating: true},
		"swap_complete":    {handle: s.handleComplete, mutating: true},
		"swap_refund":      {handle: s.handleRefund, mutating: true},
		"swap_cancelOrder": {handle: s.handleCancelOrder, mutating: true},
		"swap_getOrder":    {handle: s.handleGetOrder},
		"swap_getSwap":     {handle: s.handleGetSwap},
		"swap_orderSwaps":  {handle: s.handleOrderSwaps},
		"swap_orderBook":   {handle: s.handleOrderBook},
		"swap_userOrders":  {handle: s.handleUserOrders},
		"swap_events":      {handle: s.handleEvents},
		"swap_stats":       {handle: s.handleStats},
		"bank_balance":     {handle: s.handleBalance},
	}
	return s, nil
}

// Handler returns the instrumented HTTP handler serving JSON-RPC on POST /,
// plus /healthz and /metrics.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(requestID)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.Post("/", s.handle)
	return otelhttp.NewHandler(r, "hashswap.rpc")
}

// Serve accepts connections on listener until Shutdown is called.
func (s *Server) Serve(listener net.Listener) error {
	srv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	s.serverMu.Lock()
	if s.closed {
		s.serverMu.Unlock()
		return listener.Close()
	}
	s.httpServer = srv
	s.serverMu.Unlock()

	s.logger.Info("serving JSON-RPC", slog.String("address", listener.Addr().String()))
	if err := srv.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops a server started with Serve.
func (s *Server) Shutdown(ctx context.Context) error {
	s.serverMu.Lock()
	s.closed = true
	srv := s.httpServer
	s.serverMu.Unlock()
	if srv == nil {
		return nil
	}
	return srv.Shutdown(ctx)
}

type RPCRequest struct {
	JSONRPC string            `json:"jsonrpc"`
	Method  string            `json:"method"`
	Params  []json.RawMessage `json:"params"`
	ID      interface{}       `json:"id"`
}

type RPCResponse struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      interface{} `json:"id"`
	Result  interface{} `json:"result,omitempty"`
	Error   *RPCError   `json:"error,omitempty"`
}

type RPCError struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`

	status int
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("rpc error %d: %s", e.Code, e.Message)
}

func newError(status, code int, message string, data interface{}) *RPCError {
	return &RPCError{Code: code, Message: message, Data: data, status: status}
}

func invalidParams(message string, err error) *RPCError {
	var data interface{}
	if err != nil {
		data = err.Error()
	}
	return newError(http.StatusBadRequest, codeInvalidParams, message, data)
}

func writeError(w http.ResponseWriter, id interface{}, rpcErr *RPCError) {
	status := rpcErr.status
	if status <= 0 {
		status = http.StatusBadRequest
	}
	w.WriteHeader(status)
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Error: rpcErr}
	_ = json.NewEncoder(w).Encode(resp)
}

func writeResult(w http.ResponseWriter, id interface{}, result interface{}) {
	resp := RPCResponse{JSONRPC: jsonRPCVersion, ID: id, Result: result}
	_ = json.NewEncoder(w).Encode(resp)
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	started := time.Now()
	w.Header().Set("Content-Type", "application/json")

	req, rpcErr := decodeRequest(w, r)
	methodName := ""
	var id interface{}
	if req != nil {
		methodName = req.Method
		id = req.ID
	}
	var result interface{}
	if rpcErr == nil {
		result, rpcErr = s.dispatch(r, req)
	}

	code := 0
	if rpcErr != nil {
		code = rpcErr.Code
		if rpcErr.status >= http.StatusInternalServerError {
			s.logger.Error("rpc call failed",
				slog.String("method", methodName),
				slog.String("request_id", w.Header().Get(requestIDHeader)),
				slog.String("error", rpcErr.Message))
		}
		writeError(w, id, rpcErr)
	} else {
		writeResult(w, id, result)
	}
	if _, known := s.methods[methodName]; !known {
		methodName = "unknown"
	}
	s.metrics.Observe(methodName, code, time.Since(started))
}

func decodeRequest(w http.ResponseWriter, r *http.Request) (*RPCRequest, *RPCError) {
	reader := http.MaxBytesReader(w, r.Body, maxRequestBytes)
	defer func() {
		_ = reader.Close()
	}()

	body, err := io.ReadAll(reader)
	if err != nil {
		var maxBytesErr *http.MaxBytesError
		if errors.As(err, &maxBytesErr) {
			return nil, newError(http.StatusRequestEntityTooLarge, codeInvalidRequest,
				fmt.Sprintf("request body exceeds %d bytes", maxRequestBytes), nil)
		}
		return nil, newError(http.StatusBadRequest, codeInvalidRequest, "failed to read request body", err.Error())
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil, newError(http.StatusBadRequest, codeInvalidRequest, "request body required", nil)
	}

	req := &RPCRequest{}
	if err := json.Unmarshal(body, req); err != nil {
		return nil, newError(http.StatusBadRequest, codeParseError, "invalid JSON payload", err.Error())
	}
	if req.JSONRPC != "" && req.JSONRPC != jsonRPCVersion {
		return req, newError(http.StatusBadRequest, codeInvalidRequest, "unsupported jsonrpc version", req.JSONRPC)
	}
	if req.Method == "" {
		return req, newError(http.StatusBadRequest, codeInvalidRequest, "method required", nil)
	}
	return req, nil
}

func (s *Server) dispatch(r *http.Request, req *RPCRequest) (interface{}, *RPCError) {
	m, ok := s.methods[req.Method]
	if !ok {
		return nil, newError(http.StatusNotFound, codeMethodNotFound, "method not found", req.Method)
	}
	if !s.limiter.allow(s.limiter.clientSource(r)) {
		s.metrics.RecordThrottle("rate_limit")
		return nil, newError(http.StatusTooManyRequests, codeRateLimited, "rate limit exceeded", nil)
	}

	var caller [20]byte
	if m.mutating || !s.auth.cfg.AllowAnonymousReads {
		subject, authErr := s.auth.authenticate(r)
		if authErr != nil {
			s.logger.Info("rpc authentication failed",
				slog.String("method", req.Method),
				slog.String("request_id", r.Header.Get(requestIDHeader)),
				slog.String("reason", authErr.Message),
				logging.MaskField("authorization", r.Header.Get("Authorization")))
			return nil, authErr
		}
		caller = subject
	}
	return m.handle(r.Context(), caller, req.Params)
}

// requestID tags every request and response with an X-Request-ID.
func requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
			r.Header.Set(requestIDHeader, id)
		}
		w.Header().Set(requestIDHeader, id)
		next.ServeHTTP(w, r)
	})
}

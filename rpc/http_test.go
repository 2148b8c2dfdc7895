package rpc

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/stretchr/testify/require"

	"hashswap/core"
	"hashswap/native/htlc"
	"hashswap/storage"
	"hashswap/storage/eventlog"
)

const testSecret = "rpc-test-secret"

var (
	testVault = [20]byte{0xfe}
	testMaker = [20]byte{0x0a}
	testTaker = [20]byte{0x0b}
	testSell  = htlc.Asset{0xa0}
	testBuy   = htlc.Asset{0xb0}
)

type testResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int             `json:"code"`
		Message string          `json:"message"`
		Data    json.RawMessage `json:"data"`
	} `json:"error"`
	status int
	header http.Header
}

func newTestServer(t *testing.T, cfg ServerConfig) (http.Handler, *core.Node) {
	t.Helper()
	db := storage.NewMemDB()
	t.Cleanup(func() { _ = db.Close() })
	log, err := eventlog.Open(filepath.Join(t.TempDir(), "events.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = log.Close() })

	node, err := core.NewNode(db, log, core.Options{Vault: testVault})
	require.NoError(t, err)
	_, err = node.ApplyGenesis([]core.GenesisAlloc{
		{Asset: testSell, Address: testMaker, Amount: big.NewInt(1000)},
		{Asset: testBuy, Address: testTaker, Amount: big.NewInt(1000)},
	})
	require.NoError(t, err)

	if cfg.Auth.HMACSecret == "" {
		cfg.Auth.HMACSecret = testSecret
		cfg.Auth.Issuer = "rpc-tests"
		cfg.Auth.AllowAnonymousReads = true
	}
	srv, err := NewServer(node, cfg, nil)
	require.NoError(t, err)
	return srv.Handler(), node
}

func tokenFor(t *testing.T, who [20]byte) string {
	t.Helper()
	token, err := IssueToken(testSecret, who, "rpc-tests", "", time.Hour)
	require.NoError(t, err)
	return token
}

func call(t *testing.T, h http.Handler, token, method string, params interface{}) testResponse {
	t.Helper()
	payload := map[string]interface{}{"jsonrpc": "2.0", "id": 1, "method": method}
	if params != nil {
		payload["params"] = []interface{}{params}
	}
	body, err := json.Marshal(payload)
	require.NoError(t, err)
	return post(t, h, token, body)
}

func post(t *testing.T, h http.Handler, token string, body []byte) testResponse {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/", bytes.NewReader(body))
	req.RemoteAddr = "10.0.0.5:1234"
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var resp testResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	resp.status = rec.Code
	resp.header = rec.Header()
	return resp
}

func hexAddr(a [20]byte) string { return common.Address(a).Hex() }

func orderPayload() map[string]interface{} {
	return map[string]interface{}{
		"sellAsset":          hexAddr(testSell),
		"buyAsset":           hexAddr(testBuy),
		"amountToSell":       "100",
		"amountToBuy":        "50",
		"minTradeAmount":     "10",
		"maxTradeAmount":     "50",
		"partialFillAllowed": true,
		"timelock":           time.Now().Add(time.Hour).Unix(),
		"secret":             hexutil.Encode([]byte("abc")),
	}
}

func TestSwapLifecycleOverRPC(t *testing.T) {
	h, _ := newTestServer(t, ServerConfig{})
	makerToken := tokenFor(t, testMaker)
	takerToken := tokenFor(t, testTaker)

	resp := call(t, h, makerToken, "swap_createOrder", orderPayload())
	require.Nil(t, resp.Error)
	var created createdResult
	require.NoError(t, json.Unmarshal(resp.Result, &created))
	require.Equal(t, uint64(1), created.ID)

	resp = call(t, h, takerToken, "swap_initiate", map[string]interface{}{
		"orderId":    created.ID,
		"takeAmount": "40",
		"timelock":   time.Now().Add(30 * time.Minute).Unix(),
	})
	require.Nil(t, resp.Error)
	var swap createdResult
	require.NoError(t, json.Unmarshal(resp.Result, &swap))

	resp = call(t, h, "", "swap_getOrder", map[string]interface{}{"id": created.ID})
	require.Nil(t, resp.Error)
	var order OrderResult
	require.NoError(t, json.Unmarshal(resp.Result, &order))
	require.Equal(t, "40", order.Reserved)
	require.Equal(t, "60", order.Available)
	require.Equal(t, []uint64{swap.ID}, order.ActiveSwaps)

	resp = call(t, h, "", "swap_orderSwaps", map[string]interface{}{"id": created.ID})
	require.Nil(t, resp.Error)
	require.JSONEq(t, fmt.Sprintf("[%d]", swap.ID), string(resp.Result))

	resp = call(t, h, makerToken, "swap_complete", map[string]interface{}{
		"swapId":   swap.ID,
		"preimage": hexutil.Encode([]byte("abc")),
	})
	require.Nil(t, resp.Error)

	resp = call(t, h, "", "swap_getSwap", map[string]interface{}{"id": swap.ID})
	require.Nil(t, resp.Error)
	var view SwapResult
	require.NoError(t, json.Unmarshal(resp.Result, &view))
	require.Equal(t, "completed", view.Status)
	require.Equal(t, "20", view.ParticipantAmount)
	require.Equal(t, hexutil.Encode([]byte("abc")), view.Preimage)

	resp = call(t, h, "", "bank_balance", map[string]interface{}{"asset": hexAddr(testSell), "address": hexAddr(testTaker)})
	require.Nil(t, resp.Error)
	var bal map[string]string
	require.NoError(t, json.Unmarshal(resp.Result, &bal))
	require.Equal(t, "40", bal["balance"])

	resp = call(t, h, "", "swap_events", map[string]interface{}{"from": 0, "limit": 10})
	require.Nil(t, resp.Error)
	var events []EventResult
	require.NoError(t, json.Unmarshal(resp.Result, &events))
	require.Len(t, events, 3)
	require.Equal(t, uint64(1), events[0].Sequence)

	resp = call(t, h, "", "swap_orderBook", map[string]interface{}{"sellAsset": hexAddr(testSell), "buyAsset": hexAddr(testBuy)})
	require.Nil(t, resp.Error)
	var book []uint64
	require.NoError(t, json.Unmarshal(resp.Result, &book))
	require.Equal(t, []uint64{created.ID}, book)

	resp = call(t, h, "", "swap_userOrders", map[string]interface{}{"address": hexAddr(testMaker)})
	require.Nil(t, resp.Error)
	var mine []uint64
	require.NoError(t, json.Unmarshal(resp.Result, &mine))
	require.Equal(t, []uint64{created.ID}, mine)

	resp = call(t, h, "", "swap_stats", nil)
	require.Nil(t, resp.Error)
	var stats StatsResult
	require.NoError(t, json.Unmarshal(resp.Result, &stats))
	require.Equal(t, StatsResult{Orders: 1, Swaps: 1, Events: 3}, stats)
}

func TestMutatingCallsRequireToken(t *testing.T) {
	h, _ := newTestServer(t, ServerConfig{})

	resp := call(t, h, "", "swap_createOrder", orderPayload())
	require.Equal(t, http.StatusUnauthorized, resp.status)
	require.NotNil(t, resp.Error)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	forged, err := IssueToken("other-secret", testMaker, "rpc-tests", "", time.Hour)
	require.NoError(t, err)
	resp = call(t, h, forged, "swap_createOrder", orderPayload())
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	expired, err := IssueToken(testSecret, testMaker, "rpc-tests", "", -time.Hour)
	require.NoError(t, err)
	resp = call(t, h, expired, "swap_createOrder", orderPayload())
	require.Equal(t, codeUnauthorized, resp.Error.Code)
}

func TestReadsRequireTokenUnlessAnonymousAllowed(t *testing.T) {
	h, _ := newTestServer(t, ServerConfig{Auth: AuthConfig{HMACSecret: testSecret}})

	resp := call(t, h, "", "swap_orderBook", map[string]interface{}{"sellAsset": "native", "buyAsset": hexAddr(testBuy)})
	require.NotNil(t, resp.Error)
	require.Equal(t, codeUnauthorized, resp.Error.Code)

	resp = call(t, h, tokenFor(t, testTaker), "swap_orderBook", map[string]interface{}{"sellAsset": "native", "buyAsset": hexAddr(testBuy)})
	require.Nil(t, resp.Error)
	require.JSONEq(t, "[]", string(resp.Result))
}

func TestEngineFailuresCarryName(t *testing.T) {
	h, _ := newTestServer(t, ServerConfig{})
	makerToken := tokenFor(t, testMaker)

	resp := call(t, h, makerToken, "swap_createOrder", orderPayload())
	require.Nil(t, resp.Error)

	resp = call(t, h, makerToken, "swap_initiate", map[string]interface{}{
		"orderId":    1,
		"takeAmount": "20",
		"timelock":   time.Now().Add(30 * time.Minute).Unix(),
	})
	require.Equal(t, http.StatusConflict, resp.status)
	require.Equal(t, codeEngineFailure, resp.Error.Code)
	require.JSONEq(t, `{"name":"SelfTrade"}`, string(resp.Error.Data))

	resp = call(t, h, makerToken, "swap_refund", map[string]interface{}{"swapId": 9})
	require.Equal(t, http.StatusNotFound, resp.status)
	require.Equal(t, codeNotFound, resp.Error.Code)
	require.JSONEq(t, `{"name":"SwapNotFound"}`, string(resp.Error.Data))

	resp = call(t, h, "", "swap_getOrder", map[string]interface{}{"id": 42})
	require.Equal(t, codeNotFound, resp.Error.Code)
}

func TestInvalidRequests(t *testing.T) {
	h, _ := newTestServer(t, ServerConfig{})
	makerToken := tokenFor(t, testMaker)

	resp := post(t, h, "", []byte("{not json"))
	require.Equal(t, codeParseError, resp.Error.Code)

	resp = call(t, h, "", "swap_unknown", nil)
	require.Equal(t, codeMethodNotFound, resp.Error.Code)

	bad := orderPayload()
	bad["amountToSell"] = "ten"
	resp = call(t, h, makerToken, "swap_createOrder", bad)
	require.Equal(t, codeInvalidParams, resp.Error.Code)

	bad = orderPayload()
	bad["sellAsset"] = "0x1234"
	resp = call(t, h, makerToken, "swap_createOrder", bad)
	require.Equal(t, codeInvalidParams, resp.Error.Code)

	resp = call(t, h, makerToken, "swap_initiate", map[string]interface{}{"orderId": 1, "takeAmount": "1", "hashLock": "0xabcd"})
	require.Equal(t, codeInvalidParams, resp.Error.Code)

	resp = call(t, h, "", "swap_getOrder", nil)
	require.Equal(t, codeInvalidParams, resp.Error.Code)

	oversized := fmt.Sprintf(`{"jsonrpc":"2.0","method":"swap_events","params":["%s"]}`, strings.Repeat("a", maxRequestBytes))
	resp = post(t, h, "", []byte(oversized))
	require.Equal(t, http.StatusRequestEntityTooLarge, resp.status)
	require.Equal(t, codeInvalidRequest, resp.Error.Code)
}

func TestRateLimitPerClient(t *testing.T) {
	h, _ := newTestServer(t, ServerConfig{RateLimit: RateLimitConfig{RequestsPerMinute: 1, Burst: 2}})

	for i := 0; i < 2; i++ {
		resp := call(t, h, "", "swap_events", nil)
		require.Nil(t, resp.Error)
	}
	resp := call(t, h, "", "swap_events", nil)
	require.Equal(t, http.StatusTooManyRequests, resp.status)
	require.Equal(t, codeRateLimited, resp.Error.Code)
}

func TestClientSourceIgnoresForwardedForWhenNotTrusted(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "10.0.0.5:1234"
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")

	require.Equal(t, "10.0.0.5", newLimiter(RateLimitConfig{}).clientSource(req))
	require.Equal(t, "203.0.113.9", newLimiter(RateLimitConfig{TrustForwardedFor: true}).clientSource(req))
}

func TestHealthAndRequestID(t *testing.T) {
	h, _ := newTestServer(t, ServerConfig{})

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok", rec.Body.String())
	require.NotEmpty(t, rec.Header().Get(requestIDHeader))

	resp := call(t, h, "", "swap_events", nil)
	require.NotEmpty(t, resp.header.Get(requestIDHeader))
}

func TestNewServerRequiresSecret(t *testing.T) {
	_, node := newTestServer(t, ServerConfig{})
	_, err := NewServer(node, ServerConfig{}, nil)
	require.Error(t, err)
	_, err = NewServer(nil, ServerConfig{Auth: AuthConfig{HMACSecret: testSecret}}, nil)
	require.Error(t, err)
}

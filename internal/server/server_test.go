package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Mohsinsiddi/w3gas/internal/chain"
	"github.com/Mohsinsiddi/w3gas/internal/explorer"
	"github.com/Mohsinsiddi/w3gas/internal/gas"
	"github.com/Mohsinsiddi/w3gas/internal/metrics"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// ---------------------------------------------------------------------------
// helpers
// ---------------------------------------------------------------------------

type calcFunc func(ctx context.Context, req gas.Request) (*gas.Report, error)

func (f calcFunc) Calculate(ctx context.Context, req gas.Request) (*gas.Report, error) {
	return f(ctx, req)
}

func failing(err error) calcFunc {
	return func(context.Context, gas.Request) (*gas.Report, error) { return nil, err }
}

func newTestServer(calc Calculator) *Server {
	return New(Options{CacheName: "memory"}, calc, chain.NewRegistry(), metrics.New(), nil)
}

func do(s *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)
	return w
}

func decodeError(t *testing.T, w *httptest.ResponseRecorder) errorBody {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body), w.Body.String())
	return body
}

var fixedNow = time.Unix(1_700_000_000, 0)

// fakeExplorer serves block lookups and a fixed tx list in Etherscan format.
func fakeExplorer(t *testing.T, blockResult string, txs []explorer.Transaction) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		switch q.Get("action") {
		case "getblocknobytime":
			result := blockResult
			if result == "" {
				if q.Get("timestamp") == fmt.Sprint(fixedNow.Unix()) {
					result = "200"
				} else {
					result = "100"
				}
			}
			json.NewEncoder(w).Encode(map[string]any{"status": "1", "message": "OK", "result": result}) //nolint:errcheck
		case "txlist":
			json.NewEncoder(w).Encode(map[string]any{"status": "1", "message": "OK", "result": txs}) //nolint:errcheck
		default:
			http.Error(w, "unknown action", http.StatusBadRequest)
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func scenarioTxs() []explorer.Transaction {
	return []explorer.Transaction{
		{Hash: "0x1", From: "0xabc", GasUsed: "21000", GasPrice: "1000000000"},
		{Hash: "0x2", From: "0xabc", GasUsed: "50000", GasPrice: "1000000000"},
		{Hash: "0x3", From: "0xdef", GasUsed: "99999", GasPrice: "1000000000"},
	}
}

func factoryFor(baseURL string) *gas.Factory {
	client := explorer.New(explorer.Config{BaseURL: baseURL, APIKey: "K", RetryInterval: time.Millisecond})
	return gas.NewFactory(chain.NewRegistry(), client, chain.DefaultChain,
		gas.WithClock(func() time.Time { return fixedNow }))
}

// ---------------------------------------------------------------------------
// routes
// ---------------------------------------------------------------------------

func TestRoot(t *testing.T) {
	w := do(newTestServer(nil), http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Hello world!", w.Body.String())
}

func TestHealth(t *testing.T) {
	w := do(newTestServer(nil), http.MethodGet, "/health", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","cache":"memory"}`, w.Body.String())
}

func TestHealthDefaultsToDisabled(t *testing.T) {
	s := New(Options{}, nil, nil, nil, nil)
	w := do(s, http.MethodGet, "/health", "")
	assert.JSONEq(t, `{"status":"ok","cache":"disabled"}`, w.Body.String())
}

func TestPeriods(t *testing.T) {
	w := do(newTestServer(nil), http.MethodGet, "/periods", "")
	require.Equal(t, http.StatusOK, w.Code)

	var got []struct {
		Name    string `json:"name"`
		Seconds int64  `json:"seconds"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 7)
	assert.Equal(t, "Last24Hours", got[0].Name)
	assert.Equal(t, int64(86400), got[0].Seconds)
	assert.Equal(t, "AllTime", got[6].Name)
}

func TestChains(t *testing.T) {
	w := do(newTestServer(nil), http.MethodGet, "/chains", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"chain_id":8453`)
}

func TestNoRoute(t *testing.T) {
	w := do(newTestServer(nil), http.MethodGet, "/nope", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, codeNotFound, decodeError(t, w).Code)
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(nil)
	do(s, http.MethodGet, "/", "")

	w := do(s, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http./.status.200")
}

// ---------------------------------------------------------------------------
// POST /calculate end to end
// ---------------------------------------------------------------------------

func TestCalculateScenario(t *testing.T) {
	exp := fakeExplorer(t, "", scenarioTxs())
	s := newTestServer(factoryFor(exp.URL))

	w := do(s, http.MethodPost, "/calculate", `{"address":"0xABC","time_period":"Last24Hours"}`)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp gas.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, uint64(71000), resp.GasUsed)
	assert.Equal(t, 2, resp.TxCount)
	assert.Equal(t, uint64(100), resp.StartBlock)
	assert.Equal(t, uint64(200), resp.EndBlock)
	assert.Equal(t, "ethereum", resp.Chain)
	assert.Equal(t, "Last24Hours", resp.TimePeriod)
	assert.Equal(t, "71000000000000", resp.FeeWei)
	assert.Equal(t, "0.000071", resp.FeeETH)
}

func TestCalculateAllTime(t *testing.T) {
	exp := fakeExplorer(t, "", scenarioTxs())
	s := newTestServer(factoryFor(exp.URL))

	w := do(s, http.MethodPost, "/calculate", `{"address":"0xabc","time_period":"AllTime"}`)
	require.Equal(t, http.StatusOK, w.Code)
	var resp gas.Response
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, uint64(0), resp.StartBlock)
}

func TestCalculateNonNumericBlock(t *testing.T) {
	exp := fakeExplorer(t, "Error! No closest block found", nil)
	s := newTestServer(factoryFor(exp.URL))

	w := do(s, http.MethodPost, "/calculate", `{"address":"0xabc","time_period":"Last7Days"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, codeUpstreamMalformed, decodeError(t, w).Code)
}

func TestCalculateExplorerNotOK(t *testing.T) {
	exp := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte(`{"status":"0","message":"NOTOK","result":"Invalid API Key"}`)) //nolint:errcheck
	}))
	defer exp.Close()
	s := newTestServer(factoryFor(exp.URL))

	w := do(s, http.MethodPost, "/calculate", `{"address":"0xabc","time_period":"Last7Days"}`)
	assert.Equal(t, http.StatusBadGateway, w.Code)
	body := decodeError(t, w)
	assert.Equal(t, codeUpstream, body.Code)
	assert.Contains(t, body.Error, "Invalid API Key")
}

func TestCalculateUnknownChain(t *testing.T) {
	exp := fakeExplorer(t, "", nil)
	s := newTestServer(factoryFor(exp.URL))

	w := do(s, http.MethodPost, "/calculate", `{"address":"0xabc","time_period":"Last7Days","chain":"dogechain"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, codeUnknownChain, decodeError(t, w).Code)
}

func TestCalculateUnknownPeriod(t *testing.T) {
	exp := fakeExplorer(t, "", nil)
	s := newTestServer(factoryFor(exp.URL))

	w := do(s, http.MethodPost, "/calculate", `{"address":"0xabc","time_period":"LastCentury"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, codeUnknownPeriod, decodeError(t, w).Code)
}

// ---------------------------------------------------------------------------
// POST /calculate request validation and error mapping
// ---------------------------------------------------------------------------

func TestCalculateMalformedJSON(t *testing.T) {
	s := newTestServer(failing(errors.New("must not be called")))
	w := do(s, http.MethodPost, "/calculate", `{"address":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, codeInvalidRequest, decodeError(t, w).Code)
}

func TestCalculateMissingAddress(t *testing.T) {
	s := newTestServer(failing(errors.New("must not be called")))
	w := do(s, http.MethodPost, "/calculate", `{"time_period":"Last24Hours"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, codeInvalidRequest, decodeError(t, w).Code)
}

func TestCalculatePassesRequestThrough(t *testing.T) {
	var got gas.Request
	s := newTestServer(calcFunc(func(_ context.Context, req gas.Request) (*gas.Report, error) {
		got = req
		return &gas.Report{GasUsed: 5, Period: req.Period, Chain: "base", Currency: "usd"}, nil
	}))

	w := do(s, http.MethodPost, "/calculate", `{"address":"0xabc","time_period":"Last30Days","chain":"base","currency":"usd"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, gas.Request{Address: "0xabc", Period: "Last30Days", Chain: "base", Currency: "usd"}, got)
	assert.Contains(t, w.Body.String(), `"gas_used":5`)
}

func TestCalculateTruncatedWarning(t *testing.T) {
	s := newTestServer(calcFunc(func(context.Context, gas.Request) (*gas.Report, error) {
		return &gas.Report{GasUsed: 1, Truncated: true}, nil
	}))
	w := do(s, http.MethodPost, "/calculate", `{"address":"0xabc","time_period":"AllTime"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "lower bound")
}

func TestCalculateRequestDeadline(t *testing.T) {
	var deadline time.Time
	slow := calcFunc(func(ctx context.Context, _ gas.Request) (*gas.Report, error) {
		deadline, _ = ctx.Deadline()
		<-ctx.Done()
		return nil, fmt.Errorf("fetching transactions: %w", ctx.Err())
	})
	s := New(Options{RequestTimeout: 20 * time.Millisecond}, slow, nil, nil, nil)

	start := time.Now()
	w := do(s, http.MethodPost, "/calculate", `{"address":"0xabc","time_period":"AllTime"}`)
	assert.Equal(t, http.StatusGatewayTimeout, w.Code)
	assert.Equal(t, codeUpstreamTimeout, decodeError(t, w).Code)
	assert.False(t, deadline.IsZero())
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestNewKeepsRequestTimeoutBelowWriteTimeout(t *testing.T) {
	s := New(Options{WriteTimeout: 60 * time.Second}, nil, nil, nil, nil)
	assert.Equal(t, 50*time.Second, s.opts.RequestTimeout)

	s = New(Options{WriteTimeout: 60 * time.Second, RequestTimeout: 90 * time.Second}, nil, nil, nil, nil)
	assert.Less(t, s.opts.RequestTimeout, 60*time.Second)

	s = New(Options{WriteTimeout: 60 * time.Second, RequestTimeout: 30 * time.Second}, nil, nil, nil, nil)
	assert.Equal(t, 30*time.Second, s.opts.RequestTimeout)
}

func TestCalculateErrorMapping(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"blank address", gas.ErrInvalidAddress, 400, codeInvalidRequest},
		{"timeout", fmt.Errorf("resolving end block: %w", context.DeadlineExceeded), 504, codeUpstreamTimeout},
		{"cancelled", context.Canceled, 499, codeCancelled},
		{"gas used", fmt.Errorf("%w: %q", gas.ErrInvalidGasUsed, "x"), 502, codeUpstreamMalformed},
		{"status", &explorer.StatusError{Action: "txlist", StatusCode: 503}, 502, codeUpstream},
		{"unexpected", errors.New("boom"), 500, codeInternal},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(failing(tc.err))
			w := do(s, http.MethodPost, "/calculate", `{"address":"0xabc","time_period":"Last24Hours"}`)
			assert.Equal(t, tc.status, w.Code)
			assert.Equal(t, tc.code, decodeError(t, w).Code)
		})
	}
}

func TestInternalErrorHidesDetail(t *testing.T) {
	s := newTestServer(failing(errors.New("db password is hunter2")))
	w := do(s, http.MethodPost, "/calculate", `{"address":"0xabc","time_period":"Last24Hours"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "hunter2")
}

// ---------------------------------------------------------------------------
// middleware
// ---------------------------------------------------------------------------

func TestPanicRecovered(t *testing.T) {
	s := newTestServer(calcFunc(func(context.Context, gas.Request) (*gas.Report, error) {
		panic("kaboom")
	}))
	w := do(s, http.MethodPost, "/calculate", `{"address":"0xabc","time_period":"Last24Hours"}`)
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, codeInternal, decodeError(t, w).Code)

	// The server keeps serving.
	assert.Equal(t, http.StatusOK, do(s, http.MethodGet, "/", "").Code)
}

func TestRequestIDGenerated(t *testing.T) {
	w := do(newTestServer(nil), http.MethodGet, "/", "")
	assert.Len(t, w.Header().Get(RequestIDHeader), 36)
}

func TestRequestIDPropagated(t *testing.T) {
	var seen string
	s := newTestServer(calcFunc(func(ctx context.Context, _ gas.Request) (*gas.Report, error) {
		seen = RequestIDFrom(ctx)
		return &gas.Report{}, nil
	}))

	req := httptest.NewRequest(http.MethodPost, "/calculate", strings.NewReader(`{"address":"0xabc","time_period":"AllTime"}`))
	req.Header.Set(RequestIDHeader, "req-123")
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, "req-123", w.Header().Get(RequestIDHeader))
	assert.Equal(t, "req-123", seen)
}

func TestCORSPreflight(t *testing.T) {
	s := New(Options{CORSOrigins: []string{"https://app.example"}}, nil, nil, nil, nil)

	req := httptest.NewRequest(http.MethodOptions, "/calculate", nil)
	req.Header.Set("Origin", "https://app.example")
	req.Header.Set("Access-Control-Request-Method", http.MethodPost)
	w := httptest.NewRecorder()
	s.Handler().ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://app.example", w.Header().Get("Access-Control-Allow-Origin"))
}

// ---------------------------------------------------------------------------
// Run
// ---------------------------------------------------------------------------

func TestRunStopsOnContextCancel(t *testing.T) {
	s := New(Options{Addr: "127.0.0.1:0", ShutdownTimeout: time.Second}, nil, nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()
	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunServesInheritedListener(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := New(Options{Listener: ln, ShutdownTimeout: time.Second}, nil, nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	resp, err := http.Get("http://" + ln.Addr().String() + "/health")
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(3 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRunListenError(t *testing.T) {
	s := New(Options{Addr: "256.0.0.1:99999"}, nil, nil, nil, nil)
	err := s.Run(context.Background())
	assert.Error(t, err)
}

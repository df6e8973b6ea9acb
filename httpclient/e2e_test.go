package httpclient_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gaborage/restbricks/httpclient"
	"github.com/gaborage/restbricks/rest"
)

const rpcOK = `{"jsonrpc":"2.0","id":1,"result":{"ok":true}}`

type rpcResponse[T any] struct {
	JSONRPC string `json:"jsonrpc"`
	ID      uint64 `json:"id"`
	Result  T      `json:"result"`
}

type okResult struct {
	OK bool `json:"ok"`
}

type rpcServer struct {
	*httptest.Server
	retryCalls atomic.Int32
}

func newRPCServer(t *testing.T) *rpcServer {
	t.Helper()
	s := &rpcServer{}

	e := echo.New()
	e.HideBanner = true
	e.POST("/jsonrpc/ok", func(c echo.Context) error {
		return c.JSONBlob(http.StatusOK, []byte(rpcOK))
	})
	e.POST("/jsonrpc/retry-once", func(c echo.Context) error {
		if s.retryCalls.Add(1) == 1 {
			return c.String(http.StatusServiceUnavailable, "service unavailable")
		}
		return c.JSONBlob(http.StatusOK, []byte(rpcOK))
	})
	e.POST("/jsonrpc/timeout", func(c echo.Context) error {
		select {
		case <-time.After(3 * time.Second):
		case <-c.Request().Context().Done():
			return nil
		}
		return c.JSONBlob(http.StatusOK, []byte(rpcOK))
	})

	s.Server = httptest.NewServer(e)
	t.Cleanup(s.Close)
	return s
}

func rpcCall(url, method string) rest.Request {
	return rest.Post(url).WithBody([]byte(`{"jsonrpc":"2.0","id":1,"method":"` + method + `","params":{}}`))
}

func TestJSONRPCRoundTrip(t *testing.T) {
	srv := newRPCServer(t)
	client := rest.New(httpclient.New(nil))

	got, err := rest.ExecuteJSONChecked[rpcResponse[okResult]](context.Background(), client, rpcCall(srv.URL+"/jsonrpc/ok", "ok"))
	require.NoError(t, err)
	assert.Equal(t, "2.0", got.JSONRPC)
	assert.Equal(t, uint64(1), got.ID)
	assert.True(t, got.Result.OK)
}

func TestJSONRPCRetryOnStatus(t *testing.T) {
	srv := newRPCServer(t)
	client := rest.New(httpclient.New(nil))

	req := rpcCall(srv.URL+"/jsonrpc/retry-once", "retry").WithRetryOnStatus(http.StatusServiceUnavailable, 1)
	got, err := rest.ExecuteJSONChecked[rpcResponse[okResult]](context.Background(), client, req)
	require.NoError(t, err)
	assert.True(t, got.Result.OK)
	assert.Equal(t, int32(2), srv.retryCalls.Load())
}

func TestJSONRPCRejectedWithoutPolicy(t *testing.T) {
	srv := newRPCServer(t)
	client := rest.New(httpclient.New(nil))

	_, err := rest.ExecuteJSONChecked[rpcResponse[okResult]](context.Background(), client, rpcCall(srv.URL+"/jsonrpc/retry-once", "retry"))
	require.Error(t, err)
	assert.True(t, rest.IsKind(err, rest.KindRejected))
	assert.False(t, rest.IsRetryable(err))
	assert.Equal(t, int32(1), srv.retryCalls.Load())
}

func TestJSONRPCDefaultTimeout(t *testing.T) {
	if testing.Short() {
		t.Skip("waits for the default two second timeout")
	}
	srv := newRPCServer(t)
	client := rest.New(httpclient.New(nil))

	start := time.Now()
	_, err := rest.ExecuteJSONChecked[rpcResponse[okResult]](context.Background(), client, rpcCall(srv.URL+"/jsonrpc/timeout", "slow"))
	require.Error(t, err)
	assert.True(t, rest.IsKind(err, rest.KindTimeout))
	assert.GreaterOrEqual(t, time.Since(start), rest.DefaultTimeout)
}

func TestJSONRPCExplicitTimeout(t *testing.T) {
	srv := newRPCServer(t)
	client := rest.New(httpclient.New(nil))

	start := time.Now()
	req := rpcCall(srv.URL+"/jsonrpc/timeout", "slow").WithTimeout(200 * time.Millisecond)
	_, err := rest.ExecuteJSONChecked[rpcResponse[okResult]](context.Background(), client, req)
	require.Error(t, err)
	assert.True(t, rest.IsKind(err, rest.KindTimeout))
	assert.Less(t, time.Since(start), rest.DefaultTimeout)
}

func TestJSONRPCDirect(t *testing.T) {
	srv := newRPCServer(t)
	client := rest.New(httpclient.New(nil))

	got, err := rest.ExecuteJSONCheckedDirect[rpcResponse[okResult]](context.Background(), client, rpcCall(srv.URL+"/jsonrpc/ok", "ok"))
	require.NoError(t, err)
	assert.True(t, got.Result.OK)
}

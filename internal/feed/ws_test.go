package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{}

// feedServer sends each frame once to every connecting client.
func feedServer(t *testing.T, frames []string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for _, f := range frames {
			if err := conn.WriteMessage(websocket.TextMessage, []byte(f)); err != nil {
				return
			}
		}
		// keep the connection open until the client goes away
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return srv
}

func wsURL(srv *httptest.Server) string {
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestSubscribe_DecodesOpportunities(t *testing.T) {
	srv := feedServer(t, []string{
		`{"type":"heartbeat"}`,
		`not json at all`,
		`{"type":"opportunity","data":{"route_id":"","chain":"ethereum"}}`,
		`{"type":"opportunity","data":{"route_id":"r1","chain":"solana"}}`,
		`{"type":"opportunity","data":{
			"route_id":"weth-usdc-weth",
			"chain":"ethereum",
			"tokens":["WETH","USDC","WETH"],
			"dexes":["uniswap_v3","sushiswap"],
			"input_amount":50000,
			"expected_output":50120,
			"profit_usd":120,
			"gas_estimate":300000,
			"gas_price":25
		}}`,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	ch := NewWS(wsURL(srv), zap.NewNop()).Subscribe(ctx)

	select {
	case opp := <-ch:
		require.NotNil(t, opp)
		// heartbeat, garbage, missing-route and unknown-chain frames were all
		// dropped; only the complete one survives
		assert.Equal(t, "weth-usdc-weth", opp.RouteID)
		assert.Equal(t, []string{"WETH", "USDC", "WETH"}, opp.Tokens)
		assert.Equal(t, 120.0, opp.ProfitUSD)
		assert.Equal(t, 2, opp.Hops())
	case <-ctx.Done():
		t.Fatal("no opportunity received")
	}

	cancel()
	// channel closes after cancellation
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("channel not closed after cancel")
		}
	}
}

func TestSubscribe_ReconnectsAfterDrop(t *testing.T) {
	var conns atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		if conns.Add(1) == 1 {
			// first connection dies immediately
			conn.Close()
			return
		}
		defer conn.Close()
		_ = conn.WriteMessage(websocket.TextMessage,
			[]byte(`{"type":"opportunity","data":{"route_id":"r2","chain":"polygon"}}`))
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	ch := NewWS(wsURL(srv), zap.NewNop()).Subscribe(ctx)

	select {
	case opp := <-ch:
		require.NotNil(t, opp)
		assert.Equal(t, "r2", opp.RouteID)
		assert.GreaterOrEqual(t, conns.Load(), int32(2))
	case <-ctx.Done():
		t.Fatal("no opportunity after reconnect")
	}
}

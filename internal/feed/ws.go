package feed

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/fxgeniusllc-oss/APEX-ARBITRAGE-SYSTEM-sub003/internal/types"
)

const (
	readDeadline = 90 * time.Second
	pingEvery    = 20 * time.Second
	maxBackoff   = 30 * time.Second
)

// envelope is the upstream detector's wire format. Anything whose type is
// not "opportunity" is ignored.
type envelope struct {
	Type string            `json:"type"`
	Data json.RawMessage   `json:"data"`
	Meta map[string]string `json:"meta,omitempty"`
}

// WS consumes the opportunity feed over a websocket, reconnecting with
// exponential backoff until the context is cancelled.
type WS struct {
	URL    string
	Dialer *websocket.Dialer
	log    *zap.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

func NewWS(url string, log *zap.Logger) *WS {
	return &WS{
		URL: strings.TrimRight(url, "/"),
		Dialer: &websocket.Dialer{
			HandshakeTimeout:  15 * time.Second,
			EnableCompression: true,
		},
		log: log,
	}
}

func (w *WS) connect(ctx context.Context) (*websocket.Conn, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		return w.conn, nil
	}
	c, _, err := w.Dialer.DialContext(ctx, w.URL, nil)
	if err != nil {
		return nil, err
	}
	_ = c.SetReadDeadline(time.Now().Add(readDeadline))
	c.SetPongHandler(func(string) error {
		return c.SetReadDeadline(time.Now().Add(readDeadline))
	})
	w.conn = c
	return c, nil
}

func (w *WS) closeConn() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.conn != nil {
		_ = w.conn.Close()
		w.conn = nil
	}
}

// Subscribe opens the feed and returns a channel of decoded opportunities.
// The channel is closed when ctx is cancelled. Connection drops are retried
// forever with exponential backoff; malformed frames are counted and dropped.
func (w *WS) Subscribe(ctx context.Context) <-chan *types.Opportunity {
	out := make(chan *types.Opportunity, 1024)

	go func() {
		defer close(out)
		backoff := time.Second
		for {
			if ctx.Err() != nil {
				return
			}
			conn, err := w.connect(ctx)
			if err != nil {
				w.log.Warn("feed dial failed", zap.String("url", w.URL), zap.Error(err))
				select {
				case <-ctx.Done():
					return
				case <-time.After(backoff):
				}
				if backoff *= 2; backoff > maxBackoff {
					backoff = maxBackoff
				}
				continue
			}
			backoff = time.Second
			w.log.Info("feed connected", zap.String("url", w.URL))
			w.readLoop(ctx, conn, out)
			w.closeConn()
		}
	}()

	return out
}

func (w *WS) readLoop(ctx context.Context, conn *websocket.Conn, out chan<- *types.Opportunity) {
	pingStop := make(chan struct{})
	defer close(pingStop)
	go func() {
		t := time.NewTicker(pingEvery)
		defer t.Stop()
		for {
			select {
			case <-ctx.Done():
				// unblock the pending read
				_ = conn.Close()
				return
			case <-pingStop:
				return
			case <-t.C:
				_ = conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(5*time.Second))
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() == nil {
				w.log.Warn("feed read error, reconnecting", zap.Error(err))
			}
			return
		}
		_ = conn.SetReadDeadline(time.Now().Add(readDeadline))

		if msgType != websocket.TextMessage {
			continue
		}

		var env envelope
		if err := json.Unmarshal(data, &env); err != nil {
			w.log.Debug("feed frame not json, dropped", zap.Error(err))
			continue
		}
		if env.Type != "opportunity" {
			continue
		}

		var opp types.Opportunity
		if err := json.Unmarshal(env.Data, &opp); err != nil {
			w.log.Warn("opportunity payload malformed, dropped", zap.Error(err))
			continue
		}
		if opp.RouteID == "" || !opp.Chain.Known() {
			w.log.Debug("opportunity missing route or chain, dropped",
				zap.String("route_id", opp.RouteID), zap.String("chain", string(opp.Chain)))
			continue
		}

		select {
		case out <- &opp:
		default:
			// consumer is behind; drop the oldest by skipping this frame
			w.log.Warn("feed buffer full, frame dropped", zap.String("route_id", opp.RouteID))
		}
	}
}

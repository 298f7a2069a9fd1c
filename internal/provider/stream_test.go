package provider

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"runtime"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"cryptotrackerv1/internal/model"
)

func newTestStream() *Stream {
	subs := []Subscription{
		{Symbol: "BTC", Pair: "BTCUSDT", Timeframe: model.TF1h},
	}
	return NewStream("", subs, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func klineMsg(symbol, interval string, final bool) []byte {
	finalStr := "false"
	if final {
		finalStr = "true"
	}
	return []byte(`{"stream":"btcusdt@kline_1h","data":{"s":"` + symbol + `","k":{
		"t":1700000000000,"i":"` + interval + `",
		"o":"42000.10","h":"42100.00","l":"41900.50","c":"42050.25","v":"123.456",
		"x":` + finalStr + `}}}`)
}

func TestStream_FinalKlineEmitsCandleClose(t *testing.T) {
	s := newTestStream()
	s.handleMessage(klineMsg("BTCUSDT", "1h", true))

	select {
	case ev := <-s.Events():
		if ev.Symbol != "BTC" || ev.Timeframe != model.TF1h {
			t.Errorf("event identity: got %s/%s", ev.Symbol, ev.Timeframe)
		}
		if ev.Candle.Close != 42050.25 || ev.Candle.TS != 1700000000000 {
			t.Errorf("candle: got %+v", ev.Candle)
		}
	default:
		t.Fatal("expected a candle-close event")
	}
}

func TestStream_IgnoresNonFinalAndUnknown(t *testing.T) {
	s := newTestStream()

	s.handleMessage(klineMsg("BTCUSDT", "1h", false)) // still forming
	s.handleMessage(klineMsg("ETHUSDT", "1h", true))  // not subscribed
	s.handleMessage(klineMsg("BTCUSDT", "1d", true))  // wrong timeframe
	s.handleMessage([]byte("not json"))

	select {
	case ev := <-s.Events():
		t.Fatalf("unexpected event: %+v", ev)
	default:
	}
}

func TestStream_ReconnectReleasesWatcher(t *testing.T) {
	var conns int32
	up := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		c, err := up.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		atomic.AddInt32(&conns, 1)
		c.Close() // force an immediate reconnect
	}))
	defer srv.Close()

	s := NewStream("ws"+strings.TrimPrefix(srv.URL, "http"), []Subscription{
		{Symbol: "BTC", Pair: "BTCUSDT", Timeframe: model.TF1h},
	}, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.backoff = time.Millisecond

	before := runtime.NumGoroutine()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) && atomic.LoadInt32(&conns) < 5 {
		time.Sleep(time.Millisecond)
	}
	if got := atomic.LoadInt32(&conns); got < 5 {
		t.Fatalf("connections: got %d, wanted several reconnects", got)
	}

	// Transient dial/serve goroutines wind down between reconnects; one
	// orphaned watcher per connection would keep the count inflated.
	for time.Now().Before(deadline) {
		if runtime.NumGoroutine() <= before+4 {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Errorf("goroutines: got %d after %d connections, started with %d",
		runtime.NumGoroutine(), atomic.LoadInt32(&conns), before)
}

func TestStream_CombinedStreamPath(t *testing.T) {
	subs := []Subscription{
		{Symbol: "BTC", Pair: "BTCUSDT", Timeframe: model.TF1h},
		{Symbol: "ETH", Pair: "ETHUSDT", Timeframe: model.TF1d},
	}
	s := NewStream("", subs, slog.New(slog.NewTextHandler(io.Discard, nil)))
	if got := s.streamPath(); got != "btcusdt@kline_1h/ethusdt@kline_1d" {
		t.Errorf("streamPath: got %q", got)
	}
}

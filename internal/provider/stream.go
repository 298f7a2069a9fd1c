package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"

	"cryptotrackerv1/internal/model"
)

const defaultStreamURL = "wss://stream.binance.com:9443/stream"

// Subscription names one (symbol, timeframe) kline stream to follow.
type Subscription struct {
	Symbol    string // internal coin ticker, e.g. "BTC"
	Pair      string // exchange pair, e.g. "BTCUSDT"
	Timeframe model.Timeframe
}

// CandleClose is emitted when the exchange marks a kline as final. The
// orchestrator uses it to refresh the affected bundle ahead of its TTL.
type CandleClose struct {
	Symbol    string
	Timeframe model.Timeframe
	Candle    model.Candle
}

// Stream follows exchange kline WebSocket streams and emits close events.
// It reconnects with capped exponential backoff until its context ends.
type Stream struct {
	url     string
	subs    []Subscription
	out     chan CandleClose
	log     *slog.Logger
	backoff time.Duration // initial reconnect delay
}

// NewStream creates a Stream for the given subscriptions. url may be empty
// for the public endpoint.
func NewStream(url string, subs []Subscription, log *slog.Logger) *Stream {
	if url == "" {
		url = defaultStreamURL
	}
	return &Stream{
		url:     url,
		subs:    subs,
		out:     make(chan CandleClose, 64),
		log:     log,
		backoff: time.Second,
	}
}

// Events returns the candle-close event channel.
func (s *Stream) Events() <-chan CandleClose { return s.out }

// Run connects and consumes until ctx is cancelled. Blocks.
func (s *Stream) Run(ctx context.Context) {
	if len(s.subs) == 0 {
		return
	}
	backoff := s.backoff
	for {
		if err := s.consume(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			s.log.Warn("kline stream disconnected", "err", err, "retry_in", backoff)
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(backoff):
		}
		backoff *= 2
		if backoff > 30*time.Second {
			backoff = 30 * time.Second
		}
	}
}

func (s *Stream) consume(ctx context.Context) error {
	endpoint := s.url + "?streams=" + s.streamPath()
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}
	defer conn.Close()

	// The watcher unblocks ReadMessage on cancellation and is released when
	// this connection ends, so reconnects don't accumulate goroutines.
	watchDone := make(chan struct{})
	defer close(watchDone)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-watchDone:
		}
	}()

	s.log.Info("kline stream connected", "streams", len(s.subs))

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}
		s.handleMessage(msg)
	}
}

func (s *Stream) streamPath() string {
	parts := make([]string, 0, len(s.subs))
	for _, sub := range s.subs {
		parts = append(parts, strings.ToLower(sub.Pair)+"@kline_"+string(sub.Timeframe))
	}
	return strings.Join(parts, "/")
}

// klineEvent is the combined-stream kline message envelope.
type klineEvent struct {
	Data struct {
		Symbol string `json:"s"`
		Kline  struct {
			Start    int64  `json:"t"`
			Interval string `json:"i"`
			Open     string `json:"o"`
			High     string `json:"h"`
			Low      string `json:"l"`
			Close    string `json:"c"`
			Volume   string `json:"v"`
			Final    bool   `json:"x"`
		} `json:"k"`
	} `json:"data"`
}

func (s *Stream) handleMessage(msg []byte) {
	var ev klineEvent
	if err := json.Unmarshal(msg, &ev); err != nil {
		return
	}
	k := ev.Data.Kline
	if !k.Final {
		return // only closed candles trigger a refresh
	}

	sub, ok := s.lookup(ev.Data.Symbol, model.Timeframe(k.Interval))
	if !ok {
		return
	}

	candle := model.Candle{TS: k.Start}
	var err error
	if candle.Open, err = parsePrice(k.Open); err != nil {
		return
	}
	if candle.High, err = parsePrice(k.High); err != nil {
		return
	}
	if candle.Low, err = parsePrice(k.Low); err != nil {
		return
	}
	if candle.Close, err = parsePrice(k.Close); err != nil {
		return
	}
	candle.Volume, _ = parsePrice(k.Volume)

	select {
	case s.out <- CandleClose{Symbol: sub.Symbol, Timeframe: sub.Timeframe, Candle: candle}:
	default:
		// drop when the consumer lags; the TTL refresh will catch up
	}
}

func (s *Stream) lookup(pair string, tf model.Timeframe) (Subscription, bool) {
	for _, sub := range s.subs {
		if strings.EqualFold(sub.Pair, pair) && sub.Timeframe == tf {
			return sub, true
		}
	}
	return Subscription{}, false
}

func parsePrice(s string) (float64, error) {
	return strconv.ParseFloat(s, 64)
}

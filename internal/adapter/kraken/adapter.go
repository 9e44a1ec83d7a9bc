// Package kraken implements the second venue adapter: a websocket book
// subscriber over Kraken's v2 public API, following the same
// dial/read-loop/reconnect shape as internal/adapter/binance, plus a
// REST snapshot fetcher (snapshot.go) feeding the alternate router
// path.
package kraken

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/ai-agentic-browser/internal/venue"
	"github.com/ai-agentic-browser/pkg/observability"
)

// Config carries the connection parameters for this adapter.
type Config struct {
	Symbol       string // e.g. "BTC/USD", Kraken's slash-separated pair notation
	WSBaseURL    string
	Depth        int
	ReconnectMin time.Duration
	ReconnectMax time.Duration
}

// levelKey identifies one resting (side, price) level this adapter has
// last advertised, for the disconnect flush in flushLastBook.
type levelKey struct {
	side  venue.Side
	price int64
}

// Adapter implements venue.Adapter for Kraken's v2 "book" channel.
type Adapter struct {
	cfg    Config
	logger *observability.VenueLogger

	connected  atomic.Bool
	lastUpdate atomic.Int64
	mu         sync.Mutex
	conn       *websocket.Conn

	// levels tracks every (side, price) this adapter currently
	// advertises as non-zero. Only ever touched from the Run
	// goroutine, so it needs no lock.
	levels map[levelKey]struct{}
}

func New(cfg Config, logger *observability.Logger) *Adapter {
	a := &Adapter{cfg: cfg, levels: make(map[levelKey]struct{})}
	if logger != nil {
		a.logger = logger.WithVenue(venue.Kraken)
	}
	return a
}

func (a *Adapter) Venue() venue.ID { return venue.Kraken }

func (a *Adapter) Connected() bool { return a.connected.Load() }

func (a *Adapter) LastUpdate() int64 { return a.lastUpdate.Load() }

func (a *Adapter) Run(ctx context.Context, out chan<- venue.Update) error {
	backoff := a.cfg.ReconnectMin
	if backoff <= 0 {
		backoff = time.Second
	}
	maxBackoff := a.cfg.ReconnectMax
	if maxBackoff <= 0 {
		maxBackoff = 30 * time.Second
	}

	for {
		if ctx.Err() != nil {
			return nil
		}

		if err := a.runOnce(ctx, out); err != nil {
			a.logWarn(ctx, "kraken stream ended, reconnecting", err)
			a.flushLastBook(ctx, out)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

func (a *Adapter) runOnce(ctx context.Context, out chan<- venue.Update) error {
	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.DialContext(ctx, a.cfg.WSBaseURL, nil)
	if err != nil {
		return fmt.Errorf("dial kraken book stream: %w", err)
	}

	a.mu.Lock()
	a.conn = conn
	a.mu.Unlock()
	a.connected.Store(true)
	defer func() {
		a.connected.Store(false)
		conn.Close()
	}()

	if err := a.subscribe(conn); err != nil {
		return fmt.Errorf("subscribe kraken book channel: %w", err)
	}

	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))

	go func() {
		<-ctx.Done()
		conn.Close()
	}()

	depth := a.cfg.Depth
	if depth <= 0 {
		depth = 10
	}

	for {
		msgType, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read kraken book frame: %w", err)
		}
		if msgType != websocket.TextMessage {
			continue
		}
		a.handleFrame(ctx, message, out)
	}
}

func (a *Adapter) subscribe(conn *websocket.Conn) error {
	depth := a.cfg.Depth
	if depth <= 0 {
		depth = 10
	}
	req := map[string]any{
		"method": "subscribe",
		"params": map[string]any{
			"channel": "book",
			"symbol":  []string{a.cfg.Symbol},
			"depth":   depth,
		},
	}
	return conn.WriteJSON(req)
}

type krakenBookLevel struct {
	Price float64 `json:"price"`
	Qty   float64 `json:"qty"`
}

type krakenBookData struct {
	Symbol string            `json:"symbol"`
	Bids   []krakenBookLevel `json:"bids"`
	Asks   []krakenBookLevel `json:"asks"`
}

type krakenBookFrame struct {
	Channel string            `json:"channel"`
	Type    string            `json:"type"`
	Data    []krakenBookData  `json:"data"`
}

func (a *Adapter) handleFrame(ctx context.Context, message []byte, out chan<- venue.Update) {
	if !strings.Contains(string(message), `"channel":"book"`) {
		return
	}
	var frame krakenBookFrame
	if err := json.Unmarshal(message, &frame); err != nil {
		a.logWarn(ctx, "malformed kraken book frame", err)
		return
	}
	for _, d := range frame.Data {
		for _, lvl := range d.Bids {
			a.emit(out, venue.Buy, lvl)
		}
		for _, lvl := range d.Asks {
			a.emit(out, venue.Sell, lvl)
		}
	}
}

func (a *Adapter) emit(out chan<- venue.Update, side venue.Side, lvl krakenBookLevel) {
	u := venue.Update{
		Venue:  venue.Kraken,
		Side:   side,
		Price:  venue.PriceToTicks(decimal.NewFromFloat(lvl.Price)),
		Volume: venue.VolumeToUnits(decimal.NewFromFloat(lvl.Qty)),
	}
	a.trackLevel(u)
	a.lastUpdate.Store(time.Now().UnixNano())
	out <- u
}

func (a *Adapter) trackLevel(u venue.Update) {
	key := levelKey{side: u.Side, price: u.Price}
	if u.Volume > 0 {
		a.levels[key] = struct{}{}
	} else {
		delete(a.levels, key)
	}
}

// flushLastBook pushes a volume=0 update for every level this adapter
// last advertised as non-zero, so a dropped connection doesn't leave
// resting size behind in the side books. Stops early if ctx is already
// canceled rather than blocking on out forever.
func (a *Adapter) flushLastBook(ctx context.Context, out chan<- venue.Update) {
	for key := range a.levels {
		u := venue.Update{Venue: venue.Kraken, Side: key.side, Price: key.price, Volume: 0}
		select {
		case out <- u:
			a.lastUpdate.Store(time.Now().UnixNano())
		case <-ctx.Done():
			return
		}
	}
	a.levels = make(map[levelKey]struct{})
}

func (a *Adapter) logWarn(ctx context.Context, msg string, err error) {
	if a.logger == nil {
		return
	}
	a.logger.Warn(ctx, fmt.Sprintf("%s: %v", msg, err))
}

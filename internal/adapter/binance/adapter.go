// Package binance implements the Binance venue adapter: a websocket
// depth-stream subscriber that dials, subscribes, and normalizes
// diff-depth frames into venue.Update values, reconnecting with
// exponential backoff on drop.
package binance

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/shopspring/decimal"

	"github.com/ai-agentic-browser/internal/venue"
	"github.com/ai-agentic-browser/pkg/observability"
)

// Config carries the connection parameters the engine's venue config
// resolves for this adapter.
type Config struct {
	Symbol       string // e.g. "btcusdt", lowercase as Binance's stream path expects
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

// Adapter implements venue.Adapter for Binance's diff-depth stream.
type Adapter struct {
	cfg    Config
	logger *observability.VenueLogger

	connected  atomic.Bool
	lastUpdate atomic.Int64
	mu         sync.Mutex
	conn       *websocket.Conn

	// levels tracks every (side, price) this adapter currently
	// advertises as non-zero, so a dropped connection can flush them
	// all to zero rather than leaving stale resting size behind. Only
	// ever touched from the Run goroutine, so it needs no lock.
	levels map[levelKey]struct{}
}

// New constructs a Binance adapter. logger may be nil in tests.
func New(cfg Config, logger *observability.Logger) *Adapter {
	a := &Adapter{cfg: cfg, levels: make(map[levelKey]struct{})}
	if logger != nil {
		a.logger = logger.WithVenue(venue.Binance)
	}
	return a
}

func (a *Adapter) Venue() venue.ID { return venue.Binance }

func (a *Adapter) Connected() bool { return a.connected.Load() }

func (a *Adapter) LastUpdate() int64 { return a.lastUpdate.Load() }

// Run connects, resubscribes on every drop with exponential backoff
// bounded by [ReconnectMin, ReconnectMax], and normalizes frames onto
// out until ctx is canceled. It never returns a transport error to the
// core — malformed frames and dropped connections stay adapter-local,
// logged and recovered from here.
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
			a.logWarn(ctx, "binance stream ended, reconnecting", err)
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
	url := fmt.Sprintf("%s/%s@depth%d@100ms", strings.TrimRight(a.cfg.WSBaseURL, "/"), strings.ToLower(a.cfg.Symbol), a.cfg.Depth)

	dialer := websocket.DefaultDialer
	dialer.HandshakeTimeout = 10 * time.Second

	conn, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		return fmt.Errorf("dial binance depth stream: %w", err)
	}

	a.mu.Lock()
	a.conn = conn
	a.mu.Unlock()
	a.connected.Store(true)
	defer func() {
		a.connected.Store(false)
		conn.Close()
	}()

	_ = conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(60 * time.Second))
	})

	go a.watchContext(ctx, conn)

	for {
		msgType, message, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read binance depth frame: %w", err)
		}
		if msgType != websocket.TextMessage {
			continue
		}
		a.handleFrame(ctx, message, out)
	}
}

func (a *Adapter) watchContext(ctx context.Context, conn *websocket.Conn) {
	<-ctx.Done()
	conn.Close()
}

type depthFrame struct {
	EventType string     `json:"e"`
	Bids      [][]string `json:"b"`
	Asks      [][]string `json:"a"`
}

func (a *Adapter) handleFrame(ctx context.Context, message []byte, out chan<- venue.Update) {
	var frame depthFrame
	if err := json.Unmarshal(message, &frame); err != nil {
		a.logWarn(ctx, "malformed binance depth frame", err)
		return
	}

	for _, level := range frame.Bids {
		if u, ok := a.toUpdate(ctx, venue.Buy, level); ok {
			a.emit(out, u)
		}
	}
	for _, level := range frame.Asks {
		if u, ok := a.toUpdate(ctx, venue.Sell, level); ok {
			a.emit(out, u)
		}
	}
}

func (a *Adapter) toUpdate(ctx context.Context, side venue.Side, level []string) (venue.Update, bool) {
	if len(level) != 2 {
		return venue.Update{}, false
	}
	price, err := decimal.NewFromString(level[0])
	if err != nil {
		a.logWarn(ctx, "malformed binance price", err)
		return venue.Update{}, false
	}
	qty, err := decimal.NewFromString(level[1])
	if err != nil {
		a.logWarn(ctx, "malformed binance quantity", err)
		return venue.Update{}, false
	}
	u := venue.Update{
		Venue:  venue.Binance,
		Side:   side,
		Price:  venue.PriceToTicks(price),
		Volume: venue.VolumeToUnits(qty),
	}
	a.trackLevel(u)
	return u, true
}

func (a *Adapter) trackLevel(u venue.Update) {
	key := levelKey{side: u.Side, price: u.Price}
	if u.Volume > 0 {
		a.levels[key] = struct{}{}
	} else {
		delete(a.levels, key)
	}
}

func (a *Adapter) emit(out chan<- venue.Update, u venue.Update) {
	a.lastUpdate.Store(time.Now().UnixNano())
	out <- u
}

// flushLastBook pushes a volume=0 update for every level this adapter
// last advertised as non-zero, so a dropped connection doesn't leave
// resting size behind in the side books. Stops early if ctx is already
// canceled rather than blocking on out forever.
func (a *Adapter) flushLastBook(ctx context.Context, out chan<- venue.Update) {
	for key := range a.levels {
		u := venue.Update{Venue: venue.Binance, Side: key.side, Price: key.price, Volume: 0}
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

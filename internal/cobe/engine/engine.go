// Package engine wires the ingest pipeline, the two side-book workers,
// and the query coordinator into one running Consolidated Order Book
// Engine instance: one demultiplexer task feeding two side-book tasks,
// started and stopped as a unit.
package engine

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/ai-agentic-browser/internal/cobe/book"
	"github.com/ai-agentic-browser/internal/cobe/ingest"
	"github.com/ai-agentic-browser/internal/cobe/query"
	"github.com/ai-agentic-browser/internal/cobe/worker"
	"github.com/ai-agentic-browser/internal/venue"
	"github.com/ai-agentic-browser/pkg/observability"
)

// Config carries the engine's own tuning knobs, independent of venue
// or transport configuration (internal/config.EngineConfig maps onto
// this at startup).
type Config struct {
	Symbol       string
	UpdateBuffer int // ingest and worker channel buffer size
}

// Engine is one instance of the COBE for a single symbol. It owns the
// ingest channel, the two side books (via their workers), and the
// query coordinator. Nothing here holds a book directly — Engine only
// wires the pieces that do.
type Engine struct {
	cfg      Config
	logger   *observability.Logger
	metrics  *observability.MetricsProvider
	adapters []venue.Adapter

	coordinator *query.Coordinator

	cancel  context.CancelFunc
	running atomic.Bool
	wg      sync.WaitGroup
}

// New constructs an engine for the given symbol with the given set of
// venue adapters. It does not start anything until Start is called.
func New(cfg Config, adapters []venue.Adapter, logger *observability.Logger, metrics *observability.MetricsProvider) *Engine {
	if cfg.UpdateBuffer <= 0 {
		cfg.UpdateBuffer = 1024
	}
	return &Engine{cfg: cfg, adapters: adapters, logger: logger, metrics: metrics}
}

// Start spins up every adapter, the demultiplexer, and the two side
// workers, and is idempotent: calling it twice is a no-op.
func (e *Engine) Start(ctx context.Context) error {
	if !e.running.CompareAndSwap(false, true) {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.cancel = cancel

	ingestCh := make(chan venue.Update, e.cfg.UpdateBuffer)
	buyUpdates := make(chan book.Update, e.cfg.UpdateBuffer)
	sellUpdates := make(chan book.Update, e.cfg.UpdateBuffer)
	buyQueries := make(chan worker.QuoteRequest, e.cfg.UpdateBuffer)
	sellQueries := make(chan worker.QuoteRequest, e.cfg.UpdateBuffer)

	var adapterWG sync.WaitGroup
	for _, a := range e.adapters {
		adapterWG.Add(1)
		go func(a venue.Adapter) {
			defer adapterWG.Done()
			if err := a.Run(runCtx, ingestCh); err != nil {
				e.logError(runCtx, fmt.Sprintf("%s adapter exited", a.Venue()), err)
			}
		}(a)
	}

	// ingestCh has multiple producers (one per adapter); only the
	// engine closes it, and only after every producer has returned, so
	// no sender can ever send on a closed channel.
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		adapterWG.Wait()
		close(ingestCh)
	}()

	demux := ingest.New(ingestCh, buyUpdates, sellUpdates)
	e.wg.Add(1)
	go func() {
		defer e.wg.Done()
		demux.Run(runCtx)
	}()

	buyWorker := worker.New(book.Buy, buyUpdates, buyQueries, e.metrics, e.logger)
	sellWorker := worker.New(book.Sell, sellUpdates, sellQueries, e.metrics, e.logger)
	e.wg.Add(2)
	go func() {
		defer e.wg.Done()
		buyWorker.Run(runCtx)
	}()
	go func() {
		defer e.wg.Done()
		sellWorker.Run(runCtx)
	}()

	e.coordinator = query.New(buyQueries, sellQueries, e.metrics)

	if e.metrics != nil {
		e.wg.Add(1)
		go func() {
			defer e.wg.Done()
			e.reportVenueStaleness(runCtx)
		}()
	}

	e.logInfo(ctx, "engine started", map[string]interface{}{
		"symbol":   e.cfg.Symbol,
		"adapters": len(e.adapters),
	})

	return nil
}

// Quote forwards to the running coordinator. Calling it before Start
// or after Stop returns ClosedBook.
func (e *Engine) Quote(ctx context.Context, req query.QuoteRequest) (query.QuoteResponse, error) {
	if !e.running.Load() || e.coordinator == nil {
		return query.QuoteResponse{}, book.ErrClosedBook
	}
	return e.coordinator.Quote(ctx, req)
}

// Stop cancels every running task and waits for them to drain. It is
// idempotent.
func (e *Engine) Stop() {
	if !e.running.CompareAndSwap(true, false) {
		return
	}
	if e.coordinator != nil {
		e.coordinator.Stop()
	}
	if e.cancel != nil {
		e.cancel()
	}
	e.wg.Wait()
}

// reportVenueStaleness polls each adapter's own atomics (Connected,
// LastUpdate are safe for concurrent reads by design) on a fixed tick
// and republishes them as a gauge, without ever touching book state.
func (e *Engine) reportVenueStaleness(ctx context.Context) {
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			now := time.Now()
			for _, a := range e.adapters {
				age := now.Sub(time.Unix(0, a.LastUpdate())).Seconds()
				e.metrics.VenueStaleness.WithLabelValues(a.Venue().String()).Set(age)
			}
		}
	}
}

func (e *Engine) logInfo(ctx context.Context, msg string, fields map[string]interface{}) {
	if e.logger != nil {
		e.logger.Info(ctx, msg, fields)
	}
}

func (e *Engine) logError(ctx context.Context, msg string, err error) {
	if e.logger != nil {
		e.logger.Error(ctx, msg, err)
	}
}

// Command cobe-engine runs one Consolidated Order Book Engine instance
// for a single symbol, wiring configuration, observability, venue
// adapters, and the engine together, and exposes the quote/route
// queries plus health and metrics over HTTP.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"github.com/ai-agentic-browser/internal/adapter/binance"
	"github.com/ai-agentic-browser/internal/adapter/kraken"
	"github.com/ai-agentic-browser/internal/cobe/book"
	"github.com/ai-agentic-browser/internal/cobe/engine"
	"github.com/ai-agentic-browser/internal/cobe/query"
	"github.com/ai-agentic-browser/internal/cobe/router"
	"github.com/ai-agentic-browser/internal/config"
	"github.com/ai-agentic-browser/internal/venue"
	"github.com/ai-agentic-browser/pkg/observability"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}

	obs := observability.NewProvider(cfg.Observability)
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	obs.Start(ctx)

	metrics, err := observability.NewMetricsProvider(observability.MetricsConfig{
		ServiceName: cfg.Observability.ServiceName,
		Namespace:   "cobe",
		Enabled:     true,
	})
	if err != nil {
		obs.Logger.Error(ctx, "failed to initialize metrics", err)
		os.Exit(1)
	}

	adapters, snapshotFetchers := buildAdapters(cfg, obs.Logger)

	eng := engine.New(engine.Config{
		Symbol:       cfg.Engine.Symbol,
		UpdateBuffer: cfg.Engine.UpdateBuffer,
	}, adapters, obs.Logger, metrics)

	if err := eng.Start(ctx); err != nil {
		obs.Logger.Error(ctx, "failed to start engine", err)
		os.Exit(1)
	}
	defer eng.Stop()

	healthChecker := observability.NewHealthChecker(obs.Logger)
	for _, a := range adapters {
		adapter := a
		healthChecker.RegisterCheck(adapter.Venue().String(), observability.VenueConnectedHealthCheck(
			adapter.Connected,
			func() time.Time { return time.Unix(0, adapter.LastUpdate()) },
			cfg.Engine.StaleAfter,
		))
	}

	r := mux.NewRouter()
	r.Use(mux.MiddlewareFunc(obs.HTTPMiddleware()))

	observability.NewHealthServer(healthChecker, cfg.Observability.ServiceName).RegisterRoutes(r)
	r.Handle("/metrics", metrics.Handler()).Methods("GET")
	r.HandleFunc("/v1/quote", quoteHandler(eng)).Methods("POST")
	r.HandleFunc("/v1/route", routeHandler(snapshotFetchers)).Methods("POST")

	srv := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		obs.Logger.Info(ctx, "http server listening", map[string]interface{}{"addr": srv.Addr})
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			obs.Logger.Error(ctx, "http server error", err)
		}
	}()

	<-ctx.Done()
	obs.Logger.Info(context.Background(), "shutting down", nil)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	_ = srv.Shutdown(shutdownCtx)
}

// snapshotFetcher is the common shape internal/adapter/{binance,kraken}
// expose for the REST Snapshot Router path.
type snapshotFetcher interface {
	Fetch(ctx context.Context) ([]router.SnapshotLevel, error)
}

func buildAdapters(cfg *config.Config, logger *observability.Logger) ([]venue.Adapter, []snapshotFetcher) {
	var adapters []venue.Adapter
	var fetchers []snapshotFetcher

	for _, v := range cfg.Venues {
		switch v.Name {
		case "binance":
			adapters = append(adapters, binance.New(binance.Config{
				Symbol:       cfg.Engine.Symbol,
				WSBaseURL:    v.WSBaseURL,
				Depth:        cfg.Engine.Depth,
				ReconnectMin: v.ReconnectMin,
				ReconnectMax: v.ReconnectMax,
			}, logger))
			fetchers = append(fetchers, binance.NewSnapshotFetcher(v.RESTBaseURL, cfg.Engine.Symbol, cfg.Engine.Depth))

		case "kraken":
			adapters = append(adapters, kraken.New(kraken.Config{
				Symbol:       cfg.Engine.Symbol,
				WSBaseURL:    v.WSBaseURL,
				Depth:        cfg.Engine.Depth,
				ReconnectMin: v.ReconnectMin,
				ReconnectMax: v.ReconnectMax,
			}, logger))
			fetchers = append(fetchers, kraken.NewSnapshotFetcher(v.RESTBaseURL, cfg.Engine.Symbol, cfg.Engine.Depth))
		}
	}

	return adapters, fetchers
}

type quoteRequestBody struct {
	Side   string  `json:"side"`
	Volume float64 `json:"volume"`
}

type quoteResponseBody struct {
	Side        string             `json:"side"`
	TotalVolume float64            `json:"total_volume"`
	VWAP        float64            `json:"vwap"`
	PerVenue    map[string]float64 `json:"per_venue"`
}

func quoteHandler(eng *engine.Engine) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body quoteRequestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "malformed request body", http.StatusBadRequest)
			return
		}

		side, err := parseSide(body.Side)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		resp, err := eng.Quote(r.Context(), query.QuoteRequest{Side: side, Volume: body.Volume})
		if err != nil {
			writeQuoteError(w, err)
			return
		}

		perVenue := make(map[string]float64, len(resp.PerVenue))
		for v, vol := range resp.PerVenue {
			perVenue[v.String()] = vol
		}

		writeJSON(w, http.StatusOK, quoteResponseBody{
			Side:        resp.Side.String(),
			TotalVolume: resp.TotalVolume,
			VWAP:        resp.VWAP,
			PerVenue:    perVenue,
		})
	}
}

type routeRequestBody struct {
	Side   string  `json:"side"`
	Amount float64 `json:"amount"`
}

type routeResponseBody struct {
	Side     string             `json:"side"`
	PerVenue map[string]float64 `json:"per_venue"`
}

func routeHandler(fetchers []snapshotFetcher) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body routeRequestBody
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "malformed request body", http.StatusBadRequest)
			return
		}

		side, err := parseSide(body.Side)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}

		levels, err := fetchAllSnapshots(r.Context(), fetchers)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadGateway)
			return
		}

		target := book.VolumeUnits(venue.ParseFloatVolume(body.Amount))
		routed, err := router.Route(router.RouteRequest{Side: side, Target: target}, levels)
		if err != nil {
			writeQuoteError(w, err)
			return
		}

		perVenue := make(map[string]float64, len(routed.PerVenue))
		for v, vol := range routed.PerVenue {
			perVenue[v.String()] = venue.UnitsToQty(int64(vol))
		}

		writeJSON(w, http.StatusOK, routeResponseBody{Side: side.String(), PerVenue: perVenue})
	}
}

func fetchAllSnapshots(ctx context.Context, fetchers []snapshotFetcher) ([]router.SnapshotLevel, error) {
	var all []router.SnapshotLevel
	for _, f := range fetchers {
		levels, err := f.Fetch(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch snapshot: %w", err)
		}
		all = append(all, levels...)
	}
	return all, nil
}

func parseSide(raw string) (book.Side, error) {
	switch raw {
	case "buy":
		return book.Buy, nil
	case "sell":
		return book.Sell, nil
	default:
		return 0, fmt.Errorf("side must be %q or %q", "buy", "sell")
	}
}

func writeQuoteError(w http.ResponseWriter, err error) {
	switch {
	case err == book.ErrInsufficientLiquidity:
		http.Error(w, err.Error(), http.StatusConflict)
	case err == book.ErrClosedBook:
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

package binance

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/ai-agentic-browser/internal/cobe/book"
	"github.com/ai-agentic-browser/internal/cobe/router"
	"github.com/ai-agentic-browser/internal/venue"
)

// SnapshotFetcher fetches a one-shot REST order-book snapshot for the
// REST Snapshot Router path, independent of the streaming websocket
// adapter above.
type SnapshotFetcher struct {
	client  *resty.Client
	baseURL string
	symbol  string // e.g. "BTCUSDT"
	limit   int
}

func NewSnapshotFetcher(baseURL, symbol string, limit int) *SnapshotFetcher {
	if limit <= 0 {
		limit = 100
	}
	return &SnapshotFetcher{client: resty.New(), baseURL: baseURL, symbol: symbol, limit: limit}
}

type depthSnapshotResponse struct {
	Bids [][]string `json:"bids"`
	Asks [][]string `json:"asks"`
}

// Fetch returns the consolidated bid and ask levels as router snapshot
// levels tagged with venue.Binance.
func (f *SnapshotFetcher) Fetch(ctx context.Context) ([]router.SnapshotLevel, error) {
	var body depthSnapshotResponse
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParam("symbol", f.symbol).
		SetQueryParam("limit", fmt.Sprintf("%d", f.limit)).
		SetResult(&body).
		Get(f.baseURL + "/api/v3/depth")
	if err != nil {
		return nil, fmt.Errorf("fetch binance depth snapshot: %w", err)
	}
	if resp.IsError() {
		return nil, fmt.Errorf("binance depth snapshot returned %s", resp.Status())
	}

	levels := make([]router.SnapshotLevel, 0, len(body.Bids)+len(body.Asks))
	levels = append(levels, toLevels(body.Bids)...)
	levels = append(levels, toLevels(body.Asks)...)
	return levels, nil
}

func toLevels(raw [][]string) []router.SnapshotLevel {
	levels := make([]router.SnapshotLevel, 0, len(raw))
	for _, pair := range raw {
		if len(pair) != 2 {
			continue
		}
		price, err := decimal.NewFromString(pair[0])
		if err != nil {
			continue
		}
		qty, err := decimal.NewFromString(pair[1])
		if err != nil {
			continue
		}
		levels = append(levels, router.SnapshotLevel{
			Venue:  venue.Binance,
			Price:  book.PriceTick(venue.PriceToTicks(price)),
			Volume: book.VolumeUnits(venue.VolumeToUnits(qty)),
		})
	}
	return levels
}

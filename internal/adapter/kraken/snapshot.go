package kraken

import (
	"context"
	"fmt"

	"github.com/go-resty/resty/v2"
	"github.com/shopspring/decimal"

	"github.com/ai-agentic-browser/internal/cobe/book"
	"github.com/ai-agentic-browser/internal/cobe/router"
	"github.com/ai-agentic-browser/internal/venue"
)

// SnapshotFetcher fetches a one-shot REST order-book snapshot from
// Kraken's public Depth endpoint for the REST Snapshot Router path.
type SnapshotFetcher struct {
	client  *resty.Client
	baseURL string
	pair    string // Kraken's REST pair code, e.g. "XBTUSD"
	count   int
}

func NewSnapshotFetcher(baseURL, pair string, count int) *SnapshotFetcher {
	if count <= 0 {
		count = 100
	}
	return &SnapshotFetcher{client: resty.New(), baseURL: baseURL, pair: pair, count: count}
}

type krakenDepthResponse struct {
	Error  []string                         `json:"error"`
	Result map[string]krakenDepthBookResult `json:"result"`
}

type krakenDepthBookResult struct {
	Bids [][]any `json:"bids"`
	Asks [][]any `json:"asks"`
}

// Fetch returns the consolidated bid and ask levels as router snapshot
// levels tagged with venue.Kraken.
func (f *SnapshotFetcher) Fetch(ctx context.Context) ([]router.SnapshotLevel, error) {
	var body krakenDepthResponse
	resp, err := f.client.R().
		SetContext(ctx).
		SetQueryParam("pair", f.pair).
		SetQueryParam("count", fmt.Sprintf("%d", f.count)).
		SetResult(&body).
		Get(f.baseURL + "/0/public/Depth")
	if err != nil {
		return nil, fmt.Errorf("fetch kraken depth snapshot: %w", err)
	}
	if resp.IsError() || len(body.Error) > 0 {
		return nil, fmt.Errorf("kraken depth snapshot error: %v", body.Error)
	}

	var levels []router.SnapshotLevel
	for _, result := range body.Result {
		levels = append(levels, toLevels(result.Bids)...)
		levels = append(levels, toLevels(result.Asks)...)
	}
	return levels, nil
}

func toLevels(raw [][]any) []router.SnapshotLevel {
	levels := make([]router.SnapshotLevel, 0, len(raw))
	for _, entry := range raw {
		if len(entry) < 2 {
			continue
		}
		priceStr, ok1 := entry[0].(string)
		qtyStr, ok2 := entry[1].(string)
		if !ok1 || !ok2 {
			continue
		}
		price, err := decimal.NewFromString(priceStr)
		if err != nil {
			continue
		}
		qty, err := decimal.NewFromString(qtyStr)
		if err != nil {
			continue
		}
		levels = append(levels, router.SnapshotLevel{
			Venue:  venue.Kraken,
			Price:  book.PriceTick(venue.PriceToTicks(price)),
			Volume: book.VolumeUnits(venue.VolumeToUnits(qty)),
		})
	}
	return levels
}

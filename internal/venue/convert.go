package venue

import "github.com/shopspring/decimal"

// PriceScale and VolumeScale mirror the engine config's fixed scales.
// Adapters that cannot reach config at construction time (e.g. a parser
// invoked from a test) can fall back to these fixed defaults.
const (
	PriceScale  = 100
	VolumeScale = 1_000_000
)

// PriceToTicks truncates a decimal USD price to PriceTick units
// (cents). Truncation, not rounding, is the ingest contract.
func PriceToTicks(price decimal.Decimal) int64 {
	return price.Mul(decimal.NewFromInt(PriceScale)).Truncate(0).IntPart()
}

// VolumeToUnits truncates a decimal quantity to VolumeUnits (micro-units).
func VolumeToUnits(qty decimal.Decimal) int64 {
	return qty.Mul(decimal.NewFromInt(VolumeScale)).Truncate(0).IntPart()
}

// TicksToUSD converts PriceTick back to a float64 USD price for responses.
func TicksToUSD(ticks int64) float64 {
	return float64(ticks) / PriceScale
}

// UnitsToQty converts VolumeUnits back to a float64 quantity for responses.
func UnitsToQty(units int64) float64 {
	return float64(units) / VolumeScale
}

// ParseFloatPrice converts a raw float64 price (as received over a wire
// protocol) to PriceTick via decimal, avoiding the binary float rounding
// hazards a direct float64*100 multiply would introduce near .005 cent
// boundaries.
func ParseFloatPrice(price float64) int64 {
	return PriceToTicks(decimal.NewFromFloat(price))
}

// ParseFloatVolume converts a raw float64 quantity to VolumeUnits via decimal.
func ParseFloatVolume(qty float64) int64 {
	return VolumeToUnits(decimal.NewFromFloat(qty))
}

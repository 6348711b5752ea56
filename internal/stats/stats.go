// Package stats turns raw aggregate payloads into summary cards and per-state
// distributions.
package stats

import (
	"encoding/json"
	"math"
	"strconv"

	"github.com/shopspring/decimal"
)

// Percentage is round(part/whole*100), or 0 when whole is not positive.
func Percentage(part, whole int) int {
	return PercentageF(float64(part), float64(whole))
}

func PercentageF(part, whole float64) int {
	if whole <= 0 {
		return 0
	}
	return int(math.Round(part / whole * 100))
}

// Category is one state bucket of a resource.
type Category struct {
	Key   string
	Label string
	Color string
	Count int
}

// Slice is a Category with its share of the total.
type Slice struct {
	Category
	Percent int
}

// Distribution computes each category's share of total.
func Distribution(cats []Category, total int) []Slice {
	out := make([]Slice, len(cats))
	for i, c := range cats {
		out[i] = Slice{Category: c, Percent: Percentage(c.Count, total)}
	}
	return out
}

// Number reads a numeric field that may arrive as a JSON number or a string.
// Missing or malformed values read as 0.
func Number(raw map[string]any, key string) float64 {
	return Decimal(raw, key).InexactFloat64()
}

// Decimal reads a numeric field as a decimal, keeping currency sums exact.
func Decimal(raw map[string]any, key string) decimal.Decimal {
	switch v := raw[key].(type) {
	case float64:
		return decimal.NewFromFloat(v)
	case float32:
		return decimal.NewFromFloat32(v)
	case int:
		return decimal.NewFromInt(int64(v))
	case int64:
		return decimal.NewFromInt(v)
	case json.Number:
		d, err := decimal.NewFromString(v.String())
		if err == nil {
			return d
		}
	case string:
		d, err := decimal.NewFromString(v)
		if err == nil {
			return d
		}
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return decimal.NewFromFloat(f)
		}
	}
	return decimal.Zero
}

// Count reads an integer count.
func Count(raw map[string]any, key string) int {
	return int(Decimal(raw, key).Round(0).IntPart())
}

package scale

import (
	"fmt"
	"math"
	"math/big"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/mrlokans/scalesync/internal/apperr"
)

// priceScale is the number of fractional digits kept from floating point prices.
const priceScale = 4

// toPrice converts whatever the driver returned for mprice into a decimal.
// NULL is zero. Floats are converted through their shortest round-trip
// decimal form so 12.5 stays 12.5 and 0.1 stays 0.1.
func toPrice(v any, label string) (decimal.Decimal, error) {
	switch p := v.(type) {
	case nil:
		return decimal.Zero, nil
	case decimal.Decimal:
		return p, nil
	case int64:
		return decimal.NewFromInt(p), nil
	case int32:
		return decimal.NewFromInt32(p), nil
	case int:
		return decimal.NewFromInt(int64(p)), nil
	case int16:
		return decimal.NewFromInt(int64(p)), nil
	case int8:
		return decimal.NewFromInt(int64(p)), nil
	case uint8:
		return decimal.NewFromInt(int64(p)), nil
	case uint16:
		return decimal.NewFromInt(int64(p)), nil
	case uint32:
		return decimal.NewFromInt(int64(p)), nil
	case uint64:
		return decimal.NewFromBigInt(new(big.Int).SetUint64(p), 0), nil
	case float64:
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return decimal.Zero, invalidPrice(label, p)
		}
		return decimal.NewFromFloat(p).Round(priceScale), nil
	case float32:
		if math.IsNaN(float64(p)) || math.IsInf(float64(p), 0) {
			return decimal.Zero, invalidPrice(label, p)
		}
		return decimal.NewFromFloat32(p).Round(priceScale), nil
	case []byte:
		return parsePrice(string(p), label)
	case string:
		return parsePrice(p, label)
	default:
		return parsePrice(fmt.Sprint(p), label)
	}
}

func parsePrice(s, label string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, invalidPrice(label, s)
	}
	return d, nil
}

func invalidPrice(label string, v any) error {
	return &apperr.ValidationError{Label: label, Msg: fmt.Sprintf("price %v is not a number", v)}
}

package export

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sadopc/portdesk/internal/stats"
)

// Formatter renders a raw field value.
type Formatter func(v any) string

// Raw renders v without formatting.
func Raw(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(t)
	case map[string]any:
		for _, k := range []string{"nombre", "name", "idRuta", "numeroGuia", "_id"} {
			if s, ok := t[k]; ok {
				return Raw(s)
			}
		}
		return ""
	case []any:
		parts := make([]string, len(t))
		for i, e := range t {
			parts[i] = Raw(e)
		}
		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(t)
	}
}

// Upper upper-cases the value.
func Upper(v any) string {
	return strings.ToUpper(Raw(v))
}

var dateLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"}

// ParseDate reads the date formats the backend emits.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	for _, l := range dateLayouts {
		if t, err := time.Parse(l, s); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// DateES renders a date as dd/mm/yyyy. Unparseable values pass through.
func DateES(v any) string {
	s := Raw(v)
	if s == "" {
		return ""
	}
	t, ok := ParseDate(s)
	if !ok {
		return s
	}
	return t.UTC().Format("02/01/2006")
}

// Currency renders whole pesos with Spanish grouping: $ 1.234.567.
func Currency(v any) string {
	d, ok := toDecimal(v)
	if !ok {
		return Raw(v)
	}
	return stats.FormatCurrency(d)
}

// Number groups thousands, keeping up to two decimals.
func Number(v any) string {
	d, ok := toDecimal(v)
	if !ok {
		return Raw(v)
	}
	return stats.FormatNumber(d, 2)
}

func toDecimal(v any) (decimal.Decimal, bool) {
	switch t := v.(type) {
	case float64:
		return decimal.NewFromFloat(t), true
	case int:
		return decimal.NewFromInt(int64(t)), true
	case string:
		d, err := decimal.NewFromString(strings.TrimSpace(t))
		return d, err == nil
	}
	return decimal.Zero, false
}

package stats

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/shopspring/decimal"
)

type CardKind int

const (
	KindCount CardKind = iota
	KindNumber
	KindCurrency
	KindPercent
	KindShare
)

// StateSpec maps a count key of the stats payload to a state.
type StateSpec struct {
	Key   string
	State string
	Label string
	Color string
}

// CardSpec describes one summary card. When Sum is set the card adds those
// keys instead of reading Key.
type CardSpec struct {
	Label string
	Key   string
	Sum   []string
	Kind  CardKind
	Unit  string
	Color string
}

// BreakdownSpec describes an array of {_id, count} buckets, such as
// personnel per department.
type BreakdownSpec struct {
	Key      string
	IDKey    string
	CountKey string
	Label    string
}

// Spec drives Derive for one resource.
type Spec struct {
	Endpoint  string
	TotalKey  string
	States    []StateSpec
	Cards     []CardSpec
	Breakdown *BreakdownSpec
}

// Card is a rendered summary value. Percent is the share of the total for
// KindShare cards and the value itself for KindPercent.
type Card struct {
	Label   string
	Value   decimal.Decimal
	Kind    CardKind
	Unit    string
	Color   string
	Percent int
}

func (c Card) Text() string {
	switch c.Kind {
	case KindCurrency:
		return FormatCurrency(c.Value)
	case KindPercent:
		return fmt.Sprintf("%d%%", c.Percent)
	case KindShare:
		return fmt.Sprintf("%s (%d%%)", FormatNumber(c.Value, 0), c.Percent)
	case KindNumber:
		s := FormatNumber(c.Value, 1)
		if c.Unit != "" {
			s += " " + c.Unit
		}
		return s
	default:
		return FormatNumber(c.Value, 0)
	}
}

// Summary is the derived view of a stats payload.
type Summary struct {
	Total        int
	Cards        []Card
	Distribution []Slice
	Breakdown    []Slice
}

// Derive builds a Summary. Missing keys count as zero.
func Derive(spec Spec, raw map[string]any) Summary {
	total := Count(raw, spec.TotalKey)
	sum := Summary{Total: total}

	cats := make([]Category, len(spec.States))
	for i, st := range spec.States {
		cats[i] = Category{Key: st.State, Label: st.Label, Color: st.Color, Count: Count(raw, st.Key)}
	}
	sum.Distribution = Distribution(cats, total)

	for _, cs := range spec.Cards {
		v := Decimal(raw, cs.Key)
		if len(cs.Sum) > 0 {
			v = decimal.Zero
			for _, k := range cs.Sum {
				v = v.Add(Decimal(raw, k))
			}
		}
		c := Card{Label: cs.Label, Value: v, Kind: cs.Kind, Unit: cs.Unit, Color: cs.Color}
		switch cs.Kind {
		case KindShare:
			c.Percent = Percentage(int(v.IntPart()), total)
		case KindPercent:
			c.Percent = int(v.Round(0).IntPart())
		}
		sum.Cards = append(sum.Cards, c)
	}

	if spec.Breakdown != nil {
		sum.Breakdown = breakdown(*spec.Breakdown, raw, total)
	}
	return sum
}

func breakdown(b BreakdownSpec, raw map[string]any, total int) []Slice {
	items, _ := raw[b.Key].([]any)
	cats := make([]Category, 0, len(items))
	for _, it := range items {
		m, ok := it.(map[string]any)
		if !ok {
			continue
		}
		label := fmt.Sprint(m[b.IDKey])
		if m[b.IDKey] == nil || label == "" {
			label = "Sin asignar"
		}
		cats = append(cats, Category{Key: label, Label: label, Count: Count(m, b.CountKey)})
	}
	slices.SortStableFunc(cats, func(a, b Category) int { return cmp.Compare(b.Count, a.Count) })
	return Distribution(cats, total)
}

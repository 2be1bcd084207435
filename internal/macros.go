package internal

import (
	"encoding/json"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// MacroVector is the calories/protein/carbohydrates/fats tuple of an entry or summary.
type MacroVector struct {
	Calories      float64 `json:"calories"`
	Protein       float64 `json:"protein"`
	Carbohydrates float64 `json:"carbohydrates"`
	Fats          float64 `json:"fats"`
}

// Add returns m + o. Sums go through decimal arithmetic so that applying the
// same deltas in a different order produces the same float.
func (m MacroVector) Add(o MacroVector) MacroVector {
	return MacroVector{
		Calories:      addExact(m.Calories, o.Calories),
		Protein:       addExact(m.Protein, o.Protein),
		Carbohydrates: addExact(m.Carbohydrates, o.Carbohydrates),
		Fats:          addExact(m.Fats, o.Fats),
	}
}

// Sub returns m - o.
func (m MacroVector) Sub(o MacroVector) MacroVector {
	return m.Add(o.Neg())
}

// Neg returns -m.
func (m MacroVector) Neg() MacroVector {
	return MacroVector{
		Calories:      -m.Calories,
		Protein:       -m.Protein,
		Carbohydrates: -m.Carbohydrates,
		Fats:          -m.Fats,
	}
}

// IsZero reports whether all fields are zero.
func (m MacroVector) IsZero() bool {
	return m == MacroVector{}
}

// Rounded returns m with every field rounded to 2 decimal places, for display.
func (m MacroVector) Rounded() MacroVector {
	return MacroVector{
		Calories:      Round2(m.Calories),
		Protein:       Round2(m.Protein),
		Carbohydrates: Round2(m.Carbohydrates),
		Fats:          Round2(m.Fats),
	}
}

func addExact(a, b float64) float64 {
	f, _ := decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).Float64()
	return f
}

// Round2 rounds v half away from zero to 2 decimal places.
func Round2(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// ParseMacroValue converts a backend macro field to a number.
// Strings may carry units ("120 kcal", "12.5g"): everything except digits and
// '.' is stripped first. Anything that still does not parse counts as 0.
func ParseMacroValue(v any) float64 {
	switch x := v.(type) {
	case nil:
		return 0
	case float64:
		return finiteOrZero(x)
	case float32:
		return finiteOrZero(float64(x))
	case int:
		return float64(x)
	case int64:
		return float64(x)
	case json.Number:
		return ParseMacroString(x.String())
	case string:
		return ParseMacroString(x)
	default:
		return 0
	}
}

// ParseMacroString applies the strip-and-default rule to a string field.
func ParseMacroString(s string) float64 {
	cleaned := strings.Map(func(r rune) rune {
		if (r >= '0' && r <= '9') || r == '.' {
			return r
		}
		return -1
	}, s)
	if cleaned == "" {
		return 0
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return 0
	}
	f, _ := d.Float64()
	return f
}

func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

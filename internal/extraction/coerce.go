package extraction

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/invoicepilot/backend/internal/entity"
)

// coerceText returns the entity's text as a nullable string: normalized text
// preferred, mention text as fallback, nil when both are empty.
func coerceText(e *entity.RawEntity) *string {
	if e == nil {
		return nil
	}
	text := strings.TrimSpace(e.Text())
	if text == "" {
		return nil
	}
	return &text
}

// coerceMoney converts an entity to a numeric amount. A structured money
// value wins: units + nanos/1e9 (protobuf-style fixed point). Without one the
// entity's text goes through the loose parser.
func coerceMoney(e *entity.RawEntity) *float64 {
	if e == nil {
		return nil
	}
	if e.Normalized != nil && e.Normalized.Money != nil {
		m := e.Normalized.Money
		v := float64(m.Units) + float64(m.Nanos)/1e9
		return &v
	}
	return looseNumber(e.Text())
}

// coerceNumber parses a plain numeric entity (quantities) from its text.
// Quantities arrive as bare text, never as structured money.
func coerceNumber(e *entity.RawEntity) *float64 {
	if e == nil {
		return nil
	}
	return looseNumber(e.Text())
}

// looseNumber strips everything except digits, '.' and '-' and parses the
// remainder. Currency symbols, grouping separators and whitespace are
// discarded on purpose; anything non-finite is nil.
func looseNumber(text string) *float64 {
	var b strings.Builder
	for _, r := range text {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	cleaned := b.String()
	if cleaned == "" {
		return nil
	}
	v, err := strconv.ParseFloat(cleaned, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// coerceDate converts an entity's structured date to a local-midnight
// timestamp. Free-text date parsing is deliberately not attempted: the
// ambiguity risk (2/3/2024) outweighs the benefit.
func coerceDate(e *entity.RawEntity) *time.Time {
	if e == nil || e.Normalized == nil || e.Normalized.Date == nil {
		return nil
	}
	d := e.Normalized.Date
	if d.Year == 0 || d.Month == 0 || d.Day == 0 {
		return nil
	}
	t := time.Date(d.Year, time.Month(d.Month), d.Day, 0, 0, 0, 0, time.Local)
	return &t
}

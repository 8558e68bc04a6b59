package extraction

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/invoicepilot/backend/internal/entity"
	"github.com/invoicepilot/backend/internal/invoice"
)

var (
	whitespaceRun = regexp.MustCompile(`\s+`)

	// Money-shaped: 1-3 digits, optional comma groups of 3, then exactly two
	// decimals. "5" and "5.5" are never money; they can still be quantities.
	moneyPattern = regexp.MustCompile(`\b\d{1,3}(?:,\d{3})*\.\d{2}\b`)

	// Bare integers, used for quantity extraction from the description side.
	integerPattern = regexp.MustCompile(`\b\d+\b`)
)

// ParseLineItem extracts one canonical line item from a line_item entity.
// Structured child properties are preferred; the mention-text heuristic fills
// whatever they left empty and never overwrites a resolved value.
func ParseLineItem(e entity.RawEntity) invoice.LineItem {
	var item invoice.LineItem

	if len(e.Properties) > 0 {
		item.Description = coerceText(selectEntity(e.Properties, lineDescriptionAliases))
		item.Quantity = coerceNumber(selectEntity(e.Properties, lineQuantityAliases))
		item.UnitPrice = coerceMoney(selectEntity(e.Properties, lineUnitPriceAliases))
		item.Amount = coerceMoney(selectEntity(e.Properties, lineAmountAliases))
	}

	mention := strings.TrimSpace(e.MentionText)
	structuredEmpty := item.Description == nil && item.Quantity == nil &&
		item.UnitPrice == nil && item.Amount == nil

	if len(e.Properties) == 0 || (structuredEmpty && mention != "") {
		fallback := parseMentionText(e.MentionText)
		if item.Description == nil {
			item.Description = fallback.Description
		}
		if item.Quantity == nil {
			item.Quantity = fallback.Quantity
		}
		if item.UnitPrice == nil {
			item.UnitPrice = fallback.UnitPrice
		}
		if item.Amount == nil {
			item.Amount = fallback.Amount
		}
	}

	backfill(&item)
	return item
}

// parseMentionText is the heuristic parse of an unstructured line: pure
// function of the string.
func parseMentionText(text string) invoice.LineItem {
	var item invoice.LineItem

	collapsed := strings.TrimSpace(whitespaceRun.ReplaceAllString(text, " "))
	if collapsed == "" {
		return item
	}

	moneyLocs := moneyPattern.FindAllStringIndex(collapsed, -1)

	// Invoice line layouts conventionally end with "unit price, amount": with
	// two or more money matches the second-to-last is the unit price and the
	// last the extended amount. A single match is an amount only.
	switch {
	case len(moneyLocs) >= 2:
		item.UnitPrice = looseNumber(collapsed[moneyLocs[len(moneyLocs)-2][0]:moneyLocs[len(moneyLocs)-2][1]])
		item.Amount = looseNumber(collapsed[moneyLocs[len(moneyLocs)-1][0]:moneyLocs[len(moneyLocs)-1][1]])
	case len(moneyLocs) == 1:
		item.Amount = looseNumber(collapsed[moneyLocs[0][0]:moneyLocs[0][1]])
	}

	prefix := collapsed
	if len(moneyLocs) > 0 {
		prefix = collapsed[:moneyLocs[0][0]]
	}

	// Quantity: the bare integer closest to the money columns. Splicing out
	// exactly that match keeps the description intact when the same digits
	// appear inside another number.
	desc := prefix
	if intLocs := integerPattern.FindAllStringIndex(prefix, -1); len(intLocs) > 0 {
		last := intLocs[len(intLocs)-1]
		if qty, err := strconv.ParseFloat(prefix[last[0]:last[1]], 64); err == nil {
			item.Quantity = &qty
			desc = prefix[:last[0]] + prefix[last[1]:]
		}
	}

	desc = strings.TrimSpace(whitespaceRun.ReplaceAllString(desc, " "))
	if desc == "" {
		// Any text at all beats an empty description.
		desc = collapsed
	}
	item.Description = &desc

	return item
}

// backfill derives one missing money field from the other two. Resolved
// values are never overwritten and a zero quantity never divides.
func backfill(item *invoice.LineItem) {
	if item.Amount == nil && item.Quantity != nil && item.UnitPrice != nil {
		amount := round2(*item.Quantity * *item.UnitPrice)
		item.Amount = &amount
	}
	if item.UnitPrice == nil && item.Amount != nil && item.Quantity != nil && *item.Quantity != 0 {
		unit := round2(*item.Amount / *item.Quantity)
		item.UnitPrice = &unit
	}
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}

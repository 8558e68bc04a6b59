// Package extraction turns the document-understanding service's entity list
// into canonical invoice fields.
package extraction

import (
	"github.com/invoicepilot/backend/internal/entity"
)

// aliasGroup is an ordered list of acceptable type tags for one field. Order
// in the group documents precedence for auditing, but selection is decided by
// entity order: the first entity whose normalized type matches any alias wins.
type aliasGroup []string

// Field alias tables. Ordered and explicit so precedence is auditable; the
// bare child-tag forms cover processors that emit "quantity" instead of
// "line_item/quantity".
var (
	supplierNameAliases    = aliasGroup{"supplier_name", "remit_to_name", "vendor_name"}
	supplierAddressAliases = aliasGroup{"supplier_address", "remit_to_address", "vendor_address"}
	invoiceNumberAliases   = aliasGroup{"invoice_id", "invoice_number"}
	purchaseOrderAliases   = aliasGroup{"purchase_order", "po_number"}
	invoiceDateAliases     = aliasGroup{"invoice_date", "issue_date"}
	dueDateAliases         = aliasGroup{"due_date", "payment_due_date"}
	subtotalAliases        = aliasGroup{"net_amount", "subtotal"}
	taxAliases             = aliasGroup{"total_tax_amount", "tax_amount", "vat"}
	totalAliases           = aliasGroup{"total_amount", "invoice_total", "amount_due"}

	lineDescriptionAliases = aliasGroup{"line_item/description", "description", "item_description"}
	lineQuantityAliases    = aliasGroup{"line_item/quantity", "quantity", "qty"}
	lineUnitPriceAliases   = aliasGroup{"line_item/unit_price", "unit_price", "price"}
	lineAmountAliases      = aliasGroup{"line_item/amount", "amount", "line_amount"}
)

// selectEntity returns the first entity whose normalized type matches any of
// the group's aliases, in entity order, or nil. Matching is case-insensitive.
func selectEntity(entities []entity.RawEntity, aliases aliasGroup) *entity.RawEntity {
	for i := range entities {
		norm := entity.NormalizeType(entities[i].Type)
		for _, alias := range aliases {
			if norm == alias {
				return &entities[i]
			}
		}
	}
	return nil
}

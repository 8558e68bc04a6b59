package extraction

import (
	"fmt"

	"github.com/invoicepilot/backend/internal/entity"
	"github.com/invoicepilot/backend/internal/invoice"
)

// Normalize turns the raw entity list into canonical invoice fields. It is
// deterministic and total: missing or malformed entities produce nil fields,
// never a panic. A structurally unexpected list surfaces as a
// NormalizationFailure error rather than escaping the pipeline.
func Normalize(entities []entity.RawEntity) (fields invoice.Fields, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &Error{
				Code:    ErrNormalization,
				Message: fmt.Sprintf("entity list could not be normalized: %v", r),
			}
		}
	}()

	fields.SupplierName = coerceText(selectEntity(entities, supplierNameAliases))
	fields.SupplierAddress = coerceText(selectEntity(entities, supplierAddressAliases))
	fields.InvoiceNumber = coerceText(selectEntity(entities, invoiceNumberAliases))
	fields.PurchaseOrder = coerceText(selectEntity(entities, purchaseOrderAliases))
	fields.InvoiceDate = coerceDate(selectEntity(entities, invoiceDateAliases))
	fields.DueDate = coerceDate(selectEntity(entities, dueDateAliases))
	fields.Subtotal = coerceMoney(selectEntity(entities, subtotalAliases))
	fields.Tax = coerceMoney(selectEntity(entities, taxAliases))
	fields.Total = coerceMoney(selectEntity(entities, totalAliases))

	for i := range entities {
		if entities[i].Kind != entity.KindLineItem {
			continue
		}
		fields.LineItems = append(fields.LineItems, ParseLineItem(entities[i]))
	}

	return fields, nil
}

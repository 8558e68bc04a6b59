package entity

import (
	"cloud.google.com/go/documentai/apiv1/documentaipb"
)

// FromDocument decodes a Document AI response into the internal entity model.
// The conversion is total: malformed or unrecognized entities decode to
// KindUnknown rather than being dropped, so diagnostics keep the full list.
func FromDocument(doc *documentaipb.Document) []RawEntity {
	if doc == nil {
		return nil
	}
	return fromProtoEntities(doc.GetEntities())
}

func fromProtoEntities(src []*documentaipb.Document_Entity) []RawEntity {
	if len(src) == 0 {
		return nil
	}
	out := make([]RawEntity, 0, len(src))
	for _, pe := range src {
		if pe == nil {
			continue
		}
		out = append(out, fromProtoEntity(pe))
	}
	return out
}

func fromProtoEntity(pe *documentaipb.Document_Entity) RawEntity {
	e := RawEntity{
		Type:        pe.GetType(),
		Kind:        KindOfType(pe.GetType()),
		MentionText: pe.GetMentionText(),
		Confidence:  pe.GetConfidence(),
		Properties:  fromProtoEntities(pe.GetProperties()),
	}

	nv := pe.GetNormalizedValue()
	if nv == nil {
		return e
	}

	norm := &NormalizedValue{Text: nv.GetText()}
	if mv := nv.GetMoneyValue(); mv != nil {
		norm.Money = &Money{Units: mv.GetUnits(), Nanos: mv.GetNanos()}
	}
	if dv := nv.GetDateValue(); dv != nil {
		norm.Date = &Date{
			Year:  int(dv.GetYear()),
			Month: int(dv.GetMonth()),
			Day:   int(dv.GetDay()),
		}
	}
	e.Normalized = norm
	return e
}

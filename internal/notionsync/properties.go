package notionsync

import (
	"time"

	"cloud.google.com/go/civil"
	"github.com/dvloznov/finbot/internal/domain"
	"github.com/jomei/notionapi"
)

// Database property names.
const (
	PropDescription   = "Description"
	PropDate          = "Date"
	PropAmount        = "Amount"
	PropType          = "Type"
	PropCategory      = "Category"
	PropCurrency      = "Currency"
	PropTransactionID = "Transaction ID"
	PropUser          = "User"
	PropRecordedAt    = "Recorded At"
)

func richText(s string) []notionapi.RichText {
	return []notionapi.RichText{{
		Type: notionapi.ObjectTypeText,
		Text: &notionapi.Text{Content: s},
	}}
}

func notionDate(d civil.Date) *notionapi.Date {
	nd := notionapi.Date(d.In(time.UTC))
	return &nd
}

// TransactionToProperties maps a transaction to page properties. Amount is
// signed: expenses are negative.
func TransactionToProperties(tx domain.Transaction, currency string) notionapi.Properties {
	amount, _ := tx.Signed().Float64()
	recorded := notionapi.Date(tx.CreatedAt)

	props := notionapi.Properties{
		PropDescription: notionapi.TitleProperty{Title: richText(tx.Description)},
		PropDate: notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: notionDate(tx.Date)},
		},
		PropAmount:        notionapi.NumberProperty{Number: amount},
		PropType:          notionapi.SelectProperty{Select: notionapi.Option{Name: string(tx.Type)}},
		PropTransactionID: notionapi.RichTextProperty{RichText: richText(tx.ID)},
		PropUser:          notionapi.RichTextProperty{RichText: richText(tx.UserID)},
		PropRecordedAt: notionapi.DateProperty{
			Date: &notionapi.DateObject{Start: &recorded},
		},
	}

	category := tx.CategoryID
	if tx.Category != nil && tx.Category.Name != "" {
		category = tx.Category.Name
	}
	if category != "" {
		props[PropCategory] = notionapi.SelectProperty{Select: notionapi.Option{Name: category}}
	}
	if currency != "" {
		props[PropCurrency] = notionapi.SelectProperty{Select: notionapi.Option{Name: currency}}
	}
	return props
}

// transactionID reads the Transaction ID property of a page, or "".
func transactionID(page notionapi.Page) string {
	prop, ok := page.Properties[PropTransactionID]
	if !ok {
		return ""
	}
	if rt, ok := prop.(*notionapi.RichTextProperty); ok && len(rt.RichText) > 0 {
		return rt.RichText[0].PlainText
	}
	return ""
}

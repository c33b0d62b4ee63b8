package entities

import "github.com/shopspring/decimal"

// Good is a product as read from the scale, with the barcode already
// normalized to the 5-character MiAll form.
type Good struct {
	Name    string          `json:"name"`
	Barcode string          `json:"barcode"`
	Price   decimal.Decimal `json:"price"`
}

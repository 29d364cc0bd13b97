package domain

import "time"

// OrderLine is one row of the ledger join: a line item together with its
// order header, product and the display names of both parties.
type OrderLine struct {
	OrderID     string
	BuyerID     string
	BuyerName   string
	OrderTotal  int64
	CreatedAt   time.Time
	LineItemID  string
	ProductID   string
	ProductName string
	FarmerID    string
	FarmerName  string
	Quantity    int
	UnitPrice   int64
	Extended    int64
}

type OrderSummary struct {
	OrderID     string
	BuyerID     string
	BuyerName   string
	TotalAmount int64
	CreatedAt   time.Time
	Items       []ItemSummary
}

type ItemSummary struct {
	LineItemID    string
	ProductID     string
	ProductName   string
	FarmerID      string
	FarmerName    string
	Quantity      int
	UnitPrice     int64
	ExtendedPrice int64
}

func (l OrderLine) Item() ItemSummary {
	return ItemSummary{
		LineItemID:    l.LineItemID,
		ProductID:     l.ProductID,
		ProductName:   l.ProductName,
		FarmerID:      l.FarmerID,
		FarmerName:    l.FarmerName,
		Quantity:      l.Quantity,
		UnitPrice:     l.UnitPrice,
		ExtendedPrice: l.Extended,
	}
}

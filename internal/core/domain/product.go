package domain

import "time"

type Product struct {
	ID                string
	FarmerID          string
	Name              string
	Description       string
	PricePerUnit      int64 // smallest currency unit
	QuantityAvailable int
	CreatedAt         time.Time
}

// ProductListing is a catalog row with the owning farmer's display name resolved.
type ProductListing struct {
	Product
	FarmerName string
}

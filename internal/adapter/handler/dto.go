package handler

import (
	"time"

	"github.com/rl1809/harvest-market/internal/core/domain"
)

type OrderItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type LineItemResponse struct {
	ID            string `json:"id"`
	ProductID     string `json:"product_id"`
	Quantity      int    `json:"quantity"`
	UnitPrice     int64  `json:"unit_price"`
	ExtendedPrice int64  `json:"extended_price"`
}

type OrderResponse struct {
	ID          string             `json:"id"`
	BuyerID     string             `json:"buyer_id"`
	TotalAmount int64              `json:"total_amount"`
	CreatedAt   time.Time          `json:"created_at"`
	DeliveredAt *time.Time         `json:"delivered_at"`
	Items       []LineItemResponse `json:"items"`
}

type ItemSummaryResponse struct {
	LineItemID    string `json:"line_item_id"`
	ProductID     string `json:"product_id"`
	ProductName   string `json:"product_name"`
	FarmerID      string `json:"farmer_id"`
	FarmerName    string `json:"farmer_name"`
	Quantity      int    `json:"quantity"`
	UnitPrice     int64  `json:"unit_price"`
	ExtendedPrice int64  `json:"extended_price"`
}

type OrderSummaryResponse struct {
	OrderID     string                `json:"order_id"`
	BuyerID     string                `json:"buyer_id"`
	BuyerName   string                `json:"buyer_name"`
	TotalAmount int64                 `json:"total_amount"`
	CreatedAt   time.Time             `json:"created_at"`
	Items       []ItemSummaryResponse `json:"items"`
}

type ProductRequest struct {
	Name              string `json:"name"`
	Description       string `json:"description"`
	PricePerUnit      int64  `json:"price_per_unit"`
	QuantityAvailable int    `json:"quantity_available"`
}

type PriceRequest struct {
	PricePerUnit *int64 `json:"price_per_unit"`
}

type ProductResponse struct {
	ID                string    `json:"id"`
	FarmerID          string    `json:"farmer_id"`
	FarmerName        string    `json:"farmer_name,omitempty"`
	Name              string    `json:"name"`
	Description       string    `json:"description"`
	PricePerUnit      int64     `json:"price_per_unit"`
	QuantityAvailable int       `json:"quantity_available"`
	CreatedAt         time.Time `json:"created_at"`
}

func toItemRequests(in []OrderItemRequest) []domain.ItemRequest {
	out := make([]domain.ItemRequest, len(in))
	for i, it := range in {
		out[i] = domain.ItemRequest{ProductID: it.ProductID, Quantity: it.Quantity}
	}
	return out
}

func toOrderResponse(o domain.Order) OrderResponse {
	items := make([]LineItemResponse, len(o.Items))
	for i, it := range o.Items {
		items[i] = LineItemResponse{
			ID:            it.ID,
			ProductID:     it.ProductID,
			Quantity:      it.Quantity,
			UnitPrice:     it.UnitPrice,
			ExtendedPrice: it.ExtendedPrice,
		}
	}
	return OrderResponse{
		ID:          o.ID,
		BuyerID:     o.BuyerID,
		TotalAmount: o.TotalAmount,
		CreatedAt:   o.CreatedAt,
		DeliveredAt: o.DeliveredAt,
		Items:       items,
	}
}

func toSummaryResponses(in []domain.OrderSummary) []OrderSummaryResponse {
	out := make([]OrderSummaryResponse, len(in))
	for i, o := range in {
		items := make([]ItemSummaryResponse, len(o.Items))
		for j, it := range o.Items {
			items[j] = ItemSummaryResponse(it)
		}
		out[i] = OrderSummaryResponse{
			OrderID:     o.OrderID,
			BuyerID:     o.BuyerID,
			BuyerName:   o.BuyerName,
			TotalAmount: o.TotalAmount,
			CreatedAt:   o.CreatedAt,
			Items:       items,
		}
	}
	return out
}

func toProductResponse(p domain.Product, farmerName string) ProductResponse {
	return ProductResponse{
		ID:                p.ID,
		FarmerID:          p.FarmerID,
		FarmerName:        farmerName,
		Name:              p.Name,
		Description:       p.Description,
		PricePerUnit:      p.PricePerUnit,
		QuantityAvailable: p.QuantityAvailable,
		CreatedAt:         p.CreatedAt,
	}
}

package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/rl1809/harvest-market/internal/auth"
	"github.com/rl1809/harvest-market/internal/core/domain"
	"github.com/rl1809/harvest-market/internal/core/service"
	"github.com/rl1809/harvest-market/internal/logger"
	"github.com/rl1809/harvest-market/internal/metrics"
)

// IdempotencyKeyHeader makes a POST /orders retry-safe per grocer.
const IdempotencyKeyHeader = "Idempotency-Key"

const maxBodyBytes = 1 << 20

type HTTPHandler struct {
	orders  *service.OrderService
	views   *service.OrderViewService
	catalog *service.CatalogService
}

func NewHTTPHandler(orders *service.OrderService, views *service.OrderViewService, catalog *service.CatalogService) *HTTPHandler {
	return &HTTPHandler{orders: orders, views: views, catalog: catalog}
}

// NewRouter mounts the public API. Everything except /health and /metrics
// requires a bearer token.
func NewRouter(h *HTTPHandler, tokens *auth.Tokens) http.Handler {
	r := chi.NewRouter()
	r.Use(metrics.Middleware)
	r.Use(RequestID)
	r.Use(RequestLogger)
	r.Use(Recovery)

	r.Get("/health", h.HealthCheck)
	r.Handle("/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(Authenticate(tokens))

		r.Post("/orders", h.PlaceOrder)
		r.Get("/orders", h.ListOrders)

		r.Get("/products", h.ListProducts)
		r.Post("/products", h.CreateProduct)
		r.Patch("/products/{id}/price", h.UpdatePrice)
	})

	return r
}

func (h *HTTPHandler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	who, _ := IdentityFromCtx(r.Context())
	grocer, ok := who.(domain.Grocer)
	if !ok {
		writeError(w, http.StatusForbidden, "only grocers can place orders")
		return
	}

	var req []OrderItemRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.orders.PlaceOrderOnce(r.Context(), r.Header.Get(IdempotencyKeyHeader), grocer, toItemRequests(req))
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toOrderResponse(order))
}

func (h *HTTPHandler) ListOrders(w http.ResponseWriter, r *http.Request) {
	who, _ := IdentityFromCtx(r.Context())

	orders, err := h.views.ListOrders(r.Context(), who)
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toSummaryResponses(orders))
}

func (h *HTTPHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.catalog.ListProducts(r.Context())
	if err != nil {
		h.fail(w, r, err)
		return
	}

	out := make([]ProductResponse, len(products))
	for i, p := range products {
		out[i] = toProductResponse(p.Product, p.FarmerName)
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *HTTPHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	who, _ := IdentityFromCtx(r.Context())
	farmer, ok := who.(domain.Farmer)
	if !ok {
		writeError(w, http.StatusForbidden, "only farmers can list products")
		return
	}

	var req ProductRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	product, err := h.catalog.CreateProduct(r.Context(), farmer, service.NewProduct{
		Name:              req.Name,
		Description:       req.Description,
		PricePerUnit:      req.PricePerUnit,
		QuantityAvailable: req.QuantityAvailable,
	})
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, toProductResponse(product, ""))
}

func (h *HTTPHandler) UpdatePrice(w http.ResponseWriter, r *http.Request) {
	who, _ := IdentityFromCtx(r.Context())
	farmer, ok := who.(domain.Farmer)
	if !ok {
		writeError(w, http.StatusForbidden, "only farmers can change prices")
		return
	}

	var req PriceRequest
	if err := decodeJSON(w, r, &req); err != nil || req.PricePerUnit == nil {
		writeError(w, http.StatusBadRequest, "price_per_unit is required")
		return
	}

	product, err := h.catalog.UpdatePrice(r.Context(), farmer, chi.URLParam(r, "id"), *req.PricePerUnit)
	if errors.Is(err, service.ErrProductNotFound) {
		writeError(w, http.StatusNotFound, "product not found")
		return
	}
	if err != nil {
		h.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, toProductResponse(product, ""))
}

func (h *HTTPHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *HTTPHandler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status, message := errorStatus(err)
	if status == http.StatusInternalServerError {
		logger.WithCtx(r.Context()).Error("request failed", "path", r.URL.Path, "error", err)
	}
	writeError(w, status, message)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	return dec.Decode(dst)
}

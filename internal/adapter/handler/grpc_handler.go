package handler

import (
	"context"
	"encoding/json"
	"errors"
	"runtime/debug"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/rl1809/harvest-market/internal/auth"
	"github.com/rl1809/harvest-market/internal/core/domain"
	"github.com/rl1809/harvest-market/internal/core/service"
	"github.com/rl1809/harvest-market/internal/logger"
)

// JSONCodecName is the content subtype clients must request, e.g.
// grpc.WithDefaultCallOptions(grpc.CallContentSubtype(JSONCodecName)).
const JSONCodecName = "json"

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (jsonCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (jsonCodec) Name() string                       { return JSONCodecName }

func init() {
	encoding.RegisterCodec(jsonCodec{})
}

const (
	orderServiceName      = "harvest.v1.OrderService"
	placeOrderFullMethod  = "/" + orderServiceName + "/PlaceOrder"
	listOrdersFullMethod  = "/" + orderServiceName + "/ListOrders"
	idempotencyKeyMDField = "idempotency-key"
)

type PlaceOrderRequest struct {
	Items []OrderItemRequest `json:"items"`
}

type PlaceOrderResponse struct {
	Order OrderResponse `json:"order"`
}

type ListOrdersRequest struct{}

type ListOrdersResponse struct {
	Orders []OrderSummaryResponse `json:"orders"`
}

type OrderServiceServer interface {
	PlaceOrder(context.Context, *PlaceOrderRequest) (*PlaceOrderResponse, error)
	ListOrders(context.Context, *ListOrdersRequest) (*ListOrdersResponse, error)
}

var OrderServiceDesc = grpc.ServiceDesc{
	ServiceName: orderServiceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "PlaceOrder", Handler: placeOrderHandler},
		{MethodName: "ListOrders", Handler: listOrdersHandler},
	},
	Streams: []grpc.StreamDesc{},
}

func RegisterOrderServiceServer(s grpc.ServiceRegistrar, srv OrderServiceServer) {
	s.RegisterService(&OrderServiceDesc, srv)
}

func placeOrderHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PlaceOrderRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderServiceServer).PlaceOrder(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: placeOrderFullMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(OrderServiceServer).PlaceOrder(ctx, req.(*PlaceOrderRequest))
	})
}

func listOrdersHandler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListOrdersRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(OrderServiceServer).ListOrders(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: listOrdersFullMethod}
	return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
		return srv.(OrderServiceServer).ListOrders(ctx, req.(*ListOrdersRequest))
	})
}

// OrderServiceClient calls OrderService over a connection using the JSON codec.
type OrderServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewOrderServiceClient(cc grpc.ClientConnInterface) *OrderServiceClient {
	return &OrderServiceClient{cc: cc}
}

func (c *OrderServiceClient) PlaceOrder(ctx context.Context, in *PlaceOrderRequest, opts ...grpc.CallOption) (*PlaceOrderResponse, error) {
	out := new(PlaceOrderResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(JSONCodecName)}, opts...)
	if err := c.cc.Invoke(ctx, placeOrderFullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *OrderServiceClient) ListOrders(ctx context.Context, in *ListOrdersRequest, opts ...grpc.CallOption) (*ListOrdersResponse, error) {
	out := new(ListOrdersResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(JSONCodecName)}, opts...)
	if err := c.cc.Invoke(ctx, listOrdersFullMethod, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

type GRPCHandler struct {
	orders *service.OrderService
	views  *service.OrderViewService
	tokens *auth.Tokens
}

func NewGRPCHandler(orders *service.OrderService, views *service.OrderViewService, tokens *auth.Tokens) *GRPCHandler {
	return &GRPCHandler{orders: orders, views: views, tokens: tokens}
}

// NewGRPCServer returns a server with OrderService registered behind the
// recovery and logging interceptors.
func NewGRPCServer(h *GRPCHandler, opts ...grpc.ServerOption) *grpc.Server {
	opts = append(opts, grpc.ChainUnaryInterceptor(recoveryInterceptor, loggingInterceptor))
	srv := grpc.NewServer(opts...)
	RegisterOrderServiceServer(srv, h)
	return srv
}

func (h *GRPCHandler) PlaceOrder(ctx context.Context, req *PlaceOrderRequest) (*PlaceOrderResponse, error) {
	who, err := h.identify(ctx)
	if err != nil {
		return nil, err
	}
	grocer, ok := who.(domain.Grocer)
	if !ok {
		return nil, status.Error(codes.PermissionDenied, "only grocers can place orders")
	}

	order, err := h.orders.PlaceOrderOnce(ctx, firstMD(ctx, idempotencyKeyMDField), grocer, toItemRequests(req.Items))
	if err != nil {
		return nil, grpcError(ctx, err)
	}

	return &PlaceOrderResponse{Order: toOrderResponse(order)}, nil
}

func (h *GRPCHandler) ListOrders(ctx context.Context, _ *ListOrdersRequest) (*ListOrdersResponse, error) {
	who, err := h.identify(ctx)
	if err != nil {
		return nil, err
	}

	orders, err := h.views.ListOrders(ctx, who)
	if err != nil {
		return nil, grpcError(ctx, err)
	}

	return &ListOrdersResponse{Orders: toSummaryResponses(orders)}, nil
}

func (h *GRPCHandler) identify(ctx context.Context) (domain.Identity, error) {
	who, err := h.tokens.Parse(auth.BearerToken(firstMD(ctx, "authorization")))
	if err != nil {
		return nil, status.Error(codes.Unauthenticated, "unauthorized")
	}
	return who, nil
}

func firstMD(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if v := md.Get(key); len(v) > 0 {
		return v[0]
	}
	return ""
}

func grpcError(ctx context.Context, err error) error {
	var stockErr *service.InsufficientStockError
	switch {
	case errors.As(err, &stockErr):
		return status.Errorf(codes.FailedPrecondition, "insufficient stock for product %s: available %d",
			stockErr.ProductID, stockErr.Available)
	case errors.Is(err, service.ErrInvalidOrder), errors.Is(err, service.ErrProductNotFound):
		return status.Error(codes.InvalidArgument, err.Error())
	case errors.Is(err, service.ErrDuplicateRequest):
		return status.Error(codes.AlreadyExists, "duplicate request")
	case errors.Is(err, service.ErrForbidden):
		return status.Error(codes.PermissionDenied, "forbidden")
	default:
		logger.WithCtx(ctx).Error("grpc call failed", "error", err)
		return status.Error(codes.Internal, "internal error")
	}
}

func recoveryInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
	defer func() {
		if r := recover(); r != nil {
			logger.WithCtx(ctx).Error("grpc: panic recovered",
				"method", info.FullMethod,
				"panic", r,
				"stack", string(debug.Stack()),
			)
			err = status.Error(codes.Internal, "internal server error")
		}
	}()
	return handler(ctx, req)
}

// loggingInterceptor injects a request-scoped logger and logs each call.
func loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()

	id := firstMD(ctx, "x-request-id")
	if id == "" {
		id = newRequestID()
	}
	reqLog := logger.L.With("request_id", id)
	ctx = logger.InjectLogger(ctx, reqLog)

	resp, err := handler(ctx, req)

	reqLog.Info("grpc: request",
		"method", info.FullMethod,
		"duration_ms", time.Since(start).Milliseconds(),
		"code", status.Code(err).String(),
	)
	return resp, err
}

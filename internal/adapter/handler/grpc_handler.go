package handler

import (
	"context"
	"encoding/json"
	"log"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/encoding"
	"google.golang.org/grpc/status"

	"github.com/rl1809/click-n-sip/internal/core/domain"
	"github.com/rl1809/click-n-sip/internal/core/service"
)

const StorefrontServiceName = "clicknsip.Storefront"

// JSONCodec carries storefront messages as JSON so the service needs no
// generated stubs. Clients select it with grpc.CallContentSubtype("json").
type JSONCodec struct{}

func (JSONCodec) Marshal(v any) ([]byte, error)      { return json.Marshal(v) }
func (JSONCodec) Unmarshal(data []byte, v any) error { return json.Unmarshal(data, v) }
func (JSONCodec) Name() string                       { return "json" }

func init() {
	encoding.RegisterCodec(JSONCodec{})
}

type SessionRequest struct {
	SessionID string `json:"session_id"`
}

type AuthenticateRequest struct {
	SessionID string `json:"session_id"`
	Email     string `json:"email"`
	Password  string `json:"password"`
}

type VerifyAgeRequest struct {
	SessionID string `json:"session_id"`
	BirthDate string `json:"birth_date"`
}

type CartItemRequest struct {
	SessionID string `json:"session_id"`
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity,omitempty"`
}

type PlaceOrderRPC struct {
	SessionID     string `json:"session_id"`
	Address       string `json:"address"`
	Phone         string `json:"phone"`
	PaymentMethod string `json:"payment_method,omitempty"`
}

type Empty struct{}

type StorefrontServer interface {
	CreateSession(context.Context, *SessionRequest) (*StateDTO, error)
	DeleteSession(context.Context, *SessionRequest) (*Empty, error)
	Authenticate(context.Context, *AuthenticateRequest) (*StateDTO, error)
	VerifyAge(context.Context, *VerifyAgeRequest) (*AgeResponse, error)
	AddToCart(context.Context, *CartItemRequest) (*CartDTO, error)
	UpdateQuantity(context.Context, *CartItemRequest) (*CartDTO, error)
	RemoveItem(context.Context, *CartItemRequest) (*CartDTO, error)
	GetCart(context.Context, *SessionRequest) (*CartDTO, error)
	GoToCheckout(context.Context, *SessionRequest) (*StateDTO, error)
	Back(context.Context, *SessionRequest) (*StateDTO, error)
	PlaceOrder(context.Context, *PlaceOrderRPC) (*OrderDTO, error)
	GetOrder(context.Context, *SessionRequest) (*OrderDTO, error)
}

type GRPCHandler struct {
	registry *service.Registry
	onDelete func(sessionID string)
}

// NewGRPCHandler serves the storefront over gRPC. onDelete, when set, runs
// after a session is removed, same as for the HTTP handler.
func NewGRPCHandler(registry *service.Registry, onDelete func(sessionID string)) *GRPCHandler {
	return &GRPCHandler{registry: registry, onDelete: onDelete}
}

func RegisterStorefrontServer(s grpc.ServiceRegistrar, srv StorefrontServer) {
	s.RegisterService(&storefrontServiceDesc, srv)
}

func (h *GRPCHandler) CreateSession(ctx context.Context, req *SessionRequest) (*StateDTO, error) {
	state := toStateDTO(h.registry.Create())
	return &state, nil
}

func (h *GRPCHandler) DeleteSession(ctx context.Context, req *SessionRequest) (*Empty, error) {
	sess, err := h.registry.Get(req.SessionID)
	if err != nil {
		return nil, grpcError(err)
	}
	h.registry.Delete(sess.ID())
	if h.onDelete != nil {
		h.onDelete(sess.ID())
	}
	return &Empty{}, nil
}

func (h *GRPCHandler) Authenticate(ctx context.Context, req *AuthenticateRequest) (*StateDTO, error) {
	sess, err := h.registry.Get(req.SessionID)
	if err != nil {
		return nil, grpcError(err)
	}
	if err := sess.Authenticate(ctx, req.Email, req.Password); err != nil {
		return nil, grpcError(err)
	}
	state := toStateDTO(sess)
	return &state, nil
}

func (h *GRPCHandler) VerifyAge(ctx context.Context, req *VerifyAgeRequest) (*AgeResponse, error) {
	sess, err := h.registry.Get(req.SessionID)
	if err != nil {
		return nil, grpcError(err)
	}
	birth, err := parseBirthDate(req.BirthDate)
	if err != nil {
		return nil, grpcError(err)
	}
	verified, err := sess.VerifyAge(ctx, birth)
	if err != nil {
		return nil, grpcError(err)
	}
	return &AgeResponse{Verified: verified, State: toStateDTO(sess)}, nil
}

func (h *GRPCHandler) AddToCart(ctx context.Context, req *CartItemRequest) (*CartDTO, error) {
	return h.cartCall(req.SessionID, func(sess *service.SessionService) error {
		return sess.AddToCart(ctx, req.ProductID)
	})
}

func (h *GRPCHandler) UpdateQuantity(ctx context.Context, req *CartItemRequest) (*CartDTO, error) {
	return h.cartCall(req.SessionID, func(sess *service.SessionService) error {
		return sess.UpdateQuantity(ctx, req.ProductID, req.Quantity)
	})
}

func (h *GRPCHandler) RemoveItem(ctx context.Context, req *CartItemRequest) (*CartDTO, error) {
	return h.cartCall(req.SessionID, func(sess *service.SessionService) error {
		return sess.RemoveItem(ctx, req.ProductID)
	})
}

func (h *GRPCHandler) GetCart(ctx context.Context, req *SessionRequest) (*CartDTO, error) {
	return h.cartCall(req.SessionID, nil)
}

func (h *GRPCHandler) GoToCheckout(ctx context.Context, req *SessionRequest) (*StateDTO, error) {
	return h.transition(req.SessionID, func(sess *service.SessionService) error {
		return sess.GoToCheckout(ctx)
	})
}

func (h *GRPCHandler) Back(ctx context.Context, req *SessionRequest) (*StateDTO, error) {
	return h.transition(req.SessionID, func(sess *service.SessionService) error {
		return sess.Back()
	})
}

func (h *GRPCHandler) PlaceOrder(ctx context.Context, req *PlaceOrderRPC) (*OrderDTO, error) {
	sess, err := h.registry.Get(req.SessionID)
	if err != nil {
		return nil, grpcError(err)
	}
	order, err := sess.PlaceOrder(ctx, service.CheckoutDetails{
		Address:       req.Address,
		Phone:         req.Phone,
		PaymentMethod: domain.PaymentMethod(req.PaymentMethod),
	})
	if err != nil {
		return nil, grpcError(err)
	}
	dto := toOrderDTO(order)
	return &dto, nil
}

func (h *GRPCHandler) GetOrder(ctx context.Context, req *SessionRequest) (*OrderDTO, error) {
	sess, err := h.registry.Get(req.SessionID)
	if err != nil {
		return nil, grpcError(err)
	}
	order, ok := sess.ActiveOrder()
	if !ok {
		return nil, status.Error(codes.NotFound, "no active order")
	}
	dto := toOrderDTO(order)
	return &dto, nil
}

func (h *GRPCHandler) transition(sessionID string, fn func(*service.SessionService) error) (*StateDTO, error) {
	sess, err := h.registry.Get(sessionID)
	if err != nil {
		return nil, grpcError(err)
	}
	if err := fn(sess); err != nil {
		return nil, grpcError(err)
	}
	state := toStateDTO(sess)
	return &state, nil
}

func (h *GRPCHandler) cartCall(sessionID string, fn func(*service.SessionService) error) (*CartDTO, error) {
	sess, err := h.registry.Get(sessionID)
	if err != nil {
		return nil, grpcError(err)
	}
	if fn != nil {
		if err := fn(sess); err != nil {
			return nil, grpcError(err)
		}
	}
	lines, err := sess.Cart()
	if err != nil {
		return nil, grpcError(err)
	}
	cart := toCartDTO(lines)
	return &cart, nil
}

var grpcCodes = map[errorCode]codes.Code{
	codeInternal:   codes.Internal,
	codeBadRequest: codes.InvalidArgument,
	codeForbidden:  codes.PermissionDenied,
	codeNotFound:   codes.NotFound,
	codeConflict:   codes.FailedPrecondition,
	codeTimeout:    codes.DeadlineExceeded,
}

func grpcError(err error) error {
	code, _ := classify(err)
	if code == codeInternal {
		log.Printf("grpc handler: %v", err)
		return status.Error(codes.Internal, "internal error")
	}
	return status.Error(grpcCodes[code], err.Error())
}

func unaryMethod[Req, Resp any](name string, call func(StorefrontServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	fullMethod := "/" + StorefrontServiceName + "/" + name
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			req := new(Req)
			if err := dec(req); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(StorefrontServer), ctx, req)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			return interceptor(ctx, req, info, func(ctx context.Context, r any) (any, error) {
				return call(srv.(StorefrontServer), ctx, r.(*Req))
			})
		},
	}
}

var storefrontServiceDesc = grpc.ServiceDesc{
	ServiceName: StorefrontServiceName,
	HandlerType: (*StorefrontServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryMethod("CreateSession", StorefrontServer.CreateSession),
		unaryMethod("DeleteSession", StorefrontServer.DeleteSession),
		unaryMethod("Authenticate", StorefrontServer.Authenticate),
		unaryMethod("VerifyAge", StorefrontServer.VerifyAge),
		unaryMethod("AddToCart", StorefrontServer.AddToCart),
		unaryMethod("UpdateQuantity", StorefrontServer.UpdateQuantity),
		unaryMethod("RemoveItem", StorefrontServer.RemoveItem),
		unaryMethod("GetCart", StorefrontServer.GetCart),
		unaryMethod("GoToCheckout", StorefrontServer.GoToCheckout),
		unaryMethod("Back", StorefrontServer.Back),
		unaryMethod("PlaceOrder", StorefrontServer.PlaceOrder),
		unaryMethod("GetOrder", StorefrontServer.GetOrder),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "clicknsip/storefront",
}

// StorefrontClient calls the storefront service over a JSON-coded connection.
type StorefrontClient struct {
	cc grpc.ClientConnInterface
}

func NewStorefrontClient(cc grpc.ClientConnInterface) *StorefrontClient {
	return &StorefrontClient{cc: cc}
}

func (c *StorefrontClient) invoke(ctx context.Context, method string, req, resp any) error {
	return c.cc.Invoke(ctx, "/"+StorefrontServiceName+"/"+method, req, resp, grpc.CallContentSubtype(JSONCodec{}.Name()))
}

func (c *StorefrontClient) CreateSession(ctx context.Context) (*StateDTO, error) {
	out := new(StateDTO)
	return out, c.invoke(ctx, "CreateSession", &SessionRequest{}, out)
}

func (c *StorefrontClient) DeleteSession(ctx context.Context, req *SessionRequest) error {
	return c.invoke(ctx, "DeleteSession", req, new(Empty))
}

func (c *StorefrontClient) Authenticate(ctx context.Context, req *AuthenticateRequest) (*StateDTO, error) {
	out := new(StateDTO)
	return out, c.invoke(ctx, "Authenticate", req, out)
}

func (c *StorefrontClient) VerifyAge(ctx context.Context, req *VerifyAgeRequest) (*AgeResponse, error) {
	out := new(AgeResponse)
	return out, c.invoke(ctx, "VerifyAge", req, out)
}

func (c *StorefrontClient) AddToCart(ctx context.Context, req *CartItemRequest) (*CartDTO, error) {
	out := new(CartDTO)
	return out, c.invoke(ctx, "AddToCart", req, out)
}

func (c *StorefrontClient) UpdateQuantity(ctx context.Context, req *CartItemRequest) (*CartDTO, error) {
	out := new(CartDTO)
	return out, c.invoke(ctx, "UpdateQuantity", req, out)
}

func (c *StorefrontClient) RemoveItem(ctx context.Context, req *CartItemRequest) (*CartDTO, error) {
	out := new(CartDTO)
	return out, c.invoke(ctx, "RemoveItem", req, out)
}

func (c *StorefrontClient) GetCart(ctx context.Context, req *SessionRequest) (*CartDTO, error) {
	out := new(CartDTO)
	return out, c.invoke(ctx, "GetCart", req, out)
}

func (c *StorefrontClient) GoToCheckout(ctx context.Context, req *SessionRequest) (*StateDTO, error) {
	out := new(StateDTO)
	return out, c.invoke(ctx, "GoToCheckout", req, out)
}

func (c *StorefrontClient) Back(ctx context.Context, req *SessionRequest) (*StateDTO, error) {
	out := new(StateDTO)
	return out, c.invoke(ctx, "Back", req, out)
}

func (c *StorefrontClient) PlaceOrder(ctx context.Context, req *PlaceOrderRPC) (*OrderDTO, error) {
	out := new(OrderDTO)
	return out, c.invoke(ctx, "PlaceOrder", req, out)
}

func (c *StorefrontClient) GetOrder(ctx context.Context, req *SessionRequest) (*OrderDTO, error) {
	out := new(OrderDTO)
	return out, c.invoke(ctx, "GetOrder", req, out)
}

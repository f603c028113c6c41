package grpc

import (
	"context"

	gogrpc "google.golang.org/grpc"
)

const ServiceName = "cart.v1.CartService"

// CartServiceServer is the server API for the cart service.
type CartServiceServer interface {
	GetCart(context.Context, *CartRequest) (*Cart, error)
	AddItem(context.Context, *AddItemRequest) (*MutationResponse, error)
	SetItemQuantity(context.Context, *SetItemQuantityRequest) (*MutationResponse, error)
	RemoveItem(context.Context, *RemoveItemRequest) (*MutationResponse, error)
	ClearCart(context.Context, *CartRequest) (*MutationResponse, error)
	Checkout(context.Context, *CartRequest) (*CheckoutResponse, error)
	WatchCart(*CartRequest, CartWatchStream) error
}

// CartWatchStream is the server side of WatchCart.
type CartWatchStream interface {
	Send(*CartEvent) error
	Context() context.Context
}

var ServiceDesc = gogrpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*CartServiceServer)(nil),
	Methods: []gogrpc.MethodDesc{
		unary("GetCart", CartServiceServer.GetCart),
		unary("AddItem", CartServiceServer.AddItem),
		unary("SetItemQuantity", CartServiceServer.SetItemQuantity),
		unary("RemoveItem", CartServiceServer.RemoveItem),
		unary("ClearCart", CartServiceServer.ClearCart),
		unary("Checkout", CartServiceServer.Checkout),
	},
	Streams: []gogrpc.StreamDesc{
		{
			StreamName:    "WatchCart",
			Handler:       watchCartHandler,
			ServerStreams: true,
		},
	},
	Metadata: "cart/v1/cart.json",
}

func RegisterCartServiceServer(s gogrpc.ServiceRegistrar, srv CartServiceServer) {
	s.RegisterService(&ServiceDesc, srv)
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

func unary[Req, Resp any](name string, call func(CartServiceServer, context.Context, *Req) (*Resp, error)) gogrpc.MethodDesc {
	return gogrpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor gogrpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CartServiceServer), ctx, in)
			}
			info := &gogrpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			return interceptor(ctx, in, info, func(ctx context.Context, req any) (any, error) {
				return call(srv.(CartServiceServer), ctx, req.(*Req))
			})
		},
	}
}

func watchCartHandler(srv any, stream gogrpc.ServerStream) error {
	in := new(CartRequest)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(CartServiceServer).WatchCart(in, &watchStream{stream})
}

type watchStream struct {
	gogrpc.ServerStream
}

func (s *watchStream) Send(ev *CartEvent) error {
	return s.ServerStream.SendMsg(ev)
}

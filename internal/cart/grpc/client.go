package grpc

import (
	"context"

	gogrpc "google.golang.org/grpc"
)

// Client calls the cart service over an existing connection using the JSON
// codec.
type Client struct {
	cc gogrpc.ClientConnInterface
}

func NewClient(cc gogrpc.ClientConnInterface) *Client {
	return &Client{cc: cc}
}

func (c *Client) invoke(ctx context.Context, method string, in, out any, opts ...gogrpc.CallOption) error {
	opts = append([]gogrpc.CallOption{gogrpc.CallContentSubtype(CodecName)}, opts...)
	return c.cc.Invoke(ctx, fullMethod(method), in, out, opts...)
}

func (c *Client) GetCart(ctx context.Context, in *CartRequest, opts ...gogrpc.CallOption) (*Cart, error) {
	out := new(Cart)
	if err := c.invoke(ctx, "GetCart", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) AddItem(ctx context.Context, in *AddItemRequest, opts ...gogrpc.CallOption) (*MutationResponse, error) {
	out := new(MutationResponse)
	if err := c.invoke(ctx, "AddItem", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) SetItemQuantity(ctx context.Context, in *SetItemQuantityRequest, opts ...gogrpc.CallOption) (*MutationResponse, error) {
	out := new(MutationResponse)
	if err := c.invoke(ctx, "SetItemQuantity", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) RemoveItem(ctx context.Context, in *RemoveItemRequest, opts ...gogrpc.CallOption) (*MutationResponse, error) {
	out := new(MutationResponse)
	if err := c.invoke(ctx, "RemoveItem", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ClearCart(ctx context.Context, in *CartRequest, opts ...gogrpc.CallOption) (*MutationResponse, error) {
	out := new(MutationResponse)
	if err := c.invoke(ctx, "ClearCart", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Checkout(ctx context.Context, in *CartRequest, opts ...gogrpc.CallOption) (*CheckoutResponse, error) {
	out := new(CheckoutResponse)
	if err := c.invoke(ctx, "Checkout", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// CartEvents is the client side of WatchCart.
type CartEvents interface {
	Recv() (*CartEvent, error)
}

func (c *Client) WatchCart(ctx context.Context, in *CartRequest, opts ...gogrpc.CallOption) (CartEvents, error) {
	opts = append([]gogrpc.CallOption{gogrpc.CallContentSubtype(CodecName)}, opts...)
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], fullMethod("WatchCart"), opts...)
	if err != nil {
		return nil, err
	}
	if err := stream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := stream.CloseSend(); err != nil {
		return nil, err
	}
	return &eventStream{stream}, nil
}

type eventStream struct {
	gogrpc.ClientStream
}

func (s *eventStream) Recv() (*CartEvent, error) {
	ev := new(CartEvent)
	if err := s.ClientStream.RecvMsg(ev); err != nil {
		return nil, err
	}
	return ev, nil
}

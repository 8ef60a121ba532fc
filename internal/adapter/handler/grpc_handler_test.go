package handler

import (
	"context"
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	"github.com/rl1809/click-n-sip/internal/adapter/notifier"
)

func newTestClient(t *testing.T) *StorefrontClient {
	t.Helper()
	return newTestClientWithHook(t, nil)
}

func newTestClientWithHook(t *testing.T, onDelete func(string)) *StorefrontClient {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	srv := grpc.NewServer()
	inboxes := notifier.NewInboxSet(notifier.DefaultInboxSize)
	if onDelete == nil {
		onDelete = inboxes.Remove
	}
	RegisterStorefrontServer(srv, NewGRPCHandler(newTestRegistry(t, inboxes), onDelete))
	go srv.Serve(lis)
	t.Cleanup(srv.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return NewStorefrontClient(conn)
}

func TestGRPC_ShoppingFlow(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	state, err := client.CreateSession(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, state.SessionID)
	assert.Equal(t, "unauthenticated", state.Stage)
	id := state.SessionID

	state, err = client.Authenticate(ctx, &AuthenticateRequest{SessionID: id, Email: "shopper@example.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, "age-gate", state.Stage)

	age, err := client.VerifyAge(ctx, &VerifyAgeRequest{SessionID: id, BirthDate: "2008-10-16"})
	require.NoError(t, err)
	assert.True(t, age.Verified)
	assert.Equal(t, "home", age.State.Stage)

	for _, pid := range []string{"3", "3", "1"} {
		_, err = client.AddToCart(ctx, &CartItemRequest{SessionID: id, ProductID: pid})
		require.NoError(t, err)
	}
	cart, err := client.GetCart(ctx, &SessionRequest{SessionID: id})
	require.NoError(t, err)
	assert.Equal(t, 3, cart.ItemCount)
	assert.Equal(t, "71.97", cart.Total)

	cart, err = client.UpdateQuantity(ctx, &CartItemRequest{SessionID: id, ProductID: "3", Quantity: 0})
	require.NoError(t, err)
	require.Len(t, cart.Items, 1)
	assert.Equal(t, "45.99", cart.Total)

	cart, err = client.RemoveItem(ctx, &CartItemRequest{SessionID: id, ProductID: "1"})
	require.NoError(t, err)
	assert.Empty(t, cart.Items)
}

func TestGRPC_ErrorCodes(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	_, err := client.GetCart(ctx, &SessionRequest{SessionID: "missing"})
	assert.Equal(t, codes.NotFound, status.Code(err))

	state, err := client.CreateSession(ctx)
	require.NoError(t, err)

	_, err = client.AddToCart(ctx, &CartItemRequest{SessionID: state.SessionID, ProductID: "1"})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	_, err = client.Authenticate(ctx, &AuthenticateRequest{SessionID: state.SessionID, Email: "only@email.com"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	_, err = client.VerifyAge(ctx, &VerifyAgeRequest{SessionID: state.SessionID, BirthDate: "2000-01-01"})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = client.GetOrder(ctx, &SessionRequest{SessionID: state.SessionID})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestGRPC_UnderageEndsSession(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()

	state, err := client.CreateSession(ctx)
	require.NoError(t, err)
	_, err = client.Authenticate(ctx, &AuthenticateRequest{SessionID: state.SessionID, Email: "kid@example.com", Password: "pw"})
	require.NoError(t, err)

	age, err := client.VerifyAge(ctx, &VerifyAgeRequest{SessionID: state.SessionID, BirthDate: "2008-10-17"})
	require.NoError(t, err)
	assert.False(t, age.Verified)
	assert.Equal(t, "unauthenticated", age.State.Stage)
}

func verifiedGRPCSession(t *testing.T, client *StorefrontClient) string {
	t.Helper()
	ctx := context.Background()

	state, err := client.CreateSession(ctx)
	require.NoError(t, err)
	_, err = client.Authenticate(ctx, &AuthenticateRequest{SessionID: state.SessionID, Email: "shopper@example.com", Password: "pw"})
	require.NoError(t, err)
	age, err := client.VerifyAge(ctx, &VerifyAgeRequest{SessionID: state.SessionID, BirthDate: "1990-05-04"})
	require.NoError(t, err)
	require.True(t, age.Verified)
	return state.SessionID
}

func TestGRPC_CheckoutFlow(t *testing.T) {
	client := newTestClient(t)
	ctx := context.Background()
	id := verifiedGRPCSession(t, client)
	req := &SessionRequest{SessionID: id}

	_, err := client.GoToCheckout(ctx, req)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	for _, pid := range []string{"3", "3", "1"} {
		_, err = client.AddToCart(ctx, &CartItemRequest{SessionID: id, ProductID: pid})
		require.NoError(t, err)
	}

	state, err := client.GoToCheckout(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "checkout", state.Stage)

	state, err = client.Back(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "home", state.Stage)

	_, err = client.PlaceOrder(ctx, &PlaceOrderRPC{SessionID: id, Address: "12 Vine St", Phone: "555-0100"})
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))

	_, err = client.GoToCheckout(ctx, req)
	require.NoError(t, err)

	_, err = client.PlaceOrder(ctx, &PlaceOrderRPC{SessionID: id, Address: "12 Vine St"})
	assert.Equal(t, codes.InvalidArgument, status.Code(err))

	order, err := client.PlaceOrder(ctx, &PlaceOrderRPC{SessionID: id, Address: "12 Vine St", Phone: "555-0100", PaymentMethod: "mobile"})
	require.NoError(t, err)
	assert.NotEmpty(t, order.ID)
	assert.Equal(t, "preparing", order.Status)
	assert.Equal(t, "71.97", order.Subtotal)
	assert.Equal(t, "5.99", order.DeliveryFee)
	assert.Equal(t, "77.96", order.Total)
	assert.Equal(t, "mobile", order.PaymentMethod)

	active, err := client.GetOrder(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, order.ID, active.ID)

	cart, err := client.GetCart(ctx, req)
	require.NoError(t, err)
	assert.Empty(t, cart.Items)

	_, err = client.Back(ctx, req)
	assert.Equal(t, codes.FailedPrecondition, status.Code(err))
}

func TestGRPC_DeleteSession(t *testing.T) {
	var removed []string
	client := newTestClientWithHook(t, func(id string) { removed = append(removed, id) })
	ctx := context.Background()
	id := verifiedGRPCSession(t, client)

	require.NoError(t, client.DeleteSession(ctx, &SessionRequest{SessionID: id}))
	assert.Equal(t, []string{id}, removed)

	_, err := client.GetCart(ctx, &SessionRequest{SessionID: id})
	assert.Equal(t, codes.NotFound, status.Code(err))

	err = client.DeleteSession(ctx, &SessionRequest{SessionID: id})
	assert.Equal(t, codes.NotFound, status.Code(err))
	assert.Len(t, removed, 1)
}

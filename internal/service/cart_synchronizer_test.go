package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/fjod/storefront/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newCart(gw *mockGateway, ids IdentitySource) (*CartSynchronizer, *mockNotifier) {
	n := &mockNotifier{}
	return NewCartSynchronizer(gw, ids, WithNotifier(n)), n
}

func assertMirrorInvariants(t *testing.T, lines []domain.CartLine) {
	t.Helper()
	seen := map[string]bool{}
	for _, l := range lines {
		assert.False(t, seen[l.ProductID], "duplicate line for %s", l.ProductID)
		seen[l.ProductID] = true
		assert.GreaterOrEqual(t, l.Quantity, 1, "line %s", l.ProductID)
	}
}

func TestAddItem_Anonymous(t *testing.T) {
	gw := newMockGateway()
	sut, _ := newCart(gw, &fakeIdentity{})

	err := sut.AddItem(context.Background(), "prod-1", 1)
	assert.ErrorIs(t, err, ErrNotAuthenticated)
	assert.Empty(t, sut.View().Lines)
	assert.Empty(t, gw.callLog(), "anonymous mutation must not reach the gateway")
}

func TestMutations_AnonymousAreDeclined(t *testing.T) {
	gw := newMockGateway()
	sut, n := newCart(gw, &fakeIdentity{})
	ctx := context.Background()

	assert.ErrorIs(t, sut.SetQuantity(ctx, "prod-1", 3), ErrNotAuthenticated)
	assert.ErrorIs(t, sut.RemoveItem(ctx, "prod-1"), ErrNotAuthenticated)
	assert.ErrorIs(t, sut.Clear(ctx), ErrNotAuthenticated)
	assert.Empty(t, gw.callLog())
	assert.Empty(t, n.all())
}

func TestLoad_Anonymous_NoRemoteCall(t *testing.T) {
	gw := newMockGateway()
	sut, _ := newCart(gw, &fakeIdentity{})

	require.NoError(t, sut.Load(context.Background()))
	assert.Empty(t, sut.View().Lines)
	assert.Empty(t, gw.callLog())
}

func TestLoad_SignedInWithExistingLine(t *testing.T) {
	gw := newMockGateway()
	gw.seed("user-1", "prod-1", 2)
	sut, _ := newCart(gw, signedIn("user-1"))

	require.NoError(t, sut.Load(context.Background()))

	view := sut.View()
	require.Len(t, view.Lines, 1)
	assert.Equal(t, "prod-1", view.Lines[0].ProductID)
	assert.Equal(t, 2, view.Lines[0].Quantity)
	assert.Equal(t, 2, view.TotalItems)
	assert.False(t, view.Loading)
}

func TestAddItem_NewLine(t *testing.T) {
	gw := newMockGateway()
	sut, _ := newCart(gw, signedIn("user-1"))

	require.NoError(t, sut.AddItem(context.Background(), "prod-2", 2))

	view := sut.View()
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 2, view.Lines[0].Quantity)
	assert.Equal(t, "prod-2", view.Lines[0].Product.Name, "reload brings the joined product")
	assert.Equal(t, []string{"insert", "list"}, gw.callLog())
}

func TestAddItem_ZeroQuantityAddsOne(t *testing.T) {
	gw := newMockGateway()
	sut, _ := newCart(gw, signedIn("user-1"))

	require.NoError(t, sut.AddItem(context.Background(), "prod-1", 0))
	require.Len(t, sut.View().Lines, 1)
	assert.Equal(t, 1, sut.View().Lines[0].Quantity)
}

func TestAddItem_ExistingLineIncrements(t *testing.T) {
	gw := newMockGateway()
	gw.seed("user-1", "prod-1", 2)
	sut, _ := newCart(gw, signedIn("user-1"))
	ctx := context.Background()
	require.NoError(t, sut.Load(ctx))

	require.NoError(t, sut.AddItem(ctx, "prod-1", 1))

	remote := gw.remoteLines("user-1")
	require.Len(t, remote, 1)
	assert.Equal(t, 3, remote[0].Quantity)

	view := sut.View()
	require.Len(t, view.Lines, 1)
	assert.Equal(t, 3, view.Lines[0].Quantity)
}

func TestAddItem_StaleMirrorFallsBackToIncrement(t *testing.T) {
	gw := newMockGateway()
	sut, _ := newCart(gw, signedIn("user-1"))
	ctx := context.Background()
	require.NoError(t, sut.Load(ctx))

	// another tab adds the product after our load
	gw.seed("user-1", "prod-1", 2)

	require.NoError(t, sut.AddItem(ctx, "prod-1", 1))

	remote := gw.remoteLines("user-1")
	require.Len(t, remote, 1)
	assert.Equal(t, 3, remote[0].Quantity)
	assert.Equal(t, remote, sut.View().Lines)
}

func TestSetQuantity_ZeroRemovesLine(t *testing.T) {
	gw := newMockGateway()
	gw.seed("user-1", "prod-1", 2)
	gw.seed("user-1", "prod-2", 1)
	sut, _ := newCart(gw, signedIn("user-1"))
	ctx := context.Background()
	require.NoError(t, sut.Load(ctx))

	require.NoError(t, sut.SetQuantity(ctx, "prod-1", 0))

	_, ok := domain.FindLine(sut.View().Lines, "prod-1")
	assert.False(t, ok)
	_, ok = domain.FindLine(gw.remoteLines("user-1"), "prod-1")
	assert.False(t, ok)
	assert.Contains(t, gw.callLog(), "delete")
}

func TestSetQuantity_DoesNotClampToStock(t *testing.T) {
	gw := newMockGateway()
	gw.seed("user-1", "prod-1", 1)
	sut, _ := newCart(gw, signedIn("user-1"))
	ctx := context.Background()
	require.NoError(t, sut.Load(ctx))

	require.NoError(t, sut.SetQuantity(ctx, "prod-1", 50))
	assert.Equal(t, 50, sut.View().Lines[0].Quantity)
	assert.True(t, sut.View().Lines[0].AtStockLimit())
}

func TestRemoveItem_Idempotent(t *testing.T) {
	gw := newMockGateway()
	gw.seed("user-1", "prod-1", 2)
	gw.seed("user-1", "prod-2", 1)
	sut, _ := newCart(gw, signedIn("user-1"))
	ctx := context.Background()
	require.NoError(t, sut.Load(ctx))

	require.NoError(t, sut.RemoveItem(ctx, "prod-1"))
	once := sut.View().Lines

	require.NoError(t, sut.RemoveItem(ctx, "prod-1"))
	assert.Equal(t, once, sut.View().Lines)
	assert.Len(t, once, 1)
}

func TestClear_EmptiesMirrorWithoutReload(t *testing.T) {
	gw := newMockGateway()
	gw.seed("user-1", "prod-1", 2)
	sut, _ := newCart(gw, signedIn("user-1"))
	ctx := context.Background()
	require.NoError(t, sut.Load(ctx))

	require.NoError(t, sut.Clear(ctx))

	assert.Empty(t, sut.View().Lines)
	assert.Empty(t, gw.remoteLines("user-1"))
	assert.Equal(t, []string{"list", "deleteAll"}, gw.callLog())
}

func TestSequence_MirrorMatchesRemote(t *testing.T) {
	gw := newMockGateway()
	sut, _ := newCart(gw, signedIn("user-1"))
	ctx := context.Background()
	require.NoError(t, sut.Load(ctx))

	steps := []func() error{
		func() error { return sut.AddItem(ctx, "prod-1", 1) },
		func() error { return sut.AddItem(ctx, "prod-2", 2) },
		func() error { return sut.AddItem(ctx, "prod-1", 4) },
		func() error { return sut.SetQuantity(ctx, "prod-2", 7) },
		func() error { return sut.AddItem(ctx, "prod-3", 1) },
		func() error { return sut.SetQuantity(ctx, "prod-1", -1) },
		func() error { return sut.RemoveItem(ctx, "prod-3") },
		func() error { return sut.RemoveItem(ctx, "prod-3") },
		func() error { return sut.SetQuantity(ctx, "prod-9", 2) },
		func() error { return sut.AddItem(ctx, "prod-9", 1) },
	}

	for i, step := range steps {
		require.NoError(t, step(), "step %d", i)
		view := sut.View()
		assert.Equal(t, gw.remoteLines("user-1"), view.Lines, "step %d", i)
		assertMirrorInvariants(t, view.Lines)
		assert.Equal(t, domain.TotalItems(view.Lines), view.TotalItems)
		assert.True(t, domain.TotalPrice(view.Lines).Equal(view.TotalPrice))
	}

	view := sut.View()
	require.Len(t, view.Lines, 2)
	assert.Equal(t, 8, view.TotalItems)
	// prod-2: 7 x 20.00, prod-9: 1 x 79.00 (discounted)
	assert.True(t, decimal.RequireFromString("219.00").Equal(view.TotalPrice), view.TotalPrice.String())
}

func TestAddItem_InsertFailureLeavesMirror(t *testing.T) {
	gw := newMockGateway()
	gw.seed("user-1", "prod-1", 2)
	sut, n := newCart(gw, signedIn("user-1"))
	ctx := context.Background()
	require.NoError(t, sut.Load(ctx))
	before := sut.View().Lines

	cause := errors.New("network down")
	gw.failOn("insert", cause)

	err := sut.AddItem(ctx, "prod-2", 1)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrRemoteFailed)
	assert.ErrorIs(t, err, cause)

	var remoteErr *RemoteError
	require.True(t, errors.As(err, &remoteErr))
	assert.Equal(t, "add item", remoteErr.Op)

	assert.Equal(t, before, sut.View().Lines)
	failures := n.all()
	require.Len(t, failures, 1)
	assert.Equal(t, "prod-2", failures[0].ProductID)
	assert.Equal(t, "user-1", failures[0].UserID)
}

func TestSetQuantity_ReloadFailureLeavesLastKnownGood(t *testing.T) {
	gw := newMockGateway()
	gw.seed("user-1", "prod-1", 2)
	sut, _ := newCart(gw, signedIn("user-1"))
	ctx := context.Background()
	require.NoError(t, sut.Load(ctx))

	gw.failOn("list", errors.New("timeout"))

	err := sut.SetQuantity(ctx, "prod-1", 5)
	assert.ErrorIs(t, err, ErrRemoteFailed)
	assert.Equal(t, 2, sut.View().Lines[0].Quantity)
}

func TestClear_FailureLeavesMirror(t *testing.T) {
	gw := newMockGateway()
	gw.seed("user-1", "prod-1", 2)
	sut, _ := newCart(gw, signedIn("user-1"))
	ctx := context.Background()
	require.NoError(t, sut.Load(ctx))

	gw.failOn("deleteAll", errors.New("database error"))

	require.ErrorContains(t, sut.Clear(ctx), "database error")
	assert.Len(t, sut.View().Lines, 1)
}

func TestLoad_StaleIdentityDiscarded(t *testing.T) {
	gw := newMockGateway()
	gw.seed("user-1", "prod-1", 2)
	gate := make(chan struct{})
	gw.listGate = gate

	ids := signedIn("user-1")
	sut, _ := newCart(gw, ids)

	done := make(chan error, 1)
	go func() { done <- sut.Load(context.Background()) }()

	require.Eventually(t, func() bool {
		return sut.View().Loading
	}, time.Second, 5*time.Millisecond)

	// user signs out while the read is in flight
	ids.set("")
	close(gate)

	require.NoError(t, <-done)
	assert.Empty(t, sut.View().Lines)
	assert.False(t, sut.View().Loading)
}

func TestLoad_SwitchingUsersReplacesMirror(t *testing.T) {
	gw := newMockGateway()
	gw.seed("user-1", "prod-1", 2)
	gw.seed("user-2", "prod-3", 1)
	ids := signedIn("user-1")
	sut, _ := newCart(gw, ids)
	ctx := context.Background()

	require.NoError(t, sut.Load(ctx))
	require.Len(t, sut.View().Lines, 1)

	ids.set("user-2")
	require.NoError(t, sut.Load(ctx))
	view := sut.View()
	require.Len(t, view.Lines, 1)
	assert.Equal(t, "prod-3", view.Lines[0].ProductID)

	// the old user's line is not used for the increment shortcut
	require.NoError(t, sut.AddItem(ctx, "prod-1", 1))
	line, ok := domain.FindLine(gw.remoteLines("user-2"), "prod-1")
	require.True(t, ok)
	assert.Equal(t, 1, line.Quantity)
}

func TestLoad_SwitchingUsersFailureDropsPreviousLines(t *testing.T) {
	gw := newMockGateway()
	gw.seed("user-1", "prod-1", 2)
	ids := signedIn("user-1")
	sut, n := newCart(gw, ids)
	ctx := context.Background()

	require.NoError(t, sut.Load(ctx))
	require.Len(t, sut.View().Lines, 1)

	ids.set("user-2")
	gw.failOn("list", errors.New("timeout"))

	assert.ErrorIs(t, sut.Load(ctx), ErrRemoteFailed)
	view := sut.View()
	assert.Empty(t, view.Lines)
	assert.Equal(t, 0, view.TotalItems)
	assert.True(t, view.TotalPrice.IsZero())
	require.Len(t, n.all(), 1)
	assert.Equal(t, "user-2", n.all()[0].UserID)
}

func TestView_ReturnsCopy(t *testing.T) {
	gw := newMockGateway()
	gw.seed("user-1", "prod-1", 2)
	sut, _ := newCart(gw, signedIn("user-1"))
	require.NoError(t, sut.Load(context.Background()))

	view := sut.View()
	view.Lines[0].Quantity = 99

	assert.Equal(t, 2, sut.View().Lines[0].Quantity)
}

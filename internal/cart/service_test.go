package cart

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storefront_back_end/internal/store"
)

func TestAddOrSetLineKeepsOneLinePerProduct(t *testing.T) {
	ctx := context.Background()
	_, rdb := setupTestRedis(t)
	mem := store.NewMemory()
	products := seedProducts(t, mem, "Tee", "Hoodie")
	pub := &recordingPublisher{}
	svc := NewService(mem, pub)
	owner := NewOwnerStore(rdb, "u1")

	_, err := svc.AddOrSetLine(ctx, owner, products[0].ID, 2)
	require.NoError(t, err)
	_, err = svc.AddOrSetLine(ctx, owner, products[1].ID, 1)
	require.NoError(t, err)
	cart, err := svc.AddOrSetLine(ctx, owner, products[0].ID, 5)
	require.NoError(t, err)

	require.Len(t, cart.Lines, 2)
	assert.Equal(t, products[0].ID, cart.Lines[0].ProductID)
	assert.Equal(t, 5, cart.Lines[0].Quantity, "add sets the quantity, it does not sum")
	assert.Equal(t, "Tee", cart.Lines[0].Name)
	assert.Equal(t, 10.0, cart.Lines[0].Price)

	assert.Equal(t, 3, pub.count())
	assert.Equal(t, "u1", pub.last().userID)
	assert.Equal(t, 5, pub.last().cart.Lines[0].Quantity)
}

func TestAddOrSetLineValidation(t *testing.T) {
	ctx := context.Background()
	mr, rdb := setupTestRedis(t)
	mem := store.NewMemory()
	products := seedProducts(t, mem, "Tee")
	pub := &recordingPublisher{}
	svc := NewService(mem, pub)
	owner := NewOwnerStore(rdb, "u1")

	_, err := svc.AddOrSetLine(ctx, owner, products[0].ID, 0)
	assert.Equal(t, InvalidArgument, KindOf(err))
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.AddOrSetLine(ctx, owner, "not-a-uuid", 1)
	assert.Equal(t, InvalidArgument, KindOf(err))

	_, err = svc.AddOrSetLine(ctx, owner, "", 1)
	assert.Equal(t, InvalidArgument, KindOf(err))

	_, err = svc.AddOrSetLine(ctx, owner, uuid.NewString(), 1)
	assert.Equal(t, NotFound, KindOf(err))
	assert.ErrorIs(t, err, ErrProductNotFound)

	assert.False(t, mr.Exists(CartKey("u1")), "failed adds must not create the cart")
	assert.Zero(t, pub.count())
}

func TestRemoveLineIsIdempotent(t *testing.T) {
	ctx := context.Background()
	_, rdb := setupTestRedis(t)
	mem := store.NewMemory()
	products := seedProducts(t, mem, "Tee", "Hoodie")
	pub := &recordingPublisher{}
	svc := NewService(mem, pub)
	owner := NewOwnerStore(rdb, "u1")

	_, err := svc.RemoveLine(ctx, owner, products[0].ID)
	assert.Equal(t, NotFound, KindOf(err))
	assert.ErrorIs(t, err, ErrCartNotFound)

	_, err = svc.AddOrSetLine(ctx, owner, products[0].ID, 1)
	require.NoError(t, err)
	_, err = svc.AddOrSetLine(ctx, owner, products[1].ID, 1)
	require.NoError(t, err)

	first, err := svc.RemoveLine(ctx, owner, products[0].ID)
	require.NoError(t, err)
	afterFirst := pub.count()

	second, err := svc.RemoveLine(ctx, owner, products[0].ID)
	require.NoError(t, err)

	assert.Equal(t, first.Lines, second.Lines)
	require.Len(t, second.Lines, 1)
	assert.Equal(t, products[1].ID, second.Lines[0].ProductID)
	assert.Equal(t, afterFirst, pub.count(), "a no-op removal does not broadcast")
}

func TestUpdateLineRequiresExistingLine(t *testing.T) {
	ctx := context.Background()
	_, rdb := setupTestRedis(t)
	mem := store.NewMemory()
	products := seedProducts(t, mem, "Tee", "Hoodie")
	svc := NewService(mem, &recordingPublisher{})
	owner := NewOwnerStore(rdb, "u1")

	_, err := svc.UpdateLine(ctx, owner, products[0].ID, 2)
	assert.ErrorIs(t, err, ErrCartNotFound)

	_, err = svc.AddOrSetLine(ctx, owner, products[0].ID, 1)
	require.NoError(t, err)

	_, err = svc.UpdateLine(ctx, owner, products[1].ID, 2)
	assert.Equal(t, NotFound, KindOf(err))
	assert.ErrorIs(t, err, ErrLineNotFound)

	stored, err := owner.Load(ctx)
	require.NoError(t, err)
	require.Len(t, stored.Lines, 1)
	assert.Equal(t, 1, stored.Lines[0].Quantity)

	_, err = svc.UpdateLine(ctx, owner, products[0].ID, 0)
	assert.Equal(t, InvalidArgument, KindOf(err))

	cart, err := svc.UpdateLine(ctx, owner, products[0].ID, 4)
	require.NoError(t, err)
	assert.Equal(t, 4, cart.Lines[0].Quantity)
}

func TestGetCartCreatesOwnerCartLazily(t *testing.T) {
	ctx := context.Background()
	mr, rdb := setupTestRedis(t)
	mem := store.NewMemory()
	svc := NewService(mem, &recordingPublisher{})
	owner := NewOwnerStore(rdb, "u1")

	cart, err := svc.GetCart(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)
	assert.Equal(t, "u1", cart.OwnerID)
	assert.True(t, mr.Exists(CartKey("u1")))
	assert.Zero(t, mr.TTL(CartKey("u1")), "carts never expire")

	again, err := svc.GetCart(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, cart.Version, again.Version)
}

func TestGetCartMarksRemovedProductsUnavailable(t *testing.T) {
	ctx := context.Background()
	_, rdb := setupTestRedis(t)
	mem := store.NewMemory()
	products := seedProducts(t, mem, "Tee", "Hoodie")
	svc := NewService(mem, &recordingPublisher{})
	owner := NewOwnerStore(rdb, "u1")

	for _, p := range products {
		_, err := svc.AddOrSetLine(ctx, owner, p.ID, 1)
		require.NoError(t, err)
	}
	mem.DeleteProduct(ctx, products[1].ID)

	cart, err := svc.GetCart(ctx, owner)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 2)
	assert.Nil(t, cart.Lines[0].Available)
	require.NotNil(t, cart.Lines[1].Available)
	assert.False(t, *cart.Lines[1].Available)
	assert.Equal(t, "Hoodie", cart.Lines[1].Name)
}

func TestSessionCartNeverPublishes(t *testing.T) {
	ctx := context.Background()
	mem := store.NewMemory()
	products := seedProducts(t, mem, "Tee")
	pub := &recordingPublisher{}
	svc := NewService(mem, pub)
	_, rdb := setupTestRedis(t)
	sess := newTestSession(t, rdb)

	cart, err := svc.GetCart(ctx, sess)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)

	_, err = svc.RemoveLine(ctx, sess, products[0].ID)
	assert.ErrorIs(t, err, ErrCartNotFound)

	cart, err = svc.AddOrSetLine(ctx, sess, products[0].ID, 3)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, "Tee", cart.Lines[0].Name)

	lines, err := sess.Lines(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, lines[0].Quantity)

	_, err = svc.UpdateLine(ctx, sess, products[0].ID, 1)
	require.NoError(t, err)
	assert.Zero(t, pub.count())
}

func TestConcurrentAddsKeepEveryLine(t *testing.T) {
	ctx := context.Background()
	_, rdb := setupTestRedis(t)
	mem := store.NewMemory()

	names := make([]string, 6)
	for i := range names {
		names[i] = fmt.Sprintf("Product %d", i)
	}
	products := seedProducts(t, mem, names...)
	svc := NewService(mem, &recordingPublisher{})

	var wg sync.WaitGroup
	errs := make(chan error, len(products))
	for _, p := range products {
		wg.Add(1)
		go func(id string) {
			defer wg.Done()
			_, err := svc.AddOrSetLine(ctx, NewOwnerStore(rdb, "u1"), id, 1)
			errs <- err
		}(p.ID)
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}

	cart, err := NewOwnerStore(rdb, "u1").Load(ctx)
	require.NoError(t, err)
	assert.Len(t, cart.Lines, len(products))
	assert.Equal(t, int64(len(products)), cart.Version)
}

func TestOwnerStoreStorageFailure(t *testing.T) {
	ctx := context.Background()
	mr, rdb := setupTestRedis(t)
	mem := store.NewMemory()
	products := seedProducts(t, mem, "Tee")
	svc := NewService(mem, &recordingPublisher{})

	mr.Close()
	_, err := svc.AddOrSetLine(ctx, NewOwnerStore(rdb, "u1"), products[0].ID, 1)
	require.Error(t, err)
	assert.Equal(t, StorageFailure, KindOf(err))
	assert.Equal(t, "internal error", PublicMessage(err))
	assert.False(t, errors.Is(err, ErrCartNotFound))
}

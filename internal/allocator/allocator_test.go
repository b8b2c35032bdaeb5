package allocator

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/ticket-bot/internal/cache"
	"github.com/spec-kit/ticket-bot/internal/platform"
	"github.com/spec-kit/ticket-bot/internal/testutil"
)

func newAllocator(fake *testutil.FakePlatform, c cache.CategoryCache, capacity int) *Allocator {
	return New(fake, c, zap.NewNop(), Options{Capacity: capacity})
}

func TestAcquire_CreatesCanonicalCategoryDenyingEveryone(t *testing.T) {
	fake := testutil.NewFakePlatform()
	c := cache.NewMemoryCategoryCache()
	a := newAllocator(fake, c, 50)

	category, err := a.Acquire(context.Background(), "guild")
	require.NoError(t, err)
	assert.Equal(t, "Tickets", category.Name)

	created := fake.Channel(category.ID)
	require.NotNil(t, created)
	everyone := created.Overwrites["guild"]
	assert.Equal(t, platform.PermissionViewChannel, everyone.Deny)
	assert.Equal(t, category.ID, c.Get(context.Background(), "guild"))
}

func TestAcquire_RenamesFirstMatch(t *testing.T) {
	fake := testutil.NewFakePlatform()
	id := fake.AddCategory("guild", "🎫 ticket room", 0, 3)
	a := newAllocator(fake, cache.NewMemoryCategoryCache(), 50)

	category, err := a.Acquire(context.Background(), "guild")
	require.NoError(t, err)
	assert.Equal(t, id, category.ID)
	assert.Equal(t, "Tickets", fake.Channel(id).Name)
}

func TestAcquire_OverflowsWhenFull(t *testing.T) {
	fake := testutil.NewFakePlatform()
	fake.AddCategory("guild", "Tickets", 0, 2)
	a := newAllocator(fake, cache.NewMemoryCategoryCache(), 2)

	category, err := a.Acquire(context.Background(), "guild")
	require.NoError(t, err)
	assert.Equal(t, "Tickets 2", category.Name)
}

func TestAcquire_PlatformFailureReturnsErrNoCategory(t *testing.T) {
	fake := testutil.NewFakePlatform()
	c := cache.NewMemoryCategoryCache()
	a := newAllocator(fake, c, 50)

	fake.SetFail("CreateCategory", platform.NewError("CreateCategory", platform.KindForbidden, errors.New("missing access")))
	category, err := a.Acquire(context.Background(), "guild")
	assert.Nil(t, category)
	assert.ErrorIs(t, err, ErrNoCategory)
	assert.Equal(t, "", c.Get(context.Background(), "guild"), "nothing cached on failure")

	fake.SetFail("CreateCategory", nil)
	fake.SetFail("Categories", errors.New("gateway down"))
	_, err = a.Acquire(context.Background(), "guild")
	assert.ErrorIs(t, err, ErrNoCategory)
}

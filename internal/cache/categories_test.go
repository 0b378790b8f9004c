package cache

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/d60-Lab/anotoki/internal/model"
	"github.com/d60-Lab/anotoki/internal/repository"
	"github.com/d60-Lab/anotoki/pkg/database"
)

func setup(t *testing.T) (*Categories, *miniredis.Miniredis, repository.CategoryRepository) {
	t.Helper()
	db := database.NewTestDB(t)
	repo := repository.NewCategoryRepository(db)
	require.NoError(t, repo.EnsureSeeded(context.Background(), []model.Category{
		{Slug: "career", Name: "キャリア"},
		{Slug: "health", Name: "健康"},
	}))

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewCategories(repo, client, time.Minute), mr, repo
}

func TestCategories_ListReadThrough(t *testing.T) {
	c, mr, _ := setup(t)
	ctx := context.Background()

	first, err := c.List(ctx)
	require.NoError(t, err)
	require.Len(t, first, 2)
	assert.True(t, mr.Exists(keyCategoryList))

	second, err := c.List(ctx)
	require.NoError(t, err)
	assert.Equal(t, first[0].Slug, second[0].Slug)
	assert.EqualValues(t, 1, c.DBLoads())

	mr.FastForward(2 * time.Minute)
	_, err = c.List(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 2, c.DBLoads())
}

func TestCategories_BySlug(t *testing.T) {
	c, mr, _ := setup(t)
	ctx := context.Background()

	got, err := c.BySlug(ctx, "career")
	require.NoError(t, err)
	assert.Equal(t, "キャリア", got.Name)
	assert.True(t, mr.Exists("category:slug:career"))

	_, err = c.BySlug(ctx, "career")
	require.NoError(t, err)
	assert.EqualValues(t, 1, c.DBLoads())

	_, err = c.BySlug(ctx, "missing")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	assert.False(t, mr.Exists("category:slug:missing"))

	c.Invalidate(ctx, "career")
	assert.False(t, mr.Exists("category:slug:career"))
}

func TestCategories_NilClient(t *testing.T) {
	db := database.NewTestDB(t)
	repo := repository.NewCategoryRepository(db)
	require.NoError(t, repo.EnsureSeeded(context.Background(), []model.Category{{Slug: "finance", Name: "お金"}}))
	c := NewCategories(repo, nil, 0)

	for i := 0; i < 3; i++ {
		_, err := c.BySlug(context.Background(), "finance")
		require.NoError(t, err)
	}
	assert.EqualValues(t, 3, c.DBLoads())
	c.Invalidate(context.Background())
}

func TestCategories_RedisDownFallsBackToDB(t *testing.T) {
	c, mr, _ := setup(t)
	mr.Close()

	rows, err := c.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}

func TestNewRedisClient(t *testing.T) {
	client, err := NewRedisClient(context.Background(), "", "", 0)
	require.NoError(t, err)
	assert.Nil(t, client)

	mr := miniredis.RunT(t)
	client, err = NewRedisClient(context.Background(), mr.Addr(), "", 0)
	require.NoError(t, err)
	require.NotNil(t, client)
	_ = client.Close()
}

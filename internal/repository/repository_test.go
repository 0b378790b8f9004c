package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/d60-Lab/anotoki/internal/model"
	"github.com/d60-Lab/anotoki/pkg/database"
)

func seedUser(t *testing.T, db *gorm.DB, id string) *model.User {
	t.Helper()
	u := &model.User{ID: id, ProviderID: "google|" + id, Email: id + "@example.com", Name: id}
	require.NoError(t, db.Create(u).Error)
	return u
}

func seedCategory(t *testing.T, db *gorm.DB, slug string) *model.Category {
	t.Helper()
	c := &model.Category{ID: model.NewID(), Slug: slug, Name: slug}
	require.NoError(t, db.Create(c).Error)
	return c
}

func countReactions(t *testing.T, db *gorm.DB, postID string) int64 {
	t.Helper()
	var n int64
	require.NoError(t, db.Model(&model.PostReaction{}).Where("post_id = ?", postID).Count(&n).Error)
	return n
}

func newPost(author, category string, vis model.Visibility, title string) *model.Post {
	now := time.Now()
	return &model.Post{
		ID: model.NewID(), AuthorID: author, CategoryID: category,
		Title: title, Lesson: "lesson body for " + title, Visibility: vis,
		CreatedAt: now, UpdatedAt: now,
	}
}

func TestReactionRepository_Idempotent(t *testing.T) {
	db := database.NewTestDB(t)
	repo := NewReactionRepository(db)
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, "p1", "u1", model.ReactionLike))
	require.NoError(t, repo.Create(ctx, "p1", "u1", model.ReactionLike))
	require.NoError(t, repo.Create(ctx, "p1", "u1", model.ReactionBookmark))

	assert.EqualValues(t, 2, countReactions(t, db, "p1"))

	require.NoError(t, repo.Delete(ctx, "p1", "u1", model.ReactionLike))
	require.NoError(t, repo.Delete(ctx, "p1", "u1", model.ReactionLike))

	ok, err := repo.Exists(ctx, "p1", "u1", model.ReactionLike)
	require.NoError(t, err)
	assert.False(t, ok)
	ok, err = repo.Exists(ctx, "p1", "u1", model.ReactionBookmark)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestReactionRepository_CountByPosts(t *testing.T) {
	db := database.NewTestDB(t)
	repo := NewReactionRepository(db)
	ctx := context.Background()

	for _, u := range []string{"a", "b", "c"} {
		require.NoError(t, repo.Create(ctx, "p1", u, model.ReactionLike))
	}
	require.NoError(t, repo.Create(ctx, "p1", "a", model.ReactionBookmark))
	require.NoError(t, repo.Create(ctx, "p2", "a", model.ReactionLike))
	require.NoError(t, repo.Create(ctx, "p3", "a", model.ReactionLike))

	rows, err := repo.CountByPosts(ctx, []string{"p1", "p2"})
	require.NoError(t, err)

	got := map[string]int64{}
	for _, r := range rows {
		got[r.PostID+"/"+string(r.Type)] = r.Count
	}
	assert.Equal(t, map[string]int64{"p1/like": 3, "p1/bookmark": 1, "p2/like": 1}, got)

	mine, err := repo.ListByUser(ctx, []string{"p1", "p2"}, "b")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, "p1", mine[0].PostID)

	rows, err = repo.CountByPosts(ctx, nil)
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReactionRepository_DeleteOrphans(t *testing.T) {
	db := database.NewTestDB(t)
	ctx := context.Background()
	u := seedUser(t, db, "u1")
	c := seedCategory(t, db, "career")
	posts := NewPostRepository(db)
	reactions := NewReactionRepository(db)

	live := newPost(u.ID, c.ID, model.VisibilityMember, "live")
	require.NoError(t, posts.Create(ctx, live, nil))
	require.NoError(t, reactions.Create(ctx, live.ID, u.ID, model.ReactionLike))
	for i := 0; i < 3; i++ {
		require.NoError(t, reactions.Create(ctx, fmt.Sprintf("gone-%d", i), u.ID, model.ReactionLike))
	}

	n, err := reactions.DeleteOrphans(ctx, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 2, n)
	n, err = reactions.DeleteOrphans(ctx, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	assert.EqualValues(t, 1, countReactions(t, db, live.ID))
}

func TestPostRepository_ListFilters(t *testing.T) {
	db := database.NewTestDB(t)
	ctx := context.Background()
	alice := seedUser(t, db, "alice")
	bob := seedUser(t, db, "bob")
	career := seedCategory(t, db, "career")
	health := seedCategory(t, db, "health")
	repo := NewPostRepository(db)

	p1 := newPost(alice.ID, career.ID, model.VisibilityMember, "Negotiating salary")
	p2 := newPost(alice.ID, health.ID, model.VisibilityPrivate, "Sleep schedule")
	p3 := newPost(bob.ID, career.ID, model.VisibilityMember, "100% remote")
	require.NoError(t, repo.Create(ctx, p1, []string{"money", "work"}))
	require.NoError(t, repo.Create(ctx, p2, []string{"sleep"}))
	require.NoError(t, repo.Create(ctx, p3, []string{"Remote"}))

	ids := func(ps []*model.Post) []string {
		out := make([]string, len(ps))
		for i, p := range ps {
			out[i] = p.ID
		}
		return out
	}

	got, err := repo.List(ctx, PostFilter{ViewerID: bob.ID, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{p3.ID, p1.ID}, ids(got))

	got, err = repo.List(ctx, PostFilter{ViewerID: alice.ID, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{p3.ID, p2.ID, p1.ID}, ids(got))

	got, err = repo.List(ctx, PostFilter{ViewerID: alice.ID, CategoryID: career.ID, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{p3.ID, p1.ID}, ids(got))

	got, err = repo.List(ctx, PostFilter{ViewerID: bob.ID, Tag: "work", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{p1.ID}, ids(got))

	// 标签、标题大小写不敏感；% 按字面匹配
	got, err = repo.List(ctx, PostFilter{ViewerID: bob.ID, Search: "remote", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{p3.ID}, ids(got))
	got, err = repo.List(ctx, PostFilter{ViewerID: bob.ID, Search: "0%", Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{p3.ID}, ids(got))
	got, err = repo.List(ctx, PostFilter{ViewerID: bob.ID, Search: "sleep", Limit: 10})
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = repo.List(ctx, PostFilter{ViewerID: alice.ID, Cursor: p2.ID, Limit: 10})
	require.NoError(t, err)
	assert.Equal(t, []string{p2.ID, p1.ID}, ids(got))

	tags, err := repo.TagsByPosts(ctx, []string{p1.ID, p2.ID, p3.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"money", "work"}, tags[p1.ID])
	assert.Equal(t, []string{"Remote"}, tags[p3.ID])
}

func TestPostRepository_UpdateAndDelete(t *testing.T) {
	db := database.NewTestDB(t)
	ctx := context.Background()
	u := seedUser(t, db, "u1")
	c := seedCategory(t, db, "career")
	repo := NewPostRepository(db)
	reactions := NewReactionRepository(db)

	p := newPost(u.ID, c.ID, model.VisibilityMember, "before")
	require.NoError(t, repo.Create(ctx, p, []string{"a", "b"}))
	require.NoError(t, reactions.Create(ctx, p.ID, u.ID, model.ReactionLike))

	p.Title = "after"
	p.Visibility = model.VisibilityPrivate
	require.NoError(t, repo.Update(ctx, p, []string{"c"}))

	got, err := repo.FindByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", got.Title)
	assert.Equal(t, model.VisibilityPrivate, got.Visibility)
	tags, err := repo.TagsByPosts(ctx, []string{p.ID})
	require.NoError(t, err)
	assert.Equal(t, []string{"c"}, tags[p.ID])

	require.NoError(t, repo.Delete(ctx, p.ID))
	_, err = repo.FindByID(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Zero(t, countReactions(t, db, p.ID))

	assert.ErrorIs(t, repo.Delete(ctx, p.ID), ErrNotFound)
	assert.ErrorIs(t, repo.Update(ctx, p, nil), ErrNotFound)
}

func TestUserRepository_UpsertByProvider(t *testing.T) {
	db := database.NewTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	first, err := repo.UpsertByProvider(ctx, &model.User{ProviderID: "sub-1", Email: "Alice@Example.COM", Name: "Alice"})
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", first.Email)

	img := "https://img/a.png"
	second, err := repo.UpsertByProvider(ctx, &model.User{ProviderID: "sub-1", Email: "alice@example.com", Name: "Alice B", Image: &img})
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "Alice B", second.Name)
	require.NotNil(t, second.Image)
	assert.Equal(t, img, *second.Image)

	var cnt int64
	require.NoError(t, db.Model(&model.User{}).Count(&cnt).Error)
	assert.EqualValues(t, 1, cnt)
}

func TestCategoryRepository_EnsureSeeded(t *testing.T) {
	db := database.NewTestDB(t)
	repo := NewCategoryRepository(db)
	ctx := context.Background()

	seed := []model.Category{{Slug: "career", Name: "キャリア"}, {Slug: "finance", Name: "お金"}}
	require.NoError(t, repo.EnsureSeeded(ctx, seed))
	c, err := repo.FindBySlug(ctx, "career")
	require.NoError(t, err)

	require.NoError(t, repo.EnsureSeeded(ctx, []model.Category{{Slug: "career", Name: "changed"}}))
	again, err := repo.FindBySlug(ctx, "career")
	require.NoError(t, err)
	assert.Equal(t, c.ID, again.ID)
	assert.Equal(t, "キャリア", again.Name)

	all, err := repo.List(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = repo.FindBySlug(ctx, "nope")
	assert.ErrorIs(t, err, ErrNotFound)
}

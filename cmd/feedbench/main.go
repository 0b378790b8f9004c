package main

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"os"
	"sort"
	"strconv"
	"time"

	"github.com/d60-Lab/anotoki/config"
	"github.com/d60-Lab/anotoki/internal/cache"
	"github.com/d60-Lab/anotoki/internal/model"
	"github.com/d60-Lab/anotoki/internal/repository"
	"github.com/d60-Lab/anotoki/internal/service"
	"github.com/d60-Lab/anotoki/internal/validation"
	"github.com/d60-Lab/anotoki/pkg/database"
)

func must[T any](v T, err error) T {
	if err != nil {
		panic(err)
	}
	return v
}

func pct(vs []time.Duration, p float64) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	xs := append([]time.Duration(nil), vs...)
	sort.Slice(xs, func(i, j int) bool { return xs[i] < xs[j] })
	k := int(math.Ceil(p*float64(len(xs)))) - 1
	if k < 0 {
		k = 0
	}
	if k >= len(xs) {
		k = len(xs) - 1
	}
	return xs[k]
}

func avg(vs []time.Duration) time.Duration {
	if len(vs) == 0 {
		return 0
	}
	var sum time.Duration
	for _, d := range vs {
		sum += d
	}
	return sum / time.Duration(len(vs))
}

func envInt(name string, def int) int {
	if s := os.Getenv(name); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			return v
		}
	}
	return def
}

func report(name string, ds []time.Duration) {
	fmt.Printf("%-28s n=%-6d avg=%-12v p95=%-12v p99=%v\n", name, len(ds), avg(ds), pct(ds, 0.95), pct(ds, 0.99))
}

// feedbench 在真实库上压测：列表首屏、游标翻页、反应写入与分类缓存
func main() {
	ctx := context.Background()
	cfg := must(config.Load())
	db := must(database.InitDB(cfg))

	users := envInt("USERS", 200)
	posts := envInt("POSTS", 5000)
	reads := envInt("READS", 500)
	limit := envInt("LIMIT", 10)

	// 便于重复运行（仅限本地压测库）
	_ = db.Exec("DELETE FROM post_reactions").Error
	_ = db.Exec("DELETE FROM post_tags").Error
	_ = db.Exec("DELETE FROM posts").Error
	_ = db.Exec("DELETE FROM users WHERE provider_id LIKE 'bench|%'").Error

	postRepo := repository.NewPostRepository(db)
	userRepo := repository.NewUserRepository(db)
	catRepo := repository.NewCategoryRepository(db)
	reactRepo := repository.NewReactionRepository(db)

	rdb, err := cache.NewRedisClient(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		fmt.Println("redis disabled:", err)
	}
	catCache := cache.NewCategories(catRepo, rdb, cfg.Redis.CategoryTTL)
	categories := service.NewCategoryService(catRepo, catCache)
	must(0, categories.EnsureDefaults(ctx))
	cats := must(categories.List(ctx))

	svc := service.NewPostService(postRepo, userRepo, catRepo, catCache, reactRepo)
	reactions := service.NewReactionService(postRepo, reactRepo)
	userSvc := service.NewUserService(userRepo)

	fmt.Printf("seeding users=%d posts=%d\n", users, posts)
	ids := make([]string, users)
	for i := 0; i < users; i++ {
		u := must(userSvc.UpsertFromProvider(ctx, service.Profile{
			Subject: fmt.Sprintf("bench|%d", i),
			Email:   fmt.Sprintf("bench%d@example.com", i),
			Name:    fmt.Sprintf("bench %d", i),
		}))
		ids[i] = u.ID
	}

	rng := rand.New(rand.NewSource(42))
	createDur := make([]time.Duration, 0, posts)
	postIDs := make([]string, 0, posts)
	for i := 0; i < posts; i++ {
		in := validation.PostInput{
			Title:      fmt.Sprintf("lesson %d", i),
			Lesson:     "what happened, what I learned, what I would do next time",
			CategoryID: cats[rng.Intn(len(cats))].ID,
			Tags:       []string{fmt.Sprintf("t%d", rng.Intn(50))},
			Visibility: model.VisibilityMember,
		}
		if rng.Intn(10) == 0 {
			in.Visibility = model.VisibilityPrivate
		}
		st := time.Now()
		d := must(svc.Create(ctx, in, ids[rng.Intn(users)]))
		createDur = append(createDur, time.Since(st))
		postIDs = append(postIDs, d.ID)
	}

	reactDur := make([]time.Duration, 0, posts)
	for i := 0; i < posts; i++ {
		typ := model.ReactionLike
		if rng.Intn(3) == 0 {
			typ = model.ReactionBookmark
		}
		st := time.Now()
		must(0, reactions.Add(ctx, validation.ReactionInput{PostID: postIDs[rng.Intn(len(postIDs))], Type: typ}, ids[rng.Intn(users)]))
		reactDur = append(reactDur, time.Since(st))
	}

	firstPage := make([]time.Duration, 0, reads)
	categoryPage := make([]time.Duration, 0, reads)
	for i := 0; i < reads; i++ {
		viewer := ids[rng.Intn(users)]
		st := time.Now()
		_ = must(svc.List(ctx, viewer, validation.PostsQuery{Limit: limit}))
		firstPage = append(firstPage, time.Since(st))

		st = time.Now()
		_ = must(svc.List(ctx, viewer, validation.PostsQuery{Category: cats[i%len(cats)].Slug, Limit: limit}))
		categoryPage = append(categoryPage, time.Since(st))
	}

	// 从头翻到底
	walk := make([]time.Duration, 0)
	seen := 0
	cursor := ""
	for {
		st := time.Now()
		page := must(svc.List(ctx, ids[0], validation.PostsQuery{Limit: validation.MaxLimit, Cursor: cursor}))
		walk = append(walk, time.Since(st))
		seen += len(page.Posts)
		if page.NextCursor == nil {
			break
		}
		cursor = *page.NextCursor
	}

	fmt.Printf("USERS=%d POSTS=%d READS=%d LIMIT=%d redis=%v\n", users, posts, reads, limit, rdb != nil)
	report("create post", createDur)
	report("add reaction", reactDur)
	report("list first page", firstPage)
	report("list by category", categoryPage)
	report("cursor walk (limit=50)", walk)
	fmt.Printf("cursor walk visited %d posts in %d pages\n", seen, len(walk))
	fmt.Printf("category cache db loads: %d\n", catCache.DBLoads())
}

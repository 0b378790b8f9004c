package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/d60-Lab/anotoki/internal/apperror"
	"github.com/d60-Lab/anotoki/internal/model"
	"github.com/d60-Lab/anotoki/internal/repository"
	"github.com/d60-Lab/anotoki/internal/validation"
)

const (
	previewRunes = 180
	maxTags      = 5
)

var tracer = otel.Tracer("github.com/d60-Lab/anotoki/internal/service")

// CategoryLookup 按 slug 查分类，*cache.Categories 实现了它
type CategoryLookup interface {
	BySlug(ctx context.Context, slug string) (*model.Category, error)
}

// PostService 帖子读写
type PostService interface {
	List(ctx context.Context, viewerID string, q validation.PostsQuery) (*model.PostPage, error)
	// Get 不存在或无权查看时返回 apperror.ErrNotFound
	Get(ctx context.Context, id, viewerID string) (*model.PostDetail, error)
	Create(ctx context.Context, in validation.PostInput, authorID string) (*model.PostDetail, error)
	Update(ctx context.Context, in validation.UpdatePostInput, requesterID string) (*model.PostDetail, error)
	Delete(ctx context.Context, id, requesterID string) error
}

type postService struct {
	posts      repository.PostRepository
	users      repository.UserRepository
	categories repository.CategoryRepository
	slugs      CategoryLookup
	reactions  repository.ReactionRepository
}

func NewPostService(
	posts repository.PostRepository,
	users repository.UserRepository,
	categories repository.CategoryRepository,
	slugs CategoryLookup,
	reactions repository.ReactionRepository,
) PostService {
	if slugs == nil {
		slugs = repoLookup{categories}
	}
	return &postService{posts: posts, users: users, categories: categories, slugs: slugs, reactions: reactions}
}

type repoLookup struct{ repo repository.CategoryRepository }

func (l repoLookup) BySlug(ctx context.Context, slug string) (*model.Category, error) {
	return l.repo.FindBySlug(ctx, slug)
}

func (s *postService) List(ctx context.Context, viewerID string, q validation.PostsQuery) (*model.PostPage, error) {
	ctx, span := tracer.Start(ctx, "PostService.List", trace.WithAttributes(
		attribute.String("viewer.id", viewerID),
		attribute.String("query.category", q.Category),
		attribute.Bool("query.cursor", q.Cursor != ""),
	))
	defer span.End()

	limit := q.Limit
	if limit < 1 || limit > validation.MaxLimit {
		limit = validation.DefaultLimit
	}
	f := repository.PostFilter{
		ViewerID: viewerID,
		Search:   q.Search,
		Tag:      q.Tag,
		Cursor:   q.Cursor,
		Limit:    limit + 1,
	}

	if q.Category != "" {
		cat, err := s.slugs.BySlug(ctx, q.Category)
		if errors.Is(err, repository.ErrNotFound) {
			return &model.PostPage{Posts: []model.PostListItem{}}, nil
		}
		if err != nil {
			return nil, fail(span, fmt.Errorf("resolve category %q: %w", q.Category, err))
		}
		f.CategoryID = cat.ID
	}

	rows, err := s.posts.List(ctx, f)
	if err != nil {
		return nil, fail(span, fmt.Errorf("list posts: %w", err))
	}

	page := &model.PostPage{}
	if len(rows) > limit {
		next := rows[limit].ID
		page.NextCursor = &next
		rows = rows[:limit]
	}

	details, err := s.assemble(ctx, rows, viewerID)
	if err != nil {
		return nil, fail(span, err)
	}
	page.Posts = make([]model.PostListItem, len(details))
	for i, d := range details {
		page.Posts[i] = d.PostListItem
	}
	span.SetAttributes(attribute.Int("result.count", len(page.Posts)))
	return page, nil
}

func (s *postService) Get(ctx context.Context, id, viewerID string) (*model.PostDetail, error) {
	ctx, span := tracer.Start(ctx, "PostService.Get", trace.WithAttributes(attribute.String("post.id", id)))
	defer span.End()

	post, err := s.posts.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.ErrNotFound
	}
	if err != nil {
		return nil, fail(span, fmt.Errorf("find post: %w", err))
	}
	if post.Visibility == model.VisibilityPrivate && post.AuthorID != viewerID {
		return nil, apperror.ErrNotFound
	}
	return s.detail(ctx, post, viewerID)
}

func (s *postService) Create(ctx context.Context, in validation.PostInput, authorID string) (*model.PostDetail, error) {
	ctx, span := tracer.Start(ctx, "PostService.Create", trace.WithAttributes(attribute.String("author.id", authorID)))
	defer span.End()

	if _, err := s.users.FindByID(ctx, authorID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrAuthorNotFound
		}
		return nil, fail(span, fmt.Errorf("find author: %w", err))
	}
	if err := s.requireCategory(ctx, in.CategoryID); err != nil {
		return nil, fail(span, err)
	}

	now := time.Now()
	post := &model.Post{
		ID:                 model.NewID(),
		AuthorID:           authorID,
		CategoryID:         in.CategoryID,
		Title:              in.Title,
		Lesson:             in.Lesson,
		SituationalContext: in.SituationalContext,
		Visibility:         visibilityOrDefault(in.Visibility),
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := s.posts.Create(ctx, post, normalizeTags(in.Tags)); err != nil {
		return nil, fail(span, fmt.Errorf("create post: %w", err))
	}
	span.SetAttributes(attribute.String("post.id", post.ID))
	return s.detail(ctx, post, authorID)
}

func (s *postService) Update(ctx context.Context, in validation.UpdatePostInput, requesterID string) (*model.PostDetail, error) {
	ctx, span := tracer.Start(ctx, "PostService.Update", trace.WithAttributes(attribute.String("post.id", in.ID)))
	defer span.End()

	post, err := s.owned(ctx, in.ID, requesterID)
	if err != nil {
		return nil, fail(span, err)
	}
	if err := s.requireCategory(ctx, in.CategoryID); err != nil {
		return nil, fail(span, err)
	}

	post.Title = in.Title
	post.Lesson = in.Lesson
	post.SituationalContext = in.SituationalContext
	post.CategoryID = in.CategoryID
	post.Visibility = visibilityOrDefault(in.Visibility)
	post.UpdatedAt = time.Now()
	if err := s.posts.Update(ctx, post, normalizeTags(in.Tags)); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, apperror.ErrPostNotFound
		}
		return nil, fail(span, fmt.Errorf("update post: %w", err))
	}
	return s.detail(ctx, post, requesterID)
}

func (s *postService) Delete(ctx context.Context, id, requesterID string) error {
	ctx, span := tracer.Start(ctx, "PostService.Delete", trace.WithAttributes(attribute.String("post.id", id)))
	defer span.End()

	if _, err := s.owned(ctx, id, requesterID); err != nil {
		return fail(span, err)
	}
	if err := s.posts.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.ErrPostNotFound
		}
		return fail(span, fmt.Errorf("delete post: %w", err))
	}
	return nil
}

// owned 加载帖子并校验归属
func (s *postService) owned(ctx context.Context, id, requesterID string) (*model.Post, error) {
	post, err := s.posts.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.ErrPostNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find post: %w", err)
	}
	if post.AuthorID != requesterID {
		return nil, apperror.ErrForbidden
	}
	return post, nil
}

func (s *postService) requireCategory(ctx context.Context, id string) error {
	_, err := s.categories.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return apperror.ErrCategoryNotFound
	}
	if err != nil {
		return fmt.Errorf("find category: %w", err)
	}
	return nil
}

func (s *postService) detail(ctx context.Context, post *model.Post, viewerID string) (*model.PostDetail, error) {
	out, err := s.assemble(ctx, []*model.Post{post}, viewerID)
	if err != nil {
		return nil, err
	}
	return &out[0], nil
}

// assemble 把作者、分类、标签和反应汇总拼到帖子上，每类数据一次 IN 查询
func (s *postService) assemble(ctx context.Context, posts []*model.Post, viewerID string) ([]model.PostDetail, error) {
	if len(posts) == 0 {
		return []model.PostDetail{}, nil
	}

	postIDs := make([]string, len(posts))
	authorIDs := make([]string, 0, len(posts))
	categoryIDs := make([]string, 0, len(posts))
	seenA, seenC := map[string]bool{}, map[string]bool{}
	for i, p := range posts {
		postIDs[i] = p.ID
		if !seenA[p.AuthorID] {
			seenA[p.AuthorID] = true
			authorIDs = append(authorIDs, p.AuthorID)
		}
		if !seenC[p.CategoryID] {
			seenC[p.CategoryID] = true
			categoryIDs = append(categoryIDs, p.CategoryID)
		}
	}

	users, err := s.users.FindByIDs(ctx, authorIDs)
	if err != nil {
		return nil, fmt.Errorf("load authors: %w", err)
	}
	authors := make(map[string]*model.User, len(users))
	for _, u := range users {
		authors[u.ID] = u
	}

	cats, err := s.categories.FindByIDs(ctx, categoryIDs)
	if err != nil {
		return nil, fmt.Errorf("load categories: %w", err)
	}
	categories := make(map[string]*model.Category, len(cats))
	for _, c := range cats {
		categories[c.ID] = c
	}

	tags, err := s.posts.TagsByPosts(ctx, postIDs)
	if err != nil {
		return nil, fmt.Errorf("load tags: %w", err)
	}

	summaries, err := SummarizeReactions(ctx, s.reactions, postIDs, viewerID)
	if err != nil {
		return nil, err
	}

	out := make([]model.PostDetail, len(posts))
	for i, p := range posts {
		item := model.PostListItem{
			ID:            p.ID,
			Title:         p.Title,
			LessonPreview: preview(p.Lesson),
			Tags:          tags[p.ID],
			Visibility:    p.Visibility,
			CreatedAt:     p.CreatedAt,
			UpdatedAt:     p.UpdatedAt,
			Category:      model.CategoryRef{ID: p.CategoryID},
			Author:        model.AuthorRef{ID: p.AuthorID},
			Reactions:     summaries[p.ID],
		}
		if item.Tags == nil {
			item.Tags = []string{}
		}
		if c, ok := categories[p.CategoryID]; ok {
			item.Category.Name, item.Category.Slug = c.Name, c.Slug
		}
		if a, ok := authors[p.AuthorID]; ok {
			item.Author.Name, item.Author.Image = a.Name, a.Image
		}
		out[i] = model.PostDetail{
			PostListItem:       item,
			Lesson:             p.Lesson,
			SituationalContext: p.SituationalContext,
		}
	}
	return out, nil
}

// preview 按字符（rune）截断，不考虑词边界
func preview(lesson string) string {
	n := 0
	for i := range lesson {
		if n == previewRunes {
			return lesson[:i]
		}
		n++
	}
	return lesson
}

// normalizeTags 去空白、去空、按值去重并保持顺序，最多 5 个
func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	seen := make(map[string]bool, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
		if len(out) == maxTags {
			break
		}
	}
	return out
}

func visibilityOrDefault(v model.Visibility) model.Visibility {
	if v.Valid() {
		return v
	}
	return model.VisibilityMember
}

// fail 记录非业务错误到 span；业务错误（AppError 4xx）原样返回
func fail(span trace.Span, err error) error {
	if e, ok := apperror.As(err); ok && e.Status < 500 {
		return err
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

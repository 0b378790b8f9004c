package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/d60-Lab/anotoki/internal/model"
)

// PostFilter 列表查询条件。Cursor 为下一页第一条的 ID（含）。
type PostFilter struct {
	ViewerID   string
	CategoryID string
	Search     string
	Tag        string
	Cursor     string
	Limit      int
}

// PostRepository 帖子仓储
type PostRepository interface {
	// Create 在一个事务内写入帖子及其标签
	Create(ctx context.Context, post *model.Post, tags []string) error

	// Update 全量替换可变字段与标签
	Update(ctx context.Context, post *model.Post, tags []string) error

	// Delete 在一个事务内删除帖子、标签和所有反应
	Delete(ctx context.Context, id string) error

	FindByID(ctx context.Context, id string) (*model.Post, error)

	// List 按 created_at DESC, id DESC 返回可见帖子
	List(ctx context.Context, f PostFilter) ([]*model.Post, error)

	// TagsByPosts 返回 postID -> 有序标签
	TagsByPosts(ctx context.Context, postIDs []string) (map[string][]string, error)
}

type postRepository struct {
	db *gorm.DB
}

func NewPostRepository(db *gorm.DB) PostRepository { return &postRepository{db: db} }

func (r *postRepository) Create(ctx context.Context, post *model.Post, tags []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(post).Error; err != nil {
			return err
		}
		return insertTags(tx, post.ID, tags)
	})
}

func (r *postRepository) Update(ctx context.Context, post *model.Post, tags []string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&model.Post{}).
			Where("id = ?", post.ID).
			Updates(map[string]any{
				"title":               post.Title,
				"lesson":              post.Lesson,
				"situational_context": post.SituationalContext,
				"category_id":         post.CategoryID,
				"visibility":          post.Visibility,
				"updated_at":          post.UpdatedAt,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		if err := tx.Where("post_id = ?", post.ID).Delete(&model.PostTag{}).Error; err != nil {
			return err
		}
		return insertTags(tx, post.ID, tags)
	})
}

func (r *postRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("post_id = ?", id).Delete(&model.PostReaction{}).Error; err != nil {
			return err
		}
		if err := tx.Where("post_id = ?", id).Delete(&model.PostTag{}).Error; err != nil {
			return err
		}
		res := tx.Where("id = ?", id).Delete(&model.Post{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (r *postRepository) FindByID(ctx context.Context, id string) (*model.Post, error) {
	var post model.Post
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&post).Error; err != nil {
		return nil, translate(err)
	}
	return &post, nil
}

func (r *postRepository) List(ctx context.Context, f PostFilter) ([]*model.Post, error) {
	q := r.db.WithContext(ctx).
		Model(&model.Post{}).
		Where("(posts.visibility = ? OR posts.author_id = ?)", model.VisibilityMember, f.ViewerID)

	if f.CategoryID != "" {
		q = q.Where("posts.category_id = ?", f.CategoryID)
	}
	if f.Tag != "" {
		q = q.Where("EXISTS (SELECT 1 FROM post_tags pt WHERE pt.post_id = posts.id AND pt.tag = ?)", f.Tag)
	}
	if f.Search != "" {
		p := containsPattern(f.Search)
		q = q.Where(`(LOWER(posts.title) LIKE ? ESCAPE '\'`+
			` OR LOWER(posts.lesson) LIKE ? ESCAPE '\'`+
			` OR EXISTS (SELECT 1 FROM post_tags st WHERE st.post_id = posts.id AND LOWER(st.tag) LIKE ? ESCAPE '\'))`,
			p, p, p)
	}
	if f.Cursor != "" {
		q = q.Where("posts.id <= ?", f.Cursor)
	}

	var posts []*model.Post
	err := q.Order("posts.created_at DESC").
		Order("posts.id DESC").
		Limit(f.Limit).
		Find(&posts).Error
	return posts, err
}

func (r *postRepository) TagsByPosts(ctx context.Context, postIDs []string) (map[string][]string, error) {
	res := make(map[string][]string, len(postIDs))
	if len(postIDs) == 0 {
		return res, nil
	}
	var rows []model.PostTag
	if err := r.db.WithContext(ctx).
		Where("post_id IN ?", postIDs).
		Order("post_id, position").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	for _, t := range rows {
		res[t.PostID] = append(res[t.PostID], t.Tag)
	}
	return res, nil
}

func insertTags(tx *gorm.DB, postID string, tags []string) error {
	if len(tags) == 0 {
		return nil
	}
	rows := make([]model.PostTag, len(tags))
	for i, t := range tags {
		rows[i] = model.PostTag{PostID: postID, Position: i, Tag: t}
	}
	return tx.Create(&rows).Error
}

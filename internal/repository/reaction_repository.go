package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/anotoki/internal/model"
)

// ReactionCount 按 (post, type) 分组的计数
type ReactionCount struct {
	PostID string
	Type   model.ReactionType
	Count  int64
}

type ReactionRepository interface {
	Create(ctx context.Context, postID, userID string, typ model.ReactionType) error
	Delete(ctx context.Context, postID, userID string, typ model.ReactionType) error
	Exists(ctx context.Context, postID, userID string, typ model.ReactionType) (bool, error)
	CountByPosts(ctx context.Context, postIDs []string) ([]ReactionCount, error)
	ListByUser(ctx context.Context, postIDs []string, userID string) ([]*model.PostReaction, error)
	DeleteOrphans(ctx context.Context, limit int) (int64, error)
}

type reactionRepository struct {
	db *gorm.DB
}

func NewReactionRepository(db *gorm.DB) ReactionRepository { return &reactionRepository{db: db} }

func (r *reactionRepository) Create(ctx context.Context, postID, userID string, typ model.ReactionType) error {
	pr := &model.PostReaction{ID: model.NewID(), PostID: postID, UserID: userID, Type: typ}
	// 幂等：重复添加不报错，依赖唯一索引 ux_reaction_post_user_type
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(pr).Error
}

func (r *reactionRepository) Delete(ctx context.Context, postID, userID string, typ model.ReactionType) error {
	return r.db.WithContext(ctx).
		Where("post_id = ? AND user_id = ? AND type = ?", postID, userID, typ).
		Delete(&model.PostReaction{}).Error
}

func (r *reactionRepository) Exists(ctx context.Context, postID, userID string, typ model.ReactionType) (bool, error) {
	var cnt int64
	if err := r.db.WithContext(ctx).
		Model(&model.PostReaction{}).
		Where("post_id = ? AND user_id = ? AND type = ?", postID, userID, typ).
		Count(&cnt).Error; err != nil {
		return false, err
	}
	return cnt > 0, nil
}

// CountByPosts 只返回计数，不返回具体是谁点的
func (r *reactionRepository) CountByPosts(ctx context.Context, postIDs []string) ([]ReactionCount, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	var rows []ReactionCount
	err := r.db.WithContext(ctx).
		Model(&model.PostReaction{}).
		Select("post_id, type, COUNT(*) AS count").
		Where("post_id IN ?", postIDs).
		Group("post_id, type").
		Scan(&rows).Error
	return rows, err
}

// ListByUser 仅取当前用户在这些帖子上的反应
func (r *reactionRepository) ListByUser(ctx context.Context, postIDs []string, userID string) ([]*model.PostReaction, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}
	var res []*model.PostReaction
	err := r.db.WithContext(ctx).
		Where("post_id IN ? AND user_id = ?", postIDs, userID).
		Find(&res).Error
	return res, err
}

// DeleteOrphans 删除最多 limit 条所属帖子已不存在的反应，返回删除条数
func (r *reactionRepository) DeleteOrphans(ctx context.Context, limit int) (int64, error) {
	var ids []string
	if err := r.db.WithContext(ctx).
		Model(&model.PostReaction{}).
		Where("NOT EXISTS (SELECT 1 FROM posts WHERE posts.id = post_reactions.post_id)").
		Limit(limit).
		Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res := r.db.WithContext(ctx).Where("id IN ?", ids).Delete(&model.PostReaction{})
	return res.RowsAffected, res.Error
}

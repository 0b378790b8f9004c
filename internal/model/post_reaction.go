package model

import "time"

// ReactionType 反应类型
type ReactionType string

const (
	ReactionLike     ReactionType = "like"
	ReactionBookmark ReactionType = "bookmark"
)

func (t ReactionType) Valid() bool { return t == ReactionLike || t == ReactionBookmark }

// PostReaction 用户对帖子的点赞/收藏
type PostReaction struct {
	ID     string       `gorm:"primaryKey;type:varchar(36)"`
	PostID string       `gorm:"type:varchar(36);index:idx_reaction_post;uniqueIndex:ux_reaction_post_user_type;not null"`
	UserID string       `gorm:"type:varchar(36);index:idx_reaction_user;uniqueIndex:ux_reaction_post_user_type;not null"`
	Type   ReactionType `gorm:"type:varchar(16);uniqueIndex:ux_reaction_post_user_type;not null"`
	// 复合唯一键，保证 (post, user, type) 至多一行
	// ux_reaction_post_user_type = (post_id, user_id, type)
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (PostReaction) TableName() string { return "post_reactions" }

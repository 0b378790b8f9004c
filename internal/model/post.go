package model

import "time"

// Visibility 帖子可见性
type Visibility string

const (
	VisibilityMember  Visibility = "member"  // 所有登录用户可见
	VisibilityPrivate Visibility = "private" // 仅作者可见
)

func (v Visibility) Valid() bool { return v == VisibilityMember || v == VisibilityPrivate }

// Post 帖子主体；ID 为 UUIDv7，创建时单调递增，可与 created_at 一起作为稳定排序键
type Post struct {
	ID                 string     `gorm:"primaryKey;type:varchar(36)"`
	AuthorID           string     `gorm:"type:varchar(36);index:idx_post_author;not null"`
	CategoryID         string     `gorm:"type:varchar(36);index:idx_post_category_created,priority:1;not null"`
	Title              string     `gorm:"type:varchar(120);not null"`
	Lesson             string     `gorm:"type:text;not null"`
	SituationalContext *string    `gorm:"type:text"`
	Visibility         Visibility `gorm:"type:varchar(16);index:idx_post_visibility;not null;default:member"`
	CreatedAt          time.Time  `gorm:"index:idx_post_category_created,priority:2;index:idx_post_created"`
	UpdatedAt          time.Time
}

func (Post) TableName() string { return "posts" }

// PostTag 帖子标签，按 Position 保持用户输入顺序
type PostTag struct {
	PostID   string `gorm:"primaryKey;type:varchar(36)"`
	Position int    `gorm:"primaryKey;autoIncrement:false"`
	Tag      string `gorm:"type:varchar(30);index:idx_post_tag;not null"`
}

func (PostTag) TableName() string { return "post_tags" }

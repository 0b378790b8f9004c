package model

import "time"

// ReactionSummary 单个帖子的反应汇总
type ReactionSummary struct {
	LikeCount           int64 `json:"likeCount"`
	BookmarkCount       int64 `json:"bookmarkCount"`
	ViewerHasLiked      bool  `json:"viewerHasLiked"`
	ViewerHasBookmarked bool  `json:"viewerHasBookmarked"`
}

type CategoryRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type AuthorRef struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Image *string `json:"image"`
}

// PostListItem 列表项
type PostListItem struct {
	ID            string          `json:"id"`
	Title         string          `json:"title"`
	LessonPreview string          `json:"lessonPreview"`
	Tags          []string        `json:"tags"`
	Visibility    Visibility      `json:"visibility"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	Category      CategoryRef     `json:"category"`
	Author        AuthorRef       `json:"author"`
	Reactions     ReactionSummary `json:"reactions"`
}

// PostDetail 详情，在列表项基础上包含全文与背景
type PostDetail struct {
	PostListItem
	Lesson             string  `json:"lesson"`
	SituationalContext *string `json:"situationalContext,omitempty"`
}

// PostPage 一页帖子；NextCursor 为空表示没有下一页
type PostPage struct {
	Posts      []PostListItem `json:"posts"`
	NextCursor *string        `json:"nextCursor,omitempty"`
}

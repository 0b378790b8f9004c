package service

import (
	"context"
	"fmt"

	"github.com/d60-Lab/anotoki/internal/model"
	"github.com/d60-Lab/anotoki/internal/repository"
)

// SummarizeReactions 返回每个 postID 的点赞/收藏数及 viewer 自己的状态。
// 结果包含所有传入的 postID，没有反应的帖子为零值。
// 计数与 viewer 状态是两次独立读取，并发写入下可能短暂不一致。
func SummarizeReactions(ctx context.Context, repo repository.ReactionRepository, postIDs []string, viewerID string) (map[string]model.ReactionSummary, error) {
	out := make(map[string]model.ReactionSummary, len(postIDs))
	for _, id := range postIDs {
		out[id] = model.ReactionSummary{}
	}
	if len(postIDs) == 0 {
		return out, nil
	}

	counts, err := repo.CountByPosts(ctx, postIDs)
	if err != nil {
		return nil, fmt.Errorf("count reactions: %w", err)
	}
	for _, c := range counts {
		s, ok := out[c.PostID]
		if !ok {
			continue
		}
		switch c.Type {
		case model.ReactionLike:
			s.LikeCount = c.Count
		case model.ReactionBookmark:
			s.BookmarkCount = c.Count
		}
		out[c.PostID] = s
	}

	if viewerID == "" {
		return out, nil
	}
	mine, err := repo.ListByUser(ctx, postIDs, viewerID)
	if err != nil {
		return nil, fmt.Errorf("viewer reactions: %w", err)
	}
	for _, r := range mine {
		s, ok := out[r.PostID]
		if !ok {
			continue
		}
		switch r.Type {
		case model.ReactionLike:
			s.ViewerHasLiked = true
		case model.ReactionBookmark:
			s.ViewerHasBookmarked = true
		}
		out[r.PostID] = s
	}
	return out, nil
}

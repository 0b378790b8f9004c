package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/d60-Lab/anotoki/internal/apperror"
	"github.com/d60-Lab/anotoki/internal/repository"
	"github.com/d60-Lab/anotoki/internal/validation"
)

// ReactionService 点赞/收藏开关，重复添加与删除不存在的反应都不报错。
// 添加要求帖子存在，不校验帖子可见性。
type ReactionService interface {
	Add(ctx context.Context, in validation.ReactionInput, userID string) error
	Remove(ctx context.Context, in validation.ReactionInput, userID string) error
}

type reactionService struct {
	posts     repository.PostRepository
	reactions repository.ReactionRepository
}

func NewReactionService(posts repository.PostRepository, reactions repository.ReactionRepository) ReactionService {
	return &reactionService{posts: posts, reactions: reactions}
}

func (s *reactionService) Add(ctx context.Context, in validation.ReactionInput, userID string) error {
	if userID == "" {
		return apperror.ErrUnauthorized
	}
	if _, err := s.posts.FindByID(ctx, in.PostID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperror.ErrPostNotFound
		}
		return fmt.Errorf("load post %s: %w", in.PostID, err)
	}

	// 已存在时不再写库
	ok, err := s.reactions.Exists(ctx, in.PostID, userID, in.Type)
	if err != nil {
		return fmt.Errorf("check %s reaction: %w", in.Type, err)
	}
	if ok {
		return nil
	}
	if err := s.reactions.Create(ctx, in.PostID, userID, in.Type); err != nil {
		return fmt.Errorf("add %s reaction: %w", in.Type, err)
	}
	return nil
}

func (s *reactionService) Remove(ctx context.Context, in validation.ReactionInput, userID string) error {
	if userID == "" {
		return apperror.ErrUnauthorized
	}
	if err := s.reactions.Delete(ctx, in.PostID, userID, in.Type); err != nil {
		return fmt.Errorf("remove %s reaction: %w", in.Type, err)
	}
	return nil
}

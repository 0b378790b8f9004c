package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/d60-Lab/anotoki/internal/apperror"
	"github.com/d60-Lab/anotoki/internal/model"
	"github.com/d60-Lab/anotoki/internal/repository"
)

// Profile 身份提供方返回的用户资料
type Profile struct {
	Subject string
	Email   string
	Name    string
	Picture string
}

var ErrIncompleteProfile = errors.New("identity provider profile missing subject or email")

type UserService interface {
	// UpsertFromProvider 首次登录创建用户，之后刷新 email/name/image
	UpsertFromProvider(ctx context.Context, p Profile) (*model.User, error)
	Get(ctx context.Context, id string) (*model.User, error)
}

type userService struct {
	users repository.UserRepository
}

func NewUserService(users repository.UserRepository) UserService {
	return &userService{users: users}
}

func (s *userService) UpsertFromProvider(ctx context.Context, p Profile) (*model.User, error) {
	if strings.TrimSpace(p.Subject) == "" || strings.TrimSpace(p.Email) == "" {
		return nil, ErrIncompleteProfile
	}
	name := strings.TrimSpace(p.Name)
	if name == "" {
		name = strings.SplitN(p.Email, "@", 2)[0]
	}
	u := &model.User{ProviderID: p.Subject, Email: p.Email, Name: name}
	if p.Picture != "" {
		u.Image = &p.Picture
	}
	out, err := s.users.UpsertByProvider(ctx, u)
	if err != nil {
		return nil, fmt.Errorf("upsert user: %w", err)
	}
	return out, nil
}

func (s *userService) Get(ctx context.Context, id string) (*model.User, error) {
	u, err := s.users.FindByID(ctx, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperror.ErrUnauthorized
	}
	return u, err
}

package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/d60-Lab/anotoki/internal/model"
)

type UserRepository interface {
	// UpsertByProvider 按 provider_id 插入或刷新 email/name/image，返回落库后的用户
	UpsertByProvider(ctx context.Context, u *model.User) (*model.User, error)
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByIDs(ctx context.Context, ids []string) ([]*model.User, error)
}

type userRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) UserRepository { return &userRepository{db: db} }

func (r *userRepository) UpsertByProvider(ctx context.Context, u *model.User) (*model.User, error) {
	now := time.Now()
	row := &model.User{
		ID:         model.NewID(),
		ProviderID: u.ProviderID,
		Email:      strings.ToLower(strings.TrimSpace(u.Email)),
		Name:       strings.TrimSpace(u.Name),
		Image:      u.Image,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "provider_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"email", "name", "image", "updated_at"}),
	}).Create(row).Error
	if err != nil {
		return nil, err
	}

	// 冲突时 row.ID 不是库里的 ID，重新读取
	var out model.User
	if err := r.db.WithContext(ctx).Where("provider_id = ?", u.ProviderID).First(&out).Error; err != nil {
		return nil, translate(err)
	}
	return &out, nil
}

func (r *userRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	var u model.User
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error; err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (r *userRepository) FindByIDs(ctx context.Context, ids []string) ([]*model.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	var res []*model.User
	err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&res).Error
	return res, err
}

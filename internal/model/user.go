package model

import "time"

// User 登录用户，首次 OAuth 登录时按 ProviderID upsert 创建，之后每次登录刷新资料
type User struct {
	ID         string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	ProviderID string    `json:"-" gorm:"type:varchar(255);uniqueIndex:ux_users_provider;not null"`
	Email      string    `json:"email" gorm:"type:varchar(320);uniqueIndex:ux_users_email;not null"` // 统一小写存储
	Name       string    `json:"name" gorm:"type:varchar(255);not null"`
	Image      *string   `json:"image,omitempty" gorm:"type:text"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

func (User) TableName() string { return "users" }

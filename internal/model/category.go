package model

import "time"

// Category 分类，slug 小写且唯一，用于 URL 与筛选
type Category struct {
	ID          string    `json:"id" gorm:"primaryKey;type:varchar(36)"`
	Slug        string    `json:"slug" gorm:"type:varchar(64);uniqueIndex:ux_categories_slug;not null"`
	Name        string    `json:"name" gorm:"type:varchar(128);index:idx_categories_name;not null"`
	Description *string   `json:"description,omitempty" gorm:"type:text"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

func (Category) TableName() string { return "categories" }

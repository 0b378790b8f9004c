package model

import "github.com/google/uuid"

// NewID 生成 UUIDv7：前 48 位为毫秒时间戳，进程内单调递增，字符串字典序即创建顺序
func NewID() string { return uuid.Must(uuid.NewV7()).String() }

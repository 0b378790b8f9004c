// Package apperror 服务层领域错误，由 HTTP 层统一翻译为响应
package apperror

import (
	"errors"
	"fmt"
	"net/http"
)

// Code 错误码
type Code string

const (
	CodeUnauthorized     Code = "UNAUTHORIZED"
	CodeForbidden        Code = "FORBIDDEN"
	CodePostNotFound     Code = "POST_NOT_FOUND"
	CodeCategoryNotFound Code = "CATEGORY_NOT_FOUND"
	CodeAuthorNotFound   Code = "AUTHOR_NOT_FOUND"
	CodeNotFound         Code = "NOT_FOUND"
	CodeValidation       Code = "VALIDATION_ERROR"
	CodeInvalidJSON      Code = "INVALID_JSON"
	CodeRateLimited      Code = "RATE_LIMITED"
	CodeInternal         Code = "INTERNAL_SERVER_ERROR"
)

// AppError 错误码、提示、HTTP 状态与附加信息
type AppError struct {
	Code    Code
	Message string
	Status  int
	Details map[string]any
	cause   error
}

func (e *AppError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error { return e.cause }

// Is 按错误码比较
func (e *AppError) Is(target error) bool {
	var t *AppError
	if errors.As(target, &t) {
		return t.Code == e.Code
	}
	return false
}

func New(code Code, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, Status: status}
}

// Wrap 附带底层原因；原因不会返回给调用方
func Wrap(err error, code Code, message string, status int) *AppError {
	return &AppError{Code: code, Message: message, Status: status, cause: err}
}

// WithDetails 返回带附加信息的副本
func (e *AppError) WithDetails(details map[string]any) *AppError {
	cp := *e
	cp.Details = details
	return &cp
}

var (
	ErrUnauthorized     = New(CodeUnauthorized, "Authentication required", http.StatusUnauthorized)
	ErrForbidden        = New(CodeForbidden, "You do not own this post", http.StatusForbidden)
	ErrPostNotFound     = New(CodePostNotFound, "Post not found", http.StatusNotFound)
	ErrCategoryNotFound = New(CodeCategoryNotFound, "Category not found", http.StatusNotFound)
	ErrAuthorNotFound   = New(CodeAuthorNotFound, "Author not found", http.StatusNotFound)
	ErrNotFound         = New(CodeNotFound, "Post not found", http.StatusNotFound)
	ErrInvalidJSON      = New(CodeInvalidJSON, "Invalid JSON body", http.StatusBadRequest)
	ErrRateLimited      = New(CodeRateLimited, "Too many requests", http.StatusTooManyRequests)
	ErrInternal         = New(CodeInternal, "Unexpected error", http.StatusInternalServerError)
)

// Validation 构造 VALIDATION_ERROR，message 为第一个失败字段的提示 key
func Validation(message string, fields map[string]string, form string) *AppError {
	details := map[string]any{}
	if len(fields) > 0 {
		details["fields"] = fields
	}
	if form != "" {
		details["form"] = form
	}
	return New(CodeValidation, message, http.StatusBadRequest).WithDetails(details)
}

func As(err error) (*AppError, bool) {
	var e *AppError
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

// messageKeys 错误码 -> 前端翻译用的提示 key
var messageKeys = map[Code]string{
	CodeUnauthorized:     "errors.unauthorized",
	CodeForbidden:        "errors.forbidden",
	CodePostNotFound:     "errors.notFound",
	CodeCategoryNotFound: "errors.notFound",
	CodeAuthorNotFound:   "errors.notFound",
	CodeNotFound:         "errors.notFound",
	CodeValidation:       "errors.validation",
	CodeInvalidJSON:      "errors.invalidJson",
	CodeRateLimited:      "errors.rateLimited",
	CodeInternal:         "feedback.errorGeneric",
}

const defaultMessageKey = "feedback.errorGeneric"

// MessageKey 未知错误码退回通用提示
func MessageKey(code Code) string {
	if k, ok := messageKeys[code]; ok {
		return k
	}
	return defaultMessageKey
}

// Codes 全部错误码
func Codes() []Code {
	return []Code{
		CodeUnauthorized, CodeForbidden, CodePostNotFound, CodeCategoryNotFound,
		CodeAuthorNotFound, CodeNotFound, CodeValidation, CodeInvalidJSON, CodeRateLimited, CodeInternal,
	}
}

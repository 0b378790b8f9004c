// Package validation 请求参数的规范化与校验，失败以 JSON 字段名 -> 提示 key 返回
package validation

import (
	"errors"
	"reflect"
	"regexp"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/d60-Lab/anotoki/internal/apperror"
	"github.com/d60-Lab/anotoki/internal/model"
)

const (
	DefaultLimit = 10
	MaxLimit     = 50
)

// PostInput 创建/更新帖子的请求体
type PostInput struct {
	Title              string           `json:"title" validate:"min=3,max=120"`
	Lesson             string           `json:"lesson" validate:"min=10,max=2000"`
	SituationalContext *string          `json:"situationalContext" validate:"omitempty,max=1000"`
	CategoryID         string           `json:"categoryId" validate:"required"`
	Tags               []string         `json:"tags" validate:"max=5,dive,min=1,max=30"`
	Visibility         model.Visibility `json:"visibility" validate:"oneof=member private"`
}

// UpdatePostInput 更新请求，ID 来自路径
type UpdatePostInput struct {
	ID string `json:"id" validate:"required"`
	PostInput
}

// PostsQuery 列表查询参数
type PostsQuery struct {
	Category string
	Search   string
	Tag      string
	Cursor   string
	Limit    int
}

// ReactionInput postId 来自路径，type 来自 query
type ReactionInput struct {
	PostID string             `json:"postId" validate:"required"`
	Type   model.ReactionType `json:"type" validate:"oneof=like bookmark"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// messages 字段 + 规则 -> 提示 key；未列出的组合退回 "<field>.invalid"
var messages = map[string]string{
	"title.min":              "title.min",
	"title.max":              "title.max",
	"lesson.min":             "lesson.min",
	"lesson.max":             "lesson.max",
	"situationalContext.max": "context.max",
	"categoryId.required":    "category.required",
	"tags.max":               "tags.max",
	"tags[].min":             "tag.min",
	"tags[].max":             "tag.max",
	"visibility.oneof":       "visibility.invalid",
	"id.required":            "id.required",
	"postId.required":        "post.required",
	"type.oneof":             "reaction.invalid",
}

var indexRe = regexp.MustCompile(`\[\d+\]`)

// CreatePost 规范化并校验创建请求：去除首尾空白，空的背景视为未填写，visibility 默认 member
func CreatePost(in *PostInput) error {
	normalize(in)
	return check(in)
}

// UpdatePost 与 CreatePost 相同，另要求 ID
func UpdatePost(in *UpdatePostInput) error {
	in.ID = strings.TrimSpace(in.ID)
	normalize(&in.PostInput)
	return check(in)
}

// Reaction 校验反应参数
func Reaction(postID, typ string) (ReactionInput, error) {
	in := ReactionInput{PostID: strings.TrimSpace(postID), Type: model.ReactionType(typ)}
	return in, check(&in)
}

// Posts 解析列表 query；limit 必须是 1..50 的整数
func Posts(category, search, tag, cursor, limit string) (PostsQuery, error) {
	q := PostsQuery{
		Category: strings.TrimSpace(category),
		Search:   strings.TrimSpace(search),
		Tag:      strings.TrimSpace(tag),
		Cursor:   strings.TrimSpace(cursor),
		Limit:    DefaultLimit,
	}
	if limit == "" {
		return q, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(limit))
	if err != nil || n < 1 || n > MaxLimit {
		return q, apperror.Validation("limit.range", map[string]string{"limit": "limit.range"}, "")
	}
	q.Limit = n
	return q, nil
}

func normalize(in *PostInput) {
	in.Title = strings.TrimSpace(in.Title)
	in.Lesson = strings.TrimSpace(in.Lesson)
	in.CategoryID = strings.TrimSpace(in.CategoryID)
	if in.SituationalContext != nil {
		ctx := strings.TrimSpace(*in.SituationalContext)
		if ctx == "" {
			in.SituationalContext = nil
		} else {
			in.SituationalContext = &ctx
		}
	}
	for i, t := range in.Tags {
		in.Tags[i] = strings.TrimSpace(t)
	}
	if in.Tags == nil {
		in.Tags = []string{}
	}
	if in.Visibility == "" {
		in.Visibility = model.VisibilityMember
	}
}

func check(v any) error {
	err := validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return apperror.Validation("form.invalid", nil, "form.invalid")
	}

	fields := make(map[string]string, len(verrs))
	first := ""
	for _, fe := range verrs {
		field := fe.Field()
		key := indexRe.ReplaceAllString(field, "[]")
		field = indexRe.ReplaceAllString(field, "")

		msg, ok := messages[key+"."+fe.Tag()]
		if !ok {
			msg = field + ".invalid"
		}
		if _, seen := fields[field]; !seen {
			fields[field] = msg
		}
		if first == "" {
			first = msg
		}
	}
	return apperror.Validation(first, fields, "")
}

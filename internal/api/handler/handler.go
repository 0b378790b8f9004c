package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/anotoki/internal/apperror"
	"github.com/d60-Lab/anotoki/internal/auth"
	"github.com/d60-Lab/anotoki/internal/service"
	"github.com/d60-Lab/anotoki/pkg/response"
)

// SessionConfig 会话 cookie 设置
type SessionConfig struct {
	CookieName   string
	CookieSecure bool
	PostLoginURL string
}

// Handler HTTP 处理器集合
type Handler struct {
	posts      service.PostService
	reactions  service.ReactionService
	categories service.CategoryService
	users      service.UserService
	tokens     *auth.TokenManager
	provider   *auth.Provider
	session    SessionConfig
	ping       func(context.Context) error
}

// Deps 构造 Handler 所需依赖；Provider 与 Ping 可为空
type Deps struct {
	Posts      service.PostService
	Reactions  service.ReactionService
	Categories service.CategoryService
	Users      service.UserService
	Tokens     *auth.TokenManager
	Provider   *auth.Provider
	Session    SessionConfig
	Ping       func(context.Context) error
}

func NewHandler(d Deps) *Handler {
	if d.Session.CookieName == "" {
		d.Session.CookieName = "anotoki_session"
	}
	if d.Session.PostLoginURL == "" {
		d.Session.PostLoginURL = "/"
	}
	return &Handler{
		posts:      d.Posts,
		reactions:  d.Reactions,
		categories: d.Categories,
		users:      d.Users,
		tokens:     d.Tokens,
		provider:   d.Provider,
		session:    d.Session,
		ping:       d.Ping,
	}
}

// CookieName 供鉴权中间件读取
func (h *Handler) CookieName() string { return h.session.CookieName }

// Health 存活检查
// @Summary 健康检查
// @Tags 系统
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 500 {object} response.ErrorResponse
// @Router /healthz [get]
func (h *Handler) Health(c *gin.Context) {
	if h.ping != nil {
		if err := h.ping(c.Request.Context()); err != nil {
			response.InternalError(c, err)
			return
		}
	}
	response.Success(c, gin.H{"status": "ok"})
}

// bindJSON 解析请求体；语法错误为 INVALID_JSON，字段类型错误为 VALIDATION_ERROR
func bindJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil {
		return true
	}
	var typeErr *json.UnmarshalTypeError
	if errors.As(err, &typeErr) && typeErr.Field != "" {
		key := typeErr.Field + ".invalid"
		response.Error(c, apperror.Validation(key, map[string]string{typeErr.Field: key}, ""))
		return false
	}
	response.Error(c, apperror.ErrInvalidJSON)
	return false
}

func notConfigured() *apperror.AppError {
	return apperror.New(apperror.CodeNotFound, "Sign-in is not configured", http.StatusNotFound)
}

package handler

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/d60-Lab/anotoki/internal/api/middleware"
	"github.com/d60-Lab/anotoki/internal/apperror"
	"github.com/d60-Lab/anotoki/internal/auth"
	"github.com/d60-Lab/anotoki/internal/service"
	"github.com/d60-Lab/anotoki/pkg/logger"
	"github.com/d60-Lab/anotoki/pkg/response"
)

const (
	stateCookie = "anotoki_oauth_state"
	stateMaxAge = 10 * time.Minute
)

type SessionEnvelope struct {
	User *auth.Viewer `json:"user"`
}

// Session 当前登录用户，资料以库中为准；用户已不存在时返回 401
// @Summary 当前会话
// @Tags 认证
// @Produce json
// @Success 200 {object} SessionEnvelope
// @Failure 401 {object} response.ErrorResponse
// @Router /api/session [get]
func (h *Handler) Session(c *gin.Context) {
	v, ok := middleware.Viewer(c)
	if !ok {
		response.Unauthorized(c)
		return
	}
	u, err := h.users.Get(c.Request.Context(), v.ID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, SessionEnvelope{User: &auth.Viewer{ID: u.ID, Name: u.Name, Email: u.Email, Image: u.Image}})
}

// Login 跳转到身份提供方
// @Summary OAuth 登录
// @Tags 认证
// @Success 302
// @Failure 404 {object} response.ErrorResponse
// @Router /api/auth/login [get]
func (h *Handler) Login(c *gin.Context) {
	if h.provider == nil || !h.provider.Enabled() {
		response.Error(c, notConfigured())
		return
	}
	state, err := auth.NewState()
	if err != nil {
		response.InternalError(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(stateCookie, state, int(stateMaxAge.Seconds()), "/api/auth", "", h.session.CookieSecure, true)
	c.Redirect(http.StatusFound, h.provider.AuthCodeURL(state))
}

// Callback 授权回调：校验 state、换取资料、写入用户并签发会话
// @Summary OAuth 回调
// @Tags 认证
// @Param code query string true "授权码"
// @Param state query string true "state"
// @Success 302
// @Failure 400 {object} response.ErrorResponse
// @Router /api/auth/callback [get]
func (h *Handler) Callback(c *gin.Context) {
	if h.provider == nil || !h.provider.Enabled() {
		response.Error(c, notConfigured())
		return
	}
	expected, _ := c.Cookie(stateCookie)
	c.SetCookie(stateCookie, "", -1, "/api/auth", "", h.session.CookieSecure, true)
	if expected == "" || c.Query("state") != expected {
		response.Error(c, apperror.Validation("auth.state", nil, "auth.state"))
		return
	}
	code := c.Query("code")
	if code == "" {
		response.Error(c, apperror.Validation("auth.code", nil, "auth.code"))
		return
	}

	ctx := c.Request.Context()
	info, err := h.provider.Exchange(ctx, code)
	if err != nil {
		logger.Warn("oauth exchange failed", zap.Error(err))
		response.Error(c, apperror.Wrap(err, apperror.CodeUnauthorized, "Sign-in failed", http.StatusUnauthorized))
		return
	}
	user, err := h.users.UpsertFromProvider(ctx, service.Profile{
		Subject: info.Subject, Email: info.Email, Name: info.Name, Picture: info.Picture,
	})
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.categories.EnsureDefaults(ctx); err != nil {
		logger.Warn("ensure default categories after sign-in", zap.Error(err))
	}

	token, err := h.tokens.Sign(auth.Viewer{ID: user.ID, Name: user.Name, Email: user.Email, Image: user.Image})
	if err != nil {
		response.InternalError(c, err)
		return
	}
	h.setSessionCookie(c, token, int(h.tokens.TTL().Seconds()))
	logger.Info("signed in", zap.String("user", user.ID))
	c.Redirect(http.StatusFound, h.session.PostLoginURL)
}

// Logout 清除会话 cookie
// @Summary 退出登录
// @Tags 认证
// @Success 204
// @Router /api/auth/logout [post]
func (h *Handler) Logout(c *gin.Context) {
	h.setSessionCookie(c, "", -1)
	response.NoContent(c)
}

func (h *Handler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.session.CookieName, value, maxAge, "/", "", h.session.CookieSecure, true)
}

package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/anotoki/internal/auth"
	"github.com/d60-Lab/anotoki/pkg/response"
)

const viewerKey = "viewer"

// Auth 从 cookie 或 Authorization: Bearer 读取会话令牌，失败直接 401
func Auth(tokens *auth.TokenManager, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		v, err := tokens.Parse(sessionToken(c, cookieName))
		if err != nil {
			response.Unauthorized(c)
			return
		}
		c.Set(viewerKey, v)
		c.Next()
	}
}

func sessionToken(c *gin.Context, cookieName string) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if token, ok := strings.CutPrefix(h, "Bearer "); ok {
			return strings.TrimSpace(token)
		}
	}
	if v, err := c.Cookie(cookieName); err == nil {
		return v
	}
	return ""
}

// Viewer 返回 Auth 写入的身份
func Viewer(c *gin.Context) (*auth.Viewer, bool) {
	v, ok := c.Get(viewerKey)
	if !ok {
		return nil, false
	}
	viewer, ok := v.(*auth.Viewer)
	return viewer, ok
}

// ViewerID 未登录时为空串
func ViewerID(c *gin.Context) string {
	if v, ok := Viewer(c); ok {
		return v.ID
	}
	return ""
}

package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/anotoki/internal/api/middleware"
	"github.com/d60-Lab/anotoki/internal/validation"
	"github.com/d60-Lab/anotoki/pkg/response"
)

// ReactionEnvelope 添加反应的响应
type ReactionEnvelope struct {
	Reaction validation.ReactionInput `json:"reaction"`
}

// AddReaction 点赞/收藏（幂等）
// @Summary 添加反应
// @Tags 反应
// @Produce json
// @Param id path string true "帖子ID"
// @Param type query string true "like 或 bookmark" Enums(like, bookmark)
// @Success 201 {object} ReactionEnvelope
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Router /api/posts/{id}/reactions [post]
func (h *Handler) AddReaction(c *gin.Context) {
	in, err := validation.Reaction(c.Param("id"), c.Query("type"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.reactions.Add(c.Request.Context(), in, middleware.ViewerID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, ReactionEnvelope{Reaction: in})
}

// RemoveReaction 取消点赞/收藏（不存在也返回 204）
// @Summary 取消反应
// @Tags 反应
// @Param id path string true "帖子ID"
// @Param type query string true "like 或 bookmark" Enums(like, bookmark)
// @Success 204
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Router /api/posts/{id}/reactions [delete]
func (h *Handler) RemoveReaction(c *gin.Context) {
	in, err := validation.Reaction(c.Param("id"), c.Query("type"))
	if err != nil {
		response.Error(c, err)
		return
	}
	if err := h.reactions.Remove(c.Request.Context(), in, middleware.ViewerID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

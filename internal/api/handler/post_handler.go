package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/anotoki/internal/api/middleware"
	"github.com/d60-Lab/anotoki/internal/model"
	"github.com/d60-Lab/anotoki/internal/validation"
	"github.com/d60-Lab/anotoki/pkg/response"
)

// PostEnvelope 单个帖子响应
type PostEnvelope struct {
	Post *model.PostDetail `json:"post"`
}

// ListPosts 帖子列表（游标分页）
// @Summary 帖子列表
// @Description 按创建时间倒序返回当前用户可见的帖子；nextCursor 为下一页第一条的 ID
// @Tags 帖子
// @Produce json
// @Param category query string false "分类 slug"
// @Param search query string false "标题/正文/标签关键字"
// @Param tag query string false "标签"
// @Param cursor query string false "游标"
// @Param limit query int false "每页数量 1-50" default(10)
// @Success 200 {object} model.PostPage
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Router /api/posts [get]
func (h *Handler) ListPosts(c *gin.Context) {
	q, err := validation.Posts(c.Query("category"), c.Query("search"), c.Query("tag"), c.Query("cursor"), c.Query("limit"))
	if err != nil {
		response.Error(c, err)
		return
	}
	page, err := h.posts.List(c.Request.Context(), middleware.ViewerID(c), q)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, page)
}

// CreatePost 发布帖子
// @Summary 发布帖子
// @Tags 帖子
// @Accept json
// @Produce json
// @Param request body validation.PostInput true "帖子内容"
// @Success 201 {object} PostEnvelope
// @Failure 400 {object} response.ErrorResponse
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse "CATEGORY_NOT_FOUND / AUTHOR_NOT_FOUND"
// @Router /api/posts [post]
func (h *Handler) CreatePost(c *gin.Context) {
	var in validation.PostInput
	if !bindJSON(c, &in) {
		return
	}
	if err := validation.CreatePost(&in); err != nil {
		response.Error(c, err)
		return
	}
	post, err := h.posts.Create(c.Request.Context(), in, middleware.ViewerID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, PostEnvelope{Post: post})
}

// GetPost 帖子详情
// @Summary 帖子详情
// @Tags 帖子
// @Produce json
// @Param id path string true "帖子ID"
// @Success 200 {object} PostEnvelope
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/posts/{id} [get]
func (h *Handler) GetPost(c *gin.Context) {
	post, err := h.posts.Get(c.Request.Context(), c.Param("id"), middleware.ViewerID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, PostEnvelope{Post: post})
}

// UpdatePost 全量更新帖子
// @Summary 更新帖子
// @Description 所有可变字段都必须提供，不支持部分更新
// @Tags 帖子
// @Accept json
// @Produce json
// @Param id path string true "帖子ID"
// @Param request body validation.PostInput true "帖子内容"
// @Success 200 {object} PostEnvelope
// @Failure 400 {object} response.ErrorResponse
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/posts/{id} [put]
func (h *Handler) UpdatePost(c *gin.Context) {
	in := validation.UpdatePostInput{ID: c.Param("id")}
	if !bindJSON(c, &in.PostInput) {
		return
	}
	if err := validation.UpdatePost(&in); err != nil {
		response.Error(c, err)
		return
	}
	post, err := h.posts.Update(c.Request.Context(), in, middleware.ViewerID(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, PostEnvelope{Post: post})
}

// DeletePost 删除帖子及其全部反应
// @Summary 删除帖子
// @Tags 帖子
// @Param id path string true "帖子ID"
// @Success 204
// @Failure 403 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/posts/{id} [delete]
func (h *Handler) DeletePost(c *gin.Context) {
	if err := h.posts.Delete(c.Request.Context(), c.Param("id"), middleware.ViewerID(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/d60-Lab/anotoki/internal/model"
	"github.com/d60-Lab/anotoki/pkg/response"
)

type CategoriesEnvelope struct {
	Categories []*model.Category `json:"categories"`
}

type CategoryEnvelope struct {
	Category *model.Category `json:"category"`
}

// ListCategories 分类列表
// @Summary 分类列表
// @Tags 分类
// @Produce json
// @Success 200 {object} CategoriesEnvelope
// @Failure 401 {object} response.ErrorResponse
// @Router /api/categories [get]
func (h *Handler) ListCategories(c *gin.Context) {
	cats, err := h.categories.List(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, CategoriesEnvelope{Categories: cats})
}

// GetCategory 按 slug 取分类
// @Summary 分类详情
// @Tags 分类
// @Produce json
// @Param slug path string true "分类 slug"
// @Success 200 {object} CategoryEnvelope
// @Failure 401 {object} response.ErrorResponse
// @Failure 404 {object} response.ErrorResponse
// @Router /api/categories/{slug} [get]
func (h *Handler) GetCategory(c *gin.Context) {
	cat, err := h.categories.GetBySlug(c.Request.Context(), c.Param("slug"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Success(c, CategoryEnvelope{Category: cat})
}

package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/libris-api/internal/service"
	appErrors "github.com/noah-isme/libris-api/pkg/errors"
	"github.com/noah-isme/libris-api/pkg/response"
)

// LendingHandler handles lending policy configuration endpoints: student
// categories and per-book lending rights.
type LendingHandler struct {
	service *service.LendingService
}

// NewLendingHandler constructs a lending handler.
func NewLendingHandler(svc *service.LendingService) *LendingHandler {
	return &LendingHandler{service: svc}
}

// GetRights godoc
// @Summary Get lending rights for a book
// @Tags Lending
// @Produce json
// @Param id path string true "Book ID"
// @Success 200 {object} response.Envelope
// @Router /books/{id}/lending-rights [get]
func (h *LendingHandler) GetRights(c *gin.Context) {
	rights, err := h.service.GetRights(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rights, nil)
}

// UpsertRights godoc
// @Summary Create or replace lending rights for a book
// @Tags Lending
// @Accept json
// @Produce json
// @Param id path string true "Book ID"
// @Param payload body service.UpsertRightsRequest true "Lending rights payload"
// @Success 200 {object} response.Envelope
// @Router /books/{id}/lending-rights [put]
func (h *LendingHandler) UpsertRights(c *gin.Context) {
	var req service.UpsertRightsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	rights, err := h.service.UpsertRights(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rights, nil)
}

// DeleteRights godoc
// @Summary Remove lending rights from a book
// @Tags Lending
// @Produce json
// @Param id path string true "Book ID"
// @Success 204
// @Router /books/{id}/lending-rights [delete]
func (h *LendingHandler) DeleteRights(c *gin.Context) {
	if err := h.service.DeleteRights(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListCategories godoc
// @Summary List student categories
// @Tags Lending
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /student-categories [get]
func (h *LendingHandler) ListCategories(c *gin.Context) {
	categories, err := h.service.ListCategories(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, categories, nil)
}

// GetCategory godoc
// @Summary Get student category by id
// @Tags Lending
// @Produce json
// @Param id path string true "Category ID"
// @Success 200 {object} response.Envelope
// @Router /student-categories/{id} [get]
func (h *LendingHandler) GetCategory(c *gin.Context) {
	category, err := h.service.GetCategory(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, category, nil)
}

// CreateCategory godoc
// @Summary Create student category
// @Tags Lending
// @Accept json
// @Produce json
// @Param payload body service.CategoryRequest true "Category payload"
// @Success 201 {object} response.Envelope
// @Router /student-categories [post]
func (h *LendingHandler) CreateCategory(c *gin.Context) {
	var req service.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	category, err := h.service.CreateCategory(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, category)
}

// UpdateCategory godoc
// @Summary Update student category
// @Tags Lending
// @Accept json
// @Produce json
// @Param id path string true "Category ID"
// @Param payload body service.CategoryRequest true "Category payload"
// @Success 200 {object} response.Envelope
// @Router /student-categories/{id} [put]
func (h *LendingHandler) UpdateCategory(c *gin.Context) {
	var req service.CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	category, err := h.service.UpdateCategory(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, category, nil)
}

package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/libris-api/internal/models"
	"github.com/noah-isme/libris-api/internal/service"
	appErrors "github.com/noah-isme/libris-api/pkg/errors"
	"github.com/noah-isme/libris-api/pkg/response"
)

// BorrowingHandler handles loan endpoints.
type BorrowingHandler struct {
	service *service.BorrowingService
}

// NewBorrowingHandler constructs a borrowing handler.
func NewBorrowingHandler(svc *service.BorrowingService) *BorrowingHandler {
	return &BorrowingHandler{service: svc}
}

// List godoc
// @Summary List borrowings
// @Tags Borrowings
// @Produce json
// @Param book_id query string false "Filter by book"
// @Param student_id query string false "Filter by student"
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /borrowings [get]
func (h *BorrowingHandler) List(c *gin.Context) {
	var filter models.BorrowingFilter
	filter.BookID = c.Query("book_id")
	filter.StudentID = c.Query("student_id")
	filter.Status = models.BorrowingStatus(c.Query("status"))
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = limit
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	borrowings, pagination, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, borrowings, pagination)
}

// Get godoc
// @Summary Get borrowing by id
// @Tags Borrowings
// @Produce json
// @Param id path string true "Borrowing ID"
// @Success 200 {object} response.Envelope
// @Router /borrowings/{id} [get]
func (h *BorrowingHandler) Get(c *gin.Context) {
	borrowing, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, borrowing, nil)
}

// Borrow godoc
// @Summary Lend a copy to a student
// @Tags Borrowings
// @Accept json
// @Produce json
// @Param payload body service.BorrowRequest true "Borrow payload"
// @Success 201 {object} response.Envelope
// @Router /borrowings [post]
func (h *BorrowingHandler) Borrow(c *gin.Context) {
	var req service.BorrowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	borrowing, err := h.service.Borrow(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, borrowing)
}

// Return godoc
// @Summary Return a borrowed copy
// @Tags Borrowings
// @Accept json
// @Produce json
// @Param id path string true "Borrowing ID"
// @Param payload body service.ReturnRequest true "Return payload"
// @Success 200 {object} response.Envelope
// @Router /borrowings/{id}/return [post]
func (h *BorrowingHandler) Return(c *gin.Context) {
	var req service.ReturnRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	borrowing, err := h.service.Return(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, borrowing, nil)
}

// Update godoc
// @Summary Update borrowing
// @Tags Borrowings
// @Accept json
// @Produce json
// @Param id path string true "Borrowing ID"
// @Param payload body service.UpdateBorrowingRequest true "Borrowing payload"
// @Success 200 {object} response.Envelope
// @Router /borrowings/{id} [put]
func (h *BorrowingHandler) Update(c *gin.Context) {
	var req service.UpdateBorrowingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	borrowing, err := h.service.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, borrowing, nil)
}

// Delete godoc
// @Summary Delete borrowing record
// @Tags Borrowings
// @Produce json
// @Param id path string true "Borrowing ID"
// @Success 204
// @Router /borrowings/{id} [delete]
func (h *BorrowingHandler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// SweepOverdue godoc
// @Summary Mark due loans overdue and ban their holders
// @Tags Borrowings
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /borrowings/sweep-overdue [post]
func (h *BorrowingHandler) SweepOverdue(c *gin.Context) {
	marked, err := h.service.SweepOverdue(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, gin.H{"marked_overdue": marked}, nil)
}

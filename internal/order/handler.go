package order

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"

	"menusemanal/internal/storeerr"
)

type Handler struct {
	service *Service
}

type AdminHandler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

func NewAdminHandler(service *Service) *AdminHandler {
	return &AdminHandler{service: service}
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrUnknownUser):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, ErrUnknownDay),
		errors.Is(err, ErrUnknownOption),
		errors.Is(err, ErrNoOrderForDay),
		errors.Is(err, ErrCommentIndex),
		errors.Is(err, ErrInvalidRequest):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case storeerr.IsWrite(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "could not save your order, please retry",
			"retry": true,
		})
	case storeerr.IsRead(err):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "orders unavailable"})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

// --------------------------------------------------
// User's week
// --------------------------------------------------
func (h *Handler) Week(c *gin.Context) {
	w, err := h.service.Week(c.Request.Context(), c.Param("user"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *Handler) Summary(c *gin.Context) {
	w, err := h.service.Summary(c.Request.Context(), c.Param("user"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// --------------------------------------------------
// Counters
// --------------------------------------------------
func (h *Handler) Increment(c *gin.Context) {
	var req Mutation
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	w, err := h.service.Increment(c.Request.Context(), c.Param("user"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

func (h *Handler) Decrement(c *gin.Context) {
	var req Mutation
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	w, err := h.service.Decrement(c.Request.Context(), c.Param("user"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// --------------------------------------------------
// Comments
// --------------------------------------------------
func (h *Handler) AddComment(c *gin.Context) {
	var req CommentInput
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	w, err := h.service.AddComment(c.Request.Context(), c.Param("user"), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, w)
}

func (h *Handler) RemoveComment(c *gin.Context) {
	index, err := strconv.Atoi(c.Param("index"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "index must be a number"})
		return
	}

	w, err := h.service.RemoveComment(c.Request.Context(), c.Param("user"), c.Param("day"), index)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, w)
}

// --------------------------------------------------
// Admin
// --------------------------------------------------
func (h *AdminHandler) ClearComments(c *gin.Context) {
	n, err := h.service.ClearComments(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": n, "message": "Comments cleared"})
}

func (h *AdminHandler) Reset(c *gin.Context) {
	n, err := h.service.ResetWeek(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"rows": n, "message": "Week orders reset"})
}

package menu

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
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

// --------------------------------------------------
// Current weekly menu
// --------------------------------------------------
func (h *Handler) Current(c *gin.Context) {
	loaded, err := h.service.Current(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "menu unavailable"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"week_start": loaded.Menu.WeekKey,
		"menu":       loaded.Menu.Data,
		"updated_at": loaded.Menu.UpdatedAt,
		"degraded":   loaded.Degraded,
		"default":    loaded.Default,
	})
}

// --------------------------------------------------
// Admin uploads the weekly spreadsheet
// --------------------------------------------------
func (h *AdminHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("menu_file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "menu_file is required"})
		return
	}
	defer file.Close()

	if err := ValidateFileExtension(header.Filename); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	m, err := h.service.Upload(c.Request.Context(), header.Filename, file)
	switch {
	case err == nil:
	case errors.Is(err, ErrInvalidMenu), errors.Is(err, ErrEmptySheet), errors.Is(err, ErrFileExtension):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to store menu"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"id":         m.ID,
		"week_start": m.WeekKey,
		"menu":       m.Data,
		"updated_at": m.UpdatedAt,
		"message":    "Menu uploaded",
	})
}

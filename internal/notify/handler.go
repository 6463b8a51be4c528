package notify

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// --------------------------------------------------
// Admin: send weekly summary (?force=true skips the window)
// --------------------------------------------------
func (h *Handler) Send(c *gin.Context) {
	_, force := c.GetQuery("force")

	s, err := h.service.Send(c.Request.Context(), force)
	switch {
	case err == nil:
		c.JSON(http.StatusOK, gin.H{
			"success": true,
			"message": "Resumen enviado por correo exitosamente",
			"summary": s,
		})
	case errors.Is(err, ErrOutsideWindow):
		c.JSON(http.StatusBadRequest, gin.H{
			"success": false,
			"message": "El resumen solo se envía en el horario semanal configurado o con parámetro force=true",
		})
	case errors.Is(err, ErrNoOrders):
		c.JSON(http.StatusNotFound, gin.H{
			"success": false,
			"message": "No hay pedidos para esta semana",
		})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"message": "Error al enviar el resumen por correo",
			"error":   err.Error(),
		})
	}
}

package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"menusemanal/internal/summary"
)

// Source yields the current summary, writing the error response itself
// when it cannot.
type Source interface {
	Latest(c *gin.Context) (*summary.Summary, summary.Status, bool)
}

type Archiver interface {
	Archive(ctx context.Context, key string, body io.Reader, contentType string) (string, error)
}

type Handler struct {
	source  Source
	archive Archiver
	now     func() time.Time
	log     *zap.Logger
}

func NewHandler(source Source, archive Archiver, now func() time.Time, log *zap.Logger) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{source: source, archive: archive, now: now, log: log.Named("export")}
}

// --------------------------------------------------
// WhatsApp share link
// --------------------------------------------------
func (h *Handler) WhatsApp(c *gin.Context) {
	s, _, ok := h.source.Latest(c)
	if !ok {
		return
	}
	text := summary.FormatMessage(s, h.now())
	c.JSON(http.StatusOK, gin.H{"url": WhatsAppURL(text), "text": text})
}

// --------------------------------------------------
// PDF download (optionally archived)
// --------------------------------------------------
func (h *Handler) PDF(c *gin.Context) {
	s, _, ok := h.source.Latest(c)
	if !ok {
		return
	}

	today := h.now()
	data, err := PDF(s, today)
	if err != nil {
		h.log.Error("pdf render failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "could not render pdf"})
		return
	}

	filename := fmt.Sprintf("resumen-pedidos-%s.pdf", s.WeekKey)
	if h.archive != nil && c.Query("archive") == "true" {
		key := fmt.Sprintf("summaries/%s/%s-%d.pdf", s.WeekKey, "resumen", today.Unix())
		if url, err := h.archive.Archive(c.Request.Context(), key, bytes.NewReader(data), "application/pdf"); err != nil {
			h.log.Warn("pdf archive failed", zap.String("key", key), zap.Error(err))
		} else {
			c.Header("X-Archive-URL", url)
		}
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", data)
}

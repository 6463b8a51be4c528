package summary

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

type Handler struct {
	reconciler *Reconciler
	now        func() time.Time
}

func NewHandler(reconciler *Reconciler, now func() time.Time) *Handler {
	if now == nil {
		now = time.Now
	}
	return &Handler{reconciler: reconciler, now: now}
}

// Latest returns the cached summary, computing it on first use.
func (h *Handler) Latest(c *gin.Context) (*Summary, Status, bool) {
	s, st, err := h.reconciler.Current()
	if errors.Is(err, ErrNotReady) {
		if _, err = h.reconciler.Recompute(c.Request.Context()); err == nil {
			s, st, err = h.reconciler.Current()
		}
	}
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "summary unavailable"})
		return nil, st, false
	}
	return s, st, true
}

// --------------------------------------------------
// Weekly summary
// --------------------------------------------------
func (h *Handler) Get(c *gin.Context) {
	s, st, ok := h.Latest(c)
	if !ok {
		return
	}
	if c.Query("all") != "true" {
		s = s.Filtered()
	}

	c.JSON(http.StatusOK, gin.H{
		"summary":  s,
		"total":    s.Total(),
		"status":   st,
		"degraded": st.Degraded,
	})
}

// Refresh forces a full recompute and persists it.
func (h *Handler) Refresh(c *gin.Context) {
	s, err := h.reconciler.Recompute(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "could not recompute summary, please retry",
			"retry": true,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"summary": s.Filtered(),
		"total":   s.Total(),
		"status":  h.reconciler.Status(),
	})
}

func (h *Handler) Text(c *gin.Context) {
	s, _, ok := h.Latest(c)
	if !ok {
		return
	}
	c.String(http.StatusOK, FormatMessage(s, h.now()))
}

package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"menusemanal/internal/auth"
	"menusemanal/internal/export"
	"menusemanal/internal/feed"
	"menusemanal/internal/menu"
	"menusemanal/internal/middleware"
	"menusemanal/internal/notify"
	"menusemanal/internal/order"
	"menusemanal/internal/roster"
	"menusemanal/internal/summary"
)

// Deps are the handlers the HTTP surface is built from.
type Deps struct {
	Menu       *menu.Handler
	MenuAdmin  *menu.AdminHandler
	Orders     *order.Handler
	OrderAdmin *order.AdminHandler
	Summary    *summary.Handler
	Export     *export.Handler
	Notify     *notify.Handler
	Feed       *feed.Handler
	Auth       *auth.Handler
	Roster     *roster.Roster
	Issuer     *auth.Issuer

	CORSOrigins []string
	Log         *zap.Logger
}

func New(d Deps) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestLogger(d.Log))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     d.CORSOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Archive-URL"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// ───────────────────────── HEALTH ─────────────────────────
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// ───────────────────────── PUBLIC ─────────────────────────
	r.GET("/menu", d.Menu.Current)
	r.GET("/users", d.Roster.Handler)
	r.GET("/events", d.Feed.Stream)
	r.POST("/auth/login", d.Auth.Login)

	// ───────────────────────── ORDER ROUTES ─────────────────────────
	orders := r.Group("/orders/:user")
	{
		orders.GET("", d.Orders.Week)
		orders.GET("/summary", d.Orders.Summary)
		orders.POST("/increment", d.Orders.Increment)
		orders.POST("/decrement", d.Orders.Decrement)
		orders.POST("/comments", d.Orders.AddComment)
		orders.DELETE("/comments/:day/:index", d.Orders.RemoveComment)
	}

	// ───────────────────────── SUMMARY ROUTES ─────────────────────────
	sum := r.Group("/summary")
	{
		sum.GET("", d.Summary.Get)
		sum.POST("/refresh", d.Summary.Refresh)
		sum.GET("/text", d.Summary.Text)
		sum.GET("/whatsapp", d.Export.WhatsApp)
		sum.GET("/pdf", d.Export.PDF)
	}

	// ───────────────────────── ADMIN ROUTES ─────────────────────────
	admin := r.Group("/admin")
	admin.Use(
		middleware.AuthMiddleware(d.Issuer),
		middleware.RequireRole(auth.RoleAdmin),
	)
	{
		admin.POST("/menu/upload", d.MenuAdmin.Upload)
		admin.POST("/orders/clear-comments", d.OrderAdmin.ClearComments)
		admin.POST("/orders/reset", d.OrderAdmin.Reset)
		admin.GET("/send-summary", d.Notify.Send)
	}

	return r
}

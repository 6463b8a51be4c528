// Package app builds the object graph shared by the api server, the
// summary worker and the admin CLI.
package app

import (
	"context"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"menusemanal/internal/auth"
	"menusemanal/internal/cache"
	"menusemanal/internal/config"
	"menusemanal/internal/db"
	"menusemanal/internal/export"
	"menusemanal/internal/feed"
	"menusemanal/internal/menu"
	"menusemanal/internal/menuwatch"
	"menusemanal/internal/notify"
	"menusemanal/internal/order"
	"menusemanal/internal/reset"
	"menusemanal/internal/roster"
	"menusemanal/internal/router"
	"menusemanal/internal/storage"
	"menusemanal/internal/summary"
	"menusemanal/internal/week"
)

const (
	feedBuffer      = 64
	shutdownTimeout = 10 * time.Second
)

type App struct {
	Config *config.Config
	Log    *zap.Logger

	Pool     *pgxpool.Pool
	Cache    cache.Store
	Settings *cache.Settings
	Weeks    *week.Resolver
	Roster   *roster.Roster
	Hub      *feed.Hub
	Archive  *storage.R2Client

	MenuRepo  menu.Repository
	OrderRepo order.Repository
	Snapshots summary.SnapshotRepository

	Menus      *menu.Service
	Orders     *order.Service
	Reconciler *summary.Reconciler
	Watcher    *menuwatch.Watcher
	Notifier   *notify.Service
	Scheduler  *notify.Scheduler

	Issuer *auth.Issuer
	Auth   *auth.Service
}

// MemoryConfig is a complete configuration for the in-memory store with
// a non-persistent cache.
func MemoryConfig(jwtSecret, adminPasswordHash string) *config.Config {
	return &config.Config{
		Env:               "development",
		Port:              "8000",
		Store:             "memory",
		CORSOrigins:       []string{"http://localhost:3000"},
		JWTSecret:         jwtSecret,
		AdminPasswordHash: adminPasswordHash,
		Location:          time.UTC,
		CutoverDay:        time.Friday,
		RefreshInterval:   time.Minute,
		SendDay:           time.Friday,
		SendFromHour:      15,
		SendToHour:        17,
	}
}

// New connects the stores selected by cfg.Store and builds every service.
func New(ctx context.Context, cfg *config.Config, log *zap.Logger) (*App, error) {
	a := &App{Config: cfg, Log: log, Hub: feed.NewHub(log)}

	if err := a.openCache(ctx); err != nil {
		return nil, err
	}

	switch cfg.Store {
	case "postgres":
		pool, err := db.ConnectPostgres(ctx, cfg.DatabaseURL, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Pool = pool
		a.MenuRepo = menu.NewPostgresRepository(pool)
		a.OrderRepo = order.NewPostgresRepository(pool)
		a.Snapshots = summary.NewPostgresSnapshotRepository(pool)
	default:
		log.Warn("using in-memory store, data is lost on restart")
		a.MenuRepo = menu.NewInMemoryRepository()
		a.OrderRepo = order.NewInMemoryRepository()
		a.Snapshots = summary.NewInMemorySnapshotRepository()
	}

	if err := a.build(ctx); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) openCache(ctx context.Context) error {
	if a.Config.CachePath == "" {
		a.Cache = cache.NewMemoryStore()
	} else {
		store, err := cache.OpenSQLite(ctx, a.Config.CachePath)
		if err != nil {
			return errors.Wrap(err, "open local cache")
		}
		a.Cache = store
	}
	a.Settings = cache.NewSettings(a.Cache)
	return nil
}

func (a *App) build(ctx context.Context) error {
	cfg, log := a.Config, a.Log

	a.Weeks = week.NewResolver(cfg.WeekPolicy(), a.Settings)
	if err := a.Weeks.Load(ctx); err != nil {
		log.Warn("week override unavailable", zap.Error(err))
	}

	a.Roster = roster.Builtin()
	if cfg.RosterFile != "" {
		r, err := roster.Load(cfg.RosterFile)
		if err != nil {
			return errors.Wrap(err, "load roster")
		}
		a.Roster = r
	}

	var menuArchive menu.Archiver
	if cfg.R2.Enabled() {
		client, err := storage.NewR2Client(ctx, cfg.R2)
		if err != nil {
			return err
		}
		a.Archive = client
		menuArchive = client
	}

	issuer, err := auth.NewIssuer(cfg.JWTSecret)
	if err != nil {
		return err
	}
	a.Issuer = issuer
	a.Auth = auth.NewService(cfg.AdminPasswordHash, issuer)

	a.Menus = menu.NewService(a.MenuRepo, menuArchive, a.Cache, a.Weeks, log)
	a.Orders = order.NewService(a.OrderRepo, a.Menus, a.Roster, a.Weeks, log)

	instance, _ := os.Hostname()
	a.Reconciler = summary.NewReconciler(
		a.OrderRepo,
		a.Menus,
		a.Snapshots,
		a.Weeks,
		a.Cache,
		summary.ReconcilerConfig{Interval: cfg.RefreshInterval, Instance: instance},
		log,
	)

	a.Watcher = menuwatch.New(
		a.Menus,
		reset.NewDecider(a.Settings, log),
		a.OrderRepo,
		a.Snapshots,
		a.Reconciler,
		a.Hub,
		a.Weeks,
		log,
	)
	a.Menus.Observe(a.Watcher.OnUpload)

	// Postgres triggers announce row changes. The memory store has none,
	// so the services publish themselves.
	if a.Pool == nil {
		a.Orders.OnChange(func(_ context.Context, weekKey, user string) {
			a.Hub.Publish(feed.Event{
				Table:    feed.TableOrders,
				Op:       feed.OpUpdate,
				WeekKey:  weekKey,
				UserName: user,
				At:       time.Now(),
			})
		})
		a.Menus.Observe(func(_ context.Context, m *menu.WeeklyMenu) {
			a.Hub.Publish(feed.Event{
				Table:   feed.TableMenus,
				Op:      feed.OpInsert,
				WeekKey: m.WeekKey,
				At:      time.Now(),
			})
		})
	}

	var sender notify.Sender = notify.NewConsoleSender(log)
	if cfg.SendgridAPIKey != "" {
		sender = notify.NewSendgridSender(cfg.SendgridAPIKey, "Menú Semanal", cfg.EmailFrom)
	}
	if len(cfg.EmailRecipients) == 0 {
		log.Warn("EMAIL_RECIPIENTS is empty, weekly summary e-mails go nowhere")
	}
	window := notify.Window{Day: cfg.SendDay, FromHour: cfg.SendFromHour, ToHour: cfg.SendToHour}
	a.Notifier = notify.NewService(a.OrderRepo, a.Menus, a.Weeks, sender, window, cfg.EmailRecipients, log)
	a.Scheduler = notify.NewScheduler(a.Notifier, a.Settings, time.Minute, log)

	return nil
}

// Router builds the HTTP surface.
func (a *App) Router() *gin.Engine {
	var exportArchive export.Archiver
	if a.Archive != nil {
		exportArchive = a.Archive
	}

	summaryHandler := summary.NewHandler(a.Reconciler, a.Weeks.Now)

	return router.New(router.Deps{
		Menu:        menu.NewHandler(a.Menus),
		MenuAdmin:   menu.NewAdminHandler(a.Menus),
		Orders:      order.NewHandler(a.Orders),
		OrderAdmin:  order.NewAdminHandler(a.Orders),
		Summary:     summaryHandler,
		Export:      export.NewHandler(summaryHandler, exportArchive, a.Weeks.Now, a.Log),
		Notify:      notify.NewHandler(a.Notifier),
		Feed:        feed.NewHandler(a.Hub),
		Auth:        auth.NewHandler(a.Auth),
		Roster:      a.Roster,
		Issuer:      a.Issuer,
		CORSOrigins: a.Config.CORSOrigins,
		Log:         a.Log,
	})
}

// Background runs the change feed consumers until ctx is done. The
// scheduler joins when withScheduler is set.
func (a *App) Background(ctx context.Context, g *errgroup.Group, withScheduler bool) {
	summaryEvents, cancelSummary := a.Hub.Subscribe(feedBuffer)
	menuEvents, cancelMenu := a.Hub.Subscribe(feedBuffer)

	g.Go(func() error {
		defer cancelSummary()
		return a.Reconciler.Run(ctx, summaryEvents)
	})
	g.Go(func() error {
		defer cancelMenu()
		return a.Watcher.Run(ctx, menuEvents)
	})

	if a.Pool != nil {
		listener := feed.NewListener(a.Pool, a.Hub, a.Log)
		g.Go(func() error { return listener.Run(ctx) })
	}

	if withScheduler {
		g.Go(func() error { return a.Scheduler.Run(ctx) })
	}
}

// Serve runs the HTTP server and the background loops until ctx is done.
func (a *App) Serve(ctx context.Context) error {
	srv := &http.Server{
		Addr:              ":" + a.Config.Port,
		Handler:           a.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	a.Background(gctx, g, a.Config.SchedulerEnabled)

	g.Go(func() error {
		a.Log.Info("api listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return errors.Wrap(err, "http server")
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
	if a.Cache != nil {
		if err := a.Cache.Close(); err != nil {
			a.Log.Warn("close cache", zap.Error(err))
		}
	}
}

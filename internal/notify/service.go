// Package notify sends the weekly summary by e-mail.
package notify

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"menusemanal/internal/menu"
	"menusemanal/internal/order"
	"menusemanal/internal/summary"
	"menusemanal/internal/week"
)

var (
	ErrOutsideWindow = errors.New("summary e-mail only goes out inside the weekly window")
	ErrNoOrders      = errors.New("no orders this week")
)

type OrderLister interface {
	ListByWeek(ctx context.Context, weekKey string) ([]order.Record, error)
}

type MenuSource interface {
	Current(ctx context.Context) (*menu.Loaded, error)
}

type Service struct {
	orders     OrderLister
	menus      MenuSource
	weeks      *week.Resolver
	sender     Sender
	window     Window
	recipients []string
	log        *zap.Logger
}

func NewService(
	orders OrderLister,
	menus MenuSource,
	weeks *week.Resolver,
	sender Sender,
	window Window,
	recipients []string,
	log *zap.Logger,
) *Service {
	return &Service{
		orders:     orders,
		menus:      menus,
		weeks:      weeks,
		sender:     sender,
		window:     window,
		recipients: recipients,
		log:        log.Named("notify"),
	}
}

func (s *Service) Window() Window { return s.window }

// Send aggregates the current week and mails it. Without force it refuses
// to run outside the window.
func (s *Service) Send(ctx context.Context, force bool) (*summary.Summary, error) {
	now := s.weeks.Now()
	if !force && !s.window.Contains(now) {
		return nil, ErrOutsideWindow
	}

	weekKey := s.weeks.Current()
	records, err := s.orders.ListByWeek(ctx, weekKey)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, ErrNoOrders
	}

	loaded, err := s.menus.Current(ctx)
	if err != nil {
		return nil, err
	}
	sum := summary.Aggregate(weekKey, loaded.Menu.Data, records)
	sum.UpdatedAt = now
	filtered := sum.Filtered()
	if len(filtered.Days) == 0 {
		return nil, ErrNoOrders
	}

	html, err := RenderHTML(sum)
	if err != nil {
		return nil, err
	}

	msg := Message{
		To:      s.recipients,
		Subject: "Resumen de Pedidos - Semana del " + weekKey,
		Text:    summary.FormatMessage(sum, now),
		HTML:    html,
	}
	if err := s.sender.Send(ctx, msg); err != nil {
		s.log.Error("summary e-mail failed", zap.String("week", weekKey), zap.Error(err))
		return nil, errors.Wrap(err, "send summary e-mail")
	}

	s.log.Info("summary e-mail sent",
		zap.String("week", weekKey),
		zap.Strings("to", s.recipients),
		zap.Int("total", sum.Total()),
		zap.Bool("forced", force),
	)
	return filtered, nil
}

// --------------------------------------------------
// Scheduler
// --------------------------------------------------

// SentLog remembers the last week that was e-mailed.
type SentLog interface {
	LastEmailedWeek(ctx context.Context) (string, bool, error)
	MarkEmailed(ctx context.Context, weekKey string) error
}

type Scheduler struct {
	service  *Service
	sent     SentLog
	interval time.Duration
	log      *zap.Logger
}

func NewScheduler(service *Service, sent SentLog, interval time.Duration, log *zap.Logger) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{service: service, sent: sent, interval: interval, log: log.Named("scheduler")}
}

// Tick sends the summary when inside the window and this week has not
// been e-mailed yet. It reports whether an e-mail went out.
func (s *Scheduler) Tick(ctx context.Context) bool {
	weeks := s.service.weeks
	if !s.service.window.Contains(weeks.Now()) {
		return false
	}

	weekKey := weeks.Current()
	last, ok, err := s.sent.LastEmailedWeek(ctx)
	if err != nil {
		s.log.Warn("sent log read failed, skipping", zap.Error(err))
		return false
	}
	if ok && last == weekKey {
		return false
	}

	if _, err := s.service.Send(ctx, false); err != nil {
		if errors.Is(err, ErrNoOrders) {
			s.log.Info("nothing to e-mail yet", zap.String("week", weekKey))
		} else {
			s.log.Error("scheduled summary failed", zap.Error(err))
		}
		return false
	}

	if err := s.sent.MarkEmailed(ctx, weekKey); err != nil {
		s.log.Warn("sent log write failed", zap.Error(err))
	}
	return true
}

func (s *Scheduler) Run(ctx context.Context) error {
	s.log.Info("summary scheduler started",
		zap.Stringer("day", s.service.window.Day),
		zap.Int("from_hour", s.service.window.FromHour),
		zap.Int("to_hour", s.service.window.ToHour),
	)

	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.Tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s.Tick(ctx)
		}
	}
}

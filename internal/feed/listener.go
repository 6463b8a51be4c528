package feed

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// Channels are the NOTIFY channels installed by the db schema triggers.
var Channels = []string{
	"menu_orders_changes",
	"order_summaries_changes",
	"weekly_menus_changes",
}

const (
	minBackoff = time.Second
	maxBackoff = 30 * time.Second
)

// Listener holds one pooled connection in LISTEN mode and republishes
// every notification on the hub.
type Listener struct {
	pool *pgxpool.Pool
	hub  *Hub
	log  *zap.Logger
}

func NewListener(pool *pgxpool.Pool, hub *Hub, log *zap.Logger) *Listener {
	return &Listener{pool: pool, hub: hub, log: log.Named("listener")}
}

// Run listens until ctx is done, reconnecting with exponential backoff.
// The backoff starts over after every connection that got as far as
// LISTEN. Notifications sent while disconnected are lost, so each
// reconnect publishes a synthetic order and menu event to force a
// recompute and a menu check.
func (l *Listener) Run(ctx context.Context) error {
	backoff := minBackoff
	connected := false
	for {
		listening, err := l.listen(ctx, connected)
		if ctx.Err() != nil {
			return nil
		}
		if listening {
			connected = true
			backoff = minBackoff
		}

		l.log.Warn("change feed disconnected", zap.Error(err), zap.Duration("retry_in", backoff))
		select {
		case <-ctx.Done():
			return nil
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
	}
}

// listen reports whether LISTEN succeeded on every channel before the
// connection was lost.
func (l *Listener) listen(ctx context.Context, reconnect bool) (bool, error) {
	conn, err := l.pool.Acquire(ctx)
	if err != nil {
		return false, errors.Wrap(err, "acquire listen connection")
	}
	defer conn.Release()

	for _, ch := range Channels {
		if _, err := conn.Exec(ctx, "LISTEN "+ch); err != nil {
			return false, errors.Wrapf(err, "listen %s", ch)
		}
	}
	l.log.Info("change feed listening", zap.Strings("channels", Channels))

	if reconnect {
		for _, ev := range Resync() {
			l.hub.Publish(ev)
		}
	}

	for {
		n, err := conn.Conn().WaitForNotification(ctx)
		if err != nil {
			return true, err
		}

		ev, err := Decode([]byte(n.Payload))
		if err != nil {
			l.log.Warn("bad notification payload",
				zap.String("channel", n.Channel),
				zap.Error(err),
			)
			continue
		}
		l.hub.Publish(ev)
	}
}

// Resync returns the events published after a reconnect. They carry no
// week so every subscriber treats them as touching the current one.
func Resync() []Event {
	now := time.Now()
	return []Event{
		{Table: TableOrders, Op: OpUpdate, At: now},
		{Table: TableMenus, Op: OpUpdate, At: now},
	}
}

// Decode parses a trigger payload:
// {"table": "...", "op": "...", "week_start": "...", "user_name": "..."}.
func Decode(payload []byte) (Event, error) {
	var ev Event
	if err := json.Unmarshal(payload, &ev); err != nil {
		return Event{}, errors.Wrap(err, "decode notification")
	}
	if ev.Table == "" {
		return Event{}, errors.New("notification without table")
	}
	ev.At = time.Now()
	return ev, nil
}

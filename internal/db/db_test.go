package db

import (
	"context"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func TestConnectPostgres(t *testing.T) {
	t.Run("missing DATABASE_URL is an error", func(t *testing.T) {
		_, err := ConnectPostgres(context.Background(), "", zaptest.NewLogger(t))
		assert.Error(t, err)
	})

	t.Run("malformed DATABASE_URL is an error", func(t *testing.T) {
		_, err := ConnectPostgres(context.Background(), "postgres://%zz", zaptest.NewLogger(t))
		assert.Error(t, err)
	})

	t.Run("valid DATABASE_URL should connect", func(t *testing.T) {
		dsn := os.Getenv("DATABASE_URL")
		if dsn == "" {
			t.Skip("DATABASE_URL not set, skipping integration test")
		}

		pool, err := ConnectPostgres(context.Background(), dsn, zaptest.NewLogger(t))
		require.NoError(t, err)
		defer pool.Close()

		// schema creation is idempotent
		require.NoError(t, initSchema(context.Background(), pool))
	})
}

func TestSchemaCoversNotifiedTables(t *testing.T) {
	names := map[string]bool{}
	for _, stmt := range schema {
		names[stmt.name] = true
	}

	for _, table := range []string{"weekly_menus", "menu_orders", "order_summaries"} {
		assert.True(t, names[table], "table %s", table)
		assert.True(t, names[table+"_notify"], "trigger %s", table)
	}
}

func TestOrdersAreUniquePerUserOption(t *testing.T) {
	for _, stmt := range schema {
		if stmt.name == "menu_orders" {
			assert.True(t, strings.Contains(stmt.sql, "UNIQUE (week_start, day, option, user_name)"))
			return
		}
	}
	t.Fatal("menu_orders statement missing")
}

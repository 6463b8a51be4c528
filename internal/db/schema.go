package db

type statement struct {
	name string
	sql  string
}

var schema = []statement{
	// -------------------------------
	// WEEKLY MENUS
	// -------------------------------
	{"weekly_menus", `
		CREATE TABLE IF NOT EXISTS weekly_menus (
			id TEXT PRIMARY KEY,
			menu_data JSONB NOT NULL,
			week_start TEXT NOT NULL,
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)
	`},
	{"weekly_menus_updated_idx", `
		CREATE INDEX IF NOT EXISTS weekly_menus_updated_idx
		ON weekly_menus (updated_at DESC)
	`},

	// -------------------------------
	// MENU ORDERS
	// -------------------------------
	{"menu_orders", `
		CREATE TABLE IF NOT EXISTS menu_orders (
			id TEXT PRIMARY KEY,
			week_start TEXT NOT NULL,
			day TEXT NOT NULL,
			option TEXT NOT NULL,
			user_name TEXT NOT NULL,
			count INT NOT NULL DEFAULT 0 CHECK (count >= 0),
			comments TEXT[] NOT NULL DEFAULT '{}',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (week_start, day, option, user_name)
		)
	`},
	{"menu_orders_week_idx", `
		CREATE INDEX IF NOT EXISTS menu_orders_week_idx
		ON menu_orders (week_start, user_name)
	`},

	// -------------------------------
	// ORDER SUMMARIES
	// -------------------------------
	{"order_summaries", `
		CREATE TABLE IF NOT EXISTS order_summaries (
			id TEXT PRIMARY KEY,
			week_start TEXT NOT NULL,
			user_name TEXT NOT NULL,
			summary JSONB NOT NULL,
			updated_by TEXT NOT NULL DEFAULT '',
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			UNIQUE (week_start, user_name)
		)
	`},

	// -------------------------------
	// CHANGE NOTIFICATIONS
	// -------------------------------
	// Every write is announced on <table>_changes so that all
	// instances see it, including writes made by other processes.
	{"notify_change", `
		CREATE OR REPLACE FUNCTION notify_change() RETURNS trigger AS $$
		DECLARE
			rec RECORD;
			week TEXT;
			who TEXT;
		BEGIN
			IF TG_OP = 'DELETE' THEN
				rec := OLD;
			ELSE
				rec := NEW;
			END IF;

			week := rec.week_start;
			IF TG_TABLE_NAME = 'weekly_menus' THEN
				who := '';
			ELSE
				who := rec.user_name;
			END IF;

			PERFORM pg_notify(
				TG_TABLE_NAME || '_changes',
				json_build_object(
					'table', TG_TABLE_NAME,
					'op', TG_OP,
					'week_start', week,
					'user_name', who
				)::text
			);
			RETURN NULL;
		END;
		$$ LANGUAGE plpgsql
	`},
	{"weekly_menus_notify", triggerSQL("weekly_menus")},
	{"menu_orders_notify", triggerSQL("menu_orders")},
	{"order_summaries_notify", triggerSQL("order_summaries")},
}

func triggerSQL(table string) string {
	return `
		DROP TRIGGER IF EXISTS ` + table + `_notify ON ` + table + `;
		CREATE TRIGGER ` + table + `_notify
		AFTER INSERT OR UPDATE OR DELETE ON ` + table + `
		FOR EACH ROW EXECUTE FUNCTION notify_change()
	`
}

package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"

	"menusemanal/internal/week"
)

type Config struct {
	Env         string
	Port        string
	Store       string // postgres | memory
	DatabaseURL string
	CORSOrigins []string

	JWTSecret         string
	AdminPasswordHash string

	Location       *time.Location
	CutoverEnabled bool
	CutoverDay     time.Weekday
	CutoverHour    int

	RefreshInterval time.Duration
	CachePath       string
	RosterFile      string

	SendgridAPIKey  string
	EmailFrom       string
	EmailRecipients []string
	SendDay         time.Weekday
	SendFromHour    int
	SendToHour      int

	// SchedulerEnabled runs the weekly e-mail inside the API process.
	SchedulerEnabled bool

	R2 R2Config
}

type R2Config struct {
	Endpoint      string
	AccessKey     string
	SecretKey     string
	Bucket        string
	PublicBaseURL string
}

func (c R2Config) Enabled() bool {
	return c.Endpoint != "" && c.Bucket != ""
}

func (c Config) Production() bool { return c.Env == "production" }

// Load reads .env (outside production) and the environment.
func Load() (*Config, error) {
	if os.Getenv("APP_ENV") != "production" {
		_ = godotenv.Load()
	}

	v := viper.New()
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("PORT", "8000")
	v.SetDefault("STORE", "postgres")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000,http://localhost:5173")
	v.SetDefault("TIMEZONE", "America/Argentina/Buenos_Aires")
	v.SetDefault("WEEK_CUTOVER_ENABLED", false)
	v.SetDefault("WEEK_CUTOVER_DAY", "friday")
	v.SetDefault("WEEK_CUTOVER_HOUR", 0)
	v.SetDefault("SUMMARY_REFRESH_INTERVAL", "60s")
	v.SetDefault("CACHE_PATH", "menusemanal-cache.db")
	v.SetDefault("EMAIL_FROM", "pedidos@localhost")
	v.SetDefault("SUMMARY_SEND_DAY", "friday")
	v.SetDefault("SUMMARY_SEND_FROM_HOUR", 15)
	v.SetDefault("SUMMARY_SEND_TO_HOUR", 17)
	v.SetDefault("SUMMARY_SCHEDULER_ENABLED", true)
	v.AutomaticEnv()

	return FromViper(v)
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) (*Config, error) {
	loc, err := time.LoadLocation(v.GetString("TIMEZONE"))
	if err != nil {
		return nil, errors.Wrap(err, "TIMEZONE")
	}

	cutoverDay, ok := week.ParseWeekday(v.GetString("WEEK_CUTOVER_DAY"))
	if !ok {
		return nil, errors.Errorf("WEEK_CUTOVER_DAY: unknown day %q", v.GetString("WEEK_CUTOVER_DAY"))
	}
	sendDay, ok := week.ParseWeekday(v.GetString("SUMMARY_SEND_DAY"))
	if !ok {
		return nil, errors.Errorf("SUMMARY_SEND_DAY: unknown day %q", v.GetString("SUMMARY_SEND_DAY"))
	}

	cfg := &Config{
		Env:               v.GetString("APP_ENV"),
		Port:              v.GetString("PORT"),
		Store:             strings.ToLower(v.GetString("STORE")),
		DatabaseURL:       v.GetString("DATABASE_URL"),
		CORSOrigins:       splitList(v.GetString("CORS_ORIGINS")),
		JWTSecret:         v.GetString("JWT_SECRET"),
		AdminPasswordHash: v.GetString("ADMIN_PASSWORD_HASH"),
		Location:          loc,
		CutoverEnabled:    v.GetBool("WEEK_CUTOVER_ENABLED"),
		CutoverDay:        cutoverDay,
		CutoverHour:       v.GetInt("WEEK_CUTOVER_HOUR"),
		RefreshInterval:   v.GetDuration("SUMMARY_REFRESH_INTERVAL"),
		CachePath:         v.GetString("CACHE_PATH"),
		RosterFile:        v.GetString("ROSTER_FILE"),
		SendgridAPIKey:    v.GetString("SENDGRID_API_KEY"),
		EmailFrom:         v.GetString("EMAIL_FROM"),
		EmailRecipients:   splitList(v.GetString("EMAIL_RECIPIENTS")),
		SendDay:           sendDay,
		SendFromHour:      v.GetInt("SUMMARY_SEND_FROM_HOUR"),
		SendToHour:        v.GetInt("SUMMARY_SEND_TO_HOUR"),
		SchedulerEnabled:  v.GetBool("SUMMARY_SCHEDULER_ENABLED"),
		R2: R2Config{
			Endpoint:      v.GetString("R2_ENDPOINT"),
			AccessKey:     v.GetString("R2_ACCESS_KEY"),
			SecretKey:     v.GetString("R2_SECRET_KEY"),
			Bucket:        v.GetString("R2_BUCKET_NAME"),
			PublicBaseURL: v.GetString("R2_PUBLIC_BASE_URL"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.JWTSecret == "" {
		missing = append(missing, "JWT_SECRET")
	}
	if c.Store == "postgres" && c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if len(missing) > 0 {
		return errors.Errorf("missing env vars: %s", strings.Join(missing, ", "))
	}

	if c.Store != "postgres" && c.Store != "memory" {
		return errors.Errorf("STORE must be postgres or memory, got %q", c.Store)
	}
	if c.CutoverHour < 0 || c.CutoverHour > 23 {
		return errors.New("WEEK_CUTOVER_HOUR must be 0-23")
	}
	if c.SendFromHour >= c.SendToHour {
		return errors.New("SUMMARY_SEND_FROM_HOUR must be before SUMMARY_SEND_TO_HOUR")
	}
	if c.RefreshInterval <= 0 {
		return errors.New("SUMMARY_REFRESH_INTERVAL must be positive")
	}
	return nil
}

// WeekPolicy is the single week-key policy shared by every component.
func (c *Config) WeekPolicy() week.Policy {
	return week.Policy{
		Location:       c.Location,
		CutoverEnabled: c.CutoverEnabled,
		CutoverDay:     c.CutoverDay,
		CutoverHour:    c.CutoverHour,
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

package order

import "time"

// Record is one user's counter for one option on one day of one week.
// (WeekKey, Day, Option, UserName) is unique. Comments belong to the
// (WeekKey, Day, UserName) triple and are repeated on every option row.
type Record struct {
	ID        string    `json:"id"`
	WeekKey   string    `json:"week_start"`
	Day       string    `json:"day"`
	Option    string    `json:"option"`
	UserName  string    `json:"user_name"`
	Count     int       `json:"count"`
	Comments  []string  `json:"comments"`
	UpdatedAt time.Time `json:"updated_at"`
}

type Key struct {
	WeekKey  string
	Day      string
	Option   string
	UserName string
}

func (r Record) Key() Key {
	return Key{WeekKey: r.WeekKey, Day: r.Day, Option: r.Option, UserName: r.UserName}
}

// Mutation is the body of an increment or decrement request.
type Mutation struct {
	Day    string `json:"day" binding:"required" validate:"required,max=32"`
	Option string `json:"option" binding:"required" validate:"required,max=200"`
}

type CommentInput struct {
	Day  string `json:"day" binding:"required" validate:"required,max=32"`
	Text string `json:"text" binding:"required" validate:"required,max=500"`
}

type OptionCount struct {
	Option string `json:"option"`
	Count  int    `json:"count"`
}

// UserDay is one user's view of one day: a counter per option plus the
// shared comment list.
type UserDay struct {
	Day      string        `json:"day"`
	Counts   []OptionCount `json:"counts"`
	Comments []string      `json:"comments"`
}

type UserWeek struct {
	WeekKey  string    `json:"week_start"`
	UserName string    `json:"user_name"`
	Days     []UserDay `json:"days"`
	Total    int       `json:"total"`
	Degraded bool      `json:"degraded,omitempty"`
}

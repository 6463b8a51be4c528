package summary

import (
	"regexp"
	"sort"

	"go.uber.org/zap"

	"menusemanal/internal/menu"
	"menusemanal/internal/order"
)

// anonymous is the author used for comments on rows with no user name.
const anonymous = "Usuario"

var annotated = regexp.MustCompile(`^(.+)\s\(([^)]+)\)$`)

type commentKey struct {
	text   string
	author string
}

// splitComment returns the (text, author) pair of a comment. A comment
// already written as "text (author)" keeps its own author.
func splitComment(comment, user string) commentKey {
	if m := annotated.FindStringSubmatch(comment); m != nil {
		return commentKey{text: m[1], author: m[2]}
	}
	if user == "" {
		user = anonymous
	}
	return commentKey{text: comment, author: user}
}

func (k commentKey) String() string {
	return k.text + " (" + k.author + ")"
}

type dayAcc struct {
	counts   map[string]int
	retired  []string
	comments []string
	seen     map[commentKey]bool
}

// Aggregate sums the week's records over the menu. Every menu option gets
// a counter, options missing from the menu are added when they have
// orders, and comments are attributed and deduplicated by (text, author).
// The result does not depend on record order except for comment order,
// which follows first occurrence.
func Aggregate(weekKey string, m menu.Canonical, records []order.Record) *Summary {
	acc := make(map[string]*dayAcc, len(menu.Days))
	get := func(day string) *dayAcc {
		a, ok := acc[day]
		if !ok {
			a = &dayAcc{
				counts: make(map[string]int),
				seen:   make(map[commentKey]bool),
			}
			acc[day] = a
		}
		return a
	}

	for _, day := range menu.Days {
		for _, opt := range m.Options(day) {
			get(day).counts[opt] += 0
		}
	}

	for _, rec := range records {
		if menu.DayIndex(rec.Day) < 0 {
			zap.L().Named("summary").Debug("ignoring order on unknown day",
				zap.String("day", rec.Day),
				zap.String("user", rec.UserName),
			)
			continue
		}
		a := get(rec.Day)

		if rec.Count > 0 {
			if _, ok := a.counts[rec.Option]; !ok {
				a.retired = append(a.retired, rec.Option)
			}
			a.counts[rec.Option] += rec.Count
		}

		for _, c := range rec.Comments {
			if c == "" {
				continue
			}
			k := splitComment(c, rec.UserName)
			if a.seen[k] {
				continue
			}
			a.seen[k] = true
			a.comments = append(a.comments, k.String())
		}
	}

	s := &Summary{WeekKey: weekKey, User: General, Days: []DaySummary{}}
	for _, day := range menu.Days {
		a, ok := acc[day]
		if !ok {
			continue
		}

		d := DaySummary{Day: day, Counts: []OptionCount{}, Comments: []string{}}
		listed := make(map[string]bool)
		for _, opt := range m.Options(day) {
			if listed[opt] {
				continue
			}
			listed[opt] = true
			d.Counts = append(d.Counts, OptionCount{Option: opt, Count: a.counts[opt]})
		}

		retired := append([]string(nil), a.retired...)
		sort.Strings(retired)
		for _, opt := range retired {
			d.Counts = append(d.Counts, OptionCount{Option: opt, Count: a.counts[opt], Retired: true})
		}

		d.Comments = append(d.Comments, a.comments...)
		s.Days = append(s.Days, d)
	}
	return s
}

package summary

import (
	"time"

	"menusemanal/internal/menu"
)

// General is the author recorded on the shared per-week snapshot.
const General = "general"

type OptionCount struct {
	Option string `json:"option"`
	Count  int    `json:"count"`
	// Retired marks an option that has orders but is not on the current
	// menu.
	Retired bool `json:"retired,omitempty"`
}

type DaySummary struct {
	Day      string        `json:"day"`
	Counts   []OptionCount `json:"counts"`
	Comments []string      `json:"comments"`
}

func (d DaySummary) Total() int {
	n := 0
	for _, c := range d.Counts {
		n += c.Count
	}
	return n
}

// Summary is the per-week aggregate. Days are always in Monday..Friday
// order.
type Summary struct {
	WeekKey   string       `json:"week_start"`
	User      string       `json:"user_name"`
	Days      []DaySummary `json:"days"`
	UpdatedAt time.Time    `json:"updated_at"`
	UpdatedBy string       `json:"updated_by,omitempty"`
}

func (s *Summary) Total() int {
	n := 0
	for _, d := range s.Days {
		n += d.Total()
	}
	return n
}

func (s *Summary) Day(name string) (DaySummary, bool) {
	for _, d := range s.Days {
		if d.Day == name {
			return d, true
		}
	}
	return DaySummary{}, false
}

// Count returns the aggregated count for one option, zero when absent.
func (s *Summary) Count(day, option string) int {
	d, ok := s.Day(day)
	if !ok {
		return 0
	}
	for _, c := range d.Counts {
		if c.Option == option {
			return c.Count
		}
	}
	return 0
}

// Filtered applies the display rule: options with no orders are hidden
// and days left with neither orders nor notes are dropped.
func (s *Summary) Filtered() *Summary {
	out := *s
	out.Days = make([]DaySummary, 0, len(s.Days))
	for _, d := range s.Days {
		counts := make([]OptionCount, 0, len(d.Counts))
		for _, c := range d.Counts {
			if c.Count > 0 {
				counts = append(counts, c)
			}
		}
		if len(counts) == 0 && len(d.Comments) == 0 {
			continue
		}
		out.Days = append(out.Days, DaySummary{
			Day:      d.Day,
			Counts:   counts,
			Comments: append([]string{}, d.Comments...),
		})
	}
	return &out
}

// Zeroed is the aggregate of an empty order set.
func Zeroed(weekKey string, m menu.Canonical) *Summary {
	return Aggregate(weekKey, m, nil)
}

package menu

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"
)

// Days are the canonical day keys in display order.
var Days = []string{"Lunes", "Martes", "Miércoles", "Jueves", "Viernes"}

// DayIndex returns the position of a canonical day, or -1.
func DayIndex(day string) int {
	for i, d := range Days {
		if d == day {
			return i
		}
	}
	return -1
}

// Canonical maps canonical day names to their option labels. Only days
// with at least one option are present.
type Canonical map[string][]string

// Options returns the labels for day, nil when the day has none.
func (c Canonical) Options(day string) []string {
	return c[day]
}

// Has reports whether option is offered on day.
func (c Canonical) Has(day, option string) bool {
	for _, o := range c[day] {
		if o == option {
			return true
		}
	}
	return false
}

func (c Canonical) Clone() Canonical {
	out := make(Canonical, len(c))
	for day, opts := range c {
		out[day] = append([]string(nil), opts...)
	}
	return out
}

// Fingerprint is the hex sha256 of the menu's JSON encoding. encoding/json
// sorts map keys, so equal content always yields the same fingerprint.
func Fingerprint(c Canonical) string {
	data, _ := json.Marshal(c)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// Default is served when no menu was ever uploaded.
func Default() Canonical {
	c := make(Canonical, len(Days))
	for _, day := range Days {
		c[day] = []string{"Opción 1", "Opción 2", "Opción 3"}
	}
	return c
}

// WeeklyMenu is one uploaded menu row. The latest by UpdatedAt is in
// effect, whatever its WeekKey says.
type WeeklyMenu struct {
	ID        string    `json:"id"`
	Data      Canonical `json:"menu_data"`
	WeekKey   string    `json:"week_start"`
	UpdatedAt time.Time `json:"updated_at"`
}

package menu

import (
	"sort"
	"strings"
	"unicode"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var ErrInvalidMenu = errors.New("menu has no day with at least one option")

// dayAliases is keyed by the upper-cased, accent-folded spelling.
var dayAliases = map[string]string{
	"LUNES":     "Lunes",
	"LUN":       "Lunes",
	"MARTES":    "Martes",
	"MAR":       "Martes",
	"MIERCOLES": "Miércoles",
	"MIE":       "Miércoles",
	"JUEVES":    "Jueves",
	"JUE":       "Jueves",
	"VIERNES":   "Viernes",
	"VIE":       "Viernes",
}

// FoldKey upper-cases s and strips diacritics: "miércoles " -> "MIERCOLES".
func FoldKey(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	folded, _, err := transform.String(t, strings.TrimSpace(s))
	if err != nil {
		folded = strings.TrimSpace(s)
	}
	return strings.ToUpper(folded)
}

// CanonicalDay maps any recognised spelling to its canonical day name.
func CanonicalDay(label string) (string, bool) {
	day, ok := dayAliases[FoldKey(label)]
	return day, ok
}

// Normalize maps an arbitrary day->options mapping onto the canonical days.
// Unrecognised keys are dropped with a warning. Options are trimmed and
// blanks removed; days left without options are omitted. Two raw keys that
// fold to the same day are concatenated in sorted raw-key order, so the
// result does not depend on map iteration order.
func Normalize(raw map[string][]string) (Canonical, error) {
	log := zap.L().Named("menu")

	keys := make([]string, 0, len(raw))
	for k := range raw {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make(Canonical)
	for _, key := range keys {
		day, ok := CanonicalDay(key)
		if !ok {
			log.Warn("dropping unrecognised menu day", zap.String("day", key))
			continue
		}

		for _, opt := range raw[key] {
			if opt = strings.TrimSpace(opt); opt != "" {
				out[day] = append(out[day], opt)
			}
		}
	}

	if len(out) == 0 {
		return nil, ErrInvalidMenu
	}
	return out, nil
}

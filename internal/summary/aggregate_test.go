package summary

import (
	"math/rand"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"menusemanal/internal/menu"
	"menusemanal/internal/order"
)

const testWeek = "2024-05-13"

func rec(user, day, option string, count int, comments ...string) order.Record {
	return order.Record{
		WeekKey:  testWeek,
		Day:      day,
		Option:   option,
		UserName: user,
		Count:    count,
		Comments: comments,
	}
}

func TestAggregate_ThreeUsers(t *testing.T) {
	m := menu.Default()
	records := []order.Record{
		rec("user1", "Lunes", "Opción 1", 1),
		rec("user2", "Lunes", "Opción 1", 2),
		rec("user3", "Martes", "Opción 2", 1),
	}

	s := Aggregate(testWeek, m, records)

	assert.Equal(t, 3, s.Count("Lunes", "Opción 1"))
	assert.Equal(t, 1, s.Count("Martes", "Opción 2"))
	assert.Equal(t, 0, s.Count("Lunes", "Opción 2"))
	assert.Equal(t, 4, s.Total())

	f := s.Filtered()
	want := []DaySummary{
		{Day: "Lunes", Counts: []OptionCount{{Option: "Opción 1", Count: 3}}, Comments: []string{}},
		{Day: "Martes", Counts: []OptionCount{{Option: "Opción 2", Count: 1}}, Comments: []string{}},
	}
	if diff := cmp.Diff(want, f.Days); diff != "" {
		t.Errorf("filtered days mismatch (-want +got):\n%s", diff)
	}
}

func TestAggregate_OrderIndependent(t *testing.T) {
	m := menu.Canonical{
		"Lunes":     {"A", "B"},
		"Miércoles": {"C"},
	}
	records := []order.Record{
		rec("ana", "Lunes", "A", 2, "sin sal"),
		rec("ana", "Lunes", "B", 1, "sin sal"),
		rec("beto", "Lunes", "A", 1),
		rec("beto", "Miércoles", "C", 3, "tarde"),
		rec("caro", "Miércoles", "Z", 1),
		rec("caro", "Miércoles", "Y", 2),
		rec("dani", "Viernes", "Q", 1),
	}
	base := Aggregate(testWeek, m, records)

	rng := rand.New(rand.NewSource(7))
	for i := 0; i < 20; i++ {
		shuffled := append([]order.Record(nil), records...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := Aggregate(testWeek, m, shuffled)
		if diff := cmp.Diff(base, got); diff != "" {
			t.Fatalf("aggregate depends on order (-base +got):\n%s", diff)
		}
	}
}

func TestAggregate_CommentsPerAuthor(t *testing.T) {
	s := Aggregate(testWeek, menu.Default(), []order.Record{
		rec("user1", "Lunes", "Opción 1", 1, "sin sal"),
		rec("user2", "Lunes", "Opción 1", 1, "sin sal"),
	})

	d, ok := s.Day("Lunes")
	require.True(t, ok)
	assert.Equal(t, []string{"sin sal (user1)", "sin sal (user2)"}, d.Comments)
}

func TestAggregate_CommentDedup(t *testing.T) {
	s := Aggregate(testWeek, menu.Default(), []order.Record{
		// same user, comment repeated on every option row
		rec("ana", "Lunes", "Opción 1", 1, "sin sal", "poco aceite"),
		rec("ana", "Lunes", "Opción 2", 1, "sin sal", "poco aceite"),
		// already annotated, equal to ana's synthesized form
		rec("beto", "Lunes", "Opción 3", 1, "sin sal (ana)"),
		rec("", "Lunes", "Opción 3", 0, "frío"),
	})

	d, _ := s.Day("Lunes")
	assert.Equal(t, []string{"sin sal (ana)", "poco aceite (ana)", "frío (Usuario)"}, d.Comments)
}

func TestAggregate_RetiredOptions(t *testing.T) {
	m := menu.Canonical{"Lunes": {"Nuevo"}}
	s := Aggregate(testWeek, m, []order.Record{
		rec("ana", "Lunes", "Viejo", 2),
		rec("beto", "Lunes", "Nuevo", 1),
		rec("caro", "Lunes", "Borrado", 0),
	})

	d, _ := s.Day("Lunes")
	assert.Equal(t, []OptionCount{
		{Option: "Nuevo", Count: 1},
		{Option: "Viejo", Count: 2, Retired: true},
	}, d.Counts)
}

func TestAggregate_UnknownDayIgnored(t *testing.T) {
	s := Aggregate(testWeek, menu.Default(), []order.Record{
		rec("ana", "Sábado", "Opción 1", 4),
	})
	assert.Equal(t, 0, s.Total())
	assert.Len(t, s.Days, len(menu.Days))
}

func TestAggregate_DayOrder(t *testing.T) {
	s := Aggregate(testWeek, menu.Canonical{"Viernes": {"A"}, "Lunes": {"B"}}, []order.Record{
		rec("ana", "Miércoles", "C", 1),
	})

	var days []string
	for _, d := range s.Days {
		days = append(days, d.Day)
	}
	assert.Equal(t, []string{"Lunes", "Miércoles", "Viernes"}, days)
	assert.Equal(t, General, s.User)
}

func TestAggregate_DuplicateMenuLabelsCollapse(t *testing.T) {
	s := Aggregate(testWeek, menu.Canonical{"Lunes": {"A", "A"}}, []order.Record{
		rec("ana", "Lunes", "A", 2),
	})
	d, _ := s.Day("Lunes")
	assert.Equal(t, []OptionCount{{Option: "A", Count: 2}}, d.Counts)
}

func TestZeroed(t *testing.T) {
	s := Zeroed(testWeek, menu.Default())
	assert.Equal(t, 0, s.Total())
	assert.Empty(t, s.Filtered().Days)
}

func TestFormatMessage(t *testing.T) {
	s := Aggregate(testWeek, menu.Default(), []order.Record{
		rec("user1", "Lunes", "Opción 1", 1, "sin sal"),
		rec("user2", "Lunes", "Opción 1", 2),
		rec("user3", "Martes", "Opción 2", 1),
	})

	got := FormatMessage(s, time.Date(2024, 5, 17, 16, 0, 0, 0, time.UTC))
	want := "► Resumen de Pedidos\n\n" +
		"► Fecha: 17/05/24\n\n" +
		"\n\n" +
		"► LUNES\n  • Opción 1: 3\n  ► Total del día: 3\n\n  ► Notas especiales:\n    • sin sal (user1)\n\n" +
		"► MARTES\n  • Opción 2: 1\n  ► Total del día: 1\n\n" +
		"\n\n" +
		"► TOTAL GENERAL: 4 pedidos"
	assert.Equal(t, want, got)
}

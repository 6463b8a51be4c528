package notify

import "time"

// Window is the weekly slot in which the scheduled e-mail may go out:
// Day, from FromHour inclusive to ToHour exclusive.
type Window struct {
	Day      time.Weekday
	FromHour int
	ToHour   int
}

func DefaultWindow() Window {
	return Window{Day: time.Friday, FromHour: 15, ToHour: 17}
}

func (w Window) Contains(t time.Time) bool {
	return t.Weekday() == w.Day && t.Hour() >= w.FromHour && t.Hour() < w.ToHour
}

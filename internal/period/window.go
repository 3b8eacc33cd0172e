package period

import (
	"fmt"
	"time"
)

// Supported window names
const (
	WindowToday   = "today"
	WindowWeek    = "week"
	WindowMonth   = "month"
	WindowQuarter = "quarter"
	WindowYear    = "year"
	WindowAll     = "all"
)

const dateLayout = "2006-01-02"

// Window is a named calendar interval resolved against a reference time.
// From/To are inclusive YYYY-MM-DD bounds; empty means unbounded on that side.
// Boundaries are deterministic functions of the reference time, never stored.
type Window struct {
	Name string
	From string
	To   string
}

// Contains reports whether a calendar date falls inside the window
func (w Window) Contains(date string) bool {
	if w.From != "" && date < w.From {
		return false
	}
	if w.To != "" && date > w.To {
		return false
	}
	return true
}

// ResolveWindow computes the date bounds of a named window against now.
// week is the trailing 7 days; month, quarter and year are the current
// calendar periods; all is unbounded.
func ResolveWindow(name string, now time.Time) (Window, error) {
	today := now.Format(dateLayout)

	switch name {
	case WindowToday:
		return Window{Name: name, From: today, To: today}, nil
	case WindowWeek:
		return Window{Name: name, From: now.AddDate(0, 0, -7).Format(dateLayout), To: today}, nil
	case WindowMonth:
		first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
		return Window{Name: name, From: first.Format(dateLayout), To: today}, nil
	case WindowQuarter:
		quarterMonth := time.Month(((int(now.Month())-1)/3)*3 + 1)
		first := time.Date(now.Year(), quarterMonth, 1, 0, 0, 0, 0, now.Location())
		return Window{Name: name, From: first.Format(dateLayout), To: today}, nil
	case WindowYear:
		first := time.Date(now.Year(), time.January, 1, 0, 0, 0, 0, now.Location())
		return Window{Name: name, From: first.Format(dateLayout), To: today}, nil
	case WindowAll:
		return Window{Name: name}, nil
	default:
		return Window{}, fmt.Errorf("unknown period window %q", name)
	}
}

// WindowNames lists every supported window in reporting order
func WindowNames() []string {
	return []string{WindowToday, WindowWeek, WindowMonth, WindowQuarter, WindowYear, WindowAll}
}

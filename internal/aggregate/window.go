package aggregate

import "time"

// Window selects a relative or unbounded time range for a view.
type Window string

const (
	Last12Hours Window = "last_12_hours"
	Last24Hours Window = "last_24_hours"
	Last48Hours Window = "last_48_hours"
	Last7Days   Window = "last_7_days"
	AllTime     Window = "all_time"
)

// ParseWindow maps a selector value onto a known window. Unknown values
// fall back to all-time rather than erroring.
func ParseWindow(value string) Window {
	switch Window(value) {
	case Last12Hours, Last24Hours, Last48Hours, Last7Days:
		return Window(value)
	default:
		return AllTime
	}
}

// Duration returns the window length, or zero for the unbounded window.
func (w Window) Duration() time.Duration {
	switch w {
	case Last12Hours:
		return 12 * time.Hour
	case Last24Hours:
		return 24 * time.Hour
	case Last48Hours:
		return 48 * time.Hour
	case Last7Days:
		return 7 * 24 * time.Hour
	default:
		return 0
	}
}

// Bounded reports whether the window has a lower bound.
func (w Window) Bounded() bool {
	return w.Duration() > 0
}

func (w Window) String() string {
	return string(w)
}

// Windows lists every supported selector.
func Windows() []Window {
	return []Window{Last12Hours, Last24Hours, Last48Hours, Last7Days, AllTime}
}

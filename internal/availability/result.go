package availability

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// Window is a contiguous stretch of recorded data
type Window struct {
	StartUTC   time.Time `json:"startUtc"`
	EndUTC     time.Time `json:"endUtc"`
	StartLocal time.Time `json:"startLocal"`
	EndLocal   time.Time `json:"endLocal"`
	Bins       int       `json:"bins"`
	Rows       int64     `json:"rows"`
}

// Result holds availability windows grouped by local-timezone day
type Result struct {
	days map[string][]Window
	loc  *time.Location
}

// Len returns the number of days with data
func (r *Result) Len() int {
	return len(r.days)
}

// Days returns the sorted list of dates ("2006-01-02") with data
func (r *Result) Days() []string {
	days := make([]string, 0, len(r.days))
	for day := range r.days {
		days = append(days, day)
	}
	sort.Strings(days)
	return days
}

// Windows returns the windows recorded on a given day
func (r *Result) Windows(day string) []Window {
	return r.days[day]
}

// TotalRows returns the total row count across all windows
func (r *Result) TotalRows() int64 {
	var total int64
	for _, windows := range r.days {
		for _, w := range windows {
			total += w.Rows
		}
	}
	return total
}

// String renders a month -> day -> window text tree for terminal display
func (r *Result) String() string {
	if len(r.days) == 0 {
		return "No data found in the specified time range."
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Data Availability (%s)\n", r.loc.String())
	b.WriteString(strings.Repeat("=", 40) + "\n")

	// Group days by month
	months := make(map[string][]string)
	for _, day := range r.Days() {
		month := day[:7] // "2025-01"
		months[month] = append(months[month], day)
	}
	monthKeys := make([]string, 0, len(months))
	for month := range months {
		monthKeys = append(monthKeys, month)
	}
	sort.Strings(monthKeys)

	for _, month := range monthKeys {
		days := months[month]
		var monthRows int64
		for _, day := range days {
			for _, w := range r.days[day] {
				monthRows += w.Rows
			}
		}

		monthName := month
		if t, err := time.Parse("2006-01", month); err == nil {
			monthName = t.Format("January 2006")
		}
		fmt.Fprintf(&b, "\n%s (%d days, %d rows)\n", monthName, len(days), monthRows)

		for _, day := range days {
			windows := r.days[day]
			var dayRows int64
			for _, w := range windows {
				dayRows += w.Rows
			}
			plural := "s"
			if len(windows) == 1 {
				plural = ""
			}
			fmt.Fprintf(&b, "  Day %s (%d window%s, %d rows)\n", day[8:], len(windows), plural, dayRows)

			for _, w := range windows {
				fmt.Fprintf(&b, "    %s -> %s (%d rows)\n",
					w.StartLocal.Format("15:04"),
					w.EndLocal.Format("15:04"),
					w.Rows)
			}
		}
	}

	b.WriteString("\n" + strings.Repeat("=", 40) + "\n")
	fmt.Fprintf(&b, "Total: %d days, %d rows", len(r.days), r.TotalRows())
	return b.String()
}

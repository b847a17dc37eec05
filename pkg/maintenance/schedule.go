package maintenance

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MonthlyResetSchedule fires at midnight on the first day of each month.
const MonthlyResetSchedule = "0 0 1 * *"

// DailySchedule returns the cron expression for a daily run at hour.
func DailySchedule(hour int) string {
	return fmt.Sprintf("0 %d * * *", hour)
}

// NextExecution projects the next firing of expr after now, in now's
// location. Only the two schedules this package registers are understood:
// MonthlyResetSchedule and DailySchedule(h). For any other expression it
// returns nil and a description instead.
func NextExecution(expr string, now time.Time) (*time.Time, string) {
	if expr == MonthlyResetSchedule {
		next := time.Date(now.Year(), now.Month()+1, 1, 0, 0, 0, 0, now.Location())
		return &next, "monthly on day 1 at 00:00"
	}

	if hour, ok := parseDaily(expr); ok {
		next := time.Date(now.Year(), now.Month(), now.Day(), hour, 0, 0, 0, now.Location())
		if !next.After(now) {
			next = next.AddDate(0, 0, 1)
		}
		return &next, fmt.Sprintf("daily at %02d:00", hour)
	}

	return nil, fmt.Sprintf("custom schedule %q", expr)
}

// parseDaily matches "0 H * * *" with H in [0, 23].
func parseDaily(expr string) (int, bool) {
	fields := strings.Fields(expr)
	if len(fields) != 5 || fields[0] != "0" || fields[2] != "*" || fields[3] != "*" || fields[4] != "*" {
		return 0, false
	}

	hour, err := strconv.Atoi(fields[1])
	if err != nil || hour < MinCleanupHour || hour > MaxCleanupHour {
		return 0, false
	}
	return hour, true
}

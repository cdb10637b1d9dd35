package curve

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/meenmo/fxcurve/calendar"
	"github.com/meenmo/fxcurve/utils"
)

// resolveTenorDate anchors a tenor code like "1W", "3M", "10Y" to the spot
// date. D and W tenors add calendar days. M and Y tenors add months with the
// End-to-End rule (a spot on the last calendar day of its month targets the
// last calendar day of the target month) followed by Modified Following.
func resolveTenorDate(tenor string, spot time.Time, cal calendar.Calendar) (time.Time, error) {
	code := strings.TrimSpace(strings.ToUpper(tenor))
	if len(code) < 2 {
		return time.Time{}, fmt.Errorf("tenor %q: too short", tenor)
	}

	n, err := strconv.Atoi(code[:len(code)-1])
	if err != nil {
		return time.Time{}, fmt.Errorf("tenor %q: %w", tenor, err)
	}
	if n <= 0 {
		return time.Time{}, fmt.Errorf("tenor %q: non-positive count", tenor)
	}

	switch code[len(code)-1] {
	case 'D':
		return spot.AddDate(0, 0, n), nil
	case 'W':
		return spot.AddDate(0, 0, 7*n), nil
	case 'M':
		return addMonthsRolled(spot, n, cal), nil
	case 'Y':
		return addMonthsRolled(spot, 12*n, cal), nil
	default:
		return time.Time{}, fmt.Errorf("tenor %q: unknown unit", tenor)
	}
}

func addMonthsRolled(spot time.Time, months int, cal calendar.Calendar) time.Time {
	var target time.Time
	if calendar.IsLastCalendarDay(spot) {
		target = calendar.LastCalendarDayOfMonth(utils.AddMonths(spot, months))
	} else {
		target = utils.AddMonths(spot, months)
	}
	return cal.Adjust(target)
}

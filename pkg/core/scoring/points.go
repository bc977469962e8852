package scoring

import "fmt"

// Reference for converting development points to estimated time:
// 15 points = 10 business days (two weeks).
const (
	referencePoints = 15.0
	referenceDays   = 10.0
	daysPerWeek     = 5.0
)

// PointsToDays converts development points to estimated business days.
func PointsToDays(points float64) float64 {
	if points <= 0 {
		return 0
	}
	return points / referencePoints * referenceDays
}

// EstimatedTimeLabel renders a point count as a short time estimate,
// in days below one working week and in weeks above it.
func EstimatedTimeLabel(points float64) string {
	if points <= 0 {
		return "—"
	}
	days := PointsToDays(points)
	if days < daysPerWeek {
		return fmt.Sprintf("%.1f days", days)
	}
	return fmt.Sprintf("%.1f weeks", days/daysPerWeek)
}

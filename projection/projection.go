// Package projection turns the day's sale events into an hourly series of
// actual and predicted cumulative sales.
package projection

import (
	"math"
	"sort"
	"time"

	"stall/models"
)

const (
	labelLayout = "15:04"
	matchRadius = 30 * time.Minute
)

// Project builds the hourly series for the sales window on now's day.
//
// Past buckets carry the cumulative index of the first event within 30
// minutes of the bucket. Future buckets extrapolate the pace measured since
// the window opened. A point for the current minute holding the total is
// added unless a bucket already has that label.
func Project(events []models.SaleEvent, now time.Time, w models.SalesWindow) []models.ProjectionPoint {
	if len(events) == 0 {
		return nil
	}

	start, end := w.Bounds(now)
	if now.Before(start) {
		return nil
	}

	hours := int(math.Ceil(end.Sub(start).Hours()))
	rate := Rate(len(events), now.Sub(start))

	// A window that ends before it starts has no buckets, only the
	// current-minute point.
	points := make([]models.ProjectionPoint, 0, max(hours, 0)+2)
	for i := 0; i <= hours; i++ {
		timePoint := start.Add(time.Duration(i) * time.Hour)
		point := models.ProjectionPoint{Time: timePoint.Format(labelLayout)}

		if !timePoint.After(now) {
			if idx := nearest(events, timePoint); idx >= 0 {
				point.Actual = intPtr(idx + 1)
			} else if i == 0 {
				point.Actual = intPtr(0)
			}
		} else {
			point.Predicted = intPtr(int(math.Round(rate * float64(i))))
		}
		points = append(points, point)
	}

	nowLabel := now.Format(labelLayout)
	if !hasLabel(points, nowLabel) {
		points = append(points, models.ProjectionPoint{Time: nowLabel, Actual: intPtr(len(events))})
	}

	sort.SliceStable(points, func(i, j int) bool { return points[i].Time < points[j].Time })
	return points
}

// Rate is sales per hour over elapsed. Non-positive elapsed yields 0.
func Rate(count int, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(count) / elapsed.Hours()
}

// FinalPrediction is the predicted value of the last point, or total when
// that point has no prediction.
func FinalPrediction(points []models.ProjectionPoint, total int) int {
	if len(points) == 0 {
		return total
	}
	last := points[len(points)-1]
	if last.Predicted == nil {
		return total
	}
	return *last.Predicted
}

// AchievementRate is count as a percentage of target, 0 when target <= 0.
func AchievementRate(count, target int) float64 {
	if target <= 0 {
		return 0
	}
	return 100 * float64(count) / float64(target)
}

// Canonical collapses points sharing a label, keeping the last one.
func Canonical(points []models.ProjectionPoint) []models.ProjectionPoint {
	out := make([]models.ProjectionPoint, 0, len(points))
	seen := make(map[string]int, len(points))
	for _, p := range points {
		if i, ok := seen[p.Time]; ok {
			out[i] = p
			continue
		}
		seen[p.Time] = len(out)
		out = append(out, p)
	}
	return out
}

// nearest returns the index of the first event within matchRadius of t, or -1.
func nearest(events []models.SaleEvent, t time.Time) int {
	for i, e := range events {
		if e.Timestamp.IsZero() {
			continue
		}
		d := e.Timestamp.Sub(t)
		if d < 0 {
			d = -d
		}
		if d < matchRadius {
			return i
		}
	}
	return -1
}

func hasLabel(points []models.ProjectionPoint, label string) bool {
	for _, p := range points {
		if p.Time == label {
			return true
		}
	}
	return false
}

func intPtr(v int) *int { return &v }

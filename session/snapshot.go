package session

import (
	"time"

	"stall/models"
	"stall/projection"
)

// Snapshot is what the dashboard shows at one instant.
type Snapshot struct {
	Now                      time.Time                `json:"now"`
	Configured               bool                     `json:"configured"`
	Window                   models.SalesWindow       `json:"window"`
	TotalSales               int                      `json:"totalSales"`
	TargetSales              int                      `json:"targetSales"`
	AchievementRate          float64                  `json:"achievementRate"`
	FinalPrediction          int                      `json:"finalPrediction"`
	PredictedAchievementRate float64                  `json:"predictedAchievementRate"`
	Points                   []models.ProjectionPoint `json:"points"`
	Items                    []ItemProgress           `json:"items"`
	History                  []models.SaleEvent       `json:"history"`
}

type ItemProgress struct {
	models.Item
	AchievementRate float64 `json:"achievementRate"`
}

// Snapshot projects the current history. Target is the sum of item targets.
func (m *Manager) Snapshot(now time.Time) Snapshot {
	m.mu.RLock()
	events := append([]models.SaleEvent(nil), m.events...)
	items := append([]models.Item(nil), m.settings.Items...)
	window := m.settings.Window
	configured := m.configured
	m.mu.RUnlock()

	now = now.In(m.loc)
	total := len(events)
	points := projection.Project(events, now, window)
	final := projection.FinalPrediction(points, total)

	target := 0
	progress := make([]ItemProgress, 0, len(items))
	for _, it := range items {
		target += it.TargetQuantity
		progress = append(progress, ItemProgress{
			Item:            it,
			AchievementRate: projection.AchievementRate(it.SoldQuantity, it.TargetQuantity),
		})
	}

	return Snapshot{
		Now:                      now,
		Configured:               configured,
		Window:                   window,
		TotalSales:               total,
		TargetSales:              target,
		AchievementRate:          projection.AchievementRate(total, target),
		FinalPrediction:          final,
		PredictedAchievementRate: projection.AchievementRate(final, target),
		Points:                   points,
		Items:                    progress,
		History:                  events,
	}
}

// Now is the manager's clock in its location.
func (m *Manager) Now() time.Time {
	return m.clock().In(m.loc)
}

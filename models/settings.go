package models

import (
	"fmt"
	"time"
)

// Connection holds the ledger gateway settings entered on the dashboard.
type Connection struct {
	SheetURL    string `json:"sheetUrl"`
	SheetName   string `json:"sheetName"`
	ScriptURL   string `json:"scriptUrl"`
	ScriptToken string `json:"scriptToken"`
}

// Missing reports which connection fields are empty, in display order.
func (c Connection) Missing() []string {
	var missing []string
	if c.SheetURL == "" {
		missing = append(missing, "sheetUrl")
	}
	if c.SheetName == "" {
		missing = append(missing, "sheetName")
	}
	if c.ScriptURL == "" {
		missing = append(missing, "scriptUrl")
	}
	if c.ScriptToken == "" {
		missing = append(missing, "scriptToken")
	}
	return missing
}

// SalesWindow is a time-of-day range. It is not bound to a date.
type SalesWindow struct {
	StartHour   int `json:"startHour"`
	StartMinute int `json:"startMinute"`
	EndHour     int `json:"endHour"`
	EndMinute   int `json:"endMinute"`
}

func DefaultWindow() SalesWindow {
	return SalesWindow{StartHour: 10, StartMinute: 0, EndHour: 15, EndMinute: 0}
}

// Validate checks field ranges only. Start after end is accepted.
func (w SalesWindow) Validate() error {
	if w.StartHour < 0 || w.StartHour > 23 || w.EndHour < 0 || w.EndHour > 23 {
		return fmt.Errorf("hour must be between 0 and 23")
	}
	if w.StartMinute < 0 || w.StartMinute > 59 || w.EndMinute < 0 || w.EndMinute > 59 {
		return fmt.Errorf("minute must be between 0 and 59")
	}
	return nil
}

// Bounds resolves the window against the calendar day of now, in now's location.
func (w SalesWindow) Bounds(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	loc := now.Location()
	start := time.Date(y, m, d, w.StartHour, w.StartMinute, 0, 0, loc)
	end := time.Date(y, m, d, w.EndHour, w.EndMinute, 0, 0, loc)
	return start, end
}

// Settings is everything persisted in the local configuration store.
type Settings struct {
	Connection Connection  `json:"dataUrls"`
	Items      []Item      `json:"items"`
	Window     SalesWindow `json:"salesWindow"`
}

package models

// ProjectionPoint is one point of the hourly sales series.
type ProjectionPoint struct {
	Time      string `json:"time"`
	Actual    *int   `json:"actual,omitempty"`
	Predicted *int   `json:"predicted,omitempty"`
}

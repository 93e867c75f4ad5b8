package dto

// StatusCounts breaks the visible complaint set down by lifecycle state.
type StatusCounts struct {
	Total        int `json:"total" db:"total"`
	Pending      int `json:"pending" db:"pending"`
	InProgress   int `json:"in_progress" db:"in_progress"`
	Resolved     int `json:"resolved" db:"resolved"`
	Closed       int `json:"closed" db:"closed"`
	HighPriority int `json:"high_priority" db:"high_priority"`
}

// ComplaintStats is the role-scoped dashboard payload.
type ComplaintStats struct {
	StatusCounts
	AvgResolutionHours *float64       `json:"avg_resolution_hours,omitempty"`
	ByCategory         map[string]int `json:"complaints_by_category"`
	ByMonth            map[string]int `json:"complaints_by_month"`
}

// CategoryCount is one aggregation bucket.
type CategoryCount struct {
	Name  string `db:"name" json:"name"`
	Count int    `db:"count" json:"count"`
}

// MonthCount is one per-month aggregation bucket, keyed YYYY-MM.
type MonthCount struct {
	Month string `db:"month" json:"month"`
	Count int    `db:"count" json:"count"`
}

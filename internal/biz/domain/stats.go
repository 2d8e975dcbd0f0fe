package domain

import "time"

// GlobalStats is the aggregate counter record shown on the dashboard.
// Like the per-group stats, both message counters rise together and
// only on a match.
type GlobalStats struct {
	TotalMessages    int       `json:"totalMessages"`
	FilteredMessages int       `json:"filteredMessages"`
	MonitoredGroups  int       `json:"monitoredGroups"`
	ActiveToday      int       `json:"activeToday"`
	LastUpdate       time.Time `json:"lastUpdate"`
}

package domain

import "time"

// EmailAccount is one email alert sink. Mail is sent from and to the
// same account; each sink authenticates as itself.
type EmailAccount struct {
	User string `json:"user"`
	Pass string `json:"pass"`
}

// GlobalConfig holds the process-wide monitoring settings. Exactly one
// record exists and saves replace it atomically; every inbound message
// evaluation reads the latest saved state.
type GlobalConfig struct {
	Active           bool           `json:"botActive"`
	ReadOnly         bool           `json:"readOnly"`
	Keywords         []string       `json:"keywords"`
	MinFare          int            `json:"minFare"`
	MonitorAllGroups bool           `json:"monitorAllGroups"`
	ScanIntervalMs   int            `json:"scanInterval"`
	MaxLogsPerGroup  int            `json:"maxLogsPerGroup"` // 0 means unbounded
	Emails           []EmailAccount `json:"emails"`
}

// DefaultGlobalConfig returns the configuration used when no prior
// state exists on disk.
func DefaultGlobalConfig() *GlobalConfig {
	return &GlobalConfig{
		Active:           true,
		ReadOnly:         true,
		Keywords:         []string{"fare", "£", "tarifa", "precio"},
		MinFare:          100,
		MonitorAllGroups: false,
		ScanIntervalMs:   60000,
		MaxLogsPerGroup:  1000,
		Emails:           []EmailAccount{},
	}
}

// ScanInterval returns the group scan interval as a duration.
func (c *GlobalConfig) ScanInterval() time.Duration {
	return time.Duration(c.ScanIntervalMs) * time.Millisecond
}

// GroupStats is the per-group counter state. Both counters move
// together, and only on a keyword match: non-matching traffic in a
// monitored group is not counted at all.
type GroupStats struct {
	TotalMessages    int        `json:"totalMessages"`
	FilteredMessages int        `json:"filteredMessages"`
	LastActivity     *time.Time `json:"lastActivity"`
}

// MonitoredGroup is a chat group explicitly opted into keyword
// filtering, with optional per-group overrides. At most one entry
// exists per group id.
type MonitoredGroup struct {
	ID             string     `json:"id"`
	Name           string     `json:"name"`
	Added          time.Time  `json:"added"`
	CustomKeywords []string   `json:"customKeywords"`
	MinFare        *int       `json:"minFare"` // nil falls back to the global threshold
	Enabled        bool       `json:"enabled"`
	Stats          GroupStats `json:"stats"`
}

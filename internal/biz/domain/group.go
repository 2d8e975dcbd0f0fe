package domain

import "time"

// GroupInfo is one entry in the ephemeral registry snapshot rebuilt
// from the messaging client's live chat list. It is never persisted;
// it only feeds new-group detection and dashboard search.
type GroupInfo struct {
	ID           string     `json:"id"`
	Name         string     `json:"name"`
	Participants int        `json:"participants"`
	Timestamp    *time.Time `json:"timestamp"`
}

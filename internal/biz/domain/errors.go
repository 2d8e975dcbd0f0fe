package domain

import "errors"

// Structured failures surfaced to dashboard callers. Failures while
// processing a single inbound message are logged and dropped locally,
// never surfaced here.
var (
	ErrAlreadyMonitored = errors.New("group is already monitored")
	ErrGroupNotFound    = errors.New("group not found")
	ErrUpstreamDown     = errors.New("messaging client is not connected")
)

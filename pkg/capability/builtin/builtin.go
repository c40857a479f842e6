// Package builtin provides the capabilities shipped with loom.
package builtin

const (
	CurrentTimeName   = "current_time"
	WebFetchName      = "web_fetch"
	SearchHistoryName = "search_history"
)

package model

import "time"

// HubStats is a diagnostics snapshot of the connection registry.
type HubStats struct {
	TotalConnections int           `json:"total_connections"`
	Organizers       int           `json:"organizers"`
	Participants     int           `json:"participants"`
	Uptime           time.Duration `json:"uptime"`
}

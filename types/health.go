package types

import "time"

// HealthStatus represents the possible states of a component.
type HealthStatus string

const (
	HealthStatusUp       HealthStatus = "up"
	HealthStatusDown     HealthStatus = "down"
	HealthStatusDegraded HealthStatus = "degraded"
)

// HealthCheck is the response body for health endpoints.
type HealthCheck struct {
	Status     HealthStatus            `json:"status"`
	Version    string                  `json:"version"`
	Uptime     string                  `json:"uptime"`
	Timestamp  time.Time               `json:"timestamp"`
	Components map[string]HealthStatus `json:"components,omitempty"`
}

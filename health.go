package duplex

import "context"

// Status is the verdict of a health probe.
type Status string

const (
	StatusHealthy   Status = "healthy"
	StatusUnhealthy Status = "unhealthy"
)

// Health is the result of CheckHealth.
type Health struct {
	Status  Status
	Details string
}

// CheckHealth issues a minimal round-trip query against the main connection
// and converts the outcome into a verdict. It never returns an error: probe
// failures become an unhealthy verdict carrying the captured message.
func (db *DB) CheckHealth(ctx context.Context) Health {
	if db.state.get() == closedState {
		return Health{Status: StatusUnhealthy, Details: ErrClosed.Error()}
	}
	if err := db.main.Ping(ctx); err != nil {
		details := err.Error()
		if details == "" {
			details = "unknown error"
		}
		db.log.Report(LogEvent{
			Level:   LogWarn,
			Message: "health probe failed",
			Fields:  map[string]interface{}{"connection": RoleMain.String(), "error": details},
		})
		return Health{Status: StatusUnhealthy, Details: details}
	}
	return Health{Status: StatusHealthy, Details: "main connection responding"}
}

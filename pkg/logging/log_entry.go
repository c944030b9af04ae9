package logging

// LogEntry represents a structured log record.
type LogEntry struct {
	// Standard fields
	Time     int64
	Severity Severity
	Message  string
	File     string
	Line     int
	Function string

	// Optimization-specific fields
	Strategy string  // Strategy being applied, if any
	Score    float64 // Current artifact score, when relevant

	// General structured data
	Fields map[string]interface{}
}

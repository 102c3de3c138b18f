package database

import (
	"strings"
	"testing"
)

// Guards the time columns against silently losing fractional seconds: a plain
// DATETIME rounds sub-second instants and can make a job due early.
func TestSchema_TimeColumnsKeepFractionalSeconds(t *testing.T) {
	for _, column := range []string{
		"scheduled_at DATETIME(6)",
		"created_at DATETIME(6)",
		"updated_at DATETIME(6)",
	} {
		if !strings.Contains(scheduledJobsSchema, column) {
			t.Errorf("expected schema to declare %q", column)
		}
	}
}

package agents

import (
	"time"

	"sponte/internal/store"
)

// CadenceOff disables an agent's scheduled runs.
const CadenceOff = "off"

// defaultCadenceDays applies to cadence values outside cadenceDays.
const defaultCadenceDays = 7

var cadenceDays = map[string]int{
	"daily":     1,
	"triweekly": 2,
	"weekly":    7,
	"biweekly":  14,
	"monthly":   30,
}

// CadenceDays returns the minimum number of whole days between two runs.
func CadenceDays(cadence string) int {
	if d, ok := cadenceDays[cadence]; ok {
		return d
	}
	return defaultCadenceDays
}

// Due reports whether a new artifact should be produced.
// An empty or "off" cadence is never due. No prior artifact is always due.
// Otherwise the whole days elapsed since last must reach the cadence interval.
func Due(cadence string, last *time.Time, now time.Time) bool {
	if cadence == "" || cadence == CadenceOff {
		return false
	}
	if last == nil {
		return true
	}
	elapsed := int(now.Sub(*last) / (24 * time.Hour))
	return elapsed >= CadenceDays(cadence)
}

// DedupeKey identifies the scheduled run of an agent on the UTC day of now.
func DedupeKey(agent store.AgentType, now time.Time) string {
	return string(agent) + ":" + now.UTC().Format(time.DateOnly)
}

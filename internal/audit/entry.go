// Package audit keeps a trail of registry changes and socket commands in
// the audit_logs table and lets the API page through it.
package audit

import (
	"strings"
	"time"
)

// Actions.
const (
	ActionCreate  = "create"
	ActionDelete  = "delete"
	ActionCommand = "command"
)

// Entity types. Device entries use the device kind name.
const (
	EntityHome        = "home"
	EntityRoom        = "room"
	EntityThermometer = "thermometer"
	EntitySocket      = "socket"
)

// Entry is one line of the trail. EntityID is the slash-joined location
// of the entity, e.g. "Little Home/Kitchen/kettle".
type Entry struct {
	ID         string         `json:"id"`
	Action     string         `json:"action"`
	EntityType string         `json:"entity_type"`
	EntityID   string         `json:"entity_id"`
	Source     string         `json:"source"`
	Details    map[string]any `json:"details,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}

// EntityPath joins home, room and device names into an entity ID.
func EntityPath(names ...string) string {
	return strings.Join(names, "/")
}

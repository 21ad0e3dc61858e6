// Package notify defines the in-process notification types shared by the
// review engine and the terminal UI.
package notify

import "time"

// Level represents the severity of a notification.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notification is a single user-visible notice. Notifications live only for
// the duration of the process; nothing is persisted.
type Notification struct {
	Level     Level
	Message   string
	CreatedAt time.Time
}

package model

import "time"

// Change event topics.
const (
	TopicProjectUpdated      = "project_updated"
	TopicNotificationUpdated = "notification_updated"
)

// ChangeEvent announces that a project or notification changed. It carries
// the full updated record, not a diff, so a reconnecting subscriber can
// resynchronize by replacing its copy instead of replaying history.
// Delivery is a hint; authoritative state always comes from a fresh read.
type ChangeEvent struct {
	Topic        string        `json:"topic"`
	Project      *Project      `json:"project,omitempty"`
	Notification *Notification `json:"notification,omitempty"`
	EmittedAt    time.Time     `json:"emitted_at"`
}

// ProjectUpdated builds a project_updated event for p.
func ProjectUpdated(p Project) ChangeEvent {
	return ChangeEvent{Topic: TopicProjectUpdated, Project: &p, EmittedAt: time.Now().UTC()}
}

// NotificationUpdated builds a notification_updated event for n.
func NotificationUpdated(n Notification) ChangeEvent {
	return ChangeEvent{Topic: TopicNotificationUpdated, Notification: &n, EmittedAt: time.Now().UTC()}
}

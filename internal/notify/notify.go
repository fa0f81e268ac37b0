package notify

import (
	"context"
	"fmt"
	"log/slog"
)

// Channel is a notification channel.
type Channel interface {
	Send(ctx context.Context, msg *Message) error
	Type() string
}

// Message contains notification details.
type Message struct {
	Title    string
	Body     string
	Priority Priority
	Tags     []string
}

// Priority levels for notifications.
type Priority int

const (
	PriorityLow Priority = iota
	PriorityNormal
	PriorityHigh
	PriorityUrgent
)

// Outcome summarizes a reconciliation run for notification purposes.
type Outcome struct {
	Devices          int
	Folders          int
	RestartTriggered bool
	Err              error
}

// FormatOutcome creates a notification message for a run outcome.
func FormatOutcome(o *Outcome) *Message {
	if o.Err != nil {
		return &Message{
			Title:    "sync config reconciliation failed",
			Body:     o.Err.Error(),
			Priority: PriorityHigh,
			Tags:     []string{"failure"},
		}
	}

	body := fmt.Sprintf("%d devices, %d folders applied", o.Devices, o.Folders)
	tags := []string{"applied"}
	if o.RestartTriggered {
		body += "; daemon restart triggered"
		tags = append(tags, "restart")
	}
	return &Message{
		Title:    "sync config applied",
		Body:     body,
		Priority: PriorityNormal,
		Tags:     tags,
	}
}

// Broadcast sends a message to every channel, best effort. Notification
// failures are logged and never fail the run they describe.
func Broadcast(ctx context.Context, channels []Channel, msg *Message) {
	for _, ch := range channels {
		if err := ch.Send(ctx, msg); err != nil {
			slog.Warn("notification failed", "channel", ch.Type(), "error", err)
		}
	}
}

// Package notify delivers the side effects of relationship and booking
// operations: persistent in-app notifications, the live event feed, and
// best-effort email. None of these may fail the primary operation, so every
// delivery error is logged and dropped here.
package notify

import (
	"context"
	"log/slog"

	"skillswap/backend/internal/hub"
	"skillswap/backend/internal/mail"
	"skillswap/backend/internal/models"
	"skillswap/backend/internal/store"
)

// Notifier fans a notification out to the store and the live feed, and
// dispatches email in the background.
type Notifier struct {
	store store.NotificationStore
	hub   *hub.Hub
	mail  mail.Sender
	log   *slog.Logger
}

// New creates a Notifier. Hub may be nil when no live feed is wired.
func New(notifications store.NotificationStore, h *hub.Hub, sender mail.Sender, logger *slog.Logger) *Notifier {
	if sender == nil {
		sender = mail.Disabled{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{store: notifications, hub: h, mail: sender, log: logger}
}

// Push appends an in-app notification to the recipient's feed and publishes
// it on their live stream. A store failure is logged, not returned: the
// notification is a side effect of an operation that has already committed.
func (n *Notifier) Push(ctx context.Context, recipientID, fromUserID uint, typ models.NotificationType, message string) {
	notification := &models.Notification{
		RecipientID: recipientID,
		FromUserID:  fromUserID,
		Type:        typ,
		Message:     message,
	}

	if err := n.store.Append(ctx, notification); err != nil {
		n.log.Error("append notification",
			"recipient", recipientID, "type", string(typ), "error", err)
		return
	}

	if n.hub != nil {
		n.hub.Publish(recipientID, hub.Event{Type: string(typ), Payload: notification})
	}
}

// Email dispatches a message in the background. The send outlives the
// request context on purpose; a failure is logged and dropped.
func (n *Notifier) Email(ctx context.Context, to, subject, html string) {
	if to == "" {
		return
	}
	ctx = context.WithoutCancel(ctx)
	go func() {
		if err := n.mail.Send(ctx, to, subject, html); err != nil {
			n.log.Warn("send email", "to", to, "subject", subject, "error", err)
		}
	}()
}

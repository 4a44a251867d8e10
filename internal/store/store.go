// Package store defines data access for users, bookings and notifications.
// The interfaces deliberately expose only single-record reads and writes:
// the services are written against atomic per-record semantics and never
// rely on a multi-record transaction.
package store

import (
	"context"
	"errors"

	"skillswap/backend/internal/models"
)

// ErrNotFound indicates the requested record does not exist.
var ErrNotFound = errors.New("store: record not found")

// Booking listing roles.
const (
	RoleSent     = "sent"
	RoleReceived = "received"
)

// UserStore defines data access for user records.
type UserStore interface {
	FindByID(ctx context.Context, id uint) (*models.User, error)
	// FindByLogin looks a user up by nickname or email.
	FindByLogin(ctx context.Context, login string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Save(ctx context.Context, user *models.User) error
}

// BookingStore defines data access for teaching session requests.
type BookingStore interface {
	FindByID(ctx context.Context, id uint) (*models.Booking, error)
	// FindPending returns the pending booking for the (from, to, skill)
	// triple, or ErrNotFound.
	FindPending(ctx context.Context, fromUserID, toUserID uint, skill string) (*models.Booking, error)
	// ListForUser returns a page of the user's bookings and the total count.
	// Role narrows the listing to RoleSent or RoleReceived; empty means both.
	ListForUser(ctx context.Context, userID uint, role string, page, limit int) ([]models.Booking, int64, error)
	Save(ctx context.Context, booking *models.Booking) error
}

// NotificationStore defines data access for in-app notifications.
type NotificationStore interface {
	Append(ctx context.Context, notification *models.Notification) error
	ListForUser(ctx context.Context, userID uint, page, limit int) ([]models.Notification, int64, error)
	// MarkRead marks one of the user's notifications as read.
	MarkRead(ctx context.Context, userID, notificationID uint) error
	MarkAllRead(ctx context.Context, userID uint) error
}

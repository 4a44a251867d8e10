package models

import "gorm.io/gorm"

// NotificationType tags the event a notification describes.
type NotificationType string

const (
	NotificationFriendRequest   NotificationType = "friend_request"
	NotificationFriendAccepted  NotificationType = "friend_accepted"
	NotificationFriendDeclined  NotificationType = "friend_declined"
	NotificationFriendRemoved   NotificationType = "friend_removed"
	NotificationRequestCanceled NotificationType = "friend_request_cancelled"
	NotificationBookingRequest  NotificationType = "booking_request"
	NotificationBookingUpdate   NotificationType = "booking_update"
)

// Notification is an in-app notification appended to a user's feed.
type Notification struct {
	gorm.Model
	RecipientID uint             `gorm:"not null;index"`
	FromUserID  uint             `gorm:"index"`
	Type        NotificationType `gorm:"size:50;not null"`
	Message     string           `gorm:"type:text"`
	Read        bool             `gorm:"not null;default:false"`
}

package models

import (
	"time"

	"gorm.io/gorm"
)

// BookingStatus defines the state of a teaching session request.
type BookingStatus string

const (
	// BookingPending means the request is waiting for the recipient's answer.
	BookingPending BookingStatus = "pending"

	// BookingAccepted means the recipient agreed to the session.
	BookingAccepted BookingStatus = "accepted"

	// BookingRejected means the recipient declined the session.
	BookingRejected BookingStatus = "rejected"

	// BookingCompleted means the session took place.
	BookingCompleted BookingStatus = "completed"

	// BookingCancelled means one of the participants called the session off.
	BookingCancelled BookingStatus = "cancelled"
)

// CanTransition reports whether a booking may move from s to next. The graph
// is monotonic: pending resolves to accepted or rejected, accepted terminates
// in completed or cancelled (pending may also be cancelled outright), and the
// three terminal states admit no further transitions.
func (s BookingStatus) CanTransition(next BookingStatus) bool {
	switch s {
	case BookingPending:
		return next == BookingAccepted || next == BookingRejected || next == BookingCancelled
	case BookingAccepted:
		return next == BookingCompleted || next == BookingCancelled
	default:
		return false
	}
}

// Booking represents a teaching session request for one skill between two
// users. Unlike relationship state, a booking is a single standalone record.
type Booking struct {
	gorm.Model
	FromUserID    uint   `gorm:"not null;index"`
	ToUserID      uint   `gorm:"not null;index"`
	Skill         string `gorm:"size:255;not null"`
	Message       string `gorm:"type:text"`
	PreferredDate *time.Time
	Status        BookingStatus `gorm:"type:varchar(20);not null;default:'pending';index"`

	FromUser User `gorm:"foreignKey:FromUserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
	ToUser   User `gorm:"foreignKey:ToUserID;references:ID;constraint:OnUpdate:CASCADE,OnDelete:CASCADE;"`
}

// HasParticipant reports whether the given user is one of the two parties.
func (b *Booking) HasParticipant(id uint) bool {
	return b.FromUserID == id || b.ToUserID == id
}

// CounterpartOf returns the other participant's ID.
func (b *Booking) CounterpartOf(id uint) uint {
	if b.FromUserID == id {
		return b.ToUserID
	}
	return b.FromUserID
}
